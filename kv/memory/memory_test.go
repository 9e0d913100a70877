package memory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-ledger/kv"
	"github.com/warp/finance-ledger/kv/memory"
)

func item(pk, sk string, attrs map[string]any) kv.Item {
	return kv.Item{PK: pk, SK: sk, EntityType: "test", Attrs: attrs}
}

func TestPut_ConditionalCreate(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	it := item("USER#u1", "METADATA", map[string]any{"name": "a"})
	require.NoError(t, s.Put(ctx, it, kv.MustNotExist()))

	// Same key again with MustNotExist fails distinguishably.
	err := s.Put(ctx, it, kv.MustNotExist())
	assert.ErrorIs(t, err, kv.ErrConditionFailed)

	// Unconditional put overwrites.
	it.Attrs = map[string]any{"name": "b"}
	require.NoError(t, s.Put(ctx, it, nil))
	got, err := s.Get(ctx, "USER#u1", "METADATA")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Attrs["name"])
}

func TestGet_Missing(t *testing.T) {
	s := memory.New()
	_, err := s.Get(context.Background(), "USER#none", "METADATA")
	assert.ErrorIs(t, err, kv.ErrItemNotFound)
}

func TestUpdate_AdditiveDelta(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, item("USER#u1", "ACCOUNT#a1", map[string]any{
		"balance":   decimal.RequireFromString("100.50"),
		"is_active": true,
	}), nil))

	got, err := s.Update(ctx, "USER#u1", "ACCOUNT#a1", kv.Update{
		Add: map[string]decimal.Decimal{"balance": decimal.RequireFromString("-0.75")},
	}, nil)
	require.NoError(t, err)

	n, ok := kv.AsDecimal(got.Attrs["balance"])
	require.True(t, ok)
	assert.True(t, n.Equal(decimal.RequireFromString("99.75")))

	// A missing attribute is treated as zero.
	got, err = s.Update(ctx, "USER#u1", "ACCOUNT#a1", kv.Update{
		Add: map[string]decimal.Decimal{"bonus": decimal.NewFromInt(3)},
	}, nil)
	require.NoError(t, err)
	n, ok = kv.AsDecimal(got.Attrs["bonus"])
	require.True(t, ok)
	assert.True(t, n.Equal(decimal.NewFromInt(3)))
}

func TestUpdate_AttrEqualsCondition(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, item("USER#u1", "ACCOUNT#a1", map[string]any{
		"balance":   decimal.NewFromInt(10),
		"is_active": false,
	}), nil))

	// "exists AND is_active" does not hold.
	_, err := s.Update(ctx, "USER#u1", "ACCOUNT#a1",
		kv.Update{Add: map[string]decimal.Decimal{"balance": decimal.NewFromInt(1)}},
		kv.MustExistWith(map[string]any{"is_active": true}))
	assert.ErrorIs(t, err, kv.ErrConditionFailed)

	// And the balance did not move.
	got, err := s.Get(ctx, "USER#u1", "ACCOUNT#a1")
	require.NoError(t, err)
	n, _ := kv.AsDecimal(got.Attrs["balance"])
	assert.True(t, n.Equal(decimal.NewFromInt(10)))

	// Condition against a missing item also fails, before any write.
	_, err = s.Update(ctx, "USER#u1", "ACCOUNT#nope",
		kv.Update{}, kv.MustExistWith(map[string]any{"is_active": true}))
	assert.ErrorIs(t, err, kv.ErrConditionFailed)
}

func TestDelete_Conditional(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, item("USER#u1", "TXN#t1", map[string]any{"x": "y"}), nil))
	require.NoError(t, s.Delete(ctx, "USER#u1", "TXN#t1", kv.MustExist()))

	err := s.Delete(ctx, "USER#u1", "TXN#t1", kv.MustExist())
	assert.ErrorIs(t, err, kv.ErrConditionFailed)

	err = s.Delete(ctx, "USER#u1", "TXN#t1", nil)
	assert.ErrorIs(t, err, kv.ErrItemNotFound)
}

func TestQueryPrefix_OrderedAndScoped(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for _, sk := range []string{"TRANSACTION#t3", "ACCOUNT#a1", "TRANSACTION#t1", "METADATA", "TRANSACTION#t2"} {
		require.NoError(t, s.Put(ctx, item("USER#u1", sk, map[string]any{}), nil))
	}
	require.NoError(t, s.Put(ctx, item("USER#OTHER", "TRANSACTION#tx", map[string]any{}), nil))

	got, err := s.QueryPrefix(ctx, "USER#u1", "TRANSACTION#")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "TRANSACTION#t1", got[0].SK)
	assert.Equal(t, "TRANSACTION#t3", got[2].SK)

	// Empty prefix scans the whole partition.
	all, err := s.QueryPrefix(ctx, "USER#u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestQueryIndex_OrderedByIndexSortKey(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	puts := []kv.Item{
		{PK: "USER#u1", SK: "TRANSACTION#b", GSI1PK: "ACCOUNT#a1", GSI1SK: "TRANSACTION#2026-02-01#b", EntityType: "t", Attrs: map[string]any{}},
		{PK: "USER#u1", SK: "TRANSACTION#a", GSI1PK: "ACCOUNT#a1", GSI1SK: "TRANSACTION#2026-01-15#a", EntityType: "t", Attrs: map[string]any{}},
		{PK: "USER#u1", SK: "TRANSACTION#c", GSI1PK: "ACCOUNT#other", GSI1SK: "TRANSACTION#2026-01-01#c", EntityType: "t", Attrs: map[string]any{}},
	}
	for _, it := range puts {
		require.NoError(t, s.Put(ctx, it, nil))
	}

	got, err := s.QueryIndex(ctx, kv.GSI1, "ACCOUNT#a1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "TRANSACTION#a", got[0].SK, "chronological by index sort key")
	assert.Equal(t, "TRANSACTION#b", got[1].SK)

	_, err = s.QueryIndex(ctx, "nope", "ACCOUNT#a1")
	assert.ErrorIs(t, err, kv.ErrUnavailable)
}
