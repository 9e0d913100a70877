/*
Package kv defines the contract for the single-table item store.

PURPOSE:
  Every entity in the system (users, accounts, cards, transactions) lives in
  ONE logical table, disambiguated by a composite partition key and sort key.
  This package defines the store interface and the small vocabulary of
  operations the rest of the system is allowed to use: keyed get/put/delete,
  conditional writes, additive numeric updates, sort-key prefix scans, and
  one secondary index for reverse lookups.

SINGLE TABLE DESIGN:
  pk: owner scope        e.g. USER#usr_1a2b3c
  sk: entity discriminator  e.g. METADATA, ACCOUNT#acc_9f8e, TRANSACTION#txn_...
  gsi1: alternate lookup path  e.g. EMAIL#foo@bar.com -> user,
                                     ACCOUNT#acc_9f8e -> owner + per-account txns

CONDITIONAL WRITES:
  The store supports existence/non-existence predicates and attribute
  equality predicates, checked atomically with the write. There are NO
  multi-item transactions. Cross-item operations (transfers) are sequential
  and can partially fail; that gap belongs to the ledger layer, not here.

ADDITIVE UPDATES:
  Update carries Set (field replacement) and Add (signed decimal deltas).
  Add is first-class: "balance = balance + delta" applied atomically per
  item, so concurrent writers cannot lose updates. Callers that read a
  balance and write it back wholesale reintroduce the race - balance fields
  are delta-only by contract.

IMPLEMENTATIONS:
  - kv/memory: mutex-guarded in-memory maps (tests, dev)
  - kv/sqlite: one JSON-attribute table in SQLite

SEE ALSO:
  - entity/codec.go: maps domain entities to/from Item
  - ledger/: the only writer of balance fields
*/
package kv

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// GSI1 is the name of the single secondary index.
const GSI1 = "gsi1"

// =============================================================================
// ITEM - The generic stored record
// =============================================================================

// Item is the raw representation of a stored entity. Attrs holds the entity
// payload; key fields and the entity_type discriminator live alongside it so
// prefix scans can be filtered defensively on decode.
type Item struct {
	PK         string
	SK         string
	GSI1PK     string
	GSI1SK     string
	EntityType string
	Attrs      map[string]any
}

// Clone returns a deep-enough copy of the item (Attrs map is copied, values
// are assumed immutable).
func (it Item) Clone() Item {
	out := it
	out.Attrs = make(map[string]any, len(it.Attrs))
	for k, v := range it.Attrs {
		out.Attrs[k] = v
	}
	return out
}

// =============================================================================
// CONDITIONS AND UPDATES
// =============================================================================

// Condition expresses the predicates a write may carry. All predicates are
// checked atomically with the write by the implementation.
type Condition struct {
	// Exists, when non-nil, requires the item to exist (true) or to not
	// exist (false) at write time.
	Exists *bool

	// AttrEquals requires each named attribute to equal the given value.
	// Only meaningful together with Exists == true.
	AttrEquals map[string]any
}

// MustExist is a condition requiring the target item to be present.
func MustExist() *Condition {
	t := true
	return &Condition{Exists: &t}
}

// MustNotExist is a condition requiring the target item to be absent.
// Used for conditional creates (AlreadyExists detection).
func MustNotExist() *Condition {
	f := false
	return &Condition{Exists: &f}
}

// MustExistWith requires presence plus attribute equality, e.g.
// "exists AND is_active = true" for balance writes.
func MustExistWith(attrs map[string]any) *Condition {
	t := true
	return &Condition{Exists: &t, AttrEquals: attrs}
}

// Update describes an in-place mutation of an item.
type Update struct {
	// Set replaces attribute values.
	Set map[string]any

	// Add applies signed additive deltas to numeric attributes. A missing
	// attribute is treated as zero. Applied atomically per item.
	Add map[string]decimal.Decimal
}

// =============================================================================
// STORE - The adapter contract
// =============================================================================

// Store is the persistence contract for the single table.
//
// Error contract: condition violations surface as ErrConditionFailed,
// reads/updates/deletes of absent items as ErrItemNotFound, and any other
// backend failure wrapped in ErrUnavailable. The store never retries
// internally; retry policy belongs to the caller.
type Store interface {
	// Put writes a full item, subject to an optional condition.
	Put(ctx context.Context, item Item, cond *Condition) error

	// Get fetches one item by primary key. ErrItemNotFound if absent.
	Get(ctx context.Context, pk, sk string) (Item, error)

	// Update applies Set/Add mutations atomically, subject to an optional
	// condition, and returns the resulting item.
	Update(ctx context.Context, pk, sk string, upd Update, cond *Condition) (Item, error)

	// Delete removes one item, subject to an optional condition.
	Delete(ctx context.Context, pk, sk string, cond *Condition) error

	// QueryPrefix returns all items in a partition whose sort key starts
	// with the given prefix, ordered by sort key.
	QueryPrefix(ctx context.Context, pk, skPrefix string) ([]Item, error)

	// QueryIndex returns all items whose index partition key equals key,
	// ordered by the index sort key.
	QueryIndex(ctx context.Context, index, key string) ([]Item, error)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrConditionFailed is returned when a conditional write's predicate
	// does not hold at write time. Terminal for that attempt; the ledger
	// translates it into a domain error.
	ErrConditionFailed = errors.New("kv: condition failed")

	// ErrItemNotFound is returned by Get/Update/Delete for absent items.
	ErrItemNotFound = errors.New("kv: item not found")

	// ErrUnavailable wraps transient backend failures. Retryable by the
	// caller, never retried here.
	ErrUnavailable = errors.New("kv: store unavailable")
)

// Unavailable wraps err as a transient store failure.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return &unavailableError{cause: err}
}

type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string { return "kv: store unavailable: " + e.cause.Error() }
func (e *unavailableError) Unwrap() error { return ErrUnavailable }

// Cause returns the underlying backend error.
func (e *unavailableError) Cause() error { return e.cause }

// IsRetryable reports whether the caller may retry the operation.
// Condition failures are terminal; everything else transient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// =============================================================================
// NUMERIC COERCION
// =============================================================================

// AsDecimal coerces an attribute value into a decimal. Implementations and
// codecs share one definition of "numeric" so additive updates behave the
// same whether the value round-tripped through JSON (string/float64) or not.
func AsDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	default:
		return decimal.Zero, false
	}
}
