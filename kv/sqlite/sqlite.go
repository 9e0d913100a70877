/*
Package sqlite provides a SQLite-backed implementation of the kv.Store.

PURPOSE:
  Durable backend for the single-table design. One `items` table holds every
  entity kind; the attribute payload is stored as a JSON document, the key
  columns and the entity_type discriminator are real columns so prefix scans
  and index lookups stay indexable.

SCHEMA:
  items(pk, sk, gsi1_pk, gsi1_sk, entity_type, attrs)
    PRIMARY KEY (pk, sk)
    INDEX (gsi1_pk, gsi1_sk)   -- the one secondary index (gsi1)

CONDITIONAL WRITES:
  Each conditional write runs inside BEGIN IMMEDIATE: read current row,
  evaluate the predicate, apply the mutation, commit. SQLite's single-writer
  model makes the check-and-write atomic per item, which is all the contract
  promises. A process-local mutex keeps the write path serialized so a
  busy database never surfaces as a spurious condition failure.

WAL MODE:
  Opened with WAL so readers do not block during writes.

NUMERIC PRECISION:
  Additive deltas are applied with shopspring decimals in Go, not with SQL
  arithmetic, so monetary values never pass through floating point.

SEE ALSO:
  - kv/kv.go: contract and error taxonomy
  - kv/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/kv"
)

// Store implements kv.Store on a single SQLite table.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at path. Use ":memory:" for an
// in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		pk          TEXT NOT NULL,
		sk          TEXT NOT NULL,
		gsi1_pk     TEXT NOT NULL DEFAULT '',
		gsi1_sk     TEXT NOT NULL DEFAULT '',
		entity_type TEXT NOT NULL,
		attrs       TEXT NOT NULL,
		PRIMARY KEY (pk, sk)
	);

	CREATE INDEX IF NOT EXISTS idx_items_gsi1
		ON items(gsi1_pk, gsi1_sk);
	`
	_, err := s.db.Exec(schema)
	return err
}

var _ kv.Store = (*Store)(nil)

// =============================================================================
// WRITES
// =============================================================================

func (s *Store) Put(ctx context.Context, item kv.Item, cond *kv.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkCondition(ctx, tx, item.PK, item.SK, cond); err != nil {
			return err
		}
		attrs, err := marshalAttrs(item.Attrs)
		if err != nil {
			return kv.Unavailable(err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO items (pk, sk, gsi1_pk, gsi1_sk, entity_type, attrs)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(pk, sk) DO UPDATE SET
				gsi1_pk = excluded.gsi1_pk,
				gsi1_sk = excluded.gsi1_sk,
				entity_type = excluded.entity_type,
				attrs = excluded.attrs`,
			item.PK, item.SK, item.GSI1PK, item.GSI1SK, item.EntityType, attrs)
		if err != nil {
			return kv.Unavailable(err)
		}
		return nil
	})
}

func (s *Store) Update(ctx context.Context, pk, sk string, upd kv.Update, cond *kv.Condition) (kv.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result kv.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkCondition(ctx, tx, pk, sk, cond); err != nil {
			return err
		}
		item, found, err := readItem(ctx, tx, pk, sk)
		if err != nil {
			return err
		}
		if !found {
			return kv.ErrItemNotFound
		}

		for k, v := range upd.Set {
			item.Attrs[k] = v
		}
		for k, delta := range upd.Add {
			cur, ok := kv.AsDecimal(item.Attrs[k])
			if !ok {
				cur = decimal.Zero
			}
			item.Attrs[k] = cur.Add(delta)
		}

		attrs, err := marshalAttrs(item.Attrs)
		if err != nil {
			return kv.Unavailable(err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET attrs = ? WHERE pk = ? AND sk = ?`,
			attrs, pk, sk); err != nil {
			return kv.Unavailable(err)
		}
		result = item
		return nil
	})
	if err != nil {
		return kv.Item{}, err
	}
	return result, nil
}

func (s *Store) Delete(ctx context.Context, pk, sk string, cond *kv.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkCondition(ctx, tx, pk, sk, cond); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE pk = ? AND sk = ?`, pk, sk)
		if err != nil {
			return kv.Unavailable(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return kv.Unavailable(err)
		}
		if n == 0 {
			return kv.ErrItemNotFound
		}
		return nil
	})
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) Get(ctx context.Context, pk, sk string) (kv.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pk, sk, gsi1_pk, gsi1_sk, entity_type, attrs
		FROM items WHERE pk = ? AND sk = ?`, pk, sk)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return kv.Item{}, kv.ErrItemNotFound
	}
	if err != nil {
		return kv.Item{}, kv.Unavailable(err)
	}
	return item, nil
}

func (s *Store) QueryPrefix(ctx context.Context, pk, skPrefix string) ([]kv.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pk, sk, gsi1_pk, gsi1_sk, entity_type, attrs
		FROM items
		WHERE pk = ? AND sk >= ? AND sk < ?
		ORDER BY sk`, pk, skPrefix, prefixUpperBound(skPrefix))
	if err != nil {
		return nil, kv.Unavailable(err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (s *Store) QueryIndex(ctx context.Context, index, key string) ([]kv.Item, error) {
	if index != kv.GSI1 {
		return nil, kv.Unavailable(fmt.Errorf("unknown index: %s", index))
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT pk, sk, gsi1_pk, gsi1_sk, entity_type, attrs
		FROM items
		WHERE gsi1_pk = ?
		ORDER BY gsi1_sk`, key)
	if err != nil {
		return nil, kv.Unavailable(err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return kv.Unavailable(err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return kv.Unavailable(err)
	}
	return nil
}

func checkCondition(ctx context.Context, tx *sql.Tx, pk, sk string, cond *kv.Condition) error {
	if cond == nil {
		return nil
	}
	item, found, err := readItem(ctx, tx, pk, sk)
	if err != nil {
		return err
	}

	if cond.Exists != nil && *cond.Exists != found {
		return kv.ErrConditionFailed
	}
	for k, want := range cond.AttrEquals {
		if !found || !attrEqual(item.Attrs[k], want) {
			return kv.ErrConditionFailed
		}
	}
	return nil
}

func readItem(ctx context.Context, tx *sql.Tx, pk, sk string) (kv.Item, bool, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT pk, sk, gsi1_pk, gsi1_sk, entity_type, attrs
		FROM items WHERE pk = ? AND sk = ?`, pk, sk)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return kv.Item{}, false, nil
	}
	if err != nil {
		return kv.Item{}, false, kv.Unavailable(err)
	}
	return item, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (kv.Item, error) {
	var item kv.Item
	var attrs []byte
	if err := row.Scan(&item.PK, &item.SK, &item.GSI1PK, &item.GSI1SK, &item.EntityType, &attrs); err != nil {
		return kv.Item{}, err
	}
	if err := json.Unmarshal(attrs, &item.Attrs); err != nil {
		return kv.Item{}, err
	}
	return item, nil
}

func collectItems(rows *sql.Rows) ([]kv.Item, error) {
	var out []kv.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, kv.Unavailable(err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, kv.Unavailable(err)
	}
	return out, nil
}

// marshalAttrs encodes the attribute map. Decimal values marshal as quoted
// strings, which keeps them exact across the JSON round trip; kv.AsDecimal
// on the read side coerces them back.
func marshalAttrs(attrs map[string]any) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return json.Marshal(attrs)
}

func attrEqual(got, want any) bool {
	if gd, ok := kv.AsDecimal(got); ok {
		if wd, ok := kv.AsDecimal(want); ok {
			return gd.Equal(wd)
		}
	}
	return got == want
}

// prefixUpperBound returns the smallest string greater than every string
// with the given prefix, for range scans on the sort key. An empty prefix
// scans the whole partition.
func prefixUpperBound(prefix string) string {
	if prefix == "" {
		return "￿"
	}
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return strings.Repeat("\xff", len(b)+1)
}
