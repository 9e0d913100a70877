/*
Package memory provides an in-memory Store implementation.

PURPOSE:
  Test and development backend for the single-table store. All operations
  run under one mutex, which makes every conditional write and additive
  update trivially atomic - the same guarantee the production backend gives
  per item, obtained here by construction.

SEE ALSO:
  - kv/kv.go: the contract this implements
  - kv/sqlite: the durable implementation
*/
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/kv"
)

// Store keeps items in nested maps: partition key -> sort key -> item.
type Store struct {
	mu    sync.RWMutex
	parts map[string]map[string]kv.Item
}

func New() *Store {
	return &Store{parts: make(map[string]map[string]kv.Item)}
}

var _ kv.Store = (*Store)(nil)

// =============================================================================
// WRITES
// =============================================================================

func (s *Store) Put(_ context.Context, item kv.Item, cond *kv.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(item.PK, item.SK, cond); err != nil {
		return err
	}

	part := s.parts[item.PK]
	if part == nil {
		part = make(map[string]kv.Item)
		s.parts[item.PK] = part
	}
	part[item.SK] = item.Clone()
	return nil
}

func (s *Store) Update(_ context.Context, pk, sk string, upd kv.Update, cond *kv.Condition) (kv.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(pk, sk, cond); err != nil {
		return kv.Item{}, err
	}

	item, ok := s.getLocked(pk, sk)
	if !ok {
		return kv.Item{}, kv.ErrItemNotFound
	}

	next := item.Clone()
	for k, v := range upd.Set {
		next.Attrs[k] = v
	}
	for k, delta := range upd.Add {
		cur, ok := kv.AsDecimal(next.Attrs[k])
		if !ok {
			cur = decimal.Zero
		}
		next.Attrs[k] = cur.Add(delta)
	}
	s.parts[pk][sk] = next
	return next.Clone(), nil
}

func (s *Store) Delete(_ context.Context, pk, sk string, cond *kv.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(pk, sk, cond); err != nil {
		return err
	}
	if _, ok := s.getLocked(pk, sk); !ok {
		return kv.ErrItemNotFound
	}
	delete(s.parts[pk], sk)
	return nil
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) Get(_ context.Context, pk, sk string) (kv.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.getLocked(pk, sk)
	if !ok {
		return kv.Item{}, kv.ErrItemNotFound
	}
	return item.Clone(), nil
}

func (s *Store) QueryPrefix(_ context.Context, pk, skPrefix string) ([]kv.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []kv.Item
	for sk, item := range s.parts[pk] {
		if strings.HasPrefix(sk, skPrefix) {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SK < out[j].SK })
	return out, nil
}

func (s *Store) QueryIndex(_ context.Context, index, key string) ([]kv.Item, error) {
	if index != kv.GSI1 {
		return nil, kv.Unavailable(errUnknownIndex(index))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []kv.Item
	for _, part := range s.parts {
		for _, item := range part {
			if item.GSI1PK == key {
				out = append(out, item.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GSI1SK < out[j].GSI1SK })
	return out, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Store) getLocked(pk, sk string) (kv.Item, bool) {
	part, ok := s.parts[pk]
	if !ok {
		return kv.Item{}, false
	}
	item, ok := part[sk]
	return item, ok
}

// checkLocked evaluates a write condition against current state. Caller
// holds the write lock, so check and write are atomic.
func (s *Store) checkLocked(pk, sk string, cond *kv.Condition) error {
	if cond == nil {
		return nil
	}
	item, exists := s.getLocked(pk, sk)

	if cond.Exists != nil && *cond.Exists != exists {
		return kv.ErrConditionFailed
	}
	for k, want := range cond.AttrEquals {
		if !exists || !attrEqual(item.Attrs[k], want) {
			return kv.ErrConditionFailed
		}
	}
	return nil
}

// attrEqual compares attribute values, treating all numeric representations
// as equivalent (decimal vs string vs float after a JSON round trip).
func attrEqual(got, want any) bool {
	if gd, ok := kv.AsDecimal(got); ok {
		if wd, ok := kv.AsDecimal(want); ok {
			return gd.Equal(wd)
		}
	}
	return got == want
}

type errUnknownIndex string

func (e errUnknownIndex) Error() string { return "unknown index: " + string(e) }
