/*
Package ledger is the engine that keeps balances correct.

PURPOSE:
  The only writer of account and card balance fields. Implements the
  type-based sign rule for transactions, transfer orchestration across two
  accounts, soft deletes, and the additive-delta discipline that makes
  concurrent balance writes safe: the engine never reads a balance and
  writes it back; it always ships a signed delta and lets the store add it
  atomically.

CONSISTENCY MODEL:
  Per-item conditional writes only. No multi-item transactions exist in
  the store, so cross-item operations (transfers: two transaction writes,
  two balance updates) are sequential and can partially fail. The engine
  surfaces that as PartialTransferError rather than pretending atomicity.

SEE ALSO:
  - kv/: the store primitives
  - entity/: the codec between domain structs and stored items
  - query/: read-only analytics over the same data
*/
package ledger

import (
	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/kv"
)

// FailedLoginThreshold is the number of consecutive failed logins after
// which a user is deactivated.
const FailedLoginThreshold = 5

// Ledger exposes the mutating call surface over the single-table store.
// Every method takes the authenticated owner's user id explicitly; the
// engine never resolves identity itself.
type Ledger struct {
	store kv.Store

	// now is injectable for tests; defaults to entity.Now.
	now func() string
}

func New(store kv.Store) *Ledger {
	return &Ledger{store: store, now: entity.Now}
}

// WithClock overrides timestamp generation. Test hook.
func (l *Ledger) WithClock(now func() string) *Ledger {
	l.now = now
	return l
}

// Store exposes the underlying store for the read-only query layer.
func (l *Ledger) Store() kv.Store { return l.store }
