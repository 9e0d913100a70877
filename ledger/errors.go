/*
errors.go - Domain error taxonomy for the ledger engine

PURPOSE:
  All ledger errors in one place. The engine translates store-level
  conditional failures into the specific domain error based on which
  predicate failed; callers above the engine translate these into
  transport-level responses.

TAXONOMY:
  NotFound           entity absent for the given owner+id
  AlreadyExists      conditional create violated
  InvalidState       operation not permitted in the entity's current state
                     (edit on a completed transaction, write to an
                     inactive account)
  PreconditionFailed conditional-write rejection not covered above
  StoreUnavailable   transient backend failure, retryable by the caller

PARTIAL TRANSFERS:
  Transfer legs are sequential store writes, not a transaction. When the
  destination leg fails after the source leg committed, the engine does
  NOT roll back; it returns PartialTransferError naming the committed leg
  so the caller can reconcile. Hiding the gap would be worse than
  surfacing it.

SEE ALSO:
  - kv/kv.go: the store-level errors these translate from
  - transactions.go: transfer orchestration
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/kv"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when the referenced entity does not exist
	// under the given owner.
	ErrNotFound = errors.New("ledger: not found")

	// ErrAlreadyExists is returned when a conditional create finds the
	// target already present (duplicate email, reused id).
	ErrAlreadyExists = errors.New("ledger: already exists")

	// ErrInvalidState is returned when the entity exists but its state
	// forbids the operation.
	ErrInvalidState = errors.New("ledger: invalid state")

	// ErrPreconditionFailed is returned for conditional-write rejections
	// that do not map to a more specific error.
	ErrPreconditionFailed = errors.New("ledger: precondition failed")

	// ErrStoreUnavailable wraps transient backend failures.
	ErrStoreUnavailable = errors.New("ledger: store unavailable")
)

func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool      { return errors.Is(err, ErrAlreadyExists) }
func IsInvalidState(err error) bool  { return errors.Is(err, ErrInvalidState) }
func IsRetryable(err error) bool     { return errors.Is(err, ErrStoreUnavailable) }

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string // "user", "account", "card", "transaction"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadyExistsError names the conflicting entity.
type AlreadyExistsError struct {
	Kind string
	Key  string // the conflicting identifier (email, id)
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.Key)
}

func (e *AlreadyExistsError) Unwrap() error { return ErrAlreadyExists }

// InvalidStateError explains why the entity's state forbids the operation.
type InvalidStateError struct {
	Kind   string
	ID     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.ID, e.Reason)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// PartialTransferError reports a transfer whose source leg committed but
// whose destination leg did not. The ledger holds a debit with no matching
// credit until someone reconciles; the committed leg is named so they can.
type PartialTransferError struct {
	SourceTransactionID  string
	SourceAccountID      string
	DestinationAccountID string
	Amount               decimal.Decimal
	Cause                error
}

func (e *PartialTransferError) Error() string {
	return fmt.Sprintf(
		"partial transfer: source transaction %s debited account %s by %s, destination account %s was not credited: %v",
		e.SourceTransactionID, e.SourceAccountID, e.Amount, e.DestinationAccountID, e.Cause)
}

func (e *PartialTransferError) Unwrap() error { return e.Cause }

// =============================================================================
// STORE ERROR TRANSLATION
// =============================================================================

// storeErr maps a raw store failure onto the domain taxonomy for reads.
// Conditional-write failures need entity context to disambiguate and are
// handled at each call site instead.
func storeErr(kind, id string, err error) error {
	switch {
	case errors.Is(err, kv.ErrItemNotFound):
		return &NotFoundError{Kind: kind, ID: id}
	case errors.Is(err, kv.ErrConditionFailed):
		return fmt.Errorf("%w: %s %s", ErrPreconditionFailed, kind, id)
	case errors.Is(err, kv.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
