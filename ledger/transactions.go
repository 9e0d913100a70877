/*
transactions.go - Transaction lifecycle and transfer orchestration

PURPOSE:
  The sign rule, the balance snapshot, and the four sequential writes
  that make up a transfer. Every balance mutation here goes through the
  store's additive update; the engine never writes a balance wholesale.

SIGN RULE:
  expense, fee, transfer            -> balance -= |amount|
  income, refund, dividend, bonus,
  salary, interest                  -> balance += |amount|
  investment, other                 -> balance += amount (signed as given)
  Deletion applies the exact inverse.

TRANSFERS:
  A transfer writes the source transaction, debits the source account,
  writes the destination transaction, credits the destination account.
  Four writes, no atomicity. A failure after the source leg committed
  surfaces as PartialTransferError naming the committed leg. Deleting one
  leg later does NOT touch the other; the orphan is a documented gap.

IMMUTABILITY:
  Once status is "completed", amount, type, date, and status are frozen.
  Description, category, notes, tags, location, and reference_number stay
  editable at any time.

SEE ALSO:
  - accounts.go: AdjustBalance, the conditional additive update
  - query/: list, filter, and summarize over what this file writes
*/
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/kv"
)

// =============================================================================
// SIGN RULE
// =============================================================================

// balanceEffect computes the signed delta a transaction applies to its
// account's balance. One rule shared with the query layer's totals.
func balanceEffect(t entity.TransactionType, amount decimal.Decimal) decimal.Decimal {
	return entity.BalanceEffect(t, amount)
}

// =============================================================================
// INPUTS
// =============================================================================

type RecordTransactionInput struct {
	AccountID       string
	Amount          decimal.Decimal
	Description     string
	Type            entity.TransactionType
	Category        entity.Category
	Status          entity.TransactionStatus // defaults to completed
	TransactionDate string                   // defaults to today (UTC)
	ReferenceNumber string
	Notes           string
	Location        string
	Tags            []string

	// Set for transfers: the account to credit with |amount|.
	DestinationAccountID string

	IsRecurring        bool
	RecurringFrequency entity.RecurringFrequency
}

// UpdateTransactionInput carries partial edits; nil leaves a field as is.
// Amount, Type, TransactionDate, and Status are financial fields, frozen
// once the transaction is completed.
type UpdateTransactionInput struct {
	Description     *string
	Category        *entity.Category
	Notes           *string
	Location        *string
	ReferenceNumber *string
	Tags            *[]string

	Amount          *decimal.Decimal
	Type            *entity.TransactionType
	TransactionDate *string
	Status          *entity.TransactionStatus
}

func (in UpdateTransactionInput) touchesFinancialFields() bool {
	return in.Amount != nil || in.Type != nil || in.TransactionDate != nil || in.Status != nil
}

// =============================================================================
// RECORD
// =============================================================================

// RecordTransaction writes a transaction and applies its balance effect.
// For transfers with a destination account it also writes the paired
// destination leg. Returns the source transaction.
func (l *Ledger) RecordTransaction(ctx context.Context, userID string, in RecordTransactionInput) (entity.Transaction, error) {
	account, err := l.GetAccount(ctx, userID, in.AccountID)
	if err != nil {
		return entity.Transaction{}, err
	}
	if !account.IsActive {
		return entity.Transaction{}, &InvalidStateError{
			Kind: "account", ID: in.AccountID, Reason: "account is inactive",
		}
	}

	isTransfer := in.Type == entity.TxTransfer && in.DestinationAccountID != ""
	var destAccount entity.Account
	if isTransfer {
		// Validate the destination up front so an obviously doomed
		// transfer fails before any write.
		destAccount, err = l.GetAccount(ctx, userID, in.DestinationAccountID)
		if err != nil {
			return entity.Transaction{}, err
		}
		if !destAccount.IsActive {
			return entity.Transaction{}, &InvalidStateError{
				Kind: "account", ID: in.DestinationAccountID, Reason: "account is inactive",
			}
		}
	}

	now := l.now()
	status := in.Status
	if status == "" {
		status = entity.StatusCompleted
	}
	date := in.TransactionDate
	if date == "" {
		date = now[:10]
	}

	delta := balanceEffect(in.Type, in.Amount)
	src := entity.Transaction{
		TransactionID:       entity.NewTransactionID(),
		UserID:              userID,
		AccountID:           account.AccountID,
		AccountName:         account.Name,
		Amount:              entity.Round2(in.Amount),
		Description:         in.Description,
		Type:                in.Type,
		Category:            in.Category,
		Status:              status,
		TransactionDate:     date,
		ReferenceNumber:     in.ReferenceNumber,
		Notes:               in.Notes,
		Location:            in.Location,
		Tags:                in.Tags,
		AccountBalanceAfter: entity.Round2(account.CurrentBalance.Add(delta)),
		IsRecurring:         in.IsRecurring,
		RecurringFrequency:  in.RecurringFrequency,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if isTransfer {
		src.DestinationAccountID = destAccount.AccountID
		src.DestinationAccountName = destAccount.Name
	}

	if err := l.store.Put(ctx, entity.TransactionToItem(src), kv.MustNotExist()); err != nil {
		if errors.Is(err, kv.ErrConditionFailed) {
			return entity.Transaction{}, &AlreadyExistsError{Kind: "transaction", Key: src.TransactionID}
		}
		return entity.Transaction{}, storeErr("transaction", src.TransactionID, err)
	}
	if _, err := l.AdjustBalance(ctx, userID, account.AccountID, delta); err != nil {
		return entity.Transaction{}, err
	}

	if isTransfer {
		if err := l.recordTransferLeg(ctx, userID, src, destAccount); err != nil {
			return src, err
		}
	}
	return src, nil
}

// recordTransferLeg writes the destination side of a transfer. Any failure
// here happens after the source leg committed, so errors are wrapped as
// PartialTransferError; no rollback is attempted.
func (l *Ledger) recordTransferLeg(ctx context.Context, userID string, src entity.Transaction, dest entity.Account) error {
	partial := func(cause error) error {
		return &PartialTransferError{
			SourceTransactionID:  src.TransactionID,
			SourceAccountID:      src.AccountID,
			DestinationAccountID: dest.AccountID,
			Amount:               src.Amount.Abs(),
			Cause:                cause,
		}
	}

	now := l.now()
	credit := src.Amount.Abs()
	leg := entity.Transaction{
		TransactionID:          entity.NewTransactionID(),
		UserID:                 userID,
		AccountID:              dest.AccountID,
		AccountName:            dest.Name,
		Amount:                 entity.Round2(credit),
		Description:            fmt.Sprintf("Transfer from %s: %s", src.AccountName, src.Description),
		Type:                   entity.TxIncome,
		Category:               entity.CatAccountTransfer,
		Status:                 src.Status,
		TransactionDate:        src.TransactionDate,
		Notes:                  fmt.Sprintf("Transfer from transaction %s", src.TransactionID),
		Tags:                   src.Tags,
		DestinationAccountID:   src.AccountID,
		DestinationAccountName: src.AccountName,
		AccountBalanceAfter:    entity.Round2(dest.CurrentBalance.Add(credit)),
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := l.store.Put(ctx, entity.TransactionToItem(leg), kv.MustNotExist()); err != nil {
		return partial(storeErr("transaction", leg.TransactionID, err))
	}
	if _, err := l.AdjustBalance(ctx, userID, dest.AccountID, credit); err != nil {
		return partial(err)
	}
	return nil
}

// =============================================================================
// READ / UPDATE / DELETE
// =============================================================================

func (l *Ledger) GetTransaction(ctx context.Context, userID, transactionID string) (entity.Transaction, error) {
	item, err := l.store.Get(ctx, entity.UserPK(userID), entity.TransactionSK(transactionID))
	if err != nil {
		return entity.Transaction{}, storeErr("transaction", transactionID, err)
	}
	t, err := entity.TransactionFromItem(item)
	if err != nil {
		return entity.Transaction{}, storeErr("transaction", transactionID, err)
	}
	return t, nil
}

// UpdateTransaction applies partial edits. On a completed transaction any
// financial field is rejected with InvalidState before a single store
// write. On a non-completed transaction an amount or type change also
// applies the net balance delta (new effect minus old effect) to the
// account, so a later deletion still inverts exactly. The stored
// account_balance_after snapshot is never recomputed.
func (l *Ledger) UpdateTransaction(ctx context.Context, userID, transactionID string, in UpdateTransactionInput) (entity.Transaction, error) {
	existing, err := l.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return entity.Transaction{}, err
	}
	if existing.IsCompleted() && in.touchesFinancialFields() {
		return entity.Transaction{}, &InvalidStateError{
			Kind: "transaction", ID: transactionID,
			Reason: "financial fields are immutable once completed",
		}
	}

	set := map[string]any{"updated_at": l.now()}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Category != nil {
		set["category"] = string(*in.Category)
	}
	if in.Notes != nil {
		set["notes"] = *in.Notes
	}
	if in.Location != nil {
		set["location"] = *in.Location
	}
	if in.ReferenceNumber != nil {
		set["reference_number"] = *in.ReferenceNumber
	}
	if in.Tags != nil {
		set["tags"] = append([]string{}, (*in.Tags)...)
	}

	newAmount, newType := existing.Amount, existing.Type
	if in.Amount != nil {
		newAmount = entity.Round2(*in.Amount)
		set["amount"] = newAmount
	}
	if in.Type != nil {
		newType = *in.Type
		set["transaction_type"] = string(newType)
	}
	if in.Status != nil {
		set["status"] = string(*in.Status)
	}

	// Re-point the account at the corrected effect before touching the
	// transaction, matching the create path's write order.
	if in.Amount != nil || in.Type != nil {
		oldEffect := balanceEffect(existing.Type, existing.Amount)
		newEffect := balanceEffect(newType, newAmount)
		if net := newEffect.Sub(oldEffect); !net.IsZero() {
			if _, err := l.AdjustBalance(ctx, userID, existing.AccountID, net); err != nil {
				return entity.Transaction{}, err
			}
		}
	}

	// A date edit moves the transaction inside the chronological account
	// index, so the whole item is re-encoded to refresh the index key.
	// Field-level updates leave the index key untouched.
	if in.TransactionDate != nil {
		updated := existing
		updated.TransactionDate = *in.TransactionDate
		updated.Amount = newAmount
		updated.Type = newType
		updated.UpdatedAt = l.now()
		if in.Description != nil {
			updated.Description = *in.Description
		}
		if in.Category != nil {
			updated.Category = *in.Category
		}
		if in.Notes != nil {
			updated.Notes = *in.Notes
		}
		if in.Location != nil {
			updated.Location = *in.Location
		}
		if in.ReferenceNumber != nil {
			updated.ReferenceNumber = *in.ReferenceNumber
		}
		if in.Tags != nil {
			updated.Tags = append([]string{}, (*in.Tags)...)
		}
		if in.Status != nil {
			updated.Status = *in.Status
		}
		if err := l.store.Put(ctx, entity.TransactionToItem(updated), kv.MustExist()); err != nil {
			if errors.Is(err, kv.ErrConditionFailed) {
				return entity.Transaction{}, &NotFoundError{Kind: "transaction", ID: transactionID}
			}
			return entity.Transaction{}, storeErr("transaction", transactionID, err)
		}
		return updated, nil
	}

	item, err := l.store.Update(ctx, entity.UserPK(userID), entity.TransactionSK(transactionID),
		kv.Update{Set: set}, kv.MustExist())
	if err != nil {
		if errors.Is(err, kv.ErrConditionFailed) || errors.Is(err, kv.ErrItemNotFound) {
			return entity.Transaction{}, &NotFoundError{Kind: "transaction", ID: transactionID}
		}
		return entity.Transaction{}, storeErr("transaction", transactionID, err)
	}
	t, err := entity.TransactionFromItem(item)
	if err != nil {
		return entity.Transaction{}, storeErr("transaction", transactionID, err)
	}
	return t, nil
}

// DeleteTransaction reverses the transaction's balance effect with the
// exact inverse delta, then removes the item. The paired transfer leg, if
// any, is left untouched.
func (l *Ledger) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	existing, err := l.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return err
	}

	inverse := balanceEffect(existing.Type, existing.Amount).Neg()
	if _, err := l.AdjustBalance(ctx, userID, existing.AccountID, inverse); err != nil {
		return err
	}

	if err := l.store.Delete(ctx, entity.UserPK(userID), entity.TransactionSK(transactionID), kv.MustExist()); err != nil {
		if errors.Is(err, kv.ErrConditionFailed) || errors.Is(err, kv.ErrItemNotFound) {
			return &NotFoundError{Kind: "transaction", ID: transactionID}
		}
		return storeErr("transaction", transactionID, err)
	}
	return nil
}
