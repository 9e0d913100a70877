/*
accounts.go - Account lifecycle and balance adjustment

PURPOSE:
  Account CRUD plus the one operation everything financial funnels
  through: AdjustBalance, a conditional additive update on
  current_balance. The condition "exists AND is_active" is checked
  atomically by the store at write time, not by a prior read, so a
  concurrent soft delete cannot slip a write onto a dead account.

DISAMBIGUATION:
  A failed condition alone cannot tell "account missing" from "account
  inactive". The engine follows up with a plain Get and maps the answer
  onto NotFound vs InvalidState. The follow-up read is advisory; the
  write itself already failed safely.

SEE ALSO:
  - transactions.go: calls AdjustBalance-equivalent updates per leg
  - cards.go: the card analogue with debt semantics
*/
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/kv"
)

// =============================================================================
// INPUTS AND SUMMARIES
// =============================================================================

type CreateAccountInput struct {
	Name           string
	AccountType    entity.AccountType
	BankName       string
	BankCode       string
	Currency       string
	InitialBalance decimal.Decimal
	Description    string
	Color          string
}

type UpdateAccountInput struct {
	Name        *string
	BankName    *string
	BankCode    *string
	Description *string
	Color       *string
}

type ListAccountsFilter struct {
	Type       entity.AccountType // empty means all types
	ActiveOnly bool
}

// AccountSummary aggregates a list result: counts and the total balance
// per currency across active accounts.
type AccountSummary struct {
	TotalCount        int
	ActiveCount       int
	BalanceByCurrency map[string]decimal.Decimal
}

// =============================================================================
// OPERATIONS
// =============================================================================

func (l *Ledger) CreateAccount(ctx context.Context, userID string, in CreateAccountInput) (entity.Account, error) {
	now := l.now()
	a := entity.Account{
		AccountID:      entity.NewAccountID(),
		UserID:         userID,
		Name:           in.Name,
		AccountType:    in.AccountType,
		BankName:       in.BankName,
		BankCode:       in.BankCode,
		Currency:       in.Currency,
		CurrentBalance: entity.Round2(in.InitialBalance),
		IsActive:       true,
		Description:    in.Description,
		Color:          in.Color,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := l.store.Put(ctx, entity.AccountToItem(a), kv.MustNotExist()); err != nil {
		if errors.Is(err, kv.ErrConditionFailed) {
			return entity.Account{}, &AlreadyExistsError{Kind: "account", Key: a.AccountID}
		}
		return entity.Account{}, storeErr("account", a.AccountID, err)
	}
	return a, nil
}

func (l *Ledger) GetAccount(ctx context.Context, userID, accountID string) (entity.Account, error) {
	item, err := l.store.Get(ctx, entity.UserPK(userID), entity.AccountSK(accountID))
	if err != nil {
		return entity.Account{}, storeErr("account", accountID, err)
	}
	a, err := entity.AccountFromItem(item)
	if err != nil {
		return entity.Account{}, storeErr("account", accountID, err)
	}
	return a, nil
}

// ListAccounts scans the owner's partition for accounts, applies the
// filter, and aggregates per-currency totals over what remains. Totals
// count only active accounts; an inactive account's balance is history,
// not money.
func (l *Ledger) ListAccounts(ctx context.Context, userID string, filter ListAccountsFilter) ([]entity.Account, AccountSummary, error) {
	items, err := l.store.QueryPrefix(ctx, entity.UserPK(userID), entity.AccountPrefix())
	if err != nil {
		return nil, AccountSummary{}, storeErr("account", userID, err)
	}

	all := entity.DecodeAccounts(items)
	summary := AccountSummary{BalanceByCurrency: map[string]decimal.Decimal{}}
	var out []entity.Account
	for _, a := range all {
		if filter.Type != "" && a.AccountType != filter.Type {
			continue
		}
		if filter.ActiveOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
		summary.TotalCount++
		if a.IsActive {
			summary.ActiveCount++
			summary.BalanceByCurrency[a.Currency] =
				summary.BalanceByCurrency[a.Currency].Add(a.CurrentBalance)
		}
	}
	for cur, total := range summary.BalanceByCurrency {
		summary.BalanceByCurrency[cur] = entity.Round2(total)
	}
	return out, summary, nil
}

// UpdateAccount applies partial descriptive edits. current_balance is not
// reachable through this path; balances move only via additive deltas.
func (l *Ledger) UpdateAccount(ctx context.Context, userID, accountID string, in UpdateAccountInput) (entity.Account, error) {
	set := map[string]any{"updated_at": l.now()}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.BankName != nil {
		set["bank_name"] = *in.BankName
	}
	if in.BankCode != nil {
		set["bank_code"] = *in.BankCode
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Color != nil {
		set["color"] = *in.Color
	}

	item, err := l.store.Update(ctx, entity.UserPK(userID), entity.AccountSK(accountID),
		kv.Update{Set: set}, kv.MustExist())
	if err != nil {
		if errors.Is(err, kv.ErrConditionFailed) || errors.Is(err, kv.ErrItemNotFound) {
			return entity.Account{}, &NotFoundError{Kind: "account", ID: accountID}
		}
		return entity.Account{}, storeErr("account", accountID, err)
	}
	a, err := entity.AccountFromItem(item)
	if err != nil {
		return entity.Account{}, storeErr("account", accountID, err)
	}
	return a, nil
}

// DeactivateAccount soft-deletes an account. Its transactions remain
// readable; new financial activity is rejected by the is_active condition
// on every balance write.
func (l *Ledger) DeactivateAccount(ctx context.Context, userID, accountID string) error {
	_, err := l.store.Update(ctx, entity.UserPK(userID), entity.AccountSK(accountID),
		kv.Update{Set: map[string]any{"is_active": false, "updated_at": l.now()}},
		kv.MustExist())
	if err != nil {
		if errors.Is(err, kv.ErrConditionFailed) || errors.Is(err, kv.ErrItemNotFound) {
			return &NotFoundError{Kind: "account", ID: accountID}
		}
		return storeErr("account", accountID, err)
	}
	return nil
}

// AdjustBalance applies a signed delta to an account's balance. The write
// carries the "exists AND is_active" condition; on rejection a follow-up
// read decides between NotFound and InvalidState.
func (l *Ledger) AdjustBalance(ctx context.Context, userID, accountID string, delta decimal.Decimal) (entity.Account, error) {
	item, err := l.store.Update(ctx, entity.UserPK(userID), entity.AccountSK(accountID),
		kv.Update{
			Add: map[string]decimal.Decimal{"current_balance": delta},
			Set: map[string]any{"updated_at": l.now()},
		},
		kv.MustExistWith(map[string]any{"is_active": true}))
	if err != nil {
		return entity.Account{}, l.classifyBalanceFailure(ctx, userID, accountID, err)
	}
	a, err := entity.AccountFromItem(item)
	if err != nil {
		return entity.Account{}, storeErr("account", accountID, err)
	}
	return a, nil
}

func (l *Ledger) classifyBalanceFailure(ctx context.Context, userID, accountID string, err error) error {
	if !errors.Is(err, kv.ErrConditionFailed) && !errors.Is(err, kv.ErrItemNotFound) {
		return storeErr("account", accountID, err)
	}
	a, getErr := l.GetAccount(ctx, userID, accountID)
	if getErr != nil {
		return &NotFoundError{Kind: "account", ID: accountID}
	}
	if !a.IsActive {
		return &InvalidStateError{Kind: "account", ID: accountID, Reason: "account is inactive"}
	}
	// Present and active now; the condition failed against a state we can
	// no longer observe.
	return storeErr("account", accountID, err)
}
