/*
cards.go - Card lifecycle, debt movements, payments

PURPOSE:
  Cards mirror accounts with inverted balance semantics: current_balance
  is DEBT. Purchases, fees, and interest raise it; payments, cashback,
  and refunds lower it. Derived values (available_credit, days until the
  payment due date) are computed on read, never stored.

SOFT DELETE:
  Deleting a card sets status to "inactive", a value deliberately outside
  the creation enum so a deleted card can never be confused with any
  state a client can request.

SEE ALSO:
  - entity/types.go: Card, derived-value methods
  - accounts.go: the account analogue
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
// CARD MOVEMENT KINDS
// =============================================================================

// CardMovement classifies a card balance change.
type CardMovement string

const (
	CardPurchase CardMovement = "purchase"
	CardFee      CardMovement = "fee"
	CardInterest CardMovement = "interest"
	CardPayment  CardMovement = "payment"
	CardCashback CardMovement = "cashback"
	CardRefund   CardMovement = "refund"
)

// debtDelta maps a movement to its signed effect on the card's debt.
func debtDelta(kind CardMovement, amount decimal.Decimal) (decimal.Decimal, error) {
	abs := amount.Abs()
	switch kind {
	case CardPurchase, CardFee, CardInterest:
		return abs, nil
	case CardPayment, CardCashback, CardRefund:
		return abs.Neg(), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown card movement %q", ErrPreconditionFailed, kind)
	}
}

// =============================================================================
// INPUTS AND SUMMARIES
// =============================================================================

type CreateCardInput struct {
	Name           string
	CardType       entity.CardType
	CardNetwork    entity.CardNetwork
	BankName       string
	CreditLimit    *decimal.Decimal
	InitialBalance decimal.Decimal
	MinimumPayment *decimal.Decimal
	PaymentDueDate int
	CutOffDate     int
	APR            *decimal.Decimal
	AnnualFee      *decimal.Decimal
	RewardsProgram string
	Currency       string
	Color          string
	Description    string
}

type UpdateCardInput struct {
	Name           *string
	BankName       *string
	CreditLimit    *decimal.Decimal
	MinimumPayment *decimal.Decimal
	PaymentDueDate *int
	CutOffDate     *int
	APR            *decimal.Decimal
	AnnualFee      *decimal.Decimal
	RewardsProgram *string
	Color          *string
	Description    *string
	Status         *entity.CardStatus
}

type ListCardsFilter struct {
	Type       entity.CardType
	ActiveOnly bool
}

// CardSummary aggregates a list result: counts, total debt, and total
// available credit per currency across active cards.
type CardSummary struct {
	TotalCount          int
	ActiveCount         int
	DebtByCurrency      map[string]decimal.Decimal
	AvailableByCurrency map[string]decimal.Decimal
}

// =============================================================================
// OPERATIONS
// =============================================================================

func (l *Ledger) CreateCard(ctx context.Context, userID string, in CreateCardInput) (entity.Card, error) {
	now := l.now()
	c := entity.Card{
		CardID:         entity.NewCardID(),
		UserID:         userID,
		Name:           in.Name,
		CardType:       in.CardType,
		CardNetwork:    in.CardNetwork,
		BankName:       in.BankName,
		CreditLimit:    in.CreditLimit,
		CurrentBalance: entity.Round2(in.InitialBalance),
		MinimumPayment: in.MinimumPayment,
		PaymentDueDate: in.PaymentDueDate,
		CutOffDate:     in.CutOffDate,
		APR:            in.APR,
		AnnualFee:      in.AnnualFee,
		RewardsProgram: in.RewardsProgram,
		Currency:       in.Currency,
		Color:          in.Color,
		Description:    in.Description,
		Status:         entity.CardActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := l.store.Put(ctx, entity.CardToItem(c), kv.MustNotExist()); err != nil {
		if errors.Is(err, kv.ErrConditionFailed) {
			return entity.Card{}, &AlreadyExistsError{Kind: "card", Key: c.CardID}
		}
		return entity.Card{}, storeErr("card", c.CardID, err)
	}
	return c, nil
}

func (l *Ledger) GetCard(ctx context.Context, userID, cardID string) (entity.Card, error) {
	item, err := l.store.Get(ctx, entity.UserPK(userID), entity.CardSK(cardID))
	if err != nil {
		return entity.Card{}, storeErr("card", cardID, err)
	}
	c, err := entity.CardFromItem(item)
	if err != nil {
		return entity.Card{}, storeErr("card", cardID, err)
	}
	return c, nil
}

func (l *Ledger) ListCards(ctx context.Context, userID string, filter ListCardsFilter) ([]entity.Card, CardSummary, error) {
	items, err := l.store.QueryPrefix(ctx, entity.UserPK(userID), entity.CardPrefix())
	if err != nil {
		return nil, CardSummary{}, storeErr("card", userID, err)
	}

	summary := CardSummary{
		DebtByCurrency:      map[string]decimal.Decimal{},
		AvailableByCurrency: map[string]decimal.Decimal{},
	}
	var out []entity.Card
	for _, c := range entity.DecodeCards(items) {
		if filter.Type != "" && c.CardType != filter.Type {
			continue
		}
		if filter.ActiveOnly && c.Status != entity.CardActive {
			continue
		}
		out = append(out, c)
		summary.TotalCount++
		if c.Status != entity.CardActive {
			continue
		}
		summary.ActiveCount++
		summary.DebtByCurrency[c.Currency] =
			summary.DebtByCurrency[c.Currency].Add(c.CurrentBalance)
		if avail := c.AvailableCredit(); avail != nil {
			summary.AvailableByCurrency[c.Currency] =
				summary.AvailableByCurrency[c.Currency].Add(*avail)
		}
	}
	for cur, v := range summary.DebtByCurrency {
		summary.DebtByCurrency[cur] = entity.Round2(v)
	}
	for cur, v := range summary.AvailableByCurrency {
		summary.AvailableByCurrency[cur] = entity.Round2(v)
	}
	return out, summary, nil
}

func (l *Ledger) UpdateCard(ctx context.Context, userID, cardID string, in UpdateCardInput) (entity.Card, error) {
	set := map[string]any{"updated_at": l.now()}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.BankName != nil {
		set["bank_name"] = *in.BankName
	}
	if in.CreditLimit != nil {
		set["credit_limit"] = entity.Round2(*in.CreditLimit)
	}
	if in.MinimumPayment != nil {
		set["minimum_payment"] = entity.Round2(*in.MinimumPayment)
	}
	if in.PaymentDueDate != nil {
		set["payment_due_date"] = decimal.NewFromInt(int64(*in.PaymentDueDate))
	}
	if in.CutOffDate != nil {
		set["cut_off_date"] = decimal.NewFromInt(int64(*in.CutOffDate))
	}
	if in.APR != nil {
		set["apr"] = entity.Round2(*in.APR)
	}
	if in.AnnualFee != nil {
		set["annual_fee"] = entity.Round2(*in.AnnualFee)
	}
	if in.RewardsProgram != nil {
		set["rewards_program"] = *in.RewardsProgram
	}
	if in.Color != nil {
		set["color"] = *in.Color
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Status != nil {
		set["status"] = string(*in.Status)
	}

	item, err := l.store.Update(ctx, entity.UserPK(userID), entity.CardSK(cardID),
		kv.Update{Set: set}, kv.MustExist())
	if err != nil {
		if errors.Is(err, kv.ErrConditionFailed) || errors.Is(err, kv.ErrItemNotFound) {
			return entity.Card{}, &NotFoundError{Kind: "card", ID: cardID}
		}
		return entity.Card{}, storeErr("card", cardID, err)
	}
	c, err := entity.CardFromItem(item)
	if err != nil {
		return entity.Card{}, storeErr("card", cardID, err)
	}
	return c, nil
}

// DeactivateCard soft-deletes a card by setting status to "inactive".
func (l *Ledger) DeactivateCard(ctx context.Context, userID, cardID string) error {
	_, err := l.store.Update(ctx, entity.UserPK(userID), entity.CardSK(cardID),
		kv.Update{Set: map[string]any{
			"status":     string(entity.CardInactive),
			"updated_at": l.now(),
		}},
		kv.MustExist())
	if err != nil {
		if errors.Is(err, kv.ErrConditionFailed) || errors.Is(err, kv.ErrItemNotFound) {
			return &NotFoundError{Kind: "card", ID: cardID}
		}
		return storeErr("card", cardID, err)
	}
	return nil
}

// RecordCardMovement applies a classified movement to the card's debt.
// The write requires the card to exist with status "active"; rejection is
// disambiguated into NotFound vs InvalidState by a follow-up read.
func (l *Ledger) RecordCardMovement(ctx context.Context, userID, cardID string, kind CardMovement, amount decimal.Decimal) (entity.Card, error) {
	delta, err := debtDelta(kind, amount)
	if err != nil {
		return entity.Card{}, err
	}

	item, err := l.store.Update(ctx, entity.UserPK(userID), entity.CardSK(cardID),
		kv.Update{
			Add: map[string]decimal.Decimal{"current_balance": entity.Round2(delta)},
			Set: map[string]any{"updated_at": l.now()},
		},
		kv.MustExistWith(map[string]any{"status": string(entity.CardActive)}))
	if err != nil {
		return entity.Card{}, l.classifyCardFailure(ctx, userID, cardID, err)
	}
	c, err := entity.CardFromItem(item)
	if err != nil {
		return entity.Card{}, storeErr("card", cardID, err)
	}
	return c, nil
}

// RecordCardPayment lowers the card's debt by |amount|.
func (l *Ledger) RecordCardPayment(ctx context.Context, userID, cardID string, amount decimal.Decimal) (entity.Card, error) {
	return l.RecordCardMovement(ctx, userID, cardID, CardPayment, amount)
}

func (l *Ledger) classifyCardFailure(ctx context.Context, userID, cardID string, err error) error {
	if !errors.Is(err, kv.ErrConditionFailed) && !errors.Is(err, kv.ErrItemNotFound) {
		return storeErr("card", cardID, err)
	}
	c, getErr := l.GetCard(ctx, userID, cardID)
	if getErr != nil {
		return &NotFoundError{Kind: "card", ID: cardID}
	}
	if c.Status != entity.CardActive {
		return &InvalidStateError{
			Kind: "card", ID: cardID,
			Reason: fmt.Sprintf("card status is %s", c.Status),
		}
	}
	return storeErr("card", cardID, err)
}
