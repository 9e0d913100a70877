/*
codec.go - Entity <-> item mapping for the single-table store

PURPOSE:
  One toItem/fromItem pair per entity kind. Encoding assigns partition,
  sort, and index keys deterministically from entity fields; decoding is
  defensive: an item with the wrong entity_type discriminator is rejected,
  and an item missing a required field is dropped by the list helpers
  rather than propagated. A malformed stored record must never crash a
  list operation.

KEY LAYOUT:
  User         pk USER#{user_id}   sk METADATA
               gsi1 EMAIL#{email} -> USER#{user_id}
  Account      pk USER#{user_id}   sk ACCOUNT#{account_id}
               gsi1 ACCOUNT#{account_id} -> USER#{user_id}
  Card         pk USER#{user_id}   sk CARD#{card_id}
               gsi1 CARD#{card_id} -> USER#{user_id}
  Transaction  pk USER#{user_id}   sk TRANSACTION#{transaction_id}
               gsi1 ACCOUNT#{account_id} -> TRANSACTION#{date}#{txn_id}

  The transaction index sort key embeds the transaction date, so a single
  index query yields a chronological per-account scan.

SEE ALSO:
  - types.go: the domain structs
  - kv/kv.go: the Item representation
*/
package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/kv"
)

// ErrMalformedItem marks an item that failed to decode into its entity.
// List paths drop these; single-get paths surface the error.
var ErrMalformedItem = errors.New("entity: malformed item")

// =============================================================================
// KEY BUILDERS
// =============================================================================

const SortKeyMetadata = "METADATA"

func UserPK(userID string) string          { return "USER#" + userID }
func EmailKey(email string) string         { return "EMAIL#" + email }
func AccountSK(accountID string) string    { return "ACCOUNT#" + accountID }
func AccountKey(accountID string) string   { return "ACCOUNT#" + accountID }
func CardSK(cardID string) string          { return "CARD#" + cardID }
func CardKey(cardID string) string         { return "CARD#" + cardID }
func TransactionSK(txnID string) string    { return "TRANSACTION#" + txnID }
func TransactionPrefix() string            { return "TRANSACTION#" }
func AccountPrefix() string                { return "ACCOUNT#" }
func CardPrefix() string                   { return "CARD#" }

// TransactionIndexSK builds the index sort component that makes per-account
// scans chronological: TRANSACTION#{date}#{txn_id}.
func TransactionIndexSK(date, txnID string) string {
	return "TRANSACTION#" + date + "#" + txnID
}

// =============================================================================
// USER CODEC
// =============================================================================

func UserToItem(u User) kv.Item {
	return kv.Item{
		PK:         UserPK(u.UserID),
		SK:         SortKeyMetadata,
		GSI1PK:     EmailKey(u.Email),
		GSI1SK:     UserPK(u.UserID),
		EntityType: TypeUser,
		Attrs: map[string]any{
			"user_id":               u.UserID,
			"email":                 u.Email,
			"name":                  u.Name,
			"currency":              u.Currency,
			"password_hash":         u.PasswordHash,
			"is_active":             u.IsActive,
			"failed_login_attempts": decimal.NewFromInt(int64(u.FailedLoginAttempts)),
			"last_login_at":         u.LastLoginAt,
			"created_at":            u.CreatedAt,
			"updated_at":            u.UpdatedAt,
		},
	}
}

func UserFromItem(item kv.Item) (User, error) {
	if item.EntityType != TypeUser {
		return User{}, discriminatorErr(TypeUser, item)
	}
	d := newDecoder(item.Attrs)
	u := User{
		UserID:              d.requireString("user_id"),
		Email:               d.requireString("email"),
		Name:                d.requireString("name"),
		Currency:            d.requireString("currency"),
		PasswordHash:        d.optString("password_hash"),
		IsActive:            d.optBool("is_active"),
		FailedLoginAttempts: d.optInt("failed_login_attempts"),
		LastLoginAt:         d.optString("last_login_at"),
		CreatedAt:           d.requireString("created_at"),
		UpdatedAt:           d.requireString("updated_at"),
	}
	if err := d.err(); err != nil {
		return User{}, err
	}
	return u, nil
}

// =============================================================================
// ACCOUNT CODEC
// =============================================================================

func AccountToItem(a Account) kv.Item {
	return kv.Item{
		PK:         UserPK(a.UserID),
		SK:         AccountSK(a.AccountID),
		GSI1PK:     AccountKey(a.AccountID),
		GSI1SK:     UserPK(a.UserID),
		EntityType: TypeAccount,
		Attrs: map[string]any{
			"account_id":      a.AccountID,
			"user_id":         a.UserID,
			"name":            a.Name,
			"account_type":    string(a.AccountType),
			"bank_name":       a.BankName,
			"bank_code":       a.BankCode,
			"currency":        a.Currency,
			"current_balance": Round2(a.CurrentBalance),
			"is_active":       a.IsActive,
			"description":     a.Description,
			"color":           a.Color,
			"created_at":      a.CreatedAt,
			"updated_at":      a.UpdatedAt,
		},
	}
}

func AccountFromItem(item kv.Item) (Account, error) {
	if item.EntityType != TypeAccount {
		return Account{}, discriminatorErr(TypeAccount, item)
	}
	d := newDecoder(item.Attrs)
	a := Account{
		AccountID:      d.requireString("account_id"),
		UserID:         d.requireString("user_id"),
		Name:           d.requireString("name"),
		AccountType:    AccountType(d.requireString("account_type")),
		BankName:       d.requireString("bank_name"),
		BankCode:       d.optString("bank_code"),
		Currency:       d.requireString("currency"),
		CurrentBalance: d.requireDecimal("current_balance"),
		IsActive:       d.optBool("is_active"),
		Description:    d.optString("description"),
		Color:          d.optString("color"),
		CreatedAt:      d.requireString("created_at"),
		UpdatedAt:      d.requireString("updated_at"),
	}
	if err := d.err(); err != nil {
		return Account{}, err
	}
	return a, nil
}

// =============================================================================
// CARD CODEC
// =============================================================================

func CardToItem(c Card) kv.Item {
	attrs := map[string]any{
		"card_id":         c.CardID,
		"user_id":         c.UserID,
		"name":            c.Name,
		"card_type":       string(c.CardType),
		"card_network":    string(c.CardNetwork),
		"bank_name":       c.BankName,
		"current_balance": Round2(c.CurrentBalance),
		"rewards_program": c.RewardsProgram,
		"currency":        c.Currency,
		"color":           c.Color,
		"description":     c.Description,
		"status":          string(c.Status),
		"created_at":      c.CreatedAt,
		"updated_at":      c.UpdatedAt,
	}
	putOptDecimal(attrs, "credit_limit", c.CreditLimit)
	putOptDecimal(attrs, "minimum_payment", c.MinimumPayment)
	putOptDecimal(attrs, "apr", c.APR)
	putOptDecimal(attrs, "annual_fee", c.AnnualFee)
	if c.PaymentDueDate > 0 {
		attrs["payment_due_date"] = decimal.NewFromInt(int64(c.PaymentDueDate))
	}
	if c.CutOffDate > 0 {
		attrs["cut_off_date"] = decimal.NewFromInt(int64(c.CutOffDate))
	}
	return kv.Item{
		PK:         UserPK(c.UserID),
		SK:         CardSK(c.CardID),
		GSI1PK:     CardKey(c.CardID),
		GSI1SK:     UserPK(c.UserID),
		EntityType: TypeCard,
		Attrs:      attrs,
	}
}

func CardFromItem(item kv.Item) (Card, error) {
	if item.EntityType != TypeCard {
		return Card{}, discriminatorErr(TypeCard, item)
	}
	d := newDecoder(item.Attrs)
	c := Card{
		CardID:         d.requireString("card_id"),
		UserID:         d.requireString("user_id"),
		Name:           d.requireString("name"),
		CardType:       CardType(d.requireString("card_type")),
		CardNetwork:    CardNetwork(d.requireString("card_network")),
		BankName:       d.requireString("bank_name"),
		CreditLimit:    d.optDecimalPtr("credit_limit"),
		CurrentBalance: d.requireDecimal("current_balance"),
		MinimumPayment: d.optDecimalPtr("minimum_payment"),
		PaymentDueDate: d.optInt("payment_due_date"),
		CutOffDate:     d.optInt("cut_off_date"),
		APR:            d.optDecimalPtr("apr"),
		AnnualFee:      d.optDecimalPtr("annual_fee"),
		RewardsProgram: d.optString("rewards_program"),
		Currency:       d.requireString("currency"),
		Color:          d.optString("color"),
		Description:    d.optString("description"),
		Status:         CardStatus(d.requireString("status")),
		CreatedAt:      d.requireString("created_at"),
		UpdatedAt:      d.requireString("updated_at"),
	}
	if err := d.err(); err != nil {
		return Card{}, err
	}
	return c, nil
}

// =============================================================================
// TRANSACTION CODEC
// =============================================================================

func TransactionToItem(t Transaction) kv.Item {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return kv.Item{
		PK:         UserPK(t.UserID),
		SK:         TransactionSK(t.TransactionID),
		GSI1PK:     AccountKey(t.AccountID),
		GSI1SK:     TransactionIndexSK(t.TransactionDate, t.TransactionID),
		EntityType: TypeTransaction,
		Attrs: map[string]any{
			"transaction_id":           t.TransactionID,
			"user_id":                  t.UserID,
			"account_id":               t.AccountID,
			"account_name":             t.AccountName,
			"amount":                   Round2(t.Amount),
			"description":              t.Description,
			"transaction_type":         string(t.Type),
			"category":                 string(t.Category),
			"status":                   string(t.Status),
			"transaction_date":         t.TransactionDate,
			"reference_number":         t.ReferenceNumber,
			"notes":                    t.Notes,
			"location":                 t.Location,
			"tags":                     tags,
			"destination_account_id":   t.DestinationAccountID,
			"destination_account_name": t.DestinationAccountName,
			"account_balance_after":    Round2(t.AccountBalanceAfter),
			"is_recurring":             t.IsRecurring,
			"recurring_frequency":      string(t.RecurringFrequency),
			"created_at":               t.CreatedAt,
			"updated_at":               t.UpdatedAt,
		},
	}
}

func TransactionFromItem(item kv.Item) (Transaction, error) {
	if item.EntityType != TypeTransaction {
		return Transaction{}, discriminatorErr(TypeTransaction, item)
	}
	d := newDecoder(item.Attrs)
	t := Transaction{
		TransactionID:          d.requireString("transaction_id"),
		UserID:                 d.requireString("user_id"),
		AccountID:              d.requireString("account_id"),
		AccountName:            d.optString("account_name"),
		Amount:                 d.requireDecimal("amount"),
		Description:            d.requireString("description"),
		Type:                   TransactionType(d.requireString("transaction_type")),
		Category:               Category(d.requireString("category")),
		Status:                 TransactionStatus(d.requireString("status")),
		TransactionDate:        d.requireString("transaction_date"),
		ReferenceNumber:        d.optString("reference_number"),
		Notes:                  d.optString("notes"),
		Location:               d.optString("location"),
		Tags:                   d.optStrings("tags"),
		DestinationAccountID:   d.optString("destination_account_id"),
		DestinationAccountName: d.optString("destination_account_name"),
		AccountBalanceAfter:    d.requireDecimal("account_balance_after"),
		IsRecurring:            d.optBool("is_recurring"),
		RecurringFrequency:     RecurringFrequency(d.optString("recurring_frequency")),
		CreatedAt:              d.requireString("created_at"),
		UpdatedAt:              d.requireString("updated_at"),
	}
	if err := d.err(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// =============================================================================
// LIST DECODING - Drop, don't crash
// =============================================================================

// DecodeAccounts filters a scan result down to well-formed accounts.
// Items of other entity kinds and malformed account items are skipped.
func DecodeAccounts(items []kv.Item) []Account {
	var out []Account
	for _, item := range items {
		if item.EntityType != TypeAccount {
			continue
		}
		if a, err := AccountFromItem(item); err == nil {
			out = append(out, a)
		}
	}
	return out
}

func DecodeCards(items []kv.Item) []Card {
	var out []Card
	for _, item := range items {
		if item.EntityType != TypeCard {
			continue
		}
		if c, err := CardFromItem(item); err == nil {
			out = append(out, c)
		}
	}
	return out
}

func DecodeTransactions(items []kv.Item) []Transaction {
	var out []Transaction
	for _, item := range items {
		if item.EntityType != TypeTransaction {
			continue
		}
		if t, err := TransactionFromItem(item); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// =============================================================================
// ATTRIBUTE DECODER
// =============================================================================

// decoder accumulates missing-field errors so each fromItem reads as a flat
// field list. Values are coerced leniently: numbers may arrive as decimals,
// JSON strings, or floats depending on the backend.
type decoder struct {
	attrs   map[string]any
	missing []string
}

func newDecoder(attrs map[string]any) *decoder {
	return &decoder{attrs: attrs}
}

func (d *decoder) err() error {
	if len(d.missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing or invalid fields %v", ErrMalformedItem, d.missing)
}

func (d *decoder) requireString(key string) string {
	s, ok := d.attrs[key].(string)
	if !ok || s == "" {
		d.missing = append(d.missing, key)
		return ""
	}
	return s
}

func (d *decoder) optString(key string) string {
	s, _ := d.attrs[key].(string)
	return s
}

func (d *decoder) requireDecimal(key string) decimal.Decimal {
	v, ok := d.attrs[key]
	if !ok {
		d.missing = append(d.missing, key)
		return decimal.Zero
	}
	n, ok := kv.AsDecimal(v)
	if !ok {
		d.missing = append(d.missing, key)
		return decimal.Zero
	}
	return n
}

func (d *decoder) optDecimalPtr(key string) *decimal.Decimal {
	v, ok := d.attrs[key]
	if !ok || v == nil {
		return nil
	}
	n, ok := kv.AsDecimal(v)
	if !ok {
		return nil
	}
	return &n
}

func (d *decoder) optInt(key string) int {
	n, ok := kv.AsDecimal(d.attrs[key])
	if !ok {
		return 0
	}
	return int(n.IntPart())
}

func (d *decoder) optBool(key string) bool {
	b, _ := d.attrs[key].(bool)
	return b
}

func (d *decoder) optStrings(key string) []string {
	switch v := d.attrs[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func putOptDecimal(attrs map[string]any, key string, v *decimal.Decimal) {
	if v != nil {
		attrs[key] = Round2(*v)
	}
}

func discriminatorErr(want string, item kv.Item) error {
	return fmt.Errorf("%w: entity_type %q, want %q (pk=%s sk=%s)",
		ErrMalformedItem, item.EntityType, want, item.PK, item.SK)
}
