/*
Package query is the read-only analytics layer over the transaction log.

PURPOSE:
  Listing with filters, stable sorting, in-memory pagination, and running
  totals. Data is fetched in one store call (account index when the filter
  names an account, owner-prefix scan otherwise); everything after that is
  pure in-memory work over the decoded transactions. Pagination therefore
  scales with total matching rows, not page size.

FILTER ORDER:
  type, category, status, inclusive ISO date range (string comparison),
  inclusive absolute-amount range, case-insensitive substring search over
  description/notes/reference_number, tag intersection (OR semantics).

TOTALS:
  Income and expense classification follows the same type-based sign rule
  the ledger applies to balances, so a positive-amount expense counts as
  an expense, not income.

SEE ALSO:
  - summary.go: period-based aggregation built on List
  - ledger/: the writer of everything this package reads
*/
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/kv"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service reads transactions. It never writes.
type Service struct {
	store kv.Store

	// now is injectable for tests; drives period resolution.
	now func() time.Time
}

func New(store kv.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides time for period resolution. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// =============================================================================
// FILTER AND SORT
// =============================================================================

type SortField string

const (
	SortByDate        SortField = "date"
	SortByAmount      SortField = "amount" // absolute value
	SortByDescription SortField = "description"
	SortByCreatedAt   SortField = "created_at"
)

// Filter narrows and orders a transaction list. Zero values mean "no
// constraint". Amount bounds compare against |amount|, so [50, 200]
// matches both a -100 expense and a +150 income.
type Filter struct {
	AccountID string
	Type      entity.TransactionType
	Category  entity.Category
	Status    entity.TransactionStatus

	DateFrom string // inclusive, ISO-8601
	DateTo   string // inclusive, ISO-8601

	AmountMin *decimal.Decimal
	AmountMax *decimal.Decimal

	SearchTerm string
	Tags       []string

	SortBy   SortField // defaults to date
	SortDesc bool

	Page    int // 1-based; defaults to 1
	PerPage int // defaults to 50
}

// Result is one page of a filtered list plus totals over the FULL
// filtered set, not just the page.
type Result struct {
	Transactions []entity.Transaction
	TotalCount   int
	Page         int
	PerPage      int

	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetAmount     decimal.Decimal
}

// List fetches, filters, sorts, and paginates the owner's transactions.
func (s *Service) List(ctx context.Context, userID string, f Filter) (Result, error) {
	txns, err := s.fetch(ctx, userID, f.AccountID)
	if err != nil {
		return Result{}, err
	}

	filtered := applyFilters(txns, f)
	sortTransactions(filtered, f.SortBy, f.SortDesc)

	res := Result{TotalCount: len(filtered)}
	for _, t := range filtered {
		effect := t.BalanceEffect()
		if effect.IsPositive() {
			res.TotalIncome = res.TotalIncome.Add(effect)
		} else {
			res.TotalExpenses = res.TotalExpenses.Add(effect.Abs())
		}
	}
	res.TotalIncome = entity.Round2(res.TotalIncome)
	res.TotalExpenses = entity.Round2(res.TotalExpenses)
	res.NetAmount = entity.Round2(res.TotalIncome.Sub(res.TotalExpenses))

	res.Page, res.PerPage = f.Page, f.PerPage
	if res.Page < 1 {
		res.Page = 1
	}
	if res.PerPage < 1 {
		res.PerPage = 50
	}
	start := (res.Page - 1) * res.PerPage
	if start >= len(filtered) {
		res.Transactions = []entity.Transaction{}
		return res, nil
	}
	end := start + res.PerPage
	if end > len(filtered) {
		end = len(filtered)
	}
	res.Transactions = filtered[start:end]
	return res, nil
}

// fetch picks the cheapest access path: a single index query when the
// filter names an account, a full owner-prefix scan otherwise. Either way
// the decode drops malformed and foreign-owned items.
func (s *Service) fetch(ctx context.Context, userID, accountID string) ([]entity.Transaction, error) {
	var items []kv.Item
	var err error
	if accountID != "" {
		items, err = s.store.QueryIndex(ctx, kv.GSI1, entity.AccountKey(accountID))
	} else {
		items, err = s.store.QueryPrefix(ctx, entity.UserPK(userID), entity.TransactionPrefix())
	}
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	var out []entity.Transaction
	for _, t := range entity.DecodeTransactions(items) {
		if t.UserID != userID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func applyFilters(txns []entity.Transaction, f Filter) []entity.Transaction {
	out := make([]entity.Transaction, 0, len(txns))
	search := strings.ToLower(f.SearchTerm)
	for _, t := range txns {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.DateFrom != "" && t.TransactionDate < f.DateFrom {
			continue
		}
		if f.DateTo != "" && t.TransactionDate > f.DateTo {
			continue
		}
		abs := t.Amount.Abs()
		if f.AmountMin != nil && abs.LessThan(*f.AmountMin) {
			continue
		}
		if f.AmountMax != nil && abs.GreaterThan(*f.AmountMax) {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		if len(f.Tags) > 0 && !hasAnyTag(t.Tags, f.Tags) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesSearch(t entity.Transaction, lowered string) bool {
	return strings.Contains(strings.ToLower(t.Description), lowered) ||
		strings.Contains(strings.ToLower(t.Notes), lowered) ||
		strings.Contains(strings.ToLower(t.ReferenceNumber), lowered)
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// sortTransactions orders in place. The sort is stable, so equal keys keep
// their fetch order and repeated application is idempotent.
func sortTransactions(txns []entity.Transaction, by SortField, desc bool) {
	var less func(a, b entity.Transaction) bool
	switch by {
	case SortByAmount:
		less = func(a, b entity.Transaction) bool {
			return a.Amount.Abs().LessThan(b.Amount.Abs())
		}
	case SortByDescription:
		less = func(a, b entity.Transaction) bool {
			return strings.ToLower(a.Description) < strings.ToLower(b.Description)
		}
	case SortByCreatedAt:
		less = func(a, b entity.Transaction) bool {
			return a.CreatedAt < b.CreatedAt
		}
	default: // SortByDate
		less = func(a, b entity.Transaction) bool {
			return a.TransactionDate < b.TransactionDate
		}
	}
	sort.SliceStable(txns, func(i, j int) bool {
		if desc {
			return less(txns[j], txns[i])
		}
		return less(txns[i], txns[j])
	})
}
