/*
summary.go - Period-based aggregation

PURPOSE:
  Resolves a named period to a date range, reuses List, and rolls the
  result up into totals, per-category breakdowns, per-account activity,
  and top-5 category rankings. Every monetary output is rounded to 2
  decimals.

PERIODS:
  current_month  first of the month through today, labeled YYYY-MM
  last_30_days   a sliding 30-day window ending today
  current_year   January 1 through today, labeled YYYY
  last_year      the full previous calendar year
  custom         caller-supplied inclusive date range

SEE ALSO:
  - query.go: List, the fetch-filter-sort pipeline this builds on
*/
package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/entity"
)

// =============================================================================
// PERIODS
// =============================================================================

type Period string

const (
	PeriodCurrentMonth Period = "current_month"
	PeriodLast30Days   Period = "last_30_days"
	PeriodCurrentYear  Period = "current_year"
	PeriodLastYear     Period = "last_year"
	PeriodCustom       Period = "custom"
)

// SummaryRequest selects the period and optionally narrows to one account.
// From/To are required only for PeriodCustom.
type SummaryRequest struct {
	Period    Period
	From      string // inclusive, ISO-8601 date
	To        string // inclusive, ISO-8601 date
	AccountID string
}

// ErrCustomRangeRequired is returned when a custom period lacks bounds.
var ErrCustomRangeRequired = fmt.Errorf("query: custom period requires from and to dates")

const dateLayout = "2006-01-02"

// resolvePeriod turns a named period into an inclusive date range plus a
// display label.
func (s *Service) resolvePeriod(req SummaryRequest) (from, to, label string, err error) {
	now := s.now().UTC()
	today := now.Format(dateLayout)
	switch req.Period {
	case PeriodCurrentMonth, "":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.Format(dateLayout), today, now.Format("2006-01"), nil
	case PeriodLast30Days:
		return now.AddDate(0, 0, -30).Format(dateLayout), today, string(PeriodLast30Days), nil
	case PeriodCurrentYear:
		first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return first.Format(dateLayout), today, fmt.Sprintf("%d", now.Year()), nil
	case PeriodLastYear:
		year := now.Year() - 1
		first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		last := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
		return first.Format(dateLayout), last.Format(dateLayout), fmt.Sprintf("%d", year), nil
	case PeriodCustom:
		if req.From == "" || req.To == "" {
			return "", "", "", ErrCustomRangeRequired
		}
		return req.From, req.To, string(PeriodCustom), nil
	default:
		return "", "", "", fmt.Errorf("query: unknown period %q", req.Period)
	}
}

// =============================================================================
// SUMMARY
// =============================================================================

// CategoryAmount is one entry of a top-categories ranking.
type CategoryAmount struct {
	Category entity.Category
	Amount   decimal.Decimal
}

// AccountActivity aggregates one account's movements inside the period.
type AccountActivity struct {
	AccountName      string
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	NetAmount        decimal.Decimal
	TransactionCount int
}

type Summary struct {
	Period           string
	DateFrom         string
	DateTo           string
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	NetAmount        decimal.Decimal
	TransactionCount int

	IncomeByCategory   map[entity.Category]decimal.Decimal
	ExpensesByCategory map[entity.Category]decimal.Decimal
	ActivityByAccount  map[string]AccountActivity

	TopIncomeCategories  []CategoryAmount
	TopExpenseCategories []CategoryAmount
}

// Summarize aggregates the owner's transactions over the requested period.
func (s *Service) Summarize(ctx context.Context, userID string, req SummaryRequest) (Summary, error) {
	from, to, label, err := s.resolvePeriod(req)
	if err != nil {
		return Summary{}, err
	}

	res, err := s.List(ctx, userID, Filter{
		AccountID: req.AccountID,
		DateFrom:  from,
		DateTo:    to,
		PerPage:   1 << 30, // one page holding everything
	})
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Period:             label,
		DateFrom:           from,
		DateTo:             to,
		TransactionCount:   res.TotalCount,
		IncomeByCategory:   map[entity.Category]decimal.Decimal{},
		ExpensesByCategory: map[entity.Category]decimal.Decimal{},
		ActivityByAccount:  map[string]AccountActivity{},
	}

	for _, t := range res.Transactions {
		effect := t.BalanceEffect()
		act := sum.ActivityByAccount[t.AccountID]
		if act.AccountName == "" {
			act.AccountName = t.AccountName
		}
		act.TransactionCount++

		if effect.IsPositive() {
			sum.TotalIncome = sum.TotalIncome.Add(effect)
			act.TotalIncome = act.TotalIncome.Add(effect)
			sum.IncomeByCategory[t.Category] = sum.IncomeByCategory[t.Category].Add(effect)
		} else {
			abs := effect.Abs()
			sum.TotalExpenses = sum.TotalExpenses.Add(abs)
			act.TotalExpenses = act.TotalExpenses.Add(abs)
			sum.ExpensesByCategory[t.Category] = sum.ExpensesByCategory[t.Category].Add(abs)
		}
		act.NetAmount = act.TotalIncome.Sub(act.TotalExpenses)
		sum.ActivityByAccount[t.AccountID] = act
	}

	sum.TotalIncome = entity.Round2(sum.TotalIncome)
	sum.TotalExpenses = entity.Round2(sum.TotalExpenses)
	sum.NetAmount = entity.Round2(sum.TotalIncome.Sub(sum.TotalExpenses))
	for c, v := range sum.IncomeByCategory {
		sum.IncomeByCategory[c] = entity.Round2(v)
	}
	for c, v := range sum.ExpensesByCategory {
		sum.ExpensesByCategory[c] = entity.Round2(v)
	}
	for id, act := range sum.ActivityByAccount {
		act.TotalIncome = entity.Round2(act.TotalIncome)
		act.TotalExpenses = entity.Round2(act.TotalExpenses)
		act.NetAmount = entity.Round2(act.NetAmount)
		sum.ActivityByAccount[id] = act
	}

	sum.TopIncomeCategories = topCategories(sum.IncomeByCategory, 5)
	sum.TopExpenseCategories = topCategories(sum.ExpensesByCategory, 5)
	return sum, nil
}

// topCategories ranks by descending amount, ties broken by category name
// so the ranking is deterministic.
func topCategories(m map[entity.Category]decimal.Decimal, n int) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for c, v := range m {
		out = append(out, CategoryAmount{Category: c, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
