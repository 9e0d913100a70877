package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/kv/memory"
	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/query"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedTransactions writes a fixed dataset through the ledger so the query
// layer reads exactly what production writes.
func seedTransactions(t *testing.T) (*query.Service, *ledger.Ledger, entity.Account, entity.Account) {
	t.Helper()
	store := memory.New()
	l := ledger.New(store)
	ctx := context.Background()

	u, err := l.RegisterUser(ctx, ledger.RegisterUserInput{
		Email: "query@example.com", Name: "Q", Currency: "MXN", PasswordHash: "x",
	})
	require.NoError(t, err)

	checking, err := l.CreateAccount(ctx, u.UserID, ledger.CreateAccountInput{
		Name: "Checking", AccountType: entity.AccountChecking,
		BankName: "Bank", Currency: "MXN", InitialBalance: dec("1000"),
	})
	require.NoError(t, err)
	savings, err := l.CreateAccount(ctx, u.UserID, ledger.CreateAccountInput{
		Name: "Savings", AccountType: entity.AccountSavings,
		BankName: "Bank", Currency: "MXN", InitialBalance: dec("500"),
	})
	require.NoError(t, err)

	records := []ledger.RecordTransactionInput{
		{AccountID: checking.AccountID, Amount: dec("1500"), Description: "August salary",
			Type: entity.TxSalary, Category: entity.CatSalary, TransactionDate: "2026-08-01"},
		{AccountID: checking.AccountID, Amount: dec("250.75"), Description: "Groceries at the market",
			Type: entity.TxExpense, Category: entity.CatGroceries, TransactionDate: "2026-08-05",
			Tags: []string{"food"}},
		{AccountID: checking.AccountID, Amount: dec("85"), Description: "Dinner out",
			Type: entity.TxExpense, Category: entity.CatRestaurants, TransactionDate: "2026-08-10",
			Tags: []string{"food", "friends"}, Notes: "birthday"},
		{AccountID: savings.AccountID, Amount: dec("12.40"), Description: "Interest payment",
			Type: entity.TxInterest, Category: entity.CatOtherIncome, TransactionDate: "2026-08-15"},
		{AccountID: checking.AccountID, Amount: dec("40"), Description: "gas station",
			Type: entity.TxExpense, Category: entity.CatGasFuel, TransactionDate: "2026-07-28",
			ReferenceNumber: "REF-778"},
	}
	for _, r := range records {
		_, err := l.RecordTransaction(ctx, u.UserID, r)
		require.NoError(t, err)
	}

	return query.New(store), l, checking, savings
}

// =============================================================================
// FILTERING
// =============================================================================

func TestList_FilterChain(t *testing.T) {
	s, _, checking, savings := seedTransactions(t)
	ctx := context.Background()
	uid := checking.UserID

	t.Run("by type", func(t *testing.T) {
		res, err := s.List(ctx, uid, query.Filter{Type: entity.TxExpense})
		require.NoError(t, err)
		assert.Equal(t, 3, res.TotalCount)
	})

	t.Run("by category", func(t *testing.T) {
		res, err := s.List(ctx, uid, query.Filter{Category: entity.CatGroceries})
		require.NoError(t, err)
		require.Equal(t, 1, res.TotalCount)
		assert.Equal(t, "Groceries at the market", res.Transactions[0].Description)
	})

	t.Run("by account", func(t *testing.T) {
		res, err := s.List(ctx, uid, query.Filter{AccountID: savings.AccountID})
		require.NoError(t, err)
		require.Equal(t, 1, res.TotalCount)
		assert.Equal(t, "Interest payment", res.Transactions[0].Description)
	})

	t.Run("inclusive date range", func(t *testing.T) {
		res, err := s.List(ctx, uid, query.Filter{
			DateFrom: "2026-08-01", DateTo: "2026-08-10",
		})
		require.NoError(t, err)
		assert.Equal(t, 3, res.TotalCount, "both boundary dates included")
	})

	t.Run("absolute amount range matches expenses and income alike", func(t *testing.T) {
		min, max := dec("50"), dec("300")
		res, err := s.List(ctx, uid, query.Filter{AmountMin: &min, AmountMax: &max})
		require.NoError(t, err)
		assert.Equal(t, 2, res.TotalCount) // 250.75 expense, 85 expense
	})

	t.Run("case-insensitive search across fields", func(t *testing.T) {
		res, err := s.List(ctx, uid, query.Filter{SearchTerm: "BIRTHDAY"})
		require.NoError(t, err)
		require.Equal(t, 1, res.TotalCount, "notes are searched")

		res, err = s.List(ctx, uid, query.Filter{SearchTerm: "ref-778"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalCount, "reference numbers are searched")
	})

	t.Run("tags use OR semantics", func(t *testing.T) {
		res, err := s.List(ctx, uid, query.Filter{Tags: []string{"friends", "nonexistent"}})
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalCount)

		res, err = s.List(ctx, uid, query.Filter{Tags: []string{"food"}})
		require.NoError(t, err)
		assert.Equal(t, 2, res.TotalCount)
	})
}

// =============================================================================
// SORTING AND PAGINATION
// =============================================================================

func TestList_SortingIsStableAndIdempotent(t *testing.T) {
	s, _, checking, _ := seedTransactions(t)
	ctx := context.Background()
	uid := checking.UserID

	first, err := s.List(ctx, uid, query.Filter{SortBy: query.SortByAmount, SortDesc: true})
	require.NoError(t, err)
	second, err := s.List(ctx, uid, query.Filter{SortBy: query.SortByAmount, SortDesc: true})
	require.NoError(t, err)

	require.Equal(t, len(first.Transactions), len(second.Transactions))
	for i := range first.Transactions {
		assert.Equal(t, first.Transactions[i].TransactionID, second.Transactions[i].TransactionID,
			"same filter+sort twice yields identical order")
	}

	// Descending by |amount|: salary 1500 first, gas 40 last.
	assert.Equal(t, "August salary", first.Transactions[0].Description)
	assert.Equal(t, "gas station", first.Transactions[len(first.Transactions)-1].Description)
}

func TestList_SortByDescriptionIgnoresCase(t *testing.T) {
	s, _, checking, _ := seedTransactions(t)

	res, err := s.List(context.Background(), checking.UserID,
		query.Filter{SortBy: query.SortByDescription})
	require.NoError(t, err)

	// "August salary" < "Dinner out" < "gas station" < "Groceries..." <
	// "Interest payment" when lowercased.
	var got []string
	for _, tx := range res.Transactions {
		got = append(got, tx.Description)
	}
	assert.Equal(t, []string{
		"August salary", "Dinner out", "gas station",
		"Groceries at the market", "Interest payment",
	}, got)
}

func TestList_PaginationSlicesAfterFiltering(t *testing.T) {
	s, _, checking, _ := seedTransactions(t)
	ctx := context.Background()
	uid := checking.UserID

	page1, err := s.List(ctx, uid, query.Filter{SortBy: query.SortByDate, Page: 1, PerPage: 2})
	require.NoError(t, err)
	page2, err := s.List(ctx, uid, query.Filter{SortBy: query.SortByDate, Page: 2, PerPage: 2})
	require.NoError(t, err)
	page9, err := s.List(ctx, uid, query.Filter{SortBy: query.SortByDate, Page: 9, PerPage: 2})
	require.NoError(t, err)

	assert.Equal(t, 5, page1.TotalCount, "total reflects the filtered set, not the page")
	assert.Len(t, page1.Transactions, 2)
	assert.Len(t, page2.Transactions, 2)
	assert.Empty(t, page9.Transactions, "past the end is empty, not an error")
	assert.NotEqual(t, page1.Transactions[0].TransactionID, page2.Transactions[0].TransactionID)
}

func TestList_TotalsFollowTheSignRule(t *testing.T) {
	s, _, checking, _ := seedTransactions(t)

	res, err := s.List(context.Background(), checking.UserID, query.Filter{})
	require.NoError(t, err)

	// Income: 1500 salary + 12.40 interest. Expenses: 250.75 + 85 + 40.
	assert.True(t, res.TotalIncome.Equal(dec("1512.40")), "got %s", res.TotalIncome)
	assert.True(t, res.TotalExpenses.Equal(dec("375.75")), "got %s", res.TotalExpenses)
	assert.True(t, res.NetAmount.Equal(dec("1136.65")), "got %s", res.NetAmount)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummarize_CurrentMonth(t *testing.T) {
	s, _, checking, savings := seedTransactions(t)
	s = s.WithClock(func() time.Time {
		return time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	})

	sum, err := s.Summarize(context.Background(), checking.UserID,
		query.SummaryRequest{Period: query.PeriodCurrentMonth})
	require.NoError(t, err)

	assert.Equal(t, "2026-08", sum.Period)
	assert.Equal(t, 4, sum.TransactionCount, "the July transaction is outside the window")
	assert.True(t, sum.TotalIncome.Equal(dec("1512.40")))
	assert.True(t, sum.TotalExpenses.Equal(dec("335.75")))
	assert.True(t, sum.NetAmount.Equal(dec("1176.65")))

	assert.True(t, sum.IncomeByCategory[entity.CatSalary].Equal(dec("1500")))
	assert.True(t, sum.ExpensesByCategory[entity.CatGroceries].Equal(dec("250.75")))

	checkingAct := sum.ActivityByAccount[checking.AccountID]
	assert.Equal(t, "Checking", checkingAct.AccountName)
	assert.Equal(t, 3, checkingAct.TransactionCount)
	assert.True(t, checkingAct.NetAmount.Equal(dec("1164.25")))

	savingsAct := sum.ActivityByAccount[savings.AccountID]
	assert.Equal(t, 1, savingsAct.TransactionCount)
	assert.True(t, savingsAct.TotalIncome.Equal(dec("12.40")))

	require.NotEmpty(t, sum.TopExpenseCategories)
	assert.Equal(t, entity.CatGroceries, sum.TopExpenseCategories[0].Category)
	require.NotEmpty(t, sum.TopIncomeCategories)
	assert.Equal(t, entity.CatSalary, sum.TopIncomeCategories[0].Category)
}

func TestSummarize_Periods(t *testing.T) {
	s, _, checking, _ := seedTransactions(t)
	s = s.WithClock(func() time.Time {
		return time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC)
	})
	ctx := context.Background()
	uid := checking.UserID

	t.Run("last 30 days spans the month boundary", func(t *testing.T) {
		sum, err := s.Summarize(ctx, uid, query.SummaryRequest{Period: query.PeriodLast30Days})
		require.NoError(t, err)
		assert.Equal(t, "last_30_days", sum.Period)
		// salary (08-01) and gas (07-28) fall inside; the rest are future
		// relative to the frozen clock.
		assert.Equal(t, 2, sum.TransactionCount)
	})

	t.Run("last year is empty for this dataset", func(t *testing.T) {
		sum, err := s.Summarize(ctx, uid, query.SummaryRequest{Period: query.PeriodLastYear})
		require.NoError(t, err)
		assert.Equal(t, "2025", sum.Period)
		assert.Zero(t, sum.TransactionCount)
		assert.Empty(t, sum.TopExpenseCategories)
	})

	t.Run("custom requires bounds", func(t *testing.T) {
		_, err := s.Summarize(ctx, uid, query.SummaryRequest{Period: query.PeriodCustom})
		assert.ErrorIs(t, err, query.ErrCustomRangeRequired)
	})

	t.Run("custom range", func(t *testing.T) {
		sum, err := s.Summarize(ctx, uid, query.SummaryRequest{
			Period: query.PeriodCustom, From: "2026-08-05", To: "2026-08-15",
		})
		require.NoError(t, err)
		assert.Equal(t, 3, sum.TransactionCount)
	})
}
