/*
scheduler_test.go - Tests for the recurring transaction scheduler

Tests for:
- Stop returning promptly while the run goroutine is mid-cycle
- Background materialization for tracked users
*/
package api

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/kv/memory"
	"github.com/warp/finance-ledger/ledger"
)

func TestRecurringScheduler_StopReturnsWhileCycleRuns(t *testing.T) {
	// GIVEN: a started scheduler whose run goroutine fires immediately
	// WHEN: Stop is called right after Start
	// THEN: Stop returns instead of waiting forever on the cycle's lock
	rs := NewRecurringScheduler(ledger.New(memory.New()))
	rs.CheckInterval = time.Millisecond
	rs.Track("usr_nobody")
	rs.Start()

	done := make(chan struct{})
	go func() {
		rs.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return; scheduler shutdown is stuck")
	}
}

func TestRecurringScheduler_MaterializesForTrackedUsers(t *testing.T) {
	// GIVEN: a tracked user with an overdue monthly expense
	// WHEN: the scheduler runs
	// THEN: occurrences appear and the balance drops below the seeded level
	store := memory.New()
	eng := ledger.New(store)
	ctx := context.Background()

	u, err := eng.RegisterUser(ctx, ledger.RegisterUserInput{
		Email: "sched@example.com", Name: "S", Currency: "MXN", PasswordHash: "x",
	})
	require.NoError(t, err)
	acct, err := eng.CreateAccount(ctx, u.UserID, ledger.CreateAccountInput{
		Name: "Checking", AccountType: entity.AccountChecking, BankName: "Test Bank",
		Currency: "MXN", InitialBalance: decimal.RequireFromString("100000"),
	})
	require.NoError(t, err)
	_, err = eng.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
		AccountID:          acct.AccountID,
		Amount:             decimal.RequireFromString("10"),
		Description:        "Rent",
		Type:               entity.TxExpense,
		Category:           entity.CatRentMortgage,
		TransactionDate:    "2020-01-01",
		IsRecurring:        true,
		RecurringFrequency: entity.FreqMonthly,
	})
	require.NoError(t, err)
	afterSeed, err := eng.GetAccount(ctx, u.UserID, acct.AccountID)
	require.NoError(t, err)

	rs := NewRecurringScheduler(eng)
	rs.CheckInterval = 5 * time.Millisecond
	rs.Track(u.UserID)
	rs.Start()
	defer rs.Stop()

	require.Eventually(t, func() bool {
		a, err := eng.GetAccount(ctx, u.UserID, acct.AccountID)
		return err == nil && a.CurrentBalance.LessThan(afterSeed.CurrentBalance)
	}, 5*time.Second, 10*time.Millisecond, "no recurring occurrence was materialized")
}
