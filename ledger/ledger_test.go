package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/kv"
	"github.com/warp/finance-ledger/kv/memory"
	"github.com/warp/finance-ledger/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*ledger.Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	return ledger.New(store), store
}

func mustRegister(t *testing.T, l *ledger.Ledger, email string) entity.User {
	t.Helper()
	u, err := l.RegisterUser(context.Background(), ledger.RegisterUserInput{
		Email: email, Name: "Test User", Currency: "MXN", PasswordHash: "x",
	})
	require.NoError(t, err)
	return u
}

func mustCreateAccount(t *testing.T, l *ledger.Ledger, userID, name string, balance string) entity.Account {
	t.Helper()
	a, err := l.CreateAccount(context.Background(), userID, ledger.CreateAccountInput{
		Name:           name,
		AccountType:    entity.AccountChecking,
		BankName:       "Test Bank",
		Currency:       "MXN",
		InitialBalance: decimal.RequireFromString(balance),
	})
	require.NoError(t, err)
	return a
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// BALANCE CONSERVATION
// =============================================================================

func TestRecordExpense_ThenDelete_RestoresBalance(t *testing.T) {
	// GIVEN: an account with balance 1000 MXN
	// WHEN: recording a 250.75 expense and then deleting it
	// THEN: the balance passes through 749.25 and returns to exactly 1000.00

	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "conservation@example.com")
	acc := mustCreateAccount(t, l, u.UserID, "Main", "1000")

	tx, err := l.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
		AccountID:   acc.AccountID,
		Amount:      dec("250.75"),
		Description: "Groceries",
		Type:        entity.TxExpense,
		Category:    entity.CatGroceries,
	})
	require.NoError(t, err)
	assert.True(t, tx.AccountBalanceAfter.Equal(dec("749.25")),
		"snapshot should reflect the post-expense balance, got %s", tx.AccountBalanceAfter)

	after, err := l.GetAccount(ctx, u.UserID, acc.AccountID)
	require.NoError(t, err)
	assert.True(t, after.CurrentBalance.Equal(dec("749.25")))

	require.NoError(t, l.DeleteTransaction(ctx, u.UserID, tx.TransactionID))

	restored, err := l.GetAccount(ctx, u.UserID, acc.AccountID)
	require.NoError(t, err)
	assert.True(t, restored.CurrentBalance.Equal(dec("1000")),
		"delete must invert the exact delta, got %s", restored.CurrentBalance)

	_, err = l.GetTransaction(ctx, u.UserID, tx.TransactionID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSignRule_PerType(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "signs@example.com")

	cases := []struct {
		name    string
		txType  entity.TransactionType
		amount  string
		balance string // starting from 1000
	}{
		{"expense subtracts abs", entity.TxExpense, "100", "900"},
		{"fee subtracts abs even when given positive", entity.TxFee, "25", "975"},
		{"income adds abs", entity.TxIncome, "-50", "1050"},
		{"salary adds abs", entity.TxSalary, "300", "1300"},
		{"other keeps its sign", entity.TxOther, "-10", "990"},
		{"investment keeps its sign", entity.TxInvestment, "40", "1040"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc := mustCreateAccount(t, l, u.UserID, "Acct "+tc.name, "1000")
			_, err := l.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
				AccountID: acc.AccountID, Amount: dec(tc.amount),
				Description: "d", Type: tc.txType, Category: entity.CatOtherExpenses,
			})
			require.NoError(t, err)

			got, err := l.GetAccount(ctx, u.UserID, acc.AccountID)
			require.NoError(t, err)
			assert.True(t, got.CurrentBalance.Equal(dec(tc.balance)),
				"want %s, got %s", tc.balance, got.CurrentBalance)
		})
	}
}

// =============================================================================
// TRANSFERS
// =============================================================================

func TestTransfer_PairsTransactionsAndConservesMoney(t *testing.T) {
	// GIVEN: account A with 1000 and account B with 500
	// WHEN: transferring 200 from A to B
	// THEN: A=800, B=700, two transactions exist with reciprocal pointers

	l, store := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "transfer@example.com")
	a := mustCreateAccount(t, l, u.UserID, "Checking", "1000")
	b := mustCreateAccount(t, l, u.UserID, "Savings", "500")

	src, err := l.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
		AccountID:            a.AccountID,
		Amount:               dec("200"),
		Description:          "Monthly savings",
		Type:                 entity.TxTransfer,
		Category:             entity.CatSavings,
		DestinationAccountID: b.AccountID,
	})
	require.NoError(t, err)

	gotA, err := l.GetAccount(ctx, u.UserID, a.AccountID)
	require.NoError(t, err)
	gotB, err := l.GetAccount(ctx, u.UserID, b.AccountID)
	require.NoError(t, err)
	assert.True(t, gotA.CurrentBalance.Equal(dec("800")))
	assert.True(t, gotB.CurrentBalance.Equal(dec("700")))
	assert.True(t, gotA.CurrentBalance.Add(gotB.CurrentBalance).Equal(dec("1500")),
		"money is conserved across the pair")

	// Source leg points at B and snapshots A's post-debit balance.
	assert.Equal(t, b.AccountID, src.DestinationAccountID)
	assert.True(t, src.AccountBalanceAfter.Equal(dec("800")))

	// Destination leg: found via B's account index, points back at A.
	items, err := store.QueryIndex(ctx, kv.GSI1, entity.AccountKey(b.AccountID))
	require.NoError(t, err)
	legs := entity.DecodeTransactions(items)
	require.Len(t, legs, 1)
	leg := legs[0]
	assert.Equal(t, a.AccountID, leg.DestinationAccountID)
	assert.Equal(t, entity.TxIncome, leg.Type)
	assert.Equal(t, entity.CatAccountTransfer, leg.Category)
	assert.True(t, leg.Amount.Equal(dec("200")))
	assert.True(t, leg.AccountBalanceAfter.Equal(dec("700")))
	assert.Equal(t, "Transfer from Checking: Monthly savings", leg.Description)
	assert.Equal(t, "Transfer from transaction "+src.TransactionID, leg.Notes)
}

// failingStore passes everything to the inner store except transaction
// puts after the first, which fail. Simulates the destination leg dying
// after the source leg committed.
type failingStore struct {
	kv.Store
	txnPuts int
}

func (f *failingStore) Put(ctx context.Context, item kv.Item, cond *kv.Condition) error {
	if item.EntityType == entity.TypeTransaction {
		f.txnPuts++
		if f.txnPuts > 1 {
			return kv.Unavailable(errors.New("backend down"))
		}
	}
	return f.Store.Put(ctx, item, cond)
}

func TestTransfer_PartialFailure_SurfacesCommittedLeg(t *testing.T) {
	// GIVEN: the store dies between the source and destination legs
	// WHEN: transferring 200 from A to B
	// THEN: the error names the committed source leg; A is debited, B untouched

	raw := memory.New()
	setup := ledger.New(raw)
	ctx := context.Background()
	u := mustRegister(t, setup, "partial@example.com")
	a := mustCreateAccount(t, setup, u.UserID, "A", "1000")
	b := mustCreateAccount(t, setup, u.UserID, "B", "500")

	l := ledger.New(&failingStore{Store: raw})
	_, err := l.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
		AccountID:            a.AccountID,
		Amount:               dec("200"),
		Description:          "doomed",
		Type:                 entity.TxTransfer,
		Category:             entity.CatSavings,
		DestinationAccountID: b.AccountID,
	})

	var partial *ledger.PartialTransferError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, a.AccountID, partial.SourceAccountID)
	assert.Equal(t, b.AccountID, partial.DestinationAccountID)
	assert.NotEmpty(t, partial.SourceTransactionID)
	assert.True(t, partial.Amount.Equal(dec("200")))

	gotA, err := setup.GetAccount(ctx, u.UserID, a.AccountID)
	require.NoError(t, err)
	gotB, err := setup.GetAccount(ctx, u.UserID, b.AccountID)
	require.NoError(t, err)
	assert.True(t, gotA.CurrentBalance.Equal(dec("800")), "source leg committed")
	assert.True(t, gotB.CurrentBalance.Equal(dec("500")), "destination untouched, no rollback")
}

// =============================================================================
// COMPLETED IMMUTABILITY
// =============================================================================

func TestUpdateTransaction_CompletedFreezesFinancialFields(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "immutable@example.com")
	acc := mustCreateAccount(t, l, u.UserID, "Main", "1000")

	tx, err := l.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
		AccountID: acc.AccountID, Amount: dec("100"),
		Description: "Dinner", Type: entity.TxExpense, Category: entity.CatRestaurants,
	})
	require.NoError(t, err)
	require.True(t, tx.IsCompleted())

	// Financial edit rejected before any write.
	newAmount := dec("999")
	_, err = l.UpdateTransaction(ctx, u.UserID, tx.TransactionID,
		ledger.UpdateTransactionInput{Amount: &newAmount})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	// Descriptive edit on the same transaction succeeds.
	notes := "client dinner"
	tags := []string{"work"}
	updated, err := l.UpdateTransaction(ctx, u.UserID, tx.TransactionID,
		ledger.UpdateTransactionInput{Notes: &notes, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "client dinner", updated.Notes)
	assert.Equal(t, []string{"work"}, updated.Tags)
	assert.True(t, updated.Amount.Equal(dec("100")), "amount untouched")

	// Balance untouched by the descriptive edit.
	got, err := l.GetAccount(ctx, u.UserID, acc.AccountID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(dec("900")))
}

func TestUpdateTransaction_PendingAmountEdit_RepointsBalance(t *testing.T) {
	// GIVEN: a pending 100 expense already applied to the balance
	// WHEN: correcting the amount to 150
	// THEN: the account moves by the net 50, and delete still restores exactly

	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "pending@example.com")
	acc := mustCreateAccount(t, l, u.UserID, "Main", "1000")

	tx, err := l.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
		AccountID: acc.AccountID, Amount: dec("100"),
		Description: "estimate", Type: entity.TxExpense,
		Category: entity.CatShopping, Status: entity.StatusPending,
	})
	require.NoError(t, err)

	corrected := dec("150")
	_, err = l.UpdateTransaction(ctx, u.UserID, tx.TransactionID,
		ledger.UpdateTransactionInput{Amount: &corrected})
	require.NoError(t, err)

	got, err := l.GetAccount(ctx, u.UserID, acc.AccountID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(dec("850")))

	require.NoError(t, l.DeleteTransaction(ctx, u.UserID, tx.TransactionID))
	restored, err := l.GetAccount(ctx, u.UserID, acc.AccountID)
	require.NoError(t, err)
	assert.True(t, restored.CurrentBalance.Equal(dec("1000")))
}

// =============================================================================
// ACCOUNT STATE
// =============================================================================

func TestRecordTransaction_InactiveAccountRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "inactive@example.com")
	acc := mustCreateAccount(t, l, u.UserID, "Old", "100")

	require.NoError(t, l.DeactivateAccount(ctx, u.UserID, acc.AccountID))

	_, err := l.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
		AccountID: acc.AccountID, Amount: dec("10"),
		Description: "d", Type: entity.TxExpense, Category: entity.CatOtherExpenses,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestAdjustBalance_DisambiguatesNotFoundFromInactive(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "adjust@example.com")

	t.Run("missing account", func(t *testing.T) {
		_, err := l.AdjustBalance(ctx, u.UserID, "acc_nope00000000", dec("5"))
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("inactive account", func(t *testing.T) {
		acc := mustCreateAccount(t, l, u.UserID, "Dead", "50")
		require.NoError(t, l.DeactivateAccount(ctx, u.UserID, acc.AccountID))

		_, err := l.AdjustBalance(ctx, u.UserID, acc.AccountID, dec("5"))
		assert.ErrorIs(t, err, ledger.ErrInvalidState)
	})

	t.Run("active account moves by the delta", func(t *testing.T) {
		acc := mustCreateAccount(t, l, u.UserID, "Live", "50")
		got, err := l.AdjustBalance(ctx, u.UserID, acc.AccountID, dec("-12.50"))
		require.NoError(t, err)
		assert.True(t, got.CurrentBalance.Equal(dec("37.50")))
	})
}

func TestListAccounts_SummaryTotalsActiveOnly(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "list@example.com")

	mustCreateAccount(t, l, u.UserID, "A", "100")
	mustCreateAccount(t, l, u.UserID, "B", "250.50")
	dead := mustCreateAccount(t, l, u.UserID, "C", "9999")
	require.NoError(t, l.DeactivateAccount(ctx, u.UserID, dead.AccountID))

	accounts, summary, err := l.ListAccounts(ctx, u.UserID, ledger.ListAccountsFilter{})
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
	assert.Equal(t, 3, summary.TotalCount)
	assert.Equal(t, 2, summary.ActiveCount)
	assert.True(t, summary.BalanceByCurrency["MXN"].Equal(dec("350.50")),
		"inactive balances are history, not money")

	active, _, err := l.ListAccounts(ctx, u.UserID, ledger.ListAccountsFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

// =============================================================================
// USERS
// =============================================================================

func TestRegisterUser_DuplicateEmailRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	mustRegister(t, l, "dup@example.com")

	_, err := l.RegisterUser(context.Background(), ledger.RegisterUserInput{
		Email: "DUP@example.com", Name: "Other", Currency: "USD", PasswordHash: "y",
	})

	assert.ErrorIs(t, err, ledger.ErrAlreadyExists, "email uniqueness is case-insensitive")
}

func TestFailedLogins_ThresholdDeactivatesUser(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "lockout@example.com")

	for i := 1; i < ledger.FailedLoginThreshold; i++ {
		n, err := l.RecordFailedLogin(ctx, u.UserID)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	still, err := l.GetUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.True(t, still.IsActive, "below threshold stays active")

	n, err := l.RecordFailedLogin(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, ledger.FailedLoginThreshold, n)

	locked, err := l.GetUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.False(t, locked.IsActive, "threshold deactivates")

	// A successful login resets the counter and stamps last_login_at.
	require.NoError(t, l.RecordSuccessfulLogin(ctx, u.UserID))
	reset, err := l.GetUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, reset.FailedLoginAttempts)
	assert.NotEmpty(t, reset.LastLoginAt)
}

// =============================================================================
// CARDS
// =============================================================================

func TestCardMovements_DebtSemantics(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "cards@example.com")

	limit := dec("5000")
	card, err := l.CreateCard(ctx, u.UserID, ledger.CreateCardInput{
		Name: "Main Credit", CardType: entity.CardCredit,
		CardNetwork: entity.NetworkVisa, BankName: "Test Bank",
		CreditLimit: &limit, Currency: "MXN",
	})
	require.NoError(t, err)

	// Purchases and interest raise debt.
	card, err = l.RecordCardMovement(ctx, u.UserID, card.CardID, ledger.CardPurchase, dec("300"))
	require.NoError(t, err)
	card, err = l.RecordCardMovement(ctx, u.UserID, card.CardID, ledger.CardInterest, dec("45.25"))
	require.NoError(t, err)
	assert.True(t, card.CurrentBalance.Equal(dec("345.25")))

	avail := card.AvailableCredit()
	require.NotNil(t, avail)
	assert.True(t, avail.Equal(dec("4654.75")))

	// A payment lowers it, sign on input ignored.
	card, err = l.RecordCardPayment(ctx, u.UserID, card.CardID, dec("-100"))
	require.NoError(t, err)
	assert.True(t, card.CurrentBalance.Equal(dec("245.25")))
}

func TestDeactivateCard_SetsInactiveAndBlocksMovements(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "cardsdel@example.com")

	card, err := l.CreateCard(ctx, u.UserID, ledger.CreateCardInput{
		Name: "Old Card", CardType: entity.CardDebit,
		CardNetwork: entity.NetworkMastercard, BankName: "Test Bank", Currency: "MXN",
	})
	require.NoError(t, err)

	require.NoError(t, l.DeactivateCard(ctx, u.UserID, card.CardID))

	got, err := l.GetCard(ctx, u.UserID, card.CardID)
	require.NoError(t, err)
	assert.Equal(t, entity.CardInactive, got.Status)

	_, err = l.RecordCardMovement(ctx, u.UserID, card.CardID, ledger.CardPurchase, dec("10"))
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestUpdateTransaction_DateEditMovesChronologicalIndexKey(t *testing.T) {
	// GIVEN: a pending transaction indexed under its original date
	// WHEN: the transaction date is edited
	// THEN: the account's chronological index carries the new date only
	l, store := newTestLedger(t)
	ctx := context.Background()
	u := mustRegister(t, l, "datemove@example.com")
	acct := mustCreateAccount(t, l, u.UserID, "Checking", "1000")

	txn, err := l.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
		AccountID:       acct.AccountID,
		Amount:          dec("100"),
		Description:     "Utility bill",
		Type:            entity.TxExpense,
		Category:        entity.CatBillsUtilities,
		Status:          entity.StatusPending,
		TransactionDate: "2026-08-10",
	})
	require.NoError(t, err)

	newDate := "2026-08-20"
	updated, err := l.UpdateTransaction(ctx, u.UserID, txn.TransactionID,
		ledger.UpdateTransactionInput{TransactionDate: &newDate})
	require.NoError(t, err)
	assert.Equal(t, newDate, updated.TransactionDate)

	items, err := store.QueryIndex(ctx, kv.GSI1, entity.AccountKey(acct.AccountID))
	require.NoError(t, err)
	var keys []string
	for _, it := range items {
		keys = append(keys, it.GSI1SK)
	}
	assert.Contains(t, keys, entity.TransactionIndexSK(newDate, txn.TransactionID))
	assert.NotContains(t, keys, entity.TransactionIndexSK("2026-08-10", txn.TransactionID))

	// The balance and the other fields survive the re-encode untouched
	got, err := l.GetTransaction(ctx, u.UserID, txn.TransactionID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("100")))
	assert.Equal(t, "Utility bill", got.Description)
}
