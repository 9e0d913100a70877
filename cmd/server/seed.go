/*
seed.go - Demo data loader

PURPOSE:
  Populates the database with a realistic demo user for local
  development: two bank accounts, a credit card, a month of
  transactions, a transfer, and a recurring rent payment.

USAGE:
  ./server -db=":memory:" -seed
  Log in with demo@ledger.local / demo-password.

NOTE:
  Seeding is idempotent per database: if the demo user already exists,
  nothing is written.

SEE ALSO:
  - main.go: invokes loadDemoData behind the -seed flag
*/
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/api"
	"github.com/warp/finance-ledger/auth"
	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/ledger"
)

const (
	demoEmail    = "demo@ledger.local"
	demoPassword = "demo-password"
)

func loadDemoData(ctx context.Context, eng *ledger.Ledger, scheduler *api.RecurringScheduler) error {
	if _, err := eng.GetUserByEmail(ctx, demoEmail); err == nil {
		log.Printf("Demo user already present, skipping seed")
		return nil
	}

	hash, err := auth.HashPassword(demoPassword, auth.DefaultParams())
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}
	u, err := eng.RegisterUser(ctx, ledger.RegisterUserInput{
		Email:        demoEmail,
		Name:         "Demo User",
		Currency:     "MXN",
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("register demo user: %w", err)
	}

	checking, err := eng.CreateAccount(ctx, u.UserID, ledger.CreateAccountInput{
		Name:           "Everyday Checking",
		AccountType:    entity.AccountChecking,
		BankName:       "BBVA",
		Currency:       "MXN",
		InitialBalance: dec("18500"),
		Color:          "#2563eb",
	})
	if err != nil {
		return err
	}
	savings, err := eng.CreateAccount(ctx, u.UserID, ledger.CreateAccountInput{
		Name:           "Rainy Day Savings",
		AccountType:    entity.AccountSavings,
		BankName:       "BBVA",
		Currency:       "MXN",
		InitialBalance: dec("42000"),
		Color:          "#059669",
	})
	if err != nil {
		return err
	}

	limit := dec("50000")
	if _, err := eng.CreateCard(ctx, u.UserID, ledger.CreateCardInput{
		Name:           "Platinum Rewards",
		CardType:       entity.CardCredit,
		CardNetwork:    entity.NetworkVisa,
		BankName:       "Banorte",
		CreditLimit:    &limit,
		InitialBalance: dec("6240.50"),
		PaymentDueDate: 15,
		CutOffDate:     28,
		Currency:       "MXN",
	}); err != nil {
		return err
	}

	type seedTxn struct {
		account  string
		amount   string
		desc     string
		typ      entity.TransactionType
		category entity.Category
		date     string
		tags     []string
	}
	for _, s := range []seedTxn{
		{checking.AccountID, "32000", "Monthly salary", entity.TxSalary, entity.CatSalary, "2026-08-01", nil},
		{checking.AccountID, "1250.40", "Supermarket run", entity.TxExpense, entity.CatGroceries, "2026-08-03", []string{"food"}},
		{checking.AccountID, "389.99", "Streaming bundle", entity.TxExpense, entity.CatSubscriptions, "2026-08-05", nil},
		{checking.AccountID, "840", "Dinner with friends", entity.TxExpense, entity.CatRestaurants, "2026-08-09", []string{"food", "friends"}},
		{savings.AccountID, "215.75", "Monthly interest", entity.TxInterest, entity.CatOtherIncome, "2026-08-10", nil},
		{checking.AccountID, "600", "Gas", entity.TxExpense, entity.CatGasFuel, "2026-08-12", nil},
	} {
		if _, err := eng.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
			AccountID:       s.account,
			Amount:          dec(s.amount),
			Description:     s.desc,
			Type:            s.typ,
			Category:        s.category,
			TransactionDate: s.date,
			Tags:            s.tags,
		}); err != nil {
			return err
		}
	}

	// A transfer pair and a recurring rent payment
	if _, err := eng.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
		AccountID:            checking.AccountID,
		Amount:               dec("5000"),
		Description:          "Monthly savings sweep",
		Type:                 entity.TxTransfer,
		Category:             entity.CatSavings,
		TransactionDate:      "2026-08-02",
		DestinationAccountID: savings.AccountID,
	}); err != nil {
		return err
	}
	if _, err := eng.RecordTransaction(ctx, u.UserID, ledger.RecordTransactionInput{
		AccountID:          checking.AccountID,
		Amount:             dec("9500"),
		Description:        "Rent",
		Type:               entity.TxExpense,
		Category:           entity.CatRentMortgage,
		TransactionDate:    "2026-08-01",
		IsRecurring:        true,
		RecurringFrequency: entity.FreqMonthly,
	}); err != nil {
		return err
	}

	scheduler.Track(u.UserID)
	log.Printf("Seeded demo user %s (password: %s)", demoEmail, demoPassword)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
