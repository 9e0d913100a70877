/*
Package entity defines the domain model and its mapping onto the
single-table store.

PURPOSE:
  Four entity kinds share one table: User, Account, Card, Transaction.
  This file holds the domain structs and their closed enums; codec.go maps
  them to and from the store's generic item representation.

DESIGN PRINCIPLES:
  1. Precision: monetary fields are shopspring decimals, 2-decimal scale
  2. Opaque IDs: prefixed random identifiers (usr_, acc_, card_, txn_),
     uniqueness guaranteed by the issuing side, not the store
  3. Timestamps: ISO-8601 strings everywhere; ordering by string compare
  4. Soft delete: entities are marked inactive, never removed

SEE ALSO:
  - codec.go: item encoding, key assignment, defensive decoding
  - ledger/: the only mutator of balance fields
*/
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTITY DISCRIMINATORS
// =============================================================================

// Entity type discriminator values, stored on every item and checked on
// every decode. A prefix scan under one partition returns multiple kinds;
// the discriminator is what keeps them apart, never the key shape alone.
const (
	TypeUser        = "user"
	TypeAccount     = "account"
	TypeCard        = "card"
	TypeTransaction = "transaction"
)

// =============================================================================
// IDENTIFIERS AND TIMESTAMPS
// =============================================================================

func newID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + raw[:12]
}

func NewUserID() string        { return newID("usr") }
func NewAccountID() string     { return newID("acc") }
func NewCardID() string        { return newID("card") }
func NewTransactionID() string { return newID("txn") }

// Now returns the current time as an ISO-8601 string. All timestamps cross
// the API boundary in this format, and date filters compare these strings
// lexicographically.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Round2 normalizes a monetary value to 2 fraction digits.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// =============================================================================
// USER
// =============================================================================

type User struct {
	UserID              string
	Email               string // normalized lowercase, unique via gsi1
	Name                string
	Currency            string // ISO 4217-like 3-letter code
	PasswordHash        string
	IsActive            bool
	FailedLoginAttempts int
	LastLoginAt         string
	CreatedAt           string
	UpdatedAt           string
}

// =============================================================================
// ACCOUNT
// =============================================================================

type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCreditCard AccountType = "credit_card"
	AccountInvestment AccountType = "investment"
	AccountCash       AccountType = "cash"
	AccountLoan       AccountType = "loan"
	AccountOther      AccountType = "other"
)

type Account struct {
	AccountID      string
	UserID         string
	Name           string
	AccountType    AccountType
	BankName       string
	BankCode       string // optional
	Currency       string
	CurrentBalance decimal.Decimal // mutated only by the ledger, delta-only
	IsActive       bool
	Description    string // optional
	Color          string // optional
	CreatedAt      string
	UpdatedAt      string
}

// =============================================================================
// CARD
// =============================================================================

type CardType string

const (
	CardCredit   CardType = "credit"
	CardDebit    CardType = "debit"
	CardPrepaid  CardType = "prepaid"
	CardBusiness CardType = "business"
	CardRewards  CardType = "rewards"
	CardStore    CardType = "store"
	CardOtherTyp CardType = "other"
)

type CardNetwork string

const (
	NetworkVisa       CardNetwork = "visa"
	NetworkMastercard CardNetwork = "mastercard"
	NetworkAmex       CardNetwork = "amex"
	NetworkDiscover   CardNetwork = "discover"
	NetworkJCB        CardNetwork = "jcb"
	NetworkUnionPay   CardNetwork = "unionpay"
	NetworkDiners     CardNetwork = "diners"
	NetworkOther      CardNetwork = "other"
)

type CardStatus string

const (
	CardActive    CardStatus = "active"
	CardBlocked   CardStatus = "blocked"
	CardExpired   CardStatus = "expired"
	CardCancelled CardStatus = "cancelled"
	CardPending   CardStatus = "pending"

	// CardInactive is the soft-delete marker. It sits outside the creation
	// enum on purpose: a deleted card is distinguishable from any state a
	// client can request.
	CardInactive CardStatus = "inactive"
)

type Card struct {
	CardID         string
	UserID         string
	Name           string
	CardType       CardType
	CardNetwork    CardNetwork
	BankName       string
	CreditLimit    *decimal.Decimal // nil for non-credit cards
	CurrentBalance decimal.Decimal  // debt; mutated only by the ledger
	MinimumPayment *decimal.Decimal
	PaymentDueDate int // day of month 1-31, 0 = unset
	CutOffDate     int // day of month 1-31, 0 = unset
	APR            *decimal.Decimal
	AnnualFee      *decimal.Decimal
	RewardsProgram string
	Currency       string
	Color          string
	Description    string
	Status         CardStatus
	CreatedAt      string
	UpdatedAt      string
}

// AvailableCredit returns max(0, credit_limit - current_balance), or nil
// when the card has no credit limit. Derived, never stored.
func (c Card) AvailableCredit() *decimal.Decimal {
	if c.CreditLimit == nil {
		return nil
	}
	avail := c.CreditLimit.Sub(c.CurrentBalance)
	if avail.IsNegative() {
		avail = decimal.Zero
	}
	avail = Round2(avail)
	return &avail
}

// DaysUntilDue computes days until the next payment due date relative to
// today, rolling into next month when this month's due day has passed.
// Returns false when the card has no due date.
func (c Card) DaysUntilDue(today time.Time) (int, bool) {
	if c.PaymentDueDate < 1 || c.PaymentDueDate > 31 {
		return 0, false
	}
	today = today.UTC().Truncate(24 * time.Hour)
	due := time.Date(today.Year(), today.Month(), c.PaymentDueDate, 0, 0, 0, 0, time.UTC)
	if due.Before(today) {
		due = time.Date(today.Year(), today.Month()+1, c.PaymentDueDate, 0, 0, 0, 0, time.UTC)
	}
	return int(due.Sub(today).Hours() / 24), true
}

// =============================================================================
// TRANSACTION
// =============================================================================

type TransactionType string

const (
	TxIncome     TransactionType = "income"
	TxExpense    TransactionType = "expense"
	TxTransfer   TransactionType = "transfer"
	TxInvestment TransactionType = "investment"
	TxRefund     TransactionType = "refund"
	TxFee        TransactionType = "fee"
	TxInterest   TransactionType = "interest"
	TxDividend   TransactionType = "dividend"
	TxBonus      TransactionType = "bonus"
	TxSalary     TransactionType = "salary"
	TxOther      TransactionType = "other"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Category is the closed set of transaction categories. The income/expense/
// transfer grouping is semantic only; the store does not enforce it.
type Category string

const (
	// Income
	CatSalary          Category = "salary"
	CatFreelance       Category = "freelance"
	CatBusinessIncome  Category = "business_income"
	CatInvestmentGains Category = "investment_gains"
	CatRentalIncome    Category = "rental_income"
	CatGiftsReceived   Category = "gifts_received"
	CatRefunds         Category = "refunds"
	CatOtherIncome     Category = "other_income"

	// Expenses
	CatFoodDrinks     Category = "food_drinks"
	CatTransportation Category = "transportation"
	CatShopping       Category = "shopping"
	CatEntertainment  Category = "entertainment"
	CatBillsUtilities Category = "bills_utilities"
	CatHealthcare     Category = "healthcare"
	CatEducation      Category = "education"
	CatTravel         Category = "travel"
	CatInsurance      Category = "insurance"
	CatTaxes          Category = "taxes"
	CatRentMortgage   Category = "rent_mortgage"
	CatGroceries      Category = "groceries"
	CatRestaurants    Category = "restaurants"
	CatGasFuel        Category = "gas_fuel"
	CatClothing       Category = "clothing"
	CatElectronics    Category = "electronics"
	CatSubscriptions  Category = "subscriptions"
	CatGiftsDonations Category = "gifts_donations"
	CatBankFees       Category = "bank_fees"
	CatOtherExpenses  Category = "other_expenses"

	// Transfers
	CatAccountTransfer Category = "account_transfer"
	CatInvestment      Category = "investment"
	CatSavings         Category = "savings"
	CatDebtPayment     Category = "debt_payment"
	CatOtherTransfer   Category = "other_transfer"
)

type RecurringFrequency string

const (
	FreqDaily   RecurringFrequency = "daily"
	FreqWeekly  RecurringFrequency = "weekly"
	FreqMonthly RecurringFrequency = "monthly"
	FreqYearly  RecurringFrequency = "yearly"
)

type Transaction struct {
	TransactionID string
	UserID        string
	AccountID     string
	AccountName   string // denormalized for display
	Amount        decimal.Decimal
	Description   string
	Type          TransactionType
	Category      Category
	Status        TransactionStatus
	TransactionDate string
	ReferenceNumber string
	Notes           string
	Location        string
	Tags            []string // <=10 tags, <=30 chars each (validated upstream)

	// Transfer linkage; set only on transfer legs. Each leg points at the
	// other account, so the pair is mutually discoverable.
	DestinationAccountID   string
	DestinationAccountName string

	// Snapshot of the owning account's balance immediately after this
	// transaction committed. An audit value, never recomputed.
	AccountBalanceAfter decimal.Decimal

	IsRecurring        bool
	RecurringFrequency RecurringFrequency

	CreatedAt string
	UpdatedAt string
}

// IsCompleted reports whether the transaction has settled. Financial fields
// are immutable from this point on.
func (t Transaction) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// BalanceEffect computes the signed delta a transaction of the given type
// and amount applies to its account's balance. Expense-like types subtract
// the absolute amount, income-like types add it, and the remaining types
// (investment, other) take the amount's own sign at face value.
func BalanceEffect(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TxExpense, TxFee, TxTransfer:
		return amount.Abs().Neg()
	case TxIncome, TxRefund, TxDividend, TxBonus, TxSalary, TxInterest:
		return amount.Abs()
	default:
		return amount
	}
}

// BalanceEffect is the signed delta this transaction applied to its account.
func (t Transaction) BalanceEffect() decimal.Decimal {
	return BalanceEffect(t.Type, t.Amount)
}
