/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Response types returned to clients

MONEY:
  Monetary values serialize as decimal strings (shopspring/decimal), so
  no amount ever passes through floating point on the way out.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/query"
)

// =============================================================================
// AUTH
// =============================================================================

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	IsActive    bool   `json:"is_active"`
	LastLoginAt string `json:"last_login_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toUserResponse(u entity.User) UserResponse {
	return UserResponse{
		UserID:      u.UserID,
		Email:       u.Email,
		Name:        u.Name,
		Currency:    u.Currency,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

type CreateAccountRequest struct {
	Name           string          `json:"name"`
	AccountType    string          `json:"account_type"`
	BankName       string          `json:"bank_name"`
	BankCode       string          `json:"bank_code,omitempty"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Description    string          `json:"description,omitempty"`
	Color          string          `json:"color,omitempty"`
}

// AdjustBalanceRequest applies a signed delta to an account's balance.
type AdjustBalanceRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

type UpdateAccountRequest struct {
	Name        *string `json:"name,omitempty"`
	BankName    *string `json:"bank_name,omitempty"`
	BankCode    *string `json:"bank_code,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

type AccountResponse struct {
	AccountID      string          `json:"account_id"`
	Name           string          `json:"name"`
	AccountType    string          `json:"account_type"`
	BankName       string          `json:"bank_name"`
	BankCode       string          `json:"bank_code,omitempty"`
	Currency       string          `json:"currency"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsActive       bool            `json:"is_active"`
	Description    string          `json:"description,omitempty"`
	Color          string          `json:"color,omitempty"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

type AccountListResponse struct {
	Accounts          []AccountResponse          `json:"accounts"`
	TotalCount        int                        `json:"total_count"`
	ActiveCount       int                        `json:"active_count"`
	BalanceByCurrency map[string]decimal.Decimal `json:"balance_by_currency"`
}

func toAccountResponse(a entity.Account) AccountResponse {
	return AccountResponse{
		AccountID:      a.AccountID,
		Name:           a.Name,
		AccountType:    string(a.AccountType),
		BankName:       a.BankName,
		BankCode:       a.BankCode,
		Currency:       a.Currency,
		CurrentBalance: a.CurrentBalance,
		IsActive:       a.IsActive,
		Description:    a.Description,
		Color:          a.Color,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// =============================================================================
// CARDS
// =============================================================================

type CreateCardRequest struct {
	Name           string           `json:"name"`
	CardType       string           `json:"card_type"`
	CardNetwork    string           `json:"card_network"`
	BankName       string           `json:"bank_name"`
	CreditLimit    *decimal.Decimal `json:"credit_limit,omitempty"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	MinimumPayment *decimal.Decimal `json:"minimum_payment,omitempty"`
	PaymentDueDate int              `json:"payment_due_date,omitempty"`
	CutOffDate     int              `json:"cut_off_date,omitempty"`
	APR            *decimal.Decimal `json:"apr,omitempty"`
	AnnualFee      *decimal.Decimal `json:"annual_fee,omitempty"`
	RewardsProgram string           `json:"rewards_program,omitempty"`
	Currency       string           `json:"currency"`
	Color          string           `json:"color,omitempty"`
	Description    string           `json:"description,omitempty"`
}

type UpdateCardRequest struct {
	Name           *string          `json:"name,omitempty"`
	BankName       *string          `json:"bank_name,omitempty"`
	CreditLimit    *decimal.Decimal `json:"credit_limit,omitempty"`
	MinimumPayment *decimal.Decimal `json:"minimum_payment,omitempty"`
	PaymentDueDate *int             `json:"payment_due_date,omitempty"`
	CutOffDate     *int             `json:"cut_off_date,omitempty"`
	APR            *decimal.Decimal `json:"apr,omitempty"`
	AnnualFee      *decimal.Decimal `json:"annual_fee,omitempty"`
	RewardsProgram *string          `json:"rewards_program,omitempty"`
	Color          *string          `json:"color,omitempty"`
	Description    *string          `json:"description,omitempty"`
	Status         *string          `json:"status,omitempty"`
}

type CardMovementRequest struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type CardResponse struct {
	CardID          string           `json:"card_id"`
	Name            string           `json:"name"`
	CardType        string           `json:"card_type"`
	CardNetwork     string           `json:"card_network"`
	BankName        string           `json:"bank_name"`
	CreditLimit     *decimal.Decimal `json:"credit_limit,omitempty"`
	CurrentBalance  decimal.Decimal  `json:"current_balance"`
	AvailableCredit *decimal.Decimal `json:"available_credit,omitempty"`
	MinimumPayment  *decimal.Decimal `json:"minimum_payment,omitempty"`
	PaymentDueDate  int              `json:"payment_due_date,omitempty"`
	DaysUntilDue    *int             `json:"days_until_due,omitempty"`
	CutOffDate      int              `json:"cut_off_date,omitempty"`
	APR             *decimal.Decimal `json:"apr,omitempty"`
	AnnualFee       *decimal.Decimal `json:"annual_fee,omitempty"`
	RewardsProgram  string           `json:"rewards_program,omitempty"`
	Currency        string           `json:"currency"`
	Color           string           `json:"color,omitempty"`
	Description     string           `json:"description,omitempty"`
	Status          string           `json:"status"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
}

type CardListResponse struct {
	Cards               []CardResponse             `json:"cards"`
	TotalCount          int                        `json:"total_count"`
	ActiveCount         int                        `json:"active_count"`
	DebtByCurrency      map[string]decimal.Decimal `json:"debt_by_currency"`
	AvailableByCurrency map[string]decimal.Decimal `json:"available_by_currency"`
}

func toCardResponse(c entity.Card, today time.Time) CardResponse {
	resp := CardResponse{
		CardID:          c.CardID,
		Name:            c.Name,
		CardType:        string(c.CardType),
		CardNetwork:     string(c.CardNetwork),
		BankName:        c.BankName,
		CreditLimit:     c.CreditLimit,
		CurrentBalance:  c.CurrentBalance,
		AvailableCredit: c.AvailableCredit(),
		MinimumPayment:  c.MinimumPayment,
		PaymentDueDate:  c.PaymentDueDate,
		CutOffDate:      c.CutOffDate,
		APR:             c.APR,
		AnnualFee:       c.AnnualFee,
		RewardsProgram:  c.RewardsProgram,
		Currency:        c.Currency,
		Color:           c.Color,
		Description:     c.Description,
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if days, ok := c.DaysUntilDue(today); ok {
		resp.DaysUntilDue = &days
	}
	return resp
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type CreateTransactionRequest struct {
	AccountID            string          `json:"account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description"`
	TransactionType      string          `json:"transaction_type"`
	Category             string          `json:"category"`
	TransactionDate      string          `json:"transaction_date,omitempty"`
	ReferenceNumber      string          `json:"reference_number,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	Location             string          `json:"location,omitempty"`
	Tags                 []string        `json:"tags,omitempty"`
	DestinationAccountID string          `json:"destination_account_id,omitempty"`
	IsRecurring          bool            `json:"is_recurring,omitempty"`
	RecurringFrequency   string          `json:"recurring_frequency,omitempty"`
}

type UpdateTransactionRequest struct {
	Description     *string          `json:"description,omitempty"`
	Category        *string          `json:"category,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	Location        *string          `json:"location,omitempty"`
	ReferenceNumber *string          `json:"reference_number,omitempty"`
	Tags            *[]string        `json:"tags,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	TransactionType *string          `json:"transaction_type,omitempty"`
	TransactionDate *string          `json:"transaction_date,omitempty"`
	Status          *string          `json:"status,omitempty"`
}

type TransactionResponse struct {
	TransactionID          string          `json:"transaction_id"`
	AccountID              string          `json:"account_id"`
	AccountName            string          `json:"account_name"`
	Amount                 decimal.Decimal `json:"amount"`
	Description            string          `json:"description"`
	TransactionType        string          `json:"transaction_type"`
	Category               string          `json:"category"`
	Status                 string          `json:"status"`
	TransactionDate        string          `json:"transaction_date"`
	ReferenceNumber        string          `json:"reference_number,omitempty"`
	Notes                  string          `json:"notes,omitempty"`
	Location               string          `json:"location,omitempty"`
	Tags                   []string        `json:"tags"`
	DestinationAccountID   string          `json:"destination_account_id,omitempty"`
	DestinationAccountName string          `json:"destination_account_name,omitempty"`
	AccountBalanceAfter    decimal.Decimal `json:"account_balance_after"`
	IsRecurring            bool            `json:"is_recurring,omitempty"`
	RecurringFrequency     string          `json:"recurring_frequency,omitempty"`
	CreatedAt              string          `json:"created_at"`
	UpdatedAt              string          `json:"updated_at"`
}

type TransactionListResponse struct {
	Transactions  []TransactionResponse `json:"transactions"`
	TotalCount    int                   `json:"total_count"`
	Page          int                   `json:"page"`
	PerPage       int                   `json:"per_page"`
	TotalIncome   decimal.Decimal       `json:"total_income"`
	TotalExpenses decimal.Decimal       `json:"total_expenses"`
	NetAmount     decimal.Decimal       `json:"net_amount"`
}

func toTransactionResponse(t entity.Transaction) TransactionResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TransactionResponse{
		TransactionID:          t.TransactionID,
		AccountID:              t.AccountID,
		AccountName:            t.AccountName,
		Amount:                 t.Amount,
		Description:            t.Description,
		TransactionType:        string(t.Type),
		Category:               string(t.Category),
		Status:                 string(t.Status),
		TransactionDate:        t.TransactionDate,
		ReferenceNumber:        t.ReferenceNumber,
		Notes:                  t.Notes,
		Location:               t.Location,
		Tags:                   tags,
		DestinationAccountID:   t.DestinationAccountID,
		DestinationAccountName: t.DestinationAccountName,
		AccountBalanceAfter:    t.AccountBalanceAfter,
		IsRecurring:            t.IsRecurring,
		RecurringFrequency:     string(t.RecurringFrequency),
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
}

func toTransactionListResponse(res query.Result) TransactionListResponse {
	out := TransactionListResponse{
		Transactions:  make([]TransactionResponse, 0, len(res.Transactions)),
		TotalCount:    res.TotalCount,
		Page:          res.Page,
		PerPage:       res.PerPage,
		TotalIncome:   res.TotalIncome,
		TotalExpenses: res.TotalExpenses,
		NetAmount:     res.NetAmount,
	}
	for _, t := range res.Transactions {
		out.Transactions = append(out.Transactions, toTransactionResponse(t))
	}
	return out
}

// =============================================================================
// SUMMARY
// =============================================================================

type SummaryResponse struct {
	Period               string                        `json:"period"`
	DateFrom             string                        `json:"date_from"`
	DateTo               string                        `json:"date_to"`
	TotalIncome          decimal.Decimal               `json:"total_income"`
	TotalExpenses        decimal.Decimal               `json:"total_expenses"`
	NetAmount            decimal.Decimal               `json:"net_amount"`
	TransactionCount     int                           `json:"transaction_count"`
	IncomeByCategory     map[string]decimal.Decimal    `json:"income_by_category"`
	ExpensesByCategory   map[string]decimal.Decimal    `json:"expenses_by_category"`
	ActivityByAccount    map[string]AccountActivityDTO `json:"activity_by_account"`
	TopIncomeCategories  []CategoryAmountDTO           `json:"top_income_categories"`
	TopExpenseCategories []CategoryAmountDTO           `json:"top_expense_categories"`
}

type AccountActivityDTO struct {
	AccountName      string          `json:"account_name"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	TransactionCount int             `json:"transaction_count"`
}

type CategoryAmountDTO struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

func toSummaryResponse(s query.Summary) SummaryResponse {
	out := SummaryResponse{
		Period:             s.Period,
		DateFrom:           s.DateFrom,
		DateTo:             s.DateTo,
		TotalIncome:        s.TotalIncome,
		TotalExpenses:      s.TotalExpenses,
		NetAmount:          s.NetAmount,
		TransactionCount:   s.TransactionCount,
		IncomeByCategory:   map[string]decimal.Decimal{},
		ExpensesByCategory: map[string]decimal.Decimal{},
		ActivityByAccount:  map[string]AccountActivityDTO{},
	}
	for c, v := range s.IncomeByCategory {
		out.IncomeByCategory[string(c)] = v
	}
	for c, v := range s.ExpensesByCategory {
		out.ExpensesByCategory[string(c)] = v
	}
	for id, act := range s.ActivityByAccount {
		out.ActivityByAccount[id] = AccountActivityDTO{
			AccountName:      act.AccountName,
			TotalIncome:      act.TotalIncome,
			TotalExpenses:    act.TotalExpenses,
			NetAmount:        act.NetAmount,
			TransactionCount: act.TransactionCount,
		}
	}
	for _, ca := range s.TopIncomeCategories {
		out.TopIncomeCategories = append(out.TopIncomeCategories,
			CategoryAmountDTO{Category: string(ca.Category), Amount: ca.Amount})
	}
	for _, ca := range s.TopExpenseCategories {
		out.TopExpenseCategories = append(out.TopExpenseCategories,
			CategoryAmountDTO{Category: string(ca.Category), Amount: ca.Amount})
	}
	return out
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error string `json:"error"`

	// Set only for partial transfers, so the caller can reconcile.
	PartialTransfer *PartialTransferDTO `json:"partial_transfer,omitempty"`
}

type PartialTransferDTO struct {
	SourceTransactionID  string          `json:"source_transaction_id"`
	SourceAccountID      string          `json:"source_account_id"`
	DestinationAccountID string          `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
}

func toPartialTransferDTO(e *ledger.PartialTransferError) *PartialTransferDTO {
	return &PartialTransferDTO{
		SourceTransactionID:  e.SourceTransactionID,
		SourceAccountID:      e.SourceAccountID,
		DestinationAccountID: e.DestinationAccountID,
		Amount:               e.Amount,
	}
}
