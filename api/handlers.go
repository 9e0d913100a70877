/*
handlers.go - HTTP API handlers for the finance ledger

PURPOSE:
  Exposes the ledger via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/auth/register          Register a new user
    POST   /api/auth/login             Exchange credentials for a token

  Profile:
    GET    /api/me                     Current user profile
    PUT    /api/me                     Update name or currency
    DELETE /api/me                     Deactivate the account

  Accounts:
    GET    /api/accounts               List accounts with totals
    POST   /api/accounts               Create account
    GET    /api/accounts/{id}          Get account
    PUT    /api/accounts/{id}          Update descriptive fields
    PATCH  /api/accounts/{id}/balance  Manual balance adjustment (delta)
    DELETE /api/accounts/{id}          Soft delete

  Cards:
    GET    /api/cards                  List cards with debt totals
    POST   /api/cards                  Create card
    GET    /api/cards/{id}             Get card (derived fields included)
    PUT    /api/cards/{id}             Update card
    DELETE /api/cards/{id}             Soft delete
    POST   /api/cards/{id}/movements   Record a debt movement
    POST   /api/cards/{id}/payments    Record a payment

  Transactions:
    GET    /api/transactions           Filtered, sorted, paginated list
    POST   /api/transactions           Record transaction (incl. transfers)
    GET    /api/transactions/summary   Period analytics
    GET    /api/transactions/{id}      Get transaction
    PUT    /api/transactions/{id}      Partial update
    DELETE /api/transactions/{id}      Delete and restore balance

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger, query)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, bad period bounds
  - 401: Missing/invalid credentials or token
  - 403: Deactivated (locked) user
  - 404: Resource not found
  - 409: Duplicate keys, frozen financial fields, inactive targets
  - 502: Transfer committed on one side only (body carries the committed leg)
  - 503: Store unavailable

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/auth"
	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/query"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	ledger   *ledger.Ledger
	query    *query.Service
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time

	onAuthenticated func(userID string)
}

func NewHandler(l *ledger.Ledger, q *query.Service, secret []byte, tokenTTL time.Duration) *Handler {
	return &Handler{
		ledger:   l,
		query:    q,
		secret:   secret,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// WithClock fixes the handler's clock. Used by tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// OnAuthenticated registers a callback invoked with the user id of every
// authenticated request. The recurring scheduler uses it to learn which
// partitions to visit.
func (h *Handler) OnAuthenticated(fn func(userID string)) {
	h.onAuthenticated = fn
}

type contextKey string

const userIDKey contextKey = "user_id"

// userID returns the authenticated user id placed by RequireAuth.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// RequireAuth verifies the bearer token and stashes the subject user id
// in the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			writeErrorMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.VerifyAccessToken(raw, h.secret)
		if err != nil {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if h.onAuthenticated != nil {
			h.onAuthenticated(claims.Subject)
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// =============================================================================
// AUTH
// =============================================================================

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email, password, and name are required")
		return
	}
	if req.Currency == "" {
		req.Currency = "MXN"
	}

	hash, err := auth.HashPassword(req.Password, auth.DefaultParams())
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := h.ledger.RegisterUser(r.Context(), ledger.RegisterUserInput{
		Email:        req.Email,
		Name:         req.Name,
		Currency:     req.Currency,
		PasswordHash: hash,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := auth.NewAccessToken(u.UserID, u.Email, h.secret, h.tokenTTL, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: toUserResponse(u)})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := h.ledger.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if ledger.IsNotFound(err) {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, err)
		return
	}
	if !u.IsActive {
		writeErrorMessage(w, http.StatusForbidden, "account is locked")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, u.PasswordHash)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		attempts, recErr := h.ledger.RecordFailedLogin(r.Context(), u.UserID)
		if recErr == nil && attempts >= ledger.FailedLoginThreshold {
			writeErrorMessage(w, http.StatusForbidden, "account locked after repeated failures")
			return
		}
		writeErrorMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.ledger.RecordSuccessfulLogin(r.Context(), u.UserID); err != nil {
		writeError(w, err)
		return
	}
	token, err := auth.NewAccessToken(u.UserID, u.Email, h.secret, h.tokenTTL, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: toUserResponse(u)})
}

// =============================================================================
// PROFILE
// =============================================================================

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.ledger.GetUser(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     *string `json:"name,omitempty"`
		Currency *string `json:"currency,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := h.ledger.UpdateUser(r.Context(), userID(r), ledger.UpdateUserInput{
		Name:     req.Name,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) DeactivateProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeactivateUser(r.Context(), userID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.AccountType == "" || req.BankName == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name, account_type, and bank_name are required")
		return
	}
	if req.Currency == "" {
		req.Currency = "MXN"
	}

	a, err := h.ledger.CreateAccount(r.Context(), userID(r), ledger.CreateAccountInput{
		Name:           req.Name,
		AccountType:    entity.AccountType(req.AccountType),
		BankName:       req.BankName,
		BankCode:       req.BankCode,
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
		Description:    req.Description,
		Color:          req.Color,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(a))
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	filter := ledger.ListAccountsFilter{
		Type:       entity.AccountType(r.URL.Query().Get("account_type")),
		ActiveOnly: r.URL.Query().Get("active_only") == "true",
	}
	accounts, summary, err := h.ledger.ListAccounts(r.Context(), userID(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := AccountListResponse{
		Accounts:          make([]AccountResponse, 0, len(accounts)),
		TotalCount:        summary.TotalCount,
		ActiveCount:       summary.ActiveCount,
		BalanceByCurrency: summary.BalanceByCurrency,
	}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.ledger.GetAccount(r.Context(), userID(r), chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a, err := h.ledger.UpdateAccount(r.Context(), userID(r), chi.URLParam(r, "accountID"),
		ledger.UpdateAccountInput{
			Name:        req.Name,
			BankName:    req.BankName,
			BankCode:    req.BankCode,
			Description: req.Description,
			Color:       req.Color,
		})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

// AdjustAccountBalance applies a manual signed delta to an active
// account's balance. The delta path, not a wholesale balance write.
func (h *Handler) AdjustAccountBalance(w http.ResponseWriter, r *http.Request) {
	var req AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a, err := h.ledger.AdjustBalance(r.Context(), userID(r), chi.URLParam(r, "accountID"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeactivateAccount(r.Context(), userID(r), chi.URLParam(r, "accountID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CARDS
// =============================================================================

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.CardType == "" || req.BankName == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name, card_type, and bank_name are required")
		return
	}
	if req.Currency == "" {
		req.Currency = "MXN"
	}

	c, err := h.ledger.CreateCard(r.Context(), userID(r), ledger.CreateCardInput{
		Name:           req.Name,
		CardType:       entity.CardType(req.CardType),
		CardNetwork:    entity.CardNetwork(req.CardNetwork),
		BankName:       req.BankName,
		CreditLimit:    req.CreditLimit,
		InitialBalance: req.InitialBalance,
		MinimumPayment: req.MinimumPayment,
		PaymentDueDate: req.PaymentDueDate,
		CutOffDate:     req.CutOffDate,
		APR:            req.APR,
		AnnualFee:      req.AnnualFee,
		RewardsProgram: req.RewardsProgram,
		Currency:       req.Currency,
		Color:          req.Color,
		Description:    req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardResponse(c, h.now()))
}

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	filter := ledger.ListCardsFilter{
		Type:       entity.CardType(r.URL.Query().Get("card_type")),
		ActiveOnly: r.URL.Query().Get("active_only") == "true",
	}
	cards, summary, err := h.ledger.ListCards(r.Context(), userID(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := CardListResponse{
		Cards:               make([]CardResponse, 0, len(cards)),
		TotalCount:          summary.TotalCount,
		ActiveCount:         summary.ActiveCount,
		DebtByCurrency:      summary.DebtByCurrency,
		AvailableByCurrency: summary.AvailableByCurrency,
	}
	today := h.now()
	for _, c := range cards {
		resp.Cards = append(resp.Cards, toCardResponse(c, today))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	c, err := h.ledger.GetCard(r.Context(), userID(r), chi.URLParam(r, "cardID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardResponse(c, h.now()))
}

func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var req UpdateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in := ledger.UpdateCardInput{
		Name:           req.Name,
		BankName:       req.BankName,
		CreditLimit:    req.CreditLimit,
		MinimumPayment: req.MinimumPayment,
		PaymentDueDate: req.PaymentDueDate,
		CutOffDate:     req.CutOffDate,
		APR:            req.APR,
		AnnualFee:      req.AnnualFee,
		RewardsProgram: req.RewardsProgram,
		Color:          req.Color,
		Description:    req.Description,
	}
	if req.Status != nil {
		status := entity.CardStatus(*req.Status)
		in.Status = &status
	}
	c, err := h.ledger.UpdateCard(r.Context(), userID(r), chi.URLParam(r, "cardID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardResponse(c, h.now()))
}

func (h *Handler) DeactivateCard(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeactivateCard(r.Context(), userID(r), chi.URLParam(r, "cardID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RecordCardMovement(w http.ResponseWriter, r *http.Request) {
	var req CardMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := h.ledger.RecordCardMovement(r.Context(), userID(r), chi.URLParam(r, "cardID"),
		ledger.CardMovement(req.Type), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardResponse(c, h.now()))
}

func (h *Handler) RecordCardPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := h.ledger.RecordCardPayment(r.Context(), userID(r), chi.URLParam(r, "cardID"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardResponse(c, h.now()))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AccountID == "" || req.Description == "" || req.TransactionType == "" || req.Category == "" {
		writeErrorMessage(w, http.StatusBadRequest,
			"account_id, description, transaction_type, and category are required")
		return
	}

	t, err := h.ledger.RecordTransaction(r.Context(), userID(r), ledger.RecordTransactionInput{
		AccountID:            req.AccountID,
		Amount:               req.Amount,
		Description:          req.Description,
		Type:                 entity.TransactionType(req.TransactionType),
		Category:             entity.Category(req.Category),
		TransactionDate:      req.TransactionDate,
		ReferenceNumber:      req.ReferenceNumber,
		Notes:                req.Notes,
		Location:             req.Location,
		Tags:                 req.Tags,
		DestinationAccountID: req.DestinationAccountID,
		IsRecurring:          req.IsRecurring,
		RecurringFrequency:   entity.RecurringFrequency(req.RecurringFrequency),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.query.List(r.Context(), userID(r), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionListResponse(res))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.ledger.GetTransaction(r.Context(), userID(r), chi.URLParam(r, "transactionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in := ledger.UpdateTransactionInput{
		Description:     req.Description,
		Notes:           req.Notes,
		Location:        req.Location,
		ReferenceNumber: req.ReferenceNumber,
		Tags:            req.Tags,
		Amount:          req.Amount,
		TransactionDate: req.TransactionDate,
	}
	if req.Category != nil {
		c := entity.Category(*req.Category)
		in.Category = &c
	}
	if req.TransactionType != nil {
		t := entity.TransactionType(*req.TransactionType)
		in.Type = &t
	}
	if req.Status != nil {
		s := entity.TransactionStatus(*req.Status)
		in.Status = &s
	}
	t, err := h.ledger.UpdateTransaction(r.Context(), userID(r), chi.URLParam(r, "transactionID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteTransaction(r.Context(), userID(r), chi.URLParam(r, "transactionID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TransactionSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := query.SummaryRequest{
		Period:    query.Period(q.Get("period")),
		From:      q.Get("start_date"),
		To:        q.Get("end_date"),
		AccountID: q.Get("account_id"),
	}
	s, err := h.query.Summarize(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(s))
}

// filterFromQuery parses list query parameters into a query.Filter.
func filterFromQuery(r *http.Request) (query.Filter, error) {
	q := r.URL.Query()
	f := query.Filter{
		AccountID:  q.Get("account_id"),
		Type:       entity.TransactionType(q.Get("transaction_type")),
		Category:   entity.Category(q.Get("category")),
		Status:     entity.TransactionStatus(q.Get("status")),
		DateFrom:   q.Get("start_date"),
		DateTo:     q.Get("end_date"),
		SearchTerm: q.Get("search"),
		SortBy:     query.SortField(q.Get("sort_by")),
		SortDesc:   q.Get("sort_order") == "desc",
	}
	if tags := q.Get("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if t := strings.TrimSpace(tag); t != "" {
				f.Tags = append(f.Tags, t)
			}
		}
	}
	if raw := q.Get("min_amount"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return query.Filter{}, errors.New("invalid min_amount")
		}
		f.AmountMin = &d
	}
	if raw := q.Get("max_amount"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return query.Filter{}, errors.New("invalid max_amount")
		}
		f.AmountMax = &d
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return query.Filter{}, errors.New("invalid page")
		}
		f.Page = n
	}
	if raw := q.Get("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return query.Filter{}, errors.New("invalid per_page")
		}
		f.PerPage = n
	}
	return f, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeError translates a domain error into an HTTP status. Partial
// transfers get a body carrying the committed leg so the caller can
// reconcile.
func writeError(w http.ResponseWriter, err error) {
	var partial *ledger.PartialTransferError
	if errors.As(err, &partial) {
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:           partial.Error(),
			PartialTransfer: toPartialTransferDTO(partial),
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case ledger.IsNotFound(err):
		status = http.StatusNotFound
	case ledger.IsConflict(err), ledger.IsInvalidState(err):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrPreconditionFailed),
		errors.Is(err, query.ErrCustomRangeRequired):
		status = http.StatusBadRequest
	case ledger.IsRetryable(err):
		status = http.StatusServiceUnavailable
	}
	writeErrorMessage(w, status, err.Error())
}
