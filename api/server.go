/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:      Request logging
  2. Recoverer:   Panic recovery (500 instead of crash)
  3. RequestID:   Unique ID per request for tracing
  4. CORS:        Cross-origin requests for frontend
  5. RequireAuth: Bearer token verification (everything but /api/auth)

ROUTE GROUPS:
  /api/auth/*           Register and login (public)
  /api/me               Profile of the authenticated user
  /api/accounts/*       Bank account management
  /api/cards/*          Card management and movements
  /api/transactions/*   Ledger operations, queries, analytics
  /health               Liveness probe (public)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public: registration and login
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		// Everything below requires a valid token
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.GetProfile)
				r.Put("/", h.UpdateProfile)
				r.Delete("/", h.DeactivateProfile)
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", h.ListAccounts)
				r.Post("/", h.CreateAccount)
				r.Get("/{accountID}", h.GetAccount)
				r.Put("/{accountID}", h.UpdateAccount)
				r.Patch("/{accountID}/balance", h.AdjustAccountBalance)
				r.Delete("/{accountID}", h.DeactivateAccount)
			})

			r.Route("/cards", func(r chi.Router) {
				r.Get("/", h.ListCards)
				r.Post("/", h.CreateCard)
				r.Get("/{cardID}", h.GetCard)
				r.Put("/{cardID}", h.UpdateCard)
				r.Delete("/{cardID}", h.DeactivateCard)
				r.Post("/{cardID}/movements", h.RecordCardMovement)
				r.Post("/{cardID}/payments", h.RecordCardPayment)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.Post("/", h.CreateTransaction)
				// "summary" must register before "{transactionID}"
				r.Get("/summary", h.TransactionSummary)
				r.Get("/{transactionID}", h.GetTransaction)
				r.Put("/{transactionID}", h.UpdateTransaction)
				r.Delete("/{transactionID}", h.DeleteTransaction)
			})
		})
	})

	return r
}
