/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/accounts/*         Chart of accounts
  /api/documents/*        Invoices, credit notes, purchases
  /api/ledger/*           Ledger queries and entry validation
  /api/bank/*             Bank transaction import and listing
  /api/reconciliation/*   Matching suggestions, apply/undo, records
  /api/reports/*          VAT summary, statement rubrics, CSV exports

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/compta/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.CreateDocument)
			r.Get("/{id}", h.GetDocument)
			r.Post("/{id}/confirm", h.ConfirmDocument)
			r.Post("/{id}/payments", h.RecordPayment)
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/", h.ListLedgerLines)
			r.Get("/pieces/{pieceId}", h.GetPieceLines)
			r.Post("/validate", h.ValidateEntry)
		})

		r.Route("/bank", func(r chi.Router) {
			r.Get("/transactions", h.ListBankTransactions)
			r.Post("/transactions", h.ImportBankTransactions)
		})

		r.Route("/reconciliation", func(r chi.Router) {
			r.Get("/suggestions", h.SuggestMatches)
			r.Post("/apply", h.ApplyMatch)
			r.Post("/undo", h.UndoMatch)
			r.Get("/records", h.ListReconciliations)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/vat", h.VATReport)
			r.Get("/vat.csv", h.VATReportCSV)
			r.Get("/statement", h.StatementReport)
			r.Get("/reconciliation.csv", h.ReconciliationCSV)
		})
	})

	return r
}
