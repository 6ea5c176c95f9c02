// Package api wires the HTTP handlers into a router.
package api

import (
	"net/http"

	"github.com/dvloznov/statement-extractor/internal/api/handlers"
	"github.com/dvloznov/statement-extractor/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the endpoint handlers served by NewRouter.
type Handlers struct {
	Statements   *handlers.StatementsHandler
	Transactions *handlers.TransactionsHandler
	Jobs         *handlers.JobsHandler
}

// NewRouter builds the HTTP router with the middleware chain applied.
// corsOrigins restricts browser access; none means any origin.
func NewRouter(log zerolog.Logger, h Handlers, corsOrigins ...string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(corsOrigins...))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/statements", h.Statements.Submit)
		r.Post("/transactions/check", h.Transactions.Check)
		r.Get("/jobs", h.Jobs.ListJobs)
		r.Get("/jobs/{id}", h.Jobs.GetJob)
	})

	return r
}
