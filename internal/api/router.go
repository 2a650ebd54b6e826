// Package api assembles the HTTP surface: chi routes over the statement,
// job and session handlers, wrapped in the shared middleware chain.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/varunidealabs/cash-flow-analyzer/internal/api/handlers"
	"github.com/varunidealabs/cash-flow-analyzer/internal/api/middleware"
	"golang.org/x/time/rate"
)

// Deps are the collaborators the router needs. Limiter may be nil to
// disable rate limiting.
type Deps struct {
	Log        zerolog.Logger
	Limiter    *rate.Limiter
	Statements *handlers.StatementsHandler
	Jobs       *handlers.JobsHandler
	Sessions   *handlers.SessionsHandler
}

// NewRouter builds the HTTP handler for the API server.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(middleware.RateLimit(d.Limiter))
		}

		r.Post("/statements", d.Statements.Upload)

		r.Get("/jobs", d.Jobs.ListJobs)
		r.Get("/jobs/{id}", d.Jobs.GetJob)

		r.Get("/sessions", d.Sessions.ListSessions)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", d.Sessions.GetSession)
			r.Delete("/", d.Sessions.DeleteSession)
			r.Get("/transactions", d.Sessions.ListTransactions)
			r.Get("/charts", d.Sessions.Charts)
			r.Get("/insights", d.Sessions.Insights)
			r.Get("/export.xlsx", d.Sessions.ExportExcel)
			r.Get("/export.csv", d.Sessions.ExportCSV)
			r.Post("/notion-sync", d.Sessions.NotionSync)
		})
	})

	return r
}
