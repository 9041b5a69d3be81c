/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for a frontend

SECURITY NOTE:
  No authentication middleware. Identity is an opaque path parameter
  supplied by the host environment; authn/z is out of scope here.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
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
		// Per-user routes
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/entries", h.ListEntries)
			r.Post("/entries", h.CreateEntry)

			r.Get("/earnings", h.PeriodEarnings)
			r.Get("/months/{year}/{month}", h.GetMonth)
			r.Get("/months/{year}/{month}/summary", h.GetMonthSummary)
			r.Get("/carryovers", h.ListCarryovers)

			r.Get("/rates", h.ListRates)
			r.Post("/rates", h.ChangeRate)
			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpdateSettings)
		})

		// Entry routes addressed by entry id
		r.Route("/entries", func(r chi.Router) {
			r.Put("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
		})

		// Global minijob cap routes
		r.Route("/minijob", func(r chi.Router) {
			r.Get("/", h.GetMinijobSettings)
			r.Get("/history", h.ListMinijobSettings)
			r.Put("/", h.UpdateMinijobSettings)
		})
	})

	return r
}
