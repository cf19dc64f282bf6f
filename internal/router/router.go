// Package router sets up all HTTP routes and middleware chains for the
// CityPulse API server.
package router

import (
	"github.com/go-chi/chi/v5"

	"citypulse/internal/handlers"
	"citypulse/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(health *handlers.Health, events *handlers.Events, tax *handlers.Taxonomy) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", health.Check)

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", events.List)
			r.Get("/{id}", events.Detail)
		})

		r.Get("/taxonomy", tax.Tree)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/taxonomy", tax.AdminTree)
		})
	})

	return r
}
