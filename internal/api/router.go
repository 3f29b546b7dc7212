// Package api provides HTTP router setup.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rankproof/rankproof/internal/config"
	"github.com/rankproof/rankproof/internal/database"
	"github.com/rankproof/rankproof/internal/domains"
	"github.com/rankproof/rankproof/internal/proof"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg *config.Config, engine *proof.Engine, availability *domains.Service, store database.Store) http.Handler {
	r := chi.NewRouter()

	handler := NewHandler(engine, availability, store)

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", handler.HealthCheck)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(store))
			r.Use(AuditMiddleware(store))
			r.Use(RateLimitMiddleware(cfg.RateLimits.RequestsPerMinute))

			// Proof pipeline
			r.Post("/proof", handler.GenerateProof)
			r.Get("/proof", handler.ListProofRecords)
			r.Get("/proof/{id}", handler.GetProofRecord)

			// Domain availability
			r.Post("/domains/check", handler.CheckDomain)

			// Audit logs
			r.Get("/audit", handler.GetAuditLogs)
		})

		// Admin routes (API key management)
		// In production, these should be protected differently
		r.Route("/admin", func(r chi.Router) {
			r.Post("/keys", handler.CreateAPIKey)
			r.Get("/keys", handler.ListAPIKeys)
			r.Delete("/keys/{id}", handler.DeleteAPIKey)
		})
	})

	return r
}
