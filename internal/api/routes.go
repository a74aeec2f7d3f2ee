package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"scale-dashboard/internal/logs"
)

// NewRouter wires every endpoint behind the request-id, recovery and
// access-log middleware.
func NewRouter(h *Handler, logger *logs.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		RequestIDMiddleware,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)

	r.Route("/api/jobs", func(r chi.Router) {
		r.Post("/build", h.BuildJob)
		r.Post("/build-many", h.BuildJobs)
		r.Get("/{id}", h.GetJob)
	})

	r.Route("/api/nodes", func(r chi.Router) {
		r.Put("/", h.PutNodes)
		r.Get("/health", h.GetNodeHealth)
		r.Get("/health/stream", h.StreamNodeHealth)
	})

	// Observability
	r.Get("/metrics", h.GetMetrics)
	r.Get("/health", h.GetHealth)
	r.Get("/healthz", h.Healthz)

	// Admin
	r.Get("/admin/logs", h.GetLogs)
	r.Get("/admin/upstream", h.GetUpstream)

	return r
}
