package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-collage/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	configHandler := handlers.NewConfigHandler(s.config)
	layoutHandler := handlers.NewLayoutHandler(s.runner, s.jobManager, s.logger)
	detectHandler := handlers.NewDetectHandler(s.detector, s.logger)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/config", configHandler.Get)

		// Synchronous layout
		r.Post("/layout", layoutHandler.Layout)

		// Async layout jobs
		r.Get("/layout/jobs", layoutHandler.List)
		r.Post("/layout/jobs", layoutHandler.StartJob)
		r.Get("/layout/jobs/{jobId}", layoutHandler.Status)
		r.Get("/layout/jobs/{jobId}/events", layoutHandler.Events)
		r.Delete("/layout/jobs/{jobId}", layoutHandler.Cancel)

		// Keep-region detection
		r.Post("/detect", detectHandler.Detect)
	})
}
