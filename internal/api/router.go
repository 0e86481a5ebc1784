package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/studiocast-core/internal/auth"
)

// healthCheckTimeout bounds each component check on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.requirePermission(auth.PermCameraRead)).Get("/cameras", s.handleListCameras)

			r.Route("/rooms/{id}/camera", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermCameraRead)).Get("/", s.handleGetCamera)
				r.With(s.requirePermission(auth.PermCameraOperate)).Post("/start", s.handleStartCamera)
				r.With(s.requirePermission(auth.PermCameraOperate)).Post("/stop", s.handleStopCamera)
			})

			r.With(s.requirePermission(auth.PermScheduleRead)).Get("/schedules/{id}/status", s.handleScheduleStatus)
			r.With(s.requirePermission(auth.PermAuditRead)).Get("/schedule-executions", s.handleListExecutions)
			r.With(s.requirePermission(auth.PermSchedulerRun)).Post("/scheduler/tick", s.handleSchedulerTick)
		})
	})

	return r
}

// handleHealth returns the server health status. Any failing component
// reports "degraded" with a 503 so load balancers can act on it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.healthChecks))
	status, code := "ok", http.StatusOK

	for name, checker := range s.healthChecks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"cameras":    len(s.supervisor.List()),
		"components": components,
	})
}
