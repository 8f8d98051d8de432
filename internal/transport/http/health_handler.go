package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	service HealthChecker
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(service HealthChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// Liveness handles GET /healthz. It answers as long as the process can
// serve requests at all.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Liveness(r.Context()))
}

// Readiness handles GET /readyz. A failed store ping answers 503 so load
// balancers stop routing here; stale enrichment only degrades the payload.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	status, ready := h.service.Readiness(r.Context())
	if !ready {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}
