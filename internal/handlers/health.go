package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sagoresarker/irr-prefix-lookup/internal/models"
)

// ReadinessChecker reports per-check status; ok is false if any failed.
type ReadinessChecker interface {
	Check(ctx context.Context) (status map[string]string, ok bool)
}

type HealthHandler struct {
	checker ReadinessChecker
}

// NewHealthHandler returns a handler whose readiness probe uses checker. A
// nil checker makes readiness equal to liveness.
func NewHealthHandler(checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Handle is the liveness probe.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, models.ReadinessResponse{Status: "ok"})
}

// Ready reports whether the tools and the IRR server are usable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeJSON(w, r, http.StatusOK, models.ReadinessResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks, ok := h.checker.Check(ctx)
	if !ok {
		writeJSON(w, r, http.StatusServiceUnavailable, models.ReadinessResponse{Status: "unavailable", Checks: checks})
		return
	}
	writeJSON(w, r, http.StatusOK, models.ReadinessResponse{Status: "ok", Checks: checks})
}
