package handlers

import (
	"net/http"
	"time"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/platform/httpx"
	"github.com/fetchkids/api/internal/services"
)

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	system    services.SystemService
	startedAt time.Time
	clock     func() time.Time
}

// NewHealthHandlers constructs the health endpoints. A nil system service
// leaves /readyz always ready, which suits tests and local runs.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{
		system:    system,
		startedAt: time.Now(),
		clock:     time.Now,
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	httpx.WriteSuccess(r.Context(), w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.startedAt).String(),
		"timestamp": now.Format(time.RFC3339),
	})
}

// Readyz probes downstream dependencies.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		httpx.WriteSuccess(ctx, w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}

	report, err := h.system.HealthReport(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_ready", "dependency probes failed", http.StatusServiceUnavailable))
		return
	}

	checks := make(map[string]any, len(report.Checks))
	for name, check := range report.Checks {
		entry := map[string]any{
			"status":    string(check.Status),
			"latencyMs": check.Latency.Milliseconds(),
		}
		if check.Detail != "" {
			entry["detail"] = check.Detail
		}
		checks[name] = entry
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	if status != http.StatusOK {
		httpx.WriteError(ctx, w, httpx.NewError("not_ready", "one or more dependencies are down", status).WithDetails(map[string]any{
			"checks": checks,
		}))
		return
	}

	httpx.WriteSuccess(ctx, w, status, map[string]any{
		"status": string(report.Status),
		"checks": checks,
	})
}
