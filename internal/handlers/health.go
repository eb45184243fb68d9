package handlers

import (
	"net/http"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
	"github.com/theranostics-labs/portal-api/internal/services"
)

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	system services.SystemService
}

// NewHealthHandlers constructs health handlers; system may be nil, in which
// case readiness reports ok without dependency probes.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{system: system}
}

// Healthz is the liveness probe: the process is up.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteSuccess(w, http.StatusOK, "ok", map[string]any{"status": "ok"})
}

// Readyz runs dependency probes and reports 503 when a dependency is down.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		httpx.WriteSuccess(w, http.StatusOK, "ready", map[string]any{"status": "ok"})
		return
	}

	report, err := h.system.HealthReport(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("health_report_failed", "health report unavailable", http.StatusServiceUnavailable))
		return
	}

	checks := make(map[string]any, len(report.Checks))
	for name, check := range report.Checks {
		entry := map[string]any{
			"status":     string(check.Status),
			"latency_ms": check.Latency.Milliseconds(),
		}
		if check.Detail != "" {
			entry["detail"] = check.Detail
		}
		if check.Error != "" {
			entry["error"] = check.Error
		}
		checks[name] = entry
	}

	data := map[string]any{
		"status":      string(report.Status),
		"checks":      checks,
		"version":     report.Version,
		"commit":      report.CommitSHA,
		"environment": report.Environment,
		"uptime":      report.Uptime.String(),
	}

	if report.Status == domain.HealthStatusError {
		httpx.WriteError(ctx, w, httpx.NewError("not_ready", "dependencies unavailable", http.StatusServiceUnavailable).WithDetails(data))
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "ready", data)
}
