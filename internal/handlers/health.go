package handlers

import (
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/shutterbay/api/internal/services"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	system  services.SystemService
	started time.Time
	clock   func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthClock overrides the clock used for uptime reporting.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthStartedAt sets the process start time reported by /healthz.
func WithHealthStartedAt(started time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.started = started
	}
}

// NewHealthHandlers constructs probe handlers. A nil system service reports ready unconditionally.
func NewHealthHandlers(system services.SystemService, opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{system: system, clock: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	if h.started.IsZero() {
		h.started = h.clock()
	}
	return h
}

// Healthz reports liveness without touching dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.started).Round(time.Second).String(),
		"timestamp": now.Format(time.RFC3339),
	})
}

type readinessCheckPayload struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Readyz runs dependency probes and answers 503 when any fails.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	report := services.ReadinessReport{Ready: true}
	if h.system != nil {
		report = h.system.Readiness(r.Context())
	}
	status, label := http.StatusOK, "ok"
	if !report.Ready {
		status, label = http.StatusServiceUnavailable, "unavailable"
	}
	writeJSONResponse(w, status, map[string]any{
		"status": label,
		"checks": lo.Map(report.Checks, func(check services.ReadinessCheck, _ int) readinessCheckPayload {
			return readinessCheckPayload{Name: check.Name, Healthy: check.Healthy, Error: check.Error}
		}),
	})
}
