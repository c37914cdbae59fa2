package handlers

import (
	"net/http"
	"slices"
	"time"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/services"
)

// HealthHandlers serves /healthz and /readyz.
type HealthHandlers struct {
	system services.SystemService
	build  services.BuildInfo
	clock  func() time.Time
}

type HealthOption func(*HealthHandlers)

func WithHealthSystemService(svc services.SystemService) HealthOption {
	return func(h *HealthHandlers) { h.system = svc }
}

func WithHealthBuildInfo(info services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) { h.build = info }
}

func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers without a system service reports ready unconditionally.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

type livenessPayload struct {
	Status      domain.HealthStatus `json:"status"`
	Version     string              `json:"version,omitempty"`
	CommitSHA   string              `json:"commit_sha,omitempty"`
	Environment string              `json:"environment,omitempty"`
	Uptime      string              `json:"uptime"`
	Timestamp   string              `json:"timestamp"`
}

type readinessPayload struct {
	Status      domain.HealthStatus          `json:"status"`
	Version     string                       `json:"version,omitempty"`
	CommitSHA   string                       `json:"commit_sha,omitempty"`
	Environment string                       `json:"environment,omitempty"`
	Uptime      string                       `json:"uptime,omitempty"`
	GeneratedAt string                       `json:"generated_at,omitempty"`
	Checks      map[string]dependencyPayload `json:"checks"`
	Failing     []string                     `json:"failing"`
}

type dependencyPayload struct {
	Status    domain.HealthStatus `json:"status"`
	Detail    string              `json:"detail,omitempty"`
	Error     string              `json:"error,omitempty"`
	LatencyMS int64               `json:"latency_ms"`
	CheckedAt string              `json:"checked_at,omitempty"`
}

// Healthz is liveness only; it never touches a dependency.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	now := h.clock().UTC()
	writeJSONResponse(w, http.StatusOK, livenessPayload{
		Status:      domain.HealthStatusOK,
		Version:     h.build.Version,
		CommitSHA:   h.build.CommitSHA,
		Environment: h.build.Environment,
		Uptime:      now.Sub(h.build.StartedAt).Round(time.Second).String(),
		Timestamp:   now.Format(time.RFC3339),
	})
}

// Readyz answers 503 only when the report is "error". A degraded catalog keeps the instance in
// rotation so carts and orders stay reachable.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	payload := readinessPayload{
		Status:  domain.HealthStatusOK,
		Checks:  map[string]dependencyPayload{},
		Failing: []string{},
	}
	if h.system == nil {
		writeJSONResponse(w, http.StatusOK, payload)
		return
	}

	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		payload.Status = domain.HealthStatusError
		payload.Failing = append(payload.Failing, err.Error())
		writeJSONResponse(w, http.StatusServiceUnavailable, payload)
		return
	}

	payload.Status = report.Status
	payload.Version = report.Version
	payload.CommitSHA = report.CommitSHA
	payload.Environment = report.Environment
	payload.Uptime = report.Uptime.Round(time.Second).String()
	payload.GeneratedAt = formatTime(report.GeneratedAt)
	for name, check := range report.Checks {
		payload.Checks[name] = dependencyPayload{
			Status:    check.Status,
			Detail:    check.Detail,
			Error:     check.Error,
			LatencyMS: check.Latency.Milliseconds(),
			CheckedAt: formatTime(check.CheckedAt),
		}
		if check.Status != domain.HealthStatusOK {
			payload.Failing = append(payload.Failing, name)
		}
	}
	slices.Sort(payload.Failing)

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, payload)
}
