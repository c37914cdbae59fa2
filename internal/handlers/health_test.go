package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/services"
)

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

var _ services.SystemService = (*stubSystemService)(nil)

func readyz(t *testing.T, svc services.SystemService) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHealthHandlers(WithHealthSystemService(svc), WithHealthClock(fixedClock))
	rr := httptest.NewRecorder()
	h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	return rr
}

func TestHealthzReportsBuild(t *testing.T) {
	h := NewHealthHandlers(
		WithHealthBuildInfo(services.BuildInfo{Version: "2.0.1", CommitSHA: "f00d", Environment: "prod", StartedAt: testNow.Add(-45 * time.Second)}),
		WithHealthClock(fixedClock),
	)
	rr := httptest.NewRecorder()
	h.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	expectStatus(t, rr, http.StatusOK)
	body := decodeBody(t, rr)
	want := map[string]any{
		"status":      "ok",
		"version":     "2.0.1",
		"commit_sha":  "f00d",
		"environment": "prod",
		"uptime":      "45s",
		"timestamp":   "2024-03-01T09:30:00Z",
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("unexpected liveness body (-want +got):\n%s", diff)
	}
}

func TestReadyzStatusCodes(t *testing.T) {
	tests := []struct {
		name        string
		svc         *stubSystemService
		wantStatus  int
		wantReport  string
		wantFailing []any
	}{
		{
			name: "all ok",
			svc: &stubSystemService{report: services.SystemHealthReport{
				Status: domain.HealthStatusOK,
				Checks: map[string]domain.SystemHealthCheck{"kvstore": {Status: domain.HealthStatusOK, Latency: 12 * time.Millisecond}},
			}},
			wantStatus:  http.StatusOK,
			wantReport:  "ok",
			wantFailing: []any{},
		},
		{
			name: "degraded catalog stays in rotation",
			svc: &stubSystemService{report: services.SystemHealthReport{
				Status: domain.HealthStatusDegraded,
				Checks: map[string]domain.SystemHealthCheck{
					"kvstore": {Status: domain.HealthStatusOK},
					"catalog": {Status: domain.HealthStatusDegraded, Error: "503"},
				},
			}},
			wantStatus:  http.StatusOK,
			wantReport:  "degraded",
			wantFailing: []any{"catalog"},
		},
		{
			name: "store down",
			svc: &stubSystemService{report: services.SystemHealthReport{
				Status: domain.HealthStatusError,
				Checks: map[string]domain.SystemHealthCheck{
					"kvstore": {Status: domain.HealthStatusError, Detail: "timeout"},
					"catalog": {Status: domain.HealthStatusDegraded},
				},
			}},
			wantStatus:  http.StatusServiceUnavailable,
			wantReport:  "error",
			wantFailing: []any{"catalog", "kvstore"},
		},
		{
			name:        "report failure",
			svc:         &stubSystemService{err: errors.New("probe crashed")},
			wantStatus:  http.StatusServiceUnavailable,
			wantReport:  "error",
			wantFailing: []any{"probe crashed"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := readyz(t, tc.svc)
			expectStatus(t, rr, tc.wantStatus)
			body := decodeBody(t, rr)
			if body["status"] != tc.wantReport {
				t.Fatalf("expected report %q, got %v", tc.wantReport, body["status"])
			}
			if diff := cmp.Diff(tc.wantFailing, body["failing"]); diff != "" {
				t.Fatalf("unexpected failing list (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadyzReportsCheckLatency(t *testing.T) {
	rr := readyz(t, &stubSystemService{report: services.SystemHealthReport{
		Status: domain.HealthStatusOK,
		Checks: map[string]domain.SystemHealthCheck{"kvstore": {Status: domain.HealthStatusOK, Latency: 12 * time.Millisecond, CheckedAt: testNow}},
	}})
	check := decodeBody(t, rr)["checks"].(map[string]any)["kvstore"].(map[string]any)
	if check["latency_ms"] != float64(12) || check["checked_at"] != "2024-03-01T09:30:00Z" {
		t.Fatalf("unexpected check payload: %v", check)
	}
}

func TestReadyzWithoutSystemService(t *testing.T) {
	h := NewHealthHandlers()
	rr := httptest.NewRecorder()
	h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	expectStatus(t, rr, http.StatusOK)
}
