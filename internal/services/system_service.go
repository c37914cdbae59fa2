package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/repositories"
)

// BuildInfo is the release metadata reported by the probes.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	health repositories.HealthRepository
	now    func() time.Time
	build  BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService builds the readiness reporter. A zero Build.StartedAt means "now".
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	svc := &systemService{
		health: deps.HealthRepository,
		now:    func() time.Time { return now().UTC() },
		build:  deps.Build,
	}
	if svc.build.StartedAt.IsZero() {
		svc.build.StartedAt = svc.now()
	}
	return svc, nil
}

// HealthReport probes the dependencies and stamps the report with build metadata. Values already
// set by the repository win.
func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	if ctx == nil {
		return SystemHealthReport{}, errors.New("system service: context is required")
	}
	report, err := s.health.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}

	now := s.now()
	report.GeneratedAt = orNow(report.GeneratedAt, now)
	fill(&report.Version, s.build.Version)
	fill(&report.CommitSHA, s.build.CommitSHA)
	fill(&report.Environment, s.build.Environment)
	if report.Uptime <= 0 {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	if report.Checks == nil {
		report.Checks = make(map[string]domain.SystemHealthCheck)
	}
	if report.Status == "" {
		report.Status = worstStatus(report.Checks)
	}
	return report, nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}

func fill(dst *string, fallback string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = fallback
	}
}

// worstStatus ranks error over degraded over ok. Unknown statuses count as degraded.
func worstStatus(checks map[string]domain.SystemHealthCheck) domain.HealthStatus {
	worst := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case "", domain.HealthStatusOK:
		case domain.HealthStatusError:
			return domain.HealthStatusError
		default:
			worst = domain.HealthStatusDegraded
		}
	}
	return worst
}
