package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/hanko-field/storefront/internal/domain"
)

func TestDependencyHealthRepositoryCollect(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	upstreamErr := errors.New("catalog: list categories: API Error: 503 Service Unavailable")

	cases := []struct {
		name        string
		checks      []DependencyCheck
		wantStatus  domain.HealthStatus
		wantDetails map[string]string
	}{
		{
			name: "all healthy",
			checks: []DependencyCheck{
				{Name: "kvstore", Check: func(context.Context) error { return nil }},
				{Name: "catalog", Check: func(context.Context) error { return nil }},
			},
			wantStatus:  domain.HealthStatusOK,
			wantDetails: map[string]string{"kvstore": "ok", "catalog": "ok"},
		},
		{
			name: "catalog degraded",
			checks: []DependencyCheck{
				{Name: "kvstore", Check: func(context.Context) error { return nil }},
				{Name: "catalog", Check: func(context.Context) error { return upstreamErr }},
			},
			wantStatus:  domain.HealthStatusDegraded,
			wantDetails: map[string]string{"kvstore": "ok", "catalog": upstreamErr.Error()},
		},
		{
			name: "store timeout",
			checks: []DependencyCheck{
				{Name: "kvstore", Critical: true, Timeout: 5 * time.Millisecond, Check: func(ctx context.Context) error {
					<-ctx.Done()
					return ctx.Err()
				}},
				{Name: "catalog", Check: func(context.Context) error { return upstreamErr }},
			},
			wantStatus:  domain.HealthStatusError,
			wantDetails: map[string]string{"kvstore": "timeout", "catalog": upstreamErr.Error()},
		},
		{
			name: "optional timeout only degrades",
			checks: []DependencyCheck{
				{Name: "kvstore", Critical: true, Check: func(context.Context) error { return nil }},
				{Name: "catalog", Timeout: 5 * time.Millisecond, Check: func(ctx context.Context) error {
					<-ctx.Done()
					return ctx.Err()
				}},
			},
			wantStatus:  domain.HealthStatusDegraded,
			wantDetails: map[string]string{"kvstore": "ok", "catalog": "timeout"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, err := NewDependencyHealthRepository(tc.checks, WithDependencyClock(func() time.Time { return now }))
			if err != nil {
				t.Fatalf("NewDependencyHealthRepository: %v", err)
			}
			report, err := repo.Collect(context.Background())
			if err != nil {
				t.Fatalf("Collect: %v", err)
			}
			if report.Status != tc.wantStatus {
				t.Fatalf("expected status %s, got %s", tc.wantStatus, report.Status)
			}
			if report.GeneratedAt != now {
				t.Fatalf("expected generatedAt %s, got %s", now, report.GeneratedAt)
			}
			for name, detail := range tc.wantDetails {
				check, ok := report.Checks[name]
				if !ok {
					t.Fatalf("missing check %s", name)
				}
				if check.Detail != detail {
					t.Fatalf("check %s: expected detail %q, got %q", name, detail, check.Detail)
				}
				if check.CheckedAt != now {
					t.Fatalf("check %s: expected checkedAt %s, got %s", name, now, check.CheckedAt)
				}
			}
		})
	}
}

func TestNewDependencyHealthRepositoryValidatesChecks(t *testing.T) {
	if _, err := NewDependencyHealthRepository(nil); err == nil {
		t.Fatalf("expected error for empty checks")
	}
	if _, err := NewDependencyHealthRepository([]DependencyCheck{{Name: " ", Check: func(context.Context) error { return nil }}}); err == nil {
		t.Fatalf("expected error for unnamed check")
	}
	if _, err := NewDependencyHealthRepository([]DependencyCheck{{Name: "kvstore"}}); err == nil {
		t.Fatalf("expected error for missing check function")
	}
	ok := func(context.Context) error { return nil }
	if _, err := NewDependencyHealthRepository([]DependencyCheck{{Name: "kvstore", Check: ok}, {Name: "kvstore", Check: ok}}); err == nil {
		t.Fatalf("expected error for duplicate check names")
	}
}
