package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

type probeFunc func(context.Context) error

func (f probeFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestSystemServiceReadiness(t *testing.T) {
	svc := NewSystemService(SystemServiceDeps{Probes: map[string]ReadinessProbe{
		"redis":     probeFunc(func(context.Context) error { return errors.New("connection refused") }),
		"firestore": probeFunc(func(context.Context) error { return nil }),
		"disabled":  nil,
	}})

	report := svc.Readiness(context.Background())
	if report.Ready {
		t.Fatalf("expected not ready")
	}
	if len(report.Checks) != 2 || report.Checks[0].Name != "firestore" || report.Checks[1].Name != "redis" {
		t.Fatalf("unexpected checks %+v", report.Checks)
	}
	if report.Checks[1].Error != "connection refused" || report.Checks[1].Healthy {
		t.Fatalf("unexpected redis check %+v", report.Checks[1])
	}
}

func TestSystemServiceReadinessTimesOutSlowProbes(t *testing.T) {
	svc := NewSystemService(SystemServiceDeps{
		ProbeTimeout: 20 * time.Millisecond,
		Probes: map[string]ReadinessProbe{
			"firestore": probeFunc(func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}),
		},
	})

	report := svc.Readiness(context.Background())
	if report.Ready || report.Checks[0].Healthy {
		t.Fatalf("expected slow probe to fail, got %+v", report)
	}
}

func TestSystemServiceReadyWithoutProbes(t *testing.T) {
	report := NewSystemService(SystemServiceDeps{}).Readiness(context.Background())
	if !report.Ready || len(report.Checks) != 0 {
		t.Fatalf("expected ready empty report, got %+v", report)
	}
}
