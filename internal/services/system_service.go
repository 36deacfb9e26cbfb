package services

import (
	"context"
	"sort"
	"sync"
	"time"
)

const defaultProbeTimeout = 3 * time.Second

// SystemServiceDeps lists named readiness probes, e.g. "firestore" and "redis".
type SystemServiceDeps struct {
	Probes       map[string]ReadinessProbe
	ProbeTimeout time.Duration
}

type systemService struct {
	probes  map[string]ReadinessProbe
	timeout time.Duration
}

// NewSystemService constructs the readiness reporter.
func NewSystemService(deps SystemServiceDeps) SystemService {
	timeout := deps.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probes := make(map[string]ReadinessProbe, len(deps.Probes))
	for name, probe := range deps.Probes {
		if probe != nil {
			probes[name] = probe
		}
	}
	return &systemService{probes: probes, timeout: timeout}
}

// Readiness runs every probe concurrently. The report is ready only when all probes pass.
func (s *systemService) Readiness(ctx context.Context) ReadinessReport {
	checks := make([]ReadinessCheck, 0, len(s.probes))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, probe := range s.probes {
		wg.Add(1)
		go func(name string, probe ReadinessProbe) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			check := ReadinessCheck{Name: name, Healthy: true}
			if err := probe.Ping(ctx); err != nil {
				check.Healthy = false
				check.Error = err.Error()
			}
			mu.Lock()
			checks = append(checks, check)
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	report := ReadinessReport{Ready: true, Checks: checks}
	for _, check := range checks {
		report.Ready = report.Ready && check.Healthy
	}
	return report
}
