package health

import (
	"context"
	"sort"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// checkTimeout bounds each component probe.
const checkTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type namedPinger struct {
	name string
	p    Pinger
}

// Service coordinates health checks.
type Service struct {
	stores []namedPinger
	ai     AIChecker
}

// New creates a Service. ai can be nil when classification is disabled.
func New(ai AIChecker) *Service {
	return &Service{ai: ai}
}

// WithStore adds a named store probe.
func (s *Service) WithStore(name string, p Pinger) *Service {
	if p != nil {
		s.stores = append(s.stores, namedPinger{name: name, p: p})
	}
	return s
}

// Components lists the probed component names.
func (s *Service) Components() []string {
	names := make([]string, 0, len(s.stores)+1)
	for _, st := range s.stores {
		names = append(names, st.name)
	}
	if s.ai != nil {
		names = append(names, "ai")
	}
	sort.Strings(names)
	return names
}

// Check runs health checks against all components.
// Every failing component degrades the report; all failing makes it unhealthy.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.stores)+1)

	for _, st := range s.stores {
		checks[st.name] = probe(ctx, st.p.Ping)
	}
	if s.ai != nil {
		checks["ai"] = probe(ctx, s.ai.HealthCheck)
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == 0:
	case failed == len(checks):
		status = Unhealthy
	default:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func probe(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
