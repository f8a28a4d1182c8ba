package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a non-critical component failed; answers lose quality but still flow.
	Degraded Status = "degraded"
	// Unhealthy indicates a critical component failed; every answer would be a refusal.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache    CachePinger
	checkers map[string]Checker
	critical map[string]bool
}

// New creates a Service. cache can be nil. Failures of checkers named in
// critical make the report Unhealthy instead of Degraded.
func New(cache CachePinger, checkers map[string]Checker, critical ...string) *Service {
	crit := make(map[string]bool, len(critical))
	for _, name := range critical {
		crit[name] = true
	}
	return &Service{cache: cache, checkers: checkers, critical: crit}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
			status = Degraded
		} else {
			checks["cache"] = CheckOK
		}
	}

	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.checkers[name].HealthCheck(ctx); err != nil {
			checks[name] = CheckError
			if s.critical[name] {
				status = Unhealthy
			} else if status == Healthy {
				status = Degraded
			}
			continue
		}
		checks[name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
