package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockCachePinger struct {
	err error
}

func (m *mockCachePinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockCachePinger{}, map[string]Checker{
		"retrieval":       &mockChecker{},
		"personalization": &mockChecker{},
		"safety":          &mockChecker{},
	}, "safety")
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"cache", "retrieval", "personalization", "safety"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_CacheError(t *testing.T) {
	svc := New(&mockCachePinger{err: errors.New("conn refused")}, map[string]Checker{
		"retrieval": &mockChecker{},
	})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["cache"] != CheckError {
		t.Errorf("expected cache %q, got %q", CheckError, r.Checks["cache"])
	}
	if r.Checks["retrieval"] != CheckOK {
		t.Errorf("expected retrieval %q, got %q", CheckOK, r.Checks["retrieval"])
	}
}

func TestCheck_NonCriticalError(t *testing.T) {
	svc := New(nil, map[string]Checker{
		"personalization": &mockChecker{err: errors.New("timeout")},
		"safety":          &mockChecker{},
	}, "safety")
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["personalization"] != CheckError {
		t.Error("expected personalization error")
	}
}

func TestCheck_CriticalError(t *testing.T) {
	svc := New(&mockCachePinger{err: errors.New("down")}, map[string]Checker{
		"safety":    &mockChecker{err: errors.New("guardrail down")},
		"retrieval": &mockChecker{err: errors.New("kb down")},
	}, "safety")
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["safety"] != CheckError || r.Checks["retrieval"] != CheckError {
		t.Errorf("unexpected checks %v", r.Checks)
	}
}

func TestCheck_NoCache(t *testing.T) {
	svc := New(nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["cache"]; ok {
		t.Error("cache check should be absent when cache is nil")
	}
}
