package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed caller input. It is the only error that
	// crosses the orchestrator boundary.
	ErrValidation = errors.New("validation failed")
	// ErrUpstreamUnavailable signals a transient collaborator failure (network, 5xx, throttling).
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamRejected signals a permanent collaborator failure (bad request, access denied).
	ErrUpstreamRejected = errors.New("upstream rejected request")
	// ErrCircuitOpen signals that a collaborator's circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrSafetyBlocked signals that the safety validator rejected the draft.
	ErrSafetyBlocked = errors.New("blocked by safety validator")
	// ErrTimeout signals that a branch exceeded its deadline.
	ErrTimeout = errors.New("deadline exceeded")
)

// UpstreamError wraps a collaborator failure with the upstream name and status for diagnostics.
type UpstreamError struct {
	Upstream string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Upstream, e.Status, e.Err.Error())
	}
	return e.Upstream + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Unavailable wraps cause as a transient failure of upstream.
func Unavailable(upstream string, status int, cause error) error {
	return &UpstreamError{Upstream: upstream, Status: status, Err: fmt.Errorf("%w: %w", ErrUpstreamUnavailable, cause)}
}

// Rejected wraps cause as a permanent failure of upstream.
func Rejected(upstream string, status int, cause error) error {
	return &UpstreamError{Upstream: upstream, Status: status, Err: fmt.Errorf("%w: %w", ErrUpstreamRejected, cause)}
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUpstreamRejected) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrValidation) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable)
}
