// Package resilience wraps collaborator calls with bounded retries and a
// circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/slok/goresilience"
	"github.com/slok/goresilience/circuitbreaker"
	gerrors "github.com/slok/goresilience/errors"

	"github.com/kailas-cloud/searchagent/internal/domain"
	"github.com/kailas-cloud/searchagent/internal/metrics"
)

// Config tunes one collaborator's policy.
type Config struct {
	Retries             int
	BackoffBase         time.Duration
	BackoffMax          time.Duration
	Jitter              time.Duration
	BreakerErrorPercent int
	BreakerMinRequests  int
	BreakerOpen         time.Duration
}

// DefaultConfig returns the policy used when no tuning is supplied.
func DefaultConfig() Config {
	return Config{
		Retries:             2,
		BackoffBase:         50 * time.Millisecond,
		BackoffMax:          400 * time.Millisecond,
		Jitter:              20 * time.Millisecond,
		BreakerErrorPercent: 50,
		BreakerMinRequests:  10,
		BreakerOpen:         5 * time.Second,
	}
}

// Policy runs calls to a single upstream. Safe for concurrent use.
type Policy struct {
	upstream string
	cfg      Config
	breaker  goresilience.Runner
}

// NewPolicy creates a policy for upstream. Zero fields in cfg fall back to DefaultConfig.
func NewPolicy(upstream string, cfg Config) *Policy {
	def := DefaultConfig()
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = def.BackoffMax
	}
	if cfg.BreakerErrorPercent <= 0 {
		cfg.BreakerErrorPercent = def.BreakerErrorPercent
	}
	if cfg.BreakerMinRequests <= 0 {
		cfg.BreakerMinRequests = def.BreakerMinRequests
	}
	if cfg.BreakerOpen <= 0 {
		cfg.BreakerOpen = def.BreakerOpen
	}

	cb := circuitbreaker.NewMiddleware(circuitbreaker.Config{
		ErrorPercentThresholdToOpen:        cfg.BreakerErrorPercent,
		MinimumRequestToOpen:               cfg.BreakerMinRequests,
		SuccessfulRequiredOnHalfOpen:       1,
		WaitDurationInOpenState:            cfg.BreakerOpen,
		MetricsSlidingWindowBucketQuantity: 10,
		MetricsBucketDuration:              time.Second,
	})

	return &Policy{
		upstream: upstream,
		cfg:      cfg,
		breaker:  goresilience.RunnerChain(cb),
	}
}

// Upstream returns the collaborator name used in metrics and errors.
func (p *Policy) Upstream() string { return p.upstream }

// Do runs fn until it succeeds, fails permanently, or the retry budget or
// ctx is exhausted. Only transient failures are retried and counted by the
// breaker. An open breaker fails fast with domain.ErrCircuitOpen.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var permanent error
	attempt := 0

	err := p.breaker.Run(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
			if attempt > 0 {
				metrics.UpstreamRetriesTotal.WithLabelValues(p.upstream).Inc()
			}
			attempt++

			start := time.Now()
			callErr := fn(ctx)
			metrics.UpstreamRequestDuration.WithLabelValues(p.upstream).Observe(time.Since(start).Seconds())
			metrics.UpstreamRequestsTotal.WithLabelValues(p.upstream, status(callErr)).Inc()

			switch {
			case callErr == nil:
				return nil
			case domain.Retryable(callErr):
				return retry.RetryableError(callErr)
			case ctx.Err() != nil:
				return callErr
			default:
				// permanent failures are the caller's fault, not the upstream's
				permanent = callErr
				return nil
			}
		})
	})

	if permanent != nil {
		return permanent
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, gerrors.ErrCircuitOpen) {
		metrics.UpstreamRequestsTotal.WithLabelValues(p.upstream, "circuit_open").Inc()
		return fmt.Errorf("%s: %w", p.upstream, domain.ErrCircuitOpen)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", p.upstream, domain.ErrTimeout, err)
	}
	return err
}

func (p *Policy) backoff() retry.Backoff {
	b := retry.NewExponential(p.cfg.BackoffBase)
	b = retry.WithCappedDuration(p.cfg.BackoffMax, b)
	if p.cfg.Jitter > 0 {
		b = retry.WithJitter(p.cfg.Jitter, b)
	}
	return retry.WithMaxRetries(uint64(p.cfg.Retries), b)
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrUpstreamRejected):
		return "rejected"
	default:
		return "unavailable"
	}
}
