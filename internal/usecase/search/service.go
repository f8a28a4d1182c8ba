package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/searchagent/internal/domain"
	"github.com/kailas-cloud/searchagent/internal/domain/personalization"
	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
	"github.com/kailas-cloud/searchagent/internal/domain/safety"
	"github.com/kailas-cloud/searchagent/internal/domain/search/request"
	"github.com/kailas-cloud/searchagent/internal/domain/search/response"
	"github.com/kailas-cloud/searchagent/internal/logger"
	"github.com/kailas-cloud/searchagent/internal/metrics"
)

// Config holds the per-branch deadlines. Retries run inside these deadlines.
type Config struct {
	RetrievalTimeout       time.Duration
	PersonalizationTimeout time.Duration
	SafetyTimeout          time.Duration
}

// DefaultConfig fits both parallel branches plus the safety gate in a 2s budget.
func DefaultConfig() Config {
	return Config{
		RetrievalTimeout:       1200 * time.Millisecond,
		PersonalizationTimeout: 1200 * time.Millisecond,
		SafetyTimeout:          600 * time.Millisecond,
	}
}

// Service orchestrates retrieval, personalization and the safety gate.
type Service struct {
	cfg          Config
	retriever    Retriever
	personalizer Personalizer
	validator    Validator
}

// New creates the orchestrator. A nil personalizer disables personalization.
// Zero timeouts fall back to DefaultConfig.
func New(cfg Config, retriever Retriever, personalizer Personalizer, validator Validator) *Service {
	def := DefaultConfig()
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = def.RetrievalTimeout
	}
	if cfg.PersonalizationTimeout <= 0 {
		cfg.PersonalizationTimeout = def.PersonalizationTimeout
	}
	if cfg.SafetyTimeout <= 0 {
		cfg.SafetyTimeout = def.SafetyTimeout
	}
	return &Service{
		cfg:          cfg,
		retriever:    retriever,
		personalizer: personalizer,
		validator:    validator,
	}
}

// Handle answers one search request. It fails only for malformed input,
// before any collaborator is called; every downstream failure degrades into
// a valid response.
func (s *Service) Handle(ctx context.Context, req request.Request) (response.Response, error) {
	if err := req.Validate(); err != nil {
		return response.Response{}, fmt.Errorf("validate request: %w", err)
	}

	start := time.Now()
	log := logger.FromContext(ctx).With(logger.Query(req.Query()), logger.Identity(req.Identity()))

	var (
		rb retrievalBranch
		pb = personalizationBranch{outcome: outcomeSkipped}
		g  errgroup.Group
	)
	g.Go(func() error {
		rb = s.retrieve(ctx, req.Query())
		return nil
	})
	if !req.Anonymous() && s.personalizer != nil {
		g.Go(func() error {
			pb = s.personalize(ctx, req.Query(), req.Identity())
			return nil
		})
	}
	_ = g.Wait() // branches absorb their own failures

	s.recordBranch(log, "retrieval", rb.outcome, rb.err)
	s.recordBranch(log, "personalization", pb.outcome, pb.err,
		zap.String("tool", pb.result.ToolUsed()))

	draft := decide(rb, pb)

	out, err := runWithDeadline(ctx, s.cfg.SafetyTimeout, func(ctx context.Context) (safety.Outcome, error) {
		return s.validator.Validate(ctx, draft)
	})
	verdict := gate(draft, out, err)
	s.recordVerdict(log, verdict, err)

	resp := response.Assemble(draft, verdict, !req.Anonymous())

	metrics.OrchestrationDuration.Observe(time.Since(start).Seconds())
	log.Info("Search handled",
		zap.String("decision", string(verdict.Decision)),
		zap.Int("links", len(resp.Links)),
		zap.Bool("personalised", resp.Personalised != ""),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (s *Service) retrieve(ctx context.Context, query string) retrievalBranch {
	res, err := runWithDeadline(ctx, s.cfg.RetrievalTimeout, func(ctx context.Context) (retrieval.Result, error) {
		return s.retriever.Retrieve(ctx, query)
	})
	switch {
	case err != nil:
		return retrievalBranch{outcome: failureOutcome(err), err: err}
	case res.Empty():
		return retrievalBranch{result: res, outcome: outcomeEmpty}
	default:
		return retrievalBranch{result: res, outcome: outcomeSuccess}
	}
}

func (s *Service) personalize(ctx context.Context, query, identity string) personalizationBranch {
	topic := personalization.TopicFromQuery(query)
	res, err := runWithDeadline(ctx, s.cfg.PersonalizationTimeout, func(ctx context.Context) (personalization.Result, error) {
		return s.personalizer.Personalize(ctx, topic, identity)
	})
	switch {
	case err != nil:
		return personalizationBranch{outcome: failureOutcome(err), err: err}
	case !res.Succeeded():
		return personalizationBranch{outcome: outcomeFailure, err: errors.New("personalization did not succeed")}
	case res.Empty():
		return personalizationBranch{result: res, outcome: outcomeEmpty}
	default:
		return personalizationBranch{result: res, outcome: outcomeSuccess}
	}
}

func (s *Service) recordBranch(log *zap.Logger, branch, outcome string, err error, fields ...zap.Field) {
	metrics.BranchOutcomesTotal.WithLabelValues(branch, outcome).Inc()
	fields = append(fields, zap.String("branch", branch), zap.String("outcome", outcome))
	if err != nil {
		log.Warn("Branch degraded", append(fields, zap.Error(err))...)
		return
	}
	log.Debug("Branch completed", fields...)
}

func (s *Service) recordVerdict(log *zap.Logger, v safety.Verdict, err error) {
	metrics.SafetyDecisionsTotal.WithLabelValues(string(v.Decision)).Inc()
	switch v.Decision {
	case safety.Approved:
		return
	case safety.FailedClosed:
		log.Error("Safety validator unavailable, failing closed", zap.Error(err))
	default:
		log.Warn("Draft blocked",
			zap.String("decision", string(v.Decision)),
			zap.Strings("violations", v.Violations),
			zap.Error(domain.ErrSafetyBlocked),
		)
	}
}

// runWithDeadline returns by the deadline even when call ignores ctx.
// A late result is dropped; the buffered channel lets the call goroutine exit.
func runWithDeadline[T any](ctx context.Context, d time.Duration, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := call(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %w", domain.ErrTimeout, ctx.Err())
	}
}

func failureOutcome(err error) string {
	if errors.Is(err, domain.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return outcomeTimeout
	}
	return outcomeFailure
}
