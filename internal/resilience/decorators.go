package resilience

import (
	"context"

	"github.com/kailas-cloud/searchagent/internal/domain/personalization"
	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
	"github.com/kailas-cloud/searchagent/internal/domain/safety"
)

// Retriever is the local interface for the knowledge-retrieval client.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
}

// Personalizer is the local interface for the personalization client.
type Personalizer interface {
	Personalize(ctx context.Context, topic, identity string) (personalization.Result, error)
}

// Validator is the local interface for the safety client.
type Validator interface {
	Validate(ctx context.Context, draft safety.Draft) (safety.Outcome, error)
}

// ResilientRetriever runs a Retriever under a Policy.
type ResilientRetriever struct {
	inner  Retriever
	policy *Policy
}

// NewRetriever wraps inner with policy.
func NewRetriever(inner Retriever, policy *Policy) *ResilientRetriever {
	return &ResilientRetriever{inner: inner, policy: policy}
}

// Retrieve delegates to the inner retriever with retries and circuit breaking.
func (r *ResilientRetriever) Retrieve(ctx context.Context, query string) (retrieval.Result, error) {
	var res retrieval.Result
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = r.inner.Retrieve(ctx, query)
		return err //nolint:wrapcheck // classified by the policy
	})
	if err != nil {
		return retrieval.Result{}, err
	}
	return res, nil
}

// ResilientPersonalizer runs a Personalizer under a Policy.
type ResilientPersonalizer struct {
	inner  Personalizer
	policy *Policy
}

// NewPersonalizer wraps inner with policy.
func NewPersonalizer(inner Personalizer, policy *Policy) *ResilientPersonalizer {
	return &ResilientPersonalizer{inner: inner, policy: policy}
}

// Personalize delegates to the inner personalizer with retries and circuit breaking.
func (p *ResilientPersonalizer) Personalize(ctx context.Context, topic, identity string) (personalization.Result, error) {
	var res personalization.Result
	err := p.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = p.inner.Personalize(ctx, topic, identity)
		return err //nolint:wrapcheck // classified by the policy
	})
	if err != nil {
		return personalization.Result{}, err
	}
	return res, nil
}

// ResilientValidator runs a Validator under a Policy.
type ResilientValidator struct {
	inner  Validator
	policy *Policy
}

// NewValidator wraps inner with policy.
func NewValidator(inner Validator, policy *Policy) *ResilientValidator {
	return &ResilientValidator{inner: inner, policy: policy}
}

// Validate delegates to the inner validator with retries and circuit breaking.
func (v *ResilientValidator) Validate(ctx context.Context, draft safety.Draft) (safety.Outcome, error) {
	var out safety.Outcome
	err := v.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = v.inner.Validate(ctx, draft)
		return err //nolint:wrapcheck // classified by the policy
	})
	if err != nil {
		return safety.Outcome{}, err
	}
	return out, nil
}
