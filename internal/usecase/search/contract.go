package search

import (
	"context"

	"github.com/kailas-cloud/searchagent/internal/domain/personalization"
	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
	"github.com/kailas-cloud/searchagent/internal/domain/safety"
)

// Retriever answers a query from the knowledge base.
// An empty result (Result.Empty) is a successful "nothing found" answer.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
}

// Personalizer discovers and invokes a personalization tool for identity.
// No matching tool is a success with empty content, never an error.
type Personalizer interface {
	Personalize(ctx context.Context, topic, identity string) (personalization.Result, error)
}

// Validator checks a draft against the content-safety policy.
type Validator interface {
	Validate(ctx context.Context, draft safety.Draft) (safety.Outcome, error)
}
