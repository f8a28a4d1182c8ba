// Package ragapi implements the knowledge-retrieval client against a
// retrieve-and-generate HTTP service.
package ragapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kailas-cloud/searchagent/internal/domain"
	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
)

const upstream = "ragapi"

// Config holds the HTTP driver settings.
type Config struct {
	Endpoint        string
	Model           string
	NumberOfResults int
	APIKey          string
	// Timeout caps a single attempt; the branch deadline still applies.
	Timeout time.Duration
}

type generateRequest struct {
	Query           string `json:"query"`
	Model           string `json:"model"`
	NumberOfResults int    `json:"number_of_results"`
}

type generateResponse struct {
	Summary   string   `json:"summary"`
	Citations []string `json:"citations"`
}

type errorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Retriever calls POST {endpoint}/v1/retrieve-and-generate.
type Retriever struct {
	client          *resty.Client
	model           string
	numberOfResults int
}

// NewRetriever creates an HTTP retriever. resty retries are left off; the
// resilience policy owns them.
func NewRetriever(cfg Config) *Retriever {
	n := cfg.NumberOfResults
	if n <= 0 {
		n = 10
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Retriever{client: client, model: cfg.Model, numberOfResults: n}
}

// Retrieve asks the service for a grounded answer.
func (r *Retriever) Retrieve(ctx context.Context, query string) (retrieval.Result, error) {
	var out generateResponse
	var apiErr errorResponse

	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(generateRequest{Query: query, Model: r.model, NumberOfResults: r.numberOfResults}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/retrieve-and-generate")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return retrieval.Result{}, fmt.Errorf("%s: %w: %w", upstream, domain.ErrTimeout, err)
		}
		return retrieval.Result{}, domain.Unavailable(upstream, 0, err)
	}

	if resp.IsError() {
		return retrieval.Result{}, statusError(resp.StatusCode(), apiErr)
	}

	return retrieval.FromGenerated(out.Summary, out.Citations), nil
}

// HealthCheck probes GET {endpoint}/health.
func (r *Retriever) HealthCheck(ctx context.Context) error {
	resp, err := r.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("health: status %d", resp.StatusCode())
	}
	return nil
}

func statusError(status int, body errorResponse) error {
	msg := body.Message
	if msg == "" {
		msg = body.Detail
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	cause := errors.New(msg)
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout {
		return domain.Unavailable(upstream, status, cause)
	}
	return domain.Rejected(upstream, status, cause)
}
