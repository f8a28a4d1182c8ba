package searchagent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 5 * time.Second

// Response is the agent answer.
type Response struct {
	Personalised string   `json:"personalised"`
	Summary      string   `json:"summary"`
	Links        []string `json:"links"`
}

// HealthStatus represents the aggregated service health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

type searchRequest struct {
	SearchQuery string `json:"search_query"`
	UserID      string `json:"user_id,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is the searchagent API entry point. Safe for concurrent use.
type Client struct {
	http *resty.Client
	obs  *observer
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("searchagent: base URL required")
	}
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(cfg.timeout).
		SetHeader("Accept", "application/json")
	if cfg.apiKey != "" {
		rc.SetAuthToken(cfg.apiKey)
	}
	return &Client{http: rc, obs: obs}, nil
}

// Search asks the agent one question.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (resp Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	body := searchRequest{SearchQuery: query}
	for _, o := range opts {
		o(&body)
	}

	var (
		out     Response
		errResp errorBody
	)
	r, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&errResp).
		Post("/search")
	if err != nil {
		return Response{}, fmt.Errorf("searchagent: search: %w", err)
	}
	if r.IsError() {
		return Response{}, apiError(r.StatusCode(), errResp)
	}
	if out.Links == nil {
		out.Links = []string{}
	}
	return out, nil
}

// Ping checks liveness.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	var errResp errorBody
	r, err := c.http.R().SetContext(ctx).SetError(&errResp).Get("/ping")
	if err != nil {
		return fmt.Errorf("searchagent: ping: %w", err)
	}
	if r.IsError() {
		return apiError(r.StatusCode(), errResp)
	}
	return nil
}

// Health returns the aggregated collaborator health. A 503 report is
// returned as a status, not an error.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	var out HealthStatus
	r, err := c.http.R().SetContext(ctx).SetResult(&out).SetError(&out).Get("/health")
	if err != nil {
		return HealthStatus{}, fmt.Errorf("searchagent: health: %w", err)
	}
	if r.IsError() && r.StatusCode() != http.StatusServiceUnavailable {
		return HealthStatus{}, apiError(r.StatusCode(), errorBody{Message: r.String()})
	}
	return out, nil
}

func apiError(status int, body errorBody) error {
	kind := ErrServer
	switch {
	case status == http.StatusUnauthorized:
		kind = ErrUnauthorized
	case status >= 400 && status < 500:
		kind = ErrValidation
	}
	return &APIError{StatusCode: status, Code: body.Code, Message: body.Message, kind: kind}
}
