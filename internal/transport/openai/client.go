// Package openai implements the content-safety validator and the
// personalization tool selector over an OpenAI-compatible API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchagent/internal/domain"
)

// Config holds the OpenAI-compatible provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// parseAPIError maps provider errors onto the upstream error taxonomy.
// 5xx, 429 and 408 are transient; other HTTP errors are rejections.
func parseAPIError(upstream string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", upstream, domain.ErrTimeout, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return byStatus(upstream, reqErr.HTTPStatusCode, fmt.Errorf("api error: %s", detail))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return byStatus(upstream, apiErr.HTTPStatusCode, fmt.Errorf("api error: %s", apiErr.Message))
	}

	return domain.Unavailable(upstream, 0, err)
}

func byStatus(upstream string, status int, cause error) error {
	if status >= http.StatusInternalServerError ||
		status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout {
		return domain.Unavailable(upstream, status, cause)
	}
	return domain.Rejected(upstream, status, cause)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
