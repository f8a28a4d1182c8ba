package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchagent/internal/domain"
	"github.com/kailas-cloud/searchagent/internal/domain/safety"
)

const moderationUpstream = "openai-moderation"

// Moderator validates drafts with the moderation endpoint. It never rewrites
// content, so a flagged draft is always refused.
type Moderator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewModerator creates a moderation-backed validator.
func NewModerator(cfg *Config) *Moderator {
	return &Moderator{
		client: newClient(cfg),
		model:  cfg.Model,
		logger: loggerOrNop(cfg.Logger),
	}
}

// Validate submits the combined draft text for moderation.
func (m *Moderator) Validate(ctx context.Context, draft safety.Draft) (safety.Outcome, error) {
	resp, err := m.client.Moderations(ctx, openai.ModerationRequest{
		Input: draft.Text(),
		Model: m.model,
	})
	if err != nil {
		return safety.Outcome{}, parseAPIError(moderationUpstream, err)
	}
	if len(resp.Results) == 0 {
		return safety.Outcome{}, domain.Unavailable(moderationUpstream, 0,
			fmt.Errorf("empty moderation response"))
	}

	var violations []string
	flagged := false
	for _, r := range resp.Results {
		if !r.Flagged {
			continue
		}
		flagged = true
		violations = append(violations, flaggedCategories(r.Categories)...)
	}
	if !flagged {
		return safety.Approve(), nil
	}
	if len(violations) == 0 {
		violations = []string{"flagged"}
	}
	m.logger.Debug("Moderation flagged draft", zap.Strings("violations", violations))
	return safety.Block("", violations...), nil
}

// HealthCheck verifies API availability via ListModels.
func (m *Moderator) HealthCheck(ctx context.Context) error {
	if _, err := m.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// flaggedCategories returns the wire names of the categories set to true.
func flaggedCategories(c openai.ResultCategories) []string {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var set map[string]bool
	if json.Unmarshal(raw, &set) != nil {
		return nil
	}
	out := make([]string, 0, len(set))
	for name, on := range set {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
