package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchagent/internal/domain/personalization"
)

const (
	selectorUpstream = "openai-selector"
	noTool           = "none"
)

const selectorPrompt = `You route customer questions to personalization tools.
Reply with exactly one tool name from the list, or "none" if no tool is relevant.
Do not add any other text.`

// Selector asks a chat model to pick a personalization tool. Any failure
// falls back to keyword matching.
type Selector struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewSelector creates a model-backed tool selector.
func NewSelector(cfg *Config) *Selector {
	return &Selector{
		client: newClient(cfg),
		model:  cfg.Model,
		logger: loggerOrNop(cfg.Logger),
	}
}

// Select picks the tool for topic. ok is false when the model answers "none".
func (s *Selector) Select(ctx context.Context, topic string, tools []personalization.Tool) (personalization.Tool, bool, error) {
	if len(tools) == 0 {
		return personalization.Tool{}, false, nil
	}

	name, err := s.ask(ctx, topic, tools)
	if err != nil {
		s.logger.Warn("Tool selection fell back to keyword match", zap.Error(err))
		t, ok := personalization.SelectTool(topic, tools)
		return t, ok, nil
	}
	if name == noTool {
		return personalization.Tool{}, false, nil
	}
	for _, t := range tools {
		if strings.EqualFold(t.Name, name) {
			return t, true, nil
		}
	}

	s.logger.Debug("Model picked unknown tool", zap.String("tool", name))
	t, ok := personalization.SelectTool(topic, tools)
	return t, ok, nil
}

func (s *Selector) ask(ctx context.Context, topic string, tools []personalization.Tool) (string, error) {
	var b strings.Builder
	b.WriteString("Tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", topic)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		MaxTokens:   32,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: selectorPrompt},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
	})
	if err != nil {
		return "", parseAPIError(selectorUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	answer = strings.Trim(answer, "\"'`.")
	if answer == "" {
		return "", fmt.Errorf("blank completion")
	}
	if strings.EqualFold(answer, noTool) {
		return noTool, nil
	}
	return answer, nil
}
