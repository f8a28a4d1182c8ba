// Package mcp implements the personalization client over a Model Context
// Protocol tool directory.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchagent/internal/domain"
	"github.com/kailas-cloud/searchagent/internal/domain/personalization"
	"github.com/kailas-cloud/searchagent/internal/version"
)

const upstream = "mcp-gateway"

// Session is an initialized tool-directory session.
type Session interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// Dialer opens a new initialized session.
type Dialer func(ctx context.Context) (Session, error)

// Selector picks the tool to invoke for a topic. ok is false when no tool fits.
type Selector interface {
	Select(ctx context.Context, topic string, tools []personalization.Tool) (tool personalization.Tool, ok bool, err error)
}

// KeywordSelector matches topic keywords against tool names and descriptions.
type KeywordSelector struct{}

// Select implements Selector.
func (KeywordSelector) Select(_ context.Context, topic string, tools []personalization.Tool) (personalization.Tool, bool, error) {
	t, ok := personalization.SelectTool(topic, tools)
	return t, ok, nil
}

// HTTPDialer connects to a streamable-HTTP MCP gateway. token is sent as a
// bearer credential when non-empty.
func HTTPDialer(url, token string, timeout time.Duration) Dialer {
	return func(ctx context.Context) (Session, error) {
		opts := []transport.StreamableHTTPCOption{}
		if token != "" {
			opts = append(opts, transport.WithHTTPHeaders(map[string]string{
				"Authorization": "Bearer " + token,
			}))
		}
		if timeout > 0 {
			opts = append(opts, transport.WithHTTPTimeout(timeout))
		}

		c, err := client.NewStreamableHttpClient(url, opts...)
		if err != nil {
			return nil, fmt.Errorf("create client: %w", err)
		}
		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("start transport: %w", err)
		}
		if err := Initialize(ctx, c); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil
	}
}

// Initialize performs the MCP handshake on c.
func Initialize(ctx context.Context, c *client.Client) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    "searchagent",
		Version: version.Version,
	}
	if _, err := c.Initialize(ctx, req); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

// Personalizer discovers and invokes a tool per request. A session is opened
// and closed for each call.
type Personalizer struct {
	dial     Dialer
	selector Selector
	logger   *zap.Logger
}

// NewPersonalizer creates the MCP personalization client.
// A nil selector defaults to KeywordSelector.
func NewPersonalizer(dial Dialer, selector Selector, logger *zap.Logger) *Personalizer {
	if selector == nil {
		selector = KeywordSelector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Personalizer{dial: dial, selector: selector, logger: logger}
}

// Personalize selects the best tool for topic and calls it for identity.
// No tools or no match is a successful empty result.
func (p *Personalizer) Personalize(ctx context.Context, topic, identity string) (personalization.Result, error) {
	sess, err := p.dial(ctx)
	if err != nil {
		return personalization.Result{}, classify(err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			p.logger.Debug("Failed to close MCP session", zap.Error(cerr))
		}
	}()

	listed, err := sess.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return personalization.Result{}, fmt.Errorf("list tools: %w", classify(err))
	}
	tools := make([]personalization.Tool, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		tools = append(tools, personalization.Tool{Name: t.Name, Description: t.Description})
	}
	if len(tools) == 0 {
		return personalization.NoMatch(), nil
	}

	tool, ok, err := p.selector.Select(ctx, topic, tools)
	if err != nil {
		return personalization.Result{}, fmt.Errorf("select tool: %w", err)
	}
	if !ok {
		p.logger.Debug("No personalization tool matched", zap.Int("tools", len(tools)))
		return personalization.NoMatch(), nil
	}

	res, err := sess.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: tool.Name,
			Arguments: map[string]any{
				"user_id": identity,
				"topic":   topic,
			},
		},
	})
	if err != nil {
		return personalization.Result{}, fmt.Errorf("call tool %s: %w", tool.Name, classify(err))
	}

	text := contentText(res.Content)
	if res.IsError {
		return personalization.Result{}, domain.Rejected(upstream, 0,
			fmt.Errorf("tool %s failed: %s", tool.Name, text))
	}
	return personalization.New(text, tool.Name), nil
}

// HealthCheck opens a session and pings the gateway.
func (p *Personalizer) HealthCheck(ctx context.Context) error {
	sess, err := p.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = sess.Close() }()
	if err := sess.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", upstream, domain.ErrTimeout, err)
	}
	if errors.Is(err, domain.ErrUpstreamRejected) || errors.Is(err, domain.ErrUpstreamUnavailable) {
		return err
	}
	return domain.Unavailable(upstream, 0, err)
}
