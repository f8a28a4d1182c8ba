// Package bedrock implements the knowledge-retrieval and safety clients on
// Amazon Bedrock.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/kailas-cloud/searchagent/internal/domain"
)

// LoadConfig resolves AWS credentials for region. SDK-level retries are
// disabled; the resilience policy owns retries and their budget.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// NewAgentRuntimeClient creates the knowledge-base runtime client.
func NewAgentRuntimeClient(cfg aws.Config) *bedrockagentruntime.Client {
	return bedrockagentruntime.NewFromConfig(cfg)
}

// NewRuntimeClient creates the model runtime client used for guardrails.
func NewRuntimeClient(cfg aws.Config) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(cfg)
}

// CredentialsChecker reports whether AWS credentials can be resolved.
// Bedrock has no free probe endpoint, so this is the cheapest readiness signal.
type CredentialsChecker struct {
	cfg aws.Config
}

// NewCredentialsChecker creates a health checker for cfg.
func NewCredentialsChecker(cfg aws.Config) *CredentialsChecker {
	return &CredentialsChecker{cfg: cfg}
}

// HealthCheck resolves credentials through the configured provider chain.
func (c *CredentialsChecker) HealthCheck(ctx context.Context) error {
	if c.cfg.Credentials == nil {
		return fmt.Errorf("no credentials provider configured")
	}
	if _, err := c.cfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("retrieve credentials: %w", err)
	}
	return nil
}

// ModelARN builds the foundation-model ARN for region.
func ModelARN(region, model string) string {
	return fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/%s", region, model)
}

var transientCodes = map[string]bool{
	"ThrottlingException":           true,
	"ServiceQuotaExceededException": true,
	"InternalServerException":       true,
	"DependencyFailedException":     true,
	"BadGatewayException":           true,
	"ServiceUnavailableException":   true,
	"ModelNotReadyException":        true,
}

// classify maps an SDK error to the upstream taxonomy. Unknown and
// transport-level failures are treated as transient.
func classify(upstream string, err error) error {
	status := 0
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status = respErr.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if transientCodes[apiErr.ErrorCode()] {
			return domain.Unavailable(upstream, status, err)
		}
		if status == 0 || status < http.StatusInternalServerError {
			return domain.Rejected(upstream, status, err)
		}
	}
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError && status != http.StatusTooManyRequests {
		return domain.Rejected(upstream, status, err)
	}
	return domain.Unavailable(upstream, status, err)
}
