package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/searchagent/internal/domain"
	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
)

type stubAgentRuntime struct {
	out  *bedrockagentruntime.RetrieveAndGenerateOutput
	err  error
	last *bedrockagentruntime.RetrieveAndGenerateInput
}

func (s *stubAgentRuntime) RetrieveAndGenerate(
	_ context.Context,
	params *bedrockagentruntime.RetrieveAndGenerateInput,
	_ ...func(*bedrockagentruntime.Options),
) (*bedrockagentruntime.RetrieveAndGenerateOutput, error) {
	s.last = params
	return s.out, s.err
}

func generated(text string, refs ...types.RetrievedReference) *bedrockagentruntime.RetrieveAndGenerateOutput {
	return &bedrockagentruntime.RetrieveAndGenerateOutput{
		Output:    &types.RetrieveAndGenerateOutput{Text: aws.String(text)},
		Citations: []types.Citation{{RetrievedReferences: refs}},
	}
}

func webRef(url string) types.RetrievedReference {
	return types.RetrievedReference{Location: &types.RetrievalResultLocation{
		WebLocation: &types.RetrievalResultWebLocation{Url: aws.String(url)},
	}}
}

func TestModelARN(t *testing.T) {
	assert.Equal(t,
		"arn:aws:bedrock:us-east-1::foundation-model/anthropic.claude-3-7-sonnet-20250219-v1:0",
		ModelARN("us-east-1", "anthropic.claude-3-7-sonnet-20250219-v1:0"))
}

func TestRetrieve_BuildsRequest(t *testing.T) {
	api := &stubAgentRuntime{out: generated("Returns are accepted within 30 days.")}
	r := NewRetriever(api, RetrieverConfig{KnowledgeBaseID: "KB123", ModelARN: "arn:model"})

	_, err := r.Retrieve(context.Background(), "return policy")
	require.NoError(t, err)

	require.NotNil(t, api.last)
	assert.Equal(t, "return policy", aws.ToString(api.last.Input.Text))
	cfg := api.last.RetrieveAndGenerateConfiguration
	assert.Equal(t, types.RetrieveAndGenerateTypeKnowledgeBase, cfg.Type)
	assert.Equal(t, "KB123", aws.ToString(cfg.KnowledgeBaseConfiguration.KnowledgeBaseId))
	assert.Equal(t, "arn:model", aws.ToString(cfg.KnowledgeBaseConfiguration.ModelArn))
	assert.Equal(t, int32(DefaultNumberOfResults),
		aws.ToInt32(cfg.KnowledgeBaseConfiguration.RetrievalConfiguration.VectorSearchConfiguration.NumberOfResults))
}

func TestRetrieve_ExtractsCitations(t *testing.T) {
	s3 := types.RetrievedReference{Location: &types.RetrievalResultLocation{
		S3Location: &types.RetrievalResultS3Location{Uri: aws.String("s3://kb/returns.pdf")},
	}}
	confluence := types.RetrievedReference{Location: &types.RetrievalResultLocation{
		ConfluenceLocation: &types.RetrievalResultConfluenceLocation{Url: aws.String("https://wiki/returns")},
	}}
	withMetadata := types.RetrievedReference{Metadata: map[string]document.Interface{
		"URL":    document.NewLazyDocument("https://help.example.com/refund-form"),
		"author": document.NewLazyDocument("https://not-a-source"),
		"source": document.NewLazyDocument("internal-doc-7"),
	}}

	api := &stubAgentRuntime{out: generated(
		"Based on the search results, items can be returned within 30 days.",
		s3, webRef("https://help.example.com/returns"), confluence, withMetadata, webRef("https://help.example.com/returns"),
	)}
	r := NewRetriever(api, RetrieverConfig{KnowledgeBaseID: "KB", ModelARN: "arn", NumberOfResults: 5})

	res, err := r.Retrieve(context.Background(), "returns")
	require.NoError(t, err)
	assert.Equal(t, "items can be returned within 30 days", res.Summary())
	assert.Equal(t, []string{
		"s3://kb/returns.pdf",
		"https://help.example.com/returns",
		"https://wiki/returns",
		"https://help.example.com/refund-form",
	}, res.Citations())
	assert.InDelta(t, 0.6, res.Confidence(), 1e-9)
	assert.Equal(t, int32(5),
		aws.ToInt32(api.last.RetrieveAndGenerateConfiguration.KnowledgeBaseConfiguration.RetrievalConfiguration.VectorSearchConfiguration.NumberOfResults))
}

func TestMetadataURLs(t *testing.T) {
	md := map[string]document.Interface{
		"source": document.NewLazyDocument("https://c.example.com"),
		"Link":   document.NewLazyDocument("https://b.example.com"),
		"uri":    document.NewLazyDocument("https://a.example.com"),
		"title":  document.NewLazyDocument("https://ignored.example.com"),
		"url":    document.NewLazyDocument(42),
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}, metadataURLs(md))
	}
	assert.Empty(t, metadataURLs(nil))
	assert.Empty(t, metadataURLs(map[string]document.Interface{"url": nil, "link": document.NewLazyDocument("doc-7")}))
}

func TestMetadataString(t *testing.T) {
	s, ok := metadataString(document.NewLazyDocument(" https://help.example.com "))
	assert.True(t, ok)
	assert.Equal(t, "https://help.example.com", s)

	_, ok = metadataString(document.NewLazyDocument(map[string]string{"url": "https://x"}))
	assert.False(t, ok)
	_, ok = metadataString(document.NewLazyDocument("   "))
	assert.False(t, ok)
	_, ok = metadataString(nil)
	assert.False(t, ok)
}

func TestRetrieve_NoInformation(t *testing.T) {
	for _, text := range []string{"", "  ", "No information found.", "I don't have information"} {
		api := &stubAgentRuntime{out: generated(text, webRef("https://kb/x"))}
		res, err := NewRetriever(api, RetrieverConfig{}).Retrieve(context.Background(), "q")
		require.NoError(t, err)
		assert.True(t, res.Empty(), "text %q should be empty", text)
		assert.Equal(t, retrieval.NoAnswer, res.Summary())
		assert.Empty(t, res.Citations())
	}
}

func TestRetrieve_NilOutput(t *testing.T) {
	api := &stubAgentRuntime{out: &bedrockagentruntime.RetrieveAndGenerateOutput{}}
	res, err := NewRetriever(api, RetrieverConfig{}).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestRetrieve_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		sentinel  error
		retryable bool
	}{
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}, domain.ErrUpstreamUnavailable, true},
		{"internal", &smithy.GenericAPIError{Code: "InternalServerException"}, domain.ErrUpstreamUnavailable, true},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException", Message: "bad kb id"}, domain.ErrUpstreamRejected, false},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDeniedException"}, domain.ErrUpstreamRejected, false},
		{"network", errors.New("dial tcp: connection refused"), domain.ErrUpstreamUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &stubAgentRuntime{err: tt.err}
			_, err := NewRetriever(api, RetrieverConfig{}).Retrieve(context.Background(), "q")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.retryable, domain.Retryable(err))
		})
	}
}
