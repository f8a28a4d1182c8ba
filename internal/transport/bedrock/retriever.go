package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
)

const retrievalUpstream = "bedrock-knowledge-base"

// DefaultNumberOfResults is the vector-search fan-in when unset.
const DefaultNumberOfResults = 10

// metadataURLKeys are reference metadata keys that may hold a source URL,
// in the order they are cited.
var metadataURLKeys = []string{"url", "uri", "link", "source"}

// AgentRuntimeAPI is the subset of the Bedrock agent runtime used here.
type AgentRuntimeAPI interface {
	RetrieveAndGenerate(
		ctx context.Context,
		params *bedrockagentruntime.RetrieveAndGenerateInput,
		optFns ...func(*bedrockagentruntime.Options),
	) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// RetrieverConfig holds the knowledge-base settings.
type RetrieverConfig struct {
	KnowledgeBaseID string
	ModelARN        string
	NumberOfResults int
	Logger          *zap.Logger
}

// Retriever answers queries with Bedrock RetrieveAndGenerate.
type Retriever struct {
	api             AgentRuntimeAPI
	knowledgeBaseID string
	modelARN        string
	numberOfResults int32
	logger          *zap.Logger
}

// NewRetriever creates a knowledge-base retriever.
func NewRetriever(api AgentRuntimeAPI, cfg RetrieverConfig) *Retriever {
	n := cfg.NumberOfResults
	if n <= 0 {
		n = DefaultNumberOfResults
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{
		api:             api,
		knowledgeBaseID: cfg.KnowledgeBaseID,
		modelARN:        cfg.ModelARN,
		numberOfResults: int32(n), //nolint:gosec // bounded by config validation
		logger:          log,
	}
}

// Retrieve runs a grounded generation against the knowledge base.
func (r *Retriever) Retrieve(ctx context.Context, query string) (retrieval.Result, error) {
	out, err := r.api.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{Text: aws.String(query)},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(r.knowledgeBaseID),
				ModelArn:        aws.String(r.modelARN),
				RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
					VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
						NumberOfResults: aws.Int32(r.numberOfResults),
					},
				},
			},
		},
	})
	if err != nil {
		return retrieval.Result{}, fmt.Errorf("retrieve and generate: %w", classify(retrievalUpstream, err))
	}

	var text string
	if out.Output != nil {
		text = aws.ToString(out.Output.Text)
	}
	res := retrieval.FromGenerated(text, citations(out.Citations))

	r.logger.Debug("Knowledge base answered",
		zap.Int("summary_len", len(res.Summary())),
		zap.Int("citations", len(res.Citations())),
		zap.Float64("confidence", res.Confidence()),
		zap.Bool("empty", res.Empty()),
	)
	return res, nil
}

// citations collects source references in response order.
func citations(cs []types.Citation) []string {
	var refs []string
	for _, c := range cs {
		for _, ref := range c.RetrievedReferences {
			if u := locationURL(ref.Location); u != "" {
				refs = append(refs, u)
			}
			refs = append(refs, metadataURLs(ref.Metadata)...)
		}
	}
	return retrieval.Dedupe(refs)
}

func locationURL(loc *types.RetrievalResultLocation) string {
	if loc == nil {
		return ""
	}
	switch {
	case loc.S3Location != nil:
		return aws.ToString(loc.S3Location.Uri)
	case loc.WebLocation != nil:
		return aws.ToString(loc.WebLocation.Url)
	case loc.ConfluenceLocation != nil:
		return aws.ToString(loc.ConfluenceLocation.Url)
	case loc.SharePointLocation != nil:
		return aws.ToString(loc.SharePointLocation.Url)
	case loc.SalesforceLocation != nil:
		return aws.ToString(loc.SalesforceLocation.Url)
	default:
		return ""
	}
}

func metadataURLs(md map[string]document.Interface) []string {
	if len(md) == 0 {
		return nil
	}
	byKey := make(map[string]document.Interface, len(md))
	for key, v := range md {
		byKey[strings.ToLower(key)] = v
	}
	var out []string
	for _, key := range metadataURLKeys {
		s, ok := metadataString(byKey[key])
		if ok && retrieval.IsWebURL(s) {
			out = append(out, s)
		}
	}
	return out
}

// metadataString decodes a string metadata value. Documents are read through
// their JSON form, which both request and response documents support.
func metadataString(v document.Interface) (string, bool) {
	if v == nil {
		return "", false
	}
	raw, err := v.MarshalSmithyDocument()
	if err != nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
