package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/kailas-cloud/searchagent/internal/domain/safety"
)

const guardrailUpstream = "bedrock-guardrail"

// DefaultGuardrailVersion is used when no version is configured.
const DefaultGuardrailVersion = "DRAFT"

// RuntimeAPI is the subset of the Bedrock runtime used here.
type RuntimeAPI interface {
	ApplyGuardrail(
		ctx context.Context,
		params *bedrockruntime.ApplyGuardrailInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.ApplyGuardrailOutput, error)
}

// Guardrail validates drafts with Bedrock ApplyGuardrail.
type Guardrail struct {
	api     RuntimeAPI
	id      string
	version string
}

// NewGuardrail creates a guardrail validator.
func NewGuardrail(api RuntimeAPI, id, version string) *Guardrail {
	if version == "" {
		version = DefaultGuardrailVersion
	}
	return &Guardrail{api: api, id: id, version: version}
}

// Validate checks the combined draft text as model output.
func (g *Guardrail) Validate(ctx context.Context, draft safety.Draft) (safety.Outcome, error) {
	out, err := g.api.ApplyGuardrail(ctx, &bedrockruntime.ApplyGuardrailInput{
		GuardrailIdentifier: aws.String(g.id),
		GuardrailVersion:    aws.String(g.version),
		Source:              types.GuardrailContentSourceOutput,
		Content: []types.GuardrailContentBlock{
			&types.GuardrailContentBlockMemberText{
				Value: types.GuardrailTextBlock{Text: aws.String(draft.Text())},
			},
		},
	})
	if err != nil {
		return safety.Outcome{}, fmt.Errorf("apply guardrail: %w", classify(guardrailUpstream, err))
	}

	if out.Action != types.GuardrailActionGuardrailIntervened {
		return safety.Approve(), nil
	}

	var texts []string
	for _, o := range out.Outputs {
		if t := strings.TrimSpace(aws.ToString(o.Text)); t != "" {
			texts = append(texts, t)
		}
	}
	return safety.Block(strings.Join(texts, "\n\n"), violations(out.Assessments)...), nil
}

// violations flattens guardrail assessments into tags such as "topic:Finance" or "pii:EMAIL".
func violations(assessments []types.GuardrailAssessment) []string {
	var tags []string
	for _, a := range assessments {
		if p := a.TopicPolicy; p != nil {
			for _, t := range p.Topics {
				tags = append(tags, "topic:"+aws.ToString(t.Name))
			}
		}
		if p := a.ContentPolicy; p != nil {
			for _, f := range p.Filters {
				tags = append(tags, "content:"+string(f.Type))
			}
		}
		if p := a.WordPolicy; p != nil {
			if len(p.CustomWords) > 0 {
				tags = append(tags, "word:custom")
			}
			for _, w := range p.ManagedWordLists {
				tags = append(tags, "word:"+string(w.Type))
			}
		}
		if p := a.SensitiveInformationPolicy; p != nil {
			for _, e := range p.PiiEntities {
				tags = append(tags, "pii:"+string(e.Type))
			}
			for _, r := range p.Regexes {
				tags = append(tags, "regex:"+aws.ToString(r.Name))
			}
		}
	}
	return tags
}
