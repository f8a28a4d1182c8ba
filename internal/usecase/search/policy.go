package search

import (
	"github.com/kailas-cloud/searchagent/internal/domain/personalization"
	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
	"github.com/kailas-cloud/searchagent/internal/domain/safety"
)

// Branch outcomes reported in logs and metrics.
const (
	outcomeSuccess = "success"
	outcomeEmpty   = "empty"
	outcomeFailure = "failure"
	outcomeTimeout = "timeout"
	outcomeSkipped = "skipped"
)

type retrievalBranch struct {
	result  retrieval.Result
	outcome string
	err     error
}

type personalizationBranch struct {
	result  personalization.Result
	outcome string
	err     error
}

// decide is the degradation table. Each branch contributes to the draft only
// on success; the two branches never affect each other.
func decide(r retrievalBranch, p personalizationBranch) safety.Draft {
	summary := retrieval.NoAnswer
	var links []string
	if r.outcome == outcomeSuccess {
		summary = r.result.Summary()
		links = r.result.Citations()
	}

	var personalised string
	if p.outcome == outcomeSuccess {
		personalised = p.result.Content()
	}

	return safety.NewDraft(summary, links, personalised)
}

// gate maps the validator's answer to a verdict. Any validator error fails closed.
func gate(draft safety.Draft, out safety.Outcome, err error) safety.Verdict {
	if err != nil {
		return safety.FailClosed()
	}
	return safety.Judge(draft, out)
}
