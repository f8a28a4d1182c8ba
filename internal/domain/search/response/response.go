package response

import (
	"strings"

	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
	"github.com/kailas-cloud/searchagent/internal/domain/safety"
)

// Response is the caller-facing search answer. It always encodes as exactly
// three fields and never as null.
type Response struct {
	Personalised string   `json:"personalised"`
	Summary      string   `json:"summary"`
	Links        []string `json:"links"`
}

// Assemble renders the final response for draft under verdict.
// Personalized content is released only for identified callers whose draft
// was approved as is. A filtered rewrite covers the whole combined draft, so it
// is released as the summary and personalised stays empty.
func Assemble(draft safety.Draft, verdict safety.Verdict, identified bool) Response {
	switch verdict.Decision {
	case safety.Approved:
		r := Response{
			Summary: summaryOrSentinel(draft.Summary()),
			Links:   cleanLinks(draft.Links()),
		}
		if identified {
			r.Personalised = draft.Personalised()
		}
		return r
	case safety.Filtered:
		return Response{
			Summary: summaryOrSentinel(verdict.Filtered),
			Links:   cleanLinks(draft.Links()),
		}
	default:
		return Refusal()
	}
}

// Refusal is the response released when a draft is blocked without a usable
// rewrite or cannot be validated.
func Refusal() Response {
	return Response{Summary: safety.Refusal, Links: []string{}}
}

func summaryOrSentinel(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return retrieval.NoAnswer
	}
	return s
}

func cleanLinks(links []string) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
