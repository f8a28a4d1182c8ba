// Package safety models the draft submitted to the content-safety validator
// and the verdict applied to it.
package safety

import (
	"sort"
	"strings"
)

// Refusal is the summary returned when a draft cannot be released.
const Refusal = "We're unable to provide an answer to this query. Please rephrase your question or contact support."

// Draft is the candidate response assembled from the retrieval and
// personalization branches before the safety gate.
type Draft struct {
	summary      string
	links        []string
	personalised string
}

// NewDraft builds a draft. Links are copied.
func NewDraft(summary string, links []string, personalised string) Draft {
	l := make([]string, len(links))
	copy(l, links)
	return Draft{
		summary:      summary,
		links:        l,
		personalised: strings.TrimSpace(personalised),
	}
}

// Summary returns the draft summary.
func (d Draft) Summary() string { return d.summary }

// Links returns a copy of the draft links.
func (d Draft) Links() []string {
	out := make([]string, len(d.links))
	copy(out, d.links)
	return out
}

// Personalised returns the draft personalized content.
func (d Draft) Personalised() string { return d.personalised }

// Text returns the combined free text submitted for validation: the summary
// followed by the personalized content when present.
func (d Draft) Text() string {
	if d.personalised == "" {
		return d.summary
	}
	return d.summary + "\n\n" + d.personalised
}

// Outcome is the validator's answer for a draft.
type Outcome struct {
	approved   bool
	violations []string
	filtered   string
}

// Approve returns an approving outcome.
func Approve() Outcome {
	return Outcome{approved: true}
}

// Block returns a blocking outcome. filtered may be empty when the validator
// offers no rewrite. Violations are deduplicated and sorted.
func Block(filtered string, violations ...string) Outcome {
	set := make(map[string]struct{}, len(violations))
	for _, v := range violations {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	vs := make([]string, 0, len(set))
	for v := range set {
		vs = append(vs, v)
	}
	sort.Strings(vs)
	return Outcome{violations: vs, filtered: strings.TrimSpace(filtered)}
}

// Approved reports whether the draft may be released unchanged.
func (o Outcome) Approved() bool { return o.approved }

// Violations returns the violation tags, empty when approved.
func (o Outcome) Violations() []string {
	out := make([]string, len(o.violations))
	copy(out, o.violations)
	return out
}

// FilteredContent returns the validator's rewrite, if any.
func (o Outcome) FilteredContent() string { return o.filtered }

// Decision is how the gate releases a draft.
type Decision string

const (
	// Approved releases the draft unchanged.
	Approved Decision = "approved"
	// Filtered releases the validator's rewrite in place of the free text.
	Filtered Decision = "filtered"
	// Refused releases the generic refusal.
	Refused Decision = "refused"
	// FailedClosed releases the generic refusal because the validator could not be consulted.
	FailedClosed Decision = "fail_closed"
)

// Verdict is the gate decision for one draft.
type Verdict struct {
	Decision   Decision
	Filtered   string
	Violations []string
}

// Judge turns a validator outcome into a verdict for d. A blocked draft is
// filtered only when the rewrite is usable: non-blank and free of every
// original free-text field of the draft.
func Judge(d Draft, o Outcome) Verdict {
	if o.Approved() {
		return Verdict{Decision: Approved}
	}
	if usableRewrite(d, o.filtered) {
		return Verdict{Decision: Filtered, Filtered: o.filtered, Violations: o.Violations()}
	}
	return Verdict{Decision: Refused, Violations: o.Violations()}
}

// FailClosed is the verdict used when validation could not complete.
func FailClosed() Verdict {
	return Verdict{Decision: FailedClosed}
}

func usableRewrite(d Draft, filtered string) bool {
	if filtered == "" {
		return false
	}
	for _, original := range []string{strings.TrimSpace(d.summary), d.personalised} {
		if original != "" && strings.Contains(filtered, original) {
			return false
		}
	}
	return true
}
