// Package retrieval holds the knowledge-retrieval result and the text rules
// shared by every retrieval driver.
package retrieval

import (
	"regexp"
	"strings"
)

// NoAnswer is the fixed summary returned when no grounded answer is available.
const NoAnswer = "No AI summary could be found for the specified query"

// noInformationPhrases are model answers that mean "nothing found".
var noInformationPhrases = map[string]struct{}{
	"no information found":     {},
	"no relevant information":  {},
	"i don't have information": {},
	"no data available":        {},
}

var boilerplatePatterns = compileBoilerplate(
	"based on the search results",
	"according to the search results",
	"from the search results",
	"search results",
)

var whitespace = regexp.MustCompile(`\s+`)

// Result is a grounded answer with its citations.
type Result struct {
	summary    string
	citations  []string
	confidence float64
}

// New builds a result. Citations are deduplicated preserving order and
// confidence is clamped to [0, 1].
func New(summary string, citations []string, confidence float64) Result {
	return Result{
		summary:    summary,
		citations:  Dedupe(citations),
		confidence: clamp(confidence),
	}
}

// Empty returns the "no answer found" result.
func Empty() Result {
	return Result{summary: NoAnswer, citations: []string{}}
}

// FromGenerated applies the shared post-processing to raw generated text:
// "nothing found" detection, boilerplate cleanup and confidence scoring.
func FromGenerated(text string, citations []string) Result {
	text = strings.TrimSpace(text)
	if IsNoInformation(text) {
		return Empty()
	}
	cleaned := CleanSummary(text)
	if cleaned == "" {
		return Empty()
	}
	deduped := Dedupe(citations)
	return New(cleaned, deduped, Confidence(text, deduped))
}

// Summary returns the answer text.
func (r Result) Summary() string { return r.summary }

// Citations returns a copy of the ordered citation references.
func (r Result) Citations() []string {
	out := make([]string, len(r.citations))
	copy(out, r.citations)
	return out
}

// Confidence returns the advisory confidence score.
func (r Result) Confidence() float64 { return r.confidence }

// Empty reports whether the result is the "no answer found" outcome.
func (r Result) Empty() bool {
	s := strings.TrimSpace(r.summary)
	return s == "" || s == NoAnswer
}

// IsNoInformation reports whether generated text carries no answer.
func IsNoInformation(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return true
	}
	_, ok := noInformationPhrases[strings.TrimRight(t, ".!")]
	return ok
}

// CleanSummary strips search-result boilerplate, collapses whitespace and
// trims leftover leading/trailing punctuation.
func CleanSummary(text string) string {
	cleaned := strings.TrimSpace(text)
	for _, p := range boilerplatePatterns {
		cleaned = p.ReplaceAllString(cleaned, "")
	}
	cleaned = whitespace.ReplaceAllString(cleaned, " ")
	return strings.Trim(cleaned, ".,;: ")
}

// Confidence scores answer quality from length and citation count.
func Confidence(text string, citations []string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	score := 0.3
	if len(text) > 100 {
		score += 0.2
	}
	if len(text) > 300 {
		score += 0.1
	}
	n := len(citations)
	if n > 0 {
		score += 0.2
	}
	if n > 2 {
		score += 0.1
	}
	if n > 5 {
		score += 0.1
	}
	return clamp(score)
}

// Dedupe drops blank and repeated references, preserving first-seen order.
func Dedupe(refs []string) []string {
	out := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// IsWebURL reports whether s is an http(s) reference.
func IsWebURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func compileBoilerplate(phrases ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(phrases))
	for i, p := range phrases {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p))
	}
	return out
}
