package personalization

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTopicLength caps the topic passed to the tool directory.
const MaxTopicLength = 200

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "can": {},
	"do": {}, "does": {}, "for": {}, "from": {}, "get": {}, "how": {}, "i": {}, "in": {}, "is": {},
	"it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {}, "the": {}, "this": {},
	"to": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {}, "with": {},
	"you": {}, "your": {}, "please": {}, "tell": {}, "about": {}, "any": {}, "there": {},
}

// Tool is a personalization tool advertised by the directory.
type Tool struct {
	Name        string
	Description string
}

// TopicFromQuery derives the personalization topic from the raw query.
// It never depends on retrieval output so both branches can run concurrently.
func TopicFromQuery(query string) string {
	topic := strings.Join(strings.Fields(query), " ")
	if len(topic) > MaxTopicLength {
		end := MaxTopicLength
		for end > 0 && !utf8.RuneStart(topic[end]) {
			end--
		}
		cut := topic[:end]
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
		topic = cut
	}
	return topic
}

// Keywords returns the lowercase content words of s, stop words removed.
func Keywords(s string) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		if _, ok := stopWords[w]; ok {
			continue
		}
		out = append(out, stem(w))
	}
	return out
}

// SelectTool picks the tool whose name and description best match the topic.
// Ties are broken by tool name so the choice is deterministic. Returns false
// when no tool shares a keyword with the topic.
func SelectTool(topic string, tools []Tool) (Tool, bool) {
	topicWords := Keywords(topic)
	if len(topicWords) == 0 || len(tools) == 0 {
		return Tool{}, false
	}
	want := make(map[string]struct{}, len(topicWords))
	for _, w := range topicWords {
		want[w] = struct{}{}
	}

	type scored struct {
		tool  Tool
		score int
	}
	candidates := make([]scored, 0, len(tools))
	for _, t := range tools {
		s := score(want, t)
		if s > 0 {
			candidates = append(candidates, scored{tool: t, score: s})
		}
	}
	if len(candidates) == 0 {
		return Tool{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].tool.Name < candidates[j].tool.Name
	})
	return candidates[0].tool, true
}

// score counts distinct topic keywords found in the tool. Name hits weigh double.
func score(want map[string]struct{}, t Tool) int {
	total := 0
	seen := make(map[string]struct{})
	for _, w := range Keywords(strings.NewReplacer("_", " ", "-", " ").Replace(t.Name)) {
		if _, ok := want[w]; ok {
			if _, dup := seen[w]; !dup {
				total += 2
				seen[w] = struct{}{}
			}
		}
	}
	for _, w := range Keywords(t.Description) {
		if _, ok := want[w]; ok {
			if _, dup := seen[w]; !dup {
				total++
				seen[w] = struct{}{}
			}
		}
	}
	return total
}

// stem folds common English plural/verb suffixes so "upgrades" matches "upgrade".
func stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 4 && strings.HasSuffix(w, "ing"):
		return w[:len(w)-3]
	case len(w) > 3 && strings.HasSuffix(w, "es") && !strings.HasSuffix(w, "ses"):
		return w[:len(w)-1]
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	default:
		return w
	}
}
