package personalization

import "strings"

// Result is the outcome of a tool-directory lookup for one caller.
// A "no matching tool" lookup is a success with empty content.
type Result struct {
	content   string
	toolUsed  string
	succeeded bool
}

// New builds a successful result produced by toolUsed.
func New(content, toolUsed string) Result {
	return Result{
		content:   strings.TrimSpace(content),
		toolUsed:  toolUsed,
		succeeded: true,
	}
}

// NoMatch is the successful "nothing to personalize" result.
func NoMatch() Result {
	return Result{succeeded: true}
}

// Content returns the personalized text, empty when there is nothing to add.
func (r Result) Content() string { return r.content }

// ToolUsed returns the invoked tool name, empty when none was invoked.
func (r Result) ToolUsed() string { return r.toolUsed }

// Succeeded reports whether the lookup completed (with or without content).
func (r Result) Succeeded() bool { return r.succeeded }

// Empty reports whether there is no personalized content.
func (r Result) Empty() bool { return r.content == "" }
