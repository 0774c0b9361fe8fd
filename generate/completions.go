package generate

import (
	"github.com/dhamidi/p7/ebnf/parse"
)

// CompletionSet reparses the text and returns what may follow it. An
// unparseable text, which a session never commits, has no completions.
func (g *Generator) CompletionSet() *parse.CompletionSet {
	f, err := g.parser.Partial(g.text)
	if err != nil {
		g.log.Warningf("committed text no longer parses: %v", err)
		return &parse.CompletionSet{}
	}
	return f.Completions()
}

// Completions returns the example of each completion when it has one, and
// its pattern otherwise.
func (g *Generator) Completions() []string {
	return g.CompletionSet().Texts()
}

// ValidPatterns returns the pattern of each completion.
func (g *Generator) ValidPatterns() []string {
	return g.CompletionSet().Patterns()
}

// DebugInfo lists the completions of the text.
type DebugInfo struct {
	Patterns []string `json:"patterns"`
	Examples []string `json:"examples"`
}

// DebugCompletions returns the patterns and examples of the completions.
func (g *Generator) DebugCompletions() DebugInfo {
	set := g.CompletionSet()
	return DebugInfo{
		Patterns: set.Patterns(),
		Examples: set.Examples(),
	}
}
