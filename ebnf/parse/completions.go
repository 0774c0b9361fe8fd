package parse

import (
	"github.com/dhamidi/p7/regex"
)

// Completion describes text that can extend the input: a token kind that may
// come next, or the rest of the last token when it is still open.
type Completion struct {
	Kind         string
	Example      string // the exact text, when only one string fits
	Pattern      string // canonical pattern of the text
	Continuation bool   // extends the last token instead of starting a new one

	re *regex.Regex
}

// Text returns the example when there is one, and the pattern otherwise.
func (c Completion) Text() string {
	if c.Example != "" {
		return c.Example
	}
	return c.Pattern
}

// CompletionSet is the set of completions of a forest.
type CompletionSet struct {
	items []Completion
	skip  *regex.Regex
}

// Items returns the completions, continuations first.
func (s *CompletionSet) Items() []Completion {
	return s.items
}

// Len returns the number of completions.
func (s *CompletionSet) Len() int {
	return len(s.items)
}

// Texts returns the presentation form of each completion.
func (s *CompletionSet) Texts() []string {
	out := make([]string, len(s.items))
	for i, c := range s.items {
		out[i] = c.Text()
	}
	return out
}

// Patterns returns the canonical pattern of each completion.
func (s *CompletionSet) Patterns() []string {
	out := make([]string, len(s.items))
	for i, c := range s.items {
		out[i] = c.Pattern
	}
	return out
}

// Examples returns the completions that have a concrete example.
func (s *CompletionSet) Examples() []string {
	var out []string
	for _, c := range s.items {
		if c.Example != "" {
			out = append(out, c.Example)
		}
	}
	return out
}

// Matches reports whether candidate could be appended to the input. The test
// is syntactic and optimistic: the candidate has to start a completion, and
// may run past it into following tokens.
func (s *CompletionSet) Matches(candidate string) bool {
	if candidate == "" {
		return false
	}
	fresh := false
	for _, c := range s.items {
		if c.Continuation {
			if c.re.Consumes(candidate) {
				return true
			}
			continue
		}
		fresh = true
	}
	if !fresh {
		return false
	}
	rest := s.stripSkip(candidate)
	if rest == "" {
		return true
	}
	for _, c := range s.items {
		if !c.Continuation && c.re.Consumes(rest) {
			return true
		}
	}
	return false
}

func (s *CompletionSet) stripSkip(text string) string {
	if s.skip == nil {
		return text
	}
	for text != "" {
		n, _ := s.skip.LongestMatch(text)
		if n <= 0 {
			break
		}
		text = text[n:]
	}
	return text
}

// Completions derives the completion set from the chart: continuations of
// the last token for every kind it was scanned as, then every token kind
// expected after the input.
func (f *Forest) Completions() *CompletionSet {
	set := &CompletionSet{skip: f.grammar.Skip()}
	seen := make(map[Completion]bool)
	add := func(c Completion) {
		key := c
		key.re = nil
		if seen[key] {
			return
		}
		seen[key] = true
		set.items = append(set.items, c)
	}

	n := len(f.tokens)
	if n > 0 && f.tokens[n-1].AtEnd {
		last := f.tokens[n-1]
		for _, kind := range f.lastKinds() {
			k, ok := f.grammar.Kind(kind)
			if !ok {
				continue
			}
			rest := k.Pattern.Derive(last.Literal)
			if rest.IsEmpty() || rest.IsEpsilon() {
				continue
			}
			c := Completion{Kind: kind, Pattern: rest.String(), Continuation: true, re: rest}
			if lit, ok := rest.Literal(); ok {
				c.Example = lit
			}
			add(c)
		}
	}

	if n < len(f.chart) {
		for _, item := range f.chart[n].items {
			rule := f.grammar.Rule(item.Rule)
			if item.Dot >= len(rule.RHS) || !rule.RHS[item.Dot].Terminal {
				continue
			}
			k, ok := f.grammar.Kind(rule.RHS[item.Dot].Name)
			if !ok {
				continue
			}
			add(Completion{Kind: k.Name, Example: k.Literal, Pattern: k.Pattern.String(), re: k.Pattern})
		}
	}
	return set
}

// lastKinds returns the kinds the last token was scanned as, fully or
// partially, in chart order.
func (f *Forest) lastKinds() []string {
	n := len(f.tokens)
	last := f.tokens[n-1]
	var kinds []string
	seen := make(map[string]bool)
	for _, item := range f.chart[n-1].items {
		rule := f.grammar.Rule(item.Rule)
		if item.Dot >= len(rule.RHS) || !rule.RHS[item.Dot].Terminal {
			continue
		}
		kind := rule.RHS[item.Dot].Name
		if seen[kind] || !(last.Is(kind) || last.IsPartial(kind)) {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds
}
