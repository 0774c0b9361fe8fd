package generate

import (
	"fmt"
	"time"

	"github.com/dhamidi/p7/ebnf/parse"
)

// Outcome is the result of validating a candidate text.
type Outcome string

const (
	Accept       Outcome = "accept"
	SyntaxReject Outcome = "syntax_reject"
	TypeReject   Outcome = "type_reject"
	LimitReject  Outcome = "limit_reject"
)

// validate parses candidate and type checks every root. It never changes the
// session.
func (g *Generator) validate(candidate string) (*parse.Forest, Outcome) {
	start := time.Now()
	f, outcome := g.classify(candidate)
	g.observer.ObserveValidation(outcome, time.Since(start))
	return f, outcome
}

func (g *Generator) classify(candidate string) (*parse.Forest, Outcome) {
	f, err := g.parser.PartialTyped(candidate, g.wellTyped)
	switch {
	case err != nil:
		return nil, SyntaxReject
	case len(f.Roots) > 0:
		return f, Accept
	case f.Truncated:
		return f, LimitReject
	}
	return f, TypeReject
}

// Feed appends token to the text, separated by a single space. It returns
// false if the result does not parse, and an error wrapping ErrTypeReject if
// it parses but does not type check. The text only changes on success.
func (g *Generator) Feed(token string) (bool, error) {
	candidate := token
	if g.text != "" {
		candidate = g.text + " " + token
	}
	return g.commit(candidate)
}

// FeedRaw appends text exactly as given, for continuations that are pieces
// of words. Otherwise it behaves like Feed.
func (g *Generator) FeedRaw(text string) (bool, error) {
	return g.commit(g.text + text)
}

func (g *Generator) commit(candidate string) (bool, error) {
	_, outcome := g.validate(candidate)
	switch outcome {
	case SyntaxReject:
		g.log.Debugf("reject %q: does not parse", candidate)
		return false, nil
	case TypeReject:
		g.log.Debugf("reject %q: ill-typed", candidate)
		return false, fmt.Errorf("%w: %q", ErrTypeReject, candidate)
	case LimitReject:
		g.log.Warningf("reject %q: too many parse trees", candidate)
		return false, fmt.Errorf("%w: %q", ErrAmbiguous, candidate)
	}
	g.text = candidate
	g.log.Debugf("accept %q", candidate)
	return true, nil
}

// CheckCompletion reports whether appending candidate to the text would be
// accepted. The session does not change.
func (g *Generator) CheckCompletion(candidate string) bool {
	_, outcome := g.validate(g.text + candidate)
	return outcome == Accept
}

// FilterCompletions returns the candidates accepted by CheckCompletion, in
// order.
func (g *Generator) FilterCompletions(candidates []string) []string {
	var out []string
	for _, c := range candidates {
		if g.CheckCompletion(c) {
			out = append(out, c)
		}
	}
	return out
}

// WellTypedTreeCount returns the number of distinct trees of the text that
// are Valid or Partial, up to the root limit of the parser. An empty text has
// none.
func (g *Generator) WellTypedTreeCount() int {
	if g.text == "" {
		return 0
	}
	f, err := g.parser.PartialTyped(g.text, g.wellTyped)
	if err != nil {
		return 0
	}
	return len(f.Roots)
}
