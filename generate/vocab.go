package generate

import "time"

// TokenMask reports for each vocabulary entry whether it may follow the
// text. The test is syntactic only: an entry must start one of the
// completions of the text.
func (g *Generator) TokenMask(vocab []string) []bool {
	start := time.Now()
	set := g.CompletionSet()
	mask := make([]bool, len(vocab))
	allowed := 0
	for i, tok := range vocab {
		if set.Matches(tok) {
			mask[i] = true
			allowed++
		}
	}
	g.observer.ObserveMask(len(vocab), allowed, time.Since(start))
	return mask
}

// ValidTokenIndices returns the indices set in TokenMask, in order.
func (g *Generator) ValidTokenIndices(vocab []string) []int {
	var out []int
	for i, ok := range g.TokenMask(vocab) {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// AnyValidToken reports whether some vocabulary entry may follow the text.
func (g *Generator) AnyValidToken(vocab []string) bool {
	return len(g.ValidTokenIndices(vocab)) > 0
}

// IsValidNext reports whether token may follow the text, by the same test as
// TokenMask.
func (g *Generator) IsValidNext(token string) bool {
	return g.CompletionSet().Matches(token)
}

// FilterCompletionIndices returns the vocabulary entries that may follow the
// text and keep it well typed. Entries passing the syntactic test of
// TokenMask are appended to the text and reparsed, keeping only trees that
// type check; an entry survives if any tree is left. The result is a subset
// of ValidTokenIndices.
func (g *Generator) FilterCompletionIndices(vocab []string) []int {
	cheap := g.ValidTokenIndices(vocab)
	var out []int
	for _, i := range cheap {
		f, err := g.parser.PartialTyped(g.text+vocab[i], g.wellTyped)
		if err != nil || len(f.Roots) == 0 {
			continue
		}
		out = append(out, i)
	}
	g.log.Debugf("typed filter kept %d of %d candidates", len(out), len(cheap))
	return out
}
