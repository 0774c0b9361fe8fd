package parse

import (
	"fmt"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/ebnf/lex"
)

// Parser parses whole texts against one grammar. Every call starts from
// scratch; nothing is kept between calls.
type Parser struct {
	grammar grammar.Grammar
}

// NewParser creates a parser for g.
func NewParser(g grammar.Grammar) *Parser {
	return &Parser{grammar: g}
}

// Grammar returns the grammar the parser was built for.
func (p *Parser) Grammar() grammar.Grammar {
	return p.grammar
}

func (p *Parser) run(text string) (*EarleyParser, error) {
	tokens, err := lex.NewLexer(p.grammar, text, "").Tokenize()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	ep := NewEarleyParser(p.grammar, tokens)
	if err := ep.Parse(); err != nil {
		return nil, err
	}
	return ep, nil
}

// Partial parses text as a prefix of a sentence. The error wraps ErrSyntax
// when text cannot be extended into any sentence.
func (p *Parser) Partial(text string) (*Forest, error) {
	ep, err := p.run(text)
	if err != nil {
		return nil, err
	}
	return ep.Forest(), nil
}

// PartialTyped parses like Partial and keeps only the roots accepted by keep,
// typically a type check. Rejected trees are dropped before the root limit
// applies, so a tree that keep accepts is found however many are rejected,
// unless the forest is Truncated. The forest may end up without roots.
func (p *Parser) PartialTyped(text string, keep func(*Node) bool) (*Forest, error) {
	ep, err := p.run(text)
	if err != nil {
		return nil, err
	}
	return ep.forest(keep), nil
}

// Recognize reports whether text is a prefix of some sentence. No trees are
// built.
func (p *Parser) Recognize(text string) bool {
	_, err := p.run(text)
	return err == nil
}
