// Package lex splits text into tokens using the token kinds of a compiled
// grammar.
package lex

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dhamidi/p7/ebnf/grammar"
)

// ErrNoMatch is returned when no token kind matches at some position.
var ErrNoMatch = errors.New("no token matches")

// Position represents a location in source code.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token with its position.
//
// Kinds lists every kind that matches Literal exactly; a literal can be both
// a keyword and an identifier, and the parser decides. The last token of the
// input additionally lists in Partial the kinds of which Literal is a proper
// prefix. A token with no Kinds is an unfinished token that only the kinds in
// Partial could complete.
type Token struct {
	Kind     string
	Kinds    []string
	Literal  string
	Position Position
	Partial  []string
	AtEnd    bool
}

func (t Token) String() string {
	return fmt.Sprintf("%s %s %q", t.Position, t.Kind, t.Literal)
}

// Is reports whether t fully matches the kind.
func (t Token) Is(kind string) bool {
	for _, k := range t.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// IsPartial reports whether t is a proper prefix of the kind.
func (t Token) IsPartial(kind string) bool {
	for _, k := range t.Partial {
		if k == kind {
			return true
		}
	}
	return false
}

// End returns the position just past the token.
func (t Token) End() Position {
	end := t.Position
	advance(&end, t.Literal)
	return end
}

// Lexer tokenizes input based on a compiled grammar.
type Lexer struct {
	grammar  grammar.Grammar
	input    string
	filename string
	pos      Position
}

// NewLexer creates a lexer for the given grammar and input.
func NewLexer(g grammar.Grammar, input string, filename string) *Lexer {
	return &Lexer{
		grammar:  g,
		input:    input,
		filename: filename,
		pos:      Position{Filename: filename, Line: 1, Column: 1},
	}
}

// Position returns the current position in the input.
func (l *Lexer) Position() Position {
	return l.pos
}

func advance(p *Position, s string) {
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		p.Offset += size
		if r == '\n' {
			p.Line++
			p.Column = 1
		} else {
			p.Column++
		}
	}
}

func (l *Lexer) consume(n int) string {
	s := l.input[l.pos.Offset : l.pos.Offset+n]
	advance(&l.pos, s)
	return s
}

// skip consumes the skip pattern as often as it matches.
func (l *Lexer) skip() {
	re := l.grammar.Skip()
	if re == nil {
		return
	}
	for l.pos.Offset < len(l.input) {
		n, _ := re.LongestMatch(l.input[l.pos.Offset:])
		if n <= 0 {
			return
		}
		l.consume(n)
	}
}

// Done reports whether the whole input has been consumed.
func (l *Lexer) Done() bool {
	return l.pos.Offset >= len(l.input)
}

// NextToken returns the next token, after skipping. It uses the longest match
// over all kinds. When the remaining input is a prefix of some kind that no
// shorter match consumes entirely, the remainder becomes one unfinished token.
func (l *Lexer) NextToken() (Token, error) {
	l.skip()
	if l.Done() {
		return Token{}, fmt.Errorf("%s: end of input", l.pos)
	}
	rest := l.input[l.pos.Offset:]

	best := 0
	var kinds, viable []string
	for _, k := range l.grammar.Kinds() {
		n, ok := k.Pattern.LongestMatch(rest)
		if ok {
			viable = append(viable, k.Name)
		}
		switch {
		case n > best:
			best = n
			kinds = []string{k.Name}
		case n == best && n > 0:
			kinds = append(kinds, k.Name)
		}
	}

	start := l.pos
	switch {
	case best == len(rest):
		return Token{
			Kind:     kinds[0],
			Kinds:    kinds,
			Literal:  l.consume(best),
			Position: start,
			Partial:  minus(viable, kinds),
			AtEnd:    true,
		}, nil
	case len(viable) > 0:
		return Token{
			Kind:     viable[0],
			Literal:  l.consume(len(rest)),
			Position: start,
			Partial:  viable,
			AtEnd:    true,
		}, nil
	case best > 0:
		return Token{
			Kind:     kinds[0],
			Kinds:    kinds,
			Literal:  l.consume(best),
			Position: start,
		}, nil
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return Token{}, fmt.Errorf("%s: %w: unexpected %q", start, ErrNoMatch, r)
}

// Tokenize reads all tokens from input. The last token is marked AtEnd when
// nothing is skipped after it.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		l.skip()
		if l.Done() {
			return tokens, nil
		}
		tok, err := l.NextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.AtEnd {
			return tokens, nil
		}
	}
}

func minus(a, b []string) []string {
	var out []string
outer:
	for _, x := range a {
		for _, y := range b {
			if x == y {
				continue outer
			}
		}
		out = append(out, x)
	}
	return out
}
