package lex

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dhamidi/p7/ebnf/grammar"
)

func toyGrammar(t *testing.T) grammar.Grammar {
	t.Helper()
	g, err := grammar.Load(`
		Expr = Value { "+" Value } .
		Value = atom ":" Type .
		Type = ident .
		atom = "beep" | "boop" .
		ident = upper { lower } .
		upper = "A" … "Z" .
		lower = "a" … "z" .
	`)
	if err != nil {
		t.Fatalf("load grammar: %v", err)
	}
	return g
}

func TestLexer_Tokenize(t *testing.T) {
	g := toyGrammar(t)
	tokens, err := NewLexer(g, "beep:Fizz + boop:Bu", "").Tokenize()
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	var kinds, literals []string
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
		literals = append(literals, tok.Literal)
	}
	wantKinds := []string{"atom", `":"`, "ident", `"+"`, "atom", `":"`, "ident"}
	wantLiterals := []string{"beep", ":", "Fizz", "+", "boop", ":", "Bu"}
	if !reflect.DeepEqual(kinds, wantKinds) {
		t.Errorf("kinds = %q, want %q", kinds, wantKinds)
	}
	if !reflect.DeepEqual(literals, wantLiterals) {
		t.Errorf("literals = %q, want %q", literals, wantLiterals)
	}

	last := tokens[len(tokens)-1]
	if !last.AtEnd || !last.Is("ident") {
		t.Errorf("last token = %+v, want a complete ident at the end", last)
	}
	for _, tok := range tokens[:len(tokens)-1] {
		if tok.AtEnd {
			t.Errorf("token %s should not be marked AtEnd", tok)
		}
	}
}

func TestLexer_OpenToken(t *testing.T) {
	g := toyGrammar(t)
	tokens, err := NewLexer(g, "bee", "").Tokenize()
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected one token, got %v", tokens)
	}
	tok := tokens[0]
	if len(tok.Kinds) != 0 || !tok.IsPartial("atom") || !tok.AtEnd {
		t.Errorf("token = %+v, want an open atom", tok)
	}
}

func TestLexer_TrailingSkip(t *testing.T) {
	g := toyGrammar(t)
	tokens, err := NewLexer(g, "beep ", "").Tokenize()
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(tokens) != 1 || tokens[0].AtEnd {
		t.Errorf("tokens = %+v, want one closed token", tokens)
	}
}

func TestLexer_Positions(t *testing.T) {
	g := toyGrammar(t)
	tokens, err := NewLexer(g, "beep:\n  Fizz", "input.txt").Tokenize()
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	fizz := tokens[2]
	if got := fizz.Position.String(); got != "input.txt:2:3" {
		t.Errorf("position = %s, want input.txt:2:3", got)
	}
	if fizz.Position.Offset != 8 {
		t.Errorf("offset = %d, want 8", fizz.Position.Offset)
	}
	if end := fizz.End(); end.Column != 7 {
		t.Errorf("end column = %d, want 7", end.Column)
	}
}

func TestLexer_NoMatch(t *testing.T) {
	g := toyGrammar(t)
	tokens, err := NewLexer(g, "beep!", "").Tokenize()
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("error = %v, want ErrNoMatch", err)
	}
	if len(tokens) != 1 {
		t.Errorf("tokens before the error should be returned, got %v", tokens)
	}
}

func TestLexer_Empty(t *testing.T) {
	g := toyGrammar(t)
	tokens, err := NewLexer(g, " \n\t", "").Tokenize()
	if err != nil || len(tokens) != 0 {
		t.Errorf("Tokenize(blank) = %v, %v; want no tokens", tokens, err)
	}
}

func TestLexer_InvalidUTF8(t *testing.T) {
	g, err := grammar.Load(`
		S = word "a" .
		word = other { other } .
		other = "b" … "\U0010FFFF" .
	`)
	if err != nil {
		t.Fatalf("load grammar: %v", err)
	}
	tokens, err := NewLexer(g, "\xffa", "").Tokenize()
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("tokens = %+v, want two", tokens)
	}
	if tokens[0].Literal != "\xff" || !tokens[0].Is("word") {
		t.Errorf("first token = %+v, want the invalid byte as a word", tokens[0])
	}
	if tokens[1].Position.Offset != 1 || tokens[1].Literal != "a" {
		t.Errorf("second token = %+v, want \"a\" at offset 1", tokens[1])
	}
}
