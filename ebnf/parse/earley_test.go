package parse

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/ebnf/lex"
)

const toyGrammar = `
@start Expr
Expr = Value { "+" Value } .
Value = atom ":" Type .
Type = ident .
atom = "beep" | "boop" .
ident = upper { lower } .
upper = "A" … "Z" .
lower = "a" … "z" .
`

const letGrammar = `
Prog = Let | Expr .
Let = "let" ident "=" Expr .
Expr = ident | number .
ident = letter { letter } .
letter = "a" … "z" .
number = digit { digit } .
digit = "0" … "9" .
`

func mustLoad(t *testing.T, spec string) grammar.Grammar {
	t.Helper()
	g, err := grammar.Load(spec)
	if err != nil {
		t.Fatalf("load grammar: %v", err)
	}
	return g
}

func mustParse(t *testing.T, g grammar.Grammar, text string) *Forest {
	t.Helper()
	f, err := NewParser(g).Partial(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return f
}

func TestEarleyParser_AlternativeItems(t *testing.T) {
	g := mustLoad(t, `
		ClassModifier = Annotation | "public" | "private" .
		Annotation = "@" identifier .
		identifier = letter { letter } .
		letter = "a" … "z" .
	`)

	tokens, err := lex.NewLexer(g, "pub", "").Tokenize()
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	ep := NewEarleyParser(g, tokens)
	if err := ep.Parse(); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	f := ep.Forest()

	chart := ep.Chart()
	if len(chart) != 2 {
		t.Fatalf("expected 2 chart positions, got %d", len(chart))
	}

	foundPublicItem := false
	for _, item := range chart[0].Items() {
		rule := g.Rule(item.Rule)
		if rule.LHS == "ClassModifier" && len(rule.RHS) == 1 && rule.RHS[0].Name == `"public"` {
			foundPublicItem = true
		}
	}
	if !foundPublicItem {
		t.Errorf("expected to find ClassModifier item for 'public' alternative in chart[0]")
		for _, item := range chart[0].Items() {
			t.Logf("  %s %s", item, g.Rule(item.Rule))
		}
	}

	if len(f.Roots) != 1 {
		t.Fatalf("expected one partial root, got %d", len(f.Roots))
	}
	if got, want := f.Roots[0].SExpr(Canonical), `(ClassModifier ("public" "pub" …) …)`; got != want {
		t.Errorf("root = %s, want %s", got, want)
	}
	if got := f.Completions().Texts(); !reflect.DeepEqual(got, []string{"lic"}) {
		t.Errorf("completions = %q, want [lic]", got)
	}
}

func TestEarleyParser_CompleteTree(t *testing.T) {
	g := mustLoad(t, toyGrammar)
	f := mustParse(t, g, "beep:Fizz + boop:Buzz")

	root, ok := f.Complete()
	if !ok {
		t.Fatalf("expected a complete root, got %s", f.Serialize(Canonical))
	}
	want := `(Expr (Value (atom "beep") ":" (Type (ident "Fizz"))) "+" (Value (atom "boop") ":" (Type (ident "Buzz"))))`
	if got := root.SExpr(Canonical); got != want {
		t.Errorf("tree =\n%s\nwant\n%s", got, want)
	}
	if len(f.Roots) != 1 {
		t.Errorf("expected exactly one root, got %d", len(f.Roots))
	}
	if got := root.Text(); got != "beep:Fizz+boop:Buzz" {
		t.Errorf("Text() = %q", got)
	}
	if !root.IsOpen() {
		t.Error("root should be open: its last token touches the end")
	}
}

func TestEarleyParser_PartialSpine(t *testing.T) {
	g := mustLoad(t, toyGrammar)
	f := mustParse(t, g, "beep:Fizz +")

	if _, ok := f.Complete(); ok {
		t.Fatal("prefix ending in an operator must not be complete")
	}
	if len(f.Roots) != 1 {
		t.Fatalf("expected one partial root, got %d: %s", len(f.Roots), f.Serialize(Canonical))
	}
	want := `(Expr (Value (atom "beep") ":" (Type (ident "Fizz"))) "+" …)`
	if got := f.Roots[0].SExpr(Canonical); got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
}

func TestEarleyParser_NestedRepetitions(t *testing.T) {
	g := mustLoad(t, `
		PackageDeclaration = "package" identifier { "." identifier } ";" .
		identifier = "a" … "z" { "a" … "z" } .
	`)
	f := mustParse(t, g, "package com.example.foo;")
	root, ok := f.Complete()
	if !ok {
		t.Fatal("expected a complete parse")
	}
	if got := len(root.Children); got != 7 {
		t.Errorf("repetitions should be spliced into the parent: got %d children", got)
	}
}

func TestEarleyParser_KeywordOrIdentifier(t *testing.T) {
	g := mustLoad(t, letGrammar)

	f := mustParse(t, g, "let")
	if len(f.Roots) != 2 {
		t.Fatalf("expected identifier and keyword readings, got %s", f.Serialize(Canonical))
	}
	if got, want := f.Roots[0].SExpr(Canonical), `(Prog (Expr (ident "let")))`; got != want {
		t.Errorf("complete root = %s, want %s", got, want)
	}
	if got, want := f.Roots[1].SExpr(Canonical), `(Prog (Let "let" …) …)`; got != want {
		t.Errorf("partial root = %s, want %s", got, want)
	}

	f = mustParse(t, g, "let x = 42")
	root, ok := f.Complete()
	if !ok {
		t.Fatal("expected a complete parse")
	}
	want := `(Prog (Let "let" (ident "x") "=" (Expr (number "42"))))`
	if got := root.SExpr(Canonical); got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
}

func TestEarleyParser_SyntaxError(t *testing.T) {
	g := mustLoad(t, letGrammar)
	p := NewParser(g)

	for _, text := range []string{"= x", "let x x", "let $"} {
		if _, err := p.Partial(text); !errors.Is(err, ErrSyntax) {
			t.Errorf("Partial(%q) error = %v, want ErrSyntax", text, err)
		}
	}
	if _, err := p.Partial("let $"); !errors.Is(err, lex.ErrNoMatch) {
		t.Errorf("lexer errors should stay visible, got %v", err)
	}
}

func TestEarleyParser_EmptyInput(t *testing.T) {
	g := mustLoad(t, toyGrammar)
	f := mustParse(t, g, "   ")
	if len(f.Roots) != 1 || f.Roots[0].Complete {
		t.Fatalf("empty input should give one incomplete root, got %s", f.Serialize(Canonical))
	}
	if !f.Completions().Matches("beep") {
		t.Error("empty input should accept the first token")
	}
}

func TestItemSetDeduplication(t *testing.T) {
	set := newItemSet(0)

	item1 := &Item{Rule: 0, Dot: 0, Origin: 0}
	item2 := &Item{Rule: 1, Dot: 0, Origin: 0}

	if added := set.Add(item1, nil); !added {
		t.Error("first item should be added")
	}
	if added := set.Add(item2, nil); !added {
		t.Error("second item with different rule should be added")
	}
	if len(set.Items()) != 2 {
		t.Errorf("expected 2 items, got %d", len(set.Items()))
	}
	if added := set.Add(&Item{Rule: 0, Dot: 0, Origin: 0}, &link{tok: 3}); added {
		t.Error("duplicate item should not be added")
	}
	set.Add(&Item{Rule: 0, Dot: 0, Origin: 0}, &link{tok: 3})
	if got := len(item1.links); got != 1 {
		t.Errorf("expected duplicate links to be merged, got %d links", got)
	}
}

const segmentGrammar = `
@start S
S = Head Item { Item } .
Item = One | Two .
One = "x" .
Two = "x" "x" .
Head = "h" .
`

func xs(n int) string {
	return "h" + strings.Repeat(" x", n)
}

func contains(n *Node, kind string) bool {
	found := false
	n.Walk(func(c *Node) bool {
		if c.Kind == kind {
			found = true
		}
		return !found
	})
	return found
}

func TestParser_PartialTypedKeepsLateTree(t *testing.T) {
	g := mustLoad(t, segmentGrammar)
	p := NewParser(g)

	all, err := p.Partial(xs(12))
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Roots) != maxRoots {
		t.Fatalf("expected the root limit to be reached, got %d roots", len(all.Roots))
	}

	onlyOnes := func(n *Node) bool { return n.Complete && !contains(n, "Two") }
	f, err := p.PartialTyped(xs(12), onlyOnes)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Roots) != 1 {
		t.Fatalf("expected one root, got %d: %s", len(f.Roots), f.Serialize(Canonical))
	}
	if f.Truncated {
		t.Error("twelve tokens should not exhaust extraction")
	}
	if got := f.Roots[0].Text(); got != "h"+strings.Repeat("x", 12) {
		t.Errorf("Text() = %q", got)
	}
}

func TestParser_PartialTypedTruncated(t *testing.T) {
	g := mustLoad(t, segmentGrammar)
	f, err := NewParser(g).PartialTyped(xs(30), func(*Node) bool { return false })
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Roots) != 0 {
		t.Errorf("expected no roots, got %d", len(f.Roots))
	}
	if !f.Truncated {
		t.Error("expected extraction to stop at its limit")
	}
}

func TestParser_Recognize(t *testing.T) {
	p := NewParser(mustLoad(t, letGrammar))
	for text, want := range map[string]bool{
		"let x":    true,
		"let x = ": true,
		"= x":      false,
		"let =":    false,
	} {
		if got := p.Recognize(text); got != want {
			t.Errorf("Recognize(%q) = %v, want %v", text, got, want)
		}
	}
}
