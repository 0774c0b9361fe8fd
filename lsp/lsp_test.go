package lsp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/p7/ebnf/grammar"
)

const toyGrammar = `
@type Value Type
@type Type text
@same Expr

Expr = Value { "+" Value } .
Value = atom ":" Type .
Type = ident .
atom = "beep" | "boop" .
ident = upper { lower } .
upper = "A" … "Z" .
lower = "a" … "z" .
`

func loadToy(t *testing.T) grammar.Grammar {
	t.Helper()
	g, err := grammar.Load(toyGrammar)
	if err != nil {
		t.Fatalf("load grammar: %v", err)
	}
	return g
}

func TestDiagnoseComplete(t *testing.T) {
	g := loadToy(t)
	for _, text := range []string{"", "  ", "beep:Fizz", "beep:Fizz + boop:Fizz\n"} {
		if got := Diagnose(g, text); len(got) != 0 {
			t.Errorf("Diagnose(%q) = %v, want none", text, got)
		}
	}
}

func TestDiagnoseIncomplete(t *testing.T) {
	g := loadToy(t)
	got := Diagnose(g, "beep:Fizz +")
	if len(got) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(got))
	}
	d := got[0]
	if *d.Severity != protocol.DiagnosticSeverityInformation {
		t.Errorf("severity = %v, want information", *d.Severity)
	}
	if !strings.HasPrefix(d.Message, "incomplete") {
		t.Errorf("message = %q", d.Message)
	}
	if d.Range.Start != (protocol.Position{Line: 0, Character: 11}) {
		t.Errorf("range = %+v", d.Range)
	}
}

func TestDiagnoseSyntax(t *testing.T) {
	g := loadToy(t)

	tests := []struct {
		text  string
		start protocol.Position
		end   protocol.Position
	}{
		{"beep:Fizz !", protocol.Position{Line: 0, Character: 10}, protocol.Position{Line: 0, Character: 11}},
		{"beep:Fizz +\n  boop:Fizz !", protocol.Position{Line: 1, Character: 12}, protocol.Position{Line: 1, Character: 13}},
		{"x", protocol.Position{Line: 0, Character: 0}, protocol.Position{Line: 0, Character: 1}},
	}
	for _, tt := range tests {
		got := Diagnose(g, tt.text)
		if len(got) != 1 {
			t.Errorf("Diagnose(%q): expected 1 diagnostic, got %d", tt.text, len(got))
			continue
		}
		d := got[0]
		if *d.Severity != protocol.DiagnosticSeverityError {
			t.Errorf("Diagnose(%q): severity = %v", tt.text, *d.Severity)
		}
		if d.Range.Start != tt.start || d.Range.End != tt.end {
			t.Errorf("Diagnose(%q): range = %+v, want %+v-%+v", tt.text, d.Range, tt.start, tt.end)
		}
		if !strings.HasPrefix(d.Message, "unexpected") {
			t.Errorf("Diagnose(%q): message = %q", tt.text, d.Message)
		}
	}
}

func TestDiagnoseType(t *testing.T) {
	g := loadToy(t)
	got := Diagnose(g, "beep:Fizz + boop:Buzz")
	if len(got) == 0 {
		t.Fatal("expected a diagnostic")
	}
	if !strings.Contains(got[0].Message, "type mismatch") {
		t.Errorf("message = %q", got[0].Message)
	}
	if *got[0].Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v", *got[0].Severity)
	}
}

func TestDiagnoseAmbiguous(t *testing.T) {
	g, err := grammar.Load(`
		@type Head "C"
		@type One "A"
		@type Two "B"
		@same S

		S = Head Item { Item } .
		Item = One | Two .
		One = "x" .
		Two = "x" "x" .
		Head = "h" .
	`)
	if err != nil {
		t.Fatalf("load grammar: %v", err)
	}
	text := "h" + strings.Repeat(" x", 30)
	got := Diagnose(g, text)
	if len(got) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(got))
	}
	d := got[0]
	if *d.Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("severity = %v, want warning", *d.Severity)
	}
	if want := (protocol.Position{Line: 0, Character: protocol.UInteger(len(text))}); d.Range.End != want {
		t.Errorf("range = %+v", d.Range)
	}
}

func TestComplete(t *testing.T) {
	g := loadToy(t)

	var plus *protocol.CompletionItem
	items := Complete(g, "beep:Fizz")
	for i := range items {
		if items[i].Label == "+" {
			plus = &items[i]
		}
	}
	if plus == nil {
		t.Fatalf("expected a + completion, got %v", items)
	}
	if *plus.Kind != protocol.CompletionItemKindKeyword {
		t.Errorf("kind = %v, want keyword", *plus.Kind)
	}

	items = Complete(g, "beep:Fizz + ")
	if len(items) == 0 {
		t.Fatal("expected completions after +")
	}
	for _, item := range items {
		if *item.Kind == protocol.CompletionItemKindText && *item.InsertText != "" {
			t.Errorf("pattern item %q inserts %q", item.Label, *item.InsertText)
		}
	}

	if items := Complete(g, "beep!"); items != nil {
		t.Errorf("expected no completions for a rejected text, got %v", items)
	}
}

func TestPositions(t *testing.T) {
	text := "a\nb😀c"
	c := strings.Index(text, "c")

	pos := positionAt(text, c)
	if pos != (protocol.Position{Line: 1, Character: 3}) {
		t.Errorf("positionAt = %+v", pos)
	}
	if got := offsetAt(text, pos); got != c {
		t.Errorf("offsetAt = %d, want %d", got, c)
	}
	if got := offsetAt(text, protocol.Position{Line: 5}); got != len(text) {
		t.Errorf("offsetAt past the end = %d, want %d", got, len(text))
	}
}

func TestGrammarWatcher(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 16)
	w, err := NewGrammarWatcher(dir, func(name string) { changed <- name })
	if err != nil {
		t.Fatalf("NewGrammarWatcher: %v", err)
	}
	w.Start()
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mini.spec"), []byte(`S = "a" .`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-changed:
		if name != "mini" {
			t.Errorf("changed %q, want mini", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestURIToPath(t *testing.T) {
	path, err := uriToPath("file:///tmp/a%20b/prog.imp")
	if err != nil {
		t.Fatal(err)
	}
	if path != "/tmp/a b/prog.imp" {
		t.Errorf("path = %q", path)
	}
}
