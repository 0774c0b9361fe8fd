package lsp

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/ebnf/parse"
	"github.com/dhamidi/p7/generate"
	"github.com/dhamidi/p7/typing"
)

const diagnosticSource = "p7"

// Diagnose checks text against g. It reports the first place where the text
// stops being a prefix of a sentence, the type errors of a text that parses,
// and an incomplete sentence.
func Diagnose(g grammar.Grammar, text string) []protocol.Diagnostic {
	gen := generate.New(g)
	ok, err := gen.FeedRaw(text)
	switch {
	case ok:
		if strings.TrimSpace(text) == "" || gen.IsComplete() {
			return nil
		}
		end := positionAt(text, len(text))
		return []protocol.Diagnostic{
			diagnostic(protocol.DiagnosticSeverityInformation, protocol.Range{Start: end, End: end},
				"incomplete, expected "+expected(gen)),
		}
	case errors.Is(err, generate.ErrAmbiguous):
		r := protocol.Range{Start: positionAt(text, 0), End: positionAt(text, len(text))}
		return []protocol.Diagnostic{
			diagnostic(protocol.DiagnosticSeverityWarning, r, "too many parse trees to type check"),
		}
	case err != nil:
		return typeDiagnostics(g, text)
	}
	return []protocol.Diagnostic{syntaxDiagnostic(g, text)}
}

func diagnostic(severity protocol.DiagnosticSeverity, r protocol.Range, msg string) protocol.Diagnostic {
	source := diagnosticSource
	return protocol.Diagnostic{
		Range:    r,
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

// syntaxDiagnostic marks the first rune after the longest prefix of text
// that can still be completed. A prefix of such a prefix can be completed as
// well, so the prefix is found by bisection.
func syntaxDiagnostic(g grammar.Grammar, text string) protocol.Diagnostic {
	bounds := make([]int, 0, len(text)+1)
	for i := range text {
		bounds = append(bounds, i)
	}
	bounds = append(bounds, len(text))

	p := parse.NewParser(g)
	lo, hi := 0, len(bounds)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if p.Recognize(text[:bounds[mid]]) {
			lo = mid
		} else {
			hi = mid
		}
	}

	start, end := bounds[lo], bounds[hi]
	r := protocol.Range{Start: positionAt(text, start), End: positionAt(text, end)}

	gen := generate.New(g)
	if ok, _ := gen.FeedRaw(text[:start]); !ok {
		return diagnostic(protocol.DiagnosticSeverityError, r, fmt.Sprintf("unexpected %q", text[start:end]))
	}
	return diagnostic(protocol.DiagnosticSeverityError, r,
		fmt.Sprintf("unexpected %q, expected %s", text[start:end], expected(gen)))
}

func expected(gen *generate.Generator) string {
	texts := gen.Completions()
	if len(texts) == 0 {
		return "end of input"
	}
	const limit = 8
	if len(texts) > limit {
		return strings.Join(texts[:limit], ", ") + ", …"
	}
	return strings.Join(texts, ", ")
}

// typeDiagnostics reports the type errors of every tree of text. Ambiguous
// texts report each distinct error once.
func typeDiagnostics(g grammar.Grammar, text string) []protocol.Diagnostic {
	f, err := parse.NewParser(g).Partial(text)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []protocol.Diagnostic
	for _, root := range f.Roots {
		var (
			msg  string
			span parse.Span
		)
		switch s := typing.Check(root, g, nil).(type) {
		case typing.Malformed:
			msg, span = s.Reason, root.Span
			if s.Node != nil {
				span = s.Node.Span
			}
		case typing.TooDeep:
			msg, span = s.String(), root.Span
		default:
			continue
		}
		if seen[msg] {
			continue
		}
		seen[msg] = true
		r := protocol.Range{
			Start: positionAt(text, span.Start.Offset),
			End:   positionAt(text, span.End.Offset),
		}
		out = append(out, diagnostic(protocol.DiagnosticSeverityError, r, msg))
	}
	return out
}

// Complete returns the completion items for text, the document up to the
// cursor. Items with an exact text are offered when they keep the document
// well typed, with a leading space when the text needs one. Items known only
// by pattern are listed for information and insert nothing.
func Complete(g grammar.Grammar, text string) []protocol.CompletionItem {
	gen := generate.New(g)
	if ok, _ := gen.FeedRaw(text); !ok {
		return nil
	}

	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	for _, c := range gen.CompletionSet().Items() {
		if c.Example == "" {
			label := c.Pattern
			if seen[label] {
				continue
			}
			seen[label] = true
			kind := protocol.CompletionItemKindText
			detail := c.Kind + " matching " + c.Pattern
			empty := ""
			items = append(items, protocol.CompletionItem{
				Label:      label,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &empty,
			})
			continue
		}

		insert := c.Example
		if !gen.CheckCompletion(insert) {
			insert = " " + c.Example
			if c.Continuation || !gen.CheckCompletion(insert) {
				continue
			}
		}
		if seen[c.Example] {
			continue
		}
		seen[c.Example] = true
		kind := protocol.CompletionItemKindKeyword
		detail := c.Kind
		items = append(items, protocol.CompletionItem{
			Label:      c.Example,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &insert,
		})
	}
	return items
}

// positionAt converts a byte offset in text to an LSP position, counting
// characters in UTF-16 code units.
func positionAt(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	var line, char protocol.UInteger
	for _, r := range text[:offset] {
		if r == '\n' {
			line++
			char = 0
			continue
		}
		char += protocol.UInteger(utf16.RuneLen(r))
	}
	return protocol.Position{Line: line, Character: char}
}

// offsetAt converts an LSP position to a byte offset in text. Positions
// past the end of text are clamped.
func offsetAt(text string, pos protocol.Position) int {
	if int(pos.Line) > strings.Count(text, "\n") {
		return len(text)
	}
	return pos.IndexIn(text)
}
