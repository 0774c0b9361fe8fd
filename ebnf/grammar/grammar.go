// Package grammar compiles EBNF grammar specifications into the form used by
// the lexer, the parser and the type checker.
//
// A specification is a set of golang.org/x/exp/ebnf productions plus
// directive lines starting with '@'. Following the ebnf package, productions
// whose name starts with a lowercase letter are lexical: each one referenced
// from a syntactic production becomes a token kind. Capitalized productions
// are syntactic and are lowered to plain BNF rules.
package grammar

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dhamidi/p7/regex"
)

// DefaultDepth is the depth guard used when a specification has no @depth
// directive.
const DefaultDepth = 256

// defaultSkip matches Unicode whitespace.
const defaultSkip = `[\t\n\v\f\r \x{85}\p{Z}]+`

// Symbol is a grammar symbol on the right-hand side of a rule. Terminal
// symbols name token kinds.
type Symbol struct {
	Name     string
	Terminal bool
}

func (s Symbol) String() string { return s.Name }

// Rule is a BNF rule LHS → RHS. An empty RHS derives the empty string.
type Rule struct {
	LHS string
	RHS []Symbol
}

func (r Rule) String() string {
	parts := make([]string, len(r.RHS))
	for i, s := range r.RHS {
		parts[i] = s.Name
	}
	if len(parts) == 0 {
		return r.LHS + " → ε"
	}
	return r.LHS + " → " + strings.Join(parts, " ")
}

// TokenKind is a lexical category. Literal kinds are named by the quoted
// literal, e.g. `"let"`; named kinds by their lexical production.
type TokenKind struct {
	Name    string
	Literal string
	Pattern *regex.Regex
}

// IsLiteral reports whether the kind matches exactly one fixed string.
func (k TokenKind) IsLiteral() bool { return k.Literal != "" }

type compiled struct {
	source      string
	start       string
	rules       []Rule
	byLHS       map[string][]int
	nullable    map[string]bool
	synthetic   map[string]bool
	productions []string
	kinds       []TokenKind
	kindIndex   map[string]int
	skip        *regex.Regex
	depth       int
	directives  *Directives
}

// Grammar is an immutable compiled grammar. The zero value is not usable;
// obtain one from Load. Copying a Grammar is cheap and shares the compiled
// data.
type Grammar struct {
	c *compiled
}

// Load compiles a grammar specification.
func Load(spec string) (Grammar, error) {
	return load("grammar", spec)
}

// LoadFile compiles the grammar specification stored in filename.
func LoadFile(filename string) (Grammar, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Grammar{}, fmt.Errorf("open grammar: %w", err)
	}
	defer f.Close()

	src, err := io.ReadAll(f)
	if err != nil {
		return Grammar{}, fmt.Errorf("read grammar: %w", err)
	}
	return load(filename, string(src))
}

// IsZero reports whether g is the zero Grammar.
func (g Grammar) IsZero() bool { return g.c == nil }

// Source returns the specification the grammar was compiled from.
func (g Grammar) Source() string { return g.c.source }

// Start returns the start production.
func (g Grammar) Start() string { return g.c.start }

// StartNonterminal returns the start production, if the grammar has one.
func (g Grammar) StartNonterminal() (string, bool) {
	if g.c == nil || g.c.start == "" {
		return "", false
	}
	return g.c.start, true
}

// Rules returns all BNF rules in declaration order.
func (g Grammar) Rules() []Rule { return g.c.rules }

// Rule returns the rule with index i.
func (g Grammar) Rule(i int) Rule { return g.c.rules[i] }

// RulesFor returns the indices of the rules for the nonterminal name.
func (g Grammar) RulesFor(name string) []int { return g.c.byLHS[name] }

// Nullable reports whether the nonterminal name derives the empty string.
func (g Grammar) Nullable(name string) bool { return g.c.nullable[name] }

// IsSynthetic reports whether name is a nonterminal introduced while lowering
// groups, options and repetitions. Synthetic nodes never appear in trees.
func (g Grammar) IsSynthetic(name string) bool { return g.c.synthetic[name] }

// Productions returns the names of the syntactic productions, sorted.
func (g Grammar) Productions() []string { return g.c.productions }

// Kinds returns the token kinds.
func (g Grammar) Kinds() []TokenKind { return g.c.kinds }

// Kind returns the token kind called name.
func (g Grammar) Kind(name string) (TokenKind, bool) {
	i, ok := g.c.kindIndex[name]
	if !ok {
		return TokenKind{}, false
	}
	return g.c.kinds[i], true
}

// Skip returns the pattern skipped between tokens, or nil if nothing is.
func (g Grammar) Skip() *regex.Regex { return g.c.skip }

// Depth returns the depth guard for the type checker.
func (g Grammar) Depth() int { return g.c.depth }

// Directives returns the typing directives.
func (g Grammar) Directives() *Directives { return g.c.directives }

// Describe returns a human readable listing of the compiled grammar.
func (g Grammar) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "start: %s\n", g.c.start)
	for _, r := range g.c.rules {
		if g.c.synthetic[r.LHS] {
			fmt.Fprintf(&b, "  %s\n", r)
			continue
		}
		fmt.Fprintf(&b, "%s\n", r)
	}
	names := make([]string, 0, len(g.c.kinds))
	for _, k := range g.c.kinds {
		names = append(names, fmt.Sprintf("%s = /%s/", k.Name, k.Pattern))
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(&b, "token %s\n", n)
	}
	return b.String()
}
