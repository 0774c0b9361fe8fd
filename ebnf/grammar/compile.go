package grammar

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/exp/ebnf"

	"github.com/dhamidi/p7/regex"
)

// ConstructionError reports a malformed grammar specification.
type ConstructionError struct {
	Filename string
	Line     int // 0 when the position is part of Err
	Err      error
}

func (e *ConstructionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Filename, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// verifyRoot is the production added to check reachability of the start and
// skip productions together. It cannot clash with a declared name because the
// EBNF scanner never produces identifiers containing '·'.
const verifyRoot = "Root·"

func isLexical(name string) bool {
	ch, _ := utf8.DecodeRuneInString(name)
	return !unicode.IsUpper(ch)
}

func load(filename, spec string) (Grammar, error) {
	body, h, err := splitDirectives(filename, spec)
	if err != nil {
		return Grammar{}, err
	}
	fail := func(format string, args ...any) (Grammar, error) {
		return Grammar{}, &ConstructionError{Filename: filename, Err: fmt.Errorf(format, args...)}
	}

	prods, err := ebnf.Parse(filename, strings.NewReader(body))
	if err != nil {
		return Grammar{}, &ConstructionError{Filename: filename, Err: err}
	}
	if len(prods) == 0 {
		return fail("no productions")
	}

	ordered := make([]*ebnf.Production, 0, len(prods))
	for _, p := range prods {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Pos().Offset < ordered[j].Pos().Offset
	})

	start := h.start
	if start == "" {
		for _, p := range ordered {
			if !isLexical(p.Name.String) {
				start = p.Name.String
				break
			}
		}
		if start == "" {
			return fail("no syntactic production to start from")
		}
	}
	if _, ok := prods[start]; !ok {
		return fail("start production %s is not declared", start)
	}
	if isLexical(start) {
		return fail("start production %s is lexical", start)
	}

	skipName := h.skip
	if skipName == "none" {
		skipName = ""
	} else if skipName != "" {
		if _, ok := prods[skipName]; !ok {
			return fail("skip production %s is not declared", skipName)
		}
		if !isLexical(skipName) {
			return fail("skip production %s is not lexical", skipName)
		}
	}

	for _, m := range h.mentions {
		if _, ok := prods[m.name]; !ok {
			return Grammar{}, &ConstructionError{
				Filename: filename,
				Line:     m.line,
				Err:      fmt.Errorf("directive names undeclared production %s", m.name),
			}
		}
	}

	root := ebnf.Sequence{&ebnf.Name{String: start}}
	if skipName != "" {
		root = append(root, &ebnf.Name{String: skipName})
	}
	verify := make(ebnf.Grammar, len(prods)+1)
	for name, p := range prods {
		verify[name] = p
	}
	verify[verifyRoot] = &ebnf.Production{Name: &ebnf.Name{String: verifyRoot}, Expr: root}
	if err := ebnf.Verify(verify, verifyRoot); err != nil {
		return Grammar{}, &ConstructionError{Filename: filename, Err: err}
	}

	c := &compiled{
		source:     spec,
		start:      start,
		byLHS:      make(map[string][]int),
		nullable:   make(map[string]bool),
		synthetic:  make(map[string]bool),
		kindIndex:  make(map[string]int),
		depth:      h.depth,
		directives: h.typing,
	}
	l := &lowerer{
		prods:    prods,
		c:        c,
		counter:  make(map[string]int),
		patterns: make(map[string]string),
		visiting: make(map[string]bool),
	}
	for _, p := range ordered {
		name := p.Name.String
		if isLexical(name) {
			continue
		}
		c.productions = append(c.productions, name)
		if err := l.production(name, p.Expr); err != nil {
			return Grammar{}, &ConstructionError{Filename: filename, Line: p.Pos().Line, Err: err}
		}
	}
	sort.Strings(c.productions)

	switch {
	case h.skip == "none":
	case skipName == "":
		c.skip = regex.MustCompile(defaultSkip)
	default:
		pat, err := l.pattern(&ebnf.Name{String: skipName})
		if err != nil {
			return fail("skip production %s: %w", skipName, err)
		}
		if c.skip, err = regex.Compile(pat); err != nil {
			return fail("skip production %s: %w", skipName, err)
		}
	}

	c.computeNullable()
	return Grammar{c: c}, nil
}

type lowerer struct {
	prods    ebnf.Grammar
	c        *compiled
	counter  map[string]int
	patterns map[string]string
	visiting map[string]bool
}

func alternatives(e ebnf.Expression) []ebnf.Expression {
	if alt, ok := e.(ebnf.Alternative); ok {
		return alt
	}
	return []ebnf.Expression{e}
}

func (l *lowerer) addRule(lhs string, rhs []Symbol) {
	l.c.byLHS[lhs] = append(l.c.byLHS[lhs], len(l.c.rules))
	l.c.rules = append(l.c.rules, Rule{LHS: lhs, RHS: rhs})
}

func (l *lowerer) synthetic(owner string) string {
	l.counter[owner]++
	name := fmt.Sprintf("%s~%d", owner, l.counter[owner])
	l.c.synthetic[name] = true
	return name
}

func (l *lowerer) production(name string, expr ebnf.Expression) error {
	for _, alt := range alternatives(expr) {
		rhs, err := l.sequence(name, alt)
		if err != nil {
			return err
		}
		l.addRule(name, rhs)
	}
	return nil
}

func (l *lowerer) sequence(owner string, e ebnf.Expression) ([]Symbol, error) {
	seq, ok := e.(ebnf.Sequence)
	if !ok {
		return l.symbols(owner, e)
	}
	var out []Symbol
	for _, x := range seq {
		syms, err := l.symbols(owner, x)
		if err != nil {
			return nil, err
		}
		out = append(out, syms...)
	}
	return out, nil
}

// choice lowers an alternative to a synthetic nonterminal with one rule per
// branch.
func (l *lowerer) choice(owner string, alt ebnf.Alternative) ([]Symbol, error) {
	syn := l.synthetic(owner)
	if err := l.production(syn, alt); err != nil {
		return nil, err
	}
	return []Symbol{{Name: syn}}, nil
}

func (l *lowerer) symbols(owner string, e ebnf.Expression) ([]Symbol, error) {
	switch x := e.(type) {
	case nil:
		return nil, nil
	case *ebnf.Name:
		if !isLexical(x.String) {
			return []Symbol{{Name: x.String}}, nil
		}
		kind, err := l.namedKind(x.String)
		if err != nil {
			return nil, err
		}
		return []Symbol{{Name: kind, Terminal: true}}, nil
	case *ebnf.Token:
		if x.String == "" {
			return nil, nil
		}
		return []Symbol{{Name: l.literalKind(x.String), Terminal: true}}, nil
	case *ebnf.Range:
		kind, err := l.rangeKind(x)
		if err != nil {
			return nil, err
		}
		return []Symbol{{Name: kind, Terminal: true}}, nil
	case ebnf.Sequence:
		return l.sequence(owner, x)
	case ebnf.Alternative:
		return l.choice(owner, x)
	case *ebnf.Group:
		if alt, ok := x.Body.(ebnf.Alternative); ok {
			return l.choice(owner, alt)
		}
		return l.sequence(owner, x.Body)
	case *ebnf.Option:
		syn := l.synthetic(owner)
		l.addRule(syn, nil)
		if err := l.production(syn, x.Body); err != nil {
			return nil, err
		}
		return []Symbol{{Name: syn}}, nil
	case *ebnf.Repetition:
		syn := l.synthetic(owner)
		var body []Symbol
		var err error
		if alt, ok := x.Body.(ebnf.Alternative); ok {
			body, err = l.choice(owner, alt)
		} else {
			body, err = l.sequence(owner, x.Body)
		}
		if err != nil {
			return nil, err
		}
		l.addRule(syn, nil)
		l.addRule(syn, append([]Symbol{{Name: syn}}, body...))
		return []Symbol{{Name: syn}}, nil
	case *ebnf.Bad:
		return nil, errors.New(x.Error)
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

func (l *lowerer) addKind(k TokenKind) string {
	if _, ok := l.c.kindIndex[k.Name]; !ok {
		l.c.kindIndex[k.Name] = len(l.c.kinds)
		l.c.kinds = append(l.c.kinds, k)
	}
	return k.Name
}

func (l *lowerer) literalKind(lit string) string {
	name := strconv.Quote(lit)
	if _, ok := l.c.kindIndex[name]; ok {
		return name
	}
	return l.addKind(TokenKind{Name: name, Literal: lit, Pattern: regex.Literal(lit)})
}

func (l *lowerer) rangeKind(r *ebnf.Range) (string, error) {
	name := fmt.Sprintf("%q…%q", r.Begin.String, r.End.String)
	if _, ok := l.c.kindIndex[name]; ok {
		return name, nil
	}
	re, err := regex.Compile(rangePattern(r))
	if err != nil {
		return "", err
	}
	return l.addKind(TokenKind{Name: name, Pattern: re}), nil
}

func (l *lowerer) namedKind(name string) (string, error) {
	if _, ok := l.c.kindIndex[name]; ok {
		return name, nil
	}
	pat, err := l.pattern(&ebnf.Name{String: name})
	if err != nil {
		return "", fmt.Errorf("token %s: %w", name, err)
	}
	re, err := regex.Compile(pat)
	if err != nil {
		return "", fmt.Errorf("token %s: %w", name, err)
	}
	return l.addKind(TokenKind{Name: name, Pattern: re}), nil
}

func rangePattern(r *ebnf.Range) string {
	lo, _ := utf8.DecodeRuneInString(r.Begin.String)
	hi, _ := utf8.DecodeRuneInString(r.End.String)
	return fmt.Sprintf(`[\x{%x}-\x{%x}]`, lo, hi)
}

// pattern renders a lexical expression as a regular expression, inlining the
// lexical productions it references.
func (l *lowerer) pattern(e ebnf.Expression) (string, error) {
	group := func(s string) string { return "(?:" + s + ")" }
	switch x := e.(type) {
	case nil:
		return "(?:)", nil
	case *ebnf.Token:
		return group(regexp.QuoteMeta(x.String)), nil
	case *ebnf.Range:
		return rangePattern(x), nil
	case *ebnf.Group:
		return l.pattern(x.Body)
	case *ebnf.Option:
		p, err := l.pattern(x.Body)
		return group(p) + "?", err
	case *ebnf.Repetition:
		p, err := l.pattern(x.Body)
		return group(p) + "*", err
	case ebnf.Sequence:
		var b strings.Builder
		for _, item := range x {
			p, err := l.pattern(item)
			if err != nil {
				return "", err
			}
			b.WriteString(group(p))
		}
		return b.String(), nil
	case ebnf.Alternative:
		parts := make([]string, len(x))
		for i, item := range x {
			p, err := l.pattern(item)
			if err != nil {
				return "", err
			}
			parts[i] = p
		}
		return group(strings.Join(parts, "|")), nil
	case *ebnf.Name:
		if p, ok := l.patterns[x.String]; ok {
			return p, nil
		}
		if l.visiting[x.String] {
			return "", fmt.Errorf("lexical production %s is recursive", x.String)
		}
		prod, ok := l.prods[x.String]
		if !ok {
			return "", fmt.Errorf("missing production %s", x.String)
		}
		l.visiting[x.String] = true
		p, err := l.pattern(prod.Expr)
		delete(l.visiting, x.String)
		if err != nil {
			return "", err
		}
		p = group(p)
		l.patterns[x.String] = p
		return p, nil
	case *ebnf.Bad:
		return "", errors.New(x.Error)
	}
	return "", fmt.Errorf("unsupported expression %T", e)
}

func (c *compiled) computeNullable() {
	for changed := true; changed; {
		changed = false
		for _, r := range c.rules {
			if c.nullable[r.LHS] {
				continue
			}
			all := true
			for _, s := range r.RHS {
				if s.Terminal || !c.nullable[s.Name] {
					all = false
					break
				}
			}
			if all {
				c.nullable[r.LHS] = true
				changed = true
			}
		}
	}
}
