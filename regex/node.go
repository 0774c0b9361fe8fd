package regex

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Precedence levels used when printing patterns.
const (
	precAlt = iota
	precCat
	precAtom
)

// node is an immutable regular expression term. Nodes are only built through
// the mk* constructors, which keep terms in a simplified normal form so that
// the empty language is always represented by empty{} and derivatives stay
// small.
type node interface {
	nullable() bool
	derive(r rune) node
	key() string
	prec() int
}

type empty struct{}

func (empty) nullable() bool   { return false }
func (empty) derive(rune) node { return empty{} }
func (empty) key() string      { return `[^\x00-\x{10FFFF}]` }
func (empty) prec() int        { return precAtom }

type eps struct{}

func (eps) nullable() bool   { return true }
func (eps) derive(rune) node { return empty{} }
func (eps) key() string      { return `(?:)` }
func (eps) prec() int        { return precAtom }

type runeRange struct {
	lo, hi rune
}

type class struct {
	ranges []runeRange
	k      string
}

func (c *class) nullable() bool { return false }

func (c *class) derive(r rune) node {
	if c.contains(r) {
		return eps{}
	}
	return empty{}
}

func (c *class) key() string { return c.k }
func (c *class) prec() int   { return precAtom }

func (c *class) contains(r rune) bool {
	i := sort.Search(len(c.ranges), func(i int) bool { return c.ranges[i].hi >= r })
	return i < len(c.ranges) && c.ranges[i].lo <= r
}

// single returns the rune matched by a one-rune class.
func (c *class) single() (rune, bool) {
	if len(c.ranges) == 1 && c.ranges[0].lo == c.ranges[0].hi {
		return c.ranges[0].lo, true
	}
	return 0, false
}

type cat struct {
	a, b node
	k    string
}

func (c *cat) nullable() bool { return c.a.nullable() && c.b.nullable() }

func (c *cat) derive(r rune) node {
	d := mkCat(c.a.derive(r), c.b)
	if c.a.nullable() {
		d = mkAlt(d, c.b.derive(r))
	}
	return d
}

func (c *cat) key() string { return c.k }
func (c *cat) prec() int   { return precCat }

type alt struct {
	items []node
	k     string
}

func (a *alt) nullable() bool {
	for _, it := range a.items {
		if it.nullable() {
			return true
		}
	}
	return false
}

func (a *alt) derive(r rune) node {
	ds := make([]node, len(a.items))
	for i, it := range a.items {
		ds[i] = it.derive(r)
	}
	return mkAlt(ds...)
}

func (a *alt) key() string { return a.k }
func (a *alt) prec() int   { return precAlt }

type star struct {
	x node
	k string
}

func (s *star) nullable() bool     { return true }
func (s *star) derive(r rune) node { return mkCat(s.x.derive(r), s) }
func (s *star) key() string        { return s.k }
func (s *star) prec() int          { return precAtom }

func wrap(n node, min int) string {
	if n.prec() < min {
		return "(?:" + n.key() + ")"
	}
	return n.key()
}

func mkClass(ranges []runeRange) node {
	if len(ranges) == 0 {
		return empty{}
	}
	rs := append([]runeRange(nil), ranges...)
	sort.Slice(rs, func(i, j int) bool { return rs[i].lo < rs[j].lo })
	merged := rs[:1]
	for _, r := range rs[1:] {
		last := &merged[len(merged)-1]
		if r.lo <= last.hi+1 {
			if r.hi > last.hi {
				last.hi = r.hi
			}
			continue
		}
		merged = append(merged, r)
	}
	c := &class{ranges: merged}
	c.k = classKey(merged)
	return c
}

func mkRune(r rune) node {
	return mkClass([]runeRange{{r, r}})
}

func mkCat(a, b node) node {
	switch a.(type) {
	case empty:
		return empty{}
	case eps:
		return b
	}
	switch b.(type) {
	case empty:
		return empty{}
	case eps:
		return a
	}
	if c, ok := a.(*cat); ok {
		return mkCat(c.a, mkCat(c.b, b))
	}
	return &cat{a: a, b: b, k: wrap(a, precCat) + wrap(b, precCat)}
}

func mkAlt(items ...node) node {
	var flat []node
	var ranges []runeRange
	hasClass := false
	for _, it := range items {
		switch x := it.(type) {
		case empty:
		case *alt:
			for _, sub := range x.items {
				if c, ok := sub.(*class); ok {
					ranges = append(ranges, c.ranges...)
					hasClass = true
					continue
				}
				flat = append(flat, sub)
			}
		case *class:
			ranges = append(ranges, x.ranges...)
			hasClass = true
		default:
			flat = append(flat, it)
		}
	}
	if hasClass {
		flat = append(flat, mkClass(ranges))
	}
	seen := make(map[string]bool, len(flat))
	uniq := flat[:0]
	for _, it := range flat {
		if seen[it.key()] {
			continue
		}
		seen[it.key()] = true
		uniq = append(uniq, it)
	}
	switch len(uniq) {
	case 0:
		return empty{}
	case 1:
		return uniq[0]
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].key() < uniq[j].key() })
	parts := make([]string, len(uniq))
	for i, it := range uniq {
		parts[i] = wrap(it, precAlt+1)
	}
	return &alt{items: uniq, k: strings.Join(parts, "|")}
}

func mkStar(x node) node {
	switch x := x.(type) {
	case empty, eps:
		return eps{}
	case *star:
		return x
	}
	return &star{x: x, k: wrap(x, precAtom) + "*"}
}

func classKey(ranges []runeRange) string {
	if len(ranges) == 1 {
		r := ranges[0]
		if r.lo == r.hi {
			return quoteRune(r.lo)
		}
		if r.lo == 0 && r.hi == unicode.MaxRune {
			return `(?s:.)`
		}
	}
	var b strings.Builder
	b.WriteByte('[')
	for _, r := range ranges {
		b.WriteString(classRune(r.lo))
		if r.hi != r.lo {
			b.WriteByte('-')
			b.WriteString(classRune(r.hi))
		}
	}
	b.WriteByte(']')
	return b.String()
}

func quoteRune(r rune) string {
	if !unicode.IsPrint(r) || r == utf8.RuneError {
		return fmt.Sprintf(`\x{%x}`, r)
	}
	return regexp.QuoteMeta(string(r))
}

func classRune(r rune) string {
	switch {
	case !unicode.IsPrint(r) || r == utf8.RuneError:
		return fmt.Sprintf(`\x{%x}`, r)
	case strings.ContainsRune(`\]-^[`, r):
		return `\` + string(r)
	}
	return string(r)
}
