// Package regex implements regular expressions evaluated by Brzozowski
// derivatives.
//
// The standard library's regexp answers "does this string match". Constrained
// generation needs more: whether a string can still be extended into a match
// (PrefixMatch), and what language remains after a prefix has been consumed
// (Derive). Patterns use the RE2 syntax accepted by regexp/syntax, without
// line anchors or word boundaries; every match is a whole-string match.
package regex

import (
	"fmt"
	"regexp/syntax"
	"unicode"
	"unicode/utf8"
)

// PrefixStatus classifies a string against the language of a Regex.
type PrefixStatus int

const (
	// NoMatch means no extension of the string is in the language.
	NoMatch PrefixStatus = iota
	// Prefix means the string is not in the language but can be extended
	// into a member.
	Prefix
	// Complete means the string is in the language and no extension is.
	Complete
	// Extensible means the string is in the language and so are some of its
	// extensions.
	Extensible
)

func (s PrefixStatus) String() string {
	switch s {
	case NoMatch:
		return "no-match"
	case Prefix:
		return "prefix"
	case Complete:
		return "complete"
	case Extensible:
		return "extensible"
	default:
		return fmt.Sprintf("PrefixStatus(%d)", int(s))
	}
}

// Error reports a pattern that could not be compiled.
type Error struct {
	Pattern string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid regex %q: %v", e.Pattern, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Regex is a compiled regular expression. A Regex is immutable and safe for
// concurrent use.
type Regex struct {
	root   node
	source string
}

// Compile parses a pattern.
func Compile(pattern string) (*Regex, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, &Error{Pattern: pattern, Err: err}
	}
	root, err := fromSyntax(re.Simplify())
	if err != nil {
		return nil, &Error{Pattern: pattern, Err: err}
	}
	return &Regex{root: root, source: pattern}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *Regex {
	r, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Literal returns a Regex matching exactly s.
func Literal(s string) *Regex {
	var n node = eps{}
	for _, r := range reverse(s) {
		n = mkCat(mkRune(r), n)
	}
	return &Regex{root: n, source: n.key()}
}

// Matches compiles pattern and reports whether text is in its language.
func Matches(pattern, text string) (bool, error) {
	r, err := Compile(pattern)
	if err != nil {
		return false, err
	}
	return r.Matches(text), nil
}

// PrefixValid compiles pattern and reports whether prefix can still be
// extended into a match.
func PrefixValid(pattern, prefix string) (bool, error) {
	r, err := Compile(pattern)
	if err != nil {
		return false, err
	}
	return r.PrefixMatch(prefix) != NoMatch, nil
}

// Source returns the pattern the Regex was compiled from.
func (r *Regex) Source() string { return r.source }

// String returns the canonical pattern of the Regex. Equal canonical patterns
// denote the same term; the pattern round-trips through Compile.
func (r *Regex) String() string { return r.root.key() }

// Matches reports whether text is in the language.
func (r *Regex) Matches(text string) bool {
	return deriveString(r.root, text).nullable()
}

// Derive returns the Regex of all suffixes s such that prefix+s matches r.
func (r *Regex) Derive(prefix string) *Regex {
	n := deriveString(r.root, prefix)
	return &Regex{root: n, source: n.key()}
}

// PrefixMatch classifies prefix against the language.
func (r *Regex) PrefixMatch(prefix string) PrefixStatus {
	n := deriveString(r.root, prefix)
	switch {
	case isEmpty(n):
		return NoMatch
	case !n.nullable():
		return Prefix
	case isEps(n):
		return Complete
	default:
		return Extensible
	}
}

// IsEmpty reports whether the language is empty.
func (r *Regex) IsEmpty() bool { return isEmpty(r.root) }

// IsEpsilon reports whether the language is exactly the empty string.
func (r *Regex) IsEpsilon() bool { return isEps(r.root) }

// Nullable reports whether the empty string is in the language.
func (r *Regex) Nullable() bool { return r.root.nullable() }

// Literal returns the single string the Regex matches, if its language is one
// fixed string.
func (r *Regex) Literal() (string, bool) {
	var out []rune
	n := r.root
	for {
		switch x := n.(type) {
		case eps:
			return string(out), true
		case *class:
			c, ok := x.single()
			if !ok {
				return "", false
			}
			return string(append(out, c)), true
		case *cat:
			c, ok := x.a.(*class)
			if !ok {
				return "", false
			}
			ch, ok := c.single()
			if !ok {
				return "", false
			}
			out = append(out, ch)
			n = x.b
		default:
			return "", false
		}
	}
}

// LongestMatch returns the byte length of the longest prefix of s in the
// language, or -1 if there is none. viable reports whether all of s is a
// viable prefix, i.e. the derivative never became empty.
func (r *Regex) LongestMatch(s string) (n int, viable bool) {
	cur := r.root
	n = -1
	if cur.nullable() {
		n = 0
	}
	// An invalid byte decodes as utf8.RuneError of width 1.
	for i := 0; i < len(s); {
		ch, size := utf8.DecodeRuneInString(s[i:])
		i += size
		cur = cur.derive(ch)
		if isEmpty(cur) {
			return n, false
		}
		if cur.nullable() {
			n = i
		}
	}
	return n, true
}

// Consumes reports whether s either is a viable prefix of the language or
// starts with a non-empty member of it. It is the optimistic test used for
// continuations that may span several tokens.
func (r *Regex) Consumes(s string) bool {
	if s == "" {
		return false
	}
	n, viable := r.LongestMatch(s)
	return viable || n > 0
}

func deriveString(n node, s string) node {
	for _, ch := range s {
		n = n.derive(ch)
		if isEmpty(n) {
			return n
		}
	}
	return n
}

func isEmpty(n node) bool {
	_, ok := n.(empty)
	return ok
}

func isEps(n node) bool {
	_, ok := n.(eps)
	return ok
}

func reverse(s string) []rune {
	rs := []rune(s)
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return rs
}

func fromSyntax(re *syntax.Regexp) (node, error) {
	switch re.Op {
	case syntax.OpNoMatch:
		return empty{}, nil
	case syntax.OpEmptyMatch, syntax.OpBeginText, syntax.OpEndText:
		return eps{}, nil
	case syntax.OpLiteral:
		var n node = eps{}
		for i := len(re.Rune) - 1; i >= 0; i-- {
			n = mkCat(literalRune(re.Rune[i], re.Flags&syntax.FoldCase != 0), n)
		}
		return n, nil
	case syntax.OpCharClass:
		ranges := make([]runeRange, 0, len(re.Rune)/2)
		for i := 0; i+1 < len(re.Rune); i += 2 {
			ranges = append(ranges, runeRange{re.Rune[i], re.Rune[i+1]})
		}
		return mkClass(ranges), nil
	case syntax.OpAnyCharNotNL:
		return mkClass([]runeRange{{0, '\n' - 1}, {'\n' + 1, unicode.MaxRune}}), nil
	case syntax.OpAnyChar:
		return mkClass([]runeRange{{0, unicode.MaxRune}}), nil
	case syntax.OpCapture:
		return fromSyntax(re.Sub[0])
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest:
		sub, err := fromSyntax(re.Sub[0])
		if err != nil {
			return nil, err
		}
		switch re.Op {
		case syntax.OpStar:
			return mkStar(sub), nil
		case syntax.OpPlus:
			return mkCat(sub, mkStar(sub)), nil
		default:
			return mkAlt(sub, eps{}), nil
		}
	case syntax.OpRepeat:
		sub, err := fromSyntax(re.Sub[0])
		if err != nil {
			return nil, err
		}
		var n node = eps{}
		for i := 0; i < re.Min; i++ {
			n = mkCat(n, sub)
		}
		if re.Max < 0 {
			return mkCat(n, mkStar(sub)), nil
		}
		for i := re.Min; i < re.Max; i++ {
			n = mkCat(n, mkAlt(sub, eps{}))
		}
		return n, nil
	case syntax.OpConcat:
		var n node = eps{}
		for i := len(re.Sub) - 1; i >= 0; i-- {
			sub, err := fromSyntax(re.Sub[i])
			if err != nil {
				return nil, err
			}
			n = mkCat(sub, n)
		}
		return n, nil
	case syntax.OpAlternate:
		subs := make([]node, 0, len(re.Sub))
		for _, s := range re.Sub {
			sub, err := fromSyntax(s)
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		}
		return mkAlt(subs...), nil
	}
	return nil, fmt.Errorf("unsupported operator %v", re.Op)
}

func literalRune(r rune, fold bool) node {
	if !fold {
		return mkRune(r)
	}
	ranges := []runeRange{{r, r}}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		ranges = append(ranges, runeRange{f, f})
	}
	return mkClass(ranges)
}
