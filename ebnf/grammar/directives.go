package grammar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TypeRule is the @type directive of a production. Exactly one of the fields
// is set.
type TypeRule struct {
	Fixed string // @type P "T"
	Text  bool   // @type P text
	Child string // @type P Child
}

// Bind is the @bind directive of a production: the text of the Name child is
// bound to the type of the Type child.
type Bind struct {
	Name string
	Type string
}

// Directives holds the typing directives of a grammar, keyed by production.
type Directives struct {
	Types  map[string]TypeRule
	Same   map[string][]string
	Binds  map[string]Bind
	Uses   map[string]bool
	Scopes map[string]bool
}

func newDirectives() *Directives {
	return &Directives{
		Types:  make(map[string]TypeRule),
		Same:   make(map[string][]string),
		Binds:  make(map[string]Bind),
		Uses:   make(map[string]bool),
		Scopes: make(map[string]bool),
	}
}

// Empty reports whether the grammar has no typing directives at all. Every
// tree of such a grammar is well typed.
func (d *Directives) Empty() bool {
	return len(d.Types) == 0 && len(d.Same) == 0 && len(d.Binds) == 0 &&
		len(d.Uses) == 0 && len(d.Scopes) == 0
}

// Names returns every production mentioned by a directive, sorted.
func (d *Directives) Names() []string {
	seen := make(map[string]bool)
	for p := range d.Types {
		seen[p] = true
	}
	for p := range d.Same {
		seen[p] = true
	}
	for p := range d.Binds {
		seen[p] = true
	}
	for p := range d.Uses {
		seen[p] = true
	}
	for p := range d.Scopes {
		seen[p] = true
	}
	names := make([]string, 0, len(seen))
	for p := range seen {
		names = append(names, p)
	}
	sort.Strings(names)
	return names
}

// header holds the directives that configure the grammar itself.
type header struct {
	start    string
	skip     string
	depth    int
	typing   *Directives
	mentions []mention
}

// mention records a production name used by a directive, for validation
// once the productions are known.
type mention struct {
	line int
	name string
}

// splitDirectives removes directive lines from spec, replacing them with
// empty lines so that positions reported by the EBNF parser stay correct.
func splitDirectives(filename, spec string) (string, *header, error) {
	h := &header{depth: DefaultDepth, typing: newDirectives()}
	lines := strings.Split(spec, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "@") {
			continue
		}
		lines[i] = ""
		if err := h.parse(trimmed, i+1); err != nil {
			return "", nil, &ConstructionError{Filename: filename, Line: i + 1, Err: err}
		}
	}
	return strings.Join(lines, "\n"), h, nil
}

func (h *header) parse(line string, lineno int) error {
	args, err := directiveFields(line)
	if err != nil {
		return err
	}
	name, args := args[0], args[1:]
	use := func(names ...string) {
		for _, n := range names {
			h.mentions = append(h.mentions, mention{line: lineno, name: n})
		}
	}
	d := h.typing
	switch name {
	case "@start":
		if len(args) != 1 {
			return fmt.Errorf("@start takes one production")
		}
		h.start = args[0]
	case "@skip":
		if len(args) != 1 {
			return fmt.Errorf("@skip takes one production or none")
		}
		h.skip = args[0]
	case "@depth":
		if len(args) != 1 {
			return fmt.Errorf("@depth takes one number")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("@depth: invalid limit %q", args[0])
		}
		h.depth = n
	case "@type":
		if len(args) != 2 {
			return fmt.Errorf("@type takes a production and a type")
		}
		p, arg := args[0], args[1]
		use(p)
		switch {
		case strings.HasPrefix(arg, `"`):
			t, err := strconv.Unquote(arg)
			if err != nil || t == "" {
				return fmt.Errorf("@type %s: invalid type %s", p, arg)
			}
			d.Types[p] = TypeRule{Fixed: t}
		case arg == "text":
			d.Types[p] = TypeRule{Text: true}
		default:
			use(arg)
			d.Types[p] = TypeRule{Child: arg}
		}
	case "@same":
		if len(args) < 1 {
			return fmt.Errorf("@same takes a production")
		}
		use(args...)
		d.Same[args[0]] = args[1:]
	case "@bind":
		if len(args) != 3 {
			return fmt.Errorf("@bind takes a production, a name child and a type child")
		}
		use(args...)
		d.Binds[args[0]] = Bind{Name: args[1], Type: args[2]}
	case "@use":
		if len(args) != 1 {
			return fmt.Errorf("@use takes one production")
		}
		use(args[0])
		d.Uses[args[0]] = true
	case "@scope":
		if len(args) != 1 {
			return fmt.Errorf("@scope takes one production")
		}
		use(args[0])
		d.Scopes[args[0]] = true
	default:
		return fmt.Errorf("unknown directive %s", name)
	}
	return nil
}

// directiveFields splits a directive line on blanks, keeping quoted strings
// intact. A trailing // comment is ignored.
func directiveFields(line string) ([]string, error) {
	var fields []string
	rest := line
	for {
		rest = strings.TrimLeft(rest, " \t\r")
		if rest == "" || strings.HasPrefix(rest, "//") {
			break
		}
		if rest[0] == '"' {
			q, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("unterminated string in %q", line)
			}
			fields = append(fields, q)
			rest = rest[len(q):]
			continue
		}
		end := strings.IndexAny(rest, " \t\r")
		if end < 0 {
			end = len(rest)
		}
		fields = append(fields, rest[:end])
		rest = rest[end:]
	}
	return fields, nil
}
