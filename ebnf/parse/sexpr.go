package parse

import (
	"strconv"
	"strings"
)

// Format selects a serialization layout.
type Format int

const (
	// Canonical prints a tree on one line.
	Canonical Format = iota
	// Indented prints one child per line, indented by nesting depth.
	Indented
)

func (f Format) String() string {
	switch f {
	case Canonical:
		return "canonical"
	case Indented:
		return "indented"
	default:
		return "Format(" + strconv.Itoa(int(f)) + ")"
	}
}

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, bool) {
	switch name {
	case "", "canonical", "compact":
		return Canonical, true
	case "indented", "pretty":
		return Indented, true
	}
	return Canonical, false
}

// SExpr serializes the tree rooted at n as an s-expression. Literal tokens
// print as quoted strings, other tokens as (kind "text"). Incomplete nodes end
// with an ellipsis.
func (n *Node) SExpr(f Format) string {
	var b strings.Builder
	n.writeSExpr(&b, f, 0, true)
	return b.String()
}

// shape serializes n without marking incomplete nodes.
func (n *Node) shape() string {
	var b strings.Builder
	n.writeSExpr(&b, Canonical, 0, false)
	return b.String()
}

func (n *Node) writeSExpr(b *strings.Builder, f Format, depth int, marks bool) {
	if n.Token != nil {
		lit := strconv.Quote(n.Token.Literal)
		switch {
		case n.Partial:
			b.WriteString("(" + n.Kind + " " + lit + " …)")
		case lit == n.Kind:
			b.WriteString(lit)
		default:
			b.WriteString("(" + n.Kind + " " + lit + ")")
		}
		return
	}
	b.WriteString("(")
	b.WriteString(n.Kind)
	for _, c := range n.Children {
		if f == Indented {
			b.WriteString("\n")
			b.WriteString(strings.Repeat("  ", depth+1))
		} else {
			b.WriteString(" ")
		}
		c.writeSExpr(b, f, depth+1, marks)
	}
	if marks && !n.Complete {
		b.WriteString(" …")
	}
	b.WriteString(")")
}

// Serialize renders all roots. A single root prints as itself; several roots
// are wrapped in (amb ...).
func (f *Forest) Serialize(format Format) string {
	switch len(f.Roots) {
	case 0:
		return "()"
	case 1:
		return f.Roots[0].SExpr(format)
	}
	var b strings.Builder
	b.WriteString("(amb")
	for _, r := range f.Roots {
		if format == Indented {
			b.WriteString("\n  ")
			b.WriteString(strings.ReplaceAll(r.SExpr(format), "\n", "\n  "))
		} else {
			b.WriteString(" ")
			b.WriteString(r.SExpr(format))
		}
	}
	b.WriteString(")")
	return b.String()
}
