// Package parse provides Earley parsing of token prefixes against compiled
// grammars, producing parse forests of concrete syntax trees.
package parse

import (
	"strings"

	"github.com/dhamidi/p7/ebnf/lex"
)

// Span represents a range in source code.
type Span struct {
	Start lex.Position
	End   lex.Position
}

// Node represents a node in the concrete syntax tree.
// Leaf nodes have a non-nil Token; interior nodes have Children.
//
// Complete is false for nodes on the right spine of a tree built from a
// proper prefix of a sentence. A Partial leaf holds a token that is only a
// prefix of its kind.
type Node struct {
	Kind     string     // Production name or token kind
	Children []*Node    // Child nodes (nil for terminals)
	Token    *lex.Token // The token (non-nil for terminals)
	Span     Span       // Source span covering this node
	Complete bool
	Partial  bool

	synthetic bool
}

// IsTerminal returns true if this is a leaf node (token).
func (n *Node) IsTerminal() bool {
	return n.Token != nil
}

// Text returns the concatenated literals of the leaves below n. Skipped
// input between tokens is not included.
func (n *Node) Text() string {
	if n.Token != nil {
		return n.Token.Literal
	}
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		if c.Token != nil {
			b.WriteString(c.Token.Literal)
		}
		return true
	})
	return b.String()
}

// IsOpen reports whether the last leaf of n touches the end of the input,
// so that more text could still change it.
func (n *Node) IsOpen() bool {
	if n.Token != nil {
		return n.Token.AtEnd
	}
	if len(n.Children) == 0 {
		return false
	}
	return n.Children[len(n.Children)-1].IsOpen()
}

// Depth returns the height of the tree rooted at n. A leaf has depth 1.
func (n *Node) Depth() int {
	d := 0
	for _, c := range n.Children {
		if cd := c.Depth(); cd > d {
			d = cd
		}
	}
	return d + 1
}

// Walk calls fn for n and its descendants in depth-first order. Returning
// false from fn skips the children of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Child returns the first direct child of the given kind.
func (n *Node) Child(kind string) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// AddChild appends a child node and updates the span. Children of synthetic
// nodes are spliced in place of the node itself.
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	if child.synthetic {
		for _, c := range child.Children {
			n.AddChild(c)
		}
		return
	}
	n.Children = append(n.Children, child)
	if child.Token == nil && len(child.Children) == 0 {
		return
	}
	if n.Span.Start == (lex.Position{}) {
		n.Span.Start = child.Span.Start
	}
	n.Span.End = child.Span.End
}

// NewTerminal creates a terminal node for a token scanned as kind.
func NewTerminal(kind string, tok lex.Token) *Node {
	return &Node{
		Kind:     kind,
		Token:    &tok,
		Complete: true,
		Span: Span{
			Start: tok.Position,
			End:   tok.End(),
		},
	}
}

// NewNonTerminal creates a non-terminal node.
func NewNonTerminal(kind string) *Node {
	return &Node{
		Kind:     kind,
		Children: make([]*Node, 0),
	}
}
