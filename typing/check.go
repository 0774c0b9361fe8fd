package typing

import (
	"fmt"
	"slices"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/ebnf/parse"
)

// Check type checks tree against the directives of g, with the variables of
// ctx in scope. ctx may be nil.
//
// The walk is left to right. A node's type comes from its @type directive,
// else from the agreed type of its @same children, else from its only typed
// child. Variables bound by @bind are visible to the nodes after the binding
// node, up to the end of the enclosing @scope node.
func Check(tree *parse.Node, g grammar.Grammar, ctx *Context) Status {
	if tree == nil {
		return Malformed{Reason: "no tree"}
	}
	if d := tree.Depth(); d > g.Depth() {
		return TooDeep{Limit: g.Depth(), Depth: d}
	}

	c := &checker{d: g.Directives()}
	var t *Type
	if !c.d.Empty() {
		var bad *Malformed
		t, bad = c.node(tree, &env{vars: make(map[string]Type), ctx: ctx})
		if bad != nil {
			return *bad
		}
	}
	if !tree.Complete || c.partial {
		return Partial{Type: t}
	}
	if t != nil && t.Open {
		closed := Type{Name: t.Name}
		t = &closed
	}
	return Valid{Type: t}
}

type checker struct {
	d *grammar.Directives
	// partial is set when a check only passed because open text may still
	// grow into a matching name or type.
	partial bool
}

func (c *checker) node(n *parse.Node, e *env) (*Type, *Malformed) {
	if c.d.Uses[n.Kind] {
		return c.use(n, e)
	}

	inner := e
	if c.d.Scopes[n.Kind] {
		inner = e.child()
	}
	types := make([]*Type, len(n.Children))
	for i, child := range n.Children {
		t, bad := c.node(child, inner)
		if bad != nil {
			return nil, bad
		}
		types[i] = t
	}

	if b, ok := c.d.Binds[n.Kind]; ok {
		c.bind(n, b, types, e)
	}

	same, hasSame := c.d.Same[n.Kind]
	var agreed *Type
	if hasSame {
		var bad *Malformed
		if agreed, bad = c.same(n, same, types); bad != nil {
			return nil, bad
		}
	}

	if rule, ok := c.d.Types[n.Kind]; ok {
		return typeOf(n, rule, types), nil
	}
	if hasSame {
		return agreed, nil
	}
	var only *Type
	for _, t := range types {
		if t == nil {
			continue
		}
		if only != nil {
			return nil, nil
		}
		only = t
	}
	return only, nil
}

func (c *checker) use(n *parse.Node, e *env) (*Type, *Malformed) {
	name := n.Text()
	if name == "" {
		return nil, nil
	}
	if t, ok := e.lookup(name); ok {
		return &t, nil
	}
	if n.IsOpen() && e.prefixes(name) {
		c.partial = true
		return nil, nil
	}
	return nil, &Malformed{Reason: fmt.Sprintf("unbound variable %s", name), Node: n}
}

func (c *checker) bind(n *parse.Node, b grammar.Bind, types []*Type, e *env) {
	nameNode := n.Child(b.Name)
	if nameNode == nil {
		return
	}
	name := nameNode.Text()
	if name == "" {
		return
	}
	for i, child := range n.Children {
		if child.Kind == b.Type && types[i] != nil {
			e.bind(name, *types[i])
			return
		}
	}
}

func (c *checker) same(n *parse.Node, kinds []string, types []*Type) (*Type, *Malformed) {
	var agreed *Type
	for i, child := range n.Children {
		t := types[i]
		if t == nil || (len(kinds) > 0 && !slices.Contains(kinds, child.Kind)) {
			continue
		}
		if agreed == nil {
			agreed = t
			continue
		}
		ok, prefix := agree(*agreed, *t)
		if !ok {
			return nil, &Malformed{
				Reason: fmt.Sprintf("type mismatch in %s: %s and %s", n.Kind, agreed.Name, t.Name),
				Node:   child,
			}
		}
		if prefix {
			c.partial = true
		}
		u := unify(*agreed, *t)
		agreed = &u
	}
	return agreed, nil
}

func typeOf(n *parse.Node, rule grammar.TypeRule, types []*Type) *Type {
	switch {
	case rule.Fixed != "":
		return &Type{Name: rule.Fixed}
	case rule.Text:
		text := n.Text()
		if text == "" {
			return nil
		}
		return &Type{Name: text, Open: n.IsOpen()}
	}
	for i, child := range n.Children {
		if child.Kind == rule.Child {
			return types[i]
		}
	}
	return nil
}
