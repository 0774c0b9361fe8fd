package typing

import (
	"maps"
	"sort"
	"strings"
)

// Context holds variables that are in scope before the text starts, such as
// the parameters of a function whose body is being generated.
type Context struct {
	Vars map[string]Type
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{Vars: make(map[string]Type)}
}

// Bind declares name with type t.
func (c *Context) Bind(name string, t Type) {
	c.Vars[name] = t
}

// Clone returns a copy of c that can be changed independently.
func (c *Context) Clone() *Context {
	if c == nil {
		return NewContext()
	}
	return &Context{Vars: maps.Clone(c.Vars)}
}

// Names returns the bound names, sorted.
func (c *Context) Names() []string {
	names := make([]string, 0, len(c.Vars))
	for name := range c.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// env is one lexical scope of the walk.
type env struct {
	vars   map[string]Type
	parent *env
	ctx    *Context
}

func (e *env) child() *env {
	return &env{vars: make(map[string]Type), parent: e, ctx: e.ctx}
}

func (e *env) bind(name string, t Type) {
	e.vars[name] = t
}

func (e *env) lookup(name string) (Type, bool) {
	for s := e; s != nil; s = s.parent {
		if t, ok := s.vars[name]; ok {
			return t, true
		}
	}
	if e.ctx != nil {
		t, ok := e.ctx.Vars[name]
		return t, ok
	}
	return Type{}, false
}

// prefixes reports whether some visible name starts with prefix.
func (e *env) prefixes(prefix string) bool {
	for s := e; s != nil; s = s.parent {
		for name := range s.vars {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		}
	}
	if e.ctx != nil {
		for name := range e.ctx.Vars {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		}
	}
	return false
}
