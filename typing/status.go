// Package typing checks parse trees against the typing directives of their
// grammar.
package typing

import (
	"fmt"
	"strings"

	"github.com/dhamidi/p7/ebnf/parse"
)

// Type is the type of a tree node. An Open type comes from text that touches
// the end of the input and may still grow.
type Type struct {
	Name string
	Open bool
}

func (t Type) String() string {
	if t.Open {
		return t.Name + "…"
	}
	return t.Name
}

// agree reports whether a and b can denote the same type, and whether they
// only do so because an open type may still grow into the other.
func agree(a, b Type) (ok, prefix bool) {
	switch {
	case a.Name == b.Name:
		return true, false
	case a.Open && strings.HasPrefix(b.Name, a.Name):
		return true, true
	case b.Open && strings.HasPrefix(a.Name, b.Name):
		return true, true
	}
	return false, false
}

// unify returns the more specific of two agreeing types.
func unify(a, b Type) Type {
	switch {
	case !a.Open:
		return a
	case !b.Open:
		return b
	case len(b.Name) > len(a.Name):
		return b
	}
	return a
}

// Status is the verdict of type checking one tree. It is one of Valid,
// Partial, Malformed or TooDeep.
type Status interface {
	fmt.Stringer
	status()
}

// Valid is a complete, well-typed tree.
type Valid struct {
	Type *Type // nil when the root has no type
}

// Partial is a well-typed tree that more input could still complete.
type Partial struct {
	Type *Type
}

// Malformed is an ill-typed tree.
type Malformed struct {
	Reason string
	Node   *parse.Node
}

// TooDeep is a tree rejected by the depth guard of the grammar.
type TooDeep struct {
	Limit int
	Depth int
}

func (Valid) status()     {}
func (Partial) status()   {}
func (Malformed) status() {}
func (TooDeep) status()   {}

func (s Valid) String() string {
	if s.Type == nil {
		return "valid"
	}
	return "valid: " + s.Type.String()
}

func (s Partial) String() string {
	if s.Type == nil {
		return "partial"
	}
	return "partial: " + s.Type.String()
}

func (s Malformed) String() string { return "malformed: " + s.Reason }

func (s TooDeep) String() string {
	return fmt.Sprintf("too deep: depth %d exceeds %d", s.Depth, s.Limit)
}

// Accepts reports whether s keeps a tree alive: it is Valid or Partial.
func Accepts(s Status) bool {
	switch s.(type) {
	case Valid, Partial:
		return true
	}
	return false
}

// IsValid reports whether s is exactly Valid.
func IsValid(s Status) bool {
	_, ok := s.(Valid)
	return ok
}
