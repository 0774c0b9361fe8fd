package generate

import (
	"fmt"

	"github.com/dhamidi/p7/ebnf/parse"
	"github.com/dhamidi/p7/typing"
)

// SExpr serializes the complete, Valid trees of the text. It fails with
// ErrUsage when the text has no such tree, for example when it is only a
// well-typed prefix.
func (g *Generator) SExpr(format parse.Format) (string, error) {
	valid, err := g.parser.PartialTyped(g.text, func(n *parse.Node) bool {
		return n.Complete && typing.IsValid(g.check(n))
	})
	if err != nil {
		return "", fmt.Errorf("%w: text does not parse: %w", ErrUsage, err)
	}
	if len(valid.Roots) == 0 {
		return "", fmt.Errorf("%w: %q has no complete well-typed tree", ErrUsage, g.text)
	}
	return valid.Serialize(format), nil
}

// ToSExpr serializes the text in canonical form.
func (g *Generator) ToSExpr() (string, error) {
	return g.SExpr(parse.Canonical)
}

// ToSExprCompact is ToSExpr. There is no separate compact encoding.
func (g *Generator) ToSExprCompact() (string, error) {
	return g.SExpr(parse.Canonical)
}
