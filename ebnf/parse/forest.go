package parse

import (
	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/ebnf/lex"
)

const (
	maxRoots = 64      // roots kept per forest
	maxWork  = 1 << 16 // derivations built per extraction
)

// Forest is the set of candidate parse trees for a text. More than one root
// means the text is ambiguous. Roots built from a proper prefix of a sentence
// are not Complete.
type Forest struct {
	Roots []*Node

	// Truncated is set when the text has more derivations than extraction
	// builds. Roots then holds the trees found before the limit.
	Truncated bool

	grammar  grammar.Grammar
	tokens   []lex.Token
	chart    []*ItemSet
	frontier []*Item
}

// Complete returns the first complete root.
func (f *Forest) Complete() (*Node, bool) {
	for _, r := range f.Roots {
		if r.Complete {
			return r, true
		}
	}
	return nil, false
}

type topKey struct {
	name   string
	origin int
}

// extractor rebuilds trees from the back-links of a finished chart.
type extractor struct {
	p         *EarleyParser
	n         int
	keep      func(*Node) bool
	work      int
	truncated bool
	derived   map[*Item][][]*Node
	busy      map[*Item]bool
	tops      map[topKey][]*Node
	topBusy   map[topKey]bool
}

func newExtractor(p *EarleyParser, keep func(*Node) bool) *extractor {
	return &extractor{
		p:       p,
		n:       len(p.tokens),
		keep:    keep,
		derived: make(map[*Item][][]*Node),
		busy:    make(map[*Item]bool),
		tops:    make(map[topKey][]*Node),
		topBusy: make(map[topKey]bool),
	}
}

// spend accounts for one derivation. It reports false once the budget is
// used up.
func (x *extractor) spend() bool {
	if x.work >= maxWork {
		x.truncated = true
		return false
	}
	x.work++
	return true
}

// roots returns the complete trees of the start production followed by the
// partial ones, keeping those accepted by keep. A tree shaped like an earlier
// tree is dropped. Rejected trees do not count towards maxRoots.
func (x *extractor) roots() []*Node {
	start := x.p.grammar.Start()
	var out []*Node
	seen := make(map[string]bool)
	add := func(nodes ...*Node) {
		for _, n := range nodes {
			if len(out) >= maxRoots {
				return
			}
			key := n.shape()
			if seen[key] {
				continue
			}
			seen[key] = true
			if x.keep != nil && !x.keep(n) {
				continue
			}
			out = append(out, n)
		}
	}

	if x.n == 0 {
		root := NewNonTerminal(start)
		root.Complete = x.p.grammar.Nullable(start)
		if x.keep != nil && !x.keep(root) {
			return nil
		}
		return []*Node{root}
	}

	for _, item := range x.p.chart[x.n].items {
		if item.Origin == 0 && x.p.lhs(item) == start && x.p.isComplete(item) {
			add(x.nodes(item, true)...)
		}
	}
	add(x.partial(start, 0)...)
	return out
}

// nodes builds the trees for the left-hand side of an item from its child
// sequences.
func (x *extractor) nodes(item *Item, complete bool) []*Node {
	lhs := x.p.lhs(item)
	var out []*Node
	for _, children := range x.children(item) {
		out = append(out, x.build(lhs, children, complete))
	}
	return out
}

func (x *extractor) build(kind string, children []*Node, complete bool) *Node {
	n := NewNonTerminal(kind)
	n.Complete = complete
	n.synthetic = x.p.grammar.IsSynthetic(kind)
	for _, c := range children {
		n.AddChild(c)
	}
	return n
}

// children returns the possible child sequences for the symbols before the
// dot of item.
func (x *extractor) children(item *Item) [][]*Node {
	if item.Dot == 0 {
		return [][]*Node{nil}
	}
	if seqs, ok := x.derived[item]; ok {
		return seqs
	}
	if x.busy[item] {
		return nil
	}
	x.busy[item] = true
	defer delete(x.busy, item)

	rule := x.p.grammar.Rule(item.Rule)
	var seqs [][]*Node
	for _, l := range item.links {
		if l.prev == nil {
			continue
		}
		var options []*Node
		switch {
		case l.tok >= 0:
			options = []*Node{NewTerminal(rule.RHS[item.Dot-1].Name, x.p.tokens[l.tok])}
		case l.null:
			empty := NewNonTerminal(rule.RHS[item.Dot-1].Name)
			empty.Complete = true
			empty.synthetic = x.p.grammar.IsSynthetic(empty.Kind)
			options = []*Node{empty}
		case l.via != nil:
			options = x.nodes(l.via, true)
		}
		for _, prefix := range x.children(l.prev) {
			for _, c := range options {
				if !x.spend() {
					break
				}
				seq := make([]*Node, len(prefix), len(prefix)+1)
				copy(seq, prefix)
				seqs = append(seqs, append(seq, c))
			}
		}
	}
	x.derived[item] = seqs
	return seqs
}

// partial returns the incomplete trees for name starting at chart position
// origin and reaching the end of the input.
func (x *extractor) partial(name string, origin int) []*Node {
	key := topKey{name, origin}
	if nodes, ok := x.tops[key]; ok {
		return nodes
	}
	if x.topBusy[key] {
		return nil
	}
	x.topBusy[key] = true
	defer delete(x.topBusy, key)

	var out []*Node
	emit := func(n *Node) bool {
		if !x.spend() {
			return false
		}
		out = append(out, n)
		return true
	}
	// stopped at the end of the input
	for _, item := range x.p.chart[x.n].items {
		if item.Origin == origin && item.Dot > 0 && x.p.lhs(item) == name && !x.restNullable(item) {
			for _, n := range x.nodes(item, false) {
				if !emit(n) {
					break
				}
			}
		}
	}
	// waiting for a token of which the input ends with a prefix
	last := x.p.tokens[x.n-1]
	for _, item := range x.p.frontier {
		if item.Origin != origin || x.p.lhs(item) != name {
			continue
		}
		sym, _ := x.p.nextSymbol(item)
		leaf := NewTerminal(sym.Name, last)
		leaf.Complete = false
		leaf.Partial = true
		for _, children := range x.children(item) {
			if !emit(x.build(name, append(clone(children), leaf), false)) {
				break
			}
		}
	}
	// waiting for a nonterminal that is itself partial
	for j := origin; j < x.n; j++ {
		for _, item := range x.p.chart[j].items {
			if item.Origin != origin || x.p.lhs(item) != name {
				continue
			}
			sym, ok := x.p.nextSymbol(item)
			if !ok || sym.Terminal {
				continue
			}
			inner := x.partial(sym.Name, j)
			if len(inner) == 0 {
				continue
			}
			for _, children := range x.children(item) {
				for _, c := range inner {
					if !emit(x.build(name, append(clone(children), c), false)) {
						break
					}
				}
			}
		}
		if x.truncated {
			break
		}
	}
	x.tops[key] = out
	return out
}

// restNullable reports whether every symbol after the dot derives the empty
// string. The completed form of such an item is in the same chart set.
func (x *extractor) restNullable(item *Item) bool {
	for _, sym := range x.p.grammar.Rule(item.Rule).RHS[item.Dot:] {
		if sym.Terminal || !x.p.grammar.Nullable(sym.Name) {
			return false
		}
	}
	return true
}

func clone(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes), len(nodes)+1)
	copy(out, nodes)
	return out
}
