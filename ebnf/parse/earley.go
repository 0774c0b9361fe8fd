package parse

import (
	"errors"
	"fmt"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/ebnf/lex"
)

// ErrSyntax is wrapped by every error reporting text that is not a prefix of
// any sentence of the grammar.
var ErrSyntax = errors.New("syntax error")

// EarleyParser recognizes prefixes of sentences. It records back-links for
// every item so that all parse trees, complete or partial, can be rebuilt.
type EarleyParser struct {
	grammar grammar.Grammar
	tokens  []lex.Token

	chart    []*ItemSet
	frontier []*Item // items at the last chart position that can scan the last token partially
}

// Item represents an Earley item: a rule with a dot position and origin.
type Item struct {
	Rule   int // index into the grammar's rules
	Dot    int // number of right-hand side symbols already matched
	Origin int // chart position where this item started
	End    int // chart position holding this item

	links []link
}

// link records one way an item was reached.
type link struct {
	prev *Item // the item before the dot moved; nil for predicted items
	via  *Item // completed item for a nonterminal child
	tok  int   // token index for a terminal child, or -1
	null bool  // a nullable nonterminal was skipped
}

func (item *Item) String() string {
	return fmt.Sprintf("[%d •%d, %d..%d]", item.Rule, item.Dot, item.Origin, item.End)
}

type itemKey struct {
	rule, dot, origin int
}

// ItemSet is a set of Earley items at a particular chart position.
type ItemSet struct {
	items    []*Item
	index    map[itemKey]*Item
	position int
}

func newItemSet(pos int) *ItemSet {
	return &ItemSet{
		items:    make([]*Item, 0),
		index:    make(map[itemKey]*Item),
		position: pos,
	}
}

// Add inserts the item unless an equal item exists, and records l as a way of
// reaching it. It reports whether the item was new.
func (s *ItemSet) Add(item *Item, l *link) bool {
	key := itemKey{item.Rule, item.Dot, item.Origin}
	existing, ok := s.index[key]
	if !ok {
		item.End = s.position
		s.index[key] = item
		s.items = append(s.items, item)
		existing = item
	}
	if l != nil {
		for _, old := range existing.links {
			if old == *l {
				return !ok
			}
		}
		existing.links = append(existing.links, *l)
	}
	return !ok
}

// Items returns the items in insertion order.
func (s *ItemSet) Items() []*Item {
	return s.items
}

// Len returns the number of items.
func (s *ItemSet) Len() int {
	return len(s.items)
}

// NewEarleyParser creates a new Earley parser.
func NewEarleyParser(g grammar.Grammar, tokens []lex.Token) *EarleyParser {
	return &EarleyParser{
		grammar: g,
		tokens:  tokens,
	}
}

// Chart returns the item sets of the last run, one per token boundary.
func (p *EarleyParser) Chart() []*ItemSet {
	return p.chart
}

// Parse runs the recognizer over all tokens. It fails with ErrSyntax unless
// the tokens form a prefix of some sentence.
func (p *EarleyParser) Parse() error {
	start := p.grammar.Start()
	n := len(p.tokens)
	p.chart = make([]*ItemSet, n+1)
	for i := range p.chart {
		p.chart[i] = newItemSet(i)
	}
	p.frontier = nil

	for _, r := range p.grammar.RulesFor(start) {
		p.chart[0].Add(&Item{Rule: r, Origin: 0}, nil)
	}

	for i := 0; i <= n; i++ {
		set := p.chart[i]
		if set.Len() == 0 {
			if i == n && len(p.frontier) > 0 {
				return nil
			}
			return p.syntaxError(i - 1)
		}
		// items may be added during iteration
		for j := 0; j < len(set.items); j++ {
			item := set.items[j]
			rule := p.grammar.Rule(item.Rule)
			if item.Dot == len(rule.RHS) {
				p.complete(i, item)
				continue
			}
			next := rule.RHS[item.Dot]
			if next.Terminal {
				p.scan(i, item, next.Name)
			} else {
				p.predict(i, item, next.Name)
			}
		}
	}
	return nil
}

func (p *EarleyParser) syntaxError(i int) error {
	if i >= len(p.tokens) {
		return fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	}
	tok := p.tokens[i]
	return fmt.Errorf("%w at %s: unexpected %q", ErrSyntax, tok.Position, tok.Literal)
}

func (p *EarleyParser) advance(item *Item) *Item {
	return &Item{Rule: item.Rule, Dot: item.Dot + 1, Origin: item.Origin}
}

// predict adds the rules of a nonterminal. Nullable nonterminals are also
// skipped right away, which makes completion of empty derivations
// unnecessary.
func (p *EarleyParser) predict(pos int, item *Item, name string) {
	for _, r := range p.grammar.RulesFor(name) {
		p.chart[pos].Add(&Item{Rule: r, Origin: pos}, nil)
	}
	if p.grammar.Nullable(name) {
		p.chart[pos].Add(p.advance(item), &link{prev: item, tok: -1, null: true})
	}
}

// scan handles terminal matching.
func (p *EarleyParser) scan(pos int, item *Item, kind string) {
	if pos >= len(p.tokens) {
		return
	}
	tok := p.tokens[pos]
	if tok.Is(kind) {
		p.chart[pos+1].Add(p.advance(item), &link{prev: item, tok: pos})
		return
	}
	if pos == len(p.tokens)-1 && tok.IsPartial(kind) {
		for _, f := range p.frontier {
			if f == item {
				return
			}
		}
		p.frontier = append(p.frontier, item)
	}
}

// complete advances the items waiting at the origin of a completed item.
func (p *EarleyParser) complete(pos int, done *Item) {
	if done.Origin == pos {
		// empty derivation; handled by predict
		return
	}
	lhs := p.grammar.Rule(done.Rule).LHS
	waiting := p.chart[done.Origin].items
	for _, item := range waiting {
		rule := p.grammar.Rule(item.Rule)
		if item.Dot == len(rule.RHS) {
			continue
		}
		next := rule.RHS[item.Dot]
		if next.Terminal || next.Name != lhs {
			continue
		}
		p.chart[pos].Add(p.advance(item), &link{prev: item, via: done, tok: -1})
	}
}

// nextSymbol returns the symbol after the dot.
func (p *EarleyParser) nextSymbol(item *Item) (grammar.Symbol, bool) {
	rule := p.grammar.Rule(item.Rule)
	if item.Dot >= len(rule.RHS) {
		return grammar.Symbol{}, false
	}
	return rule.RHS[item.Dot], true
}

func (p *EarleyParser) isComplete(item *Item) bool {
	return item.Dot == len(p.grammar.Rule(item.Rule).RHS)
}

func (p *EarleyParser) lhs(item *Item) string {
	return p.grammar.Rule(item.Rule).LHS
}

// Forest builds the parse forest of the last run.
func (p *EarleyParser) Forest() *Forest {
	return p.forest(nil)
}

// forest builds the parse forest, keeping the roots accepted by keep when it
// is not nil.
func (p *EarleyParser) forest(keep func(*Node) bool) *Forest {
	f := &Forest{
		grammar:  p.grammar,
		tokens:   p.tokens,
		chart:    p.chart,
		frontier: p.frontier,
	}
	x := newExtractor(p, keep)
	f.Roots = x.roots()
	f.Truncated = x.truncated
	return f
}
