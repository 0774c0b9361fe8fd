// Package generate keeps the state of one constrained generation session: a
// growing text that always parses as a prefix of the grammar and type checks.
//
// Every operation reparses the whole text from scratch. A Generator is owned
// by one caller at a time; use Clone to branch.
package generate

import (
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/ebnf/parse"
	"github.com/dhamidi/p7/typing"
)

var log = commonlog.GetLogger("p7.generate")

// State is the coarse progress of a session.
type State int

const (
	StateEmpty State = iota
	StatePartial
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

// Observer is notified about validations and masks, typically to record
// metrics. Implementations must be safe for concurrent use when generators
// run in parallel.
type Observer interface {
	ObserveValidation(outcome Outcome, elapsed time.Duration)
	ObserveMask(vocab, allowed int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveValidation(Outcome, time.Duration) {}
func (nopObserver) ObserveMask(int, int, time.Duration)      {}

// Option configures a Generator.
type Option func(*Generator)

// WithContext puts the variables of ctx in scope for type checking.
func WithContext(ctx *typing.Context) Option {
	return func(g *Generator) {
		g.ctx = ctx.Clone()
	}
}

// WithObserver reports validations and masks to o.
func WithObserver(o Observer) Option {
	return func(g *Generator) {
		if o != nil {
			g.observer = o
		}
	}
}

// Generator is a generation session over one grammar.
type Generator struct {
	id       string
	grammar  grammar.Grammar
	parser   *parse.Parser
	text     string
	ctx      *typing.Context
	observer Observer
	log      commonlog.Logger
}

// New creates a session with empty text.
func New(g grammar.Grammar, opts ...Option) *Generator {
	gen := &Generator{
		id:       uuid.NewString(),
		grammar:  g,
		parser:   parse.NewParser(g),
		ctx:      typing.NewContext(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(gen)
	}
	gen.log = commonlog.NewKeyValueLogger(log, "session", gen.id)
	return gen
}

// ID returns the session id.
func (g *Generator) ID() string { return g.id }

// Grammar returns the grammar of the session.
func (g *Generator) Grammar() grammar.Grammar { return g.grammar }

// Context returns the typing context of the session.
func (g *Generator) Context() *typing.Context { return g.ctx }

// CurrentText returns the committed text.
func (g *Generator) CurrentText() string { return g.text }

// Reset empties the text and starts over with a fresh parser.
func (g *Generator) Reset() {
	g.text = ""
	g.parser = parse.NewParser(g.grammar)
	g.log.Debug("reset")
}

// Clone returns an independent session with the same grammar, context and
// text. The clone gets its own id and parser; the grammar is shared.
func (g *Generator) Clone() *Generator {
	c := New(g.grammar, WithContext(g.ctx), WithObserver(g.observer))
	c.text = g.text
	g.log.Debugf("cloned into %s", c.id)
	return c
}

// IsComplete reports whether the text is a complete sentence with a tree
// that type checks.
func (g *Generator) IsComplete() bool {
	f, err := g.parser.PartialTyped(g.text, func(root *parse.Node) bool {
		return root.Complete && g.wellTyped(root)
	})
	return err == nil && len(f.Roots) > 0
}

// State returns the progress of the session.
func (g *Generator) State() State {
	switch {
	case g.text == "":
		return StateEmpty
	case g.IsComplete():
		return StateComplete
	}
	return StatePartial
}

func (g *Generator) check(root *parse.Node) typing.Status {
	return typing.Check(root, g.grammar, g.ctx)
}

func (g *Generator) wellTyped(root *parse.Node) bool {
	return typing.Accepts(g.check(root))
}
