// Package logits adapts a generation session to a fixed numeric vocabulary,
// producing the set of token ids a sampler may pick next.
package logits

import (
	"fmt"
	"math"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/generate"
)

// ErrUsage is returned when the vocabulary is missing or set twice.
var ErrUsage = generate.ErrUsage

// Option configures a Processor.
type Option func(*Processor)

// WithEOS sets the end-of-sequence token id. It is allowed whenever the text
// is a complete sentence.
func WithEOS(id int) Option {
	return func(p *Processor) {
		p.eos = id
		p.hasEOS = true
	}
}

// WithGenerator passes options to the underlying session.
func WithGenerator(opts ...generate.Option) Option {
	return func(p *Processor) {
		p.genOpts = append(p.genOpts, opts...)
	}
}

// Processor masks model outputs so that only tokens keeping the text valid
// can be sampled. Token ids index the vocabulary given to InitVocab. Tokens
// are pieces of words and are appended without separators.
type Processor struct {
	gen     *generate.Generator
	genOpts []generate.Option
	vocab   []string
	eos     int
	hasEOS  bool
}

// New creates a processor for grammar g. The vocabulary must be set with
// InitVocab before tokens can be masked.
func New(g grammar.Grammar, opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	p.gen = generate.New(g, p.genOpts...)
	return p
}

// InitVocab sets the vocabulary. It can only be set once.
func (p *Processor) InitVocab(tokens []string) error {
	if p.vocab != nil {
		return fmt.Errorf("%w: vocabulary already set", ErrUsage)
	}
	if len(tokens) == 0 {
		return fmt.Errorf("%w: empty vocabulary", ErrUsage)
	}
	p.vocab = append([]string(nil), tokens...)
	return nil
}

// Vocab returns the vocabulary, or nil before InitVocab.
func (p *Processor) Vocab() []string { return p.vocab }

// EOS returns the end-of-sequence id, if one is configured.
func (p *Processor) EOS() (int, bool) { return p.eos, p.hasEOS }

// FeedToken appends the text of a sampled token to the session.
func (p *Processor) FeedToken(token string) (bool, error) {
	return p.gen.FeedRaw(token)
}

// AllowedTokens returns the ids of the tokens that may come next. When the
// text is complete the end-of-sequence id is included.
func (p *Processor) AllowedTokens() ([]int, error) {
	if p.vocab == nil {
		return nil, fmt.Errorf("%w: vocabulary not initialized", ErrUsage)
	}
	allowed := p.gen.ValidTokenIndices(p.vocab)
	if p.hasEOS && p.gen.IsComplete() {
		for _, id := range allowed {
			if id == p.eos {
				return allowed, nil
			}
		}
		allowed = append(allowed, p.eos)
	}
	return allowed, nil
}

// Apply sets the logits of all disallowed tokens to negative infinity.
func (p *Processor) Apply(logits []float32) error {
	if len(logits) != len(p.vocab) && p.vocab != nil {
		return fmt.Errorf("%w: %d logits for a vocabulary of %d", ErrUsage, len(logits), len(p.vocab))
	}
	allowed, err := p.AllowedTokens()
	if err != nil {
		return err
	}
	keep := make([]bool, len(logits))
	for _, id := range allowed {
		if id >= 0 && id < len(keep) {
			keep[id] = true
		}
	}
	negInf := float32(math.Inf(-1))
	for i := range logits {
		if !keep[i] {
			logits[i] = negInf
		}
	}
	return nil
}

// Reset empties the text. The vocabulary stays.
func (p *Processor) Reset() { p.gen.Reset() }

// CurrentText returns the text generated so far.
func (p *Processor) CurrentText() string { return p.gen.CurrentText() }

// IsComplete reports whether the text is a complete sentence.
func (p *Processor) IsComplete() bool { return p.gen.IsComplete() }

// Generator returns the underlying session.
func (p *Processor) Generator() *generate.Generator { return p.gen }

// Clone returns a processor with a cloned session. The vocabulary is shared;
// it never changes once set.
func (p *Processor) Clone() *Processor {
	c := *p
	c.gen = p.gen.Clone()
	return &c
}
