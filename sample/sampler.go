// Package sample picks tokens from model logits, keeping only tokens that
// leave the generated text well typed.
package sample

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/generate"
)

var log = commonlog.GetLogger("p7.sample")

// ErrRejected is returned by Feed for text that does not parse.
var ErrRejected = errors.New("text rejected")

// LogitFunc returns the model's logits for the next token, one per
// vocabulary entry.
type LogitFunc func() []float32

// Option configures a TypedSampler.
type Option func(*TypedSampler)

// WithRand sets the random source for weighted picks.
func WithRand(r *rand.Rand) Option {
	return func(s *TypedSampler) {
		s.rand = r
	}
}

// WithGenerator passes options to the underlying session.
func WithGenerator(opts ...generate.Option) Option {
	return func(s *TypedSampler) {
		s.genOpts = append(s.genOpts, opts...)
	}
}

// TypedSampler filters model outputs to the tokens that keep the text well
// typed.
type TypedSampler struct {
	gen     *generate.Generator
	genOpts []generate.Option
	vocab   []string
	logits  LogitFunc
	rand    *rand.Rand
}

// New creates a sampler over vocab, asking logits for scores.
func New(g grammar.Grammar, vocab []string, logits LogitFunc, opts ...Option) *TypedSampler {
	s := &TypedSampler{
		vocab:  vocab,
		logits: logits,
		rand:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gen = generate.New(g, s.genOpts...)
	return s
}

// Feed appends text exactly as given.
func (s *TypedSampler) Feed(text string) error {
	ok, err := s.gen.FeedRaw(text)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q after %q", ErrRejected, text, s.gen.CurrentText())
	}
	return nil
}

// Reset empties the text.
func (s *TypedSampler) Reset() { s.gen.Reset() }

// CurrentText returns the text so far.
func (s *TypedSampler) CurrentText() string { return s.gen.CurrentText() }

// IsComplete reports whether the text is a complete sentence.
func (s *TypedSampler) IsComplete() bool { return s.gen.IsComplete() }

// CheckCompletion reports whether token may be appended.
func (s *TypedSampler) CheckCompletion(token string) bool { return s.gen.CheckCompletion(token) }

// Generator returns the underlying session.
func (s *TypedSampler) Generator() *generate.Generator { return s.gen }

type scored struct {
	index int
	logit float32
}

func byLogit(a, b scored) int {
	if c := cmp.Compare(b.logit, a.logit); c != 0 {
		return c
	}
	return cmp.Compare(a.index, b.index)
}

func ranked(logits []float32) []scored {
	out := make([]scored, len(logits))
	for i, l := range logits {
		out[i] = scored{i, l}
	}
	slices.SortStableFunc(out, byLogit)
	return out
}

// valid returns the well-typed candidates sorted by logit. With preTopK > 0
// only the preTopK best tokens are checked, one by one; otherwise the whole
// vocabulary goes through the two phase filter.
func (s *TypedSampler) valid(logits []float32, preTopK int) []scored {
	logits = s.usable(logits)
	if preTopK > 0 && preTopK < len(logits) {
		candidates := ranked(logits)[:preTopK]
		var out []scored
		for _, c := range candidates {
			if s.gen.CheckCompletion(s.vocab[c.index]) {
				out = append(out, c)
			}
		}
		return out
	}
	var out []scored
	for _, i := range s.gen.FilterCompletionIndices(s.vocab) {
		if i < len(logits) {
			out = append(out, scored{i, logits[i]})
		}
	}
	slices.SortStableFunc(out, byLogit)
	return out
}

// usable drops logits past the end of the vocabulary.
func (s *TypedSampler) usable(logits []float32) []float32 {
	return logits[:min(len(logits), len(s.vocab))]
}

// Infer returns the logits with every ill-typed token set to negative
// infinity.
func (s *TypedSampler) Infer(preTopK int) []float32 {
	logits := slices.Clone(s.logits())
	keep := make([]bool, len(logits))
	valid := s.valid(logits, preTopK)
	for _, c := range valid {
		keep[c.index] = true
	}
	negInf := float32(math.Inf(-1))
	for i := range logits {
		if !keep[i] {
			logits[i] = negInf
		}
	}
	log.Debugf("infer: %d valid tokens after %q", len(valid), s.gen.CurrentText())
	return logits
}

// InferText returns up to k well-typed tokens, best first.
func (s *TypedSampler) InferText(k, preTopK int) []string {
	valid := s.valid(s.logits(), preTopK)
	if len(valid) > k {
		valid = valid[:k]
	}
	out := make([]string, len(valid))
	for i, c := range valid {
		out[i] = s.vocab[c.index]
	}
	return out
}

// InferGreedy picks one of the k best well-typed tokens, weighted by the
// softmax of their logits. With k = 1 it is the best token. It returns false
// when no token is well typed.
func (s *TypedSampler) InferGreedy(k, preTopK int) (string, bool) {
	valid := s.valid(s.logits(), preTopK)
	if len(valid) == 0 {
		log.Debugf("greedy: no valid tokens after %q", s.gen.CurrentText())
		return "", false
	}
	if k <= 1 || len(valid) == 1 {
		return s.vocab[valid[0].index], true
	}
	if len(valid) > k {
		valid = valid[:k]
	}
	return s.vocab[s.weighted(valid)], true
}

func (s *TypedSampler) weighted(cands []scored) int {
	top := cands[0].logit
	weights := make([]float64, len(cands))
	total := 0.0
	for i, c := range cands {
		weights[i] = math.Exp(float64(c.logit - top))
		total += weights[i]
	}
	if total <= 0 || math.IsNaN(total) {
		return cands[0].index
	}
	r := s.rand.Float64() * total
	upto := 0.0
	for i, w := range weights {
		upto += w
		if upto >= r {
			return cands[i].index
		}
	}
	return cands[len(cands)-1].index
}

// InferUnconstrained picks one of the k best tokens ignoring the grammar,
// uniformly. It is meant for comparisons.
func (s *TypedSampler) InferUnconstrained(k int) (string, bool) {
	candidates := ranked(s.usable(s.logits()))
	if len(candidates) == 0 || k < 1 {
		return "", false
	}
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	if k == 1 {
		return s.vocab[candidates[0].index], true
	}
	return s.vocab[candidates[s.rand.IntN(len(candidates))].index], true
}
