// Package format renders the state of a generation session for the command
// line.
package format

import (
	"encoding"
	"errors"
	"fmt"
	"io"

	"github.com/dhamidi/p7/generate"
)

// Report is a snapshot of a session after feeding some text.
type Report struct {
	Grammar     string
	Text        string
	Accepted    bool
	TypeError   string
	State       string
	Complete    bool
	Completions []string
	SExpr       string

	// Allowed holds vocabulary indices when a mask was computed; Tokens
	// holds the matching vocabulary entries.
	Allowed []int
	Tokens  []string
}

// NewReport snapshots gen. accepted and err are the result of the last
// Feed; a type or ambiguity rejection is recorded rather than returned.
func NewReport(name string, gen *generate.Generator, accepted bool, err error) *Report {
	r := &Report{
		Grammar:  name,
		Text:     gen.CurrentText(),
		Accepted: accepted,
		State:    gen.State().String(),
		Complete: gen.IsComplete(),
	}
	if errors.Is(err, generate.ErrTypeReject) || errors.Is(err, generate.ErrAmbiguous) {
		r.TypeError = err.Error()
	}
	r.Completions = gen.Completions()
	return r
}

// WithMask records the allowed vocabulary indices.
func (r *Report) WithMask(vocab []string, allowed []int) *Report {
	r.Allowed = allowed
	r.Tokens = make([]string, len(allowed))
	for i, id := range allowed {
		if id >= 0 && id < len(vocab) {
			r.Tokens[i] = vocab[id]
		} else {
			r.Tokens[i] = fmt.Sprintf("<%d>", id)
		}
	}
	return r
}

type Encoder interface {
	encoding.TextMarshaler
	Encode(r *Report) error
}

// NewEncoder returns the encoder called name, either "line" or "json".
func NewEncoder(name string, w io.Writer) (Encoder, error) {
	switch name {
	case "", "line":
		return NewLineEncoder(w), nil
	case "json":
		return NewJSONEncoder(w), nil
	}
	return nil, fmt.Errorf("unknown format: %s", name)
}
