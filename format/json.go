package format

import (
	"encoding/json"
	"io"
)

type JSONEncoder struct {
	w      io.Writer
	report *Report
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(r *Report) error {
	e.report = r
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(append(text, '\n'))
	return err
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	r := e.report
	data := jsonReport{
		Grammar:     r.Grammar,
		Text:        r.Text,
		Accepted:    r.Accepted,
		TypeError:   r.TypeError,
		State:       r.State,
		Complete:    r.Complete,
		Completions: r.Completions,
		SExpr:       r.SExpr,
	}
	if data.Completions == nil {
		data.Completions = []string{}
	}
	if r.Allowed != nil {
		data.Mask = &jsonMask{Allowed: r.Allowed, Tokens: r.Tokens}
	}
	return json.MarshalIndent(data, "", "  ")
}

type jsonReport struct {
	Grammar     string    `json:"grammar"`
	Text        string    `json:"text"`
	Accepted    bool      `json:"accepted"`
	TypeError   string    `json:"typeError,omitempty"`
	State       string    `json:"state"`
	Complete    bool      `json:"complete"`
	Completions []string  `json:"completions"`
	SExpr       string    `json:"sexpr,omitempty"`
	Mask        *jsonMask `json:"mask,omitempty"`
}

type jsonMask struct {
	Allowed []int    `json:"allowed"`
	Tokens  []string `json:"tokens"`
}
