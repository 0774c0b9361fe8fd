package format

import (
	"fmt"
	"io"
	"strings"
)

// LineEncoder writes one tab separated record per line, for grep and cut.
type LineEncoder struct {
	w      io.Writer
	report *Report
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

func (e *LineEncoder) Encode(r *Report) error {
	e.report = r
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	r := e.report

	fmt.Fprintf(&sb, "grammar\t%s\n", r.Grammar)
	fmt.Fprintf(&sb, "text\t%q\n", r.Text)
	fmt.Fprintf(&sb, "state\t%s\t%s\n", r.State, e.flags())
	if r.TypeError != "" {
		fmt.Fprintf(&sb, "error\t%s\n", r.TypeError)
	}
	if r.SExpr != "" {
		fmt.Fprintf(&sb, "sexpr\t%s\n", r.SExpr)
	}

	for _, c := range r.Completions {
		fmt.Fprintf(&sb, "completion\t%q\n", c)
	}

	for i, id := range r.Allowed {
		fmt.Fprintf(&sb, "allowed\t%d\t%q\n", id, r.Tokens[i])
	}

	return []byte(sb.String()), nil
}

func (e *LineEncoder) flags() string {
	var flags []string
	if e.report.Accepted {
		flags = append(flags, "accepted")
	} else {
		flags = append(flags, "rejected")
	}
	if e.report.Complete {
		flags = append(flags, "complete")
	}
	return strings.Join(flags, ",")
}
