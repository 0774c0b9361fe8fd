package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dhamidi/p7/generate"
	"github.com/dhamidi/p7/grammars"
)

func toyReport(t *testing.T, text string) *Report {
	t.Helper()
	g, err := grammars.Load("toy")
	if err != nil {
		t.Fatalf("load toy: %v", err)
	}
	gen := generate.New(g)
	ok, err := gen.FeedRaw(text)
	return NewReport("toy", gen, ok, err)
}

func TestLineEncoder(t *testing.T) {
	r := toyReport(t, "beep:Fizz")
	r.WithMask([]string{"!", " +", "+"}, []int{1, 2})

	var buf bytes.Buffer
	if err := NewLineEncoder(&buf).Encode(r); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"grammar\ttoy\n",
		"text\t\"beep:Fizz\"\n",
		"state\tcomplete\taccepted,complete\n",
		"completion\t\"+\"\n",
		"allowed\t1\t\" +\"\n",
		"allowed\t2\t\"+\"\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLineEncoderTypeError(t *testing.T) {
	r := toyReport(t, "beep:Fizz + boop:Buzz")
	if r.Accepted {
		t.Fatal("expected a rejection")
	}

	var buf bytes.Buffer
	if err := NewLineEncoder(&buf).Encode(r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "error\ttype reject") {
		t.Errorf("missing type error:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "\trejected\n") {
		t.Errorf("missing rejected flag:\n%s", buf.String())
	}
}

func TestJSONEncoder(t *testing.T) {
	r := toyReport(t, "beep:")

	var buf bytes.Buffer
	if err := NewJSONEncoder(&buf).Encode(r); err != nil {
		t.Fatal(err)
	}

	var got jsonReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if got.Text != "beep:" || got.State != "partial" || got.Complete || !got.Accepted {
		t.Errorf("unexpected report: %+v", got)
	}
	if got.Mask != nil {
		t.Errorf("unexpected mask: %+v", got.Mask)
	}
}

func TestNewEncoder(t *testing.T) {
	var buf bytes.Buffer
	for _, name := range []string{"", "line", "json"} {
		if _, err := NewEncoder(name, &buf); err != nil {
			t.Errorf("NewEncoder(%q): %v", name, err)
		}
	}
	if _, err := NewEncoder("xml", &buf); err == nil {
		t.Error("expected an error for xml")
	}
}
