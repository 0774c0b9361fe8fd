package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/dhamidi/p7/generate"
)

func TestOptionsLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "p7.yaml"), []byte("grammar: fun\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := &options{root: dir}
	if err := opts.setup(&cobra.Command{}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, name, err := opts.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if name != "fun" {
		t.Errorf("name = %q, want fun", name)
	}

	opts.grammar = "json"
	if _, name, _ = opts.load(); name != "json" {
		t.Errorf("name = %q, want json", name)
	}

	opts.grammar = "cobol"
	if _, _, err := opts.load(); err == nil {
		t.Error("expected an error for an unknown grammar")
	}
}

func TestSessionFlagsBind(t *testing.T) {
	opts := &options{root: t.TempDir(), grammar: "fun"}
	if err := opts.setup(&cobra.Command{}); err != nil {
		t.Fatal(err)
	}
	g, _, err := opts.load()
	if err != nil {
		t.Fatal(err)
	}

	unbound := generate.New(g)
	if ok, _ := unbound.FeedRaw("n + 1"); ok {
		t.Fatal("expected n to be unbound")
	}

	session := sessionFlags{binds: map[string]string{"n": "Int"}}
	gen := generate.New(g, session.options()...)
	ok, err := gen.FeedRaw("n + 1")
	if !ok || err != nil {
		t.Fatalf("FeedRaw = %v, %v", ok, err)
	}
	if !gen.IsComplete() {
		t.Error("expected a complete text")
	}
}
