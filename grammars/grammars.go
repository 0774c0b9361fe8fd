// Package grammars holds the built-in grammar specifications and their
// descriptions.
package grammars

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dhamidi/p7/ebnf/grammar"
)

//go:embed *.spec grammars.yaml
var files embed.FS

// ErrUnknown is returned for a grammar name that is not built in.
var ErrUnknown = errors.New("unknown grammar")

// Example is a sample sentence of a grammar.
type Example struct {
	Name string `yaml:"name" json:"name"`
	Text string `yaml:"text" json:"text"`
}

// Info describes a built-in grammar.
type Info struct {
	Key         string    `yaml:"-" json:"key"`
	Name        string    `yaml:"name" json:"name"`
	Short       string    `yaml:"short" json:"short"`
	Description string    `yaml:"description" json:"description"`
	SyntaxHints []string  `yaml:"syntax_hints" json:"syntax_hints"`
	Examples    []Example `yaml:"examples" json:"examples"`
	Spec        string    `yaml:"-" json:"spec,omitempty"`
}

var registry = sync.OnceValues(func() (map[string]Info, error) {
	raw, err := files.ReadFile("grammars.yaml")
	if err != nil {
		return nil, err
	}
	infos := make(map[string]Info)
	if err := yaml.Unmarshal(raw, &infos); err != nil {
		return nil, fmt.Errorf("grammars.yaml: %w", err)
	}
	for key, info := range infos {
		spec, err := files.ReadFile(key + ".spec")
		if err != nil {
			return nil, fmt.Errorf("grammar %s: %w", key, err)
		}
		info.Key = key
		info.Spec = string(spec)
		infos[key] = info
	}
	return infos, nil
})

func all() map[string]Info {
	infos, err := registry()
	if err != nil {
		// The embedded files are fixed at build time.
		panic(err)
	}
	return infos
}

// List returns the names of the built-in grammars, sorted.
func List() []string {
	infos := all()
	names := make([]string, 0, len(infos))
	for name := range infos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the description and specification of the grammar called name.
func Get(name string) (Info, error) {
	info, ok := all()[name]
	if !ok {
		return Info{}, fmt.Errorf("%w %q, available: %s", ErrUnknown, name, strings.Join(List(), ", "))
	}
	return info, nil
}

// Describe returns the description of name. Unknown names get a generic
// description instead of an error.
func Describe(name string) Info {
	if info, err := Get(name); err == nil {
		return info
	}
	return Info{
		Key:         name,
		Name:        name,
		Short:       name + " expressions",
		Description: "Grammar: " + name,
	}
}

// Load compiles the built-in grammar called name.
func Load(name string) (grammar.Grammar, error) {
	info, err := Get(name)
	if err != nil {
		return grammar.Grammar{}, err
	}
	g, err := grammar.Load(info.Spec)
	if err != nil {
		return grammar.Grammar{}, fmt.Errorf("grammar %s: %w", name, err)
	}
	return g, nil
}
