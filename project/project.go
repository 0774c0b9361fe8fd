// Package project loads a p7 project: a directory with an optional p7.yaml
// file and a directory of grammar specifications.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/grammars"
)

// ConfigFile is the name of the project file.
const ConfigFile = "p7.yaml"

// Config is the content of p7.yaml. Every field is optional.
type Config struct {
	// Grammar is the grammar used when a command names none.
	Grammar string `yaml:"grammar"`
	// GrammarDir holds *.spec files, relative to the project root.
	GrammarDir string `yaml:"grammar_dir"`
	// Vocab is a vocabulary file, relative to the project root.
	Vocab string `yaml:"vocab"`
	// EOS is the end-of-sequence token id in the vocabulary.
	EOS *int `yaml:"eos"`
	// Verbosity is the log verbosity; 0 logs errors and warnings only.
	Verbosity int `yaml:"verbosity"`
	// Listen is the address of the HTTP service.
	Listen string `yaml:"listen"`
	// Metrics enables the /metrics endpoint of the HTTP service.
	Metrics bool `yaml:"metrics"`
}

// DefaultConfig returns the configuration used without a p7.yaml.
func DefaultConfig() Config {
	return Config{
		Grammar:    "toy",
		GrammarDir: "grammars",
		Listen:     "127.0.0.1:8000",
		Metrics:    true,
	}
}

// Project is a loaded p7 project.
type Project struct {
	RootDir    string
	ConfigPath string // empty when there is no p7.yaml
	Config     Config
	Grammars   []*GrammarFile
}

// GrammarFile is a grammar specification stored in the project.
type GrammarFile struct {
	Name    string
	Path    string
	Project *Project
}

// Load loads the project in the current directory.
func Load() (*Project, error) {
	return LoadFrom(".")
}

// LoadFrom loads the project rooted at rootDir. A missing p7.yaml or grammar
// directory is not an error.
func LoadFrom(rootDir string) (*Project, error) {
	proj := &Project{RootDir: rootDir, Config: DefaultConfig()}

	configPath := filepath.Join(rootDir, ConfigFile)
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &proj.Config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
		proj.ConfigPath = configPath
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read project file: %w", err)
	}

	if proj.Config.GrammarDir == "" {
		proj.Config.GrammarDir = DefaultConfig().GrammarDir
	}
	files, err := scanGrammars(proj.GrammarDir())
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		f.Project = proj
	}
	proj.Grammars = files
	return proj, nil
}

func scanGrammars(dir string) ([]*GrammarFile, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read grammar directory: %w", err)
	}

	var files []*GrammarFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".spec") {
			continue
		}
		files = append(files, &GrammarFile{
			Name: strings.TrimSuffix(entry.Name(), ".spec"),
			Path: filepath.Join(dir, entry.Name()),
		})
	}
	return files, nil
}

// GrammarDir returns the directory scanned for grammar files.
func (p *Project) GrammarDir() string {
	return p.path(p.Config.GrammarDir)
}

func (p *Project) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.RootDir, name)
}

// GrammarFile returns the project grammar with the given name, or nil if not
// found.
func (p *Project) GrammarFile(name string) *GrammarFile {
	for _, f := range p.Grammars {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// GrammarNames returns the project grammars and the built-in grammars,
// sorted. A project grammar hides a built-in grammar of the same name.
func (p *Project) GrammarNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range p.Grammars {
		seen[f.Name] = true
		names = append(names, f.Name)
	}
	for _, name := range grammars.List() {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// LoadGrammar compiles the grammar called name, looking in the project
// before the built-in grammars. An empty name selects the configured
// default. A name ending in .spec is read as a file path.
func (p *Project) LoadGrammar(name string) (grammar.Grammar, error) {
	if name == "" {
		name = p.Config.Grammar
	}
	if strings.HasSuffix(name, ".spec") {
		return grammar.LoadFile(name)
	}
	if f := p.GrammarFile(name); f != nil {
		return f.Load()
	}
	return grammars.Load(name)
}

// Load compiles the grammar file.
func (f *GrammarFile) Load() (grammar.Grammar, error) {
	return grammar.LoadFile(f.Path)
}

// LoadVocab reads the configured vocabulary.
func (p *Project) LoadVocab() ([]string, error) {
	if p.Config.Vocab == "" {
		return nil, fmt.Errorf("no vocabulary configured in %s", ConfigFile)
	}
	return ReadVocabFile(p.path(p.Config.Vocab))
}
