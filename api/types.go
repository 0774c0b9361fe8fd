package api

import (
	"github.com/dhamidi/p7/generate"
	"github.com/dhamidi/p7/grammars"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable error code, e.g. INVALID_GRAMMAR.
	Code string `json:"code,omitempty"`

	// Details provides additional error context.
	Details string `json:"details,omitempty"`
}

// GrammarRequest names the grammar of a request and the text to feed. Spec
// takes precedence over Grammar, which names a project or built-in grammar.
type GrammarRequest struct {
	Spec    string `json:"spec"`
	Grammar string `json:"grammar"`
	Input   string `json:"input"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Grammars      int    `json:"grammars"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ServerResponse is returned by GET /api/debug/server.
type ServerResponse struct {
	PID           int    `json:"pid"`
	Goroutines    int    `json:"goroutines"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	GoVersion     string `json:"go_version"`
	ProjectRoot   string `json:"project_root"`
	ConfigFile    string `json:"config_file,omitempty"`
}

// GrammarSummary is one entry of GET /api/grammars.
type GrammarSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Short       string `json:"short"`
}

// GrammarListResponse is returned by GET /api/grammars.
type GrammarListResponse struct {
	Grammars []GrammarSummary `json:"grammars"`
}

// GrammarResponse is returned by GET /api/grammars/:name.
type GrammarResponse struct {
	Name string        `json:"name"`
	Spec string        `json:"spec"`
	Info grammars.Info `json:"info"`
}

// ValidateGrammarRequest is the body of POST /api/validate-grammar.
type ValidateGrammarRequest struct {
	Spec string `json:"spec" binding:"required"`
}

// ValidateGrammarResponse reports whether a specification compiles.
type ValidateGrammarResponse struct {
	Valid            bool     `json:"valid"`
	Errors           []string `json:"errors"`
	Line             int      `json:"line,omitempty"`
	StartNonterminal *string  `json:"start_nonterminal"`
	Productions      []string `json:"productions,omitempty"`
}

// CheckPartialResponse is returned by POST /api/check-partial. Reason is
// empty, invalid_prefix, ill_typed or not_completable.
type CheckPartialResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// CompletionsResponse is returned by POST /api/get-completions.
type CompletionsResponse struct {
	CurrentText string   `json:"current_text"`
	Accepted    bool     `json:"accepted"`
	TypeError   *string  `json:"type_error"`
	Completions []string `json:"completions"`
	IsComplete  bool     `json:"is_complete"`
}

// DebugCompletionsResponse is returned by POST /api/debug/completions and
// POST /api/debug/grammar.
type DebugCompletionsResponse struct {
	Valid              bool               `json:"valid"`
	Errors             []string           `json:"errors,omitempty"`
	TypeError          *string            `json:"type_error"`
	CurrentText        string             `json:"current_text"`
	State              string             `json:"state"`
	IsComplete         bool               `json:"is_complete"`
	Completions        []string           `json:"completions"`
	DebugCompletions   generate.DebugInfo `json:"debug_completions"`
	WellTypedTreeCount int                `json:"well_typed_tree_count"`
}

// TokenFilterRequest is the body of POST /api/debug/token-filter. Without a
// vocabulary the project vocabulary is used.
type TokenFilterRequest struct {
	GrammarRequest
	Vocab []string `json:"vocab"`
}

// CompletionCheck tells whether a completion is a single vocabulary entry.
type CompletionCheck struct {
	Completion string `json:"completion"`
	InVocab    bool   `json:"in_vocab"`
}

// TokenFilterResponse shows how completions map to vocabulary entries.
type TokenFilterResponse struct {
	Valid            bool              `json:"valid"`
	TypeError        *string           `json:"type_error"`
	CurrentText      string            `json:"current_text"`
	IsComplete       bool              `json:"is_complete"`
	CompletionCount  int               `json:"completion_count"`
	ValidTokenCount  int               `json:"valid_token_count"`
	ValidTokenSample []string          `json:"valid_token_sample"`
	CompletionChecks []CompletionCheck `json:"completion_checks"`
	VocabSize        int               `json:"vocab_size"`
}

// ParseRequest is the body of POST /api/parse-to-ast. Format is canonical
// (the default) or indented.
type ParseRequest struct {
	GrammarRequest
	Format string `json:"format"`
}

// ParseResponse is returned by POST /api/parse-to-ast.
type ParseResponse struct {
	Success     bool   `json:"success"`
	SExpr       string `json:"sexpr,omitempty"`
	Error       string `json:"error,omitempty"`
	CurrentText string `json:"current_text"`
	IsComplete  bool   `json:"is_complete"`
}
