// Package api serves grammar validation, completions and parsing over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/ebnf/parse"
	"github.com/dhamidi/p7/generate"
	"github.com/dhamidi/p7/grammars"
	"github.com/dhamidi/p7/metrics"
	"github.com/dhamidi/p7/project"
)

var log = commonlog.GetLogger("p7.api")

// errMissingGrammar is returned when a request has neither spec nor grammar.
var errMissingGrammar = errors.New("missing 'spec' or 'grammar' field")

const tokenSampleSize = 30

// Handlers holds the dependencies of the HTTP handlers.
type Handlers struct {
	project *project.Project
	metrics *metrics.Recorder
	vocab   []string
	version string
	started time.Time
}

// NewHandlers creates handlers serving the grammars of proj.
func NewHandlers(proj *project.Project) *Handlers {
	return &Handlers{
		project: proj,
		version: "dev",
		started: time.Now(),
	}
}

// WithMetrics records generator and request metrics in rec and serves them
// on /metrics.
func (h *Handlers) WithMetrics(rec *metrics.Recorder) *Handlers {
	h.metrics = rec
	return h
}

// WithVocab sets the vocabulary used by the token filter when a request
// brings none.
func (h *Handlers) WithVocab(vocab []string) *Handlers {
	h.vocab = vocab
	return h
}

// WithVersion sets the version reported by the health check.
func (h *Handlers) WithVersion(version string) *Handlers {
	h.version = version
	return h
}

// RegisterRoutes adds the API routes to group.
func RegisterRoutes(group *gin.RouterGroup, h *Handlers) {
	group.GET("/health", h.HandleHealth)
	group.GET("/grammars", h.HandleListGrammars)
	group.GET("/grammars/:name", h.HandleGetGrammar)
	group.POST("/validate-grammar", h.HandleValidateGrammar)
	group.POST("/check-partial", h.HandleCheckPartial)
	group.POST("/get-completions", h.HandleGetCompletions)
	group.POST("/parse-to-ast", h.HandleParseToAST)

	debug := group.Group("/debug")
	debug.GET("/server", h.HandleDebugServer)
	debug.POST("/grammar", h.HandleDebugGrammar)
	debug.POST("/completions", h.HandleDebugCompletions)
	debug.POST("/token-filter", h.HandleDebugTokenFilter)
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       h.version,
		Grammars:      len(h.project.GrammarNames()),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}

// HandleDebugServer handles GET /api/debug/server.
func (h *Handlers) HandleDebugServer(c *gin.Context) {
	c.JSON(http.StatusOK, ServerResponse{
		PID:           os.Getpid(),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		GoVersion:     runtime.Version(),
		ProjectRoot:   h.project.RootDir,
		ConfigFile:    h.project.ConfigPath,
	})
}

// HandleListGrammars handles GET /api/grammars.
func (h *Handlers) HandleListGrammars(c *gin.Context) {
	resp := GrammarListResponse{Grammars: []GrammarSummary{}}
	for _, name := range h.project.GrammarNames() {
		info := grammars.Describe(name)
		resp.Grammars = append(resp.Grammars, GrammarSummary{
			Name:        name,
			DisplayName: info.Name,
			Description: info.Description,
			Short:       info.Short,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// HandleGetGrammar handles GET /api/grammars/:name.
//
// Response:
//
//	200 OK: GrammarResponse
//	404 Not Found: unknown grammar
func (h *Handlers) HandleGetGrammar(c *gin.Context) {
	name := c.Param("name")

	if f := h.project.GrammarFile(name); f != nil {
		spec, err := os.ReadFile(f.Path)
		if err != nil {
			log.Errorf("read grammar %s: %v", f.Path, err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "READ_FAILED"})
			return
		}
		info := grammars.Describe(name)
		info.Spec = ""
		c.JSON(http.StatusOK, GrammarResponse{Name: name, Spec: string(spec), Info: info})
		return
	}

	info, err := grammars.Get(name)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "UNKNOWN_GRAMMAR"})
		return
	}
	spec := info.Spec
	info.Spec = ""
	c.JSON(http.StatusOK, GrammarResponse{Name: name, Spec: spec, Info: info})
}

// HandleValidateGrammar handles POST /api/validate-grammar.
//
// An invalid specification is not a failed request: the response reports
// the construction errors with status 200.
func (h *Handlers) HandleValidateGrammar(c *gin.Context) {
	var req ValidateGrammarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing 'spec' field", Code: "INVALID_REQUEST"})
		return
	}

	g, err := grammar.Load(req.Spec)
	if err != nil {
		resp := ValidateGrammarResponse{Valid: false, Errors: []string{err.Error()}}
		var ce *grammar.ConstructionError
		if errors.As(err, &ce) {
			resp.Line = ce.Line
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	start := g.Start()
	c.JSON(http.StatusOK, ValidateGrammarResponse{
		Valid:            true,
		Errors:           []string{},
		StartNonterminal: &start,
		Productions:      g.Productions(),
	})
}

// HandleCheckPartial handles POST /api/check-partial. The input is valid when
// it can still be extended into a complete, well-typed sentence.
func (h *Handlers) HandleCheckPartial(c *gin.Context) {
	req, g, ok := h.bindGrammar(c)
	if !ok {
		return
	}

	gen := h.newGenerator(g)
	if req.Input != "" {
		accepted, err := gen.FeedRaw(req.Input)
		switch {
		case err != nil:
			c.JSON(http.StatusOK, CheckPartialResponse{Valid: false, Reason: "ill_typed"})
			return
		case !accepted:
			c.JSON(http.StatusOK, CheckPartialResponse{Valid: false, Reason: "invalid_prefix"})
			return
		}
		if !gen.IsComplete() && len(gen.Completions()) == 0 {
			c.JSON(http.StatusOK, CheckPartialResponse{Valid: false, Reason: "not_completable"})
			return
		}
	}
	c.JSON(http.StatusOK, CheckPartialResponse{Valid: true, Reason: ""})
}

// HandleGetCompletions handles POST /api/get-completions. A rejected input
// leaves the text empty and reports accepted=false.
func (h *Handlers) HandleGetCompletions(c *gin.Context) {
	req, g, ok := h.bindGrammar(c)
	if !ok {
		return
	}

	gen, accepted, typeErr := h.session(g, req.Input)
	c.JSON(http.StatusOK, CompletionsResponse{
		CurrentText: gen.CurrentText(),
		Accepted:    accepted,
		TypeError:   typeErr,
		Completions: nonNil(gen.Completions()),
		IsComplete:  gen.IsComplete(),
	})
}

// HandleDebugGrammar handles POST /api/debug/grammar. Unlike the other
// endpoints an invalid specification is reported in the body.
func (h *Handlers) HandleDebugGrammar(c *gin.Context) {
	var req GrammarRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Spec == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing 'spec' field", Code: "INVALID_REQUEST"})
		return
	}
	g, err := grammar.Load(req.Spec)
	if err != nil {
		c.JSON(http.StatusOK, DebugCompletionsResponse{Valid: false, Errors: []string{err.Error()}})
		return
	}
	c.JSON(http.StatusOK, h.debugCompletions(g, req.Input))
}

// HandleDebugCompletions handles POST /api/debug/completions.
func (h *Handlers) HandleDebugCompletions(c *gin.Context) {
	req, g, ok := h.bindGrammar(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.debugCompletions(g, req.Input))
}

func (h *Handlers) debugCompletions(g grammar.Grammar, input string) DebugCompletionsResponse {
	gen, _, typeErr := h.session(g, input)
	if typeErr != nil {
		return DebugCompletionsResponse{
			Valid:            true,
			TypeError:        typeErr,
			CurrentText:      input,
			State:            generate.StatePartial.String(),
			Completions:      []string{},
			DebugCompletions: generate.DebugInfo{Patterns: []string{}, Examples: []string{}},
		}
	}
	return DebugCompletionsResponse{
		Valid:              true,
		CurrentText:        gen.CurrentText(),
		State:              gen.State().String(),
		IsComplete:         gen.IsComplete(),
		Completions:        nonNil(gen.Completions()),
		DebugCompletions:   gen.DebugCompletions(),
		WellTypedTreeCount: gen.WellTypedTreeCount(),
	}
}

// HandleDebugTokenFilter handles POST /api/debug/token-filter.
//
// Response:
//
//	200 OK: TokenFilterResponse
//	400 Bad Request: no vocabulary in the request or the project
func (h *Handlers) HandleDebugTokenFilter(c *gin.Context) {
	var req TokenFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	g, ok := h.resolveGrammar(c, req.GrammarRequest)
	if !ok {
		return
	}
	vocab := req.Vocab
	if len(vocab) == 0 {
		vocab = h.vocab
	}
	if len(vocab) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no vocabulary in request or project", Code: "MISSING_VOCAB"})
		return
	}

	gen, _, typeErr := h.session(g, req.Input)
	if typeErr != nil {
		c.JSON(http.StatusOK, TokenFilterResponse{Valid: true, TypeError: typeErr, CurrentText: req.Input, VocabSize: len(vocab)})
		return
	}

	completions := gen.Completions()
	indices := gen.FilterCompletionIndices(vocab)
	inVocab := make(map[string]bool, len(vocab))
	for _, tok := range vocab {
		inVocab[tok] = true
	}

	resp := TokenFilterResponse{
		Valid:            true,
		CurrentText:      gen.CurrentText(),
		IsComplete:       gen.IsComplete(),
		CompletionCount:  len(completions),
		ValidTokenCount:  len(indices),
		ValidTokenSample: []string{},
		CompletionChecks: []CompletionCheck{},
		VocabSize:        len(vocab),
	}
	for _, i := range indices[:min(len(indices), tokenSampleSize)] {
		resp.ValidTokenSample = append(resp.ValidTokenSample, vocab[i])
	}
	for _, comp := range completions[:min(len(completions), 20)] {
		resp.CompletionChecks = append(resp.CompletionChecks, CompletionCheck{Completion: comp, InVocab: inVocab[comp]})
	}
	c.JSON(http.StatusOK, resp)
}

// HandleParseToAST handles POST /api/parse-to-ast. Inputs without a complete
// well-typed tree are reported with success=false.
func (h *Handlers) HandleParseToAST(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	format, ok := parse.ParseFormat(req.Format)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown format %q", req.Format), Code: "INVALID_FORMAT"})
		return
	}
	g, ok := h.resolveGrammar(c, req.GrammarRequest)
	if !ok {
		return
	}

	gen, _, typeErr := h.session(g, req.Input)
	resp := ParseResponse{CurrentText: gen.CurrentText(), IsComplete: gen.IsComplete()}
	if typeErr != nil {
		resp.Error = *typeErr
		c.JSON(http.StatusOK, resp)
		return
	}
	sexpr, err := gen.SExpr(format)
	if err != nil {
		resp.Error = err.Error()
		c.JSON(http.StatusOK, resp)
		return
	}
	resp.Success = true
	resp.SExpr = sexpr
	c.JSON(http.StatusOK, resp)
}

// bindGrammar decodes a GrammarRequest and compiles its grammar. On failure
// it writes the error response and returns false.
func (h *Handlers) bindGrammar(c *gin.Context) (GrammarRequest, grammar.Grammar, bool) {
	var req GrammarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return req, grammar.Grammar{}, false
	}
	g, ok := h.resolveGrammar(c, req)
	return req, g, ok
}

func (h *Handlers) resolveGrammar(c *gin.Context, req GrammarRequest) (grammar.Grammar, bool) {
	var (
		g   grammar.Grammar
		err error
	)
	switch {
	case req.Spec != "":
		g, err = grammar.Load(req.Spec)
	case req.Grammar != "":
		g, err = h.project.LoadGrammar(req.Grammar)
	default:
		err = errMissingGrammar
	}
	if err == nil {
		return g, true
	}

	var ce *grammar.ConstructionError
	switch {
	case errors.Is(err, errMissingGrammar):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
	case errors.Is(err, grammars.ErrUnknown):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "UNKNOWN_GRAMMAR"})
	case errors.As(err, &ce):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid grammar", Code: "INVALID_GRAMMAR", Details: err.Error()})
	default:
		log.Errorf("load grammar: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "LOAD_FAILED"})
	}
	return grammar.Grammar{}, false
}

func (h *Handlers) newGenerator(g grammar.Grammar) *generate.Generator {
	if h.metrics != nil {
		return generate.New(g, generate.WithObserver(h.metrics))
	}
	return generate.New(g)
}

// session feeds input to a new generator. It reports whether the input was
// accepted and, for an ill-typed input, the type error.
func (h *Handlers) session(g grammar.Grammar, input string) (*generate.Generator, bool, *string) {
	gen := h.newGenerator(g)
	if input == "" {
		return gen, true, nil
	}
	ok, err := gen.FeedRaw(input)
	if err != nil {
		msg := err.Error()
		return gen, false, &msg
	}
	return gen, ok, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
