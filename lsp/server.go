// Package lsp serves grammar-driven completions and diagnostics over the
// Language Server Protocol.
//
// The grammar of a document is chosen by its file extension: prog.imp is
// checked against the imp grammar. Documents with other extensions use the
// project's default grammar.
package lsp

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/project"
)

const lsName = "p7"

var log = commonlog.GetLogger("p7.lsp")

type document struct {
	uri     protocol.DocumentUri
	path    string
	text    string
	grammar string
}

type Server struct {
	handler protocol.Handler
	server  *server.Server
	version string

	mu       sync.Mutex
	project  *project.Project
	docs     map[protocol.DocumentUri]*document
	grammars map[string]grammar.Grammar
	watcher  *GrammarWatcher
	notify   glsp.NotifyFunc
}

func NewServer(version string) *Server {
	ls := &Server{
		version:  version,
		docs:     make(map[protocol.DocumentUri]*document),
		grammars: make(map[string]grammar.Grammar),
	}

	ls.handler = protocol.Handler{
		Initialize:             ls.initialize,
		Initialized:            ls.initialized,
		Shutdown:               ls.shutdown,
		SetTrace:               ls.setTrace,
		TextDocumentDidOpen:    ls.textDocumentDidOpen,
		TextDocumentDidChange:  ls.textDocumentDidChange,
		TextDocumentDidClose:   ls.textDocumentDidClose,
		TextDocumentDidSave:    ls.textDocumentDidSave,
		TextDocumentCompletion: ls.textDocumentCompletion,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}

	proj, err := project.LoadFrom(rootDir)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	ls.project = proj
	ls.notify = ctx.Notify
	ls.mu.Unlock()

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{" ", ":", "(", "{", "[", ","},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	ls.mu.Lock()
	dir := ls.project.GrammarDir()
	ls.mu.Unlock()

	w, err := NewGrammarWatcher(dir, ls.reload)
	if err != nil {
		// Without a grammar directory only built-in grammars are used.
		log.Infof("not watching %s: %v", dir, err)
		return nil
	}
	ls.mu.Lock()
	ls.watcher = w
	ls.mu.Unlock()
	w.Start()
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	ls.mu.Lock()
	w := ls.watcher
	ls.watcher = nil
	ls.mu.Unlock()
	if w != nil {
		w.Stop()
	}
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// reload rescans the project after a grammar file changed and checks the
// open documents again.
func (ls *Server) reload(name string) {
	ls.mu.Lock()
	proj, err := project.LoadFrom(ls.project.RootDir)
	if err != nil {
		ls.mu.Unlock()
		log.Errorf("reload project: %v", err)
		return
	}
	ls.project = proj
	clear(ls.grammars)
	docs := make([]*document, 0, len(ls.docs))
	for _, doc := range ls.docs {
		doc.grammar = ls.grammarName(doc.path)
		docs = append(docs, doc)
	}
	notify := ls.notify
	ls.mu.Unlock()

	log.Infof("grammar %s changed, checking %d documents", name, len(docs))
	for _, doc := range docs {
		ls.publish(notify, doc)
	}
}

// grammarName picks the grammar of the document at path. ls.mu must be held.
func (ls *Server) grammarName(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext != "" && slices.Contains(ls.project.GrammarNames(), ext) {
		return ext
	}
	return ls.project.Config.Grammar
}

func (ls *Server) grammar(name string) (grammar.Grammar, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if g, ok := ls.grammars[name]; ok {
		return g, nil
	}
	g, err := ls.project.LoadGrammar(name)
	if err != nil {
		return grammar.Grammar{}, err
	}
	ls.grammars[name] = g
	return g, nil
}

func (ls *Server) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	path, err := uriToPath(uri)
	if err != nil {
		return
	}
	ls.mu.Lock()
	doc, ok := ls.docs[uri]
	if !ok {
		doc = &document{uri: uri, path: path, grammar: ls.grammarName(path)}
		ls.docs[uri] = doc
	}
	doc.text = text
	snapshot := *doc
	ls.mu.Unlock()

	ls.publish(ctx.Notify, &snapshot)
}

func (ls *Server) publish(notify glsp.NotifyFunc, doc *document) {
	if notify == nil {
		return
	}
	diagnostics := []protocol.Diagnostic{}
	g, err := ls.grammar(doc.grammar)
	if err != nil {
		origin := protocol.Position{}
		diagnostics = append(diagnostics,
			diagnostic(protocol.DiagnosticSeverityError, protocol.Range{Start: origin, End: origin}, err.Error()))
	} else if found := Diagnose(g, doc.text); found != nil {
		diagnostics = found
	}
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         doc.uri,
		Diagnostics: diagnostics,
	})
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	ls.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.update(ctx, params.TextDocument.URI, textChange.Text)
		}
	}
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.mu.Lock()
	delete(ls.docs, params.TextDocument.URI)
	ls.mu.Unlock()
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		ls.update(ctx, params.TextDocument.URI, *params.Text)
	}
	return nil
}

func (ls *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	ls.mu.Lock()
	doc, ok := ls.docs[params.TextDocument.URI]
	var snapshot document
	if ok {
		snapshot = *doc
	}
	ls.mu.Unlock()
	if !ok {
		return nil, nil
	}

	g, err := ls.grammar(snapshot.grammar)
	if err != nil {
		return nil, nil
	}
	prefix := snapshot.text[:offsetAt(snapshot.text, params.Position)]
	items := Complete(g, prefix)
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
