// Package lspserver is the thin Language Server Protocol transport layer:
// it translates glsp/protocol_3_16 requests into internal/core.Core calls
// and translates Core's results back into protocol types. Document
// lifecycle notifications (didOpen/didChange/didSave) trigger async
// recompiles; textDocument/definition and textDocument/references are
// served from the resolver.
package lspserver

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/albertocavalcante/groovy-lsp/internal/core"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
	"github.com/albertocavalcante/groovy-lsp/internal/resolve"
)

const serverName = "groovy-lsp"

// Server is the glsp-backed LSP front end.
type Server struct {
	version string
	handler protocol.Handler
	server  *server.Server

	mu    sync.RWMutex
	core  *core.Core
	texts map[position.URI]string
}

// New constructs a Server. version is reported to clients in
// InitializeResult.ServerInfo.
func New(version string) *Server {
	s := &Server{version: version, texts: make(map[position.URI]string)}

	s.handler = protocol.Handler{
		Initialize:             s.initialize,
		Initialized:            s.initialized,
		Shutdown:               s.shutdown,
		SetTrace:               s.setTrace,
		TextDocumentDidOpen:    s.textDocumentDidOpen,
		TextDocumentDidChange:  s.textDocumentDidChange,
		TextDocumentDidClose:   s.textDocumentDidClose,
		TextDocumentDidSave:    s.textDocumentDidSave,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = server.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio serves LSP traffic over stdin/stdout until the client
// disconnects or sends shutdown+exit.
func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	root := "."
	if params.RootPath != nil && *params.RootPath != "" {
		root = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			root = path
		}
	}

	s.mu.Lock()
	s.core = core.New(core.Options{})
	s.mu.Unlock()

	if err := s.core.Open(root, nil, nil, func(error) {}); err != nil {
		return nil, err
	}

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    intPtr(int(protocol.TextDocumentSyncKindFull)),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}
	definitionProvider := true
	capabilities.DefinitionProvider = definitionProvider
	referencesProvider := true
	capabilities.ReferencesProvider = referencesProvider

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	s.mu.Lock()
	c := s.core
	s.core = nil
	s.mu.Unlock()
	if c != nil {
		c.Close()
	}
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri, err := toURI(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	s.recompile(uri, params.TextDocument.Text)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri, err := toURI(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
		s.recompile(uri, textChange.Text)
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri, err := toURI(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	delete(s.texts, uri)
	s.mu.Unlock()
	return nil
}

func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri, err := toURI(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if params.Text != nil {
		s.recompile(uri, *params.Text)
	}
	return nil
}

func (s *Server) recompile(uri position.URI, text string) {
	s.mu.Lock()
	s.texts[uri] = text
	c := s.core
	s.mu.Unlock()

	if c == nil {
		return
	}
	c.Compiler.CompileAsync(context.Background(), uri, text)
}

func (s *Server) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri, err := toURI(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	s.mu.RLock()
	c := s.core
	text := s.texts[uri]
	s.mu.RUnlock()
	if c == nil {
		return nil, nil
	}

	idx := position.NewLineIndex([]byte(text))
	srcPos := position.LSPToSource(idx, position.Position{
		Space:  position.LSPSpace,
		Line:   int(params.Position.Line),
		Column: int(params.Position.Character),
	})

	result, resErr := c.FindDefinitionAt(uri, srcPos)
	if resErr != nil || result == nil {
		return nil, nil
	}

	loc, ok := s.toLocation(result)
	if !ok {
		return nil, nil
	}
	return loc, nil
}

func (s *Server) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) (any, error) {
	uri, err := toURI(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	s.mu.RLock()
	c := s.core
	text := s.texts[uri]
	s.mu.RUnlock()
	if c == nil {
		return nil, nil
	}

	idx := position.NewLineIndex([]byte(text))
	srcPos := position.LSPToSource(idx, position.Position{
		Space:  position.LSPSpace,
		Line:   int(params.Position.Line),
		Column: int(params.Position.Character),
	})

	results, resErr := c.FindTargetsAt(uri, srcPos, []resolve.TargetKind{resolve.TargetReference})
	if resErr != nil {
		return nil, nil
	}

	var locations []protocol.Location
	for i := range results {
		if loc, ok := s.toLocation(&results[i]); ok {
			locations = append(locations, loc)
		}
	}
	return locations, nil
}

func (s *Server) toLocation(result *resolve.DefinitionResult) (protocol.Location, bool) {
	if result.Source != nil {
		return s.sourceLocation(*result.Source)
	}
	if result.Binary != nil {
		return protocol.Location{
			URI: string(result.Binary.URI),
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 0, Character: 0},
			},
		}, true
	}
	return protocol.Location{}, false
}

func (s *Server) sourceLocation(src resolve.SourceResult) (protocol.Location, bool) {
	s.mu.RLock()
	c := s.core
	text, haveText := s.texts[src.URI]
	s.mu.RUnlock()
	if c == nil {
		return protocol.Location{}, false
	}
	if !haveText {
		content, err := readFile(src.URI)
		if err != nil {
			return protocol.Location{}, false
		}
		text = content
	}

	idx := position.NewLineIndex([]byte(text))
	start := position.SourceToLSP(idx, src.Span.Start)
	end := position.SourceToLSP(idx, src.Span.End)

	return protocol.Location{
		URI: string(src.URI),
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(start.Line), Character: uint32(start.Column)},
			End:   protocol.Position{Line: uint32(end.Line), Character: uint32(end.Column)},
		},
	}, true
}

func readFile(uri position.URI) (string, error) {
	data, err := os.ReadFile(uri.Path())
	if err != nil {
		return "", err
	}
	return string(data), nil
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

func toURI(lspURI string) (position.URI, error) {
	path, err := uriToPath(lspURI)
	if err != nil {
		return "", err
	}
	return position.FromPath(path), nil
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *protocol.TextDocumentSyncKind {
	v := protocol.TextDocumentSyncKind(i)
	return &v
}
