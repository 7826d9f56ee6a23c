// Package compiler implements the CompilationService: the cache-backed,
// phase-aware front end that turns a (uri, content) pair into an AST plus
// diagnostics, deduplicating concurrent compiles of the same URI and
// indexing workspace sources in bounded parallel batches.
package compiler

import (
	"context"

	"github.com/albertocavalcante/groovy-lsp/internal/ast"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

// Phase names the point in the (external) compilation pipeline a parse was
// requested at. The cache key intentionally excludes Phase; see
// CompilationService.Compile's doc comment for why.
type Phase int

const (
	PhaseCanonical Phase = iota // the phase CompileAsync and IndexWorkspaceFile compile at
	PhaseConversion
	PhaseSemanticAnalysis
	PhaseCanonicalization
	PhaseInstructionSelection
)

// Severity mirrors the LSP DiagnosticSeverity scale (1=Error .. 4=Hint).
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Diagnostic is one parser- or resolver-reported problem attached to a
// ParseResult, in source coordinates.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     position.Span
}

// ParseResult is what Compile/CompileTransient/CompileAsync always
// return, even on failure. A failed parse has a nil AstModel/SymbolIndex
// and a non-empty Diagnostics slice; it is never represented as a Go error
// returned from Compile, because a syntax error in user code is not a
// service-level failure.
type ParseResult struct {
	URI         position.URI
	Content     string
	ContentHash string
	Phase       Phase
	AstModel    *ast.AstModel
	Symbols     *ast.SymbolIndex
	Diagnostics []Diagnostic
	Successful  bool
}

func failureResult(uri position.URI, content, hash string, phase Phase, diags []Diagnostic) *ParseResult {
	return &ParseResult{
		URI: uri, Content: content, ContentHash: hash, Phase: phase,
		Diagnostics: diags, Successful: false,
	}
}

// ParseRequest is the input to the (out-of-scope, consumed) Parser
// boundary: everything the parser needs to turn source text into a CST
// without reaching back into the service for anything else.
type ParseRequest struct {
	URI              position.URI
	Content          string
	Classpath        []string
	SourceRoots      []string
	WorkspaceSources []string
	Phase            Phase
}

// Parser is the boundary the service consumes: something that turns a
// request into a ParseResult. It must be deterministic given the request
// and must never let a panic escape. GparseParser (parser_adapter.go) is
// the production implementation; tests substitute a counting fake to
// verify the single-flight and cache behavior.
type Parser interface {
	Parse(ctx context.Context, req ParseRequest) *ParseResult
}
