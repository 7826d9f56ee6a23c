package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/albertocavalcante/groovy-lsp/internal/ast"
	"github.com/albertocavalcante/groovy-lsp/internal/gparse"
)

// GparseParser is the production Parser: it drives the gparse
// lexer/recursive-descent engine, records the CST into an ast.AstModel
// arena, and builds the SymbolIndex from it. It never lets a panic escape:
// a malformed-input panic from deep inside the hand-written parser becomes
// a failed ParseResult with a diagnostic instead of crashing the service.
type GparseParser struct{}

func NewGparseParser() *GparseParser { return &GparseParser{} }

func (g *GparseParser) Parse(ctx context.Context, req ParseRequest) (result *ParseResult) {
	hash := contentHash(req.Content)

	defer func() {
		if r := recover(); r != nil {
			result = failureResult(req.URI, req.Content, hash, req.Phase, []Diagnostic{{
				Severity: SeverityError,
				Message:  fmt.Sprintf("parser panic: %v", r),
			}})
		}
	}()

	if err := ctx.Err(); err != nil {
		return failureResult(req.URI, req.Content, hash, req.Phase, []Diagnostic{{
			Severity: SeverityError,
			Message:  "compilation cancelled",
		}})
	}

	p := gparse.ParseCompilationUnit(strings.NewReader(req.Content), gparse.WithFile(string(req.URI)), gparse.WithPositions())
	root := p.Finish()

	model := ast.Record(req.URI, root)
	symbols := ast.BuildSymbolIndex(model)

	diags := collectErrorDiagnostics(model)

	return &ParseResult{
		URI: req.URI, Content: req.Content, ContentHash: hash, Phase: req.Phase,
		AstModel: model, Symbols: symbols, Diagnostics: diags, Successful: true,
	}
}

func collectErrorDiagnostics(m *ast.AstModel) []Diagnostic {
	var diags []Diagnostic
	for _, id := range m.AllNodes() {
		v := m.View(id)
		if v.Kind == gparse.KindError {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  "syntax error: " + v.Literal,
				Span:     v.Span,
			})
		}
	}
	return diags
}

// contentHash is a cheap, deterministic, non-cryptographic digest good
// enough for a cache key; the cache only ever needs equality, not
// collision-resistance against an adversary.
func contentHash(content string) string {
	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	for i := 0; i < len(content); i++ {
		h ^= uint64(content[i])
		h *= 1099511628211 // FNV-1a prime
	}
	return fmt.Sprintf("%016x", h)
}

var _ Parser = (*GparseParser)(nil)
