// Package gparse is the concrete adapter behind the core's Parser boundary
// (the "Parser interface (consumed)" of the design: see internal/core). It
// implements a real Groovy grammar, not a Java subset wearing Groovy's file
// extension, covering packages, imports (including static and wildcard
// imports with "as" aliasing), classes, interfaces, traits, enums, records,
// fields and methods (typed or declared with the untyped "def"), the full
// statement grammar, and Groovy's distinctive expression forms: closures
// (explicit-parameter or implicit "it"), GStrings with "$ident"/"${expr}"
// interpolation, safe navigation ("?."), the Elvis operator ("?:"), the
// spread operator ("*." and leading "*" in argument/literal lists), ranges
// ("..", "..<"), the spaceship/find/match operators ("<=>", "=~", "==~"),
// and the power operator ("**").
//
// # Overview
//
// The parser reads the whole input up front (Finish blocks until the
// underlying io.Reader is exhausted), tokenizes it into a flat buffer, and
// walks that buffer with a hand-written recursive-descent parser, producing
// a concrete syntax tree (CST) that preserves source spans but discards
// whitespace and comments from the tree proper (comments are captured
// separately; see WithComments). It is designed for IDE-like tooling where
// malformed input is the common case, not the exception: parser failures
// never propagate past the CompilationService's compile().
//
// # Architecture
//
//	┌─────────────┐     ┌─────────────┐     ┌─────────────┐
//	│   Input     │────▶│   Lexer     │────▶│   Parser    │
//	│  (bytes)    │     │  (tokens)   │     │   (CST)     │
//	└─────────────┘     └─────────────┘     └─────────────┘
//	                           │                   │
//	                           ▼                   ▼
//	                    ┌─────────────┐     ┌─────────────┐
//	                    │  Position   │     │  ErrorNode  │
//	                    │  Tracking   │     │  Recovery   │
//	                    └─────────────┘     └─────────────┘
//
// # Entry points
//
//	func ParseCompilationUnit(r io.Reader, opts ...Option) *Parser
//	func ParseExpression(r io.Reader, opts ...Option) *Parser
//
//	func (p *Parser) Finish() *Node      // reads r to EOF, returns the tree
//	func (p *Parser) IsComplete() bool   // true if Finish would not bottom
//	                                     // out on an unexpected EOF
//	func (p *Parser) Reset(r io.Reader)  // reuse the Parser for new input
//
// IsComplete exists for editor-latency callers (e.g. a completion request
// mid-keystroke) that want to know whether the buffer as typed so far is a
// well-formed program before spending a full compile on it; it re-parses a
// throwaway copy rather than mutating the Parser's committed state.
//
// # Source Context
//
// Every node in the tree carries precise source location information, in
// one-based line/column form (the "Source-AST space" coordinate system;
// see internal/position for the single authority that converts this to
// and from zero-based LSP coordinates):
//
//	type Position struct {
//	    File   string
//	    Offset int
//	    Line   int // 1-based
//	    Column int // 1-based, in bytes
//	}
//
//	type Span struct {
//	    Start Position
//	    End   Position
//	}
//
// # GString interpolation
//
// The lexer records each "$ident"/"${expr}" interpolation inside a GString
// or GStringBlock token as an absolute Span (Token.Embedded) into the same
// input the enclosing file was lexed from. The parser re-lexes and
// re-parses each span as a standalone expression (see parseEmbeddedExpr),
// seeding the sub-lexer at the span's own line/column so the resulting
// nodes carry absolute line/column positions without any post-hoc shifting
// (their Offset fields count from the start of the interpolation's text).
//
// # No newline-sensitive statement termination
//
// Unlike groovyc, this parser does not track newlines as a statement
// boundary signal: the lexer discards them as whitespace, and the parser
// treats a trailing semicolon as optional everywhere, never mandatory. This
// is adequate for the overwhelming majority of real Groovy source, with one
// known gap: a construct that only a human reading line breaks would split
// into two statements, such as
//
//	x
//	-y
//
// parses as the single expression "x - y" rather than two statements. True
// automatic-semicolon-insertion would require threading newline tokens
// through the whole expression grammar to detect when a line break forbids
// continuation (return/break/continue/the postfix ++/-- operators, and a
// leading binary operator on the next line); it is not implemented.
//
// # Error Recovery
//
// The parser never panics on malformed input. Instead, it creates ErrorNode
// entries in the tree that capture the span of unparsable text, a
// diagnostic message, and the actual tokens encountered, and recovers at
// the statement, declaration, or expression level so the rest of the file
// still yields usable structure: a single bad closure in one method must
// not blank out the whole compilation unit's symbol table.
//
// # Node Types
//
// The CST uses a uniform node structure:
//
//	type Node struct {
//	    Kind     NodeKind
//	    Span     Span
//	    Children []*Node
//	    Token    *Token
//	    Error    *Error
//	}
//
// # Thread Safety
//
// A Parser instance is not safe for concurrent use. The CompilationService
// creates a fresh instance per compile invocation.
package gparse
