package gparse

import (
	"io"
)

type Option func(*Parser)

func WithFile(path string) Option {
	return func(p *Parser) {
		p.file = path
	}
}

func WithStartLine(line int) Option {
	return func(p *Parser) {
		p.startLine = line
	}
}

func WithComments() Option {
	return func(p *Parser) {
		p.includeComments = true
	}
}

func WithPositions() Option {
	return func(p *Parser) {
		p.includePositions = true
	}
}

type parseFunc func(*Parser) *Node

type Parser struct {
	file             string
	startLine        int
	includeComments  bool
	includePositions bool
	reader           io.Reader
	input            []byte
	lexer            *Lexer
	tokens           []Token
	comments         []Token
	pos              int
	entry            parseFunc
	incomplete       bool
}

func (p *Parser) IncludesPositions() bool {
	return p.includePositions
}

func (p *Parser) Comments() []Token {
	return p.comments
}

func ParseCompilationUnit(r io.Reader, opts ...Option) *Parser {
	p := &Parser{
		startLine: 1,
		reader:    r,
		entry:     (*Parser).parseCompilationUnit,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func ParseExpression(r io.Reader, opts ...Option) *Parser {
	p := &Parser{
		startLine: 1,
		reader:    r,
		entry:     (*Parser).parseExpression,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) readAll() error {
	if p.input != nil {
		return nil
	}
	data, err := io.ReadAll(p.reader)
	if err != nil {
		return err
	}
	p.input = data
	return nil
}

// IsComplete reports whether it is safe to call Finish.
// Returns true when the input can be parsed to produce a complete node
// without blocking. For example, "1 + " returns false because the
// expression is incomplete.
func (p *Parser) IsComplete() bool {
	if err := p.readAll(); err != nil {
		return false
	}
	if len(p.input) == 0 {
		return false
	}
	savedLexer := p.lexer
	savedTokens := p.tokens
	savedPos := p.pos
	savedIncomplete := p.incomplete
	savedComments := p.comments

	p.lexer = NewLexerAt(p.input, p.file, p.startLine, 1)
	p.tokens = nil
	p.pos = 0
	p.incomplete = false
	p.comments = nil
	p.tokenize()
	p.entry(p)

	complete := !p.incomplete

	p.lexer = savedLexer
	p.tokens = savedTokens
	p.pos = savedPos
	p.incomplete = savedIncomplete
	p.comments = savedComments

	return complete
}

func (p *Parser) Finish() *Node {
	if err := p.readAll(); err != nil {
		return nil
	}
	if len(p.input) == 0 {
		return nil
	}
	p.lexer = NewLexerAt(p.input, p.file, p.startLine, 1)
	p.tokens = nil
	p.pos = 0
	p.incomplete = false
	p.tokenize()
	result := p.entry(p)
	if p.incomplete {
		return nil
	}
	return result
}

func (p *Parser) Reset(r io.Reader) {
	p.reader = r
	p.input = nil
	p.lexer = nil
	p.tokens = nil
	p.pos = 0
	p.incomplete = false
	p.comments = nil
}

func (p *Parser) tokenize() {
	for {
		tok := p.lexer.NextToken()
		if tok.Kind == TokenWhitespace {
			continue
		}
		if tok.Kind == TokenComment || tok.Kind == TokenLineComment {
			if p.includeComments {
				p.comments = append(p.comments, tok)
			}
			continue
		}
		p.tokens = append(p.tokens, tok)
		if tok.Kind == TokenEOF {
			break
		}
	}
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekN(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind TokenKind) *Token {
	tok := p.peek()
	if tok.Kind == kind {
		p.advance()
		return &tok
	}
	return nil
}

func (p *Parser) expectIdentifier() *Token {
	if p.isIdentifierLike() {
		tok := p.advance()
		return &tok
	}
	return nil
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

// mustProgress returns a function that checks if the parser has advanced.
// Call it at the start of a loop iteration, then call the returned function
// at the end: if no progress was made it consumes one token (unless at EOF)
// so the loop cannot spin, and returns false.
func (p *Parser) mustProgress() func() bool {
	saved := p.pos
	return func() bool {
		if p.pos == saved {
			if !p.check(TokenEOF) {
				p.advance()
			}
			return false
		}
		return true
	}
}

func (p *Parser) match(kinds ...TokenKind) bool {
	for _, kind := range kinds {
		if p.check(kind) {
			return true
		}
	}
	return false
}

// isIdentifierLike: Groovy has no contextual/module keyword set that
// depends on which file is being parsed, so a name is either a plain
// identifier or it isn't.
func (p *Parser) isIdentifierLike() bool {
	return p.peek().Kind == TokenIdent
}

func (p *Parser) startNode(kind NodeKind) *Node {
	return &Node{
		Kind: kind,
		Span: Span{Start: p.peek().Span.Start},
	}
}

func (p *Parser) finishNode(n *Node) *Node {
	if p.pos > 0 && p.pos <= len(p.tokens) {
		n.Span.End = p.tokens[p.pos-1].Span.End
	} else if len(p.tokens) > 0 {
		n.Span.End = p.tokens[len(p.tokens)-1].Span.End
	}
	return n
}

func (p *Parser) errorNode(msg string, recoverTo []TokenKind, expected ...TokenKind) *Node {
	tok := p.peek()
	if tok.Kind == TokenEOF {
		p.incomplete = true
	}
	node := &Node{
		Kind: KindError,
		Span: Span{Start: tok.Span.Start, End: tok.Span.End},
		Error: &Error{
			Message:  msg,
			Expected: expected,
			Got:      &tok,
		},
	}
	p.recoverTo(recoverTo)
	return node
}

func (p *Parser) recoverTo(kinds []TokenKind) {
	if !p.check(TokenEOF) {
		p.advance()
	}
	if len(kinds) == 0 {
		return
	}
	for !p.check(TokenEOF) {
		for _, kind := range kinds {
			if p.check(kind) {
				return
			}
		}
		p.advance()
	}
}

// parseEmbeddedExpr re-lexes and parses a GString interpolation's source
// span (recorded by the lexer as byte offsets into the same input buffer
// this parser is walking) as a standalone expression. Seeding the sub-lexer
// at span.Start's line/column means every node it produces carries absolute
// Line/Column values without any post-hoc shifting; their Offset fields
// count from the start of the interpolation's text, not the file.
func (p *Parser) parseEmbeddedExpr(span Span) *Node {
	sub := &Parser{file: p.file, includePositions: p.includePositions}
	sub.lexer = NewLexerAt(p.input[span.Start.Offset:span.End.Offset], p.file, span.Start.Line, span.Start.Column)
	sub.tokenize()
	return sub.parseExpression()
}

var blockRecover = []TokenKind{TokenRBrace}
var memberRecover = []TokenKind{TokenRBrace, TokenSemicolon}
var stmtRecover = []TokenKind{TokenSemicolon, TokenRBrace}

// ---------------------------------------------------------------------
// Compilation unit, package, imports
// ---------------------------------------------------------------------

func (p *Parser) parseCompilationUnit() *Node {
	node := p.startNode(KindCompilationUnit)

	if p.check(TokenPackage) || p.isAnnotatedPackage() {
		node.AddChild(p.parsePackageDecl())
	}

	for p.check(TokenImport) {
		node.AddChild(p.parseImportDecl())
	}

	for !p.check(TokenEOF) {
		progress := p.mustProgress()
		if p.check(TokenSemicolon) {
			p.advance()
			continue
		}
		if p.startsTypeDecl() {
			node.AddChild(p.parseTypeDecl())
		} else {
			node.AddChild(p.parseStatement())
		}
		progress()
	}

	return p.finishNode(node)
}

func (p *Parser) isAnnotatedPackage() bool {
	if !p.check(TokenAt) {
		return false
	}
	i := 1
	for p.peekN(i).Kind == TokenAt {
		i++
		if p.peekN(i).Kind == TokenIdent {
			i++
		}
		// skip a possible ( ... ) annotation argument list shallowly
		if p.peekN(i).Kind == TokenLParen {
			depth := 1
			i++
			for depth > 0 && p.peekN(i).Kind != TokenEOF {
				switch p.peekN(i).Kind {
				case TokenLParen:
					depth++
				case TokenRParen:
					depth--
				}
				i++
			}
		}
	}
	return p.peekN(i).Kind == TokenPackage
}

func (p *Parser) parsePackageDecl() *Node {
	node := p.startNode(KindPackageDecl)
	for p.check(TokenAt) {
		node.AddChild(p.parseAnnotation())
	}
	p.expect(TokenPackage)
	node.AddChild(p.parseDottedIdentifierList())
	p.skipStatementEnd()
	return p.finishNode(node)
}

func (p *Parser) parseImportDecl() *Node {
	node := p.startNode(KindImportDecl)
	p.advance() // import
	if p.check(TokenStatic) {
		static := p.startNode(KindIdentifier)
		p.advance()
		static.Token = &Token{Kind: TokenIdent, Literal: "static"}
		node.AddChild(p.finishNode(static))
	}

	name := p.startNode(KindQualifiedName)
	for {
		if tok := p.expectIdentifier(); tok != nil {
			id := &Node{Kind: KindIdentifier, Span: tok.Span, Token: tok}
			name.AddChild(id)
		} else {
			break
		}
		if p.check(TokenDot) && p.peekN(1).Kind == TokenStar {
			p.advance()
			p.advance()
			star := &Node{Kind: KindIdentifier, Span: p.tokens[p.pos-1].Span, Token: &Token{Kind: TokenIdent, Literal: "*"}}
			name.AddChild(star)
			break
		}
		if p.check(TokenDot) {
			p.advance()
			continue
		}
		break
	}
	node.AddChild(p.finishNode(name))

	if p.check(TokenAs) {
		p.advance()
		if tok := p.expectIdentifier(); tok != nil {
			alias := &Node{Kind: KindIdentifier, Span: tok.Span, Token: tok}
			node.AddChild(alias)
		}
	}
	p.skipStatementEnd()
	return p.finishNode(node)
}

// parseDottedIdentifierList parses a bare dotted name (used by package
// declarations) into a QualifiedName node whose Identifier children are
// the name's segments.
func (p *Parser) parseDottedIdentifierList() *Node {
	node := p.startNode(KindQualifiedName)
	for {
		tok := p.expectIdentifier()
		if tok == nil {
			break
		}
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
		if p.check(TokenDot) {
			p.advance()
			continue
		}
		break
	}
	return p.finishNode(node)
}

// skipStatementEnd consumes trailing semicolons if present. Groovy has no
// mandatory statement terminator; this parser does not track newlines, so
// a semicolon here is accepted but never required.
func (p *Parser) skipStatementEnd() {
	for p.check(TokenSemicolon) {
		p.advance()
	}
}

// ---------------------------------------------------------------------
// Type declarations
// ---------------------------------------------------------------------

func (p *Parser) startsTypeDecl() bool {
	i := 0
	for {
		switch p.peekN(i).Kind {
		case TokenAt:
			i++
			if p.peekN(i).Kind == TokenIdent {
				i++
			}
			if p.peekN(i).Kind == TokenLParen {
				depth := 1
				i++
				for depth > 0 && p.peekN(i).Kind != TokenEOF {
					switch p.peekN(i).Kind {
					case TokenLParen:
						depth++
					case TokenRParen:
						depth--
					}
					i++
				}
			}
			continue
		case TokenPublic, TokenPrivate, TokenProtected, TokenStatic, TokenFinal,
			TokenAbstract, TokenStrictfp, TokenNative, TokenSynchronized, TokenTransient, TokenVolatile:
			i++
			continue
		}
		break
	}
	switch p.peekN(i).Kind {
	case TokenClass, TokenInterface, TokenTrait, TokenEnum:
		return true
	case TokenIdent:
		return p.peekN(i).Literal == "record" && p.peekN(i+1).Kind == TokenIdent
	}
	return false
}

func (p *Parser) parseTypeDecl() *Node {
	modifiers := p.parseModifiersAndAnnotations()

	switch {
	case p.check(TokenClass):
		return p.parseClassLike(KindClassDecl, modifiers)
	case p.check(TokenInterface):
		return p.parseClassLike(KindInterfaceDecl, modifiers)
	case p.check(TokenTrait):
		return p.parseClassLike(KindTraitDecl, modifiers)
	case p.check(TokenEnum):
		return p.parseEnumDecl(modifiers)
	case p.check(TokenIdent) && p.peek().Literal == "record":
		return p.parseRecordDecl(modifiers)
	}
	return p.errorNode("expected a type declaration", stmtRecover, TokenClass, TokenInterface, TokenTrait, TokenEnum)
}

func (p *Parser) parseModifiersAndAnnotations() *Node {
	node := &Node{Kind: KindModifiers}
	node.Span.Start = p.peek().Span.Start
	for {
		if p.check(TokenAt) {
			node.AddChild(p.parseAnnotation())
			continue
		}
		switch p.peek().Kind {
		case TokenPublic, TokenPrivate, TokenProtected, TokenStatic, TokenFinal,
			TokenAbstract, TokenStrictfp, TokenNative, TokenSynchronized, TokenTransient, TokenVolatile:
			tok := p.advance()
			node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: &tok})
			continue
		}
		break
	}
	return p.finishNode(node)
}

func (p *Parser) parseAnnotation() *Node {
	node := p.startNode(KindAnnotation)
	p.advance() // @
	if tok := p.expectIdentifier(); tok != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
	}
	if p.check(TokenLParen) {
		p.advance()
		for !p.check(TokenRParen) && !p.check(TokenEOF) {
			progress := p.mustProgress()
			node.AddChild(p.parseAnnotationElement())
			if p.check(TokenComma) {
				p.advance()
			}
			progress()
		}
		p.expect(TokenRParen)
	}
	return p.finishNode(node)
}

func (p *Parser) parseAnnotationElement() *Node {
	node := p.startNode(KindAnnotationElement)
	if p.check(TokenIdent) && p.peekN(1).Kind == TokenAssign {
		tok := p.advance()
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: &tok})
		p.advance() // =
	}
	node.AddChild(p.parseExpression())
	return p.finishNode(node)
}

func (p *Parser) parseClassLike(kind NodeKind, modifiers *Node) *Node {
	node := p.startNode(kind)
	node.AddChild(modifiers)
	p.advance() // class/interface/trait
	if tok := p.expectIdentifier(); tok != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
	}
	p.skipGenericParams()
	if p.check(TokenExtends) {
		node.AddChild(p.parseExtendsClause())
	}
	if p.check(TokenImplements) {
		node.AddChild(p.parseImplementsClause())
	}
	node.AddChild(p.parseClassBody())
	return p.finishNode(node)
}

func (p *Parser) parseEnumDecl(modifiers *Node) *Node {
	node := p.startNode(KindEnumDecl)
	node.AddChild(modifiers)
	p.advance() // enum
	if tok := p.expectIdentifier(); tok != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
	}
	if p.check(TokenImplements) {
		node.AddChild(p.parseImplementsClause())
	}
	if !p.expectToken(TokenLBrace, memberRecover) {
		return p.finishNode(node)
	}
	for p.check(TokenIdent) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		node.AddChild(p.parseEnumConstant())
		if p.check(TokenComma) {
			p.advance()
			continue
		}
		progress()
		break
	}
	if p.check(TokenSemicolon) {
		p.advance()
		for !p.check(TokenRBrace) && !p.check(TokenEOF) {
			progress := p.mustProgress()
			node.AddChild(p.parseClassMember())
			progress()
		}
	}
	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) parseEnumConstant() *Node {
	node := p.startNode(KindEnumConstant)
	if tok := p.expectIdentifier(); tok != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
	}
	if p.check(TokenLParen) {
		node.AddChild(p.parseArgumentList())
	}
	return p.finishNode(node)
}

func (p *Parser) parseRecordDecl(modifiers *Node) *Node {
	node := p.startNode(KindRecordDecl)
	node.AddChild(modifiers)
	p.advance() // record
	if tok := p.expectIdentifier(); tok != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
	}
	if p.check(TokenLParen) {
		node.AddChild(p.parseParameters())
	}
	if p.check(TokenImplements) {
		node.AddChild(p.parseImplementsClause())
	}
	node.AddChild(p.parseClassBody())
	return p.finishNode(node)
}

func (p *Parser) parseExtendsClause() *Node {
	node := p.startNode(KindExtendsClause)
	p.advance() // extends
	for {
		node.AddChild(p.parseTypeRef())
		if p.check(TokenComma) {
			p.advance()
			continue
		}
		break
	}
	return p.finishNode(node)
}

func (p *Parser) parseImplementsClause() *Node {
	node := p.startNode(KindImplementsClause)
	p.advance() // implements
	for {
		node.AddChild(p.parseTypeRef())
		if p.check(TokenComma) {
			p.advance()
			continue
		}
		break
	}
	return p.finishNode(node)
}

// skipGenericParams consumes a balanced <...> generic parameter/argument
// list without building a node for it: type parameter bounds play no part
// in name resolution or closure semantics, the two things this grammar
// exists to get right.
func (p *Parser) skipGenericParams() {
	if !p.check(TokenLT) {
		return
	}
	depth := 0
	for !p.check(TokenEOF) {
		switch p.peek().Kind {
		case TokenLT:
			depth++
		case TokenGT:
			depth--
		case TokenShr:
			depth -= 2
		case TokenUShr:
			depth -= 3
		}
		p.advance()
		if depth <= 0 {
			return
		}
	}
}

func (p *Parser) parseClassBody() *Node {
	node := p.startNode(KindBlock)
	if !p.expectToken(TokenLBrace, memberRecover) {
		return p.finishNode(node)
	}
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		if p.check(TokenSemicolon) {
			p.advance()
			continue
		}
		node.AddChild(p.parseClassMember())
		progress()
	}
	p.expect(TokenRBrace)
	return p.finishNode(node)
}

// expectToken is like expect but, on a miss, runs errorNode's recovery
// toward recoverTo; the error node itself is discarded, so callers that
// need the result just check the boolean.
func (p *Parser) expectToken(kind TokenKind, recoverTo []TokenKind) bool {
	if p.expect(kind) != nil {
		return true
	}
	p.errorNode("unexpected token", recoverTo, kind)
	return false
}

// ---------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------

func (p *Parser) parseClassMember() *Node {
	if p.startsTypeDecl() {
		return p.parseTypeDecl()
	}

	if p.check(TokenLBrace) {
		// Instance/static initializer block.
		return p.parseBlock()
	}
	if p.check(TokenStatic) && p.peekN(1).Kind == TokenLBrace {
		p.advance()
		return p.parseBlock()
	}

	modifiers := p.parseModifiersAndAnnotations()

	if tok := p.maybeConstructorStart(modifiers); tok {
		return p.parseConstructorDecl(modifiers)
	}

	typeNode := p.parseDeclType()

	nameTok := p.expectIdentifier()
	if nameTok == nil {
		return p.errorNode("expected a member name", memberRecover)
	}
	name := &Node{Kind: KindIdentifier, Span: nameTok.Span, Token: nameTok}

	if p.check(TokenLParen) {
		return p.parseMethodDecl(modifiers, typeNode, name)
	}
	return p.parseFieldDecl(modifiers, typeNode, name)
}

// maybeConstructorStart reports whether the upcoming identifier is a
// constructor (its name, followed by '(', with no type preceding it).
func (p *Parser) maybeConstructorStart(modifiers *Node) bool {
	return p.check(TokenIdent) && p.peekN(1).Kind == TokenLParen
}

func (p *Parser) parseConstructorDecl(modifiers *Node) *Node {
	node := p.startNode(KindConstructorDecl)
	node.AddChild(modifiers)
	tok := p.advance()
	node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: &tok})
	node.AddChild(p.parseParameters())
	if p.check(TokenThrows) {
		node.AddChild(p.parseThrowsList())
	}
	node.AddChild(p.parseBlock())
	return p.finishNode(node)
}

func (p *Parser) parseThrowsList() *Node {
	node := p.startNode(KindThrowsList)
	p.advance() // throws
	for {
		node.AddChild(p.parseTypeRef())
		if p.check(TokenComma) {
			p.advance()
			continue
		}
		break
	}
	return p.finishNode(node)
}

// parseDeclType parses the type position of a field/method/local var/
// parameter declaration: either Groovy's untyped "def" or a concrete type
// reference.
func (p *Parser) parseDeclType() *Node {
	if p.check(TokenDef) {
		tok := p.advance()
		return &Node{Kind: KindDefDecl, Span: tok.Span, Token: &tok}
	}
	if p.isDeclTypeAhead() {
		node := p.startNode(KindType)
		node.AddChild(p.parseTypeRef())
		return p.finishNode(node)
	}
	return nil
}

// isDeclTypeAhead reports whether the current position looks like a type
// reference rather than a bare name (the case where a member/variable is
// declared with no explicit type, e.g. a Groovy property written without
// "def": "String name" has a type, "name" alone does not. The latter form
// is only legal as an expression statement, never as a declaration, so
// callers that got false here fall back to parseFieldDecl with typeNode
// nil, which getters downstream interpret as an implicit "def").
func (p *Parser) isDeclTypeAhead() bool {
	switch p.peek().Kind {
	case TokenBoolean, TokenByte, TokenChar, TokenShort, TokenInt, TokenLong, TokenFloat, TokenDouble, TokenVoid:
		return true
	case TokenIdent:
		i := 1
		for p.peekN(i).Kind == TokenDot && p.peekN(i+1).Kind == TokenIdent {
			i += 2
		}
		if p.peekN(i).Kind == TokenLT {
			depth := 0
			for p.peekN(i).Kind != TokenEOF {
				switch p.peekN(i).Kind {
				case TokenLT:
					depth++
				case TokenGT:
					depth--
				case TokenShr:
					depth -= 2
				}
				i++
				if depth <= 0 {
					break
				}
			}
		}
		for p.peekN(i).Kind == TokenLBracket && p.peekN(i+1).Kind == TokenRBracket {
			i += 2
		}
		return p.peekN(i).Kind == TokenIdent
	}
	return false
}

func (p *Parser) parseMethodDecl(modifiers, typeNode, name *Node) *Node {
	node := p.startNode(KindMethodDecl)
	node.Span.Start = modifiers.Span.Start
	node.AddChild(modifiers)
	if typeNode != nil {
		node.AddChild(typeNode)
	}
	node.AddChild(name)
	node.AddChild(p.parseParameters())
	if p.check(TokenThrows) {
		node.AddChild(p.parseThrowsList())
	}
	if p.check(TokenLBrace) {
		node.AddChild(p.parseBlock())
	} else {
		p.skipStatementEnd()
	}
	return p.finishNode(node)
}

func (p *Parser) parseFieldDecl(modifiers, typeNode, name *Node) *Node {
	node := p.startNode(KindFieldDecl)
	node.Span.Start = modifiers.Span.Start
	node.AddChild(modifiers)
	if typeNode != nil {
		node.AddChild(typeNode)
	}
	node.AddChild(name)
	if p.check(TokenAssign) {
		p.advance()
		node.AddChild(p.parseExpression())
	}
	for p.check(TokenComma) {
		p.advance()
		if extra := p.expectIdentifier(); extra != nil {
			node.AddChild(&Node{Kind: KindIdentifier, Span: extra.Span, Token: extra})
			if p.check(TokenAssign) {
				p.advance()
				node.AddChild(p.parseExpression())
			}
		}
	}
	p.skipStatementEnd()
	return p.finishNode(node)
}

func (p *Parser) parseParameters() *Node {
	node := p.startNode(KindParameters)
	p.expect(TokenLParen)
	for !p.check(TokenRParen) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		node.AddChild(p.parseParameter())
		if p.check(TokenComma) {
			p.advance()
		}
		progress()
	}
	p.expect(TokenRParen)
	return p.finishNode(node)
}

func (p *Parser) parseParameter() *Node {
	node := p.startNode(KindParameter)
	for p.check(TokenAt) {
		node.AddChild(p.parseAnnotation())
	}
	if p.check(TokenFinal) {
		tok := p.advance()
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: &tok})
	}
	if typeNode := p.parseDeclType(); typeNode != nil {
		node.AddChild(typeNode)
	}
	// Varargs: "Type... name". The lexer scans ".." greedily as a single
	// Range token, so "..." surfaces here as Range followed by Dot.
	if p.check(TokenRange) && p.peekN(1).Kind == TokenDot {
		p.advance()
		p.advance()
	}
	if tok := p.expectIdentifier(); tok != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
	}
	if p.check(TokenAssign) {
		p.advance()
		node.AddChild(p.parseExpression())
	}
	return p.finishNode(node)
}

// ---------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------

func (p *Parser) parseTypeRef() *Node {
	if p.isPrimitiveType() {
		tok := p.advance()
		node := &Node{Kind: KindType, Span: tok.Span, Token: &tok}
		return p.wrapArrayDims(node)
	}
	node := p.startNode(KindQualifiedName)
	for {
		tok := p.expectIdentifier()
		if tok == nil {
			break
		}
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
		if p.check(TokenDot) && p.peekN(1).Kind == TokenIdent {
			p.advance()
			continue
		}
		break
	}
	p.skipGenericParams()
	result := p.finishNode(node)
	return p.wrapArrayDims(result)
}

func (p *Parser) wrapArrayDims(inner *Node) *Node {
	for p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket {
		arr := &Node{Kind: KindArrayType, Span: inner.Span}
		arr.AddChild(inner)
		p.advance()
		p.advance()
		arr.Span.End = p.tokens[p.pos-1].Span.End
		inner = arr
	}
	return inner
}

func (p *Parser) isPrimitiveType() bool {
	switch p.peek().Kind {
	case TokenBoolean, TokenByte, TokenChar, TokenShort, TokenInt, TokenLong, TokenFloat, TokenDouble, TokenVoid:
		return true
	}
	return false
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

func (p *Parser) parseBlock() *Node {
	node := p.startNode(KindBlock)
	if !p.expectToken(TokenLBrace, blockRecover) {
		return p.finishNode(node)
	}
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		if p.check(TokenSemicolon) {
			p.advance()
			continue
		}
		node.AddChild(p.parseStatement())
		progress()
	}
	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) parseStatement() *Node {
	switch p.peek().Kind {
	case TokenLBrace:
		return p.parseBlock()
	case TokenIf:
		return p.parseIfStmt()
	case TokenFor:
		return p.parseForStmt()
	case TokenWhile:
		return p.parseWhileStmt()
	case TokenDo:
		return p.parseDoWhileStmt()
	case TokenSwitch:
		return p.parseSwitchStmt()
	case TokenReturn:
		return p.parseReturnStmt()
	case TokenBreak:
		return p.parseBreakStmt()
	case TokenContinue:
		return p.parseContinueStmt()
	case TokenThrow:
		return p.parseThrowStmt()
	case TokenTry:
		return p.parseTryStmt()
	case TokenSynchronized:
		return p.parseSynchronizedStmt()
	case TokenAssert:
		return p.parseAssertStmt()
	case TokenSemicolon:
		node := p.startNode(KindEmptyStmt)
		p.advance()
		return p.finishNode(node)
	}

	if p.startsTypeDecl() {
		return p.parseTypeDecl()
	}

	if p.check(TokenIdent) && p.peekN(1).Kind == TokenColon {
		return p.parseLabeledStmt()
	}

	if p.startsLocalVarDecl() {
		return p.parseLocalVarDecl()
	}

	return p.parseExprStmt()
}

func (p *Parser) parseLabeledStmt() *Node {
	node := p.startNode(KindLabeledStmt)
	tok := p.advance()
	node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: &tok})
	p.advance() // :
	node.AddChild(p.parseStatement())
	return p.finishNode(node)
}

// startsLocalVarDecl distinguishes "def x = 1" / "String s = ..." / "int i"
// from a bare expression statement: a local declares a variable only when
// the type position is followed by an identifier, not an operator.
func (p *Parser) startsLocalVarDecl() bool {
	if p.check(TokenDef) {
		return true
	}
	if p.check(TokenFinal) {
		return true
	}
	return p.isDeclTypeAhead()
}

func (p *Parser) parseLocalVarDecl() *Node {
	node := p.startNode(KindLocalVarDecl)
	if p.check(TokenFinal) {
		p.advance()
	}
	if typeNode := p.parseDeclType(); typeNode != nil {
		node.AddChild(typeNode)
	}
	for {
		tok := p.expectIdentifier()
		if tok == nil {
			break
		}
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
		if p.check(TokenAssign) {
			p.advance()
			node.AddChild(p.parseExpression())
		}
		if p.check(TokenComma) {
			p.advance()
			continue
		}
		break
	}
	p.skipStatementEnd()
	return p.finishNode(node)
}

func (p *Parser) parseExprStmt() *Node {
	node := p.startNode(KindExprStmt)
	node.AddChild(p.parseExpression())
	p.skipStatementEnd()
	return p.finishNode(node)
}

func (p *Parser) parseIfStmt() *Node {
	node := p.startNode(KindIfStmt)
	p.advance() // if
	p.expect(TokenLParen)
	node.AddChild(p.parseExpression())
	p.expect(TokenRParen)
	node.AddChild(p.parseStatement())
	if p.check(TokenElse) {
		p.advance()
		node.AddChild(p.parseStatement())
	}
	return p.finishNode(node)
}

func (p *Parser) parseForStmt() *Node {
	start := p.peek().Span.Start
	p.advance() // for
	p.expect(TokenLParen)

	if p.looksLikeForIn() {
		node := &Node{Kind: KindForInClause, Span: Span{Start: start}}
		if typeNode := p.parseDeclType(); typeNode != nil {
			node.AddChild(typeNode)
		}
		if tok := p.expectIdentifier(); tok != nil {
			node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
		}
		if p.check(TokenIn) {
			p.advance()
		} else if p.check(TokenColon) {
			p.advance()
		}
		node.AddChild(p.parseExpression())
		p.expect(TokenRParen)
		node.AddChild(p.parseStatement())
		return p.finishNode(node)
	}

	node := &Node{Kind: KindForStmt, Span: Span{Start: start}}
	init := p.startNode(KindBlock)
	if !p.check(TokenSemicolon) {
		if p.startsLocalVarDecl() {
			init.AddChild(p.parseLocalVarDecl())
		} else {
			init.AddChild(p.parseExpression())
			p.skipStatementEnd()
		}
	} else {
		p.advance()
	}
	node.AddChild(p.finishNode(init))

	if !p.check(TokenSemicolon) {
		node.AddChild(p.parseExpression())
	} else {
		node.AddChild(&Node{Kind: KindEmptyStmt})
	}
	p.expect(TokenSemicolon)

	update := p.startNode(KindBlock)
	for !p.check(TokenRParen) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		update.AddChild(p.parseExpression())
		if p.check(TokenComma) {
			p.advance()
		}
		progress()
	}
	node.AddChild(p.finishNode(update))
	p.expect(TokenRParen)
	node.AddChild(p.parseStatement())
	return p.finishNode(node)
}

// looksLikeForIn scans ahead from "for (" for an "in" or ":" at nesting
// depth 0 before a ';' or the matching ")" (giving up after 64 tokens),
// distinguishing Groovy's for-in loop from the classic C-style three-clause form.
func (p *Parser) looksLikeForIn() bool {
	i := 0
	depth := 0
	for {
		switch p.peekN(i).Kind {
		case TokenEOF, TokenSemicolon:
			return false
		case TokenLParen, TokenLBracket, TokenLBrace:
			depth++
		case TokenRParen:
			if depth == 0 {
				return false
			}
			depth--
		case TokenRBracket, TokenRBrace:
			depth--
		case TokenIn:
			if depth == 0 {
				return true
			}
		case TokenColon:
			if depth == 0 {
				return true
			}
		}
		i++
		if i > 64 {
			return false
		}
	}
}

func (p *Parser) parseWhileStmt() *Node {
	node := p.startNode(KindWhileStmt)
	p.advance() // while
	p.expect(TokenLParen)
	node.AddChild(p.parseExpression())
	p.expect(TokenRParen)
	node.AddChild(p.parseStatement())
	return p.finishNode(node)
}

func (p *Parser) parseDoWhileStmt() *Node {
	node := p.startNode(KindWhileStmt)
	p.advance() // do
	node.AddChild(p.parseStatement())
	p.expect(TokenWhile)
	p.expect(TokenLParen)
	node.AddChild(p.parseExpression())
	p.expect(TokenRParen)
	p.skipStatementEnd()
	return p.finishNode(node)
}

func (p *Parser) parseSwitchStmt() *Node {
	node := p.startNode(KindSwitchStmt)
	p.advance() // switch
	p.expect(TokenLParen)
	node.AddChild(p.parseExpression())
	p.expect(TokenRParen)
	p.expect(TokenLBrace)
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		node.AddChild(p.parseSwitchCase())
		progress()
	}
	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) parseSwitchCase() *Node {
	node := p.startNode(KindSwitchCase)
	if p.check(TokenCase) {
		p.advance()
		node.AddChild(p.parseExpression())
	} else {
		p.expect(TokenDefault)
	}
	p.expect(TokenColon)
	for !p.check(TokenCase) && !p.check(TokenDefault) && !p.check(TokenRBrace) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		node.AddChild(p.parseStatement())
		progress()
	}
	return p.finishNode(node)
}

func (p *Parser) parseReturnStmt() *Node {
	node := p.startNode(KindReturnStmt)
	p.advance() // return
	if !p.check(TokenSemicolon) && !p.check(TokenRBrace) && !p.check(TokenEOF) {
		node.AddChild(p.parseExpression())
	}
	p.skipStatementEnd()
	return p.finishNode(node)
}

func (p *Parser) parseBreakStmt() *Node {
	node := p.startNode(KindBreakStmt)
	p.advance()
	if tok := p.expectIdentifier(); tok != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
	}
	p.skipStatementEnd()
	return p.finishNode(node)
}

func (p *Parser) parseContinueStmt() *Node {
	node := p.startNode(KindContinueStmt)
	p.advance()
	if tok := p.expectIdentifier(); tok != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
	}
	p.skipStatementEnd()
	return p.finishNode(node)
}

func (p *Parser) parseThrowStmt() *Node {
	node := p.startNode(KindThrowStmt)
	p.advance()
	node.AddChild(p.parseExpression())
	p.skipStatementEnd()
	return p.finishNode(node)
}

func (p *Parser) parseAssertStmt() *Node {
	node := p.startNode(KindAssertStmt)
	p.advance()
	node.AddChild(p.parseExpression())
	if p.check(TokenColon) {
		p.advance()
		node.AddChild(p.parseExpression())
	}
	p.skipStatementEnd()
	return p.finishNode(node)
}

func (p *Parser) parseSynchronizedStmt() *Node {
	node := p.startNode(KindSynchronizedStmt)
	p.advance()
	p.expect(TokenLParen)
	node.AddChild(p.parseExpression())
	p.expect(TokenRParen)
	node.AddChild(p.parseBlock())
	return p.finishNode(node)
}

func (p *Parser) parseTryStmt() *Node {
	node := p.startNode(KindTryStmt)
	p.advance() // try
	if p.check(TokenLParen) {
		p.advance()
		res := p.startNode(KindBlock)
		for !p.check(TokenRParen) && !p.check(TokenEOF) {
			progress := p.mustProgress()
			res.AddChild(p.parseLocalVarDecl())
			if p.check(TokenSemicolon) {
				p.advance()
			}
			progress()
		}
		node.AddChild(p.finishNode(res))
		p.expect(TokenRParen)
	}
	node.AddChild(p.parseBlock())
	for p.check(TokenCatch) {
		node.AddChild(p.parseCatchClause())
	}
	if p.check(TokenFinally) {
		p.advance()
		fin := p.startNode(KindFinallyClause)
		fin.AddChild(p.parseBlock())
		node.AddChild(p.finishNode(fin))
	}
	return p.finishNode(node)
}

func (p *Parser) parseCatchClause() *Node {
	node := p.startNode(KindCatchClause)
	p.advance() // catch
	p.expect(TokenLParen)
	if p.check(TokenFinal) {
		p.advance()
	}
	if typeNode := p.parseDeclType(); typeNode != nil {
		node.AddChild(typeNode)
	}
	for p.check(TokenBitOr) {
		p.advance()
		node.AddChild(p.parseTypeRef())
	}
	if tok := p.expectIdentifier(); tok != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
	}
	p.expect(TokenRParen)
	node.AddChild(p.parseBlock())
	return p.finishNode(node)
}

// ---------------------------------------------------------------------
// Expressions: precedence climbing, lowest to highest
// ---------------------------------------------------------------------

func (p *Parser) parseExpression() *Node {
	return p.parseAssignment()
}

var assignOps = []TokenKind{
	TokenAssign, TokenPlusAssign, TokenMinusAssign, TokenStarAssign, TokenSlashAssign,
	TokenPercentAssign, TokenPowerAssign, TokenAndAssign, TokenOrAssign, TokenXorAssign,
	TokenShlAssign, TokenShrAssign, TokenUShrAssign,
}

func (p *Parser) parseAssignment() *Node {
	left := p.parseElvisOrTernary()
	if p.match(assignOps...) {
		op := p.advance()
		node := &Node{Kind: KindAssignExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseAssignment())
		return p.finishNode(node)
	}
	return left
}

func (p *Parser) parseElvisOrTernary() *Node {
	cond := p.parseRange()
	if p.check(TokenElvis) {
		op := p.advance()
		node := &Node{Kind: KindElvisExpr, Span: cond.Span, Token: &op}
		node.AddChild(cond)
		node.AddChild(p.parseElvisOrTernary())
		return p.finishNode(node)
	}
	if p.check(TokenQuestion) {
		p.advance()
		node := &Node{Kind: KindTernaryExpr, Span: cond.Span}
		node.AddChild(cond)
		node.AddChild(p.parseAssignment())
		p.expect(TokenColon)
		node.AddChild(p.parseAssignment())
		return p.finishNode(node)
	}
	return cond
}

func (p *Parser) parseRange() *Node {
	left := p.parseLogicalOr()
	if p.check(TokenRange) || p.check(TokenRangeExcl) {
		op := p.advance()
		node := &Node{Kind: KindRangeExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseLogicalOr())
		return p.finishNode(node)
	}
	return left
}

func (p *Parser) parseLogicalOr() *Node {
	left := p.parseLogicalAnd()
	for p.check(TokenOr) {
		op := p.advance()
		node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseLogicalAnd())
		left = p.finishNode(node)
	}
	return left
}

func (p *Parser) parseLogicalAnd() *Node {
	left := p.parseBitOr()
	for p.check(TokenAnd) {
		op := p.advance()
		node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseBitOr())
		left = p.finishNode(node)
	}
	return left
}

func (p *Parser) parseBitOr() *Node {
	left := p.parseBitXor()
	for p.check(TokenBitOr) {
		op := p.advance()
		node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseBitXor())
		left = p.finishNode(node)
	}
	return left
}

func (p *Parser) parseBitXor() *Node {
	left := p.parseBitAnd()
	for p.check(TokenBitXor) {
		op := p.advance()
		node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseBitAnd())
		left = p.finishNode(node)
	}
	return left
}

func (p *Parser) parseBitAnd() *Node {
	left := p.parseEquality()
	for p.check(TokenBitAnd) {
		op := p.advance()
		node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseEquality())
		left = p.finishNode(node)
	}
	return left
}

var equalityOps = []TokenKind{TokenEQ, TokenNE, TokenSpaceship, TokenFind, TokenMatch}

func (p *Parser) parseEquality() *Node {
	left := p.parseRelational()
	for p.match(equalityOps...) {
		op := p.advance()
		node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseRelational())
		left = p.finishNode(node)
	}
	return left
}

func (p *Parser) parseRelational() *Node {
	left := p.parseShift()
	for {
		switch {
		case p.match(TokenLT, TokenLE, TokenGT, TokenGE):
			op := p.advance()
			node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
			node.AddChild(left)
			node.AddChild(p.parseShift())
			left = p.finishNode(node)
		case p.check(TokenInstanceof):
			p.advance()
			node := &Node{Kind: KindInstanceofExpr, Span: left.Span}
			node.AddChild(left)
			node.AddChild(p.parseTypeRef())
			left = p.finishNode(node)
		case p.check(TokenAs):
			p.advance()
			node := &Node{Kind: KindAsExpr, Span: left.Span}
			node.AddChild(left)
			node.AddChild(p.parseTypeRef())
			left = p.finishNode(node)
		default:
			return left
		}
	}
}

func (p *Parser) parseShift() *Node {
	left := p.parseAdditive()
	for p.match(TokenShl, TokenShr, TokenUShr) {
		op := p.advance()
		node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseAdditive())
		left = p.finishNode(node)
	}
	return left
}

func (p *Parser) parseAdditive() *Node {
	left := p.parseMultiplicative()
	for p.match(TokenPlus, TokenMinus) {
		op := p.advance()
		node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseMultiplicative())
		left = p.finishNode(node)
	}
	return left
}

func (p *Parser) parseMultiplicative() *Node {
	left := p.parsePower()
	for p.match(TokenStar, TokenSlash, TokenPercent) {
		op := p.advance()
		node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parsePower())
		left = p.finishNode(node)
	}
	return left
}

func (p *Parser) parsePower() *Node {
	left := p.parseUnary()
	if p.check(TokenPower) {
		op := p.advance()
		node := &Node{Kind: KindBinaryExpr, Span: left.Span, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parsePower())
		return p.finishNode(node)
	}
	return left
}

func (p *Parser) parseUnary() *Node {
	if p.match(TokenPlus, TokenMinus, TokenNot, TokenBitNot, TokenIncrement, TokenDecrement) {
		op := p.advance()
		node := &Node{Kind: KindUnaryExpr, Span: op.Span, Token: &op}
		node.AddChild(p.parseUnary())
		return p.finishNode(node)
	}
	if p.check(TokenLParen) && p.looksLikeCast() {
		start := p.peek().Span.Start
		p.advance()
		typeNode := p.parseTypeRef()
		p.expect(TokenRParen)
		node := &Node{Kind: KindAsExpr, Span: Span{Start: start}}
		node.AddChild(p.parseUnary())
		node.AddChild(typeNode)
		return p.finishNode(node)
	}
	return p.parsePostfix()
}

// looksLikeCast distinguishes "(Type) expr" from a parenthesized
// expression: a primitive type, or a single/dotted identifier immediately
// followed by ')' and then something that can start an expression.
func (p *Parser) looksLikeCast() bool {
	i := 1
	switch p.peekN(i).Kind {
	case TokenBoolean, TokenByte, TokenChar, TokenShort, TokenInt, TokenLong, TokenFloat, TokenDouble:
	case TokenIdent:
		i++
		for p.peekN(i-1).Kind == TokenIdent && p.peekN(i).Kind == TokenDot && p.peekN(i+1).Kind == TokenIdent {
			i += 2
		}
	default:
		return false
	}
	if p.peekN(i).Kind != TokenRParen {
		return false
	}
	switch p.peekN(i + 1).Kind {
	case TokenIdent, TokenIntLiteral, TokenFloatLiteral, TokenStringLiteral, TokenGString, TokenGStringBlock,
		TokenLParen, TokenThis, TokenSuper, TokenNew, TokenTrue, TokenFalse, TokenNull:
		return true
	}
	return false
}

func (p *Parser) parsePostfix() *Node {
	node := p.parsePrimary()
	for {
		switch {
		case p.check(TokenDot) && p.peekN(1).Kind == TokenBitAnd:
			p.advance()
			p.advance()
			ref := &Node{Kind: KindMethodRef, Span: node.Span}
			ref.AddChild(node)
			if tok := p.expectIdentifier(); tok != nil {
				ref.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
			}
			node = p.finishNode(ref)
		case p.check(TokenDot):
			p.advance()
			node = p.parseMemberAccess(node, KindFieldAccess)
		case p.check(TokenSafeDot):
			p.advance()
			node = p.parseMemberAccess(node, KindSafeFieldAccess)
		case p.check(TokenSpread):
			p.advance()
			node = p.parseMemberAccess(node, KindSpreadExpr)
		case p.check(TokenLBracket):
			p.advance()
			idx := &Node{Kind: KindIndexExpr, Span: node.Span}
			idx.AddChild(node)
			idx.AddChild(p.parseExpression())
			p.expect(TokenRBracket)
			node = p.finishNode(idx)
		case p.check(TokenLParen):
			call := &Node{Kind: KindCallExpr, Span: node.Span}
			call.AddChild(node)
			call.AddChild(p.parseArgumentList())
			if p.check(TokenLBrace) {
				call.Children = append(call.Children, p.parseClosure())
			}
			node = p.finishNode(call)
		case p.check(TokenLBrace) && p.canTakeTrailingClosure(node):
			call := &Node{Kind: KindCallExpr, Span: node.Span}
			call.AddChild(node)
			args := &Node{Kind: KindParameters}
			call.AddChild(p.finishNode(args))
			call.Children = append(call.Children, p.parseClosure())
			node = p.finishNode(call)
		case p.match(TokenIncrement, TokenDecrement):
			op := p.advance()
			post := &Node{Kind: KindPostfixExpr, Span: node.Span, Token: &op}
			post.AddChild(node)
			node = p.finishNode(post)
		default:
			return node
		}
	}
}

// canTakeTrailingClosure permits Groovy's parens-optional call-with-closure
// idiom ("list.each { ... }") only when node is itself a plausible callee
// (an identifier or a member access), not an arbitrary expression.
func (p *Parser) canTakeTrailingClosure(node *Node) bool {
	switch node.Kind {
	case KindIdentifier, KindFieldAccess, KindSafeFieldAccess, KindQualifiedName:
		return true
	}
	return false
}

func (p *Parser) parseMemberAccess(receiver *Node, kind NodeKind) *Node {
	node := &Node{Kind: kind, Span: receiver.Span}
	node.AddChild(receiver)
	if tok := p.expectIdentifier(); tok != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: tok})
	} else if p.check(TokenClass) {
		tok := p.advance()
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: &Token{Kind: TokenIdent, Literal: "class"}})
	}
	return p.finishNode(node)
}

func (p *Parser) parseArgumentList() *Node {
	node := p.startNode(KindParameters)
	p.expect(TokenLParen)
	for !p.check(TokenRParen) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		node.AddChild(p.parseArgument())
		if p.check(TokenComma) {
			p.advance()
		}
		progress()
	}
	p.expect(TokenRParen)
	return p.finishNode(node)
}

func (p *Parser) parseArgument() *Node {
	if p.check(TokenStar) {
		start := p.peek().Span.Start
		p.advance()
		node := &Node{Kind: KindSpreadArg, Span: Span{Start: start}}
		node.AddChild(p.parseExpression())
		return p.finishNode(node)
	}
	// Named-argument map-literal shorthand: foo(name: "x", age: 1)
	if p.check(TokenIdent) && p.peekN(1).Kind == TokenColon {
		entry := p.startNode(KindMapEntry)
		tok := p.advance()
		entry.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: &tok})
		p.advance() // :
		entry.AddChild(p.parseExpression())
		return p.finishNode(entry)
	}
	return p.parseExpression()
}

func (p *Parser) parsePrimary() *Node {
	tok := p.peek()
	switch tok.Kind {
	case TokenThis:
		p.advance()
		return &Node{Kind: KindThis, Span: tok.Span, Token: &tok}
	case TokenSuper:
		p.advance()
		return &Node{Kind: KindSuper, Span: tok.Span, Token: &tok}
	case TokenTrue, TokenFalse, TokenNull, TokenIntLiteral, TokenFloatLiteral:
		p.advance()
		return &Node{Kind: KindLiteral, Span: tok.Span, Token: &tok}
	case TokenStringLiteral:
		p.advance()
		return &Node{Kind: KindLiteral, Span: tok.Span, Token: &tok}
	case TokenGString, TokenGStringBlock:
		p.advance()
		return p.buildGStringNode(tok)
	case TokenBitAnd:
		p.advance()
		node := &Node{Kind: KindMethodRef, Span: tok.Span}
		if id := p.expectIdentifier(); id != nil {
			node.AddChild(&Node{Kind: KindIdentifier, Span: id.Span, Token: id})
		}
		return p.finishNode(node)
	case TokenLParen:
		p.advance()
		inner := p.parseExpression()
		p.expect(TokenRParen)
		node := &Node{Kind: KindParenExpr, Span: tok.Span}
		node.AddChild(inner)
		return p.finishNode(node)
	case TokenLBracket:
		return p.parseListOrMapLiteral()
	case TokenLBrace:
		return p.parseClosure()
	case TokenNew:
		return p.parseNewExpr()
	case TokenIdent:
		return p.parseIdentifierOrQualifiedName()
	case TokenBoolean, TokenByte, TokenChar, TokenShort, TokenInt, TokenLong, TokenFloat, TokenDouble, TokenVoid:
		// Only valid here as the receiver of a class literal: int.class
		typeTok := p.advance()
		typeNode := &Node{Kind: KindLiteral, Span: typeTok.Span, Token: &typeTok}
		if p.check(TokenDot) && p.peekN(1).Kind == TokenClass {
			p.advance()
			p.advance()
			lit := &Node{Kind: KindClassLiteral, Span: typeTok.Span}
			lit.AddChild(typeNode)
			return p.finishNode(lit)
		}
		return typeNode
	}

	return p.errorNode("expected an expression", stmtRecover)
}

// parseIdentifierOrQualifiedName parses a leading identifier, optionally
// chaining further ".ident" segments into a single QualifiedName node as
// long as every following token is also a bare identifier separated by a
// dot; the instant something else shows up (a call, an index, "class")
// parsePostfix's own loop takes over and builds the richer node instead.
func (p *Parser) parseIdentifierOrQualifiedName() *Node {
	tok := p.advance()
	first := &Node{Kind: KindIdentifier, Span: tok.Span, Token: &tok}
	if !(p.check(TokenDot) && p.peekN(1).Kind == TokenIdent && p.dottedChainContinues()) {
		return first
	}
	qn := &Node{Kind: KindQualifiedName, Span: tok.Span}
	qn.AddChild(first)
	for p.check(TokenDot) && p.peekN(1).Kind == TokenIdent {
		p.advance()
		idTok := p.advance()
		qn.AddChild(&Node{Kind: KindIdentifier, Span: idTok.Span, Token: &idTok})
		if !p.dottedChainContinues() {
			break
		}
	}
	if p.check(TokenDot) && p.peekN(1).Kind == TokenClass {
		p.advance()
		p.advance()
		lit := &Node{Kind: KindClassLiteral, Span: qn.Span}
		lit.AddChild(p.finishNode(qn))
		return p.finishNode(lit)
	}
	return p.finishNode(qn)
}

// dottedChainContinues reports whether the identifier two tokens ahead of
// the current '.' is itself followed by something other than '(',
// so a construct like "pkg.Klass(args)" stops the chain at "Klass" and
// leaves the call to parsePostfix rather than swallowing it into the name.
func (p *Parser) dottedChainContinues() bool {
	return p.peekN(2).Kind != TokenLParen
}

func (p *Parser) buildGStringNode(tok Token) *Node {
	node := &Node{Kind: KindGStringExpr, Span: tok.Span, Token: &tok}
	for _, span := range tok.Embedded {
		node.AddChild(p.parseEmbeddedExpr(span))
	}
	return node
}

func (p *Parser) parseListOrMapLiteral() *Node {
	start := p.peek().Span.Start
	p.advance() // [
	if p.check(TokenColon) && p.peekN(1).Kind == TokenRBracket {
		p.advance()
		p.advance()
		return &Node{Kind: KindMapExpr, Span: Span{Start: start, End: p.tokens[p.pos-1].Span.End}}
	}
	if p.check(TokenRBracket) {
		p.advance()
		return &Node{Kind: KindListExpr, Span: Span{Start: start, End: p.tokens[p.pos-1].Span.End}}
	}

	isMap := (p.check(TokenIdent) || p.check(TokenStringLiteral) || p.check(TokenGString)) && p.peekN(1).Kind == TokenColon
	kind := KindListExpr
	if isMap {
		kind = KindMapExpr
	}
	node := &Node{Kind: kind, Span: Span{Start: start}}
	for !p.check(TokenRBracket) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		if isMap {
			node.AddChild(p.parseMapEntry())
		} else if p.check(TokenStar) {
			itemStart := p.peek().Span.Start
			p.advance()
			spread := &Node{Kind: KindSpreadArg, Span: Span{Start: itemStart}}
			spread.AddChild(p.parseExpression())
			node.AddChild(p.finishNode(spread))
		} else {
			node.AddChild(p.parseExpression())
		}
		if p.check(TokenComma) {
			p.advance()
		}
		progress()
	}
	p.expect(TokenRBracket)
	return p.finishNode(node)
}

func (p *Parser) parseMapEntry() *Node {
	node := p.startNode(KindMapEntry)
	if (p.check(TokenIdent) || p.check(TokenStringLiteral) || p.check(TokenGString)) && p.peekN(1).Kind == TokenColon {
		tok := p.advance()
		kind := KindIdentifier
		if tok.Kind != TokenIdent {
			kind = KindLiteral
		}
		node.AddChild(&Node{Kind: kind, Span: tok.Span, Token: &tok})
		p.advance() // :
	} else {
		node.AddChild(p.parseExpression())
		p.expect(TokenColon)
	}
	node.AddChild(p.parseExpression())
	return p.finishNode(node)
}

func (p *Parser) parseNewExpr() *Node {
	node := p.startNode(KindNewExpr)
	p.advance() // new
	node.AddChild(p.parseTypeRef())
	if p.check(TokenLBracket) {
		p.advance()
		if !p.check(TokenRBracket) {
			node.AddChild(p.parseExpression())
		}
		p.expect(TokenRBracket)
		for p.check(TokenLBracket) {
			p.advance()
			p.expect(TokenRBracket)
		}
		return p.finishNode(node)
	}
	node.AddChild(p.parseArgumentList())
	if p.check(TokenLBrace) {
		node.AddChild(p.parseClassBody())
	}
	return p.finishNode(node)
}

// ---------------------------------------------------------------------
// Closures
// ---------------------------------------------------------------------

func (p *Parser) parseClosure() *Node {
	node := p.startNode(KindClosureExpr)
	p.advance() // {
	if p.closureHasParams() {
		if !p.check(TokenArrow) {
			node.AddChild(p.parseClosureParams())
		}
		p.expect(TokenArrow)
	}
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		if p.check(TokenSemicolon) {
			p.advance()
			continue
		}
		node.AddChild(p.parseStatement())
		progress()
	}
	p.expect(TokenRBrace)
	return p.finishNode(node)
}

// closureHasParams looks ahead (without consuming) for a "->" at the
// same nesting depth as the closure's own opening brace, the signal that
// this closure declares an explicit parameter list rather than using the
// implicit "it".
func (p *Parser) closureHasParams() bool {
	depth := 0
	for i := p.pos; ; i++ {
		tok := p.peekN(i - p.pos)
		switch tok.Kind {
		case TokenLBrace, TokenLParen, TokenLBracket:
			depth++
		case TokenRBrace:
			if depth == 0 {
				return false
			}
			depth--
		case TokenRParen, TokenRBracket:
			depth--
		case TokenArrow:
			if depth == 0 {
				return true
			}
		case TokenEOF:
			return false
		}
	}
}

func (p *Parser) parseClosureParams() *Node {
	node := p.startNode(KindParameters)
	for !p.check(TokenArrow) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		node.AddChild(p.parseParameter())
		if p.check(TokenComma) {
			p.advance()
		}
		progress()
	}
	return p.finishNode(node)
}
