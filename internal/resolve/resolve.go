// Package resolve implements the DefinitionResolver: a multi-tier search
// for the declaration a position refers to (local scope, then inherited
// members, then workspace-global class lookup, then the binary classpath)
// with cycle detection on the inheritance walk and refinement of class
// references that local lookup mistakes for declarations.
package resolve

import (
	"fmt"

	"github.com/albertocavalcante/groovy-lsp/internal/ast"
	"github.com/albertocavalcante/groovy-lsp/internal/gparse"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

// ErrorKind enumerates the typed failures find_definition_at can return.
// Every path through the resolver returns one of these; none propagate a
// parser-internal panic or an unbounded-recursion crash to the caller.
type ErrorKind int

const (
	ErrInvalidPosition ErrorKind = iota
	ErrNodeNotFoundAtPosition
	ErrCircularReference
	ErrSymbolNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidPosition:
		return "InvalidPosition"
	case ErrNodeNotFoundAtPosition:
		return "NodeNotFoundAtPosition"
	case ErrCircularReference:
		return "CircularReference"
	case ErrSymbolNotFound:
		return "SymbolNotFound"
	default:
		return "Unknown"
	}
}

// ResolutionError is the typed error every DefinitionResolver path returns
// on failure, carrying enough context for diagnostics without leaking
// parser-internal state.
type ResolutionError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ResolutionError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func newErr(kind ErrorKind, detail string) *ResolutionError {
	return &ResolutionError{Kind: kind, Detail: detail}
}

// TargetKind distinguishes a declaration-site result from a reference-site
// result in find_targets_at's multi-target API.
type TargetKind int

const (
	TargetDeclaration TargetKind = iota
	TargetReference
)

// DefinitionResult is either a Source (something resolvable within an
// indexed AstModel) or a Binary (a classpath .class member); exactly one
// of the two fields is populated.
type DefinitionResult struct {
	Source *SourceResult
	Binary *BinaryResult
}

// SourceResult points at a node within one of the workspace's AstModels.
type SourceResult struct {
	URI  position.URI
	Node ast.NodeID
	Span position.Span
}

// BinaryResult points at a fully qualified class found on the dependency
// classpath, not backed by any parsed AST.
type BinaryResult struct {
	URI  position.URI
	FQCN string
}

// Workspace is everything the resolver needs from the rest of the core: a
// single file's AstModel/SymbolIndex, every indexed SymbolIndex for the
// global lookup tier, and a classpath lookup for the binary fallback tier.
// CompilationService satisfies this directly.
type Workspace interface {
	Ast(uri position.URI) *ast.AstModel
	SymbolStorage(uri position.URI) *ast.SymbolIndex
	AllSymbolStorages() map[position.URI]*ast.SymbolIndex
	FindClasspathClass(fqcn string) (position.URI, bool)
}

// Resolver implements DefinitionResolver against a Workspace.
type Resolver struct {
	ws Workspace
}

func New(ws Workspace) *Resolver {
	return &Resolver{ws: ws}
}

// FindDefinitionAt runs the full multi-tier algorithm for one position.
func (r *Resolver) FindDefinitionAt(uri position.URI, pos position.Position) (*DefinitionResult, *ResolutionError) {
	if pos.Line < 0 || pos.Column < 0 {
		return nil, newErr(ErrInvalidPosition, "negative line/column")
	}

	model := r.ws.Ast(uri)
	if model == nil {
		return nil, newErr(ErrNodeNotFoundAtPosition, "no AstModel for "+string(uri))
	}

	nodeID, ok := model.NodeAt(pos)
	if !ok {
		return nil, newErr(ErrNodeNotFoundAtPosition, "")
	}

	decl, rerr := r.resolveToDefinition(uri, model, nodeID)
	if rerr != nil {
		return nil, rerr
	}
	if decl == nil {
		// No local declaration binds this name. Before falling to the
		// global and classpath tiers, check whether it names a member
		// inherited from a superclass; that walk chases extends clauses
		// across the workspace and is the one resolution path that can
		// encounter a cycle (mutual inheritance).
		member, memberURI, rerr := r.resolveInheritedMember(uri, model, nodeID)
		if rerr != nil {
			return nil, rerr
		}
		if member != nil {
			mModel := r.ws.Ast(memberURI)
			if mModel != nil {
				view := mModel.View(member.Node)
				if !isValidSpan(view.Span) {
					return nil, newErr(ErrInvalidPosition, "declaration has no valid position")
				}
				return &DefinitionResult{Source: &SourceResult{URI: memberURI, Node: member.Node, Span: view.Span}}, nil
			}
		}

		// A class reference is frequently a multi-segment qualified name
		// (com.example.Lib); reconstruct the full dotted text so the
		// classpath tier can match a fully qualified class name, not just
		// its last segment.
		name := qualifiedNameAt(model, nodeID)
		if name == "" {
			return nil, newErr(ErrSymbolNotFound, "")
		}
		result, rerr := r.globalThenClasspath(name)
		if rerr != nil && rerr.Kind == ErrSymbolNotFound {
			if simple := simpleName(name); simple != name {
				return r.globalThenClasspath(simple)
			}
		}
		return result, rerr
	}

	// An import declaration is not itself the definition: chase it to the
	// class it names, preferring the fully qualified target it recorded.
	if decl.Kind == ast.DeclImport {
		result, rerr := r.globalThenClasspath(decl.TypeName)
		if rerr != nil && rerr.Kind == ErrSymbolNotFound {
			if simple := simpleName(decl.TypeName); simple != decl.TypeName {
				return r.globalThenClasspath(simple)
			}
		}
		return result, rerr
	}

	// ClassNode refinement: a hit inside the local SymbolIndex whose node
	// does not actually appear among this URI's class declarations is a
	// reference placeholder (e.g. a ConstructorCallExpression naming a
	// class defined elsewhere), not a true local declaration.
	if decl.Kind == ast.DeclClass && !isAmong(model.AllClassNodes(), decl.Node) {
		return r.globalThenClasspath(decl.Name)
	}

	view := model.View(decl.Node)
	if !isValidSpan(view.Span) {
		return nil, newErr(ErrInvalidPosition, "declaration has no valid position")
	}

	return &DefinitionResult{Source: &SourceResult{URI: uri, Node: decl.Node, Span: view.Span}}, nil
}

// qualifiedNameAt reconstructs the dotted text of the KindQualifiedName
// node containing id (or just id's own literal if it stands alone),
// joining each Identifier child's token text with ".".
func qualifiedNameAt(model *ast.AstModel, id ast.NodeID) string {
	parent, ok := model.Parent(id)
	if ok && model.View(parent).Kind == gparse.KindQualifiedName {
		id = parent
	}
	v := model.View(id)
	if v.Kind != gparse.KindQualifiedName {
		return v.Literal
	}
	parts := make([]string, 0, len(v.Children))
	for _, c := range v.Children {
		parts = append(parts, model.View(c).Literal)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

func simpleName(qualified string) string {
	idx := -1
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '.' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return qualified
	}
	return qualified[idx+1:]
}

func isAmong(ids []ast.NodeID, id ast.NodeID) bool {
	for _, c := range ids {
		if c == id {
			return true
		}
	}
	return false
}

func isValidSpan(s position.Span) bool {
	return s.Start.Line >= 0 && s.Start.Column >= 0
}

// resolveToDefinition looks up the name the node at nodeID refers to in
// the surrounding scopes recorded by the SymbolIndex. The single-pass
// lookup here always terminates on its own; resolution paths that chase an
// indirection graph (superclass chains) live in resolveInheritedMember,
// which carries the cycle guard.
func (r *Resolver) resolveToDefinition(uri position.URI, model *ast.AstModel, nodeID ast.NodeID) (*ast.Declaration, *ResolutionError) {
	view := model.View(nodeID)
	name := view.Literal
	if name == "" {
		return nil, nil
	}

	idx := r.ws.SymbolStorage(uri)
	if idx == nil {
		return nil, nil
	}

	candidates := idx.Lookup(name)
	if len(candidates) == 0 {
		return nil, nil
	}

	best := pickVisibleDeclaration(model, nodeID, candidates)
	return best, nil
}

// pickVisibleDeclaration applies the shadowing order local > parameter >
// field/property and, among same-kind candidates, the nearest declaration
// whose scope encloses the usage and whose position precedes it (locals
// are only visible after their declaration).
func pickVisibleDeclaration(model *ast.AstModel, usage ast.NodeID, candidates []ast.Declaration) *ast.Declaration {
	rank := func(k ast.DeclKind) int {
		switch k {
		case ast.DeclLocalVar, ast.DeclClosureParam:
			return 0
		case ast.DeclParameter:
			return 1
		case ast.DeclField, ast.DeclProperty:
			return 2
		case ast.DeclImport:
			return 3
		case ast.DeclClass:
			return 4
		case ast.DeclMethod:
			return 5
		default:
			return 6
		}
	}

	usagePos := model.View(usage).Span.Start
	var best *ast.Declaration
	for i := range candidates {
		c := &candidates[i]
		if !declaredBefore(model, c, usagePos) {
			continue
		}
		if best == nil || rank(c.Kind) < rank(best.Kind) {
			best = c
		}
	}
	if best == nil && len(candidates) > 0 {
		// Fields/classes/methods are visible regardless of textual order.
		for i := range candidates {
			c := &candidates[i]
			if c.Kind == ast.DeclField || c.Kind == ast.DeclProperty || c.Kind == ast.DeclClass || c.Kind == ast.DeclMethod {
				if best == nil || rank(c.Kind) < rank(best.Kind) {
					best = c
				}
			}
		}
	}
	return best
}

func declaredBefore(model *ast.AstModel, decl *ast.Declaration, usage position.Position) bool {
	if decl.Kind != ast.DeclLocalVar && decl.Kind != ast.DeclClosureParam {
		return true
	}
	end := model.View(decl.Node).Span.End
	if end.Line != usage.Line {
		return end.Line < usage.Line
	}
	return end.Column <= usage.Column
}

// resolveInheritedMember looks for the usage's name among the members of
// the enclosing class's superclass chain, following extends clauses across
// every indexed file. The walk carries a visited set: mutual inheritance
// (A extends B, B extends A) would otherwise chase the chain forever, and
// surfaces as ErrCircularReference instead of an unbounded loop.
func (r *Resolver) resolveInheritedMember(uri position.URI, model *ast.AstModel, usage ast.NodeID) (*ast.Declaration, position.URI, *ResolutionError) {
	name := model.View(usage).Literal
	if name == "" {
		return nil, "", nil
	}
	classID, ok := model.EnclosingOfKind(usage,
		gparse.KindClassDecl, gparse.KindInterfaceDecl, gparse.KindTraitDecl,
		gparse.KindEnumDecl, gparse.KindRecordDecl,
	)
	if !ok {
		return nil, "", nil
	}

	visited := make(map[string]bool)
	curModel, curClass := model, classID
	for {
		superName := curModel.SuperclassName(curClass)
		if superName == "" {
			return nil, "", nil
		}
		simple := simpleName(superName)
		if visited[simple] {
			return nil, "", newErr(ErrCircularReference, "inheritance cycle through "+simple)
		}
		visited[simple] = true

		nextModel, nextURI, nextClass, found := r.findClassDecl(simple)
		if !found {
			return nil, "", nil
		}
		if idx := r.ws.SymbolStorage(nextURI); idx != nil {
			if member := idx.Member(nextClass, name); member != nil {
				return member, nextURI, nil
			}
		}
		curModel, curClass = nextModel, nextClass
	}
}

// findClassDecl scans every indexed SymbolIndex for a class declaration
// with this simple name, returning the owning model and the class node.
func (r *Resolver) findClassDecl(className string) (*ast.AstModel, position.URI, ast.NodeID, bool) {
	for uri, idx := range r.ws.AllSymbolStorages() {
		for _, d := range idx.Classes() {
			if d.Name != className {
				continue
			}
			model := r.ws.Ast(uri)
			if model == nil {
				continue
			}
			return model, uri, d.Node, true
		}
	}
	return nil, "", ast.NilNodeID, false
}

// globalThenClasspath runs tiers 5 and 6: scan every indexed SymbolIndex
// for a class with this name, and if none is found, ask the classpath for
// a binary match.
func (r *Resolver) globalThenClasspath(className string) (*DefinitionResult, *ResolutionError) {
	for uri, idx := range r.ws.AllSymbolStorages() {
		for _, d := range idx.Classes() {
			if d.Name != className {
				continue
			}
			model := r.ws.Ast(uri)
			if model == nil {
				continue
			}
			view := model.View(d.Node)
			return &DefinitionResult{Source: &SourceResult{URI: uri, Node: d.Node, Span: view.Span}}, nil
		}
	}

	if classURI, ok := r.ws.FindClasspathClass(className); ok {
		return &DefinitionResult{Binary: &BinaryResult{URI: classURI, FQCN: className}}, nil
	}

	return nil, newErr(ErrSymbolNotFound, className)
}

// FindTargetsAt is the multi-target API: for each requested kind
// (Declaration, Reference) it returns every matching node. Declaration
// reuses FindDefinitionAt; Reference additionally scans the local AstModel
// for identifier nodes sharing the resolved declaration's name.
func (r *Resolver) FindTargetsAt(uri position.URI, pos position.Position, kinds []TargetKind) ([]DefinitionResult, *ResolutionError) {
	def, err := r.FindDefinitionAt(uri, pos)
	if err != nil {
		return nil, err
	}

	var results []DefinitionResult
	for _, k := range kinds {
		switch k {
		case TargetDeclaration:
			if def != nil {
				results = append(results, *def)
			}
		case TargetReference:
			if def != nil && def.Source != nil {
				results = append(results, r.references(uri, def.Source)...)
			}
		}
	}
	return results, nil
}

func (r *Resolver) references(declURI position.URI, decl *SourceResult) []DefinitionResult {
	model := r.ws.Ast(declURI)
	if model == nil {
		return nil
	}
	name := model.View(decl.Node).Literal
	if name == "" {
		// Field/class/method declarations name their identifier child,
		// not themselves.
		for _, c := range model.View(decl.Node).Children {
			if model.View(c).Kind == gparse.KindIdentifier {
				name = model.View(c).Literal
				break
			}
		}
	}
	if name == "" {
		return nil
	}

	var refs []DefinitionResult
	for _, id := range model.AllNodes() {
		v := model.View(id)
		if v.Kind == gparse.KindIdentifier && v.Literal == name {
			refs = append(refs, DefinitionResult{Source: &SourceResult{URI: declURI, Node: id, Span: v.Span}})
		}
	}
	return refs
}
