package ast

import (
	"strings"

	"github.com/albertocavalcante/groovy-lsp/internal/gparse"
)

// DeclKind classifies what a Declaration binds: the language constructs the
// symbol index has to distinguish when resolving an identifier, in
// shadowing-priority order (local > parameter > field/property > import >
// class > method).
type DeclKind int

const (
	DeclLocalVar DeclKind = iota
	DeclParameter
	DeclField
	DeclProperty // Groovy field promoted to a JavaBean-style property
	DeclImport
	DeclClass
	DeclMethod
	DeclClosureParam // implicit or explicit closure parameter ("it" or named)
)

// Declaration is one named binding recorded by a SymbolIndex: a variable,
// parameter, field, property, import, class, or method, together with the
// node that introduces it and (for locals/params/fields) the node whose
// scope it is visible from.
type Declaration struct {
	Name      string
	Kind      DeclKind
	Node      NodeID
	ScopeNode NodeID // enclosing method/class/closure the declaration lives in
	TypeName  string // "" when untyped (Groovy def); resolved lazily by the caller
	IsDef     bool   // declared with Groovy's untyped "def" rather than an explicit type
}

// SymbolIndex is the per-file table of every declaration in an AstModel,
// plus the import list and package name needed to turn a short type name
// into a fully qualified one. It answers "what does this name refer to at
// this position", pre-computed once per compile instead of re-walked per
// lookup.
type SymbolIndex struct {
	model   *AstModel
	Package string
	Imports []ImportDecl
	Decls   []Declaration
	byName  map[string][]int  // name -> indices into Decls, in declaration order
	classes []int             // indices into Decls with Kind == DeclClass
	members map[NodeID][]int  // class node -> indices of its field/property/method Decls
}

// ImportDecl is one parsed "import" statement.
type ImportDecl struct {
	QualifiedName string
	Alias         string // "" unless declared with "as"
	IsStatic      bool
	IsWildcard    bool
}

// BuildSymbolIndex walks m and produces its SymbolIndex. It never returns
// nil: a model with no declarations yields an index with empty slices, so
// callers never need a nil check before iterating Decls.
func BuildSymbolIndex(m *AstModel) *SymbolIndex {
	idx := &SymbolIndex{
		model:   m,
		byName:  make(map[string][]int),
		members: make(map[NodeID][]int),
	}
	if m.Root() == NilNodeID {
		return idx
	}

	idx.Package = idx.packageName(m.Root())
	idx.Imports = idx.imports(m.Root())

	for _, id := range m.AllNodes() {
		idx.visit(id)
	}
	return idx
}

func (idx *SymbolIndex) packageName(root NodeID) string {
	for _, c := range idx.model.View(root).Children {
		if idx.model.View(c).Kind != gparse.KindPackageDecl {
			continue
		}
		for _, pc := range idx.model.View(c).Children {
			if idx.model.View(pc).Kind == gparse.KindQualifiedName {
				return idx.qualifiedNameOf(pc)
			}
		}
	}
	return ""
}

func (idx *SymbolIndex) imports(root NodeID) []ImportDecl {
	var imports []ImportDecl
	for _, c := range idx.model.View(root).Children {
		if idx.model.View(c).Kind != gparse.KindImportDecl {
			continue
		}
		imports = append(imports, idx.importDecl(c))
	}
	return imports
}

// importDecl reads one KindImportDecl node. The wildcard star is parsed as
// the QualifiedName's last segment, and an "as" alias is a trailing
// Identifier child of the import itself.
func (idx *SymbolIndex) importDecl(id NodeID) ImportDecl {
	var imp ImportDecl
	for _, ic := range idx.model.View(id).Children {
		v := idx.model.View(ic)
		switch {
		case v.Kind == gparse.KindIdentifier && v.Literal == "static":
			imp.IsStatic = true
		case v.Kind == gparse.KindIdentifier:
			imp.Alias = v.Literal
		case v.Kind == gparse.KindQualifiedName:
			imp.QualifiedName = idx.qualifiedNameOf(ic)
		}
	}
	if strings.HasSuffix(imp.QualifiedName, ".*") {
		imp.IsWildcard = true
		imp.QualifiedName = strings.TrimSuffix(imp.QualifiedName, ".*")
	}
	return imp
}

func (idx *SymbolIndex) qualifiedNameOf(id NodeID) string {
	var parts []string
	for _, c := range idx.model.View(id).Children {
		v := idx.model.View(c)
		if v.Kind == gparse.KindIdentifier {
			parts = append(parts, v.Literal)
		}
	}
	return strings.Join(parts, ".")
}

func (idx *SymbolIndex) add(d Declaration) {
	idx.Decls = append(idx.Decls, d)
	pos := len(idx.Decls) - 1
	idx.byName[d.Name] = append(idx.byName[d.Name], pos)
	switch d.Kind {
	case DeclClass:
		idx.classes = append(idx.classes, pos)
	case DeclField, DeclProperty, DeclMethod:
		idx.members[d.ScopeNode] = append(idx.members[d.ScopeNode], pos)
	}
}

func (idx *SymbolIndex) visit(id NodeID) {
	v := idx.model.View(id)
	switch v.Kind {
	case gparse.KindClassDecl, gparse.KindInterfaceDecl, gparse.KindTraitDecl,
		gparse.KindEnumDecl, gparse.KindRecordDecl:
		if name := idx.firstIdentifierChild(id); name != "" {
			idx.add(Declaration{Name: name, Kind: DeclClass, Node: id, ScopeNode: idx.enclosingScope(id)})
		}
	case gparse.KindMethodDecl:
		if name := idx.firstIdentifierChild(id); name != "" {
			idx.add(Declaration{Name: name, Kind: DeclMethod, Node: id, ScopeNode: idx.enclosingScope(id)})
		}
	case gparse.KindFieldDecl:
		isDef := idx.fieldIsDefTyped(id)
		typeName := idx.declaredTypeName(id)
		for _, c := range v.Children {
			cv := idx.model.View(c)
			if cv.Kind != gparse.KindIdentifier {
				continue
			}
			kind := DeclField
			if idx.looksLikeGroovyProperty(id) {
				kind = DeclProperty
			}
			idx.add(Declaration{
				Name: cv.Literal, Kind: kind, Node: id,
				ScopeNode: idx.enclosingScope(id), TypeName: typeName, IsDef: isDef,
			})
		}
	case gparse.KindLocalVarDecl:
		isDef := idx.fieldIsDefTyped(id)
		typeName := idx.declaredTypeName(id)
		for _, c := range v.Children {
			cv := idx.model.View(c)
			if cv.Kind == gparse.KindIdentifier {
				idx.add(Declaration{
					Name: cv.Literal, Kind: DeclLocalVar, Node: id,
					ScopeNode: idx.enclosingScope(id), TypeName: typeName, IsDef: isDef,
				})
			}
		}
	case gparse.KindParameter:
		if name := idx.firstIdentifierChild(id); name != "" {
			idx.add(Declaration{
				Name: name, Kind: DeclParameter, Node: id,
				ScopeNode: idx.enclosingScope(id), TypeName: idx.declaredTypeName(id),
			})
		}
	case gparse.KindForInClause, gparse.KindCatchClause:
		if name := idx.firstIdentifierChild(id); name != "" {
			idx.add(Declaration{Name: name, Kind: DeclLocalVar, Node: id, ScopeNode: idx.enclosingScope(id)})
		}
	case gparse.KindClosureExpr:
		idx.addClosureParams(id)
	case gparse.KindImportDecl:
		imp := idx.importDecl(id)
		if imp.IsWildcard || imp.QualifiedName == "" {
			return
		}
		name := imp.Alias
		if name == "" {
			name = lastDottedSegment(imp.QualifiedName)
		}
		// TypeName carries the imported fully qualified name so the
		// resolver can chase the import to the class it names.
		idx.add(Declaration{Name: name, Kind: DeclImport, Node: id, ScopeNode: idx.model.Root(), TypeName: imp.QualifiedName})
	}
}

func lastDottedSegment(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// looksLikeGroovyProperty treats a field as a Groovy property unless its
// modifiers include "private" or "static".
func (idx *SymbolIndex) looksLikeGroovyProperty(fieldDecl NodeID) bool {
	for _, c := range idx.model.View(fieldDecl).Children {
		cv := idx.model.View(c)
		if cv.Kind != gparse.KindModifiers {
			continue
		}
		for _, m := range cv.Children {
			if idx.model.View(m).Literal == "private" || idx.model.View(m).Literal == "static" {
				return false
			}
		}
	}
	return true
}

func (idx *SymbolIndex) fieldIsDefTyped(declNode NodeID) bool {
	for _, c := range idx.model.View(declNode).Children {
		if idx.model.View(c).Kind == gparse.KindDefDecl {
			return true
		}
	}
	return false
}

// declaredTypeName renders declNode's explicit Type child back to source
// text, or "" when it was declared with Groovy's untyped "def" (or carries
// no type child at all, e.g. a closure parameter).
func (idx *SymbolIndex) declaredTypeName(declNode NodeID) string {
	for _, c := range idx.model.View(declNode).Children {
		if idx.model.View(c).Kind == gparse.KindType {
			return idx.typeName(c)
		}
	}
	return ""
}

// typeName renders a KindType node back to its source text: either the
// literal of a primitive/var keyword token, or the dotted identifier chain
// parsed as a qualified name (the Type node itself never carries a token
// for named types; see gparse's parseType).
func (idx *SymbolIndex) typeName(typeNode NodeID) string {
	v := idx.model.View(typeNode)
	if v.HasToken {
		return v.Literal
	}
	var parts []string
	for _, c := range v.Children {
		cv := idx.model.View(c)
		switch cv.Kind {
		case gparse.KindQualifiedName:
			parts = append(parts, idx.qualifiedNameOf(c))
		case gparse.KindArrayType:
			parts = append(parts, idx.typeName(c)+"[]")
		case gparse.KindType:
			// A primitive type token nested under the decl's own Type
			// wrapper (parseDeclType always wraps parseTypeRef's result
			// in one KindType, and parseTypeRef itself already returns a
			// token-bearing KindType for primitives).
			parts = append(parts, idx.typeName(c))
		}
	}
	return strings.Join(parts, "")
}

// addClosureParams registers a closure's explicit parameter list, or, if
// it declares none, the implicit single parameter Groovy names "it".
func (idx *SymbolIndex) addClosureParams(closure NodeID) {
	var params []NodeID
	for _, c := range idx.model.View(closure).Children {
		if idx.model.View(c).Kind == gparse.KindParameters {
			params = append(params, idx.model.View(c).Children...)
		}
	}
	if len(params) == 0 {
		idx.add(Declaration{Name: "it", Kind: DeclClosureParam, Node: closure, ScopeNode: closure})
		return
	}
	for _, p := range params {
		if name := idx.firstIdentifierChild(p); name != "" {
			idx.add(Declaration{Name: name, Kind: DeclClosureParam, Node: p, ScopeNode: closure})
		}
	}
}

func (idx *SymbolIndex) firstIdentifierChild(id NodeID) string {
	for _, c := range idx.model.View(id).Children {
		if idx.model.View(c).Kind == gparse.KindIdentifier {
			return idx.model.View(c).Literal
		}
	}
	return ""
}

// enclosingScope returns the nearest method/constructor/class/closure
// ancestor of id, or the model's root if there is none (a top-level
// script-style declaration, which Groovy permits outside any class). The
// walk starts at id's parent, so a method's scope is its class, not the
// method itself.
func (idx *SymbolIndex) enclosingScope(id NodeID) NodeID {
	parent, ok := idx.model.Parent(id)
	if !ok {
		return idx.model.Root()
	}
	scope, ok := idx.model.EnclosingOfKind(parent,
		gparse.KindMethodDecl, gparse.KindConstructorDecl,
		gparse.KindClassDecl, gparse.KindInterfaceDecl,
		gparse.KindTraitDecl, gparse.KindEnumDecl, gparse.KindRecordDecl,
		gparse.KindClosureExpr,
	)
	if !ok {
		return idx.model.Root()
	}
	return scope
}

// Lookup returns every declaration named name, in the order they were
// recorded (source order). Shadowing/visibility tie-breaking is the
// resolver's job, not the index's; the index is a plain fact table.
func (idx *SymbolIndex) Lookup(name string) []Declaration {
	positions := idx.byName[name]
	if len(positions) == 0 {
		return nil
	}
	decls := make([]Declaration, len(positions))
	for i, p := range positions {
		decls[i] = idx.Decls[p]
	}
	return decls
}

// Classes returns every class/interface/enum/record declaration recorded
// by the index.
func (idx *SymbolIndex) Classes() []Declaration {
	decls := make([]Declaration, len(idx.classes))
	for i, p := range idx.classes {
		decls[i] = idx.Decls[p]
	}
	return decls
}

// Member returns the first field/property/method member of classID named
// name, or nil; this is the per-class membership lookup the resolver's
// inheritance walk consults.
func (idx *SymbolIndex) Member(classID NodeID, name string) *Declaration {
	for _, p := range idx.members[classID] {
		if idx.Decls[p].Name == name {
			d := idx.Decls[p]
			return &d
		}
	}
	return nil
}
