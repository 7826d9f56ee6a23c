package gparse

type NodeKind int

const (
	KindError NodeKind = iota

	// Compilation unit level
	KindCompilationUnit
	KindPackageDecl
	KindImportDecl

	// Type declarations
	KindClassDecl
	KindInterfaceDecl
	KindTraitDecl
	KindEnumDecl
	KindRecordDecl
	KindEnumConstant

	// Members
	KindFieldDecl
	KindMethodDecl
	KindConstructorDecl

	// Type and modifiers
	KindModifiers
	KindType
	KindDefDecl // the type position filled by Groovy's untyped "def"
	KindArrayType
	KindAnnotation
	KindAnnotationElement

	// Type clauses
	KindExtendsClause
	KindImplementsClause

	// Method components
	KindParameters
	KindParameter
	KindThrowsList

	// Statements
	KindBlock
	KindEmptyStmt
	KindExprStmt
	KindIfStmt
	KindForStmt
	KindForInClause // for (x in expr) / for (Type x in expr)
	KindWhileStmt
	KindSwitchStmt
	KindSwitchCase
	KindReturnStmt
	KindBreakStmt
	KindContinueStmt
	KindThrowStmt
	KindTryStmt
	KindCatchClause
	KindFinallyClause
	KindSynchronizedStmt
	KindAssertStmt
	KindLabeledStmt
	KindLocalVarDecl

	// Expressions
	KindAssignExpr
	KindTernaryExpr
	KindElvisExpr   // a ?: b
	KindRangeExpr   // a..b / a..<b
	KindBinaryExpr
	KindInstanceofExpr
	KindAsExpr // expr as Type
	KindUnaryExpr
	KindPostfixExpr
	KindCallExpr
	KindMethodRef // &method, Type.&method, this.&method
	KindFieldAccess
	KindSafeFieldAccess // a?.b
	KindSpreadExpr      // a*.b
	KindIndexExpr       // a[b]
	KindNewExpr
	KindClosureExpr // { params -> body } or { body } (implicit "it")
	KindListExpr
	KindMapExpr
	KindMapEntry
	KindSpreadArg // *arg / *:map in an argument or literal list
	KindGStringExpr
	KindParenExpr
	KindLiteral
	KindIdentifier
	KindQualifiedName
	KindThis
	KindSuper
	KindClassLiteral

	// Comments
	KindComment
	KindLineComment
)

var nodeKindNames = map[NodeKind]string{
	KindError:             "Error",
	KindCompilationUnit:   "CompilationUnit",
	KindPackageDecl:       "PackageDecl",
	KindImportDecl:        "ImportDecl",
	KindClassDecl:         "ClassDecl",
	KindInterfaceDecl:     "InterfaceDecl",
	KindTraitDecl:         "TraitDecl",
	KindEnumDecl:          "EnumDecl",
	KindRecordDecl:        "RecordDecl",
	KindEnumConstant:      "EnumConstant",
	KindFieldDecl:         "FieldDecl",
	KindMethodDecl:        "MethodDecl",
	KindConstructorDecl:   "ConstructorDecl",
	KindModifiers:         "Modifiers",
	KindType:              "Type",
	KindDefDecl:           "DefDecl",
	KindArrayType:         "ArrayType",
	KindAnnotation:        "Annotation",
	KindAnnotationElement: "AnnotationElement",
	KindExtendsClause:     "ExtendsClause",
	KindImplementsClause:  "ImplementsClause",
	KindParameters:        "Parameters",
	KindParameter:         "Parameter",
	KindThrowsList:        "ThrowsList",
	KindBlock:             "Block",
	KindEmptyStmt:         "EmptyStmt",
	KindExprStmt:          "ExprStmt",
	KindIfStmt:            "IfStmt",
	KindForStmt:           "ForStmt",
	KindForInClause:       "ForInClause",
	KindWhileStmt:         "WhileStmt",
	KindSwitchStmt:        "SwitchStmt",
	KindSwitchCase:        "SwitchCase",
	KindReturnStmt:        "ReturnStmt",
	KindBreakStmt:         "BreakStmt",
	KindContinueStmt:      "ContinueStmt",
	KindThrowStmt:         "ThrowStmt",
	KindTryStmt:           "TryStmt",
	KindCatchClause:       "CatchClause",
	KindFinallyClause:     "FinallyClause",
	KindSynchronizedStmt:  "SynchronizedStmt",
	KindAssertStmt:        "AssertStmt",
	KindLabeledStmt:       "LabeledStmt",
	KindLocalVarDecl:      "LocalVarDecl",
	KindAssignExpr:        "AssignExpr",
	KindTernaryExpr:       "TernaryExpr",
	KindElvisExpr:         "ElvisExpr",
	KindRangeExpr:         "RangeExpr",
	KindBinaryExpr:        "BinaryExpr",
	KindInstanceofExpr:    "InstanceofExpr",
	KindAsExpr:            "AsExpr",
	KindUnaryExpr:         "UnaryExpr",
	KindPostfixExpr:       "PostfixExpr",
	KindCallExpr:          "CallExpr",
	KindMethodRef:         "MethodRef",
	KindFieldAccess:       "FieldAccess",
	KindSafeFieldAccess:   "SafeFieldAccess",
	KindSpreadExpr:        "SpreadExpr",
	KindIndexExpr:         "IndexExpr",
	KindNewExpr:           "NewExpr",
	KindClosureExpr:       "ClosureExpr",
	KindListExpr:          "ListExpr",
	KindMapExpr:           "MapExpr",
	KindMapEntry:          "MapEntry",
	KindSpreadArg:         "SpreadArg",
	KindGStringExpr:       "GStringExpr",
	KindParenExpr:         "ParenExpr",
	KindLiteral:           "Literal",
	KindIdentifier:        "Identifier",
	KindQualifiedName:     "QualifiedName",
	KindThis:              "This",
	KindSuper:             "Super",
	KindClassLiteral:      "ClassLiteral",
	KindComment:           "Comment",
	KindLineComment:       "LineComment",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

type Error struct {
	Message  string
	Expected []TokenKind
	Got      *Token
}

type Node struct {
	Kind     NodeKind
	Span     Span
	Children []*Node
	Token    *Token
	Error    *Error
}

func (n *Node) AddChild(child *Node) {
	if child != nil {
		n.Children = append(n.Children, child)
	}
}

func (n *Node) IsError() bool {
	return n.Kind == KindError
}

func (n *Node) FirstChildOfKind(kind NodeKind) *Node {
	for _, child := range n.Children {
		if child.Kind == kind {
			return child
		}
	}
	return nil
}

func (n *Node) ChildrenOfKind(kind NodeKind) []*Node {
	var result []*Node
	for _, child := range n.Children {
		if child.Kind == kind {
			result = append(result, child)
		}
	}
	return result
}

func (n *Node) TokenLiteral() string {
	if n.Token != nil {
		return n.Token.Literal
	}
	return ""
}

func (n *Node) String() string {
	return n.stringIndent(0, false)
}

func (n *Node) StringWithPositions() string {
	return n.stringIndent(0, true)
}

func (n *Node) stringIndent(indent int, showPositions bool) string {
	prefix := ""
	for i := 0; i < indent; i++ {
		prefix += "  "
	}

	result := prefix + n.Kind.String()
	if showPositions {
		result += " [" + n.Span.Start.String() + "-" + n.Span.End.String() + "]"
	}
	if n.Token != nil {
		result += " " + n.Token.Literal
	}
	if n.Error != nil {
		result += " ERROR: " + n.Error.Message
	}
	result += "\n"

	for _, child := range n.Children {
		result += child.stringIndent(indent+1, showPositions)
	}
	return result
}
