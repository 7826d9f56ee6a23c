package gparse

import (
	"strings"
	"testing"
)

func parseUnit(t *testing.T, src string) *Node {
	t.Helper()
	p := ParseCompilationUnit(strings.NewReader(src), WithFile("test.groovy"), WithPositions())
	root := p.Finish()
	if root == nil {
		t.Fatalf("Finish() returned nil for:\n%s", src)
	}
	if root.Kind != KindCompilationUnit {
		t.Fatalf("root kind = %v, want KindCompilationUnit", root.Kind)
	}
	return root
}

// findFirst returns the first node of kind in a pre-order walk, or nil.
func findFirst(n *Node, kind NodeKind) *Node {
	if n.Kind == kind {
		return n
	}
	for _, c := range n.Children {
		if found := findFirst(c, kind); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *Node, kind NodeKind) []*Node {
	var out []*Node
	if n.Kind == kind {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, findAll(c, kind)...)
	}
	return out
}

func mustFind(t *testing.T, n *Node, kind NodeKind) *Node {
	t.Helper()
	found := findFirst(n, kind)
	if found == nil {
		t.Fatalf("no %v node in tree:\n%s", kind, n)
	}
	return found
}

func TestParseScriptStatements(t *testing.T) {
	root := parseUnit(t, "def x = 1\nprintln(x)\nx + 2")

	if len(root.Children) != 3 {
		t.Fatalf("top-level statements = %d, want 3 (semicolons are optional):\n%s", len(root.Children), root)
	}

	decl := root.Children[0]
	if decl.Kind != KindLocalVarDecl {
		t.Fatalf("first statement kind = %v, want KindLocalVarDecl", decl.Kind)
	}
	if decl.FirstChildOfKind(KindDefDecl) == nil {
		t.Error("def declaration should carry a DefDecl type child")
	}
	if id := decl.FirstChildOfKind(KindIdentifier); id == nil || id.TokenLiteral() != "x" {
		t.Errorf("declared name = %v, want x", id)
	}
	if lit := decl.FirstChildOfKind(KindLiteral); lit == nil || lit.TokenLiteral() != "1" {
		t.Errorf("initializer = %v, want literal 1", lit)
	}

	if root.Children[1].Kind != KindExprStmt {
		t.Errorf("second statement kind = %v, want KindExprStmt", root.Children[1].Kind)
	}
	if call := findFirst(root.Children[1], KindCallExpr); call == nil {
		t.Error("println(x) should parse as a CallExpr")
	}
}

func TestParsePackageAndImports(t *testing.T) {
	root := parseUnit(t, `package com.example.app

import java.util.List as JList
import static java.lang.Math.max
import groovy.json.*

class Main {}
`)

	pkg := mustFind(t, root, KindPackageDecl)
	qn := pkg.FirstChildOfKind(KindQualifiedName)
	if qn == nil || len(qn.ChildrenOfKind(KindIdentifier)) != 3 {
		t.Errorf("package name = %v, want com.example.app (3 segments)", qn)
	}

	imports := root.ChildrenOfKind(KindImportDecl)
	if len(imports) != 3 {
		t.Fatalf("imports = %d, want 3", len(imports))
	}

	aliased := imports[0]
	if alias := aliased.FirstChildOfKind(KindIdentifier); alias == nil || alias.TokenLiteral() != "JList" {
		t.Errorf("alias = %v, want JList", alias)
	}

	static := imports[1]
	ids := static.ChildrenOfKind(KindIdentifier)
	if len(ids) == 0 || ids[0].TokenLiteral() != "static" {
		t.Errorf("static import marker = %v, want leading static identifier", ids)
	}

	wildcard := imports[2].FirstChildOfKind(KindQualifiedName)
	segs := wildcard.ChildrenOfKind(KindIdentifier)
	if len(segs) != 3 || segs[2].TokenLiteral() != "*" {
		t.Errorf("wildcard import segments = %v, want groovy.json.*", segs)
	}
}

func TestParseClassWithExtendsAndImplements(t *testing.T) {
	root := parseUnit(t, `class Greeter extends Base implements Runnable, Cloneable {
}`)

	class := mustFind(t, root, KindClassDecl)
	if id := class.FirstChildOfKind(KindIdentifier); id == nil || id.TokenLiteral() != "Greeter" {
		t.Errorf("class name = %v, want Greeter", id)
	}

	ext := class.FirstChildOfKind(KindExtendsClause)
	if ext == nil || len(ext.Children) != 1 {
		t.Fatalf("extends clause = %v, want one supertype", ext)
	}
	impl := class.FirstChildOfKind(KindImplementsClause)
	if impl == nil || len(impl.Children) != 2 {
		t.Fatalf("implements clause = %v, want two interfaces", impl)
	}
}

func TestParseTraitDecl(t *testing.T) {
	root := parseUnit(t, `trait Flyer {
  def fly() {
    println('flying')
  }
}`)

	trait := mustFind(t, root, KindTraitDecl)
	if id := trait.FirstChildOfKind(KindIdentifier); id == nil || id.TokenLiteral() != "Flyer" {
		t.Errorf("trait name = %v, want Flyer", id)
	}
	if findFirst(trait, KindMethodDecl) == nil {
		t.Error("trait body should contain the fly() MethodDecl")
	}
}

func TestParseInterfaceWithBodylessMethod(t *testing.T) {
	root := parseUnit(t, `interface Shape {
  def area()
}`)

	iface := mustFind(t, root, KindInterfaceDecl)
	method := mustFind(t, iface, KindMethodDecl)
	if method.FirstChildOfKind(KindBlock) != nil {
		t.Error("an interface method without a body must not carry a Block")
	}
}

func TestParseEnum(t *testing.T) {
	root := parseUnit(t, `enum Color {
  RED, GREEN, BLUE;
  def hex() { '#000000' }
}`)

	enum := mustFind(t, root, KindEnumDecl)
	constants := enum.ChildrenOfKind(KindEnumConstant)
	if len(constants) != 3 {
		t.Fatalf("enum constants = %d, want 3", len(constants))
	}
	if constants[0].FirstChildOfKind(KindIdentifier).TokenLiteral() != "RED" {
		t.Errorf("first constant = %v, want RED", constants[0])
	}
	if enum.FirstChildOfKind(KindMethodDecl) == nil {
		t.Error("enum should keep the member method after the constant list")
	}
}

func TestParseRecord(t *testing.T) {
	root := parseUnit(t, `record Point(int x, int y) {}`)

	rec := mustFind(t, root, KindRecordDecl)
	params := rec.FirstChildOfKind(KindParameters)
	if params == nil || len(params.ChildrenOfKind(KindParameter)) != 2 {
		t.Fatalf("record components = %v, want 2 parameters", params)
	}
}

func TestParseFieldsMethodsAndConstructor(t *testing.T) {
	root := parseUnit(t, `class Calculator {
  private int total = 0

  Calculator(int start) {
    total = start
  }

  def add(int a, int b = 1) {
    total = a + b
  }

  def sum(int... nums) {
  }
}`)

	class := mustFind(t, root, KindClassDecl)

	field := mustFind(t, class, KindFieldDecl)
	if id := field.FirstChildOfKind(KindIdentifier); id == nil || id.TokenLiteral() != "total" {
		t.Errorf("field name = %v, want total", id)
	}
	if field.FirstChildOfKind(KindLiteral) == nil {
		t.Error("field should keep its initializer expression")
	}
	mods := field.FirstChildOfKind(KindModifiers)
	if mods == nil || mods.FirstChildOfKind(KindIdentifier).TokenLiteral() != "private" {
		t.Errorf("field modifiers = %v, want private", mods)
	}

	ctor := mustFind(t, class, KindConstructorDecl)
	if id := ctor.FirstChildOfKind(KindIdentifier); id.TokenLiteral() != "Calculator" {
		t.Errorf("constructor name = %v, want Calculator", id)
	}

	methods := findAll(class, KindMethodDecl)
	if len(methods) != 2 {
		t.Fatalf("methods = %d, want 2", len(methods))
	}

	add := methods[0]
	params := add.FirstChildOfKind(KindParameters).ChildrenOfKind(KindParameter)
	if len(params) != 2 {
		t.Fatalf("add() parameters = %d, want 2", len(params))
	}
	if params[1].FirstChildOfKind(KindLiteral) == nil {
		t.Error("parameter b should keep its default value expression")
	}

	varargs := methods[1].FirstChildOfKind(KindParameters).FirstChildOfKind(KindParameter)
	if id := varargs.FirstChildOfKind(KindIdentifier); id == nil || id.TokenLiteral() != "nums" {
		t.Errorf("varargs parameter = %v, want nums", id)
	}
}

func TestParseClosureWithExplicitParams(t *testing.T) {
	root := parseUnit(t, `def add = { a, b -> a + b }`)

	closure := mustFind(t, root, KindClosureExpr)
	params := closure.FirstChildOfKind(KindParameters)
	if params == nil || len(params.ChildrenOfKind(KindParameter)) != 2 {
		t.Fatalf("closure params = %v, want a and b", params)
	}
	body := closure.FirstChildOfKind(KindExprStmt)
	if body == nil || findFirst(body, KindBinaryExpr) == nil {
		t.Errorf("closure body = %v, want the a + b expression", body)
	}
}

func TestParseTrailingClosure(t *testing.T) {
	root := parseUnit(t, `items.each { println(it) }`)

	call := mustFind(t, root, KindCallExpr)
	if len(call.Children) != 3 {
		t.Fatalf("call children = %d, want callee + empty args + closure:\n%s", len(call.Children), call)
	}
	callee := call.Children[0]
	if callee.Kind != KindQualifiedName {
		t.Errorf("callee kind = %v, want KindQualifiedName (items.each)", callee.Kind)
	}
	if call.Children[2].Kind != KindClosureExpr {
		t.Errorf("trailing argument kind = %v, want KindClosureExpr", call.Children[2].Kind)
	}
}

func TestParseGStringInterpolation(t *testing.T) {
	root := parseUnit(t, `def s = "Hi ${name}!"`)

	gstring := mustFind(t, root, KindGStringExpr)
	if len(gstring.Children) != 1 {
		t.Fatalf("interpolations = %d, want 1", len(gstring.Children))
	}
	if id := gstring.Children[0]; id.Kind != KindIdentifier || id.TokenLiteral() != "name" {
		t.Errorf("embedded expression = %v, want identifier name", id)
	}
}

func TestParseGStringWithoutInterpolation(t *testing.T) {
	root := parseUnit(t, `def s = "plain"`)

	gstring := mustFind(t, root, KindGStringExpr)
	if len(gstring.Children) != 0 {
		t.Errorf("plain double-quoted string should have no embedded expressions, got %d", len(gstring.Children))
	}
}

func TestParseGStringBlockInterpolation(t *testing.T) {
	root := parseUnit(t, "def s = \"\"\"\n  Hello ${who},\n  welcome.\n\"\"\"")

	gstring := mustFind(t, root, KindGStringExpr)
	if len(gstring.Children) != 1 {
		t.Fatalf("block interpolations = %d, want 1", len(gstring.Children))
	}
	if gstring.Children[0].TokenLiteral() != "who" {
		t.Errorf("embedded expression = %v, want who", gstring.Children[0])
	}
}

func TestParseElvisAndTernary(t *testing.T) {
	root := parseUnit(t, `def v = maybe ?: fallback
def t = flag ? 1 : 2`)

	elvis := mustFind(t, root, KindElvisExpr)
	if len(elvis.Children) != 2 {
		t.Fatalf("elvis children = %d, want 2", len(elvis.Children))
	}
	if elvis.Children[1].TokenLiteral() != "fallback" {
		t.Errorf("elvis right side = %v, want fallback", elvis.Children[1])
	}

	ternary := mustFind(t, root, KindTernaryExpr)
	if len(ternary.Children) != 3 {
		t.Fatalf("ternary children = %d, want condition + both branches", len(ternary.Children))
	}
}

func TestParseSafeNavigationAndSpread(t *testing.T) {
	root := parseUnit(t, `def n = user?.name
def all = people*.name`)

	safe := mustFind(t, root, KindSafeFieldAccess)
	if safe.Children[0].TokenLiteral() != "user" || safe.Children[1].TokenLiteral() != "name" {
		t.Errorf("safe navigation = %v, want user?.name", safe)
	}

	spread := mustFind(t, root, KindSpreadExpr)
	if spread.Children[0].TokenLiteral() != "people" || spread.Children[1].TokenLiteral() != "name" {
		t.Errorf("spread access = %v, want people*.name", spread)
	}
}

func TestParseMethodRef(t *testing.T) {
	root := parseUnit(t, `def f = this.&toString`)

	ref := mustFind(t, root, KindMethodRef)
	if ref.FirstChildOfKind(KindThis) == nil {
		t.Error("method ref receiver should be this")
	}
	if id := ref.FirstChildOfKind(KindIdentifier); id == nil || id.TokenLiteral() != "toString" {
		t.Errorf("method ref name = %v, want toString", id)
	}
}

func TestParseRanges(t *testing.T) {
	root := parseUnit(t, `def r = 1..5
def half = 0..<5`)

	ranges := findAll(root, KindRangeExpr)
	if len(ranges) != 2 {
		t.Fatalf("range expressions = %d, want 2", len(ranges))
	}
	if ranges[0].TokenLiteral() != ".." {
		t.Errorf("inclusive range operator = %q, want ..", ranges[0].TokenLiteral())
	}
	for i, r := range ranges {
		if len(r.ChildrenOfKind(KindLiteral)) != 2 {
			t.Errorf("range %d bounds = %v, want two literals", i, r.Children)
		}
	}
}

func TestParseAsExpr(t *testing.T) {
	root := parseUnit(t, `def i = value as Integer`)

	as := mustFind(t, root, KindAsExpr)
	if as.Children[0].TokenLiteral() != "value" {
		t.Errorf("as-expression operand = %v, want value", as.Children[0])
	}
	typeRef := as.FirstChildOfKind(KindQualifiedName)
	if typeRef == nil || typeRef.FirstChildOfKind(KindIdentifier).TokenLiteral() != "Integer" {
		t.Errorf("as-expression target type = %v, want Integer", typeRef)
	}
}

func TestParseListAndMapLiterals(t *testing.T) {
	root := parseUnit(t, `def l = [1, 2, 3]
def m = [name: 'x', age: 1]
def empty = []
def emptyMap = [:]
def spread = [*l, 4]`)

	lists := findAll(root, KindListExpr)
	if len(lists) != 3 {
		t.Fatalf("list literals = %d, want 3", len(lists))
	}
	if len(lists[0].ChildrenOfKind(KindLiteral)) != 3 {
		t.Errorf("first list = %v, want three literal elements", lists[0].Children)
	}
	if len(lists[1].Children) != 0 {
		t.Errorf("empty list should have no children, got %v", lists[1].Children)
	}
	if lists[2].FirstChildOfKind(KindSpreadArg) == nil {
		t.Error("[*l, 4] should contain a SpreadArg element")
	}

	maps := findAll(root, KindMapExpr)
	if len(maps) != 2 {
		t.Fatalf("map literals = %d, want 2", len(maps))
	}
	entries := maps[0].ChildrenOfKind(KindMapEntry)
	if len(entries) != 2 {
		t.Fatalf("map entries = %d, want 2", len(entries))
	}
	if entries[0].FirstChildOfKind(KindIdentifier).TokenLiteral() != "name" {
		t.Errorf("first entry key = %v, want name", entries[0])
	}
	if len(maps[1].Children) != 0 {
		t.Errorf("[:] should have no entries, got %v", maps[1].Children)
	}
}

func TestParseNamedArguments(t *testing.T) {
	root := parseUnit(t, `configure(name: 'app', debug: true)`)

	call := mustFind(t, root, KindCallExpr)
	args := call.FirstChildOfKind(KindParameters)
	entries := args.ChildrenOfKind(KindMapEntry)
	if len(entries) != 2 {
		t.Fatalf("named arguments = %d, want 2", len(entries))
	}
	if entries[1].FirstChildOfKind(KindIdentifier).TokenLiteral() != "debug" {
		t.Errorf("second named argument = %v, want debug", entries[1])
	}
}

func TestParseForIn(t *testing.T) {
	root := parseUnit(t, `for (item in items) {
  println(item)
}
for (String s in words) println(s)`)

	clauses := findAll(root, KindForInClause)
	if len(clauses) != 2 {
		t.Fatalf("for-in clauses = %d, want 2", len(clauses))
	}

	untyped := clauses[0]
	if id := untyped.FirstChildOfKind(KindIdentifier); id.TokenLiteral() != "item" {
		t.Errorf("loop variable = %v, want item", id)
	}
	if untyped.FirstChildOfKind(KindBlock) == nil {
		t.Error("first loop body should be a Block")
	}

	typed := clauses[1]
	if typed.FirstChildOfKind(KindType) == nil {
		t.Error("typed for-in should carry a Type child for String")
	}
}

func TestParseClassicForStmt(t *testing.T) {
	root := parseUnit(t, `for (int i = 0; i < 3; i++) {
  total += i
}`)

	loop := mustFind(t, root, KindForStmt)
	if blocks := loop.ChildrenOfKind(KindBlock); len(blocks) != 3 {
		t.Errorf("for statement blocks = %d, want init + update + body", len(blocks))
	}
	if loop.FirstChildOfKind(KindBinaryExpr) == nil {
		t.Error("for statement should keep its condition expression")
	}
}

func TestParseTryCatchFinally(t *testing.T) {
	root := parseUnit(t, `try {
  risky()
} catch (IOException e) {
  recover()
} finally {
  cleanup()
}`)

	try := mustFind(t, root, KindTryStmt)
	catch := try.FirstChildOfKind(KindCatchClause)
	if catch == nil {
		t.Fatal("try should have a catch clause")
	}
	if id := catch.FirstChildOfKind(KindIdentifier); id == nil || id.TokenLiteral() != "e" {
		t.Errorf("catch binding = %v, want e", id)
	}
	if try.FirstChildOfKind(KindFinallyClause) == nil {
		t.Error("try should keep its finally clause")
	}
}

func TestParseSwitch(t *testing.T) {
	root := parseUnit(t, `switch (x) {
case 1:
  y = 1
  break
default:
  y = 2
}`)

	sw := mustFind(t, root, KindSwitchStmt)
	cases := sw.ChildrenOfKind(KindSwitchCase)
	if len(cases) != 2 {
		t.Fatalf("switch cases = %d, want case + default", len(cases))
	}
	if cases[0].FirstChildOfKind(KindBreakStmt) == nil {
		t.Error("first case should contain its break statement")
	}
}

func TestParseSpecStyleLabels(t *testing.T) {
	root := parseUnit(t, `class CalculatorSpec extends Specification {
  def addsTwoNumbers() {
    given:
    def calc = new Calculator()

    expect:
    calc.add(1, 2) == 3
  }
}`)

	labels := findAll(root, KindLabeledStmt)
	if len(labels) != 2 {
		t.Fatalf("labeled statements = %d, want given + expect", len(labels))
	}
	if labels[0].FirstChildOfKind(KindIdentifier).TokenLiteral() != "given" {
		t.Errorf("first label = %v, want given", labels[0])
	}
	if findFirst(labels[0], KindLocalVarDecl) == nil {
		t.Error("given: should wrap the calc declaration")
	}
	if findFirst(labels[1], KindBinaryExpr) == nil {
		t.Error("expect: should wrap the comparison expression")
	}
}

func TestParseNewExpressions(t *testing.T) {
	root := parseUnit(t, `def g = new Greeter('x')
def r = new Runnable() {
  void run() {}
}
def a = new int[3]`)

	news := findAll(root, KindNewExpr)
	if len(news) != 3 {
		t.Fatalf("new expressions = %d, want 3", len(news))
	}

	ctor := news[0]
	args := ctor.FirstChildOfKind(KindParameters)
	if args == nil || len(args.Children) != 1 {
		t.Errorf("constructor args = %v, want one", args)
	}

	anon := news[1]
	body := anon.FirstChildOfKind(KindBlock)
	if body == nil || findFirst(body, KindMethodDecl) == nil {
		t.Error("anonymous class body should contain the run() method")
	}

	arr := news[2]
	if arr.FirstChildOfKind(KindType) == nil {
		t.Error("array creation should keep its element Type")
	}
	if lit := arr.FirstChildOfKind(KindLiteral); lit == nil || lit.TokenLiteral() != "3" {
		t.Errorf("array length = %v, want 3", lit)
	}
}

func TestParseAnnotatedClass(t *testing.T) {
	root := parseUnit(t, `@Singleton
class Config {
}`)

	class := mustFind(t, root, KindClassDecl)
	mods := class.FirstChildOfKind(KindModifiers)
	ann := mods.FirstChildOfKind(KindAnnotation)
	if ann == nil || ann.FirstChildOfKind(KindIdentifier).TokenLiteral() != "Singleton" {
		t.Errorf("annotation = %v, want @Singleton", ann)
	}
}

func TestParseErrorRecovery(t *testing.T) {
	root := parseUnit(t, `def x = ]; def y = 2`)

	errNode := mustFind(t, root, KindError)
	if !errNode.IsError() || errNode.Error == nil {
		t.Fatalf("error node = %v, want recorded Error detail", errNode)
	}

	decls := findAll(root, KindLocalVarDecl)
	if len(decls) != 2 {
		t.Fatalf("declarations = %d, want parsing to recover and keep def y = 2", len(decls))
	}
	if id := decls[1].FirstChildOfKind(KindIdentifier); id.TokenLiteral() != "y" {
		t.Errorf("recovered declaration = %v, want y", id)
	}
}

func TestIsCompleteDetectsDanglingExpression(t *testing.T) {
	incomplete := ParseCompilationUnit(strings.NewReader("1 + "))
	if incomplete.IsComplete() {
		t.Error(`IsComplete("1 + ") = true, want false`)
	}
	if incomplete.Finish() != nil {
		t.Error(`Finish("1 + ") should return nil for incomplete input`)
	}

	complete := ParseCompilationUnit(strings.NewReader("1 + 2"))
	if !complete.IsComplete() {
		t.Error(`IsComplete("1 + 2") = false, want true`)
	}
}

func TestParsePositions(t *testing.T) {
	root := parseUnit(t, "def x = 1")

	if root.Span.Start.Line != 1 || root.Span.Start.Column != 1 {
		t.Errorf("root starts at (%d, %d), want (1, 1)", root.Span.Start.Line, root.Span.Start.Column)
	}

	decl := mustFind(t, root, KindLocalVarDecl)
	id := decl.FirstChildOfKind(KindIdentifier)
	if id.Span.Start.Line != 1 || id.Span.Start.Column != 5 {
		t.Errorf("x declared at (%d, %d), want (1, 5)", id.Span.Start.Line, id.Span.Start.Column)
	}
}
