package ast

import (
	"strings"
	"testing"

	"github.com/albertocavalcante/groovy-lsp/internal/gparse"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

func parse(t *testing.T, src string) *gparse.Node {
	t.Helper()
	p := gparse.ParseCompilationUnit(strings.NewReader(src), gparse.WithPositions())
	return p.Finish()
}

func TestRecordEmptyRootProducesEmptyModel(t *testing.T) {
	m := Record(position.URI("file:///Foo.groovy"), nil)
	if m.Root() != NilNodeID {
		t.Fatalf("Root() = %v, want NilNodeID for empty model", m.Root())
	}
	if len(m.AllNodes()) != 0 {
		t.Fatalf("AllNodes() = %d, want 0", len(m.AllNodes()))
	}
}

func TestRecordAndAllClassNodes(t *testing.T) {
	src := `class Foo {
  int x
  void bar() {}
}`
	root := parse(t, src)
	m := Record(position.URI("file:///Foo.groovy"), root)

	classes := m.AllClassNodes()
	if len(classes) != 1 {
		t.Fatalf("AllClassNodes() = %d, want 1", len(classes))
	}
	if m.View(classes[0]).Kind != gparse.KindClassDecl {
		t.Fatalf("class node kind = %v, want KindClassDecl", m.View(classes[0]).Kind)
	}
}

func TestNodeAtFindsIdentifier(t *testing.T) {
	src := `class Foo {
  void bar() {
    x
  }
}`
	root := parse(t, src)
	m := Record(position.URI("file:///Foo.groovy"), root)

	id, ok := m.NodeAt(position.Position{Space: position.SourceSpace, Line: 3, Column: 5})
	if !ok {
		t.Fatal("NodeAt() found nothing, want a node at the identifier")
	}
	view := m.View(id)
	if view.Kind != gparse.KindIdentifier || view.Literal != "x" {
		t.Fatalf("NodeAt() = %+v, want identifier %q", view, "x")
	}
}

func TestEnclosingOfKind(t *testing.T) {
	src := `class Foo {
  void bar() {
    x
  }
}`
	root := parse(t, src)
	m := Record(position.URI("file:///Foo.groovy"), root)

	id, ok := m.NodeAt(position.Position{Space: position.SourceSpace, Line: 3, Column: 5})
	if !ok {
		t.Fatal("NodeAt() found nothing")
	}

	classID, ok := m.EnclosingOfKind(id, gparse.KindClassDecl)
	if !ok {
		t.Fatal("EnclosingOfKind() found no enclosing class")
	}
	if m.View(classID).Kind != gparse.KindClassDecl {
		t.Fatalf("enclosing node kind = %v, want KindClassDecl", m.View(classID).Kind)
	}
}

func TestNodeAtPrefersSpecificKindOnTiedSpans(t *testing.T) {
	// "x" alone on a line: the identifier, its wrapping expression
	// statement, and any intermediate expression node share the same span.
	src := `class Foo {
  void bar() {
    x
  }
}`
	root := parse(t, src)
	m := Record(position.URI("file:///Foo.groovy"), root)

	id, ok := m.NodeAt(position.Position{Space: position.SourceSpace, Line: 3, Column: 5})
	if !ok {
		t.Fatal("NodeAt() found nothing")
	}
	if got := m.View(id).Kind; got != gparse.KindIdentifier {
		t.Fatalf("NodeAt() kind = %v, want KindIdentifier to beat tied-span containers", got)
	}
}

func TestSuperclassName(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"class Foo extends Bar {}", "Bar"},
		{"class Foo extends spock.lang.Specification {}", "spock.lang.Specification"},
		{"class Foo {}", ""},
	}
	for _, tc := range cases {
		root := parse(t, tc.src)
		m := Record(position.URI("file:///Foo.groovy"), root)
		classes := m.AllClassNodes()
		if len(classes) != 1 {
			t.Fatalf("AllClassNodes() = %d for %q, want 1", len(classes), tc.src)
		}
		if got := m.SuperclassName(classes[0]); got != tc.want {
			t.Errorf("SuperclassName(%q) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestParentTracksArenaStructure(t *testing.T) {
	src := `class Foo {}`
	root := parse(t, src)
	m := Record(position.URI("file:///Foo.groovy"), root)

	rootID := m.Root()
	if _, ok := m.Parent(rootID); ok {
		t.Fatal("root node should have no parent")
	}

	classes := m.AllClassNodes()
	if len(classes) != 1 {
		t.Fatalf("AllClassNodes() = %d, want 1", len(classes))
	}
	parent, ok := m.Parent(classes[0])
	if !ok {
		t.Fatal("class node should have a parent")
	}
	if parent != rootID {
		t.Fatalf("class node parent = %v, want root %v", parent, rootID)
	}
}
