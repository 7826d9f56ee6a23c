package flavor

import (
	"strings"
	"testing"

	"github.com/albertocavalcante/groovy-lsp/internal/ast"
	"github.com/albertocavalcante/groovy-lsp/internal/gparse"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

func TestJenkinsIsFlavorFile(t *testing.T) {
	j := &Jenkins{}
	cases := map[string]bool{
		"/repo/Jenkinsfile":                  true,
		"/repo/deploy.Jenkinsfile":           true,
		"/repo/vars/buildApp.groovy":         true,
		"/repo/src/com/acme/Lib.groovy":      true,
		"/repo/Main.groovy":                  false,
	}
	for path, want := range cases {
		got := j.IsFlavorFile(position.FromPath(path), "")
		if got != want {
			t.Errorf("IsFlavorFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestJenkinsIsFlavorFileByContentMarker(t *testing.T) {
	j := &Jenkins{}
	if !j.IsFlavorFile(position.FromPath("/repo/build.groovy"), "pipeline {\n  agent any\n}") {
		t.Error("expected pipeline{} marker to match")
	}
	if j.IsFlavorFile(position.FromPath("/repo/build.groovy"), "class Foo {}") {
		t.Error("plain class body should not match")
	}
}

func TestJenkinsEnrichClasspathIsAdditive(t *testing.T) {
	j := &Jenkins{LibraryJars: []string{"shared-lib.jar"}}
	base := []string{"a.jar", "b.jar"}
	got := j.EnrichClasspath(base)
	if len(got) != 3 || got[0] != "a.jar" || got[2] != "shared-lib.jar" {
		t.Errorf("EnrichClasspath = %v, want base entries preserved plus shared-lib.jar", got)
	}
	if len(base) != 2 {
		t.Error("EnrichClasspath must not mutate its base argument")
	}
}

func TestSpockIsFlavorFile(t *testing.T) {
	s := &Spock{}
	if !s.IsFlavorFile(position.FromPath("/repo/FooSpec.groovy"), "") {
		t.Error("*Spec.groovy should match by filename")
	}
	if !s.IsFlavorFile(position.FromPath("/repo/Foo.groovy"), "class Foo extends Specification {}") {
		t.Error("extends Specification should match by content marker")
	}
	if s.IsFlavorFile(position.FromPath("/repo/Foo.groovy"), "class Foo {}") {
		t.Error("plain class should not match")
	}
}

func parseModel(t *testing.T, uri position.URI, src string) *ast.AstModel {
	t.Helper()
	p := gparse.ParseCompilationUnit(strings.NewReader(src), gparse.WithPositions())
	return ast.Record(uri, p.Finish())
}

func TestSpockIsFlavorAST(t *testing.T) {
	s := &Spock{}
	uri := position.FromPath("/repo/FooTest.groovy")

	spec := parseModel(t, uri, `class FooTest extends spock.lang.Specification {
  def setup() {
  }
}`)
	if !s.IsFlavorAST(uri, spec) {
		t.Error("class extending spock.lang.Specification should match")
	}

	plain := parseModel(t, uri, `class FooTest extends GroovyTestCase {}`)
	if s.IsFlavorAST(uri, plain) {
		t.Error("class extending GroovyTestCase should not match")
	}
}

func TestSpockEarlyPhaseCompile(t *testing.T) {
	s := &Spock{}
	if !s.EarlyPhaseCompile() {
		t.Error("Spock specs require early-phase compilation for block labels")
	}
	j := &Jenkins{}
	if j.EarlyPhaseCompile() {
		t.Error("Jenkins has no early-phase requirement")
	}
}

func TestRegistryEnrichClasspathCombinesMatchingDetectors(t *testing.T) {
	r := NewRegistry(
		&Jenkins{LibraryJars: []string{"shared.jar"}},
		&Spock{SpockCoreJar: "spock-core.jar"},
	)

	got := r.EnrichClasspath(position.FromPath("/repo/FooSpec.groovy"), "", []string{"base.jar"})
	if len(got) != 2 || got[1] != "spock-core.jar" {
		t.Errorf("EnrichClasspath for a Spock file = %v, want base.jar + spock-core.jar only", got)
	}
}

func TestRegistryDetectorsForReturnsAllMatches(t *testing.T) {
	r := NewRegistry(&Jenkins{}, &Spock{})
	matched := r.DetectorsFor(position.FromPath("/repo/Jenkinsfile"), "")
	if len(matched) != 1 || matched[0].Name() != "jenkins" {
		t.Errorf("DetectorsFor(Jenkinsfile) = %v, want [jenkins]", matched)
	}
}

func TestRegistryDetectors(t *testing.T) {
	j := &Jenkins{}
	s := &Spock{}
	r := NewRegistry(j, s)
	got := r.Detectors()
	if len(got) != 2 {
		t.Fatalf("Detectors() returned %d entries, want 2", len(got))
	}
	got[0] = nil
	if r.Detectors()[0] == nil {
		t.Error("Detectors() must return a defensive copy")
	}
}
