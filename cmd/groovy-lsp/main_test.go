package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveWorkspacePicksMavenWhenPomPresent(t *testing.T) {
	dir := t.TempDir()
	pomXML := `<project>
  <modelVersion>4.0.0</modelVersion>
  <groupId>com.example</groupId>
  <artifactId>demo</artifactId>
  <version>1.0</version>
</project>`
	if err := os.WriteFile(filepath.Join(dir, "pom.xml"), []byte(pomXML), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := resolveWorkspace(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if res == nil {
		t.Fatal("resolveWorkspace returned a nil resolution for a valid pom.xml project")
	}
}

func TestResolveWorkspacePicksGradleWhenBuildFilePresent(t *testing.T) {
	dir := t.TempDir()
	build := `dependencies {
    implementation 'org.codehaus.groovy:groovy:4.0.21'
}`
	if err := os.WriteFile(filepath.Join(dir, "build.gradle"), []byte(build), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := resolveWorkspace(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Dependencies) != 1 {
		t.Errorf("Dependencies = %v, want 1 extracted coordinate", res.Dependencies)
	}
}

func TestResolveWorkspaceErrorsWithNoRecognizedBuildFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := resolveWorkspace(context.Background(), dir); err == nil {
		t.Error("expected an error for a directory with no pom.xml or build.gradle(.kts)")
	}
}

func TestParseCommandDumpsSyntaxTreeJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.groovy")
	src := `def greet = { name -> "Hi ${name}" }`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newParseCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{`"CompilationUnit"`, `"ClosureExpr"`, `"GStringExpr"`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("parse output missing %s:\n%s", want, out.String())
		}
	}
}

func TestParseCommandErrorsOnMissingFile(t *testing.T) {
	cmd := newParseCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.groovy")})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for a nonexistent file")
	}
}

func TestResolveWorkspacePrefersPomOverGradleWhenBothPresent(t *testing.T) {
	dir := t.TempDir()
	pomXML := `<project>
  <modelVersion>4.0.0</modelVersion>
  <groupId>com.example</groupId>
  <artifactId>demo</artifactId>
  <version>1.0</version>
</project>`
	if err := os.WriteFile(filepath.Join(dir, "pom.xml"), []byte(pomXML), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "build.gradle"), []byte("dependencies {}"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := resolveWorkspace(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if res == nil {
		t.Fatal("expected a resolution result")
	}
}
