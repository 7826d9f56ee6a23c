package gradleresolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sampleBuildGradle = `plugins {
    id 'groovy'
}

dependencies {
    implementation 'org.codehaus.groovy:groovy:4.0.21'
    testImplementation "org.spockframework:spock-core:2.3-groovy-4.0"
    compileOnly 'org.projectlombok:lombok:1.18.30'
}
`

func writeProject(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "build.gradle"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestIsProjectRoot(t *testing.T) {
	dir := writeProject(t, sampleBuildGradle)
	if !IsProjectRoot(dir) {
		t.Error("expected a directory with build.gradle to be recognized as a project root")
	}
	if IsProjectRoot(t.TempDir()) {
		t.Error("an empty directory should not be recognized as a project root")
	}
}

func TestResolveExtractsCompileClasspathCoordinates(t *testing.T) {
	dir := writeProject(t, sampleBuildGradle)
	r := New(filepath.Join(dir, "repo"))

	resolution, err := r.Resolve(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(resolution.Dependencies) != 3 {
		t.Fatalf("Dependencies = %v, want 3 entries", resolution.Dependencies)
	}

	want := filepath.Join(dir, "repo", "org", "codehaus", "groovy", "groovy", "4.0.21", "groovy-4.0.21.jar")
	found := false
	for _, d := range resolution.Dependencies {
		if d == want {
			found = true
		}
	}
	if !found {
		t.Errorf("Dependencies = %v, want to contain %s", resolution.Dependencies, want)
	}
}

func TestResolveIgnoresLinesOutsideDependenciesBlock(t *testing.T) {
	dir := writeProject(t, `dependencies {
}
implementation 'should.not:be.picked:1.0'
`)
	r := New(filepath.Join(dir, "repo"))

	resolution, err := r.Resolve(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolution.Dependencies) != 0 {
		t.Errorf("Dependencies = %v, want none (declaration is outside the block)", resolution.Dependencies)
	}
}

func TestResolveHonorsContextCancellation(t *testing.T) {
	dir := writeProject(t, sampleBuildGradle)
	r := New(filepath.Join(dir, "repo"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Resolve(ctx, dir); err == nil {
		t.Error("expected an error from a cancelled context")
	}
}
