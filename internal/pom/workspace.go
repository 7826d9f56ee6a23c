package pom

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorkspaceResolution is the output shape every dependency-resolver backend
// (this package and internal/gradleresolve) produces: a flat dependency
// classpath plus the project's source directories.
type WorkspaceResolution struct {
	Dependencies      []string
	SourceDirectories []string
}

// ProjectResolver resolves a pom.xml-rooted Maven project into a
// WorkspaceResolution: parse the root POM, resolve its transitive
// dependency graph, and translate each resolved coordinate into its local
// Maven-repository JAR path.
type ProjectResolver struct {
	resolver *Resolver
	repoDir  string // local Maven repository the JAR paths point into
}

// NewProjectResolver wires a MavenFetcher and a Resolver together as a
// reusable resolver implementation internal/depmanager can drive. Resolved
// JAR paths point into the conventional "$HOME/.m2/repository" local repo.
func NewProjectResolver() *ProjectResolver {
	fetcher := NewMavenFetcher()
	repoDir := ""
	if home, err := os.UserHomeDir(); err == nil {
		repoDir = filepath.Join(home, ".m2", "repository")
	}
	return &ProjectResolver{resolver: NewResolver(fetcher), repoDir: repoDir}
}

// Resolve reads projectDir/pom.xml, resolves its dependency graph, and
// returns the local-repository JAR paths plus Maven's conventional source
// directories (honoring an explicit <build><sourceDirectory> override).
func (pr *ProjectResolver) Resolve(ctx context.Context, projectDir string) (*WorkspaceResolution, error) {
	pomPath := filepath.Join(projectDir, "pom.xml")
	data, err := os.ReadFile(pomPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pomPath, err)
	}

	var project Project
	if err := xml.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("parse %s: %w", pomPath, err)
	}

	deps, err := pr.resolver.ResolveContext(ctx, &project)
	if err != nil {
		return nil, fmt.Errorf("resolve dependencies: %w", err)
	}

	paths := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep.Type != "" && dep.Type != "jar" {
			continue
		}
		paths = append(paths, pr.jarPath(dep))
	}

	return &WorkspaceResolution{
		Dependencies:      paths,
		SourceDirectories: sourceDirectories(projectDir, &project),
	}, nil
}

// jarPath maps a resolved coordinate to its local-repository JAR location,
// the same repository-layout addressing the Gradle resolver uses.
func (pr *ProjectResolver) jarPath(dep ResolvedDependency) string {
	groupPath := strings.ReplaceAll(dep.GroupID, ".", string(filepath.Separator))
	fileName := dep.ArtifactID + "-" + dep.Version + ".jar"
	if dep.Classifier != "" {
		fileName = dep.ArtifactID + "-" + dep.Version + "-" + dep.Classifier + ".jar"
	}
	return filepath.Join(pr.repoDir, groupPath, dep.ArtifactID, dep.Version, fileName)
}

// IsProjectRoot reports whether dir looks like a Maven project root.
func IsProjectRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "pom.xml"))
	return err == nil
}

func sourceDirectories(projectDir string, project *Project) []string {
	main := filepath.Join(projectDir, "src", "main", "java")
	test := filepath.Join(projectDir, "src", "test", "java")
	if project.Build != nil && project.Build.SourceDirectory != "" {
		main = resolveRelative(projectDir, project.Build.SourceDirectory)
	}
	if project.Build != nil && project.Build.TestSourceDirectory != "" {
		test = resolveRelative(projectDir, project.Build.TestSourceDirectory)
	}
	return []string{main, test}
}

func resolveRelative(projectDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectDir, path)
}
