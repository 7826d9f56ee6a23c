// Package gradleresolve is the Gradle-side dependency resolver: it
// produces the same WorkspaceResolution shape internal/pom does, but for
// build.gradle / build.gradle.kts projects instead of pom.xml ones.
// Gradle's Groovy/Kotlin DSL build files are full programs in general, but
// dependency enumeration does not need to evaluate them: this line-scans
// the conventional `dependencies { ... }` block the overwhelming majority
// of real build files use, working directly against the textual format
// rather than executing anything.
package gradleresolve

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/albertocavalcante/groovy-lsp/internal/pom"
)

// configurationsResolvingToCompileClasspath lists the Gradle dependency
// configurations this resolver treats as contributing to the effective
// compile-time classpath a Groovy file needs for resolution (the Gradle
// analogue of pom.ScopeCompile/ScopeRuntime).
var configurationsResolvingToCompileClasspath = map[string]bool{
	"implementation":     true,
	"api":                true,
	"compile":            true,
	"compileOnly":        true,
	"runtimeOnly":        true,
	"runtime":            true,
	"testImplementation": true,
}

// dependencyLineRE matches one `configuration 'group:artifact:version'` (or
// double-quoted) declaration line, the overwhelming majority shape of a
// Gradle Groovy-DSL dependencies block. Kotlin DSL's
// `implementation("group:artifact:version")` call-syntax form is matched by
// dependencyCallRE below.
var dependencyLineRE = regexp.MustCompile(`^\s*(\w+)\s+['"]([\w.\-]+):([\w.\-]+):([\w.\-]+)['"]`)
var dependencyCallRE = regexp.MustCompile(`^\s*(\w+)\s*\(\s*['"]([\w.\-]+):([\w.\-]+):([\w.\-]+)['"]\s*\)`)

// Coordinate is one scanned Gradle dependency declaration.
type Coordinate struct {
	Configuration string
	GroupID       string
	ArtifactID    string
	Version       string
}

// Resolver scans build.gradle/build.gradle.kts for declared dependency
// coordinates and translates them into local Maven-repository-layout JAR
// paths, the same addressing scheme internal/pom.ProjectResolver uses, so
// internal/workspace can treat either backend's output uniformly.
type Resolver struct {
	repoDir string // local Maven-style repo root dependencies resolve into
}

// New constructs a Resolver. repoDir defaults to "$HOME/.m2/repository"
// (matching the conventional Maven local repo both Gradle and Maven
// populate) when empty.
func New(repoDir string) *Resolver {
	if repoDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			repoDir = filepath.Join(home, ".m2", "repository")
		}
	}
	return &Resolver{repoDir: repoDir}
}

// IsProjectRoot reports whether dir looks like a Gradle project root.
func IsProjectRoot(dir string) bool {
	for _, name := range []string{"build.gradle", "build.gradle.kts", "settings.gradle", "settings.gradle.kts"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// Resolve scans projectDir's build file(s) for declared coordinates and
// returns their local-repository JAR paths plus Gradle's conventional
// source directories. It never contacts a repository over the network:
// unlike internal/pom.ProjectResolver, coordinates are assumed already
// present in the local Maven cache (the common case once a project has been
// built at least once with Gradle itself); each coordinate's JAR path is
// listed whether or not the file exists there, and nothing is downloaded.
func (r *Resolver) Resolve(ctx context.Context, projectDir string) (*pom.WorkspaceResolution, error) {
	coords, err := r.scan(ctx, projectDir)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(coords))
	for _, c := range coords {
		if !configurationsResolvingToCompileClasspath[c.Configuration] {
			continue
		}
		paths = append(paths, r.jarPath(c))
	}

	return &pom.WorkspaceResolution{
		Dependencies: paths,
		SourceDirectories: []string{
			filepath.Join(projectDir, "src", "main", "groovy"),
			filepath.Join(projectDir, "src", "main", "java"),
			filepath.Join(projectDir, "src", "test", "groovy"),
		},
	}, nil
}

func (r *Resolver) jarPath(c Coordinate) string {
	groupPath := strings.ReplaceAll(c.GroupID, ".", string(filepath.Separator))
	fileName := fmt.Sprintf("%s-%s.jar", c.ArtifactID, c.Version)
	return filepath.Join(r.repoDir, groupPath, c.ArtifactID, c.Version, fileName)
}

// scan reads every build.gradle/build.gradle.kts under projectDir's root
// (not recursively into subprojects; one file, one parse unit, mirroring
// the core's own non-recursive-per-file discipline) and extracts
// dependency coordinates line by line.
func (r *Resolver) scan(ctx context.Context, projectDir string) ([]Coordinate, error) {
	var coords []Coordinate
	for _, name := range []string{"build.gradle", "build.gradle.kts"} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(projectDir, name)
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		coords = append(coords, scanFile(f)...)
		f.Close()
	}
	return coords, nil
}

func scanFile(f *os.File) []Coordinate {
	var coords []Coordinate
	inDependencies := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "dependencies"):
			inDependencies = true
			continue
		case inDependencies && trimmed == "}":
			inDependencies = false
			continue
		}
		if !inDependencies {
			continue
		}
		if m := dependencyLineRE.FindStringSubmatch(line); m != nil {
			coords = append(coords, Coordinate{Configuration: m[1], GroupID: m[2], ArtifactID: m[3], Version: m[4]})
			continue
		}
		if m := dependencyCallRE.FindStringSubmatch(line); m != nil {
			coords = append(coords, Coordinate{Configuration: m[1], GroupID: m[2], ArtifactID: m[3], Version: m[4]})
		}
	}
	return coords
}
