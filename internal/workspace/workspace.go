// Package workspace implements the WorkspaceManager: tracking the
// workspace root, resolved dependencies, source directories, and the set of
// workspace source files of interest, and answering "what is the effective
// classpath for this file" by consulting the configured flavor detectors.
package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/albertocavalcante/groovy-lsp/internal/flavor"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

// sourceExtensions lists the file suffixes InitializeWorkspace treats as
// Groovy-family sources worth indexing (including Gradle's own Groovy DSL
// build scripts, which the core parses the same way it parses any other
// .groovy file).
var sourceExtensions = []string{".groovy", ".gradle", ".gvy", ".gy"}

// Manager is the process-wide WorkspaceManager. One Manager instance
// exists per server process, created at startup and torn down at exit.
type Manager struct {
	mu sync.RWMutex

	root         string
	dependencies []string
	sourceDirs   []string
	sources      []position.URI

	flavors *flavor.Registry
}

// New constructs a Manager. flavors may be nil (no flavor enrichment).
func New(flavors *flavor.Registry) *Manager {
	return &Manager{flavors: flavors}
}

// ClasspathForFile returns the effective classpath for uri: workspace
// dependencies and source roots, enriched additively by any flavor
// detector that claims this file. Satisfies compiler.WorkspaceModel.
func (m *Manager) ClasspathForFile(uri position.URI, content string) []string {
	m.mu.RLock()
	base := make([]string, 0, len(m.dependencies)+len(m.sourceDirs))
	base = append(base, m.dependencies...)
	base = append(base, m.sourceDirs...)
	m.mu.RUnlock()

	if m.flavors == nil {
		return base
	}
	return m.flavors.EnrichClasspath(uri, content, base)
}

// SourceRoots returns the workspace's configured source directories.
func (m *Manager) SourceRoots() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.sourceDirs...)
}

// WorkspaceSources returns every file of interest the workspace currently
// tracks.
func (m *Manager) WorkspaceSources() []position.URI {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]position.URI(nil), m.sources...)
}

// DependencyClasspath returns the workspace's resolved dependency list on
// its own, independent of any per-file flavor enrichment.
func (m *Manager) DependencyClasspath() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.dependencies...)
}

// Root returns the workspace root directory.
func (m *Manager) Root() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root
}

// UpdateWorkspaceModel replaces the workspace's root/dependencies/source
// directories and reports whether anything actually changed (by set
// equality) so callers (CompilationService.UpdateWorkspaceModel) know
// whether to invalidate caches.
func (m *Manager) UpdateWorkspaceModel(root string, deps, sourceDirs []string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := root != m.root || !setEqual(deps, m.dependencies) || !setEqual(sourceDirs, m.sourceDirs)
	m.root = root
	m.dependencies = append([]string(nil), deps...)
	m.sourceDirs = append([]string(nil), sourceDirs...)
	return changed
}

// InitializeWorkspace walks root looking for Groovy-family source files and
// records them as WorkspaceSources, and records root's conventional source
// directories (src/main/groovy, src/test/groovy, src/main/java) if present.
func (m *Manager) InitializeWorkspace(root string) error {
	var sources []position.URI
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !isSourceFile(path) {
			return nil
		}
		sources = append(sources, position.FromPath(path))
		return nil
	})
	if err != nil {
		return err
	}

	var dirs []string
	for _, candidate := range []string{
		filepath.Join(root, "src", "main", "groovy"),
		filepath.Join(root, "src", "test", "groovy"),
		filepath.Join(root, "src", "main", "java"),
	} {
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
			dirs = append(dirs, candidate)
		}
	}

	m.mu.Lock()
	m.root = root
	m.sources = sources
	if len(dirs) > 0 {
		m.sourceDirs = dirs
	}
	m.mu.Unlock()
	return nil
}

// JenkinsConfig configures Jenkins-flavor initialization: the shared
// library directory GDSL/classpath entries are drawn from.
type JenkinsConfig struct {
	WorkspaceRoot     string
	SharedLibraryDirs []string
}

// InitializeJenkinsWorkspace runs InitializeWorkspace and additionally
// registers a flavor.Jenkins detector pre-populated with JAR/GDSL library
// paths discovered under cfg.SharedLibraryDirs, so Jenkinsfiles and shared
// library scripts in this workspace get the pipeline classpath additions
// from the very first compile.
func (m *Manager) InitializeJenkinsWorkspace(cfg JenkinsConfig) error {
	if err := m.InitializeWorkspace(cfg.WorkspaceRoot); err != nil {
		return err
	}

	var libJars []string
	for _, dir := range cfg.SharedLibraryDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".jar") {
				libJars = append(libJars, filepath.Join(dir, e.Name()))
			}
		}
	}

	jenkins := &flavor.Jenkins{LibraryJars: libJars}
	m.mu.Lock()
	if m.flavors == nil {
		m.flavors = flavor.NewRegistry(jenkins)
	} else {
		m.flavors = flavor.NewRegistry(append(m.flavors.Detectors(), jenkins)...)
	}
	m.mu.Unlock()
	return nil
}

// isSourceFile reports whether path is a Groovy-family source worth
// tracking: a recognized extension, or a Jenkinsfile (extensionless by
// convention).
func isSourceFile(path string) bool {
	if filepath.Base(path) == "Jenkinsfile" {
		return true
	}
	ext := filepath.Ext(path)
	for _, want := range sourceExtensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// setEqual reports whether a and b contain the same elements, ignoring
// order and duplicates.
func setEqual(a, b []string) bool {
	// Differing lengths can still be set-equal when duplicates are present,
	// so no length short-circuit here.
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	da := dedupe(sa)
	db := dedupe(sb)
	if len(da) != len(db) {
		return false
	}
	for i := range da {
		if da[i] != db[i] {
			return false
		}
	}
	return true
}

func dedupe(sorted []string) []string {
	out := sorted[:0:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
