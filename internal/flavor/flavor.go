// Package flavor implements flavor detection: recognizing that a file
// belongs to a domain-specific Groovy dialect (a Jenkins pipeline, a Spock
// specification) and enriching its classpath accordingly. Detection is
// two-hook (a fast filename/content heuristic, then an AST-aware
// refinement once a parse exists) and enrichment is additive only.
package flavor

import (
	"strings"

	"github.com/albertocavalcante/groovy-lsp/internal/ast"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

// Detector is the flavor-detection boundary feature providers and
// internal/workspace consume: a fast filename/content heuristic usable
// before any AST exists, an AST-aware refinement usable once one does, and
// an additive-only classpath enrichment.
type Detector interface {
	Name() string
	// IsFlavorFile runs the fast heuristic: filename plus a shallow content
	// marker scan, with no AST required.
	IsFlavorFile(uri position.URI, content string) bool
	// IsFlavorAST runs a more precise check once a model is available
	// (e.g. Spock's "extends Specification" superclass check). Detectors
	// that have nothing more precise to say than IsFlavorFile return its
	// result unchanged.
	IsFlavorAST(uri position.URI, model *ast.AstModel) bool
	// EnrichClasspath returns base plus any flavor-specific additions
	// (shared-library JARs, spock-core, GDSL-derived libraries). It never
	// removes an entry from base.
	EnrichClasspath(base []string) []string
	// EarlyPhaseCompile reports whether files this detector claims should
	// be compiled at an earlier phase than the default (Spock's
	// given:/when:/then: labels are rewritten away by later phases).
	EarlyPhaseCompile() bool
}

// Jenkins claims a file by filename (Jenkinsfile, *.Jenkinsfile, or any
// .groovy file under a vars/ or src/ directory; no further shared-library
// layout check is made) or, failing that, by a shallow content-marker scan
// for pipeline-DSL top-level calls.
type Jenkins struct {
	// LibraryJars are additional JARs (a configured GDSL/shared-library
	// directory's contents) folded into the classpath for files this
	// detector claims.
	LibraryJars []string
}

func (j *Jenkins) Name() string { return "jenkins" }

func (j *Jenkins) IsFlavorFile(uri position.URI, content string) bool {
	path := uri.Path()
	base := lastSegment(path)
	if base == "Jenkinsfile" || strings.HasSuffix(base, ".Jenkinsfile") {
		return true
	}
	if isSharedLibraryPath(path) {
		return true
	}
	return hasAnyMarker(content, "@Library(", "pipeline {", "node {", "node('", `node("`)
}

func (j *Jenkins) IsFlavorAST(uri position.URI, model *ast.AstModel) bool {
	// No AST-level refinement beyond the filename heuristic: a pipeline
	// script's top-level "pipeline { ... }" call has no distinct node kind
	// in this grammar (it parses as an ordinary method call), and this hook
	// receives no source text for the content-marker scan, so it returns
	// IsFlavorFile's filename-only result.
	return model != nil && j.IsFlavorFile(uri, "")
}

func (j *Jenkins) EnrichClasspath(base []string) []string {
	return append(append([]string{}, base...), j.LibraryJars...)
}

func (j *Jenkins) EarlyPhaseCompile() bool { return false }

func isSharedLibraryPath(path string) bool {
	hasVars := strings.Contains(path, "/vars/")
	hasSrcUnderLib := strings.Contains(path, "/src/") && (strings.Contains(path, "/vars/") || strings.HasSuffix(path, ".groovy"))
	return (hasVars || hasSrcUnderLib) && strings.HasSuffix(path, ".groovy")
}

// Spock detects Spock specification files: *Spec.groovy by filename, or,
// once an AST exists, a class whose extends clause names "Specification"
// (including the common "spock.lang.Specification" qualified form).
type Spock struct {
	// SpockCoreJar, if non-empty, is folded into the classpath for files
	// this detector claims.
	SpockCoreJar string
}

func (s *Spock) Name() string { return "spock" }

func (s *Spock) IsFlavorFile(uri position.URI, content string) bool {
	base := lastSegment(uri.Path())
	if strings.HasSuffix(base, "Spec.groovy") {
		return true
	}
	return hasAnyMarker(content, "extends Specification", "spock.lang.Specification")
}

func (s *Spock) IsFlavorAST(uri position.URI, model *ast.AstModel) bool {
	if model == nil {
		return false
	}
	for _, id := range model.AllClassNodes() {
		name := model.SuperclassName(id)
		if name == "Specification" || strings.HasSuffix(name, ".Specification") {
			return true
		}
	}
	return false
}

func (s *Spock) EnrichClasspath(base []string) []string {
	if s.SpockCoreJar == "" {
		return base
	}
	return append(append([]string{}, base...), s.SpockCoreJar)
}

// EarlyPhaseCompile is true for Spock: its given:/when:/then: block labels
// are ordinary labeled statements that a later compile phase rewrites into
// closures, so feature providers that need to see the labels as written
// (e.g. for block-aware hover/completion) must request an earlier phase
// via compiler.CompileTransient.
func (s *Spock) EarlyPhaseCompile() bool { return true }

func hasAnyMarker(content string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Registry holds every configured Detector and answers "does any flavor
// claim this file" / "what's the combined classpath enrichment" queries
// for internal/workspace.
type Registry struct {
	detectors []Detector
}

func NewRegistry(detectors ...Detector) *Registry {
	return &Registry{detectors: detectors}
}

// Detectors returns every configured Detector, in registration order.
func (r *Registry) Detectors() []Detector {
	return append([]Detector(nil), r.detectors...)
}

// DetectorsFor returns every configured Detector that claims uri/content via
// the fast heuristic.
func (r *Registry) DetectorsFor(uri position.URI, content string) []Detector {
	var matched []Detector
	for _, d := range r.detectors {
		if d.IsFlavorFile(uri, content) {
			matched = append(matched, d)
		}
	}
	return matched
}

// EnrichClasspath folds every matching detector's additions into base, in
// registration order.
func (r *Registry) EnrichClasspath(uri position.URI, content string, base []string) []string {
	out := base
	for _, d := range r.DetectorsFor(uri, content) {
		out = d.EnrichClasspath(out)
	}
	return out
}
