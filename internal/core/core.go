// Package core wires the compiler, resolve, classpath, workspace, flavor,
// pom, gradleresolve, and depmanager packages into the single aggregator
// object Core: the one entry point feature providers (and
// internal/lspserver) call instead of touching any one subsystem directly.
package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/albertocavalcante/groovy-lsp/internal/ast"
	"github.com/albertocavalcante/groovy-lsp/internal/classpath"
	"github.com/albertocavalcante/groovy-lsp/internal/compiler"
	"github.com/albertocavalcante/groovy-lsp/internal/depmanager"
	"github.com/albertocavalcante/groovy-lsp/internal/flavor"
	"github.com/albertocavalcante/groovy-lsp/internal/gradleresolve"
	"github.com/albertocavalcante/groovy-lsp/internal/pom"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
	"github.com/albertocavalcante/groovy-lsp/internal/resolve"
	"github.com/albertocavalcante/groovy-lsp/internal/workspace"
)

// Core aggregates every port feature providers need behind one object
// (compile, resolve, classpath and symbol lookup) plus the
// dependency/workspace lifecycle operations that back them.
type Core struct {
	Compiler    *compiler.CompilationService
	Resolver    *resolve.Resolver
	Classpath   *classpath.ClasspathService
	Workspace   *workspace.Manager
	DepManager  *depmanager.Manager
	Centralized *depmanager.CentralizedDependencyManager

	sourceWatcher *workspace.SourceWatcher
	root          string

	errMu   sync.Mutex
	onError depmanager.ErrorCallback
}

// Options configures New.
type Options struct {
	// SymbolIndexCapacity bounds compiler.CompilationService's per-file
	// symbol-index side cache. Zero uses the package default (100).
	SymbolIndexCapacity int
	// Flavors are the flavor detectors active for this workspace. Nil
	// disables flavor-aware classpath enrichment.
	Flavors []flavor.Detector
}

// New constructs a Core bound to no workspace yet; call Open to point it at
// a project root.
func New(opts Options) *Core {
	var registry *flavor.Registry
	if len(opts.Flavors) > 0 {
		registry = flavor.NewRegistry(opts.Flavors...)
	}

	ws := workspace.New(registry)
	cp := classpath.New()

	var compilerOpts []compiler.Option
	if opts.SymbolIndexCapacity > 0 {
		compilerOpts = append(compilerOpts, compiler.WithSymbolIndexCapacity(opts.SymbolIndexCapacity))
	}
	comp := compiler.New(compiler.NewGparseParser(), ws, cp, compilerOpts...)

	c := &Core{
		Compiler:    comp,
		Resolver:    resolve.New(comp),
		Classpath:   cp,
		Workspace:   ws,
		DepManager:  depmanager.New(nil),
		Centralized: depmanager.NewCentralizedDependencyManager(),
	}

	// Every dependency-set change fans out through the hub. Listeners run
	// serially in registration order, so the classpath index is rebuilt
	// before the compiler drops its caches and classloader: the first
	// compile after a change consults a fresh index.
	c.Centralized.AddListener(func(deps []string) {
		if err := c.Classpath.Rebuild(deps); err != nil {
			c.reportError(fmt.Errorf("rebuild classpath index: %w", err))
		}
	})
	c.Centralized.AddListener(func([]string) {
		c.Compiler.ClearCaches()
	})

	return c
}

// reportError forwards err to the ErrorCallback the current Open call
// registered, if any. Hub listeners fire from resolution goroutines, after
// Open has returned, so the callback is looked up at call time.
func (c *Core) reportError(err error) {
	c.errMu.Lock()
	onError := c.onError
	c.errMu.Unlock()
	if onError != nil {
		onError(err)
	}
}

// Open points Core at root: it initializes the workspace's source set,
// probes the project layout to pick a dependency resolver backend (Maven
// POM or Gradle build script), and kicks off asynchronous dependency
// resolution. onProgress/onComplete/onError mirror
// depmanager.Manager.StartAsyncResolution's callbacks; any may be nil.
func (c *Core) Open(
	root string,
	onProgress depmanager.ProgressCallback,
	onComplete depmanager.CompleteCallback,
	onError depmanager.ErrorCallback,
) error {
	c.root = root
	c.errMu.Lock()
	c.onError = onError
	c.errMu.Unlock()
	if err := c.Workspace.InitializeWorkspace(root); err != nil {
		return fmt.Errorf("initialize workspace: %w", err)
	}

	resolver := c.pickResolver(root)
	c.DepManager = depmanager.New(resolver)

	wrappedComplete := func(res *pom.WorkspaceResolution) {
		depsSame := sameDependencySet(c.Centralized.Dependencies(), res.Dependencies)
		changed := c.Workspace.UpdateWorkspaceModel(root, res.Dependencies, res.SourceDirectories)
		c.Centralized.UpdateDependencies(res.Dependencies)
		if changed && depsSame {
			// A root or source-dir move with an unchanged dependency set
			// never reaches the hub's listeners; the compiler still has to
			// drop its caches for it.
			c.Compiler.UpdateWorkspaceModel(true)
		}
		if onComplete != nil {
			onComplete(res)
		}
	}

	c.DepManager.StartAsyncResolution(root, onProgress, wrappedComplete, onError, true)

	// On-disk edits made outside the editor invalidate the stale cache
	// entry so the next request reparses current content.
	invalidate := func(uri position.URI) { c.Compiler.InvalidateCache(uri) }
	c.sourceWatcher = workspace.NewSourceWatcher(c.Workspace, invalidate, invalidate)
	c.sourceWatcher.Start()
	return nil
}

// Close tears down the process-wide services: the source watcher stops,
// in-flight dependency resolution is cancelled, every cache is cleared,
// and the classpath index (the classloader stand-in) is closed.
func (c *Core) Close() {
	if c.sourceWatcher != nil {
		c.sourceWatcher.Stop()
		c.sourceWatcher = nil
	}
	c.errMu.Lock()
	c.onError = nil
	c.errMu.Unlock()
	c.DepManager.Cancel()
	c.Compiler.ClearCaches()
	c.Classpath.Close()
}

// pickResolver probes root for a recognized build-file layout and returns
// the matching depmanager.Resolver. Maven POM wins if both a pom.xml and a
// build.gradle exist, since a pom.xml is the more specific signal.
func (c *Core) pickResolver(root string) depmanager.Resolver {
	if pom.IsProjectRoot(root) {
		return pom.NewProjectResolver()
	}
	if gradleresolve.IsProjectRoot(root) {
		return gradleresolve.New("")
	}
	return noopResolver{}
}

// sameDependencySet reports whether a and b contain the same entries,
// ignoring order: the same equality the hub itself applies before deciding
// to broadcast.
func sameDependencySet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

// noopResolver backs workspaces with no recognized build file: it returns
// an empty classpath and no source directories.
type noopResolver struct{}

func (noopResolver) Resolve(ctx context.Context, projectDir string) (*pom.WorkspaceResolution, error) {
	return &pom.WorkspaceResolution{}, nil
}

// EnsureCompiled is the ensure_compiled port: it returns uri's cached
// result, first waiting for a compile of uri that is in flight. It does not
// compile or read the file itself, and returns (nil, nil) when nothing is
// cached or in flight.
func (c *Core) EnsureCompiled(ctx context.Context, uri position.URI) (*compiler.ParseResult, error) {
	return c.Compiler.EnsureCompiled(ctx, uri)
}

// AstModel is the ast_model port.
func (c *Core) AstModel(uri position.URI) *ast.AstModel {
	return c.Compiler.Ast(uri)
}

// SymbolStorage is the symbol_storage port.
func (c *Core) SymbolStorage(uri position.URI) *ast.SymbolIndex {
	return c.Compiler.SymbolStorage(uri)
}

// AllSymbolStorages is the all_symbol_storages port.
func (c *Core) AllSymbolStorages() map[position.URI]*ast.SymbolIndex {
	return c.Compiler.AllSymbolStorages()
}

// FindClasspathClass is the find_classpath_class port.
func (c *Core) FindClasspathClass(fqcn string) (position.URI, bool) {
	return c.Compiler.FindClasspathClass(fqcn)
}

// FindDefinitionAt is the find_definition_at port.
func (c *Core) FindDefinitionAt(uri position.URI, pos position.Position) (*resolve.DefinitionResult, *resolve.ResolutionError) {
	return c.Resolver.FindDefinitionAt(uri, pos)
}

// FindTargetsAt is the find_targets_at port.
func (c *Core) FindTargetsAt(uri position.URI, pos position.Position, kinds []resolve.TargetKind) ([]resolve.DefinitionResult, *resolve.ResolutionError) {
	return c.Resolver.FindTargetsAt(uri, pos, kinds)
}

// Root returns the workspace root Open was last called with.
func (c *Core) Root() string {
	return c.root
}
