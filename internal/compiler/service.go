package compiler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/albertocavalcante/groovy-lsp/internal/ast"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

var log = commonlog.GetLogger("groovy-lsp.compiler")

// ClasspathIndex is the subset of internal/classpath's ClasspathService the
// compiler needs: resolving a fully qualified class name to the URI of the
// .class member (in a JAR, or on disk) that defines it.
type ClasspathIndex interface {
	FindClass(fqcn string) (position.URI, bool)
	Close()
}

// WorkspaceModel is the subset of internal/workspace's WorkspaceManager the
// compiler needs: the effective classpath for a given file, consulting
// flavor detectors along the way.
type WorkspaceModel interface {
	ClasspathForFile(uri position.URI, content string) []string
	SourceRoots() []string
	WorkspaceSources() []position.URI
}

type cacheKey struct {
	uri  string
	hash string
}

// CompilationService is the cache-backed, phase-aware, concurrently
// coordinated front end turning a (uri, content) pair into a ParseResult.
// Concurrent compiles of the same URI with the same content coalesce onto
// one in-flight parse via a per-URI single-flight job table; compiles of
// different content for the same URI are not coalesced and may run side by
// side. Workspace indexing fans out in errgroup-bounded batches.
type CompilationService struct {
	mu         sync.RWMutex
	cache      map[cacheKey]*ParseResult
	latestHash map[string]string // uri -> most recently stored content hash

	symbolIdx *symbolLRU // uri -> *ast.SymbolIndex, independent of the parse cache's eviction

	jobsMu   sync.Mutex
	jobs     map[string]*singleflight.Group // one group per uri so keys stay short
	inFlight map[string]bool

	parser    Parser
	workspace WorkspaceModel
	classpath ClasspathIndex

	classLoaderMu sync.Mutex
	classLoader   ClasspathIndex // lazily populated alias of classpath, torn down on dependency change
}

// Option configures a CompilationService at construction time.
type Option func(*CompilationService)

// WithSymbolIndexCapacity overrides the default 100-entry SymbolIndex LRU
// capacity.
func WithSymbolIndexCapacity(n int) Option {
	return func(s *CompilationService) { s.symbolIdx = newSymbolLRU(n) }
}

// New constructs a CompilationService. parser has no default and must be
// non-nil (production passes NewGparseParser()); tests substitute a counting
// fake to verify the single-flight/cache invariants.
func New(parser Parser, workspace WorkspaceModel, classpath ClasspathIndex, opts ...Option) *CompilationService {
	s := &CompilationService{
		cache:      make(map[cacheKey]*ParseResult),
		latestHash: make(map[string]string),
		symbolIdx:  newSymbolLRU(100),
		jobs:       make(map[string]*singleflight.Group),
		inFlight:   make(map[string]bool),
		parser:     parser,
		workspace:  workspace,
		classpath:  classpath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CompilationService) groupFor(uri string) *singleflight.Group {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	g, ok := s.jobs[uri]
	if !ok {
		g = &singleflight.Group{}
		s.jobs[uri] = g
	}
	return g
}

// Compile looks up (uri, hash(content)) in the cache; on hit it returns
// immediately without invoking the parser. On miss it resolves the
// effective classpath, invokes the parser, stores the result, and returns
// it. The cache key deliberately excludes phase: a file already parsed to
// a later phase satisfies an earlier-phase request from cache. Use
// CompileTransient when phase-exact results are required.
func (s *CompilationService) Compile(ctx context.Context, uri position.URI, content string, phase Phase) (*ParseResult, error) {
	key := cacheKey{uri: string(uri), hash: contentHash(content)}

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.groupFor(key.uri).Do(key.hash, func() (interface{}, error) {
		return s.doParse(ctx, uri, content, phase), nil
	})
	if err != nil {
		return nil, err
	}
	pr := result.(*ParseResult)

	s.mu.Lock()
	s.cache[key] = pr
	s.latestHash[key.uri] = key.hash
	s.mu.Unlock()
	s.symbolIdx.Put(key.uri, pr.Symbols)

	return pr, nil
}

// CompileTransient behaves like Compile but never touches the cache;
// used for speculative parses such as completion-time inserted
// placeholder identifiers.
func (s *CompilationService) CompileTransient(ctx context.Context, uri position.URI, content string, phase Phase) *ParseResult {
	return s.doParse(ctx, uri, content, phase)
}

func (s *CompilationService) doParse(ctx context.Context, uri position.URI, content string, phase Phase) *ParseResult {
	var classpath []string
	var sourceRoots []string
	var workspaceSources []string
	if s.workspace != nil {
		classpath = s.workspace.ClasspathForFile(uri, content)
		sourceRoots = s.workspace.SourceRoots()
		for _, u := range s.workspace.WorkspaceSources() {
			workspaceSources = append(workspaceSources, string(u))
		}
	}
	return s.parser.Parse(ctx, ParseRequest{
		URI: uri, Content: content, Phase: phase,
		Classpath: classpath, SourceRoots: sourceRoots, WorkspaceSources: workspaceSources,
	})
}

// Future is returned by CompileAsync: a handle onto an in-flight or
// already-completed compile.
type Future struct {
	ch <-chan singleflight.Result
}

// Await blocks until the underlying compile completes or ctx is
// cancelled/expires.
func (f *Future) Await(ctx context.Context) (*ParseResult, error) {
	select {
	case res := <-f.ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ParseResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CompileAsync starts or reuses an in-flight future in the job table,
// keyed by uri+contentHash. Concurrent callers with identical arguments
// coalesce onto the same singleflight call and observe the exact same
// ParseResult pointer.
func (s *CompilationService) CompileAsync(ctx context.Context, uri position.URI, content string) *Future {
	key := cacheKey{uri: string(uri), hash: contentHash(content)}
	group := s.groupFor(key.uri)

	s.jobsMu.Lock()
	s.inFlight[key.uri] = true
	s.jobsMu.Unlock()

	ch := group.DoChan(key.hash, func() (interface{}, error) {
		defer func() {
			s.jobsMu.Lock()
			delete(s.inFlight, key.uri)
			s.jobsMu.Unlock()
		}()
		pr := s.doParse(ctx, uri, content, PhaseCanonical)
		s.mu.Lock()
		s.cache[key] = pr
		s.latestHash[key.uri] = key.hash
		s.mu.Unlock()
		s.symbolIdx.Put(key.uri, pr.Symbols)
		return pr, nil
	})
	return &Future{ch: ch}
}

// EnsureCompiled returns the cache entry for uri if one exists, awaiting
// an in-flight compile first if one is running, retrying with a brief
// back-off if the awaited future was itself cancelled, to ride out
// rapid-fire edit cycles. Returns (nil, nil) if there is neither a cached
// result nor an in-flight job.
func (s *CompilationService) EnsureCompiled(ctx context.Context, uri position.URI) (*ParseResult, error) {
	uriStr := string(uri)

	for {
		s.jobsMu.Lock()
		inFlight := s.inFlight[uriStr]
		s.jobsMu.Unlock()

		if !inFlight {
			s.mu.RLock()
			hash, ok := s.latestHash[uriStr]
			pr := s.cache[cacheKey{uri: uriStr, hash: hash}]
			s.mu.RUnlock()
			if !ok {
				return nil, nil
			}
			return pr, nil
		}

		// A compile is running for this URI; wait for it to either land in
		// the cache or stop being in-flight (including via cancellation),
		// retrying with a brief back-off.
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Ast returns the cached AstModel for uri, or nil.
func (s *CompilationService) Ast(uri position.URI) *ast.AstModel {
	if pr := s.latest(uri); pr != nil {
		return pr.AstModel
	}
	return nil
}

// SymbolStorage returns the SymbolIndex for uri, rebuilding it from the
// cached AstModel if it fell out of the LRU.
func (s *CompilationService) SymbolStorage(uri position.URI) *ast.SymbolIndex {
	if cached, ok := s.symbolIdx.Get(string(uri)); ok && cached != nil {
		return cached.(*ast.SymbolIndex)
	}
	pr := s.latest(uri)
	if pr == nil || pr.AstModel == nil {
		return nil
	}
	idx := ast.BuildSymbolIndex(pr.AstModel)
	s.symbolIdx.Put(string(uri), idx)
	return idx
}

// AllSymbolStorages returns every cached URI's SymbolIndex; used by
// DefinitionResolver's global lookup tier.
func (s *CompilationService) AllSymbolStorages() map[position.URI]*ast.SymbolIndex {
	s.mu.RLock()
	uris := make(map[string]struct{}, len(s.latestHash))
	for u := range s.latestHash {
		uris[u] = struct{}{}
	}
	s.mu.RUnlock()

	out := make(map[position.URI]*ast.SymbolIndex, len(uris))
	for u := range uris {
		if idx := s.SymbolStorage(position.URI(u)); idx != nil {
			out[position.URI(u)] = idx
		}
	}
	return out
}

// Diagnostics returns the cached ParseResult's diagnostics for uri.
func (s *CompilationService) Diagnostics(uri position.URI) []Diagnostic {
	if pr := s.latest(uri); pr != nil {
		return pr.Diagnostics
	}
	return nil
}

func (s *CompilationService) latest(uri position.URI) *ParseResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.latestHash[string(uri)]
	if !ok {
		return nil
	}
	return s.cache[cacheKey{uri: string(uri), hash: hash}]
}

// IndexWorkspaceFile parses uri without a full compile, building only a
// SymbolIndex, and skips the work entirely if the file is already indexed.
func (s *CompilationService) IndexWorkspaceFile(ctx context.Context, uri position.URI, content string) (*ast.SymbolIndex, error) {
	if _, ok := s.symbolIdx.Get(string(uri)); ok {
		return s.SymbolStorage(uri), nil
	}
	pr, err := s.Compile(ctx, uri, content, PhaseCanonical)
	if err != nil {
		return nil, err
	}
	return pr.Symbols, nil
}

// readFile abstracts the one piece of file I/O index_all_workspace_sources
// needs, so tests can supply an in-memory source set instead of touching
// disk.
type readFile func(uri position.URI) (string, error)

// IndexAllWorkspaceSources partitions uris into batches of 10, indexing
// each batch's files in parallel (bounded by errgroup.SetLimit) and
// batches sequentially. Per-file failures are logged via onError and
// skipped; cancellation propagates immediately and aborts remaining
// batches.
func (s *CompilationService) IndexAllWorkspaceSources(ctx context.Context, uris []position.URI, read readFile, progress func(done, total int), onError func(position.URI, error)) error {
	const batchSize = 10
	total := len(uris)
	var done atomic.Int32

	for start := 0; start < len(uris); start += batchSize {
		end := start + batchSize
		if end > len(uris) {
			end = len(uris)
		}
		batch := uris[start:end]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchSize)

		for _, u := range batch {
			u := u
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				content, err := read(u)
				if err != nil {
					reportIndexError(onError, u, err)
					return nil
				}
				if _, err := s.IndexWorkspaceFile(gctx, u, content); err != nil {
					reportIndexError(onError, u, err)
				}
				if progress != nil {
					progress(int(done.Add(1)), total)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// reportIndexError logs a per-file indexing failure and forwards it to the
// caller's onError callback if one was supplied. Failures never abort the
// batch; only cancellation does.
func reportIndexError(onError func(position.URI, error), uri position.URI, err error) {
	log.Errorf("indexing %s: %v", uri, err)
	if onError != nil {
		onError(uri, err)
	}
}

// InvalidateCache removes ParseResult, SymbolIndex, and any in-flight job
// entry for uri.
func (s *CompilationService) InvalidateCache(uri position.URI) {
	uriStr := string(uri)
	s.mu.Lock()
	if hash, ok := s.latestHash[uriStr]; ok {
		delete(s.cache, cacheKey{uri: uriStr, hash: hash})
	}
	delete(s.latestHash, uriStr)
	s.mu.Unlock()

	s.symbolIdx.Evict(uriStr)

	s.jobsMu.Lock()
	delete(s.jobs, uriStr)
	delete(s.inFlight, uriStr)
	s.jobsMu.Unlock()
}

// ClearCaches invalidates every cache entry and tears down the
// classloader.
func (s *CompilationService) ClearCaches() {
	s.mu.Lock()
	s.cache = make(map[cacheKey]*ParseResult)
	uris := make([]string, 0, len(s.latestHash))
	for u := range s.latestHash {
		uris = append(uris, u)
	}
	s.latestHash = make(map[string]string)
	s.mu.Unlock()

	for _, u := range uris {
		s.symbolIdx.Evict(u)
	}

	s.jobsMu.Lock()
	s.jobs = make(map[string]*singleflight.Group)
	s.inFlight = make(map[string]bool)
	s.jobsMu.Unlock()

	s.invalidateClassLoader()
}

// FindClasspathClass locates pkg/Name.class on the dependency classpath via
// a lazily constructed, lock-guarded classloader alias, returning a
// jar:file: URI for JAR members or a file: URI for directory entries.
func (s *CompilationService) FindClasspathClass(fqcn string) (position.URI, bool) {
	s.classLoaderMu.Lock()
	defer s.classLoaderMu.Unlock()
	if s.classLoader == nil {
		s.classLoader = s.classpath
	}
	if s.classLoader == nil {
		return "", false
	}
	return s.classLoader.FindClass(fqcn)
}

func (s *CompilationService) invalidateClassLoader() {
	s.classLoaderMu.Lock()
	defer s.classLoaderMu.Unlock()
	if s.classLoader != nil {
		s.classLoader.Close()
	}
	s.classLoader = nil
}

// UpdateWorkspaceModel clears every cache and tears down the classloader
// iff changed is true. It does not update the classpath index; that rebuild
// is done by the dependency-hub listener internal/core registers. The change
// decision itself lives in internal/workspace; this just closes
// the loop when called.
func (s *CompilationService) UpdateWorkspaceModel(changed bool) {
	if !changed {
		return
	}
	s.ClearCaches()
}
