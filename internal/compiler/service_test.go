package compiler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

// countingParser records how many times Parse was invoked and optionally
// sleeps before returning, so tests can verify the cache and single-flight
// job table by counting parser calls.
type countingParser struct {
	calls int32
	sleep time.Duration
}

func (c *countingParser) Parse(ctx context.Context, req ParseRequest) *ParseResult {
	atomic.AddInt32(&c.calls, 1)
	if c.sleep > 0 {
		time.Sleep(c.sleep)
	}
	return &ParseResult{
		URI: req.URI, Content: req.Content, ContentHash: contentHash(req.Content),
		Phase: req.Phase, Successful: true,
	}
}

func TestCompileCacheHitAvoidsSecondParserInvocation(t *testing.T) {
	p := &countingParser{}
	svc := New(p, nil, nil)
	ctx := context.Background()

	if _, err := svc.Compile(ctx, position.URI("file:///a.groovy"), "def x = 1", PhaseCanonical); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Compile(ctx, position.URI("file:///a.groovy"), "def x = 1", PhaseCanonical); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt32(&p.calls); got != 1 {
		t.Fatalf("parser invoked %d times, want 1 (cache hit expected)", got)
	}
}

func TestCompileAsyncConcurrentCallsCoalesce(t *testing.T) {
	p := &countingParser{sleep: 200 * time.Millisecond}
	svc := New(p, nil, nil)
	ctx := context.Background()

	const n = 10
	results := make([]*ParseResult, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			f := svc.CompileAsync(ctx, position.URI("file:///b.groovy"), "class Foo {}")
			pr, err := f.Await(ctx)
			if err != nil {
				t.Errorf("Await() error: %v", err)
				return
			}
			results[i] = pr
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&p.calls); got != 1 {
		t.Fatalf("parser invoked %d times, want exactly 1", got)
	}
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("result %d is a different ParseResult pointer than result 0", i)
		}
	}
}

func TestInvalidateCacheForcesReparse(t *testing.T) {
	p := &countingParser{}
	svc := New(p, nil, nil)
	ctx := context.Background()
	uri := position.URI("file:///c.groovy")

	if _, err := svc.Compile(ctx, uri, "class Foo {}", PhaseCanonical); err != nil {
		t.Fatal(err)
	}
	svc.InvalidateCache(uri)
	if _, err := svc.Compile(ctx, uri, "class Foo {}", PhaseCanonical); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt32(&p.calls); got != 2 {
		t.Fatalf("parser invoked %d times, want 2 (invalidate must force reparse)", got)
	}
}

func TestCompileTransientNeverCached(t *testing.T) {
	p := &countingParser{}
	svc := New(p, nil, nil)
	ctx := context.Background()
	uri := position.URI("file:///d.groovy")

	svc.CompileTransient(ctx, uri, "def x = 1", PhaseCanonical)
	if pr := svc.Ast(uri); pr != nil {
		t.Fatalf("CompileTransient must not populate the cache, got %+v", pr)
	}
}

func TestEnsureCompiledReturnsNilWhenNothingCachedOrInFlight(t *testing.T) {
	svc := New(&countingParser{}, nil, nil)
	pr, err := svc.EnsureCompiled(context.Background(), position.URI("file:///missing.groovy"))
	if err != nil {
		t.Fatal(err)
	}
	if pr != nil {
		t.Fatalf("EnsureCompiled() = %+v, want nil", pr)
	}
}
