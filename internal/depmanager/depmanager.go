// Package depmanager owns the dependency-resolution lifecycle: the
// DependencyManager state machine (this file), the debounced
// BuildFileWatcher that triggers re-resolution when a build file changes
// (watcher.go), and the CentralizedDependencyManager observer hub that
// broadcasts the resolved list to every interested component
// (centralized.go): three related but independently testable types
// sharing one package.
package depmanager

import (
	"context"
	"sync"

	"github.com/albertocavalcante/groovy-lsp/internal/pom"
)

// State tracks where a workspace's dependency resolution stands.
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case InProgress:
		return "InProgress"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Resolver is the boundary the manager drives: project directory in,
// WorkspaceResolution out. internal/pom.ProjectResolver and
// internal/gradleresolve.Resolver both satisfy this.
type Resolver interface {
	Resolve(ctx context.Context, projectDir string) (*pom.WorkspaceResolution, error)
}

// ProgressCallback is invoked at approximately 25% (connecting), 75%
// (resolving), and 100% (done) during StartAsyncResolution.
type ProgressCallback func(percent int, message string)

// CompleteCallback receives the resolved WorkspaceResolution on success.
type CompleteCallback func(*pom.WorkspaceResolution)

// ErrorCallback receives the failure on an unsuccessful resolution.
type ErrorCallback func(error)

// Manager is the DependencyManager: an async dependency-resolution state
// machine with progress/completion/error callbacks and an optional
// debounced build-file watcher that triggers re-resolution on change.
type Manager struct {
	mu    sync.Mutex
	state State

	resolver Resolver
	root     string
	deps     []string

	cancel  context.CancelFunc
	watcher *BuildFileWatcher
}

// New constructs a Manager bound to resolver. resolver is typically a
// project-layout probe picking between internal/pom.ProjectResolver and
// internal/gradleresolve.Resolver; see internal/core for the concrete
// wiring.
func New(resolver Resolver) *Manager {
	return &Manager{resolver: resolver, state: NotStarted}
}

// State returns the manager's current DependencyState.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentDependencies returns the most recently resolved dependency list.
func (m *Manager) CurrentDependencies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deps...)
}

// StartAsyncResolution transitions NotStarted -> InProgress and resolves
// workspaceRoot's dependencies on a background goroutine. A call in any
// other state is a no-op: a duplicate call while InProgress, or a call on a
// Completed or Failed manager that has not been Reset. If enableWatch is true and
// resolution succeeds, a BuildFileWatcher is started to trigger
// re-resolution on build-file change.
func (m *Manager) StartAsyncResolution(
	workspaceRoot string,
	onProgress ProgressCallback,
	onComplete CompleteCallback,
	onError ErrorCallback,
	enableWatch bool,
) {
	m.mu.Lock()
	if m.state != NotStarted {
		m.mu.Unlock()
		return
	}
	m.state = InProgress
	m.root = workspaceRoot
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	go m.run(ctx, workspaceRoot, onProgress, onComplete, onError, enableWatch)
}

func (m *Manager) run(
	ctx context.Context,
	workspaceRoot string,
	onProgress ProgressCallback,
	onComplete CompleteCallback,
	onError ErrorCallback,
	enableWatch bool,
) {
	if onProgress != nil {
		onProgress(25, "connecting")
	}
	if err := ctx.Err(); err != nil {
		return
	}

	if onProgress != nil {
		onProgress(75, "resolving")
	}
	resolution, err := m.resolver.Resolve(ctx, workspaceRoot)

	m.mu.Lock()
	if m.state != InProgress {
		// Cancelled/reset while we were resolving; drop this result rather
		// than overwrite whatever state a subsequent call established.
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.state = Failed
		m.mu.Unlock()
		if onError != nil {
			onError(err)
		}
		return
	}

	m.deps = resolution.Dependencies
	m.state = Completed
	m.mu.Unlock()

	if onProgress != nil {
		onProgress(100, "done")
	}
	if onComplete != nil {
		onComplete(resolution)
	}

	if enableWatch {
		m.startWatch(workspaceRoot, func() {
			m.resetStateForRerun()
			m.StartAsyncResolution(workspaceRoot, onProgress, onComplete, onError, false)
		})
	}
}

// resetStateForRerun moves a finished manager back to NotStarted ahead of a
// build-file-triggered re-resolution, so state never jumps straight from
// Completed or Failed to InProgress.
func (m *Manager) resetStateForRerun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Completed || m.state == Failed {
		m.state = NotStarted
	}
}

func (m *Manager) startWatch(workspaceRoot string, onChange func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher != nil {
		m.watcher.Stop()
	}
	w, err := NewBuildFileWatcher(workspaceRoot, onChange)
	if err != nil {
		return
	}
	m.watcher = w
	m.watcher.Start()
}

// Cancel cancels the current resolution job (if any) and stops the
// watcher. A state of InProgress resets to NotStarted; Completed/Failed are
// left as-is (cancelling an already-finished job is a no-op on state).
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
}

func (m *Manager) cancelLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.watcher != nil {
		m.watcher.Stop()
		m.watcher = nil
	}
	if m.state == InProgress {
		m.state = NotStarted
	}
}

// Reset cancels any in-flight job, clears the dependency list, and resets
// state to NotStarted. Besides Reset, only the build-file watcher's
// re-resolution moves a Completed or Failed manager back to NotStarted.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	m.deps = nil
	m.state = NotStarted
}
