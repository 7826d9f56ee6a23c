package depmanager

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchedBuildFiles are the build files whose edits warrant dependency
// re-resolution; a caller may register additional names via
// RegisterPattern.
var watchedBuildFiles = map[string]bool{
	"build.gradle":        true,
	"build.gradle.kts":    true,
	"settings.gradle":     true,
	"settings.gradle.kts": true,
	"pom.xml":             true,
}

// debounceWindow collapses multiple filesystem events for a single user
// save (editors commonly write-then-rename, or emit both Write and Chmod)
// into one callback.
const debounceWindow = 250 * time.Millisecond

// BuildFileWatcher watches a workspace root for changes to build files and
// invokes a callback once per debounced burst: an fsnotify.Watcher plus a
// map[string]time.Time debounce table and a stopCh/doneCh shutdown
// handshake.
type BuildFileWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	onChange func()

	extraPatterns map[string]bool

	debounceMap map[string]time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	started     bool
}

// NewBuildFileWatcher constructs a watcher rooted at workspaceRoot. onChange
// fires (on its own goroutine) once per debounced burst of matching
// filesystem events.
func NewBuildFileWatcher(workspaceRoot string, onChange func()) (*BuildFileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(workspaceRoot); err != nil {
		w.Close()
		return nil, err
	}
	return &BuildFileWatcher{
		watcher:     w,
		onChange:    onChange,
		debounceMap: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// RegisterPattern adds an additional filename (beyond the built-in build
// file set) the watcher should trigger on.
func (w *BuildFileWatcher) RegisterPattern(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.extraPatterns == nil {
		w.extraPatterns = make(map[string]bool)
	}
	w.extraPatterns[name] = true
}

// Start begins watching in its own goroutine. Non-blocking.
func (w *BuildFileWatcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

// Stop releases the watcher's OS handles on every exit path: the watcher
// goroutine always closes w.watcher before returning, whether it exits via
// stopCh or because the event/error channels closed out from under it.
func (w *BuildFileWatcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
}

func (w *BuildFileWatcher) run() {
	defer func() {
		w.watcher.Close()
		close(w.doneCh)
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-ticker.C:
			w.flushDebounced()
		}
	}
}

func (w *BuildFileWatcher) handleEvent(event fsnotify.Event) {
	if !w.matches(filepath.Base(event.Name)) {
		return
	}
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *BuildFileWatcher) matches(base string) bool {
	if watchedBuildFiles[base] {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.extraPatterns[base]
}

func (w *BuildFileWatcher) flushDebounced() {
	w.mu.Lock()
	now := time.Now()
	fire := false
	for path, t := range w.debounceMap {
		if now.Sub(t) >= debounceWindow {
			delete(w.debounceMap, path)
			fire = true
		}
	}
	onChange := w.onChange
	w.mu.Unlock()

	if fire && onChange != nil {
		onChange()
	}
}
