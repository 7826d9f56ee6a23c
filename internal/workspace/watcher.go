package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

// SourceWatcher polls the workspace root for added, changed, and removed
// Groovy-family source files. Build files get the event-driven, debounced
// fsnotify watcher in internal/depmanager; plain sources need neither
// debouncing nor sub-second latency, so a polling scan is enough here and
// keeps the workspace's view of its source set fresh between LSP
// didOpen/didChange notifications (files edited outside the editor).
type SourceWatcher struct {
	manager      *Manager
	onChange     func(uri position.URI)
	onRemove     func(uri position.URI)
	pollInterval time.Duration
	modTimes     map[string]time.Time
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewSourceWatcher constructs a watcher over m's root. onChange fires for
// every added or modified source file, onRemove for every deleted one;
// either may be nil.
func NewSourceWatcher(m *Manager, onChange, onRemove func(uri position.URI)) *SourceWatcher {
	return &SourceWatcher{
		manager:      m,
		onChange:     onChange,
		onRemove:     onRemove,
		pollInterval: 1 * time.Second,
		modTimes:     make(map[string]time.Time),
	}
}

// Start begins polling in its own goroutine. The first scan primes the
// mod-time table without firing callbacks, so a freshly opened workspace
// is not reported as one change per existing file.
func (w *SourceWatcher) Start() {
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run()
}

// Stop halts polling and waits for the watcher goroutine to exit.
func (w *SourceWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.doneCh
	w.stopCh = nil
}

func (w *SourceWatcher) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.scan(false)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.scan(true)
		}
	}
}

func (w *SourceWatcher) scan(notify bool) {
	root := w.manager.Root()
	if root == "" {
		return
	}

	current := make(map[string]bool)
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
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

		current[path] = true

		lastMod, known := w.modTimes[path]
		if !known || info.ModTime().After(lastMod) {
			w.modTimes[path] = info.ModTime()
			if notify && w.onChange != nil {
				w.onChange(position.FromPath(path))
			}
		}
		return nil
	})

	for path := range w.modTimes {
		if !current[path] {
			delete(w.modTimes, path)
			if notify && w.onRemove != nil {
				w.onRemove(position.FromPath(path))
			}
		}
	}
}
