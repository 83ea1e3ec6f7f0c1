package engine

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rjeczalik/notify"
	"github.com/sitebox/sitebox/internal/utils"
)

// DefaultStabilityThreshold is how long a file must stay quiescent before
// its change is emitted, avoiding partial reads of in-progress saves.
const DefaultStabilityThreshold = time.Second

// WatchOp is the stabilized operation observed on a site file.
type WatchOp string

const (
	WatchAdd    WatchOp = "add"
	WatchChange WatchOp = "change"
	WatchUnlink WatchOp = "unlink"
)

// WatchEvent is one stabilized filesystem change under the SyncRoot.
type WatchEvent struct {
	Op      WatchOp
	RelPath string
}

type pendingEvent struct {
	op    WatchOp
	timer *time.Timer
}

// Watcher is a recursive, debounced change feed for HTML files under the
// SyncRoot. Raw notifications are held until the file has been quiet for
// the stability window, then emitted with a forward-slash relative path.
type Watcher struct {
	root      string
	excludes  *ExcludeList
	stability time.Duration
	raw       chan notify.EventInfo
	events    chan WatchEvent
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*pendingEvent
}

// NewWatcher creates a watcher rooted at the SyncRoot.
func NewWatcher(root string, excludes *ExcludeList, stability time.Duration) *Watcher {
	if stability <= 0 {
		stability = DefaultStabilityThreshold
	}
	return &Watcher{
		root:      root,
		excludes:  excludes,
		stability: stability,
		raw:       make(chan notify.EventInfo, 64),
		events:    make(chan WatchEvent, 128),
		done:      make(chan struct{}),
		pending:   make(map[string]*pendingEvent),
	}
}

// Start begins watching recursively. Events flow until Stop.
func (w *Watcher) Start() error {
	slog.Info("watcher start", "dir", w.root)

	recursivePath := w.root + "/..."
	if err := notify.Watch(recursivePath, w.raw, notify.Create, notify.Write, notify.Remove, notify.Rename); err != nil {
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()

	return nil
}

// Events returns the stabilized change feed.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Stop cancels the watch and all pending stabilization timers. Safe to
// call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		notify.Stop(w.raw)

		w.mu.Lock()
		for path, p := range w.pending {
			p.timer.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()

		w.wg.Wait()
		slog.Info("watcher stop")
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.raw:
			if !ok {
				return
			}
			w.handleRaw(ev)
		}
	}
}

func (w *Watcher) handleRaw(ev notify.EventInfo) {
	relPath, err := utils.ToSlashRel(w.root, ev.Path())
	if err != nil || strings.HasPrefix(relPath, "..") {
		return
	}

	if ok, _ := doublestar.Match(sitePattern, relPath); !ok {
		return
	}
	if w.excludes.Excluded(relPath) {
		return
	}

	switch ev.Event() {
	case notify.Create:
		w.hold(relPath, WatchAdd)
	case notify.Write:
		w.hold(relPath, WatchChange)
	case notify.Remove, notify.Rename:
		w.cancelPending(relPath)
		w.emit(WatchEvent{Op: WatchUnlink, RelPath: relPath})
	}
}

// hold holds an add/change until the path has been quiet for the
// stability window. A later write does not downgrade a pending add: the
// file is still new to the session.
func (w *Watcher) hold(relPath string, op WatchOp) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[relPath]; ok {
		p.timer.Reset(w.stability)
		return
	}

	p := &pendingEvent{op: op}
	p.timer = time.AfterFunc(w.stability, func() {
		w.flush(relPath)
	})
	w.pending[relPath] = p
}

func (w *Watcher) cancelPending(relPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[relPath]; ok {
		p.timer.Stop()
		delete(w.pending, relPath)
	}
}

func (w *Watcher) flush(relPath string) {
	w.mu.Lock()
	p, ok := w.pending[relPath]
	delete(w.pending, relPath)
	w.mu.Unlock()

	if !ok {
		return
	}

	// the file may have vanished while stabilizing
	if !utils.FileExists(w.absPath(relPath)) {
		return
	}

	w.emit(WatchEvent{Op: p.op, RelPath: relPath})
}

func (w *Watcher) emit(ev WatchEvent) {
	select {
	case <-w.done:
	case w.events <- ev:
	default:
		slog.Warn("watcher channel full, dropping event", "op", ev.Op, "path", ev.RelPath)
	}
}

func (w *Watcher) absPath(relPath string) string {
	return w.root + "/" + relPath
}
