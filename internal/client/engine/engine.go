package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sitebox/sitebox/internal/client/workspace"
	"github.com/sitebox/sitebox/internal/sitesdk"
)

var (
	// ErrSyncBusy is returned when a periodic check lands while the drain
	// worker holds the sync mutex. The check is skipped, never queued.
	ErrSyncBusy = errors.New("sync already in progress")

	ErrEngineRunning = errors.New("engine already running")
)

// DefaultCacheTTL bounds the staleness of the server-files checksum cache.
const DefaultCacheTTL = 30 * time.Second

// serverCacheSize is an upper bound, not a target; a user rarely owns more
// than a few hundred sites.
const serverCacheSize = 4096

// State is the engine lifecycle phase.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateStopping     State = "stopping"
)

// Options tune the engine. Zero values fall back to the defaults.
type Options struct {
	PollInterval       time.Duration
	ClockBuffer        time.Duration
	StabilityThreshold time.Duration
	DebounceWindow     time.Duration
	CacheTTL           time.Duration
	MaxRetries         int
	RetryDelays        []time.Duration
	MaxBackupsPerSite  int
	EventBufferSize    int
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ClockBuffer <= 0 {
		opts.ClockBuffer = DefaultClockBuffer
	}
	if opts.StabilityThreshold <= 0 {
		opts.StabilityThreshold = DefaultStabilityThreshold
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if len(opts.RetryDelays) == 0 {
		opts.RetryDelays = DefaultRetryDelays
	}
	if opts.MaxBackupsPerSite <= 0 {
		opts.MaxBackupsPerSite = DefaultMaxBackupsPerSite
	}
	if opts.EventBufferSize <= 0 {
		opts.EventBufferSize = 256
	}
	return opts
}

// Status is a point-in-time view of the engine for the UI collaborator.
type Status struct {
	SessionID      string        `json:"sessionId"`
	State          State         `json:"state"`
	ClockOffset    time.Duration `json:"clockOffset"`
	PendingUploads int           `json:"pendingUploads"`
	PendingRetries int           `json:"pendingRetries"`
	FailedFiles    int           `json:"failedFiles"`
	DroppedEvents  int64         `json:"droppedEvents"`
	Stats          StatsSnapshot `json:"stats"`
}

// Engine keeps one SyncRoot coherent with the remote service for the
// lifetime of a session. All remote mutations flow through a single drain
// worker; the periodic remote check skips whenever the worker is busy.
type Engine struct {
	ws   *workspace.Workspace
	sdk  *sitesdk.SDK
	opts Options

	sessionID string
	clock     *Clock
	scanner   *Scanner
	backups   *BackupStore
	queue     *SyncQueue
	watcher   *Watcher
	poller    *Poller
	emitter   *Emitter
	stats     *Stats

	// serverCache maps siteName to the last known server checksum. Entries
	// expire so an upload decision is never made on old server state.
	serverCache *expirable.LRU[string, string]

	running atomic.Bool
	muState sync.Mutex
	state   State

	// muSync serializes the drain worker and the periodic remote check.
	muSync sync.Mutex

	muAuth       sync.Mutex
	authReported map[SyncAction]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an engine over an existing workspace and SDK. Nothing runs
// until Start.
func New(ws *workspace.Workspace, sdk *sitesdk.SDK, opts Options) *Engine {
	opts = opts.withDefaults()
	excludes := NewExcludeList()

	return &Engine{
		ws:           ws,
		sdk:          sdk,
		opts:         opts,
		sessionID:    uuid.NewString(),
		scanner:      NewScanner(ws.Root, excludes),
		backups:      NewBackupStore(ws, opts.MaxBackupsPerSite),
		queue:        NewSyncQueue(opts.DebounceWindow, opts.MaxRetries, opts.RetryDelays),
		watcher:      NewWatcher(ws.Root, excludes, opts.StabilityThreshold),
		emitter:      NewEmitter(opts.EventBufferSize),
		stats:        NewStats(),
		serverCache:  expirable.NewLRU[string, string](serverCacheSize, nil, opts.CacheTTL),
		state:        StateIdle,
		authReported: make(map[SyncAction]bool),
	}
}

// Events returns the engine's outbound event stream.
func (e *Engine) Events() <-chan *Event {
	return e.emitter.Events()
}

// GetStatus reports the current lifecycle phase and counters.
func (e *Engine) GetStatus() Status {
	e.muState.Lock()
	state := e.state
	sessionID := e.sessionID
	clock := e.clock
	queue := e.queue
	stats := e.stats
	e.muState.Unlock()

	var offset time.Duration
	if clock != nil {
		offset = clock.Offset()
	}

	return Status{
		SessionID:      sessionID,
		State:          state,
		ClockOffset:    offset,
		PendingUploads: queue.Len(),
		PendingRetries: queue.PendingRetries(),
		FailedFiles:    queue.FailedCount(),
		DroppedEvents:  e.emitter.Dropped(),
		Stats:          stats.Snapshot(),
	}
}

// resetSession discards all state scoped to the previous session so a
// stopped engine can start cleanly again.
func (e *Engine) resetSession() {
	excludes := NewExcludeList()

	e.muState.Lock()
	e.sessionID = uuid.NewString()
	e.queue = NewSyncQueue(e.opts.DebounceWindow, e.opts.MaxRetries, e.opts.RetryDelays)
	e.watcher = NewWatcher(e.ws.Root, excludes, e.opts.StabilityThreshold)
	e.stats = NewStats()
	e.muState.Unlock()

	e.serverCache.Purge()

	e.muAuth.Lock()
	e.authReported = make(map[SyncAction]bool)
	e.muAuth.Unlock()
}

// Start brings the engine up: sample the server clock, reconcile the
// folder both ways, then run the watcher, the drain worker and the
// periodic remote check until Stop. A failed initial reconcile returns
// the engine to idle.
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}
	e.setState(StateInitializing)
	e.resetSession()

	if err := e.start(ctx); err != nil {
		e.setState(StateIdle)
		e.running.Store(false)
		return err
	}

	e.setState(StateRunning)
	slog.Info("sync engine started", "session", e.sessionID, "dir", e.ws.Root)
	return nil
}

func (e *Engine) start(ctx context.Context) error {
	if err := e.ws.Bootstrap(); err != nil {
		return err
	}

	status, err := e.sdk.Sync.Status(ctx)
	if err != nil {
		e.reportError(err, "", ActionStatus)
		return fmt.Errorf("server status: %w", err)
	}
	// sampled once per session; persistent drift shows up as a stable offset
	offset := time.Until(status.ServerTime)
	e.muState.Lock()
	e.clock = NewClock(offset, e.opts.ClockBuffer)
	e.muState.Unlock()
	slog.Info("server clock sampled", "offset", offset)

	e.emitter.Emit(EventSyncStart, SyncStart{Type: "initial"})
	if err := e.initialReconcile(ctx); err != nil {
		return fmt.Errorf("initial reconcile: %w", err)
	}

	if err := e.watcher.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.poller = NewPoller(e.opts.PollInterval, e.checkRemoteChanges)
	e.poller.Start(runCtx)

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.watchLoop(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.drainLoop(runCtx)
	}()

	return nil
}

// Stop shuts the engine down and forgets all session state. Safe to call
// in any state, any number of times.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.setState(StateStopping)

	e.watcher.Stop()
	if e.poller != nil {
		e.poller.Stop()
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.queue.Stop()
	e.serverCache.Purge()

	e.setState(StateIdle)
	slog.Info("sync engine stopped", "session", e.sessionID)
}

func (e *Engine) setState(s State) {
	e.muState.Lock()
	defer e.muState.Unlock()
	e.state = s
}

// drainLoop is the single worker consuming the sync queue.
func (e *Engine) drainLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.queue.Kick():
			e.drainQueue(ctx)
		}
	}
}

// watchLoop forwards stabilized filesystem changes into the queue.
func (e *Engine) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-e.watcher.Events():
			if !ok {
				return
			}
			e.handleWatchEvent(ev)
		}
	}
}

// reportError classifies, records and publishes a failure. AUTH failures
// are published once per action per session; they repeat on every call
// until the key is fixed and would otherwise flood the inbox.
func (e *Engine) reportError(err error, relPath string, action SyncAction) Classification {
	cls := Classify(err)

	slog.Error("sync error",
		"action", action,
		"file", relPath,
		"kind", cls.Kind,
		"priority", cls.Priority,
		"retryable", cls.Retryable,
		"error", err,
	)

	e.stats.AddError(&ErrorRecord{
		Time:    time.Now(),
		File:    relPath,
		Action:  action,
		Kind:    cls.Kind,
		Message: err.Error(),
	})

	if cls.Kind == KindAuth {
		e.muAuth.Lock()
		seen := e.authReported[action]
		e.authReported[action] = true
		e.muAuth.Unlock()
		if seen {
			return cls
		}
	}

	e.emitter.Emit(EventSyncError, SyncError{
		File:     relPath,
		Error:    err.Error(),
		Kind:     cls.Kind,
		Priority: cls.Priority,
		Action:   action,
		CanRetry: cls.Retryable,
	})
	return cls
}
