package engine

import (
	"sync"
	"time"

	"github.com/sitebox/sitebox/internal/queue"
)

const (
	// DefaultDebounceWindow absorbs rapid editor save storms before the
	// worker drains.
	DefaultDebounceWindow = 300 * time.Millisecond

	// DefaultMaxRetries is the per-item retry ceiling within a session.
	DefaultMaxRetries = 3
)

// DefaultRetryDelays is the per-attempt backoff schedule.
var DefaultRetryDelays = []time.Duration{5 * time.Second, 15 * time.Second, 60 * time.Second}

// RetryRecord tracks the retry schedule of one path. Scoped to the
// running session.
type RetryRecord struct {
	RelPath       string
	Attempts      int
	NextAttemptAt time.Time
	LastErrorKind ErrorKind
}

// SyncQueue is the coalescing deduped FIFO feeding the single drain
// worker. Enqueueing a path already queued is a no-op (the older slot
// wins, upgrading add to change); drains are signalled after a short
// debounce window; retryable failures are re-enqueued on a fixed
// schedule until the per-item ceiling.
type SyncQueue struct {
	items       *queue.KeyedQueue[*QueueItem]
	debounce    time.Duration
	maxAttempts int
	delays      []time.Duration
	kick        chan struct{}

	mu          sync.Mutex
	retries     map[string]*RetryRecord
	failed      map[string]struct{}
	retryTimers map[string]*time.Timer
	drainTimer  *time.Timer
	stopped     bool
}

// NewSyncQueue creates a queue with the given debounce window and retry
// schedule. Zero values fall back to the defaults.
func NewSyncQueue(debounce time.Duration, maxAttempts int, delays []time.Duration) *SyncQueue {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxRetries
	}
	if len(delays) == 0 {
		delays = DefaultRetryDelays
	}

	return &SyncQueue{
		items:       queue.NewKeyedQueue[*QueueItem](),
		debounce:    debounce,
		maxAttempts: maxAttempts,
		delays:      delays,
		kick:        make(chan struct{}, 1),
		retries:     make(map[string]*RetryRecord),
		failed:      make(map[string]struct{}),
		retryTimers: make(map[string]*time.Timer),
	}
}

// Enqueue coalesce-adds a pending operation and schedules a debounced
// drain. Returns false if the path is permanently failed for this session
// or the queue is stopped.
func (q *SyncQueue) Enqueue(kind OpKind, relPath string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}
	if _, failed := q.failed[relPath]; failed {
		return false
	}

	item := &QueueItem{Kind: kind, RelPath: relPath, EnqueuedAt: time.Now()}
	if !q.items.Push(relPath, item) {
		// already queued: the older item keeps its slot, but a change
		// upgrades a pending add
		if existing, ok := q.items.Get(relPath); ok && existing.Kind == OpAdd && kind == OpChange {
			q.items.Update(relPath, &QueueItem{
				Kind:       OpChange,
				RelPath:    relPath,
				EnqueuedAt: existing.EnqueuedAt,
			})
		}
	}

	q.scheduleDrainLocked()
	return true
}

func (q *SyncQueue) scheduleDrainLocked() {
	if q.drainTimer == nil {
		q.drainTimer = time.AfterFunc(q.debounce, q.signal)
		return
	}
	q.drainTimer.Reset(q.debounce)
}

// signal wakes the drain worker without blocking.
func (q *SyncQueue) signal() {
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// Kick returns the channel the drain worker waits on.
func (q *SyncQueue) Kick() <-chan struct{} {
	return q.kick
}

// Dequeue pops the oldest pending item.
func (q *SyncQueue) Dequeue() (*QueueItem, bool) {
	_, item, ok := q.items.Pop()
	return item, ok
}

// Len returns the number of queued items.
func (q *SyncQueue) Len() int {
	return q.items.Len()
}

// ScheduleRetry records a retryable failure for relPath. While attempts
// remain it schedules a re-enqueue after the per-attempt delay and
// returns (attempt, delay, false); once the ceiling is hit it marks the
// path permanently failed for the session and returns final=true.
func (q *SyncQueue) ScheduleRetry(relPath string, kind ErrorKind) (attempt int, delay time.Duration, final bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.retries[relPath]
	if !ok {
		rec = &RetryRecord{RelPath: relPath}
		q.retries[relPath] = rec
	}
	rec.LastErrorKind = kind

	if rec.Attempts >= q.maxAttempts {
		delete(q.retries, relPath)
		q.failed[relPath] = struct{}{}
		return rec.Attempts, 0, true
	}

	delay = q.delays[min(rec.Attempts, len(q.delays)-1)]
	rec.Attempts++
	rec.NextAttemptAt = time.Now().Add(delay)

	q.retryTimers[relPath] = time.AfterFunc(delay, func() {
		q.reEnqueue(relPath)
	})

	return rec.Attempts, delay, false
}

func (q *SyncQueue) reEnqueue(relPath string) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	if _, failed := q.failed[relPath]; failed {
		q.mu.Unlock()
		return
	}
	delete(q.retryTimers, relPath)
	q.items.Push(relPath, &QueueItem{Kind: OpChange, RelPath: relPath, EnqueuedAt: time.Now()})
	q.mu.Unlock()

	// the retry delay already elapsed, no debounce
	q.signal()
}

// ClearRetries forgets the retry state of a path after a success or a
// non-retryable failure.
func (q *SyncQueue) ClearRetries(relPath string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.retries, relPath)
	if t, ok := q.retryTimers[relPath]; ok {
		t.Stop()
		delete(q.retryTimers, relPath)
	}
}

// PendingRetries returns how many paths are scheduled for retry.
func (q *SyncQueue) PendingRetries() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.retries)
}

// FailedCount returns how many paths failed permanently this session.
func (q *SyncQueue) FailedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.failed)
}

// Stop drains all timers and forgets all state. Items are never persisted
// across sessions.
func (q *SyncQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	if q.drainTimer != nil {
		q.drainTimer.Stop()
		q.drainTimer = nil
	}
	for path, t := range q.retryTimers {
		t.Stop()
		delete(q.retryTimers, path)
	}
	q.retries = make(map[string]*RetryRecord)
	q.failed = make(map[string]struct{})
	q.items.Clear()
}
