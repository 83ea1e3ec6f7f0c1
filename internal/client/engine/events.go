package engine

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType names the message variants the engine publishes to the UI
// collaborator.
type EventType string

const (
	EventSyncStart     EventType = "sync-start"
	EventSyncComplete  EventType = "sync-complete"
	EventSyncStats     EventType = "sync-stats"
	EventFileSynced    EventType = "file-synced"
	EventSyncError     EventType = "sync-error"
	EventSyncRetry     EventType = "sync-retry"
	EventSyncFailed    EventType = "sync-failed"
	EventSyncConflict  EventType = "sync-conflict"
	EventBackupCreated EventType = "backup-created"
)

// Event is one message on the outbound stream. Data holds the typed
// payload variant for the event type.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// SyncStart is emitted when a sync session begins.
type SyncStart struct {
	Type string `json:"type"`
}

// SyncComplete is emitted when the initial reconcile finishes.
type SyncComplete struct {
	Type  string        `json:"type"`
	Stats StatsSnapshot `json:"stats"`
}

// SyncStats carries a point-in-time counters snapshot.
type SyncStats struct {
	Stats StatsSnapshot `json:"stats"`
}

// FileSynced is emitted after a file moved in either direction.
type FileSynced struct {
	File   string     `json:"file"`
	Action SyncAction `json:"action"`
}

// SyncError reports a classified failure.
type SyncError struct {
	File     string     `json:"file,omitempty"`
	Error    string     `json:"error"`
	Kind     ErrorKind  `json:"kind"`
	Priority Priority   `json:"priority"`
	Action   SyncAction `json:"action"`
	CanRetry bool       `json:"canRetry"`
}

// SyncRetry announces a scheduled re-attempt.
type SyncRetry struct {
	File        string        `json:"file"`
	Attempt     int           `json:"attempt"`
	MaxAttempts int           `json:"maxAttempts"`
	NextRetryIn time.Duration `json:"nextRetryIn"`
	Error       string        `json:"error"`
}

// SyncFailed is the terminal failure for a path in this session.
type SyncFailed struct {
	File         string   `json:"file"`
	Error        string   `json:"error"`
	Priority     Priority `json:"priority"`
	Attempts     int      `json:"attempts"`
	FinalFailure bool     `json:"finalFailure"`
}

// SyncConflict carries the server's name suggestions after a 409.
type SyncConflict struct {
	File        string   `json:"file"`
	Conflict    string   `json:"conflict"`
	Suggestions []string `json:"suggestions"`
	Message     string   `json:"message"`
}

// BackupCreated is emitted after a pre-overwrite snapshot.
type BackupCreated struct {
	Original string `json:"original"`
	Backup   string `json:"backup"`
}

// Emitter fans events out to the single outbound channel. Sends never
// block the engine: if the subscriber lags behind the buffer, events are
// dropped and counted.
type Emitter struct {
	ch      chan *Event
	dropped atomic.Int64
}

// NewEmitter creates an emitter with the given buffer size.
func NewEmitter(size int) *Emitter {
	return &Emitter{
		ch: make(chan *Event, size),
	}
}

// Emit publishes an event without blocking.
func (e *Emitter) Emit(t EventType, data any) {
	ev := &Event{
		ID:   uuid.NewString(),
		Type: t,
		Time: time.Now(),
		Data: data,
	}

	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
		slog.Warn("event channel full, dropping event", "type", t)
	}
}

// Events returns the outbound stream.
func (e *Emitter) Events() <-chan *Event {
	return e.ch
}

// Dropped returns how many events were lost to backpressure.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}
