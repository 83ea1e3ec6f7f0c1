package engine

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sitebox/sitebox/internal/sitesdk"
	"github.com/sitebox/sitebox/internal/utils"
)

// handleWatchEvent gates a stabilized filesystem change into the queue.
// Deletions never leave the machine; invalid paths are reported and
// dropped before they consume a queue slot.
func (e *Engine) handleWatchEvent(ev WatchEvent) {
	if ev.Op == WatchUnlink {
		// local deletes are not propagated; the remote copy survives
		slog.Info("local delete observed, remote copy kept", "file", ev.RelPath)
		return
	}

	if res := ValidateSitePath(ev.RelPath); !res.Valid {
		e.reportValidationError(ev.RelPath, res)
		return
	}

	kind := OpChange
	if ev.Op == WatchAdd {
		kind = OpAdd
	}
	if e.queue.Enqueue(kind, ev.RelPath) {
		slog.Debug("queued local change", "op", kind, "file", ev.RelPath)
	}
}

// drainQueue empties the queue under the sync mutex. The periodic remote
// check yields to it; two routines mutating the folder at once would race
// over mtimes and backups.
func (e *Engine) drainQueue(ctx context.Context) {
	e.muSync.Lock()
	defer e.muSync.Unlock()

	var processed int
	for {
		if ctx.Err() != nil {
			return
		}
		item, ok := e.queue.Dequeue()
		if !ok {
			break
		}
		e.processUpload(ctx, item)
		processed++
	}

	if processed > 0 {
		e.stats.SetLastSync(time.Now())
		e.emitter.Emit(EventSyncStats, SyncStats{Stats: e.stats.Snapshot()})
	}
}

// processUpload pushes one local file to the server. The checksum cache
// short-circuits echo uploads of content the server already holds; the
// classifier decides whether a failure retries, conflicts or reports.
func (e *Engine) processUpload(ctx context.Context, item *QueueItem) {
	abs := e.ws.AbsPath(item.RelPath)

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// deleted between enqueue and drain, nothing to push
			slog.Debug("queued file vanished", "file", item.RelPath)
			e.queue.ClearRetries(item.RelPath)
			return
		}
		e.reportError(err, item.RelPath, ActionUpload)
		e.queue.ClearRetries(item.RelPath)
		return
	}

	siteName := SiteName(item.RelPath)
	sum := utils.Checksum(data)

	if cached, ok := e.serverCache.Get(siteName); ok && cached == sum {
		slog.Debug("server already has this content", "file", item.RelPath, "checksum", sum)
		e.stats.IncUploadSkipped()
		e.queue.ClearRetries(item.RelPath)
		return
	}

	modTime := time.Now()
	if info, err := os.Stat(abs); err == nil {
		modTime = info.ModTime()
	}

	resp, err := e.sdk.Sync.Upload(ctx, &sitesdk.UploadParams{
		Filename:   siteName,
		Content:    string(data),
		ModifiedAt: modTime,
	})
	if err != nil {
		e.handleUploadError(err, item)
		return
	}

	// an upload changes server state under every cached entry's feet
	e.serverCache.Purge()
	serverSum := resp.Checksum
	if serverSum == "" {
		serverSum = sum
	}
	e.serverCache.Add(siteName, serverSum)

	e.queue.ClearRetries(item.RelPath)
	e.stats.IncUploaded()
	e.emitter.Emit(EventFileSynced, FileSynced{File: item.RelPath, Action: ActionUpload})
	slog.Info("uploaded", "file", item.RelPath, "size", humanize.Bytes(uint64(len(data))))
}

func (e *Engine) handleUploadError(err error, item *QueueItem) {
	cls := e.reportError(err, item.RelPath, ActionUpload)

	if cls.Kind == KindNameConflict {
		e.emitConflict(err, item.RelPath)
		e.queue.ClearRetries(item.RelPath)
		return
	}

	if !cls.Retryable {
		e.queue.ClearRetries(item.RelPath)
		return
	}

	attempt, delay, final := e.queue.ScheduleRetry(item.RelPath, cls.Kind)
	if final {
		// exhausting the schedule escalates whatever the last failure was
		e.emitter.Emit(EventSyncFailed, SyncFailed{
			File:         item.RelPath,
			Error:        err.Error(),
			Priority:     PriorityCritical,
			Attempts:     attempt,
			FinalFailure: true,
		})
		slog.Error("giving up on file for this session", "file", item.RelPath, "attempts", attempt)
		return
	}

	e.emitter.Emit(EventSyncRetry, SyncRetry{
		File:        item.RelPath,
		Attempt:     attempt,
		MaxAttempts: e.opts.MaxRetries,
		NextRetryIn: delay,
		Error:       err.Error(),
	})
	slog.Warn("retry scheduled", "file", item.RelPath, "attempt", attempt, "in", delay)
}

// emitConflict surfaces the server's 409 name suggestions.
func (e *Engine) emitConflict(err error, relPath string) {
	var apiErr *sitesdk.APIError
	if !errors.As(err, &apiErr) {
		return
	}

	var suggestions []string
	if apiErr.Details != nil {
		suggestions = apiErr.Details.Suggestions
	}

	e.emitter.Emit(EventSyncConflict, SyncConflict{
		File:        relPath,
		Conflict:    "name_taken",
		Suggestions: suggestions,
		Message:     apiErr.Message,
	})
}
