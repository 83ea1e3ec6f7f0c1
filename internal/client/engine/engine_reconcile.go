package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/sitebox/sitebox/internal/sitesdk"
	"github.com/sitebox/sitebox/internal/utils"
)

// initialReconcile settles both directions once at startup. A failed list
// aborts the whole start; failures on individual files are recorded and
// skipped so one bad file never blocks the rest of the folder.
func (e *Engine) initialReconcile(ctx context.Context) error {
	remote, err := e.sdk.Sync.List(ctx)
	if err != nil {
		e.reportError(err, "", ActionList)
		return err
	}
	e.refreshServerCache(remote.Files)

	local, err := e.scanner.Scan()
	if err != nil {
		e.reportError(err, "", ActionList)
		return err
	}

	remoteByPath := make(map[string]*sitesdk.RemoteFile, len(remote.Files))
	for _, rf := range remote.Files {
		remoteByPath[remotePath(rf)] = rf
	}

	for relPath, rf := range remoteByPath {
		e.reconcileRemote(ctx, relPath, rf, local[relPath])
	}

	// whatever only exists locally goes up
	for relPath := range local {
		if _, ok := remoteByPath[relPath]; ok {
			continue
		}
		if res := ValidateSitePath(relPath); !res.Valid {
			e.reportValidationError(relPath, res)
			continue
		}
		e.processUpload(ctx, &QueueItem{Kind: OpAdd, RelPath: relPath, EnqueuedAt: time.Now()})
	}

	e.stats.SetLastSync(time.Now())
	snapshot := e.stats.Snapshot()
	e.emitter.Emit(EventSyncComplete, SyncComplete{Type: "initial", Stats: snapshot})
	slog.Info("initial reconcile complete",
		"downloaded", snapshot.FilesDownloaded,
		"uploaded", snapshot.FilesUploaded,
		"skipped", snapshot.FilesDownloadedSkipped+snapshot.FilesUploadedSkipped,
		"protected", snapshot.FilesProtected,
	)
	return nil
}

// reconcileRemote settles one server entry against its local counterpart.
// Local content is never overwritten when its mtime says the user's copy
// is the newer one or sits deliberately in the future.
func (e *Engine) reconcileRemote(ctx context.Context, relPath string, rf *sitesdk.RemoteFile, local *LocalFile) {
	if local == nil {
		e.downloadSite(ctx, rf.Filename, relPath)
		return
	}

	if e.clock.IsFuture(local.ModTime) || e.clock.IsLocalNewer(local.ModTime, rf.ModifiedAt) {
		slog.Info("preserving local file", "file", relPath, "localMtime", local.ModTime, "serverMtime", rf.ModifiedAt)
		e.stats.IncProtected()
		return
	}

	sum, err := utils.FileChecksum(local.AbsPath)
	if err == nil && sum == rf.Checksum {
		e.stats.IncDownloadSkipped()
		return
	}

	e.downloadSite(ctx, rf.Filename, relPath)
}

// remotePath returns the relative-path form of a server entry.
func remotePath(rf *sitesdk.RemoteFile) string {
	if rf.Path != "" {
		return rf.Path
	}
	return SitePath(rf.Filename)
}

func (e *Engine) reportValidationError(relPath string, res ValidationResult) {
	slog.Warn("invalid site path, not syncing", "file", relPath, "reason", res.Error)

	e.stats.AddError(&ErrorRecord{
		Time:    time.Now(),
		File:    relPath,
		Action:  ActionUpload,
		Kind:    KindValidation,
		Message: res.Error,
	})

	e.emitter.Emit(EventSyncError, SyncError{
		File:     relPath,
		Error:    res.Error,
		Kind:     KindValidation,
		Priority: PriorityHigh,
		Action:   ActionUpload,
		CanRetry: false,
	})
}
