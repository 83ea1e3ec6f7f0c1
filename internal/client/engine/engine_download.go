package engine

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sitebox/sitebox/internal/sitesdk"
	"github.com/sitebox/sitebox/internal/utils"
)

// checkRemoteChanges is the periodic pull pass. It only ever brings remote
// changes down; nothing is uploaded from here. It yields with ErrSyncBusy
// when the drain worker holds the sync mutex.
func (e *Engine) checkRemoteChanges(ctx context.Context) error {
	if !e.muSync.TryLock() {
		return ErrSyncBusy
	}
	defer e.muSync.Unlock()

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

	var changed int
	for _, rf := range remote.Files {
		relPath := remotePath(rf)
		lf := local[relPath]

		if lf == nil {
			// new on the server
			if e.downloadSite(ctx, rf.Filename, relPath) == nil {
				changed++
			}
			continue
		}

		if e.clock.IsFuture(lf.ModTime) || e.clock.IsLocalNewer(lf.ModTime, rf.ModifiedAt) {
			e.stats.IncProtected()
			continue
		}

		sum, err := utils.FileChecksum(lf.AbsPath)
		if err == nil && sum == rf.Checksum {
			continue
		}

		if e.downloadSite(ctx, rf.Filename, relPath) == nil {
			changed++
		}
	}

	if changed > 0 {
		e.stats.SetLastSync(time.Now())
		e.emitter.Emit(EventSyncStats, SyncStats{Stats: e.stats.Snapshot()})
	}
	return nil
}

// refreshServerCache replaces the checksum cache with the server's current
// view. Entries expire on their own; a full list is the only other thing
// allowed to reset them.
func (e *Engine) refreshServerCache(files []*sitesdk.RemoteFile) {
	e.serverCache.Purge()
	for _, rf := range files {
		e.serverCache.Add(rf.Filename, rf.Checksum)
	}
}

// downloadSite fetches one site and writes it in place. Existing bytes are
// snapshotted first; the local mtime is pinned to the server's timestamp so
// later comparisons see the file as in-sync rather than locally newer.
func (e *Engine) downloadSite(ctx context.Context, siteName, relPath string) error {
	resp, err := e.sdk.Sync.Download(ctx, siteName)
	if err != nil {
		e.reportError(err, relPath, ActionDownload)
		return err
	}

	abs := e.ws.AbsPath(relPath)

	if utils.FileExists(abs) {
		backupPath, err := e.backups.Snapshot(siteName, abs)
		if err != nil {
			// the overwrite proceeds regardless
			e.reportError(err, relPath, ActionDownload)
		} else {
			e.emitter.Emit(EventBackupCreated, BackupCreated{Original: relPath, Backup: backupPath})
			slog.Debug("backup created", "file", relPath, "backup", backupPath)
		}
	}

	if err := utils.EnsureParent(abs); err != nil {
		e.reportError(err, relPath, ActionDownload)
		return err
	}
	if err := os.WriteFile(abs, []byte(resp.Content), 0o644); err != nil {
		e.reportError(err, relPath, ActionDownload)
		return err
	}
	if err := os.Chtimes(abs, resp.ModifiedAt, resp.ModifiedAt); err != nil {
		slog.Warn("set mtime failed", "file", relPath, "error", err)
	}

	e.serverCache.Add(siteName, resp.Checksum)
	e.stats.IncDownloaded()
	e.emitter.Emit(EventFileSynced, FileSynced{File: relPath, Action: ActionDownload})
	slog.Info("downloaded", "file", relPath, "size", humanize.Bytes(uint64(len(resp.Content))))
	return nil
}
