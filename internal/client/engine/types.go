package engine

import (
	"strings"
	"time"
)

// HTMLExt is the suffix every synced site document carries on disk.
const HTMLExt = ".html"

// SiteName strips the ".html" suffix from a relative path, yielding the
// server's key for the site. The conversion is purely textual.
func SiteName(relPath string) string {
	return strings.TrimSuffix(relPath, HTMLExt)
}

// SitePath is the inverse of SiteName.
func SitePath(siteName string) string {
	return siteName + HTMLExt
}

// LocalFile is one scanned entry under the SyncRoot.
type LocalFile struct {
	// RelPath is the forward-slash path under SyncRoot, including ".html".
	RelPath string
	// AbsPath is the host filesystem path.
	AbsPath string
	// ModTime is the local mtime, read once at scan time.
	ModTime time.Time
	// Size in bytes.
	Size int64
}

// OpKind is the kind of a queued operation. Deletions are never queued.
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpChange OpKind = "change"
)

// QueueItem is one pending upload slot in the sync queue.
type QueueItem struct {
	Kind       OpKind
	RelPath    string
	EnqueuedAt time.Time
}

// SyncAction labels which direction a file moved.
type SyncAction string

const (
	ActionDownload SyncAction = "download"
	ActionUpload   SyncAction = "upload"
	ActionList     SyncAction = "list"
	ActionStatus   SyncAction = "status"
)
