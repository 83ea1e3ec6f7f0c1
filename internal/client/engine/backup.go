package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sitebox/sitebox/internal/client/workspace"
	"github.com/sitebox/sitebox/internal/utils"
)

// backupTimeFormat sorts lexically in chronological order.
const backupTimeFormat = "2006-01-02-15-04-05.000"

// DefaultMaxBackupsPerSite caps snapshot retention per site.
const DefaultMaxBackupsPerSite = 20

// BackupStore snapshots pre-overwrite bytes under
// sites-versions/<siteName>/<timestamp>.html. It is a pure side effect:
// a failed snapshot is reported but never blocks the overwrite.
type BackupStore struct {
	dir        string
	maxPerSite int
	now        func() time.Time
}

// NewBackupStore creates a store rooted at the workspace backups dir.
func NewBackupStore(ws *workspace.Workspace, maxPerSite int) *BackupStore {
	if maxPerSite <= 0 {
		maxPerSite = DefaultMaxBackupsPerSite
	}
	return &BackupStore{
		dir:        ws.BackupsDir,
		maxPerSite: maxPerSite,
		now:        time.Now,
	}
}

// Snapshot copies the current bytes of srcPath into a new timestamped
// backup for siteName, pruning the oldest snapshots beyond the retention
// cap. Returns the backup file path.
func (b *BackupStore) Snapshot(siteName string, srcPath string) (string, error) {
	siteDir := filepath.Join(b.dir, filepath.FromSlash(siteName))
	if err := utils.EnsureDir(siteDir); err != nil {
		return "", fmt.Errorf("backup dir %q: %w", siteDir, err)
	}

	name := b.now().UTC().Format(backupTimeFormat) + HTMLExt
	dst := filepath.Join(siteDir, name)

	if err := utils.CopyFile(srcPath, dst); err != nil {
		return "", fmt.Errorf("backup %q: %w", srcPath, err)
	}

	b.prune(siteDir)
	return dst, nil
}

// prune removes the oldest snapshots beyond the retention cap. Timestamped
// names sort chronologically, so plain name order suffices.
func (b *BackupStore) prune(siteDir string) {
	entries, err := os.ReadDir(siteDir)
	if err != nil {
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == HTMLExt {
			names = append(names, e.Name())
		}
	}
	if len(names) <= b.maxPerSite {
		return
	}

	sort.Strings(names)
	for _, name := range names[:len(names)-b.maxPerSite] {
		os.Remove(filepath.Join(siteDir, name))
	}
}
