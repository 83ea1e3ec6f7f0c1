package workspace

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/sitebox/sitebox/internal/utils"
)

const (
	// BackupsDirName is the reserved subdirectory holding versioned
	// snapshots. It is never scanned, watched or synced.
	BackupsDirName = "sites-versions"

	metadataDir = ".data"
	lockFile    = "sitebox.lock"
)

var (
	ErrWorkspaceLocked = errors.New("sync folder locked by another sitebox instance")
)

// Workspace is the handle on the user-selected SyncRoot. The engine owns
// nothing outside of it.
type Workspace struct {
	Root        string
	BackupsDir  string
	MetadataDir string

	flock *flock.Flock
}

// New resolves rootDir into an absolute SyncRoot handle.
func New(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve path %q: %w", rootDir, err)
	}

	return &Workspace{
		Root:        root,
		BackupsDir:  filepath.Join(root, BackupsDirName),
		MetadataDir: filepath.Join(root, metadataDir),
		flock:       flock.New(filepath.Join(root, metadataDir, lockFile)),
	}, nil
}

// Bootstrap ensures the SyncRoot and its metadata directory exist.
func (w *Workspace) Bootstrap() error {
	if err := utils.EnsureDir(w.Root); err != nil {
		return fmt.Errorf("create sync folder %q: %w", w.Root, err)
	}
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("create metadata dir %q: %w", w.MetadataDir, err)
	}
	return nil
}

// Lock takes the single-instance lock on the SyncRoot. Two agents writing
// to one folder would fight over mtimes and backups.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("create metadata dir %q: %w", w.MetadataDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %q: %w", w.flock.Path(), err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}
	return nil
}

// Unlock releases the single-instance lock.
func (w *Workspace) Unlock() error {
	return w.flock.Unlock()
}

// AbsPath converts a forward-slash relative path into an absolute path
// under the SyncRoot. This is the only place the canonical key form meets
// the host separator.
func (w *Workspace) AbsPath(relPath string) string {
	return filepath.Join(w.Root, filepath.FromSlash(relPath))
}
