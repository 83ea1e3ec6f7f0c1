package engine

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sitebox/sitebox/internal/utils"
)

// sitePattern matches every site document under the SyncRoot.
const sitePattern = "**/*.html"

// Scanner walks the SyncRoot and yields the local view of all site files.
type Scanner struct {
	root     string
	excludes *ExcludeList
}

// NewScanner creates a Scanner rooted at the SyncRoot.
func NewScanner(root string, excludes *ExcludeList) *Scanner {
	return &Scanner{
		root:     root,
		excludes: excludes,
	}
}

// Scan walks the root once, depth-first, and returns all site files keyed
// by their forward-slash relative path. mtime is read once per entry.
func (s *Scanner) Scan() (map[string]*LocalFile, error) {
	files := make(map[string]*LocalFile)

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}

		if path == s.root {
			return nil
		}

		relPath, err := utils.ToSlashRel(s.root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || s.excludes.Excluded(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") || s.excludes.Excluded(relPath) {
			return nil
		}

		if ok, _ := doublestar.Match(sitePattern, relPath); !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// entry disappeared between readdir and stat
			return nil
		}

		files[relPath] = &LocalFile{
			RelPath: relPath,
			AbsPath: path,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		}
		return nil
	}

	if err := filepath.WalkDir(s.root, walkFn); err != nil {
		return nil, err
	}

	return files, nil
}
