package engine

import (
	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/sitebox/sitebox/internal/client/workspace"
)

// defaultExcludeLines are gitignore-style rules shared by the scanner and
// the watcher. Hidden entries, dependency trees and the reserved backup
// directory never take part in sync.
var defaultExcludeLines = []string{
	workspace.BackupsDirName + "/",
	"node_modules/",
	".*",
	"**/.*",
}

// ExcludeList answers whether a relative path is out of sync scope.
type ExcludeList struct {
	ignore *gitignore.GitIgnore
}

// NewExcludeList compiles the default exclusion rules.
func NewExcludeList() *ExcludeList {
	return &ExcludeList{
		ignore: gitignore.CompileIgnoreLines(defaultExcludeLines...),
	}
}

// Excluded reports whether the forward-slash relative path is ignored.
func (e *ExcludeList) Excluded(relPath string) bool {
	return e.ignore.MatchesPath(relPath)
}
