package tree

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openmined/solarsync/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is read from the root of a local tree.
const IgnoreFileName = ".syncignore"

var defaultIgnoreLines = []string{
	// solarsync
	IgnoreFileName,
	"*.solarsync.tmp.*",
	// editors
	".vscode",
	".idea",
	"*.swp",
	"~$*",
	// general excludes
	".git",
	"*.tmp",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
}

// IgnoreList filters junk out of trees using gitignore rules.
type IgnoreList struct {
	baseDir string
	ignore  *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string) *IgnoreList {
	return &IgnoreList{baseDir: baseDir}
}

// DefaultIgnoreList returns a list with only the built-in rules.
func DefaultIgnoreList() *IgnoreList {
	l := &IgnoreList{}
	l.ignore = gitignore.CompileIgnoreLines(defaultIgnoreLines...)
	return l
}

// Load compiles the default rules plus any rules in <baseDir>/.syncignore.
func (l *IgnoreList) Load() {
	ignoreLines := append([]string(nil), defaultIgnoreLines...)
	ignorePath := filepath.Join(l.baseDir, IgnoreFileName)

	if l.baseDir != "" && utils.FileExists(ignorePath) {
		rules := 0
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("failed to open ignore file", "path", ignorePath, "error", err)
		} else {
			defer file.Close()

			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line != "" {
					ignoreLines = append(ignoreLines, line)
					rules++
				}
			}

			if err := scanner.Err(); err != nil {
				slog.Warn("error reading ignore file", "path", ignorePath, "error", err)
			} else {
				slog.Debug("loaded ignore file", "path", ignorePath, "rules", rules)
			}
		}
	}

	l.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

func (l *IgnoreList) ShouldIgnore(p PathKey) bool {
	if l == nil || l.ignore == nil || p.IsRoot() {
		return false
	}
	return l.ignore.MatchesPath(string(p))
}
