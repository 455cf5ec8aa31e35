// Package etl holds the file-level data transformations run between syncs: the
// incremental Update merge, Standardize and Aggregate. Inputs are discovered with
// recursive globs and every output is written atomically.
package etl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// DataPattern selects the data files processed by Update and Standardize.
const DataPattern = "**/*.csv"

// Result lists the files written and skipped by one run, relative to the input root.
type Result struct {
	Written []string
	Skipped []string
}

// findFiles returns the slash-separated relative paths below root matching pattern,
// sorted. A missing root yields no files.
func findFiles(ctx context.Context, root, pattern string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := doublestar.GlobWalk(os.DirFS(root), pattern, func(p string, d os.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		files = append(files, p)
		return nil
	}, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s in %s: %w", pattern, root, err)
	}
	slices.Sort(files)
	return files, nil
}

func nativePath(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
