package tree

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/openmined/solarsync/internal/remote"
)

// BuildLocal enumerates every entry below root whose relative path matches pattern.
// Ignored directories are pruned entirely. Local nodes have no ID.
func BuildLocal(root string, pattern string, ignore *IgnoreList) (Tree, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	t := make(Tree)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk error: %w", walkErr)
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("walk rel path: %w", err)
		}
		key := NewPathKey(relPath)
		if key.IsRoot() {
			return nil
		}

		if ignore.ShouldIgnore(key) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// only regular files and directories are mirrored
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		if !Match(pattern, key) {
			return nil
		}

		kind := remote.KindFile
		if d.IsDir() {
			kind = remote.KindFolder
		}
		t[key] = &remote.Node{Title: d.Name(), Kind: kind}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local scan failed: %w", err)
	}

	return t, nil
}
