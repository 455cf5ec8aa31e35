package tree

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchAll selects every entry at any depth.
const MatchAll = "**"

// ValidatePattern reports whether pattern is a well formed glob.
func ValidatePattern(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid match pattern %q", pattern)
	}
	return nil
}

// Match matches a relative path against a glob. "**" crosses directory
// boundaries while "*" stays within a single segment, so "*.csv" only matches
// top-level files and "**/plants_*.csv" matches at any depth.
func Match(pattern string, p PathKey) bool {
	if pattern == "" || pattern == MatchAll {
		return true
	}
	ok, err := doublestar.Match(pattern, string(p))
	return err == nil && ok
}
