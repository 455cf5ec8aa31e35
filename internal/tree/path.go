package tree

import (
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// PathKey is a normalized, slash-separated path relative to a tree root.
// The empty PathKey is the root itself.
type PathKey string

// NewPathKey normalizes an OS or slash path into a PathKey.
// Leading slashes, "." segments and trailing separators are dropped.
func NewPathKey(p string) PathKey {
	p = filepath.ToSlash(p)
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	return PathKey(p)
}

func (p PathKey) String() string {
	return string(p)
}

func (p PathKey) IsRoot() bool {
	return p == ""
}

// Segments splits the key into its path components. The root has none.
func (p PathKey) Segments() []string {
	if p.IsRoot() {
		return nil
	}
	return strings.Split(string(p), "/")
}

// Depth is the number of segments; top-level entries have depth 1.
func (p PathKey) Depth() int {
	return len(p.Segments())
}

// Base returns the last segment.
func (p PathKey) Base() string {
	if p.IsRoot() {
		return ""
	}
	return path.Base(string(p))
}

// Parent returns the containing key; the parent of a top-level entry is the root.
func (p PathKey) Parent() PathKey {
	if p.IsRoot() {
		return ""
	}
	dir := path.Dir(string(p))
	if dir == "." {
		return ""
	}
	return PathKey(dir)
}

// Ancestors returns every proper ancestor, root excluded, shallowest first.
func (p PathKey) Ancestors() []PathKey {
	segs := p.Segments()
	if len(segs) < 2 {
		return nil
	}
	out := make([]PathKey, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, PathKey(strings.Join(segs[:i], "/")))
	}
	return out
}

// Join appends rel below p.
func (p PathKey) Join(rel PathKey) PathKey {
	switch {
	case p.IsRoot():
		return rel
	case rel.IsRoot():
		return p
	}
	return PathKey(string(p) + "/" + string(rel))
}

// RelativeTo rewrites p relative to base. ok is false when p is not base or below it.
func (p PathKey) RelativeTo(base PathKey) (PathKey, bool) {
	if base.IsRoot() {
		return p, true
	}
	if p == base {
		return "", true
	}
	prefix := string(base) + "/"
	if !strings.HasPrefix(string(p), prefix) {
		return "", false
	}
	return PathKey(strings.TrimPrefix(string(p), prefix)), true
}

// OSPath converts the key into an OS path joined below root.
func (p PathKey) OSPath(root string) string {
	return filepath.Join(root, filepath.FromSlash(string(p)))
}

// Compare orders keys by their segment sequence, so a parent always sorts
// before any of its descendants.
func Compare(a, b PathKey) int {
	return slices.Compare(a.Segments(), b.Segments())
}

// SortKeys sorts keys in place in ancestor-before-descendant order.
func SortKeys(keys []PathKey) {
	slices.SortFunc(keys, Compare)
}
