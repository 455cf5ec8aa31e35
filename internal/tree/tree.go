// Package tree builds path-keyed snapshots of a local directory and of a remote
// folder hierarchy so the two can be joined on PathKey.
package tree

import (
	"github.com/openmined/solarsync/internal/remote"
)

// Tree maps a PathKey to the node captured at snapshot time. Trees are rebuilt on
// every sync invocation and never persisted.
type Tree map[PathKey]*remote.Node

// Keys returns the tree's keys in ancestor-before-descendant order.
func (t Tree) Keys() []PathKey {
	keys := make([]PathKey, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// Filter returns the entries whose key matches pattern.
func (t Tree) Filter(pattern string) Tree {
	out := make(Tree, len(t))
	for k, n := range t {
		if Match(pattern, k) {
			out[k] = n
		}
	}
	return out
}

// Subtree returns the entries strictly below base with keys rewritten relative to base.
func (t Tree) Subtree(base PathKey) Tree {
	out := make(Tree)
	for k, n := range t {
		rel, ok := k.RelativeTo(base)
		if !ok || rel.IsRoot() {
			continue
		}
		out[rel] = n
	}
	return out
}

// Without drops every entry ignored by the list.
func (t Tree) Without(ignore *IgnoreList) Tree {
	if ignore == nil {
		return t
	}
	out := make(Tree, len(t))
	for k, n := range t {
		if ignore.ShouldIgnore(k) {
			continue
		}
		out[k] = n
	}
	return out
}

// Counts returns the number of folders and files.
func (t Tree) Counts() (folders int, files int) {
	for _, n := range t {
		if n.IsFolder() {
			folders++
		} else {
			files++
		}
	}
	return folders, files
}
