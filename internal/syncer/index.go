package syncer

import (
	"fmt"

	"github.com/openmined/solarsync/internal/remote"
	"github.com/openmined/solarsync/internal/tree"
)

// remoteIndex is the in-memory view of the remote tree used while planning an upload.
// Folders created during the single-threaded create phase are recorded here so their
// children can resolve a parent id. It is frozen before transfers fan out and is
// read-only from then on.
type remoteIndex struct {
	rootID string
	nodes  tree.Tree
	frozen bool
}

func newRemoteIndex(rootID string, snapshot tree.Tree) *remoteIndex {
	nodes := make(tree.Tree, len(snapshot))
	for k, v := range snapshot {
		nodes[k] = v
	}
	return &remoteIndex{rootID: rootID, nodes: nodes}
}

// Lookup returns the node at p, or nil. The root key resolves to the root folder.
func (ix *remoteIndex) Lookup(p tree.PathKey) *remote.Node {
	if p.IsRoot() {
		return &remote.Node{ID: ix.rootID, Kind: remote.KindFolder}
	}
	return ix.nodes[p]
}

// ParentID returns the id of the folder that must contain p.
func (ix *remoteIndex) ParentID(p tree.PathKey) (string, error) {
	parent := ix.Lookup(p.Parent())
	if parent == nil {
		return "", fmt.Errorf("parent %q not materialized", p.Parent())
	}
	if !parent.IsFolder() {
		return "", fmt.Errorf("parent %q is not a folder", p.Parent())
	}
	return parent.ID, nil
}

// Record stores a node created during the create phase.
func (ix *remoteIndex) Record(p tree.PathKey, node *remote.Node) {
	if ix.frozen {
		panic("remoteIndex: Record after Freeze")
	}
	ix.nodes[p] = node
}

// Freeze marks the end of the create phase.
func (ix *remoteIndex) Freeze() {
	ix.frozen = true
}
