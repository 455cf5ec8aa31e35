package syncer

import (
	"slices"

	"github.com/openmined/solarsync/internal/remote"
	"github.com/openmined/solarsync/internal/tree"
)

type Action int

const (
	ActionCreateFolder Action = iota
	ActionUploadFile
	ActionDownloadFile
)

func (a Action) String() string {
	switch a {
	case ActionCreateFolder:
		return "create folder"
	case ActionUploadFile:
		return "upload"
	case ActionDownloadFile:
		return "download"
	default:
		return "unknown"
	}
}

// Step is one entry of a TransferPlan. Path is relative to the sync target: the
// local root for downloads, the remote root for uploads. Node is the remote node
// when it already exists.
type Step struct {
	Path      tree.PathKey
	Action    Action
	LocalPath string
	Node      *remote.Node
}

// Exists reports whether the remote side of the step is already materialized.
func (s *Step) Exists() bool {
	return s.Node != nil && s.Node.ID != ""
}

// TransferPlan is ordered ancestor-before-descendant, ties broken lexically.
type TransferPlan []*Step

func (p TransferPlan) Sort() {
	slices.SortStableFunc(p, func(a, b *Step) int {
		return tree.Compare(a.Path, b.Path)
	})
}

// Count returns how many steps carry the action.
func (p TransferPlan) Count(a Action) int {
	n := 0
	for _, s := range p {
		if s.Action == a {
			n++
		}
	}
	return n
}

// Creates returns the steps that will create a remote or local folder, or a
// remote file placeholder.
func (p TransferPlan) Creates() TransferPlan {
	var out TransferPlan
	for _, s := range p {
		if !s.Exists() && s.Action != ActionDownloadFile {
			out = append(out, s)
		}
	}
	return out
}

// Transfers returns the content transfer steps.
func (p TransferPlan) Transfers() TransferPlan {
	var out TransferPlan
	for _, s := range p {
		if s.Action == ActionUploadFile || s.Action == ActionDownloadFile {
			out = append(out, s)
		}
	}
	return out
}

// planDownload turns a subfolder-relative remote tree into local folder creates and
// file downloads below localRoot.
func planDownload(remoteTree tree.Tree, localRoot string) TransferPlan {
	plan := make(TransferPlan, 0, len(remoteTree))
	for _, key := range remoteTree.Keys() {
		node := remoteTree[key]
		step := &Step{Path: key, LocalPath: key.OSPath(localRoot), Node: node}
		if node.IsFolder() {
			step.Action = ActionCreateFolder
		} else {
			step.Action = ActionDownloadFile
		}
		plan = append(plan, step)
	}
	plan.Sort()
	return plan
}

// planUpload resolves every local entry to its remote path below subfolder. Entries
// already present in the index reuse their node; missing ancestors implied by a
// matched file are planned as folder creates so every parent precedes its children.
func planUpload(localTree tree.Tree, localRoot string, subfolder tree.PathKey, index *remoteIndex) TransferPlan {
	planned := make(map[tree.PathKey]*Step)

	addFolder := func(remotePath tree.PathKey, localPath string) {
		if _, ok := planned[remotePath]; ok {
			return
		}
		planned[remotePath] = &Step{
			Path:      remotePath,
			Action:    ActionCreateFolder,
			LocalPath: localPath,
			Node:      index.Lookup(remotePath),
		}
	}

	for key, node := range localTree {
		remotePath := subfolder.Join(key)
		localPath := key.OSPath(localRoot)

		for _, anc := range key.Ancestors() {
			addFolder(subfolder.Join(anc), anc.OSPath(localRoot))
		}

		if node.IsFolder() {
			addFolder(remotePath, localPath)
			continue
		}
		planned[remotePath] = &Step{
			Path:      remotePath,
			Action:    ActionUploadFile,
			LocalPath: localPath,
			Node:      index.Lookup(remotePath),
		}
	}

	plan := make(TransferPlan, 0, len(planned))
	for _, s := range planned {
		plan = append(plan, s)
	}
	plan.Sort()
	return plan
}
