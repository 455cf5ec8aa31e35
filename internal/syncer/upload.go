package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/openmined/solarsync/internal/remote"
	"github.com/openmined/solarsync/internal/tree"
	"github.com/openmined/solarsync/internal/utils"
)

// Upload mirrors the local entries matching pattern into subfolder of the remote
// folder rootID. Missing remote folders, subfolder ancestors included, are created
// top-down; existing nodes are reused. File contents are then uploaded concurrently.
func (s *Syncer) Upload(ctx context.Context, local string, rootID string, subfolder string, pattern string) (*Report, error) {
	report := newReport(DirectionUpload, s.opts.dryRun)

	if err := validateLocalDir("source path", local); err != nil {
		return nil, err
	}
	if err := s.validateRemoteFolder(ctx, "destination id", rootID); err != nil {
		return nil, err
	}

	localTree, err := tree.BuildLocal(local, pattern, s.ignoreList(local))
	if err != nil {
		return nil, err
	}

	// the full remote structure, so existing folders are reused
	remoteTree, err := tree.BuildRemote(ctx, s.store, rootID, tree.MatchAll)
	if err != nil {
		return nil, err
	}

	sub := tree.NewPathKey(subfolder)
	index := newRemoteIndex(rootID, remoteTree)

	chain := make(map[tree.PathKey]struct{})
	if !sub.IsRoot() {
		for _, p := range append(sub.Ancestors(), sub) {
			chain[p] = struct{}{}
		}
	}

	plan := planUpload(localTree, local, sub, index)
	plan = append(subfolderSteps(sub, index), plan...)
	plan.Sort()
	report.Plan = plan

	folders, files := localTree.Counts()
	slog.Info("sync plan", "direction", DirectionUpload, "folders", folders, "files", files, "subfolder", sub, "creates", len(plan.Creates()))

	if s.opts.dryRun {
		logPlan(DirectionUpload, plan)
		return report.finish(), nil
	}

	failed := make(map[tree.PathKey]struct{})
	for _, step := range plan {
		if err := s.materialize(ctx, step, index, failed, report); err != nil {
			if _, isChain := chain[step.Path]; isChain {
				return nil, fmt.Errorf("create remote subfolder %s: %w", step.Path, err)
			}
			report.fail(step, err)
			failed[step.Path] = struct{}{}
		}
	}
	index.Freeze()

	var transfers TransferPlan
	for _, step := range plan.Transfers() {
		if _, ok := failed[step.Path]; !ok {
			transfers = append(transfers, step)
		}
	}

	s.transfer(ctx, transfers, report, func(ctx context.Context, step *Step) (int64, error) {
		if err := s.store.Upload(ctx, step.Node.ID, step.LocalPath); err != nil {
			return 0, err
		}
		return utils.FileSize(step.LocalPath), nil
	})

	report.finish()
	return report, report.Err()
}

// subfolderSteps plans the folders between the remote root and subfolder.
func subfolderSteps(sub tree.PathKey, index *remoteIndex) TransferPlan {
	if sub.IsRoot() {
		return nil
	}
	var steps TransferPlan
	for _, p := range append(sub.Ancestors(), sub) {
		steps = append(steps, &Step{Path: p, Action: ActionCreateFolder, Node: index.Lookup(p)})
	}
	return steps
}

// materialize makes sure the remote node of step exists, creating it under its
// parent when missing and recording it in the index.
func (s *Syncer) materialize(ctx context.Context, step *Step, index *remoteIndex, failed map[tree.PathKey]struct{}, report *Report) error {
	wantFolder := step.Action == ActionCreateFolder

	if step.Exists() {
		if step.Node.IsFolder() != wantFolder {
			return fmt.Errorf("remote path already exists as a %s", step.Node.Kind)
		}
		return nil
	}

	// plan steps may have been written before an earlier step created the node
	if node := index.Lookup(step.Path); node != nil {
		step.Node = node
		return nil
	}

	for _, anc := range step.Path.Ancestors() {
		if _, ok := failed[anc]; ok {
			return fmt.Errorf("parent %s was not created", anc)
		}
	}

	parentID, err := index.ParentID(step.Path)
	if err != nil {
		return err
	}

	kind := remote.KindFolder
	mimeType := ""
	if !wantFolder {
		kind = remote.KindFile
		if mt, err := mimetype.DetectFile(step.LocalPath); err == nil {
			mimeType = mt.String()
		}
	}

	node, err := s.store.Create(ctx, parentID, step.Path.Base(), kind, mimeType)
	if err != nil {
		return err
	}

	index.Record(step.Path, node)
	step.Node = node
	report.Created = append(report.Created, step.Path)
	slog.Info("sync", "direction", DirectionUpload, "op", "create "+kind.String(), "path", step.Path, "id", node.ID)
	return nil
}
