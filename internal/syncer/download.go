package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/openmined/solarsync/internal/tree"
	"github.com/openmined/solarsync/internal/utils"
)

// Download mirrors the part of the remote tree under rootID that matches pattern and
// lies below subfolder into the existing local directory. Paths are rewritten relative
// to subfolder. An empty selection is not an error.
func (s *Syncer) Download(ctx context.Context, local string, rootID string, subfolder string, pattern string) (*Report, error) {
	report := newReport(DirectionDownload, s.opts.dryRun)

	if err := validateLocalDir("destination path", local); err != nil {
		return nil, err
	}
	if err := s.validateRemoteFolder(ctx, "source id", rootID); err != nil {
		return nil, err
	}

	remoteTree, err := tree.BuildRemote(ctx, s.store, rootID, pattern)
	if err != nil {
		return nil, err
	}

	sub := tree.NewPathKey(subfolder)
	selected := remoteTree.Subtree(sub).Without(s.ignoreList(local))
	if len(selected) == 0 {
		slog.Info("sync no file found", "direction", DirectionDownload, "subfolder", sub, "match", pattern)
		return report.finish(), nil
	}

	plan := planDownload(selected, local)
	report.Plan = plan

	folders, files := selected.Counts()
	slog.Info("sync plan", "direction", DirectionDownload, "folders", folders, "files", files, "subfolder", sub)

	if s.opts.dryRun {
		logPlan(DirectionDownload, plan)
		return report.finish(), nil
	}

	for _, step := range plan {
		if step.Action != ActionCreateFolder || utils.DirExists(step.LocalPath) {
			continue
		}
		if err := os.MkdirAll(step.LocalPath, 0o755); err != nil {
			report.fail(step, err)
			continue
		}
		slog.Info("sync", "direction", DirectionDownload, "op", step.Action, "path", step.Path, "id", step.Node.ID)
		report.Created = append(report.Created, step.Path)
	}

	s.transfer(ctx, plan.Transfers(), report, func(ctx context.Context, step *Step) (int64, error) {
		if err := utils.EnsureParent(step.LocalPath); err != nil {
			return 0, fmt.Errorf("ensure parent: %w", err)
		}
		if err := s.store.Download(ctx, step.Node.ID, step.LocalPath); err != nil {
			return 0, err
		}
		return utils.FileSize(step.LocalPath), nil
	})

	report.finish()
	return report, report.Err()
}
