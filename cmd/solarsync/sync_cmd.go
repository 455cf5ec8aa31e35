package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/openmined/solarsync/internal/history"
	"github.com/openmined/solarsync/internal/runlock"
	"github.com/openmined/solarsync/internal/syncer"
	"github.com/openmined/solarsync/internal/tree"
	"github.com/openmined/solarsync/internal/utils"
	"github.com/openmined/solarsync/internal/watch"
	"github.com/spf13/cobra"
)

type syncFlags struct {
	local     string
	remoteID  string
	subfolder string
	match     string
	dryRun    bool
	watch     bool
}

func addSyncFlags(cmd *cobra.Command, f *syncFlags) {
	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&f.local, "local", "l", "", "local directory")
	cmd.Flags().StringVarP(&f.remoteID, "remote", "d", "", "id of the remote root folder")
	cmd.Flags().StringVarP(&f.subfolder, "subfolder", "s", ".", "remote subfolder, relative to the root folder")
	cmd.Flags().StringVarP(&f.match, "match", "m", tree.MatchAll, "glob selecting paths, ** crosses folders")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print the plan without transferring anything")
	cmd.Flags().Int("concurrency", 0, "max concurrent transfers, 0 for unbounded")
	_ = cmd.MarkFlagRequired("local")
	_ = cmd.MarkFlagRequired("remote")
}

func newDownloadCmd(a *app) *cobra.Command {
	f := &syncFlags{}
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Mirror a remote folder into a local directory",
		Example: `  solarsync download -l ./latest -d 1AbC... -s exchange/fusionsolar -m "**/*.csv"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSync(cmd, syncer.DirectionDownload, f)
		},
	}
	addSyncFlags(cmd, f)
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	f := &syncFlags{}
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Mirror a local directory into a remote folder",
		Example: `  solarsync upload -l ./updated -d 1AbC... -s exchange/updated
  solarsync upload -l ./updated -d 1AbC... --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSync(cmd, syncer.DirectionUpload, f)
		},
	}
	addSyncFlags(cmd, f)
	cmd.Flags().BoolVar(&f.watch, "watch", false, "keep running and upload again after local changes")
	return cmd
}

func (a *app) runSync(cmd *cobra.Command, direction syncer.Direction, f *syncFlags) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := tree.ValidatePattern(f.match); err != nil {
		return err
	}
	local, err := utils.ResolvePath(f.local)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	lock, err := runlock.Acquire(runlock.PathFor(cfg.Dir(), local))
	if errors.Is(err, runlock.ErrLocked) {
		return fmt.Errorf("%s: %w", local, err)
	} else if err != nil {
		return err
	}
	defer lock.Release()

	ctx := cmd.Context()
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	sy := syncer.New(store,
		syncer.WithConcurrency(cfg.Concurrency),
		syncer.WithDryRun(f.dryRun),
	)

	once := func(ctx context.Context) error {
		var report *syncer.Report
		var err error
		if direction == syncer.DirectionDownload {
			report, err = sy.Download(ctx, local, f.remoteID, f.subfolder, f.match)
		} else {
			report, err = sy.Upload(ctx, local, f.remoteID, f.subfolder, f.match)
		}
		if report != nil {
			printReport(cmd.OutOrStdout(), report)
			a.recordRun(report, local, f, err)
		}
		return err
	}

	if err := once(ctx); err != nil && !f.watch {
		return err
	}
	if !f.watch {
		return nil
	}

	ignore := tree.NewIgnoreList(local)
	ignore.Load()
	w := watch.New(local, watch.WithFilter(func(path string) bool {
		rel, err := filepath.Rel(local, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return true
		}
		return ignore.ShouldIgnore(tree.NewPathKey(rel))
	}))
	return w.Run(ctx, once)
}

// recordRun appends the run to the history database. Failing to do so is not fatal.
func (a *app) recordRun(report *syncer.Report, local string, f *syncFlags, runErr error) {
	if a.cfg.HistoryDB == "" {
		return
	}

	run := &history.Run{
		Direction:   string(report.Direction),
		LocalPath:   local,
		RemoteID:    f.remoteID,
		Subfolder:   tree.NewPathKey(f.subfolder).String(),
		Pattern:     f.match,
		DryRun:      report.DryRun,
		Planned:     len(report.Plan),
		Created:     len(report.Created),
		Transferred: len(report.Transferred),
		Failed:      len(report.Failed),
		Bytes:       report.Bytes,
		StartedAt:   report.Started,
		Duration:    report.Duration,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	for _, tf := range report.Failed {
		run.Failures = append(run.Failures, history.Failure{
			Path:   tf.Path.String(),
			Action: tf.Action.String(),
			Error:  tf.Err.Error(),
		})
	}

	journal := history.NewJournal(a.cfg.HistoryDB)
	if err := journal.Open(); err != nil {
		slog.Warn("history unavailable", "path", a.cfg.HistoryDB, "error", err)
		return
	}
	defer journal.Close()

	if err := journal.Record(run); err != nil {
		slog.Warn("history record failed", "error", err)
	}
}
