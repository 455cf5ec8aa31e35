// Package syncer mirrors a local directory against a remote folder store in either
// direction. Each invocation snapshots both sides, computes an ordered TransferPlan,
// runs folder and placeholder creation on a single goroutine, and then fans out the
// content transfers, collecting per-path failures instead of aborting.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/openmined/solarsync/internal/remote"
	"github.com/openmined/solarsync/internal/tree"
	"golang.org/x/sync/errgroup"
)

type options struct {
	concurrency int
	dryRun      bool
	ignore      *tree.IgnoreList
}

// Option configures a Syncer.
type Option func(*options)

// WithConcurrency bounds in-flight transfers. Zero or less launches one task per
// transfer, leaving throttling to the store.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithDryRun computes and logs the plan without touching either side.
func WithDryRun(dryRun bool) Option {
	return func(o *options) {
		o.dryRun = dryRun
	}
}

// WithIgnoreList replaces the ignore list loaded from the local directory.
func WithIgnoreList(l *tree.IgnoreList) Option {
	return func(o *options) {
		o.ignore = l
	}
}

type Syncer struct {
	store remote.Store
	opts  options
}

func New(store remote.Store, opts ...Option) *Syncer {
	s := &Syncer{store: store}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

func (s *Syncer) ignoreList(local string) *tree.IgnoreList {
	if s.opts.ignore != nil {
		return s.opts.ignore
	}
	l := tree.NewIgnoreList(local)
	l.Load()
	return l
}

func validateLocalDir(subject, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ValidationError{Subject: subject, Value: path, Reason: "does not exist"}
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return &ValidationError{Subject: subject, Value: path, Reason: "must be a folder"}
	}
	return nil
}

func (s *Syncer) validateRemoteFolder(ctx context.Context, subject, id string) error {
	node, err := s.store.Metadata(ctx, id)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return &ValidationError{Subject: subject, Value: id, Reason: "does not exist"}
		}
		return fmt.Errorf("fetch metadata for %s: %w", id, err)
	}
	if !node.IsFolder() {
		return &ValidationError{Subject: subject, Value: id, Reason: "must be a folder"}
	}
	return nil
}

// transfer runs fn for every step concurrently and waits for all of them. A failing
// step never cancels its siblings; failures are folded into the report in plan order.
func (s *Syncer) transfer(ctx context.Context, steps TransferPlan, report *Report, fn func(context.Context, *Step) (int64, error)) {
	if len(steps) == 0 {
		return
	}

	errs := make([]error, len(steps))
	sizes := make([]int64, len(steps))

	var g errgroup.Group
	if s.opts.concurrency > 0 {
		g.SetLimit(s.opts.concurrency)
	}

	for i, step := range steps {
		g.Go(func() error {
			sizes[i], errs[i] = fn(ctx, step)
			if errs[i] == nil {
				slog.Info("sync", "direction", report.Direction, "op", step.Action, "status", "Completed", "path", step.Path, "size", humanize.Bytes(uint64(sizes[i])))
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, step := range steps {
		if errs[i] != nil {
			report.fail(step, errs[i])
			continue
		}
		report.Transferred = append(report.Transferred, step.Path)
		report.Bytes += sizes[i]
	}
}

func logPlan(direction Direction, plan TransferPlan) {
	for _, step := range plan {
		slog.Info("sync plan", "direction", direction, "op", step.Action, "path", step.Path, "exists", step.Exists())
	}
}
