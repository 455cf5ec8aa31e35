package syncer

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/solarsync/internal/tree"
)

type Direction string

const (
	DirectionDownload Direction = "download"
	DirectionUpload   Direction = "upload"
)

// Report is the outcome of one sync invocation.
type Report struct {
	Direction   Direction
	Plan        TransferPlan
	Created     []tree.PathKey
	Transferred []tree.PathKey
	Failed      []*TransferError
	Bytes       int64
	DryRun      bool
	Started     time.Time
	Duration    time.Duration
}

func newReport(direction Direction, dryRun bool) *Report {
	return &Report{
		Direction: direction,
		DryRun:    dryRun,
		Started:   time.Now(),
	}
}

func (r *Report) fail(step *Step, err error) {
	slog.Error("sync", "direction", r.Direction, "op", step.Action, "status", "Error", "path", step.Path, "error", err)
	r.Failed = append(r.Failed, &TransferError{Path: step.Path, Action: step.Action, Err: err})
}

func (r *Report) finish() *Report {
	r.Duration = time.Since(r.Started)
	slog.Info("sync done",
		"direction", r.Direction,
		"dryRun", r.DryRun,
		"planned", len(r.Plan),
		"created", len(r.Created),
		"transferred", len(r.Transferred),
		"failed", len(r.Failed),
		"size", humanize.Bytes(uint64(r.Bytes)),
		"took", r.Duration,
	)
	return r
}

// Err returns a *TransferFailedError when any path failed, nil otherwise.
func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return &TransferFailedError{Failures: r.Failed}
}
