// Package history keeps an audit log of sync runs in a local SQLite database.
// It is never consulted when planning a sync.
package history

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/openmined/solarsync/internal/db"
)

// migrations are append-only; see db.WithMigrations.
var migrations = []string{
	`
CREATE TABLE sync_runs (
    id TEXT PRIMARY KEY,
    direction TEXT NOT NULL,
    local_path TEXT NOT NULL,
    remote_id TEXT NOT NULL,
    subfolder TEXT NOT NULL,
    pattern TEXT NOT NULL,
    dry_run INTEGER NOT NULL,
    planned INTEGER NOT NULL,
    created INTEGER NOT NULL,
    transferred INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    bytes INTEGER NOT NULL,
    started_at TEXT NOT NULL, -- UTC, fixed width
    duration_ms INTEGER NOT NULL,
    error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE sync_failures (
    run_id TEXT NOT NULL REFERENCES sync_runs(id) ON DELETE CASCADE,
    path TEXT NOT NULL,
    action TEXT NOT NULL,
    error TEXT NOT NULL
);

CREATE INDEX idx_runs_started_at ON sync_runs(started_at);
CREATE INDEX idx_failures_run_id ON sync_failures(run_id);
`,
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Run struct {
	ID          string
	Direction   string
	LocalPath   string
	RemoteID    string
	Subfolder   string
	Pattern     string
	DryRun      bool
	Planned     int
	Created     int
	Transferred int
	Failed      int
	Bytes       int64
	StartedAt   time.Time
	Duration    time.Duration
	Error       string
	Failures    []Failure
}

type Failure struct {
	Path   string `db:"path"`
	Action string `db:"action"`
	Error  string `db:"error"`
}

// dbRun is the row shape; times are stored as text.
type dbRun struct {
	ID          string `db:"id"`
	Direction   string `db:"direction"`
	LocalPath   string `db:"local_path"`
	RemoteID    string `db:"remote_id"`
	Subfolder   string `db:"subfolder"`
	Pattern     string `db:"pattern"`
	DryRun      bool   `db:"dry_run"`
	Planned     int    `db:"planned"`
	Created     int    `db:"created"`
	Transferred int    `db:"transferred"`
	Failed      int    `db:"failed"`
	Bytes       int64  `db:"bytes"`
	StartedAt   string `db:"started_at"`
	DurationMs  int64  `db:"duration_ms"`
	Error       string `db:"error"`
}

type Journal struct {
	db     *sqlx.DB
	dbPath string
}

func NewJournal(dbPath string) *Journal {
	return &Journal{dbPath: dbPath}
}

func (j *Journal) Open() error {
	if j.db != nil {
		return fmt.Errorf("history journal already open")
	}

	conn, err := db.NewSqliteDB(
		db.WithPath(j.dbPath),
		db.WithMaxOpenConns(1),
		db.WithMigrations(migrations...),
	)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}

	j.db = conn
	return nil
}

func (j *Journal) Close() error {
	if j.db == nil {
		return fmt.Errorf("history journal not open")
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// Record stores run and its failures in one transaction, assigning an ID when empty.
func (j *Journal) Record(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	row := dbRun{
		ID:          run.ID,
		Direction:   run.Direction,
		LocalPath:   run.LocalPath,
		RemoteID:    run.RemoteID,
		Subfolder:   run.Subfolder,
		Pattern:     run.Pattern,
		DryRun:      run.DryRun,
		Planned:     run.Planned,
		Created:     run.Created,
		Transferred: run.Transferred,
		Failed:      run.Failed,
		Bytes:       run.Bytes,
		StartedAt:   run.StartedAt.UTC().Format(timeLayout),
		DurationMs:  run.Duration.Milliseconds(),
		Error:       run.Error,
	}

	tx, err := j.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.NamedExec(`INSERT INTO sync_runs (
		id, direction, local_path, remote_id, subfolder, pattern, dry_run, planned, created,
		transferred, failed, bytes, started_at, duration_ms, error
	) VALUES (
		:id, :direction, :local_path, :remote_id, :subfolder, :pattern, :dry_run, :planned, :created,
		:transferred, :failed, :bytes, :started_at, :duration_ms, :error
	)`, row)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for _, f := range run.Failures {
		_, err := tx.Exec("INSERT INTO sync_failures (run_id, path, action, error) VALUES (?, ?, ?, ?)",
			run.ID, f.Path, f.Action, f.Error)
		if err != nil {
			return fmt.Errorf("insert failure %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	slog.Debug("history recorded", "run", run.ID, "direction", run.Direction, "failed", run.Failed)
	return nil
}

// Recent returns up to limit runs, newest first, with their failures.
func (j *Journal) Recent(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []dbRun
	err := j.db.Select(&rows, "SELECT * FROM sync_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs := make([]*Run, 0, len(rows))
	for _, row := range rows {
		started, err := time.Parse(timeLayout, row.StartedAt)
		if err != nil {
			slog.Warn("history skipping run with bad timestamp", "run", row.ID, "value", row.StartedAt, "error", err)
			continue
		}

		run := &Run{
			ID:          row.ID,
			Direction:   row.Direction,
			LocalPath:   row.LocalPath,
			RemoteID:    row.RemoteID,
			Subfolder:   row.Subfolder,
			Pattern:     row.Pattern,
			DryRun:      row.DryRun,
			Planned:     row.Planned,
			Created:     row.Created,
			Transferred: row.Transferred,
			Failed:      row.Failed,
			Bytes:       row.Bytes,
			StartedAt:   started,
			Duration:    time.Duration(row.DurationMs) * time.Millisecond,
			Error:       row.Error,
		}
		if run.Failed > 0 {
			if err := j.db.Select(&run.Failures, "SELECT path, action, error FROM sync_failures WHERE run_id = ? ORDER BY rowid", row.ID); err != nil {
				return nil, fmt.Errorf("query failures of %s: %w", row.ID, err)
			}
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Prune deletes runs older than cutoff and returns how many were removed.
func (j *Journal) Prune(cutoff time.Time) (int64, error) {
	res, err := j.db.Exec("DELETE FROM sync_runs WHERE started_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
