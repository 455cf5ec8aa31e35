// Package db opens the local SQLite database used for run history.
package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/openmined/solarsync/internal/utils"
)

const MemoryPath = ":memory:"

const defaultPragma = `
PRAGMA journal_mode=WAL;
PRAGMA busy_timeout=5000;
PRAGMA foreign_keys=ON;
PRAGMA synchronous=NORMAL;
`

type config struct {
	path            string
	pragmas         string
	maxOpenConns    int
	connMaxLifetime time.Duration
	migrations      []string
}

type Option func(*config)

// WithPath sets the database file. MemoryPath opens a private in-memory database.
func WithPath(path string) Option {
	return func(c *config) {
		c.path = path
	}
}

// WithPragmas replaces the default pragmas.
func WithPragmas(pragmas string) Option {
	return func(c *config) {
		c.pragmas = pragmas
	}
}

func WithMaxOpenConns(n int) Option {
	return func(c *config) {
		c.maxOpenConns = n
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(c *config) {
		c.connMaxLifetime = d
	}
}

// WithMigrations sets the ordered schema steps. Step i brings the database to
// user_version i+1; steps already applied are skipped. Appending a step is the only
// allowed change.
func WithMigrations(steps ...string) Option {
	return func(c *config) {
		c.migrations = steps
	}
}

// NewSqliteDB connects and applies the pragmas. In-memory databases are pinned to a
// single connection, since each connection would otherwise see its own database.
func NewSqliteDB(opts ...Option) (*sqlx.DB, error) {
	cfg := &config{
		path:    MemoryPath,
		pragmas: defaultPragma,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	dsn := MemoryPath
	if cfg.path != MemoryPath {
		if err := utils.EnsureParent(cfg.path); err != nil {
			return nil, fmt.Errorf("ensure parent directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", cfg.path)
	} else {
		cfg.maxOpenConns = 1
	}

	slog.Debug("db", "driver", driverID, "path", cfg.path)
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.maxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.maxOpenConns)
	}
	if cfg.connMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.connMaxLifetime)
	}

	if _, err := db.Exec(cfg.pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	if err := migrate(db, cfg.migrations); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// SchemaVersion reports how many migration steps the database has seen.
func SchemaVersion(db *sqlx.DB) (int, error) {
	var version int
	if err := db.Get(&version, "PRAGMA user_version"); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// migrate applies each pending step in its own transaction together with the
// version bump, so a failed step leaves the previous version in place.
func migrate(db *sqlx.DB, steps []string) error {
	if len(steps) == 0 {
		return nil
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current > len(steps) {
		return fmt.Errorf("schema version %d is newer than this build (%d)", current, len(steps))
	}

	for i := current; i < len(steps); i++ {
		version := i + 1
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("migrate to version %d: %w", version, err)
		}
		if _, err := tx.Exec(steps[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to version %d: %w", version, err)
		}
		// pragma values cannot be bound
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to version %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to version %d: %w", version, err)
		}
		slog.Debug("db migrated", "version", version)
	}
	return nil
}
