package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	apperrors "nbacli/internal/errors"
	"nbacli/internal/operations"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// defaultRecentLimit bounds RecentRuns when the caller passes no limit.
const defaultRecentLimit = 20

// Run is one recorded cleaning run.
type Run struct {
	ID           string     `db:"id" json:"id"`
	Kind         string     `db:"kind" json:"kind"`
	Domain       string     `db:"domain" json:"domain,omitempty"`
	Seasons      string     `db:"seasons" json:"seasons,omitempty"`
	Status       string     `db:"status" json:"status"`
	Error        string     `db:"error" json:"error,omitempty"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	FinishedAt   *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	FilesWritten int        `db:"files_written" json:"files_written"`
	FilesSkipped int        `db:"files_skipped" json:"files_skipped"`
	FilesFailed  int        `db:"files_failed" json:"files_failed"`
	Forced       bool       `db:"forced" json:"forced"`
}

// SeasonList splits the stored season labels back into a slice.
func (r Run) SeasonList() []string {
	if r.Seasons == "" {
		return nil
	}
	return strings.Split(r.Seasons, ",")
}

// RunFile is one per-file outcome of a recorded run.
type RunFile struct {
	RunID   string `db:"run_id" json:"-"`
	Path    string `db:"path" json:"path"`
	Status  string `db:"status" json:"status"`
	Rows    int    `db:"rows" json:"rows,omitempty"`
	Message string `db:"message" json:"message,omitempty"`
}

// Catalog is the SQLite run catalog. It satisfies the pipeline's
// RunRecorder interface; recording failures are meant to be logged and
// tolerated by callers, never to abort a run.
type Catalog struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open opens or creates the catalog database at path and applies any
// pending migrations.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}

	logger.Debug("run catalog ready", "path", path)
	return &Catalog{db: db, logger: logger}, nil
}

func migrateUp(db *sqlx.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Ping verifies the database is reachable.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

const insertRunSQL = `
	REPLACE INTO runs (
		id, kind, domain, seasons, status, error, started_at, finished_at,
		files_written, files_skipped, files_failed, forced
	) VALUES (
		:id, :kind, :domain, :seasons, :status, :error, :started_at, :finished_at,
		:files_written, :files_skipped, :files_failed, :forced
	)`

const insertRunFileSQL = `
	INSERT INTO run_files (run_id, path, status, "rows", message)
	VALUES (:run_id, :path, :status, :rows, :message)`

// RecordRun persists one run manifest and its per-file outcomes.
// Re-recording a run id replaces the previous record.
func (c *Catalog) RecordRun(ctx context.Context, manifest *operations.RunManifest) error {
	m := manifest.Clone()
	run := Run{
		ID:           m.ID,
		Kind:         m.Kind,
		Domain:       m.Domain,
		Seasons:      strings.Join(m.Seasons, ","),
		Status:       m.Status,
		Error:        m.Error,
		StartedAt:    m.StartTime,
		FinishedAt:   m.EndTime,
		FilesWritten: m.FilesWritten(),
		FilesSkipped: m.FilesSkipped(),
		FilesFailed:  m.FilesFailed(),
		Forced:       m.Force,
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog transaction: %w", err)
	}
	defer tx.Rollback()

	// REPLACE cascades the old run's files away, so a re-record never
	// duplicates outcomes.
	if _, err := tx.NamedExecContext(ctx, insertRunSQL, run); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	for _, f := range m.Files {
		rf := RunFile{
			RunID:   m.ID,
			Path:    f.Path,
			Status:  string(f.Status),
			Rows:    f.Rows,
			Message: f.Message,
		}
		if _, err := tx.NamedExecContext(ctx, insertRunFileSQL, rf); err != nil {
			return fmt.Errorf("insert run file %s: %w", f.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}

	c.logger.Debug("run recorded",
		"run_id", run.ID,
		"kind", run.Kind,
		"files", len(m.Files))
	return nil
}

// RecentRuns returns the newest runs first.
func (c *Catalog) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	runs := []Run{}
	err := c.db.SelectContext(ctx, &runs,
		`SELECT * FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run and its per-file outcomes in write order.
func (c *Catalog) GetRun(ctx context.Context, id string) (*Run, []RunFile, error) {
	var run Run
	err := c.db.GetContext(ctx, &run, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperrors.ErrRunNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("select run %s: %w", id, err)
	}

	files := []RunFile{}
	err = c.db.SelectContext(ctx, &files,
		`SELECT run_id, path, status, "rows", message FROM run_files WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("select run files %s: %w", id, err)
	}
	return &run, files, nil
}
