// Package runindex keeps a small SQLite index of runs under an output root,
// so later tooling can list what was produced without crawling directories.
package runindex

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nbirkbak/journalist/internal/common"
)

// Run statuses recorded in the index.
const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusAborted   = "ABORTED"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	run_dir     TEXT NOT NULL,
	dataset     TEXT NOT NULL,
	format      TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	dispatched  INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error       TEXT
);`

// Run is one row of the index.
type Run struct {
	ID         uuid.UUID
	RunDir     string
	Dataset    string
	Format     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Dispatched int
	Succeeded  int
	Failed     int
	Status     string
	Error      string
}

// Store wraps the SQLite database holding the run index.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the index database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open run index")
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, common.WrapError(err, "create run index schema")
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// StartRun records a new run as RUNNING and returns its id.
func (s *Store) StartRun(ctx context.Context, runDir, datasetPath, format string, dispatched int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, run_dir, dataset, format, started_at, dispatched, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), runDir, datasetPath, format,
		time.Now().UTC().Format(time.RFC3339), dispatched, StatusRunning,
	)
	if err != nil {
		return uuid.Nil, common.WrapError(err, "insert run")
	}
	s.logger.Debug("runindex.start", "id", id, "dir", runDir)
	return id, nil
}

// FinishRun records final counters and status for a run.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, succeeded, failed int, status, runErr string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, failed = ?, status = ?, error = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), succeeded, failed, status, runErr, id.String(),
	)
	if err != nil {
		return common.WrapError(err, "update run")
	}
	s.logger.Debug("runindex.finish", "id", id, "status", status)
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_dir, dataset, format, started_at, finished_at, dispatched, succeeded, failed, status, COALESCE(error, '')
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, common.WrapError(err, "query runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var id, started string
		var finished sql.NullString
		if err := rows.Scan(&id, &r.RunDir, &r.Dataset, &r.Format, &started, &finished,
			&r.Dispatched, &r.Succeeded, &r.Failed, &r.Status, &r.Error); err != nil {
			return nil, common.WrapError(err, "scan run")
		}
		r.ID, _ = uuid.Parse(id)
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished.Valid && finished.String != "" {
			t, perr := time.Parse(time.RFC3339, finished.String)
			if perr == nil {
				r.FinishedAt = &t
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
