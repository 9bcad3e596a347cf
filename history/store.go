// Package history stores training runs and their scalar metrics in SQLite.
//
// A Store keeps two tables: runs (one row per training run, carrying the run
// parameters as JSON) and scalars (one row per recorded metric value, keyed
// by tag and step). The callbacks.HistoryRecorder feeds a Store from engine
// events; the demo CLI reads it back for run comparison.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    params     TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`

const createScalarsTable = `
CREATE TABLE IF NOT EXISTS scalars (
    run_id      TEXT NOT NULL,
    tag         TEXT NOT NULL,
    step        INTEGER NOT NULL,
    epoch       INTEGER NOT NULL,
    value       REAL NOT NULL,
    recorded_at DATETIME NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
)`

const createScalarsIndex = `
CREATE INDEX IF NOT EXISTS idx_scalars_run_tag ON scalars(run_id, tag, step)`

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("history: run not found")

// Run is one training run.
type Run struct {
	ID        string
	Name      string
	Params    map[string]any
	CreatedAt time.Time
}

// Scalar is one recorded metric value.
type Scalar struct {
	Tag        string
	Step       int64
	Epoch      int64
	Value      float64
	RecordedAt time.Time
}

// Store persists runs and scalars in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at dbPath and creates the schema when
// missing.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createRunsTable, createScalarsTable, createScalarsIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run and returns its generated id.
func (s *Store) CreateRun(ctx context.Context, name string, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}

	id := ulid.Make().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, params, created_at) VALUES (?, ?, ?, ?)`,
		id, name, string(encoded), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	var encoded string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, params, created_at FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Name, &encoded, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &run.Params); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs ordered by creation time, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, params, created_at FROM runs ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var encoded string
		if err := rows.Scan(&run.ID, &run.Name, &encoded, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &run.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// RecordScalar appends one metric value to a run's history.
func (s *Store) RecordScalar(ctx context.Context, runID, tag string, step, epoch int64, value float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scalars (run_id, tag, step, epoch, value, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, tag, step, epoch, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert scalar: %w", err)
	}
	return nil
}

// Scalars returns a run's values for one tag, ordered by step.
func (s *Store) Scalars(ctx context.Context, runID, tag string) ([]Scalar, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag, step, epoch, value, recorded_at FROM scalars
		WHERE run_id = ? AND tag = ? ORDER BY step ASC`,
		runID, tag,
	)
	if err != nil {
		return nil, fmt.Errorf("query scalars: %w", err)
	}
	defer rows.Close()

	var scalars []Scalar
	for rows.Next() {
		var sc Scalar
		if err := rows.Scan(&sc.Tag, &sc.Step, &sc.Epoch, &sc.Value, &sc.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan scalar: %w", err)
		}
		scalars = append(scalars, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query scalars: %w", err)
	}
	return scalars, nil
}

// LastStep returns the highest step recorded for a run across all tags, or 0
// when the run has no scalars yet.
func (s *Store) LastStep(ctx context.Context, runID string) (int64, error) {
	var step sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(step) FROM scalars WHERE run_id = ?`, runID,
	).Scan(&step)
	if err != nil {
		return 0, fmt.Errorf("query last step: %w", err)
	}
	return step.Int64, nil
}

// Tags returns the distinct scalar tags recorded for a run.
func (s *Store) Tags(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT tag FROM scalars WHERE run_id = ? ORDER BY tag ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	return tags, nil
}
