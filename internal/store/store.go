// Package store persists build runs and per-library input hashes in SQLite so
// unchanged libraries can be skipped by incremental builds.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
)

// Outcome is the result of a run or of one library within a run.
type Outcome string

const (
	OutcomeRunning Outcome = "running"
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial" // some libraries failed
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped" // library inputs unchanged
)

// Run is one build invocation.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Outcome    Outcome   `json:"outcome"`
}

// LibraryResult is the outcome of building one library in a run.
type LibraryResult struct {
	RunID       string
	Library     string
	InputHash   string
	Outcome     Outcome
	MenuItems   int
	Records     int
	Diagnostics int
	FinishedAt  time.Time
}

// SQLiteStore implements the build state store on SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	finished_at INTEGER,
	outcome TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS library_results (
	run_id TEXT NOT NULL REFERENCES runs(id),
	library TEXT NOT NULL,
	input_hash TEXT NOT NULL,
	outcome TEXT NOT NULL,
	menu_items INTEGER NOT NULL DEFAULT 0,
	records INTEGER NOT NULL DEFAULT 0,
	diagnostics INTEGER NOT NULL DEFAULT 0,
	finished_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, library)
);
CREATE INDEX IF NOT EXISTS idx_library_results_library ON library_results(library, finished_at);
`

// Open opens (creating if needed) the store at path. ":memory:" gives a private in-memory database.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryStore, "create store directory").
				WithContext("path", path).Build()
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "open sqlite database").
			WithContext("path", path).Build()
	}
	// One connection: in-memory databases are per connection, and writes are serialized anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "initialize schema").Build()
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// BeginRun inserts a running build and returns it.
func (s *SQLiteStore) BeginRun(ctx context.Context) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := Run{ID: uuid.NewString(), StartedAt: s.now().UTC(), Outcome: OutcomeRunning}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, outcome) VALUES (?, ?, ?)",
		run.ID, run.StartedAt.UnixMilli(), string(run.Outcome),
	)
	if err != nil {
		return Run{}, ferrors.WrapError(err, ferrors.CategoryStore, "insert run").Build()
	}
	return run, nil
}

// RecordLibrary stores the result of one library; recording the same library twice
// in a run replaces the earlier row.
func (s *SQLiteStore) RecordLibrary(ctx context.Context, res LibraryResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res.FinishedAt.IsZero() {
		res.FinishedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO library_results
			(run_id, library, input_hash, outcome, menu_items, records, diagnostics, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Library, res.InputHash, string(res.Outcome),
		res.MenuItems, res.Records, res.Diagnostics, res.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStore, "insert library result").
			WithContext("library", res.Library).Build()
	}
	return nil
}

// FinishRun marks a run as finished with the given outcome.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, outcome = ? WHERE id = ?",
		s.now().UTC().UnixMilli(), string(outcome), runID,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStore, "update run").Build()
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ferrors.NotFoundError("run not found").WithContext("run_id", runID).Build()
	}
	return nil
}

// LastSuccessfulHash returns the input hash of the library's most recent successful
// (or skipped) build.
func (s *SQLiteStore) LastSuccessfulHash(ctx context.Context, library string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT input_hash FROM library_results
		WHERE library = ? AND outcome IN (?, ?)
		ORDER BY finished_at DESC, rowid DESC
		LIMIT 1`,
		library, string(OutcomeSuccess), string(OutcomeSkipped),
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ferrors.WrapError(err, ferrors.CategoryStore, "query last hash").
			WithContext("library", library).Build()
	}
	return hash, true, nil
}

// LastRun returns the most recently started run.
func (s *SQLiteStore) LastRun(ctx context.Context) (Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		run      Run
		started  int64
		finished sql.NullInt64
		outcome  string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at, outcome FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1",
	).Scan(&run.ID, &started, &finished, &outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, ferrors.WrapError(err, ferrors.CategoryStore, "query last run").Build()
	}
	run.StartedAt = time.UnixMilli(started).UTC()
	if finished.Valid {
		run.FinishedAt = time.UnixMilli(finished.Int64).UTC()
	}
	run.Outcome = Outcome(outcome)
	return run, true, nil
}

// LibraryResults lists the results recorded for a run, ordered by library.
func (s *SQLiteStore) LibraryResults(ctx context.Context, runID string) ([]LibraryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, library, input_hash, outcome, menu_items, records, diagnostics, finished_at
		FROM library_results WHERE run_id = ? ORDER BY library`, runID)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "query library results").Build()
	}
	defer rows.Close()

	var out []LibraryResult
	for rows.Next() {
		var (
			r        LibraryResult
			outcome  string
			finished int64
		)
		if err := rows.Scan(&r.RunID, &r.Library, &r.InputHash, &outcome, &r.MenuItems, &r.Records, &r.Diagnostics, &finished); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryStore, "scan library result").Build()
		}
		r.Outcome = Outcome(outcome)
		r.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "iterate library results").Build()
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
