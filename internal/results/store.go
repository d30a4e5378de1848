package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ripple/internal/config"
)

// Run is one pipeline execution.
type Run struct {
	ID         string
	Pipeline   string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Record is the stored state of one target within a run.
type Record struct {
	ID        int64
	RunID     string
	Target    string
	CacheKey  string
	Status    Status
	Label     string
	Score     *float64
	Error     string
	FromCache bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store manages run and prediction persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the results database and applies the
// schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.OutputDir, "results.db"))
}

// OpenPath opens the results database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) applySchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			pipeline TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			target TEXT NOT NULL,
			cache_key TEXT NOT NULL,
			status TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			score REAL,
			error TEXT NOT NULL DEFAULT '',
			from_cache INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_run ON predictions(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_status ON predictions(run_id, status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// BeginRun records the start of a pipeline execution.
func (s *Store) BeginRun(ctx context.Context, pipeline string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Pipeline:  pipeline,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, pipeline, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Pipeline, run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run's completion time.
func (s *Store) FinishRun(ctx context.Context, runID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ?`, now, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pipeline, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&run.ID, &run.Pipeline, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse run start: %w", err)
		}
		if finished.Valid {
			parsed, err := time.Parse(time.RFC3339Nano, finished.String)
			if err != nil {
				return nil, fmt.Errorf("parse run finish: %w", err)
			}
			run.FinishedAt = &parsed
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AddTarget registers a pending target within a run.
func (s *Store) AddTarget(ctx context.Context, runID, target, cacheKey string) (*Record, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (run_id, target, cache_key, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, target, cacheKey, StatusPending, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert target: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRecord(ctx, id)
}

const recordColumns = `id, run_id, target, cache_key, status, label, score, error, from_cache, created_at, updated_at`

// GetRecord fetches one record by identifier. Returns nil when absent.
func (s *Store) GetRecord(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM predictions WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// ListRun returns all records for a run in insertion order.
func (s *Store) ListRun(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM predictions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// Summary returns per-status counts for a run.
func (s *Store) Summary(ctx context.Context, runID string) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM predictions WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("run summary: %w", err)
	}
	defer rows.Close()

	summary := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summary[status] = count
	}
	return summary, rows.Err()
}

// MarkFetched advances a pending target after a successful fetch.
func (s *Store) MarkFetched(ctx context.Context, id int64, fromCache bool) error {
	return s.transition(ctx, id, StatusFetched, func(record *Record) (string, []any) {
		return `UPDATE predictions SET status = ?, from_cache = ?, updated_at = ? WHERE id = ?`,
			[]any{StatusFetched, fromCache, nowStamp(), id}
	})
}

// MarkPreprocessed advances a fetched target.
func (s *Store) MarkPreprocessed(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusPreprocessed, func(record *Record) (string, []any) {
		return `UPDATE predictions SET status = ?, updated_at = ? WHERE id = ?`,
			[]any{StatusPreprocessed, nowStamp(), id}
	})
}

// RecordPrediction stores the model output and completes the target.
func (s *Store) RecordPrediction(ctx context.Context, id int64, label string, score float64) error {
	return s.transition(ctx, id, StatusPredicted, func(record *Record) (string, []any) {
		return `UPDATE predictions SET status = ?, label = ?, score = ?, updated_at = ? WHERE id = ?`,
			[]any{StatusPredicted, label, score, nowStamp(), id}
	})
}

// MarkFailed records a terminal failure with its reason.
func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	return s.transition(ctx, id, StatusFailed, func(record *Record) (string, []any) {
		return `UPDATE predictions SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
			[]any{StatusFailed, reason, nowStamp(), id}
	})
}

// MarkSkipped records that the dataset was absent.
func (s *Store) MarkSkipped(ctx context.Context, id int64, reason string) error {
	return s.transition(ctx, id, StatusSkipped, func(record *Record) (string, []any) {
		return `UPDATE predictions SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
			[]any{StatusSkipped, reason, nowStamp(), id}
	})
}

func (s *Store) transition(ctx context.Context, id int64, to Status, build func(*Record) (string, []any)) error {
	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("record %d not found", id)
	}
	if err := checkTransition(record.Status, to); err != nil {
		return fmt.Errorf("record %d (%s): %w", id, record.Target, err)
	}

	query, args := build(record)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update record %d: %w", id, err)
	}
	return nil
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var record Record
	var score sql.NullFloat64
	var created, updated string
	if err := row.Scan(
		&record.ID, &record.RunID, &record.Target, &record.CacheKey,
		&record.Status, &record.Label, &score, &record.Error,
		&record.FromCache, &created, &updated,
	); err != nil {
		return nil, err
	}
	if score.Valid {
		record.Score = &score.Float64
	}
	var err error
	if record.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if record.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &record, nil
}
