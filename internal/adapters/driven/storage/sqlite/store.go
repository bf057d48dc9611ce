package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/adreports/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// dbFileName is the database file inside the data directory.
const dbFileName = "adreports.db"

// Store is a SQLite database holding run history and schedules.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the store in dataDir.
// If dataDir is empty, defaults to ~/.adreports/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".adreports", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)

	// WAL lets the HTTP API read while a run writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RunStore returns a RunStore backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// SchedulerStore returns a SchedulerStore backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate applies every migration newer than the recorded version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Run Store ====================

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// CreateRun records the start of a run.
func (s *runStore) CreateRun(ctx context.Context, run *domain.RunSummary) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO runs (id, report, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Report, string(run.Status),
		formatTime(run.StartedAt), formatNullableTime(run.FinishedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("run %s: %w", run.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// RecordCustomer stores one customer's outcome, replacing an earlier one.
func (s *runStore) RecordCustomer(ctx context.Context, result domain.CustomerResult) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO customer_results
			(run_id, customer_id, customer_name, status, row_count, error, stack, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, customer_id) DO UPDATE SET
			customer_name = excluded.customer_name,
			status = excluded.status,
			row_count = excluded.row_count,
			error = excluded.error,
			stack = excluded.stack,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, result.RunID, result.Customer.ID, nullString(result.Customer.Name),
		string(result.Status), result.Rows, nullString(result.Error), nullString(result.Stack),
		formatNullableTime(result.StartedAt), formatNullableTime(result.FinishedAt))
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint") {
			return fmt.Errorf("run %s: %w", result.RunID, domain.ErrNotFound)
		}
		return fmt.Errorf("recording customer result: %w", err)
	}
	return nil
}

// FinishRun stores the final status and finish time.
func (s *runStore) FinishRun(ctx context.Context, run *domain.RunSummary) error {
	if run == nil {
		return domain.ErrInvalidInput
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ? WHERE id = ?
	`, string(run.Status), formatNullableTime(run.FinishedAt), run.ID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}

// GetRun returns a run with its customer results.
func (s *runStore) GetRun(ctx context.Context, id string) (*domain.RunSummary, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, report, status, started_at, finished_at FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT run_id, customer_id, customer_name, status, row_count, error, stack, started_at, finished_at
		FROM customer_results
		WHERE run_id = ?
		ORDER BY customer_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying customer results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		result, err := scanCustomerResult(rows)
		if err != nil {
			return nil, err
		}
		run.Results = append(run.Results, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating customer results: %w", err)
	}

	return run, nil
}

// ListRuns returns recent runs, most recent first, without customer results.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, report, status, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// PruneRuns removes runs started before cutoff. Customer results go with them.
func (s *runStore) PruneRuns(ctx context.Context, cutoff time.Time) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", formatTime(cutoff))
	if err != nil {
		return fmt.Errorf("pruning runs: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.RunSummary, error) {
	var run domain.RunSummary
	var status, startedAt string
	var finishedAt sql.NullString

	if err := row.Scan(&run.ID, &run.Report, &status, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	run.StartedAt = parseNullableTime(sql.NullString{String: startedAt, Valid: true})
	run.FinishedAt = parseNullableTime(finishedAt)
	return &run, nil
}

func scanCustomerResult(row scanner) (*domain.CustomerResult, error) {
	var result domain.CustomerResult
	var status string
	var name, errMsg, stack, startedAt, finishedAt sql.NullString

	if err := row.Scan(&result.RunID, &result.Customer.ID, &name, &status, &result.Rows,
		&errMsg, &stack, &startedAt, &finishedAt); err != nil {
		return nil, fmt.Errorf("scanning customer result: %w", err)
	}

	result.Customer.Name = name.String
	result.Status = domain.CustomerStatus(status)
	result.Error = errMsg.String
	result.Stack = stack.String
	result.StartedAt = parseNullableTime(startedAt)
	result.FinishedAt = parseNullableTime(finishedAt)
	return &result, nil
}
