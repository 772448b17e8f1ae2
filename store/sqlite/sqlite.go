/*
Package sqlite provides a SQLite-backed implementation of the schedule service.

PURPOSE:
  Backs the remote side of the coverage engine: the directory (schedules,
  people, teams, projects), stored assignments, tenant limit tables and the
  coverage monitor's reports. The HTTP API serves straight from this store.

INTERFACES IMPLEMENTED:
  coverage.SyncAdapter:  Load, SetAssignment, BulkSetAssignments
  progress.LimitSource:  LevelLimits

KEY TABLES:
  schedules:            Named quarter plans
  people, teams,
  team_members:         The roster
  projects:             The project catalog
  schedule_assignments: One row per (schedule, person, week_start)
  level_limits:         Tenure and cycle limit tables, keyed by kind
  coverage_reports:     Monitor output
  applied_requests:     Idempotency keys of applied mutations

SINGLE-SLOT INVARIANT:
  schedule_assignments has PRIMARY KEY (schedule_id, person_id, week_start).
  Setting a project upserts; setting NoProject deletes. A cell can never hold
  two projects.

ATOMIC BATCHES:
  BulkSetAssignments runs in one transaction: either every row is written or
  none are.

IDEMPOTENCY:
  A mutation carrying a RequestID that was already applied is a no-op.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus a single connection for
  ":memory:" databases so every query sees the same data.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging).

USAGE:
  store, err := sqlite.New("./data/coverage.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  grid := coverage.NewGrid(scheduleID, store)

SEE ALSO:
  - coverage/sync.go: Interface definitions
  - coverage/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a referenced row doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference is returned when a write points at a missing
	// person, project or team.
	ErrInvalidReference = errors.New("invalid reference")
)

// Store implements the schedule service using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		year INTEGER NOT NULL,
		quarter INTEGER NOT NULL CHECK (quarter BETWEEN 1 AND 4),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS people (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		job_level TEXT NOT NULL DEFAULT '',
		level_start_date TEXT,
		cycle_start_date TEXT
	);

	CREATE TABLE IF NOT EXISTS teams (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		lead_id INTEGER REFERENCES people(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS team_members (
		team_id INTEGER NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		person_id INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
		PRIMARY KEY (team_id, person_id)
	);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		project_type TEXT NOT NULL DEFAULT '',
		is_system INTEGER NOT NULL DEFAULT 0
	);

	-- One project per (schedule, person, week). Unassigned cells have no row.
	CREATE TABLE IF NOT EXISTS schedule_assignments (
		schedule_id INTEGER NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		person_id INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		week_start TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (schedule_id, person_id, week_start)
	);

	CREATE INDEX IF NOT EXISTS idx_schedule_assignments_week
		ON schedule_assignments(schedule_id, week_start);

	CREATE TABLE IF NOT EXISTS level_limits (
		kind TEXT NOT NULL,
		job_level TEXT NOT NULL,
		limit_months INTEGER NOT NULL CHECK (limit_months >= 0),
		PRIMARY KEY (kind, job_level)
	);

	CREATE TABLE IF NOT EXISTS coverage_reports (
		id TEXT PRIMARY KEY,
		schedule_id INTEGER NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		year INTEGER NOT NULL,
		quarter INTEGER NOT NULL,
		sentinel TEXT NOT NULL,
		weeks INTEGER NOT NULL,
		gap_weeks_json TEXT NOT NULL,
		checked_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_coverage_reports_schedule
		ON coverage_reports(schedule_id, checked_at);

	CREATE TABLE IF NOT EXISTS applied_requests (
		request_id TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx executes fn within a database transaction. The caller holds s.mu.
// If fn returns error, the transaction is rolled back.
func (s *Store) withTx(ctx context.Context, fn func(q querier) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"applied_requests", "coverage_reports", "schedule_assignments", "level_limits",
		"team_members", "teams", "projects", "people", "schedules",
	}
	return s.withTx(ctx, func(q querier) error {
		for _, table := range tables {
			if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}
		return nil
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
