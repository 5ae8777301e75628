package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

var (
	// ErrNotFound is returned by lookups of ids that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrDateMismatch is returned when a task's date would differ from its
	// session's date.
	ErrDateMismatch = errors.New("task date does not match session date")
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx runs store operations inside a single database transaction. It is only
// valid for the duration of the InTx callback that received it.
type Tx struct {
	q   queryer
	now func() time.Time
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock replaces the clock used for creation timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// InTx runs fn inside one transaction. Any error returned by fn rolls the
// whole transaction back.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Tx{q: sqlTx, now: s.now}); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// view returns a Tx bound to the bare connection for single-statement reads.
func (s *Store) view() *Tx {
	return &Tx{q: s.db, now: s.now}
}

// ResetDatabase clears every table. The legacy import marker survives so a
// wiped store is not repopulated from an old blob.
func (s *Store) ResetDatabase(ctx context.Context) error {
	return s.InTx(ctx, func(tx *Tx) error {
		for _, table := range []string{"work_logs", "tasks", "sessions", "settings", "archive"} {
			if _, err := tx.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		date        TEXT NOT NULL,
		created_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(date);

	CREATE TABLE IF NOT EXISTS tasks (
		id                TEXT PRIMARY KEY,
		session_id        TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		title             TEXT NOT NULL,
		is_completed      INTEGER NOT NULL DEFAULT 0,
		total_time_ms     INTEGER NOT NULL DEFAULT 0,
		date              TEXT NOT NULL,
		distraction_ms    INTEGER NOT NULL DEFAULT 0,
		tags              TEXT NOT NULL DEFAULT '[]',
		description       TEXT NOT NULL DEFAULT '',
		estimated_minutes INTEGER,
		due_date          TEXT NOT NULL DEFAULT '',
		due_time          TEXT NOT NULL DEFAULT '',
		urgency           TEXT NOT NULL DEFAULT '',
		importance        TEXT NOT NULL DEFAULT '',
		progress          INTEGER NOT NULL DEFAULT 0,
		is_rollover       INTEGER NOT NULL DEFAULT 0,
		was_rolled_over   INTEGER NOT NULL DEFAULT 0,
		rollover_count    INTEGER NOT NULL DEFAULT 0,
		created_at        INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_date    ON tasks(date);
	CREATE INDEX IF NOT EXISTS idx_tasks_session ON tasks(session_id);

	CREATE TABLE IF NOT EXISTS work_logs (
		id              TEXT PRIMARY KEY,
		task_id         TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		date            TEXT NOT NULL,
		duration_ms     INTEGER NOT NULL,
		timestamp       INTEGER NOT NULL,
		earned_minutes  REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_logs_task ON work_logs(task_id);
	CREATE INDEX IF NOT EXISTS idx_logs_date ON work_logs(date);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS archive (
		id                     INTEGER PRIMARY KEY CHECK (id = 1),
		total_focus_ms         INTEGER NOT NULL DEFAULT 0,
		total_tasks_completed  INTEGER NOT NULL DEFAULT 0,
		total_earned_minutes   REAL NOT NULL DEFAULT 0,
		last_pruned_date       TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// deleteIn removes rows of table whose id is in ids, in chunks that stay
// under SQLite's bound-parameter limit.
func deleteIn(ctx context.Context, q queryer, table string, ids []string) (int64, error) {
	const chunk = 500
	var total int64
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		part := ids[start:end]
		args := make([]any, len(part))
		for i, id := range part {
			args[i] = id
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", table, placeholders(len(part)))
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("delete from %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
