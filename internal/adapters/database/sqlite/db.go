package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/SscSPs/timesheet_app/internal/apperrors"
	"github.com/SscSPs/timesheet_app/internal/middleware"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schemaVersion = 1

// Open opens (or creates) the SQLite database at path and brings its schema up to date.
// Use ":memory:" for a throwaway database.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serialises writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	const ddl = `
	CREATE TABLE IF NOT EXISTS time_entries (
		time_entry_id             TEXT PRIMARY KEY,
		employee_id               TEXT NOT NULL,
		work_date                 TEXT NOT NULL,
		status                    TEXT NOT NULL CHECK (status IN ('ACTIVE', 'ON_BREAK', 'UNAVAILABLE', 'SUBMITTED')),
		start_time                TEXT NOT NULL,
		end_time                  TEXT,
		hours_worked              TEXT NOT NULL DEFAULT '0',
		total_break_minutes       TEXT NOT NULL DEFAULT '0',
		total_unavailable_minutes TEXT NOT NULL DEFAULT '0',
		session_break_base        TEXT NOT NULL DEFAULT '0',
		session_unavailable_base  TEXT NOT NULL DEFAULT '0',
		last_break_start          TEXT,
		last_unavailable_start    TEXT,
		unavailable_reason        TEXT,
		created_at                TEXT NOT NULL,
		created_by                TEXT NOT NULL,
		last_updated_at           TEXT NOT NULL,
		last_updated_by           TEXT NOT NULL,
		version                   INTEGER NOT NULL DEFAULT 1,
		UNIQUE (employee_id, work_date)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS uq_time_entries_one_open
		ON time_entries (employee_id)
		WHERE status <> 'SUBMITTED';

	CREATE INDEX IF NOT EXISTS idx_time_entries_employee_recent
		ON time_entries (employee_id, work_date DESC, start_time DESC);
	`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create time_entries: %w", err)
	}
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txCtxKey struct{}

// BaseRepository carries the handle and the context-bound transaction plumbing.
type BaseRepository struct {
	DB *sql.DB
}

func (r *BaseRepository) db(ctx context.Context) querier {
	if tx, ok := ctx.Value(txCtxKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.DB
}

// WithTx runs fn inside a transaction. Nested calls join the outer transaction.
func (r *BaseRepository) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txCtxKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewAppError(http.StatusInternalServerError, "failed to begin transaction", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			middleware.GetLoggerFromCtx(ctx).Error("Failed to rollback transaction", "error", rbErr)
		}
	}()

	if err := fn(context.WithValue(ctx, txCtxKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewAppError(http.StatusInternalServerError, "failed to commit transaction", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}
