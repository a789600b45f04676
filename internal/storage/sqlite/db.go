// Package sqlite owns the SQLite handle shared by the relational repositories.
//
// Repositories never hold a *sql.Tx themselves. A transaction opened with
// InTx travels on the context, and Querier returns it when present so several
// repositories can take part in one atomic write.
package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite/migrations"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlitemigrate"
)

// Querier is satisfied by both *sql.DB and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the database handle
type DB struct {
	sqlDB *sql.DB
}

type txKey struct{}

// Open opens (creating if needed) the database at path and applies migrations
func Open(ctx context.Context, path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	// Immediate transactions take the write lock at BEGIN so concurrent writers
	// wait on busy_timeout instead of failing when upgrading a read lock.
	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_txlock=immediate"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "Opened SQLite database", "path", path)
	return &DB{sqlDB: sqlDB}, nil
}

// Close closes the handle
func (d *DB) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	return d.sqlDB.Close()
}

// Ping reports whether the database is reachable
func (d *DB) Ping(ctx context.Context) error {
	return d.sqlDB.PingContext(ctx)
}

// Querier returns the transaction on ctx, or the shared handle
func (d *DB) Querier(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return d.sqlDB
}

// InTx runs fn inside a transaction. Nested calls join the outer transaction.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := d.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return Classify(err, "failed to begin transaction")
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return Classify(err, "failed to commit transaction")
	}
	return nil
}

// ReadTx runs fn inside a read-only transaction so every read sees the same
// committed state. Read-only transactions begin deferred and do not wait on
// writers. Nested calls join the outer transaction.
func (d *DB) ReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := d.sqlDB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Classify(err, "failed to begin read transaction")
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Failed to close read transaction", "error", rbErr)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

// IsUniqueViolation reports a UNIQUE or PRIMARY KEY constraint failure
func IsUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if stderrors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

// IsForeignKeyViolation reports a FOREIGN KEY constraint failure
func IsForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// IsBusy reports lock contention that outlasted busy_timeout
func IsBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if stderrors.As(err, &sqliteErr) {
		code := sqliteErr.Code() & 0xff
		return code == sqlite3lib.SQLITE_BUSY || code == sqlite3lib.SQLITE_LOCKED
	}
	return false
}

// Classify wraps a driver error, mapping lock contention to Unavailable
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if IsBusy(err) {
		return errors.WrapWithCode(err, errors.CodeUnavailable, message)
	}
	return errors.Wrap(err, message)
}

// ToMillis stores times as UTC epoch milliseconds
func ToMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// FromMillis is the inverse of ToMillis
func FromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// BoolToInt converts for INTEGER boolean columns
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NullString stores empty strings as NULL
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Scanner is satisfied by *sql.Row and *sql.Rows
type Scanner interface {
	Scan(dest ...any) error
}
