package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/cayaqui/costcontrol/internal/domain"
)

// UnitOfWork manages transactional boundaries. The callback receives a DBTX
// backed by a *sql.Tx; callers create tx-scoped repositories from it.
// Every mutation that touches a leaf's figures and its ancestor roll-ups runs
// inside one WithinTx call so partial roll-up states are never observable.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// SQLiteUnitOfWork implements UnitOfWork using database/sql transactions.
type SQLiteUnitOfWork struct {
	db *sql.DB
}

// NewSQLiteUnitOfWork creates a UnitOfWork backed by the given *sql.DB.
func NewSQLiteUnitOfWork(db *sql.DB) *SQLiteUnitOfWork {
	return &SQLiteUnitOfWork{db: db}
}

// isLockContention reports whether err is SQLite write contention
// (SQLITE_BUSY or SQLITE_LOCKED). A deferred transaction that read before
// another writer committed cannot upgrade to a write and fails this way
// regardless of the busy timeout.
func isLockContention(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

func (u *SQLiteUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", wrapContention(err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return wrapContention(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", wrapContention(err))
	}
	return nil
}

// wrapContention maps lock contention to the retryable concurrency conflict
// error so losers of a write race see the same sentinel as a row-version
// mismatch. Other errors pass through unchanged.
func wrapContention(err error) error {
	if isLockContention(err) {
		return fmt.Errorf("%v: %w", err, domain.ErrConcurrencyConflict)
	}
	return err
}
