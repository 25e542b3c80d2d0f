package sqlitelog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trainlog/trainlog"
)

// txKey carries the open transaction through context, so every statement a
// write issues lands on the same transaction.
type txKey struct{}

// dbExecutor is satisfied by both *sql.DB and *sql.Tx.
type dbExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// inTransaction runs fn inside one transaction: commit on success, rollback
// on error. Writes are all-or-nothing; no operation spans two transactions.
func inTransaction(ctx context.Context, db *sql.DB, fn func(txCtx context.Context) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &trainlog.StorageError{Op: "begin transaction", Err: err}
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &trainlog.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

// txFromContext retrieves the transaction inTransaction stored, if any.
func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}
