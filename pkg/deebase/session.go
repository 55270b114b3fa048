package deebase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rahulcredcore/deebase-sub000/pkg/adapter"
)

type sessionKeyType struct{}

var sessionKey sessionKeyType

// session is one active unit-of-work, carried in the context so operations
// discover it without explicit parameter threading. Each logical call chain
// sees its own session; concurrent chains never observe each other's.
type session struct {
	tx *sql.Tx
	id string
}

// CurrentSession returns the active unit-of-work carried by ctx, if any.
func CurrentSession(ctx context.Context) (*sql.Tx, bool) {
	s, ok := ctx.Value(sessionKey).(*session)
	if !ok {
		return nil, false
	}
	return s.tx, true
}

func sessionID(ctx context.Context) string {
	s, ok := ctx.Value(sessionKey).(*session)
	if !ok {
		return ""
	}
	return s.id
}

// Transaction runs fn inside a single unit-of-work. Every operation called
// with the context passed to fn participates in it; the transaction commits
// when fn returns nil and rolls back when fn returns an error or panics,
// with the error (or panic) propagated unchanged. Nothing is swallowed.
//
// Nested calls reuse the enclosing unit-of-work: there are no savepoint
// semantics, and commit/rollback stay with the outermost scope.
//
// If the context is cancelled while the scope is open, fn's error return
// still triggers rollback before the cancellation propagates; no open
// unit-of-work is left behind.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := CurrentSession(ctx); ok {
		return fn(ctx)
	}

	tx, err := d.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	s := &session{tx: tx, id: uuid.New().String()}
	sctx := context.WithValue(ctx, sessionKey, s)
	d.logger.Debug("transaction started", slog.String("tx", s.id))

	done := false
	defer func() {
		if !done {
			// Panic unwinding: roll back, then let the panic continue.
			_ = tx.Rollback()
			d.logger.Debug("transaction rolled back on panic", slog.String("tx", s.id))
		}
	}()

	if err := fn(sctx); err != nil {
		done = true
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			d.logger.Warn("rollback failed",
				slog.String("tx", s.id), slog.String("error", rbErr.Error()))
		}
		d.logger.Debug("transaction rolled back", slog.String("tx", s.id))
		return err
	}

	done = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	d.logger.Debug("transaction committed", slog.String("tx", s.id))
	return nil
}

// querier returns the ambient unit-of-work when one is active, otherwise
// the connection pool. Single-statement reads outside a transaction run in
// autocommit and observe only committed state.
func (d *Database) querier(ctx context.Context) adapter.DBTX {
	if tx, ok := CurrentSession(ctx); ok {
		return tx
	}
	return d.sqlDB
}

// withUnit runs fn inside the ambient unit-of-work when one is active (no
// individual commit), otherwise inside a private single-operation
// transaction committed on success and rolled back on error. Writes go
// through here because insert and update re-read their row and both
// statements must share one unit.
func (d *Database) withUnit(ctx context.Context, fn func(q adapter.DBTX) error) error {
	if tx, ok := CurrentSession(ctx); ok {
		return fn(tx)
	}

	tx, err := d.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
