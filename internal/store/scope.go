// ABOUTME: Transaction scope: one unit of work with commit/rollback on exit
// ABOUTME: Every ledger operation runs inside exactly one scope

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Scope is the statement surface available inside WithScope.
// It is only valid until the function passed to WithScope returns.
type Scope interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row

	// ID identifies the scope in logs.
	ID() string
	// Actor is the acting identity taken from the context.
	Actor() string
	// Now is the store clock, fixed at scope entry.
	Now() time.Time
}

type txScope struct {
	*sql.Tx
	id    string
	actor string
	now   time.Time
}

func (t *txScope) ID() string     { return t.id }
func (t *txScope) Actor() string  { return t.actor }
func (t *txScope) Now() time.Time { return t.now }

// WithScope runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics; a panic
// is re-raised after the rollback. The connection is released on every
// path. Errors are returned as *Fault, classified under op.
func (s *Store) WithScope(ctx context.Context, op string, fn func(Scope) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewFault(KindStorage, op, fmt.Errorf("beginning transaction: %w", err))
	}

	sc := &txScope{
		Tx:    tx,
		id:    uuid.New().String(),
		actor: ActorFrom(ctx),
		now:   s.Now(),
	}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			s.logger.Error("scope panicked, rolled back", "scope", sc.id, "op", op, "panic", p)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = NewFault(KindOf(err), op, fmt.Errorf("rollback failed (%v) after: %w", rbErr, err))
			}
			s.logger.Debug("scope rolled back", "scope", sc.id, "op", op, "error", err)
		}
	}()

	if err = fn(sc); err != nil {
		return Wrap(op, err)
	}

	if err = tx.Commit(); err != nil {
		return NewFault(KindStorage, op, fmt.Errorf("committing transaction: %w", err))
	}

	s.logger.Debug("scope committed",
		"scope", sc.id,
		"op", op,
		"actor", sc.actor,
		"duration", time.Since(start),
	)
	return nil
}
