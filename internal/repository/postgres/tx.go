package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tessera/internal/port"
)

type txKey struct{}

// runner is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx that the
// repositories use, so the same statement runs inside or outside a
// transaction.
type runner interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	sqlx.ExecerContext
}

// q returns the transaction bound to ctx if one is, otherwise the pool.
func q(ctx context.Context, db *sqlx.DB) runner {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

type txRunner struct {
	db *sqlx.DB
}

// NewTxRunner creates a TxRunner backed by the connection pool. The
// transaction rides on the context so repositories pick it up without
// API changes.
func NewTxRunner(db *sqlx.DB) port.TxRunner {
	return &txRunner{db: db}
}

func (t *txRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("txRunner.RunInTx begin: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("txRunner.RunInTx rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("txRunner.RunInTx commit: %w", err)
	}
	return nil
}
