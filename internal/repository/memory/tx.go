package memory

import (
	"context"

	"tessera/internal/port"
)

type txRunner struct{}

// NewTxRunner creates a TxRunner for the in-memory backend. Each store
// operation is already atomic under its own lock, so the function simply
// runs; there is no rollback.
func NewTxRunner() port.TxRunner {
	return &txRunner{}
}

func (t *txRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
