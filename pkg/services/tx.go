package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/database"
	"github.com/coffee-matcher/matcher-engine/pkg/retry"
)

// TxRunner runs fn as one unit of work. Repository calls made with the context
// passed to fn commit or roll back together.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// NewTxRunner returns a TxRunner backed by a database transaction on the
// context's scope. A transaction that loses a serialization race or deadlock
// is replayed once before the error surfaces.
func NewTxRunner(logger *zap.Logger) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		attempt := 0
		return retry.DoIfRetryable(ctx, retry.TxConflictConfig(), func() error {
			attempt++
			if attempt > 1 {
				logger.Info("Replaying transaction after conflict", zap.Int("attempt", attempt))
			}
			return database.RunInTx(ctx, fn)
		})
	}
}

// ScopeFunc acquires a pooled connection for work that runs outside an HTTP
// request. Returns the scoped context, a cleanup function (MUST be called),
// and any error.
type ScopeFunc func(ctx context.Context) (context.Context, func(), error)

// NewScopeFunc creates a ScopeFunc that uses the given database.
func NewScopeFunc(db *database.DB) ScopeFunc {
	return db.WithScope
}
