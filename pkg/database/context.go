package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type contextKey string

const (
	// ScopeKey is the context key for storing the request's database scope.
	ScopeKey contextKey = "dbScope"
)

// Scope carries the connection repositories run their statements on: a pooled
// connection for plain requests, or a transaction inside RunInTx.
type Scope struct {
	Conn    Querier
	release func()
}

// Close releases the underlying pooled connection. Scopes created by RunInTx
// have nothing to release.
func (s *Scope) Close() {
	if s == nil || s.release == nil {
		return
	}
	s.release()
	s.release = nil
}

// GetScope retrieves the database scope from context.
// Returns nil and false if not present.
func GetScope(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(ScopeKey).(*Scope)
	return scope, ok && scope != nil && scope.Conn != nil
}

// SetScope stores the database scope in context.
func SetScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}

// Acquire takes a connection from the pool and wraps it in a Scope.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) Acquire(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Scope{Conn: conn, release: conn.Release}, nil
}

// WithScope returns a context carrying a freshly acquired connection and the
// cleanup function that releases it.
func (db *DB) WithScope(ctx context.Context) (context.Context, func(), error) {
	scope, err := db.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return SetScope(ctx, scope), scope.Close, nil
}

// RunInTx runs fn inside a transaction opened on the context's scope. fn
// receives a context whose scope is the transaction, so every repository call
// made with it joins the transaction. The transaction commits when fn returns
// nil and rolls back otherwise. Calling RunInTx from inside fn opens a savepoint.
func RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, ok := GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	return pgx.BeginFunc(ctx, scope.Conn, func(tx pgx.Tx) error {
		return fn(SetScope(ctx, &Scope{Conn: tx}))
	})
}
