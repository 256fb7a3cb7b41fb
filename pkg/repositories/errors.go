package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/database"
)

// PostgreSQL SQLSTATE codes translated into application errors.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateCheckViolation      = "23514"
)

// conn returns the connection carried by the context's database scope.
func conn(ctx context.Context) (database.Querier, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}
	return scope.Conn, nil
}

// wrapDBError translates driver errors into apperrors sentinels so callers can
// branch with errors.Is. action reads like "get user".
func wrapDBError(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", action, apperrors.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation, sqlStateForeignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", action, apperrors.ErrConflict, pgErr.ConstraintName)
		case sqlStateCheckViolation:
			return fmt.Errorf("%s: %w (%s)", action, apperrors.ErrInvalidInput, pgErr.ConstraintName)
		}
	}

	return fmt.Errorf("failed to %s: %w", action, err)
}

// expectOneRow returns ErrNotFound when an UPDATE or DELETE touched nothing.
func expectOneRow(tag pgconn.CommandTag, action string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", action, apperrors.ErrNotFound)
	}
	return nil
}

// normalizePage clamps offset/limit to sane bounds.
func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return offset, limit
}

// Paging defaults for list queries.
const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)
