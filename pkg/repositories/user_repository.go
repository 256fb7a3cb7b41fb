package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]*models.User, error)
	// Update persists the mutable fields of user.
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
}

type userRepository struct{}

var _ UserRepository = (*userRepository)(nil)

// NewUserRepository creates a new user repository.
func NewUserRepository() UserRepository {
	return &userRepository{}
}

const userColumns = `id, name, email, bio, location, ai_analysis_json, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Bio,
		&u.Location,
		&u.AIAnalysisJSON,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (name, email, bio, location, ai_analysis_json)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Bio,
		user.Location,
		user.AIAnalysisJSON,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return wrapDBError(err, "create user")
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	user, err := scanUser(c.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBError(err, "get user")
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	user, err := scanUser(c.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, wrapDBError(err, "get user by email")
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}
	offset, limit = normalizePage(offset, limit)

	rows, err := c.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, wrapDBError(err, "list users")
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapDBError(err, "scan user")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterate users")
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET name = $2, bio = $3, location = $4, ai_analysis_json = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = c.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Bio,
		user.Location,
		user.AIAnalysisJSON,
	).Scan(&user.UpdatedAt)
	return wrapDBError(err, "update user")
}

// Delete removes a user. Slots and preferences cascade; a user still referenced
// by a match request yields ErrConflict.
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	tag, err := c.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, "delete user")
	}
	return expectOneRow(tag, "delete user")
}
