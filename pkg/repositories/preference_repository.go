package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
)

// PreferenceRepository defines the interface for user preference data access.
type PreferenceRepository interface {
	Create(ctx context.Context, pref *models.UserPreference) error
	GetByID(ctx context.Context, id int64) (*models.UserPreference, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.UserPreference, error)
	Update(ctx context.Context, pref *models.UserPreference) error
	Delete(ctx context.Context, id int64) error
}

type preferenceRepository struct{}

var _ PreferenceRepository = (*preferenceRepository)(nil)

// NewPreferenceRepository creates a new preference repository.
func NewPreferenceRepository() PreferenceRepository {
	return &preferenceRepository{}
}

const preferenceColumns = `id, user_id, preference_type, preference_value, confidence, created_at, updated_at`

func scanPreference(row pgx.Row) (*models.UserPreference, error) {
	var p models.UserPreference
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.PreferenceType,
		&p.PreferenceValue,
		&p.Confidence,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *preferenceRepository) Create(ctx context.Context, pref *models.UserPreference) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_preferences (user_id, preference_type, preference_value, confidence)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		pref.UserID,
		pref.PreferenceType,
		pref.PreferenceValue,
		pref.Confidence,
	).Scan(&pref.ID, &pref.CreatedAt, &pref.UpdatedAt)
	return wrapDBError(err, "create preference")
}

func (r *preferenceRepository) GetByID(ctx context.Context, id int64) (*models.UserPreference, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	pref, err := scanPreference(c.QueryRow(ctx,
		`SELECT `+preferenceColumns+` FROM user_preferences WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBError(err, "get preference")
	}
	return pref, nil
}

func (r *preferenceRepository) ListByUser(ctx context.Context, userID int64) ([]*models.UserPreference, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx,
		`SELECT `+preferenceColumns+` FROM user_preferences WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, wrapDBError(err, "list preferences")
	}
	defer rows.Close()

	prefs := make([]*models.UserPreference, 0)
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, wrapDBError(err, "scan preference")
		}
		prefs = append(prefs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterate preferences")
	}
	return prefs, nil
}

func (r *preferenceRepository) Update(ctx context.Context, pref *models.UserPreference) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE user_preferences
		SET preference_type = $2, preference_value = $3, confidence = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = c.QueryRow(ctx, query,
		pref.ID,
		pref.PreferenceType,
		pref.PreferenceValue,
		pref.Confidence,
	).Scan(&pref.UpdatedAt)
	return wrapDBError(err, "update preference")
}

func (r *preferenceRepository) Delete(ctx context.Context, id int64) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	tag, err := c.Exec(ctx, `DELETE FROM user_preferences WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, "delete preference")
	}
	return expectOneRow(tag, "delete preference")
}
