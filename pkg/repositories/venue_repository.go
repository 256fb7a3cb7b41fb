package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
)

// VenueRepository defines the interface for venue data access.
type VenueRepository interface {
	Create(ctx context.Context, venue *models.Venue) error
	GetByID(ctx context.Context, id int64) (*models.Venue, error)
	// List returns venues in insertion order, filtered by type when venueType is non-nil.
	List(ctx context.Context, venueType *string, offset, limit int) ([]*models.Venue, error)
	Update(ctx context.Context, venue *models.Venue) error
	Delete(ctx context.Context, id int64) error
}

type venueRepository struct{}

var _ VenueRepository = (*venueRepository)(nil)

// NewVenueRepository creates a new venue repository.
func NewVenueRepository() VenueRepository {
	return &venueRepository{}
}

const venueColumns = `id, name, type, COALESCE(price_range, ''), COALESCE(location, ''), description, created_by_id, created_at, updated_at`

func scanVenue(row pgx.Row) (*models.Venue, error) {
	var v models.Venue
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Type,
		&v.PriceRange,
		&v.Location,
		&v.Description,
		&v.CreatedByID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *venueRepository) Create(ctx context.Context, venue *models.Venue) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO venues (name, type, price_range, location, description, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		venue.Name,
		venue.Type,
		venue.PriceRange,
		venue.Location,
		venue.Description,
		venue.CreatedByID,
	).Scan(&venue.ID, &venue.CreatedAt, &venue.UpdatedAt)
	return wrapDBError(err, "create venue")
}

func (r *venueRepository) GetByID(ctx context.Context, id int64) (*models.Venue, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	venue, err := scanVenue(c.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBError(err, "get venue")
	}
	return venue, nil
}

func (r *venueRepository) List(ctx context.Context, venueType *string, offset, limit int) ([]*models.Venue, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}
	offset, limit = normalizePage(offset, limit)

	query := `
		SELECT ` + venueColumns + `
		FROM venues
		WHERE ($1::text IS NULL OR type = $1)
		ORDER BY id
		OFFSET $2 LIMIT $3`

	rows, err := c.Query(ctx, query, venueType, offset, limit)
	if err != nil {
		return nil, wrapDBError(err, "list venues")
	}
	defer rows.Close()

	venues := make([]*models.Venue, 0)
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, wrapDBError(err, "scan venue")
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterate venues")
	}
	return venues, nil
}

func (r *venueRepository) Update(ctx context.Context, venue *models.Venue) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE venues
		SET name = $2, type = $3, price_range = $4, location = $5, description = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = c.QueryRow(ctx, query,
		venue.ID,
		venue.Name,
		venue.Type,
		venue.PriceRange,
		venue.Location,
		venue.Description,
	).Scan(&venue.UpdatedAt)
	return wrapDBError(err, "update venue")
}

// Delete removes a venue. A venue referenced by a match request yields ErrConflict.
func (r *venueRepository) Delete(ctx context.Context, id int64) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	tag, err := c.Exec(ctx, `DELETE FROM venues WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, "delete venue")
	}
	return expectOneRow(tag, "delete venue")
}
