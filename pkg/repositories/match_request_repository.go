package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
)

// MatchRequestRepository defines the interface for match request data access.
type MatchRequestRepository interface {
	// Create inserts a pending request. The status on match is overwritten.
	Create(ctx context.Context, match *models.MatchRequest) error
	GetByID(ctx context.Context, id int64) (*models.MatchRequest, error)
	// GetByIDForUpdate locks the request row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.MatchRequest, error)
	// Transition moves a request from one status to another. slotID, when non-nil,
	// is stored as the request's time slot. Returns ErrInvalidState when the
	// request is no longer in status from.
	Transition(ctx context.Context, id int64, from, to string, slotID *int64) (*models.MatchRequest, error)
	// Reschedule stores a new time, slot and venue on a pending request and marks
	// it rescheduled. Returns ErrInvalidState when the request is not pending.
	Reschedule(ctx context.Context, id int64, slotID *int64, proposedTime time.Time, venueID int64) (*models.MatchRequest, error)
	// ListReceived returns requests targeting userID, oldest first.
	ListReceived(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error)
	// ListSent returns requests made by userID, oldest first.
	ListSent(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error)
	// ExistsForSlot reports whether any request references the slot.
	ExistsForSlot(ctx context.Context, slotID int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type matchRequestRepository struct{}

var _ MatchRequestRepository = (*matchRequestRepository)(nil)

// NewMatchRequestRepository creates a new match request repository.
func NewMatchRequestRepository() MatchRequestRepository {
	return &matchRequestRepository{}
}

const matchRequestColumns = `id, requester_id, target_id, time_slot_id, proposed_time, venue_id, status, message, created_at, updated_at`

func scanMatchRequest(row pgx.Row) (*models.MatchRequest, error) {
	var m models.MatchRequest
	err := row.Scan(
		&m.ID,
		&m.RequesterID,
		&m.TargetID,
		&m.TimeSlotID,
		&m.ProposedTime,
		&m.VenueID,
		&m.Status,
		&m.Message,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ProposedTime = m.ProposedTime.UTC()
	return &m, nil
}

func (r *matchRequestRepository) Create(ctx context.Context, match *models.MatchRequest) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO match_requests (requester_id, target_id, time_slot_id, proposed_time, venue_id, status, message)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		RETURNING id, status, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		match.RequesterID,
		match.TargetID,
		match.TimeSlotID,
		match.ProposedTime,
		match.VenueID,
		match.Message,
	).Scan(&match.ID, &match.Status, &match.CreatedAt, &match.UpdatedAt)
	return wrapDBError(err, "create match request")
}

func (r *matchRequestRepository) GetByID(ctx context.Context, id int64) (*models.MatchRequest, error) {
	return r.get(ctx, `SELECT `+matchRequestColumns+` FROM match_requests WHERE id = $1`, id)
}

func (r *matchRequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.MatchRequest, error) {
	return r.get(ctx, `SELECT `+matchRequestColumns+` FROM match_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *matchRequestRepository) get(ctx context.Context, query string, id int64) (*models.MatchRequest, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	match, err := scanMatchRequest(c.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapDBError(err, "get match request")
	}
	return match, nil
}

func (r *matchRequestRepository) Transition(ctx context.Context, id int64, from, to string, slotID *int64) (*models.MatchRequest, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE match_requests
		SET status = $3, time_slot_id = COALESCE($4, time_slot_id), updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + matchRequestColumns

	match, err := scanMatchRequest(c.QueryRow(ctx, query, id, from, to, slotID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("match request %d is not %s: %w", id, from, apperrors.ErrInvalidState)
	}
	if err != nil {
		return nil, wrapDBError(err, "update match request status")
	}
	return match, nil
}

func (r *matchRequestRepository) Reschedule(ctx context.Context, id int64, slotID *int64, proposedTime time.Time, venueID int64) (*models.MatchRequest, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE match_requests
		SET status = 'rescheduled', time_slot_id = $2, proposed_time = $3, venue_id = $4, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + matchRequestColumns

	match, err := scanMatchRequest(c.QueryRow(ctx, query, id, slotID, proposedTime, venueID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("match request %d is not pending: %w", id, apperrors.ErrInvalidState)
	}
	if err != nil {
		return nil, wrapDBError(err, "reschedule match request")
	}
	return match, nil
}

const matchRequestViewQuery = `
	SELECT m.id, m.requester_id, m.target_id, m.time_slot_id, m.proposed_time, m.venue_id,
	       m.status, m.message, m.created_at, m.updated_at,
	       rq.name, rq.email, tg.name, tg.email, v.name, v.type
	FROM match_requests m
	JOIN users rq ON rq.id = m.requester_id
	JOIN users tg ON tg.id = m.target_id
	JOIN venues v ON v.id = m.venue_id`

func (r *matchRequestRepository) ListReceived(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error) {
	return r.listViews(ctx, `m.target_id`, userID, status, "list received match requests")
}

func (r *matchRequestRepository) ListSent(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error) {
	return r.listViews(ctx, `m.requester_id`, userID, status, "list sent match requests")
}

func (r *matchRequestRepository) listViews(ctx context.Context, userColumn string, userID int64, status *string, action string) ([]*models.MatchRequestView, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := matchRequestViewQuery + `
	WHERE ` + userColumn + ` = $1 AND ($2::text IS NULL OR m.status = $2)
	ORDER BY m.id`

	rows, err := c.Query(ctx, query, userID, status)
	if err != nil {
		return nil, wrapDBError(err, action)
	}
	defer rows.Close()

	views := make([]*models.MatchRequestView, 0)
	for rows.Next() {
		var v models.MatchRequestView
		err := rows.Scan(
			&v.ID,
			&v.RequesterID,
			&v.TargetID,
			&v.TimeSlotID,
			&v.ProposedTime,
			&v.VenueID,
			&v.Status,
			&v.Message,
			&v.CreatedAt,
			&v.UpdatedAt,
			&v.RequesterName,
			&v.RequesterEmail,
			&v.TargetName,
			&v.TargetEmail,
			&v.VenueName,
			&v.VenueType,
		)
		if err != nil {
			return nil, wrapDBError(err, "scan match request")
		}
		v.ProposedTime = v.ProposedTime.UTC()
		views = append(views, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, action)
	}
	return views, nil
}

func (r *matchRequestRepository) ExistsForSlot(ctx context.Context, slotID int64) (bool, error) {
	c, err := conn(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = c.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM match_requests WHERE time_slot_id = $1)`, slotID).Scan(&exists)
	if err != nil {
		return false, wrapDBError(err, "check match requests for time slot")
	}
	return exists, nil
}

func (r *matchRequestRepository) Delete(ctx context.Context, id int64) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	tag, err := c.Exec(ctx, `DELETE FROM match_requests WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, "delete match request")
	}
	return expectOneRow(tag, "delete match request")
}
