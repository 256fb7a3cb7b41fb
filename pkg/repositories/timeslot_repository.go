package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
)

// TimeSlotRepository defines the interface for time slot data access.
// Status changes go through Reserve and Release only.
type TimeSlotRepository interface {
	Create(ctx context.Context, slot *models.TimeSlot) error
	GetByID(ctx context.Context, id int64) (*models.TimeSlot, error)
	// GetByIDForUpdate locks the slot row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.TimeSlot, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.TimeSlot, error)
	// ListAvailable returns available slots ordered by start time. A nil userID
	// matches every owner; a nil after disables the start time filter.
	ListAvailable(ctx context.Context, userID *int64, after *time.Time) ([]*models.TimeSlot, error)
	// ListAvailableForUsers returns available slots starting after the given
	// time, grouped by owner.
	ListAvailableForUsers(ctx context.Context, userIDs []int64, after time.Time) (map[int64][]*models.TimeSlot, error)
	// FindByOwnerAndStart returns the owner's slot starting exactly at start,
	// preferring an available one.
	FindByOwnerAndStart(ctx context.Context, userID int64, start time.Time) (*models.TimeSlot, error)
	// UpdateWindow persists start_time and end_time.
	UpdateWindow(ctx context.Context, slot *models.TimeSlot) error
	Delete(ctx context.Context, id int64) error

	// Reserve books an available slot for matchID in a single compare-and-swap.
	// It reports false when the slot is missing or not available.
	Reserve(ctx context.Context, slotID, matchID int64) (bool, error)
	// Release makes a booked slot available again. It reports false when the
	// slot was not booked.
	Release(ctx context.Context, slotID int64) (bool, error)
}

type timeSlotRepository struct{}

var _ TimeSlotRepository = (*timeSlotRepository)(nil)

// NewTimeSlotRepository creates a new time slot repository.
func NewTimeSlotRepository() TimeSlotRepository {
	return &timeSlotRepository{}
}

const timeSlotColumns = `id, user_id, start_time, end_time, status, booked_match_id, created_at, updated_at`

func scanTimeSlot(row pgx.Row) (*models.TimeSlot, error) {
	var s models.TimeSlot
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.BookedMatchID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	return &s, nil
}

func collectTimeSlots(rows pgx.Rows, action string) ([]*models.TimeSlot, error) {
	defer rows.Close()

	slots := make([]*models.TimeSlot, 0)
	for rows.Next() {
		s, err := scanTimeSlot(rows)
		if err != nil {
			return nil, wrapDBError(err, "scan time slot")
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, action)
	}
	return slots, nil
}

// Create inserts an available slot. The status on slot is overwritten.
func (r *timeSlotRepository) Create(ctx context.Context, slot *models.TimeSlot) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO time_slots (user_id, start_time, end_time, status)
		VALUES ($1, $2, $3, 'available')
		RETURNING id, status, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		slot.UserID,
		slot.StartTime,
		slot.EndTime,
	).Scan(&slot.ID, &slot.Status, &slot.CreatedAt, &slot.UpdatedAt)
	slot.BookedMatchID = nil
	return wrapDBError(err, "create time slot")
}

func (r *timeSlotRepository) GetByID(ctx context.Context, id int64) (*models.TimeSlot, error) {
	return r.get(ctx, `SELECT `+timeSlotColumns+` FROM time_slots WHERE id = $1`, id)
}

func (r *timeSlotRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.TimeSlot, error) {
	return r.get(ctx, `SELECT `+timeSlotColumns+` FROM time_slots WHERE id = $1 FOR UPDATE`, id)
}

func (r *timeSlotRepository) get(ctx context.Context, query string, id int64) (*models.TimeSlot, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	slot, err := scanTimeSlot(c.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapDBError(err, "get time slot")
	}
	return slot, nil
}

func (r *timeSlotRepository) ListByUser(ctx context.Context, userID int64) ([]*models.TimeSlot, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx,
		`SELECT `+timeSlotColumns+` FROM time_slots WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, wrapDBError(err, "list time slots")
	}
	return collectTimeSlots(rows, "list time slots")
}

func (r *timeSlotRepository) ListAvailable(ctx context.Context, userID *int64, after *time.Time) ([]*models.TimeSlot, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + timeSlotColumns + `
		FROM time_slots
		WHERE status = 'available'
		  AND ($1::bigint IS NULL OR user_id = $1)
		  AND ($2::timestamptz IS NULL OR start_time > $2)
		ORDER BY start_time, id`

	rows, err := c.Query(ctx, query, userID, after)
	if err != nil {
		return nil, wrapDBError(err, "list available time slots")
	}
	return collectTimeSlots(rows, "list available time slots")
}

func (r *timeSlotRepository) ListAvailableForUsers(ctx context.Context, userIDs []int64, after time.Time) (map[int64][]*models.TimeSlot, error) {
	grouped := make(map[int64][]*models.TimeSlot, len(userIDs))
	if len(userIDs) == 0 {
		return grouped, nil
	}

	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + timeSlotColumns + `
		FROM time_slots
		WHERE status = 'available'
		  AND user_id = ANY($1)
		  AND start_time > $2
		ORDER BY user_id, start_time, id`

	rows, err := c.Query(ctx, query, userIDs, after)
	if err != nil {
		return nil, wrapDBError(err, "list available time slots")
	}
	slots, err := collectTimeSlots(rows, "list available time slots")
	if err != nil {
		return nil, err
	}

	for _, s := range slots {
		grouped[s.UserID] = append(grouped[s.UserID], s)
	}
	return grouped, nil
}

func (r *timeSlotRepository) FindByOwnerAndStart(ctx context.Context, userID int64, start time.Time) (*models.TimeSlot, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + timeSlotColumns + `
		FROM time_slots
		WHERE user_id = $1 AND start_time = $2
		ORDER BY (status = 'available') DESC, id
		LIMIT 1`

	slot, err := scanTimeSlot(c.QueryRow(ctx, query, userID, start))
	if err != nil {
		return nil, wrapDBError(err, "find time slot")
	}
	return slot, nil
}

func (r *timeSlotRepository) UpdateWindow(ctx context.Context, slot *models.TimeSlot) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE time_slots
		SET start_time = $2, end_time = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = c.QueryRow(ctx, query, slot.ID, slot.StartTime, slot.EndTime).Scan(&slot.UpdatedAt)
	return wrapDBError(err, "update time slot")
}

// Delete removes a slot. A slot referenced by a match request yields ErrConflict.
func (r *timeSlotRepository) Delete(ctx context.Context, id int64) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	tag, err := c.Exec(ctx, `DELETE FROM time_slots WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, "delete time slot")
	}
	return expectOneRow(tag, "delete time slot")
}

func (r *timeSlotRepository) Reserve(ctx context.Context, slotID, matchID int64) (bool, error) {
	c, err := conn(ctx)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE time_slots
		SET status = 'booked', booked_match_id = $2, updated_at = now()
		WHERE id = $1 AND status = 'available'`

	tag, err := c.Exec(ctx, query, slotID, matchID)
	if err != nil {
		return false, wrapDBError(err, "reserve time slot")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *timeSlotRepository) Release(ctx context.Context, slotID int64) (bool, error) {
	c, err := conn(ctx)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE time_slots
		SET status = 'available', booked_match_id = NULL, updated_at = now()
		WHERE id = $1 AND status = 'booked'`

	tag, err := c.Exec(ctx, query, slotID)
	if err != nil {
		return false, wrapDBError(err, "release time slot")
	}
	return tag.RowsAffected() == 1, nil
}
