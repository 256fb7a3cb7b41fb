package models

import (
	"fmt"
	"time"
)

// Time slot statuses. A slot moves between them only through the slot allocator.
const (
	TimeSlotAvailable = "available"
	TimeSlotBooked    = "booked"
)

// TimeSlot is a window during which its owner is available to meet.
type TimeSlot struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	BookedMatchID *int64    `json:"booked_match_id,omitempty"` // Set while status is booked
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the window of a slot about to be persisted.
func (s *TimeSlot) Validate() error {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return fmt.Errorf("start_time and end_time are required")
	}
	if !s.EndTime.After(s.StartTime) {
		return fmt.Errorf("end_time must be after start_time")
	}
	return nil
}

// IsAvailable reports whether the slot can still be reserved.
func (s *TimeSlot) IsAvailable() bool {
	return s.Status == TimeSlotAvailable
}

// TimeSlotPatch changes the window of a slot. Status is not patchable.
type TimeSlotPatch struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *TimeSlotPatch) IsEmpty() bool {
	return p.StartTime == nil && p.EndTime == nil
}

// Apply copies the set fields onto s and re-checks the window.
func (p *TimeSlotPatch) Apply(s *TimeSlot) error {
	if p.StartTime != nil {
		s.StartTime = p.StartTime.UTC()
	}
	if p.EndTime != nil {
		s.EndTime = p.EndTime.UTC()
	}
	return s.Validate()
}
