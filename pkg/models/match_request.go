package models

import (
	"time"
)

// Match request statuses. Every status other than pending is terminal.
const (
	MatchStatusPending     = "pending"
	MatchStatusAccepted    = "accepted"
	MatchStatusRejected    = "rejected"
	MatchStatusRescheduled = "rescheduled"
)

// ValidMatchStatuses contains all valid match request status values.
var ValidMatchStatuses = []string{
	MatchStatusPending,
	MatchStatusAccepted,
	MatchStatusRejected,
	MatchStatusRescheduled,
}

// IsValidMatchStatus checks if the given status is valid.
func IsValidMatchStatus(status string) bool {
	for _, s := range ValidMatchStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Actions a target can take on a pending match request.
const (
	MatchActionAccept     = "accept"
	MatchActionReject     = "reject"
	MatchActionReschedule = "reschedule"
)

// MatchRequest is a proposal from Requester to meet Target at a venue and time.
type MatchRequest struct {
	ID           int64     `json:"id"`
	RequesterID  int64     `json:"requester_id"`
	TargetID     int64     `json:"target_id"`
	TimeSlotID   *int64    `json:"time_slot_id,omitempty"`
	ProposedTime time.Time `json:"proposed_time"`
	VenueID      int64     `json:"venue_id"`
	Status       string    `json:"status"`
	Message      *string   `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsTerminal reports whether the request can no longer be responded to.
func (m *MatchRequest) IsTerminal() bool {
	return m.Status != MatchStatusPending
}

// MatchRequestView is a match request joined with the names the dashboards show.
type MatchRequestView struct {
	MatchRequest
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
	TargetName     string `json:"target_name"`
	TargetEmail    string `json:"target_email"`
	VenueName      string `json:"venue_name"`
	VenueType      string `json:"venue_type"`
}
