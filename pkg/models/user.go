package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// User is a professional who publishes availability and exchanges match requests.
type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Bio            *string   `json:"bio,omitempty"`
	Location       *string   `json:"location,omitempty"`
	AIAnalysisJSON *string   `json:"ai_analysis_json,omitempty"` // Placeholder, never interpreted
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the fields required to persist a user.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("email is required")
	}
	return validateAnalysisJSON(u.AIAnalysisJSON)
}

// UserPatch enumerates the user fields that may be changed after creation.
// Nil fields are left untouched.
type UserPatch struct {
	Name           *string `json:"name,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Location       *string `json:"location,omitempty"`
	AIAnalysisJSON *string `json:"ai_analysis_json,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Bio == nil && p.Location == nil && p.AIAnalysisJSON == nil
}

// Apply validates each set field and copies it onto u.
func (p *UserPatch) Apply(u *User) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return fmt.Errorf("name must not be empty")
		}
		u.Name = *p.Name
	}
	if p.Bio != nil {
		u.Bio = p.Bio
	}
	if p.Location != nil {
		u.Location = p.Location
	}
	if p.AIAnalysisJSON != nil {
		if err := validateAnalysisJSON(p.AIAnalysisJSON); err != nil {
			return err
		}
		u.AIAnalysisJSON = p.AIAnalysisJSON
	}
	return nil
}

func validateAnalysisJSON(s *string) error {
	if s == nil || *s == "" {
		return nil
	}
	if !json.Valid([]byte(*s)) {
		return fmt.Errorf("ai_analysis_json must be valid JSON")
	}
	return nil
}

// DirectoryEntry is a user together with their upcoming available slots.
type DirectoryEntry struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Bio            *string     `json:"bio,omitempty"`
	Location       *string     `json:"location,omitempty"`
	AvailableSlots []*TimeSlot `json:"available_slots"`
}
