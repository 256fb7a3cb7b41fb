package models

import (
	"fmt"
	"strings"
	"time"
)

// Confidence bounds for a user preference.
const (
	MinPreferenceConfidence     = 1
	MaxPreferenceConfidence     = 100
	DefaultPreferenceConfidence = MinPreferenceConfidence
)

// UserPreference is an advisory preference record. Nothing in the matching
// lifecycle reads it.
type UserPreference struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	PreferenceType  string    `json:"preference_type"`
	PreferenceValue string    `json:"preference_value"`
	Confidence      int       `json:"confidence"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Validate checks the fields required to persist a preference.
// A zero confidence is replaced by the default.
func (p *UserPreference) Validate() error {
	if strings.TrimSpace(p.PreferenceType) == "" {
		return fmt.Errorf("preference_type is required")
	}
	if p.Confidence == 0 {
		p.Confidence = DefaultPreferenceConfidence
	}
	return validateConfidence(p.Confidence)
}

// PreferencePatch enumerates the preference fields that may be changed.
type PreferencePatch struct {
	PreferenceType  *string `json:"preference_type,omitempty"`
	PreferenceValue *string `json:"preference_value,omitempty"`
	Confidence      *int    `json:"confidence,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *PreferencePatch) IsEmpty() bool {
	return p.PreferenceType == nil && p.PreferenceValue == nil && p.Confidence == nil
}

// Apply validates each set field and copies it onto pref.
func (p *PreferencePatch) Apply(pref *UserPreference) error {
	if p.PreferenceType != nil {
		if strings.TrimSpace(*p.PreferenceType) == "" {
			return fmt.Errorf("preference_type must not be empty")
		}
		pref.PreferenceType = *p.PreferenceType
	}
	if p.PreferenceValue != nil {
		pref.PreferenceValue = *p.PreferenceValue
	}
	if p.Confidence != nil {
		if err := validateConfidence(*p.Confidence); err != nil {
			return err
		}
		pref.Confidence = *p.Confidence
	}
	return nil
}

func validateConfidence(c int) error {
	if c < MinPreferenceConfidence || c > MaxPreferenceConfidence {
		return fmt.Errorf("confidence must be between %d and %d, got %d",
			MinPreferenceConfidence, MaxPreferenceConfidence, c)
	}
	return nil
}
