package models

import (
	"fmt"
	"strings"
	"time"
)

// Venue types.
const (
	VenueTypeCoffee     = "coffee"
	VenueTypeRestaurant = "restaurant"
)

// ValidVenueTypes contains all valid venue type values.
var ValidVenueTypes = []string{VenueTypeCoffee, VenueTypeRestaurant}

// IsValidVenueType checks if the given venue type is valid.
func IsValidVenueType(t string) bool {
	for _, v := range ValidVenueTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Venue is a place a meetup can be held.
type Venue struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	PriceRange  string    `json:"price_range"`
	Location    string    `json:"location"`
	Description *string   `json:"description,omitempty"`
	CreatedByID *int64    `json:"created_by_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the fields required to persist a venue.
func (v *Venue) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !IsValidVenueType(v.Type) {
		return fmt.Errorf("invalid venue type: %q", v.Type)
	}
	return nil
}

// VenuePatch enumerates the venue fields that may be changed after creation.
type VenuePatch struct {
	Name        *string `json:"name,omitempty"`
	Type        *string `json:"type,omitempty"`
	PriceRange  *string `json:"price_range,omitempty"`
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *VenuePatch) IsEmpty() bool {
	return p.Name == nil && p.Type == nil && p.PriceRange == nil && p.Location == nil && p.Description == nil
}

// Apply validates each set field and copies it onto v.
func (p *VenuePatch) Apply(v *Venue) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return fmt.Errorf("name must not be empty")
		}
		v.Name = *p.Name
	}
	if p.Type != nil {
		if !IsValidVenueType(*p.Type) {
			return fmt.Errorf("invalid venue type: %q", *p.Type)
		}
		v.Type = *p.Type
	}
	if p.PriceRange != nil {
		v.PriceRange = *p.PriceRange
	}
	if p.Location != nil {
		v.Location = *p.Location
	}
	if p.Description != nil {
		v.Description = p.Description
	}
	return nil
}
