// Package seed loads demonstration data through the service layer.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/services"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Fixture is the seed data set.
type Fixture struct {
	Users       []UserFixture       `yaml:"users"`
	Venues      []VenueFixture      `yaml:"venues"`
	Preferences []PreferenceFixture `yaml:"preferences"`
	Schedule    Schedule            `yaml:"schedule"`
}

type UserFixture struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Bio      string `yaml:"bio"`
	Location string `yaml:"location"`
}

type VenueFixture struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	PriceRange  string `yaml:"price_range"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
}

// PreferenceFixture refers to its user by email.
type PreferenceFixture struct {
	Email string `yaml:"email"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// Schedule generates availability for the days following the seed date.
type Schedule struct {
	Days    int      `yaml:"days"`
	Windows []Window `yaml:"windows"`
}

// Window is a daily time range offered to a subset of users on a subset of days.
type Window struct {
	Label       string `yaml:"label"`
	StartHour   int    `yaml:"start_hour"`
	EndHour     int    `yaml:"end_hour"`
	DayModulus  int    `yaml:"day_modulus"`
	UserModulus int    `yaml:"user_modulus"`
	Match       string `yaml:"match"` // equal | differ
}

// Offered reports whether the window applies to the user at position user
// (1-based) on day (1-based).
func (w Window) Offered(day, user int) bool {
	same := day%w.DayModulus == user%w.UserModulus
	if w.Match == "differ" {
		return !same
	}
	return same
}

// DefaultFixture returns the embedded demo fixture.
func DefaultFixture() (*Fixture, error) {
	return LoadFixture(defaultFixture)
}

// LoadFixture parses and checks a YAML fixture.
func LoadFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid seed fixture: %w", err)
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	emails := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		emails[u.Email] = true
	}
	for _, p := range f.Preferences {
		if !emails[p.Email] {
			return fmt.Errorf("preference %q refers to unknown user %q", p.Type, p.Email)
		}
	}
	if f.Schedule.Days < 0 {
		return fmt.Errorf("schedule days must not be negative")
	}
	for _, w := range f.Schedule.Windows {
		if w.DayModulus <= 0 || w.UserModulus <= 0 {
			return fmt.Errorf("window %q: moduli must be positive", w.Label)
		}
		if w.StartHour < 0 || w.EndHour > 24 || w.EndHour <= w.StartHour {
			return fmt.Errorf("window %q: invalid hours %d-%d", w.Label, w.StartHour, w.EndHour)
		}
		if w.Match != "equal" && w.Match != "differ" {
			return fmt.Errorf("window %q: match must be equal or differ", w.Label)
		}
	}
	return nil
}

// Result summarizes what a seed run created.
type Result struct {
	Skipped     bool
	Users       int
	Venues      int
	Slots       int
	Preferences int
}

// Seeder writes a Fixture through the services so every record passes the
// same validation as API input.
type Seeder struct {
	users  services.UserService
	venues services.VenueService
	slots  services.TimeSlotService
	prefs  services.PreferenceService
	now    func() time.Time
	logger *zap.Logger
}

// NewSeeder creates a new seeder.
func NewSeeder(
	users services.UserService,
	venues services.VenueService,
	slots services.TimeSlotService,
	prefs services.PreferenceService,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		users:  users,
		venues: venues,
		slots:  slots,
		prefs:  prefs,
		now:    time.Now,
		logger: logger.Named("seed"),
	}
}

// Run loads f unless users already exist, in which case nothing is written.
func (s *Seeder) Run(ctx context.Context, f *Fixture) (*Result, error) {
	existing, err := s.users.List(ctx, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("check existing users: %w", err)
	}
	if len(existing) > 0 {
		s.logger.Info("Users already present, skipping seed")
		return &Result{Skipped: true}, nil
	}

	res := &Result{}
	ids := make(map[string]int64, len(f.Users))
	base := s.now().UTC().Truncate(24 * time.Hour)

	for i, uf := range f.Users {
		user, err := s.users.Create(ctx, &models.User{
			Name:     uf.Name,
			Email:    uf.Email,
			Bio:      optional(uf.Bio),
			Location: optional(uf.Location),
		})
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", uf.Email, err)
		}
		ids[uf.Email] = user.ID
		res.Users++

		for _, slot := range f.Schedule.SlotsFor(i+1, base) {
			slot.UserID = user.ID
			if _, err := s.slots.Create(ctx, slot); err != nil {
				return res, fmt.Errorf("seed slot for %s: %w", uf.Email, err)
			}
			res.Slots++
		}
	}

	for _, vf := range f.Venues {
		_, err := s.venues.Create(ctx, &models.Venue{
			Name:        vf.Name,
			Type:        vf.Type,
			PriceRange:  vf.PriceRange,
			Location:    vf.Location,
			Description: optional(vf.Description),
		})
		if err != nil {
			return res, fmt.Errorf("seed venue %s: %w", vf.Name, err)
		}
		res.Venues++
	}

	for _, pf := range f.Preferences {
		_, err := s.prefs.Create(ctx, &models.UserPreference{
			UserID:          ids[pf.Email],
			PreferenceType:  pf.Type,
			PreferenceValue: pf.Value,
		})
		if err != nil {
			return res, fmt.Errorf("seed preference for %s: %w", pf.Email, err)
		}
		res.Preferences++
	}

	s.logger.Info("Seed complete",
		zap.Int("users", res.Users),
		zap.Int("venues", res.Venues),
		zap.Int("slots", res.Slots),
		zap.Int("preferences", res.Preferences))
	return res, nil
}

// SlotsFor returns the windows offered to the user at position user, on the
// days after base (midnight UTC). Owner ids are left for the caller.
func (sc Schedule) SlotsFor(user int, base time.Time) []*models.TimeSlot {
	var slots []*models.TimeSlot
	for day := 1; day <= sc.Days; day++ {
		date := base.AddDate(0, 0, day)
		for _, w := range sc.Windows {
			if !w.Offered(day, user) {
				continue
			}
			slots = append(slots, &models.TimeSlot{
				StartTime: date.Add(time.Duration(w.StartHour) * time.Hour),
				EndTime:   date.Add(time.Duration(w.EndHour) * time.Hour),
			})
		}
	}
	return slots
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
