package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/repositories"
)

// memStore is an in-memory stand-in for the five repositories. Conditional
// updates run under one mutex so they behave like the compare-and-swap
// statements of the real store.
type memStore struct {
	mu     sync.Mutex
	nextID int64

	users  map[int64]*models.User
	venues map[int64]*models.Venue
	slots  map[int64]*models.TimeSlot
	prefs  map[int64]*models.UserPreference
	match  map[int64]*models.MatchRequest

	// Injected failures
	reserveErr     error
	createMatchErr error

	// Counters for verification
	reserveCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[int64]*models.User),
		venues: make(map[int64]*models.Venue),
		slots:  make(map[int64]*models.TimeSlot),
		prefs:  make(map[int64]*models.UserPreference),
		match:  make(map[int64]*models.MatchRequest),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, apperrors.ErrNotFound)
}

// passthroughTx runs fn directly; memStore has no rollback.
func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- seeding helpers ---

func (m *memStore) addUser(name string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: m.id(), Name: name, Email: name + "@example.com"}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addVenue(name, venueType string) *models.Venue {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := &models.Venue{ID: m.id(), Name: name, Type: venueType}
	m.venues[v.ID] = v
	return v
}

func (m *memStore) addSlot(userID int64, start time.Time) *models.TimeSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &models.TimeSlot{
		ID:        m.id(),
		UserID:    userID,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Status:    models.TimeSlotAvailable,
	}
	m.slots[s.ID] = s
	return s
}

func (m *memStore) slot(id int64) models.TimeSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.slots[id]
}

func (m *memStore) matchRequest(id int64) models.MatchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.match[id]
}

// --- UserRepository ---

type memUsers struct{ *memStore }

var _ repositories.UserRepository = memUsers{}

func (r memUsers) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("create user: %w", apperrors.ErrConflict)
		}
	}
	user.ID = r.id()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user by email: %w", apperrors.ErrNotFound)
}

func (r memUsers) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []*models.User{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r memUsers) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return notFound("user", user.ID)
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r memUsers) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return notFound("user", id)
	}
	for _, mr := range r.match {
		if mr.RequesterID == id || mr.TargetID == id {
			return fmt.Errorf("delete user: %w", apperrors.ErrConflict)
		}
	}
	delete(r.users, id)
	return nil
}

// --- VenueRepository ---

type memVenues struct{ *memStore }

var _ repositories.VenueRepository = memVenues{}

func (r memVenues) Create(ctx context.Context, venue *models.Venue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	venue.ID = r.id()
	cp := *venue
	r.venues[venue.ID] = &cp
	return nil
}

func (r memVenues) GetByID(ctx context.Context, id int64) (*models.Venue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.venues[id]
	if !ok {
		return nil, notFound("venue", id)
	}
	cp := *v
	return &cp, nil
}

func (r memVenues) List(ctx context.Context, venueType *string, offset, limit int) ([]*models.Venue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Venue, 0)
	for _, v := range r.venues {
		if venueType == nil || v.Type == *venueType {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memVenues) Update(ctx context.Context, venue *models.Venue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *venue
	r.venues[venue.ID] = &cp
	return nil
}

func (r memVenues) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.venues[id]; !ok {
		return notFound("venue", id)
	}
	for _, mr := range r.match {
		if mr.VenueID == id {
			return fmt.Errorf("delete venue: %w", apperrors.ErrConflict)
		}
	}
	delete(r.venues, id)
	return nil
}

// --- TimeSlotRepository ---

type memSlots struct{ *memStore }

var _ repositories.TimeSlotRepository = memSlots{}

func (r memSlots) Create(ctx context.Context, slot *models.TimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot.ID = r.id()
	slot.Status = models.TimeSlotAvailable
	slot.BookedMatchID = nil
	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r memSlots) GetByID(ctx context.Context, id int64) (*models.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, notFound("time slot", id)
	}
	cp := *s
	return &cp, nil
}

func (r memSlots) GetByIDForUpdate(ctx context.Context, id int64) (*models.TimeSlot, error) {
	return r.GetByID(ctx, id)
}

func (r memSlots) sorted(filter func(*models.TimeSlot) bool) []*models.TimeSlot {
	out := make([]*models.TimeSlot, 0)
	for _, s := range r.slots {
		if filter(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r memSlots) ListByUser(ctx context.Context, userID int64) ([]*models.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(s *models.TimeSlot) bool { return s.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memSlots) ListAvailable(ctx context.Context, userID *int64, after *time.Time) ([]*models.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(s *models.TimeSlot) bool {
		return s.IsAvailable() &&
			(userID == nil || s.UserID == *userID) &&
			(after == nil || s.StartTime.After(*after))
	}), nil
}

func (r memSlots) ListAvailableForUsers(ctx context.Context, userIDs []int64, after time.Time) (map[int64][]*models.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	grouped := make(map[int64][]*models.TimeSlot)
	for _, s := range r.sorted(func(s *models.TimeSlot) bool {
		return s.IsAvailable() && wanted[s.UserID] && s.StartTime.After(after)
	}) {
		grouped[s.UserID] = append(grouped[s.UserID], s)
	}
	return grouped, nil
}

func (r memSlots) FindByOwnerAndStart(ctx context.Context, userID int64, start time.Time) (*models.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.TimeSlot
	for _, s := range r.sorted(func(s *models.TimeSlot) bool {
		return s.UserID == userID && s.StartTime.Equal(start)
	}) {
		if found == nil || (s.IsAvailable() && !found.IsAvailable()) {
			found = s
		}
	}
	if found == nil {
		return nil, fmt.Errorf("find time slot: %w", apperrors.ErrNotFound)
	}
	return found, nil
}

func (r memSlots) UpdateWindow(ctx context.Context, slot *models.TimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slot.ID]
	if !ok {
		return notFound("time slot", slot.ID)
	}
	s.StartTime = slot.StartTime
	s.EndTime = slot.EndTime
	return nil
}

func (r memSlots) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[id]; !ok {
		return notFound("time slot", id)
	}
	for _, mr := range r.match {
		if mr.TimeSlotID != nil && *mr.TimeSlotID == id {
			return fmt.Errorf("delete time slot: %w", apperrors.ErrConflict)
		}
	}
	delete(r.slots, id)
	return nil
}

func (r memSlots) Reserve(ctx context.Context, slotID, matchID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reserveCalls++
	if r.reserveErr != nil {
		return false, r.reserveErr
	}
	s, ok := r.slots[slotID]
	if !ok || !s.IsAvailable() {
		return false, nil
	}
	s.Status = models.TimeSlotBooked
	id := matchID
	s.BookedMatchID = &id
	return true, nil
}

func (r memSlots) Release(ctx context.Context, slotID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok || s.IsAvailable() {
		return false, nil
	}
	s.Status = models.TimeSlotAvailable
	s.BookedMatchID = nil
	return true, nil
}

// --- MatchRequestRepository ---

type memMatches struct{ *memStore }

var _ repositories.MatchRequestRepository = memMatches{}

func (r memMatches) Create(ctx context.Context, mr *models.MatchRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createMatchErr != nil {
		return r.createMatchErr
	}
	mr.ID = r.id()
	mr.Status = models.MatchStatusPending
	cp := *mr
	r.match[mr.ID] = &cp
	return nil
}

func (r memMatches) GetByID(ctx context.Context, id int64) (*models.MatchRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mr, ok := r.match[id]
	if !ok {
		return nil, notFound("match request", id)
	}
	cp := *mr
	return &cp, nil
}

func (r memMatches) GetByIDForUpdate(ctx context.Context, id int64) (*models.MatchRequest, error) {
	return r.GetByID(ctx, id)
}

func (r memMatches) Transition(ctx context.Context, id int64, from, to string, slotID *int64) (*models.MatchRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mr, ok := r.match[id]
	if !ok || mr.Status != from {
		return nil, fmt.Errorf("transition: %w", apperrors.ErrInvalidState)
	}
	mr.Status = to
	if slotID != nil {
		v := *slotID
		mr.TimeSlotID = &v
	}
	cp := *mr
	return &cp, nil
}

func (r memMatches) Reschedule(ctx context.Context, id int64, slotID *int64, proposedTime time.Time, venueID int64) (*models.MatchRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mr, ok := r.match[id]
	if !ok || mr.Status != models.MatchStatusPending {
		return nil, fmt.Errorf("reschedule: %w", apperrors.ErrInvalidState)
	}
	mr.Status = models.MatchStatusRescheduled
	mr.TimeSlotID = slotID
	mr.ProposedTime = proposedTime
	mr.VenueID = venueID
	cp := *mr
	return &cp, nil
}

func (r memMatches) views(filter func(*models.MatchRequest) bool, status *string) []*models.MatchRequestView {
	out := make([]*models.MatchRequestView, 0)
	for _, mr := range r.match {
		if !filter(mr) || (status != nil && mr.Status != *status) {
			continue
		}
		out = append(out, &models.MatchRequestView{
			MatchRequest:  *mr,
			RequesterName: r.users[mr.RequesterID].Name,
			TargetName:    r.users[mr.TargetID].Name,
			VenueName:     r.venues[mr.VenueID].Name,
			VenueType:     r.venues[mr.VenueID].Type,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memMatches) ListReceived(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views(func(mr *models.MatchRequest) bool { return mr.TargetID == userID }, status), nil
}

func (r memMatches) ListSent(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views(func(mr *models.MatchRequest) bool { return mr.RequesterID == userID }, status), nil
}

func (r memMatches) ExistsForSlot(ctx context.Context, slotID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mr := range r.match {
		if mr.TimeSlotID != nil && *mr.TimeSlotID == slotID {
			return true, nil
		}
	}
	return false, nil
}

func (r memMatches) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.match[id]; !ok {
		return notFound("match request", id)
	}
	for _, s := range r.slots {
		if s.BookedMatchID != nil && *s.BookedMatchID == id {
			return fmt.Errorf("delete match request: %w", apperrors.ErrConflict)
		}
	}
	delete(r.match, id)
	return nil
}

// --- PreferenceRepository ---

type memPrefs struct{ *memStore }

var _ repositories.PreferenceRepository = memPrefs{}

func (r memPrefs) Create(ctx context.Context, p *models.UserPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	cp := *p
	r.prefs[p.ID] = &cp
	return nil
}

func (r memPrefs) GetByID(ctx context.Context, id int64) (*models.UserPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prefs[id]
	if !ok {
		return nil, notFound("preference", id)
	}
	cp := *p
	return &cp, nil
}

func (r memPrefs) ListByUser(ctx context.Context, userID int64) ([]*models.UserPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.UserPreference, 0)
	for _, p := range r.prefs {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memPrefs) Update(ctx context.Context, p *models.UserPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.prefs[p.ID] = &cp
	return nil
}

func (r memPrefs) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prefs[id]; !ok {
		return notFound("preference", id)
	}
	delete(r.prefs, id)
	return nil
}
