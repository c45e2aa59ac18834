package service

import (
	"context"
	"sync"
	"time"

	"meetsync/internal/models"
)

// In-memory repository stubs. They guard their maps with a mutex so the
// concurrency scenarios can hammer them from multiple goroutines, and
// hand out copies so callers never alias stored rows.

type stubUserRepo struct {
	mu    sync.Mutex
	users map[uint]models.User
}

func newStubUserRepo(users ...models.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[uint]models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *stubUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return &u, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, user *models.User) error {
	return r.Create(context.Background(), user)
}

func (r *stubUserRepo) List(_ context.Context, _, _ int) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

type stubFriendRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]models.Friendship
}

func newStubFriendRepo() *stubFriendRepo {
	return &stubFriendRepo{rows: make(map[uint]models.Friendship)}
}

func (r *stubFriendRepo) Create(_ context.Context, f *models.Friendship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if samePair(row, f.RequesterID, f.AddresseeID) {
			return models.NewConflictError("Relationship already exists")
		}
	}
	r.nextID++
	f.ID = r.nextID
	r.rows[f.ID] = *f
	return nil
}

func (r *stubFriendRepo) GetByID(_ context.Context, id uint) (*models.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[id]
	if !ok {
		return nil, models.NewNotFoundError("Friendship", id)
	}
	return &f, nil
}

func (r *stubFriendRepo) GetFriendshipBetweenUsers(_ context.Context, a, b uint) (*models.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if samePair(row, a, b) {
			copied := row
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *stubFriendRepo) GetFriends(_ context.Context, userID uint) ([]models.User, error) {
	return nil, nil
}

func (r *stubFriendRepo) GetPendingRequests(_ context.Context, userID uint) ([]models.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Friendship
	for _, row := range r.rows {
		if row.AddresseeID == userID && row.Status == models.FriendshipStatusPending {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *stubFriendRepo) UpdateStatus(_ context.Context, id uint, status models.FriendshipStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[id]
	if !ok {
		return models.NewNotFoundError("Friendship", id)
	}
	f.Status = status
	r.rows[id] = f
	return nil
}

func (r *stubFriendRepo) Update(_ context.Context, f *models.Friendship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[f.ID] = *f
	return nil
}

func (r *stubFriendRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *stubFriendRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func samePair(f models.Friendship, a, b uint) bool {
	return (f.RequesterID == a && f.AddresseeID == b) ||
		(f.RequesterID == b && f.AddresseeID == a)
}

type stubProposalRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]models.MeetingProposal
}

func newStubProposalRepo() *stubProposalRepo {
	return &stubProposalRepo{rows: make(map[uint]models.MeetingProposal)}
}

func (r *stubProposalRepo) Create(_ context.Context, p *models.MeetingProposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.rows[p.ID] = *p
	return nil
}

func (r *stubProposalRepo) GetByID(_ context.Context, id uint) (*models.MeetingProposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, models.NewNotFoundError("MeetingProposal", id)
	}
	return &p, nil
}

func (r *stubProposalRepo) ListForUser(_ context.Context, userID uint) ([]models.MeetingProposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MeetingProposal
	for _, p := range r.rows {
		if (p.ProposerID == userID || p.InviteeID == userID) && !p.IsTerminal() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProposalRepo) ListOpenBetween(_ context.Context, a, b uint) ([]models.MeetingProposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MeetingProposal
	for _, p := range r.rows {
		pair := (p.ProposerID == a && p.InviteeID == b) || (p.ProposerID == b && p.InviteeID == a)
		if pair && !p.IsTerminal() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProposalRepo) Update(_ context.Context, p *models.MeetingProposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = *p
	return nil
}

func (r *stubProposalRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return models.NewNotFoundError("MeetingProposal", id)
	}
	delete(r.rows, id)
	return nil
}

func (r *stubProposalRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type stubEventRepo struct {
	mu     sync.Mutex
	nextID uint
	events []models.CalendarEvent
}

func newStubEventRepo(events ...models.CalendarEvent) *stubEventRepo {
	return &stubEventRepo{events: events}
}

func (r *stubEventRepo) ListConfirmedBetween(_ context.Context, userID uint, from, to time.Time) ([]models.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CalendarEvent
	for _, e := range r.events {
		if e.UserID == userID && !e.Tentative && e.StartTime.Before(to) && e.EndTime.After(from) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubEventRepo) Create(_ context.Context, event *models.CalendarEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	event.ID = r.nextID
	r.events = append(r.events, *event)
	return nil
}

func (r *stubEventRepo) Update(_ context.Context, event *models.CalendarEvent) error { return nil }
func (r *stubEventRepo) Delete(_ context.Context, eventID uint) error                { return nil }

func (r *stubEventRepo) ReplaceExternal(_ context.Context, userID uint, events []models.CalendarEvent) error {
	return nil
}

func (r *stubEventRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type stubInvitationRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   []models.Invitation
}

func newStubInvitationRepo() *stubInvitationRepo {
	return &stubInvitationRepo{}
}

func (r *stubInvitationRepo) Create(_ context.Context, invitation *models.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	invitation.ID = r.nextID
	r.rows = append(r.rows, *invitation)
	return nil
}

func (r *stubInvitationRepo) GetByInviterAndEmail(_ context.Context, inviterID uint, email string) (*models.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.rows {
		if inv.InviterID == inviterID && inv.Email == email {
			copied := inv
			return &copied, nil
		}
	}
	return nil, nil
}
