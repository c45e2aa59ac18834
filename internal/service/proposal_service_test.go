package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetsync/internal/cache"
	"meetsync/internal/coordinator"
	"meetsync/internal/models"
	"meetsync/internal/notifications"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

type proposalFixture struct {
	svc       *ProposalService
	users     *stubUserRepo
	friends   *stubFriendRepo
	proposals *stubProposalRepo
	events    *stubEventRepo
	locks     *coordinator.KeyedMutex
}

func newProposalFixture(events ...models.CalendarEvent) *proposalFixture {
	users := newStubUserRepo(
		models.User{ID: 1, Username: "alice", Email: "alice@example.com", Timezone: "UTC", WorkStart: "09:00", WorkEnd: "18:00"},
		models.User{ID: 2, Username: "bob", Email: "bob@example.com", Timezone: "UTC", WorkStart: "09:00", WorkEnd: "18:00"},
	)
	friends := newStubFriendRepo()
	proposals := newStubProposalRepo()
	eventRepo := newStubEventRepo(events...)
	locks := coordinator.NewKeyedMutex()

	availabilitySvc := NewAvailabilityService(users, eventRepo, friends, cache.New(nil, time.Minute))
	svc := NewProposalService(
		users, friends, proposals, eventRepo, availabilitySvc,
		locks, notifications.NewNotifier(nil), time.Second, 7,
	)
	return &proposalFixture{
		svc: svc, users: users, friends: friends,
		proposals: proposals, events: eventRepo, locks: locks,
	}
}

// Monday far in the future so recency scoring stays deterministic.
var explicitStart = time.Date(2030, 6, 3, 15, 0, 0, 0, time.UTC)

func TestProposeWithExplicitTime(t *testing.T) {
	f := newProposalFixture()

	start := explicitStart
	proposal, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID:       2,
		StartTime:       &start,
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ProposalPending, proposal.Status)
	assert.Equal(t, start, proposal.StartTime)
	assert.Equal(t, start.Add(time.Hour), proposal.EndTime())
	assert.Equal(t, 1, f.proposals.count())

	// No explicit location: defaults attached, first one becomes working.
	suggestions := proposal.LocationSuggestions()
	require.Len(t, suggestions, 3)
	assert.Equal(t, suggestions[0], proposal.Location)
}

func TestProposeUsesLearnedLocations(t *testing.T) {
	f := newProposalFixture()
	friendship := &models.Friendship{
		RequesterID: 1, AddresseeID: 2, Status: models.FriendshipStatusAccepted,
	}
	friendship.PushLocation("Record store")
	require.NoError(t, f.friends.Create(context.Background(), friendship))

	start := explicitStart
	proposal, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &start, DurationMinutes: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, "Record store", proposal.Location)
	assert.Equal(t, "Record store", proposal.LocationSuggestions()[0])
}

func TestProposeValidation(t *testing.T) {
	f := newProposalFixture()
	start := explicitStart

	tests := []struct {
		name string
		req  ProposeRequest
	}{
		{"missing invitee", ProposeRequest{StartTime: &start, DurationMinutes: 60}},
		{"self invite", ProposeRequest{InviteeID: 1, StartTime: &start, DurationMinutes: 60}},
		{"zero duration", ProposeRequest{InviteeID: 2, StartTime: &start}},
		{"neither time nor auto-select", ProposeRequest{InviteeID: 2, DurationMinutes: 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Propose(context.Background(), 1, tt.req)
			assertCode(t, err, models.CodeValidation)
		})
	}
	assert.Zero(t, f.proposals.count())
}

func TestProposeUnknownInvitee(t *testing.T) {
	f := newProposalFixture()
	start := explicitStart

	_, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 99, StartTime: &start, DurationMinutes: 60,
	})
	assertCode(t, err, models.CodeNotFound)
}

func TestProposeOverlappingProposalConflicts(t *testing.T) {
	f := newProposalFixture()
	start := explicitStart

	_, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &start, DurationMinutes: 60,
	})
	require.NoError(t, err)

	overlapping := start.Add(30 * time.Minute)
	_, err = f.svc.Propose(context.Background(), 2, ProposeRequest{
		InviteeID: 1, StartTime: &overlapping, DurationMinutes: 60,
	})
	assertCode(t, err, models.CodeConflict)

	// Back-to-back is not an overlap.
	adjacent := start.Add(time.Hour)
	_, err = f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &adjacent, DurationMinutes: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.proposals.count())
}

func TestProposeAutoSelectPicksRecommendedSlot(t *testing.T) {
	f := newProposalFixture()

	proposal, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, AutoSelect: true, DurationMinutes: 60,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ProposalPending, proposal.Status)
	assert.True(t, proposal.StartTime.After(time.Now()))
	assert.True(t, proposal.StartTime.Before(time.Now().AddDate(0, 0, 8)))
}

func TestProposeAutoSelectFullyBooked(t *testing.T) {
	// Both calendars blocked for the whole auto-select window.
	now := time.Now().UTC()
	f := newProposalFixture(
		models.CalendarEvent{UserID: 1, Title: "Offsite", StartTime: now.AddDate(0, 0, -1), EndTime: now.AddDate(0, 0, 9)},
		models.CalendarEvent{UserID: 2, Title: "Offsite", StartTime: now.AddDate(0, 0, -1), EndTime: now.AddDate(0, 0, 9)},
	)

	_, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, AutoSelect: true, DurationMinutes: 60,
	})
	assertCode(t, err, models.CodeNoAvailableSlot)
	assert.Zero(t, f.proposals.count(), "no tentative record on NO_AVAILABLE_SLOT")
}

func TestSuggestThenAccept(t *testing.T) {
	f := newProposalFixture()
	require.NoError(t, f.friends.Create(context.Background(), &models.Friendship{
		RequesterID: 1, AddresseeID: 2, Status: models.FriendshipStatusAccepted,
	}))

	start := explicitStart
	proposal, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &start, DurationMinutes: 60, Location: "Cafe",
	})
	require.NoError(t, err)

	// Invitee counters with a new time.
	alternative := start.Add(2 * time.Hour)
	proposal, err = f.svc.Suggest(context.Background(), proposal.ID, 2, SuggestRequest{Time: &alternative})
	require.NoError(t, err)
	assert.Equal(t, models.ProposalNegotiating, proposal.Status)
	assert.Equal(t, alternative, proposal.StartTime)

	history := proposal.SuggestionHistory()
	require.Len(t, history, 1)
	assert.Equal(t, uint(2), history[0].By)
	assert.Equal(t, alternative, history[0].Time)

	// Acceptance confirms at the countered time.
	proposal, err = f.svc.Accept(context.Background(), proposal.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalConfirmed, proposal.Status)
	assert.True(t, proposal.InviteeAccepted)
	assert.Equal(t, alternative, proposal.StartTime)

	// Learning side effects landed on the relationship.
	friendship, err := f.friends.GetFriendshipBetweenUsers(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, friendship.MeetingCount)
	assert.Equal(t, []string{"Cafe"}, friendship.LearnedLocations())
	assert.Equal(t, models.TimeOfDayEvening, friendship.PreferredTimeOfDay)

	// The confirmed meeting is on both calendars.
	assert.Equal(t, 2, f.events.count())
}

func TestSuggestAppendsHistory(t *testing.T) {
	f := newProposalFixture()
	start := explicitStart

	proposal, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &start, DurationMinutes: 60, Location: "Cafe",
	})
	require.NoError(t, err)

	alternative := start.Add(time.Hour)
	proposal, err = f.svc.Suggest(context.Background(), proposal.ID, 2, SuggestRequest{Time: &alternative})
	require.NoError(t, err)

	proposal, err = f.svc.Suggest(context.Background(), proposal.ID, 1, SuggestRequest{Location: "Park"})
	require.NoError(t, err)

	history := proposal.SuggestionHistory()
	require.Len(t, history, 2, "earlier suggestions are kept, not superseded")
	assert.Equal(t, uint(2), history[0].By)
	assert.Equal(t, uint(1), history[1].By)
	assert.Equal(t, "Park", proposal.Location)
	assert.Equal(t, alternative, proposal.StartTime)
}

func TestSuggestValidation(t *testing.T) {
	f := newProposalFixture()
	start := explicitStart
	proposal, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &start, DurationMinutes: 60,
	})
	require.NoError(t, err)

	_, err = f.svc.Suggest(context.Background(), proposal.ID, 2, SuggestRequest{})
	assertCode(t, err, models.CodeValidation)

	_, err = f.svc.Suggest(context.Background(), proposal.ID, 3, SuggestRequest{Location: "Park"})
	assertCode(t, err, models.CodeForbidden)
}

func TestAcceptForbiddenForProposer(t *testing.T) {
	f := newProposalFixture()
	start := explicitStart
	proposal, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &start, DurationMinutes: 60,
	})
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), proposal.ID, 1)
	assertCode(t, err, models.CodeForbidden)

	stored, err := f.proposals.GetByID(context.Background(), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalPending, stored.Status, "forbidden transition leaves no side effects")
}

func TestAcceptTwice(t *testing.T) {
	f := newProposalFixture()
	start := explicitStart
	proposal, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &start, DurationMinutes: 60,
	})
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), proposal.ID, 2)
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), proposal.ID, 2)
	assertCode(t, err, models.CodeConflict)
	assert.Equal(t, 2, f.events.count(), "second accept produces no extra side effects")
}

func TestRejectDeletesRow(t *testing.T) {
	f := newProposalFixture()
	start := explicitStart
	proposal, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &start, DurationMinutes: 60,
	})
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), proposal.ID, 1)
	assertCode(t, err, models.CodeForbidden)

	rejected, err := f.svc.Reject(context.Background(), proposal.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalRejected, rejected.Status)
	assert.Zero(t, f.proposals.count())

	_, err = f.svc.Accept(context.Background(), proposal.ID, 2)
	assertCode(t, err, models.CodeNotFound)
}

func TestProposeLockTimeout(t *testing.T) {
	f := newProposalFixture()
	f.svc.lockTimeout = 50 * time.Millisecond

	release, err := f.locks.Acquire(context.Background(), coordinator.PairKey(1, 2))
	require.NoError(t, err)
	defer release()

	start := explicitStart
	_, err = f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &start, DurationMinutes: 60,
	})
	assertCode(t, err, models.CodeLockTimeout)
	assert.Zero(t, f.proposals.count())
}

func TestGetVisibleToParticipantsOnly(t *testing.T) {
	f := newProposalFixture()
	start := explicitStart
	proposal, err := f.svc.Propose(context.Background(), 1, ProposeRequest{
		InviteeID: 2, StartTime: &start, DurationMinutes: 60,
	})
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), proposal.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, proposal.ID, got.ID)

	_, err = f.svc.Get(context.Background(), proposal.ID, 3)
	assertCode(t, err, models.CodeForbidden)
}
