package service

import (
	"context"
	"errors"
	"time"

	"meetsync/internal/coordinator"
	"meetsync/internal/interval"
	"meetsync/internal/models"
	"meetsync/internal/notifications"
	"meetsync/internal/observability"
	"meetsync/internal/repository"
)

// defaultLocations seeds suggestions for pairs with no learned history.
var defaultLocations = []string{"Coffee shop", "Park", "Video call"}

// ProposeRequest carries the propose operation's input.
type ProposeRequest struct {
	InviteeID       uint               `json:"invitee_id"`
	StartTime       *time.Time         `json:"start_time,omitempty"`
	AutoSelect      bool               `json:"auto_select"`
	DurationMinutes int                `json:"duration_minutes"`
	Location        string             `json:"location,omitempty"`
	MeetingType     models.MeetingType `json:"meeting_type,omitempty"`
}

// SuggestRequest carries an alternative time and/or location.
type SuggestRequest struct {
	Time     *time.Time `json:"time,omitempty"`
	Location string     `json:"location,omitempty"`
}

// ProposalService drives the meeting proposal state machine. Every
// mutation runs inside the pair's critical section; authorization and
// validation run before the lock so failed calls leave no side effects.
type ProposalService struct {
	users        repository.UserRepository
	friends      repository.FriendRepository
	proposals    repository.ProposalRepository
	events       repository.EventRepository
	availability *AvailabilityService
	locks        *coordinator.KeyedMutex
	notifier     *notifications.Notifier

	lockTimeout    time.Duration
	autoSelectDays int
	log            *observability.Logger
}

// NewProposalService creates a new proposal service.
func NewProposalService(
	users repository.UserRepository,
	friends repository.FriendRepository,
	proposals repository.ProposalRepository,
	events repository.EventRepository,
	availabilitySvc *AvailabilityService,
	locks *coordinator.KeyedMutex,
	notifier *notifications.Notifier,
	lockTimeout time.Duration,
	autoSelectDays int,
) *ProposalService {
	return &ProposalService{
		users:          users,
		friends:        friends,
		proposals:      proposals,
		events:         events,
		availability:   availabilitySvc,
		locks:          locks,
		notifier:       notifier,
		lockTimeout:    lockTimeout,
		autoSelectDays: autoSelectDays,
		log:            observability.Component("proposal-service"),
	}
}

// Propose creates a tentative meeting in state pending. With AutoSelect
// the top recommended slot over the configured window is chosen;
// exhausted availability fails with NO_AVAILABLE_SLOT and writes
// nothing. The insert runs under the pair lock with an
// overlapping-open-proposal conflict check.
func (s *ProposalService) Propose(ctx context.Context, proposerID uint, req ProposeRequest) (*models.MeetingProposal, error) {
	if req.InviteeID == 0 {
		return nil, models.NewValidationError("invitee_id is required")
	}
	if req.InviteeID == proposerID {
		return nil, models.NewValidationError("Cannot propose a meeting with yourself")
	}
	if req.DurationMinutes <= 0 {
		return nil, models.NewValidationError("duration_minutes must be positive")
	}
	if req.StartTime == nil && !req.AutoSelect {
		return nil, models.NewValidationError("Either start_time or auto_select is required")
	}

	if _, err := s.users.GetByID(ctx, req.InviteeID); err != nil {
		return nil, err
	}

	friendship, err := s.friends.GetFriendshipBetweenUsers(ctx, proposerID, req.InviteeID)
	if err != nil {
		return nil, err
	}

	startTime, err := s.resolveStart(ctx, proposerID, req)
	if err != nil {
		return nil, err
	}

	meetingType := req.MeetingType
	if meetingType == "" {
		meetingType = models.MeetingTypeFriend
	}

	proposal := &models.MeetingProposal{
		ProposerID:      proposerID,
		InviteeID:       req.InviteeID,
		StartTime:       startTime,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		MeetingType:     meetingType,
		Status:          models.ProposalPending,
	}
	if req.Location == "" {
		suggestions := locationSuggestions(friendship)
		proposal.SetLocationSuggestions(suggestions)
		proposal.Location = suggestions[0]
	}

	key := coordinator.PairKey(proposerID, req.InviteeID)
	err = s.locks.WithLock(ctx, key, s.lockTimeout, func(ctx context.Context) error {
		open, err := s.proposals.ListOpenBetween(ctx, proposerID, req.InviteeID)
		if err != nil {
			return err
		}
		span := interval.At(proposal.StartTime, time.Duration(proposal.DurationMinutes)*time.Minute)
		for i := range open {
			existing := interval.NewSpan(open[i].StartTime, open[i].EndTime())
			if span.Overlaps(existing) {
				return models.NewConflictError("An overlapping proposal already exists between these users")
			}
		}
		return s.proposals.Create(ctx, proposal)
	})
	if err != nil {
		return nil, lockError(key, err)
	}

	observability.ProposalTransitions.WithLabelValues("propose").Inc()
	s.notify(func() error { return s.notifier.MeetingProposed(context.Background(), proposal) })
	return proposal, nil
}

// Accept confirms a proposal. Invitee only, from pending or negotiating.
// The learned pattern updates inside the same critical section; the
// proposer's notification is best-effort after release.
func (s *ProposalService) Accept(ctx context.Context, proposalID, actorID uint) (*models.MeetingProposal, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.InviteeID != actorID {
		return nil, models.NewForbiddenError("Only the invitee can accept a proposal")
	}
	if proposal.IsTerminal() {
		return nil, models.NewConflictError("Proposal is no longer open")
	}

	key := coordinator.PairKey(proposal.ProposerID, proposal.InviteeID)
	err = s.locks.WithLock(ctx, key, s.lockTimeout, func(ctx context.Context) error {
		// Re-read: the row may have moved while we queued.
		current, err := s.proposals.GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return models.NewConflictError("Proposal is no longer open")
		}

		current.Status = models.ProposalConfirmed
		current.InviteeAccepted = true
		if err := s.proposals.Update(ctx, current); err != nil {
			return err
		}
		proposal = current

		if err := s.recordMeetingPattern(ctx, current); err != nil {
			return err
		}
		return s.materializeEvents(ctx, current)
	})
	if err != nil {
		return nil, lockError(key, err)
	}

	observability.ProposalTransitions.WithLabelValues("accept").Inc()
	s.notify(func() error { return s.notifier.MeetingConfirmed(context.Background(), proposal) })
	return proposal, nil
}

// Reject deletes the proposal. Invitee only. The caller sees a snapshot
// with status rejected; no row persists.
func (s *ProposalService) Reject(ctx context.Context, proposalID, actorID uint) (*models.MeetingProposal, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.InviteeID != actorID {
		return nil, models.NewForbiddenError("Only the invitee can reject a proposal")
	}
	if proposal.Status == models.ProposalConfirmed {
		return nil, models.NewConflictError("Cannot reject a confirmed meeting")
	}

	key := coordinator.PairKey(proposal.ProposerID, proposal.InviteeID)
	err = s.locks.WithLock(ctx, key, s.lockTimeout, func(ctx context.Context) error {
		current, err := s.proposals.GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if current.Status == models.ProposalConfirmed {
			return models.NewConflictError("Cannot reject a confirmed meeting")
		}
		return s.proposals.Delete(ctx, proposalID)
	})
	if err != nil {
		return nil, lockError(key, err)
	}

	observability.ProposalTransitions.WithLabelValues("reject").Inc()
	rejected := *proposal
	rejected.Status = models.ProposalRejected
	s.notify(func() error {
		return s.notifier.MeetingRejected(context.Background(),
			rejected.ProposerID, rejected.InviteeID, rejected.ID)
	})
	return &rejected, nil
}

// Suggest records an alternative time and/or location from either party
// and moves the proposal to negotiating. History is appended, never
// superseded.
func (s *ProposalService) Suggest(ctx context.Context, proposalID, actorID uint, req SuggestRequest) (*models.MeetingProposal, error) {
	if req.Time == nil && req.Location == "" {
		return nil, models.NewValidationError("An alternative time or location is required")
	}

	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if actorID != proposal.ProposerID && actorID != proposal.InviteeID {
		return nil, models.NewForbiddenError("Only a participant can suggest an alternative")
	}
	if proposal.IsTerminal() {
		return nil, models.NewConflictError("Proposal is no longer open")
	}

	key := coordinator.PairKey(proposal.ProposerID, proposal.InviteeID)
	err = s.locks.WithLock(ctx, key, s.lockTimeout, func(ctx context.Context) error {
		current, err := s.proposals.GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return models.NewConflictError("Proposal is no longer open")
		}

		suggestion := models.Suggestion{By: actorID, Location: req.Location, At: time.Now().UTC()}
		if req.Time != nil {
			suggestion.Time = *req.Time
			current.StartTime = *req.Time
		}
		if req.Location != "" {
			current.Location = req.Location
		}
		current.AppendSuggestion(suggestion)
		current.Status = models.ProposalNegotiating

		if err := s.proposals.Update(ctx, current); err != nil {
			return err
		}
		proposal = current
		return nil
	})
	if err != nil {
		return nil, lockError(key, err)
	}

	observability.ProposalTransitions.WithLabelValues("suggest").Inc()
	counterparty := proposal.ProposerID
	if actorID == proposal.ProposerID {
		counterparty = proposal.InviteeID
	}
	p := proposal
	s.notify(func() error {
		return s.notifier.MeetingSuggested(context.Background(), p, actorID, counterparty)
	})
	return proposal, nil
}

// Get returns a proposal visible only to its two participants.
func (s *ProposalService) Get(ctx context.Context, proposalID, actorID uint) (*models.MeetingProposal, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if actorID != proposal.ProposerID && actorID != proposal.InviteeID {
		return nil, models.NewForbiddenError("Only a participant can view this proposal")
	}
	return proposal, nil
}

// ListForUser returns the caller's open proposals, newest first.
func (s *ProposalService) ListForUser(ctx context.Context, userID uint) ([]models.MeetingProposal, error) {
	return s.proposals.ListForUser(ctx, userID)
}

// resolveStart picks the proposal start: the explicit time, or the top
// recommended slot over the auto-select window.
func (s *ProposalService) resolveStart(ctx context.Context, proposerID uint, req ProposeRequest) (time.Time, error) {
	if req.StartTime != nil {
		return *req.StartTime, nil
	}

	now := time.Now().UTC()
	window := interval.NewSpan(now, now.AddDate(0, 0, s.autoSelectDays))
	result, err := s.availability.GetAvailability(ctx, proposerID, req.InviteeID, window, req.DurationMinutes)
	if err != nil {
		return time.Time{}, err
	}
	if len(result.Recommended) == 0 {
		return time.Time{}, models.NewNoAvailableSlotError()
	}
	return result.Recommended[0].Start, nil
}

// recordMeetingPattern folds the confirmed meeting into the pair's
// learned pattern, if the pair has a relationship row.
func (s *ProposalService) recordMeetingPattern(ctx context.Context, p *models.MeetingProposal) error {
	friendship, err := s.friends.GetFriendshipBetweenUsers(ctx, p.ProposerID, p.InviteeID)
	if err != nil {
		return err
	}
	if friendship == nil {
		return nil
	}
	friendship.RecordMeeting(p.StartTime, p.Location)
	return s.friends.Update(ctx, friendship)
}

// materializeEvents writes the confirmed meeting onto both calendars so
// future availability searches treat it as busy.
func (s *ProposalService) materializeEvents(ctx context.Context, p *models.MeetingProposal) error {
	for _, userID := range []uint{p.ProposerID, p.InviteeID} {
		event := &models.CalendarEvent{
			UserID:    userID,
			Title:     "Meeting",
			Location:  p.Location,
			StartTime: p.StartTime,
			EndTime:   p.EndTime(),
			Source:    models.EventSourceLocal,
		}
		if err := s.events.Create(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// notify runs a best-effort side effect; failures are logged, never
// surfaced.
func (s *ProposalService) notify(fn func() error) {
	go func() {
		if err := fn(); err != nil {
			s.log.Warn("notification dispatch failed", "error", err)
		}
	}()
}

// locationSuggestions returns up to three suggestions from the learned
// ring buffer, topped up from the static defaults.
func locationSuggestions(friendship *models.Friendship) []string {
	var suggestions []string
	if friendship != nil {
		suggestions = friendship.LearnedLocations()
	}
	for _, loc := range defaultLocations {
		if len(suggestions) >= 3 {
			break
		}
		if !containsString(suggestions, loc) {
			suggestions = append(suggestions, loc)
		}
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// lockError maps coordinator timeouts to the API taxonomy; everything
// else passes through unchanged.
func lockError(key string, err error) error {
	if errors.Is(err, coordinator.ErrLockTimeout) {
		return models.NewLockTimeoutError(key)
	}
	return err
}
