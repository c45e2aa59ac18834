// Package service contains the business logic layer of the application.
package service

import (
	"context"
	"fmt"
	"time"

	"meetsync/internal/availability"
	"meetsync/internal/cache"
	"meetsync/internal/interval"
	"meetsync/internal/models"
	"meetsync/internal/observability"
	"meetsync/internal/repository"
)

const (
	// maxAvailable and maxRecommended truncate the engine output for
	// API responses.
	maxAvailable   = 10
	maxRecommended = 3

	profileCacheTTL = 5 * time.Minute
)

// AvailabilityResult is the two-list answer to an availability query.
type AvailabilityResult struct {
	Available   []availability.Slot `json:"available"`
	Recommended []availability.Slot `json:"recommended"`
}

// AvailabilityService computes compatible free time for a pair of
// users. Busy intervals are snapshot reads; nothing here takes a lock.
type AvailabilityService struct {
	users   repository.UserRepository
	events  repository.EventRepository
	friends repository.FriendRepository
	cache   *cache.Cache
	log     *observability.Logger
}

// NewAvailabilityService creates a new availability service.
func NewAvailabilityService(
	users repository.UserRepository,
	events repository.EventRepository,
	friends repository.FriendRepository,
	c *cache.Cache,
) *AvailabilityService {
	return &AvailabilityService{
		users:   users,
		events:  events,
		friends: friends,
		cache:   c,
		log:     observability.Component("availability-service"),
	}
}

// workProfile is the cached scheduling slice of a user.
type workProfile struct {
	WorkStart int    `json:"work_start"`
	WorkEnd   int    `json:"work_end"`
	Timezone  string `json:"timezone"`
}

// GetAvailability returns candidate slots both users can attend, plus
// the top recommendations biased by the pair's learned pattern.
// An empty window yields empty lists, not an error; only Propose turns
// that into NO_AVAILABLE_SLOT.
func (s *AvailabilityService) GetAvailability(
	ctx context.Context, userA, userB uint, window interval.Span, durationMinutes int,
) (*AvailabilityResult, error) {
	if userA == userB {
		return nil, models.NewValidationError("Cannot compute availability with yourself")
	}
	if durationMinutes <= 0 {
		return nil, models.NewValidationError("Duration must be positive")
	}
	if !window.IsValid() {
		return nil, models.NewValidationError("Window start must be before window end")
	}

	start := time.Now()
	defer func() {
		observability.SlotSearchLatency.Observe(time.Since(start).Seconds())
	}()

	profileA, err := s.profile(ctx, userA)
	if err != nil {
		return nil, err
	}
	profileB, err := s.profile(ctx, userB)
	if err != nil {
		return nil, err
	}

	// Snapshot reads; the engine is pure and never re-reads.
	busyA, err := s.events.ListConfirmedBetween(ctx, userA, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	busyB, err := s.events.ListConfirmedBetween(ctx, userB, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	slots := availability.FindSlots(
		profileA, profileB,
		models.Spans(busyA), models.Spans(busyB),
		window,
		time.Duration(durationMinutes)*time.Minute,
		availability.DefaultOptions(),
	)

	pref, err := s.preference(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	recommended := availability.Recommend(slots, pref, time.Now())

	return &AvailabilityResult{
		Available:   truncateSlots(slots, maxAvailable),
		Recommended: truncateSlots(recommended, maxRecommended),
	}, nil
}

// profile loads a user's work-hour profile through the cache.
func (s *AvailabilityService) profile(ctx context.Context, userID uint) (availability.Profile, error) {
	var cached workProfile
	key := fmt.Sprintf("profile:%d", userID)

	err := s.cache.Aside(ctx, key, &cached, profileCacheTTL, func() error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		workStart, workEnd := user.WorkHours()
		cached = workProfile{WorkStart: workStart, WorkEnd: workEnd, Timezone: user.Timezone}
		return nil
	})
	if err != nil {
		return availability.Profile{}, err
	}

	loc := time.UTC
	if cached.Timezone != "" {
		if parsed, err := time.LoadLocation(cached.Timezone); err == nil {
			loc = parsed
		}
	}
	return availability.Profile{
		WorkStart: cached.WorkStart,
		WorkEnd:   cached.WorkEnd,
		Location:  loc,
	}, nil
}

// preference resolves the pair's learned scoring bias, if any.
func (s *AvailabilityService) preference(ctx context.Context, userA, userB uint) (availability.Preference, error) {
	friendship, err := s.friends.GetFriendshipBetweenUsers(ctx, userA, userB)
	if err != nil {
		return availability.Preference{}, err
	}
	if friendship == nil {
		return availability.Preference{}, nil
	}
	return availability.Preference{PreferredTimeOfDay: friendship.PreferredTimeOfDay}, nil
}

func truncateSlots(slots []availability.Slot, n int) []availability.Slot {
	if slots == nil {
		return []availability.Slot{}
	}
	if len(slots) > n {
		return slots[:n]
	}
	return slots
}
