package calendar

import (
	"context"
	"time"

	"meetsync/internal/coordinator"
	"meetsync/internal/models"
	"meetsync/internal/observability"
	"meetsync/internal/repository"
)

// DefaultSyncHorizon is how far ahead of now the mirror reaches.
const DefaultSyncHorizon = 30 * 24 * time.Hour

// SyncService mirrors external calendars into local event rows. Each
// user syncs under their own critical section, provider calls share
// the bounded external pool, and rapid re-triggers collapse through
// the debouncer.
type SyncService struct {
	provider Provider
	classify Classifier
	events   repository.EventRepository
	locks    *coordinator.KeyedMutex
	limiter  *coordinator.ExternalLimiter
	debounce *coordinator.Debouncer

	window      time.Duration
	lockTimeout time.Duration
	horizon     time.Duration
	log         *observability.Logger
}

// SyncOptions tunes a SyncService.
type SyncOptions struct {
	// DebounceWindow is the quiet period before a triggered sync runs.
	DebounceWindow time.Duration
	// LockTimeout bounds how long a sync waits for the user's lock.
	LockTimeout time.Duration
	// Horizon is how far ahead to mirror. Zero means DefaultSyncHorizon.
	Horizon time.Duration
	// Classifier overrides DefaultClassifier when set.
	Classifier Classifier
}

// NewSyncService wires a sync service around shared coordination
// primitives.
func NewSyncService(
	provider Provider,
	events repository.EventRepository,
	locks *coordinator.KeyedMutex,
	limiter *coordinator.ExternalLimiter,
	debounce *coordinator.Debouncer,
	opts SyncOptions,
) *SyncService {
	if opts.Horizon <= 0 {
		opts.Horizon = DefaultSyncHorizon
	}
	classify := opts.Classifier
	if classify == nil {
		classify = DefaultClassifier
	}
	return &SyncService{
		provider:    provider,
		classify:    classify,
		events:      events,
		locks:       locks,
		limiter:     limiter,
		debounce:    debounce,
		window:      opts.DebounceWindow,
		lockTimeout: opts.LockTimeout,
		horizon:     opts.Horizon,
		log:         observability.Component("calendar-sync"),
	}
}

// Trigger schedules a sync for the user after the debounce window.
// Bursts of triggers within the window run once. The sync itself runs
// in the background; failures are logged, not returned.
func (s *SyncService) Trigger(userID uint) {
	s.debounce.Trigger(coordinator.SyncKey(userID), s.window, func() {
		if err := s.SyncNow(context.Background(), userID); err != nil {
			s.log.Error("background sync failed",
				"user_id", userID, "error", err)
		}
	})
}

// SyncNow fetches the user's external events and replaces the local
// mirror. The fetch runs inside the external pool; the swap runs inside
// the user's sync critical section so two syncs never interleave.
// Provider failures come back as EXTERNAL_SERVICE_ERROR and leave the
// previous mirror intact.
func (s *SyncService) SyncNow(ctx context.Context, userID uint) error {
	return s.locks.WithLock(ctx, coordinator.SyncKey(userID), s.lockTimeout, func(ctx context.Context) error {
		var fetched []ProviderEvent
		err := s.limiter.Do(ctx, func(ctx context.Context) error {
			now := time.Now().UTC()
			var fetchErr error
			fetched, fetchErr = s.provider.FetchEvents(ctx, userID, now, now.Add(s.horizon))
			return fetchErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return models.NewExternalServiceError(err)
		}

		rows := toCalendarEvents(userID, fetched, s.classify)
		if err := s.events.ReplaceExternal(ctx, userID, rows); err != nil {
			return err
		}

		s.log.Info("calendar synced",
			"user_id", userID, "events", len(rows))
		return nil
	})
}

// Stop cancels pending debounced syncs. Used on shutdown.
func (s *SyncService) Stop() {
	s.debounce.Stop()
}
