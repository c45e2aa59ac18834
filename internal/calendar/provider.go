// Package calendar mirrors a user's external calendar into local
// busy-interval storage.
package calendar

import (
	"context"
	"time"

	"meetsync/internal/models"
)

// ProviderEvent is one entry as the external calendar reports it.
type ProviderEvent struct {
	Title    string
	Location string
	Start    time.Time
	End      time.Time
	Status   string
}

// Provider fetches a user's events from the external calendar system.
// Implementations must not retry internally; the sync path surfaces
// provider failures to the caller as-is.
type Provider interface {
	FetchEvents(ctx context.Context, userID uint, from, to time.Time) ([]ProviderEvent, error)
}

// NullProvider is a Provider with no backing calendar. It stands in
// until a real integration (CalDAV, Google, ...) is configured.
type NullProvider struct{}

func (NullProvider) FetchEvents(context.Context, uint, time.Time, time.Time) ([]ProviderEvent, error) {
	return nil, nil
}

// Classifier decides whether a provider event counts as busy time.
// Events it marks tentative are stored for display but never block a
// slot.
type Classifier func(ProviderEvent) bool

// DefaultClassifier treats everything except explicit tentative and
// free markers as confirmed busy time.
func DefaultClassifier(e ProviderEvent) bool {
	switch e.Status {
	case "tentative", "free", "transparent":
		return true
	}
	return false
}

// toCalendarEvents converts a provider snapshot into rows, dropping
// entries with inverted or zero-length times.
func toCalendarEvents(userID uint, events []ProviderEvent, tentative Classifier) []models.CalendarEvent {
	out := make([]models.CalendarEvent, 0, len(events))
	for _, e := range events {
		if !e.Start.Before(e.End) {
			continue
		}
		out = append(out, models.CalendarEvent{
			UserID:    userID,
			Title:     e.Title,
			Location:  e.Location,
			StartTime: e.Start,
			EndTime:   e.End,
			Source:    models.EventSourceExternal,
			Tentative: tentative(e),
		})
	}
	return out
}
