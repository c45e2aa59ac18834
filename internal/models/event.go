package models

import (
	"time"

	"meetsync/internal/interval"
)

// EventSource identifies where a calendar event came from.
type EventSource string

const (
	// EventSourceLocal marks events created through this service.
	EventSourceLocal EventSource = "local"
	// EventSourceExternal marks events mirrored from the external
	// calendar provider by the sync path.
	EventSourceExternal EventSource = "external"
)

// CalendarEvent is a confirmed or tentative entry on a user's calendar.
// Confirmed events are the busy intervals the availability engine
// schedules around. Invariant: StartTime < EndTime.
type CalendarEvent struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    uint        `gorm:"not null;index:idx_events_user_time" json:"user_id"`
	Title     string      `json:"title"`
	Location  string      `json:"location"`
	StartTime time.Time   `gorm:"not null;index:idx_events_user_time" json:"start_time"`
	EndTime   time.Time   `gorm:"not null" json:"end_time"`
	Source    EventSource `gorm:"type:varchar(20);default:'local'" json:"source"`
	Tentative bool        `gorm:"default:false" json:"tentative"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (CalendarEvent) TableName() string {
	return "calendar_events"
}

// Span returns the event's busy interval.
func (e *CalendarEvent) Span() interval.Span {
	return interval.NewSpan(e.StartTime, e.EndTime)
}

// Spans converts events to busy intervals, dropping malformed rows.
func Spans(events []CalendarEvent) []interval.Span {
	spans := make([]interval.Span, 0, len(events))
	for i := range events {
		s := events[i].Span()
		if s.IsValid() {
			spans = append(spans, s)
		}
	}
	return spans
}
