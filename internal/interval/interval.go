// Package interval provides pure time-interval arithmetic used by the
// availability engine and the calendar sync path.
package interval

import "time"

// Span is a half-open time interval [Start, End).
type Span struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewSpan returns a Span for [start, end).
func NewSpan(start, end time.Time) Span {
	return Span{Start: start, End: end}
}

// Duration returns the length of the span.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// IsValid reports whether the span has positive length.
func (s Span) IsValid() bool {
	return s.Start.Before(s.End)
}

// Overlaps reports whether two half-open spans intersect.
// Back-to-back spans (a.End == b.Start) do not overlap.
func (s Span) Overlaps(other Span) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// Contains reports whether other lies entirely within s.
func (s Span) Contains(other Span) bool {
	return !other.Start.Before(s.Start) && !other.End.After(s.End)
}

// OverlapsAny reports whether s intersects any span in spans.
func OverlapsAny(s Span, spans []Span) bool {
	for _, other := range spans {
		if s.Overlaps(other) {
			return true
		}
	}
	return false
}

// At returns the span of fixed duration starting at start.
func At(start time.Time, d time.Duration) Span {
	return Span{Start: start, End: start.Add(d)}
}
