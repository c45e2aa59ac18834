// Package availability computes free/busy overlap between two
// participants and ranks candidate meeting slots. It is pure: callers
// fetch busy intervals and profiles, the engine only does arithmetic.
package availability

import (
	"sort"
	"time"

	"meetsync/internal/interval"
)

// Daily band boundaries (hours of day, participant-local).
const (
	lunchStartHour   = 12
	lunchEndHour     = 13
	eveningStartHour = 18
	eveningEndHour   = 21
)

// Profile carries the scheduling-relevant slice of a participant.
type Profile struct {
	WorkStart int // hour of day
	WorkEnd   int // hour of day
	Location  *time.Location
}

// Slot is a candidate meeting span. Score is zero until Recommend runs.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Score int       `json:"score"`
}

// Options tune candidate generation.
type Options struct {
	SkipWeekends bool
}

// DefaultOptions skips weekend days.
func DefaultOptions() Options {
	return Options{SkipWeekends: true}
}

// FindSlots walks each day in window and returns every candidate slot of
// the given duration that overlaps no busy interval of either
// participant. Candidates start on the hour inside three daily bands
// derived from the intersection of both work-hour profiles: morning
// (work start to 12:00) and afternoon (13:00 to work end), plus an
// evening band (18:00 to 21:00) that is always offered. The 12:00-13:00
// lunch hour is never a start. Band arithmetic runs in participant A's
// timezone.
func FindSlots(a, b Profile, busyA, busyB []interval.Span, window interval.Span, duration time.Duration, opts Options) []Slot {
	if !window.IsValid() || duration <= 0 {
		return nil
	}

	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}

	workStart := maxHour(a.WorkStart, b.WorkStart)
	workEnd := minHour(a.WorkEnd, b.WorkEnd)

	var slots []Slot
	from := window.Start.In(loc)
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)

	for !day.After(window.End) {
		if opts.SkipWeekends && isWeekend(day.Weekday()) {
			day = day.AddDate(0, 0, 1)
			continue
		}

		for _, hour := range candidateHours(workStart, workEnd) {
			start := day.Add(time.Duration(hour) * time.Hour)
			candidate := interval.At(start, duration)
			if !window.Contains(candidate) {
				continue
			}
			if interval.OverlapsAny(candidate, busyA) || interval.OverlapsAny(candidate, busyB) {
				continue
			}
			slots = append(slots, Slot{Start: candidate.Start, End: candidate.End})
		}

		day = day.AddDate(0, 0, 1)
	}

	return slots
}

// candidateHours returns the sorted, de-duplicated start hours for one
// day given an intersected work window.
func candidateHours(workStart, workEnd int) []int {
	seen := make(map[int]bool)
	var hours []int
	add := func(h int) {
		if !seen[h] {
			seen[h] = true
			hours = append(hours, h)
		}
	}

	for h := workStart; h < lunchStartHour; h++ {
		add(h)
	}
	for h := lunchEndHour; h < workEnd; h++ {
		add(h)
	}
	// Evening is offered regardless of work hours.
	for h := eveningStartHour; h < eveningEndHour; h++ {
		add(h)
	}

	sort.Ints(hours)
	return hours
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

func maxHour(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minHour(a, b int) int {
	if a < b {
		return a
	}
	return b
}
