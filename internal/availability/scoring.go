package availability

import (
	"sort"
	"time"

	"meetsync/internal/models"
)

// Preference is the learned slice of a relationship that biases scoring.
type Preference struct {
	PreferredTimeOfDay string
}

// Recommend scores each slot independently with an additive heuristic
// and returns a new slice sorted by descending score, ties broken by
// earliest start. The input is never mutated and every returned slot
// comes from the input set.
func Recommend(slots []Slot, pref Preference, now time.Time) []Slot {
	ranked := make([]Slot, len(slots))
	copy(ranked, slots)

	for i := range ranked {
		ranked[i].Score = scoreSlot(ranked[i].Start, pref, now)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Start.Before(ranked[j].Start)
	})

	return ranked
}

func scoreSlot(start time.Time, pref Preference, now time.Time) int {
	score := 0
	hour := start.Hour()

	// Mid-afternoon meeting band.
	if hour >= 14 && hour <= 16 {
		score += 3
	}
	// Dinner band.
	if hour == 18 || hour == 19 {
		score += 2
	}
	if start.Weekday() == time.Friday {
		score += 2
	}

	// Sooner is better.
	until := start.Sub(now)
	switch {
	case until <= 3*24*time.Hour:
		score += 3
	case until <= 7*24*time.Hour:
		score += 2
	default:
		score++
	}

	if matchesPreference(hour, pref.PreferredTimeOfDay) {
		score += 2
	}

	return score
}

// matchesPreference checks a slot's local hour against the learned
// time-of-day bucket (afternoon 12-17, evening 17-21).
func matchesPreference(hour int, preferred string) bool {
	switch preferred {
	case models.TimeOfDayMorning:
		return hour < 12
	case models.TimeOfDayAfternoon:
		return hour >= 12 && hour < 17
	case models.TimeOfDayEvening:
		return hour >= 17 && hour < 21
	default:
		return false
	}
}
