// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Default work-hour window applied when a user has no profile.
const (
	DefaultWorkStart = "09:00"
	DefaultWorkEnd   = "18:00"
)

// User represents a scheduling participant. The password column belongs
// to the external auth service; this core never issues sessions.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Timezone  string         `gorm:"default:'UTC'" json:"timezone"`
	WorkStart string         `json:"work_start"` // "HH:MM" local time-of-day
	WorkEnd   string         `json:"work_end"`   // "HH:MM" local time-of-day
	WakeTime  string         `json:"wake_time,omitempty"`
	SleepTime string         `json:"sleep_time,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// WorkHours returns the user's work window as hours-of-day, falling back
// to the 09:00-18:00 default when the profile is incomplete.
func (u *User) WorkHours() (start, end int) {
	start, errStart := parseHour(u.WorkStart)
	end, errEnd := parseHour(u.WorkEnd)
	if errStart != nil || errEnd != nil || start >= end {
		return mustHour(DefaultWorkStart), mustHour(DefaultWorkEnd)
	}
	return start, end
}

// Location resolves the user's IANA timezone, defaulting to UTC when the
// string is empty or unknown.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseHour(hhmm string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", hhmm)
	}
	return h, nil
}

func mustHour(hhmm string) int {
	h, _ := parseHour(hhmm)
	return h
}
