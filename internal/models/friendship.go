package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// FriendshipStatus represents the status of a friendship request.
type FriendshipStatus string

const (
	// FriendshipStatusPending indicates a pending friendship request.
	FriendshipStatusPending FriendshipStatus = "pending"
	// FriendshipStatusAccepted indicates an accepted friendship request.
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	// FriendshipStatusRejected indicates a declined friendship request.
	FriendshipStatusRejected FriendshipStatus = "rejected"
)

// TimeOfDay buckets used by the learned scheduling pattern.
const (
	TimeOfDayMorning   = "morning"
	TimeOfDayAfternoon = "afternoon"
	TimeOfDayEvening   = "evening"
)

// MaxLearnedLocations bounds the learned-location ring buffer.
const MaxLearnedLocations = 10

// Friendship represents the relationship between two users. One row
// models the unordered pair; the learned-pattern columns bias slot
// scoring and location suggestions for future meetings between them.
type Friendship struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RequesterID uint             `gorm:"not null;uniqueIndex:idx_friendship_users" json:"requester_id"`
	AddresseeID uint             `gorm:"not null;uniqueIndex:idx_friendship_users" json:"addressee_id"`
	Status      FriendshipStatus `gorm:"type:varchar(20);default:'pending';index:idx_friendships_status" json:"status"`

	// Learned scheduling pattern, updated on each confirmed meeting.
	PreferredTimeOfDay string `gorm:"type:varchar(20)" json:"preferred_time_of_day,omitempty"`
	Locations          string `gorm:"type:json" json:"-"`
	MeetingCount       int    `gorm:"default:0" json:"meeting_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Requester User `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Addressee User `gorm:"foreignKey:AddresseeID" json:"addressee,omitempty"`
}

// TableName specifies the table name for GORM
func (Friendship) TableName() string {
	return "friendships"
}

// LearnedLocations returns the ring buffer of recent meeting locations,
// most recent first.
func (f *Friendship) LearnedLocations() []string {
	if f.Locations == "" {
		return nil
	}
	var locations []string
	_ = json.Unmarshal([]byte(f.Locations), &locations)
	return locations
}

// PushLocation prepends a location to the learned ring buffer, evicting
// the oldest entry past MaxLearnedLocations.
func (f *Friendship) PushLocation(location string) {
	if location == "" {
		return
	}
	locations := append([]string{location}, f.LearnedLocations()...)
	if len(locations) > MaxLearnedLocations {
		locations = locations[:MaxLearnedLocations]
	}
	bytes, _ := json.Marshal(locations)
	f.Locations = string(bytes)
}

// RecordMeeting folds a confirmed meeting into the learned pattern.
func (f *Friendship) RecordMeeting(start time.Time, location string) {
	f.PushLocation(location)
	f.PreferredTimeOfDay = TimeOfDayForHour(start.Hour())
	f.MeetingCount++
}

// TimeOfDayForHour buckets a local hour into morning/afternoon/evening.
func TimeOfDayForHour(hour int) string {
	switch {
	case hour < 12:
		return TimeOfDayMorning
	case hour < 17:
		return TimeOfDayAfternoon
	default:
		return TimeOfDayEvening
	}
}

// BeforeCreate preserves requester/addressee direction.
// Direction is required so only the addressee may respond to a request.
func (f *Friendship) BeforeCreate(_ *gorm.DB) error {
	return nil
}
