// Package seed populates a development database with plausible users,
// friendships, and calendar load.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"meetsync/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var timezones = []string{
	"UTC",
	"America/New_York",
	"America/Los_Angeles",
	"Europe/London",
	"Europe/Berlin",
	"Asia/Tokyo",
	"Australia/Sydney",
}

var meetingSpots = []string{
	"Coffee shop", "Park", "Video call", "Record store", "Library cafe",
	"Climbing gym", "Ramen place",
}

var eventTitles = []string{
	"Standup", "1:1", "Design review", "Focus block", "Dentist",
	"School pickup", "Gym", "Team lunch",
}

// Seeder writes deterministic-ish fixture data.
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
}

func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	gofakeit.Seed(seed)
	return &Seeder{db: db, rng: rand.New(rand.NewSource(seed))}
}

// ClearAll wipes every domain table. Development only.
func (s *Seeder) ClearAll() error {
	tables := []interface{}{
		&models.MeetingProposal{},
		&models.CalendarEvent{},
		&models.Invitation{},
		&models.Friendship{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Unscoped().Delete(table).Error; err != nil {
			return fmt.Errorf("clearing %T: %w", table, err)
		}
	}
	return nil
}

// SeedUsers creates n users with varied timezones and work windows.
// Every account shares the password "password123".
func (s *Seeder) SeedUsers(n int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		workStart := 8 + s.rng.Intn(3) // 08:00..10:00
		workEnd := 16 + s.rng.Intn(3)  // 16:00..18:00
		user := models.User{
			Username:  fmt.Sprintf("%s_%d", gofakeit.Username(), i),
			Email:     fmt.Sprintf("user%d@%s", i, gofakeit.DomainName()),
			Password:  string(hash),
			Timezone:  timezones[s.rng.Intn(len(timezones))],
			WorkStart: fmt.Sprintf("%02d:00", workStart),
			WorkEnd:   fmt.Sprintf("%02d:00", workEnd),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("creating user %d: %w", i, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedFriendships links users into accepted pairs, some with a learned
// meeting pattern already accumulated.
func (s *Seeder) SeedFriendships(users []models.User) (int, error) {
	created := 0
	for i := range users {
		// Each user befriends a couple of later users.
		for j := i + 1; j < len(users) && j <= i+3; j++ {
			if s.rng.Intn(3) == 0 {
				continue
			}
			friendship := models.Friendship{
				RequesterID: users[i].ID,
				AddresseeID: users[j].ID,
				Status:      models.FriendshipStatusAccepted,
			}
			for k := 0; k < s.rng.Intn(5); k++ {
				when := time.Now().AddDate(0, 0, -7*(k+1)).
					Truncate(time.Hour).Add(time.Duration(10+s.rng.Intn(9)) * time.Hour)
				friendship.RecordMeeting(when, meetingSpots[s.rng.Intn(len(meetingSpots))])
			}
			if err := s.db.Create(&friendship).Error; err != nil {
				return created, fmt.Errorf("creating friendship: %w", err)
			}
			created++
		}
	}
	return created, nil
}

// SeedEvents fills the next two weeks of each calendar with busy blocks.
func (s *Seeder) SeedEvents(users []models.User) (int, error) {
	created := 0
	now := time.Now().UTC().Truncate(time.Hour)
	for i := range users {
		for day := 0; day < 14; day++ {
			if s.rng.Intn(2) == 0 {
				continue
			}
			start := now.AddDate(0, 0, day).
				Add(time.Duration(9+s.rng.Intn(8)) * time.Hour)
			event := models.CalendarEvent{
				UserID:    users[i].ID,
				Title:     eventTitles[s.rng.Intn(len(eventTitles))],
				StartTime: start,
				EndTime:   start.Add(time.Duration(1+s.rng.Intn(2)) * time.Hour),
				Source:    models.EventSourceExternal,
				Tentative: s.rng.Intn(5) == 0,
			}
			if err := s.db.Create(&event).Error; err != nil {
				return created, fmt.Errorf("creating event: %w", err)
			}
			created++
		}
	}
	return created, nil
}
