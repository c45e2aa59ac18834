// Command main runs the development database seeder.
package main

import (
	"flag"
	"log"
	"time"

	"meetsync/internal/config"
	"meetsync/internal/database"
	"meetsync/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	rngSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, *rngSeed)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	users, err := s.SeedUsers(*numUsers)
	if err != nil {
		log.Fatalf("User seeding failed: %v", err)
	}
	friendships, err := s.SeedFriendships(users)
	if err != nil {
		log.Fatalf("Friendship seeding failed: %v", err)
	}
	events, err := s.SeedEvents(users)
	if err != nil {
		log.Fatalf("Event seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d friendships, %d events", len(users), friendships, events)
}
