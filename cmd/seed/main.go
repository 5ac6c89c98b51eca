// Command main runs the database seeder for Parley.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"parley/internal/config"
	"parley/internal/database"
	"parley/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	topLevel := flag.Int("comments", 15, "Number of top-level comments to create")
	maxReplies := flag.Int("max-replies", 4, "Maximum replies per comment per level")
	maxDepth := flag.Int("max-depth", 5, "Maximum reply nesting depth")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d top-level comments, clean=%v\n", *numUsers, *topLevel, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer client.Disconnect(context.Background())

	s := seed.NewSeeder(db, seed.Options{
		Users:      *numUsers,
		TopLevel:   *topLevel,
		MaxReplies: *maxReplies,
		MaxDepth:   *maxDepth,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	users, err := s.SeedUsers(ctx)
	if err != nil {
		log.Fatalf("User seeding failed: %v", err)
	}
	if _, err := s.SeedComments(ctx, users); err != nil {
		log.Fatalf("Comment seeding failed: %v", err)
	}

	log.Println("All done! Test users share the password: password123")
}
