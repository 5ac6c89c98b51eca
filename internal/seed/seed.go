// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"parley/internal/database"
	"parley/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Options controls the shape of the generated data.
type Options struct {
	Users      int
	TopLevel   int
	MaxReplies int // per comment, per level
	MaxDepth   int
	SkipBcrypt bool
}

// Seeder populates the database with fake users and a nested comment forest.
type Seeder struct {
	db   *mongo.Database
	opts Options
	rng  *rand.Rand
}

// NewSeeder creates a new Seeder bound to the provided database.
func NewSeeder(db *mongo.Database, opts Options) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll drops the seeded collections.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, name := range []string{database.UsersCollection, database.CommentsCollection} {
		if _, err := s.db.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("clearing %s: %w", name, err)
		}
	}
	return nil
}

// SeedUsers creates fake accounts. All of them share the password
// "password123" so they can be used for manual testing.
func (s *Seeder) SeedUsers(ctx context.Context) ([]models.User, error) {
	password := "password123"
	if !s.opts.SkipBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		password = string(hashed)
	}

	users := make([]models.User, 0, s.opts.Users)
	docs := make([]any, 0, s.opts.Users)
	now := time.Now()
	for i := 0; i < s.opts.Users; i++ {
		user := models.User{
			ID:        bson.NewObjectID(),
			Email:     gofakeit.Email(),
			Password:  password,
			Name:      gofakeit.Name(),
			Avatar:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
			CreatedAt: now.Add(-time.Duration(s.rng.Intn(90*24)) * time.Hour),
			UpdatedAt: now,
		}
		users = append(users, user)
		docs = append(docs, user)
	}

	if _, err := s.db.Collection(database.UsersCollection).InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("inserting users: %w", err)
	}
	log.Printf("seeded %d users", len(users))
	return users, nil
}

// SeedComments creates a nested comment forest authored by the given users.
// Upvote sets are generated first and counts derived from them, keeping the
// two consistent.
func (s *Seeder) SeedComments(ctx context.Context, users []models.User) (int, error) {
	if len(users) == 0 {
		return 0, fmt.Errorf("no users to author comments")
	}

	var docs []any
	for i := 0; i < s.opts.TopLevel; i++ {
		docs = s.buildSubtree(docs, users, nil, 0)
	}

	if len(docs) == 0 {
		return 0, nil
	}
	if _, err := s.db.Collection(database.CommentsCollection).InsertMany(ctx, docs); err != nil {
		return 0, fmt.Errorf("inserting comments: %w", err)
	}
	log.Printf("seeded %d comments", len(docs))
	return len(docs), nil
}

func (s *Seeder) buildSubtree(docs []any, users []models.User, parentID *bson.ObjectID, depth int) []any {
	comment := s.buildComment(users, parentID)
	docs = append(docs, comment)

	if depth >= s.opts.MaxDepth {
		return docs
	}
	// Fewer replies the deeper we go.
	replies := s.rng.Intn(s.opts.MaxReplies + 1)
	if depth > 0 {
		replies = s.rng.Intn(s.opts.MaxReplies/2 + 1)
	}
	for i := 0; i < replies; i++ {
		docs = s.buildSubtree(docs, users, &comment.ID, depth+1)
	}
	return docs
}

func (s *Seeder) buildComment(users []models.User, parentID *bson.ObjectID) models.Comment {
	author := users[s.rng.Intn(len(users))]

	upvoters := map[bson.ObjectID]bool{}
	for i := s.rng.Intn(len(users)); i > 0; i-- {
		upvoters[users[s.rng.Intn(len(users))].ID] = true
	}
	upvotedBy := make([]bson.ObjectID, 0, len(upvoters))
	for id := range upvoters {
		upvotedBy = append(upvotedBy, id)
	}

	created := time.Now().Add(-time.Duration(s.rng.Intn(60*24)) * time.Hour)
	return models.Comment{
		ID:        bson.NewObjectID(),
		Text:      gofakeit.Paragraph(1, s.rng.Intn(3)+1, s.rng.Intn(10)+3, " "),
		Upvotes:   len(upvotedBy),
		UpvotedBy: upvotedBy,
		UserID:    author.ID,
		ParentID:  parentID,
		PostID:    models.DefaultPostID,
		CreatedAt: created,
		UpdatedAt: created,
	}
}
