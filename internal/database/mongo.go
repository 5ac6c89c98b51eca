// Package database manages the MongoDB connection and index bootstrap.
package database

import (
	"context"
	"fmt"

	"parley/internal/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names.
const (
	UsersCollection    = "users"
	CommentsCollection = "comments"
)

// Connect establishes the MongoDB client, verifies connectivity with a ping,
// and ensures the indexes the application depends on. Persistence is required
// at startup; callers treat any error from here as fatal.
func Connect(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	if err := ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("mongo index bootstrap: %w", err)
	}

	return client, db, nil
}

// ensureIndexes creates the unique lookup keys for users and the listing
// index for comment forests. Sparse uniqueness lets password-only accounts
// omit googleId and Google-only accounts omit email.
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}
	if _, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	commentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "postId", Value: 1},
				{Key: "parentId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
	}
	if _, err := db.Collection(CommentsCollection).Indexes().CreateMany(ctx, commentIndexes); err != nil {
		return fmt.Errorf("comments indexes: %w", err)
	}

	return nil
}
