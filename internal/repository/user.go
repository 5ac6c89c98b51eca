// Package repository provides data access over the MongoDB collections.
package repository

import (
	"context"
	"errors"
	"time"

	"parley/internal/database"
	"parley/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	LinkGoogleAccount(ctx context.Context, id bson.ObjectID, googleID, avatar string) error
	SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error
}

// userRepository implements UserRepository
type userRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{coll: db.Collection(database.UsersCollection)}
}

func (r *userRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("User")
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"googleId": googleID})
}

// findOne returns (nil, nil) when no document matches; lookups distinguish
// "absent" from failure.
func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// LinkGoogleAccount attaches a Google subject id to an existing user and
// backfills the avatar when one is supplied.
func (r *userRepository) LinkGoogleAccount(ctx context.Context, id bson.ObjectID, googleID, avatar string) error {
	set := bson.M{
		"googleId":  googleID,
		"updatedAt": time.Now().UTC(),
	}
	if avatar != "" {
		set["avatar"] = avatar
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflictError("Google account already linked to another user")
		}
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("User")
	}
	return nil
}

// SetRefreshToken stores the single currently-valid refresh token for the
// user, overwriting (and thereby revoking) any previously issued one. An
// empty token clears the slot.
func (r *userRepository) SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"refreshToken": token,
		"updatedAt":    time.Now().UTC(),
	}})
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("User")
	}
	return nil
}
