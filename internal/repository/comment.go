package repository

import (
	"context"
	"errors"
	"time"

	"parley/internal/database"
	"parley/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id bson.ObjectID) (*models.Comment, error)
	ListTopLevel(ctx context.Context, postID string) ([]models.Comment, error)
	ListReplies(ctx context.Context, parentID bson.ObjectID) ([]models.Comment, error)
	ToggleUpvote(ctx context.Context, commentID, userID bson.ObjectID) (*models.Comment, error)
}

// commentRepository implements CommentRepository
type commentRepository struct {
	coll *mongo.Collection
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *mongo.Database) CommentRepository {
	return &commentRepository{coll: db.Collection(database.CommentsCollection)}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	now := time.Now().UTC()
	if comment.ID.IsZero() {
		comment.ID = bson.NewObjectID()
	}
	if comment.UpvotedBy == nil {
		comment.UpvotedBy = []bson.ObjectID{}
	}
	comment.CreatedAt = now
	comment.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, comment); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("Comment")
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

func (r *commentRepository) ListTopLevel(ctx context.Context, postID string) ([]models.Comment, error) {
	return r.list(ctx, bson.M{"postId": postID, "parentId": nil})
}

func (r *commentRepository) ListReplies(ctx context.Context, parentID bson.ObjectID) ([]models.Comment, error) {
	return r.list(ctx, bson.M{"parentId": parentID})
}

func (r *commentRepository) list(ctx context.Context, filter bson.M) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// ToggleUpvote flips the user's membership in the comment's upvote set and
// recomputes the denormalized count, all in one server-side document update.
// Two concurrent togglers therefore never lose each other's writes, and the
// count can never diverge from the set cardinality.
func (r *commentRepository) ToggleUpvote(ctx context.Context, commentID, userID bson.ObjectID) (*models.Comment, error) {
	set := bson.D{{Key: "$ifNull", Value: bson.A{"$upvotedBy", bson.A{}}}}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "upvotedBy", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$in", Value: bson.A{userID, set}}},
				bson.D{{Key: "$setDifference", Value: bson.A{set, bson.A{userID}}}},
				bson.D{{Key: "$concatArrays", Value: bson.A{set, bson.A{userID}}}},
			}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "upvotes", Value: bson.D{{Key: "$size", Value: "$upvotedBy"}}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Comment
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": commentID}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("Comment")
		}
		return nil, models.NewInternalError(err)
	}
	return &updated, nil
}
