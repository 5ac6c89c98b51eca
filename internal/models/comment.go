package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DefaultPostID groups comments that are not tagged with an explicit post.
const DefaultPostID = "default-post"

// Comment is a single comment document. Comments form a forest per post:
// ParentID is nil for top-level comments and references another comment for
// replies, with unbounded nesting depth.
//
// Upvotes is a denormalized cache of len(UpvotedBy) and must never diverge
// from it; the upvote toggle updates both in one atomic document update.
type Comment struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Text      string          `bson:"text" json:"text"`
	Upvotes   int             `bson:"upvotes" json:"upvotes"`
	UpvotedBy []bson.ObjectID `bson:"upvotedBy" json:"-"`
	UserID    bson.ObjectID   `bson:"userId" json:"-"`
	ParentID  *bson.ObjectID  `bson:"parentId" json:"parentId,omitempty"`
	PostID    string          `bson:"postId" json:"postId"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// UpvotedByUser reports whether the given user is in the comment's upvote set.
func (c *Comment) UpvotedByUser(userID bson.ObjectID) bool {
	for _, id := range c.UpvotedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// CommentAuthor is the author projection attached to serialized comments.
type CommentAuthor struct {
	ID     bson.ObjectID `json:"_id"`
	Name   string        `json:"name"`
	Email  string        `json:"email,omitempty"`
	Avatar string        `json:"avatar"`
}

// CommentNode is the wire shape for one comment in the assembled forest:
// the comment joined with its author, the viewer-specific upvote flag, and
// its replies (newest first). The raw upvote set is intentionally absent.
type CommentNode struct {
	ID        bson.ObjectID `json:"_id"`
	Text      string        `json:"text"`
	Upvotes   int           `json:"upvotes"`
	ParentID  string        `json:"parentId,omitempty"`
	PostID    string        `json:"postId"`
	Author    CommentAuthor `json:"author"`
	IsUpvoted bool          `json:"isUpvoted"`
	Replies   []CommentNode `json:"replies"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// UpvoteResult is the response shape of an upvote toggle.
type UpvoteResult struct {
	ID        bson.ObjectID `json:"_id"`
	Upvotes   int           `json:"upvotes"`
	IsUpvoted bool          `json:"isUpvoted"`
}
