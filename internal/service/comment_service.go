package service

import (
	"context"
	"sort"
	"strings"

	"parley/internal/models"
	"parley/internal/observability"
	"parley/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Sort orders accepted by ListComments.
const (
	SortNewest  = "newest"
	SortUpvotes = "upvotes"
)

const maxCommentLen = 10000

// CommentService implements comment creation, recursive forest assembly, and
// upvote toggling.
type CommentService struct {
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
}

// NewCommentService creates a new comment service.
func NewCommentService(commentRepo repository.CommentRepository, userRepo repository.UserRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		userRepo:    userRepo,
	}
}

// CreateCommentInput is the input for CreateComment. ParentID is the hex id
// of the comment being replied to, empty for a top-level comment.
type CreateCommentInput struct {
	Text     string
	AuthorID bson.ObjectID
	ParentID string
	PostID   string
}

// CreateComment persists a new comment and returns it joined with its author
// and an empty replies sequence.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.CommentNode, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Text is required")
	}
	if len(text) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	var parentID *bson.ObjectID
	kind := "top-level"
	if in.ParentID != "" {
		pid, err := bson.ObjectIDFromHex(in.ParentID)
		if err != nil {
			return nil, models.NewValidationError("Invalid parent comment id")
		}
		if _, err := s.commentRepo.GetByID(ctx, pid); err != nil {
			if isNotFound(err) {
				return nil, models.NewNotFoundError("Parent comment")
			}
			return nil, err
		}
		parentID = &pid
		kind = "reply"
	}

	postID := in.PostID
	if postID == "" {
		postID = models.DefaultPostID
	}

	comment := &models.Comment{
		Text:     text,
		UserID:   in.AuthorID,
		ParentID: parentID,
		PostID:   postID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	authors := map[bson.ObjectID]*models.CommentAuthor{}
	author, err := s.author(ctx, in.AuthorID, authors)
	if err != nil {
		return nil, err
	}

	observability.CommentsCreated.WithLabelValues(kind).Inc()

	node := newCommentNode(comment, author, false)
	return &node, nil
}

// ListComments assembles the comment forest for a post: top-level comments
// newest first, each with its recursively fetched replies (newest first per
// level). When a viewer is present every node carries that viewer's upvote
// state. sortBy = "upvotes" re-orders the top level by count descending
// after assembly.
func (s *CommentService) ListComments(ctx context.Context, postID, sortBy string, viewer *bson.ObjectID) ([]models.CommentNode, error) {
	ctx, span := observability.Tracer.Start(ctx, "comments.list",
		trace.WithAttributes(attribute.String("post_id", postID)))
	defer span.End()

	tops, err := s.commentRepo.ListTopLevel(ctx, postID)
	if err != nil {
		return nil, err
	}

	authors := map[bson.ObjectID]*models.CommentAuthor{}
	nodes := make([]models.CommentNode, 0, len(tops))
	for i := range tops {
		node, err := s.assemble(ctx, &tops[i], viewer, authors)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	if sortBy == SortUpvotes {
		sort.SliceStable(nodes, func(i, j int) bool {
			return nodes[i].Upvotes > nodes[j].Upvotes
		})
	}

	span.SetAttributes(attribute.Int("top_level_count", len(nodes)))
	return nodes, nil
}

// UpvoteToggle atomically flips the caller's upvote on a comment and returns
// the authoritative count and state.
func (s *CommentService) UpvoteToggle(ctx context.Context, commentID string, userID bson.ObjectID) (*models.UpvoteResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "comments.upvote_toggle")
	defer span.End()

	id, err := bson.ObjectIDFromHex(strings.TrimSpace(commentID))
	if err != nil {
		return nil, models.NewValidationError("Invalid comment id")
	}

	updated, err := s.commentRepo.ToggleUpvote(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	upvoted := updated.UpvotedByUser(userID)
	state := "removed"
	if upvoted {
		state = "added"
	}
	observability.UpvoteToggles.WithLabelValues(state).Inc()

	return &models.UpvoteResult{
		ID:        updated.ID,
		Upvotes:   updated.Upvotes,
		IsUpvoted: upvoted,
	}, nil
}

// assemble builds the node for one comment and recurses into its replies.
// Cost is proportional to subtree size; thread sizes are expected to stay
// small (no pagination by design).
func (s *CommentService) assemble(ctx context.Context, c *models.Comment, viewer *bson.ObjectID, authors map[bson.ObjectID]*models.CommentAuthor) (models.CommentNode, error) {
	author, err := s.author(ctx, c.UserID, authors)
	if err != nil {
		return models.CommentNode{}, err
	}

	isUpvoted := viewer != nil && c.UpvotedByUser(*viewer)
	node := newCommentNode(c, author, isUpvoted)

	children, err := s.commentRepo.ListReplies(ctx, c.ID)
	if err != nil {
		return models.CommentNode{}, err
	}
	for i := range children {
		child, err := s.assemble(ctx, &children[i], viewer, authors)
		if err != nil {
			return models.CommentNode{}, err
		}
		node.Replies = append(node.Replies, child)
	}
	return node, nil
}

// author resolves and memoizes the author projection for a user id. A
// missing author degrades to an id-only projection rather than failing the
// whole listing.
func (s *CommentService) author(ctx context.Context, id bson.ObjectID, memo map[bson.ObjectID]*models.CommentAuthor) (models.CommentAuthor, error) {
	if cached, ok := memo[id]; ok {
		return *cached, nil
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			author := models.CommentAuthor{ID: id}
			memo[id] = &author
			return author, nil
		}
		return models.CommentAuthor{}, err
	}

	author := models.CommentAuthor{
		ID:     user.ID,
		Name:   user.DisplayName(),
		Email:  user.Email,
		Avatar: user.Avatar,
	}
	memo[id] = &author
	return author, nil
}

func newCommentNode(c *models.Comment, author models.CommentAuthor, isUpvoted bool) models.CommentNode {
	parentID := ""
	if c.ParentID != nil {
		parentID = c.ParentID.Hex()
	}
	return models.CommentNode{
		ID:        c.ID,
		Text:      c.Text,
		Upvotes:   c.Upvotes,
		ParentID:  parentID,
		PostID:    c.PostID,
		Author:    author,
		IsUpvoted: isUpvoted,
		Replies:   []models.CommentNode{},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
