package server

import (
	"parley/internal/models"
	"parley/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type createCommentRequest struct {
	Text          string `json:"text"`
	ParentComment string `json:"parentComment"`
	PostID        string `json:"postId"`
}

// CreateComment handles creation of top-level comments (and replies when the
// body carries a parentComment id).
func (s *Server) CreateComment(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return models.RespondWithError(c, models.NewUnauthorizedError("Authorization required"))
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	node, err := s.commentService.CreateComment(c.Context(), service.CreateCommentInput{
		Text:     req.Text,
		AuthorID: user.ID,
		ParentID: req.ParentComment,
		PostID:   req.PostID,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusCreated, "Comment created", node)
}

// ReplyComment creates a reply to the comment named in the path.
func (s *Server) ReplyComment(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return models.RespondWithError(c, models.NewUnauthorizedError("Authorization required"))
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	node, err := s.commentService.CreateComment(c.Context(), service.CreateCommentInput{
		Text:     req.Text,
		AuthorID: user.ID,
		ParentID: c.Params("commentId"),
		PostID:   req.PostID,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusCreated, "Reply created", node)
}

// ListComments returns the comment forest for a post. Anonymous callers get
// isUpvoted=false throughout.
func (s *Server) ListComments(c *fiber.Ctx) error {
	var viewer *bson.ObjectID
	if user, ok := currentUser(c); ok {
		viewer = &user.ID
	}

	nodes, err := s.commentService.ListComments(c.Context(),
		c.Params("postId"), c.Query("sort", service.SortNewest), viewer)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "Comments fetched", nodes)
}

// UpvoteComment toggles the caller's upvote on a comment.
func (s *Server) UpvoteComment(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return models.RespondWithError(c, models.NewUnauthorizedError("Authorization required"))
	}

	result, err := s.commentService.UpvoteToggle(c.Context(), c.Params("commentId"), user.ID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	message := "Upvote removed"
	if result.IsUpvoted {
		message = "Upvote added"
	}
	return models.RespondWithData(c, fiber.StatusOK, message, result)
}
