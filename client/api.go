// Package client implements a Go client for the Parley comments API with a
// local optimistic view of the comment tree.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Author is the comment author projection returned by the API.
type Author struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Comment is one node of the comment tree as returned by the API.
// Provisional marks locally created comments the server has not confirmed.
type Comment struct {
	ID          string    `json:"_id"`
	Text        string    `json:"text"`
	Upvotes     int       `json:"upvotes"`
	ParentID    string    `json:"parentId"`
	PostID      string    `json:"postId"`
	Author      Author    `json:"author"`
	IsUpvoted   bool      `json:"isUpvoted"`
	Replies     []Comment `json:"replies"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Provisional bool      `json:"-"`
}

// UpvoteState is the authoritative toggle result returned by the API.
type UpvoteState struct {
	ID        string `json:"_id"`
	Upvotes   int    `json:"upvotes"`
	IsUpvoted bool   `json:"isUpvoted"`
}

// API is the remote surface the store needs. Satisfied by HTTPClient; tests
// substitute fakes.
type API interface {
	FetchComments(ctx context.Context, postID, sort string) ([]Comment, error)
	CreateComment(ctx context.Context, text, postID string) (*Comment, error)
	CreateReply(ctx context.Context, parentID, text string) (*Comment, error)
	ToggleUpvote(ctx context.Context, commentID string) (*UpvoteState, error)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// HTTPClient talks to a Parley API server.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client for the API at baseURL authenticated with
// the given access token. Pass an empty token for anonymous reads.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (h *HTTPClient) FetchComments(ctx context.Context, postID, sort string) ([]Comment, error) {
	path := "/api/comments/" + url.PathEscape(postID)
	if sort != "" {
		path += "?sort=" + url.QueryEscape(sort)
	}
	var comments []Comment
	if err := h.do(ctx, http.MethodGet, path, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (h *HTTPClient) CreateComment(ctx context.Context, text, postID string) (*Comment, error) {
	body := map[string]string{"text": text, "postId": postID}
	var comment Comment
	if err := h.do(ctx, http.MethodPost, "/api/comments/", body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (h *HTTPClient) CreateReply(ctx context.Context, parentID, text string) (*Comment, error) {
	body := map[string]string{"text": text}
	path := "/api/comments/" + url.PathEscape(parentID) + "/reply"
	var comment Comment
	if err := h.do(ctx, http.MethodPost, path, body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (h *HTTPClient) ToggleUpvote(ctx context.Context, commentID string) (*UpvoteState, error) {
	path := "/api/comments/" + url.PathEscape(commentID) + "/upvote"
	var state UpvoteState
	if err := h.do(ctx, http.MethodPost, path, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// do sends one request and unwraps the {success, message, data} envelope into
// out.
func (h *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("malformed response data: %w", err)
		}
	}
	return nil
}

// APIError is a failure envelope returned by the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}
