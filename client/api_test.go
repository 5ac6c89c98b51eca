package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_FetchComments(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/comments/default-post", r.URL.Path)
		assert.Equal(t, "upvotes", r.URL.Query().Get("sort"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "Comments fetched",
			"data": []map[string]any{
				{"_id": "c1", "text": "hello", "upvotes": 3, "replies": []any{}},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok")
	comments, err := c.FetchComments(context.Background(), "default-post", "upvotes")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, 3, comments[0].Upvotes)
}

func TestHTTPClient_CreateReply(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/comments/parent1/reply", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body["text"])
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "Reply created",
			"data":    map[string]any{"_id": "c2", "text": "hi", "parentId": "parent1"},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok")
	reply, err := c.CreateReply(context.Background(), "parent1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "c2", reply.ID)
	assert.Equal(t, "parent1", reply.ParentID)
}

func TestHTTPClient_FailureEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "Authorization required",
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	_, err := c.ToggleUpvote(context.Background(), "c1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Authorization required", apiErr.Message)
}
