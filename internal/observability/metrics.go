// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommentsCreated counts persisted comments by kind (top-level vs reply).
	CommentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_comments_created_total",
		Help: "Total number of comments created",
	}, []string{"kind"})

	// UpvoteToggles counts upvote toggles by resulting state.
	UpvoteToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_upvote_toggles_total",
		Help: "Total number of upvote toggles by resulting state",
	}, []string{"state"})

	// TokenPairsIssued counts issued access/refresh token pairs by flow.
	TokenPairsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_token_pairs_issued_total",
		Help: "Total number of token pairs issued by auth flow",
	}, []string{"flow"})

	// AvatarUploads counts avatar uploads to the external image host by outcome.
	AvatarUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_avatar_uploads_total",
		Help: "Total number of avatar uploads by outcome",
	}, []string{"outcome"})
)
