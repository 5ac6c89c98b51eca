package service

import (
	"bytes"
	"context"
	"image"

	// Decoders for the accepted avatar formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"parley/internal/models"
	"parley/internal/observability"

	"github.com/chai2010/webp"
)

const (
	maxAvatarBytes = 5 << 20
	maxAvatarDim   = 2048
	webpQuality    = 85
)

// AvatarStore pushes an encoded avatar image to external object storage and
// returns its hosted URL.
type AvatarStore interface {
	Put(ctx context.Context, content []byte) (string, error)
}

// AvatarService validates uploaded avatar images, normalizes them to webp,
// and hands them to the configured store.
type AvatarService struct {
	store AvatarStore
}

// NewAvatarService creates a new avatar service backed by the given store.
func NewAvatarService(store AvatarStore) *AvatarService {
	return &AvatarService{store: store}
}

// Upload decodes and validates the raw image bytes, re-encodes them as webp,
// and uploads the result. The returned URL is what gets persisted on the
// user document.
func (s *AvatarService) Upload(ctx context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewValidationError("Avatar file is empty")
	}
	if len(content) > maxAvatarBytes {
		return "", models.NewValidationError("Avatar file too large (max 5MB)")
	}

	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Avatar must be a jpeg, png, gif, or webp image")
	}
	bounds := img.Bounds()
	if bounds.Dx() > maxAvatarDim || bounds.Dy() > maxAvatarDim {
		return "", models.NewValidationError("Avatar dimensions too large (max 2048x2048)")
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: webpQuality}); err != nil {
		return "", models.NewInternalError(err)
	}

	url, err := s.store.Put(ctx, buf.Bytes())
	if err != nil {
		observability.AvatarUploads.WithLabelValues("error").Inc()
		return "", err
	}
	observability.AvatarUploads.WithLabelValues("ok").Inc()
	return url, nil
}
