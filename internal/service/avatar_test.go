package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"parley/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// avatarStoreStub is a stub for AvatarStore.
type avatarStoreStub struct {
	putFn func(context.Context, []byte) (string, error)
}

func (s *avatarStoreStub) Put(ctx context.Context, content []byte) (string, error) {
	return s.putFn(ctx, content)
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAvatarService_Upload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid image is converted and stored", func(t *testing.T) {
		t.Parallel()
		var stored []byte
		svc := NewAvatarService(&avatarStoreStub{
			putFn: func(_ context.Context, content []byte) (string, error) {
				stored = content
				return "https://i.imgur.com/abc.webp", nil
			},
		})

		url, err := svc.Upload(ctx, encodePNG(t, 16, 16))
		require.NoError(t, err)
		assert.Equal(t, "https://i.imgur.com/abc.webp", url)
		assert.NotEmpty(t, stored)
		// The stored payload is webp, not the original png.
		require.GreaterOrEqual(t, len(stored), 4)
		assert.Equal(t, "RIFF", string(stored[:4]))
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		svc := NewAvatarService(&avatarStoreStub{})
		_, err := svc.Upload(ctx, nil)
		assertValidationError(t, err)
	})

	t.Run("not an image", func(t *testing.T) {
		t.Parallel()
		svc := NewAvatarService(&avatarStoreStub{})
		_, err := svc.Upload(ctx, []byte("definitely not an image"))
		assertValidationError(t, err)
	})

	t.Run("oversized payload", func(t *testing.T) {
		t.Parallel()
		svc := NewAvatarService(&avatarStoreStub{})
		_, err := svc.Upload(ctx, make([]byte, maxAvatarBytes+1))
		assertValidationError(t, err)
	})

	t.Run("oversized dimensions", func(t *testing.T) {
		t.Parallel()
		svc := NewAvatarService(&avatarStoreStub{})
		_, err := svc.Upload(ctx, encodePNG(t, maxAvatarDim+1, 8))
		assertValidationError(t, err)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		t.Parallel()
		storeErr := models.NewUpstreamError("Imgur", errors.New("boom"))
		svc := NewAvatarService(&avatarStoreStub{
			putFn: func(_ context.Context, _ []byte) (string, error) {
				return "", storeErr
			},
		})
		_, err := svc.Upload(ctx, encodePNG(t, 16, 16))
		assert.ErrorIs(t, err, storeErr)
	})
}
