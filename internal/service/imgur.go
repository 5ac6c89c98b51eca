package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"parley/internal/models"
)

const imgurUploadURL = "https://api.imgur.com/3/image"

// ImgurStore uploads avatar images to the Imgur API and returns the hosted
// image link.
type ImgurStore struct {
	clientID string
	client   *http.Client
}

// NewImgurStore creates a store authenticated with the given client id.
func NewImgurStore(clientID string) *ImgurStore {
	return &ImgurStore{
		clientID: clientID,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type imgurResponse struct {
	Data struct {
		Link string `json:"link"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

func (s *ImgurStore) Put(ctx context.Context, content []byte) (string, error) {
	if s.clientID == "" {
		return "", models.NewUpstreamError("Imgur", errors.New("IMGUR_CLIENT_ID not configured"))
	}

	// Imgur accepts base64 payloads in a multipart form.
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("image", base64.StdEncoding.EncodeToString(content)); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writer.WriteField("type", "base64"); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writer.Close(); err != nil {
		return "", models.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, imgurUploadURL, &body)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Client-ID "+s.clientID)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", models.NewUpstreamError("Imgur", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewUpstreamError("Imgur", err)
	}

	var parsed imgurResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", models.NewUpstreamError("Imgur", err)
	}
	if !parsed.Success || parsed.Data.Link == "" {
		return "", models.NewUpstreamError("Imgur", fmt.Errorf("upload rejected: status %d", parsed.Status))
	}

	return parsed.Data.Link, nil
}
