package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// TwitterPublisher posts to the X API v2: optional media upload, then
// tweet creation. Authentication uses the OAuth2 user access token.
type TwitterPublisher struct {
	accessToken string
	httpClient  *http.Client
	apiBase     string
	uploadBase  string
}

// NewTwitterPublisher creates a Twitter/X publisher.
func NewTwitterPublisher(accessToken string) *TwitterPublisher {
	return &TwitterPublisher{
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		apiBase:     "https://api.twitter.com/2",
		uploadBase:  "https://upload.twitter.com/1.1",
	}
}

// Name identifies the platform.
func (p *TwitterPublisher) Name() string { return "twitter" }

// UploadMedia uploads image bytes and returns the media id string.
func (p *TwitterPublisher) UploadMedia(ctx context.Context, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", "image.jpg")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.uploadBase+"/media/upload.json", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("twitter media upload failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("twitter media upload returned status %d: %s", resp.StatusCode, string(body))
	}

	var uploaded struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", err
	}
	return uploaded.MediaIDString, nil
}

// Publish creates the tweet, attaching uploaded media when present.
func (p *TwitterPublisher) Publish(ctx context.Context, post Post) (string, error) {
	payload := map[string]any{"text": post.RenderText()}
	if post.ImageData != nil {
		mediaID, err := p.UploadMedia(ctx, post.ImageData)
		if err != nil {
			return "", err
		}
		payload["media"] = map[string]any{"media_ids": []string{mediaID}}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.apiBase+"/tweets", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("twitter post failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("twitter post returned status %d: %s", resp.StatusCode, string(body))
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", err
	}
	return created.Data.ID, nil
}
