package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AssetUploader pushes image payloads to asset storage. Uploads are
// idempotent: re-uploading with the same article id overwrites, and
// assets remain retrievable at deterministic URLs.
type AssetUploader struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAssetUploader creates an asset storage client.
func NewAssetUploader(baseURL, apiKey string) *AssetUploader {
	return &AssetUploader{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// BackgroundKey returns the storage key for an article's background image.
func BackgroundKey(articleID int) string {
	return fmt.Sprintf("%d_background.jpg", articleID)
}

// HaikuKey returns the storage key for an article's haiku-overlaid image.
func HaikuKey(articleID int) string {
	return fmt.Sprintf("%d_haiku.jpg", articleID)
}

// Upload puts one payload at the given key and returns its public URL.
func (u *AssetUploader) Upload(ctx context.Context, key string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "PUT", u.baseURL+"/"+key, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("X-API-Key", u.apiKey)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload %s failed (status %d): %s", key, resp.StatusCode, string(body))
	}
	return u.baseURL + "/" + key, nil
}

// UploadPair uploads the background and haiku-overlaid images for an
// article id and returns their URLs.
func (u *AssetUploader) UploadPair(ctx context.Context, articleID int, background, haiku []byte) (string, string, error) {
	backgroundURL, err := u.Upload(ctx, BackgroundKey(articleID), background)
	if err != nil {
		return "", "", err
	}
	haikuURL, err := u.Upload(ctx, HaikuKey(articleID), haiku)
	if err != nil {
		return "", "", err
	}
	return backgroundURL, haikuURL, nil
}
