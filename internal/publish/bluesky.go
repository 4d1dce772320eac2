package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BlueskyPublisher posts to Bluesky over the AT protocol XRPC surface:
// createSession, uploadBlob, then createRecord.
type BlueskyPublisher struct {
	handle      string
	appPassword string
	pdsURL      string
	httpClient  *http.Client
}

// NewBlueskyPublisher creates a Bluesky publisher.
func NewBlueskyPublisher(handle, appPassword, pdsURL string) *BlueskyPublisher {
	if pdsURL == "" {
		pdsURL = "https://bsky.social"
	}
	return &BlueskyPublisher{
		handle:      handle,
		appPassword: appPassword,
		pdsURL:      pdsURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Name identifies the platform.
func (b *BlueskyPublisher) Name() string { return "bluesky" }

type blueskySession struct {
	AccessJWT string `json:"accessJwt"`
	DID       string `json:"did"`
}

type blueskyBlob struct {
	Blob json.RawMessage `json:"blob"`
}

// Authenticate exchanges the handle and app password for a session.
func (b *BlueskyPublisher) Authenticate(ctx context.Context) (*blueskySession, error) {
	payload, _ := json.Marshal(map[string]string{
		"identifier": b.handle,
		"password":   b.appPassword,
	})
	var session blueskySession
	if err := b.xrpc(ctx, "com.atproto.server.createSession", "", "application/json", payload, &session); err != nil {
		return nil, fmt.Errorf("bluesky auth failed: %w", err)
	}
	return &session, nil
}

// UploadMedia uploads image bytes as a blob for embedding.
func (b *BlueskyPublisher) UploadMedia(ctx context.Context, session *blueskySession, data []byte) (json.RawMessage, error) {
	var blob blueskyBlob
	if err := b.xrpc(ctx, "com.atproto.repo.uploadBlob", session.AccessJWT, "image/jpeg", data, &blob); err != nil {
		return nil, fmt.Errorf("bluesky blob upload failed: %w", err)
	}
	return blob.Blob, nil
}

// Publish runs the full authenticate/upload/post sequence and returns
// the record URI.
func (b *BlueskyPublisher) Publish(ctx context.Context, post Post) (string, error) {
	session, err := b.Authenticate(ctx)
	if err != nil {
		return "", err
	}

	record := map[string]any{
		"$type":     "app.bsky.feed.post",
		"text":      post.RenderText(),
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	if post.ImageData != nil {
		blob, err := b.UploadMedia(ctx, session, post.ImageData)
		if err != nil {
			return "", err
		}
		record["embed"] = map[string]any{
			"$type": "app.bsky.embed.images",
			"images": []map[string]any{
				{"alt": post.AltText, "image": blob},
			},
		}
	}

	payload, _ := json.Marshal(map[string]any{
		"repo":       session.DID,
		"collection": "app.bsky.feed.post",
		"record":     record,
	})

	var created struct {
		URI string `json:"uri"`
	}
	if err := b.xrpc(ctx, "com.atproto.repo.createRecord", session.AccessJWT, "application/json", payload, &created); err != nil {
		return "", fmt.Errorf("bluesky post failed: %w", err)
	}
	return created.URI, nil
}

// xrpc performs one XRPC POST and decodes the JSON response.
func (b *BlueskyPublisher) xrpc(ctx context.Context, method, jwt, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", b.pdsURL+"/xrpc/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if jwt != "" {
		req.Header.Set("Authorization", "Bearer "+jwt)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}
