// Package imagegen requests illustrative images from the image backend
// and polls jobs to completion with a bounded wait.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTimeout is returned when a job does not reach a terminal status
// within the configured attempt budget. Distinct from transport errors
// so callers can tell a slow backend from a broken one.
var ErrTimeout = fmt.Errorf("image generation timed out")

// Client handles image backend API interactions.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	httpClient   *http.Client
	pollInterval time.Duration
	pollAttempts int
}

// NewClient creates an image backend client. Polling defaults to 60
// attempts at 2s when the bounds are zero.
func NewClient(baseURL, apiKey, model string, pollInterval time.Duration, pollAttempts int) *Client {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if pollAttempts <= 0 {
		pollAttempts = 60
	}
	return &Client{
		apiKey:       apiKey,
		baseURL:      baseURL,
		model:        model,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		pollAttempts: pollAttempts,
	}
}

// GenerateRequest represents an image generation request.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

// GenerateResponse carries the job id assigned to a generation request.
type GenerateResponse struct {
	JobID string `json:"job_id"`
}

// StatusResponse is one poll result for a job.
type StatusResponse struct {
	Status   string `json:"status"`              // "pending", "done", or "error"
	ImageURL string `json:"image_url,omitempty"` // Set when status is "done"
	Error    string `json:"error,omitempty"`     // Set when status is "error"
}

// Job statuses.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusError   = "error"
)

// RequestImage submits a generation job and returns its id.
func (c *Client) RequestImage(ctx context.Context, prompt, size string) (string, error) {
	request := GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		N:      1,
		Size:   size,
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/images/generate", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("image API error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if genResp.JobID == "" {
		return "", fmt.Errorf("image API returned no job id")
	}
	return genResp.JobID, nil
}

// PollStatus fetches the current status of a job. Any non-200 response is
// a terminal failure.
func (c *Client) PollStatus(ctx context.Context, jobID string) (*StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/images/status/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status API error (status %d): %s", resp.StatusCode, string(body))
	}

	var status StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &status, nil
}

// WaitForImage polls a job until it reaches a terminal status, then
// downloads and returns the image bytes. The wait is bounded: after
// pollAttempts polls it returns ErrTimeout. Cancellation is honored
// between polls via the context.
func (c *Client) WaitForImage(ctx context.Context, jobID string) ([]byte, error) {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		status, err := c.PollStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case StatusDone:
			return c.fetchImage(ctx, status.ImageURL)
		case StatusError:
			return nil, fmt.Errorf("image generation failed: %s", status.Error)
		case StatusPending:
			// Keep polling.
		default:
			return nil, fmt.Errorf("unknown job status %q", status.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return nil, fmt.Errorf("job %s after %d attempts: %w", jobID, c.pollAttempts, ErrTimeout)
}

// Generate is the full request/poll/fetch sequence for one image.
func (c *Client) Generate(ctx context.Context, prompt, size string) ([]byte, error) {
	jobID, err := c.RequestImage(ctx, prompt, size)
	if err != nil {
		return nil, err
	}
	return c.WaitForImage(ctx, jobID)
}

// fetchImage downloads the finished image via plain GET.
func (c *Client) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("job finished without an image URL")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// EncodeBase64 encodes image bytes for embedding in a publish record.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 recovers image bytes from a publish record field.
func DecodeBase64(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}
