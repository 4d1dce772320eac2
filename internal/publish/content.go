// Package publish sends finished publish records to the content API,
// uploads image assets, and fans the story out to social platforms.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"newsdesk/internal/core"
)

// ContentClient talks to the content publish API.
type ContentClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewContentClient creates a content API client authenticated via a
// static API-key header.
func NewContentClient(apiURL, apiKey string, timeout time.Duration) *ContentClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ContentClient{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// publishResponse is the content API's wire response.
type publishResponse struct {
	Status    string `json:"status"`
	ArticleID int    `json:"articleId"`
	Link      string `json:"link"`
	Message   string `json:"message,omitempty"`
}

// Publish POSTs the record as JSON. Success requires status "success"
// and a truthy article id; anything else is an error.
func (c *ContentClient) Publish(ctx context.Context, record core.PublishRecord) (*core.PublishResult, error) {
	reqBody, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal publish record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/publish", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call publish API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read publish response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("publish API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed publishResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal publish response: %w", err)
	}
	if parsed.Status != "success" || parsed.ArticleID == 0 {
		return nil, fmt.Errorf("publish rejected: status=%s message=%s", parsed.Status, parsed.Message)
	}

	return &core.PublishResult{
		ArticleID: parsed.ArticleID,
		Link:      parsed.Link,
		Published: time.Now(),
	}, nil
}

// StoredArticle is the content API's view of an already-published
// article, as much of it as the image tooling needs.
type StoredArticle struct {
	ArticleID int    `json:"articleId"`
	Headline  string `json:"AIHeadline"`
	Haiku     string `json:"AIHaiku"`
	ImageData string `json:"image_data"`
}

// FetchArticle retrieves one published article by id. A 404 or an empty
// body returns (nil, nil); callers treat that as "no article at this id".
func (c *ContentClient) FetchArticle(ctx context.Context, articleID int) (*StoredArticle, error) {
	url := fmt.Sprintf("%s/articles/%d", c.apiURL, articleID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create article request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article %d: %w", articleID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read article response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("article API error (status %d): %s", resp.StatusCode, string(body))
	}
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}

	var article StoredArticle
	if err := json.Unmarshal(body, &article); err != nil {
		return nil, fmt.Errorf("failed to unmarshal article %d: %w", articleID, err)
	}
	if article.ArticleID == 0 {
		article.ArticleID = articleID
	}
	return &article, nil
}
