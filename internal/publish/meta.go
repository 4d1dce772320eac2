package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// graphAPIBase is the Meta graph API root shared by the Instagram,
// Facebook, and Threads publishers.
const graphAPIBase = "https://graph.facebook.com/v21.0"

// threadsAPIBase is the Threads-specific graph root.
const threadsAPIBase = "https://graph.threads.net/v1.0"

// metaClient is the shared POST-form helper for graph API publishers.
type metaClient struct {
	httpClient *http.Client
}

func newMetaClient() metaClient {
	return metaClient{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// postForm POSTs form values and decodes the JSON response.
func (m metaClient) postForm(ctx context.Context, endpoint string, values url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph API returned status %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

// InstagramPublisher posts via the two-phase graph sequence: create a
// media container from a hosted image URL, then publish it. Instagram
// cannot ingest raw bytes, so the asset must already be uploaded and
// ImageURL set before Publish.
type InstagramPublisher struct {
	accessToken string
	accountID   string
	ImageURL    string // Hosted image URL, set per-post before Publish
	meta        metaClient
}

// NewInstagramPublisher creates an Instagram publisher.
func NewInstagramPublisher(accessToken, accountID string) *InstagramPublisher {
	return &InstagramPublisher{
		accessToken: accessToken,
		accountID:   accountID,
		meta:        newMetaClient(),
	}
}

// Name identifies the platform.
func (p *InstagramPublisher) Name() string { return "instagram" }

// Publish creates and publishes a media container.
func (p *InstagramPublisher) Publish(ctx context.Context, post Post) (string, error) {
	if p.ImageURL == "" {
		return "", fmt.Errorf("instagram requires a hosted image URL")
	}

	var container struct {
		ID string `json:"id"`
	}
	err := p.meta.postForm(ctx, fmt.Sprintf("%s/%s/media", graphAPIBase, p.accountID), url.Values{
		"image_url":    {p.ImageURL},
		"caption":      {post.RenderText()},
		"access_token": {p.accessToken},
	}, &container)
	if err != nil {
		return "", fmt.Errorf("instagram container failed: %w", err)
	}

	var published struct {
		ID string `json:"id"`
	}
	err = p.meta.postForm(ctx, fmt.Sprintf("%s/%s/media_publish", graphAPIBase, p.accountID), url.Values{
		"creation_id":  {container.ID},
		"access_token": {p.accessToken},
	}, &published)
	if err != nil {
		return "", fmt.Errorf("instagram publish failed: %w", err)
	}
	return published.ID, nil
}

// FacebookPublisher posts a photo with a message to a page feed.
type FacebookPublisher struct {
	accessToken string
	pageID      string
	ImageURL    string
	meta        metaClient
}

// NewFacebookPublisher creates a Facebook page publisher.
func NewFacebookPublisher(accessToken, pageID string) *FacebookPublisher {
	return &FacebookPublisher{
		accessToken: accessToken,
		pageID:      pageID,
		meta:        newMetaClient(),
	}
}

// Name identifies the platform.
func (p *FacebookPublisher) Name() string { return "facebook" }

// Publish posts to the page, as a photo when a hosted image exists,
// otherwise as a plain feed post.
func (p *FacebookPublisher) Publish(ctx context.Context, post Post) (string, error) {
	var created struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}

	if p.ImageURL != "" {
		err := p.meta.postForm(ctx, fmt.Sprintf("%s/%s/photos", graphAPIBase, p.pageID), url.Values{
			"url":          {p.ImageURL},
			"message":      {post.RenderText()},
			"access_token": {p.accessToken},
		}, &created)
		if err != nil {
			return "", fmt.Errorf("facebook photo post failed: %w", err)
		}
	} else {
		err := p.meta.postForm(ctx, fmt.Sprintf("%s/%s/feed", graphAPIBase, p.pageID), url.Values{
			"message":      {post.RenderText()},
			"link":         {post.Link},
			"access_token": {p.accessToken},
		}, &created)
		if err != nil {
			return "", fmt.Errorf("facebook feed post failed: %w", err)
		}
	}

	if created.PostID != "" {
		return created.PostID, nil
	}
	return created.ID, nil
}

// ThreadsPublisher posts via the Threads container/publish sequence.
type ThreadsPublisher struct {
	accessToken string
	userID      string
	ImageURL    string
	meta        metaClient
}

// NewThreadsPublisher creates a Threads publisher.
func NewThreadsPublisher(accessToken, userID string) *ThreadsPublisher {
	return &ThreadsPublisher{
		accessToken: accessToken,
		userID:      userID,
		meta:        newMetaClient(),
	}
}

// Name identifies the platform.
func (p *ThreadsPublisher) Name() string { return "threads" }

// Publish creates and publishes a thread, with an image when available.
func (p *ThreadsPublisher) Publish(ctx context.Context, post Post) (string, error) {
	values := url.Values{
		"text":         {post.RenderText()},
		"access_token": {p.accessToken},
	}
	if p.ImageURL != "" {
		values.Set("media_type", "IMAGE")
		values.Set("image_url", p.ImageURL)
	} else {
		values.Set("media_type", "TEXT")
	}

	var container struct {
		ID string `json:"id"`
	}
	err := p.meta.postForm(ctx, fmt.Sprintf("%s/%s/threads", threadsAPIBase, p.userID), values, &container)
	if err != nil {
		return "", fmt.Errorf("threads container failed: %w", err)
	}

	var published struct {
		ID string `json:"id"`
	}
	err = p.meta.postForm(ctx, fmt.Sprintf("%s/%s/threads_publish", threadsAPIBase, p.userID), url.Values{
		"creation_id":  {container.ID},
		"access_token": {p.accessToken},
	}, &published)
	if err != nil {
		return "", fmt.Errorf("threads publish failed: %w", err)
	}
	return published.ID, nil
}

// ExchangeLongLivedToken swaps a short-lived graph token for a
// long-lived one. Used by the refresh-token CLI.
func ExchangeLongLivedToken(ctx context.Context, appID, appSecret, shortToken string) (string, time.Duration, error) {
	client := newMetaClient()
	endpoint := fmt.Sprintf("%s/oauth/access_token", graphAPIBase)

	values := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {appID},
		"client_secret":     {appSecret},
		"fb_exchange_token": {shortToken},
	}

	var exchanged struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := client.postForm(ctx, endpoint, values, &exchanged); err != nil {
		return "", 0, fmt.Errorf("token exchange failed: %w", err)
	}
	if exchanged.AccessToken == "" {
		return "", 0, fmt.Errorf("token exchange returned no token")
	}
	return exchanged.AccessToken, time.Duration(exchanged.ExpiresIn) * time.Second, nil
}
