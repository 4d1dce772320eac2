package publish

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"newsdesk/internal/core"
)

func TestContentClientPublishSuccess(t *testing.T) {
	var gotKey string
	var gotRecord core.PublishRecord
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/publish" {
			t.Errorf("Expected path /publish, got %s", r.URL.Path)
		}
		gotKey = r.Header.Get("X-API-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotRecord); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "success",
			"articleId": 4821,
			"link":      "https://example.com/articles/4821",
		})
	}))
	defer server.Close()

	client := NewContentClient(server.URL, "secret-key", 0)
	record := core.PublishRecord{AIHeadline: "Test Headline", Quality: 8.5}

	result, err := client.Publish(context.Background(), record)
	if err != nil {
		t.Fatalf("Expected successful publish, got error: %v", err)
	}
	if result.ArticleID != 4821 {
		t.Errorf("Expected article id 4821, got %d", result.ArticleID)
	}
	if result.Link != "https://example.com/articles/4821" {
		t.Errorf("Expected published link, got %q", result.Link)
	}
	if result.Published.IsZero() {
		t.Error("Expected Published timestamp to be set")
	}
	if gotKey != "secret-key" {
		t.Errorf("Expected X-API-Key header, got %q", gotKey)
	}
	if gotRecord.AIHeadline != "Test Headline" {
		t.Errorf("Expected record round-tripped, got headline %q", gotRecord.AIHeadline)
	}
}

func TestContentClientPublishRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "error",
			"message": "duplicate headline",
		})
	}))
	defer server.Close()

	client := NewContentClient(server.URL, "key", 0)
	_, err := client.Publish(context.Background(), core.PublishRecord{})
	if err == nil {
		t.Fatal("Expected error for rejected publish, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate headline") {
		t.Errorf("Expected rejection message in error, got %v", err)
	}
}

func TestContentClientPublishZeroArticleID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "articleId": 0})
	}))
	defer server.Close()

	client := NewContentClient(server.URL, "key", 0)
	if _, err := client.Publish(context.Background(), core.PublishRecord{}); err == nil {
		t.Fatal("Expected error for zero article id, got nil")
	}
}

func TestContentClientPublishHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewContentClient(server.URL, "wrong-key", 0)
	_, err := client.Publish(context.Background(), core.PublishRecord{})
	if err == nil {
		t.Fatal("Expected error for HTTP 401, got nil")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("Expected status code in error, got %v", err)
	}
}

func TestAssetUploaderKeys(t *testing.T) {
	if got := BackgroundKey(42); got != "42_background.jpg" {
		t.Errorf("Expected 42_background.jpg, got %q", got)
	}
	if got := HaikuKey(42); got != "42_haiku.jpg" {
		t.Errorf("Expected 42_haiku.jpg, got %q", got)
	}
}

func TestAssetUploaderUploadPair(t *testing.T) {
	uploads := map[string][]byte{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PUT" {
			t.Errorf("Expected PUT, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		uploads[strings.TrimPrefix(r.URL.Path, "/")] = body
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	uploader := NewAssetUploader(server.URL, "key")
	bgURL, haikuURL, err := uploader.UploadPair(context.Background(), 7, []byte("bg"), []byte("haiku"))
	if err != nil {
		t.Fatalf("Expected successful pair upload, got error: %v", err)
	}
	if !strings.HasSuffix(bgURL, "/7_background.jpg") {
		t.Errorf("Expected background URL, got %q", bgURL)
	}
	if !strings.HasSuffix(haikuURL, "/7_haiku.jpg") {
		t.Errorf("Expected haiku URL, got %q", haikuURL)
	}
	if string(uploads["7_background.jpg"]) != "bg" {
		t.Errorf("Expected background payload stored, got %q", uploads["7_background.jpg"])
	}
	if string(uploads["7_haiku.jpg"]) != "haiku" {
		t.Errorf("Expected haiku payload stored, got %q", uploads["7_haiku.jpg"])
	}
}
