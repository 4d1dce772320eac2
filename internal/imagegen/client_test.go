package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"newsdesk/internal/core"
)

func coreArticle() core.ArticleRecord {
	return core.ArticleRecord{
		Headline: "Test Headline",
		Haiku:    "one\ntwo\nthree",
		Story:    "<p>Body.</p>",
		Summary:  "Summary.",
	}
}

func TestGenerateRequestPollFetch(t *testing.T) {
	var polls atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/v1/images/generate":
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("Unexpected auth header: %q", auth)
			}
			_ = json.NewEncoder(w).Encode(GenerateResponse{JobID: "job-1"})
		case r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/v1/images/status/"):
			if polls.Add(1) < 3 {
				_ = json.NewEncoder(w).Encode(StatusResponse{Status: StatusPending})
				return
			}
			_ = json.NewEncoder(w).Encode(StatusResponse{Status: StatusDone, ImageURL: server.URL + "/result.png"})
		case r.Method == "GET" && r.URL.Path == "/result.png":
			_, _ = w.Write([]byte("fake-png-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model", time.Millisecond, 10)
	data, err := client.Generate(context.Background(), "a prompt", "1024x1024")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if string(data) != "fake-png-bytes" {
		t.Errorf("Unexpected image bytes: %q", string(data))
	}
	if polls.Load() != 3 {
		t.Errorf("Expected 3 polls, got %d", polls.Load())
	}
}

func TestWaitForImageTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(StatusResponse{Status: StatusPending})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", time.Millisecond, 3)
	_, err := client.WaitForImage(context.Background(), "job-1")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
}

func TestWaitForImageJobError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(StatusResponse{Status: StatusError, Error: "nsfw rejected"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", time.Millisecond, 3)
	_, err := client.WaitForImage(context.Background(), "job-1")
	if err == nil || errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected terminal job error, got %v", err)
	}
}

func TestWaitForImageNon200IsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", time.Millisecond, 5)
	_, err := client.WaitForImage(context.Background(), "job-1")
	if err == nil {
		t.Fatal("Expected error for non-200 status response")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("Transport failure must not be reported as timeout")
	}
}

func TestWaitForImageHonorsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(StatusResponse{Status: StatusPending})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(server.URL, "k", "m", time.Hour, 100)

	done := make(chan error, 1)
	go func() {
		_, err := client.WaitForImage(ctx, "job-1")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForImage did not return after cancellation")
	}
}

func TestBuildImagePromptFlattensHaiku(t *testing.T) {
	article := coreArticle()
	prompt := BuildImagePrompt(article, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if strings.Contains(prompt, "\n") {
		t.Error("Image prompt must be a single line")
	}
	if !strings.Contains(prompt, "one / two / three") {
		t.Errorf("Haiku lines not joined: %q", prompt)
	}
	if !strings.Contains(prompt, "September 2026") {
		t.Errorf("Date anchor missing: %q", prompt)
	}
}
