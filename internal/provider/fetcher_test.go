package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testFetcher() *PageFetcher {
	return &PageFetcher{
		UserAgent:      "test-agent",
		RequestTimeout: 5 * time.Second,
		DomainDelay:    time.Millisecond,
		MaxBodySize:    1 << 20,
	}
}

func TestPageFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><head><title>Hello Page</title></head></html>"))
	}))
	defer srv.Close()

	page, err := testFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", page.StatusCode)
	}
	if !strings.Contains(string(page.Body), "Hello Page") {
		t.Errorf("expected body to contain page content, got %q", page.Body)
	}
	if !strings.Contains(page.ContentType, "text/html") {
		t.Errorf("expected html content type, got %q", page.ContentType)
	}
	if page.FetchedAt.IsZero() {
		t.Error("expected fetch timestamp to be set")
	}
}

func TestPageFetcherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := testFetcher().Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestPageFetcherInvalidURL(t *testing.T) {
	if _, err := testFetcher().Fetch(context.Background(), "http://%zz"); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}
