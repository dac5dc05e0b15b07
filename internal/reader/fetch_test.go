package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchTextPlainBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != defaultUserAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("  Primer   párrafo \n\n Segundo\tpárrafo "))
	}))
	defer srv.Close()

	got, err := NewFetcher(FetchOptions{}).FetchText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != "Primer párrafo\n\nSegundo párrafo" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestFetchTextRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := FetchTextWithOptions(context.Background(), srv.URL, FetchOptions{})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFetchTextRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := FetchTextWithOptions(context.Background(), " ", FetchOptions{}); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	got, truncated := TruncateText("abcdefghijklmnopqrstuvwxyz", 10)
	if !truncated || got != "abcdefghi…" {
		t.Fatalf("unexpected truncation %q truncated=%t", got, truncated)
	}

	full, truncated := TruncateText("short", 10)
	if truncated || full != "short" {
		t.Fatalf("unexpected short text %q truncated=%t", full, truncated)
	}
}
