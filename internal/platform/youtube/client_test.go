package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// fakeAPI serves one channel "@nasa" (id UC1, uploads UU1) with two videos.
func fakeAPI(t *testing.T, channelCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		channelCalls.Add(1)
		q := r.URL.Query()
		if q.Get("key") != "test-key" {
			writeJSON(w, http.StatusForbidden, map[string]any{
				"error": map[string]any{"code": 403, "message": "API key not valid"},
			})
			return
		}
		switch {
		case q.Get("forHandle") == "@nasa" && q.Get("part") == "id":
			writeJSON(w, http.StatusOK, map[string]any{"items": []any{map[string]any{"id": "UC1"}}})
		case q.Get("id") == "UC1" && q.Get("part") == "contentDetails":
			writeJSON(w, http.StatusOK, map[string]any{"items": []any{map[string]any{
				"id":             "UC1",
				"contentDetails": map[string]any{"relatedPlaylists": map[string]any{"uploads": "UU1"}},
			}}})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"pageInfo": map[string]any{"totalResults": 0}})
		}
	})
	mux.HandleFunc("/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("playlistId") != "UU1" || q.Get("maxResults") != "10" {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": 404, "message": "playlist not found"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{
			map[string]any{
				"snippet":        map[string]any{"title": "Launch", "description": "Liftoff!", "publishedAt": "2024-05-02T10:00:00Z"},
				"contentDetails": map[string]any{"videoId": "v1", "videoPublishedAt": "2024-05-01T09:00:00Z"},
			},
			map[string]any{
				"snippet":        map[string]any{"title": "Landing", "description": "Touchdown", "publishedAt": "2024-04-01T09:00:00Z"},
				"contentDetails": map[string]any{"videoId": "v2"},
			},
			map[string]any{
				"snippet":        map[string]any{"title": "Broken", "publishedAt": "yesterday"},
				"contentDetails": map[string]any{"videoId": "v3"},
			},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL, key string) *Client {
	t.Helper()
	return New(Options{APIKey: key, BaseURL: baseURL, Timeout: 5 * time.Second}, newTestLogger())
}

func TestChannelIDForHandle(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAPI(t, &calls)
	c := newTestClient(t, srv.URL, "test-key")

	id, err := c.ChannelIDForHandle(context.Background(), "@nasa")
	if err != nil {
		t.Fatalf("ChannelIDForHandle() error = %v", err)
	}
	if id != "UC1" {
		t.Errorf("ChannelIDForHandle() = %q, want UC1", id)
	}

	_, err = c.ChannelIDForHandle(context.Background(), "@nobody")
	if !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("unknown handle error = %v, want ErrChannelNotFound", err)
	}
}

func TestChannelIDForHandle_APIError(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAPI(t, &calls)
	c := newTestClient(t, srv.URL, "wrong-key")

	_, err := c.ChannelIDForHandle(context.Background(), "@nasa")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", apiErr.Status)
	}
}

func TestMissingAPIKey(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0", "")

	if _, err := c.ChannelIDForHandle(context.Background(), "@nasa"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}
}

func TestUploadsPlaylistID_IsCached(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAPI(t, &calls)
	c := newTestClient(t, srv.URL, "test-key")

	for i := 0; i < 3; i++ {
		id, err := c.UploadsPlaylistID(context.Background(), "@nasa")
		if err != nil {
			t.Fatalf("UploadsPlaylistID() error = %v", err)
		}
		if id != "UU1" {
			t.Errorf("UploadsPlaylistID() = %q, want UU1", id)
		}
	}
	// handle lookup + contentDetails lookup, once
	if got := calls.Load(); got != 2 {
		t.Errorf("channels endpoint called %d times, want 2", got)
	}
}

func TestRecentUploads(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAPI(t, &calls)
	c := newTestClient(t, srv.URL, "test-key")

	videos, err := c.RecentUploads(context.Background(), "UU1", 10)
	if err != nil {
		t.Fatalf("RecentUploads() error = %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("len = %d, want 2 (unparsable item skipped)", len(videos))
	}

	want := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if !videos[0].PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want videoPublishedAt %v", videos[0].PublishedAt, want)
	}
	if videos[0].Title != "Launch" || videos[0].Description != "Liftoff!" {
		t.Errorf("video = %+v", videos[0])
	}
	// no videoPublishedAt: falls back to snippet.publishedAt
	if !videos[1].PublishedAt.Equal(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("fallback PublishedAt = %v", videos[1].PublishedAt)
	}
}

func TestRecentUploads_NotFound(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAPI(t, &calls)
	c := newTestClient(t, srv.URL, "test-key")

	if _, err := c.RecentUploads(context.Background(), "UU-missing", 10); err == nil {
		t.Error("RecentUploads() for unknown playlist should fail")
	}
}
