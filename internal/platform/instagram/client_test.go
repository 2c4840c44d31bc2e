package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// graphServer answers business discovery for "nasa" only.
func graphServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1784" {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"message": "unknown path", "code": 100}})
			return
		}
		if r.URL.Query().Get("access_token") != "long-token" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
				"message": "Invalid OAuth access token", "type": "OAuthException", "code": 190,
			}})
			return
		}
		fields := r.URL.Query().Get("fields")
		if !strings.HasPrefix(fields, "business_discovery.username(nasa){") {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
				"message": "Invalid user id", "type": "OAuthException", "code": 110,
			}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"business_discovery": map[string]any{
				"id": "17841",
				"media": map[string]any{"data": []any{
					map[string]any{"id": "m1", "caption": "Liftoff", "timestamp": "2024-05-01T09:00:00+0000", "like_count": 120},
					map[string]any{"id": "m2", "timestamp": "2024-04-20T09:00:00+0000"},
				}},
			},
			"id": "1784",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL, token string) *Client {
	return New(Options{
		BaseURL: baseURL,
		UserID:  "1784",
		Tokens:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		Timeout: 5 * time.Second,
	}, newTestLogger())
}

func TestBusinessDiscovery(t *testing.T) {
	srv := graphServer(t)
	c := newTestClient(srv.URL, "long-token")

	acct, err := c.BusinessDiscovery(context.Background(), "nasa")
	if err != nil {
		t.Fatalf("BusinessDiscovery() error = %v", err)
	}
	if acct.ID != "17841" {
		t.Errorf("ID = %q", acct.ID)
	}
	if len(acct.Media) != 2 {
		t.Fatalf("len(Media) = %d, want 2", len(acct.Media))
	}
	if acct.Media[0].LikeCount == nil || *acct.Media[0].LikeCount != 120 {
		t.Errorf("LikeCount = %v, want 120", acct.Media[0].LikeCount)
	}
	if acct.Media[1].LikeCount != nil {
		t.Errorf("hidden like count should stay nil, got %v", *acct.Media[1].LikeCount)
	}
}

func TestBusinessDiscovery_GraphError(t *testing.T) {
	srv := graphServer(t)
	c := newTestClient(srv.URL, "long-token")

	_, err := c.BusinessDiscovery(context.Background(), "somebody_private")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != 110 {
		t.Errorf("Code = %d, want 110", apiErr.Code)
	}
}

func TestBusinessDiscovery_MissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		client *Client
	}{
		{"no user id", New(Options{Tokens: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"})}, newTestLogger())},
		{"no token source", New(Options{UserID: "1784"}, newTestLogger())},
		{"empty token", newTestClient("http://127.0.0.1:0", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.client.BusinessDiscovery(context.Background(), "nasa")
			if !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("error = %v, want ErrMissingCredentials", err)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-05-01T09:00:00+0000", want, false},
		{"2024-05-01T11:00:00+0200", want, false},
		{"2024-05-01T09:00:00Z", want, false},
		{"May 1st", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp() = %v, want %v", got, tt.want)
			}
		})
	}
}
