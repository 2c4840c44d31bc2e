package verifier

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/platform/instagram"
	"github.com/sakif/socialpulse/internal/platform/youtube"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeYouTube struct {
	channels map[string]string
	err      error
	calls    int
}

func (f *fakeYouTube) ChannelIDForHandle(_ context.Context, handle string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	id, ok := f.channels[handle]
	if !ok {
		return "", youtube.ErrChannelNotFound
	}
	return id, nil
}

type fakeInstagram struct {
	accounts map[string]bool
	err      error
}

func (f *fakeInstagram) BusinessDiscovery(_ context.Context, username string) (*instagram.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !f.accounts[username] {
		return nil, &instagram.APIError{Code: 110, Message: "Invalid user id"}
	}
	return &instagram.Account{ID: "1"}, nil
}

func TestVerify(t *testing.T) {
	yt := &fakeYouTube{channels: map[string]string{"@NASA": "UC1"}}
	ig := &fakeInstagram{accounts: map[string]bool{"nasa": true}}
	v := New(yt, ig, newTestLogger())

	tests := []struct {
		name     string
		platform model.Platform
		handle   string
		want     bool
		wantErr  error
	}{
		{"existing youtube handle", model.PlatformYouTube, "@NASA", true, nil},
		{"handle is trimmed", model.PlatformYouTube, "  @NASA ", true, nil},
		{"unknown youtube handle", model.PlatformYouTube, "@nobody", false, youtube.ErrChannelNotFound},
		{"existing instagram account", model.PlatformInstagram, "nasa", true, nil},
		{"empty handle", model.PlatformInstagram, "", false, ErrEmptyHandle},
		{"unknown platform", model.Platform("tiktok"), "nasa", false, ErrUnknownPlatform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Verify(context.Background(), tt.platform, tt.handle)
			if got.Verified != tt.want {
				t.Errorf("Verified = %v, want %v (err %v)", got.Verified, tt.want, got.Err)
			}
			if tt.wantErr != nil && !errors.Is(got.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", got.Err, tt.wantErr)
			}
			if tt.want && got.Err != nil {
				t.Errorf("verified result carries Err = %v", got.Err)
			}
		})
	}
}

func TestVerify_UnknownInstagramAccount(t *testing.T) {
	v := New(nil, &fakeInstagram{}, newTestLogger())

	got := v.Verify(context.Background(), model.PlatformInstagram, "ghost")
	if got.Verified {
		t.Fatal("Verified = true for an undiscoverable account")
	}
	var apiErr *instagram.APIError
	if !errors.As(got.Err, &apiErr) {
		t.Errorf("Err = %v, want *instagram.APIError", got.Err)
	}
}

func TestVerify_TransportErrorFailsClosed(t *testing.T) {
	yt := &fakeYouTube{err: errors.New("connection refused")}
	v := New(yt, nil, newTestLogger())

	got := v.Verify(context.Background(), model.PlatformYouTube, "@NASA")
	if got.Verified || got.Err == nil {
		t.Errorf("Verify() = %+v, want unverified with error", got)
	}
	if yt.calls != 1 {
		t.Errorf("lookup made %d times, want exactly 1 (no retries)", yt.calls)
	}
}

func TestVerify_MissingCredentials(t *testing.T) {
	v := New(nil, &fakeInstagram{err: instagram.ErrMissingCredentials}, newTestLogger())

	for _, p := range model.Platforms {
		got := v.Verify(context.Background(), p, "nasa")
		if got.Verified || !errors.Is(got.Err, ErrMissingCredentials) {
			t.Errorf("%s: Verify() = %+v, want ErrMissingCredentials", p, got)
		}
	}
}
