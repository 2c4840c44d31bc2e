// Package fetcher pulls recent posts and videos for a handle and keeps only
// those published inside the recency window.
package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sakif/socialpulse/internal/metrics"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/platform/instagram"
	"github.com/sakif/socialpulse/internal/platform/youtube"
)

// DefaultWindow is the recency window when none is configured.
const DefaultWindow = 48 * time.Hour

// DefaultPageSize is how many playlist items are requested per YouTube handle.
const DefaultPageSize = 50

var (
	// ErrUnknownPlatform is returned for platforms the fetcher cannot read.
	ErrUnknownPlatform = errors.New("fetcher: unknown platform")
	// ErrNotConfigured means the platform client is missing.
	ErrNotConfigured = errors.New("fetcher: platform client not configured")
)

// UploadsSource reads a YouTube channel's uploads.
type UploadsSource interface {
	UploadsPlaylistID(ctx context.Context, handle string) (string, error)
	RecentUploads(ctx context.Context, playlistID string, max int) ([]youtube.Video, error)
}

// MediaSource reads an Instagram account's recent media.
type MediaSource interface {
	BusinessDiscovery(ctx context.Context, username string) (*instagram.Account, error)
}

// FetchResult holds the in-window items for one handle. Err is set when the
// fetch failed; Items is then empty.
type FetchResult struct {
	Platform model.Platform
	Handle   string
	Items    []model.ContentItem
	Err      error
}

// Options configures a Fetcher.
type Options struct {
	Window   time.Duration
	PageSize int
	// Now is the clock; tests pin it.
	Now func() time.Time
}

// Fetcher fetches content for a handle.
type Fetcher struct {
	youtube   UploadsSource
	instagram MediaSource
	window    time.Duration
	pageSize  int
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Fetcher. Zero options take the defaults.
func New(yt UploadsSource, ig MediaSource, opts Options, logger *slog.Logger) *Fetcher {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Fetcher{
		youtube:   yt,
		instagram: ig,
		window:    opts.Window,
		pageSize:  opts.PageSize,
		now:       opts.Now,
		logger:    logger,
	}
}

// Window returns the configured recency window.
func (f *Fetcher) Window() time.Duration {
	return f.window
}

// Fetch returns the handle's items published in [now-window, now].
// It never returns a Go error; failures are reported in FetchResult.Err.
func (f *Fetcher) Fetch(ctx context.Context, platform model.Platform, handle string) FetchResult {
	handle = strings.TrimSpace(handle)
	result := FetchResult{Platform: platform, Handle: handle}

	var (
		items []model.ContentItem
		err   error
	)
	switch platform {
	case model.PlatformYouTube:
		items, err = f.fetchYouTube(ctx, handle)
	case model.PlatformInstagram:
		items, err = f.fetchInstagram(ctx, handle)
	default:
		err = ErrUnknownPlatform
	}

	if err != nil {
		result.Err = err
		f.logger.Warn("fetch failed",
			slog.String("platform", string(platform)),
			slog.String("handle", handle),
			slog.String("error", err.Error()),
		)
	} else {
		result.Items = FilterWindow(items, f.now(), f.window)
	}

	metrics.RecordFetch(string(platform), len(result.Items), result.Err)
	return result
}

// fetchYouTube reads one page of the uploads playlist. Every item on the page
// is passed to the window filter, so a playlist that is not strictly
// newest-first still yields all its recent videos on that page.
func (f *Fetcher) fetchYouTube(ctx context.Context, handle string) ([]model.ContentItem, error) {
	if f.youtube == nil {
		return nil, ErrNotConfigured
	}
	playlistID, err := f.youtube.UploadsPlaylistID(ctx, handle)
	if err != nil {
		return nil, err
	}
	videos, err := f.youtube.RecentUploads(ctx, playlistID, f.pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]model.ContentItem, 0, len(videos))
	for _, v := range videos {
		items = append(items, model.ContentItem{
			Platform:    model.PlatformYouTube,
			Handle:      handle,
			Title:       v.Title,
			Text:        v.Description,
			PublishedAt: v.PublishedAt,
		})
	}
	return items, nil
}

func (f *Fetcher) fetchInstagram(ctx context.Context, handle string) ([]model.ContentItem, error) {
	if f.instagram == nil {
		return nil, ErrNotConfigured
	}
	acct, err := f.instagram.BusinessDiscovery(ctx, handle)
	if err != nil {
		return nil, err
	}

	items := make([]model.ContentItem, 0, len(acct.Media))
	for _, m := range acct.Media {
		published, err := instagram.ParseTimestamp(m.Timestamp)
		if err != nil {
			f.logger.Warn("skipping media with unparsable timestamp",
				slog.String("handle", handle),
				slog.String("media_id", m.ID),
				slog.String("timestamp", m.Timestamp),
			)
			continue
		}
		items = append(items, model.ContentItem{
			Platform:    model.PlatformInstagram,
			Handle:      handle,
			Text:        m.Caption,
			Likes:       m.LikeCount,
			PublishedAt: published,
		})
	}
	return items, nil
}

// FilterWindow keeps items with now-window <= PublishedAt <= now, newest
// first. Future-dated items are dropped. The input slice is not modified.
func FilterWindow(items []model.ContentItem, now time.Time, window time.Duration) []model.ContentItem {
	cutoff := now.Add(-window)
	kept := make([]model.ContentItem, 0, len(items))
	for _, it := range items {
		if it.PublishedAt.Before(cutoff) || it.PublishedAt.After(now) {
			continue
		}
		kept = append(kept, it)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].PublishedAt.After(kept[j].PublishedAt)
	})
	return kept
}
