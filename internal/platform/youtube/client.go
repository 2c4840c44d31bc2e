// Package youtube is a minimal YouTube Data API v3 client covering the three
// calls Social Pulse needs: resolve a handle to a channel, find the channel's
// uploads playlist, and list the newest items of that playlist.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultBaseURL is the public Data API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// uploadsCacheSize bounds the handle → uploads playlist cache. A channel's
// uploads playlist never changes, so entries are never invalidated.
const uploadsCacheSize = 512

var (
	// ErrMissingAPIKey is returned by every call when no developer key is configured.
	ErrMissingAPIKey = errors.New("youtube: api key not configured")
	// ErrChannelNotFound means the handle does not resolve to a channel.
	ErrChannelNotFound = errors.New("youtube: channel not found")
	// ErrNoUploadsPlaylist means the channel exposes no uploads playlist.
	ErrNoUploadsPlaylist = errors.New("youtube: channel has no uploads playlist")
)

// APIError is the error envelope returned by Google APIs.
type APIError struct {
	Status  int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube: api error %d: %s", e.Status, e.Message)
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// Video is one item of an uploads playlist.
type Video struct {
	ID          string
	Title       string
	Description string
	PublishedAt time.Time
}

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the YouTube Data API.
type Client struct {
	http    *resty.Client
	apiKey  string
	uploads *lru.Cache[string, string]
	logger  *slog.Logger
}

// New creates a Client. An empty APIKey is allowed; calls then fail with
// ErrMissingAPIKey so the rest of the app can still start.
func New(opts Options, logger *slog.Logger) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	// lru.New only fails for a non-positive size
	cache, _ := lru.New[string, string](uploadsCacheSize)

	return &Client{
		http:    httpClient,
		apiKey:  opts.APIKey,
		uploads: cache,
		logger:  logger,
	}
}

type channelListResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemListResponse struct {
	Items []struct {
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoID          string `json:"videoId"`
			VideoPublishedAt string `json:"videoPublishedAt"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// ChannelIDForHandle resolves a handle such as "@NASA" to its channel id.
// It returns ErrChannelNotFound when the API answers with no items.
func (c *Client) ChannelIDForHandle(ctx context.Context, handle string) (string, error) {
	var out channelListResponse
	if err := c.get(ctx, "/channels", map[string]string{
		"part":      "id",
		"forHandle": handle,
	}, &out); err != nil {
		return "", err
	}
	if len(out.Items) == 0 || out.Items[0].ID == "" {
		return "", ErrChannelNotFound
	}
	return out.Items[0].ID, nil
}

// UploadsPlaylistID returns the uploads playlist of the handle's channel.
// Results are cached per handle for the life of the Client.
func (c *Client) UploadsPlaylistID(ctx context.Context, handle string) (string, error) {
	if id, ok := c.uploads.Get(handle); ok {
		return id, nil
	}

	channelID, err := c.ChannelIDForHandle(ctx, handle)
	if err != nil {
		return "", err
	}

	var out channelListResponse
	if err := c.get(ctx, "/channels", map[string]string{
		"part": "contentDetails",
		"id":   channelID,
	}, &out); err != nil {
		return "", err
	}
	if len(out.Items) == 0 {
		return "", ErrChannelNotFound
	}
	uploads := out.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return "", ErrNoUploadsPlaylist
	}

	c.uploads.Add(handle, uploads)
	return uploads, nil
}

// RecentUploads returns up to max items of the playlist, newest first as the
// API orders them. Items whose publish time cannot be parsed are skipped.
func (c *Client) RecentUploads(ctx context.Context, playlistID string, max int) ([]Video, error) {
	var out playlistItemListResponse
	if err := c.get(ctx, "/playlistItems", map[string]string{
		"part":       "snippet,contentDetails",
		"playlistId": playlistID,
		"maxResults": fmt.Sprint(max),
	}, &out); err != nil {
		return nil, err
	}

	videos := make([]Video, 0, len(out.Items))
	for _, item := range out.Items {
		// videoPublishedAt is the public release time; snippet.publishedAt is
		// when the item joined the playlist and is the fallback.
		raw := item.ContentDetails.VideoPublishedAt
		if raw == "" {
			raw = item.Snippet.PublishedAt
		}
		published, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.logger.Warn("skipping video with unparsable publish time",
				slog.String("video_id", item.ContentDetails.VideoID),
				slog.String("published_at", raw),
			)
			continue
		}
		videos = append(videos, Video{
			ID:          item.ContentDetails.VideoID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: published.UTC(),
		})
	}
	return videos, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	var apiErr errorEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("key", c.apiKey).
		SetResult(out).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return fmt.Errorf("youtube: GET %s: %w", path, err)
	}
	if resp.IsError() {
		if apiErr.Error != nil {
			return apiErr.Error
		}
		return &APIError{Status: resp.StatusCode(), Message: resp.Status()}
	}
	return nil
}
