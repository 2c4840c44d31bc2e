package model

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies a social platform the service can track.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
)

// Platforms lists every supported platform in report order.
var Platforms = []Platform{PlatformInstagram, PlatformYouTube}

// ParsePlatform accepts "youtube"/"instagram" in any case.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformYouTube, PlatformInstagram:
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// DisplayName is the label used in reports, e.g. "YouTube".
func (p Platform) DisplayName() string {
	switch p {
	case PlatformYouTube:
		return "YouTube"
	case PlatformInstagram:
		return "Instagram"
	}
	return string(p)
}

// ContentItem is one fetched post or video. It is never persisted.
//
// For Instagram, Text is the caption and Likes the like count.
// For YouTube, Title and Text hold the video title and description; Likes is nil.
type ContentItem struct {
	Platform    Platform
	Handle      string
	Title       string
	Text        string
	Likes       *int64
	PublishedAt time.Time
}

// Trend is the oracle's summary for one platform.
type Trend struct {
	Platform       Platform
	Trend          string
	Recommendation string
}

// TrendReport is the assembled report emailed to the user.
type TrendReport struct {
	Username    string
	Sections    map[Platform]Trend
	HTML        string
	GeneratedAt time.Time
}
