// Package model defines the data structures used throughout the application.
package model

import "time"

// Account is a registered user of the service.
//
// The username is the primary key: competitor entries reference it and
// session tokens carry it as their subject. PasswordHash is a bcrypt hash and
// never leaves the server (json:"-").
//
// LastSummaryAt is nil until the first summary cycle completes. The
// re-notification sweep only considers accounts where it is set.
type Account struct {
	Username        string     `json:"username"`
	PasswordHash    string     `json:"-"`
	YouTubeHandle   string     `json:"youtubeHandle,omitempty"`
	InstagramHandle string     `json:"instagramHandle,omitempty"`
	Email           string     `json:"email"`
	LastSummaryAt   *time.Time `json:"lastSummaryAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
