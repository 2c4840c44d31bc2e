package model

import "time"

// CompetitorEntry is one tracked competitor in a user's list.
//
// ID is a stable identifier (xid) so a single row can be verified or deleted
// without rewriting the rest of the list. Position only orders the list.
type CompetitorEntry struct {
	ID        string    `json:"id"`
	Username  string    `json:"-"`
	Position  int       `json:"position"`
	Name      string    `json:"name"`
	YouTube   string    `json:"youtube"`
	Instagram string    `json:"instagram"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Actionable reports whether the entry takes part in a summary cycle:
// it must be verified and carry at least one platform handle.
func (e CompetitorEntry) Actionable() bool {
	return e.Verified && (e.YouTube != "" || e.Instagram != "")
}

// Handle returns the entry's handle for the given platform.
func (e CompetitorEntry) Handle(p Platform) string {
	switch p {
	case PlatformYouTube:
		return e.YouTube
	case PlatformInstagram:
		return e.Instagram
	}
	return ""
}
