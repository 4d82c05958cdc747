package models

import "time"

// Show is a subscribed podcast. The feed URL is the natural key; the
// numeric ID is a per-install surrogate assigned by the store.
type Show struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	FeedURL     string    `json:"feed_url"`
	ImageURL    string    `json:"image_url"`
	Description string    `json:"description"`
	Genre       string    `json:"genre"`
	Favorite    bool      `json:"favorite"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Entry is one episode belonging to a Show, unique per (ShowID, GUID).
type Entry struct {
	ID            int64      `json:"id"`
	ShowID        int64      `json:"show_id"`
	Title         string     `json:"title"`
	GUID          string     `json:"guid"`
	PubDate       time.Time  `json:"pub_date"`
	AudioURL      string     `json:"audio_url"`
	ImageURL      string     `json:"image_url"`
	EpisodeNumber *int       `json:"episode_number,omitempty"`
	DurationMS    *int64     `json:"duration_ms,omitempty"`
	Description   string     `json:"description"`
	Listened      bool       `json:"listened"`
	ListenedAt    *time.Time `json:"listened_at,omitempty"`
	PositionMS    int64      `json:"position_ms"`
	LastPlayed    *time.Time `json:"last_played,omitempty"`
}

// ParsedShow holds channel-level feed metadata before reconciliation.
type ParsedShow struct {
	Title       string
	ImageURL    string
	Description string
	Genre       string
}

// ParsedEntry is one feed item before reconciliation. An empty ImageURL
// means the show image is substituted when the entry is stored; a zero
// PubDate means the feed date was missing or unparseable.
type ParsedEntry struct {
	Title         string
	GUID          string
	PubDate       time.Time
	AudioURL      string
	ImageURL      string
	EpisodeNumber *int
	DurationMS    *int64
	Description   string
}

// SearchResult is a directory-sourced candidate show. It is never
// persisted; a result without a FeedURL needs a follow-up lookup by
// DirectoryID before it can be subscribed.
type SearchResult struct {
	DirectoryID int64  `json:"directory_id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	FeedURL     string `json:"feed_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	GenreID     int64  `json:"genre_id,omitempty"`
	GenreName   string `json:"genre_name,omitempty"`
}
