package models

import "time"

// Video is one search candidate plus the evaluation attached to it.
type Video struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ChannelTitle    string    `json:"channel_title"`
	PublishedAt     time.Time `json:"published_at"`
	Duration        string    `json:"duration"`
	DurationSeconds int       `json:"duration_seconds"`
	URL             string    `json:"url"`
	Evaluation      string    `json:"evaluation,omitempty"`
}

// WatchURL returns the canonical watch link for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
