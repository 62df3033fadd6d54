package models

import "time"

// Post is a single user-authored entry. Posts are immutable once
// created; there is no edit or delete path.
type Post struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	// DisplayTime is the pre-rendered "M/D HH:MM:SS" form of CreatedAt
	DisplayTime string `json:"display_time,omitempty"`
	UserID      string `json:"user_id"`
	Username    string `json:"username,omitempty"`
}

// CreatePostRequest is the request body for creating a post
type CreatePostRequest struct {
	Content string `json:"content"`
}

// DayGroup bundles the posts of one calendar date. Days are ordered
// most-recent first, matching the descending post fetch.
type DayGroup struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Posts []Post `json:"posts"`
}

// FeedResponse is the response for the feed endpoint
type FeedResponse struct {
	Days      []DayGroup `json:"days"`
	PostsLeft int        `json:"posts_left"` // Remaining daily quota
	Limit     int        `json:"limit"`
}
