package models

import "time"

// Summary is AI-generated prose condensing one user's posts for one
// calendar date. At most one summary exists per (date, user).
type Summary struct {
	Date      string    `json:"date"` // YYYY-MM-DD
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SummaryResponse is the response for the summary endpoint.
// Generated is false when the content is a fixed gate message
// ("not yet available", "no posts") rather than stored prose.
type SummaryResponse struct {
	Date      string `json:"date"`
	Content   string `json:"content"`
	Generated bool   `json:"generated"`
}
