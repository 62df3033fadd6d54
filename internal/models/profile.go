package models

import "time"

// Profile holds the user-editable display identity
type Profile struct {
	ID        string     `json:"id"` // Same as the owning user ID
	Username  string     `json:"username"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// UpdateProfileRequest is the request body for the username editor
type UpdateProfileRequest struct {
	Username string `json:"username"`
}
