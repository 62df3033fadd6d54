package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"whatido/internal/database"
	"whatido/internal/models"
)

// Username editor errors
var (
	ErrUsernameEmpty     = errors.New("username cannot be empty")
	ErrUsernameCharset   = errors.New("username may only contain 0-9, a-z, A-Z, _ and .")
	ErrUsernameUnchanged = errors.New("username is unchanged")
	ErrUsernameCooldown  = errors.New("username can only be changed once per day")
	ErrProfileNotFound   = errors.New("profile not found")
)

var usernamePattern = regexp.MustCompile(`^[0-9a-zA-Z_.]+$`)

// ProfileService handles the user-editable profile
type ProfileService struct {
	db       *database.DB
	cooldown time.Duration // minimum gap between username changes

	now func() time.Time
}

// NewProfileService creates a new profile service
func NewProfileService(db *database.DB, cooldown time.Duration) *ProfileService {
	return &ProfileService{
		db:       db,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// SetClock overrides the service clock for testing
func (s *ProfileService) SetClock(now func() time.Time) {
	s.now = now
}

// Get returns the profile for a user
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	var updatedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, updated_at FROM profiles WHERE id = ?
	`, userID).Scan(&profile.ID, &profile.Username, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if updatedAt.Valid {
		profile.UpdatedAt = &updatedAt.Time
	}
	return &profile, nil
}

// UpdateUsername validates and stores a new username. The candidate is
// trimmed, must be non-empty, must match the allowed character class,
// must differ from the current value, and is rejected while the last
// recorded update is younger than the cooldown window.
func (s *ProfileService) UpdateUsername(ctx context.Context, userID, candidate string) (*models.Profile, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, ErrUsernameEmpty
	}
	if !usernamePattern.MatchString(candidate) {
		return nil, ErrUsernameCharset
	}

	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if candidate == current.Username {
		return nil, ErrUsernameUnchanged
	}

	now := s.now()
	if current.UpdatedAt != nil && now.Sub(*current.UpdatedAt) < s.cooldown {
		return nil, ErrUsernameCooldown
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE profiles SET username = ?, updated_at = ? WHERE id = ?
	`, candidate, now.UTC(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update username: %w", err)
	}

	updated := now.UTC()
	return &models.Profile{ID: userID, Username: candidate, UpdatedAt: &updated}, nil
}
