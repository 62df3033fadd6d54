package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"whatido/internal/database"
	"whatido/internal/models"
	"whatido/internal/timeutil"
)

// Submission errors surfaced to the composer
var (
	ErrEmptyContent  = errors.New("post content cannot be empty")
	ErrQuotaExceeded = errors.New("daily post limit reached")
)

// PostService handles post creation and the date-grouped feed
type PostService struct {
	db      *database.DB
	limit   int // posts per user per calendar day
	metrics *Metrics

	now func() time.Time
}

// NewPostService creates a new post service.
// dailyLimit is the quota of posts per user per calendar day.
func NewPostService(db *database.DB, dailyLimit int, metrics *Metrics) *PostService {
	return &PostService{
		db:      db,
		limit:   dailyLimit,
		metrics: metrics,
		now:     time.Now,
	}
}

// SetClock overrides the service clock for testing
func (s *PostService) SetClock(now func() time.Time) {
	s.now = now
}

// DailyLimit returns the configured quota
func (s *PostService) DailyLimit() int {
	return s.limit
}

// Create stores a new post for the user. The content is trimmed;
// empty submissions and submissions past the daily quota are rejected.
// The quota check and the insert share one transaction so concurrent
// submissions cannot overshoot the limit.
func (s *PostService) Create(ctx context.Context, userID, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		if s.metrics != nil {
			s.metrics.PostsRejected.WithLabelValues("empty").Inc()
		}
		return nil, ErrEmptyContent
	}

	now := s.now()
	dayStart, dayEnd := dayBounds(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts
		WHERE user_id = ? AND created_at >= ? AND created_at < ?
	`, userID, dayStart, dayEnd).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's posts: %w", err)
	}

	if count >= s.limit {
		if s.metrics != nil {
			s.metrics.PostsRejected.WithLabelValues("quota").Inc()
		}
		return nil, ErrQuotaExceeded
	}

	post := &models.Post{
		ID:          uuid.New().String(),
		Content:     content,
		CreatedAt:   now,
		DisplayTime: timeutil.FormatDisplay(now),
		UserID:      userID,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO posts (id, content, created_at, user_id)
		VALUES (?, ?, ?, ?)
	`, post.ID, post.Content, post.CreatedAt, post.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit post: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PostsCreated.Inc()
	}
	return post, nil
}

// ListByUser returns all posts owned by the user, newest first
func (s *PostService) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.content, p.created_at, p.user_id, pr.username
		FROM posts p
		JOIN profiles pr ON pr.id = p.user_id
		WHERE p.user_id = ?
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ListByDate returns the user's posts for one calendar date, newest first
func (s *PostService) ListByDate(ctx context.Context, userID, date string) ([]models.Post, error) {
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	dayEnd := day.AddDate(0, 0, 1)

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.content, p.created_at, p.user_id, pr.username
		FROM posts p
		JOIN profiles pr ON pr.id = p.user_id
		WHERE p.user_id = ? AND p.created_at >= ? AND p.created_at < ?
		ORDER BY p.created_at DESC
	`, userID, day, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts for date: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// Feed returns the user's posts grouped by calendar date, most recent
// date first, together with the remaining daily quota.
func (s *PostService) Feed(ctx context.Context, userID string) (*models.FeedResponse, error) {
	posts, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := timeutil.DateKey(s.now())
	todayCount := 0

	feed := &models.FeedResponse{
		Days:  []models.DayGroup{},
		Limit: s.limit,
	}

	for _, post := range posts {
		date := timeutil.DateKey(post.CreatedAt)
		if date == today {
			todayCount++
		}

		if n := len(feed.Days); n > 0 && feed.Days[n-1].Date == date {
			feed.Days[n-1].Posts = append(feed.Days[n-1].Posts, post)
		} else {
			feed.Days = append(feed.Days, models.DayGroup{Date: date, Posts: []models.Post{post}})
		}
	}

	feed.PostsLeft = s.limit - todayCount
	if feed.PostsLeft < 0 {
		feed.PostsLeft = 0
	}
	return feed, nil
}

func scanPosts(rows *sql.Rows) ([]models.Post, error) {
	posts := []models.Post{}
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.Content, &post.CreatedAt, &post.UserID, &post.Username); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		post.DisplayTime = timeutil.FormatDisplay(post.CreatedAt.Local())
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}

// dayBounds returns the local [start, end) interval of t's calendar day
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
