package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"whatido/internal/database"
	"whatido/internal/logging"
	"whatido/internal/models"
	"whatido/internal/timeutil"
)

// Completer is the single LLM operation the summary service needs
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NoPostsMessage is shown for a date without any posts. Nothing is
// persisted in that case.
const NoPostsMessage = "No posts for this day."

// FallbackMessage replaces the summary when the LLM call fails
const FallbackMessage = "Summary generation failed. Please try again later."

// SummaryService decides whether a summary may be generated for a
// date, serves stored summaries idempotently, and generates missing
// ones through the LLM.
type SummaryService struct {
	db         *database.DB
	llm        Completer
	cutoffHour int // local hour from which same-day summaries unlock
	metrics    *Metrics

	// Memory cache in front of storage, keyed by user|date
	memory *cache.Cache

	// One in-flight generation per (user, date); duplicate toggles
	// wait instead of double-generating
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// NewSummaryService creates a new summary service
func NewSummaryService(db *database.DB, llm Completer, cutoffHour int, metrics *Metrics) *SummaryService {
	return &SummaryService{
		db:         db,
		llm:        llm,
		cutoffHour: cutoffHour,
		metrics:    metrics,
		memory:     cache.New(1*time.Hour, 15*time.Minute),
		locks:      make(map[string]*sync.Mutex),
		now:        time.Now,
	}
}

// SetClock overrides the service clock for testing
func (s *SummaryService) SetClock(now func() time.Time) {
	s.now = now
}

// NotYetAvailableMessage is shown when the cutoff gate rejects a date
func (s *SummaryService) NotYetAvailableMessage() string {
	return fmt.Sprintf("Daily summaries can be generated after %02d:00.", s.cutoffHour)
}

// Available reports whether summary generation is permitted for the
// date: any past date, or today from the cutoff hour onward.
func (s *SummaryService) Available(date string) bool {
	now := s.now()
	today := timeutil.DateKey(now)

	if date < today {
		return true
	}
	return date == today && now.Hour() >= s.cutoffHour
}

// GetOrGenerate returns the summary for (user, date). Stored summaries
// are returned as-is; a missing summary is generated from the date's
// posts and persisted. Gate rejections and empty dates yield fixed
// messages without contacting storage or the LLM.
func (s *SummaryService) GetOrGenerate(ctx context.Context, userID, date string) (*models.SummaryResponse, error) {
	if _, err := timeutil.ParseDate(date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	if !s.Available(date) {
		return &models.SummaryResponse{Date: date, Content: s.NotYetAvailableMessage()}, nil
	}

	key := userID + "|" + date

	if cached, found := s.memory.Get(key); found {
		if s.metrics != nil {
			s.metrics.SummaryCacheHits.WithLabelValues("memory").Inc()
		}
		return &models.SummaryResponse{Date: date, Content: cached.(string), Generated: true}, nil
	}

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the lock: a concurrent request may have finished
	if cached, found := s.memory.Get(key); found {
		if s.metrics != nil {
			s.metrics.SummaryCacheHits.WithLabelValues("memory").Inc()
		}
		return &models.SummaryResponse{Date: date, Content: cached.(string), Generated: true}, nil
	}

	stored, err := s.lookup(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		if s.metrics != nil {
			s.metrics.SummaryCacheHits.WithLabelValues("storage").Inc()
		}
		s.memory.Set(key, stored.Content, cache.DefaultExpiration)
		return &models.SummaryResponse{Date: date, Content: stored.Content, Generated: true}, nil
	}

	posts, err := s.postsForDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return &models.SummaryResponse{Date: date, Content: NoPostsMessage}, nil
	}

	logger := logging.WithSummary(logging.WithUser(userID), date)
	start := s.now()

	text, err := s.llm.Complete(ctx, buildPrompt(date, posts))
	if err != nil {
		logger.Warn("summary generation failed", "error", err)
		if s.metrics != nil {
			s.metrics.SummaryErrors.Inc()
		}
		return &models.SummaryResponse{Date: date, Content: FallbackMessage}, nil
	}

	if s.metrics != nil {
		s.metrics.SummariesGenerated.Inc()
		s.metrics.SummaryLatency.Observe(time.Since(start).Seconds())
	}

	if err := s.store(ctx, userID, date, text); err != nil {
		// The generated text is still worth returning
		logger.Warn("failed to persist summary", "error", err)
	}

	s.memory.Set(key, text, cache.DefaultExpiration)
	logger.Info("summary generated", "posts", len(posts))

	return &models.SummaryResponse{Date: date, Content: text, Generated: true}, nil
}

// Generate pre-generates the summary for (user, date) if it does not
// exist yet. Used by the nightly job; shares the gate and idempotence
// of GetOrGenerate.
func (s *SummaryService) Generate(ctx context.Context, userID, date string) error {
	resp, err := s.GetOrGenerate(ctx, userID, date)
	if err != nil {
		return err
	}
	if resp.Content == FallbackMessage {
		return fmt.Errorf("summary generation failed for %s", date)
	}
	return nil
}

// UsersWithPostsOn returns the IDs of users who posted on the date.
// Used by the nightly pre-generation job.
func (s *SummaryService) UsersWithPostsOn(ctx context.Context, date string) ([]string, error) {
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	dayEnd := day.AddDate(0, 0, 1)

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM posts
		WHERE created_at >= ? AND created_at < ?
	`, day, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list posting users: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (s *SummaryService) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func (s *SummaryService) lookup(ctx context.Context, userID, date string) (*models.Summary, error) {
	var summary models.Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT date, content, user_id FROM summaries
		WHERE date = ? AND user_id = ?
	`, date, userID).Scan(&summary.Date, &summary.Content, &summary.UserID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up summary: %w", err)
	}
	return &summary, nil
}

func (s *SummaryService) store(ctx context.Context, userID, date, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (date, content, user_id, created_at)
		VALUES (?, ?, ?, ?)
	`, date, content, userID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}
	return nil
}

func (s *SummaryService) postsForDate(ctx context.Context, userID, date string) ([]models.Post, error) {
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, err
	}
	dayEnd := day.AddDate(0, 0, 1)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, created_at, user_id FROM posts
		WHERE user_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at ASC
	`, userID, day, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts for date: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.Content, &post.CreatedAt, &post.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}

// buildPrompt embeds the date and the bulleted post contents
func buildPrompt(date string, posts []models.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an objective narrator. Summarize the following posts into a short description of the user's day: %s.
- Write from a third-person perspective.
- Maximum 100 words.
- Use clear, simple sentences.
- Preserve any unique terms, names, or technical phrases exactly as they appear (do not translate or replace them).
- Respond in the user's language.

Posts:
`, date)
	for _, post := range posts {
		fmt.Fprintf(&b, "- %s\n", post.Content)
	}
	return b.String()
}
