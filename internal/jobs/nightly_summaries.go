// Package jobs holds scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"whatido/internal/services"
	"whatido/internal/timeutil"
)

// NightlySummaries pre-generates the day's summaries shortly after the
// cutoff hour. Generation is idempotent, so users who already viewed
// their summary are unaffected.
type NightlySummaries struct {
	summaries  *services.SummaryService
	scheduler  gocron.Scheduler
	cutoffHour int
}

// NewNightlySummaries creates the nightly pre-generation job
func NewNightlySummaries(summaries *services.SummaryService, cutoffHour int) (*NightlySummaries, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &NightlySummaries{
		summaries:  summaries,
		scheduler:  scheduler,
		cutoffHour: cutoffHour,
	}, nil
}

// Start schedules the job five minutes after the cutoff hour each day
func (j *NightlySummaries) Start() error {
	_, err := j.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(j.cutoffHour), 5, 0),
		)),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			j.Run(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule nightly summaries: %w", err)
	}

	j.scheduler.Start()
	log.Printf("⏰ Nightly summary job scheduled for %02d:05", j.cutoffHour)
	return nil
}

// Stop shuts the scheduler down
func (j *NightlySummaries) Stop() error {
	return j.scheduler.Shutdown()
}

// Run generates today's summary for every user who posted today.
// Failures are logged per user and do not stop the sweep.
func (j *NightlySummaries) Run(ctx context.Context) {
	date := timeutil.DateKey(time.Now())

	users, err := j.summaries.UsersWithPostsOn(ctx, date)
	if err != nil {
		log.Printf("⚠️ Nightly summaries: failed to list users: %v", err)
		return
	}

	generated := 0
	for _, userID := range users {
		if err := j.summaries.Generate(ctx, userID, date); err != nil {
			log.Printf("⚠️ Nightly summaries: user %s: %v", userID, err)
			continue
		}
		generated++
	}

	log.Printf("✅ Nightly summaries: %d/%d users done for %s", generated, len(users), date)
}
