// Package timeutil holds the display formatting and calendar-date
// bucketing helpers shared by the feed and summary endpoints.
package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date key format (ISO date portion)
const DateLayout = "2006-01-02"

// DateKey returns the calendar date of t, used to bucket posts and to
// key summaries.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date key in the local time zone
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// FormatDisplay renders a timestamp as "M/D HH:MM:SS" (24-hour clock)
// for post cards.
func FormatDisplay(t time.Time) string {
	return fmt.Sprintf("%d/%d %02d:%02d:%02d",
		int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}
