package printer

import (
	"time"

	"github.com/dustin/go-humanize"
)

// TimeAgo returns a human-readable relative time string.
// Examples: "30 seconds ago", "2 minutes ago", "5 minutes from now".
func TimeAgo(t time.Time) string {
	return humanize.Time(t)
}

// FormatTimestamp returns a formatted timestamp string in UTC.
// Format: "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatDuration returns the duration rounded to seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}
