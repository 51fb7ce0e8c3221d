package audio

import (
	"fmt"
	"time"
)

// Binary size units used in log output.
const (
	kibibyte = 1 << 10
	mebibyte = 1 << 20
	gibibyte = 1 << 30
)

var sizeUnits = []struct {
	suffix string
	bytes  int64
}{
	{suffix: "GB", bytes: gibibyte},
	{suffix: "MB", bytes: mebibyte},
	{suffix: "KB", bytes: kibibyte},
}

// FormatDuration renders a playback length for logs: "45.2s", "5m 30.5s", or "1h 15m".
func FormatDuration(duration time.Duration) string {
	switch {
	case duration < time.Minute:
		return fmt.Sprintf("%.1fs", duration.Seconds())
	case duration < time.Hour:
		minutes := duration / time.Minute
		rest := duration - minutes*time.Minute

		return fmt.Sprintf("%dm %.1fs", int(minutes), rest.Seconds())
	default:
		hours := duration / time.Hour
		minutes := (duration - hours*time.Hour) / time.Minute

		return fmt.Sprintf("%dh %dm", int(hours), int(minutes))
	}
}

// FormatFileSize renders a byte count for logs, e.g. "512 B" or "1.5 KB".
func FormatFileSize(size int64) string {
	for _, unit := range sizeUnits {
		if size >= unit.bytes {
			return fmt.Sprintf("%.1f %s", float64(size)/float64(unit.bytes), unit.suffix)
		}
	}

	return fmt.Sprintf("%d B", size)
}
