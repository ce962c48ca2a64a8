package dataset

import (
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	DateLayout,
}

// DateLayout is the date-only layout.
const DateLayout = "2006-01-02"

// SyntheticLayout formats generated timestamps.
const SyntheticLayout = "2006-01-02 15:04:05"

// ParseTimestamp parses the timestamp formats seen in uploads. Values without a
// zone are read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsDateOnly reports whether raw is a bare YYYY-MM-DD date.
func IsDateOnly(raw string) bool {
	_, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	return err == nil
}
