package models

import (
	"fmt"
	"time"
)

// Interval is a time span within a single day. Start and End are minutes
// from midnight, so comparisons stay integer and time-zone free.
type Interval struct {
	Date  time.Time `json:"date"`
	Start int       `json:"start"`
	End   int       `json:"end"`
}

// Valid reports whether the interval has positive length.
func (i Interval) Valid() bool {
	return i.End > i.Start
}

// Overlaps reports whether two intervals conflict. Intervals on different
// days never overlap; touching endpoints (a.End == b.Start) do not conflict.
func Overlaps(a, b Interval) bool {
	if !SameDay(a.Date, b.Date) {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

// SameDay compares two timestamps by calendar day, ignoring the clock part.
func SameDay(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}

// ParseClock parses an "HH:MM" wall-clock string into minutes from midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes from midnight back to "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
