// Package dates holds calendar-date helpers. A calendar date is a time.Time
// at midnight UTC; time-of-day and zone never take part in comparisons
package dates

import (
	"strconv"
	"strings"
	"time"
)

const (
	layoutDate     = "2006-01-02"
	layoutDateTime = "2006-01-02 15:04:05"
)

// Day normalizes t to its calendar date at midnight UTC
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar date of now() in its own location
func Today(now func() time.Time) time.Time {
	if now == nil {
		now = time.Now
	}
	return Day(now())
}

// DaysBetween returns whole calendar days from -> to (negative when to is earlier)
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// Format renders a calendar date as YYYY-MM-DD; nil renders empty
func Format(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(layoutDate)
}

// Parse reads a stored date. It accepts YYYY-MM-DD, "YYYY-MM-DD HH:MM:SS",
// RFC3339 and all-digit epoch milliseconds. ok is false for blank or
// unparseable input; the caller picks the fallback
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if isDigits(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return Day(time.UnixMilli(ms).UTC()), true
	}

	if len(s) >= 19 {
		if t, err := time.Parse(layoutDateTime, strings.Replace(s[:19], "T", " ", 1)); err == nil {
			return Day(t), true
		}
	}
	if len(s) >= 10 {
		if t, err := time.Parse(layoutDate, s[:10]); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}

// ParsePtr is Parse for nullable columns: nil when the value is absent or bad
func ParsePtr(s string) *time.Time {
	t, ok := Parse(s)
	if !ok {
		return nil
	}
	return &t
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
