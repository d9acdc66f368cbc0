package domain

import (
	"strings"
	"time"
)

// DateLayout calendar date used for every audit date parameter.
const DateLayout = "2006-01-02"

// ParseAuditDate accepts YYYY-MM-DD or RFC 3339 and returns UTC midnight of the
// calendar date. RFC 3339 values are reduced to their UTC calendar date.
func ParseAuditDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, InvalidRequestf("date is required")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, InvalidRequestf("date %q must be YYYY-MM-DD", s)
	}
	return StartOfUTCDay(t), nil
}

// StartOfUTCDay 00:00:00 UTC of t's UTC calendar date.
func StartOfUTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfUTCDay 23:59:59.999 UTC of t's UTC calendar date, regardless of host timezone.
func EndOfUTCDay(t time.Time) time.Time {
	return StartOfUTCDay(t).Add(24*time.Hour - time.Millisecond)
}

// PrevUTCDay UTC midnight of the calendar day before t.
func PrevUTCDay(t time.Time) time.Time {
	return StartOfUTCDay(t).AddDate(0, 0, -1)
}

// StaleDays whole calendar days between the capture's UTC date and the requested date.
func StaleDays(requested, capturedAt time.Time) int {
	diff := StartOfUTCDay(requested).Sub(StartOfUTCDay(capturedAt))
	return int(diff.Hours() / 24)
}

// FormatDate YYYY-MM-DD of t in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
