package utils

import (
	"fmt"
	"strings"
	"time"
)

const (
	layoutDate      = "2006-01-02"
	layoutDateTime  = "2006-01-02 15:04:05"
	layoutFormInput = "2006-01-02T15:04"
)

// ParseDate parses YYYY-MM-DD in local timezone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), time.Local)
}

// ParseDateInput accepts what admin forms send: a date, a datetime or an
// HTML datetime-local value.
func ParseDateInput(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{layoutDateTime, layoutFormInput, layoutDate} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// FormatDateTime formats time to "YYYY-MM-DD HH:MM:SS" in local timezone.
// Stored and bound datetimes use this text form in every dialect.
func FormatDateTime(t time.Time) string {
	return t.In(time.Local).Format(layoutDateTime)
}
