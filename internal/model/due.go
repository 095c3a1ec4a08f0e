package model

import (
	"strings"
	"time"
)

// DueLayouts are the accepted due date formats, most specific first.
var DueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDue parses a due value in the local time zone
func ParseDue(s string) (time.Time, error) {
	t, _, err := ParseDueLayout(s)
	return t, err
}

// ParseDueLayout parses a due value and also returns the layout that matched,
// so callers can write a derived date back in the same shape.
func ParseDueLayout(s string) (time.Time, string, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range DueLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, layout, nil
		}
		lastErr = err
	}
	return time.Time{}, "", &DateParseError{Value: s, Err: lastErr}
}
