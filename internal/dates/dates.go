// Package dates centralizes parsing of the heterogeneous date formats the
// pipeline encounters: ISO timestamps from JSON-LD, bare dates from model
// output, and loose formats from page text.
package dates

import (
	"strings"
	"time"
)

// genericLayouts are tried in order after the ISO fast paths fail.
var genericLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"02 Jan 2006",
	"01/02/2006",
	"2006/01/02",
}

// Parse attempts to turn a date string into a time.Time.
// Full ISO timestamps are accepted as-is, bare YYYY-MM-DD dates are anchored
// to local midnight, and a fixed set of generic layouts is tried last.
// Returns nil when nothing produces a valid instant; it never errors.
func Parse(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}

	if len(s) == 10 {
		if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
			return &t
		}
	}

	for _, layout := range genericLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}

	return nil
}

// ValidStart reports whether a candidate startDate from the extractor is
// usable: it must begin with a real YYYY-MM-DD calendar date.
func ValidStart(s string) bool {
	if len(s) < 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s[:10])
	return err == nil
}
