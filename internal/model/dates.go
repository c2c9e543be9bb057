package model

import (
	"strings"
	"time"
)

// dateLayouts are the accepted calendar date formats, tried in order.
// Day-first layouts come before month-first because vendor sheets in this
// domain are overwhelmingly day-first.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"2-1-2006",
	"2/1/2006",
	"2.1.2006",
	"02-01-06",
	"02/01/06",
	"02.01.06",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// ParseDate parses a calendar date from the formats that show up in vendor
// sheets (day-first, slash/dash/dot separated, two- or four-digit years).
// Returns false when the input is blank or unparseable.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatISO normalizes a date string to YYYY-MM-DD, or "" if unparseable.
func FormatISO(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}
