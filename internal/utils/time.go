package contextutils

import (
	"time"
)

// DateLayout is the wire format for calendar dates (YYYY-MM-DD)
const DateLayout = "2006-01-02"

// LoadLocationOrUTC resolves an IANA zone name, falling back to UTC when it is unknown.
// The effective zone name is returned alongside the location.
func LoadLocationOrUTC(name string) (*time.Location, string) {
	if name == "" {
		return time.UTC, "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, "UTC"
	}
	return loc, name
}

// ParseDateInLocation parses a YYYY-MM-DD date string at midnight in loc.
// If the date format is invalid, the returned error is an ErrInvalidFormat wrapper.
func ParseDateInLocation(dateStr string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, WrapErrorf(ErrInvalidFormat, "invalid date %q", dateStr)
	}
	return date, nil
}

// StartOfDay truncates t to local midnight in its own location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
