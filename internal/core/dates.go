package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	DateLayout,
	"02/01/2006",
	"2/1/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts the canonical YYYY-MM-DD form, day-first slashed dates and
// spreadsheet serial numbers (days since 1899-12-30).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial < 2958466 {
		return DateOf(sheetsEpoch.AddDate(0, 0, int(serial))), nil
	}
	return Date{}, ErrInvalidDate
}

// NormalizeTime returns s as HH:MM:SS, accepting HH:MM and spreadsheet day
// fractions. Unparseable values yield "".
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{TimeLayout, "15:04", "3:04:05 PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout)
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		secs := int(f*86400 + 0.5)
		return time.Date(0, 1, 1, 0, 0, secs, 0, time.UTC).Format(TimeLayout)
	}
	return ""
}
