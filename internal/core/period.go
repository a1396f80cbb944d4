package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a calendar month in a specific year.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod returns the Period for year and month (1-12).
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid month: %d", month)
	}
	if year < 1900 || year > 9999 {
		return Period{}, fmt.Errorf("invalid year: %d", year)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// PeriodOf returns the Period in which t occurs.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses a "YYYY-MM" string.
func ParsePeriod(s string) (Period, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Period{}, fmt.Errorf("invalid period %q", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q", s)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q", s)
	}
	return NewPeriod(year, month)
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && d.Month() == p.Month
}

// String returns the period formatted as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
