package database

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used throughout the database.
const DateLayout = "2006-01-02"

// Today returns today's date as YYYY-MM-DD.
func Today() string {
	return time.Now().Format(DateLayout)
}

// DaysBefore returns the date the given number of days before a
// YYYY-MM-DD date.
func DaysBefore(date string, days int) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", date, err)
	}
	return d.AddDate(0, 0, -days).Format(DateLayout), nil
}

// FormatDateDisplay formats a YYYY-MM-DD date for human-readable
// display, e.g. "Feb 06, 2026". Invalid input is returned unchanged.
func FormatDateDisplay(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Jan 02, 2006")
}

// FormatRangeDisplay formats a date range for display.
// Single day: "Feb 06, 2026". Range: "Feb 01 - Feb 06, 2026".
func FormatRangeDisplay(start, end string) string {
	if start == end {
		return FormatDateDisplay(start)
	}
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return start + " - " + end
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return start + " - " + end
	}
	return fmt.Sprintf("%s - %s", s.Format("Jan 02"), e.Format("Jan 02, 2006"))
}
