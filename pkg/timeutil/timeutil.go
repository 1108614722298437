// Package timeutil provides calendar-date utilities for Academy LMS.
// Lesson dates are calendar dates, not instants: the lesson calendar keys
// lessons by (course, date) and every comparison has to ignore the clock.
// All dates are normalized to midnight UTC before storage or comparison.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DateFormat is the wire and log format for calendar dates.
const DateFormat = "2006-01-02"

// Today returns the current calendar date at midnight UTC.
func Today() time.Time {
	return DateOf(time.Now().UTC())
}

// DateOf truncates a time to its calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Date creates a calendar date at midnight UTC.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two times fall on the same calendar date (UTC).
func SameDate(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(DateFormat)
}

// IsFutureDate reports whether the date is strictly after today (UTC).
func IsFutureDate(t time.Time) bool {
	return DateOf(t).After(Today())
}

// DaysBetween returns the number of whole calendar days from a to b.
// Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// StartOfWeek returns the Monday of the week containing t, at midnight UTC.
func StartOfWeek(t time.Time) time.Time {
	d := DateOf(t)
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return d.AddDate(0, 0, -(weekday - 1))
}

// StartOfMonth returns the first day of the month containing t, at midnight UTC.
func StartOfMonth(t time.Time) time.Time {
	d := DateOf(t)
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}
