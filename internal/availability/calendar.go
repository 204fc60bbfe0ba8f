package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// ErrNotMonday is returned when a week start falls on another weekday.
var ErrNotMonday = errors.New("availability: week start must be a Monday")

// Weekday names in ISO order, used as keys of a template's working days.
const (
	Monday    = "monday"
	Tuesday   = "tuesday"
	Wednesday = "wednesday"
	Thursday  = "thursday"
	Friday    = "friday"
	Saturday  = "saturday"
	Sunday    = "sunday"
)

// Weekdays lists the weekday names Monday first.
var Weekdays = [7]string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// IsWeekdayName reports whether name is one of Weekdays.
func IsWeekdayName(name string) bool {
	for _, day := range Weekdays {
		if day == name {
			return true
		}
	}
	return false
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("availability: invalid date %q: %w", value, err)
	}
	return parsed.UTC(), nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ISOWeekday numbers the weekday of t with Monday=1 through Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// IsMonday reports whether t falls on a Monday.
func IsMonday(t time.Time) bool {
	return ISOWeekday(t) == 1
}

// WeekdayName returns the lowercase English weekday name of t.
func WeekdayName(t time.Time) string {
	return Weekdays[ISOWeekday(t)-1]
}

// WeekStartOf returns the Monday of the week containing t.
func WeekStartOf(t time.Time) time.Time {
	date := DateOf(t)
	return date.AddDate(0, 0, -(ISOWeekday(date) - 1))
}

// WeekEnd returns the Sunday that closes the week starting at start.
func WeekEnd(start time.Time) time.Time {
	return DateOf(start).AddDate(0, 0, 6)
}
