// Package calendar handles the canonical YYYY-MM-DD day strings used as
// the date key for tasks, sessions and work logs. Day strings compare
// lexically in chronological order.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the canonical day format.
const Layout = "2006-01-02"

// Format renders t as a day string in t's location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Today returns the current local day.
func Today() string {
	return Format(time.Now())
}

// Parse reads a day string as local midnight.
func Parse(day string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, day, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", day, err)
	}
	return t, nil
}

// Valid reports whether day is a well-formed day string.
func Valid(day string) bool {
	_, err := time.ParseInLocation(Layout, day, time.Local)
	return err == nil
}

// AddDays shifts a day string by n calendar days. Calendar arithmetic is
// used so DST transitions never skip or repeat a day.
func AddDays(day string, n int) (string, error) {
	t, err := Parse(day)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// MustAddDays is AddDays for days already known to be valid.
func MustAddDays(day string, n int) string {
	s, err := AddDays(day, n)
	if err != nil {
		panic(err)
	}
	return s
}

// Between lists every day from start to end inclusive.
func Between(start, end string) ([]string, error) {
	from, err := Parse(start)
	if err != nil {
		return nil, err
	}
	to, err := Parse(end)
	if err != nil {
		return nil, err
	}
	var days []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, Format(d))
	}
	return days, nil
}
