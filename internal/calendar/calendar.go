// Package calendar builds month grids and formats journal dates and times.
//
// Weeks start on Monday everywhere: the grid padding, the weekday header
// labels and StartOfWeek all use WeekStart.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"

	// WeekStart is the first column of the grid.
	WeekStart = time.Monday
)

// Weekdays returns the header labels in grid order.
func Weekdays() []string {
	out := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		out = append(out, time.Weekday((int(WeekStart)+i)%7).String())
	}
	return out
}

// offset returns the column of wd in a WeekStart-first grid.
func offset(wd time.Weekday) int {
	return (int(wd) - int(WeekStart) + 7) % 7
}

// MonthGrid returns the days needed to render a full-week grid for the
// given year and zero-based month: leading days from the previous month,
// every day of the month, and trailing days up to a multiple of 7.
// All dates are at midnight UTC.
func MonthGrid(year, month0 int) []time.Time {
	first := time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	lead := offset(first.Weekday())
	days := make([]time.Time, 0, 42)
	for i := lead; i > 0; i-- {
		days = append(days, first.AddDate(0, 0, -i))
	}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	if rem := len(days) % 7; rem != 0 {
		next := last.AddDate(0, 0, 1)
		for i := 0; i < 7-rem; i++ {
			days = append(days, next.AddDate(0, 0, i))
		}
	}
	return days
}

// StartOfWeek returns midnight of the WeekStart day on or before t, in t's
// location.
func StartOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -offset(day.Weekday()))
}

// FormatDate renders t as YYYY-MM-DD using t's own calendar day.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatTime converts a 24h "HH:MM" string to a 12h clock:
// "00:00" -> "12:00 AM", "13:05" -> "1:05 PM", "12:00" -> "12:00 PM".
func FormatTime(hhmm string) (string, error) {
	hStr, mStr, ok := strings.Cut(hhmm, ":")
	if !ok {
		return "", fmt.Errorf("invalid time %q", hhmm)
	}
	hours, err := strconv.Atoi(hStr)
	if err != nil || hours < 0 || hours > 23 {
		return "", fmt.Errorf("invalid hour in %q", hhmm)
	}
	if len(mStr) != 2 || mStr[0] < '0' || mStr[0] > '5' || mStr[1] < '0' || mStr[1] > '9' {
		return "", fmt.Errorf("invalid minute in %q", hhmm)
	}

	period := "AM"
	if hours >= 12 {
		period = "PM"
	}
	hour12 := hours % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:%s %s", hour12, mStr, period), nil
}

// Hour extracts the hour from "HH:MM"; malformed input yields -1.
func Hour(hhmm string) int {
	hStr, _, _ := strings.Cut(hhmm, ":")
	h, err := strconv.Atoi(hStr)
	if err != nil || h < 0 || h > 23 {
		return -1
	}
	return h
}
