package week

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date format used across the API and storage.
const DateLayout = "2006-01-02"

// MonthLayout is the format accepted by ParseMonth.
const MonthLayout = "2006-01"

// EditableWeeks is the number of weeks open for edits: the current week plus two prior.
const EditableWeeks = 3

// InvalidDateError reports date input that could not be parsed.
type InvalidDateError struct {
	Input string
	Err   error
}

// Error implements the error interface.
func (e *InvalidDateError) Error() string {
	if e.Input == "" {
		return "invalid date: empty input"
	}
	return fmt.Sprintf("invalid date %q", e.Input)
}

// Unwrap returns the underlying parse error, if any.
func (e *InvalidDateError) Unwrap() error {
	return e.Err
}

// Start returns the Sunday at or before d with the time of day zeroed.
// PRE: none
// POST: result.Weekday() == time.Sunday; result is in d's location
// INVARIANT: Start(Start(d)) == Start(d)
func Start(d time.Time) time.Time {
	day := midnight(d)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// End returns the last instant of the Saturday at or after d.
// PRE: none
// POST: result.Weekday() == time.Saturday at 23:59:59.999999999 in d's location
func End(d time.Time) time.Time {
	return Start(d).AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// IsEditable reports whether d falls in the current week or either of the two weeks before it.
// Weeks after the current one are never editable. Only the calendar day of each argument,
// read in its own location, is considered.
// PRE: none
// POST: returns true iff Start(d) is within [Start(now)-14d, Start(now)]
func IsEditable(d, now time.Time) bool {
	target := civil(Start(d))
	current := civil(Start(now))
	oldest := current.AddDate(0, 0, -7*(EditableWeeks-1))
	return !target.Before(oldest) && !target.After(current)
}

// EditableWindow returns the first day of the oldest editable week and the last instant of
// the current week, both in now's location.
// PRE: none
// POST: IsEditable(from, now) && IsEditable(to, now)
func EditableWindow(now time.Time) (time.Time, time.Time) {
	current := Start(now)
	return current.AddDate(0, 0, -7*(EditableWeeks-1)), End(now)
}

// WeeksInMonth returns every week start whose week overlaps the month containing d,
// in ascending order.
// PRE: none
// POST: first element contains the 1st of the month; last contains its final day
func WeeksInMonth(d time.Time) []time.Time {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	last := first.AddDate(0, 1, -1)

	var weeks []time.Time
	for ws := Start(first); !ws.After(last); ws = ws.AddDate(0, 0, 7) {
		weeks = append(weeks, ws)
	}
	return weeks
}

// Days returns Sunday through Saturday of the week containing weekStart.
func Days(weekStart time.Time) [7]time.Time {
	start := Start(weekStart)
	var days [7]time.Time
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// FormatRange renders a week as "Jan 14 – Jan 20", or "Jan 14 – 20" when both ends share
// a month.
func FormatRange(weekStart time.Time) string {
	start := Start(weekStart)
	end := start.AddDate(0, 0, 6)
	if start.Month() == end.Month() {
		return fmt.Sprintf("%s %d – %d", start.Format("Jan"), start.Day(), end.Day())
	}
	return fmt.Sprintf("%s %d – %s %d", start.Format("Jan"), start.Day(), end.Format("Jan"), end.Day())
}

// FormatDate renders t as YYYY-MM-DD. The zero time renders as an empty string.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD or an RFC 3339 timestamp into a calendar date at UTC midnight.
// A timestamp contributes the day it names in its own offset.
// PRE: none
// POST: returns *InvalidDateError for empty or malformed input
func ParseDate(s string) (time.Time, error) {
	return ParseDateIn(s, nil)
}

// ParseDateIn is ParseDate with timestamps read as the day they fall on in loc.
// Plain dates are already calendar days and ignore loc. A nil loc keeps the timestamp's offset.
// POST: result is UTC midnight
func ParseDateIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &InvalidDateError{Input: s}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &InvalidDateError{Input: s, Err: err}
	}
	if loc != nil {
		t = t.In(loc)
	}
	return civil(t), nil
}

// ParseMonth parses YYYY-MM into the first day of that month in loc.
func ParseMonth(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(MonthLayout, s, loc)
	if err != nil {
		return time.Time{}, &InvalidDateError{Input: s, Err: err}
	}
	return t, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// civil drops the location so days from different zones compare by calendar date.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
