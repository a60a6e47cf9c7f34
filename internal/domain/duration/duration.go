package duration

import (
	"fmt"
	"strings"
)

// MinutesPerDay is added to negative spans so an end time before the start reads as the
// following day.
const MinutesPerDay = 24 * 60

// InvalidTimeFormatError reports a clock value that is not a 24-hour "HH:MM" string.
type InvalidTimeFormatError struct {
	Input string
}

// Error implements the error interface.
func (e *InvalidTimeFormatError) Error() string {
	return fmt.Sprintf("invalid time %q: want 24-hour HH:MM", e.Input)
}

// ParseClock converts "HH:MM" into minutes after midnight.
// PRE: none
// POST: returns 0..1439, or *InvalidTimeFormatError; out-of-range values are never clamped
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, &InvalidTimeFormatError{Input: s}
	}
	hour, ok := twoDigits(s[0], s[1])
	if !ok || hour > 23 {
		return 0, &InvalidTimeFormatError{Input: s}
	}
	minute, ok := twoDigits(s[3], s[4])
	if !ok || minute > 59 {
		return 0, &InvalidTimeFormatError{Input: s}
	}
	return hour*60 + minute, nil
}

// Elapsed returns the minutes from start to end. An end earlier than the start is an
// overnight shift and wraps past midnight. Either value being empty yields 0.
// PRE: start and end are "HH:MM" or empty
// POST: result is in [0, 1439]
func Elapsed(start, end string) (int, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		return 0, nil
	}
	s, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	diff := e - s
	if diff < 0 {
		diff += MinutesPerDay
	}
	return diff, nil
}

// Format renders minutes as "Xh Ym", dropping whichever part is zero. Zero or negative
// input renders as "0m".
func Format(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// FormatPtr is Format for optional durations; nil renders as "0m".
func FormatPtr(minutes *int) string {
	if minutes == nil {
		return "0m"
	}
	return Format(*minutes)
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}
