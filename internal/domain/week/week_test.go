package week_test

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"activitylog/internal/domain/week"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStart_IsSundayAndIdempotent(t *testing.T) {
	base := time.Date(2023, time.December, 20, 17, 45, 12, 99, time.UTC)
	for i := 0; i < 60; i++ {
		d := base.AddDate(0, 0, i)
		ws := week.Start(d)
		require.Equal(t, time.Sunday, ws.Weekday(), "date %s", d)
		require.Zero(t, ws.Hour()+ws.Minute()+ws.Second()+ws.Nanosecond())
		require.True(t, week.Start(ws).Equal(ws), "Start not idempotent for %s", d)
		require.False(t, ws.After(d))
	}
}

func TestStart_KeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	d := time.Date(2024, time.March, 12, 8, 0, 0, 0, loc) // Tuesday after DST start
	ws := week.Start(d)
	require.Equal(t, loc, ws.Location())
	require.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, loc), ws)
}

func TestDays_ContainsDate(t *testing.T) {
	base := date(2024, time.January, 1)
	for i := 0; i < 40; i++ {
		d := base.AddDate(0, 0, i)
		days := week.Days(week.Start(d))
		found := false
		for _, day := range days {
			if day.Equal(d) {
				found = true
			}
		}
		require.True(t, found, "%s missing from its own week", d)
		require.Equal(t, time.Sunday, days[0].Weekday())
		require.Equal(t, time.Saturday, days[6].Weekday())
	}
}

func TestEnd_SaturdayEndOfDay(t *testing.T) {
	end := week.End(date(2024, time.January, 17))
	require.Equal(t, time.Date(2024, time.January, 20, 23, 59, 59, 999999999, time.UTC), end)

	// Saturday maps to itself.
	end = week.End(date(2024, time.January, 20))
	require.Equal(t, 20, end.Day())
}

func TestIsEditable_Boundaries(t *testing.T) {
	now := time.Date(2024, time.January, 17, 15, 30, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		name string
		d    time.Time
		want bool
	}{
		{"current week start", date(2024, time.January, 14), true},
		{"current week saturday", date(2024, time.January, 20), true},
		{"previous week", date(2024, time.January, 9), true},
		{"two weeks prior, week start", date(2023, time.December, 31), true},
		{"two weeks prior, saturday", date(2024, time.January, 6), true},
		{"three weeks prior", date(2023, time.December, 24), false},
		{"three weeks prior, saturday", date(2023, time.December, 30), false},
		{"next week", date(2024, time.January, 22), false},
		{"zero time", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, week.IsEditable(tt.d, now))
		})
	}
}

func TestIsEditable_IgnoresTimeOfDay(t *testing.T) {
	now := time.Date(2024, time.January, 14, 0, 0, 1, 0, time.UTC)
	require.True(t, week.IsEditable(time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC), now))

	auckland := time.FixedZone("NZDT", 13*60*60)
	// Late on Saturday in UTC is already Sunday in Auckland: the Auckland calendar day wins.
	d := time.Date(2024, time.January, 21, 8, 0, 0, 0, auckland)
	require.False(t, week.IsEditable(d, now))
}

func TestEditableWindow(t *testing.T) {
	from, to := week.EditableWindow(date(2024, time.January, 17))
	require.Equal(t, date(2023, time.December, 31), from)
	require.Equal(t, time.Date(2024, time.January, 20, 23, 59, 59, 999999999, time.UTC), to)
}

func TestWeeksInMonth(t *testing.T) {
	weeks := week.WeeksInMonth(date(2024, time.January, 17))
	require.Equal(t, []time.Time{
		date(2023, time.December, 31),
		date(2024, time.January, 7),
		date(2024, time.January, 14),
		date(2024, time.January, 21),
		date(2024, time.January, 28),
	}, weeks)

	// February 2015 starts on a Sunday and ends on a Saturday.
	weeks = week.WeeksInMonth(date(2015, time.February, 10))
	require.Len(t, weeks, 4)
	require.Equal(t, date(2015, time.February, 1), weeks[0])
}

func TestFormatRange(t *testing.T) {
	require.Equal(t, "Jan 14 – 20", week.FormatRange(date(2024, time.January, 14)))
	require.Equal(t, "Jan 28 – Feb 3", week.FormatRange(date(2024, time.January, 28)))
	require.Equal(t, "Dec 31 – Jan 6", week.FormatRange(date(2024, time.January, 2)))
}

func TestParseDate(t *testing.T) {
	d, err := week.ParseDate("2024-01-15")
	require.NoError(t, err)
	require.Equal(t, date(2024, time.January, 15), d)

	d, err = week.ParseDate("2024-01-15T22:10:00-08:00")
	require.NoError(t, err)
	require.Equal(t, 15, d.Day())

	for _, bad := range []string{"", "2024-13-01", "15/01/2024", "yesterday"} {
		_, err := week.ParseDate(bad)
		var invalid *week.InvalidDateError
		require.True(t, errors.As(err, &invalid), "input %q", bad)
		require.Equal(t, bad, invalid.Input)
	}
}

func TestParseDateIn(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	d, err := week.ParseDateIn("2024-01-17T02:00:00Z", chicago)
	require.NoError(t, err)
	require.Equal(t, date(2024, time.January, 16), d)

	d, err = week.ParseDateIn("2024-01-17T02:00:00Z", nil)
	require.NoError(t, err)
	require.Equal(t, date(2024, time.January, 17), d)

	d, err = week.ParseDateIn("2024-01-16", chicago)
	require.NoError(t, err)
	require.Equal(t, date(2024, time.January, 16), d)
}

func TestParseMonth(t *testing.T) {
	m, err := week.ParseMonth("2024-02", time.UTC)
	require.NoError(t, err)
	require.Equal(t, date(2024, time.February, 1), m)

	_, err = week.ParseMonth("2024-2-1", time.UTC)
	var invalid *week.InvalidDateError
	require.ErrorAs(t, err, &invalid)
}
