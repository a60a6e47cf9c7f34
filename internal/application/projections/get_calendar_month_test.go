package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/policy"
)

func calendarDeps(recs ...activity.Activity) GetCalendarMonthDeps {
	return GetCalendarMonthDeps{
		ActivityStore: &mockActivityStore{records: recs},
		AccountStore:  testAccounts(),
		Now:           fixedNow,
	}
}

func TestQueryGetCalendarMonth_Grid(t *testing.T) {
	deps := calendarDeps(
		rec("a1", "client-1", activity.LogTypeProgram, date(2024, 1, 15), 60),
		rec("a2", "client-1", activity.LogTypeEmployment, date(2024, 1, 15), 30),
		rec("a3", "client-1", activity.LogTypeProgram, date(2023, 12, 31), 20),
		rec("b1", "client-2", activity.LogTypeProgram, date(2024, 1, 15), 999),
	)

	result, err := QueryGetCalendarMonth(context.Background(), GetCalendarMonthQuery{
		Actor: ownerActor,
		Month: date(2024, 1, 20),
	}, deps)
	if err != nil {
		t.Fatalf("QueryGetCalendarMonth() error = %v", err)
	}
	// January 2024 spans the weeks of Dec 31 through Jan 28.
	if len(result.Weeks) != 5 {
		t.Fatalf("got %d weeks, want 5", len(result.Weeks))
	}
	if !result.Month.Equal(date(2024, 1, 1)) || result.OwnerName != "Ana" {
		t.Errorf("month=%v owner=%q", result.Month, result.OwnerName)
	}

	first := result.Weeks[0]
	if !first.WeekStart.Equal(date(2023, 12, 31)) || !first.Editable {
		t.Errorf("first week = %v editable=%v", first.WeekStart, first.Editable)
	}
	if first.Days[0].InMonth || !first.Days[1].InMonth {
		t.Error("Dec 31 should be outside the month and Jan 1 inside")
	}
	if first.TotalMinutes != 20 {
		t.Errorf("first week total = %d, want 20 (the Dec 31 record is in the grid)", first.TotalMinutes)
	}

	third := result.Weeks[2]
	monday := third.Days[1]
	if !monday.Date.Equal(date(2024, 1, 15)) || len(monday.Activities) != 2 {
		t.Fatalf("Jan 15 = %v with %d activities", monday.Date, len(monday.Activities))
	}
	if monday.TotalMinutes != 90 || monday.TotalFormatted != "1h 30m" {
		t.Errorf("Jan 15 total = %d %q", monday.TotalMinutes, monday.TotalFormatted)
	}
	if third.TotalFormatted != "1h 30m" {
		t.Errorf("week total = %q", third.TotalFormatted)
	}
	if result.Weeks[4].Editable {
		t.Error("week of Jan 28 is after the current week and must not be editable")
	}
}

func TestQueryGetCalendarMonth_Access(t *testing.T) {
	deps := calendarDeps()
	ctx := context.Background()
	month := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	if _, err := QueryGetCalendarMonth(ctx, GetCalendarMonthQuery{Actor: coachActor, Month: month}, deps); !errors.Is(err, ErrOwnerRequired) {
		t.Errorf("staff without owner error = %v", err)
	}
	if _, err := QueryGetCalendarMonth(ctx, GetCalendarMonthQuery{Actor: otherActor, OwnerID: "client-1", Month: month}, deps); !errors.Is(err, policy.ErrForbidden) {
		t.Errorf("other client error = %v", err)
	}
	if _, err := QueryGetCalendarMonth(ctx, GetCalendarMonthQuery{Month: month}, deps); !errors.Is(err, policy.ErrUnauthenticated) {
		t.Errorf("anonymous error = %v", err)
	}

	result, err := QueryGetCalendarMonth(ctx, GetCalendarMonthQuery{Actor: coachActor, OwnerID: "client-1", Month: month}, deps)
	if err != nil {
		t.Fatalf("coach with owner error = %v", err)
	}
	if result.OwnerID != "client-1" {
		t.Errorf("OwnerID = %q", result.OwnerID)
	}
}
