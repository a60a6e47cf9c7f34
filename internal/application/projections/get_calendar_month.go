package projections

import (
	"context"
	"fmt"
	"time"

	activityStore "activitylog/internal/adapters/storage/activity"
	"activitylog/internal/domain/account"
	domainActivity "activitylog/internal/domain/activity"
	"activitylog/internal/domain/duration"
	"activitylog/internal/domain/policy"
	"activitylog/internal/domain/week"
)

// GetCalendarMonthQuery carries query parameters.
type GetCalendarMonthQuery struct {
	Actor   policy.Actor
	OwnerID string    // required for staff; clients always see their own
	Month   time.Time // any day in the month
}

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date           time.Time
	InMonth        bool
	Activities     []domainActivity.Activity
	TotalMinutes   int
	TotalFormatted string
}

// CalendarWeek is one Sunday-to-Saturday row of the month grid.
type CalendarWeek struct {
	WeekStart      time.Time
	Label          string
	Editable       bool
	Days           [7]CalendarDay
	TotalMinutes   int
	TotalFormatted string
}

// GetCalendarMonthResult carries the query result.
type GetCalendarMonthResult struct {
	Month     time.Time
	OwnerID   string
	OwnerName string
	Weeks     []CalendarWeek
}

// GetCalendarMonthDeps holds dependencies for GetCalendarMonth.
type GetCalendarMonthDeps struct {
	ActivityStore ActivityStore
	AccountStore  AccountStore
	Now           func() time.Time
}

// QueryGetCalendarMonth lays one client's activities out on the weeks overlapping a month.
// PRE: Actor is authenticated; Month is non-zero
// POST: Weeks ascending; each day lists its activities in stored order
func QueryGetCalendarMonth(ctx context.Context, query GetCalendarMonthQuery, deps GetCalendarMonthDeps) (GetCalendarMonthResult, error) {
	if !query.Actor.Authenticated() {
		return GetCalendarMonthResult{}, policy.ErrUnauthenticated
	}
	ownerID := query.OwnerID
	if ownerID == "" {
		if query.Actor.Role != account.RoleClient {
			return GetCalendarMonthResult{}, ErrOwnerRequired
		}
		ownerID = query.Actor.ID
	}
	if err := policy.CanViewOwner(query.Actor, ownerID); err != nil {
		return GetCalendarMonthResult{}, err
	}

	weeks := week.WeeksInMonth(query.Month)
	first := weeks[0]
	last := week.Days(weeks[len(weeks)-1])[6]

	records, err := deps.ActivityStore.List(ctx, activityStore.ListFilter{
		OwnerIDs: []string{ownerID},
		From:     first,
		To:       last,
	})
	if err != nil {
		return GetCalendarMonthResult{}, fmt.Errorf("list activities: %w", err)
	}
	byDay := make(map[string][]domainActivity.Activity)
	for _, r := range records {
		key := week.FormatDate(r.Date)
		byDay[key] = append(byDay[key], r)
	}

	names, err := displayNames(ctx, deps.AccountStore, []string{ownerID})
	if err != nil {
		return GetCalendarMonthResult{}, fmt.Errorf("resolve owner: %w", err)
	}

	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}

	result := GetCalendarMonthResult{
		Month:     time.Date(query.Month.Year(), query.Month.Month(), 1, 0, 0, 0, 0, query.Month.Location()),
		OwnerID:   ownerID,
		OwnerName: names[ownerID],
	}
	for _, ws := range weeks {
		cw := CalendarWeek{
			WeekStart: ws,
			Label:     week.FormatRange(ws),
			Editable:  week.IsEditable(ws, now),
		}
		for i, d := range week.Days(ws) {
			day := CalendarDay{
				Date:       d,
				InMonth:    d.Month() == query.Month.Month(),
				Activities: byDay[week.FormatDate(d)],
			}
			for _, a := range day.Activities {
				day.TotalMinutes += a.Minutes()
			}
			day.TotalFormatted = duration.Format(day.TotalMinutes)
			cw.Days[i] = day
			cw.TotalMinutes += day.TotalMinutes
		}
		cw.TotalFormatted = duration.Format(cw.TotalMinutes)
		result.Weeks = append(result.Weeks, cw)
	}
	return result, nil
}
