package projections

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"activitylog/internal/adapters/observability"
	activityStore "activitylog/internal/adapters/storage/activity"
	"activitylog/internal/domain/account"
	domainActivity "activitylog/internal/domain/activity"
	"activitylog/internal/domain/duration"
	"activitylog/internal/domain/policy"
	"activitylog/internal/domain/week"
	"activitylog/internal/domain/weeklylog"
)

// GetWeeklyLogsQuery carries query parameters.
type GetWeeklyLogsQuery struct {
	Actor   policy.Actor
	OwnerID string // empty: the client themselves, a coach's caseload, or every client for admins
	LogType string // optional
	From    time.Time
	To      time.Time
}

// WeeklyLogView is one weekly log of one client.
type WeeklyLogView struct {
	weeklylog.WeeklyLog
	OwnerID   string
	OwnerName string
	Editable  bool
}

// GetWeeklyLogsResult carries the query result.
type GetWeeklyLogsResult struct {
	Logs           []WeeklyLogView
	Owners         map[string]string // owner ID to display name
	Skipped        []weeklylog.Skip
	TotalMinutes   int
	TotalFormatted string
}

// GetWeeklyLogsDeps holds dependencies for GetWeeklyLogs.
type GetWeeklyLogsDeps struct {
	ActivityStore ActivityStore
	AccountStore  AccountStore
	ClientStore   ClientStore
	Now           func() time.Time
}

// QueryGetWeeklyLogs groups the visible activities into weekly logs per client.
// PRE: Actor is authenticated
// POST: logs ordered by week descending, then log type, then owner name
// INVARIANT: ungroupable records are reported in Skipped, never dropped silently
func QueryGetWeeklyLogs(ctx context.Context, query GetWeeklyLogsQuery, deps GetWeeklyLogsDeps) (GetWeeklyLogsResult, error) {
	ownerIDs, all, err := resolveOwners(ctx, query.Actor, query.OwnerID, deps.ClientStore)
	if err != nil {
		return GetWeeklyLogsResult{}, err
	}
	empty := GetWeeklyLogsResult{Owners: map[string]string{}, TotalFormatted: duration.Format(0)}
	if len(ownerIDs) == 0 && !all {
		return empty, nil
	}

	logType := ""
	if query.LogType != "" {
		lt, err := domainActivity.ParseLogType(query.LogType)
		if err != nil {
			return GetWeeklyLogsResult{}, err
		}
		logType = string(lt)
	}

	records, err := deps.ActivityStore.List(ctx, activityStore.ListFilter{
		OwnerIDs: ownerIDs,
		LogType:  logType,
		From:     query.From,
		To:       query.To,
	})
	if err != nil {
		return GetWeeklyLogsResult{}, fmt.Errorf("list activities: %w", err)
	}
	if len(records) == 0 {
		return empty, nil
	}

	// Partition by owner, remembering each record's position in the full list.
	var order []string
	byOwner := make(map[string][]domainActivity.Activity)
	positions := make(map[string][]int)
	for i, r := range records {
		if _, seen := byOwner[r.OwnerID]; !seen {
			order = append(order, r.OwnerID)
		}
		byOwner[r.OwnerID] = append(byOwner[r.OwnerID], r)
		positions[r.OwnerID] = append(positions[r.OwnerID], i)
	}

	names, err := displayNames(ctx, deps.AccountStore, order)
	if err != nil {
		return GetWeeklyLogsResult{}, fmt.Errorf("resolve owners: %w", err)
	}

	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}

	result := GetWeeklyLogsResult{Owners: names}
	for _, ownerID := range order {
		grouped := weeklylog.Group(byOwner[ownerID])
		for _, log := range grouped.Logs {
			result.Logs = append(result.Logs, WeeklyLogView{
				WeeklyLog: log,
				OwnerID:   ownerID,
				OwnerName: names[ownerID],
				Editable:  week.IsEditable(log.WeekStart, now),
			})
			result.TotalMinutes += log.TotalDurationMinutes
		}
		for _, s := range grouped.Skipped {
			s.Index = positions[ownerID][s.Index]
			result.Skipped = append(result.Skipped, s)
		}
	}

	sort.SliceStable(result.Logs, func(i, j int) bool {
		a, b := result.Logs[i], result.Logs[j]
		if !a.WeekStart.Equal(b.WeekStart) {
			return a.WeekStart.After(b.WeekStart)
		}
		if a.LogType != b.LogType {
			return a.LogType < b.LogType
		}
		if a.OwnerName != b.OwnerName {
			return a.OwnerName < b.OwnerName
		}
		return a.OwnerID < b.OwnerID
	})
	sort.Slice(result.Skipped, func(i, j int) bool { return result.Skipped[i].Index < result.Skipped[j].Index })
	result.TotalFormatted = duration.Format(result.TotalMinutes)

	if n := len(result.Skipped); n > 0 {
		observability.RecordSkipped(n)
		ids := make([]string, n)
		for i, s := range result.Skipped {
			ids[i] = s.ID
		}
		slog.Warn("weekly_log_event", "event", "records_skipped", "count", n, "activity_ids", ids)
	}
	return result, nil
}

// resolveOwners decides whose activities the actor sees. all is true when no owner filter applies.
func resolveOwners(ctx context.Context, actor policy.Actor, ownerID string, clients ClientStore) (ids []string, all bool, err error) {
	if !actor.Authenticated() {
		return nil, false, policy.ErrUnauthenticated
	}
	if ownerID != "" {
		if err := policy.CanViewOwner(actor, ownerID); err != nil {
			return nil, false, err
		}
		return []string{ownerID}, false, nil
	}
	switch actor.Role {
	case account.RoleClient:
		return []string{actor.ID}, false, nil
	case account.RoleCoach:
		if clients == nil {
			return nil, false, nil
		}
		ids, err := clients.ListIDsByCoach(ctx, actor.ID)
		if err != nil {
			return nil, false, fmt.Errorf("list caseload: %w", err)
		}
		return ids, false, nil
	case account.RoleAdmin:
		return nil, true, nil
	}
	return nil, false, policy.ErrForbidden
}
