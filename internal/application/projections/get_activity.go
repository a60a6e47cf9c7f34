package projections

import (
	"context"
	"fmt"
	"time"

	domainActivity "activitylog/internal/domain/activity"
	"activitylog/internal/domain/duration"
	"activitylog/internal/domain/policy"
	"activitylog/internal/domain/week"
)

// GetActivityQuery carries query parameters.
type GetActivityQuery struct {
	Actor      policy.Actor
	ActivityID string
}

// ActivityView is a single activity with the context a reader needs.
type ActivityView struct {
	domainActivity.Activity
	OwnerName         string
	DurationFormatted string
	WeekLabel         string
	Editable          bool
}

// GetActivityDeps holds dependencies for GetActivity.
type GetActivityDeps struct {
	ActivityStore ActivityStore
	AccountStore  AccountStore
	Now           func() time.Time
}

// QueryGetActivity returns one activity the actor is allowed to read.
// PRE: ActivityID is non-empty
// POST: Editable reflects whether the actor could update it now
func QueryGetActivity(ctx context.Context, query GetActivityQuery, deps GetActivityDeps) (ActivityView, error) {
	rec, err := deps.ActivityStore.GetByID(ctx, query.ActivityID)
	if err != nil {
		return ActivityView{}, fmt.Errorf("get activity %s: %w", query.ActivityID, err)
	}
	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}
	if err := policy.Authorize(query.Actor, policy.ActionRead, rec, now); err != nil {
		return ActivityView{}, err
	}

	names, err := displayNames(ctx, deps.AccountStore, []string{rec.OwnerID})
	if err != nil {
		return ActivityView{}, fmt.Errorf("resolve owner: %w", err)
	}
	return ActivityView{
		Activity:          rec,
		OwnerName:         names[rec.OwnerID],
		DurationFormatted: duration.Format(rec.Minutes()),
		WeekLabel:         week.FormatRange(rec.WeekStart),
		Editable:          policy.Authorize(query.Actor, policy.ActionUpdate, rec, now) == nil,
	}, nil
}
