package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"activitylog/internal/adapters/observability"
	"activitylog/internal/domain/account"
	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/audit"
	"activitylog/internal/domain/policy"
	"activitylog/internal/domain/week"
)

// ActivityStoreForOrchestrator defines the activity operations orchestrators need.
type ActivityStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (activity.Activity, error)
	Save(ctx context.Context, a activity.Activity) error
	Delete(ctx context.Context, id string) error
	AppendComment(ctx context.Context, activityID string, c activity.Comment) error
}

// --- Create ---

// CreateActivityInput carries input for logging a new activity.
type CreateActivityInput struct {
	Actor       policy.Actor
	OwnerID     string // defaults to the actor for clients
	LogType     string
	Date        time.Time
	StartTime   string
	EndTime     string
	Duration    *int
	Description string
	Notes       string
}

// ActivityDeps holds dependencies for the activity orchestrators.
type ActivityDeps struct {
	ActivityStore ActivityStoreForOrchestrator
	ClientStore   ClientStoreForOrchestrator
	AuditStore    AuditRecorder
	GenerateID    func() string
	Now           func() time.Time
}

// ExecuteCreateActivity validates, authorizes and stores a new activity.
// PRE: Actor is authenticated
// POST: stored activity satisfies activity.Validate and lies in the editable window
func ExecuteCreateActivity(ctx context.Context, input CreateActivityInput, deps ActivityDeps) (activity.Activity, error) {
	const action = policy.ActionCreate
	now := clock(deps.Now).now()

	ownerID := input.OwnerID
	if ownerID == "" && input.Actor.Role == account.RoleClient {
		ownerID = input.Actor.ID
	}
	if err := policy.CanViewOwner(input.Actor, ownerID); err != nil {
		recordDenied(ctx, deps.AuditStore, input.Actor, action, "", ownerID, err, deps.Now)
		return activity.Activity{}, err
	}
	if err := ensureActiveClient(ctx, deps.ClientStore, ownerID); err != nil {
		observability.RecordMutation(string(action), observability.ResultInvalid)
		return activity.Activity{}, err
	}

	rec, err := activity.New(activity.NewInput{
		ID:          generateID(deps.GenerateID),
		OwnerID:     ownerID,
		LogType:     input.LogType,
		Date:        input.Date,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Duration:    input.Duration,
		Description: input.Description,
		Notes:       input.Notes,
		CreatedBy:   input.Actor.ID,
		CreatedAt:   now,
	})
	if err != nil {
		observability.RecordMutation(string(action), observability.ResultInvalid)
		return activity.Activity{}, err
	}

	if err := policy.Authorize(input.Actor, action, rec, now); err != nil {
		recordDenied(ctx, deps.AuditStore, input.Actor, action, rec.ID, ownerID, err, deps.Now)
		return activity.Activity{}, err
	}

	if err := deps.ActivityStore.Save(ctx, rec); err != nil {
		observability.RecordMutation(string(action), observability.ResultError)
		return activity.Activity{}, fmt.Errorf("save activity: %w", err)
	}

	observability.RecordMutation(string(action), observability.ResultOK)
	slog.Info("activity_event", "event", "activity_created", "activity_id", rec.ID, "owner_id", ownerID, "log_type", rec.LogType, "date", week.FormatDate(rec.Date), "actor_id", input.Actor.ID)
	recordAudit(ctx, deps.AuditStore, activityEvent(input.Actor, audit.ActionCreate, rec, now))
	return rec, nil
}

// --- Update ---

// UpdateActivityInput carries input for editing an activity.
type UpdateActivityInput struct {
	Actor      policy.Actor
	ActivityID string
	Changes    activity.Changes
}

// ExecuteUpdateActivity applies changes to an activity inside the editable window.
// PRE: Actor is authenticated; the owner's client profile is not archived
// POST: when the date moves, both the old and the new week were editable
// INVARIANT: OwnerID and LogType never change
func ExecuteUpdateActivity(ctx context.Context, input UpdateActivityInput, deps ActivityDeps) (activity.Activity, error) {
	const action = policy.ActionUpdate
	now := clock(deps.Now).now()

	before, err := deps.ActivityStore.GetByID(ctx, input.ActivityID)
	if err != nil {
		return activity.Activity{}, fmt.Errorf("get activity %s: %w", input.ActivityID, err)
	}
	if err := policy.Authorize(input.Actor, action, before, now); err != nil {
		recordDenied(ctx, deps.AuditStore, input.Actor, action, before.ID, before.OwnerID, err, deps.Now)
		return activity.Activity{}, err
	}
	if err := ensureActiveClient(ctx, deps.ClientStore, before.OwnerID); err != nil {
		observability.RecordMutation(string(action), observability.ResultInvalid)
		return activity.Activity{}, err
	}

	after := before
	if err := after.ApplyChanges(input.Changes, now); err != nil {
		observability.RecordMutation(string(action), observability.ResultInvalid)
		return activity.Activity{}, err
	}
	if err := policy.AuthorizeMove(input.Actor, before, after, now); err != nil {
		recordDenied(ctx, deps.AuditStore, input.Actor, action, before.ID, before.OwnerID, err, deps.Now)
		return activity.Activity{}, err
	}

	if err := deps.ActivityStore.Save(ctx, after); err != nil {
		observability.RecordMutation(string(action), observability.ResultError)
		return activity.Activity{}, fmt.Errorf("save activity: %w", err)
	}

	observability.RecordMutation(string(action), observability.ResultOK)
	slog.Info("activity_event", "event", "activity_updated", "activity_id", after.ID, "owner_id", after.OwnerID, "date", week.FormatDate(after.Date), "moved", !after.Date.Equal(before.Date), "actor_id", input.Actor.ID)
	recordAudit(ctx, deps.AuditStore, activityEvent(input.Actor, audit.ActionUpdate, after, now))
	return after, nil
}

// --- Delete ---

// DeleteActivityInput carries input for removing an activity.
type DeleteActivityInput struct {
	Actor      policy.Actor
	ActivityID string
}

// ExecuteDeleteActivity removes an activity and its comment thread.
// PRE: Actor is authenticated; the owner's client profile is not archived
// POST: the activity no longer exists
func ExecuteDeleteActivity(ctx context.Context, input DeleteActivityInput, deps ActivityDeps) error {
	const action = policy.ActionDelete
	now := clock(deps.Now).now()

	rec, err := deps.ActivityStore.GetByID(ctx, input.ActivityID)
	if err != nil {
		return fmt.Errorf("get activity %s: %w", input.ActivityID, err)
	}
	if err := policy.Authorize(input.Actor, action, rec, now); err != nil {
		recordDenied(ctx, deps.AuditStore, input.Actor, action, rec.ID, rec.OwnerID, err, deps.Now)
		return err
	}
	if err := ensureActiveClient(ctx, deps.ClientStore, rec.OwnerID); err != nil {
		observability.RecordMutation(string(action), observability.ResultInvalid)
		return err
	}
	if err := deps.ActivityStore.Delete(ctx, rec.ID); err != nil {
		observability.RecordMutation(string(action), observability.ResultError)
		return fmt.Errorf("delete activity: %w", err)
	}

	observability.RecordMutation(string(action), observability.ResultOK)
	slog.Info("activity_event", "event", "activity_deleted", "activity_id", rec.ID, "owner_id", rec.OwnerID, "actor_id", input.Actor.ID)
	recordAudit(ctx, deps.AuditStore, activityEvent(input.Actor, audit.ActionDelete, rec, now).
		WithSeverity(audit.SeverityWarning))
	return nil
}

func ensureActiveClient(ctx context.Context, store ClientStoreForOrchestrator, ownerID string) error {
	if store == nil {
		return nil
	}
	profile, err := store.GetByID(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrClientNotFound, ownerID)
	}
	if profile.IsArchived() {
		return ErrClientArchived
	}
	return nil
}

func activityEvent(actor policy.Actor, action audit.Action, rec activity.Activity, now time.Time) audit.Event {
	return audit.NewEvent(actor.ID, actor.Role, audit.CategoryActivity, action, now).
		WithResource(audit.ResourceActivity, rec.ID).
		WithSubject(rec.OwnerID).
		WithDescription(fmt.Sprintf("%s on %s", rec.LogType, week.FormatDate(rec.Date)))
}
