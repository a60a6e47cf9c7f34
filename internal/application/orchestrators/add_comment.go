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
	"activitylog/internal/domain/outbox"
	"activitylog/internal/domain/policy"
	"activitylog/internal/domain/week"
)

// AccountReader resolves accounts by ID.
type AccountReader interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// OutboxWriter enqueues deferred deliveries.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// AddCommentInput carries input for commenting on an activity.
type AddCommentInput struct {
	Actor      policy.Actor
	ActivityID string
	Text       string
}

// AddCommentDeps holds dependencies for AddComment.
type AddCommentDeps struct {
	ActivityStore ActivityStoreForOrchestrator
	AccountStore  AccountReader
	OutboxStore   OutboxWriter
	AuditStore    AuditRecorder
	GenerateID    func() string
	Now           func() time.Time
}

// ExecuteAddComment appends a comment to an activity's thread. Staff comments on a
// client's activity enqueue an email notification to that client.
// PRE: Actor is authenticated
// POST: the comment is the last entry of the thread; comments are allowed outside the edit window
func ExecuteAddComment(ctx context.Context, input AddCommentInput, deps AddCommentDeps) (activity.Comment, error) {
	const action = policy.ActionComment
	now := clock(deps.Now).now()

	rec, err := deps.ActivityStore.GetByID(ctx, input.ActivityID)
	if err != nil {
		return activity.Comment{}, fmt.Errorf("get activity %s: %w", input.ActivityID, err)
	}
	if err := policy.Authorize(input.Actor, action, rec, now); err != nil {
		recordDenied(ctx, deps.AuditStore, input.Actor, action, rec.ID, rec.OwnerID, err, deps.Now)
		return activity.Comment{}, err
	}

	authorName := input.Actor.ID
	if deps.AccountStore != nil {
		if author, err := deps.AccountStore.GetByID(ctx, input.Actor.ID); err == nil {
			authorName = author.DisplayName()
		}
	}

	c := activity.Comment{
		ID:         generateID(deps.GenerateID),
		AuthorID:   input.Actor.ID,
		AuthorName: authorName,
		AuthorRole: input.Actor.Role,
		Text:       input.Text,
		Timestamp:  now,
	}
	if err := rec.AppendComment(c); err != nil {
		observability.RecordMutation(string(action), observability.ResultInvalid)
		return activity.Comment{}, err
	}
	c = rec.Comments[len(rec.Comments)-1]

	if err := deps.ActivityStore.AppendComment(ctx, rec.ID, c); err != nil {
		observability.RecordMutation(string(action), observability.ResultError)
		return activity.Comment{}, fmt.Errorf("append comment: %w", err)
	}

	observability.RecordMutation(string(action), observability.ResultOK)
	slog.Info("activity_event", "event", "comment_added", "activity_id", rec.ID, "comment_id", c.ID, "author_id", c.AuthorID, "author_role", c.AuthorRole)
	recordAudit(ctx, deps.AuditStore, audit.NewEvent(input.Actor.ID, input.Actor.Role, audit.CategoryActivity, audit.ActionComment, now).
		WithResource(audit.ResourceActivity, rec.ID).
		WithSubject(rec.OwnerID))

	if input.Actor.IsStaff() && input.Actor.ID != rec.OwnerID {
		enqueueCommentNotification(ctx, rec, c, deps, now)
	}
	return c, nil
}

// enqueueCommentNotification records the owner's email notification. Failures are logged;
// the comment itself is already stored.
func enqueueCommentNotification(ctx context.Context, rec activity.Activity, c activity.Comment, deps AddCommentDeps, now time.Time) {
	if deps.OutboxStore == nil || deps.AccountStore == nil {
		return
	}
	owner, err := deps.AccountStore.GetByID(ctx, rec.OwnerID)
	if err != nil {
		slog.Warn("outbox_enqueue_skipped", "activity_id", rec.ID, "reason", "owner_not_found", "error", err)
		return
	}
	if !owner.IsActive() {
		return
	}

	entry, err := outbox.NewCommentNotification(generateID(deps.GenerateID), outbox.CommentNotification{
		ActivityID:   rec.ID,
		ActivityDate: week.FormatDate(rec.Date),
		LogType:      string(rec.LogType),
		AuthorName:   c.AuthorName,
		AuthorRole:   c.AuthorRole,
		Text:         c.Text,
		To:           owner.Email,
		ToName:       owner.DisplayName(),
	}, now)
	if err != nil {
		slog.Warn("outbox_enqueue_skipped", "activity_id", rec.ID, "reason", "invalid_notification", "error", err)
		return
	}
	if err := deps.OutboxStore.Save(ctx, entry); err != nil {
		slog.Error("outbox_enqueue_failed", "activity_id", rec.ID, "error", err)
		return
	}
	slog.Info("outbox_enqueued", "entry_id", entry.ID, "action_type", entry.ActionType, "activity_id", rec.ID)
}
