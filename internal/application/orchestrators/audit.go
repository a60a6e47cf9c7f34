package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"activitylog/internal/adapters/observability"
	"activitylog/internal/domain/audit"
	"activitylog/internal/domain/policy"
)

// AuditRecorder persists audit events. A nil recorder disables auditing.
type AuditRecorder interface {
	Save(ctx context.Context, event audit.Event) error
}

// recordAudit writes e, logging rather than failing the caller when the write fails.
func recordAudit(ctx context.Context, rec AuditRecorder, e audit.Event) {
	if rec == nil {
		return
	}
	if err := rec.Save(ctx, e); err != nil {
		slog.Error("audit_event", "event", "audit_write_failed", "action", e.Action, "resource_id", e.ResourceID, "error", err)
	}
}

// policyResult maps an authorization error to its metric label.
func policyResult(err error) string {
	switch {
	case err == nil:
		return observability.ResultOK
	case errors.Is(err, policy.ErrEditWindowExpired):
		return observability.ResultExpired
	case errors.Is(err, policy.ErrForbidden), errors.Is(err, policy.ErrUnauthenticated):
		return observability.ResultDenied
	default:
		return observability.ResultError
	}
}

// recordDenied counts a refused mutation and leaves a security trail for it.
func recordDenied(ctx context.Context, rec AuditRecorder, actor policy.Actor, action policy.Action, resourceID, subjectID string, err error, clk clock) {
	observability.RecordMutation(string(action), policyResult(err))
	slog.Info("activity_event", "event", "activity_denied", "action", action, "actor_id", actor.ID, "activity_id", resourceID, "reason", err.Error())
	if errors.Is(err, policy.ErrForbidden) {
		recordAudit(ctx, rec, audit.NewEvent(actor.ID, actor.Role, audit.CategorySecurity, audit.ActionDenied, clk.now()).
			WithSeverity(audit.SeverityWarning).
			WithResource(audit.ResourceActivity, resourceID).
			WithSubject(subjectID).
			WithDescription(string(action)+": "+err.Error()))
	}
}

// clock adapts an optional Now func.
type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
