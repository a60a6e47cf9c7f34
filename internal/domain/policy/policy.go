package policy

import (
	"errors"
	"fmt"
	"time"

	"activitylog/internal/domain/account"
	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/week"
)

// Action names an operation on an activity record.
type Action string

// Action constants
const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionComment Action = "comment"
)

// Authorization errors. Each is distinct so callers can tell "never allowed" from
// "no longer allowed".
var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("not permitted to access this activity")
	ErrEditWindowExpired = errors.New("activity is outside the editable window")
	ErrUnknownAction     = errors.New("unknown action")
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role string
}

// Authenticated reports whether the actor carries an identity.
func (a Actor) Authenticated() bool {
	return a.ID != ""
}

// IsStaff returns true for coaches and admins.
func (a Actor) IsStaff() bool {
	return a.Role == account.RoleCoach || a.Role == account.RoleAdmin
}

// Authorize decides whether actor may perform action on rec at time now.
// For ActionCreate, rec is the record about to be stored.
// PRE: none
// POST: nil when permitted; otherwise wraps exactly one of ErrUnauthenticated, ErrForbidden,
// ErrEditWindowExpired or ErrUnknownAction
func Authorize(actor Actor, action Action, rec activity.Activity, now time.Time) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if !isKnown(action) {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	switch {
	case actor.Role == account.RoleClient:
		if rec.OwnerID != actor.ID {
			return fmt.Errorf("%w: activity belongs to another client", ErrForbidden)
		}
	case actor.IsStaff():
		// Staff may act on any client's record.
	default:
		return fmt.Errorf("%w: role %q", ErrForbidden, actor.Role)
	}

	if !isMutation(action) {
		return nil
	}
	if !week.IsEditable(rec.Date, now) {
		return fmt.Errorf("%w: week of %s", ErrEditWindowExpired, week.FormatDate(week.Start(rec.Date)))
	}
	return nil
}

// AuthorizeMove checks an update that may change the record's date. Both the stored record
// and its updated form must pass.
// PRE: before and after share OwnerID
// POST: same error contract as Authorize
func AuthorizeMove(actor Actor, before, after activity.Activity, now time.Time) error {
	if err := Authorize(actor, ActionUpdate, before, now); err != nil {
		return err
	}
	if after.Date.Equal(before.Date) {
		return nil
	}
	return Authorize(actor, ActionUpdate, after, now)
}

// CanViewOwner reports whether actor may list activities belonging to ownerID.
func CanViewOwner(actor Actor, ownerID string) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if actor.IsStaff() || (actor.Role == account.RoleClient && actor.ID == ownerID) {
		return nil
	}
	return ErrForbidden
}

func isMutation(a Action) bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

func isKnown(a Action) bool {
	switch a {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionComment:
		return true
	}
	return false
}
