package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"activitylog/internal/domain/account"
	"activitylog/internal/domain/audit"
)

// AccountStoreForLogin defines the store interface needed by Login.
type AccountStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	AccountID string
	Email     string
	Name      string
	Role      string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	AccountStore AccountStoreForLogin
	AuditStore   AuditRecorder
	Now          func() time.Time
}

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed attempts")
	ErrAccountDisabled    = errors.New("account is disabled")
)

// ExecuteLogin validates credentials and returns account info for session creation.
// PRE: Valid email and password provided
// POST: Returns account info on success, records failed login on failure
// INVARIANT: Locked and disabled accounts never authenticate
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := clock(deps.Now).now()
	email := account.NormalizeEmail(input.Email)

	acct, err := deps.AccountStore.GetByEmail(ctx, email)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "not_found")
		return LoginResult{}, ErrInvalidCredentials
	}

	if !acct.IsActive() {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "disabled")
		return LoginResult{}, ErrAccountDisabled
	}
	if acct.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "locked")
		return LoginResult{}, ErrAccountLocked
	}

	if err := acct.CheckPassword(input.Password); err != nil {
		acct.RecordFailedLogin(now)
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			slog.Error("auth_event", "event", "failed_login_save_failed", "account_id", acct.ID, "error", err)
		}
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "wrong_password", "failed_logins", acct.FailedLogins)
		if acct.IsLocked(now) {
			recordAudit(ctx, deps.AuditStore, audit.NewEvent(acct.ID, acct.Role, audit.CategorySecurity, audit.ActionLogin, now).
				WithSeverity(audit.SeverityWarning).
				WithResource(audit.ResourceAccount, acct.ID).
				WithDescription("account locked after repeated failed logins").
				WithRequest(input.IPAddress, input.UserAgent))
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	if acct.FailedLogins > 0 || !acct.LockedUntil.IsZero() {
		acct.ResetFailedLogins()
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			slog.Error("auth_event", "event", "failed_login_reset_failed", "account_id", acct.ID, "error", err)
		}
	}

	slog.Info("auth_event", "event", "login_success", "account_id", acct.ID, "role", acct.Role)
	recordAudit(ctx, deps.AuditStore, audit.NewEvent(acct.ID, acct.Role, audit.CategoryAccount, audit.ActionLogin, now).
		WithResource(audit.ResourceAccount, acct.ID).
		WithRequest(input.IPAddress, input.UserAgent))

	return LoginResult{
		AccountID: acct.ID,
		Email:     acct.Email,
		Name:      acct.DisplayName(),
		Role:      acct.Role,
	}, nil
}
