package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"activitylog/internal/domain/account"
	"activitylog/internal/domain/audit"
	"activitylog/internal/domain/client"
	"activitylog/internal/domain/policy"
)

// ClientStoreForOrchestrator defines the client profile operations orchestrators need.
type ClientStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (client.Client, error)
	Save(ctx context.Context, c client.Client) error
}

// AccountStoreForClient defines the account operations needed to manage client logins.
type AccountStoreForClient interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// RegisterClientInput carries input for registering a program participant.
type RegisterClientInput struct {
	Actor      policy.Actor
	Name       string
	Email      string
	Phone      string
	Program    string
	CoachID    string // defaults to the acting coach
	CaseNumber string
	Password   string
}

// RegisterClientDeps holds dependencies for RegisterClient.
type RegisterClientDeps struct {
	AccountStore AccountStoreForClient
	ClientStore  ClientStoreForOrchestrator
	AuditStore   AuditRecorder
	GenerateID   func() string
	Now          func() time.Time
}

// ErrClientNotFound is returned when an activity names an owner with no client profile.
var ErrClientNotFound = errors.New("client not found")

// ErrClientArchived is returned when new activity is logged for an archived client.
var ErrClientArchived = errors.New("client is archived")

// ExecuteRegisterClient creates a client login and its case profile.
// PRE: Actor is a coach or admin
// POST: account (role client) and profile share one ID
// INVARIANT: Email must be unique across accounts
func ExecuteRegisterClient(ctx context.Context, input RegisterClientInput, deps RegisterClientDeps) (client.Client, error) {
	if !input.Actor.Authenticated() {
		return client.Client{}, policy.ErrUnauthenticated
	}
	if !input.Actor.IsStaff() {
		return client.Client{}, fmt.Errorf("%w: only staff can register clients", policy.ErrForbidden)
	}
	now := clock(deps.Now).now()

	coachID := strings.TrimSpace(input.CoachID)
	if coachID == "" && input.Actor.Role == account.RoleCoach {
		coachID = input.Actor.ID
	}

	acct := account.Account{
		ID:        generateID(deps.GenerateID),
		Email:     account.NormalizeEmail(input.Email),
		Name:      strings.TrimSpace(input.Name),
		Role:      account.RoleClient,
		Status:    account.StatusActive,
		CreatedAt: now,
	}
	if err := acct.Validate(); err != nil {
		return client.Client{}, err
	}
	profile := client.Client{
		ID:         acct.ID,
		Name:       acct.Name,
		Email:      acct.Email,
		Phone:      strings.TrimSpace(input.Phone),
		Program:    strings.ToLower(strings.TrimSpace(input.Program)),
		CoachID:    coachID,
		CaseNumber: strings.TrimSpace(input.CaseNumber),
		Status:     client.StatusActive,
		CreatedAt:  now,
	}
	if err := profile.Validate(); err != nil {
		return client.Client{}, err
	}

	if _, err := deps.AccountStore.GetByEmail(ctx, acct.Email); err == nil {
		return client.Client{}, ErrEmailAlreadyExists
	}
	if input.Password != "" {
		if err := acct.SetPassword(input.Password); err != nil {
			return client.Client{}, err
		}
	}

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return client.Client{}, fmt.Errorf("save client account: %w", err)
	}
	if err := deps.ClientStore.Save(ctx, profile); err != nil {
		acct.Disable()
		if derr := deps.AccountStore.Save(ctx, acct); derr != nil {
			slog.Error("client_event", "event", "orphan_account_disable_failed", "client_id", acct.ID, "error", derr)
		}
		return client.Client{}, fmt.Errorf("save client profile: %w", err)
	}

	slog.Info("client_event", "event", "client_registered", "client_id", profile.ID, "program", profile.Program, "coach_id", coachID, "actor_id", input.Actor.ID)
	recordAudit(ctx, deps.AuditStore, audit.NewEvent(input.Actor.ID, input.Actor.Role, audit.CategoryClient, audit.ActionCreate, now).
		WithResource(audit.ResourceClient, profile.ID).
		WithSubject(profile.ID))

	return profile, nil
}

// ArchiveClientInput carries input for archiving a client.
type ArchiveClientInput struct {
	Actor    policy.Actor
	ClientID string
}

// ExecuteArchiveClient archives the profile and disables the client's login.
// PRE: Actor is an admin, or the client's assigned coach
// POST: profile archived and account disabled; activities are kept
func ExecuteArchiveClient(ctx context.Context, input ArchiveClientInput, deps RegisterClientDeps) (client.Client, error) {
	if !input.Actor.Authenticated() {
		return client.Client{}, policy.ErrUnauthenticated
	}
	if !input.Actor.IsStaff() {
		return client.Client{}, fmt.Errorf("%w: only staff can archive clients", policy.ErrForbidden)
	}

	profile, err := deps.ClientStore.GetByID(ctx, input.ClientID)
	if err != nil {
		return client.Client{}, fmt.Errorf("get client %s: %w", input.ClientID, err)
	}
	if input.Actor.Role == account.RoleCoach && !profile.AssignedTo(input.Actor.ID) {
		return client.Client{}, fmt.Errorf("%w: client is assigned to another coach", policy.ErrForbidden)
	}
	if err := profile.Archive(); err != nil {
		return client.Client{}, err
	}
	if err := deps.ClientStore.Save(ctx, profile); err != nil {
		return client.Client{}, err
	}

	if acct, err := deps.AccountStore.GetByID(ctx, profile.ID); err == nil {
		acct.Disable()
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return client.Client{}, fmt.Errorf("disable client account: %w", err)
		}
	} else {
		slog.Warn("client_event", "event", "archive_account_missing", "client_id", profile.ID, "error", err)
	}

	now := clock(deps.Now).now()
	slog.Info("client_event", "event", "client_archived", "client_id", profile.ID, "actor_id", input.Actor.ID)
	recordAudit(ctx, deps.AuditStore, audit.NewEvent(input.Actor.ID, input.Actor.Role, audit.CategoryClient, audit.ActionArchive, now).
		WithResource(audit.ResourceClient, profile.ID).
		WithSubject(profile.ID))
	return profile, nil
}
