package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"activitylog/internal/domain/account"
)

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	GenerateID   func() string
	Now          func() time.Time
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteCreateAccount coordinates account creation.
// PRE: Valid email, password >= 12 chars, valid role
// POST: Account created with hashed password
// INVARIANT: Email must be unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (account.Account, error) {
	acct := account.Account{
		Email:     account.NormalizeEmail(input.Email),
		Name:      input.Name,
		Role:      input.Role,
		Status:    account.StatusActive,
		CreatedAt: clock(deps.Now).now(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, err
	}

	if _, err := deps.AccountStore.GetByEmail(ctx, acct.Email); err == nil {
		return account.Account{}, ErrEmailAlreadyExists
	}

	if err := acct.SetPassword(input.Password); err != nil {
		return account.Account{}, err
	}

	acct.ID = generateID(deps.GenerateID)
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}

	slog.Info("auth_event", "event", "account_created", "account_id", acct.ID, "role", acct.Role)
	return acct, nil
}

// ExecuteSeedAdmin creates a default admin account if no accounts exist.
// PRE: Database is initialized
// POST: Admin account created if count == 0
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	acct, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email:    email,
		Name:     "Administrator",
		Password: password,
		Role:     account.RoleAdmin,
	}, deps)
	if err != nil {
		return err
	}

	slog.Info("auth_event", "event", "admin_seeded", "account_id", acct.ID)
	return nil
}

func generateID(gen func() string) string {
	if gen == nil {
		return uuid.New().String()
	}
	return gen()
}
