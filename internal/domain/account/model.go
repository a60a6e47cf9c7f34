package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength = 254
	MaxNameLength  = 120
)

// Password and lockout parameters.
const (
	MinPasswordLength = 12
	BcryptCost        = 12
	MaxFailedLogins   = 5
	LockoutDuration   = 15 * time.Minute
)

// Role constants
const (
	RoleAdmin  = "admin"
	RoleCoach  = "coach"
	RoleClient = "client"
)

// Account status constants
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RoleCoach, RoleClient}

// Domain errors
var (
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrEmailTooLong     = errors.New("email cannot exceed 254 characters")
	ErrNameTooLong      = errors.New("name cannot exceed 120 characters")
	ErrInvalidRole      = errors.New("role must be one of: admin, coach, client")
	ErrInvalidStatus    = errors.New("status must be one of: active, disabled")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrDisabled         = errors.New("account is disabled")
	ErrLocked           = errors.New("account is temporarily locked")
)

// Account is a login identity. Clients, coaches and admins all hold one.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Status       string // active, disabled
	CreatedAt    time.Time
	FailedLogins int
	LockedUntil  time.Time
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	if len(a.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !isValidRole(a.Role) {
		return ErrInvalidRole
	}
	if a.Status != "" && a.Status != StatusActive && a.Status != StatusDisabled {
		return ErrInvalidStatus
	}
	return nil
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName returns Name, falling back to Email.
// INVARIANT: Account fields are not mutated
func (a *Account) DisplayName() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.Email
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: plaintext is non-empty and >= MinPasswordLength characters
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), BcryptCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the account is locked out at now.
// INVARIANT: Account fields are not mutated
func (a *Account) IsLocked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account once it
// reaches MaxFailedLogins.
// PRE: Account exists
// POST: FailedLogins incremented; LockedUntil set when the limit is reached
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= MaxFailedLogins {
		a.LockedUntil = now.Add(LockoutDuration)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
// PRE: Account exists
// POST: FailedLogins is 0, LockedUntil is zero
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// IsActive returns true unless the account has been disabled.
// INVARIANT: Account fields are not mutated
func (a *Account) IsActive() bool {
	return a.Status != StatusDisabled
}

// Disable prevents further logins.
// POST: Status is disabled
func (a *Account) Disable() {
	a.Status = StatusDisabled
}

// Enable re-activates a disabled account and clears any lockout.
// POST: Status is active, FailedLogins is 0
func (a *Account) Enable() {
	a.Status = StatusActive
	a.ResetFailedLogins()
}

// IsAdmin returns true if the account has admin role.
// INVARIANT: Account fields are not mutated
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsCoachOrAdmin returns true if the account has coach or admin role.
// INVARIANT: Account fields are not mutated
func (a *Account) IsCoachOrAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleCoach
}

// IsClient returns true if the account belongs to a program participant.
// INVARIANT: Account fields are not mutated
func (a *Account) IsClient() bool {
	return a.Role == RoleClient
}

func isValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
