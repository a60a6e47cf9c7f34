package client

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength       = 100
	MaxPhoneLength      = 32
	MaxCaseNumberLength = 40
)

// Status constants
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Program constants. FSET is the Food Stamp Employment and Training program; W2 is the
// Wisconsin Works cash assistance program.
const (
	ProgramFSET = "fset"
	ProgramW2   = "w2"
)

// Domain errors
var (
	ErrEmptyID         = errors.New("client ID is required")
	ErrEmptyName       = errors.New("client name cannot be empty")
	ErrNameTooLong     = errors.New("client name cannot exceed 100 characters")
	ErrInvalidEmail    = errors.New("client email must be valid")
	ErrPhoneTooLong    = errors.New("phone cannot exceed 32 characters")
	ErrCaseTooLong     = errors.New("case number cannot exceed 40 characters")
	ErrInvalidProgram  = errors.New("program must be 'fset' or 'w2'")
	ErrInvalidStatus   = errors.New("status must be 'active' or 'archived'")
	ErrAlreadyArchived = errors.New("client is already archived")
	ErrNotArchived     = errors.New("client is not archived")
)

// Client is the case profile of a program participant. ID is the participant's account ID,
// which is also the OwnerID on their activities.
type Client struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Program    string
	CoachID    string
	CaseNumber string
	Status     string
	CreatedAt  time.Time
}

// Validate checks if the Client has valid data.
// PRE: Client struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', Name must not be empty
func (c *Client) Validate() error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !strings.Contains(c.Email, "@") {
		return ErrInvalidEmail
	}
	if len(c.Phone) > MaxPhoneLength {
		return ErrPhoneTooLong
	}
	if len(c.CaseNumber) > MaxCaseNumberLength {
		return ErrCaseTooLong
	}
	if c.Program != ProgramFSET && c.Program != ProgramW2 {
		return ErrInvalidProgram
	}
	if c.Status != StatusActive && c.Status != StatusArchived {
		return ErrInvalidStatus
	}
	return nil
}

// IsArchived returns true if the client is archived.
// INVARIANT: Status field is not mutated
func (c *Client) IsArchived() bool {
	return c.Status == StatusArchived
}

// AssignedTo reports whether coachID is the client's assigned coach.
// INVARIANT: Client fields are not mutated
func (c *Client) AssignedTo(coachID string) bool {
	return coachID != "" && c.CoachID == coachID
}

// Archive closes the case.
// PRE: Client is not already archived
// POST: Status is set to archived
func (c *Client) Archive() error {
	if c.Status == StatusArchived {
		return ErrAlreadyArchived
	}
	c.Status = StatusArchived
	return nil
}

// Restore re-opens an archived case.
// PRE: Client is currently archived
// POST: Status is set to active
func (c *Client) Restore() error {
	if c.Status != StatusArchived {
		return ErrNotArchived
	}
	c.Status = StatusActive
	return nil
}
