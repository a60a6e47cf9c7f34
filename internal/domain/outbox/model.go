package outbox

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Status constants for outbox entry lifecycle.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// Action type constants for the deliveries the outbox carries.
const (
	ActionTypeCommentNotification = "comment_notification"
)

// DefaultMaxAttempts is applied by Validate when MaxAttempts is unset.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrNotAbandonable  = errors.New("only failed or retrying entries can be abandoned")
	ErrEmptyRecipient  = errors.New("notification recipient is required")
)

// Entry is a pending side effect recorded in the same database as the change that caused it.
type Entry struct {
	ID              string
	ActionType      string // e.g. "comment_notification"
	Payload         string // JSON payload for replay
	Status          string // pending, retrying, done, failed, abandoned
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string // provider message ID once delivered
	ErrorMessage    string // last error message if failed
}

// CommentNotification is the payload of a comment_notification entry.
type CommentNotification struct {
	ActivityID   string `json:"activity_id"`
	ActivityDate string `json:"activity_date"`
	LogType      string `json:"log_type"`
	AuthorName   string `json:"author_name"`
	AuthorRole   string `json:"author_role"`
	Text         string `json:"text"`
	To           string `json:"to"`
	ToName       string `json:"to_name"`
}

// NewCommentNotification builds a pending entry carrying n.
// PRE: n.To is set
// POST: Returned entry passes Validate
func NewCommentNotification(id string, n CommentNotification, now time.Time) (Entry, error) {
	if strings.TrimSpace(n.To) == "" {
		return Entry{}, ErrEmptyRecipient
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		ID:          id,
		ActionType:  ActionTypeCommentNotification,
		Payload:     string(payload),
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
	}
	return e, e.Validate()
}

// DecodeCommentNotification parses the payload of a comment_notification entry.
func (e *Entry) DecodeCommentNotification() (CommentNotification, error) {
	var n CommentNotification
	if err := json.Unmarshal([]byte(e.Payload), &n); err != nil {
		return CommentNotification{}, err
	}
	return n, nil
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise; MaxAttempts defaulted when unset
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// CanRetry returns true if the entry can be retried.
// PRE: Status and Attempts fields are set
// POST: Returns true for pending/retrying with attempts < max
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying) && e.Attempts < e.MaxAttempts
}

// IsDue reports whether the backoff since the last attempt has elapsed.
// PRE: CanRetry() is true
func (e *Entry) IsDue(now time.Time, baseDelay, maxDelay time.Duration) bool {
	if e.Attempts == 0 || e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay)))
}

// IsTerminal returns true if the entry has reached a terminal state.
func (e *Entry) IsTerminal() bool {
	return e.Status == StatusDone || e.Status == StatusAbandoned || e.Status == StatusFailed
}

// MarkAttempt records a delivery attempt.
// PRE: Entry is in a retryable state
// POST: Attempts incremented, LastAttemptedAt updated, status set to retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry as delivered.
// POST: Status set to done, ErrorMessage cleared
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records a failed attempt. The entry becomes failed once attempts are exhausted.
// POST: ErrorMessage set; Status is failed iff Attempts >= MaxAttempts
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// MarkAbandoned stops further delivery attempts.
// PRE: Entry is failed or retrying
// POST: Status set to abandoned
func (e *Entry) MarkAbandoned() error {
	if e.Status != StatusFailed && e.Status != StatusRetrying {
		return ErrNotAbandonable
	}
	e.Status = StatusAbandoned
	return nil
}

// NextRetryDelay calculates the delay before the next retry attempt.
// Uses exponential backoff: 2^attempts * baseDelay, capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay time.Duration, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
