package email

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Request validation errors.
var (
	ErrNoRecipients = errors.New("email needs at least one recipient")
	ErrEmptySubject = errors.New("email subject is required")
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string // Recipient email addresses
	From    string   // Sender address; the sender's default when empty
	Subject string
	HTML    string
	ReplyTo string // The sender's default when empty
}

// Validate checks that the request can be handed to a provider.
func (r SendRequest) Validate() error {
	if len(r.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range r.To {
		if strings.TrimSpace(to) == "" {
			return ErrNoRecipients
		}
	}
	if strings.TrimSpace(r.Subject) == "" {
		return ErrEmptySubject
	}
	return nil
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender is the interface for sending emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}
