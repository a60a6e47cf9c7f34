package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// resendBatchLimit is the most emails Resend accepts per batch call.
const resendBatchLimit = 100

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client  *resend.Client
	from    string
	replyTo string
}

// NewResendSender creates a sender with default from and reply-to addresses.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
// POST: Returns a ready-to-use sender
func NewResendSender(apiKey, from, replyTo string) *ResendSender {
	return &ResendSender{
		client:  resend.NewClient(apiKey),
		from:    from,
		replyTo: replyTo,
	}
}

// Send sends a single email via Resend.
// PRE: req passes Validate
// POST: Email is queued for delivery; returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := req.Validate(); err != nil {
		return SendResult{}, err
	}
	sent, err := s.client.Emails.SendWithContext(ctx, s.params(req))
	if err != nil {
		slog.Error("email_event", "event", "resend_send_failed", "error", err, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}

	slog.Info("email_event", "event", "resend_sent", "message_id", sent.Id, "subject", req.Subject)
	return SendResult{MessageID: sent.Id, SentAt: time.Now()}, nil
}

// SendBatch sends multiple emails via Resend's batch API, chunked to the provider limit.
// POST: results are in request order; on error, results hold the chunks already accepted
func (s *ResendSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	for _, req := range reqs {
		if err := req.Validate(); err != nil {
			return nil, err
		}
	}

	var results []SendResult
	for i := 0; i < len(reqs); i += resendBatchLimit {
		chunk := reqs[i:min(i+resendBatchLimit, len(reqs))]

		params := make([]*resend.SendEmailRequest, 0, len(chunk))
		for _, req := range chunk {
			params = append(params, s.params(req))
		}

		resp, err := s.client.Batch.SendWithContext(ctx, params)
		if err != nil {
			slog.Error("email_event", "event", "resend_batch_failed", "error", err, "batch_size", len(chunk))
			return results, fmt.Errorf("resend batch send failed: %w", err)
		}
		for _, item := range resp.Data {
			results = append(results, SendResult{MessageID: item.Id, SentAt: time.Now()})
		}
		slog.Info("email_event", "event", "resend_batch_sent", "count", len(chunk), "total_sent", len(results))
	}
	return results, nil
}

func (s *ResendSender) params(req SendRequest) *resend.SendEmailRequest {
	p := &resend.SendEmailRequest{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		ReplyTo: req.ReplyTo,
	}
	if p.From == "" {
		p.From = s.from
	}
	if p.ReplyTo == "" {
		p.ReplyTo = s.replyTo
	}
	return p
}
