package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NoopSender logs sends without delivering them. Accepted requests are kept so
// development tooling and tests can inspect what would have gone out.
type NoopSender struct {
	mu   sync.Mutex
	sent []SendRequest
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send records the email but does not deliver it.
// PRE: req passes Validate
// POST: req is appended to Sent()
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	if err := req.Validate(); err != nil {
		return SendResult{}, err
	}
	s.mu.Lock()
	s.sent = append(s.sent, req)
	n := len(s.sent)
	s.mu.Unlock()

	slog.Info("email_event", "event", "noop_send", "to", req.To, "subject", req.Subject)
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", n),
		SentAt:    time.Now(),
	}, nil
}

// SendBatch records each request in order.
// POST: one result per request, or the first validation error
func (s *NoopSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	var results []SendResult
	for _, req := range reqs {
		res, err := s.Send(ctx, req)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Sent returns a copy of every accepted request.
func (s *NoopSender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SendRequest, len(s.sent))
	copy(out, s.sent)
	return out
}
