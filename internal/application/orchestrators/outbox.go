package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"activitylog/internal/adapters/email"
	"activitylog/internal/adapters/observability"
	outboxStore "activitylog/internal/adapters/storage/outbox"
	domain "activitylog/internal/domain/outbox"
)

// Outbox delivery results recorded on outbox_deliveries_total.
const (
	outboxDelivered = "delivered"
	outboxRetrying  = "retrying"
	outboxFailed    = "failed"
)

// ErrEntryTerminal is returned when a finished entry is retried by hand.
var ErrEntryTerminal = errors.New("outbox entry is in a terminal state")

// OutboxProcessor delivers pending outbox entries with exponential backoff.
type OutboxProcessor struct {
	store     outboxStore.Store
	executors map[string]ActionExecutor
	now       clock
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given payload.
	// Returns the provider's ID for the delivery and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// NewOutboxProcessor creates a new outbox processor. now may be nil.
func NewOutboxProcessor(store outboxStore.Store, executors map[string]ActionExecutor, now func() time.Time) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       now,
		baseDelay: 30 * time.Second,
		maxDelay:  time.Hour,
		batchSize: 25,
	}
}

// ProcessPending attempts up to one batch of due entries. Entries still backing off are
// paged past, so they never hold back newer due entries.
// PRE: Context is valid
// POST: each attempted entry is saved as done, retrying or failed; returns the number attempted
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (int, error) {
	now := p.now.now()
	attempted := 0
	var cursor outboxStore.Cursor
	for attempted < p.batchSize {
		entries, err := p.store.ListPending(ctx, cursor, p.batchSize)
		if err != nil {
			return attempted, fmt.Errorf("list pending outbox entries: %w", err)
		}
		for _, entry := range entries {
			cursor = outboxStore.CursorAt(entry)
			if !entry.CanRetry() || !entry.IsDue(now, p.baseDelay, p.maxDelay) {
				continue
			}
			attempted++
			if err := p.attempt(ctx, entry); err != nil {
				slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
			}
			if attempted == p.batchSize {
				break
			}
		}
		if len(entries) < p.batchSize {
			break
		}
	}
	return attempted, nil
}

// ProcessSingle manually processes a single outbox entry (for admin retry), ignoring backoff.
// PRE: entryID is non-empty
// POST: Entry is attempted once and saved
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.IsTerminal() && entry.Status != domain.StatusFailed {
		return domain.Entry{}, fmt.Errorf("%w: %s is %s", ErrEntryTerminal, entryID, entry.Status)
	}
	if entry.Status == domain.StatusFailed {
		// A manual retry grants one more attempt.
		entry.Status = domain.StatusRetrying
		entry.MaxAttempts = entry.Attempts + 1
	}
	if err := p.attempt(ctx, entry); err != nil {
		return domain.Entry{}, err
	}
	return p.store.GetByID(ctx, entryID)
}

// AbandonEntry marks an entry as abandoned by admin.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if err := entry.MarkAbandoned(); err != nil {
		return err
	}
	slog.Info("outbox_abandoned", "entry_id", entry.ID, "attempts", entry.Attempts)
	return p.store.Save(ctx, entry)
}

func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) error {
	entry.MarkAttempt(p.now.now())

	executor, ok := p.executors[entry.ActionType]
	var externalID string
	var err error
	if !ok {
		err = fmt.Errorf("no executor registered for action type: %s", entry.ActionType)
	} else {
		externalID, err = executor.Execute(ctx, entry.Payload)
	}

	switch {
	case err == nil:
		entry.MarkSuccess(externalID)
		observability.RecordOutboxDelivery(outboxDelivered)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	default:
		entry.MarkFailed(err)
		if entry.Status == domain.StatusFailed {
			observability.RecordOutboxDelivery(outboxFailed)
		} else {
			observability.RecordOutboxDelivery(outboxRetrying)
		}
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "status", entry.Status, "error", err.Error())
	}

	return p.store.Save(ctx, entry)
}

// --- Email Executor ---

// EmailExecutor delivers comment notifications by email.
type EmailExecutor struct {
	Sender  email.Sender
	BaseURL string // link target for the activity; omitted when empty
}

// Execute sends the notification described by payload.
// PRE: payload is a JSON CommentNotification
// POST: email accepted by the sender; returns its message ID
// INVARIANT: outbox entry status managed by caller
func (e *EmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	entry := domain.Entry{Payload: payload}
	n, err := entry.DecodeCommentNotification()
	if err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}

	res, err := e.Sender.Send(ctx, email.SendRequest{
		To:      []string{n.To},
		Subject: CommentNotificationSubject(n),
		HTML:    e.commentNotificationHTML(n),
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// CommentNotificationSubject is the subject line of a comment notification.
func CommentNotificationSubject(n domain.CommentNotification) string {
	return fmt.Sprintf("New comment on your %s entry for %s", n.LogType, n.ActivityDate)
}

func (e *EmailExecutor) commentNotificationHTML(n domain.CommentNotification) string {
	var b strings.Builder
	greeting := n.ToName
	if greeting == "" {
		greeting = "there"
	}
	fmt.Fprintf(&b, "<p>Hi %s,</p>\n", html.EscapeString(greeting))
	fmt.Fprintf(&b, "<p>%s (%s) commented on your %s entry for %s:</p>\n",
		html.EscapeString(n.AuthorName), html.EscapeString(n.AuthorRole),
		html.EscapeString(n.LogType), html.EscapeString(n.ActivityDate))
	b.WriteString("<blockquote>\n")
	b.WriteString(email.RenderMarkdown(n.Text))
	b.WriteString("</blockquote>\n")
	if e.BaseURL != "" {
		link := strings.TrimRight(e.BaseURL, "/") + "/activities/" + n.ActivityID
		fmt.Fprintf(&b, "<p><a href=\"%s\">View the activity</a></p>\n", html.EscapeString(link))
	}
	return b.String()
}

// --- Background Worker ---

// StartBackgroundWorker starts a background goroutine that periodically processes pending outbox entries.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed; done is closed after the worker exits
func StartBackgroundWorker(processor *OutboxProcessor, interval time.Duration, stopCh <-chan struct{}) (done <-chan struct{}) {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if n, err := processor.ProcessPending(ctx); err != nil {
					slog.Error("outbox_background_process_failed", "error", err.Error())
				} else if n > 0 {
					slog.Info("outbox_background_processed", "attempted", n)
				}
				cancel()
			case <-stopCh:
				slog.Info("outbox_background_worker_stopped")
				return
			}
		}
	}()
	return finished
}
