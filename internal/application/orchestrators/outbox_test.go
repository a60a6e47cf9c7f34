package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"activitylog/internal/adapters/email"
	"activitylog/internal/domain/outbox"
)

type stubExecutor struct {
	calls int
	err   error
}

// Execute records the call and returns the configured error.
func (s *stubExecutor) Execute(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "ext-1", nil
}

func pendingEntry(t *testing.T, id string) outbox.Entry {
	t.Helper()
	e, err := outbox.NewCommentNotification(id, outbox.CommentNotification{
		ActivityID: "a1", ActivityDate: "2024-01-16", LogType: "Employment Search",
		AuthorName: "Casey Coach", AuthorRole: "coach", Text: "Great **job**", To: "pat@example.org", ToName: "Pat",
	}, fixedTime)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// TestOutboxProcessor_DeliversPending tests a successful delivery.
func TestOutboxProcessor_DeliversPending(t *testing.T) {
	store := newMockOutboxStore(pendingEntry(t, "ob-1"))
	exec := &stubExecutor{}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionTypeCommentNotification: exec}, fixedNow)

	n, err := p.ProcessPending(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("ProcessPending() = %d, %v", n, err)
	}
	got := store.entries["ob-1"]
	if got.Status != outbox.StatusDone || got.ExternalID != "ext-1" || got.Attempts != 1 {
		t.Errorf("entry after delivery = %+v", got)
	}
}

// TestOutboxProcessor_DueEntryBehindBackoffBatch tests that a full batch of entries still
// backing off does not hide a newer due entry.
func TestOutboxProcessor_DueEntryBehindBackoffBatch(t *testing.T) {
	var entries []outbox.Entry
	for _, id := range []string{"ob-1", "ob-2", "ob-3"} {
		e := pendingEntry(t, id)
		e.MarkAttempt(fixedTime)
		e.MarkFailed(errors.New("provider down"))
		entries = append(entries, e)
	}
	entries = append(entries, pendingEntry(t, "ob-4"))
	store := newMockOutboxStore(entries...)
	exec := &stubExecutor{}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionTypeCommentNotification: exec}, fixedNow)
	p.batchSize = 2

	n, err := p.ProcessPending(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("ProcessPending() = %d, %v", n, err)
	}
	if got := store.entries["ob-4"]; got.Status != outbox.StatusDone {
		t.Errorf("due entry status = %s, want done", got.Status)
	}
	if got := store.entries["ob-1"]; got.Attempts != 1 {
		t.Errorf("backing-off entry attempted again: attempts = %d", got.Attempts)
	}
}

// TestOutboxProcessor_BackoffAndExhaustion tests retry timing and the failed state.
func TestOutboxProcessor_BackoffAndExhaustion(t *testing.T) {
	entry := pendingEntry(t, "ob-1")
	entry.MaxAttempts = 2
	store := newMockOutboxStore(entry)
	exec := &stubExecutor{err: errors.New("provider down")}
	now := fixedTime
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionTypeCommentNotification: exec}, func() time.Time { return now })

	if _, err := p.ProcessPending(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := store.entries["ob-1"]; got.Status != outbox.StatusRetrying || got.ErrorMessage != "provider down" {
		t.Fatalf("after first failure = %+v", got)
	}

	// Backoff after one attempt is 2 * 30s.
	now = fixedTime.Add(59 * time.Second)
	if n, _ := p.ProcessPending(context.Background()); n != 0 || exec.calls != 1 {
		t.Errorf("entry retried before backoff elapsed: n=%d calls=%d", n, exec.calls)
	}

	now = fixedTime.Add(time.Minute)
	if n, _ := p.ProcessPending(context.Background()); n != 1 {
		t.Errorf("expected retry once backoff elapsed, got %d", n)
	}
	if got := store.entries["ob-1"]; got.Status != outbox.StatusFailed || got.Attempts != 2 {
		t.Errorf("after exhaustion = %+v", got)
	}
}

// TestOutboxProcessor_UnknownActionType tests entries without an executor.
func TestOutboxProcessor_UnknownActionType(t *testing.T) {
	entry := pendingEntry(t, "ob-1")
	entry.ActionType = "sms"
	store := newMockOutboxStore(entry)
	p := NewOutboxProcessor(store, nil, fixedNow)

	if _, err := p.ProcessPending(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := store.entries["ob-1"]; !strings.Contains(got.ErrorMessage, "no executor") || got.Attempts != 1 {
		t.Errorf("entry = %+v", got)
	}
}

// TestOutboxProcessor_ManualRetryAndAbandon tests the admin operations.
func TestOutboxProcessor_ManualRetryAndAbandon(t *testing.T) {
	failed := pendingEntry(t, "ob-1")
	failed.Status = outbox.StatusFailed
	failed.Attempts = 5
	done := pendingEntry(t, "ob-2")
	done.Status = outbox.StatusDone
	store := newMockOutboxStore(failed, done)
	exec := &stubExecutor{}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionTypeCommentNotification: exec}, fixedNow)

	got, err := p.ProcessSingle(context.Background(), "ob-1")
	if err != nil {
		t.Fatalf("ProcessSingle() error = %v", err)
	}
	if got.Status != outbox.StatusDone || got.Attempts != 6 {
		t.Errorf("manual retry result = %+v", got)
	}

	if _, err := p.ProcessSingle(context.Background(), "ob-2"); !errors.Is(err, ErrEntryTerminal) {
		t.Errorf("retry of done entry error = %v", err)
	}
	if err := p.AbandonEntry(context.Background(), "ob-2"); !errors.Is(err, outbox.ErrNotAbandonable) {
		t.Errorf("abandon done entry error = %v", err)
	}

	retrying := pendingEntry(t, "ob-3")
	retrying.Status = outbox.StatusRetrying
	store.entries["ob-3"] = retrying
	if err := p.AbandonEntry(context.Background(), "ob-3"); err != nil {
		t.Fatalf("AbandonEntry() error = %v", err)
	}
	if store.entries["ob-3"].Status != outbox.StatusAbandoned {
		t.Error("entry should be abandoned")
	}
}

// TestEmailExecutor_RendersNotification tests the email built from a comment notification.
func TestEmailExecutor_RendersNotification(t *testing.T) {
	sender := email.NewNoopSender()
	exec := &EmailExecutor{Sender: sender, BaseURL: "https://log.example.org/"}

	id, err := exec.Execute(context.Background(), pendingEntry(t, "ob-1").Payload)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if id == "" {
		t.Error("expected a message ID")
	}
	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d emails", len(sent))
	}
	msg := sent[0]
	if msg.To[0] != "pat@example.org" || msg.Subject != "New comment on your Employment Search entry for 2024-01-16" {
		t.Errorf("unexpected message: %+v", msg)
	}
	for _, want := range []string{"Hi Pat", "Casey Coach (coach)", "<strong>job</strong>", "https://log.example.org/activities/a1"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("HTML missing %q:\n%s", want, msg.HTML)
		}
	}

	if _, err := exec.Execute(context.Background(), "{not json"); err == nil {
		t.Error("expected error for malformed payload")
	}
}

// TestStartBackgroundWorker_Stops tests that closing stopCh ends the worker.
func TestStartBackgroundWorker_Stops(t *testing.T) {
	store := newMockOutboxStore(pendingEntry(t, "ob-1"))
	exec := &stubExecutor{}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{outbox.ActionTypeCommentNotification: exec}, nil)

	stop := make(chan struct{})
	done := StartBackgroundWorker(p, 10*time.Millisecond, stop)

	deadline := time.After(2 * time.Second)
	for store.status("ob-1") != outbox.StatusDone {
		select {
		case <-deadline:
			t.Fatal("worker never delivered the entry")
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
