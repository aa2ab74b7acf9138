package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finboard/internal/core"
	"finboard/internal/notify"
	"finboard/internal/storage/memory"
)

type recordingNotifier struct {
	mu        sync.Mutex
	reminders []notify.Reminder
	err       error
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(_ context.Context, r notify.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.reminders = append(n.reminders, r)
	return nil
}

func TestReminderProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	auth := NewAuthService(store, testSecret, time.Hour, nil)
	commitments := NewCommitmentService(store, nil, nil, nil)

	u1, err := auth.Register(ctx, core.User{Name: "Asha", Email: "asha@example.com", NotifyEmail: true}, "s3cretpass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := auth.Register(ctx, core.User{Name: "Ravi", Email: "ravi@example.com"}, "s3cretpass"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	due := newCommitment(u1.ID, 12, "1000")
	due.DueDate = 5
	notYet := newCommitment(u1.ID, 12, "500")
	notYet.DueDate = 25
	canceled := newCommitment(u1.ID, 12, "500")
	canceled.DueDate = 4
	canceled.Status = core.StatusCanceled
	for _, c := range []core.Commitment{due, notYet, canceled} {
		mustCreateCommitment(t, commitments, c)
	}

	notifier := &recordingNotifier{}
	p := NewReminderProcessor(store, notifier, 3, nil)
	now := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)

	n, err := p.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if n != 1 || len(notifier.reminders) != 1 {
		t.Fatalf("ProcessDue() = %d reminders, notified %d, want 1", n, len(notifier.reminders))
	}
	r := notifier.reminders[0]
	if r.User.ID != u1.ID || r.Payments[0].DueInDays != 2 || r.Payments[0].PayFor != "Car loan" {
		t.Errorf("reminder = %+v", r)
	}

	// Same month again: already reminded.
	n, err = p.ProcessDue(ctx, now.Add(24*time.Hour))
	if err != nil || n != 0 {
		t.Errorf("second ProcessDue() = %d, %v, want 0", n, err)
	}

	// Next month's installment is a new period.
	n, err = p.ProcessDue(ctx, time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC))
	if err != nil || n != 1 {
		t.Errorf("next month ProcessDue() = %d, %v, want 1", n, err)
	}
}

func TestReminderProcessor_NotifierFailureContinues(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	auth := NewAuthService(store, testSecret, time.Hour, nil)
	commitments := NewCommitmentService(store, nil, nil, nil)
	u, _ := auth.Register(ctx, core.User{Name: "Asha", Email: "asha@example.com"}, "s3cretpass")
	c := newCommitment(u.ID, 12, "1000")
	c.DueDate = 5
	mustCreateCommitment(t, commitments, c)

	notifier := &recordingNotifier{err: errors.New("smtp down")}
	p := NewReminderProcessor(store, notifier, 3, nil)
	now := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	n, err := p.ProcessDue(ctx, now)
	if err != nil || n != 0 {
		t.Errorf("ProcessDue() = %d, %v, want 0 and no error", n, err)
	}

	// The failed delivery must not use up the month's reminder.
	notifier.err = nil
	n, err = p.ProcessDue(ctx, now.Add(time.Hour))
	if err != nil || n != 1 || len(notifier.reminders) != 1 {
		t.Errorf("retry ProcessDue() = %d, %v, notified %d, want 1", n, err, len(notifier.reminders))
	}
}

// failingMarkStore fails to record the reminder of one commitment.
type failingMarkStore struct {
	*memory.Store
	failFor string
}

func (s *failingMarkStore) MarkReminderSent(ctx context.Context, commitmentID, period string, at time.Time) (bool, error) {
	if commitmentID == s.failFor {
		return false, errors.New("disk full")
	}
	return s.Store.MarkReminderSent(ctx, commitmentID, period, at)
}

func TestReminderProcessor_MarkFailureReleasesClaims(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	auth := NewAuthService(store, testSecret, time.Hour, nil)
	commitments := NewCommitmentService(store, nil, nil, nil)
	u, _ := auth.Register(ctx, core.User{Name: "Asha", Email: "asha@example.com"}, "s3cretpass")

	first := newCommitment(u.ID, 12, "1000")
	first.DueDate = 4
	second := newCommitment(u.ID, 12, "500")
	second.DueDate = 5
	mustCreateCommitment(t, commitments, first)
	c2 := mustCreateCommitment(t, commitments, second)

	notifier := &recordingNotifier{}
	now := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	broken := NewReminderProcessor(&failingMarkStore{Store: store, failFor: c2.ID}, notifier, 3, nil)
	if n, err := broken.ProcessDue(ctx, now); err != nil || n != 0 {
		t.Fatalf("ProcessDue() = %d, %v, want 0", n, err)
	}

	p := NewReminderProcessor(store, notifier, 3, nil)
	n, err := p.ProcessDue(ctx, now)
	if err != nil || n != 2 {
		t.Errorf("ProcessDue() after recovery = %d, %v, want both reminders", n, err)
	}
}

func TestReminderProcessor_SkipsPaidInstallment(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	auth := NewAuthService(store, testSecret, time.Hour, nil)
	commitments := NewCommitmentService(store, nil, nil, nil)
	u, _ := auth.Register(ctx, core.User{Name: "Asha", Email: "asha@example.com"}, "s3cretpass")

	c := newCommitment(u.ID, 12, "1000")
	c.DueDate = 20
	created := mustCreateCommitment(t, commitments, c)
	early := payment(u.ID, created.ID, "1000")
	early.PaidDate = core.NewDate(2024, 1, 10)
	if _, err := commitments.AddPayment(ctx, early); err != nil {
		t.Fatal(err)
	}

	notifier := &recordingNotifier{}
	p := NewReminderProcessor(store, notifier, 7, nil)
	n, err := p.ProcessDue(ctx, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC))
	if err != nil || n != 0 {
		t.Errorf("ProcessDue() = %d, %v, want no reminder for a paid month", n, err)
	}

	n, err = p.ProcessDue(ctx, time.Date(2024, 2, 15, 8, 0, 0, 0, time.UTC))
	if err != nil || n != 1 {
		t.Errorf("next month ProcessDue() = %d, %v, want 1", n, err)
	}
}

func TestReminderProcessor_NotInitialized(t *testing.T) {
	p := NewReminderProcessor(nil, nil, 3, nil)
	if _, err := p.ProcessDue(context.Background(), time.Now()); err == nil {
		t.Error("ProcessDue() without store should fail")
	}
}
