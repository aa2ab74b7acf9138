package services

import (
	"context"
	"fmt"
	"time"

	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/notify"
	"finboard/internal/storage"
)

// ReminderStore is the persistence the reminder processor reads and marks.
type ReminderStore interface {
	ListUsers(ctx context.Context) ([]core.User, error)
	AllCommitments(ctx context.Context, ownerID string) ([]core.Commitment, error)
	AllHistory(ctx context.Context, ownerID, commitmentID string) ([]core.HistoryEntry, error)
	storage.ReminderLog
}

// ReminderProcessor sends upcoming-payment reminders. Each commitment is
// reminded at most once per due month, and not at all when a payment was
// already recorded in that month. Claims are released when sending fails so
// the next run retries them.
type ReminderProcessor struct {
	store     ReminderStore
	notifier  notify.Notifier
	daysAhead int
	logger    *log.Logger
}

func NewReminderProcessor(store ReminderStore, notifier notify.Notifier, daysAhead int, logger *log.Logger) *ReminderProcessor {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReminderProcessor{
		store:     store,
		notifier:  notifier,
		daysAhead: daysAhead,
		logger:    logger.WithComponent(log.ComponentReminder),
	}
}

// ProcessDue sends the reminders due at now and returns how many payments
// were reminded. A failure for one user does not stop the others.
func (p *ReminderProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.notifier == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	users, err := p.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	p.logger.InfoContext(ctx, "Processing payment reminders",
		"users", len(users),
		"days_ahead", p.daysAhead,
		"processing_date", now.Format("2006-01-02"))

	reminded := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return reminded, ctx.Err()
		}
		n, err := p.remindUser(ctx, u, now)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to remind user",
				log.FieldOwnerID, u.ID,
				log.FieldError, err)
			continue
		}
		reminded += n
	}

	p.logger.InfoContext(ctx, "Reminder processing complete", "reminded", reminded)
	return reminded, nil
}

func (p *ReminderProcessor) remindUser(ctx context.Context, u core.User, now time.Time) (int, error) {
	commitments, err := p.store.AllCommitments(ctx, u.ID)
	if err != nil {
		return 0, fmt.Errorf("load commitments: %w", err)
	}

	var due []core.UpcomingPayment
	for _, up := range upcomingFrom(commitments, now.UTC(), p.daysAhead, p.logger) {
		period := core.MonthKey(up.DueOn)
		paid, err := p.paidInPeriod(ctx, u.ID, up.CommitmentID, period)
		if err != nil {
			p.release(ctx, due)
			return 0, err
		}
		if paid {
			continue
		}
		// Claim before sending so concurrent workers never double-notify.
		claimed, err := p.store.MarkReminderSent(ctx, up.CommitmentID, period, now)
		if err != nil {
			p.release(ctx, due)
			return 0, fmt.Errorf("mark reminder: %w", err)
		}
		if claimed {
			due = append(due, up)
		}
	}
	if len(due) == 0 {
		return 0, nil
	}

	if err := p.notifier.Notify(ctx, notify.Reminder{User: u, Payments: due}); err != nil {
		p.release(ctx, due)
		return 0, fmt.Errorf("notify via %s: %w", p.notifier.Name(), err)
	}

	p.logger.InfoContext(ctx, "Reminder sent",
		log.FieldOwnerID, u.ID,
		log.FieldOperation, log.OpRemind,
		"payments", len(due))
	return len(due), nil
}

func (p *ReminderProcessor) paidInPeriod(ctx context.Context, ownerID, commitmentID, period string) (bool, error) {
	history, err := p.store.AllHistory(ctx, ownerID, commitmentID)
	if err != nil {
		return false, fmt.Errorf("load history of %s: %w", commitmentID, err)
	}
	for _, h := range history {
		if !h.PaidDate.IsZero() && core.MonthKey(h.PaidDate) == period {
			return true, nil
		}
	}
	return false, nil
}

// release drops the claims of reminders that were not delivered.
func (p *ReminderProcessor) release(ctx context.Context, claimed []core.UpcomingPayment) {
	for _, up := range claimed {
		if err := p.store.ReleaseReminder(ctx, up.CommitmentID, core.MonthKey(up.DueOn)); err != nil {
			p.logger.WarnContext(ctx, "Failed to release reminder claim",
				log.FieldCommitmentID, up.CommitmentID,
				log.FieldError, err)
		}
	}
}
