// Package notify delivers upcoming-payment reminders over email, Telegram or
// the log.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finboard/internal/core"
	"finboard/internal/log"
)

// ErrNoAddress means the user has no destination for this channel.
var ErrNoAddress = errors.New("no destination for user")

// Reminder is one digest of payments due soon for a user.
type Reminder struct {
	User     core.User
	Payments []core.UpcomingPayment
}

// Subject is the one-line summary of the reminder.
func (r Reminder) Subject() string {
	if len(r.Payments) == 1 {
		return "Upcoming payment: " + r.Payments[0].PayFor
	}
	return fmt.Sprintf("%d upcoming payments", len(r.Payments))
}

// Body renders the reminder as plain text.
func (r Reminder) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", r.User.Name)
	b.WriteString("The following commitments are due soon:\n\n")
	for _, p := range r.Payments {
		when := fmt.Sprintf("in %d days", p.DueInDays)
		switch {
		case p.DueInDays == 0:
			when = "today"
		case p.DueInDays == 1:
			when = "tomorrow"
		case p.DueInDays < 0:
			when = fmt.Sprintf("%d days overdue", -p.DueInDays)
		}
		fmt.Fprintf(&b, "- %s: %s on %s (%s)\n", p.PayFor, p.EmiAmount.FormatINR(), p.DueOn, when)
	}
	b.WriteString("\nfinboard")
	return b.String()
}

// Notifier sends a reminder through one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the structured log.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotify)}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(ctx context.Context, r Reminder) error {
	for _, p := range r.Payments {
		n.logger.InfoContext(ctx, "Payment reminder",
			log.FieldOwnerID, r.User.ID,
			log.FieldCommitmentID, p.CommitmentID,
			"pay_for", p.PayFor,
			"due_on", p.DueOn.String(),
			log.FieldAmount, p.EmiAmount.String())
	}
	return nil
}

// Multi fans a reminder out to every notifier. A channel without a
// destination for the user is skipped; other failures are joined.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Notify(ctx context.Context, r Reminder) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil && !errors.Is(err, ErrNoAddress) {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
