package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"finboard/internal/log"
)

// ReminderRunner sends the reminders due at a given time.
type ReminderRunner interface {
	ProcessDue(ctx context.Context, now time.Time) (int, error)
}

// ReminderScheduler runs a ReminderRunner on a cron schedule.
type ReminderScheduler struct {
	cron   *cron.Cron
	runner ReminderRunner
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	ctx     context.Context
}

// NewReminderScheduler parses spec as a standard five-field cron expression.
func NewReminderScheduler(spec string, runner ReminderRunner, logger *log.Logger) (*ReminderScheduler, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &ReminderScheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		runner: runner,
		logger: logger.WithComponent(log.ComponentReminder),
		now:    time.Now,
		ctx:    context.Background(),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins the schedule. Returns an error if already running.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("reminder scheduler is already running")
	}
	s.running = true
	s.ctx = ctx
	s.cron.Start()

	if entries := s.cron.Entries(); len(entries) > 0 {
		s.logger.InfoContext(ctx, "Reminder scheduler started", "next_run", entries[0].Next.Format(time.RFC3339))
	}
	return nil
}

// Stop halts the schedule and waits for a running job, or for ctx.
func (s *ReminderScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.InfoContext(ctx, "Reminder scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Reminder scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the schedule is active.
func (s *ReminderScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce runs the reminder job immediately.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (int, error) {
	count, err := s.runner.ProcessDue(ctx, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Reminder run failed", log.FieldError, err)
		return count, err
	}
	s.logger.InfoContext(ctx, "Reminder run complete", "reminded", count)
	return count, nil
}

func (s *ReminderScheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	_, _ = s.RunOnce(ctx)
}
