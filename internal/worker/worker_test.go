package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
)

type fakeRecomputer struct {
	calls []string
	err   error
}

func (f *fakeRecomputer) Recompute(_ context.Context, ownerID, id string) (core.Commitment, error) {
	f.calls = append(f.calls, ownerID+"/"+id)
	if f.err != nil {
		return core.Commitment{}, f.err
	}
	return core.Commitment{ID: id, Status: core.StatusOngoing}, nil
}

type fakeExporter struct {
	handled []amqp.EventKind
	err     error
}

func (f *fakeExporter) Handles(kind amqp.EventKind) bool {
	return kind == amqp.KindExpenseExport || kind == amqp.KindPayment
}

func (f *fakeExporter) Handle(_ context.Context, event *amqp.LedgerEvent) error {
	f.handled = append(f.handled, event.Kind)
	return f.err
}

func TestLedgerWorker_HandleEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		event        *amqp.LedgerEvent
		recomputeErr error
		exporter     *fakeExporter
		wantErr      bool
		wantCalls    int
		wantExported int
	}{
		{
			name:      "recompute",
			event:     amqp.NewLedgerEvent(amqp.KindRecompute, "u1", "c1", ""),
			exporter:  &fakeExporter{},
			wantCalls: 1,
		},
		{
			name:         "recompute of deleted commitment is dropped",
			event:        amqp.NewLedgerEvent(amqp.KindRecompute, "u1", "c1", ""),
			recomputeErr: core.ErrNotFound,
			wantCalls:    1,
		},
		{
			name:         "recompute failure requeues",
			event:        amqp.NewLedgerEvent(amqp.KindRecompute, "u1", "c1", ""),
			recomputeErr: errors.New("database locked"),
			wantErr:      true,
			wantCalls:    1,
		},
		{
			name:         "payment goes to exporter",
			event:        amqp.NewLedgerEvent(amqp.KindPayment, "u1", "c1", "h1"),
			exporter:     &fakeExporter{},
			wantExported: 1,
		},
		{
			name:  "export without exporter is dropped",
			event: amqp.NewLedgerEvent(amqp.KindExpenseExport, "u1", "", "e1"),
		},
		{
			name:         "exporter failure requeues",
			event:        amqp.NewLedgerEvent(amqp.KindExpenseExport, "u1", "", "e1"),
			exporter:     &fakeExporter{err: errors.New("quota")},
			wantErr:      true,
			wantExported: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecomputer{err: tt.recomputeErr}
			var exp Exporter
			if tt.exporter != nil {
				exp = tt.exporter
			}
			w := NewLedgerWorker(rec, exp, nil)

			err := w.HandleEvent(ctx, tt.event)
			if (err != nil) != tt.wantErr {
				t.Errorf("HandleEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(rec.calls) != tt.wantCalls {
				t.Errorf("recompute calls = %v, want %d", rec.calls, tt.wantCalls)
			}
			if tt.exporter != nil && len(tt.exporter.handled) != tt.wantExported {
				t.Errorf("exported = %v, want %d", tt.exporter.handled, tt.wantExported)
			}
		})
	}
}

type countingRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *countingRunner) ProcessDue(context.Context, time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return 2, nil
}

func TestReminderScheduler(t *testing.T) {
	if _, err := NewReminderScheduler("every day", &countingRunner{}, nil); err == nil {
		t.Fatal("NewReminderScheduler() with invalid spec should fail")
	}

	runner := &countingRunner{}
	s, err := NewReminderScheduler("0 8 * * *", runner, nil)
	if err != nil {
		t.Fatalf("NewReminderScheduler() error = %v", err)
	}

	n, err := s.RunOnce(context.Background())
	if err != nil || n != 2 || runner.calls != 1 {
		t.Errorf("RunOnce() = %d, %v; calls %d", n, err, runner.calls)
	}

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Errorf("Stop() when not running error = %v", err)
	}
}
