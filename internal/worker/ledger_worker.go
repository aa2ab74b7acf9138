package worker

import (
	"context"
	"errors"
	"fmt"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/log"
)

// Recomputer re-derives the cached aggregates of a commitment.
type Recomputer interface {
	Recompute(ctx context.Context, ownerID, id string) (core.Commitment, error)
}

// Exporter handles the export events it recognises.
type Exporter interface {
	Handles(kind amqp.EventKind) bool
	Handle(ctx context.Context, event *amqp.LedgerEvent) error
}

// LedgerWorker dispatches ledger events consumed from AMQP.
type LedgerWorker struct {
	recomputer Recomputer
	exporter   Exporter
	logger     *log.Logger
}

// NewLedgerWorker builds a worker. exporter may be nil when spreadsheet
// export is disabled; export events are then acknowledged and dropped.
func NewLedgerWorker(recomputer Recomputer, exporter Exporter, logger *log.Logger) *LedgerWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerWorker{
		recomputer: recomputer,
		exporter:   exporter,
		logger:     logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes one event. A returned error requeues the message.
func (w *LedgerWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	w.logger.DebugContext(ctx, "Processing ledger event",
		log.FieldEventKind, event.Kind,
		log.FieldOwnerID, event.OwnerID,
		log.FieldCommitmentID, event.CommitmentID)

	switch {
	case event.Kind == amqp.KindRecompute:
		return w.recompute(ctx, event)
	case w.exporter != nil && w.exporter.Handles(event.Kind):
		return w.exporter.Handle(ctx, event)
	default:
		w.logger.InfoContext(ctx, "No handler for ledger event, dropping", log.FieldEventKind, event.Kind)
		return nil
	}
}

func (w *LedgerWorker) recompute(ctx context.Context, event *amqp.LedgerEvent) error {
	c, err := w.recomputer.Recompute(ctx, event.OwnerID, event.CommitmentID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the event was published.
		w.logger.WarnContext(ctx, "Commitment no longer exists, skipping recompute",
			log.FieldOwnerID, event.OwnerID,
			log.FieldCommitmentID, event.CommitmentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("recompute commitment %s: %w", event.CommitmentID, err)
	}

	w.logger.InfoContext(ctx, "Commitment recomputed",
		log.FieldOperation, log.OpRecompute,
		log.FieldOwnerID, event.OwnerID,
		log.FieldCommitmentID, c.ID,
		"status", c.Status.Label())
	return nil
}
