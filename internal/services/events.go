package services

import (
	"context"

	"finboard/internal/amqp"
	"finboard/internal/log"
)

// EventPublisher hands ledger events to the broker. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, event *amqp.LedgerEvent) error
}

// OwnerInvalidator drops cached read models of one owner after a write.
type OwnerInvalidator interface {
	InvalidateOwner(ownerID string)
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateOwner(string) {}

// publish sends event if a broker is configured. Failures are logged and
// reported to the caller, never surfaced to the request.
func publish(ctx context.Context, publisher EventPublisher, logger *log.Logger, event *amqp.LedgerEvent) bool {
	if publisher == nil {
		logger.DebugContext(ctx, "AMQP client not available, skipping event", log.FieldEventKind, event.Kind)
		return false
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventKind, event.Kind,
			log.FieldOwnerID, event.OwnerID,
			log.FieldError, err)
		return false
	}
	return true
}
