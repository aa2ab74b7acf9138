package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names what a ledger event asks the worker to do.
type EventKind string

const (
	// KindRecompute re-derives the cached aggregates of a commitment.
	KindRecompute EventKind = "commitment.recompute"
	// KindPayment exports a recorded payment.
	KindPayment EventKind = "commitment.payment"
	// KindExpenseExport exports an expense row.
	KindExpenseExport EventKind = "expense.export"
)

func (k EventKind) Valid() bool {
	switch k {
	case KindRecompute, KindPayment, KindExpenseExport:
		return true
	}
	return false
}

// LedgerEvent is a lightweight message: it carries ids only and the worker
// loads the current rows from storage.
type LedgerEvent struct {
	Kind         EventKind `json:"kind"`
	CommitmentID string    `json:"commitmentId,omitempty"`
	EntityID     string    `json:"entityId,omitempty"`
	OwnerID      string    `json:"ownerId"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps an event with the current time.
func NewLedgerEvent(kind EventKind, ownerID, commitmentID, entityID string) *LedgerEvent {
	return &LedgerEvent{
		Kind:         kind,
		CommitmentID: commitmentID,
		EntityID:     entityID,
		OwnerID:      ownerID,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.OwnerID == "" {
		return nil, fmt.Errorf("event %s without owner", msg.Kind)
	}
	return &msg, nil
}
