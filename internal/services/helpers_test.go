package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

type countingInvalidator struct {
	mu     sync.Mutex
	owners map[string]int
}

func (c *countingInvalidator) InvalidateOwner(ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owners == nil {
		c.owners = map[string]int{}
	}
	c.owners[ownerID]++
}

func (c *countingInvalidator) count(ownerID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owners[ownerID]
}

var errBrokerDown = errors.New("broker down")

func newCommitment(owner string, total int, emi string) core.Commitment {
	return core.Commitment{
		PayFor:    "Car loan",
		TotalEmi:  total,
		EmiAmount: core.MustDecimal(emi),
		PayType:   core.PayTypeExpenses,
		Category:  core.CategoryEMI,
		DueDate:   5,
		CreatedBy: owner,
	}
}

func payment(owner, commitmentID, amount string) core.HistoryEntry {
	return core.HistoryEntry{
		CommitmentID: commitmentID,
		Amount:       core.MustDecimal(amount),
		PaidDate:     core.NewDate(2024, 1, 5),
		CreatedBy:    owner,
	}
}

func mustCreateCommitment(t *testing.T, svc *CommitmentService, c core.Commitment) core.Commitment {
	t.Helper()
	created, err := svc.Create(context.Background(), c)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return created
}

func newStore() *memory.Store {
	return memory.New()
}
