package services

import (
	"context"
	"errors"
	"testing"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/sheets"
	sheetsmemory "finboard/internal/sheets/memory"
)

type failingExporter struct{}

func (failingExporter) AppendRow(context.Context, sheets.Row) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestExportProcessor_Handle(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	exporter := sheetsmemory.New()
	p := NewExportProcessor(store, exporter, nil)

	expenses := NewExpenseService(store, nil, nil, nil)
	commitments := NewCommitmentService(store, nil, nil, nil)

	e, err := expenses.Create(ctx, newExpense("u1", "Groceries", "250", core.ExpenseShopping, core.NewDate(2024, 1, 3)))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	c := mustCreateCommitment(t, commitments, newCommitment("u1", 12, "1000"))
	h, err := commitments.AddPayment(ctx, payment("u1", c.ID, "1000"))
	if err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}

	if err := p.Handle(ctx, amqp.NewLedgerEvent(amqp.KindExpenseExport, "u1", "", e.ID)); err != nil {
		t.Fatalf("Handle(expense) error = %v", err)
	}
	if err := p.Handle(ctx, amqp.NewLedgerEvent(amqp.KindPayment, "u1", c.ID, h.ID)); err != nil {
		t.Fatalf("Handle(payment) error = %v", err)
	}

	rows, _ := exporter.ListRows(ctx, 2024)
	if len(rows) != 2 {
		t.Fatalf("exported rows = %d, want 2", len(rows))
	}
	if rows[0].Kind != sheets.KindExpense || rows[0].Reference != e.ID {
		t.Errorf("expense row = %+v", rows[0])
	}
	if rows[1].Kind != sheets.KindPayment || rows[1].Installment != 1 || rows[1].Description != "Car loan" {
		t.Errorf("payment row = %+v", rows[1])
	}
}

func TestExportProcessor_SkipsDeletedAndReportsExporterErrors(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	p := NewExportProcessor(store, sheetsmemory.New(), nil)
	if err := p.Handle(ctx, amqp.NewLedgerEvent(amqp.KindExpenseExport, "u1", "", "gone")); err != nil {
		t.Errorf("Handle() for deleted expense error = %v, want nil", err)
	}

	e, _ := NewExpenseService(store, nil, nil, nil).Create(ctx, newExpense("u1", "Tea", "10", core.ExpenseCash, core.NewDate(2024, 1, 1)))
	p = NewExportProcessor(store, failingExporter{}, nil)
	if err := p.Handle(ctx, amqp.NewLedgerEvent(amqp.KindExpenseExport, "u1", "", e.ID)); err == nil {
		t.Error("Handle() should report exporter failures so the event is requeued")
	}

	if !p.Handles(amqp.KindPayment) || p.Handles(amqp.KindRecompute) {
		t.Error("Handles() should accept export kinds only")
	}
}
