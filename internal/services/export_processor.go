package services

import (
	"context"
	"errors"
	"fmt"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/sheets"
)

// ExportStore reads the records referenced by export events.
type ExportStore interface {
	GetCommitment(ctx context.Context, ownerID, id string) (core.Commitment, error)
	GetHistory(ctx context.Context, ownerID, id string) (core.HistoryEntry, error)
	GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error)
}

// ExportProcessor appends expenses and payments to the spreadsheet ledger.
type ExportProcessor struct {
	store    ExportStore
	exporter sheets.RowExporter
	logger   *log.Logger
}

func NewExportProcessor(store ExportStore, exporter sheets.RowExporter, logger *log.Logger) *ExportProcessor {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportProcessor{
		store:    store,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentSheets),
	}
}

// Handles reports whether kind is an export event.
func (p *ExportProcessor) Handles(kind amqp.EventKind) bool {
	return kind == amqp.KindExpenseExport || kind == amqp.KindPayment
}

// Handle exports the record an event refers to. Records deleted since the
// event was published are skipped.
func (p *ExportProcessor) Handle(ctx context.Context, event *amqp.LedgerEvent) error {
	row, err := p.rowFor(ctx, event)
	if errors.Is(err, core.ErrNotFound) {
		p.logger.WarnContext(ctx, "Exported record no longer exists, skipping",
			log.FieldEventKind, event.Kind,
			log.FieldOwnerID, event.OwnerID,
			log.FieldEntryID, event.EntityID)
		return nil
	}
	if err != nil {
		return err
	}

	ref, err := p.exporter.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	p.logger.InfoContext(ctx, "Exported row to spreadsheet",
		log.FieldOperation, log.OpExport,
		log.FieldEventKind, event.Kind,
		log.FieldOwnerID, event.OwnerID,
		"sheets_ref", ref)
	return nil
}

func (p *ExportProcessor) rowFor(ctx context.Context, event *amqp.LedgerEvent) (sheets.Row, error) {
	switch event.Kind {
	case amqp.KindExpenseExport:
		e, err := p.store.GetExpense(ctx, event.OwnerID, event.EntityID)
		if err != nil {
			return sheets.Row{}, fmt.Errorf("get expense %s: %w", event.EntityID, err)
		}
		return sheets.ExpenseRow(e), nil
	case amqp.KindPayment:
		h, err := p.store.GetHistory(ctx, event.OwnerID, event.EntityID)
		if err != nil {
			return sheets.Row{}, fmt.Errorf("get history %s: %w", event.EntityID, err)
		}
		c, err := p.store.GetCommitment(ctx, event.OwnerID, h.CommitmentID)
		if err != nil {
			return sheets.Row{}, fmt.Errorf("get commitment %s: %w", h.CommitmentID, err)
		}
		return sheets.PaymentRow(c, h), nil
	default:
		return sheets.Row{}, fmt.Errorf("unsupported export event %q", event.Kind)
	}
}
