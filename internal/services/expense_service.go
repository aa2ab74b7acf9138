package services

import (
	"context"
	"fmt"
	"strings"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/storage"
)

// ExpenseService orchestrates expense writes across storage and AMQP.
// Savings are expenses in the savings category; the *Saving methods are a
// filtered view that pins that category.
type ExpenseService struct {
	store       storage.ExpenseStore
	publisher   EventPublisher
	invalidator OwnerInvalidator
	logger      *log.Logger
}

func NewExpenseService(store storage.ExpenseStore, publisher EventPublisher, invalidator OwnerInvalidator, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &ExpenseService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		logger:      logger.WithComponent(log.ComponentExpense),
	}
}

// Create saves an expense locally and publishes an export event. A broker
// failure does not fail the request.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Name = strings.TrimSpace(e.Name)
	e.Remarks = strings.TrimSpace(e.Remarks)
	e.ID = ""
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.invalidator.InvalidateOwner(created.CreatedBy)

	s.logger.InfoContext(ctx, "Expense saved",
		log.FieldOwnerID, created.CreatedBy,
		log.FieldExpenseID, created.ID,
		log.FieldAmount, created.Amount.String(),
		"category", created.Category.Label())

	publish(ctx, s.publisher, s.logger, amqp.NewLedgerEvent(amqp.KindExpenseExport, created.CreatedBy, "", created.ID))
	return created, nil
}

func (s *ExpenseService) Get(ctx context.Context, ownerID, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, ownerID, id)
}

func (s *ExpenseService) List(ctx context.Context, f storage.ExpenseFilter, page core.PageRequest) (core.Page[core.Expense], error) {
	if f.OwnerID == "" {
		return core.Page[core.Expense]{}, core.ValidationErrors{{Param: "userId", Msg: "Owner is required"}}
	}
	if !f.Range.Start.IsZero() && !f.Range.End.IsZero() && f.Range.End.Before(f.Range.Start.Time) {
		return core.Page[core.Expense]{}, core.ValidationErrors{{Param: "endDate", Msg: "End date must not be before start date"}}
	}
	return s.store.ListExpenses(ctx, f, page)
}

func (s *ExpenseService) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	existing, err := s.store.GetExpense(ctx, e.CreatedBy, e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	e.Name = strings.TrimSpace(e.Name)
	e.Remarks = strings.TrimSpace(e.Remarks)
	if e.Attachment == "" {
		e.Attachment = existing.Attachment
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.invalidator.InvalidateOwner(updated.CreatedBy)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteExpense(ctx, ownerID, id); err != nil {
		return err
	}
	s.invalidator.InvalidateOwner(ownerID)
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldOwnerID, ownerID, log.FieldExpenseID, id)
	return nil
}

func (s *ExpenseService) CreateSaving(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Category = core.ExpenseSavings
	return s.Create(ctx, e)
}

func (s *ExpenseService) GetSaving(ctx context.Context, ownerID, id string) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, err
	}
	if !e.IsSaving() {
		return core.Expense{}, fmt.Errorf("saving %s: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *ExpenseService) ListSavings(ctx context.Context, f storage.ExpenseFilter, page core.PageRequest) (core.Page[core.Expense], error) {
	f.Category = core.ExpenseSavings
	return s.List(ctx, f, page)
}

func (s *ExpenseService) UpdateSaving(ctx context.Context, e core.Expense) (core.Expense, error) {
	if _, err := s.GetSaving(ctx, e.CreatedBy, e.ID); err != nil {
		return core.Expense{}, err
	}
	e.Category = core.ExpenseSavings
	return s.Update(ctx, e)
}

func (s *ExpenseService) DeleteSaving(ctx context.Context, ownerID, id string) error {
	if _, err := s.GetSaving(ctx, ownerID, id); err != nil {
		return err
	}
	return s.Delete(ctx, ownerID, id)
}
