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

// CommitmentStore is the persistence a CommitmentService needs.
type CommitmentStore interface {
	storage.CommitmentStore
	storage.HistoryStore
}

// CommitmentService owns commitments and their payment history. Cached
// aggregates on a commitment are always re-derived from the full history.
type CommitmentService struct {
	store       CommitmentStore
	publisher   EventPublisher
	invalidator OwnerInvalidator
	logger      *log.Logger
	events      *log.StructuredLogger
}

func NewCommitmentService(store CommitmentStore, publisher EventPublisher, invalidator OwnerInvalidator, logger *log.Logger) *CommitmentService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	logger = logger.WithComponent(log.ComponentCommitment)
	return &CommitmentService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		logger:      logger,
		events:      log.NewStructuredLogger(logger),
	}
}

func normalizeCommitment(c core.Commitment) core.Commitment {
	c.PayFor = strings.TrimSpace(c.PayFor)
	c.Remarks = strings.TrimSpace(c.Remarks)
	if c.Category == core.CategoryFull && c.TotalEmi == 0 {
		c.TotalEmi = 1
	}
	// Only Canceled survives as a manual status; the rest is derived.
	if c.Status == core.StatusCanceled {
		c.StatusOverride = core.StatusCanceled
	} else {
		c.StatusOverride = 0
	}
	if c.Attachments == nil {
		c.Attachments = []string{}
	}
	return c
}

func (s *CommitmentService) Create(ctx context.Context, c core.Commitment) (core.Commitment, error) {
	c = normalizeCommitment(c)
	c.ID = ""
	if err := c.Validate(); err != nil {
		return core.Commitment{}, err
	}
	c = c.Apply(core.Summarize(c, nil))

	created, err := s.store.CreateCommitment(ctx, c)
	if err != nil {
		return core.Commitment{}, fmt.Errorf("create commitment: %w", err)
	}
	s.invalidator.InvalidateOwner(created.CreatedBy)

	s.logger.InfoContext(ctx, "Commitment created",
		log.FieldOwnerID, created.CreatedBy,
		log.FieldCommitmentID, created.ID,
		"total_emi", created.TotalEmi,
		log.FieldAmount, created.EmiAmount.String())
	return created, nil
}

func (s *CommitmentService) Get(ctx context.Context, ownerID, id string) (core.Commitment, error) {
	return s.store.GetCommitment(ctx, ownerID, id)
}

func (s *CommitmentService) List(ctx context.Context, f storage.CommitmentFilter, page core.PageRequest) (core.Page[core.Commitment], error) {
	if f.OwnerID == "" {
		return core.Page[core.Commitment]{}, core.ValidationErrors{{Param: "createdBy", Msg: "Owner is required"}}
	}
	return s.store.ListCommitments(ctx, f, page)
}

// Update replaces the static attributes of a commitment. A Canceled status
// is kept as an override; any other status is recomputed from history.
func (s *CommitmentService) Update(ctx context.Context, c core.Commitment) (core.Commitment, error) {
	existing, err := s.store.GetCommitment(ctx, c.CreatedBy, c.ID)
	if err != nil {
		return core.Commitment{}, err
	}

	c = normalizeCommitment(c)
	if err := c.Validate(); err != nil {
		return core.Commitment{}, err
	}

	history, err := s.store.AllHistory(ctx, c.CreatedBy, c.ID)
	if err != nil {
		return core.Commitment{}, fmt.Errorf("load history: %w", err)
	}
	if highest := core.MaxInstallment(history); c.TotalEmi < highest {
		return core.Commitment{}, core.ValidationErrors{{
			Param: "totalEmi",
			Msg:   fmt.Sprintf("Total EMI cannot be below the %d installments already recorded", highest),
		}}
	}

	existing.PayFor = c.PayFor
	existing.TotalEmi = c.TotalEmi
	existing.EmiAmount = c.EmiAmount
	existing.PayType = c.PayType
	existing.Category = c.Category
	existing.DueDate = c.DueDate
	existing.Remarks = c.Remarks
	existing.StatusOverride = c.StatusOverride
	if len(c.Attachments) > 0 {
		existing.Attachments = c.Attachments
	}

	updated, err := s.store.UpdateCommitment(ctx, s.summarize(ctx, existing, history))
	if err != nil {
		return core.Commitment{}, fmt.Errorf("update commitment: %w", err)
	}
	s.invalidator.InvalidateOwner(updated.CreatedBy)
	return updated, nil
}

func (s *CommitmentService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteCommitment(ctx, ownerID, id); err != nil {
		return err
	}
	s.invalidator.InvalidateOwner(ownerID)
	s.logger.InfoContext(ctx, "Commitment deleted", log.FieldOwnerID, ownerID, log.FieldCommitmentID, id)
	return nil
}

// AddPayment records one installment. A zero CurrentEmi takes the next index.
func (s *CommitmentService) AddPayment(ctx context.Context, h core.HistoryEntry) (core.HistoryEntry, error) {
	h.Remarks = strings.TrimSpace(h.Remarks)
	if err := h.Validate(); err != nil {
		return core.HistoryEntry{}, err
	}
	h.ID = ""

	entry, err := s.store.AppendHistory(ctx, h)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	s.events.LogPaymentRecorded(ctx, entry.CreatedBy, entry.CommitmentID, entry.ID, entry.CurrentEmi, entry.Amount.String())

	publish(ctx, s.publisher, s.logger, amqp.NewLedgerEvent(amqp.KindPayment, entry.CreatedBy, entry.CommitmentID, entry.ID))
	s.afterHistoryChange(ctx, entry.CreatedBy, entry.CommitmentID)
	return entry, nil
}

func (s *CommitmentService) GetPayment(ctx context.Context, ownerID, id string) (core.HistoryEntry, error) {
	return s.store.GetHistory(ctx, ownerID, id)
}

func (s *CommitmentService) ListHistory(ctx context.Context, ownerID, commitmentID string, page core.PageRequest) (core.Page[core.HistoryEntry], error) {
	if _, err := s.store.GetCommitment(ctx, ownerID, commitmentID); err != nil {
		return core.Page[core.HistoryEntry]{}, err
	}
	return s.store.ListHistory(ctx, ownerID, commitmentID, page)
}

func (s *CommitmentService) UpdatePayment(ctx context.Context, h core.HistoryEntry) (core.HistoryEntry, error) {
	existing, err := s.store.GetHistory(ctx, h.CreatedBy, h.ID)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	h.CommitmentID = existing.CommitmentID
	h.Remarks = strings.TrimSpace(h.Remarks)
	if h.Attachment == "" {
		h.Attachment = existing.Attachment
	}
	if err := h.Validate(); err != nil {
		return core.HistoryEntry{}, err
	}

	updated, err := s.store.UpdateHistory(ctx, h)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	s.afterHistoryChange(ctx, updated.CreatedBy, updated.CommitmentID)
	return updated, nil
}

func (s *CommitmentService) DeletePayment(ctx context.Context, ownerID, id string) error {
	deleted, err := s.store.DeleteHistory(ctx, ownerID, id)
	if err != nil {
		return err
	}
	s.afterHistoryChange(ctx, ownerID, deleted.CommitmentID)
	return nil
}

// afterHistoryChange asks the worker to recompute, or does it here when no
// broker takes the event.
func (s *CommitmentService) afterHistoryChange(ctx context.Context, ownerID, commitmentID string) {
	s.invalidator.InvalidateOwner(ownerID)
	if publish(ctx, s.publisher, s.logger, amqp.NewLedgerEvent(amqp.KindRecompute, ownerID, commitmentID, "")) {
		return
	}
	if _, err := s.Recompute(ctx, ownerID, commitmentID); err != nil {
		s.logger.ErrorContext(ctx, "Inline recompute failed",
			log.FieldOwnerID, ownerID,
			log.FieldCommitmentID, commitmentID,
			log.FieldError, err)
	}
}

// Recompute re-derives the cached aggregates and status of a commitment
// from its full payment history and stores them.
func (s *CommitmentService) Recompute(ctx context.Context, ownerID, id string) (core.Commitment, error) {
	c, err := s.store.GetCommitment(ctx, ownerID, id)
	if err != nil {
		return core.Commitment{}, err
	}
	history, err := s.store.AllHistory(ctx, ownerID, id)
	if err != nil {
		return core.Commitment{}, fmt.Errorf("load history: %w", err)
	}

	updated, err := s.store.UpdateCommitment(ctx, s.summarize(ctx, c, history))
	if err != nil {
		return core.Commitment{}, fmt.Errorf("store aggregates: %w", err)
	}
	s.invalidator.InvalidateOwner(ownerID)

	s.logger.DebugContext(ctx, "Commitment recomputed",
		log.FieldOperation, log.OpRecompute,
		log.FieldCommitmentID, id,
		"paid", *updated.Paid,
		"status", updated.Status.Label())
	return updated, nil
}

func (s *CommitmentService) summarize(ctx context.Context, c core.Commitment, history []core.HistoryEntry) core.Commitment {
	summary := core.Summarize(c, history)
	if summary.Overpaid() {
		s.logger.WarnContext(ctx, "Commitment paid beyond its total",
			log.FieldCommitmentID, c.ID,
			"paid_amount", summary.PaidAmount.String(),
			"pending_amount", summary.PendingAmount.String())
	}
	return c.Apply(summary)
}
