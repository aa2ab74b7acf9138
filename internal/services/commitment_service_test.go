package services

import (
	"context"
	"errors"
	"testing"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/storage"
)

func TestCommitmentService_PaymentsRecomputeInline(t *testing.T) {
	ctx := context.Background()
	svc := NewCommitmentService(newStore(), nil, nil, nil)

	c := mustCreateCommitment(t, svc, newCommitment("u1", 12, "1000"))
	if c.Paid == nil || *c.Paid != 0 || c.Pending != 12 || c.Status != core.StatusOngoing {
		t.Fatalf("created commitment aggregates = paid %v pending %d status %v", c.Paid, c.Pending, c.Status)
	}

	for i := 1; i <= 2; i++ {
		h, err := svc.AddPayment(ctx, payment("u1", c.ID, "1000"))
		if err != nil {
			t.Fatalf("AddPayment() #%d error = %v", i, err)
		}
		if h.CurrentEmi != i {
			t.Errorf("AddPayment() #%d CurrentEmi = %d, want %d", i, h.CurrentEmi, i)
		}
	}

	got, err := svc.Get(ctx, "u1", c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *got.Paid != 2 || got.Pending != 10 {
		t.Errorf("paid/pending = %d/%d, want 2/10", *got.Paid, got.Pending)
	}
	if !got.PaidAmount.Equal(core.DecimalFromInt(2000)) || !got.BalanceAmount.Equal(core.DecimalFromInt(10000)) {
		t.Errorf("paidAmount/balance = %s/%s, want 2000/10000", got.PaidAmount, got.BalanceAmount)
	}
	if got.Status != core.StatusOngoing {
		t.Errorf("status = %v, want Ongoing", got.Status)
	}
}

func TestCommitmentService_CompletesOnLastInstallment(t *testing.T) {
	ctx := context.Background()
	svc := NewCommitmentService(newStore(), nil, nil, nil)
	c := mustCreateCommitment(t, svc, newCommitment("u1", 2, "500"))

	for i := 0; i < 2; i++ {
		if _, err := svc.AddPayment(ctx, payment("u1", c.ID, "500")); err != nil {
			t.Fatalf("AddPayment() error = %v", err)
		}
	}
	got, _ := svc.Get(ctx, "u1", c.ID)
	if got.Status != core.StatusCompleted || got.Pending != 0 || !got.BalanceAmount.IsZero() {
		t.Errorf("after full payment: status %v pending %d balance %s", got.Status, got.Pending, got.BalanceAmount)
	}

	if _, err := svc.AddPayment(ctx, payment("u1", c.ID, "500")); !errors.Is(err, core.ErrCommitmentFullyPaid) {
		t.Errorf("AddPayment() on completed commitment error = %v, want ErrCommitmentFullyPaid", err)
	}
}

func TestCommitmentService_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	inv := &countingInvalidator{}
	svc := NewCommitmentService(newStore(), pub, inv, nil)
	c := mustCreateCommitment(t, svc, newCommitment("u1", 12, "1000"))

	h, err := svc.AddPayment(ctx, payment("u1", c.ID, "1000"))
	if err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}

	kinds := pub.kinds()
	if len(kinds) != 2 || kinds[0] != amqp.KindPayment || kinds[1] != amqp.KindRecompute {
		t.Fatalf("published kinds = %v, want [payment recompute]", kinds)
	}
	if pub.events[0].EntityID != h.ID || pub.events[1].CommitmentID != c.ID {
		t.Errorf("event ids = %+v, %+v", pub.events[0], pub.events[1])
	}

	// The worker owns the recompute, so the cached aggregates are still stale.
	stale, _ := svc.Get(ctx, "u1", c.ID)
	if *stale.Paid != 0 {
		t.Errorf("cached paid before recompute = %d, want 0", *stale.Paid)
	}

	fresh, err := svc.Recompute(ctx, "u1", c.ID)
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if *fresh.Paid != 1 || fresh.Pending != 11 {
		t.Errorf("after recompute paid/pending = %d/%d, want 1/11", *fresh.Paid, fresh.Pending)
	}
	if inv.count("u1") < 3 {
		t.Errorf("owner invalidated %d times, want at least 3", inv.count("u1"))
	}
}

func TestCommitmentService_BrokerFailureFallsBackToInline(t *testing.T) {
	ctx := context.Background()
	svc := NewCommitmentService(newStore(), &recordingPublisher{err: errBrokerDown}, nil, nil)
	c := mustCreateCommitment(t, svc, newCommitment("u1", 12, "1000"))

	if _, err := svc.AddPayment(ctx, payment("u1", c.ID, "1000")); err != nil {
		t.Fatalf("AddPayment() error = %v, broker failures must not fail the request", err)
	}
	got, _ := svc.Get(ctx, "u1", c.ID)
	if *got.Paid != 1 {
		t.Errorf("paid = %d, want 1 from inline recompute", *got.Paid)
	}
}

func TestCommitmentService_CancelOverride(t *testing.T) {
	ctx := context.Background()
	svc := NewCommitmentService(newStore(), nil, nil, nil)
	c := mustCreateCommitment(t, svc, newCommitment("u1", 12, "1000"))
	if _, err := svc.AddPayment(ctx, payment("u1", c.ID, "1000")); err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}

	c.Status = core.StatusCanceled
	canceled, err := svc.Update(ctx, c)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if canceled.Status != core.StatusCanceled || *canceled.Paid != 1 {
		t.Errorf("canceled = status %v paid %d", canceled.Status, *canceled.Paid)
	}
	if _, err := svc.AddPayment(ctx, payment("u1", c.ID, "1000")); !errors.Is(err, core.ErrCommitmentNotPayable) {
		t.Errorf("AddPayment() on canceled error = %v, want ErrCommitmentNotPayable", err)
	}

	// Completed is never a manual status: asking for it re-derives Ongoing.
	c.Status = core.StatusCompleted
	reopened, err := svc.Update(ctx, c)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if reopened.Status != core.StatusOngoing {
		t.Errorf("status after clearing override = %v, want Ongoing", reopened.Status)
	}
}

func TestCommitmentService_UpdateValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewCommitmentService(newStore(), nil, nil, nil)
	c := mustCreateCommitment(t, svc, newCommitment("u1", 3, "100"))
	for i := 0; i < 2; i++ {
		if _, err := svc.AddPayment(ctx, payment("u1", c.ID, "100")); err != nil {
			t.Fatalf("AddPayment() error = %v", err)
		}
	}

	c.TotalEmi = 1
	_, err := svc.Update(ctx, c)
	var ve core.ValidationErrors
	if !errors.As(err, &ve) || ve[0].Param != "totalEmi" {
		t.Errorf("Update() below recorded installments error = %v", err)
	}

	other := c
	other.CreatedBy = "u2"
	other.TotalEmi = 3
	if _, err := svc.Update(ctx, other); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update() by another owner error = %v, want ErrNotFound", err)
	}
}

func TestCommitmentService_EditAndDeletePayments(t *testing.T) {
	ctx := context.Background()
	svc := NewCommitmentService(newStore(), nil, nil, nil)
	c := mustCreateCommitment(t, svc, newCommitment("u1", 12, "1000"))

	first, _ := svc.AddPayment(ctx, payment("u1", c.ID, "1000"))
	second, _ := svc.AddPayment(ctx, payment("u1", c.ID, "1000"))

	edit := second
	edit.Amount = core.MustDecimal("1500")
	edit.CurrentEmi = 4
	if _, err := svc.UpdatePayment(ctx, edit); err != nil {
		t.Fatalf("UpdatePayment() error = %v", err)
	}
	got, _ := svc.Get(ctx, "u1", c.ID)
	if *got.Paid != 4 || !got.PaidAmount.Equal(core.DecimalFromInt(2500)) {
		t.Errorf("after edit paid %d paidAmount %s, want 4 and 2500", *got.Paid, got.PaidAmount)
	}

	edit.CurrentEmi = 1
	if _, err := svc.UpdatePayment(ctx, edit); !errors.Is(err, core.ErrInstallmentOutOfOrder) {
		t.Errorf("UpdatePayment() onto earlier installment error = %v", err)
	}

	if err := svc.DeletePayment(ctx, "u1", second.ID); err != nil {
		t.Fatalf("DeletePayment() error = %v", err)
	}
	got, _ = svc.Get(ctx, "u1", c.ID)
	if *got.Paid != first.CurrentEmi || !got.PaidAmount.Equal(core.DecimalFromInt(1000)) {
		t.Errorf("after delete paid %d paidAmount %s", *got.Paid, got.PaidAmount)
	}

	if err := svc.DeletePayment(ctx, "u2", first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeletePayment() by another owner error = %v", err)
	}
}

func TestCommitmentService_ListScoping(t *testing.T) {
	ctx := context.Background()
	svc := NewCommitmentService(newStore(), nil, nil, nil)
	c := mustCreateCommitment(t, svc, newCommitment("u1", 12, "1000"))
	mustCreateCommitment(t, svc, newCommitment("u2", 6, "50"))

	page, err := svc.List(ctx, storage.CommitmentFilter{OwnerID: "u1"}, core.NewPageRequest(1, 10))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Info.TotalItems != 1 || page.Items[0].ID != c.ID {
		t.Errorf("List() = %+v", page)
	}

	if _, err := svc.List(ctx, storage.CommitmentFilter{}, core.NewPageRequest(1, 10)); !errors.Is(err, core.ErrValidation) {
		t.Errorf("List() without owner error = %v, want validation error", err)
	}

	if _, err := svc.ListHistory(ctx, "u2", c.ID, core.NewPageRequest(1, 10)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("ListHistory() by another owner error = %v, want ErrNotFound", err)
	}

	if err := svc.Delete(ctx, "u1", c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, "u1", c.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
}
