package services

import (
	"context"
	"errors"
	"testing"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/storage"
)

func newExpense(owner, name, amount string, category core.ExpenseCategory, paidOn core.Date) core.Expense {
	return core.Expense{
		Name:      name,
		Amount:    core.MustDecimal(amount),
		Category:  category,
		PaidOn:    paidOn,
		CreatedBy: owner,
	}
}

func TestExpenseService_CreatePublishesExport(t *testing.T) {
	pub := &recordingPublisher{}
	inv := &countingInvalidator{}
	svc := NewExpenseService(newStore(), pub, inv, nil)

	created, err := svc.Create(context.Background(), newExpense("u1", "  Groceries ", "250.50", core.ExpenseShopping, core.NewDate(2024, 1, 3)))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Name != "Groceries" || created.ID == "" {
		t.Errorf("created = %+v", created)
	}
	if kinds := pub.kinds(); len(kinds) != 1 || kinds[0] != amqp.KindExpenseExport || pub.events[0].EntityID != created.ID {
		t.Errorf("published = %v", kinds)
	}
	if inv.count("u1") != 1 {
		t.Errorf("invalidations = %d, want 1", inv.count("u1"))
	}
}

func TestExpenseService_BrokerFailureDoesNotFail(t *testing.T) {
	svc := NewExpenseService(newStore(), &recordingPublisher{err: errBrokerDown}, nil, nil)
	if _, err := svc.Create(context.Background(), newExpense("u1", "Rent", "15000", core.ExpenseHouse, core.NewDate(2024, 1, 1))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestExpenseService_Validation(t *testing.T) {
	svc := NewExpenseService(newStore(), nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		e     core.Expense
		param string
	}{
		{"missing name", newExpense("u1", " ", "10", core.ExpenseCash, core.NewDate(2024, 1, 1)), "name"},
		{"zero amount", newExpense("u1", "Tea", "0", core.ExpenseCash, core.NewDate(2024, 1, 1)), "amount"},
		{"saving method on non saving", func() core.Expense {
			e := newExpense("u1", "Tea", "10", core.ExpenseCash, core.NewDate(2024, 1, 1))
			e.SavingMethod = core.SavingCash
			return e
		}(), "savingMethod"},
		{"missing date", newExpense("u1", "Tea", "10", core.ExpenseCash, core.Date{}), "paidOn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.e)
			var ve core.ValidationErrors
			if !errors.As(err, &ve) {
				t.Fatalf("Create() error = %v, want ValidationErrors", err)
			}
			found := false
			for _, fe := range ve {
				found = found || fe.Param == tt.param
			}
			if !found {
				t.Errorf("Create() errors = %v, want one on %q", ve, tt.param)
			}
		})
	}

	_, err := svc.List(ctx, storage.ExpenseFilter{
		OwnerID: "u1",
		Range:   core.DateRange{Start: core.NewDate(2024, 2, 1), End: core.NewDate(2024, 1, 1)},
	}, core.NewPageRequest(1, 10))
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("List() with inverted range error = %v", err)
	}
}

func TestExpenseService_SavingsView(t *testing.T) {
	ctx := context.Background()
	svc := NewExpenseService(newStore(), nil, nil, nil)

	spent, err := svc.Create(ctx, newExpense("u1", "Fuel", "2000", core.ExpenseBillPayment, core.NewDate(2024, 1, 2)))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	saving := newExpense("u1", "RD deposit", "5000", core.ExpenseHouse, core.NewDate(2024, 1, 2))
	saving.SavingMethod = core.SavingBankTransfer
	saved, err := svc.CreateSaving(ctx, saving)
	if err != nil {
		t.Fatalf("CreateSaving() error = %v", err)
	}
	if saved.Category != core.ExpenseSavings {
		t.Errorf("CreateSaving() category = %v, want Savings", saved.Category)
	}

	page, err := svc.ListSavings(ctx, storage.ExpenseFilter{OwnerID: "u1"}, core.NewPageRequest(1, 10))
	if err != nil {
		t.Fatalf("ListSavings() error = %v", err)
	}
	if page.Info.TotalItems != 1 || page.Items[0].ID != saved.ID {
		t.Errorf("ListSavings() = %+v", page.Items)
	}

	if _, err := svc.GetSaving(ctx, "u1", spent.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetSaving() on a plain expense error = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteSaving(ctx, "u1", spent.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteSaving() on a plain expense error = %v, want ErrNotFound", err)
	}

	saved.Amount = core.MustDecimal("5500")
	updated, err := svc.UpdateSaving(ctx, saved)
	if err != nil {
		t.Fatalf("UpdateSaving() error = %v", err)
	}
	if !updated.Amount.Equal(core.DecimalFromInt(5500)) {
		t.Errorf("UpdateSaving() amount = %s", updated.Amount)
	}
	if err := svc.DeleteSaving(ctx, "u1", saved.ID); err != nil {
		t.Errorf("DeleteSaving() error = %v", err)
	}
}
