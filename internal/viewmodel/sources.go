package viewmodel

import (
	"context"

	"finboard/internal/client"
	"finboard/internal/core"
)

// Owner supplies the signed in user's id. *session.Gate implements it.
type Owner interface {
	UserID() string
}

// CommitmentAPI is the part of the REST client the commitment lists use.
type CommitmentAPI interface {
	ListCommitments(ctx context.Context, q client.CommitmentQuery) (core.Page[core.Commitment], error)
	UpdateCommitment(ctx context.Context, id string, in client.CommitmentInput) (core.Commitment, error)
	DeleteCommitment(ctx context.Context, id, ownerID string) error
	ListHistory(ctx context.Context, commitmentID string, page core.PageRequest) (core.Page[core.HistoryEntry], error)
	UpdatePayment(ctx context.Context, id string, in client.PaymentInput) (core.HistoryEntry, error)
	DeletePayment(ctx context.Context, id, ownerID string) error
}

// ExpenseAPI is the part of the REST client the expense lists use.
type ExpenseAPI interface {
	ListExpenses(ctx context.Context, q client.ExpenseQuery) (core.Page[core.Expense], error)
	ListSavings(ctx context.Context, q client.ExpenseQuery) (core.Page[core.Expense], error)
	UpdateExpense(ctx context.Context, id string, in client.ExpenseInput) (core.Expense, error)
	UpdateSaving(ctx context.Context, id string, in client.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id, ownerID string) error
	DeleteSaving(ctx context.Context, id, ownerID string) error
}

var (
	_ CommitmentAPI = (*client.Client)(nil)
	_ ExpenseAPI    = (*client.Client)(nil)
)

// CommitmentFilter narrows the commitments table.
type CommitmentFilter struct {
	Status  core.Status
	PayType core.PayType
}

type (
	CommitmentList = ListView[core.Commitment, CommitmentRow, CommitmentFilter]
	HistoryList    = ListView[core.HistoryEntry, HistoryRow, struct{}]
	ExpenseList    = ListView[core.Expense, ExpenseRow, ExpenseFilter]
)

// NewCommitmentList builds the commitments table of the signed in user.
func NewCommitmentList(api CommitmentAPI, owner Owner, confirm Confirmer) *CommitmentList {
	return NewListView(ListConfig[core.Commitment, CommitmentRow, CommitmentFilter]{
		Fetch: func(ctx context.Context, f CommitmentFilter, page core.PageRequest) (core.Page[core.Commitment], error) {
			return api.ListCommitments(ctx, client.CommitmentQuery{
				OwnerID: owner.UserID(),
				Status:  f.Status,
				PayType: f.PayType,
				Page:    page,
			})
		},
		Map: NewCommitmentRow,
		ID:  func(c core.Commitment) string { return c.ID },
		Delete: func(ctx context.Context, id string) error {
			return api.DeleteCommitment(ctx, id, owner.UserID())
		},
		Save: func(ctx context.Context, c core.Commitment) (core.Commitment, error) {
			return api.UpdateCommitment(ctx, c.ID, client.CommitmentInputFrom(c))
		},
		Confirm: confirm,
		Noun:    "commitment",
	}, CommitmentFilter{})
}

// NewHistoryList builds the payment history table of one commitment.
func NewHistoryList(api CommitmentAPI, owner Owner, commitmentID string, confirm Confirmer) *HistoryList {
	return NewListView(ListConfig[core.HistoryEntry, HistoryRow, struct{}]{
		Fetch: func(ctx context.Context, _ struct{}, page core.PageRequest) (core.Page[core.HistoryEntry], error) {
			return api.ListHistory(ctx, commitmentID, page)
		},
		Map: NewHistoryRow,
		ID:  func(h core.HistoryEntry) string { return h.ID },
		Delete: func(ctx context.Context, id string) error {
			return api.DeletePayment(ctx, id, owner.UserID())
		},
		Save: func(ctx context.Context, h core.HistoryEntry) (core.HistoryEntry, error) {
			return api.UpdatePayment(ctx, h.ID, client.PaymentInputFrom(h))
		},
		Confirm: confirm,
		Noun:    "payment",
	}, struct{}{})
}

// ExpenseFilter narrows the expense and savings tables.
type ExpenseFilter struct {
	Category core.ExpenseCategory
	Range    core.DateRange
}

// NewExpenseList builds the expenses table, or the savings view when
// savings is set.
func NewExpenseList(api ExpenseAPI, owner Owner, savings bool, confirm Confirmer) *ExpenseList {
	list, update, remove, noun := api.ListExpenses, api.UpdateExpense, api.DeleteExpense, "expense"
	if savings {
		list, update, remove, noun = api.ListSavings, api.UpdateSaving, api.DeleteSaving, "saving"
	}
	return NewListView(ListConfig[core.Expense, ExpenseRow, ExpenseFilter]{
		Fetch: func(ctx context.Context, f ExpenseFilter, page core.PageRequest) (core.Page[core.Expense], error) {
			return list(ctx, client.ExpenseQuery{
				OwnerID:  owner.UserID(),
				Category: f.Category,
				Range:    f.Range,
				Page:     page,
			})
		},
		Map: NewExpenseRow,
		ID:  func(e core.Expense) string { return e.ID },
		Delete: func(ctx context.Context, id string) error {
			return remove(ctx, id, owner.UserID())
		},
		Save: func(ctx context.Context, e core.Expense) (core.Expense, error) {
			return update(ctx, e.ID, client.ExpenseInputFrom(e))
		},
		Confirm: confirm,
		Noun:    noun,
	}, ExpenseFilter{})
}
