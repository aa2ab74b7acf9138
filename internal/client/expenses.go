package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"finboard/internal/core"
)

// ExpenseInput is the editable part of an expense or saving.
type ExpenseInput struct {
	Name         string               `json:"name"`
	Amount       core.Decimal         `json:"amount"`
	Category     core.ExpenseCategory `json:"category,omitempty"`
	SavingMethod core.SavingMethod    `json:"savingMethod,omitempty"`
	PaidOn       *core.Date           `json:"paidOn,omitempty"`
	Remarks      string               `json:"remarks"`
	Attachment   string               `json:"attachment,omitempty"`
	CreatedBy    string               `json:"createdBy,omitempty"`
}

// ExpenseInputFrom copies the editable fields of e.
func ExpenseInputFrom(e core.Expense) ExpenseInput {
	in := ExpenseInput{
		Name:         e.Name,
		Amount:       e.Amount,
		Category:     e.Category,
		SavingMethod: e.SavingMethod,
		Remarks:      e.Remarks,
		Attachment:   e.Attachment,
		CreatedBy:    e.CreatedBy,
	}
	if !e.PaidOn.IsZero() {
		d := e.PaidOn
		in.PaidOn = &d
	}
	return in
}

// ExpenseQuery filters expense and saving lists.
type ExpenseQuery struct {
	OwnerID  string
	Category core.ExpenseCategory
	Range    core.DateRange
	Page     core.PageRequest
}

func (q ExpenseQuery) values() url.Values {
	v := url.Values{}
	if q.OwnerID != "" {
		v.Set("userId", q.OwnerID)
	}
	if q.Category != 0 {
		v.Set("category", strconv.Itoa(int(q.Category)))
	}
	return pageQuery(rangeQuery(v, q.Range), q.Page)
}

// expensePath is "/admin/expenses" or the savings view "/admin/house-savings".
func expensePath(savings bool) string {
	if savings {
		return "/admin/house-savings"
	}
	return "/admin/expenses"
}

func (c *Client) listExpenses(ctx context.Context, savings bool, q ExpenseQuery) (core.Page[core.Expense], error) {
	env, err := c.do(ctx, http.MethodGet, expensePath(savings), q.values(), nil)
	if err != nil {
		return core.Page[core.Expense]{}, err
	}
	return decodePage[core.Expense](env, q.Page)
}

func (c *Client) ListExpenses(ctx context.Context, q ExpenseQuery) (core.Page[core.Expense], error) {
	return c.listExpenses(ctx, false, q)
}

// ListSavings lists expenses in the savings category.
func (c *Client) ListSavings(ctx context.Context, q ExpenseQuery) (core.Page[core.Expense], error) {
	return c.listExpenses(ctx, true, q)
}

func (c *Client) getExpense(ctx context.Context, savings bool, id string) (core.Expense, error) {
	env, err := c.do(ctx, http.MethodGet, expensePath(savings)+"/view/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return core.Expense{}, err
	}
	var out core.Expense
	return out, env.decodeData(&out)
}

func (c *Client) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return c.getExpense(ctx, false, id)
}

func (c *Client) GetSaving(ctx context.Context, id string) (core.Expense, error) {
	return c.getExpense(ctx, true, id)
}

func (c *Client) saveExpense(ctx context.Context, savings bool, id string, in ExpenseInput) (core.Expense, error) {
	method, path := http.MethodPost, expensePath(savings)+"/store"
	if id != "" {
		method, path = http.MethodPut, expensePath(savings)+"/update/"+url.PathEscape(id)
	}
	env, err := c.do(ctx, method, path, nil, in)
	if err != nil {
		return core.Expense{}, err
	}
	var out core.Expense
	return out, env.decodeData(&out)
}

func (c *Client) CreateExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	return c.saveExpense(ctx, false, "", in)
}

func (c *Client) UpdateExpense(ctx context.Context, id string, in ExpenseInput) (core.Expense, error) {
	return c.saveExpense(ctx, false, id, in)
}

// CreateSaving records a saving; the server forces the savings category.
func (c *Client) CreateSaving(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	return c.saveExpense(ctx, true, "", in)
}

func (c *Client) UpdateSaving(ctx context.Context, id string, in ExpenseInput) (core.Expense, error) {
	return c.saveExpense(ctx, true, id, in)
}

func (c *Client) DeleteExpense(ctx context.Context, id, ownerID string) error {
	_, err := c.do(ctx, http.MethodDelete, expensePath(false)+"/delete/"+url.PathEscape(id), ownerQuery(ownerID), nil)
	return err
}

func (c *Client) DeleteSaving(ctx context.Context, id, ownerID string) error {
	_, err := c.do(ctx, http.MethodDelete, expensePath(true)+"/delete/"+url.PathEscape(id), ownerQuery(ownerID), nil)
	return err
}
