package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"finboard/internal/core"
)

const expenseColumns = `id, name, amount, category, saving_method, paid_on, remarks, attachment, created_by, created_at, updated_at`

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                core.Expense
		created, updated int64
	)
	err := s.Scan(&e.ID, &e.Name, &e.Amount, &e.Category, &e.SavingMethod, &e.PaidOn, &e.Remarks, &e.Attachment,
		&e.CreatedBy, &created, &updated)
	if err != nil {
		return core.Expense{}, err
	}
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return e, nil
}

func expenseWhere(f ExpenseFilter) (string, []any) {
	clauses := []string{"created_by = ?"}
	args := []any{f.OwnerID}
	if f.Category != 0 {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	// YYYY-MM-DD text sorts chronologically.
	if !f.Range.Start.IsZero() {
		clauses = append(clauses, "paid_on >= ?")
		args = append(args, f.Range.Start.String())
	}
	if !f.Range.End.IsZero() {
		clauses = append(clauses, "paid_on <= ?")
		args = append(args, f.Range.End.String())
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *SQLRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := r.stamp()
	e.CreatedAt, e.UpdatedAt = now, now

	_, err := r.exec(ctx, r.db, `INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Amount, e.Category, e.SavingMethod, e.PaidOn, e.Remarks, e.Attachment, e.CreatedBy,
		toMillis(e.CreatedAt), toMillis(e.UpdatedAt))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (r *SQLRepository) GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx,
		r.rebind(`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND created_by = ?`), id, ownerID))
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, r.mapError(err))
	}
	return e, nil
}

func (r *SQLRepository) ListExpenses(ctx context.Context, f ExpenseFilter, page core.PageRequest) (core.Page[core.Expense], error) {
	page = page.Normalize()
	where, args := expenseWhere(f)

	total, err := r.count(ctx, r.db, `SELECT COUNT(*) FROM expenses`+where, args...)
	if err != nil {
		return core.Page[core.Expense]{}, fmt.Errorf("count expenses: %w", err)
	}
	items, err := r.queryExpenses(ctx, `SELECT `+expenseColumns+` FROM expenses`+where+
		` ORDER BY paid_on DESC, created_at DESC LIMIT ? OFFSET ?`, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return core.Page[core.Expense]{}, err
	}
	return core.NewPage(items, page, total), nil
}

func (r *SQLRepository) AllExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error) {
	where, args := expenseWhere(f)
	return r.queryExpenses(ctx, `SELECT `+expenseColumns+` FROM expenses`+where+` ORDER BY paid_on, created_at`, args...)
}

func (r *SQLRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	items := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *SQLRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.UpdatedAt = r.stamp()
	n, err := r.exec(ctx, r.db, `UPDATE expenses SET name = ?, amount = ?, category = ?, saving_method = ?,
		paid_on = ?, remarks = ?, attachment = ?, updated_at = ? WHERE id = ? AND created_by = ?`,
		e.Name, e.Amount, e.Category, e.SavingMethod, e.PaidOn, e.Remarks, e.Attachment, toMillis(e.UpdatedAt),
		e.ID, e.CreatedBy)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", e.ID, err)
	}
	if n == 0 {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", e.ID, core.ErrNotFound)
	}
	return r.GetExpense(ctx, e.CreatedBy, e.ID)
}

func (r *SQLRepository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	n, err := r.exec(ctx, r.db, `DELETE FROM expenses WHERE id = ? AND created_by = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
	}
	return nil
}
