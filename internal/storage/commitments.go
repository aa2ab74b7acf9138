package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"finboard/internal/core"
)

const commitmentColumns = `id, pay_for, total_emi, paid, pending, emi_amount, paid_amount, balance_amount,
	pay_type, category, due_date, remarks, attachments, created_by, status, status_override, created_at, updated_at`

func scanCommitment(s scanner) (core.Commitment, error) {
	var (
		c                core.Commitment
		paid             sql.NullInt64
		attachments      string
		created, updated int64
	)
	err := s.Scan(&c.ID, &c.PayFor, &c.TotalEmi, &paid, &c.Pending, &c.EmiAmount, &c.PaidAmount, &c.BalanceAmount,
		&c.PayType, &c.Category, &c.DueDate, &c.Remarks, &attachments, &c.CreatedBy, &c.Status, &c.StatusOverride,
		&created, &updated)
	if err != nil {
		return core.Commitment{}, err
	}
	if paid.Valid {
		p := int(paid.Int64)
		c.Paid = &p
	}
	if attachments != "" {
		if err := json.Unmarshal([]byte(attachments), &c.Attachments); err != nil {
			return core.Commitment{}, fmt.Errorf("decode attachments of %s: %w", c.ID, err)
		}
	}
	if c.Attachments == nil {
		c.Attachments = []string{}
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func encodeAttachments(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func nullablePaid(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func (r *SQLRepository) CreateCommitment(ctx context.Context, c core.Commitment) (core.Commitment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := r.stamp()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Attachments == nil {
		c.Attachments = []string{}
	}

	_, err := r.exec(ctx, r.db, `INSERT INTO commitments (`+commitmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PayFor, c.TotalEmi, nullablePaid(c.Paid), c.Pending, c.EmiAmount, c.PaidAmount, c.BalanceAmount,
		c.PayType, c.Category, c.DueDate, c.Remarks, encodeAttachments(c.Attachments), c.CreatedBy, c.Status,
		c.StatusOverride, toMillis(c.CreatedAt), toMillis(c.UpdatedAt))
	if err != nil {
		return core.Commitment{}, fmt.Errorf("insert commitment: %w", err)
	}
	return c, nil
}

func (r *SQLRepository) GetCommitment(ctx context.Context, ownerID, id string) (core.Commitment, error) {
	return r.getCommitment(ctx, r.db, ownerID, id, false)
}

func (r *SQLRepository) getCommitment(ctx context.Context, q querier, ownerID, id string, lock bool) (core.Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE id = ? AND created_by = ?`
	if lock {
		query += r.forUpdate()
	}
	c, err := scanCommitment(q.QueryRowContext(ctx, r.rebind(query), id, ownerID))
	if err != nil {
		return core.Commitment{}, fmt.Errorf("get commitment %s: %w", id, r.mapError(err))
	}
	return c, nil
}

func commitmentWhere(f CommitmentFilter) (string, []any) {
	clauses := []string{"created_by = ?"}
	args := []any{f.OwnerID}
	if f.Status != 0 {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.PayType != 0 {
		clauses = append(clauses, "pay_type = ?")
		args = append(args, f.PayType)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *SQLRepository) ListCommitments(ctx context.Context, f CommitmentFilter, page core.PageRequest) (core.Page[core.Commitment], error) {
	page = page.Normalize()
	where, args := commitmentWhere(f)

	total, err := r.count(ctx, r.db, `SELECT COUNT(*) FROM commitments`+where, args...)
	if err != nil {
		return core.Page[core.Commitment]{}, fmt.Errorf("count commitments: %w", err)
	}

	items, err := r.queryCommitments(ctx, `SELECT `+commitmentColumns+` FROM commitments`+where+
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return core.Page[core.Commitment]{}, err
	}
	return core.NewPage(items, page, total), nil
}

func (r *SQLRepository) AllCommitments(ctx context.Context, ownerID string) ([]core.Commitment, error) {
	where, args := commitmentWhere(CommitmentFilter{OwnerID: ownerID})
	return r.queryCommitments(ctx, `SELECT `+commitmentColumns+` FROM commitments`+where+` ORDER BY created_at DESC, id`, args...)
}

func (r *SQLRepository) queryCommitments(ctx context.Context, query string, args ...any) ([]core.Commitment, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query commitments: %w", err)
	}
	defer rows.Close()

	items := []core.Commitment{}
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *SQLRepository) UpdateCommitment(ctx context.Context, c core.Commitment) (core.Commitment, error) {
	c.UpdatedAt = r.stamp()
	n, err := r.exec(ctx, r.db, `UPDATE commitments SET pay_for = ?, total_emi = ?, paid = ?, pending = ?,
		emi_amount = ?, paid_amount = ?, balance_amount = ?, pay_type = ?, category = ?, due_date = ?,
		remarks = ?, attachments = ?, status = ?, status_override = ?, updated_at = ?
		WHERE id = ? AND created_by = ?`,
		c.PayFor, c.TotalEmi, nullablePaid(c.Paid), c.Pending, c.EmiAmount, c.PaidAmount, c.BalanceAmount,
		c.PayType, c.Category, c.DueDate, c.Remarks, encodeAttachments(c.Attachments), c.Status, c.StatusOverride,
		toMillis(c.UpdatedAt), c.ID, c.CreatedBy)
	if err != nil {
		return core.Commitment{}, fmt.Errorf("update commitment %s: %w", c.ID, err)
	}
	if n == 0 {
		return core.Commitment{}, fmt.Errorf("update commitment %s: %w", c.ID, core.ErrNotFound)
	}
	return r.GetCommitment(ctx, c.CreatedBy, c.ID)
}

func (r *SQLRepository) DeleteCommitment(ctx context.Context, ownerID, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		n, err := r.exec(ctx, tx, `DELETE FROM commitments WHERE id = ? AND created_by = ?`, id, ownerID)
		if err != nil {
			return fmt.Errorf("delete commitment %s: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("delete commitment %s: %w", id, core.ErrNotFound)
		}
		if _, err := r.exec(ctx, tx, `DELETE FROM commitment_history WHERE commitment_id = ?`, id); err != nil {
			return fmt.Errorf("delete history of %s: %w", id, err)
		}
		if _, err := r.exec(ctx, tx, `DELETE FROM reminders_sent WHERE commitment_id = ?`, id); err != nil {
			return fmt.Errorf("delete reminders of %s: %w", id, err)
		}
		return nil
	})
}
