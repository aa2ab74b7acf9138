package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"finboard/internal/core"
)

const historyColumns = `id, commitment_id, amount, current_emi, paid_date, remarks, attachment, created_by, created_at, updated_at`

func scanHistory(s scanner) (core.HistoryEntry, error) {
	var (
		h                core.HistoryEntry
		created, updated int64
	)
	err := s.Scan(&h.ID, &h.CommitmentID, &h.Amount, &h.CurrentEmi, &h.PaidDate, &h.Remarks, &h.Attachment,
		&h.CreatedBy, &created, &updated)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	h.CreatedAt = fromMillis(created)
	h.UpdatedAt = fromMillis(updated)
	return h, nil
}

func (r *SQLRepository) AppendHistory(ctx context.Context, h core.HistoryEntry) (core.HistoryEntry, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	now := r.stamp()
	h.CreatedAt, h.UpdatedAt = now, now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		c, err := r.getCommitment(ctx, tx, h.CreatedBy, h.CommitmentID, true)
		if err != nil {
			return err
		}
		if c.StatusOverride == core.StatusCanceled {
			return core.ErrCommitmentNotPayable
		}

		var previous int
		err = tx.QueryRowContext(ctx, r.rebind(`SELECT COALESCE(MAX(current_emi), 0) FROM commitment_history WHERE commitment_id = ?`),
			h.CommitmentID).Scan(&previous)
		if err != nil {
			return fmt.Errorf("read installment counter: %w", err)
		}

		h.CurrentEmi, err = core.NextInstallmentAfter(previous, c.TotalEmi, h.CurrentEmi)
		if err != nil {
			return err
		}

		_, err = r.exec(ctx, tx, `INSERT INTO commitment_history (`+historyColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.ID, h.CommitmentID, h.Amount, h.CurrentEmi, h.PaidDate, h.Remarks, h.Attachment, h.CreatedBy,
			toMillis(h.CreatedAt), toMillis(h.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.HistoryEntry{}, err
	}
	return h, nil
}

func (r *SQLRepository) GetHistory(ctx context.Context, ownerID, id string) (core.HistoryEntry, error) {
	return r.getHistory(ctx, r.db, ownerID, id)
}

func (r *SQLRepository) getHistory(ctx context.Context, q querier, ownerID, id string) (core.HistoryEntry, error) {
	h, err := scanHistory(q.QueryRowContext(ctx,
		r.rebind(`SELECT `+historyColumns+` FROM commitment_history WHERE id = ? AND created_by = ?`), id, ownerID))
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("get history entry %s: %w", id, r.mapError(err))
	}
	return h, nil
}

func (r *SQLRepository) ListHistory(ctx context.Context, ownerID, commitmentID string, page core.PageRequest) (core.Page[core.HistoryEntry], error) {
	page = page.Normalize()
	const where = ` WHERE commitment_id = ? AND created_by = ?`

	total, err := r.count(ctx, r.db, `SELECT COUNT(*) FROM commitment_history`+where, commitmentID, ownerID)
	if err != nil {
		return core.Page[core.HistoryEntry]{}, fmt.Errorf("count history: %w", err)
	}

	items, err := r.queryHistory(ctx, r.db, `SELECT `+historyColumns+` FROM commitment_history`+where+
		` ORDER BY current_emi DESC LIMIT ? OFFSET ?`, commitmentID, ownerID, page.Limit, page.Offset())
	if err != nil {
		return core.Page[core.HistoryEntry]{}, err
	}
	return core.NewPage(items, page, total), nil
}

func (r *SQLRepository) AllHistory(ctx context.Context, ownerID, commitmentID string) ([]core.HistoryEntry, error) {
	return r.queryHistory(ctx, r.db, `SELECT `+historyColumns+` FROM commitment_history
		WHERE commitment_id = ? AND created_by = ? ORDER BY current_emi`, commitmentID, ownerID)
}

func (r *SQLRepository) queryHistory(ctx context.Context, q querier, query string, args ...any) ([]core.HistoryEntry, error) {
	rows, err := q.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	items := []core.HistoryEntry{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

func (r *SQLRepository) UpdateHistory(ctx context.Context, h core.HistoryEntry) (core.HistoryEntry, error) {
	var updated core.HistoryEntry
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := r.getHistory(ctx, tx, h.CreatedBy, h.ID)
		if err != nil {
			return err
		}
		c, err := r.getCommitment(ctx, tx, h.CreatedBy, existing.CommitmentID, true)
		if err != nil {
			return err
		}

		if h.CurrentEmi == 0 {
			h.CurrentEmi = existing.CurrentEmi
		}
		if h.CurrentEmi != existing.CurrentEmi {
			siblings, err := r.queryHistory(ctx, tx, `SELECT `+historyColumns+` FROM commitment_history
				WHERE commitment_id = ? ORDER BY current_emi`, existing.CommitmentID)
			if err != nil {
				return err
			}
			if err := core.ValidateInstallmentEdit(siblings, h.ID, h.CurrentEmi, c.TotalEmi); err != nil {
				return err
			}
		}

		h.CommitmentID = existing.CommitmentID
		h.CreatedAt = existing.CreatedAt
		h.UpdatedAt = r.stamp()
		_, err = r.exec(ctx, tx, `UPDATE commitment_history SET amount = ?, current_emi = ?, paid_date = ?,
			remarks = ?, attachment = ?, updated_at = ? WHERE id = ? AND created_by = ?`,
			h.Amount, h.CurrentEmi, h.PaidDate, h.Remarks, h.Attachment, toMillis(h.UpdatedAt), h.ID, h.CreatedBy)
		if err != nil {
			return fmt.Errorf("update history entry %s: %w", h.ID, err)
		}
		updated = h
		return nil
	})
	if err != nil {
		return core.HistoryEntry{}, err
	}
	return updated, nil
}

func (r *SQLRepository) DeleteHistory(ctx context.Context, ownerID, id string) (core.HistoryEntry, error) {
	var deleted core.HistoryEntry
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		h, err := r.getHistory(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if _, err := r.exec(ctx, tx, `DELETE FROM commitment_history WHERE id = ? AND created_by = ?`, id, ownerID); err != nil {
			return fmt.Errorf("delete history entry %s: %w", id, err)
		}
		deleted = h
		return nil
	})
	return deleted, err
}
