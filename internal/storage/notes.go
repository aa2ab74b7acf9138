package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"finboard/internal/core"
)

const noteColumns = `id, text, color, attachment, created_by, created_at, updated_at`

func scanNote(s scanner) (core.Note, error) {
	var (
		n                core.Note
		created, updated int64
	)
	if err := s.Scan(&n.ID, &n.Text, &n.Color, &n.Attachment, &n.CreatedBy, &created, &updated); err != nil {
		return core.Note{}, err
	}
	n.CreatedAt = fromMillis(created)
	n.UpdatedAt = fromMillis(updated)
	return n, nil
}

func (r *SQLRepository) CreateNote(ctx context.Context, n core.Note) (core.Note, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := r.stamp()
	n.CreatedAt, n.UpdatedAt = now, now

	_, err := r.exec(ctx, r.db, `INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Text, n.Color, n.Attachment, n.CreatedBy, toMillis(n.CreatedAt), toMillis(n.UpdatedAt))
	if err != nil {
		return core.Note{}, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) GetNote(ctx context.Context, ownerID, id string) (core.Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx,
		r.rebind(`SELECT `+noteColumns+` FROM notes WHERE id = ? AND created_by = ?`), id, ownerID))
	if err != nil {
		return core.Note{}, fmt.Errorf("get note %s: %w", id, r.mapError(err))
	}
	return n, nil
}

func (r *SQLRepository) ListNotes(ctx context.Context, ownerID string) ([]core.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		r.rebind(`SELECT `+noteColumns+` FROM notes WHERE created_by = ? ORDER BY created_at DESC, id`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	items := []core.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *SQLRepository) UpdateNote(ctx context.Context, n core.Note) (core.Note, error) {
	n.UpdatedAt = r.stamp()
	affected, err := r.exec(ctx, r.db, `UPDATE notes SET text = ?, color = ?, attachment = ?, updated_at = ?
		WHERE id = ? AND created_by = ?`, n.Text, n.Color, n.Attachment, toMillis(n.UpdatedAt), n.ID, n.CreatedBy)
	if err != nil {
		return core.Note{}, fmt.Errorf("update note %s: %w", n.ID, err)
	}
	if affected == 0 {
		return core.Note{}, fmt.Errorf("update note %s: %w", n.ID, core.ErrNotFound)
	}
	return r.GetNote(ctx, n.CreatedBy, n.ID)
}

func (r *SQLRepository) DeleteNote(ctx context.Context, ownerID, id string) error {
	n, err := r.exec(ctx, r.db, `DELETE FROM notes WHERE id = ? AND created_by = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete note %s: %w", id, core.ErrNotFound)
	}
	return nil
}
