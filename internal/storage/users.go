package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
)

const userColumns = `id, name, email, password_hash, notify_email, telegram_chat_id, created_at`

func scanUser(s scanner) (core.User, error) {
	var (
		u       core.User
		created int64
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.NotifyEmail, &u.TelegramChatID, &created); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

func (r *SQLRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = r.stamp()

	_, err := r.exec(ctx, r.db, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.NotifyEmail, u.TelegramChatID, toMillis(u.CreatedAt))
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", id, r.mapError(err))
	}
	return u, nil
}

func (r *SQLRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`),
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", r.mapError(err))
	}
	return u, nil
}

func (r *SQLRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []core.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLRepository) MarkReminderSent(ctx context.Context, commitmentID, period string, at time.Time) (bool, error) {
	n, err := r.exec(ctx, r.db, `INSERT INTO reminders_sent (commitment_id, period, sent_at) VALUES (?, ?, ?)
		ON CONFLICT (commitment_id, period) DO NOTHING`, commitmentID, period, toMillis(at))
	if err != nil {
		return false, fmt.Errorf("record reminder for %s: %w", commitmentID, err)
	}
	return n > 0, nil
}

func (r *SQLRepository) ReleaseReminder(ctx context.Context, commitmentID, period string) error {
	if _, err := r.exec(ctx, r.db, `DELETE FROM reminders_sent WHERE commitment_id = ? AND period = ?`, commitmentID, period); err != nil {
		return fmt.Errorf("release reminder for %s: %w", commitmentID, err)
	}
	return nil
}
