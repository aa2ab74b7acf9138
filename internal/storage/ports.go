package storage

import (
	"context"
	"time"

	"finboard/internal/core"
)

// CommitmentFilter narrows commitment lists. Zero fields match everything
// except OwnerID, which is always required.
type CommitmentFilter struct {
	OwnerID string
	Status  core.Status
	PayType core.PayType
}

// ExpenseFilter narrows expense lists.
type ExpenseFilter struct {
	OwnerID  string
	Category core.ExpenseCategory
	Range    core.DateRange
}

type CommitmentStore interface {
	CreateCommitment(ctx context.Context, c core.Commitment) (core.Commitment, error)
	GetCommitment(ctx context.Context, ownerID, id string) (core.Commitment, error)
	ListCommitments(ctx context.Context, f CommitmentFilter, page core.PageRequest) (core.Page[core.Commitment], error)
	AllCommitments(ctx context.Context, ownerID string) ([]core.Commitment, error)
	// UpdateCommitment writes static attributes, status override and cached
	// aggregates of an existing commitment.
	UpdateCommitment(ctx context.Context, c core.Commitment) (core.Commitment, error)
	// DeleteCommitment removes the commitment and its payment history.
	DeleteCommitment(ctx context.Context, ownerID, id string) error
}

type HistoryStore interface {
	// AppendHistory assigns or validates CurrentEmi against the stored history
	// and inserts the entry in one transaction.
	AppendHistory(ctx context.Context, h core.HistoryEntry) (core.HistoryEntry, error)
	GetHistory(ctx context.Context, ownerID, id string) (core.HistoryEntry, error)
	ListHistory(ctx context.Context, ownerID, commitmentID string, page core.PageRequest) (core.Page[core.HistoryEntry], error)
	AllHistory(ctx context.Context, ownerID, commitmentID string) ([]core.HistoryEntry, error)
	// UpdateHistory keeps installment indexes strictly increasing.
	UpdateHistory(ctx context.Context, h core.HistoryEntry) (core.HistoryEntry, error)
	DeleteHistory(ctx context.Context, ownerID, id string) (core.HistoryEntry, error)
}

type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error)
	ListExpenses(ctx context.Context, f ExpenseFilter, page core.PageRequest) (core.Page[core.Expense], error)
	AllExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, ownerID, id string) error
}

type NoteStore interface {
	CreateNote(ctx context.Context, n core.Note) (core.Note, error)
	GetNote(ctx context.Context, ownerID, id string) (core.Note, error)
	ListNotes(ctx context.Context, ownerID string) ([]core.Note, error)
	UpdateNote(ctx context.Context, n core.Note) (core.Note, error)
	DeleteNote(ctx context.Context, ownerID, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
}

// ReminderLog records which reminders went out so each commitment is
// reminded at most once per period.
type ReminderLog interface {
	// MarkReminderSent returns false when the pair was already recorded.
	MarkReminderSent(ctx context.Context, commitmentID, period string, at time.Time) (bool, error)
	// ReleaseReminder drops a mark so the reminder can be sent again.
	ReleaseReminder(ctx context.Context, commitmentID, period string) error
}

// Store is everything the services need from persistence.
type Store interface {
	CommitmentStore
	HistoryStore
	ExpenseStore
	NoteStore
	UserStore
	ReminderLog
	Ping(ctx context.Context) error
	Close() error
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
