// Package memory is an in-process Store used by DATA_BACKEND=memory and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/storage"
)

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	commitments map[string]core.Commitment
	history     map[string]core.HistoryEntry
	expenses    map[string]core.Expense
	notes       map[string]core.Note
	users       map[string]core.User
	reminders   map[string]time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:         time.Now,
		commitments: map[string]core.Commitment{},
		history:     map[string]core.HistoryEntry{},
		expenses:    map[string]core.Expense{},
		notes:       map[string]core.Note{},
		users:       map[string]core.User{},
		reminders:   map[string]time.Time{},
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func cloneCommitment(c core.Commitment) core.Commitment {
	c.Attachments = append([]string{}, c.Attachments...)
	if c.Paid != nil {
		p := *c.Paid
		c.Paid = &p
	}
	return c
}

// Commitments

func (s *Store) CreateCommitment(_ context.Context, c core.Commitment) (core.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = newID(c.ID)
	if _, exists := s.commitments[c.ID]; exists {
		return core.Commitment{}, fmt.Errorf("insert commitment: %w", core.ErrConflict)
	}
	now := s.stamp()
	c.CreatedAt, c.UpdatedAt = now, now
	s.commitments[c.ID] = cloneCommitment(c)
	return cloneCommitment(c), nil
}

func (s *Store) GetCommitment(_ context.Context, ownerID, id string) (core.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitments[id]
	if !ok || c.CreatedBy != ownerID {
		return core.Commitment{}, fmt.Errorf("get commitment %s: %w", id, core.ErrNotFound)
	}
	return cloneCommitment(c), nil
}

func (s *Store) filterCommitments(f storage.CommitmentFilter) []core.Commitment {
	out := []core.Commitment{}
	for _, c := range s.commitments {
		if c.CreatedBy != f.OwnerID {
			continue
		}
		if f.Status != 0 && c.Status != f.Status {
			continue
		}
		if f.PayType != 0 && c.PayType != f.PayType {
			continue
		}
		out = append(out, cloneCommitment(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListCommitments(_ context.Context, f storage.CommitmentFilter, page core.PageRequest) (core.Page[core.Commitment], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Paginate(s.filterCommitments(f), page), nil
}

func (s *Store) AllCommitments(_ context.Context, ownerID string) ([]core.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterCommitments(storage.CommitmentFilter{OwnerID: ownerID}), nil
}

func (s *Store) UpdateCommitment(_ context.Context, c core.Commitment) (core.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.commitments[c.ID]
	if !ok || existing.CreatedBy != c.CreatedBy {
		return core.Commitment{}, fmt.Errorf("update commitment %s: %w", c.ID, core.ErrNotFound)
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.stamp()
	s.commitments[c.ID] = cloneCommitment(c)
	return cloneCommitment(c), nil
}

func (s *Store) DeleteCommitment(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitments[id]
	if !ok || c.CreatedBy != ownerID {
		return fmt.Errorf("delete commitment %s: %w", id, core.ErrNotFound)
	}
	delete(s.commitments, id)
	for hid, h := range s.history {
		if h.CommitmentID == id {
			delete(s.history, hid)
		}
	}
	for key := range s.reminders {
		if strings.HasPrefix(key, id+"|") {
			delete(s.reminders, key)
		}
	}
	return nil
}

// History

func (s *Store) historyOf(commitmentID string) []core.HistoryEntry {
	out := []core.HistoryEntry{}
	for _, h := range s.history {
		if h.CommitmentID == commitmentID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentEmi < out[j].CurrentEmi })
	return out
}

func (s *Store) AppendHistory(_ context.Context, h core.HistoryEntry) (core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitments[h.CommitmentID]
	if !ok || c.CreatedBy != h.CreatedBy {
		return core.HistoryEntry{}, fmt.Errorf("get commitment %s: %w", h.CommitmentID, core.ErrNotFound)
	}
	if c.StatusOverride == core.StatusCanceled {
		return core.HistoryEntry{}, core.ErrCommitmentNotPayable
	}
	emi, err := core.NextInstallment(s.historyOf(h.CommitmentID), c.TotalEmi, h.CurrentEmi)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	h.CurrentEmi = emi
	h.ID = newID(h.ID)
	now := s.stamp()
	h.CreatedAt, h.UpdatedAt = now, now
	s.history[h.ID] = h
	return h, nil
}

func (s *Store) GetHistory(_ context.Context, ownerID, id string) (core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.history[id]
	if !ok || h.CreatedBy != ownerID {
		return core.HistoryEntry{}, fmt.Errorf("get history entry %s: %w", id, core.ErrNotFound)
	}
	return h, nil
}

func (s *Store) ownedHistory(ownerID, commitmentID string) []core.HistoryEntry {
	out := []core.HistoryEntry{}
	for _, h := range s.historyOf(commitmentID) {
		if h.CreatedBy == ownerID {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) ListHistory(_ context.Context, ownerID, commitmentID string, page core.PageRequest) (core.Page[core.HistoryEntry], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.ownedHistory(ownerID, commitmentID)
	// Newest installment first, like the SQL store.
	sort.Slice(items, func(i, j int) bool { return items[i].CurrentEmi > items[j].CurrentEmi })
	return core.Paginate(items, page), nil
}

func (s *Store) AllHistory(_ context.Context, ownerID, commitmentID string) ([]core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownedHistory(ownerID, commitmentID), nil
}

func (s *Store) UpdateHistory(_ context.Context, h core.HistoryEntry) (core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.history[h.ID]
	if !ok || existing.CreatedBy != h.CreatedBy {
		return core.HistoryEntry{}, fmt.Errorf("update history entry %s: %w", h.ID, core.ErrNotFound)
	}
	c, ok := s.commitments[existing.CommitmentID]
	if !ok {
		return core.HistoryEntry{}, fmt.Errorf("get commitment %s: %w", existing.CommitmentID, core.ErrNotFound)
	}
	if h.CurrentEmi == 0 {
		h.CurrentEmi = existing.CurrentEmi
	}
	if h.CurrentEmi != existing.CurrentEmi {
		if err := core.ValidateInstallmentEdit(s.historyOf(existing.CommitmentID), h.ID, h.CurrentEmi, c.TotalEmi); err != nil {
			return core.HistoryEntry{}, err
		}
	}
	h.CommitmentID = existing.CommitmentID
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = s.stamp()
	s.history[h.ID] = h
	return h, nil
}

func (s *Store) DeleteHistory(_ context.Context, ownerID, id string) (core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.history[id]
	if !ok || h.CreatedBy != ownerID {
		return core.HistoryEntry{}, fmt.Errorf("delete history entry %s: %w", id, core.ErrNotFound)
	}
	delete(s.history, id)
	return h, nil
}

// Expenses

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = newID(e.ID)
	now := s.stamp()
	e.CreatedAt, e.UpdatedAt = now, now
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, ownerID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.CreatedBy != ownerID {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) filterExpenses(f storage.ExpenseFilter) []core.Expense {
	out := []core.Expense{}
	for _, e := range s.expenses {
		if e.CreatedBy != f.OwnerID {
			continue
		}
		if f.Category != 0 && e.Category != f.Category {
			continue
		}
		if !f.Range.Contains(e.PaidOn) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaidOn.Equal(out[j].PaidOn.Time) {
			return out[i].PaidOn.Before(out[j].PaidOn.Time)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) ListExpenses(_ context.Context, f storage.ExpenseFilter, page core.PageRequest) (core.Page[core.Expense], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.filterExpenses(f)
	// Most recent first.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return core.Paginate(items, page), nil
}

func (s *Store) AllExpenses(_ context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterExpenses(f), nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.expenses[e.ID]
	if !ok || existing.CreatedBy != e.CreatedBy {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", e.ID, core.ErrNotFound)
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = s.stamp()
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.CreatedBy != ownerID {
		return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

// Notes

func (s *Store) CreateNote(_ context.Context, n core.Note) (core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = newID(n.ID)
	now := s.stamp()
	n.CreatedAt, n.UpdatedAt = now, now
	s.notes[n.ID] = n
	return n, nil
}

func (s *Store) GetNote(_ context.Context, ownerID, id string) (core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok || n.CreatedBy != ownerID {
		return core.Note{}, fmt.Errorf("get note %s: %w", id, core.ErrNotFound)
	}
	return n, nil
}

func (s *Store) ListNotes(_ context.Context, ownerID string) ([]core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Note{}
	for _, n := range s.notes {
		if n.CreatedBy == ownerID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateNote(_ context.Context, n core.Note) (core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.notes[n.ID]
	if !ok || existing.CreatedBy != n.CreatedBy {
		return core.Note{}, fmt.Errorf("update note %s: %w", n.ID, core.ErrNotFound)
	}
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = s.stamp()
	s.notes[n.ID] = n
	return n, nil
}

func (s *Store) DeleteNote(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok || n.CreatedBy != ownerID {
		return fmt.Errorf("delete note %s: %w", id, core.ErrNotFound)
	}
	delete(s.notes, id)
	return nil
}

// Users

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return core.User{}, fmt.Errorf("insert user: %w", core.ErrConflict)
		}
	}
	u.ID = newID(u.ID)
	u.CreatedAt = s.stamp()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("get user %s: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkReminderSent(_ context.Context, commitmentID, period string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := commitmentID + "|" + period
	if _, sent := s.reminders[key]; sent {
		return false, nil
	}
	s.reminders[key] = at
	return true, nil
}

func (s *Store) ReleaseReminder(_ context.Context, commitmentID, period string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reminders, commitmentID+"|"+period)
	return nil
}
