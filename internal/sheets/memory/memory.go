package memory

import (
	"context"
	"fmt"
	"sync"

	"finboard/internal/sheets"
)

// Store keeps exported rows in memory. It backs the exporter when no
// spreadsheet is configured and in tests.
type Store struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var (
	_ sheets.RowExporter = (*Store)(nil)
	_ sheets.RowReader   = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// AppendRow stores the row and returns a synthetic row reference.
func (s *Store) AppendRow(_ context.Context, r sheets.Row) (string, error) {
	if r.Kind == "" {
		return "", fmt.Errorf("row kind is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// ListRows returns the rows dated in year, in append order.
func (s *Store) ListRows(_ context.Context, year int) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sheets.Row
	for _, r := range s.rows {
		if r.Date.Year() == year {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len returns the number of rows exported so far.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
