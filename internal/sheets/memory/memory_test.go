package memory

import (
	"context"
	"testing"

	"finboard/internal/core"
	"finboard/internal/sheets"
)

func TestStoreAppendAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendRow(ctx, sheets.Row{Kind: sheets.KindExpense, Date: core.NewDate(2024, 3, 1), Amount: core.DecimalFromInt(10)})
	if err != nil || ref != "mem:1" {
		t.Fatalf("AppendRow() = %q, %v", ref, err)
	}
	if _, err := s.AppendRow(ctx, sheets.Row{Kind: sheets.KindPayment, Date: core.NewDate(2023, 12, 31)}); err != nil {
		t.Fatalf("AppendRow() error = %v", err)
	}
	if _, err := s.AppendRow(ctx, sheets.Row{}); err == nil {
		t.Error("AppendRow() without kind should fail")
	}

	rows, err := s.ListRows(ctx, 2024)
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Kind != sheets.KindExpense {
		t.Errorf("ListRows(2024) = %+v", rows)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}
