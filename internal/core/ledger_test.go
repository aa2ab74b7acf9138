package core

import (
	"errors"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestPendingInstallments(t *testing.T) {
	cases := []struct {
		name  string
		total int
		paid  *int
		want  int
	}{
		{"partial", 12, intPtr(5), 7},
		{"none paid", 12, intPtr(0), 12},
		{"unknown paid is fully pending", 12, nil, 12},
		{"all paid", 12, intPtr(12), 0},
		{"overcounted never negative", 3, intPtr(5), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PendingInstallments(tc.total, tc.paid); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestPendingAmount(t *testing.T) {
	got := PendingAmount(12, DecimalFromInt(1000), DecimalFromInt(2000))
	if !got.Equal(DecimalFromInt(10000)) {
		t.Fatalf("got %s, want 10000", got)
	}
	got = PendingAmount(3, MustDecimal("333.33"), MustDecimal("999.99"))
	if !got.IsZero() {
		t.Fatalf("got %s, want 0", got)
	}
}

func TestResolveStatus(t *testing.T) {
	cases := []struct {
		derived, override, want Status
	}{
		{StatusOngoing, 0, StatusOngoing},
		{StatusCompleted, 0, StatusCompleted},
		{StatusOngoing, StatusCanceled, StatusCanceled},
		{StatusCompleted, StatusCanceled, StatusCanceled},
		{StatusOngoing, StatusCompleted, StatusOngoing},
	}
	for _, tc := range cases {
		if got := ResolveStatus(tc.derived, tc.override); got != tc.want {
			t.Fatalf("ResolveStatus(%v,%v) = %v, want %v", tc.derived, tc.override, got, tc.want)
		}
	}
}

func history(emis ...int) []HistoryEntry {
	out := make([]HistoryEntry, len(emis))
	for i, e := range emis {
		out[i] = HistoryEntry{ID: string(rune('a' + i)), CurrentEmi: e, Amount: DecimalFromInt(1000)}
	}
	return out
}

func TestSummarizeTwoPayments(t *testing.T) {
	c := Commitment{TotalEmi: 12, EmiAmount: DecimalFromInt(1000)}
	s := Summarize(c, history(1, 2))

	if s.PaidInstallments != 2 || s.PendingInstallments != 10 {
		t.Fatalf("paid=%d pending=%d, want 2/10", s.PaidInstallments, s.PendingInstallments)
	}
	if !s.PaidAmount.Equal(DecimalFromInt(2000)) || !s.PendingAmount.Equal(DecimalFromInt(10000)) {
		t.Fatalf("paidAmount=%s pendingAmount=%s", s.PaidAmount, s.PendingAmount)
	}
	if s.Status != StatusOngoing {
		t.Fatalf("status=%v, want Ongoing", s.Status)
	}
	if s.PaidInstallments+s.PendingInstallments != c.TotalEmi {
		t.Fatalf("installments do not add up")
	}
}

func TestSummarizeCompletionAndOverride(t *testing.T) {
	c := Commitment{TotalEmi: 2, EmiAmount: DecimalFromInt(500)}
	if s := Summarize(c, history(1, 2)); s.Status != StatusCompleted || s.PendingInstallments != 0 {
		t.Fatalf("expected completed, got %+v", s)
	}

	c.StatusOverride = StatusCanceled
	if s := Summarize(c, history(1)); s.Status != StatusCanceled {
		t.Fatalf("manual cancel must win, got %v", s.Status)
	}

	c.StatusOverride = 0
	s := Summarize(c, history(1, 5))
	if s.PaidInstallments != 2 {
		t.Fatalf("paid installments must be capped at total, got %d", s.PaidInstallments)
	}
	if !s.Overpaid() {
		t.Fatalf("paying 2000 on a 1000 obligation is an overpayment")
	}
}

func TestFromCached(t *testing.T) {
	c := Commitment{TotalEmi: 12, EmiAmount: DecimalFromInt(1000), PaidAmount: DecimalFromInt(5000), Paid: intPtr(5), Status: StatusOngoing}
	s := FromCached(c)
	if s.PendingInstallments != 7 || !s.PendingAmount.Equal(DecimalFromInt(7000)) || s.Status != StatusOngoing {
		t.Fatalf("unexpected summary %+v", s)
	}

	c.Paid = nil
	c.Status = 0
	s = FromCached(c)
	if s.PaidKnown || s.PendingInstallments != 12 || s.Status != StatusOngoing {
		t.Fatalf("unknown paid count must read as fully pending, got %+v", s)
	}
}

func TestApply(t *testing.T) {
	c := Commitment{TotalEmi: 12, EmiAmount: DecimalFromInt(1000)}
	c = c.Apply(Summarize(c, history(1, 2)))
	if c.Paid == nil || *c.Paid != 2 || c.Pending != 10 || !c.BalanceAmount.Equal(DecimalFromInt(10000)) {
		t.Fatalf("unexpected cached fields %+v", c)
	}
}

func TestNextInstallment(t *testing.T) {
	cases := []struct {
		name      string
		history   []HistoryEntry
		total     int
		requested int
		want      int
		err       error
	}{
		{"first assigned", nil, 12, 0, 1, nil},
		{"next assigned", history(1, 2), 12, 0, 3, nil},
		{"explicit next", history(1, 2), 12, 3, 3, nil},
		{"gap allowed", history(1), 12, 4, 4, nil},
		{"repeat rejected", history(1, 2), 12, 2, 0, ErrInstallmentOutOfOrder},
		{"backwards rejected", history(1, 2), 12, 1, 0, ErrInstallmentOutOfOrder},
		{"beyond total", history(1), 2, 3, 0, ErrInstallmentOutOfRange},
		{"fully paid", history(1, 2), 2, 0, 0, ErrCommitmentFullyPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextInstallment(tc.history, tc.total, tc.requested)
			if !errors.Is(err, tc.err) {
				t.Fatalf("err = %v, want %v", err, tc.err)
			}
			if got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestValidateInstallmentEdit(t *testing.T) {
	h := history(1, 3, 5) // ids a, b, c
	if err := ValidateInstallmentEdit(h, "b", 4, 12); err != nil {
		t.Fatalf("moving b between neighbours: %v", err)
	}
	if err := ValidateInstallmentEdit(h, "b", 5, 12); !errors.Is(err, ErrInstallmentOutOfOrder) {
		t.Fatalf("colliding with next neighbour must fail, got %v", err)
	}
	if err := ValidateInstallmentEdit(h, "c", 13, 12); !errors.Is(err, ErrInstallmentOutOfRange) {
		t.Fatalf("beyond total must fail, got %v", err)
	}
	if err := ValidateInstallmentEdit(h, "zz", 2, 12); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown entry, got %v", err)
	}
}
