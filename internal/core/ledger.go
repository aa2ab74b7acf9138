package core

import "sort"

// LedgerSummary is the paid/pending position of a commitment.
type LedgerSummary struct {
	TotalInstallments   int
	PaidInstallments    int
	PaidKnown           bool
	PendingInstallments int
	PaidAmount          Decimal
	PendingAmount       Decimal
	Status              Status
}

// PendingInstallments returns total - paid. An unknown paid count means
// nothing has been paid yet.
func PendingInstallments(total int, paid *int) int {
	if paid == nil {
		return max(total, 0)
	}
	return max(total-*paid, 0)
}

// PendingAmount is the one definition of the outstanding amount of a
// commitment: total installments * per-installment amount - paid amount.
func PendingAmount(totalInstallments int, emiAmount, paidAmount Decimal) Decimal {
	return emiAmount.MulInt(totalInstallments).Sub(paidAmount)
}

// DeriveStatus computes the status implied by the installment counts.
func DeriveStatus(paid, total int) Status {
	if total > 0 && paid >= total {
		return StatusCompleted
	}
	return StatusOngoing
}

// ResolveStatus applies a manual override to a derived status. Only Canceled
// is an override; any other value leaves the derived status in charge.
func ResolveStatus(derived, override Status) Status {
	if override == StatusCanceled {
		return StatusCanceled
	}
	return derived
}

// Summarize derives the ledger position of c from its full payment history.
//
// currentEmi is a running counter, so the paid installment count is the
// highest value recorded, capped at the total.
func Summarize(c Commitment, history []HistoryEntry) LedgerSummary {
	paid := 0
	paidAmount := Zero
	for _, h := range history {
		paid = max(paid, h.CurrentEmi)
		paidAmount = paidAmount.Add(h.Amount)
	}
	paid = min(paid, c.TotalEmi)

	return LedgerSummary{
		TotalInstallments:   c.TotalEmi,
		PaidInstallments:    paid,
		PaidKnown:           true,
		PendingInstallments: PendingInstallments(c.TotalEmi, &paid),
		PaidAmount:          paidAmount,
		PendingAmount:       PendingAmount(c.TotalEmi, c.EmiAmount, paidAmount),
		Status:              ResolveStatus(DeriveStatus(paid, c.TotalEmi), c.StatusOverride),
	}
}

// FromCached reads the ledger position from the aggregates stored on the
// commitment, which may be stale or missing.
func FromCached(c Commitment) LedgerSummary {
	s := LedgerSummary{
		TotalInstallments:   c.TotalEmi,
		PendingInstallments: PendingInstallments(c.TotalEmi, c.Paid),
		PaidAmount:          c.PaidAmount,
		PendingAmount:       PendingAmount(c.TotalEmi, c.EmiAmount, c.PaidAmount),
	}
	if c.Paid != nil {
		s.PaidInstallments = *c.Paid
		s.PaidKnown = true
	}
	s.Status = c.Status
	if !s.Status.Valid() {
		s.Status = ResolveStatus(DeriveStatus(s.PaidInstallments, c.TotalEmi), c.StatusOverride)
	}
	return s
}

// Overpaid reports whether more than the full obligation has been paid.
func (s LedgerSummary) Overpaid() bool {
	return s.PendingAmount.IsNegative()
}

// Apply stores the summary in the cached aggregate fields of c.
func (c Commitment) Apply(s LedgerSummary) Commitment {
	paid := s.PaidInstallments
	c.Paid = &paid
	c.Pending = s.PendingInstallments
	c.PaidAmount = s.PaidAmount
	c.BalanceAmount = s.PendingAmount
	c.Status = s.Status
	return c
}

// MaxInstallment returns the highest currentEmi in history.
func MaxInstallment(history []HistoryEntry) int {
	highest := 0
	for _, h := range history {
		highest = max(highest, h.CurrentEmi)
	}
	return highest
}

// NextInstallment assigns or validates the installment index of a new
// payment. requested == 0 asks for the next index.
func NextInstallment(history []HistoryEntry, total, requested int) (int, error) {
	return NextInstallmentAfter(MaxInstallment(history), total, requested)
}

// NextInstallmentAfter is NextInstallment when only the highest recorded
// index is known.
func NextInstallmentAfter(previous, total, requested int) (int, error) {
	if requested == 0 {
		if previous >= total {
			return 0, ErrCommitmentFullyPaid
		}
		return previous + 1, nil
	}
	if requested <= previous {
		return 0, ErrInstallmentOutOfOrder
	}
	if requested > total {
		return 0, ErrInstallmentOutOfRange
	}
	return requested, nil
}

// ValidateInstallmentEdit checks that changing entry id to installment value
// keeps the history strictly increasing when ordered by installment.
func ValidateInstallmentEdit(history []HistoryEntry, id string, value, total int) error {
	if value < 1 {
		return ErrInstallmentOutOfOrder
	}
	if value > total {
		return ErrInstallmentOutOfRange
	}

	ordered := make([]HistoryEntry, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CurrentEmi < ordered[j].CurrentEmi })

	for i, h := range ordered {
		if h.ID != id {
			continue
		}
		if i > 0 && value <= ordered[i-1].CurrentEmi {
			return ErrInstallmentOutOfOrder
		}
		if i < len(ordered)-1 && value >= ordered[i+1].CurrentEmi {
			return ErrInstallmentOutOfOrder
		}
		return nil
	}
	return ErrNotFound
}
