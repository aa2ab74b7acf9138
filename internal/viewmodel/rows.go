// Package viewmodel maps API records to display rows and owns the state of
// paginated lists.
package viewmodel

import (
	"strconv"

	"finboard/internal/core"
)

// CommitmentRow is one line of the commitments table.
type CommitmentRow struct {
	No            int
	ID            string
	PayFor        string
	TotalEmi      int
	Paid          int
	PaidKnown     bool
	Pending       int
	EmiAmount     float64
	PaidAmount    float64
	PendingAmount float64
	EmiINR        string
	PaidINR       string
	PendingINR    string
	Overpaid      bool
	DueDate       int
	Status        string
	Category      string
	PayType       string
	Remarks       string
	Attachments   []string
}

// NewCommitmentRow derives the row from the commitment's cached aggregates.
func NewCommitmentRow(c core.Commitment, no int) CommitmentRow {
	s := core.FromCached(c)
	return CommitmentRow{
		No:            no,
		ID:            c.ID,
		PayFor:        c.PayFor,
		TotalEmi:      c.TotalEmi,
		Paid:          s.PaidInstallments,
		PaidKnown:     s.PaidKnown,
		Pending:       s.PendingInstallments,
		EmiAmount:     c.EmiAmount.Float64(),
		PaidAmount:    s.PaidAmount.Float64(),
		PendingAmount: s.PendingAmount.Float64(),
		EmiINR:        c.EmiAmount.FormatINR(),
		PaidINR:       s.PaidAmount.FormatINR(),
		PendingINR:    s.PendingAmount.FormatINR(),
		Overpaid:      s.Overpaid(),
		DueDate:       c.DueDate,
		Status:        s.Status.Label(),
		Category:      c.Category.Label(),
		PayType:       c.PayType.Label(),
		Remarks:       c.Remarks,
		Attachments:   c.Attachments,
	}
}

// PaidLabel shows the paid count, or "-" when the server has not computed it.
func (r CommitmentRow) PaidLabel() string {
	if !r.PaidKnown {
		return "-"
	}
	return strconv.Itoa(r.Paid)
}

// HistoryRow is one recorded installment.
type HistoryRow struct {
	No           int
	ID           string
	CommitmentID string
	CurrentEmi   int
	Amount       float64
	AmountINR    string
	PaidDate     string
	Remarks      string
	Attachment   string
}

func NewHistoryRow(h core.HistoryEntry, no int) HistoryRow {
	return HistoryRow{
		No:           no,
		ID:           h.ID,
		CommitmentID: h.CommitmentID,
		CurrentEmi:   h.CurrentEmi,
		Amount:       h.Amount.Float64(),
		AmountINR:    h.Amount.FormatINR(),
		PaidDate:     dateLabel(h.PaidDate),
		Remarks:      h.Remarks,
		Attachment:   h.Attachment,
	}
}

// ExpenseRow is one expense or saving.
type ExpenseRow struct {
	No           int
	ID           string
	Name         string
	Amount       float64
	AmountINR    string
	Category     string
	SavingMethod string
	PaidOn       string
	Remarks      string
	Attachment   string
}

func NewExpenseRow(e core.Expense, no int) ExpenseRow {
	return ExpenseRow{
		No:           no,
		ID:           e.ID,
		Name:         e.Name,
		Amount:       e.Amount.Float64(),
		AmountINR:    e.Amount.FormatINR(),
		Category:     e.Category.Label(),
		SavingMethod: e.SavingMethod.Label(),
		PaidOn:       dateLabel(e.PaidOn),
		Remarks:      e.Remarks,
		Attachment:   e.Attachment,
	}
}

// NoteRow is one sticky note.
type NoteRow struct {
	No         int
	ID         string
	Text       string
	Color      string
	Attachment string
	Updated    string
}

func NewNoteRow(n core.Note, no int) NoteRow {
	updated := ""
	if !n.UpdatedAt.IsZero() {
		updated = n.UpdatedAt.Format("02 Jan 2006")
	}
	return NoteRow{
		No:         no,
		ID:         n.ID,
		Text:       n.Text,
		Color:      n.Color,
		Attachment: n.Attachment,
		Updated:    updated,
	}
}

// NoteRows maps an unpaginated note list.
func NoteRows(notes []core.Note) []NoteRow {
	rows := make([]NoteRow, len(notes))
	for i, n := range notes {
		rows[i] = NewNoteRow(n, i+1)
	}
	return rows
}

// MapPage maps every item of a page, numbering rows from the page offset.
func MapPage[T, R any](page core.Page[T], mapRow func(T, int) R) []R {
	rows := make([]R, len(page.Items))
	for i, item := range page.Items {
		rows[i] = mapRow(item, page.Request.RowNumber(i))
	}
	return rows
}

func dateLabel(d core.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format("02 Jan 2006")
}
