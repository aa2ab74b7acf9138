package sheets

import (
	"context"
	"strconv"

	"finboard/internal/core"
)

// Row kinds written to the ledger sheet.
const (
	KindExpense = "expense"
	KindSaving  = "saving"
	KindPayment = "payment"
)

// Header is the first row of every ledger sheet.
var Header = []any{"Date", "Kind", "Owner", "Reference", "Description", "Category", "Installment", "Amount"}

// Row is one exported ledger line.
type Row struct {
	Date        core.Date
	Kind        string
	OwnerID     string
	Reference   string
	Description string
	Category    string
	Installment int
	Amount      core.Decimal
}

// Values renders the row in sheet column order.
func (r Row) Values() []any {
	installment := ""
	if r.Installment > 0 {
		installment = strconv.Itoa(r.Installment)
	}
	return []any{r.Date.String(), r.Kind, r.OwnerID, r.Reference, r.Description, r.Category, installment, r.Amount.StringFixed()}
}

// ExpenseRow exports an expense or saving.
func ExpenseRow(e core.Expense) Row {
	kind := KindExpense
	category := e.Category.Label()
	if e.IsSaving() {
		kind = KindSaving
		category = e.SavingMethod.Label()
	}
	return Row{
		Date:        e.PaidOn,
		Kind:        kind,
		OwnerID:     e.CreatedBy,
		Reference:   e.ID,
		Description: e.Name,
		Category:    category,
		Amount:      e.Amount,
	}
}

// PaymentRow exports one installment paid on a commitment.
func PaymentRow(c core.Commitment, h core.HistoryEntry) Row {
	return Row{
		Date:        h.PaidDate,
		Kind:        KindPayment,
		OwnerID:     c.CreatedBy,
		Reference:   h.ID,
		Description: c.PayFor,
		Category:    c.Category.Label(),
		Installment: h.CurrentEmi,
		Amount:      h.Amount,
	}
}

// Ports for outbound adapters.
type (
	RowExporter interface {
		AppendRow(ctx context.Context, r Row) (rowRef string, err error)
	}

	// RowReader reads back the rows exported for one year.
	RowReader interface {
		ListRows(ctx context.Context, year int) ([]Row, error)
	}
)
