package core

import "time"

type (
	// DateRange bounds dashboard queries; zero ends are open.
	DateRange struct {
		Start Date
		End   Date
	}

	DailyTotal struct {
		Date  string  `json:"date"`
		Total Decimal `json:"total"`
	}

	CategoryTotal struct {
		Month    string          `json:"month"`
		Category ExpenseCategory `json:"category"`
		Label    string          `json:"label"`
		Total    Decimal         `json:"total"`
	}

	MonthlyTotal struct {
		Month string  `json:"month"`
		Total Decimal `json:"total"`
	}

	CommitmentTotals struct {
		TotalPaid    Decimal `json:"totalPaid"`
		TotalPending Decimal `json:"totalPending"`
		Ongoing      int     `json:"ongoing"`
		Completed    int     `json:"completed"`
	}

	Dashboard struct {
		DailyTotals             []DailyTotal     `json:"dailyTotals"`
		MonthlyCategoryExpenses []CategoryTotal  `json:"monthlyCategoryExpenses"`
		Commitments             CommitmentTotals `json:"commitments"`
		MonthlyTotals           []MonthlyTotal   `json:"monthlyTotals"`
		TotalSavings            Decimal          `json:"totalSavings"`
	}

	UpcomingPayment struct {
		CommitmentID string  `json:"commitmentId"`
		PayFor       string  `json:"payFor"`
		DueOn        Date    `json:"dueOn"`
		DueInDays    int     `json:"dueInDays"`
		EmiAmount    Decimal `json:"emiAmount"`
	}
)

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start.Time) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End.Time) {
		return false
	}
	return true
}

// MonthKey formats the month of d as YYYY-MM.
func MonthKey(d Date) string {
	return d.Format("2006-01")
}

// NextDueDate returns the next day on or after from that matches the
// day-of-month dueDay. Days past the end of a short month fall on its last day.
func NextDueDate(dueDay int, from time.Time) Date {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	candidate := clampDay(from.Year(), from.Month(), dueDay)
	if candidate.Before(from) {
		next := from.AddDate(0, 0, -from.Day()+1).AddDate(0, 1, 0)
		candidate = clampDay(next.Year(), next.Month(), dueDay)
	}
	return Date{Time: candidate}
}

func clampDay(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
