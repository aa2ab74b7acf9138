// This file holds the due-date strategies. Each commitment category has a
// schedule that decides when its next payment falls.

package services

import (
	"fmt"
	"time"

	"finboard/internal/core"
)

// DueSchedule is the strategy interface for finding the next payment date of
// a commitment. ok is false when nothing more is due.
type DueSchedule interface {
	NextDue(c core.Commitment, from time.Time) (due core.Date, ok bool)
}

// MonthlySchedule is for EMI commitments: one installment on the due day of
// every month, clamped to the month length, until all are paid.
type MonthlySchedule struct{}

func (MonthlySchedule) NextDue(c core.Commitment, from time.Time) (core.Date, bool) {
	if !payable(c) {
		return core.Date{}, false
	}
	return core.NextDueDate(c.DueDate, from), true
}

// OneOffSchedule is for full payments: a single due date, the first due day
// on or after creation. An unpaid one-off stays due after that date passes.
type OneOffSchedule struct{}

func (OneOffSchedule) NextDue(c core.Commitment, _ time.Time) (core.Date, bool) {
	if !payable(c) {
		return core.Date{}, false
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return core.NextDueDate(c.DueDate, created), true
}

func payable(c core.Commitment) bool {
	status := core.FromCached(c).Status
	return status == core.StatusOngoing
}

// dueSchedules maps commitment categories to their schedules.
var dueSchedules = map[core.CommitmentCategory]DueSchedule{
	core.CategoryEMI:  MonthlySchedule{},
	core.CategoryFull: OneOffSchedule{},
}

// GetDueSchedule returns the schedule of a commitment category.
func GetDueSchedule(category core.CommitmentCategory) (DueSchedule, error) {
	schedule, ok := dueSchedules[category]
	if !ok {
		return nil, fmt.Errorf("unknown commitment category: %d", category)
	}
	return schedule, nil
}

// daysBetween counts whole calendar days from a to b in UTC.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
