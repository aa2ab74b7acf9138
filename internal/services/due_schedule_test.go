package services

import (
	"testing"
	"time"

	"finboard/internal/core"
)

func intPtr(v int) *int { return &v }

func TestMonthlySchedule_NextDue(t *testing.T) {
	schedule := MonthlySchedule{}

	tests := []struct {
		name   string
		c      core.Commitment
		from   time.Time
		want   core.Date
		wantOK bool
	}{
		{
			name:   "later this month",
			c:      core.Commitment{TotalEmi: 12, Paid: intPtr(2), DueDate: 20, Status: core.StatusOngoing},
			from:   time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			want:   core.NewDate(2024, 1, 20),
			wantOK: true,
		},
		{
			name:   "today counts as due",
			c:      core.Commitment{TotalEmi: 12, DueDate: 15, Status: core.StatusOngoing},
			from:   time.Date(2024, 1, 15, 23, 0, 0, 0, time.UTC),
			want:   core.NewDate(2024, 1, 15),
			wantOK: true,
		},
		{
			name:   "rolls to next month",
			c:      core.Commitment{TotalEmi: 12, DueDate: 5, Status: core.StatusOngoing},
			from:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			want:   core.NewDate(2024, 2, 5),
			wantOK: true,
		},
		{
			name:   "day 31 clamps in february",
			c:      core.Commitment{TotalEmi: 12, DueDate: 31, Status: core.StatusOngoing},
			from:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want:   core.NewDate(2024, 2, 29),
			wantOK: true,
		},
		{
			name:   "completed commitment is not due",
			c:      core.Commitment{TotalEmi: 3, Paid: intPtr(3), DueDate: 5, Status: core.StatusCompleted},
			from:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantOK: false,
		},
		{
			name:   "canceled commitment is not due",
			c:      core.Commitment{TotalEmi: 3, DueDate: 5, Status: core.StatusCanceled, StatusOverride: core.StatusCanceled},
			from:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := schedule.NextDue(tt.c, tt.from)
			if ok != tt.wantOK {
				t.Fatalf("NextDue() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.String() != tt.want.String() {
				t.Errorf("NextDue() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOneOffSchedule_NextDue(t *testing.T) {
	c := core.Commitment{
		TotalEmi:  1,
		Category:  core.CategoryFull,
		DueDate:   10,
		Status:    core.StatusOngoing,
		CreatedAt: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
	}

	got, ok := OneOffSchedule{}.NextDue(c, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatal("NextDue() ok = false, want true for an unpaid one-off")
	}
	if got.String() != "2024-04-10" {
		t.Errorf("NextDue() = %s, want 2024-04-10", got)
	}
}

func TestGetDueSchedule(t *testing.T) {
	tests := []struct {
		category core.CommitmentCategory
		want     DueSchedule
		wantErr  bool
	}{
		{core.CategoryEMI, MonthlySchedule{}, false},
		{core.CategoryFull, OneOffSchedule{}, false},
		{core.CommitmentCategory(9), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.category.Label(), func(t *testing.T) {
			got, err := GetDueSchedule(tt.category)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetDueSchedule() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GetDueSchedule() = %T, want %T", got, tt.want)
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 30, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 2, 2, 0, 1, 0, 0, time.UTC)
	if got := daysBetween(a, b); got != 3 {
		t.Errorf("daysBetween() = %d, want 3", got)
	}
	if got := daysBetween(b, a); got != -3 {
		t.Errorf("daysBetween() reversed = %d, want -3", got)
	}
}
