package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/storage"
)

// DashboardStore is the read side the dashboard aggregates over.
type DashboardStore interface {
	AllCommitments(ctx context.Context, ownerID string) ([]core.Commitment, error)
	AllExpenses(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error)
}

// DashboardService computes per-owner aggregates and keeps them in an LRU
// until the owner writes again or the entry expires.
type DashboardService struct {
	store  DashboardStore
	cache  cache.Cache[core.Dashboard]
	logger *log.Logger
	now    func() time.Time
}

func NewDashboardService(store DashboardStore, c cache.Cache[core.Dashboard], logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DashboardService{
		store:  store,
		cache:  c,
		logger: logger.WithComponent(log.ComponentDashboard),
		now:    time.Now,
	}
}

// InvalidateOwner drops every cached dashboard of the owner.
func (s *DashboardService) InvalidateOwner(ownerID string) {
	if s.cache == nil {
		return
	}
	if n := s.cache.DeletePrefix(cache.OwnerPrefix(ownerID)); n > 0 {
		s.logger.Debug("Dashboard cache invalidated", log.FieldOwnerID, ownerID, "entries", n)
	}
}

func (s *DashboardService) Dashboard(ctx context.Context, ownerID string, r core.DateRange) (core.Dashboard, error) {
	if ownerID == "" {
		return core.Dashboard{}, core.ValidationErrors{{Param: "userId", Msg: "Owner is required"}}
	}

	key := cache.OwnerKey(ownerID, "dashboard", r.Start.String(), r.End.String())
	if s.cache != nil {
		if d, ok := s.cache.Get(key); ok {
			return d, nil
		}
	}

	var (
		expenses    []core.Expense
		commitments []core.Commitment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.store.AllExpenses(gctx, storage.ExpenseFilter{OwnerID: ownerID, Range: r})
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		commitments, err = s.store.AllCommitments(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("load commitments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}

	d := aggregateExpenses(expenses)
	d.Commitments = aggregateCommitments(commitmentsIn(commitments, r))

	if s.cache != nil {
		s.cache.Set(key, d)
	}
	return d, nil
}

// aggregateExpenses totals spending per day, per month and category, and per
// month. Savings are reported separately and do not count as spending.
func aggregateExpenses(expenses []core.Expense) core.Dashboard {
	daily := map[string]core.Decimal{}
	monthly := map[string]core.Decimal{}
	type catKey struct {
		month    string
		category core.ExpenseCategory
	}
	byCategory := map[catKey]core.Decimal{}
	savings := core.Zero

	for _, e := range expenses {
		if e.IsSaving() {
			savings = savings.Add(e.Amount)
			continue
		}
		day, month := e.PaidOn.String(), core.MonthKey(e.PaidOn)
		daily[day] = daily[day].Add(e.Amount)
		monthly[month] = monthly[month].Add(e.Amount)
		k := catKey{month, e.Category}
		byCategory[k] = byCategory[k].Add(e.Amount)
	}

	d := core.Dashboard{
		DailyTotals:             make([]core.DailyTotal, 0, len(daily)),
		MonthlyCategoryExpenses: make([]core.CategoryTotal, 0, len(byCategory)),
		MonthlyTotals:           make([]core.MonthlyTotal, 0, len(monthly)),
		TotalSavings:            savings,
	}
	for day, total := range daily {
		d.DailyTotals = append(d.DailyTotals, core.DailyTotal{Date: day, Total: total})
	}
	sort.Slice(d.DailyTotals, func(i, j int) bool { return d.DailyTotals[i].Date < d.DailyTotals[j].Date })

	for month, total := range monthly {
		d.MonthlyTotals = append(d.MonthlyTotals, core.MonthlyTotal{Month: month, Total: total})
	}
	sort.Slice(d.MonthlyTotals, func(i, j int) bool { return d.MonthlyTotals[i].Month < d.MonthlyTotals[j].Month })

	for k, total := range byCategory {
		d.MonthlyCategoryExpenses = append(d.MonthlyCategoryExpenses, core.CategoryTotal{
			Month:    k.month,
			Category: k.category,
			Label:    k.category.Label(),
			Total:    total,
		})
	}
	sort.Slice(d.MonthlyCategoryExpenses, func(i, j int) bool {
		a, b := d.MonthlyCategoryExpenses[i], d.MonthlyCategoryExpenses[j]
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Category < b.Category
	})
	return d
}

// commitmentsIn keeps the commitments created on a day inside the range.
func commitmentsIn(commitments []core.Commitment, r core.DateRange) []core.Commitment {
	if r.Start.IsZero() && r.End.IsZero() {
		return commitments
	}
	out := make([]core.Commitment, 0, len(commitments))
	for _, c := range commitments {
		created := c.CreatedAt.UTC()
		if r.Contains(core.NewDate(created.Year(), int(created.Month()), created.Day())) {
			out = append(out, c)
		}
	}
	return out
}

// aggregateCommitments sums paid and pending amounts. Canceled commitments
// contribute what was paid but nothing pending.
func aggregateCommitments(commitments []core.Commitment) core.CommitmentTotals {
	totals := core.CommitmentTotals{TotalPaid: core.Zero, TotalPending: core.Zero}
	for _, c := range commitments {
		s := core.FromCached(c)
		totals.TotalPaid = totals.TotalPaid.Add(s.PaidAmount)
		switch s.Status {
		case core.StatusCompleted:
			totals.Completed++
		case core.StatusOngoing:
			totals.Ongoing++
			if s.PendingAmount.IsPositive() {
				totals.TotalPending = totals.TotalPending.Add(s.PendingAmount)
			}
		}
	}
	return totals
}

// UpcomingPayments lists payable commitments of the owner falling due within
// the next withinDays days, soonest first. Overdue one-off payments are
// included with a negative DueInDays.
func (s *DashboardService) UpcomingPayments(ctx context.Context, ownerID string, withinDays int) ([]core.UpcomingPayment, error) {
	if ownerID == "" {
		return nil, core.ValidationErrors{{Param: "userId", Msg: "Owner is required"}}
	}
	if withinDays < 0 || withinDays > 31 {
		return nil, core.ValidationErrors{{Param: "days", Msg: "Days must be between 0 and 31"}}
	}

	commitments, err := s.store.AllCommitments(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load commitments: %w", err)
	}
	return upcomingFrom(commitments, s.now().UTC(), withinDays, s.logger), nil
}

func upcomingFrom(commitments []core.Commitment, now time.Time, withinDays int, logger *log.Logger) []core.UpcomingPayment {
	out := []core.UpcomingPayment{}
	for _, c := range commitments {
		schedule, err := GetDueSchedule(c.Category)
		if err != nil {
			logger.Warn("Skipping commitment with unknown category", log.FieldCommitmentID, c.ID, log.FieldError, err)
			continue
		}
		due, ok := schedule.NextDue(c, now)
		if !ok {
			continue
		}
		days := daysBetween(now, due.Time)
		if days > withinDays {
			continue
		}
		out = append(out, core.UpcomingPayment{
			CommitmentID: c.ID,
			PayFor:       c.PayFor,
			DueOn:        due,
			DueInDays:    days,
			EmiAmount:    c.EmiAmount,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueInDays < out[j].DueInDays })
	return out
}
