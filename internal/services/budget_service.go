package services

import (
	"context"
	"fmt"
	"time"

	"flashcount/internal/core"
	"flashcount/internal/log"
)

// BudgetStore is the storage surface budget analysis needs.
type BudgetStore interface {
	GetBudget(ctx context.Context, year, month int) (core.Budget, bool, error)
	SumExpensesByMonth(ctx context.Context, year, month int) (core.Money, error)
}

// BudgetService resolves a month's configured limit and spending and runs
// the analysis over them.
type BudgetService struct {
	store  BudgetStore
	logger *log.Logger
}

func NewBudgetService(store BudgetStore, logger *log.Logger) *BudgetService {
	return &BudgetService{store: store, logger: logger.WithComponent(log.ComponentBudget)}
}

// AnalyzeMonth analyzes a month against its configured budget. Months in
// the past are analyzed at their last day, the current month at today, so
// projections never extrapolate beyond real data. With no budget row the
// analysis runs with a zero limit and reports healthy.
func (s *BudgetService) AnalyzeMonth(ctx context.Context, year, month int, now time.Time) (BudgetAnalysis, error) {
	budget, ok, err := s.store.GetBudget(ctx, year, month)
	if err != nil {
		return BudgetAnalysis{}, fmt.Errorf("load budget: %w", err)
	}
	if !ok {
		budget = core.Budget{Year: year, Month: month}
	}

	spent, err := s.store.SumExpensesByMonth(ctx, year, month)
	if err != nil {
		return BudgetAnalysis{}, fmt.Errorf("sum month expenses: %w", err)
	}

	reference := referenceDateFor(year, month, now)
	analysis := AnalyzeBudget(budget.MonthlyLimit, spent, reference)

	s.logger.InfoContext(ctx, "Budget analyzed",
		log.FieldYear, year,
		log.FieldMonth, month,
		log.FieldAmountCents, spent.Cents,
		log.FieldAlertLevel, string(analysis.Alert))
	return analysis, nil
}

// referenceDateFor picks the day the analysis is anchored to: today inside
// the current month, the last day for past months, the first day for
// future months.
func referenceDateFor(year, month int, now time.Time) core.Date {
	today := core.DateOf(now)
	monthStart := core.NewDate(year, month, 1)
	nextMonth := core.NewDate(year, month+1, 1)

	if today.Before(monthStart.Time) {
		return monthStart
	}
	if !today.Before(nextMonth.Time) {
		return nextMonth.AddDays(-1)
	}
	return today
}
