package services

import (
	"context"
	"testing"
	"time"

	"flashcount/internal/core"
)

type fakeBudgetStore struct {
	budget core.Budget
	found  bool
	spent  core.Money
}

func (f *fakeBudgetStore) GetBudget(ctx context.Context, year, month int) (core.Budget, bool, error) {
	return f.budget, f.found, nil
}

func (f *fakeBudgetStore) SumExpensesByMonth(ctx context.Context, year, month int) (core.Money, error) {
	return f.spent, nil
}

func TestAnalyzeMonthCurrentMonth(t *testing.T) {
	store := &fakeBudgetStore{
		budget: core.Budget{Year: 2024, Month: 4, MonthlyLimit: core.Money{Cents: 500000}},
		found:  true,
		spent:  core.Money{Cents: 300000},
	}
	now := time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC)

	analysis, err := NewBudgetService(store, testLogger()).AnalyzeMonth(context.Background(), 2024, 4, now)
	if err != nil {
		t.Fatalf("AnalyzeMonth() error = %v", err)
	}
	if analysis.DaysElapsed != 15 {
		t.Errorf("DaysElapsed = %d, want 15", analysis.DaysElapsed)
	}
	if analysis.Alert != AlertDanger {
		t.Errorf("Alert = %s, want danger", analysis.Alert)
	}
}

func TestAnalyzeMonthPastMonthUsesLastDay(t *testing.T) {
	store := &fakeBudgetStore{
		budget: core.Budget{Year: 2024, Month: 2, MonthlyLimit: core.Money{Cents: 500000}},
		found:  true,
		spent:  core.Money{Cents: 290000},
	}
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	analysis, err := NewBudgetService(store, testLogger()).AnalyzeMonth(context.Background(), 2024, 2, now)
	if err != nil {
		t.Fatalf("AnalyzeMonth() error = %v", err)
	}
	if analysis.DaysElapsed != 29 {
		t.Errorf("DaysElapsed = %d, want 29 for February 2024", analysis.DaysElapsed)
	}
	if analysis.DaysRemaining != 0 {
		t.Errorf("DaysRemaining = %d, want 0 for a closed month", analysis.DaysRemaining)
	}
}

func TestAnalyzeMonthWithoutBudgetRow(t *testing.T) {
	store := &fakeBudgetStore{spent: core.Money{Cents: 123400}}
	now := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	analysis, err := NewBudgetService(store, testLogger()).AnalyzeMonth(context.Background(), 2024, 4, now)
	if err != nil {
		t.Fatalf("AnalyzeMonth() error = %v", err)
	}
	if analysis.Alert != AlertHealthy {
		t.Errorf("Alert = %s, want healthy when no budget is configured", analysis.Alert)
	}
	if analysis.UsagePercent != 0 {
		t.Errorf("UsagePercent = %v, want 0 with zero limit", analysis.UsagePercent)
	}
}

func TestReferenceDateForFutureMonth(t *testing.T) {
	now := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	ref := referenceDateFor(2024, 7, now)
	if ref.ISO() != "2024-07-01" {
		t.Errorf("referenceDateFor(future) = %s, want 2024-07-01", ref.ISO())
	}
}
