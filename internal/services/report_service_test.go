package services

import (
	"context"
	"testing"
	"time"

	"flashcount/internal/cache"
	"flashcount/internal/core"
)

type fakeTransactionLister struct {
	transactions []core.Transaction
	calls        int
}

func (f *fakeTransactionLister) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	f.calls++
	return f.transactions, nil
}

func TestGetReportUsesCache(t *testing.T) {
	now := time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)
	lister := &fakeTransactionLister{transactions: []core.Transaction{
		{Amount: core.Money{Cents: 2500}, Direction: core.Expense, Date: core.NewDate(2024, 1, 16)},
	}}
	reports := cache.NewLRUCache[ReportData](8, time.Minute)
	svc := NewReportService(lister, reports, DefaultInsightThresholds(), testLogger())
	ctx := context.Background()

	first, err := svc.GetReport(ctx, PeriodWeekly, now)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	second, err := svc.GetReport(ctx, PeriodWeekly, now)
	if err != nil {
		t.Fatalf("GetReport() cached error = %v", err)
	}

	if lister.calls != 1 {
		t.Errorf("store queried %d times, want 1", lister.calls)
	}
	if first.TotalExpense != second.TotalExpense {
		t.Errorf("cached report differs: %v vs %v", first.TotalExpense, second.TotalExpense)
	}
}

func TestGetReportCacheKeyedByPeriod(t *testing.T) {
	now := time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)
	lister := &fakeTransactionLister{}
	reports := cache.NewLRUCache[ReportData](8, time.Minute)
	svc := NewReportService(lister, reports, DefaultInsightThresholds(), testLogger())
	ctx := context.Background()

	if _, err := svc.GetReport(ctx, PeriodWeekly, now); err != nil {
		t.Fatalf("GetReport(weekly) error = %v", err)
	}
	if _, err := svc.GetReport(ctx, PeriodMonthly, now); err != nil {
		t.Fatalf("GetReport(monthly) error = %v", err)
	}
	if lister.calls != 2 {
		t.Errorf("store queried %d times, want one per period", lister.calls)
	}
}

func TestInvalidateForcesRegeneration(t *testing.T) {
	now := time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)
	lister := &fakeTransactionLister{}
	reports := cache.NewLRUCache[ReportData](8, time.Minute)
	svc := NewReportService(lister, reports, DefaultInsightThresholds(), testLogger())
	ctx := context.Background()

	if _, err := svc.GetReport(ctx, PeriodWeekly, now); err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	svc.Invalidate()
	if _, err := svc.GetReport(ctx, PeriodWeekly, now); err != nil {
		t.Fatalf("GetReport() after invalidate error = %v", err)
	}
	if lister.calls != 2 {
		t.Errorf("store queried %d times after invalidation, want 2", lister.calls)
	}
}

func TestGetReportWithoutCache(t *testing.T) {
	now := time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)
	lister := &fakeTransactionLister{}
	svc := NewReportService(lister, nil, DefaultInsightThresholds(), testLogger())

	if _, err := svc.GetReport(context.Background(), PeriodMonthly, now); err != nil {
		t.Fatalf("GetReport() without cache error = %v", err)
	}
}
