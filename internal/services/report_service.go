package services

import (
	"context"
	"fmt"
	"time"

	"flashcount/internal/cache"
	"flashcount/internal/core"
	"flashcount/internal/log"
)

// TransactionLister is the storage surface report generation needs.
type TransactionLister interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

// ReportService generates period reports over the transaction history and
// caches them. Writes purge the cache, so a cached report is never staler
// than the last write or the TTL, whichever comes first.
type ReportService struct {
	store      TransactionLister
	reports    *cache.LRUCache[ReportData]
	thresholds InsightThresholds
	logger     *log.Logger
}

func NewReportService(store TransactionLister, reports *cache.LRUCache[ReportData], thresholds InsightThresholds, logger *log.Logger) *ReportService {
	return &ReportService{
		store:      store,
		reports:    reports,
		thresholds: thresholds,
		logger:     logger.WithComponent(log.ComponentReport),
	}
}

func reportCacheKey(period ReportPeriod, now time.Time) string {
	// Day granularity: the report only depends on the calendar date.
	return string(period) + ":" + core.DateOf(now).ISO()
}

// GetReport returns the report for a period, serving from cache when the
// underlying data has not changed.
func (s *ReportService) GetReport(ctx context.Context, period ReportPeriod, now time.Time) (ReportData, error) {
	key := reportCacheKey(period, now)
	if s.reports != nil {
		if data, ok := s.reports.Get(key); ok {
			s.logger.Debug("Report served from cache", log.FieldPeriod, string(period))
			return data, nil
		}
	}

	transactions, err := s.store.ListTransactions(ctx)
	if err != nil {
		return ReportData{}, fmt.Errorf("load transactions: %w", err)
	}

	data, err := GenerateReport(transactions, period, now, s.thresholds)
	if err != nil {
		return ReportData{}, fmt.Errorf("generate report: %w", err)
	}

	if s.reports != nil {
		s.reports.Set(key, data)
	}

	s.logger.InfoContext(ctx, "Report generated",
		log.FieldPeriod, string(period),
		"transactions", len(transactions),
		log.FieldStreakDays, data.StreakDays)
	return data, nil
}

// Invalidate drops all cached reports. Called after any ledger write.
func (s *ReportService) Invalidate() {
	if s.reports != nil {
		s.reports.Purge()
	}
}
