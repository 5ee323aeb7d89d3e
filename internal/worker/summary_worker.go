// Package worker hosts the background consumers.
package worker

import (
	"context"
	"fmt"

	"flashcount/internal/amqp"
	"flashcount/internal/core"
	"flashcount/internal/log"
)

// SummaryStore is the storage surface the worker needs.
type SummaryStore interface {
	RecomputeDailySummary(ctx context.Context, day core.Date) error
}

// SummaryWorker consumes posting events and keeps the daily summary table
// in sync with generated transactions.
type SummaryWorker struct {
	client *amqp.Client
	store  SummaryStore
	logger *log.Logger
}

func NewSummaryWorker(client *amqp.Client, store SummaryStore, logger *log.Logger) *SummaryWorker {
	return &SummaryWorker{
		client: client,
		store:  store,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes posting events until the context is cancelled. A failing
// recompute nacks the message for redelivery.
func (w *SummaryWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Summary worker started")
	return w.client.ConsumePostings(ctx, func(msg *amqp.PostingMessage) error {
		return w.handle(ctx, msg)
	})
}

func (w *SummaryWorker) handle(ctx context.Context, msg *amqp.PostingMessage) error {
	day, err := core.ParseISO(msg.PostedDate)
	if err != nil {
		// Unparseable date will never succeed, ack and move on.
		w.logger.WarnContext(ctx, "Posting event with bad date dropped",
			log.FieldRuleID, msg.RuleID,
			log.FieldPostedDate, msg.PostedDate)
		return nil
	}

	if err := w.store.RecomputeDailySummary(ctx, day); err != nil {
		return fmt.Errorf("recompute summary for %s: %w", day.ISO(), err)
	}

	w.logger.InfoContext(ctx, "Posting event applied",
		log.FieldRuleID, msg.RuleID,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldPostedDate, msg.PostedDate)
	return nil
}
