package services

import (
	"context"
	"fmt"
	"time"

	"flashcount/internal/amqp"
	"flashcount/internal/core"
	"flashcount/internal/log"
)

// RuleStore is the storage surface the processor needs.
type RuleStore interface {
	ListActiveRules(ctx context.Context) ([]core.RecurringRule, error)
	ApplyRuleAdvance(ctx context.Context, updated core.RecurringRule, postings []core.GeneratedPosting) ([]int64, error)
	RecomputeDailySummary(ctx context.Context, day core.Date) error
}

// PostingPublisher emits an event for each materialized posting.
type PostingPublisher interface {
	PublishPosting(ctx context.Context, msg *amqp.PostingMessage) error
}

// RecurringProcessor walks the active rules and posts everything that is
// due. Publishing is best effort: a broker outage never blocks posting,
// the summary table is rebuildable.
type RecurringProcessor struct {
	store     RuleStore
	publisher PostingPublisher
	logger    *log.Logger
}

// ProcessResult summarizes one processing run.
type ProcessResult struct {
	RulesChecked  int
	RulesAdvanced int
	PostingsMade  int
	Failed        int
}

func NewRecurringProcessor(store RuleStore, publisher PostingPublisher, logger *log.Logger) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentRecurring),
	}
}

// ProcessDueRules advances every active rule up to now. A failing rule is
// logged and skipped so one bad row cannot starve the rest.
func (p *RecurringProcessor) ProcessDueRules(ctx context.Context, now time.Time) (ProcessResult, error) {
	rules, err := p.store.ListActiveRules(ctx)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("list active rules: %w", err)
	}

	result := ProcessResult{RulesChecked: len(rules)}
	for _, rule := range rules {
		n, err := p.processRule(ctx, rule, now)
		if err != nil {
			result.Failed++
			fields := log.NewFields().
				WithRule(rule.ID, rule.Title, string(rule.Frequency)).
				WithError(err)
			p.logger.ErrorContext(ctx, "Rule processing failed", fields.ToSlice()...)
			continue
		}
		if n > 0 {
			result.RulesAdvanced++
			result.PostingsMade += n
		}
	}

	p.logger.InfoContext(ctx, "Recurring run complete",
		"rules_checked", result.RulesChecked,
		"rules_advanced", result.RulesAdvanced,
		"postings_made", result.PostingsMade,
		"failed", result.Failed)
	return result, nil
}

func (p *RecurringProcessor) processRule(ctx context.Context, rule core.RecurringRule, now time.Time) (int, error) {
	postings, updated, err := AdvanceRule(rule, now)
	if err != nil {
		return 0, err
	}
	if len(postings) == 0 {
		return 0, nil
	}

	ids, err := p.store.ApplyRuleAdvance(ctx, updated, postings)
	if err != nil {
		return 0, fmt.Errorf("apply advance: %w", err)
	}

	fields := log.NewFields().WithRule(rule.ID, rule.Title, string(rule.Frequency))
	fields["postings"] = len(postings)
	fields["next_due"] = updated.NextDueDate.ISO()
	p.logger.InfoContext(ctx, "Rule advanced", fields.ToSlice()...)

	p.publishPostings(ctx, postings, ids)
	return len(postings), nil
}

func (p *RecurringProcessor) publishPostings(ctx context.Context, postings []core.GeneratedPosting, ids []int64) {
	if p.publisher == nil {
		// No broker, no summary worker downstream. Recompute the touched
		// days inline so summaries stay current.
		p.recomputeSummaries(ctx, postings)
		return
	}
	for i, posting := range postings {
		msg := amqp.NewPostingMessage(posting.RuleID, ids[i],
			posting.PostedDate.ISO(), posting.Amount.Cents, string(posting.Direction))
		if err := p.publisher.PublishPosting(ctx, msg); err != nil {
			fields := log.NewFields().
				WithPosting(posting.RuleID, posting.PostedDate.ISO(),
					posting.Amount.Cents, string(posting.Direction)).
				WithError(err)
			fields[log.FieldTransactionID] = ids[i]
			p.logger.WarnContext(ctx, "Posting event not published", fields.ToSlice()...)
		}
	}
}

func (p *RecurringProcessor) recomputeSummaries(ctx context.Context, postings []core.GeneratedPosting) {
	seen := make(map[string]struct{}, len(postings))
	for _, posting := range postings {
		key := posting.PostedDate.ISO()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if err := p.store.RecomputeDailySummary(ctx, posting.PostedDate); err != nil {
			p.logger.WarnContext(ctx, "Daily summary not recomputed",
				"day", key,
				log.FieldError, err.Error())
		}
	}
}
