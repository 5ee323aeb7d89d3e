// Package services holds the computation core: the recurring-rule catch-up
// engine, the budget analyzer, the report aggregator and physical-asset
// valuation, plus the processors that wire them to storage and messaging.
//
// The computational entry points are pure: they take value snapshots and
// return result records. Persisting the results is the caller's job.
package services

import (
	"errors"
	"fmt"
	"time"

	"flashcount/internal/core"
)

// maxCatchUpPostings bounds the catch-up loop. A daily rule untouched for
// over 27 years would trip it, as would a stepping bug that fails to move
// the due date forward.
const maxCatchUpPostings = 10000

// ErrRuleRunaway is returned when a single advance would exceed
// maxCatchUpPostings postings.
var ErrRuleRunaway = errors.New("recurring rule advance exceeded iteration bound")

// AdvanceRule catches a rule up to now. It emits one posting per elapsed
// period, each dated at the due date it covers, and returns the rule with
// its next due date moved strictly past now.
//
// Inactive rules come back unchanged with no postings. Re-advancing with
// the same now is a no-op. The input rule is never mutated.
func AdvanceRule(rule core.RecurringRule, now time.Time) ([]core.GeneratedPosting, core.RecurringRule, error) {
	if !rule.Active {
		return nil, rule, nil
	}
	if err := rule.Frequency.Validate(); err != nil {
		return nil, rule, fmt.Errorf("rule %d (%s): %w", rule.ID, rule.Title, err)
	}
	if err := rule.NextDueDate.Validate(); err != nil {
		return nil, rule, fmt.Errorf("rule %d (%s): %w", rule.ID, rule.Title, err)
	}

	label := fmt.Sprintf("[%s] %s", rule.Frequency, rule.Title)

	var postings []core.GeneratedPosting
	for !rule.NextDueDate.After(now) {
		if len(postings) >= maxCatchUpPostings {
			return nil, rule, fmt.Errorf("rule %d (%s): %w", rule.ID, rule.Title, ErrRuleRunaway)
		}

		postings = append(postings, core.GeneratedPosting{
			RuleID:     rule.ID,
			Amount:     rule.Amount,
			Direction:  rule.Direction,
			PostedDate: rule.NextDueDate,
			Label:      label,
			Category:   rule.Category,
			LedgerID:   rule.LedgerID,
		})

		next, err := core.StepDate(rule.NextDueDate, rule.Frequency)
		if err != nil {
			return nil, rule, fmt.Errorf("rule %d (%s): %w", rule.ID, rule.Title, err)
		}
		if !next.After(rule.NextDueDate.Time) {
			return nil, rule, fmt.Errorf("rule %d (%s): due date did not advance: %w", rule.ID, rule.Title, ErrRuleRunaway)
		}
		rule.NextDueDate = next
	}

	return postings, rule, nil
}
