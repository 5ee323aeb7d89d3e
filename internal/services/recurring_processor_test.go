package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"flashcount/internal/amqp"
	"flashcount/internal/core"
	"flashcount/internal/log"
)

type fakeRuleStore struct {
	rules      []core.RecurringRule
	applied    []core.RecurringRule
	postings   [][]core.GeneratedPosting
	recomputed []string
	listErr    error
	applyErr   error
	nextTxnID  int64
}

func (f *fakeRuleStore) ListActiveRules(ctx context.Context) ([]core.RecurringRule, error) {
	return f.rules, f.listErr
}

func (f *fakeRuleStore) ApplyRuleAdvance(ctx context.Context, updated core.RecurringRule, postings []core.GeneratedPosting) ([]int64, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	f.applied = append(f.applied, updated)
	f.postings = append(f.postings, postings)
	ids := make([]int64, len(postings))
	for i := range ids {
		f.nextTxnID++
		ids[i] = f.nextTxnID
	}
	return ids, nil
}

func (f *fakeRuleStore) RecomputeDailySummary(ctx context.Context, day core.Date) error {
	f.recomputed = append(f.recomputed, day.ISO())
	return nil
}

type fakePublisher struct {
	messages []*amqp.PostingMessage
	err      error
}

func (f *fakePublisher) PublishPosting(ctx context.Context, msg *amqp.PostingMessage) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError})
}

func monthlyRule(id int64, title string, due core.Date) core.RecurringRule {
	return core.RecurringRule{
		ID:          id,
		Title:       title,
		Amount:      core.Money{Cents: 90000},
		Direction:   core.Expense,
		Frequency:   core.Monthly,
		NextDueDate: due,
		Active:      true,
	}
}

func TestProcessDueRules(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	store := &fakeRuleStore{rules: []core.RecurringRule{
		monthlyRule(1, "Rent", core.NewDate(2024, 1, 1)),
		monthlyRule(2, "Gym", core.NewDate(2024, 4, 1)),
	}}
	pub := &fakePublisher{}

	result, err := NewRecurringProcessor(store, pub, testLogger()).ProcessDueRules(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDueRules() error = %v", err)
	}

	if result.RulesChecked != 2 || result.RulesAdvanced != 1 || result.PostingsMade != 3 || result.Failed != 0 {
		t.Errorf("result = %+v, want 2 checked, 1 advanced, 3 postings", result)
	}
	if len(store.applied) != 1 || store.applied[0].NextDueDate.ISO() != "2024-04-01" {
		t.Errorf("applied rules = %+v", store.applied)
	}
	if len(pub.messages) != 3 {
		t.Fatalf("published %d messages, want 3", len(pub.messages))
	}
	if pub.messages[0].TransactionID != 1 || pub.messages[2].TransactionID != 3 {
		t.Errorf("transaction ids not forwarded: %+v", pub.messages)
	}
	if pub.messages[0].PostedDate != "2024-01-01" {
		t.Errorf("first posted date = %s", pub.messages[0].PostedDate)
	}
}

func TestProcessDueRulesSkipsFailingRule(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	bad := monthlyRule(1, "Broken", core.NewDate(2024, 1, 1))
	bad.Frequency = "fortnightly"
	store := &fakeRuleStore{rules: []core.RecurringRule{
		bad,
		monthlyRule(2, "Rent", core.NewDate(2024, 3, 1)),
	}}

	result, err := NewRecurringProcessor(store, nil, testLogger()).ProcessDueRules(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDueRules() error = %v", err)
	}
	if result.Failed != 1 || result.RulesAdvanced != 1 {
		t.Errorf("result = %+v, want 1 failed, 1 advanced", result)
	}
}

func TestProcessDueRulesPublishFailureIsNotFatal(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	store := &fakeRuleStore{rules: []core.RecurringRule{
		monthlyRule(1, "Rent", core.NewDate(2024, 1, 1)),
	}}
	pub := &fakePublisher{err: errors.New("broker down")}

	result, err := NewRecurringProcessor(store, pub, testLogger()).ProcessDueRules(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDueRules() error = %v", err)
	}
	if result.RulesAdvanced != 1 || result.Failed != 0 {
		t.Errorf("result = %+v, publish failure must not fail the rule", result)
	}
	if len(store.applied) != 1 {
		t.Errorf("advance not persisted despite broker outage")
	}
}

func TestProcessDueRulesWithoutPublisherRecomputesSummaries(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	store := &fakeRuleStore{rules: []core.RecurringRule{
		monthlyRule(1, "Rent", core.NewDate(2024, 1, 1)),
	}}

	result, err := NewRecurringProcessor(store, nil, testLogger()).ProcessDueRules(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDueRules() error = %v", err)
	}
	if result.PostingsMade != 3 {
		t.Fatalf("result = %+v, want 3 postings", result)
	}

	want := []string{"2024-01-01", "2024-02-01", "2024-03-01"}
	if len(store.recomputed) != len(want) {
		t.Fatalf("recomputed %d days, want %d: %v", len(store.recomputed), len(want), store.recomputed)
	}
	for i, day := range want {
		if store.recomputed[i] != day {
			t.Errorf("recomputed[%d] = %s, want %s", i, store.recomputed[i], day)
		}
	}
}

func TestProcessDueRulesWithPublisherSkipsInlineRecompute(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	store := &fakeRuleStore{rules: []core.RecurringRule{
		monthlyRule(1, "Rent", core.NewDate(2024, 1, 1)),
	}}
	pub := &fakePublisher{}

	if _, err := NewRecurringProcessor(store, pub, testLogger()).ProcessDueRules(context.Background(), now); err != nil {
		t.Fatalf("ProcessDueRules() error = %v", err)
	}
	if len(store.recomputed) != 0 {
		t.Errorf("summaries recomputed inline despite publisher: %v", store.recomputed)
	}
}

func TestProcessDueRulesListError(t *testing.T) {
	store := &fakeRuleStore{listErr: errors.New("db locked")}

	_, err := NewRecurringProcessor(store, nil, testLogger()).ProcessDueRules(context.Background(), time.Now())
	if err == nil {
		t.Fatal("ProcessDueRules() expected error when listing fails")
	}
}
