package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flashcount/internal/backup"
	"flashcount/internal/core"
	"flashcount/internal/log"
	"flashcount/internal/services"
	"flashcount/internal/storage"
)

type memStore struct {
	transactions []core.Transaction
	rules        []core.RecurringRule
	budgets      map[string]core.Budget
	assets       []core.PhysicalAsset
	summaries    map[string]storage.DailySummary
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{
		budgets:   make(map[string]core.Budget),
		summaries: make(map[string]storage.DailySummary),
	}
}

func (m *memStore) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	m.nextID++
	t.ID = m.nextID
	m.transactions = append(m.transactions, t)
	return t.ID, nil
}

func (m *memStore) SoftDeleteTransaction(ctx context.Context, id int64) error {
	for i, t := range m.transactions {
		if t.ID == id {
			m.transactions = append(m.transactions[:i], m.transactions[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memStore) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return m.transactions, nil
}

func (m *memStore) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range m.transactions {
		if t.Date.Year() == year && int(t.Date.Month()) == month {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) SumExpensesByMonth(ctx context.Context, year, month int) (core.Money, error) {
	var cents int64
	for _, t := range m.transactions {
		if t.Direction == core.Expense && t.Date.Year() == year && int(t.Date.Month()) == month {
			cents += t.Amount.Cents
		}
	}
	return core.Money{Cents: cents}, nil
}

func (m *memStore) CreateRule(ctx context.Context, r core.RecurringRule) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	m.nextID++
	r.ID = m.nextID
	m.rules = append(m.rules, r)
	return r.ID, nil
}

func (m *memStore) ListRules(ctx context.Context) ([]core.RecurringRule, error) {
	return m.rules, nil
}

func (m *memStore) ListActiveRules(ctx context.Context) ([]core.RecurringRule, error) {
	var out []core.RecurringRule
	for _, r := range m.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) SetRuleActive(ctx context.Context, id int64, active bool) error {
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules[i].Active = active
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memStore) ApplyRuleAdvance(ctx context.Context, updated core.RecurringRule, postings []core.GeneratedPosting) ([]int64, error) {
	ids := make([]int64, 0, len(postings))
	for _, p := range postings {
		m.nextID++
		m.transactions = append(m.transactions, core.Transaction{
			ID:        m.nextID,
			Amount:    p.Amount,
			Direction: p.Direction,
			Note:      p.Label,
			Date:      p.PostedDate,
			Category:  p.Category,
			LedgerID:  p.LedgerID,
			RuleID:    p.RuleID,
		})
		ids = append(ids, m.nextID)
	}
	for i := range m.rules {
		if m.rules[i].ID == updated.ID {
			m.rules[i] = updated
		}
	}
	return ids, nil
}

func (m *memStore) GetBudget(ctx context.Context, year, month int) (core.Budget, bool, error) {
	b, ok := m.budgets[budgetKey(year, month)]
	return b, ok, nil
}

func (m *memStore) UpsertBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	m.budgets[budgetKey(b.Year, b.Month)] = b
	return nil
}

func (m *memStore) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range m.budgets {
		out = append(out, b)
	}
	return out, nil
}

func (m *memStore) CreateAsset(ctx context.Context, a core.PhysicalAsset) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	m.nextID++
	a.ID = m.nextID
	m.assets = append(m.assets, a)
	return a.ID, nil
}

func (m *memStore) ListAssets(ctx context.Context) ([]core.PhysicalAsset, error) {
	return m.assets, nil
}

func (m *memStore) RecomputeDailySummary(ctx context.Context, day core.Date) error {
	var s storage.DailySummary
	s.Day = day
	for _, t := range m.transactions {
		if t.Date.Equal(day.Time) {
			if t.Direction == core.Income {
				s.IncomeCents += t.Amount.Cents
			} else {
				s.ExpenseCents += t.Amount.Cents
			}
		}
	}
	m.summaries[day.ISO()] = s
	return nil
}

func (m *memStore) ListDailySummaries(ctx context.Context, year, month int) ([]storage.DailySummary, error) {
	var out []storage.DailySummary
	for _, s := range m.summaries {
		if s.Day.Year() == year && int(s.Day.Month()) == month {
			out = append(out, s)
		}
	}
	return out, nil
}

func budgetKey(year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func newTestServer(store *memStore) *Server {
	logger := log.New(log.Config{Level: slog.LevelError})
	reports := services.NewReportService(store, nil, services.DefaultInsightThresholds(), logger)
	budgets := services.NewBudgetService(store, logger)
	processor := services.NewRecurringProcessor(store, nil, logger)
	backups := backup.NewService(store, logger)
	return NewServer(":0", store, reports, budgets, processor, backups)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(newMemStore())
	defer srv.Shutdown(context.Background())

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store)
	defer srv.Shutdown(context.Background())

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"amount":    "25,50",
		"direction": "expense",
		"note":      "groceries",
		"date":      "2024-01-16",
		"category":  map[string]string{"name": "Food"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var created transactionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.AmountCents != 2550 || created.Category == nil || created.Category.Name != "Food" {
		t.Errorf("created = %+v", created)
	}

	if _, ok := store.summaries["2024-01-16"]; !ok {
		t.Error("daily summary not refreshed after write")
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions?year=2024&month=1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var listed []transactionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("listed %d transactions, want 1", len(listed))
	}
}

func TestCreateTransactionRejectsBadAmount(t *testing.T) {
	srv := newTestServer(newMemStore())
	defer srv.Shutdown(context.Background())

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"amount":    "not-a-number",
		"direction": "expense",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rr.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store)
	defer srv.Shutdown(context.Background())

	id, err := store.CreateTransaction(context.Background(), core.Transaction{
		Amount:    core.Money{Cents: 1000},
		Direction: core.Expense,
		Date:      core.NewDate(2024, 1, 1),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rr := doJSON(t, srv, http.MethodDelete, "/api/transactions/1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	_ = id

	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions/99", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing delete status = %d, want 404", rr.Code)
	}
}

func TestRuleLifecycle(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store)
	defer srv.Shutdown(context.Background())

	due := core.DateOf(time.Now()).AddDays(-40)
	rr := doJSON(t, srv, http.MethodPost, "/api/rules", map[string]any{
		"amount":      "900",
		"direction":   "expense",
		"frequency":   "monthly",
		"title":       "Rent",
		"nextDueDate": due.ISO(),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create rule status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/rules/advance", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("advance status = %d", rr.Code)
	}
	var adv advanceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &adv); err != nil {
		t.Fatalf("decode advance: %v", err)
	}
	if adv.RulesAdvanced != 1 || adv.PostingsMade < 1 {
		t.Errorf("advance = %+v", adv)
	}
	if len(store.transactions) != adv.PostingsMade {
		t.Errorf("postings not persisted: %d transactions", len(store.transactions))
	}

	active := false
	rr = doJSON(t, srv, http.MethodPatch, "/api/rules/1", map[string]any{"active": &active})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("pause status = %d", rr.Code)
	}
	if store.rules[0].Active {
		t.Error("rule still active after pause")
	}
}

func TestReportEndpoint(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store)
	defer srv.Shutdown(context.Background())

	rr := doJSON(t, srv, http.MethodGet, "/api/report?period=weekly", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("report status = %d", rr.Code)
	}
	var report reportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Period != "weekly" {
		t.Errorf("period = %q", report.Period)
	}
	if n := len(report.DailyExpenses); n < 1 || n > 7 {
		t.Errorf("weekly series has %d points, want 1..7", n)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/report?period=quarterly", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad period status = %d, want 400", rr.Code)
	}
}

func TestBudgetEndpoint(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store)
	defer srv.Shutdown(context.Background())

	now := time.Now()
	rr := doJSON(t, srv, http.MethodPut, "/api/budget", map[string]any{
		"year":  now.Year(),
		"month": int(now.Month()),
		"limit": "5000",
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("put budget status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/budget", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get budget status = %d", rr.Code)
	}
	var analysis budgetResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("decode budget: %v", err)
	}
	if analysis.LimitCents != 500000 {
		t.Errorf("limit = %d, want 500000", analysis.LimitCents)
	}
	if analysis.Alert == "" {
		t.Error("alert level missing")
	}
}

func TestAssetEndpoint(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store)
	defer srv.Shutdown(context.Background())

	rr := doJSON(t, srv, http.MethodPost, "/api/assets", map[string]any{
		"name":          "Laptop",
		"category":      "laptop",
		"purchasePrice": "1500",
		"purchaseDate":  "2023-01-01",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create asset status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var created assetResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if created.SalvageValueCents != 15000 {
		t.Errorf("default salvage = %d, want 10%% of purchase", created.SalvageValueCents)
	}
	if created.DaysHeld < 1 || created.DailyCostCents < 1 {
		t.Errorf("valuation missing: %+v", created)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/assets", map[string]any{
		"name":          "Mystery",
		"category":      "spaceship",
		"purchasePrice": "10",
		"purchaseDate":  "2023-01-01",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown category status = %d, want 422", rr.Code)
	}
}

func TestBackupEndpointRoundTrip(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store)
	defer srv.Shutdown(context.Background())

	if _, err := store.CreateTransaction(context.Background(), core.Transaction{
		Amount:    core.Money{Cents: 2500},
		Direction: core.Expense,
		Date:      core.NewDate(2024, 1, 16),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/backup", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d", rr.Code)
	}

	fresh := newMemStore()
	srv2 := newTestServer(fresh)
	defer srv2.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/backup", bytes.NewReader(rr.Body.Bytes()))
	srv2.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("import status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(fresh.transactions) != 1 {
		t.Errorf("imported %d transactions, want 1", len(fresh.transactions))
	}
}
