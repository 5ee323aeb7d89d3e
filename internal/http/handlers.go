package http

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"flashcount/internal/core"
	"flashcount/internal/log"
	"flashcount/internal/services"
)

type categoryPayload struct {
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

func (p *categoryPayload) toDomain() *core.CategoryRef {
	if p == nil || p.Name == "" {
		return nil
	}
	return &core.CategoryRef{Name: p.Name, Icon: p.Icon, Color: p.Color}
}

func categoryPayloadFrom(c *core.CategoryRef) *categoryPayload {
	if c == nil {
		return nil
	}
	return &categoryPayload{Name: c.Name, Icon: c.Icon, Color: c.Color}
}

type transactionRequest struct {
	Amount    string           `json:"amount"` // decimal string, "12.50"
	Direction string           `json:"direction"`
	Note      string           `json:"note"`
	Date      string           `json:"date"` // YYYY-MM-DD, today when empty
	Category  *categoryPayload `json:"category"`
	LedgerID  string           `json:"ledgerId"`
}

type transactionResponse struct {
	ID          int64            `json:"id"`
	AmountCents int64            `json:"amountCents"`
	Direction   string           `json:"direction"`
	Note        string           `json:"note,omitempty"`
	Date        string           `json:"date"`
	Category    *categoryPayload `json:"category,omitempty"`
	LedgerID    string           `json:"ledgerId,omitempty"`
	RuleID      int64            `json:"ruleId,omitempty"`
}

func transactionResponseFrom(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		AmountCents: t.Amount.Cents,
		Direction:   string(t.Direction),
		Note:        t.Note,
		Date:        t.Date.ISO(),
		Category:    categoryPayloadFrom(t.Category),
		LedgerID:    t.LedgerID,
		RuleID:      t.RuleID,
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		transactions []core.Transaction
		err          error
	)
	if r.URL.Query().Get("year") != "" || r.URL.Query().Get("month") != "" {
		year, month, ok := yearMonthParams(r, time.Now())
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid year or month")
			return
		}
		transactions, err = s.store.ListTransactionsByMonth(r.Context(), year, month)
	} else {
		transactions, err = s.store.ListTransactions(r.Context())
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, transactionResponseFrom(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	direction, err := core.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid direction")
		return
	}
	date := core.DateOf(time.Now())
	if req.Date != "" {
		if date, err = core.ParseISO(req.Date); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date")
			return
		}
	}

	t := core.Transaction{
		Amount:    core.Money{Cents: cents},
		Direction: direction,
		Note:      req.Note,
		Date:      date,
		Category:  req.Category.toDomain(),
		LedgerID:  req.LedgerID,
	}
	id, err := s.store.CreateTransaction(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save transaction")
		return
	}
	t.ID = id

	s.afterLedgerWrite(r, date)
	writeJSON(w, http.StatusCreated, transactionResponseFrom(t))
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}
	id, ok := pathID(r.URL.Path, "/api/transactions")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.store.SoftDeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete transaction failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "could not delete transaction")
		return
	}

	s.reports.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

type ruleRequest struct {
	Title       string           `json:"title"`
	Amount      string           `json:"amount"`
	Direction   string           `json:"direction"`
	Frequency   string           `json:"frequency"`
	NextDueDate string           `json:"nextDueDate"`
	Category    *categoryPayload `json:"category"`
	LedgerID    string           `json:"ledgerId"`
	Note        string           `json:"note"`
}

type ruleResponse struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	AmountCents int64            `json:"amountCents"`
	Direction   string           `json:"direction"`
	Frequency   string           `json:"frequency"`
	NextDueDate string           `json:"nextDueDate"`
	Active      bool             `json:"active"`
	Category    *categoryPayload `json:"category,omitempty"`
	LedgerID    string           `json:"ledgerId,omitempty"`
	Note        string           `json:"note,omitempty"`
}

func ruleResponseFrom(r core.RecurringRule) ruleResponse {
	return ruleResponse{
		ID:          r.ID,
		Title:       r.Title,
		AmountCents: r.Amount.Cents,
		Direction:   string(r.Direction),
		Frequency:   string(r.Frequency),
		NextDueDate: r.NextDueDate.ISO(),
		Active:      r.Active,
		Category:    categoryPayloadFrom(r.Category),
		LedgerID:    r.LedgerID,
		Note:        r.Note,
	}
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := s.store.ListRules(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "List rules failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not list rules")
			return
		}
		out := make([]ruleResponse, 0, len(rules))
		for _, rule := range rules {
			out = append(out, ruleResponseFrom(rule))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		s.createRule(w, r)
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	direction, err := core.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid direction")
		return
	}
	frequency, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid frequency")
		return
	}
	due, err := core.ParseISO(req.NextDueDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid next due date")
		return
	}

	rule := core.RecurringRule{
		Title:       req.Title,
		Amount:      core.Money{Cents: cents},
		Direction:   direction,
		Frequency:   frequency,
		NextDueDate: due,
		Active:      true,
		Category:    req.Category.toDomain(),
		LedgerID:    req.LedgerID,
		Note:        req.Note,
	}
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreateRule(r.Context(), rule)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create rule failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save rule")
		return
	}
	rule.ID = id
	writeJSON(w, http.StatusCreated, ruleResponseFrom(rule))
}

type ruleUpdateRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) handleRuleByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, "PATCH")
		return
	}
	id, ok := pathID(r.URL.Path, "/api/rules")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	var req ruleUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "missing active flag")
		return
	}

	if err := s.store.SetRuleActive(r.Context(), id, *req.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		slog.ErrorContext(r.Context(), "Update rule failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "could not update rule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type advanceResponse struct {
	RulesChecked  int `json:"rulesChecked"`
	RulesAdvanced int `json:"rulesAdvanced"`
	PostingsMade  int `json:"postingsMade"`
	Failed        int `json:"failed"`
}

func (s *Server) handleAdvanceRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	result, err := s.processor.ProcessDueRules(r.Context(), time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Advance rules failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not process rules")
		return
	}

	if result.PostingsMade > 0 {
		s.reports.Invalidate()
	}
	writeJSON(w, http.StatusOK, advanceResponse{
		RulesChecked:  result.RulesChecked,
		RulesAdvanced: result.RulesAdvanced,
		PostingsMade:  result.PostingsMade,
		Failed:        result.Failed,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	period, err := services.ParseReportPeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "period must be weekly or monthly")
		return
	}

	data, err := s.reports.GetReport(r.Context(), period, time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Report generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not generate report")
		return
	}
	writeJSON(w, http.StatusOK, reportResponseFrom(data))
}

type budgetRequest struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Limit string `json:"limit"` // decimal string
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		year, month, ok := yearMonthParams(r, time.Now())
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid year or month")
			return
		}
		analysis, err := s.budgets.AnalyzeMonth(r.Context(), year, month, time.Now())
		if err != nil {
			slog.ErrorContext(r.Context(), "Budget analysis failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not analyze budget")
			return
		}
		writeJSON(w, http.StatusOK, budgetResponseFrom(year, month, analysis))
	case http.MethodPut:
		var req budgetRequest
		if !decodeBody(w, r, &req) {
			return
		}
		cents, err := core.ParseDecimalToCents(req.Limit)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid limit")
			return
		}
		budget := core.Budget{
			Year:         req.Year,
			Month:        req.Month,
			MonthlyLimit: core.Money{Cents: cents},
		}
		if err := budget.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := s.store.UpsertBudget(r.Context(), budget); err != nil {
			slog.ErrorContext(r.Context(), "Upsert budget failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not save budget")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "PUT")
	}
}

type assetRequest struct {
	Name            string `json:"name"`
	Category        string `json:"category"`
	PurchasePrice   string `json:"purchasePrice"` // decimal string
	PurchaseDate    string `json:"purchaseDate"`
	SalvageValue    string `json:"salvageValue"`    // empty = category default
	TargetDailyCost string `json:"targetDailyCost"` // optional decimal string
	Note            string `json:"note"`
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listAssets(w, r)
	case http.MethodPost:
		s.createAsset(w, r)
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	category, err := core.ParseAssetCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown asset category")
		return
	}
	priceCents, err := core.ParseDecimalToCents(req.PurchasePrice)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid purchase price")
		return
	}
	purchased, err := core.ParseISO(req.PurchaseDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid purchase date")
		return
	}

	asset := core.PhysicalAsset{
		Name:          req.Name,
		Category:      category,
		PurchasePrice: core.Money{Cents: priceCents},
		PurchaseDate:  purchased,
		Note:          req.Note,
	}

	if req.SalvageValue != "" {
		cents, err := core.ParseDecimalToCents(req.SalvageValue)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid salvage value")
			return
		}
		asset.SalvageValue = core.Money{Cents: cents}
	} else {
		asset.SalvageValue = asset.DefaultSalvageValue()
	}
	if req.TargetDailyCost != "" {
		cents, err := core.ParseDecimalToCents(req.TargetDailyCost)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid target daily cost")
			return
		}
		asset.TargetDailyCost = core.Money{Cents: cents}
	}

	if err := asset.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreateAsset(r.Context(), asset)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create asset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save asset")
		return
	}
	asset.ID = id
	writeJSON(w, http.StatusCreated, assetResponseFrom(asset, services.ValueAsset(asset, time.Now())))
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.store.ListAssets(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List assets failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list assets")
		return
	}

	now := time.Now()
	out := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, assetResponseFrom(a, services.ValueAsset(a, now)))
	}
	writeJSON(w, http.StatusOK, out)
}

type dailySummaryResponse struct {
	Day          string `json:"day"`
	IncomeCents  int64  `json:"incomeCents"`
	ExpenseCents int64  `json:"expenseCents"`
}

func (s *Server) handleDailySummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	year, month, ok := yearMonthParams(r, time.Now())
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year or month")
		return
	}

	summaries, err := s.store.ListDailySummaries(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "List daily summaries failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list summaries")
		return
	}

	out := make([]dailySummaryResponse, 0, len(summaries))
	for _, ds := range summaries {
		out = append(out, dailySummaryResponse{
			Day:          ds.Day.ISO(),
			IncomeCents:  ds.IncomeCents,
			ExpenseCents: ds.ExpenseCents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		raw, err := s.backups.Export(r.Context())
		if err != nil {
			fields := log.NewFields().
				WithComponent(log.ComponentBackup).
				WithOperation(log.OpExport).
				WithError(err)
			slog.ErrorContext(r.Context(), "Backup export failed", fields.ToSlice()...)
			writeError(w, http.StatusInternalServerError, "could not export backup")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="flashcount-backup.json"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	case http.MethodPost:
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read backup")
			return
		}
		if _, err := s.backups.Import(r.Context(), raw); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.reports.Invalidate()
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

// afterLedgerWrite refreshes everything derived from the transaction set.
func (s *Server) afterLedgerWrite(r *http.Request, day core.Date) {
	s.reports.Invalidate()
	if err := s.store.RecomputeDailySummary(r.Context(), day); err != nil {
		slog.WarnContext(r.Context(), "Daily summary refresh failed", "error", err, "day", day.ISO())
	}
}
