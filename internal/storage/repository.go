// Package storage persists ledger state in SQLite. It is the single
// writer: the computation engine returns value records and the repository
// applies them, so an advance is one SQL transaction per rule and a crash
// never leaves a rule half-posted.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"flashcount/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// DailySummary is one row of the derived per-day aggregate table. It is
// rebuildable from transactions at any time.
type DailySummary struct {
	Day          core.Date
	IncomeCents  int64
	ExpenseCents int64
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// monthBounds returns the half-open ISO date range covering a month.
func monthBounds(year, month int) (string, string) {
	start := core.NewDate(year, month, 1)
	end := core.NewDate(year, month+1, 1)
	return start.ISO(), end.ISO()
}

func categoryArgs(c *core.CategoryRef) (name, icon, color sql.NullString) {
	if c == nil {
		return
	}
	return sql.NullString{String: c.Name, Valid: true},
		sql.NullString{String: c.Icon, Valid: true},
		sql.NullString{String: c.Color, Valid: true}
}

func categoryFromRow(name, icon, color sql.NullString) *core.CategoryRef {
	if !name.Valid || name.String == "" {
		return nil
	}
	return &core.CategoryRef{Name: name.String, Icon: icon.String, Color: color.String}
}

// CreateTransaction validates and inserts a transaction, returning its id.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("validate transaction: %w", err)
	}

	name, icon, color := categoryArgs(t.Category)
	var ruleID any
	if t.RuleID != 0 {
		ruleID = t.RuleID
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (amount_cents, direction, note, tx_date,
			category_name, category_icon, category_color, ledger_id, rule_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Amount.Cents, string(t.Direction), t.Note, t.Date.ISO(),
		name, icon, color, t.LedgerID, ruleID)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"amount_cents", t.Amount.Cents,
		"direction", t.Direction,
		"date", t.Date.ISO())

	return id, nil
}

// SoftDeleteTransaction marks a transaction deleted without removing the row.
func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const transactionColumns = `id, amount_cents, direction, note, tx_date,
	category_name, category_icon, category_color, ledger_id, COALESCE(rule_id, 0)`

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		t                 core.Transaction
		direction, isoDay string
		name, icon, color sql.NullString
	)
	err := rows.Scan(&t.ID, &t.Amount.Cents, &direction, &t.Note, &isoDay,
		&name, &icon, &color, &t.LedgerID, &t.RuleID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Direction = core.Direction(direction)
	t.Date, err = core.ParseISO(isoDay)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d date: %w", t.ID, err)
	}
	t.Category = categoryFromRow(name, icon, color)
	return t, nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransactions returns the full live-transaction snapshot in
// chronological order. Single-user data is bounded, so reports take the
// whole history (the streak needs it anyway).
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	txns, err := r.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE deleted_at IS NULL
		ORDER BY tx_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// ListTransactionsByMonth returns a month's live transactions.
func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	start, end := monthBounds(year, month)
	txns, err := r.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE deleted_at IS NULL AND tx_date >= ? AND tx_date < ?
		ORDER BY tx_date, id`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list transactions by month: %w", err)
	}
	return txns, nil
}

// SumExpensesByMonth totals a month's live expenses for budget analysis.
func (r *SQLiteRepository) SumExpensesByMonth(ctx context.Context, year, month int) (core.Money, error) {
	start, end := monthBounds(year, month)
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE deleted_at IS NULL AND direction = 'expense'
		  AND tx_date >= ? AND tx_date < ?`, start, end).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses by month: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// CreateRule validates and inserts a recurring rule, returning its id.
func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.RecurringRule) (int64, error) {
	if err := rule.Validate(); err != nil {
		return 0, fmt.Errorf("validate rule: %w", err)
	}

	name, icon, color := categoryArgs(rule.Category)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_rules (title, amount_cents, direction, frequency,
			next_due_date, active, category_name, category_icon, category_color, ledger_id, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Title, rule.Amount.Cents, string(rule.Direction), string(rule.Frequency),
		rule.NextDueDate.ISO(), rule.Active, name, icon, color, rule.LedgerID, rule.Note)
	if err != nil {
		return 0, fmt.Errorf("create rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("rule id: %w", err)
	}

	slog.InfoContext(ctx, "Recurring rule saved",
		"id", id,
		"title", rule.Title,
		"frequency", rule.Frequency,
		"next_due", rule.NextDueDate.ISO())

	return id, nil
}

const ruleColumns = `id, title, amount_cents, direction, frequency, next_due_date,
	active, category_name, category_icon, category_color, ledger_id, note`

func scanRule(rows *sql.Rows) (core.RecurringRule, error) {
	var (
		rule                         core.RecurringRule
		direction, frequency, isoDay string
		name, icon, color            sql.NullString
	)
	err := rows.Scan(&rule.ID, &rule.Title, &rule.Amount.Cents, &direction, &frequency,
		&isoDay, &rule.Active, &name, &icon, &color, &rule.LedgerID, &rule.Note)
	if err != nil {
		return core.RecurringRule{}, err
	}
	rule.Direction = core.Direction(direction)
	rule.Frequency = core.Frequency(frequency)
	rule.NextDueDate, err = core.ParseISO(isoDay)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("rule %d due date: %w", rule.ID, err)
	}
	rule.Category = categoryFromRow(name, icon, color)
	return rule, nil
}

func (r *SQLiteRepository) queryRules(ctx context.Context, query string, args ...any) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// ListRules returns all recurring rules.
func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.RecurringRule, error) {
	rules, err := r.queryRules(ctx, `SELECT `+ruleColumns+` FROM recurring_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// ListActiveRules returns the rules eligible for catch-up processing.
func (r *SQLiteRepository) ListActiveRules(ctx context.Context) ([]core.RecurringRule, error) {
	rules, err := r.queryRules(ctx, `SELECT `+ruleColumns+` FROM recurring_rules WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	return rules, nil
}

// SetRuleActive flips a rule's active flag. Rules are never deleted.
func (r *SQLiteRepository) SetRuleActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE recurring_rules SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set rule active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set rule active rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyRuleAdvance persists the outcome of one engine advance atomically:
// every posting becomes a transaction row and the rule's due date moves,
// or none of it happens.
func (r *SQLiteRepository) ApplyRuleAdvance(ctx context.Context, updated core.RecurringRule, postings []core.GeneratedPosting) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin advance: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(postings))
	for _, p := range postings {
		name, icon, color := categoryArgs(p.Category)
		res, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (amount_cents, direction, note, tx_date,
				category_name, category_icon, category_color, ledger_id, rule_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Amount.Cents, string(p.Direction), p.Label, p.PostedDate.ISO(),
			name, icon, color, p.LedgerID, p.RuleID)
		if err != nil {
			return nil, fmt.Errorf("insert posting: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("posting id: %w", err)
		}
		ids = append(ids, id)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE recurring_rules SET next_due_date = ? WHERE id = ?`,
		updated.NextDueDate.ISO(), updated.ID); err != nil {
		return nil, fmt.Errorf("advance rule due date: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit advance: %w", err)
	}

	return ids, nil
}

// GetBudget fetches the ledger-wide budget for a month. The bool reports
// whether one exists.
func (r *SQLiteRepository) GetBudget(ctx context.Context, year, month int) (core.Budget, bool, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx, `
		SELECT id, year, month, limit_cents, ledger_id, category_name
		FROM budgets WHERE year = ? AND month = ? AND ledger_id = '' AND category_name = ''`,
		year, month).Scan(&b.ID, &b.Year, &b.Month, &b.MonthlyLimit.Cents, &b.LedgerID, &b.CategoryName)
	if err == sql.ErrNoRows {
		return core.Budget{}, false, nil
	}
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("get budget: %w", err)
	}
	return b, true, nil
}

// UpsertBudget creates or replaces a month's budget limit.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("validate budget: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (year, month, limit_cents, ledger_id, category_name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (year, month, ledger_id, category_name)
		DO UPDATE SET limit_cents = excluded.limit_cents`,
		b.Year, b.Month, b.MonthlyLimit.Cents, b.LedgerID, b.CategoryName)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// ListBudgets returns every budget row, newest month first.
func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, year, month, limit_cents, ledger_id, category_name
		FROM budgets ORDER BY year DESC, month DESC`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Year, &b.Month, &b.MonthlyLimit.Cents, &b.LedgerID, &b.CategoryName); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateAsset validates and inserts a physical asset, returning its id.
func (r *SQLiteRepository) CreateAsset(ctx context.Context, a core.PhysicalAsset) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, fmt.Errorf("validate asset: %w", err)
	}

	var soldPrice any
	if a.SoldPrice != nil {
		soldPrice = a.SoldPrice.Cents
	}
	var soldDate any
	if a.SoldDate != nil {
		soldDate = a.SoldDate.ISO()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO physical_assets (name, category, purchase_price_cents, purchase_date,
			salvage_value_cents, target_daily_cost_cents, sold_price_cents, sold_date, note, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, string(a.Category), a.PurchasePrice.Cents, a.PurchaseDate.ISO(),
		a.SalvageValue.Cents, a.TargetDailyCost.Cents, soldPrice, soldDate, a.Note, a.Archived)
	if err != nil {
		return 0, fmt.Errorf("create asset: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("asset id: %w", err)
	}
	return id, nil
}

// ListAssets returns all physical assets.
func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]core.PhysicalAsset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, category, purchase_price_cents, purchase_date,
			salvage_value_cents, target_daily_cost_cents, sold_price_cents, sold_date, note, archived
		FROM physical_assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []core.PhysicalAsset
	for rows.Next() {
		var (
			a         core.PhysicalAsset
			category  string
			purchased string
			soldCents sql.NullInt64
			soldDay   sql.NullString
		)
		err := rows.Scan(&a.ID, &a.Name, &category, &a.PurchasePrice.Cents, &purchased,
			&a.SalvageValue.Cents, &a.TargetDailyCost.Cents, &soldCents, &soldDay, &a.Note, &a.Archived)
		if err != nil {
			return nil, err
		}
		a.Category = core.AssetCategory(category)
		a.PurchaseDate, err = core.ParseISO(purchased)
		if err != nil {
			return nil, fmt.Errorf("asset %d purchase date: %w", a.ID, err)
		}
		if soldCents.Valid {
			a.SoldPrice = &core.Money{Cents: soldCents.Int64}
		}
		if soldDay.Valid {
			d, err := core.ParseISO(soldDay.String)
			if err != nil {
				return nil, fmt.Errorf("asset %d sold date: %w", a.ID, err)
			}
			a.SoldDate = &d
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecomputeDailySummary rebuilds one day's derived aggregate from the
// live transactions of that day.
func (r *SQLiteRepository) RecomputeDailySummary(ctx context.Context, day core.Date) error {
	var income, expense int64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN direction = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN direction = 'expense' THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE deleted_at IS NULL AND tx_date = ?`, day.ISO()).Scan(&income, &expense)
	if err != nil {
		return fmt.Errorf("recompute daily summary: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO daily_summaries (day, income_cents, expense_cents, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (day)
		DO UPDATE SET income_cents = excluded.income_cents,
			expense_cents = excluded.expense_cents,
			updated_at = CURRENT_TIMESTAMP`,
		day.ISO(), income, expense)
	if err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}

	slog.InfoContext(ctx, "Daily summary refreshed",
		"day", day.ISO(),
		"income_cents", income,
		"expense_cents", expense)
	return nil
}

// ListDailySummaries returns a month's summary rows in date order.
func (r *SQLiteRepository) ListDailySummaries(ctx context.Context, year, month int) ([]DailySummary, error) {
	start, end := monthBounds(year, month)
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, income_cents, expense_cents
		FROM daily_summaries
		WHERE day >= ? AND day < ?
		ORDER BY day`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list daily summaries: %w", err)
	}
	defer rows.Close()

	var out []DailySummary
	for rows.Next() {
		var (
			s   DailySummary
			iso string
		)
		if err := rows.Scan(&iso, &s.IncomeCents, &s.ExpenseCents); err != nil {
			return nil, err
		}
		s.Day, err = core.ParseISO(iso)
		if err != nil {
			return nil, fmt.Errorf("summary date: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
