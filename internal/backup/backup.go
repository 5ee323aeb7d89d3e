// Package backup serializes the whole ledger to a versioned JSON document
// and restores it. The format is self-contained: amounts are integer
// cents, dates ISO strings, so a backup survives schema migrations.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flashcount/internal/core"
	"flashcount/internal/log"
)

const FormatVersion = "1"

// Store is the storage surface export and import run against.
type Store interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListRules(ctx context.Context) ([]core.RecurringRule, error)
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	ListAssets(ctx context.Context) ([]core.PhysicalAsset, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	CreateRule(ctx context.Context, r core.RecurringRule) (int64, error)
	UpsertBudget(ctx context.Context, b core.Budget) error
	CreateAsset(ctx context.Context, a core.PhysicalAsset) (int64, error)
}

type categoryDTO struct {
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

type transactionDTO struct {
	AmountCents int64        `json:"amountCents"`
	Direction   string       `json:"direction"`
	Note        string       `json:"note,omitempty"`
	Date        string       `json:"date"`
	Category    *categoryDTO `json:"category,omitempty"`
	LedgerID    string       `json:"ledgerId,omitempty"`
	RuleID      int64        `json:"ruleId,omitempty"`
}

type ruleDTO struct {
	Title       string       `json:"title"`
	AmountCents int64        `json:"amountCents"`
	Direction   string       `json:"direction"`
	Frequency   string       `json:"frequency"`
	NextDueDate string       `json:"nextDueDate"`
	Active      bool         `json:"active"`
	Category    *categoryDTO `json:"category,omitempty"`
	LedgerID    string       `json:"ledgerId,omitempty"`
	Note        string       `json:"note,omitempty"`
}

type budgetDTO struct {
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	LimitCents   int64  `json:"limitCents"`
	LedgerID     string `json:"ledgerId,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
}

type assetDTO struct {
	Name                 string `json:"name"`
	Category             string `json:"category"`
	PurchasePriceCents   int64  `json:"purchasePriceCents"`
	PurchaseDate         string `json:"purchaseDate"`
	SalvageValueCents    int64  `json:"salvageValueCents"`
	TargetDailyCostCents int64  `json:"targetDailyCostCents,omitempty"`
	SoldPriceCents       *int64 `json:"soldPriceCents,omitempty"`
	SoldDate             string `json:"soldDate,omitempty"`
	Note                 string `json:"note,omitempty"`
	Archived             bool   `json:"archived,omitempty"`
}

// BackupData is the on-disk document.
type BackupData struct {
	Version        string           `json:"version"`
	CreatedAt      time.Time        `json:"createdAt"`
	Transactions   []transactionDTO `json:"transactions"`
	RecurringRules []ruleDTO        `json:"recurringRules"`
	Budgets        []budgetDTO      `json:"budgets"`
	PhysicalAssets []assetDTO       `json:"physicalAssets"`
}

// Service exports and imports ledger snapshots.
type Service struct {
	store  Store
	logger *log.Logger
}

func NewService(store Store, logger *log.Logger) *Service {
	return &Service{store: store, logger: logger.WithComponent(log.ComponentBackup)}
}

// Export serializes the current ledger state. Soft-deleted transactions
// are not included.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	transactions, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("export transactions: %w", err)
	}
	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("export rules: %w", err)
	}
	budgets, err := s.store.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("export budgets: %w", err)
	}
	assets, err := s.store.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("export assets: %w", err)
	}

	data := BackupData{
		Version:        FormatVersion,
		CreatedAt:      time.Now().UTC(),
		Transactions:   make([]transactionDTO, 0, len(transactions)),
		RecurringRules: make([]ruleDTO, 0, len(rules)),
		Budgets:        make([]budgetDTO, 0, len(budgets)),
		PhysicalAssets: make([]assetDTO, 0, len(assets)),
	}

	for _, t := range transactions {
		data.Transactions = append(data.Transactions, transactionDTO{
			AmountCents: t.Amount.Cents,
			Direction:   string(t.Direction),
			Note:        t.Note,
			Date:        t.Date.ISO(),
			Category:    categoryToDTO(t.Category),
			LedgerID:    t.LedgerID,
			RuleID:      t.RuleID,
		})
	}
	for _, r := range rules {
		data.RecurringRules = append(data.RecurringRules, ruleDTO{
			Title:       r.Title,
			AmountCents: r.Amount.Cents,
			Direction:   string(r.Direction),
			Frequency:   string(r.Frequency),
			NextDueDate: r.NextDueDate.ISO(),
			Active:      r.Active,
			Category:    categoryToDTO(r.Category),
			LedgerID:    r.LedgerID,
			Note:        r.Note,
		})
	}
	for _, b := range budgets {
		data.Budgets = append(data.Budgets, budgetDTO{
			Year:         b.Year,
			Month:        b.Month,
			LimitCents:   b.MonthlyLimit.Cents,
			LedgerID:     b.LedgerID,
			CategoryName: b.CategoryName,
		})
	}
	for _, a := range assets {
		dto := assetDTO{
			Name:                 a.Name,
			Category:             string(a.Category),
			PurchasePriceCents:   a.PurchasePrice.Cents,
			PurchaseDate:         a.PurchaseDate.ISO(),
			SalvageValueCents:    a.SalvageValue.Cents,
			TargetDailyCostCents: a.TargetDailyCost.Cents,
			Note:                 a.Note,
			Archived:             a.Archived,
		}
		if a.SoldPrice != nil {
			cents := a.SoldPrice.Cents
			dto.SoldPriceCents = &cents
		}
		if a.SoldDate != nil {
			dto.SoldDate = a.SoldDate.ISO()
		}
		data.PhysicalAssets = append(data.PhysicalAssets, dto)
	}

	s.logger.InfoContext(ctx, "Backup exported",
		"transactions", len(data.Transactions),
		"rules", len(data.RecurringRules),
		"budgets", len(data.Budgets),
		"assets", len(data.PhysicalAssets))

	return json.MarshalIndent(data, "", "  ")
}

// Import restores a backup document into the store. The document is fully
// validated before any row is written, so a malformed backup leaves the
// store untouched.
func (s *Service) Import(ctx context.Context, raw []byte) (BackupData, error) {
	var data BackupData
	if err := json.Unmarshal(raw, &data); err != nil {
		return BackupData{}, fmt.Errorf("parse backup: %w", err)
	}
	if data.Version != FormatVersion {
		return BackupData{}, fmt.Errorf("unsupported backup version %q", data.Version)
	}

	transactions, rules, budgets, assets, err := decodeAll(data)
	if err != nil {
		return BackupData{}, err
	}

	for _, r := range rules {
		if _, err := s.store.CreateRule(ctx, r); err != nil {
			return BackupData{}, fmt.Errorf("restore rule %q: %w", r.Title, err)
		}
	}
	for _, t := range transactions {
		if _, err := s.store.CreateTransaction(ctx, t); err != nil {
			return BackupData{}, fmt.Errorf("restore transaction on %s: %w", t.Date.ISO(), err)
		}
	}
	for _, b := range budgets {
		if err := s.store.UpsertBudget(ctx, b); err != nil {
			return BackupData{}, fmt.Errorf("restore budget %d-%02d: %w", b.Year, b.Month, err)
		}
	}
	for _, a := range assets {
		if _, err := s.store.CreateAsset(ctx, a); err != nil {
			return BackupData{}, fmt.Errorf("restore asset %q: %w", a.Name, err)
		}
	}

	s.logger.InfoContext(ctx, "Backup imported",
		"transactions", len(transactions),
		"rules", len(rules),
		"budgets", len(budgets),
		"assets", len(assets))
	return data, nil
}

func decodeAll(data BackupData) ([]core.Transaction, []core.RecurringRule, []core.Budget, []core.PhysicalAsset, error) {
	transactions := make([]core.Transaction, 0, len(data.Transactions))
	for i, dto := range data.Transactions {
		t, err := dto.toDomain()
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		transactions = append(transactions, t)
	}

	rules := make([]core.RecurringRule, 0, len(data.RecurringRules))
	for i, dto := range data.RecurringRules {
		r, err := dto.toDomain()
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}

	budgets := make([]core.Budget, 0, len(data.Budgets))
	for i, dto := range data.Budgets {
		b := core.Budget{
			Year:         dto.Year,
			Month:        dto.Month,
			MonthlyLimit: core.Money{Cents: dto.LimitCents},
			LedgerID:     dto.LedgerID,
			CategoryName: dto.CategoryName,
		}
		if err := b.Validate(); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("budget %d: %w", i, err)
		}
		budgets = append(budgets, b)
	}

	assets := make([]core.PhysicalAsset, 0, len(data.PhysicalAssets))
	for i, dto := range data.PhysicalAssets {
		a, err := dto.toDomain()
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("asset %d: %w", i, err)
		}
		assets = append(assets, a)
	}

	return transactions, rules, budgets, assets, nil
}

func categoryToDTO(c *core.CategoryRef) *categoryDTO {
	if c == nil {
		return nil
	}
	return &categoryDTO{Name: c.Name, Icon: c.Icon, Color: c.Color}
}

func categoryFromDTO(c *categoryDTO) *core.CategoryRef {
	if c == nil {
		return nil
	}
	return &core.CategoryRef{Name: c.Name, Icon: c.Icon, Color: c.Color}
}

func (dto transactionDTO) toDomain() (core.Transaction, error) {
	direction, err := core.ParseDirection(dto.Direction)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseISO(dto.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		Amount:    core.Money{Cents: dto.AmountCents},
		Direction: direction,
		Note:      dto.Note,
		Date:      date,
		Category:  categoryFromDTO(dto.Category),
		LedgerID:  dto.LedgerID,
		RuleID:    dto.RuleID,
	}
	return t, t.Validate()
}

func (dto ruleDTO) toDomain() (core.RecurringRule, error) {
	direction, err := core.ParseDirection(dto.Direction)
	if err != nil {
		return core.RecurringRule{}, err
	}
	frequency, err := core.ParseFrequency(dto.Frequency)
	if err != nil {
		return core.RecurringRule{}, err
	}
	due, err := core.ParseISO(dto.NextDueDate)
	if err != nil {
		return core.RecurringRule{}, err
	}
	r := core.RecurringRule{
		Title:       dto.Title,
		Amount:      core.Money{Cents: dto.AmountCents},
		Direction:   direction,
		Frequency:   frequency,
		NextDueDate: due,
		Active:      dto.Active,
		Category:    categoryFromDTO(dto.Category),
		LedgerID:    dto.LedgerID,
		Note:        dto.Note,
	}
	return r, r.Validate()
}

func (dto assetDTO) toDomain() (core.PhysicalAsset, error) {
	category, err := core.ParseAssetCategory(dto.Category)
	if err != nil {
		return core.PhysicalAsset{}, err
	}
	purchased, err := core.ParseISO(dto.PurchaseDate)
	if err != nil {
		return core.PhysicalAsset{}, err
	}
	a := core.PhysicalAsset{
		Name:            dto.Name,
		Category:        category,
		PurchasePrice:   core.Money{Cents: dto.PurchasePriceCents},
		PurchaseDate:    purchased,
		SalvageValue:    core.Money{Cents: dto.SalvageValueCents},
		TargetDailyCost: core.Money{Cents: dto.TargetDailyCostCents},
		Note:            dto.Note,
		Archived:        dto.Archived,
	}
	if dto.SoldPriceCents != nil {
		a.SoldPrice = &core.Money{Cents: *dto.SoldPriceCents}
	}
	if dto.SoldDate != "" {
		sold, err := core.ParseISO(dto.SoldDate)
		if err != nil {
			return core.PhysicalAsset{}, err
		}
		a.SoldDate = &sold
	}
	return a, a.Validate()
}
