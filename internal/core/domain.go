package core

import (
	"errors"
	"strings"
)

const (
	Expense Direction = "expense"
	Income  Direction = "income"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

type (
	// Direction encodes whether an amount leaves or enters the ledger.
	// Amounts themselves are always positive.
	Direction string

	// Frequency is the repetition period of a recurring rule.
	Frequency string

	// CategoryRef is an opaque reference to a category owned by the host.
	// The library never resolves it beyond grouping by Name.
	CategoryRef struct {
		Name  string
		Icon  string
		Color string
	}

	// Transaction is a single ledger entry. Category and LedgerID are
	// optional; a nil Category groups under the uncategorized bucket.
	Transaction struct {
		ID        int64
		Amount    Money
		Direction Direction
		Note      string
		Date      Date
		Category  *CategoryRef
		LedgerID  string
		RuleID    int64 // non-zero when generated by a recurring rule
	}

	// RecurringRule is a template that periodically materializes a
	// transaction (rent, subscriptions). NextDueDate is always defined.
	RecurringRule struct {
		ID          int64
		Title       string
		Amount      Money
		Direction   Direction
		Frequency   Frequency
		NextDueDate Date
		Active      bool
		Category    *CategoryRef
		LedgerID    string
		Note        string
	}

	// GeneratedPosting is one materialized occurrence of a recurring rule.
	// The engine returns postings; the host persists them as transactions.
	GeneratedPosting struct {
		RuleID     int64
		Amount     Money
		Direction  Direction
		PostedDate Date
		Label      string
		Category   *CategoryRef
		LedgerID   string
	}

	// Budget is a monthly spending limit, scoped to a ledger and
	// optionally to a single category.
	Budget struct {
		ID           int64
		MonthlyLimit Money
		Year         int
		Month        int // 1-12
		LedgerID     string
		CategoryName string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyTitle       = errors.New("empty title")
	ErrUnknownDirection = errors.New("unknown direction")
	ErrUnknownFrequency = errors.New("unknown frequency")
)

// ParseDirection validates and normalizes a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Expense:
		return Expense, nil
	case Income:
		return Income, nil
	default:
		return "", ErrUnknownDirection
	}
}

// ParseFrequency validates and normalizes a frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	case Yearly:
		return Yearly, nil
	default:
		return "", ErrUnknownFrequency
	}
}

func (d Direction) Validate() error {
	if d != Expense && d != Income {
		return ErrUnknownDirection
	}
	return nil
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrUnknownFrequency
	}
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Direction.Validate(); err != nil {
		return err
	}
	if len(t.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	return nil
}

// SignedCents returns the amount with direction applied: negative for
// expenses, positive for income.
func (t Transaction) SignedCents() int64 {
	if t.Direction == Expense {
		return -t.Amount.Cents
	}
	return t.Amount.Cents
}

// CategoryName returns the grouping key for reports, with a sentinel
// bucket for transactions that carry no category.
func (t Transaction) CategoryName() string {
	if t.Category == nil || strings.TrimSpace(t.Category.Name) == "" {
		return UncategorizedName
	}
	return t.Category.Name
}

// UncategorizedName is the sentinel bucket for transactions without a category.
const UncategorizedName = "Uncategorized"

func (r RecurringRule) Validate() error {
	if len(strings.TrimSpace(r.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(r.Title) > 100 {
		return errors.New("title too long (max 100 characters)")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := r.Direction.Validate(); err != nil {
		return err
	}
	if err := r.Frequency.Validate(); err != nil {
		return err
	}
	if err := r.NextDueDate.Validate(); err != nil {
		return errors.New("invalid next due date: " + err.Error())
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.MonthlyLimit.Validate(); err != nil {
		return err
	}
	if b.Month < 1 || b.Month > 12 {
		return errors.New("invalid budget month")
	}
	if b.Year < 1970 || b.Year > 9999 {
		return errors.New("invalid budget year")
	}
	return nil
}
