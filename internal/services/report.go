package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"flashcount/internal/core"
)

// Report periods.
const (
	PeriodWeekly  ReportPeriod = "weekly"
	PeriodMonthly ReportPeriod = "monthly"
)

// ReportPeriod selects calendar-week or calendar-month windows.
type ReportPeriod string

// ParseReportPeriod validates and normalizes a period string.
func ParseReportPeriod(s string) (ReportPeriod, error) {
	switch ReportPeriod(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodWeekly:
		return PeriodWeekly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	default:
		return "", fmt.Errorf("unknown report period: %q", s)
	}
}

// CategorySpending is one category's share of the current window's expenses.
type CategorySpending struct {
	Name       string
	Icon       string
	Color      string
	Amount     core.Money
	Percentage float64 // share of total expense, 0..1
	// ChangeFromPrevious is the relative change versus the previous window
	// (-0.2 = down 20%). Nil when the previous window has no amount to
	// compare against.
	ChangeFromPrevious *float64
}

// DailyPoint is one day of the current window's expense series.
type DailyPoint struct {
	Date    core.Date
	Label   string
	Expense core.Money
}

// ReportData is the full periodic report over a transaction snapshot.
type ReportData struct {
	Period            ReportPeriod
	TotalExpense      core.Money
	TotalIncome       core.Money
	NetChange         core.Money // income - expense, may be negative
	ExpenseChange     *float64   // nil when previous window had no expenses
	IncomeChange      *float64   // nil when previous window had no income
	CategoryBreakdown []CategorySpending
	DailyExpenses     []DailyPoint
	StreakDays        int
	Insights          []string
}

// InsightThresholds are the tunable cut-offs for the generated insight
// strings. They are presentation heuristics, not invariants.
type InsightThresholds struct {
	TopCategoryShare float64 // flag the top category above this share
	PeriodChange     float64 // mention total spend moves beyond this
	CategoryChange   float64 // mention top-3 category moves beyond this
}

// DefaultInsightThresholds returns the stock 40% / 10% / 20% cut-offs.
func DefaultInsightThresholds() InsightThresholds {
	return InsightThresholds{
		TopCategoryShare: 0.40,
		PeriodChange:     0.10,
		CategoryChange:   0.20,
	}
}

// GenerateReport aggregates a flat transaction snapshot into the report for
// the period containing now. Windows are half-open [start, end) calendar
// ranges; the previous window has equal calendar length. The snapshot must
// include history beyond the two windows for the streak to be meaningful.
func GenerateReport(transactions []core.Transaction, period ReportPeriod, now time.Time, thresholds InsightThresholds) (ReportData, error) {
	currentStart, currentEnd, previousStart, previousEnd, err := reportWindows(period, now)
	if err != nil {
		return ReportData{}, err
	}

	current := filterWindow(transactions, currentStart, currentEnd)
	previous := filterWindow(transactions, previousStart, previousEnd)

	totalExpense := sumDirection(current, core.Expense)
	totalIncome := sumDirection(current, core.Income)
	prevExpense := sumDirection(previous, core.Expense)
	prevIncome := sumDirection(previous, core.Income)

	breakdown := buildCategoryBreakdown(current, previous, totalExpense)
	daily := buildDailySeries(current, currentStart, currentEnd, period, now)
	streak := calculateStreak(transactions, core.DateOf(now))

	expenseChange := changeRatio(totalExpense.Cents, prevExpense.Cents)
	report := ReportData{
		Period:            period,
		TotalExpense:      totalExpense,
		TotalIncome:       totalIncome,
		NetChange:         netChange(current),
		ExpenseChange:     expenseChange,
		IncomeChange:      changeRatio(totalIncome.Cents, prevIncome.Cents),
		CategoryBreakdown: breakdown,
		DailyExpenses:     daily,
		StreakDays:        streak,
	}
	report.Insights = buildInsights(breakdown, expenseChange, period, thresholds)
	return report, nil
}

// reportWindows returns the half-open current and previous windows for the
// period containing now. Weeks start on Monday.
func reportWindows(period ReportPeriod, now time.Time) (curStart, curEnd, prevStart, prevEnd core.Date, err error) {
	today := core.DateOf(now)
	switch period {
	case PeriodWeekly:
		curStart = today.StartOfWeek()
		curEnd = curStart.AddDays(7)
		prevStart = curStart.AddDays(-7)
		return curStart, curEnd, prevStart, curStart, nil
	case PeriodMonthly:
		curStart = today.StartOfMonth()
		curEnd = core.NewDate(today.Year(), today.Month()+1, 1)
		prevStart = core.NewDate(today.Year(), today.Month()-1, 1)
		return curStart, curEnd, prevStart, curStart, nil
	default:
		return core.Date{}, core.Date{}, core.Date{}, core.Date{}, fmt.Errorf("unknown report period: %q", period)
	}
}

func filterWindow(transactions []core.Transaction, start, end core.Date) []core.Transaction {
	var out []core.Transaction
	for _, t := range transactions {
		if !t.Date.Before(start.Time) && t.Date.Before(end.Time) {
			out = append(out, t)
		}
	}
	return out
}

// netChange folds the window into a single signed balance, income minus
// expense.
func netChange(transactions []core.Transaction) core.Money {
	var net int64
	for _, t := range transactions {
		net += t.SignedCents()
	}
	return core.Money{Cents: net}
}

func sumDirection(transactions []core.Transaction, dir core.Direction) core.Money {
	var total core.Money
	for _, t := range transactions {
		if t.Direction == dir {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// changeRatio computes (current - previous) / previous, or nil when there
// is no previous amount to compare against. A zero base never reads as a
// zero change.
func changeRatio(current, previous int64) *float64 {
	if previous <= 0 {
		return nil
	}
	r := float64(current-previous) / float64(previous)
	return &r
}

func buildCategoryBreakdown(current, previous []core.Transaction, totalExpense core.Money) []CategorySpending {
	type group struct {
		icon, color string
		amount      int64
	}
	sums := make(map[string]*group)
	var order []string

	for _, t := range current {
		if t.Direction != core.Expense {
			continue
		}
		name := t.CategoryName()
		g, ok := sums[name]
		if !ok {
			g = &group{}
			if t.Category != nil {
				g.icon = t.Category.Icon
				g.color = t.Category.Color
			}
			sums[name] = g
			order = append(order, name)
		}
		g.amount += t.Amount.Cents
	}

	prevSums := make(map[string]int64)
	for _, t := range previous {
		if t.Direction != core.Expense {
			continue
		}
		prevSums[t.CategoryName()] += t.Amount.Cents
	}

	out := make([]CategorySpending, 0, len(order))
	for _, name := range order {
		g := sums[name]
		var pct float64
		if totalExpense.Cents > 0 {
			pct = float64(g.amount) / float64(totalExpense.Cents)
		}
		out = append(out, CategorySpending{
			Name:               name,
			Icon:               g.icon,
			Color:              g.color,
			Amount:             core.Money{Cents: g.amount},
			Percentage:         pct,
			ChangeFromPrevious: changeRatio(g.amount, prevSums[name]),
		})
	}

	// Stable: equal amounts keep first-appearance order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// buildDailySeries emits one point per calendar day from the window start
// up to the earlier of the window end and now, zero-spend days included.
func buildDailySeries(current []core.Transaction, start, end core.Date, period ReportPeriod, now time.Time) []DailyPoint {
	limit := end.Time
	if now.Before(limit) {
		limit = now
	}

	byDay := make(map[string]int64)
	for _, t := range current {
		if t.Direction == core.Expense {
			byDay[t.Date.ISO()] += t.Amount.Cents
		}
	}

	var series []DailyPoint
	for d := start; d.Before(limit); d = d.AddDays(1) {
		label := strconv.Itoa(d.Day())
		if period == PeriodWeekly {
			label = d.Format("Mon")
		}
		series = append(series, DailyPoint{
			Date:    d,
			Label:   label,
			Expense: core.Money{Cents: byDay[d.ISO()]},
		})
	}
	return series
}

// calculateStreak counts consecutive recorded days (any direction),
// walking backward from today and stopping at the first gap.
func calculateStreak(transactions []core.Transaction, today core.Date) int {
	days := make(map[string]struct{}, len(transactions))
	for _, t := range transactions {
		days[t.Date.ISO()] = struct{}{}
	}

	streak := 0
	for d := today; ; d = d.AddDays(-1) {
		if _, ok := days[d.ISO()]; !ok {
			break
		}
		streak++
	}
	return streak
}

func buildInsights(breakdown []CategorySpending, expenseChange *float64, period ReportPeriod, th InsightThresholds) []string {
	periodNoun := "month"
	if period == PeriodWeekly {
		periodNoun = "week"
	}

	var insights []string

	if len(breakdown) > 0 {
		top := breakdown[0]
		pct := int(top.Percentage * 100)
		insights = append(insights, fmt.Sprintf("Top category this %s: %s at %d%% of spending", periodNoun, top.Name, pct))
		if top.Percentage > th.TopCategoryShare {
			insights = append(insights, fmt.Sprintf("%s makes up a large share of spending, consider easing off", top.Name))
		}
	}

	if expenseChange != nil {
		change := *expenseChange
		pct := int(abs(change) * 100)
		switch {
		case change > th.PeriodChange:
			insights = append(insights, fmt.Sprintf("Spending is up %d%% versus the previous %s", pct, periodNoun))
		case change < -th.PeriodChange:
			insights = append(insights, fmt.Sprintf("Spending is down %d%% versus the previous %s, keep it going", pct, periodNoun))
		default:
			insights = append(insights, fmt.Sprintf("Spending is roughly level with the previous %s", periodNoun))
		}
	}

	limit := 3
	if len(breakdown) < limit {
		limit = len(breakdown)
	}
	for _, cat := range breakdown[:limit] {
		if cat.ChangeFromPrevious == nil {
			continue
		}
		change := *cat.ChangeFromPrevious
		if abs(change) <= th.CategoryChange {
			continue
		}
		dir := "up"
		if change < 0 {
			dir = "down"
		}
		insights = append(insights, fmt.Sprintf("%s %s %d%% versus the previous %s", cat.Name, dir, int(abs(change)*100), periodNoun))
	}

	return insights
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
