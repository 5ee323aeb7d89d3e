package services

import (
	"fmt"

	"flashcount/internal/core"
)

// Budget alert tiers.
const (
	AlertHealthy AlertLevel = "healthy"
	AlertWarning AlertLevel = "warning"
	AlertDanger  AlertLevel = "danger"
)

// warningProjectedShare is the projected-spend share of the limit above
// which the month is flagged as warning.
const warningProjectedShare = 0.8

// AlertLevel classifies a month's budget status.
type AlertLevel string

// BudgetAnalysis is the derived picture of a month in progress. It is
// recomputed on demand and never stored.
type BudgetAnalysis struct {
	Limit            core.Money
	Spent            core.Money
	DaysElapsed      int
	DaysRemaining    int
	TotalDaysInMonth int
	DailyAverage     core.Money
	ProjectedTotal   core.Money
	RemainingBudget  core.Money // may be negative
	DailyAllowance   core.Money
	UsagePercent     float64 // 0 when limit is 0
	ProjectedPercent float64 // 0 when limit is 0
	Alert            AlertLevel
}

// AnalyzeBudget projects month-end spending from the day-elapsed average
// and classifies the month. Pure and deterministic for a given reference
// date; all divisions are zero-guarded.
func AnalyzeBudget(limit, spent core.Money, referenceDate core.Date) BudgetAnalysis {
	daysElapsed := referenceDate.Day()
	if daysElapsed < 1 {
		daysElapsed = 1
	}
	totalDays := referenceDate.DaysInMonth()
	daysRemaining := totalDays - daysElapsed
	if daysRemaining < 0 {
		daysRemaining = 0
	}

	dailyAverage := spent.DivInt(daysElapsed)
	projectedTotal := dailyAverage.MulInt(totalDays)
	remaining := limit.Sub(spent)

	dailyAllowance := core.Money{}
	if daysRemaining > 0 {
		dailyAllowance = remaining.DivInt(daysRemaining)
		if dailyAllowance.IsNegative() {
			dailyAllowance = core.Money{}
		}
	}

	var usagePercent, projectedPercent float64
	if limit.Cents > 0 {
		usagePercent = spent.Float() / limit.Float()
		projectedPercent = projectedTotal.Float() / limit.Float()
	}

	// Over-budget-already always wins over an undershooting projection.
	alert := AlertHealthy
	switch {
	case projectedPercent > 1.0 || usagePercent > 1.0:
		alert = AlertDanger
	case projectedPercent > warningProjectedShare:
		alert = AlertWarning
	}

	return BudgetAnalysis{
		Limit:            limit,
		Spent:            spent,
		DaysElapsed:      daysElapsed,
		DaysRemaining:    daysRemaining,
		TotalDaysInMonth: totalDays,
		DailyAverage:     dailyAverage,
		ProjectedTotal:   projectedTotal,
		RemainingBudget:  remaining,
		DailyAllowance:   dailyAllowance,
		UsagePercent:     usagePercent,
		ProjectedPercent: projectedPercent,
		Alert:            alert,
	}
}

// AlertMessage renders a short status line for the analysis.
func (a BudgetAnalysis) AlertMessage() string {
	switch a.Alert {
	case AlertWarning:
		return fmt.Sprintf("Watch your spending: %s left, %s per day to stay on budget",
			core.FormatCents(a.RemainingBudget.Cents), core.FormatCents(a.DailyAllowance.Cents))
	case AlertDanger:
		if a.ProjectedTotal.Cents > a.Limit.Cents {
			over := a.ProjectedTotal.Sub(a.Limit)
			return fmt.Sprintf("At this pace you will end the month %s over budget", core.FormatCents(over.Cents))
		}
		return "Budget exhausted, rein in spending"
	default:
		return "Budget on track, keep it up"
	}
}
