package http

import (
	"flashcount/internal/core"
	"flashcount/internal/services"
)

type categorySpendingResponse struct {
	Name               string   `json:"name"`
	Icon               string   `json:"icon,omitempty"`
	Color              string   `json:"color,omitempty"`
	AmountCents        int64    `json:"amountCents"`
	Percentage         float64  `json:"percentage"`
	ChangeFromPrevious *float64 `json:"changeFromPrevious,omitempty"`
}

type dailyPointResponse struct {
	Date         string `json:"date"`
	Label        string `json:"label"`
	ExpenseCents int64  `json:"expenseCents"`
}

type reportResponse struct {
	Period            string                     `json:"period"`
	TotalExpenseCents int64                      `json:"totalExpenseCents"`
	TotalIncomeCents  int64                      `json:"totalIncomeCents"`
	NetChangeCents    int64                      `json:"netChangeCents"`
	ExpenseChange     *float64                   `json:"expenseChange,omitempty"`
	IncomeChange      *float64                   `json:"incomeChange,omitempty"`
	CategoryBreakdown []categorySpendingResponse `json:"categoryBreakdown"`
	DailyExpenses     []dailyPointResponse       `json:"dailyExpenses"`
	StreakDays        int                        `json:"streakDays"`
	Insights          []string                   `json:"insights"`
}

func reportResponseFrom(data services.ReportData) reportResponse {
	out := reportResponse{
		Period:            string(data.Period),
		TotalExpenseCents: data.TotalExpense.Cents,
		TotalIncomeCents:  data.TotalIncome.Cents,
		NetChangeCents:    data.NetChange.Cents,
		ExpenseChange:     data.ExpenseChange,
		IncomeChange:      data.IncomeChange,
		CategoryBreakdown: make([]categorySpendingResponse, 0, len(data.CategoryBreakdown)),
		DailyExpenses:     make([]dailyPointResponse, 0, len(data.DailyExpenses)),
		StreakDays:        data.StreakDays,
		Insights:          data.Insights,
	}
	if out.Insights == nil {
		out.Insights = []string{}
	}
	for _, c := range data.CategoryBreakdown {
		out.CategoryBreakdown = append(out.CategoryBreakdown, categorySpendingResponse{
			Name:               c.Name,
			Icon:               c.Icon,
			Color:              c.Color,
			AmountCents:        c.Amount.Cents,
			Percentage:         c.Percentage,
			ChangeFromPrevious: c.ChangeFromPrevious,
		})
	}
	for _, p := range data.DailyExpenses {
		out.DailyExpenses = append(out.DailyExpenses, dailyPointResponse{
			Date:         p.Date.ISO(),
			Label:        p.Label,
			ExpenseCents: p.Expense.Cents,
		})
	}
	return out
}

type budgetResponse struct {
	Year                 int     `json:"year"`
	Month                int     `json:"month"`
	LimitCents           int64   `json:"limitCents"`
	SpentCents           int64   `json:"spentCents"`
	DaysElapsed          int     `json:"daysElapsed"`
	DaysRemaining        int     `json:"daysRemaining"`
	DailyAverageCents    int64   `json:"dailyAverageCents"`
	ProjectedTotalCents  int64   `json:"projectedTotalCents"`
	RemainingBudgetCents int64   `json:"remainingBudgetCents"`
	DailyAllowanceCents  int64   `json:"dailyAllowanceCents"`
	UsagePercent         float64 `json:"usagePercent"`
	ProjectedPercent     float64 `json:"projectedPercent"`
	Alert                string  `json:"alert"`
	AlertMessage         string  `json:"alertMessage"`
}

func budgetResponseFrom(year, month int, a services.BudgetAnalysis) budgetResponse {
	return budgetResponse{
		Year:                 year,
		Month:                month,
		LimitCents:           a.Limit.Cents,
		SpentCents:           a.Spent.Cents,
		DaysElapsed:          a.DaysElapsed,
		DaysRemaining:        a.DaysRemaining,
		DailyAverageCents:    a.DailyAverage.Cents,
		ProjectedTotalCents:  a.ProjectedTotal.Cents,
		RemainingBudgetCents: a.RemainingBudget.Cents,
		DailyAllowanceCents:  a.DailyAllowance.Cents,
		UsagePercent:         a.UsagePercent,
		ProjectedPercent:     a.ProjectedPercent,
		Alert:                string(a.Alert),
		AlertMessage:         a.AlertMessage(),
	}
}

type assetResponse struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Category           string  `json:"category"`
	PurchasePriceCents int64   `json:"purchasePriceCents"`
	PurchaseDate       string  `json:"purchaseDate"`
	SalvageValueCents  int64   `json:"salvageValueCents"`
	Note               string  `json:"note,omitempty"`
	Archived           bool    `json:"archived,omitempty"`
	SoldPriceCents     *int64  `json:"soldPriceCents,omitempty"`
	SoldDate           string  `json:"soldDate,omitempty"`
	DaysHeld           int     `json:"daysHeld"`
	DailyCostCents     int64   `json:"dailyCostCents"`
	CurrentValueCents  int64   `json:"currentValueCents"`
	DaysToTarget       *int    `json:"daysToTarget,omitempty"`
	ProgressToTarget   float64 `json:"progressToTarget"`
	ActualProfitCents  *int64  `json:"actualProfitCents,omitempty"`
}

func assetResponseFrom(a core.PhysicalAsset, v services.AssetValuation) assetResponse {
	out := assetResponse{
		ID:                 a.ID,
		Name:               a.Name,
		Category:           string(a.Category),
		PurchasePriceCents: a.PurchasePrice.Cents,
		PurchaseDate:       a.PurchaseDate.ISO(),
		SalvageValueCents:  a.SalvageValue.Cents,
		Note:               a.Note,
		Archived:           a.Archived,
		DaysHeld:           v.DaysHeld,
		DailyCostCents:     v.DailyCost.Cents,
		CurrentValueCents:  v.CurrentValue.Cents,
		DaysToTarget:       v.DaysToTarget,
		ProgressToTarget:   v.ProgressToTarget,
	}
	if a.SoldPrice != nil {
		cents := a.SoldPrice.Cents
		out.SoldPriceCents = &cents
	}
	if a.SoldDate != nil {
		out.SoldDate = a.SoldDate.ISO()
	}
	if v.ActualProfit != nil {
		cents := v.ActualProfit.Cents
		out.ActualProfitCents = &cents
	}
	return out
}
