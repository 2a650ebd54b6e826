package cashflow

import (
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

// Chart limits used by the dashboard feeds.
const (
	DefaultBreakdownSlices = 10
	DefaultTrendCategories = 5
)

// Charts is the data behind each dashboard chart.
type Charts struct {
	IncomeVsExpenses  []MonthlyIncomeExpense  `json:"income_vs_expenses"`
	SpendingBreakdown []CategoryAmount        `json:"spending_breakdown"`
	RunningBalance    []BalancePoint          `json:"running_balance"`
	CategoryTrends    []MonthlyCategoryAmount `json:"category_trends"`
	SavingsRate       []SavingsRatePoint      `json:"savings_rate"`
	// SavingsTarget is the reference line drawn on the savings-rate chart.
	SavingsTarget decimal.Decimal `json:"savings_target"`
}

// SavingsRatePoint is one month of the savings-rate series.
type SavingsRatePoint struct {
	YearMonth   string          `json:"year_month"`
	SavingsRate decimal.Decimal `json:"savings_rate"`
}

// BuildCharts derives every chart feed from a bundle.
func BuildCharts(b *Bundle) Charts {
	rates := make([]SavingsRatePoint, 0, len(b.MonthlyIncomeVsExpenses))
	for _, m := range b.MonthlyIncomeVsExpenses {
		rates = append(rates, SavingsRatePoint{YearMonth: m.YearMonth, SavingsRate: m.SavingsRate})
	}

	return Charts{
		IncomeVsExpenses:  b.MonthlyIncomeVsExpenses,
		SpendingBreakdown: SpendingBreakdown(b, DefaultBreakdownSlices),
		RunningBalance:    b.RunningBalance,
		CategoryTrends:    CategoryTrends(b, DefaultTrendCategories),
		SavingsRate:       rates,
		SavingsTarget:     decimal.NewFromInt(20),
	}
}

// SpendingBreakdown returns category spending for a pie chart. When there
// are more than limit categories, the first limit-1 are kept and the rest
// are summed into a single "Other" slice.
func SpendingBreakdown(b *Bundle, limit int) []CategoryAmount {
	if limit < 1 || len(b.CategorySpending) <= limit {
		out := make([]CategoryAmount, len(b.CategorySpending))
		copy(out, b.CategorySpending)
		return out
	}

	out := make([]CategoryAmount, 0, limit)
	out = append(out, b.CategorySpending[:limit-1]...)

	rest := decimal.Zero
	for _, c := range b.CategorySpending[limit-1:] {
		rest = rest.Add(c.Amount)
	}
	return append(out, CategoryAmount{Category: domain.DefaultCategory, Amount: rest})
}

// CategoryTrends returns monthly spending rows for the topN categories by
// total spend.
func CategoryTrends(b *Bundle, topN int) []MonthlyCategoryAmount {
	top := make(map[string]bool, topN)
	for i, c := range b.CategorySpending {
		if i >= topN {
			break
		}
		top[c.Category] = true
	}

	out := make([]MonthlyCategoryAmount, 0)
	for _, m := range b.MonthlyCategorySpending {
		if top[m.Category] {
			out = append(out, m)
		}
	}
	return out
}
