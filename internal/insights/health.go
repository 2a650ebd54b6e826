package insights

import (
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
)

// HealthScore rates a summary and its patterns from 0 to 100, starting from
// a neutral 50.
func HealthScore(s cashflow.Summary, p Patterns) int {
	score := 50

	if s.NetFlow.IsPositive() {
		score += 10
	}

	rate := s.AvgSavingsRate
	switch {
	case rate.GreaterThan(decimal.NewFromInt(30)):
		score += 15
	case rate.GreaterThan(decimal.NewFromInt(20)):
		score += 10
	case rate.GreaterThan(decimal.NewFromInt(10)):
		score += 5
	case rate.IsNegative():
		score -= 15
	}

	if len(p.TopIncomeSources) > 2 {
		score += 5
	}
	if len(p.CategoryExpenses) > 8 {
		score -= 5
	}
	if len(p.LargeTransactions) > 2 {
		score -= 5
	}
	if p.SmallExpenseCount > 20 {
		score -= 5
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
