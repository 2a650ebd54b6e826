// Package insights turns an analyzed ledger into a financial health score
// and a short written summary with savings tips.
package insights

import (
	"math"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

const (
	topIncomeSources    = 3
	maxRecurring        = 5
	maxLargeTxns        = 3
	largeTxnStdDevs     = 2
	smallExpenseCeiling = 500
)

// SourceAmount is income summed by description.
type SourceAmount struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// LargeTransaction is an expense well outside the usual range.
type LargeTransaction struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Patterns are the spending and income signals fed to the health score and
// the insight prompt.
type Patterns struct {
	TopIncomeSources  []SourceAmount            `json:"top_income_sources"`
	CategoryExpenses  []cashflow.CategoryAmount `json:"category_expenses"`
	RecurringExpenses []string                  `json:"recurring_expenses"`
	LargeTransactions []LargeTransaction        `json:"large_transactions"`
	SmallExpenseCount int                       `json:"small_expense_count"`
}

// DetectPatterns computes Patterns from a ledger and its bundle.
func DetectPatterns(ledger domain.Ledger, bundle *cashflow.Bundle) Patterns {
	var expenses domain.Ledger
	for _, tx := range ledger {
		if tx.IsExpense() {
			expenses = append(expenses, tx)
		}
	}

	p := Patterns{
		TopIncomeSources:  incomeSources(ledger),
		RecurringExpenses: recurringExpenses(expenses),
		LargeTransactions: largeTransactions(expenses),
	}
	if bundle != nil {
		p.CategoryExpenses = bundle.CategorySpending
	}

	small := decimal.NewFromInt(-smallExpenseCeiling)
	for _, tx := range expenses {
		if tx.Amount.Decimal.GreaterThan(small) {
			p.SmallExpenseCount++
		}
	}
	return p
}

func incomeSources(ledger domain.Ledger) []SourceAmount {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range ledger {
		if tx.IsIncome() {
			totals[tx.Description] = totals[tx.Description].Add(tx.Amount.Decimal)
		}
	}

	out := make([]SourceAmount, 0, len(totals))
	for desc, amt := range totals {
		out = append(out, SourceAmount{Description: desc, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Description < out[j].Description
	})
	if len(out) > topIncomeSources {
		out = out[:topIncomeSources]
	}
	return out
}

func recurringExpenses(expenses domain.Ledger) []string {
	counts := make(map[string]int)
	for _, tx := range expenses {
		counts[tx.Description]++
	}

	var out []string
	for desc, n := range counts {
		if n > 1 {
			out = append(out, desc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > maxRecurring {
		out = out[:maxRecurring]
	}
	return out
}

// largeTransactions returns expenses more than two sample standard
// deviations below the mean expense, in ledger order.
func largeTransactions(expenses domain.Ledger) []LargeTransaction {
	if len(expenses) < 2 {
		return nil
	}

	var sum float64
	for _, tx := range expenses {
		sum += tx.Amount.Decimal.InexactFloat64()
	}
	mean := sum / float64(len(expenses))

	var sq float64
	for _, tx := range expenses {
		d := tx.Amount.Decimal.InexactFloat64() - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(expenses)-1))
	threshold := mean - largeTxnStdDevs*std

	var out []LargeTransaction
	for _, tx := range expenses {
		if tx.Amount.Decimal.InexactFloat64() < threshold {
			out = append(out, LargeTransaction{Date: tx.Date, Description: tx.Description, Amount: tx.Amount.Decimal})
			if len(out) == maxLargeTxns {
				break
			}
		}
	}
	return out
}
