// Package cashflow derives monthly, category and summary views from a clean
// ledger. Every view is a pure function of the ledger.
package cashflow

import (
	"encoding/json"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// MonthlyFlow is the net movement of one year_month bucket.
type MonthlyFlow struct {
	YearMonth        string          `json:"year_month"`
	NetFlow          decimal.Decimal `json:"net_flow"`
	TransactionCount int             `json:"transaction_count"`
}

// MonthlyIncomeExpense splits one month into inflows and outflows.
// Expenses are positive magnitudes.
type MonthlyIncomeExpense struct {
	YearMonth   string          `json:"year_month"`
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
	Savings     decimal.Decimal `json:"savings"`
	SavingsRate decimal.Decimal `json:"savings_rate"`
}

// CategoryAmount is total absolute spending for a category.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthlyCategoryAmount is absolute spending for a category in one month.
type MonthlyCategoryAmount struct {
	YearMonth string          `json:"year_month"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
}

// BalancePoint is the cumulative balance after one transaction.
type BalancePoint struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Balance     decimal.Decimal `json:"running_balance"`
}

// MarshalJSON writes a missing date as null rather than "0000-00-00".
func (p BalancePoint) MarshalJSON() ([]byte, error) {
	var date *string
	if p.Date.IsValid() {
		d := p.Date.String()
		date = &d
	}
	return json.Marshal(struct {
		Date        *string         `json:"date"`
		Description string          `json:"description"`
		Balance     decimal.Decimal `json:"running_balance"`
	}{date, p.Description, p.Balance})
}

// Summary is the scalar rollup of a ledger.
type Summary struct {
	TotalIncome        decimal.Decimal `json:"total_income"`
	TotalExpenses      decimal.Decimal `json:"total_expenses"`
	NetFlow            decimal.Decimal `json:"net_flow"`
	AvgMonthlyIncome   decimal.Decimal `json:"avg_monthly_income"`
	AvgMonthlyExpenses decimal.Decimal `json:"avg_monthly_expenses"`
	AvgSavingsRate     decimal.Decimal `json:"avg_savings_rate"`
	TopExpenseCategory *string         `json:"top_expense_category"`
	TopExpenseAmount   decimal.Decimal `json:"top_expense_amount"`
	TransactionCount   int             `json:"transaction_count"`
	DateRange          string          `json:"date_range"`
}

// Bundle holds every derived view of one ledger.
type Bundle struct {
	MonthlyCashFlow         []MonthlyFlow           `json:"monthly_cash_flow"`
	MonthlyIncomeVsExpenses []MonthlyIncomeExpense  `json:"monthly_income_vs_expenses"`
	CategorySpending        []CategoryAmount        `json:"category_spending"`
	MonthlyCategorySpending []MonthlyCategoryAmount `json:"monthly_category_spending"`
	RunningBalance          []BalancePoint          `json:"running_balance"`
	Summary                 Summary                 `json:"summary"`
}

// Aggregate computes the bundle for a clean ledger. It never fails and is
// safe to call repeatedly.
//
// Rows without a usable amount are counted but excluded from every sum.
// Rows with an amount but no date take part in totals and the running
// balance, and are left out of month-keyed views.
func Aggregate(ledger domain.Ledger) *Bundle {
	b := &Bundle{
		MonthlyCashFlow:         monthlyCashFlow(ledger),
		MonthlyIncomeVsExpenses: monthlyIncomeVsExpenses(ledger),
		CategorySpending:        categorySpending(ledger),
		MonthlyCategorySpending: monthlyCategorySpending(ledger),
		RunningBalance:          runningBalance(ledger),
	}
	b.Summary = summarize(ledger, b)
	return b
}

func monthlyCashFlow(ledger domain.Ledger) []MonthlyFlow {
	byMonth := make(map[string]*MonthlyFlow)
	for _, tx := range ledger {
		if !tx.IsValid() {
			continue
		}
		mf, ok := byMonth[tx.YearMonth]
		if !ok {
			mf = &MonthlyFlow{YearMonth: tx.YearMonth}
			byMonth[tx.YearMonth] = mf
		}
		mf.NetFlow = mf.NetFlow.Add(tx.Amount.Decimal)
		mf.TransactionCount++
	}

	out := make([]MonthlyFlow, 0, len(byMonth))
	for _, mf := range byMonth {
		out = append(out, *mf)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].YearMonth < out[j].YearMonth
	})
	return out
}

func monthlyIncomeVsExpenses(ledger domain.Ledger) []MonthlyIncomeExpense {
	first, last, ok := dateBounds(ledger)
	if !ok {
		return []MonthlyIncomeExpense{}
	}

	income := make(map[string]decimal.Decimal)
	expenses := make(map[string]decimal.Decimal)
	for _, tx := range ledger {
		if !tx.IsValid() {
			continue
		}
		switch {
		case tx.IsIncome():
			income[tx.YearMonth] = income[tx.YearMonth].Add(tx.Amount.Decimal)
		case tx.IsExpense():
			expenses[tx.YearMonth] = expenses[tx.YearMonth].Add(tx.Amount.Decimal.Abs())
		}
	}

	// Fill in every month in the range so quiet months report zeros.
	var out []MonthlyIncomeExpense
	for _, ym := range monthRange(first, last) {
		in := income[ym]
		ex := expenses[ym]
		savings := in.Sub(ex)
		out = append(out, MonthlyIncomeExpense{
			YearMonth:   ym,
			Income:      in,
			Expenses:    ex,
			Savings:     savings,
			SavingsRate: SavingsRate(savings, in),
		})
	}
	return out
}

// SavingsRate is 100*savings/income rounded to two places, or 0 when
// income is zero.
func SavingsRate(savings, income decimal.Decimal) decimal.Decimal {
	if income.IsZero() {
		return decimal.Zero
	}
	return savings.Mul(hundred).Div(income).Round(2)
}

func categorySpending(ledger domain.Ledger) []CategoryAmount {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range ledger {
		if tx.IsExpense() {
			totals[tx.Category] = totals[tx.Category].Add(tx.Amount.Decimal.Abs())
		}
	}

	out := make([]CategoryAmount, 0, len(totals))
	for cat, amt := range totals {
		out = append(out, CategoryAmount{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func monthlyCategorySpending(ledger domain.Ledger) []MonthlyCategoryAmount {
	type key struct{ ym, cat string }
	totals := make(map[key]decimal.Decimal)
	for _, tx := range ledger {
		if !tx.HasDate() || !tx.IsExpense() {
			continue
		}
		k := key{tx.YearMonth, tx.Category}
		totals[k] = totals[k].Add(tx.Amount.Decimal.Abs())
	}

	out := make([]MonthlyCategoryAmount, 0, len(totals))
	for k, amt := range totals {
		out = append(out, MonthlyCategoryAmount{YearMonth: k.ym, Category: k.cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].YearMonth != out[j].YearMonth {
			return out[i].YearMonth < out[j].YearMonth
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// runningBalance walks the ledger in order; the ledger is already sorted by
// date with ties in extraction order.
func runningBalance(ledger domain.Ledger) []BalancePoint {
	out := make([]BalancePoint, 0, len(ledger))
	balance := decimal.Zero
	for _, tx := range ledger {
		if !tx.HasAmount() {
			continue
		}
		balance = balance.Add(tx.Amount.Decimal)
		out = append(out, BalancePoint{
			Date:        tx.Date,
			Description: tx.Description,
			Balance:     balance,
		})
	}
	return out
}

func summarize(ledger domain.Ledger, b *Bundle) Summary {
	s := Summary{TransactionCount: len(ledger)}

	for _, tx := range ledger {
		switch {
		case tx.IsIncome():
			s.TotalIncome = s.TotalIncome.Add(tx.Amount.Decimal)
		case tx.IsExpense():
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount.Decimal.Abs())
		}
	}
	s.NetFlow = s.TotalIncome.Sub(s.TotalExpenses)

	if n := len(b.MonthlyIncomeVsExpenses); n > 0 {
		var in, ex, rate decimal.Decimal
		for _, m := range b.MonthlyIncomeVsExpenses {
			in = in.Add(m.Income)
			ex = ex.Add(m.Expenses)
			rate = rate.Add(m.SavingsRate)
		}
		months := decimal.NewFromInt(int64(n))
		s.AvgMonthlyIncome = in.Div(months)
		s.AvgMonthlyExpenses = ex.Div(months)
		s.AvgSavingsRate = rate.Div(months)
	}

	if len(b.CategorySpending) > 0 {
		top := b.CategorySpending[0]
		s.TopExpenseCategory = &top.Category
		s.TopExpenseAmount = top.Amount
	}

	if first, last, ok := dateBounds(ledger); ok {
		s.DateRange = first.String() + " to " + last.String()
	}

	return s
}

// dateBounds returns the earliest and latest valid dates in the ledger.
func dateBounds(ledger domain.Ledger) (first, last civil.Date, ok bool) {
	for _, tx := range ledger {
		if !tx.HasDate() {
			continue
		}
		if !ok || tx.Date.Before(first) {
			first = tx.Date
		}
		if !ok || tx.Date.After(last) {
			last = tx.Date
		}
		ok = true
	}
	return first, last, ok
}

// monthRange lists year_month keys from first to last inclusive.
func monthRange(first, last civil.Date) []string {
	var out []string
	y, m := first.Year, first.Month
	for y < last.Year || (y == last.Year && m <= last.Month) {
		out = append(out, domain.YearMonthOf(civil.Date{Year: y, Month: m, Day: 1}))
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return out
}
