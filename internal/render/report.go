package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/history"
	"github.com/varunidealabs/cash-flow-analyzer/internal/insights"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
)

const barWidth = 24

var money = insights.FormatMoney

func signed(d decimal.Decimal) string {
	s := money(d)
	switch {
	case d.IsPositive():
		return goodStyle.Render(s)
	case d.IsNegative():
		return badStyle.Render(s)
	}
	return s
}

// Summary renders the headline figures of a bundle.
func Summary(s cashflow.Summary) string {
	top := "-"
	if s.TopExpenseCategory != nil {
		top = fmt.Sprintf("%s (%s)", *s.TopExpenseCategory, money(s.TopExpenseAmount))
	}
	dateRange := s.DateRange
	if dateRange == "" {
		dateRange = "-"
	}

	return RenderTable(Table{
		Title: "Summary",
		Rows: [][]string{
			{"Total income", money(s.TotalIncome)},
			{"Total expenses", money(s.TotalExpenses)},
			{"Net cash flow", signed(s.NetFlow)},
			{"Avg monthly income", money(s.AvgMonthlyIncome)},
			{"Avg monthly expenses", money(s.AvgMonthlyExpenses)},
			{"Avg savings rate", s.AvgSavingsRate.StringFixed(1) + "%"},
			{"Top expense category", top},
			{"Transactions", strconv.Itoa(s.TransactionCount)},
			{"Date range", dateRange},
		},
		Right: map[int]bool{1: true},
	})
}

// Monthly renders income, expenses and savings for each month.
func Monthly(b *cashflow.Bundle) string {
	counts := make(map[string]int, len(b.MonthlyCashFlow))
	for _, m := range b.MonthlyCashFlow {
		counts[m.YearMonth] = m.TransactionCount
	}

	rows := make([][]string, 0, len(b.MonthlyIncomeVsExpenses))
	for _, m := range b.MonthlyIncomeVsExpenses {
		rows = append(rows, []string{
			m.YearMonth,
			money(m.Income),
			money(m.Expenses),
			signed(m.Savings),
			m.SavingsRate.StringFixed(1) + "%",
			strconv.Itoa(counts[m.YearMonth]),
		})
	}

	return RenderTable(Table{
		Title:   "Monthly cash flow",
		Headers: []string{"Month", "Income", "Expenses", "Savings", "Rate", "Txns"},
		Rows:    rows,
		Right:   map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true},
	})
}

// Categories renders the spending breakdown with proportional bars.
func Categories(b *cashflow.Bundle) string {
	slices := cashflow.SpendingBreakdown(b, cashflow.DefaultBreakdownSlices)
	if len(slices) == 0 {
		return Muted("  No expenses recorded.") + "\n"
	}

	max := slices[0].Amount.InexactFloat64()
	rows := make([][]string, 0, len(slices))
	for _, c := range slices {
		rows = append(rows, []string{c.Category, money(c.Amount), Bar(c.Amount.InexactFloat64(), max, barWidth)})
	}

	return RenderTable(Table{
		Title:   "Spending by category",
		Headers: []string{"Category", "Amount", ""},
		Rows:    rows,
		Right:   map[int]bool{1: true},
	})
}

// Transactions renders up to limit ledger rows; limit <= 0 renders all.
func Transactions(ledger domain.Ledger, limit int) string {
	shown := ledger
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	rows := make([][]string, 0, len(shown))
	for _, tx := range shown {
		date, amount := "-", "-"
		if tx.HasDate() {
			date = tx.Date.String()
		}
		if tx.HasAmount() {
			amount = signed(tx.Amount.Decimal)
		}
		rows = append(rows, []string{date, truncate(tx.Description, 40), amount, string(tx.Type), tx.Category})
	}

	out := RenderTable(Table{
		Title:   "Transactions",
		Headers: []string{"Date", "Description", "Amount", "Type", "Category"},
		Rows:    rows,
		Right:   map[int]bool{2: true},
	})
	if len(shown) < len(ledger) {
		out += Muted(fmt.Sprintf("  ... %d more rows\n", len(ledger)-len(shown)))
	}
	return out
}

// Runs renders the local run history.
func Runs(runs []history.Run) string {
	if len(runs) == 0 {
		return Muted("  No runs recorded yet.") + "\n"
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := r.Status
		switch status {
		case pipeline.RunStatusSuccess:
			status = goodStyle.Render(status)
		case pipeline.RunStatusFailed:
			status = badStyle.Render(status)
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.DocumentName, 30),
			status,
			strconv.Itoa(r.TransactionCount),
			truncate(r.ErrorMessage, 40),
		})
	}

	return RenderTable(Table{
		Title:   "Recent runs",
		Headers: []string{"Run ID", "Started", "Document", "Status", "Txns", "Error"},
		Rows:    rows,
		Right:   map[int]bool{4: true},
	})
}

// Insights renders the health score, summary and tips.
func Insights(in *insights.Insights) string {
	var b strings.Builder

	scoreStyle := goodStyle
	switch {
	case in.HealthScore < 40:
		scoreStyle = badStyle
	case in.HealthScore < 70:
		scoreStyle = warnStyle
	}
	fmt.Fprintf(&b, "  %s %s\n\n", headerStyle.Render("Financial health:"), scoreStyle.Render(fmt.Sprintf("%d/100", in.HealthScore)))
	fmt.Fprintf(&b, "  %s\n\n", valueStyle.Render(in.Summary))

	if len(in.Tips) > 0 {
		fmt.Fprintf(&b, "  %s\n", headerStyle.Render("Tips"))
		for i, tip := range in.Tips {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, tip)
		}
		b.WriteByte('\n')
	}
	if in.CustomAdvice != "" {
		fmt.Fprintf(&b, "  %s %s\n", headerStyle.Render("Advice:"), in.CustomAdvice)
	}
	if in.Fallback {
		fmt.Fprintf(&b, "  %s\n", Warn("Generated without the model; figures are exact, advice is generic."))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
