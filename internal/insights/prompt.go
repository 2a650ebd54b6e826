package insights

import (
	"fmt"
	"strings"

	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
)

const systemPrompt = "You are a friendly financial advisor who analyzes bank statements and provides personalized insights."

func buildInsightPrompt(s cashflow.Summary, p Patterns, score int) string {
	topCategory := "None"
	if s.TopExpenseCategory != nil {
		topCategory = *s.TopExpenseCategory
	}

	var b strings.Builder
	b.WriteString("Based on the following financial data, provide a personalized financial summary and savings tips:\n\n")

	b.WriteString("Financial Summary:\n")
	fmt.Fprintf(&b, "- Date Range: %s\n", s.DateRange)
	fmt.Fprintf(&b, "- Total Income: %s\n", FormatMoney(s.TotalIncome))
	fmt.Fprintf(&b, "- Total Expenses: %s\n", FormatMoney(s.TotalExpenses))
	fmt.Fprintf(&b, "- Net Cash Flow: %s\n", FormatMoney(s.NetFlow))
	fmt.Fprintf(&b, "- Savings Rate: %s%%\n", s.AvgSavingsRate.StringFixed(1))
	fmt.Fprintf(&b, "- Top Expense Category: %s (%s)\n", topCategory, FormatMoney(s.TopExpenseAmount))
	fmt.Fprintf(&b, "- Financial Health Score: %d/100\n\n", score)

	b.WriteString("Income Sources:\n")
	for _, src := range p.TopIncomeSources {
		fmt.Fprintf(&b, "- %s: %s\n", src.Description, FormatMoney(src.Amount))
	}

	b.WriteString("\nExpense Categories:\n")
	for _, c := range p.CategoryExpenses {
		fmt.Fprintf(&b, "- %s: %s\n", c.Category, FormatMoney(c.Amount))
	}

	b.WriteString("\nRecurring Expenses:\n")
	if len(p.RecurringExpenses) == 0 {
		b.WriteString("None identified\n")
	} else {
		b.WriteString(strings.Join(p.RecurringExpenses, ", ") + "\n")
	}

	b.WriteString("\nLarge Transactions:\n")
	if len(p.LargeTransactions) == 0 {
		b.WriteString("None identified\n")
	}
	for _, tx := range p.LargeTransactions {
		fmt.Fprintf(&b, "- %s | %s | %s\n", tx.Date, tx.Description, FormatMoney(tx.Amount))
	}

	fmt.Fprintf(&b, "\nSmall Expenses Count: %d\n\n", p.SmallExpenseCount)

	b.WriteString(`Based on this data:
1. Provide a friendly, concise 3-4 sentence summary of the person's financial situation in second person ("you").
2. Identify 3-5 specific personalized saving opportunities based on the spending patterns.
3. Provide one piece of custom financial advice specifically tailored to their unique situation.

Format your response as JSON with keys: "summary", "tips" (as a list), and "custom_advice".
Use conversational, encouraging language. The advice should be realistic and helpful.`)

	return b.String()
}
