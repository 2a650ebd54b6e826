package pipeline

import (
	"strings"

	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/llm"
)

// categoryHints describe each taxonomy entry for the model.
var categoryHints = map[string]string{
	"Income":         "salary, deposits, transfers in",
	"Housing":        "rent, mortgage, property taxes",
	"Utilities":      "electricity, water, gas, internet, phone",
	"Food":           "groceries, restaurants, food delivery",
	"Transportation": "fuel, public transit, ride sharing, vehicle expenses",
	"Entertainment":  "streaming services, movies, events",
	"Shopping":       "retail, online shopping, electronics",
	"Health":         "medical bills, pharmacy",
	"Education":      "tuition, books, courses",
	"Personal":       "haircuts, gym, clothing",
	"Travel":         "hotels, flights, vacation expenses",
	"Insurance":      "health, auto, home, life",
	"Investments":    "stocks, bonds, retirement contributions",
	"Transfers":      "money moved between own accounts",
	"Fees":           "bank fees, service charges, penalties",
	"Other":          "anything that does not fit elsewhere",
}

// buildCategoriesPrompt lists the closed taxonomy the model must classify into.
func buildCategoriesPrompt(categories []string) string {
	var b strings.Builder
	b.WriteString("Category: classify into EXACTLY one of these categories:\n")
	for _, c := range categories {
		b.WriteString("   - " + c)
		if hint, ok := categoryHints[c]; ok {
			b.WriteString(" (" + hint + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// buildExtractionMessages assembles the system and user turns for one
// extraction request.
func buildExtractionMessages(text string) []llm.Message {
	system := "You are a financial data extraction expert. Extract transaction data from the bank statement " +
		"text with complete accuracy. Focus only on actual financial transactions.\n\n" +
		"Extract ONLY the following fields for each transaction:\n" +
		"1. date: formatted as YYYY-MM-DD\n" +
		"2. description: the merchant or transaction description\n" +
		"3. amount: a number, positive for credits and negative for debits\n" +
		"4. type: either \"credit\" (money in) or \"debit\" (money out)\n" +
		"5. " + buildCategoriesPrompt(domain.Categories) + "\n" +
		"Return a JSON object of the form {\"transactions\": [...]} with no explanations or extra text.\n" +
		"If you cannot determine a field with high confidence, use null.\n" +
		"Do NOT include balance information, account summaries, or non-transaction data.\n" +
		"Do NOT invent transactions; only extract what is clearly present in the statement.\n" +
		"Amounts must be plain numbers, not strings with currency symbols.\n"

	user := "Here is the bank statement text content. Extract all transactions in the required format:\n\n" + text

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}
