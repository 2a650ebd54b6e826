package handlers

import (
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

// TransactionView is the JSON shape of a ledger row. Missing dates and
// amounts are null.
type TransactionView struct {
	Date        *string             `json:"date"`
	Description string              `json:"description"`
	Amount      decimal.NullDecimal `json:"amount"`
	Type        domain.TxType       `json:"type"`
	Category    string              `json:"category"`
	YearMonth   *string             `json:"year_month"`
}

func toTransactionViews(ledger domain.Ledger) []TransactionView {
	out := make([]TransactionView, 0, len(ledger))
	for _, tx := range ledger {
		v := TransactionView{
			Description: tx.Description,
			Amount:      tx.Amount,
			Type:        tx.Type,
			Category:    tx.Category,
		}
		if tx.HasDate() {
			d, ym := tx.Date.String(), tx.YearMonth
			v.Date, v.YearMonth = &d, &ym
		}
		out = append(out, v)
	}
	return out
}

// parseFilter reads a cashflow.Filter from query parameters:
// from, to (YYYY-MM-DD), category and type (repeatable or comma-separated)
// and search.
func parseFilter(q url.Values) (cashflow.Filter, error) {
	var f cashflow.Filter

	if s := q.Get("from"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			return f, fmt.Errorf("invalid from date %q", s)
		}
		f.From = d
	}
	if s := q.Get("to"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			return f, fmt.Errorf("invalid to date %q", s)
		}
		f.To = d
	}
	if f.From.IsValid() && f.To.IsValid() && f.To.Before(f.From) {
		return f, fmt.Errorf("to date is before from date")
	}

	f.Categories = splitValues(q["category"])

	for _, t := range splitValues(q["type"]) {
		tt := domain.TxType(strings.ToLower(t))
		if tt != domain.TxCredit && tt != domain.TxDebit {
			return f, fmt.Errorf("invalid type %q", t)
		}
		f.Types = append(f.Types, tt)
	}

	f.Search = q.Get("search")
	return f, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
