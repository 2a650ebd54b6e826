package cashflow

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

// Filter selects ledger rows for display. Zero-valued fields match
// everything.
type Filter struct {
	From       civil.Date
	To         civil.Date
	Categories []string
	Types      []domain.TxType
	Search     string
}

// Apply returns the matching rows as a new ledger. The input is not
// modified.
func (f Filter) Apply(ledger domain.Ledger) domain.Ledger {
	cats := make(map[string]bool, len(f.Categories))
	for _, c := range f.Categories {
		cats[strings.ToLower(c)] = true
	}
	types := make(map[domain.TxType]bool, len(f.Types))
	for _, t := range f.Types {
		types[t] = true
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make(domain.Ledger, 0, len(ledger))
	for _, tx := range ledger {
		if f.From.IsValid() && (!tx.HasDate() || tx.Date.Before(f.From)) {
			continue
		}
		if f.To.IsValid() && (!tx.HasDate() || tx.Date.After(f.To)) {
			continue
		}
		if len(cats) > 0 && !cats[strings.ToLower(tx.Category)] {
			continue
		}
		if len(types) > 0 && !types[tx.Type] {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(tx.Description), search) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Totals summarizes a filtered view.
type Totals struct {
	Credits decimal.Decimal `json:"credits"`
	Debits  decimal.Decimal `json:"debits"`
	Net     decimal.Decimal `json:"net"`
	Count   int             `json:"count"`
}

// FilterTotals sums credits and debits of the given rows. Debits are
// reported as a positive magnitude.
func FilterTotals(ledger domain.Ledger) Totals {
	t := Totals{Count: len(ledger)}
	for _, tx := range ledger {
		switch {
		case tx.IsIncome():
			t.Credits = t.Credits.Add(tx.Amount.Decimal)
		case tx.IsExpense():
			t.Debits = t.Debits.Add(tx.Amount.Decimal.Abs())
		}
	}
	t.Net = t.Credits.Sub(t.Debits)
	return t
}
