package pipeline

import (
	"sort"
	"strings"

	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

var canonicalCategories = func() map[string]string {
	m := make(map[string]string, len(domain.Categories))
	for _, c := range domain.Categories {
		m[strings.ToLower(c)] = c
	}
	return m
}()

// NormalizeLedger turns raw extracted rows into a clean ledger.
//
// Type decides the sign: debits become -|amount| and credits |amount|. A row
// without a type takes its type from the sign of a valid amount. Categories
// are matched case-insensitively against the taxonomy; anything else becomes
// "Other". Rows with an unusable date or amount are kept with null markers.
// The result is sorted by date with undated rows last, and ties keep
// extraction order.
func NormalizeLedger(raw []domain.RawTransaction) (domain.Ledger, error) {
	if len(raw) == 0 {
		return nil, &domain.EmptyLedgerError{}
	}

	ledger := make(domain.Ledger, 0, len(raw))
	for _, r := range raw {
		ledger = append(ledger, normalizeTransaction(r))
	}

	sort.SliceStable(ledger, func(i, j int) bool {
		a, b := ledger[i].Date, ledger[j].Date
		switch {
		case !a.IsValid():
			return false
		case !b.IsValid():
			return true
		default:
			return a.Before(b)
		}
	})

	return ledger, nil
}

func normalizeTransaction(r domain.RawTransaction) domain.Transaction {
	tx := domain.Transaction{
		Date:        r.Date,
		Description: r.Description,
		Amount:      r.Amount,
		Type:        r.Type,
		Category:    canonicalCategory(r.Category),
	}

	if tx.Amount.Valid {
		abs := tx.Amount.Decimal.Abs()
		switch tx.Type {
		case domain.TxDebit:
			tx.Amount.Decimal = abs.Neg()
		case domain.TxCredit:
			tx.Amount.Decimal = abs
		default:
			if tx.Amount.Decimal.IsNegative() {
				tx.Type = domain.TxDebit
			} else {
				tx.Type = domain.TxCredit
			}
		}
	}

	if tx.Date.IsValid() {
		tx.Year = tx.Date.Year
		tx.Month = int(tx.Date.Month)
		tx.YearMonth = domain.YearMonthOf(tx.Date)
	}

	return tx
}

func canonicalCategory(c string) string {
	if c, ok := canonicalCategories[strings.ToLower(strings.TrimSpace(c))]; ok {
		return c
	}
	return domain.DefaultCategory
}
