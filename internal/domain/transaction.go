package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TxType is the direction of a transaction as reported by the statement.
type TxType string

const (
	TxCredit TxType = "credit"
	TxDebit  TxType = "debit"
	// TxUnknown is used for raw rows where the extractor did not supply a type.
	TxUnknown TxType = ""
)

// DefaultCategory is assigned to rows without a usable category.
const DefaultCategory = "Other"

// Categories is the closed taxonomy the extraction prompt is constrained to.
var Categories = []string{
	"Income",
	"Housing",
	"Utilities",
	"Food",
	"Transportation",
	"Entertainment",
	"Shopping",
	"Health",
	"Education",
	"Personal",
	"Travel",
	"Insurance",
	"Investments",
	"Transfers",
	"Fees",
	"Other",
}

// RawTransaction is one row as returned by the extraction service, after
// field-name lowercasing and per-field coercion. Any field may be absent.
type RawTransaction struct {
	Date        civil.Date          // zero value when missing or unparsable
	Description string              // from "description"
	Amount      decimal.NullDecimal // Valid=false when missing or unparsable
	Type        TxType              // from "type", lowercased
	Category    string              // from "category", may be empty
}

// Transaction is one row of a clean ledger. Sign and category invariants
// hold for every Transaction produced by the ledger normalizer.
type Transaction struct {
	Date        civil.Date
	Description string
	Amount      decimal.NullDecimal
	Type        TxType
	Category    string

	// Derived from Date; zero/empty when Date is invalid.
	Year      int
	Month     int
	YearMonth string
}

// HasDate reports whether the row carries a usable calendar date.
func (t Transaction) HasDate() bool {
	return t.Date.IsValid()
}

// HasAmount reports whether the row carries a usable amount.
func (t Transaction) HasAmount() bool {
	return t.Amount.Valid
}

// IsValid reports whether the row can take part in every aggregate.
func (t Transaction) IsValid() bool {
	return t.HasDate() && t.HasAmount()
}

// IsIncome reports whether the row is a usable inflow.
func (t Transaction) IsIncome() bool {
	return t.Amount.Valid && t.Amount.Decimal.IsPositive()
}

// IsExpense reports whether the row is a usable outflow.
func (t Transaction) IsExpense() bool {
	return t.Amount.Valid && t.Amount.Decimal.IsNegative()
}

// Ledger is an ordered sequence of transactions for one statement.
type Ledger []Transaction

// Clone returns a copy that can be filtered or re-sorted without touching
// the original ledger.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

// YearMonthOf formats the year_month bucket key for a date.
func YearMonthOf(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}
