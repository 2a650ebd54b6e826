package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

// numericScale is the number of fractional digits of a BigQuery NUMERIC.
const numericScale = 9

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	DocumentID string `bigquery:"document_id"` // NULLABLE
	RunID      string `bigquery:"run_id"`      // REQUIRED
	Position   int64  `bigquery:"position"`    // REQUIRED, ledger order

	TransactionDate bigquery.NullDate `bigquery:"transaction_date"` // NULLABLE
	Amount          *big.Rat          `bigquery:"amount"`           // NULLABLE NUMERIC

	Direction   string `bigquery:"direction"`   // REQUIRED: credit | debit
	Description string `bigquery:"description"` // REQUIRED
	Category    string `bigquery:"category"`    // REQUIRED

	YearMonth bigquery.NullString `bigquery:"year_month"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func toTransactionRow(id, runID, documentID string, position int, tx domain.Transaction, created time.Time) *TransactionRow {
	row := &TransactionRow{
		TransactionID: id,
		DocumentID:    documentID,
		RunID:         runID,
		Position:      int64(position),
		Direction:     string(tx.Type),
		Description:   tx.Description,
		Category:      tx.Category,
		CreatedTS:     created,
	}
	if tx.HasDate() {
		row.TransactionDate = bigquery.NullDate{Date: tx.Date, Valid: true}
		row.YearMonth = bigquery.NullString{StringVal: tx.YearMonth, Valid: true}
	}
	if tx.HasAmount() {
		row.Amount = tx.Amount.Decimal.Rat()
	}
	return row
}

func fromTransactionRow(row *TransactionRow) (domain.Transaction, error) {
	tx := domain.Transaction{
		Description: row.Description,
		Type:        domain.TxType(row.Direction),
		Category:    row.Category,
	}
	if row.TransactionDate.Valid {
		d := row.TransactionDate.Date
		tx.Date = d
		tx.Year = d.Year
		tx.Month = int(d.Month)
		tx.YearMonth = domain.YearMonthOf(d)
	}
	if row.Amount != nil {
		a, err := decimal.NewFromString(row.Amount.FloatString(numericScale))
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("converting amount: %w", err)
		}
		tx.Amount = decimal.NewNullDecimal(a)
	}
	return tx, nil
}
