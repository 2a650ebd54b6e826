// Package export writes an analyzed ledger to spreadsheet formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	SheetTransactions     = "Transactions"
	SheetMonthlyCashFlow  = "Monthly Cash Flow"
	SheetIncomeVsExpenses = "Income vs Expenses"
	SheetCategorySpending = "Category Spending"
	SheetSummary          = "Summary"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv"
)

var csvHeader = []string{"date", "description", "amount", "type", "category", "year", "month", "year_month"}

// ExcelFilename is the default name for a workbook exported at t.
func ExcelFilename(t time.Time) string {
	return "cash_flow_analysis_" + t.Format("20060102_150405") + ".xlsx"
}

// CSVFilename is the default name for a transaction CSV exported at t.
func CSVFilename(t time.Time) string {
	return "transactions_" + t.Format("20060102_150405") + ".csv"
}

// WriteExcel writes a five-sheet workbook for the ledger and its bundle.
func WriteExcel(w io.Writer, ledger domain.Ledger, bundle *cashflow.Bundle) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTransactions); err != nil {
		return fmt.Errorf("WriteExcel: renaming default sheet: %w", err)
	}

	txRows := [][]interface{}{{"date", "description", "amount", "type", "category", "year_month", "valid"}}
	for _, tx := range ledger {
		txRows = append(txRows, []interface{}{
			dateCell(tx), tx.Description, amountCell(tx.Amount), string(tx.Type), tx.Category, tx.YearMonth, tx.IsValid(),
		})
	}

	flowRows := [][]interface{}{{"year_month", "net_flow", "transaction_count"}}
	for _, m := range bundle.MonthlyCashFlow {
		flowRows = append(flowRows, []interface{}{m.YearMonth, m.NetFlow.InexactFloat64(), m.TransactionCount})
	}

	ieRows := [][]interface{}{{"year_month", "income", "expenses", "savings", "savings_rate"}}
	for _, m := range bundle.MonthlyIncomeVsExpenses {
		ieRows = append(ieRows, []interface{}{
			m.YearMonth, m.Income.InexactFloat64(), m.Expenses.InexactFloat64(),
			m.Savings.InexactFloat64(), m.SavingsRate.InexactFloat64(),
		})
	}

	catRows := [][]interface{}{{"category", "amount"}}
	for _, c := range bundle.CategorySpending {
		catRows = append(catRows, []interface{}{c.Category, c.Amount.InexactFloat64()})
	}

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{SheetTransactions, txRows},
		{SheetMonthlyCashFlow, flowRows},
		{SheetIncomeVsExpenses, ieRows},
		{SheetCategorySpending, catRows},
		{SheetSummary, summaryRows(bundle.Summary)},
	}

	for _, s := range sheets {
		if s.name != SheetTransactions {
			if _, err := f.NewSheet(s.name); err != nil {
				return fmt.Errorf("WriteExcel: creating sheet %q: %w", s.name, err)
			}
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			return fmt.Errorf("WriteExcel: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteExcel: writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(s cashflow.Summary) [][]interface{} {
	top := ""
	if s.TopExpenseCategory != nil {
		top = *s.TopExpenseCategory
	}
	return [][]interface{}{
		{"metric", "value"},
		{"total_income", s.TotalIncome.InexactFloat64()},
		{"total_expenses", s.TotalExpenses.InexactFloat64()},
		{"net_flow", s.NetFlow.InexactFloat64()},
		{"avg_monthly_income", s.AvgMonthlyIncome.InexactFloat64()},
		{"avg_monthly_expenses", s.AvgMonthlyExpenses.InexactFloat64()},
		{"avg_savings_rate", s.AvgSavingsRate.InexactFloat64()},
		{"top_expense_category", top},
		{"top_expense_amount", s.TopExpenseAmount.InexactFloat64()},
		{"transaction_count", s.TransactionCount},
		{"date_range", s.DateRange},
	}
}

func dateCell(tx domain.Transaction) string {
	if !tx.HasDate() {
		return ""
	}
	return tx.Date.String()
}

func amountCell(a decimal.NullDecimal) interface{} {
	if !a.Valid {
		return ""
	}
	return a.Decimal.InexactFloat64()
}

// WriteCSV writes one line per ledger row. Missing dates and amounts are
// written as empty fields.
func WriteCSV(w io.Writer, ledger domain.Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("WriteCSV: writing header: %w", err)
	}

	for _, tx := range ledger {
		amount := ""
		if tx.HasAmount() {
			amount = tx.Amount.Decimal.String()
		}
		year, month := "", ""
		if tx.HasDate() {
			year = strconv.Itoa(tx.Year)
			month = strconv.Itoa(tx.Month)
		}
		record := []string{dateCell(tx), tx.Description, amount, string(tx.Type), tx.Category, year, month, tx.YearMonth}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("WriteCSV: writing row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	return nil
}
