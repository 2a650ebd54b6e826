package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/xuri/excelize/v2"
)

func testLedger() domain.Ledger {
	mk := func(date string, desc string, amount int64, category string) domain.Transaction {
		d, _ := civil.ParseDate(date)
		tx := domain.Transaction{
			Date:        d,
			Description: desc,
			Amount:      decimal.NewNullDecimal(decimal.NewFromInt(amount)),
			Type:        domain.TxCredit,
			Category:    category,
			Year:        d.Year,
			Month:       int(d.Month),
			YearMonth:   domain.YearMonthOf(d),
		}
		if amount < 0 {
			tx.Type = domain.TxDebit
		}
		return tx
	}
	return domain.Ledger{
		mk("2024-01-05", "Salary", 50000, "Income"),
		mk("2024-01-10", "Grocery store", -12000, "Food"),
		mk("2024-02-01", "Grocery store", -3000, "Food"),
		{Description: "Unreadable", Type: domain.TxDebit, Category: "Other"},
	}
}

func TestFilenames(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	if got := ExcelFilename(at); got != "cash_flow_analysis_20240309_140507.xlsx" {
		t.Errorf("ExcelFilename() = %q", got)
	}
	if got := CSVFilename(at); got != "transactions_20240309_140507.csv" {
		t.Errorf("CSVFilename() = %q", got)
	}
}

func TestWriteExcel(t *testing.T) {
	ledger := testLedger()
	path := filepath.Join(t.TempDir(), ExcelFilename(time.Now()))

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteExcel(out, ledger, cashflow.Aggregate(ledger)); err != nil {
		t.Fatalf("WriteExcel() error = %v", err)
	}
	out.Close()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	want := []string{SheetTransactions, SheetMonthlyCashFlow, SheetIncomeVsExpenses, SheetCategorySpending, SheetSummary}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sheet %d = %q, want %q", i, got[i], want[i])
		}
	}

	rows, err := f.GetRows(SheetTransactions)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Fatalf("Transactions has %d rows, want 5", len(rows))
	}
	if rows[1][0] != "2024-01-05" || rows[1][1] != "Salary" || rows[1][2] != "50000" {
		t.Errorf("first transaction row = %v", rows[1])
	}
	if rows[4][0] != "" || rows[4][6] != "FALSE" {
		t.Errorf("invalid row = %v", rows[4])
	}

	summary, err := f.GetRows(SheetSummary)
	if err != nil {
		t.Fatal(err)
	}
	values := make(map[string]string)
	for _, r := range summary[1:] {
		values[r[0]] = r[1]
	}
	if values["net_flow"] != "35000" || values["top_expense_category"] != "Food" {
		t.Errorf("summary = %v", values)
	}

	flows, _ := f.GetRows(SheetMonthlyCashFlow)
	if len(flows) != 3 || flows[1][0] != "2024-01" || flows[1][1] != "38000" {
		t.Errorf("monthly cash flow = %v", flows)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testLedger()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}

	wantHeader := []string{"date", "description", "amount", "type", "category", "year", "month", "year_month"}
	for i, h := range wantHeader {
		if records[0][i] != h {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], h)
		}
	}

	wantRow := []string{"2024-01-10", "Grocery store", "-12000", "debit", "Food", "2024", "1", "2024-01"}
	for i, v := range wantRow {
		if records[2][i] != v {
			t.Errorf("row 2 field %d = %q, want %q", i, records[2][i], v)
		}
	}

	undated := records[4]
	if undated[0] != "" || undated[2] != "" || undated[5] != "" {
		t.Errorf("undated row = %v", undated)
	}
}
