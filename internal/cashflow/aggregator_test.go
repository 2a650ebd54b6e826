package cashflow

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func newTx(t *testing.T, date string, amount int64, category string) domain.Transaction {
	t.Helper()
	tx := domain.Transaction{
		Description: category + " " + date,
		Amount:      decimal.NewNullDecimal(decimal.NewFromInt(amount)),
		Category:    category,
		Type:        domain.TxCredit,
	}
	if amount < 0 {
		tx.Type = domain.TxDebit
	}
	if date != "" {
		tx.Date = mustDate(t, date)
		tx.Year = tx.Date.Year
		tx.Month = int(tx.Date.Month)
		tx.YearMonth = domain.YearMonthOf(tx.Date)
	}
	return tx
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Errorf("%s = %s, want %d", name, got, want)
	}
}

func scenarioLedger(t *testing.T) domain.Ledger {
	return domain.Ledger{
		newTx(t, "2024-01-05", 50000, "Income"),
		newTx(t, "2024-01-10", -12000, "Food"),
		newTx(t, "2024-02-01", -3000, "Food"),
	}
}

func TestAggregate_Scenario(t *testing.T) {
	b := Aggregate(scenarioLedger(t))

	if len(b.MonthlyIncomeVsExpenses) != 2 {
		t.Fatalf("MonthlyIncomeVsExpenses has %d rows, want 2", len(b.MonthlyIncomeVsExpenses))
	}

	jan := b.MonthlyIncomeVsExpenses[0]
	if jan.YearMonth != "2024-01" {
		t.Errorf("first month = %s, want 2024-01", jan.YearMonth)
	}
	assertDecimal(t, "jan income", jan.Income, 50000)
	assertDecimal(t, "jan expenses", jan.Expenses, 12000)
	assertDecimal(t, "jan savings", jan.Savings, 38000)
	assertDecimal(t, "jan savings rate", jan.SavingsRate, 76)

	feb := b.MonthlyIncomeVsExpenses[1]
	if feb.YearMonth != "2024-02" {
		t.Errorf("second month = %s, want 2024-02", feb.YearMonth)
	}
	assertDecimal(t, "feb income", feb.Income, 0)
	assertDecimal(t, "feb expenses", feb.Expenses, 3000)
	assertDecimal(t, "feb savings", feb.Savings, -3000)
	assertDecimal(t, "feb savings rate", feb.SavingsRate, 0)

	if len(b.CategorySpending) != 1 || b.CategorySpending[0].Category != "Food" {
		t.Fatalf("CategorySpending = %+v, want only Food", b.CategorySpending)
	}
	assertDecimal(t, "food spending", b.CategorySpending[0].Amount, 15000)

	s := b.Summary
	assertDecimal(t, "total income", s.TotalIncome, 50000)
	assertDecimal(t, "total expenses", s.TotalExpenses, 15000)
	assertDecimal(t, "net flow", s.NetFlow, 35000)
	assertDecimal(t, "top expense amount", s.TopExpenseAmount, 15000)
	assertDecimal(t, "avg monthly income", s.AvgMonthlyIncome, 25000)
	assertDecimal(t, "avg monthly expenses", s.AvgMonthlyExpenses, 7500)
	assertDecimal(t, "avg savings rate", s.AvgSavingsRate, 38)
	if s.TopExpenseCategory == nil || *s.TopExpenseCategory != "Food" {
		t.Errorf("TopExpenseCategory = %v, want Food", s.TopExpenseCategory)
	}
	if s.TransactionCount != 3 {
		t.Errorf("TransactionCount = %d, want 3", s.TransactionCount)
	}
	if s.DateRange != "2024-01-05 to 2024-02-01" {
		t.Errorf("DateRange = %q", s.DateRange)
	}

	if len(b.MonthlyCashFlow) != 2 {
		t.Fatalf("MonthlyCashFlow has %d rows, want 2", len(b.MonthlyCashFlow))
	}
	assertDecimal(t, "jan net", b.MonthlyCashFlow[0].NetFlow, 38000)
	if b.MonthlyCashFlow[0].TransactionCount != 2 {
		t.Errorf("jan transaction count = %d, want 2", b.MonthlyCashFlow[0].TransactionCount)
	}
}

func TestAggregate_MonthCoverage(t *testing.T) {
	ledger := domain.Ledger{
		newTx(t, "2023-11-20", 1000, "Income"),
		newTx(t, "2024-03-02", -200, "Fees"),
	}

	b := Aggregate(ledger)

	want := []string{"2023-11", "2023-12", "2024-01", "2024-02", "2024-03"}
	if len(b.MonthlyIncomeVsExpenses) != len(want) {
		t.Fatalf("got %d months, want %d", len(b.MonthlyIncomeVsExpenses), len(want))
	}
	for i, ym := range want {
		m := b.MonthlyIncomeVsExpenses[i]
		if m.YearMonth != ym {
			t.Errorf("month %d = %s, want %s", i, m.YearMonth, ym)
		}
		if i > 0 && i < len(want)-1 {
			assertDecimal(t, ym+" income", m.Income, 0)
			assertDecimal(t, ym+" expenses", m.Expenses, 0)
			assertDecimal(t, ym+" savings rate", m.SavingsRate, 0)
		}
	}
}

func TestAggregate_MeansAreNotRounded(t *testing.T) {
	b := Aggregate(domain.Ledger{
		newTx(t, "2024-01-05", 100, "Income"),
		newTx(t, "2024-03-05", -1, "Food"),
	})

	s := b.Summary
	if len(b.MonthlyIncomeVsExpenses) != 3 {
		t.Fatalf("got %d months, want 3", len(b.MonthlyIncomeVsExpenses))
	}
	if s.AvgMonthlyIncome.Equal(decimal.RequireFromString("33.33")) {
		t.Error("AvgMonthlyIncome was rounded to two places")
	}
	if !s.AvgMonthlyIncome.Round(4).Equal(decimal.RequireFromString("33.3333")) {
		t.Errorf("AvgMonthlyIncome = %s, want 100/3", s.AvgMonthlyIncome)
	}
	if !s.AvgMonthlyExpenses.Round(4).Equal(decimal.RequireFromString("0.3333")) {
		t.Errorf("AvgMonthlyExpenses = %s, want 1/3", s.AvgMonthlyExpenses)
	}
}

func TestSavingsRate(t *testing.T) {
	tests := []struct {
		name    string
		savings string
		income  string
		want    string
	}{
		{"zero income", "-3000", "0", "0"},
		{"zero income and savings", "0", "0", "0"},
		{"positive", "38000", "50000", "76"},
		{"rounded", "1", "3", "33.33"},
		{"negative", "-500", "1000", "-50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SavingsRate(decimal.RequireFromString(tt.savings), decimal.RequireFromString(tt.income))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("SavingsRate(%s, %s) = %s, want %s", tt.savings, tt.income, got, tt.want)
			}
		})
	}
}

func TestAggregate_RunningBalanceEndsAtNetFlow(t *testing.T) {
	ledger := domain.Ledger{
		newTx(t, "2024-01-01", 2500, "Income"),
		newTx(t, "2024-01-03", -120, "Food"),
		newTx(t, "2024-01-03", -80, "Transportation"),
		newTx(t, "2024-02-14", -1900, "Housing"),
		newTx(t, "", -45, "Fees"),
	}
	// Row with an unusable amount: counted, but never summed.
	ledger = append(ledger, domain.Transaction{Description: "garbled", Category: domain.DefaultCategory})

	b := Aggregate(ledger)

	if len(b.RunningBalance) != 5 {
		t.Fatalf("RunningBalance has %d points, want 5", len(b.RunningBalance))
	}
	last := b.RunningBalance[len(b.RunningBalance)-1].Balance
	if !last.Equal(b.Summary.NetFlow) {
		t.Errorf("last running balance %s != net flow %s", last, b.Summary.NetFlow)
	}
	assertDecimal(t, "net flow", b.Summary.NetFlow, 355)
	assertDecimal(t, "second point", b.RunningBalance[1].Balance, 2380)

	if b.Summary.TransactionCount != 6 {
		t.Errorf("TransactionCount = %d, want 6", b.Summary.TransactionCount)
	}
	// The undated fee counts toward totals but not toward any month.
	assertDecimal(t, "total expenses", b.Summary.TotalExpenses, 2145)
	var monthly decimal.Decimal
	for _, m := range b.MonthlyIncomeVsExpenses {
		monthly = monthly.Add(m.Expenses)
	}
	assertDecimal(t, "monthly expenses", monthly, 2100)
}

func TestCategorySpending_TieBreak(t *testing.T) {
	ledger := domain.Ledger{
		newTx(t, "2024-01-01", -100, "Travel"),
		newTx(t, "2024-01-02", -100, "Food"),
		newTx(t, "2024-01-03", -300, "Housing"),
		newTx(t, "2024-01-04", 5000, "Income"),
	}

	b := Aggregate(ledger)

	want := []string{"Housing", "Food", "Travel"}
	if len(b.CategorySpending) != len(want) {
		t.Fatalf("CategorySpending = %+v", b.CategorySpending)
	}
	for i, c := range want {
		if b.CategorySpending[i].Category != c {
			t.Errorf("CategorySpending[%d] = %s, want %s", i, b.CategorySpending[i].Category, c)
		}
	}
}

func TestAggregate_NoExpenses(t *testing.T) {
	b := Aggregate(domain.Ledger{newTx(t, "2024-05-01", 100, "Income")})

	if b.Summary.TopExpenseCategory != nil {
		t.Errorf("TopExpenseCategory = %v, want nil", *b.Summary.TopExpenseCategory)
	}
	assertDecimal(t, "top expense amount", b.Summary.TopExpenseAmount, 0)
	if len(b.CategorySpending) != 0 {
		t.Errorf("CategorySpending = %+v, want empty", b.CategorySpending)
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	ledger := scenarioLedger(t)
	a := Aggregate(ledger)
	b := Aggregate(ledger)

	if !a.Summary.NetFlow.Equal(b.Summary.NetFlow) || len(a.MonthlyCategorySpending) != len(b.MonthlyCategorySpending) {
		t.Error("Aggregate produced different results for the same ledger")
	}
	for i := range a.MonthlyCategorySpending {
		x, y := a.MonthlyCategorySpending[i], b.MonthlyCategorySpending[i]
		if x.YearMonth != y.YearMonth || x.Category != y.Category || !x.Amount.Equal(y.Amount) {
			t.Errorf("MonthlyCategorySpending[%d] differs", i)
		}
	}
}
