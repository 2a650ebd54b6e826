package insights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/llm"
)

func tx(date, desc string, amount int64, category string) domain.Transaction {
	d, _ := civil.ParseDate(date)
	t := domain.Transaction{
		Date:        d,
		Description: desc,
		Amount:      decimal.NewNullDecimal(decimal.NewFromInt(amount)),
		Category:    category,
		Type:        domain.TxCredit,
		Year:        d.Year,
		Month:       int(d.Month),
		YearMonth:   domain.YearMonthOf(d),
	}
	if amount < 0 {
		t.Type = domain.TxDebit
	}
	return t
}

func scenario() (domain.Ledger, *cashflow.Bundle) {
	ledger := domain.Ledger{
		tx("2024-01-05", "Salary", 50000, "Income"),
		tx("2024-01-10", "Grocery store", -12000, "Food"),
		tx("2024-02-01", "Grocery store", -3000, "Food"),
	}
	return ledger, cashflow.Aggregate(ledger)
}

func TestDetectPatterns(t *testing.T) {
	ledger := domain.Ledger{
		tx("2024-01-01", "Salary", 40000, "Income"),
		tx("2024-01-02", "Freelance", 5000, "Income"),
		tx("2024-01-03", "Salary", 40000, "Income"),
		tx("2024-01-04", "Dividends", 100, "Investments"),
		tx("2024-01-05", "Rent", 200, "Income"),
	}
	for i := 0; i < 9; i++ {
		ledger = append(ledger, tx("2024-01-10", "Coffee", -100, "Food"))
	}
	ledger = append(ledger,
		tx("2024-01-11", "Laptop", -10000, "Shopping"),
		tx("2024-01-12", "Bus", -20, "Transportation"),
		tx("2024-01-13", "Bus", -20, "Transportation"),
	)

	p := DetectPatterns(ledger, cashflow.Aggregate(ledger))

	wantSources := []string{"Salary", "Freelance", "Rent"}
	if len(p.TopIncomeSources) != len(wantSources) {
		t.Fatalf("TopIncomeSources = %+v", p.TopIncomeSources)
	}
	for i, w := range wantSources {
		if p.TopIncomeSources[i].Description != w {
			t.Errorf("income source %d = %q, want %q", i, p.TopIncomeSources[i].Description, w)
		}
	}
	if !p.TopIncomeSources[0].Amount.Equal(decimal.NewFromInt(80000)) {
		t.Errorf("Salary total = %s", p.TopIncomeSources[0].Amount)
	}

	if got := strings.Join(p.RecurringExpenses, ","); got != "Coffee,Bus" {
		t.Errorf("RecurringExpenses = %q", got)
	}

	if len(p.LargeTransactions) != 1 || p.LargeTransactions[0].Description != "Laptop" {
		t.Errorf("LargeTransactions = %+v", p.LargeTransactions)
	}

	if p.SmallExpenseCount != 11 {
		t.Errorf("SmallExpenseCount = %d, want 11", p.SmallExpenseCount)
	}
	if len(p.CategoryExpenses) != 3 || p.CategoryExpenses[0].Category != "Shopping" {
		t.Errorf("CategoryExpenses = %+v", p.CategoryExpenses)
	}
}

func TestDetectPatterns_SingleExpenseHasNoOutliers(t *testing.T) {
	ledger := domain.Ledger{tx("2024-01-01", "Rent", -90000, "Housing")}
	if p := DetectPatterns(ledger, cashflow.Aggregate(ledger)); len(p.LargeTransactions) != 0 {
		t.Errorf("LargeTransactions = %+v, want none", p.LargeTransactions)
	}
}

func TestHealthScore(t *testing.T) {
	pct := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	manyCategories := make([]cashflow.CategoryAmount, 9)

	tests := []struct {
		name    string
		summary cashflow.Summary
		p       Patterns
		want    int
	}{
		{"neutral", cashflow.Summary{}, Patterns{}, 50},
		{"positive flow high savings", cashflow.Summary{NetFlow: pct(1), AvgSavingsRate: pct(31)}, Patterns{}, 75},
		{"savings above 20", cashflow.Summary{AvgSavingsRate: pct(25)}, Patterns{}, 60},
		{"savings above 10", cashflow.Summary{AvgSavingsRate: pct(15)}, Patterns{}, 55},
		{"savings exactly 10", cashflow.Summary{AvgSavingsRate: pct(10)}, Patterns{}, 50},
		{"negative savings", cashflow.Summary{AvgSavingsRate: pct(-5)}, Patterns{}, 35},
		{
			name:    "all penalties",
			summary: cashflow.Summary{NetFlow: pct(-1), AvgSavingsRate: pct(-40)},
			p: Patterns{
				CategoryExpenses:  manyCategories,
				LargeTransactions: make([]LargeTransaction, 3),
				SmallExpenseCount: 21,
			},
			want: 20,
		},
		{
			name:    "best case",
			summary: cashflow.Summary{NetFlow: pct(1), AvgSavingsRate: pct(50)},
			p:       Patterns{TopIncomeSources: make([]SourceAmount, 3)},
			want:    80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HealthScore(tt.summary, tt.p); got != tt.want {
				t.Errorf("HealthScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGenerator_Generate(t *testing.T) {
	ledger, bundle := scenario()

	var req llm.Request
	g := NewGenerator(llm.ClientFunc(func(ctx context.Context, r llm.Request) (*llm.Response, error) {
		req = r
		return &llm.Response{Content: `{"summary": "You saved well.", "tips": ["a", "b", "c"], "custom_advice": "Keep going."}`}, nil
	}))

	got := g.Generate(context.Background(), ledger, bundle)

	if got.Summary != "You saved well." || len(got.Tips) != 3 || got.CustomAdvice != "Keep going." {
		t.Errorf("Generate() = %+v", got)
	}
	if got.Fallback {
		t.Error("Fallback = true for a usable response")
	}
	if got.HealthScore != 75 {
		t.Errorf("HealthScore = %d, want 75", got.HealthScore)
	}

	if req.Temperature != Temperature || req.MaxTokens != MaxTokens || !req.JSONMode {
		t.Errorf("unexpected request parameters: %+v", req)
	}
	prompt := req.Messages[1].Content
	for _, want := range []string{"₹50,000.00", "Savings Rate: 38.0%", "Food", "Grocery store", "75/100"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerator_Generate_Fallback(t *testing.T) {
	ledger, bundle := scenario()

	tests := []struct {
		name string
		resp *llm.Response
		err  error
	}{
		{"service error", nil, errors.New("timeout")},
		{"not json", &llm.Response{Content: "Sorry, I cannot help."}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(llm.ClientFunc(func(ctx context.Context, r llm.Request) (*llm.Response, error) {
				return tt.resp, tt.err
			}))

			got := g.Generate(context.Background(), ledger, bundle)
			if !got.Fallback {
				t.Error("Fallback = false")
			}
			if len(got.Tips) != 3 {
				t.Errorf("got %d tips, want 3", len(got.Tips))
			}
			if !strings.Contains(got.Summary, "positive cash flow of ₹35,000.00") {
				t.Errorf("Summary = %q", got.Summary)
			}
			if got.HealthScore != 75 {
				t.Errorf("HealthScore = %d", got.HealthScore)
			}
		})
	}
}

func TestGenerator_Generate_MissingKeys(t *testing.T) {
	ledger, bundle := scenario()

	tests := []struct {
		name       string
		content    string
		wantTips   []string
		wantAdvice string
	}{
		{"no summary", `{"tips": ["Cancel the gym"], "custom_advice": "Cook at home"}`, []string{"Cancel the gym"}, "Cook at home"},
		{"summary only", `{"summary": "Steady month."}`, []string{}, ""},
		{"empty object", `{}`, []string{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(llm.ClientFunc(func(ctx context.Context, r llm.Request) (*llm.Response, error) {
				return &llm.Response{Content: tt.content}, nil
			}))

			got := g.Generate(context.Background(), ledger, bundle)
			if got.Fallback {
				t.Fatal("Fallback = true for a decodable response")
			}
			if got.Tips == nil || len(got.Tips) != len(tt.wantTips) {
				t.Fatalf("Tips = %#v, want %#v", got.Tips, tt.wantTips)
			}
			for i := range tt.wantTips {
				if got.Tips[i] != tt.wantTips[i] {
					t.Errorf("Tips[%d] = %q, want %q", i, got.Tips[i], tt.wantTips[i])
				}
			}
			if got.CustomAdvice != tt.wantAdvice {
				t.Errorf("CustomAdvice = %q, want %q", got.CustomAdvice, tt.wantAdvice)
			}
			if got.HealthScore != 75 {
				t.Errorf("HealthScore = %d", got.HealthScore)
			}
		})
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "₹0.00"},
		{"999.5", "₹999.50"},
		{"1234567.891", "₹1,234,567.89"},
		{"-500", "-₹500.00"},
		{"100000", "₹100,000.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatMoney(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
