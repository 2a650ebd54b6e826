package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/llm"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
)

const (
	Temperature = 0.7
	MaxTokens   = 2000
)

// Insights is the written analysis shown next to the charts.
type Insights struct {
	Summary      string   `json:"summary"`
	Tips         []string `json:"tips"`
	CustomAdvice string   `json:"custom_advice"`
	HealthScore  int      `json:"health_score"`
	// Fallback is set when the text was not produced by the model.
	Fallback bool `json:"fallback"`
}

// Generator produces Insights with a language model.
type Generator struct {
	client llm.Client
}

// NewGenerator creates a Generator backed by client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate never fails: when the model call fails or its output is not JSON
// the summary and tips fall back to generic text built from the totals.
// Keys missing from the model output are left empty.
func (g *Generator) Generate(ctx context.Context, ledger domain.Ledger, bundle *cashflow.Bundle) *Insights {
	log := logger.FromContext(ctx)
	start := time.Now()

	patterns := DetectPatterns(ledger, bundle)
	score := HealthScore(bundle.Summary, patterns)

	out, err := g.ask(ctx, bundle.Summary, patterns, score)
	if err != nil {
		log.Error().Err(err).Msg("Insight generation failed, using fallback")
		out = fallbackInsights(bundle.Summary)
	}
	out.HealthScore = score

	log.Info().
		Int("health_score", score).
		Bool("fallback", out.Fallback).
		Dur("duration", time.Since(start)).
		Msg("Insights generated")
	return out
}

func (g *Generator) ask(ctx context.Context, s cashflow.Summary, p Patterns, score int) (*Insights, error) {
	resp, err := g.client.Send(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: buildInsightPrompt(s, p, score)},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("ask: sending request: %w", err)
	}

	var out Insights
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &out); err != nil {
		return nil, fmt.Errorf("ask: decoding insights: %w", err)
	}
	if out.Tips == nil {
		out.Tips = []string{}
	}
	out.Fallback = false
	return &out, nil
}

func fallbackInsights(s cashflow.Summary) *Insights {
	direction := "negative"
	if s.NetFlow.IsPositive() {
		direction = "positive"
	}

	return &Insights{
		Summary: fmt.Sprintf(
			"During this period, you had an income of %s and expenses of %s, resulting in a %s cash flow of %s. Your savings rate was %s%%.",
			FormatMoney(s.TotalIncome), FormatMoney(s.TotalExpenses), direction,
			FormatMoney(s.NetFlow.Abs()), s.AvgSavingsRate.StringFixed(1)),
		Tips: []string{
			"Track your expenses regularly to identify potential savings",
			"Consider creating a budget for your top spending categories",
			"Look for ways to increase your income or reduce unnecessary expenses",
		},
		CustomAdvice: "Focus on building an emergency fund equivalent to 3-6 months of expenses for financial security.",
		Fallback:     true,
	}
}

// FormatMoney renders an amount in rupees with thousands separators and two
// decimals, e.g. "-₹1,234.50".
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
