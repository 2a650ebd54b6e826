package pipeline

import (
	"errors"
	"testing"
)

const fullWrapped = `{"transactions": [` +
	`{"date": "2024-01-05", "description": "Salary", "amount": 50000, "type": "credit", "category": "Income"},` +
	`{"date": "2024-01-10", "description": "Groceries", "amount": -12000, "type": "debit", "category": "Food"},` +
	`{"date": "2024-02-01", "description": "Groceries", "amount": -3000, "type": "debit", "category": "Food"}` +
	`]}`

func TestRepairTruncatedJSON_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		truncated string
		wantCount int
	}{
		{
			name:      "wrapper cut mid-object",
			truncated: fullWrapped[:len(fullWrapped)-40],
			wantCount: 2,
		},
		{
			name:      "bare array cut mid-object",
			truncated: `[{"date": "2024-01-05", "amount": 1},{"date": "2024-01-06", "amount": 2},{"date": "2024-01`,
			wantCount: 2,
		},
		{
			name:      "single object without separator",
			truncated: `[{"date": "2024-01-05", "amount": 1}`,
			wantCount: 1,
		},
		{
			name:      "cut right after a complete object",
			truncated: `{"transactions": [{"date": "2024-01-05", "amount": 1}, {"date": "2024-01-06", "amount": 2}`,
			wantCount: 2,
		},
		{
			name:      "nested brace falls back to separator",
			truncated: `[{"date": "2024-01-05", "amount": 1}, {"date": "2024-01-06", "meta": {"ref": "x"}`,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, repaired, err := parseExtractionContent(tt.truncated, true)
			if err != nil {
				t.Fatalf("parseExtractionContent() error = %v", err)
			}
			if !repaired {
				t.Error("expected repaired = true")
			}
			txs, err := transformModelOutput(parsed)
			if err != nil {
				t.Fatalf("transformModelOutput() error = %v", err)
			}
			if len(txs) != tt.wantCount {
				t.Errorf("got %d transactions, want %d", len(txs), tt.wantCount)
			}
		})
	}
}

func TestRepairTruncatedJSON_NoCompleteObject(t *testing.T) {
	if _, err := repairTruncatedJSON(`{"transactions": [{"date": "2024-01`); !errors.Is(err, errNoCompleteObject) {
		t.Errorf("repairTruncatedJSON() error = %v, want errNoCompleteObject", err)
	}

	if _, _, err := parseExtractionContent(`[{"date": "2024-01`, true); !errors.Is(err, errNoCompleteObject) {
		t.Errorf("parseExtractionContent() error = %v, want errNoCompleteObject", err)
	}
}

func TestParseExtractionContent_NoRepairWithoutTruncation(t *testing.T) {
	_, repaired, err := parseExtractionContent(fullWrapped[:len(fullWrapped)-40], false)
	if err == nil || repaired {
		t.Errorf("parseExtractionContent() = repaired %v, error %v; want unrepaired error", repaired, err)
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `  [1, 2] `, `[1, 2]`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n[1]\n```", `[1]`},
		{"unterminated fence", "```json\n[{\"a\": 1},", `[{"a": 1},`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.input); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
