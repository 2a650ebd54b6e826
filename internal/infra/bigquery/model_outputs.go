package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
)

type ModelOutputRow struct {
	OutputID   string `bigquery:"output_id"`   // REQUIRED
	RunID      string `bigquery:"run_id"`      // REQUIRED
	DocumentID string `bigquery:"document_id"` // REQUIRED

	ModelName    string              `bigquery:"model_name"`    // REQUIRED
	FinishReason bigquery.NullString `bigquery:"finish_reason"` // NULLABLE
	Repaired     bool                `bigquery:"repaired"`      // REQUIRED

	// RawContent is kept as STRING: it may be truncated or otherwise invalid JSON.
	RawContent string `bigquery:"raw_content"` // REQUIRED

	TokensInput  bigquery.NullInt64 `bigquery:"tokens_input"`  // NULLABLE
	TokensOutput bigquery.NullInt64 `bigquery:"tokens_output"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func newModelOutputRow(outputID, runID, documentID string, out *pipeline.ExtractionResult, created time.Time) *ModelOutputRow {
	row := &ModelOutputRow{
		OutputID:   outputID,
		RunID:      runID,
		DocumentID: documentID,
		ModelName:  out.Model,
		Repaired:   out.Repaired,
		RawContent: out.RawContent,
		CreatedTS:  created,
	}
	if out.FinishReason != "" {
		row.FinishReason = bigquery.NullString{StringVal: out.FinishReason, Valid: true}
	}
	if out.PromptTokens > 0 {
		row.TokensInput = bigquery.NullInt64{Int64: int64(out.PromptTokens), Valid: true}
	}
	if out.CompletionTokens > 0 {
		row.TokensOutput = bigquery.NullInt64{Int64: int64(out.CompletionTokens), Valid: true}
	}
	return row
}
