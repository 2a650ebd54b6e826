package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
)

// RecordModelOutput stores the unmodified model response of a run.
func (r *Repository) RecordModelOutput(ctx context.Context, runID string, out *pipeline.ExtractionResult) error {
	if out == nil {
		return nil
	}
	row := newModelOutputRow(uuid.NewString(), runID, r.documentFor(runID), out, time.Now())
	if err := r.InsertModelOutput(ctx, row); err != nil {
		return fmt.Errorf("RecordModelOutput: %w", err)
	}
	return nil
}

// InsertModelOutput inserts a single ModelOutputRow. Uses DML INSERT to
// avoid streaming buffer issues.
func (r *Repository) InsertModelOutput(ctx context.Context, row *ModelOutputRow) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			output_id, run_id, document_id,
			model_name, finish_reason, repaired,
			raw_content, tokens_input, tokens_output, created_ts
		)
		VALUES (
			@output_id, @run_id, @document_id,
			@model_name, @finish_reason, @repaired,
			@raw_content, @tokens_input, @tokens_output, @created_ts
		)
	`, r.table(modelOutputsTable)), []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "run_id", Value: row.RunID},
		{Name: "document_id", Value: row.DocumentID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "finish_reason", Value: row.FinishReason},
		{Name: "repaired", Value: row.Repaired},
		{Name: "raw_content", Value: row.RawContent},
		{Name: "tokens_input", Value: row.TokensInput},
		{Name: "tokens_output", Value: row.TokensOutput},
		{Name: "created_ts", Value: row.CreatedTS},
	})
	if err != nil {
		return fmt.Errorf("InsertModelOutput: %w", err)
	}
	return nil
}
