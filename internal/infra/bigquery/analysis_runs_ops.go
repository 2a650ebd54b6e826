package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
)

const parserType = "LLM_TEXT"

// StartRun inserts the document row and a new analysis_runs row with
// status=RUNNING, and returns the generated run_id.
func (r *Repository) StartRun(ctx context.Context, info pipeline.RunInfo) (string, error) {
	runID := uuid.NewString()
	documentID := uuid.NewString()
	started := time.Now()

	if err := r.InsertDocument(ctx, newDocumentRow(documentID, info, started)); err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}

	err := r.runDML(ctx, fmt.Sprintf(`
		INSERT %s (
			run_id,
			document_id,
			started_ts,
			parser_type,
			parser_version,
			status
		)
		VALUES (
			@run_id,
			@document_id,
			@started_ts,
			@parser_type,
			@parser_version,
			@status
		)
	`, r.table(analysisRunsTable)), []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "document_id", Value: documentID},
		{Name: "started_ts", Value: started},
		{Name: "parser_type", Value: parserType},
		{Name: "parser_version", Value: pipeline.ParserVersion},
		{Name: "status", Value: pipeline.RunStatusRunning},
	})
	if err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}

	r.mu.Lock()
	r.runDocs[runID] = documentID
	r.mu.Unlock()

	return runID, nil
}

// MarkRunFailed sets status=FAILED, finished_ts and error_message. Errors
// are logged, not returned.
func (r *Repository) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)
	defer r.forgetRun(runID)

	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.table(analysisRunsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: pipeline.RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: pipeline.ErrorMessage(runErr)},
		{Name: "run_id", Value: runID},
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkRunFailed: update failed")
	}
}

// MarkRunSucceeded sets status=SUCCESS, finished_ts and the transaction
// count, and clears error_message.
func (r *Repository) MarkRunSucceeded(ctx context.Context, runID string, txCount int) error {
	defer r.forgetRun(runID)

	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    transaction_count = @transaction_count,
		    error_message = ""
		WHERE run_id = @run_id
	`, r.table(analysisRunsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: pipeline.RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "transaction_count", Value: txCount},
		{Name: "run_id", Value: runID},
	})
	if err != nil {
		return fmt.Errorf("MarkRunSucceeded: %w", err)
	}
	return nil
}
