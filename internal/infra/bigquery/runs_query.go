package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/varunidealabs/cash-flow-analyzer/internal/history"
)

// runListingRow is an analysis run joined with its document.
type runListingRow struct {
	RunID            string                 `bigquery:"run_id"`
	DocumentName     string                 `bigquery:"original_filename"`
	ContentType      bigquery.NullString    `bigquery:"file_mime_type"`
	SourceURI        bigquery.NullString    `bigquery:"gcs_uri"`
	SizeBytes        bigquery.NullInt64     `bigquery:"size_bytes"`
	Status           bigquery.NullString    `bigquery:"status"`
	StartedTS        time.Time              `bigquery:"started_ts"`
	FinishedTS       bigquery.NullTimestamp `bigquery:"finished_ts"`
	ErrorMessage     bigquery.NullString    `bigquery:"error_message"`
	TransactionCount bigquery.NullInt64     `bigquery:"transaction_count"`
}

func (row *runListingRow) toRun() history.Run {
	run := history.Run{
		ID:               row.RunID,
		DocumentName:     row.DocumentName,
		ContentType:      row.ContentType.StringVal,
		SourceURI:        row.SourceURI.StringVal,
		SizeBytes:        int(row.SizeBytes.Int64),
		Status:           row.Status.StringVal,
		StartedAt:        row.StartedTS,
		ErrorMessage:     row.ErrorMessage.StringVal,
		TransactionCount: int(row.TransactionCount.Int64),
	}
	if row.FinishedTS.Valid {
		finished := row.FinishedTS.Timestamp
		run.FinishedAt = &finished
	}
	return run
}

func (r *Repository) runsQuery(where string) string {
	return fmt.Sprintf(`
		SELECT
			ar.run_id,
			d.original_filename,
			d.file_mime_type,
			d.gcs_uri,
			d.size_bytes,
			ar.status,
			ar.started_ts,
			ar.finished_ts,
			ar.error_message,
			ar.transaction_count
		FROM %s ar
		INNER JOIN %s d
		  ON ar.document_id = d.document_id
		%s
		ORDER BY ar.started_ts DESC
		LIMIT @limit
	`, r.table(analysisRunsTable), r.table(documentsTable), where)
}

// ListRuns returns the most recent analysis runs, newest first, in the same
// shape as the local history.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]history.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	runs, err := r.readRuns(ctx, r.runsQuery(""), []bigquery.QueryParameter{{Name: "limit", Value: limit}})
	if err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}
	return runs, nil
}

// GetRun returns one run or history.ErrRunNotFound.
func (r *Repository) GetRun(ctx context.Context, runID string) (*history.Run, error) {
	runs, err := r.readRuns(ctx, r.runsQuery("WHERE ar.run_id = @run_id"), []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "limit", Value: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("GetRun: %w", err)
	}
	if len(runs) == 0 {
		return nil, history.ErrRunNotFound
	}
	return &runs[0], nil
}

func (r *Repository) readRuns(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]history.Run, error) {
	q := r.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var runs []history.Run
	for {
		var row runListingRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		runs = append(runs, row.toRun())
	}
	return runs, nil
}
