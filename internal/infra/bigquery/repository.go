// Package bigquery records analysis runs, raw model output and ledgers in a
// BigQuery dataset.
package bigquery

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/bigquery"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
)

const (
	documentsTable    = "documents"
	analysisRunsTable = "analysis_runs"
	modelOutputsTable = "model_outputs"
	transactionsTable = "transactions"
)

// Repository is a pipeline.RunRecorder backed by BigQuery. It holds a shared
// client to avoid creating a new connection for each operation.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string

	mu      sync.Mutex
	runDocs map[string]string // run_id -> document_id for runs in flight
}

var _ pipeline.RunRecorder = (*Repository)(nil)

// NewRepository creates a Repository with its own BigQuery client.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return NewRepositoryWithClient(client, projectID, datasetID), nil
}

// NewRepositoryWithClient creates a Repository around an existing client.
func NewRepositoryWithClient(client *bigquery.Client, projectID, datasetID string) *Repository {
	return &Repository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		runDocs:   make(map[string]string),
	}
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// table returns the fully qualified, quoted name of a dataset table.
func (r *Repository) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", r.projectID, r.datasetID, name)
}

// runDML runs a parameterized statement and waits for it to finish. DML is
// used instead of streaming inserts for rows that are updated later.
func (r *Repository) runDML(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := r.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func (r *Repository) documentFor(runID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runDocs[runID]
}

func (r *Repository) forgetRun(runID string) {
	r.mu.Lock()
	delete(r.runDocs, runID)
	r.mu.Unlock()
}
