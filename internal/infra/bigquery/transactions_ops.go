package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
	"google.golang.org/api/iterator"
)

// SaveLedger inserts the clean ledger of a run into the transactions table.
func (r *Repository) SaveLedger(ctx context.Context, runID string, ledger domain.Ledger) error {
	documentID := r.documentFor(runID)
	created := time.Now()

	rows := make([]*TransactionRow, 0, len(ledger))
	for i, tx := range ledger {
		rows = append(rows, toTransactionRow(uuid.NewString(), runID, documentID, i, tx, created))
	}

	if err := r.InsertTransactions(ctx, rows); err != nil {
		return fmt.Errorf("SaveLedger: %w", err)
	}
	return nil
}

// InsertTransactions inserts a batch of TransactionRow.
func (r *Repository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// LoadLedger returns the ledger stored by a successful run, in its original
// order.
func (r *Repository) LoadLedger(ctx context.Context, runID string) (domain.Ledger, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.document_id,
			t.run_id,
			t.position,
			t.transaction_date,
			t.amount,
			t.direction,
			t.description,
			t.category,
			t.year_month,
			t.created_ts
		FROM %s t
		INNER JOIN %s ar
		  ON t.run_id = ar.run_id
		WHERE t.run_id = @run_id
		  AND ar.status = @status
		ORDER BY t.position
	`, r.table(transactionsTable), r.table(analysisRunsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "status", Value: pipeline.RunStatusSuccess},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LoadLedger: query read: %w", err)
	}

	var ledger domain.Ledger
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LoadLedger: iter next: %w", err)
		}
		tx, err := fromTransactionRow(&row)
		if err != nil {
			return nil, fmt.Errorf("LoadLedger: %w", err)
		}
		ledger = append(ledger, tx)
	}

	return ledger, nil
}
