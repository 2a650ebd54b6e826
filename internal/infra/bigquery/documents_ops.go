package bigquery

import (
	"context"
	"fmt"
)

// InsertDocument inserts a single DocumentRow into the documents table.
func (r *Repository) InsertDocument(ctx context.Context, row *DocumentRow) error {
	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(documentsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertDocument: inserting row: %w", err)
	}
	return nil
}
