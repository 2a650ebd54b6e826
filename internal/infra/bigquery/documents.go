package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
)

type DocumentRow struct {
	DocumentID string `bigquery:"document_id"` // REQUIRED
	GCSURI     string `bigquery:"gcs_uri"`     // NULLABLE

	OriginalFilename string `bigquery:"original_filename"` // REQUIRED
	FileMimeType     string `bigquery:"file_mime_type"`    // NULLABLE
	SizeBytes        int64  `bigquery:"size_bytes"`        // NULLABLE

	UploadTS time.Time `bigquery:"upload_ts"` // REQUIRED

	Metadata bigquery.NullJSON `bigquery:"metadata"` // NULLABLE
}

func newDocumentRow(documentID string, info pipeline.RunInfo, uploaded time.Time) *DocumentRow {
	return &DocumentRow{
		DocumentID:       documentID,
		GCSURI:           info.SourceURI,
		OriginalFilename: info.DocumentName,
		FileMimeType:     info.ContentType,
		SizeBytes:        int64(info.SizeBytes),
		UploadTS:         uploaded,
	}
}
