package pipeline

import (
	"context"
	"unicode/utf8"

	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

// DocumentTextExtractor converts an uploaded document into a single text blob.
type DocumentTextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// TransactionExtractor provides an interface for model-backed extraction.
// This interface enables tests to stub the model call.
type TransactionExtractor interface {
	Extract(ctx context.Context, text string) (*ExtractionResult, error)
}

// RunInfo describes the document a run was started for.
type RunInfo struct {
	DocumentName string
	ContentType  string
	SourceURI    string // gs:// copy of the document, when one was stored
	SizeBytes    int
}

// RunRecorder persists the lifecycle of an analysis run: RUNNING on start,
// then SUCCESS or FAILED. Implementations live in internal/history (sqlite)
// and internal/infra/bigquery.
type RunRecorder interface {
	StartRun(ctx context.Context, info RunInfo) (runID string, err error)
	RecordModelOutput(ctx context.Context, runID string, out *ExtractionResult) error
	SaveLedger(ctx context.Context, runID string, ledger domain.Ledger) error
	MarkRunSucceeded(ctx context.Context, runID string, txCount int) error
	// MarkRunFailed is best-effort and only logs its own failures.
	MarkRunFailed(ctx context.Context, runID string, runErr error)
}

// ErrorMessage renders a run error for storage, capped at MaxErrorMessageLen.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= MaxErrorMessageLen {
		return msg
	}
	cut := MaxErrorMessageLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
