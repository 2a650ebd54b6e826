package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/session"
)

// Runner executes one analysis run per document and records its lifecycle.
// A Runner holds no per-run state and may be shared between goroutines.
type Runner struct {
	documents DocumentTextExtractor
	extractor TransactionExtractor
	recorder  RunRecorder
}

// NewRunner creates a Runner. A nil recorder disables run persistence.
func NewRunner(documents DocumentTextExtractor, extractor TransactionExtractor, recorder RunRecorder) *Runner {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Runner{documents: documents, extractor: extractor, recorder: recorder}
}

// Run analyzes one document. On success the run is marked SUCCESS and a new
// session snapshot is returned; on failure it is marked FAILED and the
// pipeline error is returned unchanged.
func (r *Runner) Run(ctx context.Context, info RunInfo, data []byte) (*session.Session, error) {
	if info.SizeBytes == 0 {
		info.SizeBytes = len(data)
	}

	runID, err := r.recorder.StartRun(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("Run: starting run: %w", err)
	}

	ctx = logger.WithRun(ctx, runID)
	log := logger.FromContext(ctx)
	log.Info().Str("document", info.DocumentName).Int("size_bytes", info.SizeBytes).Msg("Analysis run started")

	state := &RunState{RunID: runID, Info: info, Document: data}
	p := NewStatementAnalysisPipeline(r.documents, r.extractor, r.recorder)

	if err := p.Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("user_message", domain.UserMessage(err)).Msg("Analysis run failed")
		r.recordMalformedOutput(ctx, runID, err)
		r.recorder.MarkRunFailed(ctx, runID, err)
		return nil, err
	}

	if err := r.recorder.MarkRunSucceeded(ctx, runID, len(state.Ledger)); err != nil {
		return nil, fmt.Errorf("Run: marking run succeeded: %w", err)
	}

	log.Info().Int("transactions", len(state.Ledger)).Msg("Analysis run succeeded")
	return session.New(runID, info.DocumentName, state.Ledger, state.Bundle), nil
}

// recordMalformedOutput keeps the unparseable model output of a failed run.
func (r *Runner) recordMalformedOutput(ctx context.Context, runID string, err error) {
	var malformed *domain.MalformedExtractionResponse
	if !errors.As(err, &malformed) {
		return
	}
	out := &ExtractionResult{RawContent: malformed.Raw, FinishReason: malformed.FinishReason}
	if recErr := r.recorder.RecordModelOutput(ctx, runID, out); recErr != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(recErr).Msg("Failed to record malformed model output")
	}
}

// NopRecorder is a RunRecorder that only allocates run IDs.
type NopRecorder struct{}

func (NopRecorder) StartRun(ctx context.Context, info RunInfo) (string, error) {
	return uuid.NewString(), nil
}

func (NopRecorder) RecordModelOutput(ctx context.Context, runID string, out *ExtractionResult) error {
	return nil
}

func (NopRecorder) SaveLedger(ctx context.Context, runID string, ledger domain.Ledger) error {
	return nil
}

func (NopRecorder) MarkRunSucceeded(ctx context.Context, runID string, txCount int) error {
	return nil
}

func (NopRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {}
