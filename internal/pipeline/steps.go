package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
)

// PipelineStep represents a single step in the analysis pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *RunState) error
}

// RunState holds the shared state across all pipeline steps.
type RunState struct {
	RunID      string
	Info       RunInfo
	Document   []byte
	Text       string
	Extraction *ExtractionResult
	Ledger     domain.Ledger
	Bundle     *cashflow.Bundle
}

// Step 1: ReadDocumentStep turns the document bytes into text.
type ReadDocumentStep struct {
	Extractor DocumentTextExtractor
}

func (s *ReadDocumentStep) Execute(ctx context.Context, state *RunState) error {
	text, err := s.Extractor.ExtractText(ctx, state.Document)
	if err != nil {
		return &domain.DocumentReadError{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return &domain.DocumentReadError{Err: errors.New("document contains no text")}
	}
	state.Text = text
	return nil
}

// Step 2: NormalizeTextStep cleans OCR and layout noise.
type NormalizeTextStep struct{}

func (s *NormalizeTextStep) Execute(ctx context.Context, state *RunState) error {
	state.Text = NormalizeText(state.Text)
	return nil
}

// Step 3: ExtractTransactionsStep calls the model for the raw ledger.
type ExtractTransactionsStep struct {
	Extractor TransactionExtractor
}

func (s *ExtractTransactionsStep) Execute(ctx context.Context, state *RunState) error {
	result, err := s.Extractor.Extract(ctx, state.Text)
	if err != nil {
		return err
	}
	state.Extraction = result
	return nil
}

// Step 4: RecordModelOutputStep keeps the raw model output for diagnostics.
type RecordModelOutputStep struct {
	Recorder RunRecorder
}

func (s *RecordModelOutputStep) Execute(ctx context.Context, state *RunState) error {
	if err := s.Recorder.RecordModelOutput(ctx, state.RunID, state.Extraction); err != nil {
		return fmt.Errorf("RecordModelOutputStep: %w", err)
	}
	return nil
}

// Step 5: NormalizeLedgerStep produces the clean ledger.
type NormalizeLedgerStep struct{}

func (s *NormalizeLedgerStep) Execute(ctx context.Context, state *RunState) error {
	ledger, err := NormalizeLedger(state.Extraction.Transactions)
	if err != nil {
		return err
	}
	state.Ledger = ledger
	return nil
}

// Step 6: AggregateStep computes the aggregate bundle.
type AggregateStep struct{}

func (s *AggregateStep) Execute(ctx context.Context, state *RunState) error {
	state.Bundle = cashflow.Aggregate(state.Ledger)
	return nil
}

// Step 7: PersistLedgerStep stores the clean ledger with the run.
type PersistLedgerStep struct {
	Recorder RunRecorder
}

func (s *PersistLedgerStep) Execute(ctx context.Context, state *RunState) error {
	if err := s.Recorder.SaveLedger(ctx, state.RunID, state.Ledger); err != nil {
		return fmt.Errorf("PersistLedgerStep: %w", err)
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially and stops at the
// first failure. Typed domain errors stay reachable through errors.As.
func (p *Pipeline) Execute(ctx context.Context, state *RunState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		start := time.Now()
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
		log.Debug().
			Str("step", stepName(step)).
			Dur("duration", time.Since(start)).
			Msg("Step completed")
	}
	return nil
}

func stepName(step PipelineStep) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", step), "*pipeline.")
}

// NewStatementAnalysisPipeline creates the standard 7-step pipeline.
func NewStatementAnalysisPipeline(documents DocumentTextExtractor, extractor TransactionExtractor, recorder RunRecorder) *Pipeline {
	return NewPipeline(
		&ReadDocumentStep{Extractor: documents},
		&NormalizeTextStep{},
		&ExtractTransactionsStep{Extractor: extractor},
		&RecordModelOutputStep{Recorder: recorder},
		&NormalizeLedgerStep{},
		&AggregateStep{},
		&PersistLedgerStep{Recorder: recorder},
	)
}
