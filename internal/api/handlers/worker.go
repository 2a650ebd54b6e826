package handlers

import (
	"context"

	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/jobs"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
	"github.com/varunidealabs/cash-flow-analyzer/internal/session"
)

// Analyzer runs the analysis pipeline over one document.
type Analyzer interface {
	Run(ctx context.Context, info pipeline.RunInfo, data []byte) (*session.Session, error)
}

// NewAnalyzeJobHandler returns the queue handler that analyzes an uploaded
// statement and publishes the resulting session.
func NewAnalyzeJobHandler(analyzer Analyzer, sessions *session.Store) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
		log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()
		ctx = logger.WithContext(ctx, log)

		log.Info().
			Str("document", job.DocumentName).
			Str("source_uri", job.SourceURI).
			Int("attempt", job.RetryCount+1).
			Msg("Processing analysis job")

		s, err := analyzer.Run(ctx, pipeline.RunInfo{
			DocumentName: job.DocumentName,
			ContentType:  job.ContentType,
			SourceURI:    job.SourceURI,
			SizeBytes:    job.SizeBytes,
		}, job.Data)
		if err != nil {
			job.Error = domain.UserMessage(err)
			return jobs.Classify(err)
		}

		sessions.Put(s)
		job.SessionID = s.ID
		job.Error = ""

		log.Info().
			Str("session_id", s.ID).
			Int("transactions", len(s.Ledger)).
			Msg("Analysis job completed")
		return nil
	}
}
