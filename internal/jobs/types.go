package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeAnalyzeStatement runs the analysis pipeline over one uploaded statement.
	JobTypeAnalyzeStatement JobType = "analyze_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries applies when a job is published without MaxRetries.
const DefaultMaxRetries = 3

// AnalyzeStatementJob is one uploaded statement waiting to be analyzed.
type AnalyzeStatementJob struct {
	JobID string `json:"job_id"`

	DocumentName string `json:"document_name"`
	ContentType  string `json:"content_type"`
	SizeBytes    int    `json:"size_bytes"`

	// SourceURI is the gs:// copy of the upload, when one was made.
	SourceURI string `json:"source_uri,omitempty"`

	// Data holds the uploaded bytes until the job reaches a final status.
	Data []byte `json:"-"`

	// SessionID is set once the run succeeds.
	SessionID string `json:"session_id,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error is the user-facing failure message.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Type returns the job type.
func (j *AnalyzeStatementJob) Type() JobType {
	return JobTypeAnalyzeStatement
}

// Done reports whether the job has reached a final status.
func (j *AnalyzeStatementJob) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishAnalyzeStatement enqueues a statement for analysis.
	PublishAnalyzeStatement(ctx context.Context, job *AnalyzeStatementJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. Errors wrapped with Permanent are not retried.
// The handler may set fields such as SessionID on the job.
type JobHandler func(ctx context.Context, job *AnalyzeStatementJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *AnalyzeStatementJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*AnalyzeStatementJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*AnalyzeStatementJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	DocumentName string
	Status       JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
