package pipeline

// Model call parameters and run bookkeeping defaults.
const (
	// ExtractionTemperature keeps decoding close to deterministic.
	ExtractionTemperature = 0.1

	// ExtractionMaxTokens bounds the completion; larger statements may hit it
	// and come back truncated.
	ExtractionMaxTokens = 8000

	// ParserVersion is stored with each run for diagnostics.
	ParserVersion = "v1"

	// MaxErrorMessageLen caps error text persisted with a failed run.
	MaxErrorMessageLen = 2000
)

// Run lifecycle statuses, shared by every RunRecorder.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)
