package domain

import (
	"errors"
	"fmt"
)

// DocumentReadError means the document could not be turned into text.
type DocumentReadError struct {
	Err error
}

func (e *DocumentReadError) Error() string {
	return fmt.Sprintf("document read failed: %v", e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }

// ExtractionServiceError is a non-success response from the extraction
// service. The body is kept verbatim for diagnostics.
type ExtractionServiceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ExtractionServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("extraction service call failed: %v", e.Err)
	}
	return fmt.Sprintf("extraction service returned status %d: %s", e.StatusCode, e.Body)
}

func (e *ExtractionServiceError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the whole run may succeed.
func (e *ExtractionServiceError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// MalformedExtractionResponse means the model output was not valid JSON,
// even after truncation repair. Raw holds the unmodified content.
type MalformedExtractionResponse struct {
	Raw          string
	FinishReason string
	Err          error
}

func (e *MalformedExtractionResponse) Error() string {
	return fmt.Sprintf("malformed extraction response: %v", e.Err)
}

func (e *MalformedExtractionResponse) Unwrap() error { return e.Err }

// EmptyLedgerError means extraction succeeded but produced no transactions.
type EmptyLedgerError struct{}

func (e *EmptyLedgerError) Error() string {
	return "no transactions found in statement"
}

// UserMessage maps a run failure to a short message suitable for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var docErr *DocumentReadError
	var svcErr *ExtractionServiceError
	var malformed *MalformedExtractionResponse
	var empty *EmptyLedgerError

	switch {
	case errors.As(err, &docErr):
		return "The document could not be read. Please check that it is a valid PDF or text statement."
	case errors.As(err, &svcErr):
		return "The extraction service is unavailable right now. Please try again later."
	case errors.As(err, &malformed):
		return "The extraction service returned an unreadable response. Please try again."
	case errors.As(err, &empty):
		return "No transactions were found in this document. Please try a different statement."
	default:
		return "The statement could not be analyzed."
	}
}
