package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

// ErrJobNotFound is returned by stores for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Classify wraps run failures that will fail the same way again with
// Permanent. Service outages, rate limiting and unknown errors stay retryable.
func Classify(err error) error {
	if err == nil || IsPermanent(err) {
		return err
	}

	var docErr *domain.DocumentReadError
	var svcErr *domain.ExtractionServiceError
	var malformed *domain.MalformedExtractionResponse
	var empty *domain.EmptyLedgerError

	switch {
	case errors.Is(err, context.Canceled):
		return Permanent(err)
	case errors.As(err, &docErr), errors.As(err, &malformed), errors.As(err, &empty):
		return Permanent(err)
	case errors.As(err, &svcErr):
		if svcErr.Temporary() {
			return err
		}
		return Permanent(err)
	}
	return err
}

// NotFound wraps ErrJobNotFound with the job ID.
func NotFound(jobID string) error {
	return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
}
