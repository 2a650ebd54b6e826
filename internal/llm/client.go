// Package llm is the narrow boundary to the hosted language models used for
// transaction extraction and insight generation.
package llm

import (
	"context"
	"fmt"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"

	// FinishReasonLength marks output that was cut off at max_tokens.
	FinishReasonLength = "length"
	FinishReasonStop   = "stop"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single structured-output call.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// JSONMode asks the service to emit a single JSON object.
	JSONMode bool
}

// Response is the first choice of a completion.
type Response struct {
	Content      string
	FinishReason string

	// Token usage, when reported by the service.
	PromptTokens     int
	CompletionTokens int

	Model string
}

// Truncated reports whether the service stopped because of the token limit.
func (r *Response) Truncated() bool {
	return r != nil && r.FinishReason == FinishReasonLength
}

// Client sends one request and returns the structured response. Callers own
// retry policy; implementations never retry.
type Client interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// APIError is a non-success HTTP response from a model service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm: unexpected status %d: %s", e.StatusCode, e.Body)
}

// EnvelopeError is a success response whose body is not a usable
// completion. Body holds the raw response.
type EnvelopeError struct {
	Body string
	Err  error
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("llm: malformed response envelope: %v", e.Err)
}

func (e *EnvelopeError) Unwrap() error { return e.Err }

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

func (f ClientFunc) Send(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
