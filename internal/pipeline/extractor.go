package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/llm"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
)

// ExtractionResult is the raw ledger produced by one extraction call,
// together with what the model actually returned.
type ExtractionResult struct {
	Transactions []domain.RawTransaction

	RawContent   string
	FinishReason string
	// Repaired is set when the content was cut at the token limit and had
	// to be re-closed before it parsed.
	Repaired bool

	Model            string
	PromptTokens     int
	CompletionTokens int
}

// ExtractionClient turns normalized statement text into raw transactions
// with a single model call. It never retries; callers own retry policy.
type ExtractionClient struct {
	client llm.Client
}

// NewExtractionClient creates a new ExtractionClient.
func NewExtractionClient(client llm.Client) *ExtractionClient {
	return &ExtractionClient{client: client}
}

// Extract sends the text for extraction and parses the response.
//
// Failures map onto the domain error types: a transport or non-2xx failure
// is *domain.ExtractionServiceError; an unusable 2xx body, or content that
// is not valid JSON even after truncation repair, is
// *domain.MalformedExtractionResponse.
func (c *ExtractionClient) Extract(ctx context.Context, text string) (*ExtractionResult, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	resp, err := c.client.Send(ctx, llm.Request{
		Messages:    buildExtractionMessages(text),
		Temperature: ExtractionTemperature,
		MaxTokens:   ExtractionMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			return nil, &domain.ExtractionServiceError{StatusCode: apiErr.StatusCode, Body: apiErr.Body, Err: err}
		}
		var envErr *llm.EnvelopeError
		if errors.As(err, &envErr) {
			return nil, &domain.MalformedExtractionResponse{Raw: envErr.Body, Err: err}
		}
		return nil, &domain.ExtractionServiceError{Err: err}
	}

	result := &ExtractionResult{
		RawContent:       resp.Content,
		FinishReason:     resp.FinishReason,
		Model:            resp.Model,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
	}

	parsed, repaired, err := parseExtractionContent(resp.Content, resp.Truncated())
	if err != nil {
		return nil, &domain.MalformedExtractionResponse{Raw: resp.Content, FinishReason: resp.FinishReason, Err: err}
	}
	result.Repaired = repaired

	txs, err := transformModelOutput(parsed)
	if err != nil {
		return nil, &domain.MalformedExtractionResponse{Raw: resp.Content, FinishReason: resp.FinishReason, Err: err}
	}
	result.Transactions = txs

	log.Info().
		Str("finish_reason", resp.FinishReason).
		Bool("repaired", repaired).
		Int("transactions", len(txs)).
		Dur("duration", time.Since(start)).
		Msg("Extraction response parsed")

	return result, nil
}

// parseExtractionContent decodes the model content. Repair is attempted
// only for output the service flagged as truncated.
func parseExtractionContent(content string, truncated bool) (interface{}, bool, error) {
	clean := cleanModelJSON(content)

	parsed, parseErr := decodeModelJSON(clean)
	if parseErr == nil {
		return parsed, false, nil
	}
	if !truncated {
		return nil, false, parseErr
	}

	parsed, err := repairTruncatedJSON(clean)
	if err != nil {
		return nil, false, errors.Join(parseErr, err)
	}
	return parsed, true, nil
}
