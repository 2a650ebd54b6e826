package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodySize = 8 << 20

// AzureClient calls an Azure OpenAI chat-completions deployment.
// Endpoint is the full deployment URL without the api-version query.
type AzureClient struct {
	endpoint   string
	apiKey     string
	apiVersion string
	timeout    time.Duration
	http       *http.Client
}

// NewAzureClient creates a client. All three settings must be non-empty.
func NewAzureClient(endpoint, apiKey, apiVersion string, timeout time.Duration) (*AzureClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	apiKey = strings.TrimSpace(apiKey)
	apiVersion = strings.TrimSpace(apiVersion)
	if endpoint == "" || apiKey == "" || apiVersion == "" {
		return nil, errors.New("llm: endpoint, api key and api version are required")
	}
	return &AzureClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		apiVersion: apiVersion,
		timeout:    timeout,
		http:       &http.Client{},
	}, nil
}

type chatRequest struct {
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Send posts the request. A non-2xx status returns *APIError with the body;
// a 2xx body that is not a completion returns *EnvelopeError.
func (c *AzureClient) Send(ctx context.Context, req Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload := chatRequest{
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("llm: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &EnvelopeError{Body: string(respBody), Err: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &EnvelopeError{Body: string(respBody), Err: errors.New("response has no choices")}
	}

	choice := parsed.Choices[0]
	return &Response{
		Content:          choice.Message.Content,
		FinishReason:     choice.FinishReason,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		Model:            parsed.Model,
	}, nil
}

func (c *AzureClient) requestURL() string {
	sep := "?"
	if strings.Contains(c.endpoint, "?") {
		sep = "&"
	}
	return c.endpoint + sep + "api-version=" + url.QueryEscape(c.apiVersion)
}
