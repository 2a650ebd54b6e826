package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ContentGenerator is the subset of *genai.Models used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient sends requests to Gemini. Credentials come from the
// environment (GOOGLE_API_KEY or Vertex AI settings) as genai resolves them.
type GeminiClient struct {
	models ContentGenerator
	model  string
}

// NewGeminiClient creates a client backed by the genai SDK.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	return NewGeminiClientWithGenerator(client.Models, model), nil
}

// NewGeminiClientWithGenerator wires an existing generator, mainly for tests.
func NewGeminiClientWithGenerator(models ContentGenerator, model string) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{models: models, model: model}
}

// Send maps the chat request onto a single GenerateContent call. System
// messages become the system instruction.
func (c *GeminiClient) Send(ctx context.Context, req Request) (*Response, error) {
	var system []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}
	if len(contents) == 0 {
		return nil, errors.New("llm: request has no user content")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     float32Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: generate content: %w", err)
	}
	return c.toResponse(resp), nil
}

// TranscribeDocument asks the model for the plain text of a binary document.
func (c *GeminiClient) TranscribeDocument(ctx context.Context, data []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: "Transcribe the full text of this bank statement. " +
					"Keep every line, date and amount exactly as printed. Output plain text only."},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		Temperature: float32Ptr(0),
	})
	if err != nil {
		return "", fmt.Errorf("TranscribeDocument: generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("TranscribeDocument: empty response from model")
	}
	return text, nil
}

func (c *GeminiClient) toResponse(resp *genai.GenerateContentResponse) *Response {
	out := &Response{
		Content: resp.Text(),
		Model:   c.model,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		switch resp.Candidates[0].FinishReason {
		case genai.FinishReasonMaxTokens:
			out.FinishReason = FinishReasonLength
		case genai.FinishReasonStop:
			out.FinishReason = FinishReasonStop
		default:
			out.FinishReason = strings.ToLower(string(resp.Candidates[0].FinishReason))
		}
	}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out
}

func float32Ptr(v float32) *float32 {
	return &v
}
