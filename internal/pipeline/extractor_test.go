package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/llm"
)

func stubClient(resp *llm.Response, err error, seen *llm.Request) llm.Client {
	return llm.ClientFunc(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		if seen != nil {
			*seen = req
		}
		return resp, err
	})
}

func TestExtractionClient_Extract(t *testing.T) {
	var req llm.Request
	client := NewExtractionClient(stubClient(&llm.Response{
		Content:      "```json\n" + fullWrapped + "\n```",
		FinishReason: llm.FinishReasonStop,
		Model:        "gpt-4o",
	}, nil, &req))

	result, err := client.Extract(context.Background(), "statement text")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(result.Transactions) != 3 {
		t.Errorf("got %d transactions, want 3", len(result.Transactions))
	}
	if result.Repaired {
		t.Error("Repaired = true for a complete response")
	}
	if result.Model != "gpt-4o" {
		t.Errorf("Model = %q", result.Model)
	}

	if req.Temperature != ExtractionTemperature || req.MaxTokens != ExtractionMaxTokens || !req.JSONMode {
		t.Errorf("unexpected request parameters: %+v", req)
	}
	if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "statement text") {
		t.Errorf("user message does not carry the statement text")
	}
	for _, c := range domain.Categories {
		if !strings.Contains(req.Messages[0].Content, c) {
			t.Errorf("system prompt is missing category %q", c)
		}
	}
}

func TestExtractionClient_Extract_Truncated(t *testing.T) {
	client := NewExtractionClient(stubClient(&llm.Response{
		Content:      fullWrapped[:len(fullWrapped)-40],
		FinishReason: llm.FinishReasonLength,
	}, nil, nil))

	result, err := client.Extract(context.Background(), "text")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !result.Repaired {
		t.Error("Repaired = false for a truncated response")
	}
	if len(result.Transactions) != 2 {
		t.Errorf("got %d transactions, want 2", len(result.Transactions))
	}
}

func TestExtractionClient_Extract_Errors(t *testing.T) {
	tests := []struct {
		name       string
		resp       *llm.Response
		err        error
		wantStatus int
		wantType   string
		wantRaw    string
	}{
		{
			name:       "non-success status",
			err:        &llm.APIError{StatusCode: 500, Body: "upstream down"},
			wantStatus: 500,
			wantType:   "service",
		},
		{
			name:     "transport failure",
			err:      errors.New("connection reset"),
			wantType: "service",
		},
		{
			name:     "invalid json",
			resp:     &llm.Response{Content: "I could not find any transactions.", FinishReason: llm.FinishReasonStop},
			wantType: "malformed",
		},
		{
			name:     "truncated without complete object",
			resp:     &llm.Response{Content: `{"transactions": [{"date": "20`, FinishReason: llm.FinishReasonLength},
			wantType: "malformed",
		},
		{
			name:     "wrong shape",
			resp:     &llm.Response{Content: `{"transactions": 7}`, FinishReason: llm.FinishReasonStop},
			wantType: "malformed",
		},
		{
			name:     "success status with unusable body",
			err:      &llm.EnvelopeError{Body: "<html>gateway hiccup</html>", Err: errors.New("invalid character '<'")},
			wantType: "malformed",
			wantRaw:  "<html>gateway hiccup</html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewExtractionClient(stubClient(tt.resp, tt.err, nil))
			_, err := client.Extract(context.Background(), "text")

			switch tt.wantType {
			case "service":
				var svcErr *domain.ExtractionServiceError
				if !errors.As(err, &svcErr) {
					t.Fatalf("error = %v, want *ExtractionServiceError", err)
				}
				if svcErr.StatusCode != tt.wantStatus {
					t.Errorf("StatusCode = %d, want %d", svcErr.StatusCode, tt.wantStatus)
				}
			case "malformed":
				var malformed *domain.MalformedExtractionResponse
				if !errors.As(err, &malformed) {
					t.Fatalf("error = %v, want *MalformedExtractionResponse", err)
				}
				want := tt.wantRaw
				if tt.resp != nil {
					want = tt.resp.Content
					if malformed.FinishReason != tt.resp.FinishReason {
						t.Errorf("FinishReason = %q, want %q", malformed.FinishReason, tt.resp.FinishReason)
					}
				}
				if malformed.Raw != want {
					t.Errorf("Raw = %q, want %q", malformed.Raw, want)
				}
			}
		})
	}
}

func TestExtractionClient_Extract_HTMLFromService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway hiccup</html>"))
	}))
	defer srv.Close()

	azure, err := llm.NewAzureClient(srv.URL, "key", "2025-01-01-preview", time.Second)
	if err != nil {
		t.Fatal(err)
	}

	_, err = NewExtractionClient(azure).Extract(context.Background(), "text")

	var svcErr *domain.ExtractionServiceError
	if errors.As(err, &svcErr) {
		t.Fatalf("error = %v, want a permanent malformed response", err)
	}
	var malformed *domain.MalformedExtractionResponse
	if !errors.As(err, &malformed) || malformed.Raw != "<html>gateway hiccup</html>" {
		t.Fatalf("error = %v, want *MalformedExtractionResponse with the body", err)
	}
	if !strings.Contains(domain.UserMessage(err), "unreadable response") {
		t.Errorf("UserMessage() = %q", domain.UserMessage(err))
	}
}
