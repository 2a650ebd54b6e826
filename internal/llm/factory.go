package llm

import (
	"context"
	"fmt"

	"github.com/varunidealabs/cash-flow-analyzer/internal/config"
)

// New builds the client for the configured provider. cfg should already
// have passed config.Validate.
func New(ctx context.Context, cfg config.ModelConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderAzure:
		return NewAzureClient(cfg.Endpoint, cfg.APIKey, cfg.APIVersion, cfg.RequestTimeout)
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("llm.New: unknown provider %q", cfg.Provider)
	}
}
