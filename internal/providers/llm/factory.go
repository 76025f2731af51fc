package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/bobbin/internal/config"
	"github.com/sandevgo/bobbin/internal/core"
	"github.com/sandevgo/bobbin/pkg/log"
)

// NewClient creates the configured ChatClient.
func NewClient(ctx context.Context, cfg *config.LLMConfig) (core.ChatClient, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	switch cfg.Provider {
	case "openrouter":
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.Model), nil
	case "openai":
		return NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL:    "https://api.openai.com",
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.Model,
			AuthHeader: "Authorization",
			AuthPrefix: "Bearer ",
		}), nil
	case "ollama":
		return NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL:    cfg.OllamaBaseURL,
			APIKey:     cfg.OllamaAPIKey,
			Model:      cfg.Model,
			AuthHeader: "Authorization",
			AuthPrefix: "Bearer ",
		}), nil
	case "custom":
		return NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL:    cfg.CustomBaseURL,
			APIKey:     cfg.CustomAPIKey,
			Model:      cfg.Model,
			AuthHeader: "Authorization",
			AuthPrefix: "Bearer ",
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
