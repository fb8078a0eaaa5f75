package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
)

// NewProvider creates the ChatModel selected by configuration.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (core.ChatModel, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.Model), nil
	case "anthropic":
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.Model), nil
	case "openrouter":
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.Model), nil
	case "ollama":
		return NewOllama(cfg.OllamaBaseURL, cfg.OllamaAPIKey, cfg.Model), nil
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model)
	case "custom":
		if cfg.CustomOpenAIBaseURL == "" {
			return nil, fmt.Errorf("custom llm provider requires CUSTOM_OPENAI_BASE_URL")
		}
		return NewCustomOpenAI(cfg.CustomOpenAIBaseURL, cfg.CustomOpenAIAPIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
