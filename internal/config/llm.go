package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/replydesk/pkg/log"
)

type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"openai"`
	Model    string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	OpenAIAPIKey        string `env:"OPENAI_API_KEY" secret:"true"`
	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY" secret:"true"`
	OpenRouterAPIKey    string `env:"OPENROUTER_API_KEY" secret:"true"`
	GeminiAPIKey        string `env:"GEMINI_API_KEY" secret:"true"`
	OllamaBaseURL       string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaAPIKey        string `env:"OLLAMA_API_KEY" secret:"true"`
	CustomOpenAIBaseURL string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomOpenAIAPIKey  string `env:"CUSTOM_OPENAI_API_KEY" secret:"true"`

	// Per-call bounds on the reply path. Together they must stay below
	// REPLYDESK_REQUEST_TIMEOUT.
	GenerationTimeout time.Duration `env:"LLM_GENERATION_TIMEOUT" envDefault:"8s"`
	AnalysisTimeout   time.Duration `env:"LLM_ANALYSIS_TIMEOUT" envDefault:"4s"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	return c
}
