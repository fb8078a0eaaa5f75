package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sandevgo/replydesk/internal/core"
)

type OpenAICompatible struct {
	baseProvider
	authHeader   string
	authPrefix   string
	extraHeaders map[string]string
	jsonMode     bool
}

type OpenAICompatibleConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	AuthHeader   string // e.g., "Authorization"
	AuthPrefix   string // e.g., "Bearer "
	ExtraHeaders map[string]string
	// JSONMode enables response_format json_object when a call asks for JSON.
	JSONMode bool
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	return &OpenAICompatible{
		baseProvider: newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.Model),
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		extraHeaders: cfg.ExtraHeaders,
		jsonMode:     cfg.JSONMode,
	}
}

func (o *OpenAICompatible) Chat(ctx context.Context, history []core.Message, opts core.ChatOptions) (core.Message, error) {
	payload := map[string]any{
		"model":    o.model,
		"messages": history,
	}
	if opts.Temperature != nil {
		payload["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}
	if opts.JSON && o.jsonMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	headers := make(map[string]string)
	if o.authHeader != "" && o.apiKey != "" {
		headers[o.authHeader] = o.authPrefix + o.apiKey
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}

	data, err := o.postJSON(ctx, "/v1/chat/completions", payload, headers)
	if err != nil {
		return core.Message{}, err
	}
	return parseOpenAIResponse(data)
}

func parseOpenAIResponse(data []byte) (core.Message, error) {
	var result struct {
		Choices []struct {
			Message core.Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return core.Message{}, fmt.Errorf("empty choices: %s", truncate(string(data), 256))
	}
	msg := result.Choices[0].Message
	if msg.Role == "" {
		msg.Role = core.RoleAssistant
	}
	return msg, nil
}

// NewOpenAI targets api.openai.com.
func NewOpenAI(apiKey, model string) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:    "https://api.openai.com",
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
		JSONMode:   true,
	})
}

func NewOpenRouter(apiKey, model string) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:    "https://openrouter.ai/api",
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
		ExtraHeaders: map[string]string{
			"X-Title": core.AppName,
		},
	})
}

func NewOllama(baseURL, apiKey, model string) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
		JSONMode:   true,
	})
}

func NewCustomOpenAI(baseURL, apiKey, model string) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
	})
}
