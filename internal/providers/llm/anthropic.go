package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandevgo/replydesk/internal/core"
)

const anthropicDefaultMaxTokens = 1024

type Anthropic struct {
	baseProvider
}

func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		baseProvider: newBaseProvider("https://api.anthropic.com", apiKey, model),
	}
}

func (a *Anthropic) Chat(ctx context.Context, history []core.Message, opts core.ChatOptions) (core.Message, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	// System turns go in the top-level system field.
	var system []string
	var messages []msg
	for _, m := range history {
		if m.Role == core.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		messages = append(messages, msg{Role: m.Role, Content: m.Content})
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	payload := map[string]any{
		"model":      a.model,
		"max_tokens": maxTokens,
		"messages":   messages,
	}
	if len(system) > 0 {
		payload["system"] = strings.Join(system, "\n\n")
	}
	if opts.Temperature != nil {
		payload["temperature"] = *opts.Temperature
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	}

	data, err := a.postJSON(ctx, "/v1/messages", payload, headers)
	if err != nil {
		return core.Message{}, err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("decode: %w", err)
	}

	var text strings.Builder
	for _, c := range result.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return core.Message{Role: core.RoleAssistant, Content: text.String()}, nil
}
