package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/retry"
)

// Gemini talks to the Gemini API through the eino chat model component.
// JSON calls go straight to genai so the response MIME type can be pinned.
type Gemini struct {
	cm      *gemini.ChatModel
	client  *genai.Client
	model   string
	retrier *retry.Retrier
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: client,
		Model:  modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini chat model: %w", err)
	}

	return &Gemini{cm: cm, client: client, model: modelName, retrier: retry.NewSingleRetrier()}, nil
}

func (g *Gemini) Chat(ctx context.Context, history []core.Message, opts core.ChatOptions) (core.Message, error) {
	if opts.JSON {
		return g.chatJSON(ctx, history, opts)
	}
	in := toSchemaMessages(history)

	var callOpts []model.Option
	if opts.Temperature != nil {
		callOpts = append(callOpts, model.WithTemperature(*opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, model.WithMaxTokens(opts.MaxTokens))
	}

	var out *schema.Message
	err := g.retrier.Do(ctx, func() error {
		var err error
		out, err = g.cm.Generate(ctx, in, callOpts...)
		return err
	})
	if err != nil {
		return core.Message{}, fmt.Errorf("gemini generate: %w", err)
	}
	return core.Message{Role: core.RoleAssistant, Content: out.Content}, nil
}

func (g *Gemini) chatJSON(ctx context.Context, history []core.Message, opts core.ChatOptions) (core.Message, error) {
	contents, cfg := jsonRequest(history, opts)

	var out *genai.GenerateContentResponse
	err := g.retrier.Do(ctx, func() error {
		var err error
		out, err = g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
		return err
	})
	if err != nil {
		return core.Message{}, fmt.Errorf("gemini generate json: %w", err)
	}
	return core.Message{Role: core.RoleAssistant, Content: out.Text()}, nil
}

// jsonRequest hoists system turns into the system instruction and asks for
// an application/json response.
func jsonRequest(history []core.Message, opts core.ChatOptions) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	var system []string
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case core.RoleSystem:
			system = append(system, m.Content)
		case core.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, cfg
}

func toSchemaMessages(history []core.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case core.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}
