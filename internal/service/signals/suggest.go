package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/conv"
	"github.com/sandevgo/replydesk/pkg/log"
)

const suggestionPrompt = `You are a predictive analytics assistant. Analyze conversation patterns and suggest next actions.

Based on the conversation history and current context, suggest ONE of the following:
- "upsell": If there's an opportunity to suggest additional services/products
- "follow-up": If a follow-up message would be valuable
- "support": If proactive support would help
- "scheduling": If scheduling a call/meeting would be beneficial
- null: If no suggestion is appropriate

Return JSON with: type, content (suggestion text), confidence (0-1), reasoning`

// suggestionWindow is how many trailing messages the suggester reads.
const suggestionWindow = 10

// Suggester proposes a next action for staff from the conversation so far.
type Suggester struct {
	model   core.ChatModel
	timeout time.Duration
}

func NewSuggester(model core.ChatModel, timeout time.Duration) *Suggester {
	return &Suggester{model: model, timeout: timeout}
}

type suggestionResponse struct {
	Type       *string         `json:"type"`
	Content    string          `json:"content"`
	Confidence json.RawMessage `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

// Suggest returns nil when the model has nothing to propose or fails.
func (s *Suggester) Suggest(ctx context.Context, services []string, msgs []core.StoredMessage) *core.Suggestion {
	if len(msgs) > suggestionWindow {
		msgs = msgs[len(msgs)-suggestionWindow:]
	}
	if len(msgs) == 0 {
		return nil
	}

	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
	}
	var sb strings.Builder
	if len(services) > 0 {
		fmt.Fprintf(&sb, "Services offered: %s\n\n", strings.Join(services, ", "))
	}
	fmt.Fprintf(&sb, "Recent Context:\n%s\n\nWhat should we suggest next?", strings.Join(lines, "\n"))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.model.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: suggestionPrompt},
		{Role: core.RoleUser, Content: sb.String()},
	}, core.ChatOptions{Temperature: core.Temperature(0.7), JSON: true})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("suggestion failed")
		return nil
	}

	sug, err := parseSuggestion(resp.Content)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("suggestion response unreadable")
		return nil
	}
	return sug
}

func parseSuggestion(raw string) (*core.Suggestion, error) {
	var r suggestionResponse
	if err := json.Unmarshal([]byte(conv.StripCodeFence(raw)), &r); err != nil {
		return nil, fmt.Errorf("decode suggestion: %w", err)
	}
	if r.Type == nil {
		return nil, nil
	}

	t := core.SuggestionType(strings.ToLower(strings.TrimSpace(*r.Type)))
	if t == "followup" || t == "follow_up" {
		t = core.SuggestFollowUp
	}
	if !t.Valid() {
		return nil, nil
	}

	return &core.Suggestion{
		Type:       t,
		Content:    strings.TrimSpace(r.Content),
		Confidence: parseConfidence(r.Confidence),
		Reasoning:  strings.TrimSpace(r.Reasoning),
	}, nil
}

// parseConfidence accepts a number or a numeric string and defaults to 0.5.
func parseConfidence(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0.5
	}
	return clamp(v, 0, 1)
}
