package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/conv"
	"github.com/sandevgo/replydesk/pkg/log"
)

const sentimentPrompt = `You are a sentiment analysis expert. Analyze the sentiment and emotion of the given text.
Return a JSON object with:
- sentiment: "VERY_NEGATIVE", "NEGATIVE", "NEUTRAL", "POSITIVE", or "VERY_POSITIVE"
- sentimentScore: a number between -1 (very negative) and 1 (very positive)
- emotion: a single word describing the primary emotion (e.g., "happy", "frustrated", "angry", "satisfied", "neutral", "excited", "disappointed")
- confidence: a number between 0 and 1 indicating confidence in the analysis`

// conversationWindow is how many trailing messages conversation analysis reads.
const conversationWindow = 10

// SentimentAnalyzer scores text through a chat model. It never returns an
// error; failures yield core.NeutralSentiment.
type SentimentAnalyzer struct {
	model   core.ChatModel
	timeout time.Duration
}

func NewSentimentAnalyzer(model core.ChatModel, timeout time.Duration) *SentimentAnalyzer {
	return &SentimentAnalyzer{model: model, timeout: timeout}
}

type sentimentResponse struct {
	Sentiment      string   `json:"sentiment"`
	SentimentScore *float64 `json:"sentimentScore"`
	Emotion        string   `json:"emotion"`
	Confidence     *float64 `json:"confidence"`
}

func (a *SentimentAnalyzer) Analyze(ctx context.Context, text string) core.Sentiment {
	if strings.TrimSpace(text) == "" {
		return core.NeutralSentiment()
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.model.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: sentimentPrompt},
		{Role: core.RoleUser, Content: text},
	}, core.ChatOptions{Temperature: core.Temperature(0.3), JSON: true})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("sentiment analysis failed")
		return core.NeutralSentiment()
	}

	s, err := parseSentiment(resp.Content)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("sentiment response unreadable")
		return core.NeutralSentiment()
	}
	return s
}

// AnalyzeConversation scores the user side of the last few messages as one text.
func (a *SentimentAnalyzer) AnalyzeConversation(ctx context.Context, msgs []core.StoredMessage) core.Sentiment {
	if len(msgs) > conversationWindow {
		msgs = msgs[len(msgs)-conversationWindow:]
	}
	var lines []string
	for _, m := range msgs {
		if m.Role == core.MessageRoleUser {
			lines = append(lines, m.Content)
		}
	}
	if len(lines) == 0 {
		return core.NeutralSentiment()
	}
	return a.Analyze(ctx, strings.Join(lines, "\n"))
}

func parseSentiment(raw string) (core.Sentiment, error) {
	var r sentimentResponse
	if err := json.Unmarshal([]byte(conv.StripCodeFence(raw)), &r); err != nil {
		return core.Sentiment{}, fmt.Errorf("decode sentiment: %w", err)
	}

	s := core.Sentiment{
		Label:      core.SentimentLabel(strings.ToUpper(strings.TrimSpace(r.Sentiment))),
		Emotion:    strings.ToLower(strings.TrimSpace(r.Emotion)),
		Confidence: 0.5,
	}
	if r.SentimentScore != nil {
		s.Score = clamp(*r.SentimentScore, -1, 1)
	}
	if r.Confidence != nil {
		s.Confidence = clamp(*r.Confidence, 0, 1)
	}
	if !s.Label.Valid() {
		s.Label = core.SentimentFromScore(s.Score)
	}
	if s.Emotion == "" {
		s.Emotion = "neutral"
	}
	return s, nil
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
