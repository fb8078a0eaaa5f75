package summary

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

const summaryPrompt = `You are a conversation summarization expert. Analyze the conversation and provide:
1. A concise summary (2-3 sentences)
2. Key points discussed (bullet list)
3. Action items (if any)
4. Overall sentiment
5. Recommended next steps

Return as JSON with: summary, keyPoints (array), actionItems (array), sentiment (one of VERY_NEGATIVE, NEGATIVE, NEUTRAL, POSITIVE, VERY_POSITIVE), nextSteps (array)`

// maxMessages bounds how much of a conversation is sent for summarization.
const maxMessages = 200

type Repository interface {
	GetConversation(ctx context.Context, id string) (*core.Conversation, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]core.StoredMessage, error)
	SetSummary(ctx context.Context, id, summary string) error
}

// Scorer rates the customer side of a whole conversation.
type Scorer interface {
	AnalyzeConversation(ctx context.Context, msgs []core.StoredMessage) core.Sentiment
}

type Service struct {
	repo    Repository
	model   core.ChatModel
	scorer  Scorer
	timeout time.Duration
}

func NewService(repo Repository, model core.ChatModel, timeout time.Duration) *Service {
	return &Service{repo: repo, model: model, timeout: timeout}
}

// WithScorer makes Summarize take the overall sentiment from a dedicated
// conversation score instead of the summary model's guess.
func (s *Service) WithScorer(scorer Scorer) *Service {
	s.scorer = scorer
	return s
}

// Summarize asks the model for a structured summary of a conversation owned
// by businessID and stores the summary text on the conversation.
func (s *Service) Summarize(ctx context.Context, businessID, conversationID string) (*core.Summary, error) {
	c, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if c.BusinessID != businessID {
		return nil, core.NotFound("conversation", conversationID)
	}

	msgs, err := s.repo.RecentMessages(ctx, conversationID, maxMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil, core.InvalidInput("conversation %s has no messages", conversationID)
	}

	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
	}

	genCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.model.Chat(genCtx, []core.Message{
		{Role: core.RoleSystem, Content: summaryPrompt},
		{Role: core.RoleUser, Content: "Summarize this conversation:\n\n" + strings.Join(lines, "\n")},
	}, core.ChatOptions{Temperature: core.Temperature(0.3), JSON: true})
	if err != nil {
		return nil, core.ProviderFailure("summarization", err)
	}

	sum, err := parse(resp.Content)
	if err != nil {
		return nil, core.ProviderFailure("summarization", err)
	}

	if s.scorer != nil {
		if score := s.scorer.AnalyzeConversation(ctx, msgs); score.Confidence > 0 {
			sum.Sentiment = score.Label
		}
	}

	if err := s.repo.SetSummary(ctx, conversationID, sum.Summary); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("conversation_id", conversationID).Msg("failed to store summary")
	}
	return sum, nil
}

func parse(raw string) (*core.Summary, error) {
	var sum core.Summary
	if err := json.Unmarshal([]byte(conv.StripCodeFence(raw)), &sum); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if strings.TrimSpace(sum.Summary) == "" {
		sum.Summary = "No summary available"
	}
	sum.Sentiment = core.SentimentLabel(strings.ToUpper(string(sum.Sentiment)))
	if !sum.Sentiment.Valid() {
		sum.Sentiment = core.SentimentNeutral
	}
	if sum.KeyPoints == nil {
		sum.KeyPoints = []string{}
	}
	if sum.ActionItems == nil {
		sum.ActionItems = []string{}
	}
	if sum.NextSteps == nil {
		sum.NextSteps = []string{}
	}
	return &sum, nil
}
