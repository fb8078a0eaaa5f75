package core

import "time"

type SentimentLabel string

const (
	SentimentVeryNegative SentimentLabel = "VERY_NEGATIVE"
	SentimentNegative     SentimentLabel = "NEGATIVE"
	SentimentNeutral      SentimentLabel = "NEUTRAL"
	SentimentPositive     SentimentLabel = "POSITIVE"
	SentimentVeryPositive SentimentLabel = "VERY_POSITIVE"
)

func (l SentimentLabel) Valid() bool {
	switch l {
	case SentimentVeryNegative, SentimentNegative, SentimentNeutral, SentimentPositive, SentimentVeryPositive:
		return true
	}
	return false
}

// Priority ranks how urgently a human should look at a conversation.
func (l SentimentLabel) Priority() int {
	switch l {
	case SentimentVeryNegative:
		return 5
	case SentimentNegative:
		return 4
	case SentimentPositive, SentimentVeryPositive:
		return 1
	default:
		return 2
	}
}

type Sentiment struct {
	Label      SentimentLabel `json:"sentiment"`
	Score      float64        `json:"sentimentScore"`
	Emotion    string         `json:"emotion"`
	Confidence float64        `json:"confidence"`
}

func NeutralSentiment() Sentiment {
	return Sentiment{Label: SentimentNeutral, Score: 0, Emotion: "neutral", Confidence: 0}
}

// SuggestionType names the next action a suggestion proposes.
type SuggestionType string

const (
	SuggestUpsell     SuggestionType = "upsell"
	SuggestFollowUp   SuggestionType = "follow-up"
	SuggestSupport    SuggestionType = "support"
	SuggestScheduling SuggestionType = "scheduling"
)

func (t SuggestionType) Valid() bool {
	switch t {
	case SuggestUpsell, SuggestFollowUp, SuggestSupport, SuggestScheduling:
		return true
	}
	return false
}

// Suggestion is a proactive next step proposed for staff, never sent to the customer.
type Suggestion struct {
	Type       SuggestionType `json:"type"`
	Content    string         `json:"content"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

type SchedulingInfo struct {
	CalendlyLink   string   `json:"calendlyLink,omitempty"`
	SuggestedTimes []string `json:"suggestedTimes,omitempty"`
	Message        string   `json:"message"`
	ActionRequired bool     `json:"actionRequired"`
}

// Inbound is one message arriving on a channel for a business.
type Inbound struct {
	BusinessID     string
	Channel        Channel
	Text           string
	Contact        ContactRef
	ConversationID string
	// Language forces the reply language when set.
	Language string
	Payload  *ChannelPayload
}

// Result is the channel-neutral outcome of handling one Inbound.
type Result struct {
	ConversationID string          `json:"conversationId"`
	ContactID      string          `json:"contactId"`
	Reply          string          `json:"reply"`
	ShouldEscalate bool            `json:"shouldEscalate"`
	Language       string          `json:"language"`
	Scheduling     *SchedulingInfo `json:"schedulingInfo,omitempty"`
	Sentiment      Sentiment       `json:"sentiment"`
	WebSearchUsed  bool            `json:"webSearchUsed"`
	Fallback       bool            `json:"fallback,omitempty"`
	Suggestion     *Suggestion     `json:"predictiveSuggestion,omitempty"`
}

type WebResult struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// EscalationNotice is what a human operator receives on hand-off.
type EscalationNotice struct {
	BusinessID     string
	BusinessName   string
	ConversationID string
	EscalationID   string
	Channel        Channel
	Contact        ContactRef
	Reason         string
	LastMessage    string
	Priority       int
	Recipients     []string
	At             time.Time
}

// CRMRecord is what a CRM receives after each handled turn.
type CRMRecord struct {
	BusinessID     string         `json:"businessId"`
	ConversationID string         `json:"conversationId"`
	ContactID      string         `json:"contactId"`
	Contact        ContactRef     `json:"contact"`
	Channel        Channel        `json:"channel"`
	Language       string         `json:"language"`
	Sentiment      SentimentLabel `json:"sentiment"`
	Escalated      bool           `json:"escalated"`
	Suggestion     *Suggestion    `json:"suggestion,omitempty"`
	At             time.Time      `json:"at"`
}

type Summary struct {
	Summary     string         `json:"summary"`
	KeyPoints   []string       `json:"keyPoints"`
	ActionItems []string       `json:"actionItems"`
	Sentiment   SentimentLabel `json:"sentiment"`
	NextSteps   []string       `json:"nextSteps"`
}

// SentimentFromScore buckets a score in [-1, 1] into a label.
func SentimentFromScore(score float64) SentimentLabel {
	switch {
	case score <= -0.6:
		return SentimentVeryNegative
	case score < -0.2:
		return SentimentNegative
	case score <= 0.2:
		return SentimentNeutral
	case score < 0.6:
		return SentimentPositive
	default:
		return SentimentVeryPositive
	}
}
