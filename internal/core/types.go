package core

import (
	"strings"
	"time"
)

const (
	AppName      = "replydesk"
	AppUserAgent = "replydesk/0.1"
	AppVersion   = "0.1.0"
)

// DefaultLanguage is the canonical language replies are written in before translation.
const DefaultLanguage = "en"

type Channel string

const (
	ChannelVoice Channel = "VOICE"
	ChannelSMS   Channel = "SMS"
	ChannelEmail Channel = "EMAIL"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelVoice, ChannelSMS, ChannelEmail:
		return true
	}
	return false
}

// ParseChannel accepts any casing of a channel name.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", InvalidInput("unknown channel %q", s)
	}
	return c, nil
}

type ConversationStatus string

const (
	StatusOpen      ConversationStatus = "OPEN"
	StatusResolved  ConversationStatus = "RESOLVED"
	StatusEscalated ConversationStatus = "ESCALATED"
)

func (s ConversationStatus) Terminal() bool {
	return s == StatusResolved || s == StatusEscalated
}

// MessageRole is the persisted author of a conversation turn.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "USER"
	MessageRoleAssistant MessageRole = "ASSISTANT"
	MessageRoleSystem    MessageRole = "SYSTEM"
)

// ChatRole maps a persisted role onto the chat-completion role names.
func (r MessageRole) ChatRole() string {
	switch r {
	case MessageRoleAssistant:
		return RoleAssistant
	case MessageRoleSystem:
		return RoleSystem
	default:
		return RoleUser
	}
}

// ContactPreferences is the free-form preference blob kept per contact.
type ContactPreferences struct {
	Language         string            `json:"language,omitempty"`
	PreferredChannel Channel           `json:"preferredChannel,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"`
}

type Contact struct {
	ID                string
	BusinessID        string
	Phone             string
	Email             string
	Name              string
	Preferences       ContactPreferences
	TotalInteractions int
	LastInteractionAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ContactRef identifies the sender of an inbound message. At least one of
// Phone or Email must be set.
type ContactRef struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

func (r ContactRef) Empty() bool {
	return strings.TrimSpace(r.Phone) == "" && strings.TrimSpace(r.Email) == ""
}

type Conversation struct {
	ID         string
	BusinessID string
	ContactID  string
	Channel    Channel
	Status     ConversationStatus
	Language   string
	// Rolling sentiment over analysed user messages.
	Sentiment      SentimentLabel
	SentimentScore float64
	Priority       int
	SentimentCount int
	Summary        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type StoredMessage struct {
	ID             string
	ConversationID string
	Role           MessageRole
	Content        string
	Metadata       Metadata
	CreatedAt      time.Time
}

type Escalation struct {
	ID             string
	ConversationID string
	BusinessID     string
	Reason         string
	CreatedAt      time.Time
}

type KnowledgeKind string

const (
	KnowledgeFAQ KnowledgeKind = "FAQ"
	KnowledgeDoc KnowledgeKind = "DOC"
)

type KnowledgeItem struct {
	ID         string
	BusinessID string
	Kind       KnowledgeKind
	Title      string
	Question   string
	Answer     string
	Content    string
	Source     string
	CreatedAt  time.Time
}

// DayHours is one day of the weekly schedule in "HH:MM". A nil entry means closed.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// BusinessHours is keyed by lowercase English day name.
type BusinessHours map[string]*DayHours

type Persona struct {
	Name  string `json:"name,omitempty"`
	Voice string `json:"voice,omitempty"`
	Tone  string `json:"tone,omitempty"`
}

type Features struct {
	WebSearch bool `json:"webSearch"`
	CRMSync   bool `json:"crmSync"`
}

const (
	DefaultPersonaName  = "Assistant"
	DefaultPersonaVoice = "professional"
	DefaultTone         = "friendly, professional, concise"
	DefaultServices     = "Various services"
	DefaultTimezone     = "America/New_York"
)

// Business is the per-tenant configuration snapshot read once per request.
type Business struct {
	ID                 string
	Name               string
	Phone              string
	Email              string
	Timezone           string
	Hours              BusinessHours
	Services           []string
	PricingNotes       string
	Tone               string
	Persona            Persona
	EscalationContacts []string
	Features           Features
	CalendlyLink       string
	CalendlyToken      string
	CreatedAt          time.Time
}

// EffectivePersona applies the documented defaults to absent persona fields.
func (b *Business) EffectivePersona() Persona {
	p := b.Persona
	if strings.TrimSpace(p.Name) == "" {
		p.Name = DefaultPersonaName
	}
	if strings.TrimSpace(p.Voice) == "" {
		p.Voice = DefaultPersonaVoice
	}
	if strings.TrimSpace(p.Tone) == "" {
		p.Tone = b.Tone
	}
	if strings.TrimSpace(p.Tone) == "" {
		p.Tone = DefaultTone
	}
	return p
}

func (b *Business) Location() *time.Location {
	if b.Timezone != "" {
		if loc, err := time.LoadLocation(b.Timezone); err == nil {
			return loc
		}
	}
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (b *Business) ServicesText() string {
	if len(b.Services) == 0 {
		return DefaultServices
	}
	return strings.Join(b.Services, ", ")
}
