package core

import "context"

type BusinessRepository interface {
	GetBusiness(ctx context.Context, id string) (*Business, error)
	SaveBusiness(ctx context.Context, b *Business) error
	ListBusinesses(ctx context.Context) ([]Business, error)
}

type ContactRepository interface {
	FindOrCreateContact(ctx context.Context, businessID string, ref ContactRef) (*Contact, error)
	GetContact(ctx context.Context, id string) (*Contact, error)
	UpdateContactPreferences(ctx context.Context, contactID string, prefs ContactPreferences) (*Contact, error)
}

type ConversationRepository interface {
	GetOrCreateConversation(ctx context.Context, businessID, contactID string, channel Channel) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	UpdateConversationStatus(ctx context.Context, id string, status ConversationStatus, summary *string) error
	SetConversationLanguage(ctx context.Context, id, language string) error
	RecordSentiment(ctx context.Context, id string, s Sentiment) (*Conversation, error)
	SetSummary(ctx context.Context, id, summary string) error
	ListConversations(ctx context.Context, businessID string, status ConversationStatus, limit int) ([]Conversation, error)
}

type MessageRepository interface {
	AppendMessage(ctx context.Context, conversationID string, role MessageRole, content string, meta Metadata) (*StoredMessage, error)
	AttachMetadata(ctx context.Context, messageID string, v MetadataVariant) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]StoredMessage, error)
}

type EscalationRepository interface {
	// Escalate flips an OPEN conversation to ESCALATED and records the reason.
	// It returns nil, nil when the conversation is no longer OPEN.
	Escalate(ctx context.Context, conversationID, reason string) (*Escalation, error)
	ListEscalations(ctx context.Context, businessID string, limit int) ([]Escalation, error)
}

type KnowledgeRepository interface {
	ListKnowledge(ctx context.Context, businessID string) ([]KnowledgeItem, error)
	AddKnowledge(ctx context.Context, item *KnowledgeItem) error
}

// Store is the durable state the orchestrator works against.
type Store interface {
	BusinessRepository
	ContactRepository
	ConversationRepository
	MessageRepository
	EscalationRepository
	KnowledgeRepository
}
