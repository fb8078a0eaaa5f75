package core

import (
	"context"
	"time"
)

// ChatModel is a generative model endpoint.
type ChatModel interface {
	Chat(ctx context.Context, history []Message, opts ChatOptions) (Message, error)
}

// Notifier delivers escalation notices to humans.
type Notifier interface {
	Notify(ctx context.Context, notice EscalationNotice) error
}

// WebSearcher queries an external search engine.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]WebResult, error)
}

// AvailabilityProvider lists bookable slots for a business calendar.
type AvailabilityProvider interface {
	AvailableTimes(ctx context.Context, token string, from, to time.Time) ([]time.Time, string, error)
}

// Deduper remembers webhook delivery ids. Seen reports whether key was
// already recorded and records it otherwise.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
}

// SMSSender sends an outbound text, used when a call needs to deliver a link.
type SMSSender interface {
	SendSMS(ctx context.Context, from, to, body string) error
}

// CRMSyncer mirrors contacts and conversations into an external CRM.
type CRMSyncer interface {
	SyncConversation(ctx context.Context, rec CRMRecord) error
}
