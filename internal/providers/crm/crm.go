package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
	"github.com/sandevgo/replydesk/pkg/retry"
)

// LogSyncer writes CRM records to the context logger. It is the sink used
// when no CRM webhook is configured.
type LogSyncer struct{}

func (LogSyncer) SyncConversation(ctx context.Context, rec core.CRMRecord) error {
	log.FromCtx(ctx).Info().
		Str("business_id", rec.BusinessID).
		Str("conversation_id", rec.ConversationID).
		Str("contact_id", rec.ContactID).
		Str("channel", string(rec.Channel)).
		Str("sentiment", string(rec.Sentiment)).
		Bool("escalated", rec.Escalated).
		Msg("crm sync")
	return nil
}

// Webhook posts each record as JSON to a relay that owns the CRM specifics.
type Webhook struct {
	client  *http.Client
	retrier *retry.Retrier
	url     string
	token   string
}

func NewWebhook(cfg *config.CRMConfig) *Webhook {
	return &Webhook{
		client:  &http.Client{Timeout: cfg.Timeout},
		retrier: retry.NewSingleRetrier(),
		url:     cfg.WebhookURL,
		token:   cfg.Token,
	}
}

func (w *Webhook) SyncConversation(ctx context.Context, rec core.CRMRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode crm record: %w", err)
	}

	err = w.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if w.token != "" {
			req.Header.Set("Authorization", "Bearer "+w.token)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("http %d: %s", resp.StatusCode, msg)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}
		return nil
	})
	if err != nil {
		return core.ProviderFailure("crm sync", err)
	}
	return nil
}
