package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record() core.CRMRecord {
	return core.CRMRecord{
		BusinessID:     "b1",
		ConversationID: "c1",
		ContactID:      "ct1",
		Contact:        core.ContactRef{Phone: "+15550001111", Name: "Ana"},
		Channel:        core.ChannelSMS,
		Language:       "en",
		Sentiment:      core.SentimentNegative,
		Escalated:      true,
		Suggestion:     &core.Suggestion{Type: core.SuggestFollowUp, Content: "Call back tomorrow", Confidence: 0.7},
		At:             time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestWebhook_PostsRecord(t *testing.T) {
	var got core.CRMRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := NewWebhook(&config.CRMConfig{WebhookURL: srv.URL, Token: "secret", Timeout: time.Second})
	require.NoError(t, w.SyncConversation(context.Background(), record()))

	assert.Equal(t, "c1", got.ConversationID)
	assert.Equal(t, "+15550001111", got.Contact.Phone)
	assert.True(t, got.Escalated)
	require.NotNil(t, got.Suggestion)
	assert.Equal(t, core.SuggestFollowUp, got.Suggestion.Type)
}

func TestWebhook_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	w := NewWebhook(&config.CRMConfig{WebhookURL: srv.URL, Timeout: time.Second})
	err := w.SyncConversation(context.Background(), record())
	assert.ErrorIs(t, err, core.ErrProviderFailure)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhook_ServerErrorRetriedOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(&config.CRMConfig{WebhookURL: srv.URL, Timeout: time.Second})
	require.NoError(t, w.SyncConversation(context.Background(), record()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestLogSyncer(t *testing.T) {
	assert.NoError(t, LogSyncer{}.SyncConversation(context.Background(), record()))
}
