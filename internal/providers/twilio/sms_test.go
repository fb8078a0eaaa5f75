package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSMS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC1", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15550001", r.PostForm.Get("To"))
		assert.Equal(t, "+15559999", r.PostForm.Get("From"))
		assert.Equal(t, "Book here: https://x.test", r.PostForm.Get("Body"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(&config.TwilioConfig{AccountSID: "AC1", AuthToken: "secret", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, c.SendSMS(context.Background(), "15559999", "+15550001", "Book here: https://x.test"))
}

func TestSendSMSRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(&config.TwilioConfig{AccountSID: "AC1", AuthToken: "secret", BaseURL: srv.URL, Timeout: time.Second})
	assert.ErrorIs(t, c.SendSMS(context.Background(), "1", "2", "x"), core.ErrProviderFailure)
}

func TestE164(t *testing.T) {
	assert.Equal(t, "+15550001", E164("15550001"))
	assert.Equal(t, "+15550001", E164(" +15550001 "))
	assert.Equal(t, "", E164(""))
}
