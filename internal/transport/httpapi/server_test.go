package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponder struct {
	mu       sync.Mutex
	inbounds []core.Inbound
	result   core.Result
	err      error
	resolved []string
}

func (f *fakeResponder) Respond(_ context.Context, in core.Inbound) (core.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbounds = append(f.inbounds, in)
	if f.err != nil {
		return core.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeResponder) Greeting(_ context.Context, businessID string, ref core.ContactRef, _ core.Channel) (string, string, error) {
	if businessID == "missing" {
		return "", "", core.NotFound("business", businessID)
	}
	return "Hi there! Welcome back. This is Ava. How can I help you today?", "en", nil
}

func (f *fakeResponder) Resolve(_ context.Context, businessID, conversationID string, _ *string) error {
	if businessID != "b1" {
		return core.NotFound("conversation", conversationID)
	}
	f.resolved = append(f.resolved, conversationID)
	return nil
}

func (f *fakeResponder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inbounds)
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, _, conversationID string) (*core.Summary, error) {
	if conversationID == "empty" {
		return nil, core.InvalidInput("conversation %s has no messages", conversationID)
	}
	return &core.Summary{Summary: "Customer booked.", Sentiment: core.SentimentPositive}, nil
}

type memDeduper struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (d *memDeduper) Seen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keys == nil {
		d.keys = map[string]bool{}
	}
	if d.keys[key] {
		return true, nil
	}
	d.keys[key] = true
	return false, nil
}

type sentSMS struct{ from, to, body string }

type fakeSMS struct {
	sent []sentSMS
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, from, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentSMS{from, to, body})
	return nil
}

type fakeBusinesses struct{}

func (fakeBusinesses) GetBusiness(_ context.Context, id string) (*core.Business, error) {
	return &core.Business{ID: id, Name: "Glow Salon", Phone: "+15550001111"}, nil
}

func (fakeBusinesses) SaveBusiness(context.Context, *core.Business) error { return nil }

func (fakeBusinesses) ListBusinesses(context.Context) ([]core.Business, error) { return nil, nil }

type upperTranslator struct{}

func (upperTranslator) Translate(_ context.Context, text, target string) string {
	if target == "en" {
		return text
	}
	return "[" + target + "] " + text
}

type harness struct {
	responder *fakeResponder
	sms       *fakeSMS
	handler   http.Handler
}

func newHarness() *harness {
	h := &harness{
		responder: &fakeResponder{result: core.Result{ConversationID: "c1", Reply: "Happy to help!", Language: "en"}},
		sms:       &fakeSMS{},
	}
	srv := NewServer(&config.HTTPConfig{Addr: ":0"}, Deps{
		Responder:  h.responder,
		Summarizer: fakeSummarizer{},
		Translator: upperTranslator{},
		Businesses: fakeBusinesses{},
		Deduper:    &memDeduper{},
		SMS:        h.sms,
	})
	h.handler = srv.Handler()
	return h
}

func (h *harness) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestSMSWebhook(t *testing.T) {
	t.Run("reply with booking link", func(t *testing.T) {
		h := newHarness()
		h.responder.result.Scheduling = &core.SchedulingInfo{CalendlyLink: "https://calendly.com/glow", ActionRequired: true}

		rec := h.postForm("/b/b1/sms", url.Values{"From": {"+15551234567"}, "Body": {"Can I book Friday?"}, "MessageSid": {"SM1"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "<Response><Message>Happy to help!")
		assert.Contains(t, rec.Body.String(), "Book your appointment here: https://calendly.com/glow</Message></Response>")

		require.Len(t, h.responder.inbounds, 1)
		in := h.responder.inbounds[0]
		assert.Equal(t, "b1", in.BusinessID)
		assert.Equal(t, core.ChannelSMS, in.Channel)
		assert.Equal(t, "15551234567", in.Contact.Phone)
		assert.Equal(t, "SM1", in.Payload.ExternalID)
	})

	t.Run("link already in reply is not repeated", func(t *testing.T) {
		h := newHarness()
		h.responder.result.Reply = "Book a time here: https://calendly.com/glow"
		h.responder.result.Scheduling = &core.SchedulingInfo{CalendlyLink: "https://calendly.com/glow", ActionRequired: true}

		rec := h.postForm("/b/b1/sms", url.Values{"From": {"+15551234567"}, "Body": {"Can I book Friday?"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, strings.Count(rec.Body.String(), "https://calendly.com/glow"))
		assert.NotContains(t, rec.Body.String(), "Book your appointment here")
	})

	t.Run("escalation hands off", func(t *testing.T) {
		h := newHarness()
		h.responder.result.ShouldEscalate = true

		rec := h.postForm("/b/b1/sms", url.Values{"From": {"+15551234567"}, "Body": {"I want a refund"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), smsHandoffText)
		assert.NotContains(t, rec.Body.String(), "Happy to help!")
	})

	t.Run("error becomes apology", func(t *testing.T) {
		h := newHarness()
		h.responder.err = core.NotFound("business", "b1")

		rec := h.postForm("/b/b1/sms", url.Values{"From": {"+15551234567"}, "Body": {"hello"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<Message>"+smsErrorText+"</Message>")
	})

	t.Run("duplicate delivery", func(t *testing.T) {
		h := newHarness()
		form := url.Values{"From": {"+15551234567"}, "Body": {"hello"}, "MessageSid": {"SM9"}}

		h.postForm("/b/b1/sms", form)
		rec := h.postForm("/b/b1/sms", form)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<Response></Response>")
		assert.Equal(t, 1, h.responder.calls())
	})

	t.Run("missing fields", func(t *testing.T) {
		h := newHarness()
		rec := h.postForm("/b/b1/sms", url.Values{"From": {"+15551234567"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, h.responder.calls())
	})
}

func TestVoiceWebhook(t *testing.T) {
	t.Run("greeting gathers speech", func(t *testing.T) {
		h := newHarness()
		rec := h.postForm("/b/b1/voice", url.Values{"From": {"+15551234567"}, "CallSid": {"CA1"}})
		body := rec.Body.String()
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, body, `<Say voice="alice" language="en-US">Hi there! Welcome back.`)
		assert.Contains(t, body, `<Gather input="speech" action="/b/b1/voice/gather?turn=1" method="POST" speechTimeout="auto"`)
		assert.Contains(t, body, voicePromptText)
		assert.Contains(t, body, "<Hangup></Hangup></Response>")
	})

	t.Run("greeting falls back for unknown business", func(t *testing.T) {
		h := newHarness()
		rec := h.postForm("/b/missing/voice", url.Values{"From": {"+15551234567"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Thank you for calling. I am an AI assistant.")
	})

	t.Run("empty speech reprompts", func(t *testing.T) {
		h := newHarness()
		rec := h.postForm("/b/b1/voice/gather?turn=2", url.Values{"From": {"+15551234567"}, "CallSid": {"CA1"}})
		body := rec.Body.String()
		assert.Contains(t, body, voiceNotHeardText)
		assert.Contains(t, body, "turn=2")
		assert.Equal(t, 0, h.responder.calls())
	})

	t.Run("reply and next turn", func(t *testing.T) {
		h := newHarness()
		h.responder.result.Language = "es"
		h.responder.result.Reply = "Claro, con gusto."

		rec := h.postForm("/b/b1/voice/gather?turn=1", url.Values{"From": {"+15551234567"}, "CallSid": {"CA1"}, "SpeechResult": {"Hola, tienen citas?"}})
		body := rec.Body.String()
		assert.Contains(t, body, `<Say voice="alice" language="es-ES">Claro, con gusto.</Say>`)
		assert.Contains(t, body, "turn=2")
		assert.Contains(t, body, "[es] "+voiceAnythingElse)
		assert.Empty(t, h.sms.sent)
	})

	t.Run("scheduling texts the link", func(t *testing.T) {
		h := newHarness()
		h.responder.result.Scheduling = &core.SchedulingInfo{CalendlyLink: "https://calendly.com/glow"}

		rec := h.postForm("/b/b1/voice/gather", url.Values{"From": {"+15551234567"}, "CallSid": {"CA2"}, "SpeechResult": {"I want to book"}})
		assert.Contains(t, rec.Body.String(), "Please check your phone for the scheduling link.")
		require.Len(t, h.sms.sent, 1)
		assert.Equal(t, sentSMS{"+15550001111", "+15551234567", "Book your appointment here: https://calendly.com/glow"}, h.sms.sent[0])
	})

	t.Run("booking link is texted, not spoken", func(t *testing.T) {
		h := newHarness()
		h.responder.result.Reply = "You can book at https://calendly.com/glow whenever suits you."
		h.responder.result.Scheduling = &core.SchedulingInfo{CalendlyLink: "https://calendly.com/glow"}

		rec := h.postForm("/b/b1/voice/gather", url.Values{"From": {"+15551234567"}, "CallSid": {"CA6"}, "SpeechResult": {"I want to book"}})
		body := rec.Body.String()
		assert.NotContains(t, body, "calendly.com")
		assert.Contains(t, body, "You can book at whenever suits you.")
		require.Len(t, h.sms.sent, 1)
		assert.Contains(t, h.sms.sent[0].body, "https://calendly.com/glow")
	})

	t.Run("scheduling without sms stays silent about the text", func(t *testing.T) {
		h := newHarness()
		h.sms.err = errors.New("twilio down")
		h.responder.result.Scheduling = &core.SchedulingInfo{CalendlyLink: "https://calendly.com/glow"}

		rec := h.postForm("/b/b1/voice/gather", url.Values{"From": {"+15551234567"}, "CallSid": {"CA3"}, "SpeechResult": {"I want to book"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "scheduling link")
	})

	t.Run("escalation hangs up", func(t *testing.T) {
		h := newHarness()
		h.responder.result.ShouldEscalate = true

		rec := h.postForm("/b/b1/voice/gather", url.Values{"From": {"+15551234567"}, "CallSid": {"CA4"}, "SpeechResult": {"Get me a manager"}})
		body := rec.Body.String()
		assert.Contains(t, body, "Let me transfer you. Please hold.")
		assert.Contains(t, body, voiceNotifiedText)
		assert.NotContains(t, body, "<Gather")
		assert.Contains(t, body, "<Hangup></Hangup>")
	})

	t.Run("duplicate turn", func(t *testing.T) {
		h := newHarness()
		form := url.Values{"From": {"+15551234567"}, "CallSid": {"CA5"}, "SpeechResult": {"hello there"}}
		h.postForm("/b/b1/voice/gather?turn=3", form)
		rec := h.postForm("/b/b1/voice/gather?turn=3", form)
		assert.Contains(t, rec.Body.String(), "<Response></Response>")
		assert.Equal(t, 1, h.responder.calls())
	})

	t.Run("error apologises", func(t *testing.T) {
		h := newHarness()
		h.responder.err = errors.New("boom")
		rec := h.postForm("/b/b1/voice/gather", url.Values{"From": {"+15551234567"}, "SpeechResult": {"hello"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), voiceErrorText)
	})
}

func TestEmailWebhook(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		h := newHarness()
		h.responder.result.Reply = "Hello Jane,\n\nWe have **Friday** open."

		rec := h.postJSON("/b/b1/email", `{"from":"jane@example.com","name":"Jane","subject":"Booking","text":"Do you have Friday?","messageId":"m1"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp emailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "c1", resp.ConversationID)
		assert.Equal(t, "jane@example.com", resp.Draft.To)
		assert.Equal(t, "Re: Booking", resp.Draft.Subject)
		assert.Equal(t, "Hello Jane,\n\nWe have **Friday** open.", resp.Draft.Text)
		assert.Contains(t, resp.Draft.HTML, "<strong>Friday</strong>")

		in := h.responder.inbounds[0]
		assert.Equal(t, core.ChannelEmail, in.Channel)
		assert.Equal(t, core.ContactRef{Email: "jane@example.com", Name: "Jane"}, in.Contact)
		assert.Equal(t, "Booking", in.Payload.Subject)
	})

	t.Run("html form body", func(t *testing.T) {
		h := newHarness()
		rec := h.postForm("/b/b1/email", url.Values{
			"from":    {"jane@example.com"},
			"subject": {"Re: Booking"},
			"html":    {"<p>Do you open <b>Saturday</b>?</p>"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp emailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Re: Booking", resp.Draft.Subject)
		require.Len(t, h.responder.inbounds, 1)
		assert.Contains(t, h.responder.inbounds[0].Text, "Saturday")
		assert.NotContains(t, h.responder.inbounds[0].Text, "<p>")
	})

	t.Run("escalation drafts a hand-off", func(t *testing.T) {
		h := newHarness()
		h.responder.result.ShouldEscalate = true
		h.responder.result.Language = "es"
		h.responder.result.Reply = "Lo siento, le ayudo con el reembolso."

		rec := h.postJSON("/b/b1/email", `{"from":"jane@example.com","subject":"Refund","text":"Quiero un reembolso"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp emailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.ShouldEscalate)
		assert.Equal(t, "[es] "+emailHandoffText, resp.Draft.Text)
		assert.NotContains(t, resp.Draft.Text, "reembolso")
		assert.Contains(t, resp.Draft.HTML, "member of staff")
		assert.Equal(t, "Re: Refund", resp.Draft.Subject)
	})

	t.Run("error becomes apology draft", func(t *testing.T) {
		h := newHarness()
		h.responder.err = errors.New("boom")
		rec := h.postJSON("/b/b1/email", `{"from":"jane@example.com","text":"hello"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp emailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, emailErrorText, resp.Draft.Text)
		assert.Equal(t, "Re: Your inquiry", resp.Draft.Subject)
	})

	t.Run("missing sender", func(t *testing.T) {
		h := newHarness()
		rec := h.postJSON("/b/b1/email", `{"text":"hello"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPI(t *testing.T) {
	t.Run("respond", func(t *testing.T) {
		h := newHarness()
		rec := h.postJSON("/api/b/b1/respond", `{"channel":"sms","text":"hello","contact":{"phone":"15551234567"},"language":"fr"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var res core.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "c1", res.ConversationID)
		assert.Equal(t, "Happy to help!", res.Reply)

		in := h.responder.inbounds[0]
		assert.Equal(t, core.ChannelSMS, in.Channel)
		assert.Equal(t, "fr", in.Language)
	})

	t.Run("bad channel", func(t *testing.T) {
		h := newHarness()
		rec := h.postJSON("/api/b/b1/respond", `{"channel":"fax","text":"hello"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown channel")
	})

	t.Run("not found", func(t *testing.T) {
		h := newHarness()
		h.responder.err = core.NotFound("business", "b1")
		rec := h.postJSON("/api/b/b1/respond", `{"channel":"sms","text":"hello","contact":{"phone":"1"}}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("resolve", func(t *testing.T) {
		h := newHarness()
		rec := h.postJSON("/api/b/b1/conversations/c1/resolve", `{"summary":"done"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"c1"}, h.responder.resolved)

		rec = h.postJSON("/api/b/other/conversations/c1/resolve", ``)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("summarize", func(t *testing.T) {
		h := newHarness()
		rec := h.postJSON("/api/b/b1/conversations/c1/summarize", ``)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"summary":"Customer booked."`)

		rec = h.postJSON("/api/b/b1/conversations/empty/summarize", ``)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("health", func(t *testing.T) {
		h := newHarness()
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
