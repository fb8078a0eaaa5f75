package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/internal/service/escalation"
	"github.com/sandevgo/replydesk/internal/service/knowledge"
	"github.com/sandevgo/replydesk/internal/service/language"
	"github.com/sandevgo/replydesk/internal/service/schedule"
	"github.com/sandevgo/replydesk/internal/service/signals"
	"github.com/sandevgo/replydesk/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel answers each kind of prompt the services send.
type scriptedModel struct {
	mu         sync.Mutex
	detected   string
	sentiment  string
	suggestion string
	reply      string
	genErr     error
	// stall makes reply generation wait for its context to end.
	stall  bool
	system string
}

func (m *scriptedModel) Chat(ctx context.Context, history []core.Message, _ core.ChatOptions) (core.Message, error) {
	m.mu.Lock()
	stall := m.stall && strings.HasPrefix(history[0].Content, "You are ") &&
		strings.Contains(history[0].Content, "an AI assistant for")
	m.mu.Unlock()
	if stall {
		<-ctx.Done()
		return core.Message{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	system := history[0].Content
	last := history[len(history)-1].Content
	switch {
	case strings.HasPrefix(system, "You are a language detection expert"):
		if m.detected == "" {
			return core.Message{Content: "en"}, nil
		}
		return core.Message{Content: m.detected}, nil
	case strings.HasPrefix(system, "You are a professional translator"):
		return core.Message{Content: "[translated] " + last}, nil
	case strings.HasPrefix(system, "You are a sentiment analysis expert"):
		if m.sentiment == "" {
			return core.Message{}, errors.New("no sentiment scripted")
		}
		return core.Message{Content: m.sentiment}, nil
	case strings.HasPrefix(system, "You are a predictive analytics assistant"):
		if m.suggestion == "" {
			return core.Message{Content: `{"type":null}`}, nil
		}
		return core.Message{Content: m.suggestion}, nil
	}

	m.system = system
	if m.genErr != nil {
		return core.Message{}, m.genErr
	}
	return core.Message{Role: core.RoleAssistant, Content: m.reply}, nil
}

func (m *scriptedModel) lastSystem() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.system
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []core.EscalationNotice
}

func (n *recordingNotifier) Notify(_ context.Context, notice core.EscalationNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

type recordingCRM struct {
	mu      sync.Mutex
	records []core.CRMRecord
}

func (c *recordingCRM) SyncConversation(_ context.Context, rec core.CRMRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

func (c *recordingCRM) all() []core.CRMRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.CRMRecord(nil), c.records...)
}

type fixture struct {
	store    *sqlite.Store
	model    *scriptedModel
	notifier *recordingNotifier
	esc      *escalation.Service
	crm      *recordingCRM
	orch     *Orchestrator
	business *core.Business
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := sqlite.NewStore(db)

	b := &core.Business{
		Name:               "Glow Salon",
		Timezone:           "America/New_York",
		Services:           []string{"Haircut", "Coloring"},
		PricingNotes:       "Haircuts from $40",
		EscalationContacts: []string{"owner@glow.test"},
		CalendlyLink:       "https://calendly.com/glow",
	}
	require.NoError(t, store.SaveBusiness(ctx, b))
	require.NoError(t, store.AddKnowledge(ctx, &core.KnowledgeItem{
		BusinessID: b.ID,
		Kind:       core.KnowledgeFAQ,
		Question:   "What are your opening hours?",
		Answer:     "We are open Monday to Friday 9 to 6.",
	}))

	model := &scriptedModel{reply: "Happy to help!"}
	notifier := &recordingNotifier{}
	esc := escalation.NewService(store, notifier)
	crm := &recordingCRM{}

	orch := NewOrchestrator(Deps{
		Store:       store,
		Model:       model,
		Language:    language.NewService(model, time.Second),
		Sentiment:   signals.NewSentimentAnalyzer(model, time.Second),
		Knowledge:   knowledge.NewService(store),
		Scheduler:   schedule.NewScheduler(nil, time.Second),
		Escalations: esc,
		Suggester:   signals.NewSuggester(model, time.Second),
		CRM:         crm,
	}, Options{HistoryTokenBudget: 3000, GenerationTimeout: time.Second})

	return &fixture{store: store, model: model, notifier: notifier, esc: esc, crm: crm, orch: orch, business: b}
}

func TestRespondSMSBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.reply = "Sure, you can pick a time with the link below."

	res, err := f.orch.Respond(ctx, core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "Hi, I'd like to book a haircut for Friday",
		Contact:    core.ContactRef{Phone: "15551234567"},
		Payload:    &core.ChannelPayload{ExternalID: "SM1", From: "15551234567"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sure, you can pick a time with the link below.", res.Reply)
	assert.Equal(t, "en", res.Language)
	assert.False(t, res.ShouldEscalate)
	assert.False(t, res.Fallback)
	require.NotNil(t, res.Scheduling)
	assert.Equal(t, "https://calendly.com/glow", res.Scheduling.CalendlyLink)
	assert.True(t, res.Scheduling.ActionRequired)

	system := f.model.lastSystem()
	assert.Contains(t, system, "You are Assistant, an AI assistant for Glow Salon.")
	assert.Contains(t, system, "Include the Calendly link: https://calendly.com/glow")
	assert.Contains(t, system, "- Pricing Notes: Haircuts from $40")

	msgs, err := f.store.RecentMessages(ctx, res.ConversationID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.MessageRoleUser, msgs[0].Role)
	payload, ok := msgs[0].Metadata.ChannelPayload()
	require.True(t, ok)
	assert.Equal(t, "SM1", payload.ExternalID)
	assert.Equal(t, core.ChannelSMS, payload.Channel)
	analysis, ok := msgs[0].Metadata.Analysis()
	require.True(t, ok)
	assert.True(t, analysis.SchedulingIntent)

	assert.Equal(t, core.MessageRoleAssistant, msgs[1].Role)
	tag, ok := msgs[1].Metadata.Scheduling()
	require.True(t, ok)
	assert.Equal(t, "https://calendly.com/glow", tag.Info.CalendlyLink)

	contact, err := f.store.GetContact(ctx, res.ContactID)
	require.NoError(t, err)
	assert.Equal(t, 1, contact.TotalInteractions)
	assert.Equal(t, core.ChannelSMS, contact.Preferences.PreferredChannel)
	assert.Equal(t, "en", contact.Preferences.Language)
}

func TestRespondReusesOpenConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "What are your opening hours?",
		Contact:    core.ContactRef{Phone: "15550000001"},
	}

	first, err := f.orch.Respond(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, f.model.lastSystem(), "Knowledge Base:\nQ: What are your opening hours?")

	second, err := f.orch.Respond(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	msgs, err := f.store.RecentMessages(ctx, first.ConversationID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestRespondEmailRefundEscalatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.sentiment = `{"sentiment":"VERY_NEGATIVE","sentimentScore":-0.9,"emotion":"angry","confidence":0.9}`
	f.model.reply = "I'm sorry to hear that. A member of our team will reach out."

	in := core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelEmail,
		Text:       "I want a refund, the coloring was terrible.",
		Contact:    core.ContactRef{Email: "Jane@Example.com", Name: "Jane"},
	}
	res, err := f.orch.Respond(ctx, in)
	require.NoError(t, err)
	f.esc.Wait()

	assert.True(t, res.ShouldEscalate)
	assert.Equal(t, core.SentimentVeryNegative, res.Sentiment.Label)

	conv, err := f.store.GetConversation(ctx, res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusEscalated, conv.Status)
	assert.Equal(t, 5, conv.Priority)

	escs, err := f.store.ListEscalations(ctx, f.business.ID, 10)
	require.NoError(t, err)
	require.Len(t, escs, 1)
	assert.Equal(t, escalation.DefaultReason, escs[0].Reason)

	require.Equal(t, 1, f.notifier.count())
	notice := f.notifier.notices[0]
	assert.Equal(t, "jane@example.com", notice.Contact.Email)
	assert.Equal(t, []string{"owner@glow.test"}, notice.Recipients)
	assert.Equal(t, 5, notice.Priority)

	// The escalated conversation is closed to the bot; the next message starts over.
	f.model.sentiment = ""
	in.Text = "Thanks, I'll wait for the call back."
	next, err := f.orch.Respond(ctx, in)
	require.NoError(t, err)
	f.esc.Wait()
	assert.NotEqual(t, res.ConversationID, next.ConversationID)
	assert.False(t, next.ShouldEscalate)

	escs, err = f.store.ListEscalations(ctx, f.business.ID, 10)
	require.NoError(t, err)
	assert.Len(t, escs, 1)
	assert.Equal(t, 1, f.notifier.count())
}

func TestRespondProviderFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.genErr = errors.New("upstream timeout")

	res, err := f.orch.Respond(ctx, core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "Do you do balayage?",
		Contact:    core.ContactRef{Phone: "15550000002"},
	})
	require.NoError(t, err)
	assert.Equal(t, ApologyText, res.Reply)
	assert.True(t, res.Fallback)

	res, err = f.orch.Respond(ctx, core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "¿Hacen balayage?",
		Contact:    core.ContactRef{Phone: "15550000003"},
		Language:   "es",
	})
	require.NoError(t, err)
	assert.Equal(t, "es", res.Language)
	assert.Equal(t, "[translated] "+ApologyText, res.Reply)

	msgs, err := f.store.RecentMessages(ctx, res.ConversationID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, res.Reply, msgs[1].Content)
}

func TestRespondPersistsAfterRequestDeadline(t *testing.T) {
	f := newFixture(t)
	f.model.stall = true
	f.model.sentiment = `{"sentiment":"VERY_NEGATIVE","sentimentScore":-0.9,"emotion":"angry","confidence":0.9}`

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	res, err := f.orch.Respond(ctx, core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "I want a refund now",
		Contact:    core.ContactRef{Phone: "15550000010"},
	})
	require.NoError(t, err)
	f.esc.Wait()

	assert.True(t, res.ShouldEscalate)
	assert.True(t, res.Fallback)
	assert.Equal(t, ApologyText, res.Reply)

	bg := context.Background()
	conv, err := f.store.GetConversation(bg, res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusEscalated, conv.Status)

	escs, err := f.store.ListEscalations(bg, f.business.ID, 10)
	require.NoError(t, err)
	assert.Len(t, escs, 1)
	assert.Equal(t, 1, f.notifier.count())

	msgs, err := f.store.RecentMessages(bg, res.ConversationID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.MessageRoleAssistant, msgs[1].Role)
	assert.Equal(t, ApologyText, msgs[1].Content)
}

func TestRespondVoiceBookingKeepsLinkOutOfSpeech(t *testing.T) {
	f := newFixture(t)
	f.model.reply = "Great, I'll text you a booking link now."

	res, err := f.orch.Respond(context.Background(), core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelVoice,
		Text:       "I'd like to book a haircut for Friday",
		Contact:    core.ContactRef{Phone: "15550000011"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Scheduling)
	assert.Equal(t, "https://calendly.com/glow", res.Scheduling.CalendlyLink)

	system := f.model.lastSystem()
	assert.NotContains(t, system, "https://calendly.com/glow")
	assert.Contains(t, system, "Never read out a web address or link.")
	assert.Contains(t, system, "sent to them by text message")
}

func TestSchedulingInstructionByChannel(t *testing.T) {
	b := &core.Business{Name: "Glow Salon"}
	info := &core.SchedulingInfo{
		Message:        "Here are some available times: Mon 10:00 AM",
		CalendlyLink:   "https://calendly.com/glow/30min",
		SuggestedTimes: []string{"Mon 10:00 AM", "Tue 2:00 PM"},
		ActionRequired: true,
	}

	sms := buildSystemPrompt(promptInput{Business: b, Channel: core.ChannelSMS, Scheduling: info})
	assert.Contains(t, sms, "Include the Calendly link: https://calendly.com/glow/30min")

	voice := buildSystemPrompt(promptInput{Business: b, Channel: core.ChannelVoice, Scheduling: info})
	assert.NotContains(t, voice, "calendly.com")
	assert.Contains(t, voice, "Offer these times: Mon 10:00 AM, Tue 2:00 PM.")

	noLink := buildSystemPrompt(promptInput{Business: b, Channel: core.ChannelVoice, Scheduling: &core.SchedulingInfo{Message: "When works?"}})
	assert.Contains(t, noLink, "offer to have someone call back")
	assert.NotContains(t, noLink, "text message")
}

func TestRespondAttachesSuggestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.suggestion = `{"type":"upsell","content":"Offer a coloring add-on","confidence":0.7,"reasoning":"asked about coloring"}`

	res, err := f.orch.Respond(ctx, core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "How much is a haircut with coloring?",
		Contact:    core.ContactRef{Phone: "15550000012"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Suggestion)
	assert.Equal(t, core.SuggestUpsell, res.Suggestion.Type)
	assert.Equal(t, 0.7, res.Suggestion.Confidence)

	msgs, err := f.store.RecentMessages(ctx, res.ConversationID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	analysis, ok := msgs[0].Metadata.Analysis()
	require.True(t, ok)
	require.NotNil(t, analysis.Suggestion)
	assert.Equal(t, "Offer a coloring add-on", analysis.Suggestion.Content)

	f.model.suggestion = ""
	res, err = f.orch.Respond(ctx, core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "Thanks!",
		Contact:    core.ContactRef{Phone: "15550000013"},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Suggestion)
}

func TestRespondCRMSyncFollowsFeatureFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "Is parking available nearby?",
		Contact:    core.ContactRef{Phone: "15550000014", Name: "Ana"},
	}

	_, err := f.orch.Respond(ctx, in)
	require.NoError(t, err)
	f.orch.Wait()
	assert.Empty(t, f.crm.all())

	f.business.Features.CRMSync = true
	require.NoError(t, f.store.SaveBusiness(ctx, f.business))

	res, err := f.orch.Respond(ctx, in)
	require.NoError(t, err)
	f.orch.Wait()

	recs := f.crm.all()
	require.Len(t, recs, 1)
	assert.Equal(t, f.business.ID, recs[0].BusinessID)
	assert.Equal(t, res.ConversationID, recs[0].ConversationID)
	assert.Equal(t, res.ContactID, recs[0].ContactID)
	assert.Equal(t, "15550000014", recs[0].Contact.Phone)
	assert.Equal(t, core.ChannelSMS, recs[0].Channel)
	assert.False(t, recs[0].Escalated)
}

func TestRespondEmptyReplyAndSafetyNet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.model.reply = "   "
	res, err := f.orch.Respond(ctx, core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "hmm",
		Contact:    core.ContactRef{Phone: "15550000004"},
	})
	require.NoError(t, err)
	assert.Equal(t, RephraseText, res.Reply)

	f.model.reply = "Thank you, I will check the schedule for you."
	f.model.detected = "es"
	res, err = f.orch.Respond(ctx, core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "Hola, quisiera saber los precios por favor",
		Contact:    core.ContactRef{Phone: "15550000005"},
	})
	require.NoError(t, err)
	assert.Equal(t, "es", res.Language)
	assert.Equal(t, "[translated] Thank you, I will check the schedule for you.", res.Reply)
	assert.Contains(t, f.model.lastSystem(), "The user is speaking in Spanish.")

	conv, err := f.store.GetConversation(ctx, res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "es", conv.Language)
}

func TestRespondConversationID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := core.Inbound{
		BusinessID: f.business.ID,
		Channel:    core.ChannelSMS,
		Text:       "Is parking available nearby?",
		Contact:    core.ContactRef{Phone: "15550000006"},
	}

	first, err := f.orch.Respond(ctx, in)
	require.NoError(t, err)

	in.ConversationID = first.ConversationID
	again, err := f.orch.Respond(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, again.ConversationID)

	require.NoError(t, f.orch.Resolve(ctx, f.business.ID, first.ConversationID, nil))
	next, err := f.orch.Respond(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, first.ConversationID, next.ConversationID)

	other := &core.Business{Name: "Other"}
	require.NoError(t, f.store.SaveBusiness(ctx, other))
	in.BusinessID = other.ID
	in.ConversationID = next.ConversationID
	_, err = f.orch.Respond(ctx, in)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, f.orch.Resolve(ctx, other.ID, next.ConversationID, nil), core.ErrNotFound)
}

func TestRespondInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Respond(ctx, core.Inbound{BusinessID: f.business.ID, Channel: core.ChannelSMS, Text: "  ", Contact: core.ContactRef{Phone: "1"}})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.orch.Respond(ctx, core.Inbound{BusinessID: f.business.ID, Channel: core.ChannelSMS, Text: "hello"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.orch.Respond(ctx, core.Inbound{BusinessID: f.business.ID, Channel: "FAX", Text: "hello", Contact: core.ContactRef{Phone: "1"}})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.orch.Respond(ctx, core.Inbound{BusinessID: "missing", Channel: core.ChannelSMS, Text: "hello", Contact: core.ContactRef{Phone: "1"}})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestChatHistoryDropsSystemTurns(t *testing.T) {
	msgs := chatHistory("sys", []core.StoredMessage{
		{Role: core.MessageRoleUser, Content: "hi"},
		{Role: core.MessageRoleSystem, Content: "note"},
		{Role: core.MessageRoleAssistant, Content: "hello"},
		{Role: core.MessageRoleUser, Content: "book me"},
	}, 0)

	require.Len(t, msgs, 4)
	assert.Equal(t, core.Message{Role: core.RoleSystem, Content: "sys"}, msgs[0])
	assert.Equal(t, core.RoleUser, msgs[1].Role)
	assert.Equal(t, core.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "book me", msgs[3].Content)
}

func TestSmartGreeting(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name    string
		contact *core.Contact
		channel core.Channel
		want    string
	}{
		{"unknown caller", nil, core.ChannelVoice, "Hello! This is Ava. How can I help you today?"},
		{"first contact with name", &core.Contact{Name: "Jane", TotalInteractions: 1}, core.ChannelVoice, "Hello Jane! This is Ava. How can I help you today?"},
		{"recent", &core.Contact{Name: "Jane", TotalInteractions: 3, LastInteractionAt: ago(2 * day)}, core.ChannelVoice, "Hi Jane! Welcome back. This is Ava. How can I help you today?"},
		{"same day", &core.Contact{TotalInteractions: 3, LastInteractionAt: ago(time.Hour)}, core.ChannelVoice, "Hi there! Welcome back. This is Ava. How can I help you today?"},
		{"weeks", &core.Contact{Name: "Jane", TotalInteractions: 3, LastInteractionAt: ago(10 * day)}, core.ChannelEmail, "Hello Jane! Good to hear from you again. This is Ava. How can I help you today?"},
		{"months", &core.Contact{Name: "Jane", TotalInteractions: 3, LastInteractionAt: ago(90 * day)}, core.ChannelEmail, "Hello Jane! It's been a while. This is Ava. How can I help you today?"},
		{"sms phrasing", &core.Contact{Name: "Jane", TotalInteractions: 1}, core.ChannelSMS, "Hello Jane! It's Ava. How can I help you today?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SmartGreeting("Ava", tt.contact, tt.channel, now))
		})
	}
}

func TestGreetingTranslatesToPreferredLanguage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, lang, err := f.orch.Greeting(ctx, f.business.ID, core.ContactRef{}, core.ChannelVoice)
	require.NoError(t, err)
	assert.Equal(t, "Hello! This is Assistant. How can I help you today?", got)
	assert.Equal(t, "en", lang)

	c, err := f.store.FindOrCreateContact(ctx, f.business.ID, core.ContactRef{Phone: "15550000007"})
	require.NoError(t, err)
	_, err = f.store.UpdateContactPreferences(ctx, c.ID, core.ContactPreferences{Language: "fr"})
	require.NoError(t, err)

	got, lang, err = f.orch.Greeting(ctx, f.business.ID, core.ContactRef{Phone: "15550000007"}, core.ChannelVoice)
	require.NoError(t, err)
	assert.Equal(t, "[translated] Hello! This is Assistant. How can I help you today?", got)
	assert.Equal(t, "fr", lang)

	_, _, err = f.orch.Greeting(ctx, "missing", core.ContactRef{}, core.ChannelVoice)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
