package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

func notice() core.EscalationNotice {
	return core.EscalationNotice{
		BusinessName:   "Glow Salon",
		ConversationID: "c1",
		Channel:        core.ChannelEmail,
		Contact:        core.ContactRef{Email: "joe@example.com", Name: "Joe"},
		Reason:         "User requested escalation or triggered escalation keywords",
		LastMessage:    "I want a refund",
		Priority:       5,
		Recipients:     []string{"owner@glow.test"},
	}
}

func TestFormatNotice(t *testing.T) {
	out := FormatNotice(notice())
	assert.Contains(t, out, "**Escalation: Glow Salon**")
	assert.Contains(t, out, "- Contact: Joe / joe@example.com")
	assert.Contains(t, out, "- Notify: owner@glow.test")
	assert.Contains(t, out, "> I want a refund")
}

type recordingNotifier struct {
	got []core.EscalationNotice
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, n core.EscalationNotice) error {
	r.got = append(r.got, n)
	return r.err
}

func TestMulti(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{err: errors.New("b down")}
	c := &recordingNotifier{}

	err := Multi{a, b, c, LogNotifier{}}.Notify(context.Background(), notice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b down")
	assert.Len(t, a.got, 1)
	assert.Len(t, c.got, 1)
}

type fakeBot struct {
	sent []string
	opts [][]interface{}
}

func (f *fakeBot) Send(_ tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.sent = append(f.sent, what.(string))
	f.opts = append(f.opts, opts)
	return &tele.Message{}, nil
}

func TestTelegramNotify(t *testing.T) {
	bot := &fakeBot{}
	tg := &Telegram{bot: bot, chat: &tele.Chat{ID: 42}}

	require.NoError(t, tg.Notify(context.Background(), notice()))
	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent[0], "<strong>Escalation: Glow Salon</strong>")
	assert.NotContains(t, bot.opts[0], tele.Silent)

	low := notice()
	low.Priority = 2
	require.NoError(t, tg.Notify(context.Background(), low))
	assert.Contains(t, bot.opts[1], tele.Silent)
}

func TestSplitHTML(t *testing.T) {
	text := strings.Repeat("line of text\n", 50)
	chunks := splitHTML(text, 100)
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
	}
	assert.Equal(t, []string{"short"}, splitHTML("short", 100))
}
