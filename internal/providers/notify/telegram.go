package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/conv"
	"github.com/sandevgo/replydesk/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

type telegramSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram posts escalation notices to an operator chat.
type Telegram struct {
	bot  telegramSender
	chat *tele.Chat
}

func NewTelegram(cfg *config.TelegramConfig) (*Telegram, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{bot: b, chat: &tele.Chat{ID: cfg.ChatID}}, nil
}

func (t *Telegram) Notify(ctx context.Context, n core.EscalationNotice) error {
	html := strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(FormatNotice(n))))

	for i, chunk := range splitHTML(html, maxTelegramMsgLen) {
		opts := []interface{}{tele.ModeHTML}
		if n.Priority < 4 {
			opts = append(opts, tele.Silent)
		}
		if _, err := t.bot.Send(t.chat, chunk, opts...); err != nil {
			log.FromCtx(ctx).Error().Err(err).Int("chunk", i).Msg("failed to send telegram notice")
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

// splitHTML splits text into chunks respecting Telegram's limit, preferring
// newline boundaries.
func splitHTML(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}
