package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
)

// LogNotifier writes escalation notices to the context logger. It is the
// sink used when no chat integration is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n core.EscalationNotice) error {
	log.FromCtx(ctx).Warn().
		Str("business_id", n.BusinessID).
		Str("conversation_id", n.ConversationID).
		Str("escalation_id", n.EscalationID).
		Str("channel", string(n.Channel)).
		Str("reason", n.Reason).
		Int("priority", n.Priority).
		Strs("recipients", n.Recipients).
		Msg("conversation escalated")
	return nil
}

// Multi fans a notice out to every notifier and joins their errors.
type Multi []core.Notifier

func (m Multi) Notify(ctx context.Context, n core.EscalationNotice) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatNotice renders a notice as markdown for chat delivery.
func FormatNotice(n core.EscalationNotice) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Escalation: %s**\n\n", n.BusinessName)
	fmt.Fprintf(&sb, "- Channel: %s\n", n.Channel)
	if who := contactLine(n.Contact); who != "" {
		fmt.Fprintf(&sb, "- Contact: %s\n", who)
	}
	fmt.Fprintf(&sb, "- Priority: %d\n", n.Priority)
	fmt.Fprintf(&sb, "- Reason: %s\n", n.Reason)
	fmt.Fprintf(&sb, "- Conversation: `%s`\n", n.ConversationID)
	if len(n.Recipients) > 0 {
		fmt.Fprintf(&sb, "- Notify: %s\n", strings.Join(n.Recipients, ", "))
	}
	if n.LastMessage != "" {
		fmt.Fprintf(&sb, "\n> %s\n", strings.ReplaceAll(strings.TrimSpace(n.LastMessage), "\n", "\n> "))
	}
	return sb.String()
}

func contactLine(c core.ContactRef) string {
	var parts []string
	for _, p := range []string{c.Name, c.Phone, c.Email} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}
