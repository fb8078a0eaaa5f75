package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
)

const day = 24 * time.Hour

// Greeting opens a conversation, personalised for returning contacts and
// translated into the contact's preferred language, which is returned with
// it. An empty ref greets an unknown caller.
func (o *Orchestrator) Greeting(ctx context.Context, businessID string, ref core.ContactRef, channel core.Channel) (string, string, error) {
	b, err := o.deps.Store.GetBusiness(ctx, businessID)
	if err != nil {
		return "", "", err
	}
	persona := b.EffectivePersona().Name

	if ref.Empty() {
		return SmartGreeting(persona, nil, channel, o.now()), core.DefaultLanguage, nil
	}

	contact, err := o.deps.Store.FindOrCreateContact(ctx, b.ID, ref)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to load contact for greeting")
		return SmartGreeting(persona, nil, channel, o.now()), core.DefaultLanguage, nil
	}

	greeting := SmartGreeting(persona, contact, channel, o.now())
	lang := core.DefaultLanguage
	if p := contact.Preferences.Language; p != "" {
		lang = p
		greeting = o.translate(ctx, greeting, lang)
	}
	return greeting, lang, nil
}

// SmartGreeting picks the opening line from how recently the contact was last
// heard from. SMS uses the shorter "It's" phrasing.
func SmartGreeting(persona string, c *core.Contact, channel core.Channel, now time.Time) string {
	var greeting string
	switch {
	case c == nil:
		greeting = "Hello! "
	case c.TotalInteractions > 1:
		name := c.Name
		if name == "" {
			name = "there"
		}
		days := -1
		if c.LastInteractionAt != nil {
			days = int(now.Sub(*c.LastInteractionAt) / day)
		}
		switch {
		case days >= 0 && days < 7:
			greeting = fmt.Sprintf("Hi %s! Welcome back. ", name)
		case days >= 0 && days < 30:
			greeting = fmt.Sprintf("Hello %s! Good to hear from you again. ", name)
		default:
			greeting = fmt.Sprintf("Hello %s! It's been a while. ", name)
		}
	case c.Name != "":
		greeting = fmt.Sprintf("Hello %s! ", c.Name)
	default:
		greeting = "Hello! "
	}

	greeting += fmt.Sprintf("This is %s. How can I help you today?", persona)
	if channel == core.ChannelSMS {
		greeting = strings.ReplaceAll(greeting, "This is", "It's")
	}
	return greeting
}
