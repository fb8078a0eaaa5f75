package orchestrator

import (
	"fmt"
	"strings"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/internal/service/language"
	"github.com/sandevgo/replydesk/pkg/tokens"
)

type promptInput struct {
	Business     *core.Business
	Channel      core.Channel
	Language     string
	HoursMessage string
	Knowledge    string
	WebResults   string
	Sentiment    core.Sentiment
	Scheduling   *core.SchedulingInfo
}

func buildSystemPrompt(in promptInput) string {
	b := in.Business
	persona := b.EffectivePersona()
	lang := language.Name(in.Language)
	tone := b.Tone
	if strings.TrimSpace(tone) == "" {
		tone = core.DefaultTone
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, an AI assistant for %s. Your voice is %s and your tone is %s.\n\n",
		persona.Name, b.Name, persona.Voice, persona.Tone)
	fmt.Fprintf(&sb, "IMPORTANT: The user is speaking in %s. You MUST respond in %s. "+
		"Do not translate your response back to English. Communicate naturally in %s.\n\n", lang, lang, lang)

	sb.WriteString("Business Information:\n")
	fmt.Fprintf(&sb, "- Business Hours Status: %s\n", in.HoursMessage)
	fmt.Fprintf(&sb, "- Services Offered: %s\n", b.ServicesText())
	if b.PricingNotes != "" {
		fmt.Fprintf(&sb, "- Pricing Notes: %s\n", b.PricingNotes)
	}

	if in.Knowledge != "" {
		fmt.Fprintf(&sb, "\nKnowledge Base:\n%s\n", in.Knowledge)
	}
	if in.WebResults != "" {
		fmt.Fprintf(&sb, "\n%s\n", in.WebResults)
	}

	fmt.Fprintf(&sb, "\nUser Sentiment: %s (%s)\n\n", in.Sentiment.Emotion, in.Sentiment.Label)

	sb.WriteString("Instructions:\n")
	fmt.Fprintf(&sb, "1. Always respond in %s. This is critical.\n", lang)
	fmt.Fprintf(&sb, "2. Always be helpful, %s\n", tone)
	sb.WriteString("3. If the user asks about something in the knowledge base, use that information\n")
	sb.WriteString("4. If outside business hours and the user needs immediate help, offer to take a message and promise follow-up during business hours\n")
	sb.WriteString("5. If you don't know something, ask clarifying questions or suggest they speak with a human representative\n")
	sb.WriteString("6. Keep responses concise and conversational\n")
	sb.WriteString("7. If the user wants to schedule an appointment or get pricing, ask qualifying questions to collect relevant details\n")
	if s := in.Scheduling; s != nil {
		writeScheduling(&sb, in.Channel, s)
	}

	sb.WriteString("\nImportant: If the user seems frustrated, angry, wants a refund, cancellation, mentions legal issues, " +
		"or explicitly asks for a human representative, you should escalate this conversation.")
	return sb.String()
}

// writeScheduling adds the scheduling instruction. A caller cannot use a
// link read aloud, so on VOICE the link is promised by text instead.
func writeScheduling(sb *strings.Builder, ch core.Channel, s *core.SchedulingInfo) {
	if ch != core.ChannelVoice {
		fmt.Fprintf(sb, "8. IMPORTANT: The user wants to schedule. Include this information naturally: %s", s.Message)
		if s.CalendlyLink != "" {
			fmt.Fprintf(sb, " Include the Calendly link: %s", s.CalendlyLink)
		}
		sb.WriteString("\n")
		return
	}

	sb.WriteString("8. IMPORTANT: The user wants to schedule and is on a phone call. Never read out a web address or link.")
	if len(s.SuggestedTimes) > 0 {
		fmt.Fprintf(sb, " Offer these times: %s.", strings.Join(s.SuggestedTimes, ", "))
	}
	if s.CalendlyLink != "" {
		sb.WriteString(" Tell the user a booking link will be sent to them by text message.")
	} else {
		sb.WriteString(" Ask what time works best, or offer to have someone call back to arrange it.")
	}
	sb.WriteString("\n")
}

// chatHistory maps stored turns onto chat messages, drops SYSTEM turns and
// keeps the newest turns that fit budget tokens.
func chatHistory(system string, msgs []core.StoredMessage, budget int) []core.Message {
	turns := make([]core.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == core.MessageRoleSystem {
			continue
		}
		turns = append(turns, core.Message{Role: m.Role.ChatRole(), Content: m.Content})
	}

	texts := make([]string, len(turns))
	for i, t := range turns {
		texts[i] = t.Content
	}
	turns = turns[tokens.FitNewest(texts, budget):]

	out := make([]core.Message, 0, len(turns)+1)
	out = append(out, core.Message{Role: core.RoleSystem, Content: system})
	return append(out, turns...)
}
