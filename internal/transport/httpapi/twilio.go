package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
)

const (
	smsErrorText   = "Sorry, I encountered an error. Please try again later."
	smsHandoffText = "I understand you would like to speak with a human representative. Our team has been notified and will contact you shortly. Thank you!"
	smsBookingLine = "\n\nBook your appointment here: %s"

	voiceWelcomeText    = "Hello! Thank you for calling. I am an AI assistant. How can I help you today?"
	voicePromptText     = "Please tell me what you need."
	voiceNoInputText    = "I did not receive any input. Goodbye!"
	voiceNotHeardText   = "I did not hear anything. Please try again."
	voiceRepromptText   = "What can I help you with?"
	voiceGoodbyeText    = "Goodbye!"
	voiceErrorText      = smsErrorText
	voiceHandoffText    = "I understand you would like to speak with a human representative. Let me transfer you. Please hold."
	voiceNotifiedText   = "Our team has been notified and will contact you shortly. Thank you for calling."
	voiceSMSLinkText    = "I will send you a link to book your appointment via text message. Please check your phone for the scheduling link."
	voiceAnythingElse   = "Is there anything else I can help you with?"
	voiceThanksText     = "Thank you for calling. Have a great day!"
	voiceBookingSMSText = "Book your appointment here: %s"
)

// phoneFromTwilio drops the leading '+' Twilio puts on E.164 numbers.
func phoneFromTwilio(from string) string {
	return strings.TrimPrefix(strings.TrimSpace(from), "+")
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return r.ParseForm()
}

func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromCtx(ctx)
	if err := parseForm(w, r); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	body := r.PostForm.Get("Body")
	from := r.PostForm.Get("From")
	sid := r.PostForm.Get("MessageSid")
	if strings.TrimSpace(body) == "" || from == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	if sid != "" && s.seen(ctx, "sms:"+sid) {
		logger.Info().Str("message_sid", sid).Msg("duplicate sms delivery")
		writeTwiML(w, r, &twiml{})
		return
	}

	res, err := s.deps.Responder.Respond(ctx, core.Inbound{
		BusinessID: chi.URLParam(r, "businessID"),
		Channel:    core.ChannelSMS,
		Text:       body,
		Contact:    core.ContactRef{Phone: phoneFromTwilio(from)},
		Payload: &core.ChannelPayload{
			ExternalID: sid,
			From:       from,
			To:         r.PostForm.Get("To"),
		},
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to answer sms")
		writeTwiML(w, r, (&twiml{}).Message(smsErrorText))
		return
	}

	writeTwiML(w, r, (&twiml{}).Message(smsReply(res)))
}

func smsReply(res core.Result) string {
	if res.ShouldEscalate {
		return smsHandoffText
	}
	reply := res.Reply
	if link := bookingLink(res); link != "" && !strings.Contains(reply, link) {
		reply += fmt.Sprintf(smsBookingLine, link)
	}
	return reply
}

func bookingLink(res core.Result) string {
	if res.Scheduling == nil {
		return ""
	}
	return res.Scheduling.CalendlyLink
}

// spoken drops the booking link from a voice reply; the caller gets it by text.
func spoken(reply, link string) string {
	if link == "" || !strings.Contains(reply, link) {
		return reply
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(reply, link, "")), " ")
}

// gatherAction is the callback for the next speech turn of a call.
func gatherAction(businessID string, turn int) string {
	return fmt.Sprintf("/b/%s/voice/gather?turn=%d", businessID, turn)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		writeTwiML(w, r, (&twiml{}).Say(voiceErrorText, "").Hangup())
		return
	}
	businessID := chi.URLParam(r, "businessID")

	greeting, lang, err := s.deps.Responder.Greeting(ctx, businessID,
		core.ContactRef{Phone: phoneFromTwilio(r.PostForm.Get("From"))}, core.ChannelVoice)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to build greeting")
		greeting, lang = voiceWelcomeText, core.DefaultLanguage
	}

	writeTwiML(w, r, (&twiml{}).
		Say(greeting, lang).
		Gather(gatherAction(businessID, 1), s.translate(ctx, voicePromptText, lang), lang).
		Say(s.translate(ctx, voiceNoInputText, lang), lang).
		Hangup())
}

func (s *Server) handleVoiceGather(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromCtx(ctx)
	if err := parseForm(w, r); err != nil {
		writeTwiML(w, r, (&twiml{}).Say(voiceErrorText, "").Hangup())
		return
	}

	businessID := chi.URLParam(r, "businessID")
	turn, _ := strconv.Atoi(r.URL.Query().Get("turn"))
	if turn < 1 {
		turn = 1
	}
	speech := strings.TrimSpace(r.PostForm.Get("SpeechResult"))
	from := r.PostForm.Get("From")
	callSid := r.PostForm.Get("CallSid")

	if speech == "" {
		writeTwiML(w, r, (&twiml{}).
			Say(voiceNotHeardText, "").
			Gather(gatherAction(businessID, turn), voiceRepromptText, "").
			Say(voiceGoodbyeText, "").
			Hangup())
		return
	}

	if callSid != "" && s.seen(ctx, fmt.Sprintf("voice:%s:%d", callSid, turn)) {
		logger.Info().Str("call_sid", callSid).Int("turn", turn).Msg("duplicate voice delivery")
		writeTwiML(w, r, &twiml{})
		return
	}

	res, err := s.deps.Responder.Respond(ctx, core.Inbound{
		BusinessID: businessID,
		Channel:    core.ChannelVoice,
		Text:       speech,
		Contact:    core.ContactRef{Phone: phoneFromTwilio(from)},
		Payload: &core.ChannelPayload{
			ExternalID: callSid,
			From:       from,
			To:         r.PostForm.Get("To"),
		},
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to answer call")
		writeTwiML(w, r, (&twiml{}).Say(voiceErrorText, "").Hangup())
		return
	}

	lang := res.Language
	resp := &twiml{}

	if res.ShouldEscalate {
		resp.Say(s.translate(ctx, voiceHandoffText, lang), lang).
			Say(s.translate(ctx, voiceNotifiedText, lang), lang).
			Hangup()
		writeTwiML(w, r, resp)
		return
	}

	link := bookingLink(res)
	resp.Say(spoken(res.Reply, link), lang)
	if link != "" && s.textBookingLink(r, businessID, from, link) {
		resp.Say(s.translate(ctx, voiceSMSLinkText, lang), lang)
	}

	resp.Gather(gatherAction(businessID, turn+1), s.translate(ctx, voiceAnythingElse, lang), lang).
		Say(s.translate(ctx, voiceThanksText, lang), lang).
		Hangup()
	writeTwiML(w, r, resp)
}

// textBookingLink sends the booking link to the caller by SMS from the
// business number and reports whether it went out.
func (s *Server) textBookingLink(r *http.Request, businessID, to, link string) bool {
	ctx := r.Context()
	logger := log.FromCtx(ctx)
	if s.deps.SMS == nil || s.deps.Businesses == nil || to == "" {
		return false
	}

	b, err := s.deps.Businesses.GetBusiness(ctx, businessID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load business for booking sms")
		return false
	}
	from := b.Phone
	if from == "" {
		from = r.PostForm.Get("To")
	}
	if from == "" {
		return false
	}

	if err := s.deps.SMS.SendSMS(ctx, from, to, fmt.Sprintf(voiceBookingSMSText, link)); err != nil {
		logger.Error().Err(err).Msg("failed to text booking link")
		return false
	}
	return true
}
