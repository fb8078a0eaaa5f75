package httpapi

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/conv"
	"github.com/sandevgo/replydesk/pkg/log"
)

const (
	emailErrorText      = "Sorry, I encountered an error. Please try again later."
	emailHandoffText    = "Thank you for your message. I have passed it on to our team and a member of staff will reply to you personally as soon as possible."
	emailDefaultSubject = "Your inquiry"
)

type emailInbound struct {
	From           string `json:"from"`
	Name           string `json:"name"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	Text           string `json:"text"`
	HTML           string `json:"html"`
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

type emailDraft struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

type emailResponse struct {
	ConversationID string     `json:"conversationId,omitempty"`
	ShouldEscalate bool       `json:"shouldEscalate"`
	Language       string     `json:"language,omitempty"`
	Duplicate      bool       `json:"duplicate,omitempty"`
	Draft          emailDraft `json:"draft"`
}

// readEmail accepts a JSON body or a form post with the same field names.
func readEmail(w http.ResponseWriter, r *http.Request) (emailInbound, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var in emailInbound
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&in)
		return in, err
	}

	if err := r.ParseForm(); err != nil {
		return in, err
	}
	in = emailInbound{
		From:           r.PostForm.Get("from"),
		Name:           r.PostForm.Get("name"),
		To:             r.PostForm.Get("to"),
		Subject:        r.PostForm.Get("subject"),
		Text:           r.PostForm.Get("text"),
		HTML:           r.PostForm.Get("html"),
		MessageID:      r.PostForm.Get("messageId"),
		ConversationID: r.PostForm.Get("conversationId"),
	}
	return in, nil
}

func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = emailDefaultSubject
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

func newDraft(to, subject, body string) emailDraft {
	return emailDraft{
		To:      to,
		Subject: replySubject(subject),
		Text:    body,
		HTML:    conv.MarkdownToEmailHTML([]byte(body)),
	}
}

func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromCtx(ctx)

	in, err := readEmail(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid email body"})
		return
	}

	text := strings.TrimSpace(in.Text)
	if text == "" && in.HTML != "" {
		text = strings.TrimSpace(conv.HTMLToText(in.HTML))
	}
	if in.From == "" || text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "from and text or html are required"})
		return
	}

	if in.MessageID != "" && s.seen(ctx, "email:"+in.MessageID) {
		logger.Info().Str("message_id", in.MessageID).Msg("duplicate email delivery")
		writeJSON(w, http.StatusOK, emailResponse{Duplicate: true})
		return
	}

	res, err := s.deps.Responder.Respond(ctx, core.Inbound{
		BusinessID:     chi.URLParam(r, "businessID"),
		Channel:        core.ChannelEmail,
		Text:           text,
		Contact:        core.ContactRef{Email: in.From, Name: in.Name},
		ConversationID: in.ConversationID,
		Payload: &core.ChannelPayload{
			ExternalID: in.MessageID,
			From:       in.From,
			To:         in.To,
			Subject:    in.Subject,
		},
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to answer email")
		writeJSON(w, http.StatusOK, emailResponse{Draft: newDraft(in.From, in.Subject, emailErrorText)})
		return
	}

	body := res.Reply
	if res.ShouldEscalate {
		body = s.translate(ctx, emailHandoffText, res.Language)
	}
	writeJSON(w, http.StatusOK, emailResponse{
		ConversationID: res.ConversationID,
		ShouldEscalate: res.ShouldEscalate,
		Language:       res.Language,
		Draft:          newDraft(in.From, in.Subject, body),
	})
}
