package httpapi

import (
	"encoding/xml"
	"net/http"

	"github.com/sandevgo/replydesk/pkg/log"
)

const (
	twimlVoice = "alice"
	// twimlLanguage is used when a reply language has no Twilio voice tag.
	twimlLanguage = "en-US"
)

// voiceLanguages maps supported language codes onto Twilio <Say> tags.
var voiceLanguages = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"it": "it-IT",
	"pt": "pt-BR",
	"ru": "ru-RU",
	"zh": "zh-CN",
	"ja": "ja-JP",
	"ko": "ko-KR",
	"ar": "ar-SA",
	"hi": "hi-IN",
	"nl": "nl-NL",
	"pl": "pl-PL",
	"tr": "tr-TR",
	"vi": "vi-VN",
	"th": "th-TH",
	"id": "id-ID",
	"so": "so-SO",
}

func voiceLanguage(code string) string {
	if tag, ok := voiceLanguages[code]; ok {
		return tag
	}
	return twimlLanguage
}

type twiml struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

type say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr"`
	Language      string   `xml:"language,attr,omitempty"`
	Prompt        *say
}

type message struct {
	XMLName xml.Name `xml:"Message"`
	Text    string   `xml:",chardata"`
}

type hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

func (t *twiml) Say(text, lang string) *twiml {
	t.Verbs = append(t.Verbs, say{Voice: twimlVoice, Language: voiceLanguage(lang), Text: text})
	return t
}

func (t *twiml) Gather(action, prompt, lang string) *twiml {
	t.Verbs = append(t.Verbs, gather{
		Input:         "speech",
		Action:        action,
		Method:        http.MethodPost,
		SpeechTimeout: "auto",
		Language:      voiceLanguage(lang),
		Prompt:        &say{Voice: twimlVoice, Language: voiceLanguage(lang), Text: prompt},
	})
	return t
}

func (t *twiml) Message(text string) *twiml {
	t.Verbs = append(t.Verbs, message{Text: text})
	return t
}

func (t *twiml) Hangup() *twiml {
	t.Verbs = append(t.Verbs, hangup{})
	return t
}

// writeTwiML always answers 200; Twilio treats anything else as a failed webhook.
func writeTwiML(w http.ResponseWriter, r *http.Request, t *twiml) {
	body, err := xml.Marshal(t)
	if err != nil {
		log.FromCtx(r.Context()).Error().Err(err).Msg("failed to encode twiml")
		body = []byte("<Response></Response>")
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	w.Write(body)
}
