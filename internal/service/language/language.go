package language

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
)

const (
	// minDetectLength is the shortest trimmed text worth sending to the detector.
	minDetectLength = 10
	maxDetectInput  = 500
)

// Supported maps ISO 639-1 codes to English language names.
var Supported = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
	"hi": "Hindi",
	"nl": "Dutch",
	"pl": "Polish",
	"tr": "Turkish",
	"vi": "Vietnamese",
	"th": "Thai",
	"id": "Indonesian",
	"so": "Somali",
}

// Name returns the English name of code, English for unknown codes.
func Name(code string) string {
	if n, ok := Supported[code]; ok {
		return n
	}
	return Supported[core.DefaultLanguage]
}

// Normalize lowercases code and maps anything unsupported to the default.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, ok := Supported[code]; ok {
		return code
	}
	return core.DefaultLanguage
}

func codes() string {
	out := make([]string, 0, len(Supported))
	for c := range Supported {
		out = append(out, c)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

// Service detects and translates text through a chat model. Every method
// fails soft.
type Service struct {
	model   core.ChatModel
	timeout time.Duration
}

func NewService(model core.ChatModel, timeout time.Duration) *Service {
	return &Service{model: model, timeout: timeout}
}

func (s *Service) call(ctx context.Context, msgs []core.Message, opts core.ChatOptions) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.model.Chat(ctx, msgs, opts)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// Detect returns the language code of text, or the default language when the
// model fails or answers with something unsupported.
func (s *Service) Detect(ctx context.Context, text string) string {
	if utf8.RuneCountInString(text) > maxDetectInput {
		text = string([]rune(text)[:maxDetectInput])
	}

	msgs := []core.Message{
		{Role: core.RoleSystem, Content: fmt.Sprintf(`You are a language detection expert. Given a text, return only the ISO 639-1 language code (2 letters) for the language detected.

Supported codes: %s
If the language is not in the supported list, return 'en'.
Return only the 2-letter code, nothing else.`, codes())},
		{Role: core.RoleUser, Content: text},
	}

	out, err := s.call(ctx, msgs, core.ChatOptions{Temperature: core.Temperature(0), MaxTokens: 5})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("language detection failed")
		return core.DefaultLanguage
	}
	return Normalize(out)
}

// DetectWithFallback skips detection for very short text and prefers the
// fallback when the detector only sees the default language.
func (s *Service) DetectWithFallback(ctx context.Context, text, fallback string) string {
	fallback = Normalize(fallback)
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minDetectLength {
		return fallback
	}

	detected := s.Detect(ctx, text)
	if detected == core.DefaultLanguage && fallback != core.DefaultLanguage {
		return fallback
	}
	return detected
}

// Translate renders text in target. Translating into the default language is
// the identity.
func (s *Service) Translate(ctx context.Context, text, target string) string {
	target = Normalize(target)
	if target == core.DefaultLanguage || strings.TrimSpace(text) == "" {
		return text
	}

	msgs := []core.Message{
		{Role: core.RoleSystem, Content: fmt.Sprintf(`You are a professional translator. Translate the following text to %s.

Rules:
- Preserve the tone and style
- Keep technical terms and proper nouns as-is when appropriate
- Maintain the same level of formality
- Return only the translation, no explanations`, Name(target))},
		{Role: core.RoleUser, Content: text},
	}

	out, err := s.call(ctx, msgs, core.ChatOptions{Temperature: core.Temperature(0.3), MaxTokens: 1000})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("target", target).Msg("translation failed")
		return text
	}
	if out == "" {
		return text
	}
	return out
}

// englishMarkers are common English words padded with spaces.
var englishMarkers = []string{" i ", " the ", " you "}

// LooksDefault reports whether reply still reads like English. Only the first
// 50 characters are inspected.
func LooksDefault(reply string) bool {
	head := strings.ToLower(reply)
	if utf8.RuneCountInString(head) > 50 {
		head = string([]rune(head)[:50])
	}
	head = " " + head + " "
	for _, m := range englishMarkers {
		if strings.Contains(head, m) {
			return true
		}
	}
	return false
}
