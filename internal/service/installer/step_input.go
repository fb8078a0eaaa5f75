package installer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// InputStep collects one env value. Skip and Key are evaluated against the
// state once the step starts, so earlier answers can branch the flow.
type InputStep struct {
	input    textinput.Model
	title    string
	optional bool
	started  bool
	err      error

	Key      func(state *InstallState) string
	Skip     func(state *InstallState) bool
	Optional func(state *InstallState) bool
	Default  func(state *InstallState) string
	Validate func(value string) error
}

func newInputStep(title, placeholder string, secret, optional bool) *InputStep {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 50
	ti.Placeholder = placeholder
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	return &InputStep{input: ti, title: title, optional: optional}
}

func fixedKey(key string) func(*InstallState) string {
	return func(*InstallState) string { return key }
}

func (s *InputStep) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, next)
}

func (s *InputStep) start(state *InstallState) bool {
	s.started = true
	if s.Skip != nil && s.Skip(state) {
		return false
	}
	if s.Optional != nil {
		s.optional = s.Optional(state)
	}
	if s.Default != nil {
		if d := s.Default(state); d != "" {
			s.input.Placeholder = d
		}
	}
	return true
}

func (s *InputStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if !s.started && !s.start(state) {
		return nil, nil
	}
	if _, ok := msg.(nextMsg); ok {
		return s, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		val := strings.TrimSpace(s.input.Value())
		if val == "" && s.Default != nil {
			val = s.Default(state)
		}
		if val == "" && !s.optional {
			s.err = fmt.Errorf("a value is required")
			return s, cmd
		}
		if val != "" && s.Validate != nil {
			if err := s.Validate(val); err != nil {
				s.err = err
				return s, cmd
			}
		}
		state.EnvVars[s.Key(state)] = val
		return nil, nil
	}
	return s, cmd
}

func (s *InputStep) View(state *InstallState) string {
	hint := "(press enter to confirm)"
	if s.optional {
		hint = "(optional, press enter to skip)"
	}
	out := s.title + ":\n\n" + s.input.View() + "\n\n"
	if s.err != nil {
		out += errorStyle.Render(s.err.Error()) + "\n"
	}
	return out + hintStyle.Render(hint) + "\n"
}

func providerIs(ids ...string) func(*InstallState) bool {
	return func(state *InstallState) bool {
		for _, id := range ids {
			if state.Provider == id {
				return true
			}
		}
		return false
	}
}

func not(f func(*InstallState) bool) func(*InstallState) bool {
	return func(state *InstallState) bool { return !f(state) }
}

func unset(key string) func(*InstallState) bool {
	return func(state *InstallState) bool { return state.EnvVars[key] == "" }
}

func NewCustomURLStep() Step {
	s := newInputStep("Enter the OpenAI-compatible base URL", "https://api.example.com/v1", false, false)
	s.Key = fixedKey("CUSTOM_OPENAI_BASE_URL")
	s.Skip = not(providerIs("custom"))
	return s
}

func NewOllamaURLStep() Step {
	s := newInputStep("Enter the Ollama base URL", "http://localhost:11434", false, true)
	s.Key = fixedKey("OLLAMA_BASE_URL")
	s.Skip = not(providerIs("ollama"))
	return s
}

func NewAPIKeyStep() Step {
	s := newInputStep("Enter your API key", "sk-...", true, false)
	s.Key = func(state *InstallState) string {
		switch state.Provider {
		case "anthropic":
			return "ANTHROPIC_API_KEY"
		case "gemini":
			return "GEMINI_API_KEY"
		case "openrouter":
			return "OPENROUTER_API_KEY"
		case "ollama":
			return "OLLAMA_API_KEY"
		case "custom":
			return "CUSTOM_OPENAI_API_KEY"
		default:
			return "OPENAI_API_KEY"
		}
	}
	s.Optional = providerIs("ollama", "custom")
	return s
}

func NewModelStep() Step {
	s := newInputStep("Enter the model name", "", false, false)
	s.Key = fixedKey("LLM_MODEL")
	s.Default = func(state *InstallState) string { return defaultModel(state.Provider) }
	return s
}

func NewPublicURLStep() Step {
	s := newInputStep("Enter the public URL Twilio reaches this server at", "https://replydesk.example.com", false, true)
	s.Key = fixedKey("REPLYDESK_PUBLIC_URL")
	return s
}

func NewTwilioSIDStep() Step {
	s := newInputStep("Enter your Twilio Account SID (used to text booking links)", "AC...", false, true)
	s.Key = fixedKey("TWILIO_ACCOUNT_SID")
	return s
}

func NewTwilioTokenStep() Step {
	s := newInputStep("Enter your Twilio Auth Token", "", true, false)
	s.Key = fixedKey("TWILIO_AUTH_TOKEN")
	s.Skip = unset("TWILIO_ACCOUNT_SID")
	return s
}

func NewTelegramTokenStep() Step {
	s := newInputStep("Enter a Telegram bot token for escalation notices", "123456789:ABCDEF...", true, true)
	s.Key = fixedKey("TELEGRAM_TOKEN")
	return s
}

func NewTelegramChatStep() Step {
	s := newInputStep("Enter the Telegram chat ID that receives escalations", "123456789", false, false)
	s.Key = fixedKey("TELEGRAM_ESCALATION_CHAT_ID")
	s.Skip = unset("TELEGRAM_TOKEN")
	s.Validate = func(v string) error {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("chat id must be a number")
		}
		return nil
	}
	return s
}

func NewRedisStep() Step {
	s := newInputStep("Enter a Redis URL for webhook dedupe", "redis://localhost:6379/0", false, true)
	s.Key = fixedKey("REDIS_URL")
	return s
}
