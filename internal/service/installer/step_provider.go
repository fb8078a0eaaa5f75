package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type providerChoice struct {
	id    string
	label string
	model string
}

var providers = []providerChoice{
	{id: "openai", label: "OpenAI", model: "gpt-4o-mini"},
	{id: "anthropic", label: "Anthropic", model: "claude-3-5-haiku-latest"},
	{id: "gemini", label: "Google Gemini", model: "gemini-2.0-flash"},
	{id: "openrouter", label: "OpenRouter", model: "openai/gpt-4o-mini"},
	{id: "ollama", label: "Ollama", model: "llama3.1"},
	{id: "custom", label: "Custom (OpenAI-compatible)"},
}

func defaultModel(provider string) string {
	for _, p := range providers {
		if p.id == provider {
			return p.model
		}
	}
	return ""
}

// ProviderStep allows selection of the LLM provider
type ProviderStep struct {
	cursor int
}

func NewProviderStep() Step {
	return &ProviderStep{}
}

func (s *ProviderStep) Init() tea.Cmd {
	return nil
}

func (s *ProviderStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(providers)-1 {
				s.cursor++
			}
		case "enter":
			state.Provider = providers[s.cursor].id
			state.EnvVars["LLM_PROVIDER"] = state.Provider
			return nil, nil
		}
	}
	return s, nil
}

func (s *ProviderStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString("Select the LLM provider that writes replies:\n\n")
	for i, p := range providers {
		if s.cursor == i {
			b.WriteString(selStyle.Render(fmt.Sprintf("> %s", p.label)) + "\n")
		} else {
			b.WriteString(itemStyle.Render(fmt.Sprintf("  %s", p.label)) + "\n")
		}
	}
	b.WriteString(hintStyle.Render("\n(press ctrl+c to quit)") + "\n")
	return b.String()
}
