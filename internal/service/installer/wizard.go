package installer

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Step represents a single step in the installation wizard
type Step interface {
	Init() tea.Cmd
	Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd)
	View(state *InstallState) string
}

// nextMsg wakes a step that may decide to skip itself.
type nextMsg struct{}

func next() tea.Msg { return nextMsg{} }

func getSteps(runtimePath string) []Step {
	return []Step{
		NewProviderStep(),
		NewCustomURLStep(),
		NewOllamaURLStep(),
		NewAPIKeyStep(),
		NewModelStep(),
		NewPublicURLStep(),
		NewTwilioSIDStep(),
		NewTwilioTokenStep(),
		NewTelegramTokenStep(),
		NewTelegramChatStep(),
		NewRedisStep(),
		NewSaveEnvStep(runtimePath),
	}
}

// model is the main Bubble Tea model that orchestrates the steps
type model struct {
	steps       []Step
	currentStep int
	state       *InstallState
	quitting    bool
}

func initialModel(runtimePath string) model {
	return model{
		steps: getSteps(runtimePath),
		state: NewInstallState(),
	}
}

func (m model) Init() tea.Cmd {
	if len(m.steps) > 0 {
		return m.steps[0].Init()
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.currentStep >= len(m.steps) {
		return m, tea.Quit
	}

	nextStep, cmd := m.steps[m.currentStep].Update(msg, m.state)
	if nextStep == nil {
		m.currentStep++
		if m.currentStep >= len(m.steps) {
			return m, tea.Quit
		}
		return m, m.steps[m.currentStep].Init()
	}

	m.steps[m.currentStep] = nextStep
	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return "Installation cancelled.\n"
	}
	if m.currentStep >= len(m.steps) {
		return "Configuration complete!\n"
	}
	return titleStyle.Render("Setting up replydesk") + "\n\n" + m.steps[m.currentStep].View(m.state)
}

// RunWizard starts the TUI and writes runtimePath/.env on success.
func RunWizard(runtimePath string) (*InstallState, error) {
	p := tea.NewProgram(initialModel(runtimePath), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	finalModel := m.(model)
	if finalModel.quitting {
		return nil, fmt.Errorf("replydesk installation interrupted")
	}
	if !finalModel.state.Saved {
		return nil, fmt.Errorf("configuration was not saved")
	}
	return finalModel.state, nil
}
