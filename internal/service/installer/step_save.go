package installer

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// SaveEnvStep writes the collected configuration to the runtime .env file
type SaveEnvStep struct {
	dir string
	err error
}

func NewSaveEnvStep(dir string) Step {
	return &SaveEnvStep{dir: dir}
}

func (s *SaveEnvStep) Init() tea.Cmd {
	return next
}

func (s *SaveEnvStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if state.Saved {
		return nil, nil
	}
	if s.err != nil {
		return s, nil
	}
	if _, err := state.SaveEnv(s.dir); err != nil {
		s.err = err
		return s, nil
	}
	return nil, nil
}

func (s *SaveEnvStep) View(state *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	return "Saving configuration...\n"
}
