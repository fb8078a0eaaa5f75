package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type InstallState struct {
	EnvVars map[string]string
	// Provider is the lowercase LLM_PROVIDER choice.
	Provider string
	EnvPath  string
	Saved    bool
}

func NewInstallState() *InstallState {
	return &InstallState{
		EnvVars: make(map[string]string),
	}
}

// RenderEnv returns the collected variables as sorted KEY=value lines.
// Empty values are left out so config defaults apply.
func (s *InstallState) RenderEnv() string {
	keys := make([]string, 0, len(s.EnvVars))
	for k, v := range s.EnvVars {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, strings.TrimSpace(s.EnvVars[k]))
	}
	return b.String()
}

// SaveEnv writes dir/.env and refuses to overwrite an existing file.
func (s *InstallState) SaveEnv(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create runtime directory: %w", err)
	}

	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		return "", fmt.Errorf(".env file already exists at %s", envPath)
	}

	if err := os.WriteFile(envPath, []byte(s.RenderEnv()), 0600); err != nil {
		return "", err
	}
	s.EnvPath = envPath
	s.Saved = true
	return envPath, nil
}
