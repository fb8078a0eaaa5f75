package config

import (
	"os"
	"path/filepath"
)

// GetRuntimePath is needed before .env is loaded, so it reads the variable directly.
func GetRuntimePath() string {
	return resolveRuntimePath(os.Getenv("REPLYDESK_RUNTIME_PATH"))
}

func resolveRuntimePath(path string) string {
	if path == "" {
		path = ".replydesk"
	}
	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}
