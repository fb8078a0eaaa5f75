package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/replydesk/pkg/log"
)

type AppConfig struct {
	RuntimePath  string `env:"REPLYDESK_RUNTIME_PATH" envDefault:".replydesk"`
	DatabasePath string `env:"REPLYDESK_DATABASE_PATH"`
	LogJSON      bool   `env:"REPLYDESK_LOG_JSON" envDefault:"false"`

	// Context Management
	HistoryLimit       int `env:"REPLYDESK_HISTORY_LIMIT" envDefault:"20"`
	HistoryTokenBudget int `env:"REPLYDESK_HISTORY_TOKEN_BUDGET" envDefault:"3000"`
	KnowledgeLimit     int `env:"REPLYDESK_KNOWLEDGE_LIMIT" envDefault:"3"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	c.RuntimePath = resolveRuntimePath(c.RuntimePath)
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.RuntimePath, "replydesk.db")
}
