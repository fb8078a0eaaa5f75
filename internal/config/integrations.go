package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/replydesk/pkg/log"
)

type CalendlyConfig struct {
	BaseURL string        `env:"CALENDLY_BASE_URL" envDefault:"https://api.calendly.com"`
	Timeout time.Duration `env:"CALENDLY_TIMEOUT" envDefault:"6s"`
}

func NewCalendlyConfig(ctx context.Context) *CalendlyConfig {
	c := &CalendlyConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Calendly config")
	}
	return c
}

type WebSearchConfig struct {
	APIKey  string        `env:"WEB_SEARCH_API_KEY" secret:"true"`
	BaseURL string        `env:"WEB_SEARCH_BASE_URL" envDefault:"https://api.search.brave.com"`
	Timeout time.Duration `env:"WEB_SEARCH_TIMEOUT" envDefault:"5s"`
	Limit   int           `env:"WEB_SEARCH_LIMIT" envDefault:"3"`
}

func NewWebSearchConfig(ctx context.Context) *WebSearchConfig {
	c := &WebSearchConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse web search config")
	}
	return c
}

func (c WebSearchConfig) Enabled() bool {
	return c.APIKey != ""
}

type TwilioConfig struct {
	AccountSID string        `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string        `env:"TWILIO_AUTH_TOKEN" secret:"true"`
	BaseURL    string        `env:"TWILIO_BASE_URL" envDefault:"https://api.twilio.com"`
	Timeout    time.Duration `env:"TWILIO_TIMEOUT" envDefault:"5s"`
}

func NewTwilioConfig(ctx context.Context) *TwilioConfig {
	c := &TwilioConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Twilio config")
	}
	return c
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

type RedisConfig struct {
	URL       string        `env:"REDIS_URL"`
	DedupeTTL time.Duration `env:"REDIS_DEDUPE_TTL" envDefault:"24h"`
}

func NewRedisConfig(ctx context.Context) *RedisConfig {
	c := &RedisConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Redis config")
	}
	return c
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

type TelegramConfig struct {
	Token  string `env:"TELEGRAM_TOKEN" secret:"true"`
	ChatID int64  `env:"TELEGRAM_ESCALATION_CHAT_ID"`
}

func NewTelegramConfig(ctx context.Context) *TelegramConfig {
	c := &TelegramConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Telegram config")
	}
	return c
}

func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.ChatID != 0
}

// CRMConfig points CRM sync at a webhook that forwards records to the
// business's CRM. Without a URL records are only logged.
type CRMConfig struct {
	WebhookURL string        `env:"CRM_WEBHOOK_URL"`
	Token      string        `env:"CRM_WEBHOOK_TOKEN" secret:"true"`
	Timeout    time.Duration `env:"CRM_TIMEOUT" envDefault:"5s"`
}

func NewCRMConfig(ctx context.Context) *CRMConfig {
	c := &CRMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse CRM config")
	}
	return c
}

func (c CRMConfig) Enabled() bool {
	return c.WebhookURL != ""
}
