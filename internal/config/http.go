package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/replydesk/pkg/log"
)

type HTTPConfig struct {
	Addr         string        `env:"REPLYDESK_HTTP_ADDR" envDefault:":8080"`
	PublicURL    string        `env:"REPLYDESK_PUBLIC_URL"`
	ReadTimeout  time.Duration `env:"REPLYDESK_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"REPLYDESK_HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	// Upper bound for a whole webhook request, below Twilio's 15s webhook timeout.
	RequestTimeout time.Duration `env:"REPLYDESK_REQUEST_TIMEOUT" envDefault:"14s"`
}

func NewHTTPConfig(ctx context.Context) *HTTPConfig {
	c := &HTTPConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse HTTP config")
	}
	return c
}

// CheckBudget fails when a reply's model calls cannot finish inside one
// webhook request.
func (c *HTTPConfig) CheckBudget(llm *LLMConfig) error {
	if c.RequestTimeout <= 0 {
		return nil
	}
	if need := llm.AnalysisTimeout + llm.GenerationTimeout; need >= c.RequestTimeout {
		return fmt.Errorf("LLM_ANALYSIS_TIMEOUT + LLM_GENERATION_TIMEOUT (%s) must be below REPLYDESK_REQUEST_TIMEOUT (%s)", need, c.RequestTimeout)
	}
	return nil
}
