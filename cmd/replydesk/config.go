package main

import (
	"fmt"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/pkg/env"
	"github.com/spf13/cobra"
)

var revealSecrets bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configEnvCmd = &cobra.Command{
	Use:          "env",
	Short:        "Print the effective configuration as .env lines",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, appCfg, flushLog := bootstrap(cmd.Context(), cmd.ErrOrStderr())
		defer flushLog()

		out, err := env.MarshalEnv(revealSecrets,
			appCfg,
			config.NewHTTPConfig(ctx),
			config.NewLLMConfig(ctx),
			config.NewCalendlyConfig(ctx),
			config.NewWebSearchConfig(ctx),
			config.NewTwilioConfig(ctx),
			config.NewRedisConfig(ctx),
			config.NewTelegramConfig(ctx),
		)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	configEnvCmd.Flags().BoolVar(&revealSecrets, "reveal", false, "print secrets instead of masking them")
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}
