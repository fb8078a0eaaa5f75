package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
	"github.com/spf13/cobra"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:     core.AppName,
	Short:   "AI customer communication for voice, SMS and email",
	Long:    `replydesk answers customer messages on behalf of a business and escalates hard cases to a human.`,
	Version: core.AppVersion,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

// bootstrap prepares the logger and loads the runtime .env file before any
// config struct is parsed.
func bootstrap(ctx context.Context, out io.Writer) (context.Context, *config.AppConfig, func()) {
	ctx, flush := log.NewContextWithLogger(ctx, log.Options{
		Debug: debug || config.IsDebug(),
		JSON:  os.Getenv("REPLYDESK_LOG_JSON") == "true",
		Out:   out,
	})

	runtimePath := config.NewAppConfig(ctx).GetRuntimePath()
	if err := initEnv(ctx, runtimePath); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to init env")
	}
	return ctx, config.NewAppConfig(ctx), flush
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}

func CustomizeHelp(rootCmd *cobra.Command) {
	cobra.AddTemplateFunc("StyleTitle", func(s string) string { return titleStyle.Render(s) })
	cobra.AddTemplateFunc("StyleUsage", func(s string) string { return usageStyle.Render(s) })
	cobra.AddTemplateFunc("StyleFlag", func(s string) string { return flagStyle.Render(s) })
	cobra.AddTemplateFunc("StyleDesc", func(s string) string { return descStyle.Render(s) })

	template := `
{{StyleTitle "USAGE"}}
  {{StyleUsage .UseLine}}
{{if gt (len .Commands) 0}}{{StyleTitle "AVAILABLE COMMANDS"}}
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding}} {{StyleDesc .Short}}{{end}}
{{end}}{{end}}
{{if .HasAvailableLocalFlags}}{{StyleTitle "FLAGS"}}
{{StyleFlag (.LocalFlags.FlagUsages | trimTrailingWhitespaces)}}
{{end}}{{if .HasAvailableInheritedFlags}}{{StyleTitle "GLOBAL FLAGS"}}
{{StyleFlag (.InheritedFlags.FlagUsages | trimTrailingWhitespaces)}}
{{end}}
`
	rootCmd.SetHelpTemplate(template)
}
