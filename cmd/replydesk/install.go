package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/service/installer"
	"github.com/sandevgo/replydesk/internal/storage/sqlite"
	"github.com/sandevgo/replydesk/pkg/log"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:          "install",
	Short:        "Interactively write the runtime .env configuration",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, appCfg, flushLog := bootstrap(cmd.Context(), os.Stderr)
		defer flushLog()

		logger := log.FromCtx(ctx)
		runtimePath := appCfg.GetRuntimePath()

		state, err := installer.RunWizard(runtimePath)
		if err != nil {
			return err
		}

		// Load the new file so the database path below honours it.
		if err := godotenv.Load(state.EnvPath); err != nil {
			logger.Warn().Err(err).Str("path", state.EnvPath).Msg("failed to load .env file")
		}

		db, err := sqlite.NewDB(ctx, config.NewAppConfig(ctx).GetDatabasePath())
		if err != nil {
			return err
		}
		defer db.Close()

		logger.Info().Msgf("initialized runtime directory at: %s", runtimePath)
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Installation complete!")+" Run 'replydesk seed' and then 'replydesk serve'.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
