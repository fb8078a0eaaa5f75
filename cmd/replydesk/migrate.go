package main

import (
	"fmt"

	"github.com/sandevgo/replydesk/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Create or upgrade the database schema",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, appCfg, flushLog := bootstrap(cmd.Context(), cmd.ErrOrStderr())
		defer flushLog()

		// NewDB applies pending migrations.
		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Database is up to date: ")+appCfg.GetDatabasePath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
