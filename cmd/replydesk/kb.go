package main

import (
	"context"
	"fmt"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/internal/service/knowledge"
	"github.com/sandevgo/replydesk/internal/storage/sqlite"
	"github.com/sandevgo/replydesk/pkg/log"
	"github.com/spf13/cobra"
)

var kbBusinessID string

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the knowledge base",
}

var kbImportCmd = &cobra.Command{
	Use:          "import <file>...",
	Short:        "Import FAQ (.json) or document (.md, .txt, .html, .pdf) files",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, appCfg, flushLog := bootstrap(cmd.Context(), cmd.ErrOrStderr())
		defer flushLog()

		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return err
		}
		defer db.Close()
		store := sqlite.NewStore(db)

		businessID, err := resolveBusinessID(ctx, store, kbBusinessID)
		if err != nil {
			return err
		}

		importer := knowledge.NewImporter(store)
		total := 0
		for _, path := range args {
			n, err := importer.ImportFile(ctx, businessID, path)
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			log.FromCtx(ctx).Info().Str("file", path).Int("items", n).Msg("imported knowledge")
			total += n
		}

		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Imported %d knowledge items", total)))
		return nil
	},
}

func init() {
	kbImportCmd.Flags().StringVarP(&kbBusinessID, "business", "b", "", "business id (defaults to the only business)")
	kbCmd.AddCommand(kbImportCmd)
	rootCmd.AddCommand(kbCmd)
}

// resolveBusinessID returns id after checking it exists, or the single
// business when id is empty.
func resolveBusinessID(ctx context.Context, repo core.BusinessRepository, id string) (string, error) {
	if id != "" {
		b, err := repo.GetBusiness(ctx, id)
		if err != nil {
			return "", err
		}
		return b.ID, nil
	}

	all, err := repo.ListBusinesses(ctx)
	if err != nil {
		return "", err
	}
	switch len(all) {
	case 0:
		return "", core.InvalidInput("no business found, run 'replydesk seed' first")
	case 1:
		return all[0].ID, nil
	default:
		return "", core.InvalidInput("%d businesses found, pass --business", len(all))
	}
}
