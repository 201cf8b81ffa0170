// Package cli implements the inventory command line.
package cli

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "github.com/JonMunkholm/inventory/internal/core/platforms" // Register built-in platform rules
)

// NewRootCommand assembles the command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	app := newApp(opts...)

	root := &cobra.Command{
		Use:   "inventory",
		Short: "Validate, import and repair marketplace inventory",
		Long: `inventory - batch ingestion and repair for resale inventory.

Rows from a CSV file are validated against generic rules and the rules of
every marketplace the item is listed on (eBay, Mercari, Poshmark and any
plugin platforms). Invalid rows can be repaired interactively; rows that
still fail are written to a failure report that "inventory retry" replays.

Examples:
  inventory import items.csv --platform ebay,poshmark
  inventory update export.csv
  inventory retry ~/.inventory/failed/failed_import_2024-03-01T14-05-09.json
  inventory filter --where "price: 10-50 category: clothing" -f id,title,price
  inventory stats`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				slog.Debug("no .env file found, using environment variables")
			}
			return app.load(cmd.Context(), cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&app.configFile, "config", "", "config file (default ~/.inventory/config.yaml)")

	root.AddCommand(
		newImportCommand(app),
		newUpdateCommand(app),
		newRetryCommand(app),
		newValidateCommand(app),
		newAddCommand(app),
		newDeleteCommand(app),
		newListCommand(app),
		newFilterCommand(app),
		newExportCommand(app),
		newStatsCommand(app),
		newFieldsCommand(app),
		newPluginsCommand(app),
		newFailuresCommand(app),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, args []string, opts ...Option) error {
	root := NewRootCommand(opts...)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
