package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/store"
)

// batchFlags are shared by the commands that run a BatchRunner.
type batchFlags struct {
	platforms      []string
	nonInteractive bool
}

func (f *batchFlags) register(cmd *cobra.Command, repair bool) {
	cmd.Flags().StringSliceVarP(&f.platforms, "platform", "p", nil,
		"platforms for rows that carry none (default from INVENTORY_PLATFORMS)")
	if repair {
		cmd.Flags().BoolVar(&f.nonInteractive, "non-interactive", false,
			"never prompt; send invalid rows straight to the failure report")
	}
}

func newImportCommand(a *App) *cobra.Command {
	var flags batchFlags
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Add new items from a CSV file",
		Long: `Import adds every row of a CSV file as a new item.

The file must have the header
  item_id,title,description,price,quantity,upc,category,condition,brand
A malformed file is rejected before any row is processed. Invalid rows are
offered for repair on a terminal; rows that stay invalid are written to a
failure report for "inventory retry".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFile(cmd, args[0], core.ModeImport, flags)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newUpdateCommand(a *App) *cobra.Command {
	var flags batchFlags
	cmd := &cobra.Command{
		Use:   "update <file.csv>",
		Short: "Apply a CSV file to existing items by item_id",
		Long: `Update merges each row over the stored item named by its item_id.

Rows are never repaired interactively: a row without an item_id, with an
unknown item_id or with invalid values goes to the failure report. Rows that
change nothing are counted as unchanged and not written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.nonInteractive = true
			return a.runFile(cmd, args[0], core.ModeUpdate, flags)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func (a *App) runFile(cmd *cobra.Command, path string, mode core.Mode, flags batchFlags) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	src, err := core.NewCSVSource(f, path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	return a.withStore(ctx, func(s core.Store) error {
		p := a.processor(s, flags.platforms, flags.nonInteractive, cmd.OutOrStdout())
		res, runErr := core.NewBatchRunner(p).Run(ctx, src, mode)
		a.printSummary(cmd.OutOrStdout(), res)
		return runErr
	})
}

func newRetryCommand(a *App) *cobra.Command {
	var flags batchFlags
	cmd := &cobra.Command{
		Use:   "retry <failure-report>",
		Short: "Replay the unresolved rows of a failure report",
		Long: `Retry re-validates the unresolved rows of a failure report in their
original mode. Rows that now commit are marked resolved; rows that fail
again keep their place with fresh errors. A report with nothing left to
retry is removed unless INVENTORY_FAILED_KEEP_RESOLVED is set.

Edit the report to fix values before retrying, or retry on a terminal to
repair import rows interactively.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := core.HandleForPath(args[0])
			src, err := core.NewRetryLoader().Load(h)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if src.Len() == 0 {
				fmt.Fprintf(out, "nothing to retry in %s\n", h.Path)
				return nil
			}

			ctx := cmd.Context()
			return a.withStore(ctx, func(s core.Store) error {
				p := a.processor(s, flags.platforms, flags.nonInteractive || src.Mode() == core.ModeUpdate, out)
				res, runErr := core.NewBatchRunner(p).Run(ctx, src, src.Mode())

				fmt.Fprintf(out, "retry finished: %d committed, %d unchanged, %d failed (run %s)\n",
					res.Committed, res.Unchanged, res.Failed, res.RunID)
				if res.Failed > 0 {
					printViolations(out, res)
				}

				unresolved, err := a.sink().Reconcile(h, res)
				switch {
				case err != nil:
					slog.Warn("failure report not written", "error", err, "path", h.Path)
					fmt.Fprintln(out, core.ArtifactWriteMessage(res.Failed, err))
				case unresolved == 0:
					fmt.Fprintf(out, "all rows resolved: %s\n", h.Path)
				default:
					fmt.Fprintf(out, "%d rows still failing in %s\n", unresolved, h.Path)
					fmt.Fprintf(out, "retry with: inventory retry %s\n", h.Path)
				}
				return runErr
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newValidateCommand(a *App) *cobra.Command {
	var flags batchFlags
	cmd := &cobra.Command{
		Use:   "validate <file.csv>",
		Short: "Check a CSV file without writing anything",
		Long: `Validate runs every row of a CSV file through the import rules against a
throwaway store and reports the violations. Nothing is stored and no failure
report is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrapf(err, "open %s", args[0])
			}
			defer f.Close()

			src, err := core.NewCSVSource(f, args[0])
			if err != nil {
				return err
			}

			dry := store.NewMemory()
			defer dry.Close()
			p := a.processor(dry, flags.platforms, true, cmd.OutOrStdout())
			res, runErr := core.NewBatchRunner(p).Run(cmd.Context(), src, core.ModeImport)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d rows checked: %d valid, %d invalid\n", res.Total(), res.Committed, res.Failed)
			if res.Failed > 0 {
				printViolations(out, res)
			}
			return runErr
		},
	}
	flags.register(cmd, false)
	return cmd
}
