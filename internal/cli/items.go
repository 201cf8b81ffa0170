package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/inventory/internal/core"
)

func newAddCommand(a *App) *cobra.Command {
	var (
		flags  batchFlags
		values = make(map[string]*string, len(core.Columns))
		attrs  []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a single item",
		Long: `Add validates and stores one item given on the command line. It goes
through the same rules and repair prompt as a one-row import.

Platform attributes are given as platform.key=value:
  inventory add --title "Air Max 90" --price 120 --quantity 1 --category shoes \
    --condition new --platform poshmark --attr poshmark.size=10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			row := core.Row{Index: 1, Values: make(map[string]string, len(core.Columns))}
			for _, col := range core.Columns {
				row.Values[col] = *values[col]
			}
			parsed, err := parseAttributes(attrs)
			if err != nil {
				return err
			}
			row.Attributes = parsed
			row.Platforms = flags.platforms
			row.Key = core.RowKey(row)

			ctx := cmd.Context()
			return a.withStore(ctx, func(s core.Store) error {
				p := a.processor(s, flags.platforms, flags.nonInteractive, cmd.OutOrStdout())
				res, err := core.NewBatchRunner(p).Run(ctx, core.NewSliceSource(row), core.ModeImport)
				if err != nil {
					return err
				}
				if res.Committed == 1 {
					fmt.Fprintf(cmd.OutOrStdout(), "added item %d\n", res.Rows[0].ID)
					return nil
				}
				a.printSummary(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	for _, col := range core.Columns {
		if col == core.ColItemID {
			values[col] = new(string)
			continue
		}
		values[col] = cmd.Flags().String(col, "", "item "+col)
	}
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "platform attribute as platform.key=value (repeatable)")
	flags.register(cmd, true)
	return cmd
}

// parseAttributes turns platform.key=value pairs into attribute payloads.
func parseAttributes(pairs []string) (map[string]core.Attributes, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]core.Attributes)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		platform, field, dotted := strings.Cut(key, ".")
		if !ok || !dotted || platform == "" || field == "" {
			return nil, errors.WithHint(
				errors.Newf("invalid attribute %q", pair),
				"use platform.key=value, e.g. poshmark.size=M")
		}
		platform = strings.ToLower(strings.TrimSpace(platform))
		if out[platform] == nil {
			out[platform] = make(core.Attributes)
		}
		out[platform][strings.ToLower(strings.TrimSpace(field))] = value
	}
	return out, nil
}

func newDeleteCommand(a *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <item_id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := core.ParseID(args[0])
			if !ok {
				return errors.Newf("invalid item ID %q", args[0])
			}
			ctx := cmd.Context()
			return a.withStore(ctx, func(s core.Store) error {
				rec, err := s.Get(ctx, id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !yes && !confirm(a, out, fmt.Sprintf("Delete item %d (%s)?", id, rec.Title)) {
					fmt.Fprintln(out, "cancelled")
					return nil
				}
				if err := s.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted item %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirm asks a yes/no question on the app input. Anything but y or yes
// is a no, including end of input.
func confirm(a *App, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, _ := bufio.NewReader(a.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// outputFlags select the fields and format of read commands.
type outputFlags struct {
	fields []string
	format string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.fields, "fields", "f", nil,
		"fields to show, by name or shortcut (see 'inventory fields')")
	cmd.Flags().StringVarP(&f.format, "format", "o", FormatTable, "output format: table, json, csv")
}

func newListCommand(a *App) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := core.NewFieldProjector().Project(out.fields)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withStore(ctx, func(s core.Store) error {
				records, err := s.ReadAll(ctx)
				if err != nil {
					return errors.Wrap(err, "read items")
				}
				return renderRecords(cmd.OutOrStdout(), records, fields, out.format)
			})
		},
	}
	out.register(cmd)
	return cmd
}

func newFilterCommand(a *App) *cobra.Command {
	var (
		out    outputFlags
		where  string
		values = make(map[string]*string)
	)
	projector := core.NewFieldProjector()
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Show items matching field constraints",
		Long: `Filter shows the items that satisfy every constraint.

Numeric fields take a value, a range lo-hi, or an open range lo- / -hi.
Condition and status match case-insensitively; several values may be
comma separated. Text fields match exactly.

Examples:
  inventory filter --price 10-50 --category clothing
  inventory filter --where "price: 10-50 category: clothing" -f id,title,price
  inventory filter --condition new,deadstock --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var expr core.FilterExpr
			for _, f := range projector.Fields() {
				if v := *values[f.Name]; cmd.Flags().Changed(f.Name) {
					expr = append(expr, core.Constraint{Field: f.Name, Value: v})
				}
			}
			if where != "" {
				parsed, err := core.ParseFilterExpr(where)
				if err != nil {
					return err
				}
				expr = append(expr, parsed...)
			}
			pred, err := core.NewPredicateEvaluator(projector).Compile(expr)
			if err != nil {
				return err
			}
			fields, err := projector.Project(out.fields)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return a.withStore(ctx, func(s core.Store) error {
				records, err := s.ReadAll(ctx)
				if err != nil {
					return errors.Wrap(err, "read items")
				}
				return renderRecords(cmd.OutOrStdout(), pred.Apply(records), fields, out.format)
			})
		},
	}
	for _, f := range projector.Fields() {
		values[f.Name] = cmd.Flags().String(f.Name, "", "constraint on "+f.Name)
	}
	cmd.Flags().StringVarP(&where, "where", "w", "", `filter expression, e.g. "price: 10-50 category: clothing"`)
	out.register(cmd)
	return cmd
}

func newExportCommand(a *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all items as an update-ready CSV file",
		Long: `Export writes every item in the import/update CSV layout. Editing the
file and passing it to "inventory update" applies the changes; an unedited
export updates nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s core.Store) error {
				records, err := s.ReadAll(ctx)
				if err != nil {
					return errors.Wrap(err, "read items")
				}
				if output == "" || output == "-" {
					return core.ExportCSV(cmd.OutOrStdout(), records)
				}

				f, err := os.Create(output)
				if err != nil {
					return errors.Wrapf(err, "create %s", output)
				}
				if err := core.ExportCSV(f, records); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return errors.Wrapf(err, "close %s", output)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d items to %s\n", len(records), output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "O", "", "file to write (default stdout)")
	return cmd
}

func newStatsCommand(a *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise inventory value and breakdowns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s core.Store) error {
				records, err := s.ReadAll(ctx)
				if err != nil {
					return errors.Wrap(err, "read items")
				}
				return renderStats(cmd.OutOrStdout(), core.ComputeStats(records), format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", FormatTable, "output format: table, json")
	return cmd
}
