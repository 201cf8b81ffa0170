package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/inventory/internal/core"
)

func newFieldsCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the fields usable with --fields and filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := core.NewFieldProjector().Fields()
			rows := make([][]string, len(fields))
			for i, f := range fields {
				rows[i] = []string{f.Name, f.Shortcut, f.Kind.String()}
			}
			return renderTable(cmd.OutOrStdout(), []string{"Field", "Shortcut", "Kind"}, rows)
		},
	}
}

func newPluginsCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "Show the platform rule sets in use",
		Long: `Plugins lists every built-in and plugin rule set with the result of the
version gate. Plugin manifests are read from INVENTORY_PLUGIN_DIR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			contribs := a.catalog.Contributions()
			rows := make([][]string, len(contribs))
			for i, c := range contribs {
				status := "active"
				if c.Skipped {
					status = "skipped: " + c.Reason
				}
				rows[i] = []string{c.Platform, c.Version, c.Source, strconv.Itoa(c.Rules), status}
			}
			if err := renderTable(out, []string{"Platform", "Version", "Source", "Rules", "Status"}, rows); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d rules, plugin constraint %q\n", a.catalog.RuleCount(), a.cfg.Plugins.Constraint)
			for _, w := range a.warnings {
				fmt.Fprintf(out, "warning: %v\n", w)
			}
			return nil
		},
	}
}

func newFailuresCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Manage failure reports",
	}
	cmd.AddCommand(newFailuresListCommand(a), newFailuresPruneCommand(a))
	return cmd
}

func newFailuresListCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List failure reports, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			infos, err := core.ListArtifacts(a.cfg.Failures.Dir)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintf(out, "no failure reports in %s\n", a.cfg.Failures.Dir)
				return nil
			}
			rows := make([][]string, len(infos))
			for i, info := range infos {
				rows[i] = []string{
					info.Handle.Path,
					string(info.Mode),
					info.ModTime.Local().Format(time.DateTime),
					strconv.Itoa(info.Entries),
					strconv.Itoa(info.Unresolved),
				}
			}
			return renderTable(out, []string{"Report", "Mode", "Modified", "Rows", "Unresolved"}, rows)
		},
	}
}

func newFailuresPruneCommand(a *App) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old failure reports",
		Long: `Prune deletes failure reports last modified before the retention window
(INVENTORY_FAILED_RETENTION, 30 days by default).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("older-than") {
				olderThan = a.cfg.Failures.Retention
			}
			if olderThan <= 0 {
				return errors.WithHint(errors.New("retention must be positive"), "e.g. --older-than 168h")
			}
			removed, err := core.PruneArtifacts(a.cfg.Failures.Dir, a.now().Add(-olderThan))
			for _, path := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d reports removed\n", len(removed))
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "remove reports older than this (default from config)")
	return cmd
}
