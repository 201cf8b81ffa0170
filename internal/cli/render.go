package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"

	"github.com/JonMunkholm/inventory/internal/core"
)

// Output formats of the read commands.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

func unknownFormat(format string, allowed ...string) error {
	return errors.WithHint(
		errors.Newf("unknown output format %q", format),
		"use one of: "+strings.Join(allowed, ", "))
}

// renderRecords writes records projected onto fields.
func renderRecords(w io.Writer, records []core.Record, fields []core.Field, format string) error {
	header := core.Header(fields)
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = core.ProjectRecord(r, fields)
	}

	switch strings.ToLower(format) {
	case FormatTable:
		if len(rows) == 0 {
			fmt.Fprintln(w, "no items")
			return nil
		}
		return renderTable(w, header, rows)
	case FormatJSON:
		out := make([]map[string]string, len(rows))
		for i, row := range rows {
			obj := make(map[string]string, len(header))
			for j, name := range header {
				obj[name] = row[j]
			}
			out[i] = obj
		}
		return writeJSON(w, out)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return errors.Wrap(err, "write csv header")
		}
		if err := cw.WriteAll(rows); err != nil {
			return errors.Wrap(err, "write csv rows")
		}
		return nil
	default:
		return unknownFormat(format, FormatTable, FormatJSON, FormatCSV)
	}
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, header)
	data = append(data, rows...)
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render table")
	}
	fmt.Fprintln(w, s)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encode json")
}

// renderStats writes the inventory summary.
func renderStats(w io.Writer, stats core.InventoryStats, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return writeJSON(w, stats)
	case FormatTable:
	default:
		return unknownFormat(format, FormatTable, FormatJSON)
	}

	fmt.Fprintf(w, "Total items:   %d\n", stats.TotalItems)
	fmt.Fprintf(w, "Total value:   %s\n", stats.TotalValue.StringFixed(2))
	fmt.Fprintf(w, "Average price: %s\n", stats.AveragePrice.StringFixed(2))
	if stats.TotalItems == 0 {
		return nil
	}

	for _, section := range []struct {
		title  string
		groups []core.GroupStats
	}{
		{"Category", stats.Categories},
		{"Condition", stats.Conditions},
		{"Brand", stats.Brands},
	} {
		if len(section.groups) == 0 {
			continue
		}
		fmt.Fprintln(w)
		rows := make([][]string, len(section.groups))
		for i, g := range section.groups {
			rows[i] = []string{g.Key, strconv.Itoa(g.Count), g.TotalValue.StringFixed(2), g.AveragePrice.StringFixed(2)}
		}
		if err := renderTable(w, []string{section.title, "Items", "Value", "Avg price"}, rows); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	rows := make([][]string, len(stats.PriceRanges))
	for i, r := range stats.PriceRanges {
		rows[i] = []string{r.Label, strconv.Itoa(r.Count)}
	}
	return renderTable(w, []string{"Price", "Items"}, rows)
}

// printViolations lists why each abandoned row failed.
func printViolations(w io.Writer, res core.BatchResult) {
	for _, f := range res.Abandoned {
		if len(f.Violations) == 0 {
			fmt.Fprintf(w, "  row %d: %s\n", f.Row.Index, f.Reason)
			continue
		}
		for _, v := range f.Violations {
			fmt.Fprintf(w, "  row %d: %s\n", f.Row.Index, v.Error())
		}
	}
}
