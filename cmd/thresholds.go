package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
	"github.com/KaramelBytes/stability-cli/internal/export"
	"github.com/KaramelBytes/stability-cli/internal/report"
	"github.com/KaramelBytes/stability-cli/internal/workbook"
)

var (
	thrProject string
	thrAll     bool
)

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds [business-unit]",
	Short: "Show configured thresholds and the important KPIs of a business unit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb, _, p, err := openWorkbook(cmd.Context(), thrProject)
		if err != nil {
			return err
		}
		if thrAll {
			return printAllImportant(cmd, wb, newEngine(p))
		}
		bu := defaultUnit(p)
		if len(args) == 1 {
			bu = args[0]
		}
		engine := newEngine(p)
		gen := report.New(engine, report.Options{StaticSheet: cfg.StaticValuesSheet}, logger)
		thresholds, important, warnings := gen.Configuration(wb, bu)
		out := cmd.OutOrStdout()
		for _, w := range warnings {
			fmt.Fprintf(out, "⚠ %s\n", w)
		}
		if len(important) > 0 {
			fmt.Fprintf(out, "★ Important KPIs for %s: %s\n", bu, strings.Join(important, ", "))
		}
		fmt.Fprintln(out, export.ThresholdTable(thresholds, important))
		fmt.Fprintf(out, "Metrics without a threshold use %s.\n", analysis.Percent(engine.Options().DefaultThreshold))
		return nil
	},
}

// printAllImportant lists the important KPIs of every business unit defined in
// the static sheet.
func printAllImportant(cmd *cobra.Command, wb *workbook.Workbook, engine *analysis.Engine) error {
	tbl, err := wb.ConfigTable(cfg.StaticValuesSheet)
	if err != nil {
		return fmt.Errorf("'%s' sheet not found in workbook: %w", cfg.StaticValuesSheet, err)
	}
	all, err := engine.ReadAllImportantMetrics(tbl)
	if err != nil {
		return fmt.Errorf("no business unit rows in %s sheet: %w", cfg.StaticValuesSheet, err)
	}
	groups := make([]string, 0, len(all))
	for g := range all {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	out := cmd.OutOrStdout()
	for _, g := range groups {
		fmt.Fprintf(out, "%s: %s\n", g, strings.Join(all[g], ", "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(thresholdsCmd)
	thresholdsCmd.Flags().BoolVar(&thrAll, "all", false, "list the important KPIs of every business unit instead")
	thresholdsCmd.Flags().StringVarP(&thrProject, "project", "p", "", "project whose source to use")
}
