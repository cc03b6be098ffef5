package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stability-cli/internal/report"
)

var (
	rbProject  string
	rbOutput   string
	rbNoCharts bool
	rbWorkers  int
	rbQuiet    bool
)

var reportBatchCmd = &cobra.Command{
	Use:   "report-batch [business-unit...]",
	Short: "Generate reports for several business units in parallel",
	Long: `Generate a report for every named business unit, or for every business unit
of the workbook when none is named. A failing unit does not stop the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		wb, info, p, err := openWorkbook(cmd.Context(), rbProject)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Source: %s\n", info)

		units := args
		if len(units) == 0 {
			units = wb.BusinessUnits(cfg.ExcludedSheets)
		}
		if len(units) == 0 {
			return fmt.Errorf("no business units (sheets) found in the workbook")
		}
		seen := map[string]struct{}{}
		uniq := units[:0:0]
		for _, u := range units {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			uniq = append(uniq, u)
		}
		sort.Strings(uniq)

		workers := rbWorkers
		if workers <= 0 {
			workers = cfg.Workers
		}
		gen := report.New(newEngine(p), reportOptions(p, rbOutput, rbNoCharts, false), logger)
		outcomes, err := gen.RunAll(cmd.Context(), wb, uniq, workers)
		if err != nil {
			return err
		}

		failed := 0
		for _, o := range outcomes {
			if o.Err != nil {
				failed++
				fmt.Fprintf(out, "✗ %s: %s\n", o.BusinessUnit, report.Message(o.BusinessUnit, o.Err))
				continue
			}
			fmt.Fprintf(out, "✓ %s: %d root causes, %d data points -> %s\n",
				o.BusinessUnit, len(o.Result.Summary.Metrics), o.Result.Summary.DataPoints, o.Result.Dir)
			if !rbQuiet {
				for _, w := range o.Result.Warnings {
					fmt.Fprintf(out, "  ⚠ %s\n", w)
				}
			}
			if p != nil {
				recordReport(p, o.Result, info)
			}
		}
		if p != nil && failed < len(outcomes) {
			if err := p.Save(); err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d business units failed", failed, len(outcomes))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportBatchCmd)
	reportBatchCmd.Flags().StringVarP(&rbProject, "project", "p", "", "project to read the source from and record reports in")
	reportBatchCmd.Flags().StringVarP(&rbOutput, "output", "o", "", "output directory (default: project reports dir or output_dir)")
	reportBatchCmd.Flags().BoolVar(&rbNoCharts, "no-charts", false, "skip PNG charts")
	reportBatchCmd.Flags().IntVarP(&rbWorkers, "workers", "w", 0, "parallel business units (default: workers from config)")
	reportBatchCmd.Flags().BoolVarP(&rbQuiet, "quiet", "q", false, "suppress per unit warnings")
}
