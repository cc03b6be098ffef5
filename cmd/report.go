package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stability-cli/internal/chart"
	"github.com/KaramelBytes/stability-cli/internal/export"
	"github.com/KaramelBytes/stability-cli/internal/project"
	"github.com/KaramelBytes/stability-cli/internal/report"
	"github.com/KaramelBytes/stability-cli/internal/source"
)

var (
	repProject  string
	repOutput   string
	repNoCharts bool
	repTable    bool
	repDryRun   bool
)

var reportCmd = &cobra.Command{
	Use:   "report [business-unit]",
	Short: "Generate the stability report of one business unit",
	Long: `Extract every root cause metric of a business unit, normalize it to a
fraction of total and write summary.md, a CSV export and threshold charts to
<output>/<business-unit>/. Without an argument the default business unit is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb, info, p, err := openWorkbook(cmd.Context(), repProject)
		if err != nil {
			return err
		}
		bu := defaultUnit(p)
		if len(args) == 1 {
			bu = args[0]
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Source: %s\n", info)
		if info.FromCache {
			fmt.Fprintln(out, "⚠ Using cached data; the remote workbook could not be downloaded.")
		}

		gen := report.New(newEngine(p), reportOptions(p, repOutput, repNoCharts, repDryRun), logger)
		res, err := gen.Run(cmd.Context(), wb, bu)
		if res != nil {
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "⚠ %s\n", w)
			}
		}
		if err != nil {
			return fmt.Errorf("%s", report.Message(bu, err))
		}
		printResult(out, res, repTable)
		if p != nil && !repDryRun {
			if prev := p.LatestReport(bu); prev != nil {
				fmt.Fprintf(out, "  Previous report for %s: %s\n", prev.BusinessUnit, prev.GeneratedAt.Format("2006-01-02 15:04"))
			}
			recordReport(p, res, info)
			if err := p.Save(); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Recorded report in project '%s'\n", p.Name)
		}
		return nil
	},
}

// reportOptions resolves the output directory: the flag, then the project's
// reports directory, then output_dir from config.
func reportOptions(p *project.Project, output string, noCharts, dryRun bool) report.Options {
	dir := output
	if dir == "" && p != nil {
		dir = p.ReportsDir()
	}
	if dir == "" {
		dir = cfg.OutputDir
	}
	if dryRun {
		dir = ""
	}
	return report.Options{
		StaticSheet: cfg.StaticValuesSheet,
		OutputDir:   dir,
		CSVTemplate: cfg.CSVFilenameTemplate,
		Charts:      !noCharts,
		ChartSize:   chart.Size{Width: cfg.ChartWidth, Height: cfg.ChartHeight},
		SummarySize: chart.Size{Width: cfg.ChartWidth, Height: cfg.SummaryChartHeight},
	}
}

func printResult(out io.Writer, res *report.Result, asTable bool) {
	if asTable {
		fmt.Fprintln(out, export.SummaryTable(res.Summary))
		fmt.Fprintln(out, export.Table(res.Series))
	} else {
		fmt.Fprintln(out, res.Summary.Markdown())
	}
	if res.Dir != "" {
		fmt.Fprintf(out, "✓ Wrote %d files to %s\n", len(res.Files), res.Dir)
	}
}

func recordReport(p *project.Project, res *report.Result, info source.Info) {
	p.RecordReport(project.Report{
		BusinessUnit: res.BusinessUnit,
		Dir:          res.Dir,
		Files:        res.Files,
		Metrics:      len(res.Summary.Metrics),
		Rows:         res.Summary.DataPoints,
		Source:       info.Description,
		FromCache:    info.FromCache,
	})
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&repProject, "project", "p", "", "project to read the source from and record the report in")
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "output directory (default: project reports dir or output_dir)")
	reportCmd.Flags().BoolVar(&repNoCharts, "no-charts", false, "skip PNG charts")
	reportCmd.Flags().BoolVar(&repTable, "table", false, "print summary and data as tables instead of Markdown")
	reportCmd.Flags().BoolVar(&repDryRun, "dry-run", false, "print the summary without writing files")
}
