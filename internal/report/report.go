// Package report runs the per business unit pipeline: configuration lookup,
// metric extraction, summary and the files written for each unit.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
	"github.com/KaramelBytes/stability-cli/internal/chart"
	"github.com/KaramelBytes/stability-cli/internal/export"
	"github.com/KaramelBytes/stability-cli/internal/utils"
	"github.com/KaramelBytes/stability-cli/internal/workbook"
)

const (
	SummaryFile      = "summary.md"
	SummaryChartFile = "root_causes_overview.png"
)

// Options controls what a Generator writes.
type Options struct {
	StaticSheet string
	// OutputDir receives one sub-directory per business unit. Empty disables writing.
	OutputDir   string
	CSVTemplate string
	Charts      bool
	ChartSize   chart.Size
	SummarySize chart.Size
}

// Result is the outcome of one business unit run.
type Result struct {
	BusinessUnit string
	Dir          string
	Series       *analysis.Series
	Summary      *analysis.Summary
	Files        []string
	Warnings     []string
}

// Generator produces business unit reports from a loaded workbook. It holds no
// per-run state; one Generator serves concurrent runs.
type Generator struct {
	engine *analysis.Engine
	opt    Options
	log    zerolog.Logger
}

// New returns a Generator.
func New(engine *analysis.Engine, opt Options, log zerolog.Logger) *Generator {
	if opt.StaticSheet == "" {
		opt.StaticSheet = "Static Values"
	}
	return &Generator{engine: engine, opt: opt, log: log.With().Str("component", "report").Logger()}
}

// Configuration reads the thresholds and the important metrics of bu from the
// static sheet. A missing or short static sheet is not fatal: the returned
// warnings describe what was unavailable.
func (g *Generator) Configuration(wb *workbook.Workbook, bu string) (analysis.ThresholdMap, []string, []string) {
	var warnings []string
	tbl, err := wb.ConfigTable(g.opt.StaticSheet)
	if err != nil {
		g.log.Warn().Err(err).Msg("static values sheet unavailable")
		return analysis.ThresholdMap{}, []string{}, []string{fmt.Sprintf("'%s' sheet not found in workbook", g.opt.StaticSheet)}
	}
	thresholds, err := g.engine.ReadThresholds(tbl)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("Thresholds row not found in %s sheet", g.opt.StaticSheet))
	}
	important, err := g.engine.ReadImportantMetrics(tbl, bu)
	switch {
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("No business unit rows in %s sheet", g.opt.StaticSheet))
	case len(important) == 0:
		warnings = append(warnings, fmt.Sprintf("BU '%s' not found in %s sheet", bu, g.opt.StaticSheet))
	}
	return thresholds, important, warnings
}

// Analyze extracts the series and summary of bu without writing anything.
func (g *Generator) Analyze(wb *workbook.Workbook, bu string) (*Result, error) {
	res := &Result{BusinessUnit: bu}
	thresholds, important, warnings := g.Configuration(wb, bu)
	res.Warnings = warnings

	sheet, err := wb.Sheet(bu)
	if err != nil {
		return res, err
	}
	metrics := g.engine.Classify(sheet)
	if len(metrics) == 0 {
		return res, fmt.Errorf("%s: %w", bu, analysis.ErrNoMetrics)
	}
	series, err := g.engine.Assemble(sheet, metrics)
	if err != nil {
		return res, fmt.Errorf("%s: %w", bu, err)
	}
	res.Series = series
	res.Summary = analysis.Summarize(bu, series, thresholds, important, g.engine.Options().DefaultThreshold)
	return res, nil
}

// Run analyzes bu and, when an output directory is configured, writes its files.
func (g *Generator) Run(ctx context.Context, wb *workbook.Workbook, bu string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := g.Analyze(wb, bu)
	if err != nil || g.opt.OutputDir == "" {
		return res, err
	}
	return res, g.write(res)
}

func (g *Generator) write(res *Result) error {
	res.Dir = filepath.Join(g.opt.OutputDir, export.SafeName(res.BusinessUnit))
	if err := utils.EnsureDir(res.Dir); err != nil {
		return err
	}
	put := func(name string, data []byte) error {
		if err := utils.SafeWriteFile(filepath.Join(res.Dir, name), data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		res.Files = append(res.Files, name)
		return nil
	}

	if err := put(SummaryFile, []byte(res.Summary.Markdown())); err != nil {
		return err
	}
	var csvBuf bytes.Buffer
	if err := export.WriteCSV(&csvBuf, res.Series); err != nil {
		return err
	}
	if err := put(export.CSVFileName(g.opt.CSVTemplate, res.BusinessUnit), csvBuf.Bytes()); err != nil {
		return err
	}
	if !g.opt.Charts {
		return nil
	}

	png, err := chart.SummaryChart(res.Series, g.opt.SummarySize)
	switch {
	case errors.Is(err, chart.ErrNotEnoughPoints):
		res.Warnings = append(res.Warnings, "not enough data points for the overview chart")
	case err != nil:
		return err
	default:
		if err := put(SummaryChartFile, png); err != nil {
			return err
		}
	}
	for _, m := range res.Summary.Metrics {
		png, err := chart.MetricChart(res.Series, m.Name, m.Threshold, m.Important, g.opt.ChartSize)
		if errors.Is(err, chart.ErrNotEnoughPoints) {
			g.log.Warn().Str("bu", res.BusinessUnit).Str("metric", m.Name).Msg("skipping chart, fewer than two data points")
			res.Warnings = append(res.Warnings, fmt.Sprintf("not enough data points to chart %s", m.Name))
			continue
		}
		if err != nil {
			return err
		}
		if err := put(export.SafeName(m.Name)+".png", png); err != nil {
			return err
		}
	}
	return nil
}

// Outcome pairs a business unit with its result or error.
type Outcome struct {
	BusinessUnit string
	Result       *Result
	Err          error
}

// RunAll runs every business unit with at most workers in flight. A failing
// unit does not stop the others; outcomes keep the order of bus.
func (g *Generator) RunAll(ctx context.Context, wb *workbook.Workbook, bus []string, workers int) ([]Outcome, error) {
	if workers <= 0 {
		workers = 1
	}
	out := make([]Outcome, len(bus))
	var eg errgroup.Group
	eg.SetLimit(workers)
	for i, bu := range bus {
		eg.Go(func() error {
			res, err := g.Run(ctx, wb, bu)
			out[i] = Outcome{BusinessUnit: bu, Result: res, Err: err}
			if err != nil && ctx.Err() == nil {
				g.log.Error().Err(err).Str("bu", bu).Msg("report failed")
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}

// Message renders err the way the CLI reports a failed business unit.
func Message(bu string, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, workbook.ErrSheetNotFound):
		return fmt.Sprintf("Sheet '%s' not found in workbook", bu)
	case errors.Is(err, analysis.ErrNoMetrics):
		return "No root cause columns identified in the data"
	case errors.Is(err, analysis.ErrEmptySeries):
		return "Unable to prepare data for visualization"
	case errors.Is(err, os.ErrPermission):
		return fmt.Sprintf("Cannot write report for %s: %v", bu, err)
	}
	return strings.TrimSpace(fmt.Sprintf("Error loading data for %s: %v", bu, err))
}
