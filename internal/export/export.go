// Package export writes assembled stability series as CSV and text tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
)

// DefaultCSVTemplate names per business unit CSV exports.
const DefaultCSVTemplate = "{bu}_stability_data.csv"

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// SafeName makes a business unit or metric name usable as a file name.
// Runs of unsafe characters become a single "_".
func SafeName(name string) string {
	safe := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if safe == "" {
		return "unit"
	}
	return safe
}

// CSVFileName expands "{bu}" in template with the file-safe business unit name.
func CSVFileName(template, bu string) string {
	if template == "" {
		template = DefaultCSVTemplate
	}
	return strings.ReplaceAll(template, "{bu}", SafeName(bu))
}

func dateLabel(s *analysis.Series, r analysis.Row, i int) string {
	if s.Synthetic {
		return strconv.Itoa(i + 1)
	}
	return r.Date.Format("2006-01-02")
}

// WriteCSV writes the series with a Date column followed by one column per
// metric. Fractions are written raw; missing values are empty.
func WriteCSV(w io.Writer, s *analysis.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Date"}, s.Names()...)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range s.Rows {
		rec := make([]string, 0, len(r.Values)+1)
		rec = append(rec, dateLabel(s, r, i))
		for _, v := range r.Values {
			if v.Valid {
				rec = append(rec, strconv.FormatFloat(v.Value, 'f', -1, 64))
			} else {
				rec = append(rec, "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Table renders the series with values formatted as percentages.
func Table(s *analysis.Series) string {
	t := table.NewWriter()
	header := table.Row{"Date"}
	for _, n := range s.Names() {
		header = append(header, n)
	}
	t.AppendHeader(header)
	for i, r := range s.Rows {
		row := table.Row{dateLabel(s, r, i)}
		for _, v := range r.Values {
			if v.Valid {
				row = append(row, analysis.Percent(v.Value))
			} else {
				row = append(row, "")
			}
		}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs(rightAlign(len(header)))
	return t.Render()
}

// SummaryTable renders the per metric summary.
func SummaryTable(sum *analysis.Summary) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s: %d data points", sum.Group, sum.DataPoints))
	t.AppendHeader(table.Row{"Root cause", "Latest", "Mean", "Max", "Threshold", "Above"})
	for _, m := range sum.Metrics {
		name := m.Name
		if m.Important {
			name = "★ " + name
		}
		latest := ""
		if m.Latest.Valid {
			latest = analysis.Percent(m.Latest.Value)
		}
		thr := analysis.Percent(m.Threshold)
		if !m.Configured {
			thr += "*"
		}
		t.AppendRow(table.Row{name, latest, analysis.Percent(m.Mean), analysis.Percent(m.Max), thr,
			fmt.Sprintf("%d/%d", m.Exceeded, m.Points)})
	}
	if sum.ThresholdsDefined < len(sum.Metrics) {
		t.AppendFooter(table.Row{"* default threshold"})
	}
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs(rightAlign(6))
	return t.Render()
}

// ThresholdTable lists configured thresholds by metric name. Important metrics
// are starred; important metrics without a threshold are listed too.
func ThresholdTable(thresholds analysis.ThresholdMap, important []string) string {
	names := make([]string, 0, len(thresholds))
	for k := range thresholds {
		names = append(names, k)
	}
	for _, imp := range important {
		if _, ok := thresholds.Lookup(imp); !ok {
			names = append(names, imp)
		}
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Threshold", "Important"})
	for _, n := range names {
		thr := "-"
		if v, ok := thresholds.Lookup(n); ok {
			thr = analysis.Percent(v)
		}
		star := ""
		for _, imp := range important {
			if analysis.SameMetric(imp, n) {
				star = "★"
				break
			}
		}
		t.AppendRow(table.Row{n, thr, star})
	}
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs(rightAlign(2))
	return t.Render()
}

func rightAlign(n int) []table.ColumnConfig {
	cfg := make([]table.ColumnConfig, 0, n)
	for i := 2; i <= n; i++ {
		cfg = append(cfg, table.ColumnConfig{Number: i, Align: text.AlignRight})
	}
	return cfg
}
