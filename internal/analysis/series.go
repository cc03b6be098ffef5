package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// SyntheticEpoch anchors the ordinal date axis used when a sheet has no date column.
var SyntheticEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Row is one dated observation. Values align with Series.Metrics.
type Row struct {
	Date time.Time
	// Source is the 0-based data row index in the raw sheet.
	Source int
	Values []Fraction
}

// Series is the tidy, date-sorted table produced by Assemble.
type Series struct {
	// DateColumn is the raw header used as the date axis; empty when Synthetic.
	DateColumn string
	// Synthetic is true when row ordinals stand in for calendar dates.
	Synthetic bool
	Metrics   []MetricCandidate
	Rows      []Row
}

// Names returns the metric base names in column order.
func (s *Series) Names() []string {
	out := make([]string, len(s.Metrics))
	for i, m := range s.Metrics {
		out[i] = m.BaseName
	}
	return out
}

// Index returns the position of a metric by base name, or -1.
func (s *Series) Index(metric string) int {
	for i, m := range s.Metrics {
		if m.BaseName == metric || SameMetric(m.BaseName, metric) {
			return i
		}
	}
	return -1
}

// Column returns the values of one metric across all rows.
func (s *Series) Column(metric string) []Fraction {
	i := s.Index(metric)
	if i < 0 {
		return nil
	}
	out := make([]Fraction, len(s.Rows))
	for r, row := range s.Rows {
		out[r] = row.Values[i]
	}
	return out
}

// Empty reports whether the series has no rows.
func (s *Series) Empty() bool { return s == nil || len(s.Rows) == 0 }

// Assemble joins the date axis with the normalized metric columns, sorts by
// date and drops rows with no date or no metric value. A series with zero rows
// is returned together with ErrEmptySeries.
func (e *Engine) Assemble(s *RawSheet, metrics []MetricCandidate) (*Series, error) {
	out := &Series{Metrics: metrics, Rows: []Row{}}
	if len(metrics) == 0 {
		return out, fmt.Errorf("assemble: %w", ErrNoMetrics)
	}
	n := s.Rows()
	cols := make([][]Fraction, len(metrics))
	for i, m := range metrics {
		cells := make([]Cell, n)
		for r := 0; r < n; r++ {
			cells[r] = s.Cell(r, m.Column)
		}
		cols[i] = e.Normalize(cells, m.PercentDecorated)
	}

	dateCol := e.findDateColumn(s)
	if dateCol < 0 {
		out.Synthetic = true
		e.log.Warn().Str("sheet", s.Name).Msg("no date column found, using row order as date axis")
	} else {
		out.DateColumn = strings.TrimSpace(s.Columns[dateCol].Name)
	}

	invalid := 0
	for r := 0; r < n; r++ {
		var d time.Time
		if out.Synthetic {
			d = SyntheticEpoch.AddDate(0, 0, r)
		} else {
			cell := s.Cell(r, dateCol)
			t, ok := ParseDate(cell)
			if !ok {
				if !cell.IsEmpty() {
					e.log.Debug().Int("row", r).Str("value", cell.String()).Msg("unparsable date")
				}
				invalid++
				continue
			}
			d = t
		}
		row := Row{Date: d, Source: r, Values: make([]Fraction, len(metrics))}
		present := false
		for i := range metrics {
			row.Values[i] = cols[i][r]
			present = present || row.Values[i].Valid
		}
		if !present {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	if invalid > 0 {
		e.log.Warn().Int("rows", invalid).Str("column", out.DateColumn).Msg("rows without a valid date dropped")
	}
	sort.SliceStable(out.Rows, func(i, j int) bool { return out.Rows[i].Date.Before(out.Rows[j].Date) })

	if len(out.Rows) == 0 {
		e.log.Error().Str("sheet", s.Name).Msg("all rows dropped after date processing")
		return out, fmt.Errorf("assemble: %w", ErrEmptySeries)
	}
	e.log.Info().Int("rows", len(out.Rows)).Time("from", out.Rows[0].Date).
		Time("to", out.Rows[len(out.Rows)-1].Date).Msg("prepared time series")
	return out, nil
}

func (e *Engine) findDateColumn(s *RawSheet) int {
	for i, c := range s.Columns {
		if containsAnyFold(strings.TrimSpace(c.Name), e.opt.DatePatterns) {
			return i
		}
	}
	return -1
}

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006", "1/2/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	"2006-01-02T15:04:05", "01-02-2006", "02.01.2006", "2.1.2006", "1/2/06",
	"2 Jan 2006", "02 Jan 2006", "Jan 2, 2006", "January 2, 2006", "2 January 2006",
	"Mon, 02 Jan 2006", "20060102",
}

// ParseDate leniently parses a date cell. Numbers are read as Excel serial dates.
func ParseDate(c Cell) (time.Time, bool) {
	switch c.Kind {
	case CellNumber:
		if math.IsNaN(c.Num) || c.Num <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(c.Num, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case CellText:
		s := strings.TrimSpace(c.Text)
		for _, l := range dateLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
