// Package chart renders stability series as PNG line charts.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
)

// ErrNotEnoughPoints is returned when fewer than two distinct dated points are
// available to draw.
var ErrNotEnoughPoints = errors.New("not enough data points to chart")

// SummaryTitle is the title of the all-metrics chart.
const SummaryTitle = "Root Causes Overview"

// Size is a chart size in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) orDefault(w, h int) Size {
	if s.Width <= 0 {
		s.Width = w
	}
	if s.Height <= 0 {
		s.Height = h
	}
	return s
}

var (
	colorActual    = drawing.ColorFromHex("1f77b4")
	colorThreshold = drawing.ColorFromHex("ff7f0e")
	colorExceed    = drawing.ColorRed.WithAlpha(60)

	palette = []drawing.Color{
		drawing.ColorFromHex("1f77b4"), drawing.ColorFromHex("ff7f0e"), drawing.ColorFromHex("2ca02c"),
		drawing.ColorFromHex("d62728"), drawing.ColorFromHex("9467bd"), drawing.ColorFromHex("8c564b"),
		drawing.ColorFromHex("e377c2"), drawing.ColorFromHex("7f7f7f"), drawing.ColorFromHex("bcbd22"),
		drawing.ColorFromHex("17becf"),
	}
)

// points returns the valid observations of one metric, plotted on a percent scale.
func points(s *analysis.Series, idx int) ([]time.Time, []float64) {
	var xs []time.Time
	var ys []float64
	for _, r := range s.Rows {
		if v := r.Values[idx]; v.Valid {
			xs = append(xs, r.Date)
			ys = append(ys, v.Value*100)
		}
	}
	return xs, ys
}

func drawable(xs []time.Time) bool {
	if len(xs) < 2 {
		return false
	}
	for _, x := range xs[1:] {
		if !x.Equal(xs[0]) {
			return true
		}
	}
	return false
}

// MetricChart draws one metric against its threshold. The area where the
// metric exceeds the threshold is shaded.
func MetricChart(s *analysis.Series, metric string, threshold float64, important bool, size Size) ([]byte, error) {
	idx := -1
	if s != nil {
		idx = s.Index(metric)
	}
	if idx < 0 {
		return nil, fmt.Errorf("metric %q: %w", metric, ErrNotEnoughPoints)
	}
	xs, ys := points(s, idx)
	if !drawable(xs) {
		return nil, fmt.Errorf("metric %q: %w", metric, ErrNotEnoughPoints)
	}
	thr := threshold * 100
	thrLine := make([]float64, len(xs))
	exceed := make([]float64, len(xs))
	top := thr
	for i, y := range ys {
		thrLine[i] = thr
		exceed[i] = math.Max(y, thr)
		top = math.Max(top, y)
	}

	title := analysis.CleanName(s.Metrics[idx].BaseName)
	if important {
		title = "★ " + title
	}
	graph := baseChart(title, s.Synthetic, top, size.orDefault(1000, 400))
	graph.Series = []chart.Series{
		chart.TimeSeries{
			XValues: xs, YValues: exceed,
			Style: chart.Style{StrokeColor: colorExceed, StrokeWidth: 1, FillColor: colorExceed},
		},
		chart.TimeSeries{
			XValues: xs, YValues: thrLine,
			Style: chart.Style{
				StrokeColor:     colorThreshold,
				StrokeWidth:     2,
				StrokeDashArray: []float64{6, 4},
				FillColor:       drawing.ColorWhite,
			},
		},
		chart.TimeSeries{
			Name:    title,
			XValues: xs, YValues: ys,
			Style: chart.Style{StrokeColor: colorActual, StrokeWidth: 2, DotWidth: 3, DotColor: colorActual},
		},
	}
	return render(graph)
}

// SummaryChart draws every chartable metric of the series with a legend.
func SummaryChart(s *analysis.Series, size Size) ([]byte, error) {
	if s.Empty() {
		return nil, ErrNotEnoughPoints
	}
	var series []chart.Series
	top := 0.0
	for i, m := range s.Metrics {
		xs, ys := points(s, i)
		if !drawable(xs) {
			continue
		}
		for _, y := range ys {
			top = math.Max(top, y)
		}
		c := palette[len(series)%len(palette)]
		series = append(series, chart.TimeSeries{
			Name:    m.BaseName,
			XValues: xs, YValues: ys,
			Style: chart.Style{StrokeColor: c, StrokeWidth: 2, DotWidth: 2, DotColor: c},
		})
	}
	if len(series) == 0 {
		return nil, ErrNotEnoughPoints
	}
	graph := baseChart(SummaryTitle, s.Synthetic, top, size.orDefault(1000, 500))
	graph.Series = series
	graph.Background.Padding.Right = 160
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}
	return render(graph)
}

func baseChart(title string, synthetic bool, top float64, size Size) chart.Chart {
	if top <= 0 {
		top = 1
	}
	xFormat := chart.TimeValueFormatterWithFormat("2006-01-02")
	xName := "Date"
	if synthetic {
		xName = "Row"
		xFormat = func(v any) string {
			if f, ok := v.(float64); ok {
				d := time.Unix(0, int64(f)).UTC().Sub(analysis.SyntheticEpoch)
				return fmt.Sprintf("%d", int(math.Round(d.Hours()/24))+1)
			}
			return ""
		}
	}
	return chart.Chart{
		Title:  title,
		Width:  size.Width,
		Height: size.Height,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: drawing.ColorWhite,
		},
		XAxis: chart.XAxis{
			Name:           xName,
			ValueFormatter: xFormat,
		},
		YAxis: chart.YAxis{
			Name:  "Percentage (%)",
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v any) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.1f%%", f)
				}
				return ""
			},
		},
	}
}

func render(graph chart.Chart) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
