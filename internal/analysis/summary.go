package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MetricSummary is the presentation view of one metric joined with its
// configured threshold and importance.
type MetricSummary struct {
	Name       string
	Column     string
	Threshold  float64
	Configured bool // false when DefaultThreshold was substituted
	Important  bool
	Points     int
	Exceeded   int
	Latest     Fraction
	LatestDate time.Time
	Mean       float64
	Max        float64
}

// Summary is the per business unit presentation dataset.
type Summary struct {
	Group             string
	From, To          time.Time
	Synthetic         bool
	DataPoints        int
	ThresholdsDefined int
	Important         []string
	Metrics           []MetricSummary
}

// Summarize joins a series with thresholds and important metrics by cleaned
// metric name. Metrics without a threshold get defaultThreshold.
func Summarize(group string, s *Series, thresholds ThresholdMap, important []string, defaultThreshold float64) *Summary {
	sum := &Summary{Group: group, ThresholdsDefined: len(thresholds), Important: important}
	if s == nil {
		return sum
	}
	sum.Synthetic = s.Synthetic
	sum.DataPoints = len(s.Rows)
	if len(s.Rows) > 0 {
		sum.From, sum.To = s.Rows[0].Date, s.Rows[len(s.Rows)-1].Date
	}
	for i, m := range s.Metrics {
		ms := MetricSummary{Name: m.BaseName, Column: m.ColumnName, Max: math.Inf(-1)}
		ms.Threshold, ms.Configured = thresholds.Lookup(m.BaseName)
		if !ms.Configured {
			ms.Threshold = defaultThreshold
		}
		for _, imp := range important {
			if SameMetric(imp, m.BaseName) {
				ms.Important = true
				break
			}
		}
		total := 0.0
		for _, row := range s.Rows {
			v := row.Values[i]
			if !v.Valid {
				continue
			}
			ms.Points++
			total += v.Value
			ms.Max = math.Max(ms.Max, v.Value)
			if v.Value > ms.Threshold {
				ms.Exceeded++
			}
			ms.Latest, ms.LatestDate = v, row.Date
		}
		if ms.Points > 0 {
			ms.Mean = total / float64(ms.Points)
		} else {
			ms.Max = 0
		}
		sum.Metrics = append(sum.Metrics, ms)
	}
	return sum
}

// Percent formats a fraction for display: 0.0523 -> "5.23%".
func Percent(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }

// Markdown renders a compact report of the summary.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[STABILITY SUMMARY]\n")
	if s.Group != "" {
		b.WriteString(fmt.Sprintf("Business unit: %s\n", s.Group))
	}
	if s.DataPoints > 0 {
		if s.Synthetic {
			b.WriteString("Period: row order (no date column)\n")
		} else {
			b.WriteString(fmt.Sprintf("Period: %s to %s\n", s.From.Format("2006-01-02"), s.To.Format("2006-01-02")))
		}
	}
	b.WriteString(fmt.Sprintf("Data points: %d\n", s.DataPoints))
	b.WriteString(fmt.Sprintf("Root causes tracked: %d\n", len(s.Metrics)))
	b.WriteString(fmt.Sprintf("Thresholds defined: %d\n", s.ThresholdsDefined))
	if len(s.Important) > 0 {
		b.WriteString(fmt.Sprintf("Important KPIs: %s\n", strings.Join(s.Important, ", ")))
	}
	b.WriteString("\n[ROOT CAUSES]\n")
	b.WriteString("| Root cause | Latest | Mean | Max | Threshold | Above threshold |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, m := range s.Metrics {
		name := m.Name
		if m.Important {
			name = "★ " + name
		}
		latest := "-"
		if m.Latest.Valid {
			latest = Percent(m.Latest.Value)
		}
		thr := Percent(m.Threshold)
		if !m.Configured {
			thr += " (default)"
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d/%d |\n",
			strings.ReplaceAll(name, "|", "/"), latest, Percent(m.Mean), Percent(m.Max), thr, m.Exceeded, m.Points))
	}
	return b.String()
}
