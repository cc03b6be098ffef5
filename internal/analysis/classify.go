package analysis

import (
	"math"
	"strings"

	"github.com/samber/lo"
)

// MetricCandidate is one raw column that qualified as a root cause metric.
type MetricCandidate struct {
	// Column is the index of the source column in the raw sheet.
	Column int
	// ColumnName is the raw header, including any decoration.
	ColumnName string
	// BaseName is the metric identity after CleanName.
	BaseName string
	// FractionEncoded is inferred from values: most non-zero values are below 1.
	FractionEncoded bool
	// PercentDecorated is true when the header ends in "%".
	PercentDecorated bool
	Max              float64
	Min              float64
}

// Classify scans the sheet for metric columns and resolves competing columns
// to one canonical column per base name. The result is ordered by the first
// appearance of each base name. An empty result is valid.
func (e *Engine) Classify(s *RawSheet) []MetricCandidate {
	if s == nil {
		return []MetricCandidate{}
	}
	var (
		order    []string
		fraction = map[string]MetricCandidate{}
		count    = map[string]MetricCandidate{}
	)
	for idx, col := range s.Columns {
		name := strings.TrimSpace(col.Name)
		if containsAnyFold(name, e.opt.ExcludePatterns) {
			e.log.Debug().Str("column", name).Msg("skipping threshold/reference column")
			continue
		}
		if !containsAnyFold(name, e.opt.MetricPatterns) {
			continue
		}
		if !metricTyped(col.Cells) {
			e.log.Debug().Str("column", name).Msg("skipping non-numeric column")
			continue
		}
		c := e.candidate(idx, name, col.Cells)
		if !lo.Contains(order, c.BaseName) {
			order = append(order, c.BaseName)
		}
		if !c.FractionEncoded {
			if _, ok := count[c.BaseName]; ok {
				e.log.Debug().Str("column", name).Str("base", c.BaseName).Msg("ignoring duplicate count column")
				continue
			}
			count[c.BaseName] = c
			continue
		}
		prev, ok := fraction[c.BaseName]
		switch {
		case !ok:
			fraction[c.BaseName] = c
			e.log.Debug().Str("column", name).Str("base", c.BaseName).Msg("selected as percentage column")
		case c.Max < prev.Max:
			e.log.Debug().Str("replaced", prev.ColumnName).Float64("replaced_max", prev.Max).
				Str("column", name).Float64("max", c.Max).Msg("replacing percentage column")
			fraction[c.BaseName] = c
		default:
			e.log.Debug().Str("kept", prev.ColumnName).Float64("kept_max", prev.Max).
				Str("column", name).Float64("max", c.Max).Msg("keeping percentage column")
		}
	}
	out := make([]MetricCandidate, 0, len(order))
	for _, base := range order {
		if c, ok := fraction[base]; ok {
			out = append(out, c)
			continue
		}
		c := count[base]
		e.log.Debug().Str("column", c.ColumnName).Msg("no percentage column found, using count column")
		out = append(out, c)
	}
	e.log.Info().Strs("columns", lo.Map(out, func(c MetricCandidate, _ int) string { return c.ColumnName })).
		Msg("identified root cause columns")
	return out
}

// metricTyped reports whether a column is wholly numeric, or textual with at
// least one percent literal. An all-empty column counts as numeric.
func metricTyped(cells []Cell) bool {
	hasText, hasPercent := false, false
	for _, c := range cells {
		if c.Kind != CellText {
			continue
		}
		hasText = true
		if strings.Contains(c.Text, "%") {
			hasPercent = true
		}
	}
	return !hasText || hasPercent
}

func (e *Engine) candidate(idx int, name string, cells []Cell) MetricCandidate {
	c := MetricCandidate{
		Column:           idx,
		ColumnName:       name,
		BaseName:         CleanName(name),
		PercentDecorated: IsPercentDecorated(name),
	}
	vals := classificationValues(cells)
	if len(vals) == 0 {
		return c
	}
	c.Min, c.Max = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		c.Min = math.Min(c.Min, v)
		c.Max = math.Max(c.Max, v)
	}
	nonZero := lo.Filter(vals, func(v float64, _ int) bool { return v != 0 })
	if len(nonZero) == 0 {
		e.log.Debug().Str("column", name).Msg("all zeros, treating as count column")
		return c
	}
	below := lo.CountBy(nonZero, func(v float64) bool { return v < 1 })
	share := float64(below) / float64(len(nonZero))
	c.FractionEncoded = share > e.opt.FractionProportion
	e.log.Debug().Str("column", name).Float64("max", c.Max).Float64("min", c.Min).
		Float64("share_below_one", share).Bool("fraction", c.FractionEncoded).Msg("analyzed column")
	return c
}

// classificationValues returns the present values of a column on the scale they
// will be plotted at: numbers as stored, percent literals divided by 100.
func classificationValues(cells []Cell) []float64 {
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		switch c.Kind {
		case CellNumber:
			if !math.IsNaN(c.Num) {
				out = append(out, c.Num)
			}
		case CellText:
			v, ok := parseNumeric(c.Text)
			if !ok {
				continue
			}
			if strings.Contains(c.Text, "%") {
				v /= 100
			}
			out = append(out, v)
		}
	}
	return out
}
