package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// ThresholdMap maps a metric name to a threshold fraction.
type ThresholdMap map[string]float64

// Lookup returns the threshold for a metric. Keys and the requested name are
// compared after CleanName, case-insensitively; when several keys clean to the
// same metric the lowest key in sort order wins. ok is false when nothing matches.
func (m ThresholdMap) Lookup(metric string) (float64, bool) {
	if v, ok := m[metric]; ok {
		return v, true
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if SameMetric(k, metric) {
			return m[k], true
		}
	}
	return 0, false
}

// ReadThresholds pairs the metric names of row 1 with the thresholds of row 2
// (0-based) by column position. Unparsable thresholds are skipped with a
// warning. When two names clean to the same metric the leftmost column wins.
// ErrNoConfiguration is returned when the table lacks the threshold rows; the map
// is never nil.
func (e *Engine) ReadThresholds(t *ConfigTable) (ThresholdMap, error) {
	out := ThresholdMap{}
	if t.Len() <= RowThresholds {
		e.log.Warn().Int("rows", t.Len()).Msg("thresholds row not found in static values sheet")
		return out, fmt.Errorf("read thresholds: %w", ErrNoConfiguration)
	}
	names := t.Rows[RowMetricNames]
	values := t.Rows[RowThresholds]
	for col := 0; col < len(names) && col < len(values); col++ {
		name, val := names[col], values[col]
		if name.IsEmpty() || val.IsEmpty() {
			continue
		}
		metric := strings.TrimSpace(name.String())
		if metric == "" {
			continue
		}
		thr, ok := parseThreshold(val)
		if !ok {
			e.log.Warn().Str("metric", metric).Str("value", val.String()).Int("column", col).
				Msg("could not convert threshold value")
			continue
		}
		if _, dup := out.Lookup(metric); dup {
			e.log.Warn().Str("metric", metric).Int("column", col).Msg("duplicate threshold ignored")
			continue
		}
		out[metric] = thr
	}
	e.log.Debug().Int("count", len(out)).Msg("loaded thresholds")
	return out, nil
}

func parseThreshold(c Cell) (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Num, true
	case CellText:
		s := strings.TrimSpace(c.Text)
		if strings.Contains(s, "%") {
			v, ok := parseNumeric(s)
			if !ok {
				return 0, false
			}
			return v / 100, true
		}
		return parseNumeric(s)
	}
	return 0, false
}

// ReadImportantMetrics returns the comma-separated metric names listed in row 6
// under the column whose row 5 cell equals group (0-based, trimmed,
// case-insensitive).
// An unknown group yields an empty list and no error.
func (e *Engine) ReadImportantMetrics(t *ConfigTable, group string) ([]string, error) {
	if t.Len() < minConfigRows {
		e.log.Warn().Int("rows", t.Len()).Msg("static values sheet has too few rows for group definitions")
		return []string{}, fmt.Errorf("read important metrics: %w", ErrNoConfiguration)
	}
	want := strings.ToLower(strings.TrimSpace(group))
	groups := t.Rows[RowGroupNames]
	col := -1
	for i, c := range groups {
		if c.IsEmpty() {
			continue
		}
		if strings.ToLower(strings.TrimSpace(c.String())) == want {
			col = i
			break
		}
	}
	if col < 0 {
		e.log.Warn().Str("group", group).Msg("group not found in static values sheet")
		return []string{}, nil
	}
	cell := t.Cell(RowImportantLists, col)
	if cell.IsEmpty() {
		return []string{}, nil
	}
	out := []string{}
	for _, tok := range strings.Split(cell.String(), ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	e.log.Debug().Str("group", group).Strs("metrics", out).Msg("important metrics")
	return out, nil
}

// ImportantMetricsMap maps every configured group (lower-cased) to its
// important metric names.
type ImportantMetricsMap map[string][]string

// Get looks a group up case-insensitively.
func (m ImportantMetricsMap) Get(group string) []string {
	return m[strings.ToLower(strings.TrimSpace(group))]
}

// ReadAllImportantMetrics reads every group of row 5 (0-based) at once.
func (e *Engine) ReadAllImportantMetrics(t *ConfigTable) (ImportantMetricsMap, error) {
	out := ImportantMetricsMap{}
	if t.Len() < minConfigRows {
		return out, fmt.Errorf("read important metrics: %w", ErrNoConfiguration)
	}
	for _, c := range t.Rows[RowGroupNames] {
		name := strings.TrimSpace(c.String())
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, seen := out[key]; seen {
			continue
		}
		list, err := e.ReadImportantMetrics(t, name)
		if err != nil {
			return out, err
		}
		out[key] = list
	}
	return out, nil
}
