package analysis

import (
	"math"
	"strings"
)

// Normalize converts a column's cells to fractions of total (5% -> 0.05).
//
// Percent literals ("5.00%") are always divided by 100. Numbers in a column whose
// header ends in "%" are already fractions and pass through. Numbers in any other
// column are divided by 100 when more than RescaleProportion of the non-zero
// numbers exceed 1; that decision is taken once for the whole column.
// Unparsable cells become missing.
func (e *Engine) Normalize(cells []Cell, percentDecorated bool) []Fraction {
	out := make([]Fraction, len(cells))
	numeric := make([]bool, len(cells))
	for i, c := range cells {
		switch c.Kind {
		case CellNumber:
			if math.IsNaN(c.Num) {
				continue
			}
			out[i] = Some(c.Num)
			numeric[i] = true
		case CellText:
			v, ok := parseNumeric(c.Text)
			if !ok {
				e.log.Warn().Int("row", i).Str("value", c.Text).Msg("unparsable metric cell")
				continue
			}
			if strings.Contains(c.Text, "%") {
				out[i] = Some(v / 100)
				continue
			}
			out[i] = Some(v)
			numeric[i] = true
		}
	}
	if percentDecorated || !e.percentScale(out, numeric) {
		return out
	}
	for i := range out {
		if numeric[i] && out[i].Valid {
			out[i].Value /= 100
		}
	}
	return out
}

// percentScale reports whether the numeric values of a column look like
// percentages on a 0-100 scale.
func (e *Engine) percentScale(vals []Fraction, numeric []bool) bool {
	nonZero, above := 0, 0
	for i, v := range vals {
		if !numeric[i] || !v.Valid || v.Value == 0 {
			continue
		}
		nonZero++
		if v.Value > 1 {
			above++
		}
	}
	if nonZero == 0 {
		return false
	}
	return float64(above)/float64(nonZero) > e.opt.RescaleProportion
}
