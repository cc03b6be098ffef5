package analysis

import (
	"github.com/rs/zerolog"
)

// Fixed row positions of the static configuration sheet (0-indexed).
const (
	RowMetricNames    = 1
	RowThresholds     = 2
	RowGroupNames     = 5
	RowImportantLists = 6

	// minConfigRows is the number of rows the static sheet must carry
	// before the group rows can be indexed.
	minConfigRows = RowImportantLists + 1
)

// Options controls metric discovery and normalization.
type Options struct {
	// MetricPatterns are case-insensitive substrings identifying root cause columns.
	MetricPatterns []string
	// ExcludePatterns disqualify a column even when a metric pattern matches.
	ExcludePatterns []string
	// DatePatterns identify the temporal axis column; the first match wins.
	DatePatterns []string
	// DefaultThreshold is substituted when a metric has no configured threshold.
	DefaultThreshold float64
	// FractionProportion is the share of non-zero values that must be strictly
	// below 1 for a column to be classified fraction-encoded.
	FractionProportion float64
	// RescaleProportion is the share of non-zero values that must exceed 1 for an
	// undecorated numeric column to be divided by 100.
	RescaleProportion float64
}

// DefaultOptions returns the settings used by the stability workbook.
func DefaultOptions() Options {
	return Options{
		MetricPatterns: []string{
			"Maintenance",
			"System Issue",
			"System.Issue",
			"No Defect",
			"Configuration",
			"Test Data",
			"Deployment",
			"TC in Review",
			"Investigate",
			"R Program",
		},
		ExcludePatterns:    []string{"threshold", "treshold", "limit", "target", "goal"},
		DatePatterns:       []string{"date", "week"},
		DefaultThreshold:   0.05,
		FractionProportion: 0.7,
		RescaleProportion:  0.5,
	}
}

// Engine runs the extraction pipeline with a fixed set of options.
// An Engine holds no per-load state and may be shared between goroutines.
type Engine struct {
	opt Options
	log zerolog.Logger
}

// NewEngine returns an Engine. Zero-valued proportions and default threshold
// fall back to DefaultOptions.
func NewEngine(opt Options, log zerolog.Logger) *Engine {
	def := DefaultOptions()
	if opt.FractionProportion <= 0 {
		opt.FractionProportion = def.FractionProportion
	}
	if opt.RescaleProportion <= 0 {
		opt.RescaleProportion = def.RescaleProportion
	}
	if opt.DefaultThreshold <= 0 {
		opt.DefaultThreshold = def.DefaultThreshold
	}
	if len(opt.DatePatterns) == 0 {
		opt.DatePatterns = def.DatePatterns
	}
	return &Engine{opt: opt, log: log.With().Str("component", "analysis").Logger()}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opt }
