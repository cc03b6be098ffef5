package analysis

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrNoConfiguration reports a missing static sheet or one with too few rows.
	ErrNoConfiguration = errors.New("no configuration")
	// ErrNoMetrics reports a sheet without recognizable metric columns.
	ErrNoMetrics = errors.New("no root cause columns identified")
	// ErrEmptySeries reports that every row was dropped during assembly.
	ErrEmptySeries = errors.New("no dated rows with metric values")
)

// CellKind distinguishes the three scalar shapes a spreadsheet cell can take.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// Cell is a single scalar value read from a sheet.
type Cell struct {
	Kind CellKind
	Num  float64
	Text string
}

// Number returns a numeric cell.
func Number(v float64) Cell { return Cell{Kind: CellNumber, Num: v} }

// Text returns a textual cell. Blank strings become empty cells.
func Text(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// Empty returns a missing cell.
func Empty() Cell { return Cell{} }

// IsEmpty reports whether the cell is missing.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String renders the cell the way a spreadsheet would display its raw value.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Column is a named, ordered sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// RawSheet is an ordered set of columns. Names are not required to be unique.
type RawSheet struct {
	Name    string
	Columns []Column
}

// Rows returns the length of the longest column.
func (s *RawSheet) Rows() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, c := range s.Columns {
		if len(c.Cells) > n {
			n = len(c.Cells)
		}
	}
	return n
}

// Cell returns the cell at (row, col), or an empty cell when out of range.
func (s *RawSheet) Cell(row, col int) Cell {
	if s == nil || col < 0 || col >= len(s.Columns) {
		return Cell{}
	}
	cells := s.Columns[col].Cells
	if row < 0 || row >= len(cells) {
		return Cell{}
	}
	return cells[row]
}

// ConfigTable is the static configuration sheet as a raw grid with no header row.
type ConfigTable struct {
	Rows [][]Cell
}

// Cell returns the cell at (row, col), or an empty cell when out of range.
func (t *ConfigTable) Cell(row, col int) Cell {
	if t == nil || row < 0 || row >= len(t.Rows) {
		return Cell{}
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return Cell{}
	}
	return r[col]
}

// Len returns the number of rows.
func (t *ConfigTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Fraction is a nullable "fraction of total" value (0.05 == 5%).
type Fraction struct {
	Value float64
	Valid bool
}

// Some returns a present Fraction.
func Some(v float64) Fraction { return Fraction{Value: v, Valid: true} }
