// Package workbook reads stability workbooks into the grids consumed by the
// analysis engine. A workbook is loaded eagerly and is read-only afterwards, so
// one value can be shared by concurrent business unit runs.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
)

// ErrSheetNotFound is returned when a named sheet is absent from the workbook.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrUnsupported indicates a file format no registered reader handles.
var ErrUnsupported = errors.New("unsupported workbook format")

// Format reads one file format into a Workbook.
type Format interface {
	CanOpen(filename string) bool
	Read(name string, r io.Reader) (*Workbook, error)
}

var registry []Format

// Register adds a format to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

func init() {
	Register(xlsxFormat{})
	Register(csvFormat{})
}

// Workbook is an ordered set of named cell grids.
type Workbook struct {
	Name   string
	sheets []string
	grids  map[string][][]analysis.Cell
}

func newWorkbook(name string) *Workbook {
	return &Workbook{Name: name, grids: map[string][][]analysis.Cell{}}
}

func (w *Workbook) add(sheet string, grid [][]analysis.Cell) {
	if _, ok := w.grids[sheet]; !ok {
		w.sheets = append(w.sheets, sheet)
	}
	w.grids[sheet] = grid
}

// Open reads a workbook from disk, choosing the reader by file extension.
func Open(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return OpenReader(filepath.Base(path), f)
}

// OpenReader reads a workbook from r. name selects the format and names the
// workbook; it is usually the original file name.
func OpenReader(name string, r io.Reader) (*Workbook, error) {
	for _, f := range registry {
		if f.CanOpen(name) {
			return f.Read(name, r)
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnsupported)
}

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return append([]string(nil), w.sheets...)
}

// BusinessUnits returns the sheets that hold business unit data, that is every
// sheet not named in excluded (trimmed, case-insensitive).
func (w *Workbook) BusinessUnits(excluded []string) []string {
	out := []string{}
	for _, s := range w.sheets {
		skip := false
		for _, x := range excluded {
			if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(x)) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, s)
		}
	}
	return out
}

// resolve finds a sheet by exact name, then case-insensitively.
func (w *Workbook) resolve(name string) (string, bool) {
	if _, ok := w.grids[name]; ok {
		return name, true
	}
	want := strings.TrimSpace(name)
	for _, s := range w.sheets {
		if strings.EqualFold(strings.TrimSpace(s), want) {
			return s, true
		}
	}
	return "", false
}

// Sheet returns a sheet as header plus columns. Header names are trimmed, blank
// headers become "Unnamed: N" and repeated names get ".1", ".2" suffixes.
func (w *Workbook) Sheet(name string) (*analysis.RawSheet, error) {
	key, ok := w.resolve(name)
	if !ok {
		return nil, fmt.Errorf("sheet %q: %w", name, ErrSheetNotFound)
	}
	grid := w.grids[key]
	out := &analysis.RawSheet{Name: key}
	if len(grid) == 0 {
		return out, nil
	}
	width := 0
	for _, row := range grid {
		width = max(width, len(row))
	}
	header := make([]string, width)
	for c := 0; c < width; c++ {
		if c < len(grid[0]) {
			header[c] = strings.TrimSpace(grid[0][c].String())
		}
		if header[c] == "" {
			header[c] = fmt.Sprintf("Unnamed: %d", c)
		}
	}
	header = dedupe(header)
	out.Columns = make([]analysis.Column, width)
	for c := 0; c < width; c++ {
		cells := make([]analysis.Cell, len(grid)-1)
		for r := 1; r < len(grid); r++ {
			if c < len(grid[r]) {
				cells[r-1] = grid[r][c]
			}
		}
		out.Columns[c] = analysis.Column{Name: header[c], Cells: cells}
	}
	return out, nil
}

// ConfigTable returns a sheet as a raw grid with no header interpretation.
func (w *Workbook) ConfigTable(name string) (*analysis.ConfigTable, error) {
	key, ok := w.resolve(name)
	if !ok {
		return nil, fmt.Errorf("sheet %q: %w", name, ErrSheetNotFound)
	}
	grid := w.grids[key]
	rows := make([][]analysis.Cell, len(grid))
	for i, r := range grid {
		rows[i] = append([]analysis.Cell(nil), r...)
	}
	return &analysis.ConfigTable{Rows: rows}, nil
}

func dedupe(names []string) []string {
	out := make([]string, len(names))
	used := map[string]bool{}
	counts := map[string]int{}
	for i, n := range names {
		cand := n
		for used[cand] {
			counts[n]++
			cand = fmt.Sprintf("%s.%d", n, counts[n])
		}
		used[cand] = true
		out[i] = cand
	}
	return out
}
