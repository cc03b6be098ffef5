package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
)

type xlsxFormat struct{}

func (xlsxFormat) CanOpen(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

// Read loads every sheet. Cells are read raw so percent-formatted numbers keep
// their stored fraction; date-formatted numbers are converted by xlsxCell.
func (xlsxFormat) Read(name string, r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", name, err)
	}
	defer f.Close()

	wb := newWorkbook(name)
	dates := dateStyles{f: f, seen: map[int]bool{}}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		grid := make([][]analysis.Cell, len(rows))
		for r, row := range rows {
			grid[r] = make([]analysis.Cell, len(row))
			for c, v := range row {
				grid[r][c] = xlsxCell(f, &dates, sheet, c, r, v)
			}
		}
		wb.add(sheet, grid)
	}
	return wb, nil
}

// xlsxCell types one raw cell value. Numbers shown with a date format become
// ISO date text: they parse as dates on the date axis and are never mistaken
// for a numeric metric.
func xlsxCell(f *excelize.File, dates *dateStyles, sheet string, col, row int, v string) analysis.Cell {
	if strings.TrimSpace(v) == "" {
		return analysis.Empty()
	}
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return numberOrText(v)
	}
	if typ, err := f.GetCellType(sheet, ref); err == nil {
		switch typ {
		case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
			excelize.CellTypeBool, excelize.CellTypeError:
			return analysis.Text(v)
		}
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return analysis.Text(v)
	}
	if style, err := f.GetCellStyle(sheet, ref); err == nil && dates.isDate(style) {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil {
			return analysis.Text(isoDate(t))
		}
	}
	return analysis.Number(n)
}

func numberOrText(v string) analysis.Cell {
	if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return analysis.Number(n)
	}
	return analysis.Text(v)
}

func isoDate(t time.Time) string {
	t = t.Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04:05")
}

// dateStyles memoizes whether a style index carries a date or time number format.
type dateStyles struct {
	f    *excelize.File
	seen map[int]bool
}

func (d *dateStyles) isDate(idx int) bool {
	if idx <= 0 {
		return false
	}
	if v, ok := d.seen[idx]; ok {
		return v
	}
	v := false
	if st, err := d.f.GetStyle(idx); err == nil && st != nil {
		v = isBuiltinDateFormat(st.NumFmt) || (st.CustomNumFmt != nil && isDateFormat(*st.CustomNumFmt))
	}
	d.seen[idx] = v
	return v
}

// isBuiltinDateFormat reports whether a built-in number format id renders a
// date or time (ECMA-376 18.8.30, including the East Asian ids).
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom format code contains a day, year or
// hour token outside quoted literals and bracketed sections.
func isDateFormat(code string) bool {
	inQuote, inBracket, escaped := false, false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'd', r == 'y', r == 'h':
			return true
		}
	}
	return false
}
