package workbook

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
)

type csvFormat struct{}

func (csvFormat) CanOpen(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

// Read loads a delimited file as a single-sheet workbook named after the file.
func (csvFormat) Read(name string, r io.Reader) (*Workbook, error) {
	br := bufio.NewReader(r)
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = sniffDelimiter(name, br)

	var grid [][]analysis.Cell
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", name, err)
		}
		row := make([]analysis.Cell, len(rec))
		for i, v := range rec {
			row[i] = csvCell(v)
		}
		grid = append(grid, row)
	}
	wb := newWorkbook(name)
	wb.add(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)), grid)
	return wb, nil
}

// sniffDelimiter picks tab for .tsv, otherwise whichever of ',' and ';' occurs
// more often in the first line.
func sniffDelimiter(name string, br *bufio.Reader) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	line, _ := br.Peek(4096)
	if i := strings.IndexByte(string(line), '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(string(line), ";") > strings.Count(string(line), ",") {
		return ';'
	}
	return ','
}

func csvCell(v string) analysis.Cell {
	s := strings.TrimSpace(v)
	if s == "" {
		return analysis.Empty()
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return analysis.Number(n)
	}
	return analysis.Text(s)
}
