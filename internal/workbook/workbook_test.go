package workbook

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
)

func buildWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Kruidvat")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Kruidvat", "A1", &[]any{"Date", " Maintenance % ", "System Issue", "System Issue", "Deployment"}))
	require.NoError(t, f.SetCellValue("Kruidvat", "A2", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellValue("Kruidvat", "B2", 0.05))
	require.NoError(t, f.SetCellValue("Kruidvat", "C2", 3))
	require.NoError(t, f.SetCellValue("Kruidvat", "D2", 0.02))
	require.NoError(t, f.SetCellValue("Kruidvat", "E2", "5.00%"))
	require.NoError(t, f.SetCellValue("Kruidvat", "A3", "2024-01-08"))
	require.NoError(t, f.SetCellValue("Kruidvat", "B3", 0.07))

	_, err = f.NewSheet("Static Values")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Static Values", "A1", &[]any{"Thresholds"}))
	require.NoError(t, f.SetSheetRow("Static Values", "A2", &[]any{"Maintenance", "Deployment"}))
	require.NoError(t, f.SetSheetRow("Static Values", "A3", &[]any{"5%", 0.1}))
	require.NoError(t, f.SetSheetRow("Static Values", "A6", &[]any{"Kruidvat"}))
	require.NoError(t, f.SetSheetRow("Static Values", "A7", &[]any{"Maintenance, Deployment"}))

	_, err = f.NewSheet("Trekpleister")
	require.NoError(t, err)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestOpenReader_XLSX(t *testing.T) {
	wb, err := OpenReader("stability.xlsx", buildWorkbook(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"Sheet1", "Kruidvat", "Static Values", "Trekpleister"}, wb.Sheets())
	assert.Equal(t, []string{"Kruidvat", "Trekpleister"},
		wb.BusinessUnits([]string{"static values", "Sheet1", "Sheet2"}))

	s, err := wb.Sheet("Kruidvat")
	require.NoError(t, err)
	require.Len(t, s.Columns, 5)
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Date", "Maintenance %", "System Issue", "System Issue.1", "Deployment"}, names)

	require.Len(t, s.Columns[0].Cells, 2)
	assert.Equal(t, analysis.Text("2024-01-01"), s.Columns[0].Cells[0])
	assert.Equal(t, analysis.CellText, s.Columns[0].Cells[1].Kind)
	assert.Equal(t, analysis.Number(0.05), s.Columns[1].Cells[0])
	assert.Equal(t, analysis.Number(3), s.Columns[2].Cells[0])
	assert.Equal(t, analysis.Text("5.00%"), s.Columns[4].Cells[0])
	assert.True(t, s.Columns[4].Cells[1].IsEmpty())

	d, ok := analysis.ParseDate(s.Columns[0].Cells[0])
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", d.Format("2006-01-02"))
}

func TestOpenReader_DateFormattedCellsAreNotNumbers(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Week", "Last Deployment Date", "Maintenance %", "Deployment"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{45292, 45290, 0.01, 4}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{45299, 45298, 0.02, 6}))
	custom := "dd-mm-yyyy"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	require.NoError(t, err)
	builtin, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	pct, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "A2", "A3", builtin))
	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "B3", dateStyle))
	require.NoError(t, f.SetCellStyle("Sheet1", "C2", "C3", pct))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	wb, err := OpenReader("dates.xlsx", buf)
	require.NoError(t, err)
	s, err := wb.Sheet("Sheet1")
	require.NoError(t, err)

	assert.Equal(t, analysis.Text("2024-01-01"), s.Columns[0].Cells[0])
	assert.Equal(t, analysis.Text("2024-01-08"), s.Columns[0].Cells[1])
	assert.Equal(t, analysis.Text("2023-12-30"), s.Columns[1].Cells[0])
	assert.Equal(t, analysis.Number(0.01), s.Columns[2].Cells[0])
	assert.Equal(t, analysis.Number(4), s.Columns[3].Cells[0])

	engine := analysis.NewEngine(analysis.DefaultOptions(), zerolog.Nop())
	metrics := engine.Classify(s)
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = m.ColumnName
	}
	assert.Equal(t, []string{"Maintenance %", "Deployment"}, names)

	series, err := engine.Assemble(s, metrics)
	require.NoError(t, err)
	assert.Equal(t, "Week", series.DateColumn)
	require.Len(t, series.Rows, 2)
	assert.Equal(t, "2024-01-08", series.Rows[1].Date.Format("2006-01-02"))
}

func TestIsDateFormat(t *testing.T) {
	assert.True(t, isDateFormat("dd-mm-yyyy"))
	assert.True(t, isDateFormat("[$-409]mmm d, yyyy"))
	assert.True(t, isDateFormat("h:mm AM/PM"))
	assert.False(t, isDateFormat("0.00%"))
	assert.False(t, isDateFormat(`0 "days"`))
	assert.False(t, isDateFormat("[Red]#,##0"))
	assert.True(t, isBuiltinDateFormat(22))
	assert.False(t, isBuiltinDateFormat(10))
}

func TestConfigTable(t *testing.T) {
	wb, err := OpenReader("stability.xlsx", buildWorkbook(t))
	require.NoError(t, err)

	tbl, err := wb.ConfigTable("Static Values")
	require.NoError(t, err)
	assert.Equal(t, 7, tbl.Len())
	assert.Equal(t, analysis.Text("5%"), tbl.Cell(2, 0))
	assert.Equal(t, analysis.Number(0.1), tbl.Cell(2, 1))
	assert.Equal(t, "Kruidvat", tbl.Cell(5, 0).String())
}

func TestSheet_NotFound(t *testing.T) {
	wb, err := OpenReader("stability.xlsx", buildWorkbook(t))
	require.NoError(t, err)

	_, err = wb.Sheet("Etos")
	require.ErrorIs(t, err, ErrSheetNotFound)
	_, err = wb.ConfigTable("Etos")
	require.ErrorIs(t, err, ErrSheetNotFound)

	s, err := wb.Sheet("kruidvat")
	require.NoError(t, err)
	assert.Equal(t, "Kruidvat", s.Name)

	empty, err := wb.Sheet("Trekpleister")
	require.NoError(t, err)
	assert.Empty(t, empty.Columns)
}

func TestOpen_CSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "Kruidvat_stability_data.csv")
	content := "Date,Maintenance %,Deployment,,Deployment\n" +
		"2024-01-01,0.01,12,x,\n" +
		"2024-01-08,5.00%,8\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	wb, err := Open(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kruidvat_stability_data"}, wb.Sheets())

	s, err := wb.Sheet("Kruidvat_stability_data")
	require.NoError(t, err)
	require.Len(t, s.Columns, 5)
	assert.Equal(t, "Unnamed: 3", s.Columns[3].Name)
	assert.Equal(t, "Deployment.1", s.Columns[4].Name)
	assert.Equal(t, analysis.Number(0.01), s.Columns[1].Cells[0])
	assert.Equal(t, analysis.Text("5.00%"), s.Columns[1].Cells[1])
	assert.True(t, s.Columns[3].Cells[1].IsEmpty())
}

func TestOpenReader_SemicolonCSV(t *testing.T) {
	wb, err := OpenReader("bu.csv", strings.NewReader("Date;Maintenance\n2024-01-01;3\n"))
	require.NoError(t, err)
	s, err := wb.Sheet("bu")
	require.NoError(t, err)
	require.Len(t, s.Columns, 2)
	assert.Equal(t, analysis.Number(3), s.Columns[1].Cells[0])
}

func TestOpenReader_Unsupported(t *testing.T) {
	_, err := OpenReader("notes.docx", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"A", "A.1", "A.1.1", "A.2"}, dedupe([]string{"A", "A", "A.1", "A"}))
}
