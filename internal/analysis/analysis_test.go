package analysis

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultOptions(), zerolog.Nop())
}

func nums(vs ...float64) []Cell {
	out := make([]Cell, len(vs))
	for i, v := range vs {
		out[i] = Number(v)
	}
	return out
}

func texts(vs ...string) []Cell {
	out := make([]Cell, len(vs))
	for i, v := range vs {
		out[i] = Text(v)
	}
	return out
}

func values(fs []Fraction) []float64 {
	out := make([]float64, len(fs))
	for i, f := range fs {
		out[i] = f.Value
	}
	return out
}

func TestCleanName(t *testing.T) {
	cases := map[string]string{
		"System Issue.1":    "System Issue",
		"Maintenance %":     "Maintenance",
		"Maintenance%":      "Maintenance",
		" Deployment % .2 ": "Deployment",
		"Maintenance %.1":   "Maintenance",
		"System.Issue":      "System.Issue",
		"Test Data":         "Test Data",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanName(in), in)
	}
	assert.True(t, IsPercentDecorated("Maintenance %"))
	assert.False(t, IsPercentDecorated("Maintenance %.1"))
	assert.False(t, IsPercentDecorated("Maintenance.1"))
}

func TestReadThresholds(t *testing.T) {
	e := newTestEngine()
	tbl := &ConfigTable{Rows: [][]Cell{
		{Text("Thresholds")},
		{Text("Maintenance"), Text("Deployment"), Text("Test Data"), Text("Configuration"), Empty()},
		{Text("5%"), Number(0.1), Text("n/a"), Empty(), Number(0.2)},
	}}
	got, err := e.ReadThresholds(tbl)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, got["Maintenance"], 1e-12)
	assert.InDelta(t, 0.1, got["Deployment"], 1e-12)
	assert.NotContains(t, got, "Test Data")
	assert.NotContains(t, got, "Configuration")
	assert.Len(t, got, 2)

	v, ok := got.Lookup("maintenance %")
	assert.True(t, ok)
	assert.InDelta(t, 0.05, v, 1e-12)
}

func TestReadThresholds_LeftmostDuplicateWins(t *testing.T) {
	e := newTestEngine()
	tbl := &ConfigTable{Rows: [][]Cell{
		{Text("Thresholds")},
		{Text("Maintenance %"), Text("maintenance"), Text("Deployment.1")},
		{Number(0.05), Number(0.2), Number(0.1)},
	}}
	got, err := e.ReadThresholds(tbl)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for i := 0; i < 20; i++ {
		v, ok := got.Lookup("Maintenance")
		require.True(t, ok)
		assert.InDelta(t, 0.05, v, 1e-12)
	}
	v, ok := got.Lookup("Deployment %")
	require.True(t, ok)
	assert.InDelta(t, 0.1, v, 1e-12)
}

func TestThresholdMapLookup_SortedFallback(t *testing.T) {
	m := ThresholdMap{"maintenance": 0.2, "Maintenance %": 0.05}
	for i := 0; i < 20; i++ {
		v, ok := m.Lookup("MAINTENANCE.1")
		require.True(t, ok)
		assert.InDelta(t, 0.05, v, 1e-12)
	}
	_, ok := m.Lookup("Deployment")
	assert.False(t, ok)
}

func TestReadThresholds_NoConfiguration(t *testing.T) {
	e := newTestEngine()
	got, err := e.ReadThresholds(&ConfigTable{Rows: [][]Cell{{Text("Thresholds")}}})
	require.ErrorIs(t, err, ErrNoConfiguration)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = e.ReadThresholds(nil)
	require.ErrorIs(t, err, ErrNoConfiguration)
}

func staticTable() *ConfigTable {
	return &ConfigTable{Rows: [][]Cell{
		{Text("Thresholds")},
		{Text("Maintenance")},
		{Text("5%")},
		{},
		{Text("Important KPIs")},
		{Text("Kruidvat "), Text(" Trekpleister")},
		{Text("Maintenance, System Issue ,, Deployment"), Text("Test Data")},
	}}
}

func TestReadImportantMetrics(t *testing.T) {
	e := newTestEngine()
	got, err := e.ReadImportantMetrics(staticTable(), "KRUIDVAT")
	require.NoError(t, err)
	assert.Equal(t, []string{"Maintenance", "System Issue", "Deployment"}, got)

	got, err = e.ReadImportantMetrics(staticTable(), "trekpleister")
	require.NoError(t, err)
	assert.Equal(t, []string{"Test Data"}, got)

	got, err = e.ReadImportantMetrics(staticTable(), "Unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadImportantMetrics_ShortTable(t *testing.T) {
	e := newTestEngine()
	tbl := staticTable()
	tbl.Rows = tbl.Rows[:6]
	got, err := e.ReadImportantMetrics(tbl, "Kruidvat")
	require.ErrorIs(t, err, ErrNoConfiguration)
	assert.Empty(t, got)
}

func TestReadAllImportantMetrics(t *testing.T) {
	e := newTestEngine()
	m, err := e.ReadAllImportantMetrics(staticTable())
	require.NoError(t, err)
	assert.Equal(t, []string{"Test Data"}, m.Get(" TREKPLEISTER"))
	assert.Len(t, m, 2)
}

func TestClassify_NameAndTypeFilters(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "Week", Cells: texts("2024-01-01", "2024-01-08")},
		{Name: "Maintenance Threshold", Cells: nums(0.05, 0.05)},
		{Name: "Maintenance Comment", Cells: texts("slow", "ok")},
		{Name: "Deployment", Cells: texts("5.00%", "2.00%")},
		{Name: "Total tickets", Cells: nums(100, 120)},
		{Name: "Configuration", Cells: nums(3, 4)},
	}}
	got := e.Classify(s)
	require.Len(t, got, 2)
	assert.Equal(t, "Deployment", got[0].BaseName)
	assert.True(t, got[0].FractionEncoded)
	assert.Equal(t, "Configuration", got[1].BaseName)
	assert.False(t, got[1].FractionEncoded)
	assert.Equal(t, 5, got[1].Column)
}

func TestClassify_PrefersFractionColumn(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "Maintenance", Cells: nums(12, 8, 10)},
		{Name: "Maintenance %", Cells: nums(0.12, 0.08, 0.1)},
	}}
	got := e.Classify(s)
	require.Len(t, got, 1)
	assert.Equal(t, "Maintenance %", got[0].ColumnName)
	assert.Equal(t, 1, got[0].Column)
	assert.True(t, got[0].PercentDecorated)
	assert.InDelta(t, 0.12, got[0].Max, 1e-12)
	assert.InDelta(t, 0.08, got[0].Min, 1e-12)
}

func TestClassify_LowerMaxWins(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "System Issue %", Cells: nums(0.15, 0.02)},
		{Name: "System Issue %.1", Cells: nums(0.08, 0.01)},
	}}
	got := e.Classify(s)
	require.Len(t, got, 1)
	assert.Equal(t, "System Issue %.1", got[0].ColumnName)
	assert.InDelta(t, 0.08, got[0].Max, 1e-12)

	// equal maxima keep the first-seen column
	s.Columns[1].Cells = nums(0.15, 0.01)
	got = e.Classify(s)
	require.Len(t, got, 1)
	assert.Equal(t, "System Issue %", got[0].ColumnName)
}

func TestClassify_CountDuplicatesKeepFirst(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "Test Data", Cells: nums(3, 5)},
		{Name: "Test Data.1", Cells: nums(7, 9)},
	}}
	got := e.Classify(s)
	require.Len(t, got, 1)
	assert.Equal(t, "Test Data", got[0].ColumnName)
}

func TestClassify_AllZerosIsCount(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "No Defect %", Cells: nums(0, 0)},
		{Name: "No Defect", Cells: []Cell{Empty(), Empty()}},
	}}
	got := e.Classify(s)
	require.Len(t, got, 1)
	assert.Equal(t, "No Defect %", got[0].ColumnName)
	assert.False(t, got[0].FractionEncoded)
}

func TestClassify_FractionProportion(t *testing.T) {
	e := newTestEngine()
	// 7 of 10 below one is not strictly above 0.7
	s := &RawSheet{Columns: []Column{
		{Name: "Investigate", Cells: nums(0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 2, 3, 4, 0)},
	}}
	got := e.Classify(s)
	require.Len(t, got, 1)
	assert.False(t, got[0].FractionEncoded)

	s.Columns[0].Cells = nums(0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 3, 4)
	got = e.Classify(s)
	assert.True(t, got[0].FractionEncoded)
}

func TestClassify_OrderAndIdempotence(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "Deployment", Cells: nums(5, 6)},
		{Name: "Maintenance", Cells: nums(1, 2)},
		{Name: "Deployment %", Cells: nums(0.05, 0.06)},
		{Name: "Maintenance %", Cells: nums(0.01, 0.02)},
	}}
	first := e.Classify(s)
	second := e.Classify(s)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, []string{"Deployment", "Maintenance"}, []string{first[0].BaseName, first[1].BaseName})
	assert.Equal(t, []string{"Deployment %", "Maintenance %"}, []string{first[0].ColumnName, first[1].ColumnName})
}

func TestClassify_Empty(t *testing.T) {
	e := newTestEngine()
	got := e.Classify(&RawSheet{Columns: []Column{{Name: "Date"}, {Name: "Notes"}}})
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, e.Classify(nil))
}

func TestNormalize_DecoratedUnchanged(t *testing.T) {
	e := newTestEngine()
	got := e.Normalize(nums(0.01, 2, 0.5), true)
	assert.Equal(t, []float64{0.01, 2, 0.5}, values(got))
}

func TestNormalize_FractionScaleUnchanged(t *testing.T) {
	e := newTestEngine()
	got := e.Normalize(nums(0.01, 0, 1, 0.2), false)
	assert.Equal(t, []float64{0.01, 0, 1, 0.2}, values(got))
}

func TestNormalize_PercentScaleRescaled(t *testing.T) {
	e := newTestEngine()
	got := e.Normalize(nums(12, 8, 0.5, 0), false)
	assert.InDeltaSlice(t, []float64{0.12, 0.08, 0.005, 0}, values(got), 1e-12)
}

func TestNormalize_HalfAboveOneIsNotRescaled(t *testing.T) {
	e := newTestEngine()
	got := e.Normalize(nums(2, 0.5), false)
	assert.Equal(t, []float64{2, 0.5}, values(got))
}

func TestNormalize_PercentLiterals(t *testing.T) {
	e := newTestEngine()
	got := e.Normalize(texts("5.00%", "12,5 %", "n/a", ""), true)
	require.Len(t, got, 4)
	assert.InDelta(t, 0.05, got[0].Value, 1e-12)
	assert.InDelta(t, 0.125, got[1].Value, 1e-12)
	assert.False(t, got[2].Valid)
	assert.False(t, got[3].Valid)

	got = e.Normalize(texts("5.00%", "7%"), false)
	assert.InDeltaSlice(t, []float64{0.05, 0.07}, values(got), 1e-12)
}

func TestAssemble_RoundTrip(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Name: "Kruidvat", Columns: []Column{
		{Name: "Date", Cells: texts("2024-01-01", "2024-01-08")},
		{Name: "Maintenance %", Cells: nums(0.01, 0.02)},
		{Name: "Deployment", Cells: nums(12, 8)},
	}}
	metrics := e.Classify(s)
	require.Len(t, metrics, 2)

	series, err := e.Assemble(s, metrics)
	require.NoError(t, err)
	assert.Equal(t, "Date", series.DateColumn)
	assert.False(t, series.Synthetic)
	assert.Equal(t, []string{"Maintenance", "Deployment"}, series.Names())
	assert.InDeltaSlice(t, []float64{0.01, 0.02}, values(series.Column("Maintenance")), 1e-12)
	assert.InDeltaSlice(t, []float64{0.12, 0.08}, values(series.Column("Deployment")), 1e-12)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), series.Rows[1].Date)
}

func TestAssemble_DedupedPercentColumnIsRescaled(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Name: "Kruidvat", Columns: []Column{
		{Name: "Date", Cells: texts("2024-01-01", "2024-01-08")},
		{Name: "Maintenance %", Cells: texts("see notes", "n/a")},
		{Name: "Maintenance %.1", Cells: nums(5, 12)},
	}}
	metrics := e.Classify(s)
	require.Len(t, metrics, 1)
	assert.Equal(t, "Maintenance %.1", metrics[0].ColumnName)
	assert.False(t, metrics[0].PercentDecorated)

	series, err := e.Assemble(s, metrics)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.05, 0.12}, values(series.Column("Maintenance")), 1e-12)
}

func TestAssemble_DropsAndSorts(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "Week Date", Cells: []Cell{Text("2024-03-08"), Text("2024-03-01"), Empty(), Text("garbage"), Text("2024-02-23")}},
		{Name: "Maintenance %", Cells: []Cell{Number(0.03), Empty(), Number(0.01), Number(0.02), Empty()}},
		{Name: "Deployment %", Cells: []Cell{Number(0.01), Number(0.02), Number(0.04), Empty(), Empty()}},
	}}
	series, err := e.Assemble(s, e.Classify(s))
	require.NoError(t, err)
	require.Len(t, series.Rows, 2)
	assert.Equal(t, 1, series.Rows[0].Source)
	assert.False(t, series.Rows[0].Values[0].Valid)
	assert.InDelta(t, 0.02, series.Rows[0].Values[1].Value, 1e-12)
	assert.Equal(t, 0, series.Rows[1].Source)
}

func TestAssemble_KeepsDuplicateDatesInOrder(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "Date", Cells: texts("2024-01-08", "2024-01-01", "2024-01-08")},
		{Name: "Maintenance %", Cells: nums(0.1, 0.2, 0.3)},
	}}
	series, err := e.Assemble(s, e.Classify(s))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.1, 0.3}, values(series.Column("Maintenance")))
}

func TestAssemble_ExcelSerialDates(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "Date", Cells: nums(45299, 45292)},
		{Name: "Maintenance %", Cells: nums(0.1, 0.2)},
	}}
	series, err := e.Assemble(s, e.Classify(s))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", series.Rows[0].Date.Format("2006-01-02"))
	assert.InDelta(t, 0.2, series.Rows[0].Values[0].Value, 1e-12)
}

func TestAssemble_SyntheticDates(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "Maintenance %", Cells: nums(0.1, 0.2)},
	}}
	series, err := e.Assemble(s, e.Classify(s))
	require.NoError(t, err)
	assert.True(t, series.Synthetic)
	assert.Empty(t, series.DateColumn)
	assert.Equal(t, SyntheticEpoch.AddDate(0, 0, 1), series.Rows[1].Date)
}

func TestAssemble_EmptyResults(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "Date", Cells: texts("nope", "never")},
		{Name: "Maintenance %", Cells: nums(0.1, 0.2)},
	}}
	series, err := e.Assemble(s, e.Classify(s))
	require.ErrorIs(t, err, ErrEmptySeries)
	assert.True(t, series.Empty())

	_, err = e.Assemble(s, nil)
	require.ErrorIs(t, err, ErrNoMetrics)
}

func TestSummarize(t *testing.T) {
	e := newTestEngine()
	s := &RawSheet{Columns: []Column{
		{Name: "Date", Cells: texts("2024-01-01", "2024-01-08", "2024-01-15")},
		{Name: "Maintenance %", Cells: nums(0.01, 0.08, 0.02)},
		{Name: "Deployment", Cells: []Cell{Number(12), Number(3), Empty()}},
	}}
	series, err := e.Assemble(s, e.Classify(s))
	require.NoError(t, err)

	sum := Summarize("Kruidvat", series, ThresholdMap{"maintenance": 0.05}, []string{"Deployment"}, 0.05)
	require.Len(t, sum.Metrics, 2)
	m := sum.Metrics[0]
	assert.True(t, m.Configured)
	assert.Equal(t, 1, m.Exceeded)
	assert.Equal(t, 3, m.Points)
	assert.InDelta(t, 0.02, m.Latest.Value, 1e-12)
	assert.InDelta(t, 0.08, m.Max, 1e-12)

	d := sum.Metrics[1]
	assert.False(t, d.Configured)
	assert.True(t, d.Important)
	assert.InDelta(t, 0.05, d.Threshold, 1e-12)
	assert.Equal(t, 2, d.Points)
	assert.Equal(t, 1, d.Exceeded)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), d.LatestDate)

	md := sum.Markdown()
	assert.Contains(t, md, "[STABILITY SUMMARY]")
	assert.Contains(t, md, "Root causes tracked: 2")
	assert.Contains(t, md, "★ Deployment")
	assert.Contains(t, md, "5.00% (default)")
	assert.Equal(t, "5.23%", Percent(0.0523))
}
