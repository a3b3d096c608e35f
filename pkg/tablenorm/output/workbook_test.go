package output

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
)

func TestRegionSheetName(t *testing.T) {
	assert.Equal(t, "Sales", RegionSheetName("Sales", 0, 1, "ignored"))
	assert.Equal(t, "Sales_monthly-orders", RegionSheetName("Sales", 0, 2, "Monthly Orders"))
	assert.Equal(t, "Sales_2", RegionSheetName("Sales", 1, 2, ""))
	assert.Equal(t, "Sales_3", RegionSheetName("Sales", 2, 3, "!!!"))
}

func TestSanitizeSheetName(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeSheetName("a/b:c"))
	assert.Equal(t, "quoted", SanitizeSheetName("'quoted'"))
	assert.Equal(t, "Sheet", SanitizeSheetName("  "))
	long := strings.Repeat("x", 40)
	assert.Len(t, SanitizeSheetName(long), MaxSheetNameLen)
	assert.Equal(t, 31, len([]rune(SanitizeSheetName(strings.Repeat("表", 40)))))
}

func TestReserveDeduplicates(t *testing.T) {
	w := newWriter(t)

	assert.Equal(t, "Data", w.Reserve("Data"))
	assert.Equal(t, "data_2", w.Reserve("data"))
	assert.Equal(t, "Data_3", w.Reserve("Data"))

	long := strings.Repeat("y", 40)
	first := w.Reserve(long)
	second := w.Reserve(long)
	assert.Len(t, first, MaxSheetNameLen)
	assert.Len(t, second, MaxSheetNameLen)
	assert.True(t, strings.HasSuffix(second, "_2"))
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w, err := NewWriter()
	require.NoError(t, err)

	tables := []models.NormalizedTable{
		{Name: w.Reserve("Sales"), Columns: []string{"Region", "Revenue"}, Rows: [][]any{{"North", int64(100)}, {"South", 2.5}}},
		{Name: w.Reserve("Notes"), Columns: []string{"Text"}, Rows: [][]any{{""}, {"ok"}}},
	}
	for _, tbl := range tables {
		require.NoError(t, w.WriteTable(tbl))
	}
	assert.Equal(t, 2, w.Written())
	require.NoError(t, w.SaveAs(path))
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Sales", "Notes"}, f.GetSheetList())
	rows, err := f.GetRows("Sales")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Region", "Revenue"}, {"North", "100"}, {"South", "2.5"}}, rows)
}

func newWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter()
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func sheetList(t *testing.T, path string) []string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	return f.GetSheetList()
}

func TestWriterKeepsDefaultSheetName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := newWriter(t)

	require.NoError(t, w.WriteTable(models.NormalizedTable{Name: w.Reserve("Sheet1"), Columns: []string{"a"}, Rows: [][]any{{int64(1)}}}))
	require.NoError(t, w.SaveAs(path))
	assert.Equal(t, []string{"Sheet1"}, sheetList(t, path))
}

func TestWriterKeepsOrderAndCaseOfDefaultLikeNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := newWriter(t)

	for _, name := range []string{"data", "sheet1"} {
		reserved := w.Reserve(name)
		assert.Equal(t, name, reserved)
		require.NoError(t, w.WriteTable(models.NormalizedTable{Name: reserved, Columns: []string{"a"}, Rows: [][]any{{int64(1)}}}))
	}
	require.NoError(t, w.SaveAs(path))
	assert.Equal(t, []string{"data", "sheet1"}, sheetList(t, path))
}

func TestWriterWithoutTablesKeepsOneSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := newWriter(t)

	require.NoError(t, w.SaveAs(path))
	assert.Equal(t, []string{"Sheet1"}, sheetList(t, path))
}

func TestWriterDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := newWriter(t)

	for _, name := range []string{"Keep", "Drop"} {
		require.NoError(t, w.WriteTable(models.NormalizedTable{Name: w.Reserve(name), Columns: []string{"a"}, Rows: [][]any{{"x"}}}))
	}
	require.NoError(t, w.Discard("Drop", "Missing"))
	assert.Equal(t, 1, w.Written())
	require.NoError(t, w.SaveAs(path))
	assert.Equal(t, []string{"Keep"}, sheetList(t, path))
}

func TestCheckTable(t *testing.T) {
	assert.NoError(t, CheckTable(models.NormalizedTable{Name: "ok", Columns: []string{"a"}, Rows: [][]any{{1}}}))

	wide := models.NormalizedTable{Name: "wide", Columns: make([]string, excelize.MaxColumns+1)}
	assert.ErrorIs(t, CheckTable(wide), excelize.ErrColumnNumber)

	tall := models.NormalizedTable{Name: "tall", Columns: []string{"a"}, Rows: make([][]any, excelize.TotalRows)}
	assert.ErrorIs(t, CheckTable(tall), excelize.ErrMaxRows)
}

func TestToJSON(t *testing.T) {
	log := &models.ProcessingLog{RunID: "r1", Source: "in.xlsx", StartedAt: time.Unix(0, 0).UTC()}
	log.Add(models.SheetLog{Sheet: "A", Status: models.StatusSuccess, Rows: 3, Columns: 2, SchemaRegions: 2, HeaderRow: -1})

	data, err := ToJSON(log, false)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "r1", decoded["run_id"])
	assert.Equal(t, float64(1), decoded["schema_split_sheets"])
	assert.Equal(t, float64(3), decoded["total_rows"])

	pretty, err := ToJSON(log, true)
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\n  \"run_id\"")
}
