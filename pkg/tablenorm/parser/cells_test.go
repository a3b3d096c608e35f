package parser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// saveAndOpen writes f to a temp file and reopens it, so tests read the
// workbook the way the pipeline does.
func saveAndOpen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.SaveAs(tmpFile))
	require.NoError(t, f.Close())

	f2, err := excelize.OpenFile(tmpFile)
	require.NoError(t, err)
	t.Cleanup(func() { f2.Close() })
	return f2
}

func TestLoadGrid(t *testing.T) {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	f.SetCellValue(sheetName, "A1", "Header1")
	f.SetCellValue(sheetName, "B1", "Header2")
	f.SetCellValue(sheetName, "C1", "Double")
	f.SetCellValue(sheetName, "A2", 100)
	f.SetCellValue(sheetName, "B2", 200.5)
	f.SetCellValue(sheetName, "A3", "Text")
	f.SetCellFormula(sheetName, "C2", "A2*2")

	grid, err := LoadGrid(saveAndOpen(t, f), sheetName, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, grid.Height())
	assert.Equal(t, 3, grid.Width())
	assert.Equal(t, "Header1", grid.At(0, 0).Value)
	assert.Equal(t, int64(100), grid.At(1, 0).Value)
	assert.Equal(t, 200.5, grid.At(1, 1).Value)
	assert.Nil(t, grid.At(2, 1).Value, "short rows are padded")
	assert.True(t, grid.At(1, 2).IsFormula)
	assert.False(t, grid.At(1, 0).IsFormula)
}

func TestLoadGridKeepsTextCells(t *testing.T) {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	require.NoError(t, f.SetSheetRow(sheetName, "A1", &[]any{"007", "NaN", "inf", "12345678901234567890", 7, true}))

	grid, err := LoadGrid(saveAndOpen(t, f), sheetName, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "007", grid.At(0, 0).Value)
	assert.Equal(t, "NaN", grid.At(0, 1).Value)
	assert.Equal(t, "inf", grid.At(0, 2).Value)
	assert.Equal(t, "12345678901234567890", grid.At(0, 3).Value)
	assert.Equal(t, int64(7), grid.At(0, 4).Value)
	assert.Equal(t, true, grid.At(0, 5).Value)
}

func TestLoadGridMergesExtendBounds(t *testing.T) {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	f.SetCellValue(sheetName, "A1", "Title")
	require.NoError(t, f.MergeCell(sheetName, "A1", "E1"))
	f.SetCellValue(sheetName, "A2", "x")

	grid, err := LoadGrid(saveAndOpen(t, f), sheetName, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, grid.Width())
	require.Len(t, grid.Merges, 1)
	assert.Equal(t, 0, grid.Merges[0].MinRow)
	assert.Equal(t, 4, grid.Merges[0].MaxCol)
}

func TestLoadGridRejectsLargeSheet(t *testing.T) {
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "D10", "far")

	_, err := LoadGrid(saveAndOpen(t, f), "Sheet1", LoadOptions{MaxCells: 20})
	require.ErrorIs(t, err, ErrSheetTooLarge)
}

func TestLoadGridEmptySheet(t *testing.T) {
	f := excelize.NewFile()
	grid, err := LoadGrid(saveAndOpen(t, f), "Sheet1", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, grid.Height())
	assert.True(t, IsEmptySheet(grid))
}

func TestParseRangeToRegion(t *testing.T) {
	tests := []struct {
		input   string
		minRow  int
		minCol  int
		maxRow  int
		maxCol  int
		wantErr bool
	}{
		{"A1:C2", 0, 0, 1, 2, false},
		{"$B$3:$B$7", 2, 1, 6, 1, false},
		{"D4:B2", 1, 1, 3, 3, false},
		{"A1", 0, 0, 0, 0, true},
		{"A1:??", 0, 0, 0, 0, true},
	}

	for _, tt := range tests {
		region, err := parseRangeToRegion(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.minRow, region.MinRow, tt.input)
		assert.Equal(t, tt.minCol, region.MinCol, tt.input)
		assert.Equal(t, tt.maxRow, region.MaxRow, tt.input)
		assert.Equal(t, tt.maxCol, region.MaxCol, tt.input)
	}
}
