package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
	"github.com/xuri/excelize/v2"
)

func TestSnapshotFormulas(t *testing.T) {
	grid := models.NewGrid("S", [][]any{{int64(1), nil, int64(7), nil}})
	grid.Cells[0][1].IsFormula = true // no cached value
	grid.Cells[0][2].IsFormula = true // cached
	grid.Cells[0][3].IsFormula = true // evaluator fails

	calls := 0
	eval := func(row, col int) (string, error) {
		calls++
		switch col {
		case 1:
			return "42", nil
		case 3:
			return "", errors.New("#REF!")
		}
		panic("unexpected cell")
	}

	stats := SnapshotFormulas(grid, eval)
	assert.Equal(t, 3, stats.FormulaCells)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(42), grid.At(0, 1).Value)
	assert.Equal(t, int64(7), grid.At(0, 2).Value)
	assert.Nil(t, grid.At(0, 3).Value)
}

func TestSnapshotFormulasRecoversPanics(t *testing.T) {
	grid := models.NewGrid("S", [][]any{{nil}})
	grid.Cells[0][0].IsFormula = true

	stats := SnapshotFormulas(grid, func(int, int) (string, error) { panic("boom") })
	assert.Equal(t, 1, stats.Failures)
	assert.Nil(t, grid.At(0, 0).Value)
}

func TestNewEvaluatorComputesFormula(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", 2))
	require.NoError(t, f.SetCellFormula("Sheet1", "B1", "A1*3"))
	f = saveAndOpen(t, f)

	grid := models.NewGrid("Sheet1", [][]any{{int64(2), nil}})
	grid.Cells[0][1].IsFormula = true

	stats := SnapshotFormulas(grid, NewEvaluator(f, "Sheet1"))
	assert.Equal(t, 1, stats.FormulaCells)
	assert.Zero(t, stats.Failures)
	assert.Equal(t, int64(6), grid.At(0, 1).Value)
}

func TestSpreadFormulaAnchorsAfterSnapshot(t *testing.T) {
	grid := models.NewGrid("S", [][]any{{nil, nil, "x"}, {nil, nil, "y"}, {"a", "b", "c"}})
	grid.Cells[0][0].IsFormula = true // merged, no cached value
	grid.Cells[0][2].IsFormula = true // merged, cached
	grid.Merges = []models.MergeRegion{
		{MinRow: 0, MinCol: 0, MaxRow: 1, MaxCol: 1},
		{MinRow: 0, MinCol: 2, MaxRow: 1, MaxCol: 2},
	}

	expanded, _, err := ExpandMerges(grid)
	require.NoError(t, err)
	SnapshotFormulas(expanded, func(row, col int) (string, error) { return "42", nil })
	assert.Equal(t, 2, SpreadFormulaAnchors(expanded, grid.Merges))

	for r := 0; r <= 1; r++ {
		for c := 0; c <= 1; c++ {
			assert.Equal(t, int64(42), expanded.At(r, c).Value, "cell (%d,%d)", r, c)
		}
		assert.Equal(t, "x", expanded.At(r, 2).Value)
	}
	assert.Equal(t, "a", expanded.At(2, 0).Value)
}
