package parser

import (
	"fmt"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
	"github.com/xuri/excelize/v2"
)

// Evaluator computes the value of the formula at (row, col), 0-based.
type Evaluator func(row, col int) (string, error)

// SnapshotStats counts formula handling for one sheet.
type SnapshotStats struct {
	FormulaCells int
	Failures     int
}

// NewEvaluator returns an Evaluator backed by excelize's calculation engine.
func NewEvaluator(f *excelize.File, sheetName string) Evaluator {
	return func(row, col int) (string, error) {
		cellName, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			return "", err
		}
		return f.CalcCellValue(sheetName, cellName)
	}
}

// SnapshotFormulas replaces formula cells with their last computed value.
// Cached values already in the grid are kept as the snapshot; eval is only
// consulted for formula cells with no cached value. A failing cell keeps its
// prior value and counts toward Failures. The grid is modified in place.
func SnapshotFormulas(grid *models.Grid, eval Evaluator) SnapshotStats {
	var stats SnapshotStats
	for r := range grid.Cells {
		for c := range grid.Cells[r] {
			cell := &grid.Cells[r][c]
			if !cell.IsFormula {
				continue
			}
			stats.FormulaCells++
			if !cell.IsEmpty() || eval == nil {
				continue
			}
			value, err := evaluate(eval, r, c)
			if err != nil {
				stats.Failures++
				continue
			}
			cell.Value = models.ParseValue(value)
		}
	}
	return stats
}

// evaluate calls eval and converts a panic into an error.
func evaluate(eval Evaluator, row, col int) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluate (%d,%d): %v", row, col, r)
		}
	}()
	return eval(row, col)
}
