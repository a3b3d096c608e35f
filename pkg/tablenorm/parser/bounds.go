// Package parser loads sheets from Excel files into grids and prepares
// them for structural detection.
package parser

import "github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"

// MinTableCells is the smallest number of populated cells (3×3) a sheet
// needs before it is treated as holding a table.
const MinTableCells = 9

// Bounds is the bounding box of populated cells (0-based, inclusive).
type Bounds struct {
	MinRow, MaxRow, MinCol, MaxCol int
}

// Empty reports whether no populated cell was found.
func (b Bounds) Empty() bool {
	return b.MinRow < 0
}

// DataBounds finds the bounding box of non-empty cells.
func DataBounds(grid *models.Grid) Bounds {
	b := Bounds{MinRow: -1, MaxRow: -1, MinCol: -1, MaxCol: -1}

	for rowIdx, row := range grid.Cells {
		for colIdx, cell := range row {
			if cell.IsEmpty() {
				continue
			}
			if b.MinRow < 0 || rowIdx < b.MinRow {
				b.MinRow = rowIdx
			}
			if b.MaxRow < 0 || rowIdx > b.MaxRow {
				b.MaxRow = rowIdx
			}
			if b.MinCol < 0 || colIdx < b.MinCol {
				b.MinCol = colIdx
			}
			if b.MaxCol < 0 || colIdx > b.MaxCol {
				b.MaxCol = colIdx
			}
		}
	}
	return b
}

// IsEmptySheet reports whether the grid is too sparse to hold a table.
func IsEmptySheet(grid *models.Grid) bool {
	if DataBounds(grid).Empty() {
		return true
	}
	return grid.NonEmptyCount() < MinTableCells
}

// TrimToBounds drops leading and trailing rows that hold no values.
func TrimToBounds(grid *models.Grid) *models.Grid {
	b := DataBounds(grid)
	if b.Empty() {
		return grid.Slice(0, -1)
	}
	return grid.Slice(b.MinRow, b.MaxRow)
}
