package models

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"
)

// Grid is the rectangular cell matrix of one sheet.
// Every row holds exactly Width() cells.
type Grid struct {
	// Sheet is the source sheet name.
	Sheet string `json:"sheet"`
	// Cells is indexed [row][col].
	Cells [][]Cell `json:"cells"`
	// Merges lists the merge regions still attached to the grid.
	Merges []MergeRegion `json:"merges,omitempty"`
}

// NewGrid builds a rectangular grid from raw values, padding short rows.
func NewGrid(sheet string, values [][]any) *Grid {
	width := 0
	for _, row := range values {
		if len(row) > width {
			width = len(row)
		}
	}
	cells := make([][]Cell, len(values))
	for r, row := range values {
		cells[r] = make([]Cell, width)
		for c := 0; c < width; c++ {
			cells[r][c] = Cell{Row: r, Col: c}
			if c < len(row) {
				cells[r][c].Value = row[c]
			}
		}
	}
	return &Grid{Sheet: sheet, Cells: cells}
}

// Height returns the number of rows.
func (g *Grid) Height() int {
	return len(g.Cells)
}

// Width returns the number of columns.
func (g *Grid) Width() int {
	if len(g.Cells) == 0 {
		return 0
	}
	return len(g.Cells[0])
}

// At returns the cell at (row, col), or an empty cell when out of range.
func (g *Grid) At(row, col int) Cell {
	if row < 0 || row >= g.Height() || col < 0 || col >= g.Width() {
		return Cell{Row: row, Col: col}
	}
	return g.Cells[row][col]
}

// Row returns the values of one row.
func (g *Grid) Row(row int) []any {
	if row < 0 || row >= g.Height() {
		return nil
	}
	out := make([]any, g.Width())
	for c, cell := range g.Cells[row] {
		out[c] = cell.Value
	}
	return out
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() (*Grid, error) {
	var dst Grid
	if err := deepcopy.Copy(&dst, g); err != nil {
		return nil, fmt.Errorf("clone grid %q: %w", g.Sheet, err)
	}
	return &dst, nil
}

// DropRows returns a new grid without the given row indices.
// Remaining rows are renumbered from 0.
func (g *Grid) DropRows(rows []int) *Grid {
	drop := make(map[int]bool, len(rows))
	for _, r := range rows {
		drop[r] = true
	}
	var kept [][]Cell
	for r, row := range g.Cells {
		if !drop[r] {
			kept = append(kept, row)
		}
	}
	return g.withRows(kept)
}

// Slice returns rows [start, end] (inclusive) as a new grid renumbered from 0.
func (g *Grid) Slice(start, end int) *Grid {
	if start < 0 {
		start = 0
	}
	if end >= g.Height() {
		end = g.Height() - 1
	}
	if start > end {
		return g.withRows(nil)
	}
	return g.withRows(g.Cells[start : end+1])
}

func (g *Grid) withRows(rows [][]Cell) *Grid {
	out := &Grid{Sheet: g.Sheet, Cells: make([][]Cell, len(rows))}
	for r, row := range rows {
		out.Cells[r] = make([]Cell, len(row))
		for c, cell := range row {
			cell.Row = r
			out.Cells[r][c] = cell
		}
	}
	return out
}

// NonEmptyCount returns the number of populated cells in the grid.
func (g *Grid) NonEmptyCount() int {
	n := 0
	for _, row := range g.Cells {
		for _, cell := range row {
			if !cell.IsEmpty() {
				n++
			}
		}
	}
	return n
}
