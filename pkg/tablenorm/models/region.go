package models

// MergeRegion represents the cell bounds of a merged block.
type MergeRegion struct {
	// MinRow is the top row (0-based).
	MinRow int `json:"min_row"`
	// MinCol is the left column (0-based).
	MinCol int `json:"min_col"`
	// MaxRow is the bottom row (0-based, inclusive).
	MaxRow int `json:"max_row"`
	// MaxCol is the right column (0-based, inclusive).
	MaxCol int `json:"max_col"`
}

// Contains reports whether (row, col) lies inside the region.
func (m MergeRegion) Contains(row, col int) bool {
	return row >= m.MinRow && row <= m.MaxRow && col >= m.MinCol && col <= m.MaxCol
}

// Overlaps reports whether two regions share at least one cell.
func (m MergeRegion) Overlaps(o MergeRegion) bool {
	return m.MinRow <= o.MaxRow && o.MinRow <= m.MaxRow &&
		m.MinCol <= o.MaxCol && o.MinCol <= m.MaxCol
}

// CellCount returns the number of cells covered by the region.
func (m MergeRegion) CellCount() int {
	if m.MaxRow < m.MinRow || m.MaxCol < m.MinCol {
		return 0
	}
	return (m.MaxRow - m.MinRow + 1) * (m.MaxCol - m.MinCol + 1)
}

// HeaderPlan describes which rows form the header and the flattened names.
// len(Names) always equals the grid width.
type HeaderPlan struct {
	HeaderRows []int    `json:"header_rows"`
	Names      []string `json:"names"`
}

// SchemaRegion is a contiguous row range forming one self-consistent table.
type SchemaRegion struct {
	// StartRow is the first row of the region (0-based, inclusive).
	StartRow int `json:"start_row"`
	// EndRow is the last row of the region (0-based, inclusive).
	EndRow int `json:"end_row"`
	// HeaderRow is the candidate header row (absolute index).
	HeaderRow   int        `json:"header_row"`
	Plan        HeaderPlan `json:"header_plan"`
	Description string     `json:"description,omitempty"`
}

// Len returns the number of rows in the region.
func (r SchemaRegion) Len() int {
	return r.EndRow - r.StartRow + 1
}
