package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxCells bounds the rows × columns a single sheet may load.
const DefaultMaxCells = 5_000_000

// ErrSheetTooLarge is returned when a sheet exceeds the cell limit.
var ErrSheetTooLarge = errors.New("sheet exceeds cell limit")

// LoadOptions configures grid loading.
type LoadOptions struct {
	// MaxCells rejects sheets whose bounding box is larger. Zero means DefaultMaxCells.
	MaxCells int
}

// LoadGrid reads one sheet into a rectangular grid with merge regions and
// formula flags attached. Merge regions extend the grid bounds when they
// reach beyond the last populated row or column.
func LoadGrid(f *excelize.File, sheetName string, opts LoadOptions) (*models.Grid, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	merges, err := ExtractMerges(f, sheetName)
	if err != nil {
		return nil, err
	}

	height, width := len(rows), 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for _, m := range merges {
		if m.MaxRow+1 > height {
			height = m.MaxRow + 1
		}
		if m.MaxCol+1 > width {
			width = m.MaxCol + 1
		}
	}

	limit := opts.MaxCells
	if limit <= 0 {
		limit = DefaultMaxCells
	}
	if height*width > limit {
		return nil, fmt.Errorf("%w: %d×%d > %d", ErrSheetTooLarge, height, width, limit)
	}

	values := make([][]any, height)
	for r := 0; r < height; r++ {
		values[r] = make([]any, width)
		if r >= len(rows) {
			continue
		}
		for c, raw := range rows[r] {
			v, err := cellValue(f, sheetName, r, c, raw)
			if err != nil {
				return nil, err
			}
			values[r][c] = v
		}
	}

	grid := models.NewGrid(sheetName, values)
	grid.Merges = merges

	if err := markFormulas(f, grid); err != nil {
		return nil, err
	}
	return grid, nil
}

// cellValue converts the formatted text of cell (r, c) by its stored type.
// Only number cells become int64 or float64; text cells keep their string
// exactly, leading zeros included.
func cellValue(f *excelize.File, sheet string, r, c int, raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return nil, err
	}
	typ, err := f.GetCellType(sheet, cellName)
	if err != nil {
		return nil, fmt.Errorf("read type %s: %w", cellName, err)
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		return models.ParseValue(raw), nil
	case excelize.CellTypeBool:
		switch raw {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		}
		return raw, nil
	default:
		return raw, nil
	}
}

// markFormulas flags every cell that holds a formula.
func markFormulas(f *excelize.File, grid *models.Grid) error {
	for r := range grid.Cells {
		for c := range grid.Cells[r] {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			formula, err := f.GetCellFormula(grid.Sheet, cellName)
			if err != nil {
				return fmt.Errorf("read formula %s: %w", cellName, err)
			}
			if formula != "" {
				grid.Cells[r][c].IsFormula = true
			}
		}
	}
	return nil
}
