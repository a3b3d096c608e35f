package parser

import (
	"fmt"
	"strings"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
	"github.com/xuri/excelize/v2"
)

// ExtractMerges returns the merge regions of a sheet as 0-based bounds.
// Overlapping regions are rejected.
func ExtractMerges(f *excelize.File, sheetName string) ([]models.MergeRegion, error) {
	mergeCells, err := f.GetMergeCells(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read merge cells: %w", err)
	}

	var regions []models.MergeRegion
	for _, mc := range mergeCells {
		region, err := parseRangeToRegion(mc.GetStartAxis() + ":" + mc.GetEndAxis())
		if err != nil {
			return nil, err
		}
		for _, prev := range regions {
			if prev.Overlaps(region) {
				return nil, fmt.Errorf("merge region %s:%s overlaps another region", mc.GetStartAxis(), mc.GetEndAxis())
			}
		}
		regions = append(regions, region)
	}
	return regions, nil
}

// parseRangeToRegion parses a range string like $A$1:$D$10 to a MergeRegion.
func parseRangeToRegion(rangeStr string) (models.MergeRegion, error) {
	// Remove $ signs
	rangeStr = strings.ReplaceAll(rangeStr, "$", "")

	parts := strings.Split(rangeStr, ":")
	if len(parts) != 2 {
		return models.MergeRegion{}, fmt.Errorf("invalid range %q", rangeStr)
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return models.MergeRegion{}, fmt.Errorf("invalid range %q: %w", rangeStr, err)
	}
	endCol, endRow, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return models.MergeRegion{}, fmt.Errorf("invalid range %q: %w", rangeStr, err)
	}

	region := models.MergeRegion{
		MinRow: min(startRow, endRow) - 1,
		MinCol: min(startCol, endCol) - 1,
		MaxRow: max(startRow, endRow) - 1,
		MaxCol: max(startCol, endCol) - 1,
	}
	return region, nil
}

// ExpandMerges copies each region's anchor value into every cell of the
// region. It works on a copy of the grid and returns it together with the
// number of regions expanded; the copy carries no merge metadata.
func ExpandMerges(grid *models.Grid) (*models.Grid, int, error) {
	out, err := grid.Clone()
	if err != nil {
		return nil, 0, err
	}

	expanded := 0
	for _, m := range grid.Merges {
		// Anchor is read from the original so earlier writes cannot leak in.
		anchor := grid.At(m.MinRow, m.MinCol).Value
		for r := max(m.MinRow, 0); r <= m.MaxRow && r < out.Height(); r++ {
			for c := max(m.MinCol, 0); c <= m.MaxCol && c < out.Width(); c++ {
				out.Cells[r][c].Value = anchor
			}
		}
		expanded++
	}
	out.Merges = nil
	return out, expanded, nil
}

// SpreadFormulaAnchors recopies formula anchors across their merge regions
// after snapshotting, so a region whose anchor was only computed then stays
// uniform. It returns the number of regions refreshed.
func SpreadFormulaAnchors(grid *models.Grid, merges []models.MergeRegion) int {
	refreshed := 0
	for _, m := range merges {
		anchor := grid.At(m.MinRow, m.MinCol)
		if !anchor.IsFormula {
			continue
		}
		for r := max(m.MinRow, 0); r <= m.MaxRow && r < grid.Height(); r++ {
			for c := max(m.MinCol, 0); c <= m.MaxCol && c < grid.Width(); c++ {
				grid.Cells[r][c].Value = anchor.Value
			}
		}
		refreshed++
	}
	return refreshed
}
