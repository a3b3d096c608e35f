package detect

import (
	"context"
	"fmt"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/oracle"
)

const (
	// MinSplitRows is the row count below which a sheet is never split.
	MinSplitRows = 10
	// DefaultTrimRatio is the share of rows kept by the trim fallback.
	DefaultTrimRatio = 0.8
)

// ValidationError reports oracle regions that do not partition the sheet.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid schema regions: " + e.Reason
}

// SplitResult is the outcome of schema split detection.
type SplitResult struct {
	// Regions partition the retained rows, ordered and contiguous.
	Regions []models.SchemaRegion
	// TrimmedRows counts trailing rows dropped by the trim fallback.
	TrimmedRows int
	// Consulted reports whether the oracle was asked.
	Consulted bool
	// Warnings records fallbacks taken.
	Warnings []string
}

// Split reports whether the sheet yields more than one region.
func (r SplitResult) Split() bool {
	return len(r.Regions) > 1
}

// SplitDetector decides whether a grid holds several distinct tables.
type SplitDetector struct {
	oracle    oracle.StructureOracle
	minRows   int
	trimRatio float64
}

// NewSplitDetector returns a detector consulting o. trimRatio <= 0 selects
// DefaultTrimRatio.
func NewSplitDetector(o oracle.StructureOracle, trimRatio float64) *SplitDetector {
	if trimRatio <= 0 || trimRatio > 1 {
		trimRatio = DefaultTrimRatio
	}
	if o == nil {
		o = oracle.Disabled{}
	}
	return &SplitDetector{oracle: o, minRows: MinSplitRows, trimRatio: trimRatio}
}

// Detect computes the schema regions of grid. It never fails: oracle errors
// and inconsistent answers fall back to a single region.
func (d *SplitDetector) Detect(ctx context.Context, grid *models.Grid) SplitResult {
	n := grid.Height()
	if n == 0 {
		return SplitResult{}
	}
	if n < d.minRows {
		return SplitResult{Regions: []models.SchemaRegion{singleRegion(n)}}
	}

	result := SplitResult{Consulted: true}
	proposal, err := d.oracle.DetectSchemaSplit(ctx, sampleRows(grid, SampleRows))
	if err != nil {
		result.Regions = []models.SchemaRegion{singleRegion(n)}
		result.Warnings = append(result.Warnings, fmt.Sprintf("schema split oracle %s, using single region: %v", oracle.Kind(err), err))
		return result
	}
	if !proposal.NeedsSplit {
		result.Regions = []models.SchemaRegion{singleRegion(n)}
		return result
	}

	if len(proposal.Regions) == 0 {
		keep := TrimRows(n, d.trimRatio)
		result.Regions = []models.SchemaRegion{singleRegion(keep)}
		result.TrimmedRows = n - keep
		result.Warnings = append(result.Warnings, fmt.Sprintf("split requested without regions, kept first %d of %d rows", keep, n))
		return result
	}

	regions, err := ValidateRegions(proposal.Regions, n)
	if err != nil {
		result.Regions = []models.SchemaRegion{singleRegion(n)}
		result.Warnings = append(result.Warnings, err.Error()+", using single region")
		return result
	}
	result.Regions = regions
	return result
}

// ValidateRegions checks that proposed regions are ordered, contiguous and
// cover rows [0, n-1]. EndRow -1 stands for the last row.
func ValidateRegions(proposed []oracle.ProposedRegion, n int) ([]models.SchemaRegion, error) {
	if len(proposed) == 0 {
		return nil, &ValidationError{Reason: "no regions"}
	}
	regions := make([]models.SchemaRegion, 0, len(proposed))
	next := 0
	for i, p := range proposed {
		end := p.EndRow
		if end == -1 {
			end = n - 1
		}
		switch {
		case p.StartRow < next:
			return nil, &ValidationError{Reason: fmt.Sprintf("region %d starts at %d, overlapping rows before %d", i, p.StartRow, next)}
		case p.StartRow > next:
			return nil, &ValidationError{Reason: fmt.Sprintf("region %d starts at %d, leaving a gap from %d", i, p.StartRow, next)}
		case end < p.StartRow:
			return nil, &ValidationError{Reason: fmt.Sprintf("region %d ends at %d before it starts", i, end)}
		case end >= n:
			return nil, &ValidationError{Reason: fmt.Sprintf("region %d ends at %d past row %d", i, end, n-1)}
		case p.HeaderRow < p.StartRow || p.HeaderRow > end:
			return nil, &ValidationError{Reason: fmt.Sprintf("region %d header row %d outside [%d, %d]", i, p.HeaderRow, p.StartRow, end)}
		}
		regions = append(regions, models.SchemaRegion{
			StartRow:    p.StartRow,
			EndRow:      end,
			HeaderRow:   p.HeaderRow,
			Description: p.Description,
		})
		next = end + 1
	}
	if next != n {
		return nil, &ValidationError{Reason: fmt.Sprintf("regions end at row %d, sheet has %d rows", next-1, n)}
	}
	return regions, nil
}

// TrimRows returns how many leading rows the trim fallback keeps.
func TrimRows(n int, ratio float64) int {
	keep := int(float64(n) * ratio)
	return max(min(keep, n), 1)
}

func singleRegion(n int) models.SchemaRegion {
	return models.SchemaRegion{StartRow: 0, EndRow: n - 1, HeaderRow: 0}
}
