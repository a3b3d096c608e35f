package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/oracle"
)

// DefaultSeparator joins the parts of a composite header.
const DefaultSeparator = "-"

// HeaderResult is the resolved header of one region grid.
type HeaderResult struct {
	Plan models.HeaderPlan
	// DataStart is the first row after the header.
	DataStart int
	// Consulted reports whether the oracle was asked.
	Consulted bool
	// Warning is set when an oracle answer was rejected.
	Warning string
}

// HeaderResolver decides how many rows form the header and flattens them.
type HeaderResolver struct {
	oracle    oracle.StructureOracle
	separator string
}

// NewHeaderResolver returns a resolver consulting o.
func NewHeaderResolver(o oracle.StructureOracle, separator string) *HeaderResolver {
	if o == nil {
		o = oracle.Disabled{}
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	return &HeaderResolver{oracle: o, separator: separator}
}

// Resolve builds the header plan of grid around candidate header row anchor.
// The oracle is asked only when the row below the anchor does not already
// look like data; any failure falls back to the single anchor row.
func (h *HeaderResolver) Resolve(ctx context.Context, grid *models.Grid, anchor int) HeaderResult {
	n := grid.Height()
	if n == 0 {
		return HeaderResult{Plan: models.HeaderPlan{Names: placeholders(grid.Width())}}
	}
	if anchor < 0 || anchor >= n {
		anchor = 0
	}

	rows := []int{anchor}
	result := HeaderResult{}
	if !looksLikeData(grid, anchor+1) {
		result.Consulted = true
		start, end := max(anchor-2, 0), min(anchor+3, n)
		answer, err := h.oracle.DetectMultiLevelHeaders(ctx, windowRows(grid, start, end), anchor)
		switch {
		case err != nil:
			result.Warning = fmt.Sprintf("header oracle %s, using single header row: %v", oracle.Kind(err), err)
		case !validHeaderRows(answer, anchor, start, end):
			result.Warning = fmt.Sprintf("header oracle returned rows %v outside window [%d, %d), using single header row", answer, start, end)
		default:
			rows = answer
		}
	}

	if len(rows) > 1 {
		result.Plan = models.HeaderPlan{HeaderRows: rows, Names: h.Flatten(grid, rows)}
	} else {
		result.Plan = models.HeaderPlan{HeaderRows: rows, Names: SingleRowNames(grid.Row(anchor))}
	}
	result.DataStart = rows[len(rows)-1] + 1
	return result
}

// Flatten joins the header rows of each column top to bottom, dropping
// consecutive duplicates. Columns with no text get a placeholder name.
func (h *HeaderResolver) Flatten(grid *models.Grid, rows []int) []string {
	names := make([]string, grid.Width())
	for col := range names {
		var parts []string
		for _, r := range rows {
			text := grid.At(r, col).Text()
			if text == "" || (len(parts) > 0 && parts[len(parts)-1] == text) {
				continue
			}
			parts = append(parts, text)
		}
		if len(parts) == 0 {
			names[col] = placeholder(col)
			continue
		}
		names[col] = strings.Join(parts, h.separator)
	}
	return names
}

// SingleRowNames uses one header row directly, substituting placeholders for
// empty cells and for repeats of an earlier name.
func SingleRowNames(values []any) []string {
	names := make([]string, len(values))
	seen := make(map[string]bool, len(values))
	for col, v := range values {
		text := models.ValueText(v)
		if text == "" || seen[text] {
			names[col] = placeholder(col)
			continue
		}
		seen[text] = true
		names[col] = text
	}
	return names
}

// looksLikeData reports whether row is missing, blank, or at least half
// numeric, which settles the header as single-row without the oracle.
func looksLikeData(grid *models.Grid, row int) bool {
	if row >= grid.Height() {
		return true
	}
	filled, numeric := 0, 0
	for _, v := range grid.Row(row) {
		if models.IsMissing(v) {
			continue
		}
		filled++
		if models.IsNumeric(v) {
			numeric++
		}
	}
	return filled == 0 || numeric*2 >= filled
}

// validHeaderRows requires strictly ascending rows inside [start, end) that
// include the anchor.
func validHeaderRows(rows []int, anchor, start, end int) bool {
	if len(rows) == 0 {
		return false
	}
	hasAnchor := false
	for i, r := range rows {
		if r < start || r >= end || (i > 0 && r <= rows[i-1]) {
			return false
		}
		if r == anchor {
			hasAnchor = true
		}
	}
	return hasAnchor
}

func placeholder(col int) string {
	return fmt.Sprintf("Column_%d", col)
}

func placeholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = placeholder(i)
	}
	return out
}
