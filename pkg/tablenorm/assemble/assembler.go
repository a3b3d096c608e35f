// Package assemble turns a region grid and its header plan into a
// rectangular table with unique column names and no missing values.
package assemble

import (
	"fmt"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
)

// Result is an assembled table plus what assembly changed.
type Result struct {
	Table models.NormalizedTable
	// DroppedRows counts fully empty data rows removed.
	DroppedRows int
	// DroppedColumns counts fully empty columns removed.
	DroppedColumns int
	// RenamedColumns counts names suffixed to stay unique.
	RenamedColumns int
	// FilledCells counts missing values replaced by zero or "".
	FilledCells int
}

// Assemble builds the table named name from the rows of grid at and after
// dataStart, using plan.Names for the columns.
func Assemble(name string, grid *models.Grid, plan models.HeaderPlan, dataStart int) (Result, error) {
	width := grid.Width()
	if len(plan.Names) != width {
		return Result{}, fmt.Errorf("header has %d names for %d columns", len(plan.Names), width)
	}

	var res Result
	var rows [][]any
	for r := max(dataStart, 0); r < grid.Height(); r++ {
		values := grid.Row(r)
		if allMissing(values) {
			res.DroppedRows++
			continue
		}
		rows = append(rows, values)
	}

	var keep []int
	for c := 0; c < width; c++ {
		if columnHasValue(rows, c) {
			keep = append(keep, c)
		} else {
			res.DroppedColumns++
		}
	}

	names := make([]string, len(keep))
	for i, c := range keep {
		names[i] = plan.Names[c]
	}
	unique, renamed := UniqueNames(names)
	res.RenamedColumns = renamed

	table := models.NormalizedTable{Name: name, Columns: unique, Rows: make([][]any, len(rows))}
	for r, values := range rows {
		out := make([]any, len(keep))
		for i, c := range keep {
			out[i] = values[c]
		}
		table.Rows[r] = out
	}
	for i := range keep {
		res.FilledCells += fillColumn(table.Rows, i)
	}
	res.Table = table
	return res, nil
}

// UniqueNames suffixes repeated names with _1, _2, ... in first-seen order,
// skipping suffixed forms that already appear among the input names.
func UniqueNames(names []string) ([]string, int) {
	reserved := make(map[string]bool, len(names))
	for _, n := range names {
		reserved[n] = true
	}
	used := make(map[string]bool, len(names))
	next := make(map[string]int)
	out := make([]string, len(names))
	renamed := 0
	for i, n := range names {
		if !used[n] {
			used[n] = true
			out[i] = n
			continue
		}
		for {
			next[n]++
			candidate := fmt.Sprintf("%s_%d", n, next[n])
			if !used[candidate] && !reserved[candidate] {
				used[candidate] = true
				out[i] = candidate
				break
			}
		}
		renamed++
	}
	return out, renamed
}

// fillColumn replaces missing values in column c. A column whose values are
// all numeric gets int64(0) when every value is an integer, float64(0)
// otherwise; any other column gets "".
func fillColumn(rows [][]any, c int) int {
	numeric, integral := true, true
	for _, row := range rows {
		v := row[c]
		if models.IsMissing(v) {
			continue
		}
		switch v.(type) {
		case int64:
		case float64:
			integral = false
		default:
			numeric = false
		}
	}

	var zero any = ""
	if numeric {
		if integral {
			zero = int64(0)
		} else {
			zero = float64(0)
		}
	}

	filled := 0
	for _, row := range rows {
		if models.IsMissing(row[c]) {
			row[c] = zero
			filled++
		}
	}
	return filled
}

func allMissing(values []any) bool {
	for _, v := range values {
		if !models.IsMissing(v) {
			return false
		}
	}
	return true
}

func columnHasValue(rows [][]any, c int) bool {
	for _, row := range rows {
		if !models.IsMissing(row[c]) {
			return true
		}
	}
	return false
}
