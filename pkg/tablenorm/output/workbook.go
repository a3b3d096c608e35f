// Package output writes normalized tables to a workbook and serializes the
// processing log.
package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
)

// MaxSheetNameLen is Excel's limit on sheet name length.
const MaxSheetNameLen = 31

const (
	defaultSheet     = "Sheet1"
	placeholderSheet = "_tablenorm_placeholder"
)

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// RegionSheetName names the output sheet of region index (0-based) out of
// total regions cut from source. A single region keeps the source name.
func RegionSheetName(source string, index, total int, description string) string {
	if total <= 1 {
		return source
	}
	if s := slug.Make(description); s != "" {
		return source + "_" + s
	}
	return fmt.Sprintf("%s_%d", source, index+1)
}

// SanitizeSheetName replaces characters Excel forbids, strips leading and
// trailing apostrophes and truncates to MaxSheetNameLen runes.
func SanitizeSheetName(name string) string {
	name = strings.Trim(sheetNameReplacer.Replace(strings.TrimSpace(name)), "'")
	name = truncateRunes(name, MaxSheetNameLen)
	if name == "" {
		return "Sheet"
	}
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Writer appends tables as sheets of a new workbook. It is not safe for
// concurrent use.
type Writer struct {
	f       *excelize.File
	taken   map[string]bool
	written int
}

// NewWriter returns a writer over an empty workbook. The workbook's default
// sheet is parked under a reserved name until SaveAs.
func NewWriter() (*Writer, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(defaultSheet, placeholderSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("park default sheet: %w", err)
	}
	return &Writer{f: f, taken: map[string]bool{strings.ToLower(placeholderSheet): true}}, nil
}

// Reserve returns a sanitized, unused sheet name derived from name and marks
// it taken. Names compare case-insensitively, as Excel does.
func (w *Writer) Reserve(name string) string {
	base := SanitizeSheetName(name)
	candidate := base
	for i := 2; w.taken[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf("_%d", i)
		candidate = truncateRunes(base, MaxSheetNameLen-len(suffix)) + suffix
	}
	w.taken[strings.ToLower(candidate)] = true
	return candidate
}

// CheckTable reports whether t fits in one worksheet, header row included.
func CheckTable(t models.NormalizedTable) error {
	if len(t.Columns) > excelize.MaxColumns {
		return fmt.Errorf("table %q: %w", t.Name, excelize.ErrColumnNumber)
	}
	if len(t.Rows)+1 > excelize.TotalRows {
		return fmt.Errorf("table %q has %d rows: %w", t.Name, len(t.Rows), excelize.ErrMaxRows)
	}
	return nil
}

// WriteTable writes t to a new sheet named t.Name, which should come from
// Reserve. The first row holds the column names.
func (w *Writer) WriteTable(t models.NormalizedTable) error {
	if _, err := w.f.NewSheet(t.Name); err != nil {
		return fmt.Errorf("create sheet %q: %w", t.Name, err)
	}
	if err := w.stream(t); err != nil {
		_ = w.f.DeleteSheet(t.Name)
		return err
	}
	w.written++
	return nil
}

func (w *Writer) stream(t models.NormalizedTable) error {
	sw, err := w.f.NewStreamWriter(t.Name)
	if err != nil {
		return fmt.Errorf("stream sheet %q: %w", t.Name, err)
	}
	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header of %q: %w", t.Name, err)
	}
	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		copy(values, row)
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d of %q: %w", r+2, t.Name, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet %q: %w", t.Name, err)
	}
	return nil
}

// Discard removes sheets written earlier, for a source sheet that failed
// partway through.
func (w *Writer) Discard(names ...string) error {
	for _, name := range names {
		if idx, _ := w.f.GetSheetIndex(name); idx == -1 {
			continue
		}
		if err := w.f.DeleteSheet(name); err != nil {
			return fmt.Errorf("discard sheet %q: %w", name, err)
		}
		w.written--
	}
	return nil
}

// Written returns the number of tables written.
func (w *Writer) Written() int {
	return w.written
}

// SaveAs drops the parked default sheet and saves the workbook. A workbook
// with no tables keeps one empty sheet named Sheet1.
func (w *Writer) SaveAs(path string) error {
	if w.written > 0 {
		if err := w.f.DeleteSheet(placeholderSheet); err != nil {
			return fmt.Errorf("remove default sheet: %w", err)
		}
		w.f.SetActiveSheet(0)
	} else if err := w.f.SetSheetName(placeholderSheet, defaultSheet); err != nil {
		return fmt.Errorf("restore default sheet: %w", err)
	}
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Close releases the workbook.
func (w *Writer) Close() error {
	return w.f.Close()
}
