package models

import "time"

// ProcessingLog is the workbook-level record returned to the caller.
type ProcessingLog struct {
	// RunID identifies the normalization run.
	RunID string `json:"run_id"`
	// Source is the input workbook file name (no path).
	Source string `json:"source"`
	// Output is the output workbook path.
	Output string `json:"output"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`

	TotalSheets      int `json:"total_sheets"`
	SuccessfulSheets int `json:"successful_sheets"`
	FailedSheets     int `json:"failed_sheets"`
	SplitSheets      int `json:"schema_split_sheets"`
	TotalRows        int `json:"total_rows"`
	MaxColumns       int `json:"max_columns"`

	// Sheets lists per-sheet logs in source order.
	Sheets []SheetLog `json:"sheets"`
}

// Add folds a finished sheet log into the aggregate counters.
func (p *ProcessingLog) Add(s SheetLog) {
	p.Sheets = append(p.Sheets, s)
	p.TotalSheets++
	if s.Status != StatusSuccess {
		p.FailedSheets++
		return
	}
	p.SuccessfulSheets++
	if s.SchemaRegions > 1 {
		p.SplitSheets++
	}
	p.TotalRows += s.Rows
	if s.Columns > p.MaxColumns {
		p.MaxColumns = s.Columns
	}
}

// Sheet returns the log for the named source sheet.
func (p *ProcessingLog) Sheet(name string) (SheetLog, bool) {
	for _, s := range p.Sheets {
		if s.Sheet == name {
			return s, true
		}
	}
	return SheetLog{}, false
}
