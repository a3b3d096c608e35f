package models

// Status is the outcome of processing one sheet.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Stage names a step of the per-sheet state machine.
type Stage string

const (
	StageLoaded             Stage = "loaded"
	StageMergeExpanded      Stage = "merge_expanded"
	StageFormulaSnapshotted Stage = "formula_snapshotted"
	StageLabelsRemoved      Stage = "labels_removed"
	StageSplit              Stage = "split"
	StageHeadersResolved    Stage = "headers_resolved"
	StageAssembled          Stage = "assembled"
	StageWritten            Stage = "written"
)

// SheetLog holds the counters recorded for a single source sheet.
type SheetLog struct {
	// Sheet is the source sheet name.
	Sheet string `json:"sheet"`
	// Status is success or error.
	Status Status `json:"status"`
	// Stage is the last stage reached (the failing stage on error).
	Stage Stage `json:"stage"`
	// Error is the failure message when Status is error.
	Error string `json:"error,omitempty"`
	// Rows is the number of data rows written across all regions.
	Rows int `json:"rows"`
	// Columns is the widest output table produced from the sheet.
	Columns int `json:"columns"`
	// SchemaRegions is the number of regions the sheet was split into.
	SchemaRegions int `json:"schema_regions"`
	// SkippedRows is the number of label rows removed.
	SkippedRows int `json:"skipped_rows"`
	// HeaderRow is the header row suggested by row classification, -1 if none.
	HeaderRow int `json:"header_row"`
	// MergedCells is the number of merge regions expanded.
	MergedCells int `json:"merged_cells"`
	// FormulaCells is the number of formula cells seen.
	FormulaCells int `json:"formula_cells"`
	// FormulaFailures counts formula cells whose value could not be snapshotted.
	FormulaFailures int `json:"formula_failures"`
	// TrimmedRows counts trailing rows dropped by the trim fallback.
	TrimmedRows int `json:"trimmed_rows,omitempty"`
	// Warnings records fallbacks and validation failures.
	Warnings []string `json:"warnings,omitempty"`
	// Regions holds per-region detail.
	Regions []RegionLog `json:"regions,omitempty"`
}

// RegionLog describes one output table produced from a schema region.
type RegionLog struct {
	OutputSheet string `json:"output_sheet"`
	StartRow    int    `json:"start_row"`
	EndRow      int    `json:"end_row"`
	HeaderRows  []int  `json:"header_rows"`
	Description string `json:"description,omitempty"`
	Rows        int    `json:"rows"`
	Columns     int    `json:"columns"`
}

// Warn appends a warning message.
func (l *SheetLog) Warn(msg string) {
	l.Warnings = append(l.Warnings, msg)
}
