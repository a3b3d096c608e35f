package models

// RowClass tags a row as table data or as a label to remove.
type RowClass string

const (
	RowData  RowClass = "DATA"
	RowLabel RowClass = "LABEL"
)

// RowFeatures are the structural signals label detection looks at.
type RowFeatures struct {
	// NonNull is the number of populated cells.
	NonNull int `json:"non_null"`
	// Text is the populated values joined by single spaces.
	Text string `json:"text"`
	// MergedSpan estimates undone merges from runs of equal adjacent values.
	MergedSpan int `json:"merged_span"`
	// FirstTwoEmpty reports whether the first two columns are both empty.
	FirstTwoEmpty bool `json:"first_two_empty"`
}
