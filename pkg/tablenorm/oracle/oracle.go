// Package oracle consults an external text-generation service for
// structural decisions the local heuristics cannot settle: which rows to
// skip, how many rows a header spans, and whether a sheet stacks several
// tables.
//
// Every answer is free text that nominally holds a JSON object. Extract
// pulls the object out through successive layers and validates its shape
// before a caller sees it; anything that fails surfaces as ErrMalformed.
package oracle

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable covers transport failures, timeouts, non-2xx replies
	// and an exhausted call budget.
	ErrUnavailable = errors.New("structure oracle unavailable")
	// ErrMalformed means no extraction layer produced an acceptable payload.
	ErrMalformed = errors.New("structure oracle response malformed")
)

// Row is one sample row sent to the oracle. Index is the row's position in
// the caller's grid and is echoed back in answers.
type Row struct {
	Index  int
	Values []any
}

// RowClassification is the answer to ClassifyRows.
type RowClassification struct {
	SkipRows  []int
	HeaderRow int
}

// ProposedRegion is one schema region suggested by DetectSchemaSplit.
// EndRow is inclusive; -1 means the last row of the sheet.
type ProposedRegion struct {
	StartRow    int
	EndRow      int
	HeaderRow   int
	Description string
}

// SplitProposal is the answer to DetectSchemaSplit.
type SplitProposal struct {
	NeedsSplit bool
	Reason     string
	Regions    []ProposedRegion
}

// StructureOracle is the external collaborator consulted by the detectors.
// Implementations must be safe for concurrent use.
type StructureOracle interface {
	ClassifyRows(ctx context.Context, sample []Row) (RowClassification, error)
	DetectMultiLevelHeaders(ctx context.Context, window []Row, anchor int) ([]int, error)
	DetectSchemaSplit(ctx context.Context, sample []Row) (SplitProposal, error)
}

// Disabled is a StructureOracle that is never reachable.
type Disabled struct{}

func (Disabled) ClassifyRows(context.Context, []Row) (RowClassification, error) {
	return RowClassification{}, ErrUnavailable
}

func (Disabled) DetectMultiLevelHeaders(context.Context, []Row, int) ([]int, error) {
	return nil, ErrUnavailable
}

func (Disabled) DetectSchemaSplit(context.Context, []Row) (SplitProposal, error) {
	return SplitProposal{}, ErrUnavailable
}

// Kind classifies an oracle error for logging: "unavailable",
// "malformed" or "error".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "unavailable"
	default:
		return "error"
	}
}
