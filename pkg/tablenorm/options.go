// Package tablenorm normalizes messy spreadsheet workbooks into clean,
// rectangular tables: one header row of unique names, no merged cells, no
// title or caption rows, and one output sheet per detected table.
package tablenorm

import (
	"runtime"

	"github.com/ukaji3/tablenorm-go/pkg/logger"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/detect"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/oracle"
)

// Options configures a normalization run.
type Options struct {
	// Oracle answers structural questions. If nil, oracle.Disabled is used
	// and every oracle-dependent decision takes its local fallback.
	Oracle oracle.StructureOracle
	// OracleLabelRows merges the oracle's skip_rows into label detection.
	OracleLabelRows bool
	// Rules overrides the built-in label detection rules.
	Rules *detect.Rules
	// TrimRatio is the share of rows kept when a split is requested without
	// regions. Zero means detect.DefaultTrimRatio.
	TrimRatio float64
	// HeaderSeparator joins multi-row header parts. Empty means "-".
	HeaderSeparator string
	// Workers bounds how many sheets are analyzed at once.
	// Zero means GOMAXPROCS.
	Workers int
	// MaxCells rejects sheets with a larger bounding box.
	MaxCells int
	// Logger receives stage logs. If nil, the logger in the context is used.
	Logger logger.Logger
}

// DefaultOptions returns options with no oracle and built-in rules.
func DefaultOptions() Options {
	rules := detect.DefaultRules()
	return Options{
		Rules:     &rules,
		TrimRatio: detect.DefaultTrimRatio,
	}
}

func (o Options) withDefaults() Options {
	if o.Oracle == nil {
		o.Oracle = oracle.Disabled{}
	}
	if o.Rules == nil {
		rules := detect.DefaultRules()
		o.Rules = &rules
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}
