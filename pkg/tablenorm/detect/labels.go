// Package detect infers sheet structure: which leading rows are labels,
// whether a sheet stacks several tables, and how many rows a header spans.
package detect

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/oracle"
)

// SampleRows is the number of leading rows sent to the oracle.
const SampleRows = 20

// Rule names recorded on each decision.
const (
	RuleFirstTwoEmpty  = "first_two_empty"
	RuleSparse         = "sparse"
	RuleTitleKeyword   = "title_keyword"
	RuleLongText       = "long_text"
	RuleDefault        = "default"
	RuleHeaderOverride = "header_override"
	RuleOracleSkip     = "oracle_skip"
)

// RowDecision records how one inspected row was classified.
type RowDecision struct {
	Row      int                `json:"row"`
	Class    models.RowClass    `json:"class"`
	Rule     string             `json:"rule"`
	Features models.RowFeatures `json:"features"`
}

// LabelResult is the outcome of label detection for one grid.
type LabelResult struct {
	// Labels holds the LABEL row indices in ascending order.
	Labels []int
	// Decisions lists the inspected rows in order.
	Decisions []RowDecision
	// HeaderRow is the oracle's header suggestion, -1 when not consulted.
	HeaderRow int
	// OracleErr is set when the oracle was consulted and failed.
	OracleErr error
}

type labelRule struct {
	name  string
	match func(f models.RowFeatures) bool
}

// LabelDetector classifies the leading rows of a grid as DATA or LABEL.
type LabelDetector struct {
	rules     Rules
	titles    keywordSet
	headers   keywordSet
	ordered   []labelRule
	oracle    oracle.StructureOracle
	useOracle bool
}

// NewLabelDetector returns a detector for rules. When useOracle is set the
// oracle's skip_rows are merged into the local result.
func NewLabelDetector(rules Rules, o oracle.StructureOracle, useOracle bool) *LabelDetector {
	d := &LabelDetector{
		rules:     rules,
		titles:    newKeywordSet(rules.TitleKeywords),
		headers:   newKeywordSet(rules.HeaderKeywords),
		oracle:    o,
		useOracle: useOracle && o != nil,
	}
	d.ordered = d.buildRules()
	return d
}

// buildRules returns the rule list in priority order; the first match wins.
func (d *LabelDetector) buildRules() []labelRule {
	sparseOrMerged := func(f models.RowFeatures) bool {
		return f.NonNull <= d.rules.KeywordSparseMax || f.MergedSpan > d.rules.MergedSpanMin
	}
	return []labelRule{
		{RuleFirstTwoEmpty, func(f models.RowFeatures) bool {
			return f.FirstTwoEmpty
		}},
		{RuleSparse, func(f models.RowFeatures) bool {
			return f.NonNull <= d.rules.SparseMax
		}},
		{RuleTitleKeyword, func(f models.RowFeatures) bool {
			return d.titles.matchAny(normalizeText(f.Text)) && sparseOrMerged(f)
		}},
		{RuleLongText, func(f models.RowFeatures) bool {
			return utf8.RuneCountInString(f.Text) > d.rules.LongTextMin && sparseOrMerged(f)
		}},
	}
}

// Classify applies the ordered rules and then the header override.
func (d *LabelDetector) Classify(f models.RowFeatures) (models.RowClass, string) {
	class, rule := models.RowData, RuleDefault
	for _, r := range d.ordered {
		if r.match(f) {
			class, rule = models.RowLabel, r.name
			break
		}
	}
	if d.protected(f) {
		return models.RowData, RuleHeaderOverride
	}
	return class, rule
}

// protected reports whether the header override forces DATA.
func (d *LabelDetector) protected(f models.RowFeatures) bool {
	return f.NonNull >= d.rules.HeaderOverrideMin && d.headers.matchAny(normalizeText(f.Text))
}

// Detect classifies the first InspectRows rows of grid.
func (d *LabelDetector) Detect(ctx context.Context, grid *models.Grid) LabelResult {
	result := LabelResult{HeaderRow: -1}
	limit := min(d.rules.InspectRows, grid.Height())

	labels := map[int]bool{}
	features := make([]models.RowFeatures, limit)
	for i := 0; i < limit; i++ {
		features[i] = RowFeaturesOf(grid.Row(i))
		class, rule := d.Classify(features[i])
		if class == models.RowLabel {
			labels[i] = true
		}
		result.Decisions = append(result.Decisions, RowDecision{Row: i, Class: class, Rule: rule, Features: features[i]})
	}

	if d.useOracle && grid.Height() > 0 {
		answer, err := d.oracle.ClassifyRows(ctx, sampleRows(grid, SampleRows))
		if err != nil {
			result.OracleErr = err
		} else {
			result.HeaderRow = answer.HeaderRow
			for _, r := range answer.SkipRows {
				if r < 0 || r >= limit || labels[r] || d.protected(features[r]) {
					continue
				}
				labels[r] = true
				result.Decisions[r].Class = models.RowLabel
				result.Decisions[r].Rule = RuleOracleSkip
			}
		}
	}

	for r := range labels {
		result.Labels = append(result.Labels, r)
	}
	sort.Ints(result.Labels)
	return result
}

// RowFeaturesOf computes the label features of one row.
func RowFeaturesOf(values []any) models.RowFeatures {
	var f models.RowFeatures
	var parts []string
	for _, v := range values {
		if !models.IsMissing(v) {
			f.NonNull++
			parts = append(parts, models.ValueText(v))
		}
	}
	f.Text = strings.Join(parts, " ")
	f.MergedSpan = mergedSpan(values)
	f.FirstTwoEmpty = len(values) >= 2 && models.IsMissing(values[0]) && models.IsMissing(values[1])
	return f
}

// mergedSpan adds n-1 for every run of n > 1 equal adjacent non-empty values.
func mergedSpan(values []any) int {
	total, run := 0, 0
	var current any
	for _, v := range values {
		switch {
		case models.IsMissing(v):
			if run > 1 {
				total += run - 1
			}
			run, current = 0, nil
		case run > 0 && v == current:
			run++
		default:
			if run > 1 {
				total += run - 1
			}
			run, current = 1, v
		}
	}
	if run > 1 {
		total += run - 1
	}
	return total
}

// sampleRows returns the first n rows of grid as oracle rows.
func sampleRows(grid *models.Grid, n int) []oracle.Row {
	return windowRows(grid, 0, min(n, grid.Height()))
}

// windowRows returns rows [start, end) of grid as oracle rows.
func windowRows(grid *models.Grid, start, end int) []oracle.Row {
	rows := make([]oracle.Row, 0, max(end-start, 0))
	for i := start; i < end; i++ {
		rows = append(rows, oracle.Row{Index: i, Values: grid.Row(i)})
	}
	return rows
}
