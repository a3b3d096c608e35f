// Package models defines data structures for spreadsheet normalization.
package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cell represents a single grid cell.
type Cell struct {
	// Row is the row index (0-based).
	Row int `json:"row"`
	// Col is the column index (0-based).
	Col int `json:"col"`
	// Value is nil, int64, float64, bool or string.
	Value any `json:"value,omitempty"`
	// IsFormula reports whether the source cell held a formula.
	IsFormula bool `json:"is_formula,omitempty"`
}

// IsEmpty reports whether the cell carries no value.
// Whitespace-only strings count as empty.
func (c Cell) IsEmpty() bool {
	return IsMissing(c.Value)
}

// Text returns the trimmed string form of the cell value.
func (c Cell) Text() string {
	return ValueText(c.Value)
}

// IsMissing reports whether v is nil or a blank string.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

// IsNumeric reports whether v is an int64 or float64.
func IsNumeric(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	default:
		return false
	}
}

// ValueText renders v the way it should appear in row text and headers.
func ValueText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// ParseValue attempts to parse a string value as a number.
// Returns int64 for integers, float64 for decimals, nil for blanks,
// or the original string. Words such as "NaN" or "inf" and hex literals
// stay strings.
func ParseValue(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if !isDecimalLiteral(s) {
		return s
	}
	// Try integer first
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	// Try float
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}

// isDecimalLiteral reports whether s holds only sign, digit, point and
// exponent characters and at least one digit.
func isDecimalLiteral(s string) bool {
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case r == '+' || r == '-' || r == '.' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return digits
}
