package oracle

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
)

const systemPrompt = "You are a spreadsheet structure analyst. " +
	"You identify titles, headers and table boundaries in raw sheet dumps. " +
	"Answer with a single JSON object and nothing else."

// RenderRows formats sample rows one per line, prefixed with their index.
// Only the first maxCols columns are shown when maxCols > 0.
func RenderRows(rows []Row, maxCols int) string {
	var b strings.Builder
	for _, row := range rows {
		values := row.Values
		if maxCols > 0 && len(values) > maxCols {
			values = values[:maxCols]
		}
		fmt.Fprintf(&b, "row %d:", row.Index)
		for _, v := range values {
			b.WriteString(" | ")
			b.WriteString(models.ValueText(v))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Truncate caps s at limit bytes, ending with "..." when cut. The cut never
// splits a UTF-8 sequence.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	if limit <= 3 {
		return s[:limit]
	}
	cut := limit - 3
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func classifyPrompt(sample string) string {
	return `Analyze the first rows of a spreadsheet and identify:
1. which rows are titles, notes, blank lines or other non-data content
2. which row is the real header of the table

Return JSON:
{
  "skip_rows": [row numbers to skip],
  "header_row": header row number
}

Row numbers are the numbers printed after "row".

Sample:
` + sample
}

func headersPrompt(sample string, anchor int) string {
	return fmt.Sprintf(`Analyze the rows around row %d of a spreadsheet and decide whether the
header spans several stacked rows.

Return JSON:
{
  "is_multi_level": true or false,
  "header_rows": [row numbers that belong to the header, top to bottom]
}

Row numbers are the numbers printed after "row".

Sample:
%s`, anchor, sample)
}

func splitPrompt(sample string) string {
	return `Analyze the spreadsheet rows below and decide whether they contain more
than one structurally distinct table (for example detail data followed by a
summary block with different columns).

Return JSON:
{
  "needs_split": true or false,
  "reason": "short explanation",
  "schema_regions": [
    {"start_row": first row, "end_row": last row or -1 for the end of the sheet,
     "header_row": header row, "description": "short name of the table"}
  ]
}

Regions must be ordered, must not overlap and must cover every row.
Row numbers are the numbers printed after "row".

Sample:
` + sample
}

// intValue returns r as an int when it is an integral JSON number.
func intValue(r gjson.Result) (int, bool) {
	if r.Type != gjson.Number {
		return 0, false
	}
	if r.Num != math.Trunc(r.Num) {
		return 0, false
	}
	return int(r.Num), true
}

func intArray(r gjson.Result, field string) ([]int, error) {
	if !r.IsArray() {
		return nil, fmt.Errorf("%s is not an array", field)
	}
	var out []int
	for _, item := range r.Array() {
		n, ok := intValue(item)
		if !ok {
			return nil, fmt.Errorf("%s holds non-integer %s", field, item.Raw)
		}
		out = append(out, n)
	}
	return out, nil
}

func optionalInt(obj gjson.Result, field string) (int, bool, error) {
	r := obj.Get(field)
	if !r.Exists() || r.Type == gjson.Null {
		return 0, false, nil
	}
	n, ok := intValue(r)
	if !ok {
		return 0, false, fmt.Errorf("%s is not an integer", field)
	}
	return n, true, nil
}

func parseClassification(payload []byte) (RowClassification, error) {
	obj := gjson.ParseBytes(payload)
	skip, err := intArray(obj.Get("skip_rows"), "skip_rows")
	if err != nil {
		return RowClassification{}, err
	}
	header, _, err := optionalInt(obj, "header_row")
	if err != nil {
		return RowClassification{}, err
	}
	return RowClassification{SkipRows: skip, HeaderRow: header}, nil
}

// parseHeaderRows returns the header rows, or [anchor] when the answer says
// the header is single-level.
func parseHeaderRows(payload []byte, anchor int) ([]int, error) {
	obj := gjson.ParseBytes(payload)
	multi := obj.Get("is_multi_level")
	if multi.Exists() && !multi.IsBool() {
		return nil, errors.New("is_multi_level is not a boolean")
	}
	rows, err := intArray(obj.Get("header_rows"), "header_rows")
	if err != nil {
		return nil, err
	}
	if multi.Exists() && !multi.Bool() {
		return []int{anchor}, nil
	}
	if len(rows) == 0 {
		return nil, errors.New("header_rows is empty")
	}
	return rows, nil
}

func parseSplit(payload []byte) (SplitProposal, error) {
	obj := gjson.ParseBytes(payload)
	needs := obj.Get("needs_split")
	if !needs.IsBool() {
		return SplitProposal{}, errors.New("needs_split is not a boolean")
	}
	proposal := SplitProposal{NeedsSplit: needs.Bool(), Reason: obj.Get("reason").String()}

	regions := obj.Get("schema_regions")
	if !regions.Exists() || regions.Type == gjson.Null {
		return proposal, nil
	}
	if !regions.IsArray() {
		return SplitProposal{}, errors.New("schema_regions is not an array")
	}
	for i, item := range regions.Array() {
		if !item.IsObject() {
			return SplitProposal{}, fmt.Errorf("schema_regions[%d] is not an object", i)
		}
		start, ok := intValue(item.Get("start_row"))
		if !ok {
			return SplitProposal{}, fmt.Errorf("schema_regions[%d].start_row is not an integer", i)
		}
		end, ok := intValue(item.Get("end_row"))
		if !ok {
			return SplitProposal{}, fmt.Errorf("schema_regions[%d].end_row is not an integer", i)
		}
		header, found, err := optionalInt(item, "header_row")
		if err != nil {
			return SplitProposal{}, fmt.Errorf("schema_regions[%d]: %w", i, err)
		}
		if !found {
			header = start
		}
		proposal.Regions = append(proposal.Regions, ProposedRegion{
			StartRow:    start,
			EndRow:      end,
			HeaderRow:   header,
			Description: strings.TrimSpace(item.Get("description").String()),
		})
	}
	return proposal, nil
}
