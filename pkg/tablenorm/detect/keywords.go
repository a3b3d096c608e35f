package detect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Rules holds the thresholds and keyword lists used by label detection.
type Rules struct {
	// InspectRows is how many leading rows are classified (K).
	InspectRows int `yaml:"inspect_rows" validate:"gte=0"`
	// SparseMax marks rows with at most this many values as labels.
	SparseMax int `yaml:"sparse_max" validate:"gte=0"`
	// KeywordSparseMax is the sparse bound used together with keywords and long text.
	KeywordSparseMax int `yaml:"keyword_sparse_max" validate:"gte=0"`
	// MergedSpanMin is exceeded by rows that look like an undone merge.
	MergedSpanMin int `yaml:"merged_span_min" validate:"gte=0"`
	// LongTextMin is exceeded by caption-like rows.
	LongTextMin int `yaml:"long_text_min" validate:"gte=0"`
	// HeaderOverrideMin is the value count at which a header keyword forces DATA.
	HeaderOverrideMin int `yaml:"header_override_min" validate:"gte=0"`

	TitleKeywords  []string `yaml:"title_keywords"`
	HeaderKeywords []string `yaml:"header_keywords"`
}

// DefaultRules returns the built-in label detection rules.
func DefaultRules() Rules {
	return Rules{
		InspectRows:       5,
		SparseMax:         2,
		KeywordSparseMax:  3,
		MergedSpanMin:     5,
		LongTextMin:       50,
		HeaderOverrideMin: 6,
		TitleKeywords: []string{
			"table", "chart", "unit:", "units:", "prepared by", "reviewed by",
			"approved by", "summary", "report", "statistics", "source:", "data source",
			"表", "图", "单位:", "数据来源", "统计", "报告", "编制", "审核",
			"增长情况", "统计表", "汇总表", "明细表", "分析表", "汇总", "意见", "日志", "发电",
			"序号", "姓名", "学号", "班级",
		},
		HeaderKeywords: []string{
			"id", "name", "no.", "no", "remarks", "code", "number", "date", "type",
			"序号", "姓名", "学号", "班级", "导师", "组别", "题目", "意见", "备注",
			"电机", "编号", "发电量", "发电小时",
		},
	}
}

// normalizeText folds width and case so "单位：" matches "单位:" and "ID"
// matches "id". A Caser is stateful, so one is made per call.
func normalizeText(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// keywordSet is a list of pre-normalized keywords.
type keywordSet []string

func newKeywordSet(words []string) keywordSet {
	out := make(keywordSet, 0, len(words))
	for _, w := range words {
		if w = normalizeText(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// matchAny reports whether normalized text contains any keyword.
func (k keywordSet) matchAny(text string) bool {
	for _, kw := range k {
		if containsKeyword(text, kw) {
			return true
		}
	}
	return false
}

// containsKeyword matches ASCII keywords on word boundaries (only at edges
// that are alphanumeric) and other keywords as plain substrings.
func containsKeyword(text, kw string) bool {
	if !isASCII(kw) {
		return strings.Contains(text, kw)
	}
	first, _ := utf8.DecodeRuneInString(kw)
	last, _ := utf8.DecodeLastRuneInString(kw)
	for from := 0; from <= len(text); {
		idx := strings.Index(text[from:], kw)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(kw)
		if (!isWordRune(first) || !wordBefore(text, start)) && (!isWordRune(last) || !wordAfter(text, end)) {
			return true
		}
		from = start + 1
	}
	return false
}

func wordBefore(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return isWordRune(r)
}

func wordAfter(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
