package oracle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestExtractLayers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		layer Layer
	}{
		{"direct", `{"needs_split": false}`, LayerDirect},
		{"fenced json", "Here you go:\n```json\n{\"needs_split\": true}\n```\nThanks", LayerFenced},
		{"fenced plain", "```\n{\"needs_split\": false}\n```", LayerFenced},
		{"outer braces", `The answer is {"needs_split": false} as requested.`, LayerBraces},
		{"repair trailing comma", `Result: {"needs_split": false, "reason": "one table",}`, LayerRepair},
		{"repair python literal", `{"needs_split": False}`, LayerRepair},
		{"repair control chars", "{\"needs_split\": true, \"reason\": \"line one\nline two\"}", LayerRepair},
		{"repair comment", "{\n  // decided\n  \"needs_split\": false\n}", LayerRepair},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, attempts, err := Extract(tt.input, func(p []byte) error {
				_, err := parseSplit(p)
				return err
			})
			require.NoError(t, err)
			require.NotEmpty(t, attempts)
			last := attempts[len(attempts)-1]
			assert.True(t, last.OK())
			assert.Equal(t, tt.layer, last.Layer)
			assert.True(t, gjson.GetBytes(payload, "needs_split").IsBool())
		})
	}
}

func TestExtractFailsAllLayers(t *testing.T) {
	_, attempts, err := Extract("I could not decide.", nil)
	require.ErrorIs(t, err, ErrMalformed)
	for _, a := range attempts {
		assert.False(t, a.OK())
		assert.NotEmpty(t, a.Reason)
	}
}

func TestExtractRejectsWrongShape(t *testing.T) {
	_, attempts, err := Extract(`{"needs_split": "yes"}`, func(p []byte) error {
		_, err := parseSplit(p)
		return err
	})
	require.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, attempts[0].Reason, "shape")
}

func TestExtractRejectsArrays(t *testing.T) {
	_, _, err := Extract(`[1, 2, 3]`, nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestRepairJSONKeepsStrings(t *testing.T) {
	in := `{"url": "http://x//y", "flag": True, "text": "None of it"}`
	out := repairJSON(in)
	assert.True(t, gjson.Valid(out))
	assert.Equal(t, "http://x//y", gjson.Get(out, "url").String())
	assert.True(t, gjson.Get(out, "flag").Bool())
	assert.Equal(t, "None of it", gjson.Get(out, "text").String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	out := Truncate(strings.Repeat("x", 2000), 1500)
	assert.Len(t, out, 1500)
	assert.True(t, strings.HasSuffix(out, "..."))

	// Multi-byte runes are not split.
	cjk := Truncate(strings.Repeat("表", 10), 8)
	assert.True(t, strings.HasSuffix(cjk, "..."))
	assert.LessOrEqual(t, len(cjk), 8)
	assert.Equal(t, "表...", cjk)
}

func TestRenderRows(t *testing.T) {
	out := RenderRows([]Row{
		{Index: 3, Values: []any{"Region", int64(5), nil, "x"}},
	}, 3)
	assert.Equal(t, "row 3: | Region | 5 | \n", out)
}
