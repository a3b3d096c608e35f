package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("Should return logger from context when present", func(t *testing.T) {
		expected := NewLogger(TestConfig())
		ctx := ContextWithLogger(context.Background(), expected)

		actual := FromContext(ctx)

		require.NotNil(t, actual)
		assert.Equal(t, expected, actual)
	})

	t.Run("Should return no-op logger when no logger in context", func(t *testing.T) {
		l := FromContext(context.Background())

		require.NotNil(t, l)
		l.Info("dropped")
	})

	t.Run("Should return no-op logger when wrong type in context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), contextKey{}, "not a logger")

		require.NotNil(t, FromContext(ctx))
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DebugLevel},
		{" WARN ", WarnLevel},
		{"error", ErrorLevel},
		{"disabled", DisabledLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.input), tt.input)
	}
}

func TestLoggerOutput(t *testing.T) {
	t.Run("Should write text with context fields", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: InfoLevel, Output: &buf, TimeFormat: "15:04:05"})

		l.With("sheet", "Sales").Info("sheet normalized", "rows", 9)

		out := buf.String()
		assert.Contains(t, out, "sheet normalized")
		assert.Contains(t, out, "Sales")
		assert.Contains(t, out, "rows")
	})

	t.Run("Should write JSON when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true, TimeFormat: "15:04:05"})

		l.Info("hello")

		out := buf.String()
		assert.True(t, strings.Contains(out, "{") && strings.Contains(out, "}"))
		assert.Contains(t, out, "hello")
	})

	t.Run("Should respect level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: WarnLevel, Output: &buf, TimeFormat: "15:04:05"})

		l.Info("hidden")
		l.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}
