package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/tablenorm-go/internal/config"
)

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "data/report_normalized.xlsx", defaultOutputPath("data/report.xlsx"))
	assert.Equal(t, "book_normalized.xlsx", defaultOutputPath("book"))
}

func TestApplyFlagsOverridesOnlyChangedFlags(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Oracle.URL = "http://from-env"

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.IntVar(&workers, "workers", 0, "")
	fs.StringVar(&oracleURL, "oracle-url", "", "")
	fs.BoolVar(&noOracle, "no-oracle", false, "")
	fs.Float64Var(&trimRatio, "split-fallback", 0, "")
	require.NoError(t, fs.Parse([]string{"--workers=7", "--no-oracle", "--split-fallback=0.5"}))

	require.NoError(t, applyFlags(fs, cfg))
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, 0.5, cfg.TrimRatio)
	assert.Equal(t, "http://from-env", cfg.Oracle.URL)
	assert.False(t, cfg.Oracle.Enabled())
}

func TestApplyFlagsValidates(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Float64Var(&trimRatio, "split-fallback", 0, "")
	require.NoError(t, fs.Parse([]string{"--split-fallback=2"}))
	assert.Error(t, applyFlags(fs, cfg))
}
