// Package main provides the CLI entry point for tablenorm.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ukaji3/tablenorm-go/internal/config"
	"github.com/ukaji3/tablenorm-go/pkg/logger"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/oracle"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/output"
)

var (
	outputPath  string
	logFile     string
	pretty      bool
	envFile     string
	workers     int
	oracleURL   string
	oracleModel string
	noOracle    bool
	labelRows   bool
	trimRatio   float64
	rulesFile   string
	logLevel    string
	logJSON     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tablenorm [input.xlsx]",
		Short: "Normalize messy Excel sheets into clean tables",
		Long: `tablenorm removes title and caption rows, expands merged cells,
flattens multi-row headers and splits stacked tables into their own sheets.`,
		Args:          cobra.ExactArgs(1),
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&outputPath, "output", "o", "", "Output workbook path (default: <input>_normalized.xlsx)")
	flags.StringVar(&logFile, "log-file", "", "Write the JSON processing log to this file (default: stdout)")
	flags.BoolVar(&pretty, "pretty", false, "Pretty-print the JSON processing log")
	flags.StringVar(&envFile, "env-file", ".env", "Optional .env file with TABLENORM_* settings")
	flags.IntVar(&workers, "workers", 0, "Sheets analyzed in parallel (default: GOMAXPROCS)")
	flags.StringVar(&oracleURL, "oracle-url", "", "OpenAI-compatible endpoint for the structure oracle")
	flags.StringVar(&oracleModel, "oracle-model", "", "Model name sent to the oracle endpoint")
	flags.BoolVar(&noOracle, "no-oracle", false, "Never consult the oracle; use local fallbacks only")
	flags.BoolVar(&labelRows, "oracle-label-rows", false, "Merge the oracle's skip rows into label detection")
	flags.Float64Var(&trimRatio, "split-fallback", 0, "Share of rows kept when a split has no regions (default 0.8)")
	flags.StringVar(&rulesFile, "rules", "", "YAML file overriding label detection rules")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, disabled")
	flags.BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}

	log := logger.NewLogger(cfg.LoggerConfig())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.ContextWithLogger(ctx, log)

	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath)
	}

	opts := tablenorm.DefaultOptions()
	opts.Rules = &cfg.Rules
	opts.Workers = cfg.Workers
	opts.MaxCells = cfg.MaxCells
	opts.TrimRatio = cfg.TrimRatio
	opts.OracleLabelRows = cfg.Oracle.LabelRows
	opts.Logger = log
	if cfg.Oracle.Enabled() {
		opts.Oracle = oracle.NewLLM(oracle.NewChatClient(cfg.ChatConfig()), cfg.LLMOptions())
		log.Info("structure oracle enabled", "url", cfg.Oracle.URL, "model", cfg.Oracle.Model)
	} else {
		log.Info("structure oracle disabled, using local fallbacks")
	}

	plog, err := tablenorm.Normalize(ctx, inputPath, outputPath, opts)
	if err != nil {
		return fmt.Errorf("normalization failed: %w", err)
	}

	jsonData, err := output.ToJSON(plog, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	if logFile != "" {
		if err := os.WriteFile(logFile, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write log: %w", err)
		}
	} else {
		fmt.Println(string(jsonData))
	}

	if plog.FailedSheets > 0 {
		printFailures(plog)
	}
	return nil
}

// applyFlags lets explicitly set flags override environment settings.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("workers") {
		cfg.Workers = workers
	}
	if fs.Changed("oracle-url") {
		cfg.Oracle.URL = oracleURL
	}
	if fs.Changed("oracle-model") {
		cfg.Oracle.Model = oracleModel
	}
	if fs.Changed("no-oracle") {
		cfg.Oracle.Disabled = noOracle
	}
	if fs.Changed("oracle-label-rows") {
		cfg.Oracle.LabelRows = labelRows
	}
	if fs.Changed("split-fallback") {
		cfg.TrimRatio = trimRatio
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if fs.Changed("log-json") {
		cfg.Logging.JSON = logJSON
	}
	if fs.Changed("rules") {
		if err := cfg.LoadRules(rulesFile); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_normalized.xlsx"
}

func printFailures(plog *models.ProcessingLog) {
	fmt.Fprintf(os.Stderr, "%d of %d sheets failed:\n", plog.FailedSheets, plog.TotalSheets)
	for _, s := range plog.Sheets {
		if s.Status == models.StatusError {
			fmt.Fprintf(os.Stderr, "  %s (%s): %s\n", s.Sheet, s.Stage, s.Error)
		}
	}
}
