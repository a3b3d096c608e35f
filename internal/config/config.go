// Package config loads tablenorm settings from the environment, an optional
// .env file and an optional YAML rules file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ukaji3/tablenorm-go/pkg/logger"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/detect"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/oracle"
)

// EnvPrefix is the prefix of every environment variable, e.g. TABLENORM_WORKERS.
const EnvPrefix = "TABLENORM"

// Config is the complete runtime configuration.
type Config struct {
	Oracle  OracleConfig  `envconfig:"ORACLE"`
	Logging LoggingConfig `envconfig:"LOG"`

	Workers   int     `envconfig:"WORKERS" default:"0" validate:"gte=0"`
	MaxCells  int     `envconfig:"MAX_CELLS" default:"5000000" validate:"gt=0"`
	TrimRatio float64 `envconfig:"SPLIT_FALLBACK" default:"0.8" validate:"gt=0,lte=1"`
	RulesFile string  `envconfig:"RULES_FILE"`

	// Rules is filled from DefaultRules and RulesFile, never from env.
	Rules detect.Rules `ignored:"true"`
}

// OracleConfig configures the chat completions endpoint and call budget.
type OracleConfig struct {
	URL         string  `envconfig:"URL"`
	APIKey      string  `envconfig:"API_KEY"`
	Model       string  `envconfig:"MODEL" default:"gpt-4o-mini"`
	Temperature float64 `envconfig:"TEMPERATURE" default:"0" validate:"gte=0,lte=2"`
	MaxTokens   int     `envconfig:"MAX_TOKENS" default:"1024" validate:"gte=0"`
	Disabled    bool    `envconfig:"DISABLED"`
	LabelRows   bool    `envconfig:"LABEL_ROWS"`

	Timeout     time.Duration `envconfig:"TIMEOUT" default:"90s"`
	Retries     int           `envconfig:"RETRIES" default:"2" validate:"gte=0,lte=10"`
	RatePerSec  float64       `envconfig:"RPS" default:"2" validate:"gte=0"`
	Burst       int           `envconfig:"BURST" default:"4" validate:"gte=1"`
	MaxCalls    int           `envconfig:"MAX_CALLS" default:"0" validate:"gte=0"`
	MaxFailures int           `envconfig:"MAX_FAILURES" default:"3" validate:"gte=1"`
	Cooldown    time.Duration `envconfig:"COOLDOWN" default:"1m"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error disabled"`
	JSON  bool   `envconfig:"JSON"`
}

// Enabled reports whether an endpoint is configured and not switched off.
func (o OracleConfig) Enabled() bool {
	return !o.Disabled && o.URL != ""
}

// Load reads envFile when it exists, then the environment, then the rules
// file named by TABLENORM_RULES_FILE. An empty envFile skips the .env step.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.Rules = detect.DefaultRules()
	if cfg.RulesFile != "" {
		if err := cfg.LoadRules(cfg.RulesFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadRules overlays the YAML file at path onto the current rules. Fields
// absent from the file keep their value.
func (c *Config) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.Rules); err != nil {
		return fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	c.RulesFile = path
	return nil
}

// Validate checks field constraints, including the rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("config validation failed: oracle timeout must be positive, got %s", c.Oracle.Timeout)
	}
	if c.Oracle.Cooldown < 0 {
		return fmt.Errorf("config validation failed: oracle cooldown must not be negative, got %s", c.Oracle.Cooldown)
	}
	return nil
}

// LoggerConfig returns the logger settings writing to stderr.
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(c.Logging.Level)
	cfg.JSON = c.Logging.JSON
	return cfg
}

// ChatConfig returns the chat client settings.
func (c *Config) ChatConfig() oracle.ChatConfig {
	return oracle.ChatConfig{
		BaseURL:     c.Oracle.URL,
		APIKey:      c.Oracle.APIKey,
		Model:       c.Oracle.Model,
		Temperature: c.Oracle.Temperature,
		MaxTokens:   c.Oracle.MaxTokens,
		Timeout:     c.Oracle.Timeout,
		Retries:     c.Oracle.Retries,
	}
}

// LLMOptions returns the oracle call budget.
func (c *Config) LLMOptions() oracle.LLMOptions {
	opts := oracle.DefaultLLMOptions()
	opts.RatePerSecond = c.Oracle.RatePerSec
	opts.Burst = c.Oracle.Burst
	opts.MaxCalls = c.Oracle.MaxCalls
	opts.MaxFailures = c.Oracle.MaxFailures
	opts.Cooldown = c.Oracle.Cooldown
	// Retries happen inside one call, so the call deadline covers all of them.
	opts.CallTimeout = c.Oracle.Timeout * time.Duration(c.Oracle.Retries+1)
	return opts
}
