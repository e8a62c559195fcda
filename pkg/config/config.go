// Package config provides configuration loading and validation for seqstat.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/seqstat/pkg/batch"
	"github.com/Sumatoshi-tech/seqstat/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidThreads     = errors.New("threads must not be negative")
	ErrInvalidInterval    = errors.New("update interval must not be negative")
	ErrInvalidLogLevel    = errors.New("unknown log level")
	ErrInvalidSampleRatio = errors.New("sample ratio must be between 0 and 1")
)

// Default configuration values.
const (
	DefaultUpdateInterval = 1000
	DefaultLogLevel       = "info"
	DefaultEnvironment    = "dev"
	DefaultSampleRatio    = 1.0
)

// Config holds all configuration for a seqstat run.
type Config struct {
	Batch     BatchConfig     `mapstructure:"batch"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// BatchConfig mirrors batch.Options.
type BatchConfig struct {
	AggregateName  string   `mapstructure:"aggregate_name"`
	OutputDir      string   `mapstructure:"output_dir"`
	Modules        []string `mapstructure:"modules"`
	Threads        int      `mapstructure:"threads"`
	UpdateInterval int64    `mapstructure:"update_interval"`
	Casava         bool     `mapstructure:"casava"`
	Aggregate      bool     `mapstructure:"aggregate"`
	Quiet          bool     `mapstructure:"quiet"`
	Verbose        bool     `mapstructure:"verbose"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds tracing and metrics export configuration.
type TelemetryConfig struct {
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from defaults, an optional YAML file, and SEQSTAT_* environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("seqstat")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/seqstat")
	}

	viperCfg.SetEnvPrefix("SEQSTAT")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return &config, nil
}

// setDefaults registers every key so environment variables resolve without a file.
func setDefaults(viperCfg *viper.Viper) {
	// Batch defaults.
	viperCfg.SetDefault("batch.threads", 0)
	viperCfg.SetDefault("batch.casava", false)
	viperCfg.SetDefault("batch.aggregate", false)
	viperCfg.SetDefault("batch.aggregate_name", "")
	viperCfg.SetDefault("batch.output_dir", "")
	viperCfg.SetDefault("batch.update_interval", DefaultUpdateInterval)
	viperCfg.SetDefault("batch.quiet", false)
	viperCfg.SetDefault("batch.verbose", false)
	viperCfg.SetDefault("batch.modules", []string{})

	// Logging defaults.
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)

	// Telemetry defaults.
	viperCfg.SetDefault("telemetry.environment", DefaultEnvironment)
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
}

// Validate checks the configuration. LoadConfig calls it; call it again after applying overrides.
func (c *Config) Validate() error {
	if c.Batch.Threads < 0 {
		return fmt.Errorf("invalid configuration: %w: %d", ErrInvalidThreads, c.Batch.Threads)
	}

	if c.Batch.UpdateInterval < 0 {
		return fmt.Errorf("invalid configuration: %w: %d", ErrInvalidInterval, c.Batch.UpdateInterval)
	}

	_, err := parseLevel(c.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("invalid configuration: %w: %g", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(name))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}

	return level, nil
}

// BatchOptions converts the batch section to orchestrator options.
func (c *Config) BatchOptions() batch.Options {
	return batch.Options{
		Quiet:          c.Batch.Quiet,
		Verbose:        c.Batch.Verbose,
		Casava:         c.Batch.Casava,
		Aggregate:      c.Batch.Aggregate,
		AggregateName:  c.Batch.AggregateName,
		OutputDir:      c.Batch.OutputDir,
		Threads:        c.Batch.Threads,
		UpdateInterval: c.Batch.UpdateInterval,
	}
}

// Observability converts the logging and telemetry sections to an observability config.
// Verbose lowers the level to debug; quiet raises it to warn.
func (c *Config) Observability(version string) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Environment = c.Telemetry.Environment
	cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	cfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	cfg.SampleRatio = c.Telemetry.SampleRatio
	cfg.Prometheus = c.Telemetry.MetricsAddr != ""
	cfg.LogJSON = c.Logging.JSON

	level, err := parseLevel(c.Logging.Level)
	if err == nil {
		cfg.LogLevel = level
	}

	switch {
	case c.Batch.Verbose:
		cfg.LogLevel = slog.LevelDebug
	case c.Batch.Quiet && cfg.LogLevel < slog.LevelWarn:
		cfg.LogLevel = slog.LevelWarn
	}

	return cfg
}
