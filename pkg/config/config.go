// Package config loads rangekeeper settings from a YAML file, RANGEKEEPER_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidInputFormat  = errors.New("invalid input format")
	ErrInvalidReportFormat = errors.New("invalid report format")
	ErrInvalidColorMode    = errors.New("invalid color mode")
	ErrInvalidSampleRatio  = errors.New("sample ratio must be within [0, 1]")
)

// Config is the root configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Input     InputConfig     `mapstructure:"input"`
	Report    ReportConfig    `mapstructure:"report"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// InputConfig controls range document decoding.
type InputConfig struct {
	Format         string `mapstructure:"format"`
	ValidateSchema bool   `mapstructure:"validate_schema"`
}

// ReportConfig controls check output.
type ReportConfig struct {
	Format    string `mapstructure:"format"`
	Color     string `mapstructure:"color"`
	PlotTitle string `mapstructure:"plot_title"`
}

// TelemetryConfig controls OTLP export.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Environment  string  `mapstructure:"environment"`
}

// MCPConfig controls the MCP server.
type MCPConfig struct {
	// MetricsAddr serves Prometheus /metrics when set, e.g. ":9464".
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if !slices.Contains(inputFormats, c.Input.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidInputFormat, c.Input.Format)
	}

	if !slices.Contains(reportFormats, c.Report.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidReportFormat, c.Report.Format)
	}

	if !slices.Contains(colorModes, c.Report.Color) {
		return fmt.Errorf("%w: %q", ErrInvalidColorMode, c.Report.Color)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// Observability converts the logging and telemetry sections for
// observability.Init. The config must have passed Validate.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	cfg := observability.DefaultConfig()

	cfg.Mode = mode
	cfg.ServiceVersion = version
	cfg.Environment = c.Telemetry.Environment
	cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	cfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	cfg.SampleRatio = c.Telemetry.SampleRatio
	cfg.LogJSON = c.Logging.JSON

	if level, err := observability.ParseLevel(c.Logging.Level); err == nil {
		cfg.LogLevel = level
	}

	return cfg
}
