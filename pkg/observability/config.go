// Package observability wires OpenTelemetry tracing and metrics together with
// structured logging for every rangekeeper entry point (CLI and MCP).
package observability

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is a one-shot CLI command.
	ModeCLI AppMode = "cli"
	// ModeMCP is the MCP stdio server.
	ModeMCP AppMode = "mcp"
)

const (
	defaultServiceName        = "rangekeeper"
	defaultShutdownTimeoutSec = 5
)

// ErrUnknownLevel is returned by ParseLevel for names slog does not know.
var ErrUnknownLevel = errors.New("unknown log level")

// Config holds observability settings.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Environment is the deployment environment, e.g. "production".
	Environment string

	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables export
	// and Init returns no-op providers.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	OTLPInsecure bool

	// SampleRatio is the root trace sampling ratio; zero samples everything.
	SampleRatio float64

	LogLevel slog.Level
	LogJSON  bool

	// LogOutput receives log records; nil means stderr.
	LogOutput io.Writer

	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config usable without any file or environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

// ParseLevel maps debug, info, warn and error (any case) to an slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.TrimSpace(name)))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}

	return level, nil
}
