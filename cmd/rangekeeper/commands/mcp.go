package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/ledger"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/mcp"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/observability"
)

const (
	metricsPath = "/metrics"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server keeps one in-memory range ledger and exposes it as tools that
AI agents can discover and invoke:
  - range_reserve: Reserve [start, end) unless it overlaps a reserved range
  - range_check: Test [start, end) for conflicts without reserving it
  - range_list: List reserved ranges
  - range_neighbors: Reserved starts around a time point
  - range_gaps: Unreserved parts of a window`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default from config)")

	return cmd
}

func runMCP(cmd *cobra.Command, metricsAddr string) error {
	sess, err := startSession(cmd, observability.ModeMCP)
	if err != nil {
		return err
	}
	defer sess.close()

	if metricsAddr == "" {
		metricsAddr = sess.cfg.MCP.MetricsAddr
	}

	meter := sess.providers.Meter

	if metricsAddr != "" {
		prom, promErr := observability.NewPrometheusProvider()
		if promErr != nil {
			return promErr
		}

		meter = prom.Meter(meterName)

		stop, serveErr := serveMetrics(cmd.Context(), sess, prom, metricsAddr)
		if serveErr != nil {
			return serveErr
		}
		defer stop()
	}

	metrics, err := observability.NewMetrics(meter)
	if err != nil {
		return err
	}

	led := ledger.New(
		ledger.WithLogger(sess.providers.Logger),
		ledger.WithTracer(sess.providers.Tracer),
		ledger.WithMetrics(metrics),
	)

	srv := mcp.NewServer(mcp.ServerDeps{
		Ledger:  led,
		Logger:  sess.providers.Logger,
		Metrics: metrics,
		Tracer:  sess.providers.Tracer,
	})

	return srv.Run(cmd.Context())
}

// serveMetrics starts an HTTP server exposing prom on addr and returns a
// function that stops it and the provider. The provider is shut down before
// returning when the server cannot start.
func serveMetrics(
	ctx context.Context, sess *session, prom *observability.PrometheusProvider, addr string,
) (func(), error) {
	logger := sess.providers.Logger

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		shutdownPrometheus(logger, prom)

		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, prom.Handler())

	server := &http.Server{
		Handler:           observability.HTTPMiddleware(sess.providers.Tracer, mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", serveErr)
		}
	}()

	logger.Info("serving metrics", "addr", listener.Addr().String(), "path", metricsPath)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}

		shutdownPrometheus(logger, prom)
	}, nil
}

func shutdownPrometheus(logger *slog.Logger, prom *observability.PrometheusProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := prom.Shutdown(ctx); err != nil {
		logger.Warn("prometheus shutdown failed", "error", err)
	}
}
