// Package mcp implements a Model Context Protocol server exposing a range
// ledger as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/ledger"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/observability"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/version"
)

const (
	serverName = "rangekeeper"

	toolCount = 5
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Ledger backs every tool. Nil creates an empty ledger.
	Ledger *ledger.Ledger

	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics records tool calls, and ledger decisions when Ledger is nil.
	// Nil disables metrics.
	Metrics *observability.Metrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with the range tools.
type Server struct {
	inner   *mcpsdk.Server
	ledger  *ledger.Ledger
	logger  *slog.Logger
	mu      sync.RWMutex
	tools   []string
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// NewServer creates a new MCP server with all range tools registered.
func NewServer(deps ServerDeps) *Server {
	logger := observability.LoggerOrDefault(deps.Logger)

	led := deps.Ledger
	if led == nil {
		led = ledger.New(
			ledger.WithLogger(logger),
			ledger.WithTracer(deps.Tracer),
			ledger.WithMetrics(deps.Metrics),
		)
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		&mcpsdk.ServerOptions{Logger: logger},
	)

	srv := &Server{
		inner:   inner,
		ledger:  led,
		logger:  logger,
		tools:   make([]string, 0, toolCount),
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}

	srv.registerTools()

	return srv
}

// Ledger returns the ledger the tools operate on.
func (s *Server) Ledger() *ledger.Ledger {
	return s.ledger
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	s.logger.InfoContext(ctx, "mcp server starting", "tools", len(s.tools))

	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	addTool(s, ToolNameReserve, reserveToolDescription, s.handleReserve)
	addTool(s, ToolNameCheck, checkToolDescription, s.handleCheck)
	addTool(s, ToolNameList, listToolDescription, s.handleList)
	addTool(s, ToolNameNeighbors, neighborsToolDescription, s.handleNeighbors)
	addTool(s, ToolNameGaps, gapsToolDescription, s.handleGaps)
}

func addTool[Input any](s *Server, name, description string, handler mcpsdk.ToolHandlerFor[Input, ToolOutput]) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        name,
		Description: description,
	}, withMetrics(s.metrics, name, withTracing(s.tracer, name, handler)))

	s.trackTool(name)
}

const (
	mcpSpanPrefix = "mcp."

	// traceIDMetaKey prefixes the trace id appended to sampled responses.
	traceIDMetaKey = "trace_id"
)

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String(observability.AttrMCPTool, toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		if err != nil || (result != nil && result.IsError) {
			span.SetStatus(codes.Error, "tool failed")
		}

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to record each invocation under
// op "mcp.<tool>" with outcome ok or error.
func withMetrics[Input any](
	metrics *observability.Metrics,
	toolName string,
	handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if metrics == nil {
		return handler
	}

	op := mcpSpanPrefix + toolName

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		done := metrics.Track(ctx, op)
		defer done()

		result, output, err := handler(ctx, req, input)

		outcome := observability.OutcomeOK
		if err != nil || (result != nil && result.IsError) {
			outcome = observability.OutcomeError
		}

		metrics.Record(ctx, op, outcome, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Tool description constants.
const (
	reserveToolDescription = "Reserve the half-open range [start, end). " +
		"Fails without storing anything when it overlaps a reserved range, and reports the blocking range."

	checkToolDescription = "Check whether [start, end) could be reserved without storing it."

	listToolDescription = "List reserved ranges ordered by start."

	neighborsToolDescription = "Report the nearest reserved start times before and after a time point, " +
		"and the reserved range containing it."

	gapsToolDescription = "List the unreserved parts of [from, to)."
)
