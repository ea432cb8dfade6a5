package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/mcp"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/observability"
)

const sessionTimeout = 10 * time.Second

// connect starts srv on in-memory transports and returns a client session.
func connect(t *testing.T, srv *mcp.Server) (context.Context, *mcpsdk.ClientSession) {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return ctx, session
}

func call(ctx context.Context, t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	return result
}

// decodeText unmarshals the first text content of result into v.
func decodeText(t *testing.T, result *mcpsdk.CallToolResult, v any) {
	t.Helper()

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok, "first content is %T", result.Content[0])
	require.NoError(t, json.Unmarshal([]byte(text.Text), v))
}

func TestMCPServer_ToolsList(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	assert.Equal(t, []string{
		mcp.ToolNameCheck, mcp.ToolNameGaps, mcp.ToolNameList, mcp.ToolNameNeighbors, mcp.ToolNameReserve,
	}, srv.ListToolNames())

	ctx, session := connect(t, srv)

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	toolNames := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		toolNames = append(toolNames, tool.Name)

		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, srv.ListToolNames(), toolNames)
}

func TestMCPServer_ReserveAndConflict(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	ctx, session := connect(t, srv)

	var first mcp.ReserveResult

	decodeText(t, call(ctx, t, session, mcp.ToolNameReserve, map[string]any{"start": 1, "end": 3, "label": "standup"}), &first)
	assert.True(t, first.Accepted)
	assert.Equal(t, 1, first.Size)

	decodeText(t, call(ctx, t, session, mcp.ToolNameReserve, map[string]any{"start": 5, "end": 8}), &first)
	assert.True(t, first.Accepted)
	assert.Equal(t, 2, first.Size)

	var rejected mcp.ReserveResult

	decodeText(t, call(ctx, t, session, mcp.ToolNameReserve, map[string]any{"start": 2, "end": 6}), &rejected)
	assert.False(t, rejected.Accepted)
	require.NotNil(t, rejected.BlockedBy)
	assert.InDelta(t, 5.0, rejected.BlockedBy.Start, 0)
	assert.InDelta(t, 8.0, rejected.BlockedBy.End, 0)
	assert.Equal(t, 2, rejected.Size)

	var check mcp.CheckResult

	decodeText(t, call(ctx, t, session, mcp.ToolNameCheck, map[string]any{"start": 3, "end": 5}), &check)
	assert.False(t, check.Conflict)
	assert.Nil(t, check.BlockedBy)

	decodeText(t, call(ctx, t, session, mcp.ToolNameCheck, map[string]any{"start": 7, "end": 9}), &check)
	assert.True(t, check.Conflict)
	require.NotNil(t, check.BlockedBy)
	assert.InDelta(t, 5.0, check.BlockedBy.Start, 0)

	assert.Equal(t, 2, srv.Ledger().Len())
}

func TestMCPServer_ListNeighborsGaps(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	ctx, session := connect(t, srv)

	call(ctx, t, session, mcp.ToolNameReserve, map[string]any{"start": 5, "end": 8, "label": "review"})
	call(ctx, t, session, mcp.ToolNameReserve, map[string]any{"start": 1, "end": 3})

	var list mcp.ListResult

	decodeText(t, call(ctx, t, session, mcp.ToolNameList, map[string]any{}), &list)
	require.Equal(t, 2, list.Count)
	assert.InDelta(t, 1.0, list.Ranges[0].Start, 0)
	assert.InDelta(t, 5.0, list.Ranges[1].Start, 0)
	assert.Equal(t, mcp.ToolNameReserve, list.Ranges[1].Source)

	var hood mcp.NeighborsResult

	decodeText(t, call(ctx, t, session, mcp.ToolNameNeighbors, map[string]any{"time": 6}), &hood)
	require.NotNil(t, hood.PrevStart)
	assert.InDelta(t, 5.0, *hood.PrevStart, 0)
	assert.Nil(t, hood.NextStart)
	require.NotNil(t, hood.Owner)
	assert.Equal(t, "review", hood.Owner.Label)

	var gaps mcp.GapsResult

	decodeText(t, call(ctx, t, session, mcp.ToolNameGaps, map[string]any{"from": 0, "to": 10}), &gaps)
	require.Len(t, gaps.Gaps, 3)
	assert.InDelta(t, 3.0, gaps.Gaps[1].Start, 0)
	assert.InDelta(t, 5.0, gaps.Gaps[1].End, 0)
}

func TestMCPServer_InputErrors(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	ctx, session := connect(t, srv)

	result := call(ctx, t, session, mcp.ToolNameReserve, map[string]any{"start": 4, "end": 4})
	assert.True(t, result.IsError)

	result = call(ctx, t, session, mcp.ToolNameReserve, map[string]any{
		"start": 0, "end": 1, "label": strings.Repeat("x", mcp.MaxLabelBytes+1),
	})
	assert.True(t, result.IsError)

	result = call(ctx, t, session, mcp.ToolNameCheck, map[string]any{"start": 9, "end": 1})
	assert.True(t, result.IsError)

	result = call(ctx, t, session, mcp.ToolNameGaps, map[string]any{"from": 2, "to": 2})
	assert.True(t, result.IsError)

	assert.Equal(t, 0, srv.Ledger().Len())
}

func TestMCPServer_TracingAndMetrics(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	srv := mcp.NewServer(mcp.ServerDeps{Metrics: metrics, Tracer: tp.Tracer("test")})
	ctx, session := connect(t, srv)

	result := call(ctx, t, session, mcp.ToolNameReserve, map[string]any{"start": 0, "end": 1})
	require.Len(t, result.Content, 2)

	traceText, ok := result.Content[1].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(traceText.Text, "trace_id="))

	call(ctx, t, session, mcp.ToolNameGaps, map[string]any{"from": 1, "to": 0})

	names := make([]string, 0)
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}

	assert.Contains(t, names, "mcp."+mcp.ToolNameReserve)
	assert.Contains(t, names, "mcp."+mcp.ToolNameGaps)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	// Tool calls and the ledger decisions behind them land in one counter.
	calls := map[string]int64{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "rangekeeper.calls.total" {
				continue
			}

			sum, isSum := m.Data.(metricdata.Sum[int64])
			require.True(t, isSum)

			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value("op")
				outcome, _ := dp.Attributes.Value("outcome")
				calls[op.AsString()+"/"+outcome.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{
		"mcp." + mcp.ToolNameReserve + "/" + observability.OutcomeOK: 1,
		"mcp." + mcp.ToolNameGaps + "/" + observability.OutcomeError: 1,
		observability.OpReserve + "/" + observability.OutcomeAccepted: 1,
	}, calls)
}
