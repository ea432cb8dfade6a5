package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names. Every timed call, whether a ledger decision or an MCP
// tool invocation, is counted and timed under the same two instruments and
// told apart by its op and outcome attributes.
const (
	metricCalls       = "rangekeeper.calls.total"
	metricCallLatency = "rangekeeper.call.duration.seconds"
	metricActiveCalls = "rangekeeper.calls.active"
	metricIndexSize   = "rangekeeper.index.size"

	attrOp      = "op"
	attrOutcome = "outcome"
)

// Ledger ops.
const (
	OpReserve = "ledger.reserve"
	OpCheck   = "ledger.check"
)

// Outcomes recorded with every call.
const (
	// OutcomeAccepted and OutcomeRejected qualify reservations.
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"

	// OutcomeFree and OutcomeConflict qualify checks.
	OutcomeFree     = "free"
	OutcomeConflict = "conflict"

	// OutcomeOK and OutcomeError qualify tool calls.
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// latencyBuckets spans 0.1ms to 1s: index calls are in-memory and a tool call
// adds only JSON encoding on top.
var latencyBuckets = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// Metrics is the instrument set shared by a ledger and the tool layer in
// front of it.
type Metrics struct {
	calls   metric.Int64Counter
	latency metric.Float64Histogram
	active  metric.Int64UpDownCounter
	size    metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on mt.
func NewMetrics(mt metric.Meter) (*Metrics, error) {
	calls, err := mt.Int64Counter(metricCalls,
		metric.WithDescription("Completed calls by op and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCalls, err)
	}

	latency, err := mt.Float64Histogram(metricCallLatency,
		metric.WithDescription("Call latency in seconds by op and outcome"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCallLatency, err)
	}

	active, err := mt.Int64UpDownCounter(metricActiveCalls,
		metric.WithDescription("Calls in progress by op"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricActiveCalls, err)
	}

	size, err := mt.Int64UpDownCounter(metricIndexSize,
		metric.WithDescription("Number of stored ranges"),
		metric.WithUnit("{range}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricIndexSize, err)
	}

	return &Metrics{calls: calls, latency: latency, active: active, size: size}, nil
}

// Record counts one completed call and its latency.
func (m *Metrics) Record(ctx context.Context, op, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrOutcome, outcome),
	)

	m.calls.Add(ctx, 1, attrs)
	m.latency.Record(ctx, elapsed.Seconds(), attrs)
}

// Track marks a call to op as active and returns the function ending it.
func (m *Metrics) Track(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	m.active.Add(ctx, 1, attrs)

	return func() {
		m.active.Add(ctx, -1, attrs)
	}
}

// RecordReservation records a reserve decision; an accepted one grows the
// index size.
func (m *Metrics) RecordReservation(ctx context.Context, accepted bool, elapsed time.Duration) {
	outcome := OutcomeRejected
	if accepted {
		outcome = OutcomeAccepted

		m.size.Add(ctx, 1)
	}

	m.Record(ctx, OpReserve, outcome, elapsed)
}

// RecordCheck records a read-only conflict check.
func (m *Metrics) RecordCheck(ctx context.Context, conflict bool, elapsed time.Duration) {
	outcome := OutcomeFree
	if conflict {
		outcome = OutcomeConflict
	}

	m.Record(ctx, OpCheck, outcome, elapsed)
}
