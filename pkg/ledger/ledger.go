// Package ledger serializes access to a range index for concurrent callers
// and records every decision in logs, spans and metrics.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/alg/rangeset"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/observability"
)

// Booking is the payload stored with every accepted range.
type Booking struct {
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Source and Line locate the entry that produced the booking, if any.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Line   int    `json:"line,omitempty"   yaml:"line,omitempty"`
}

// Range is a stored or candidate booking range.
type Range = rangeset.Range[Booking]

// Outcome is the result of a reservation or a check.
type Outcome struct {
	Range    *Range
	Accepted bool

	// BlockedBy is a stored range overlapping Range, nil when there is none.
	BlockedBy *Range

	// Size is the number of stored ranges right after the decision.
	Size int
}

// Neighborhood describes the stored ranges around a time point.
type Neighborhood struct {
	Time             float64
	PrevStart        float64
	NextStart        float64
	HasPrev, HasNext bool

	// Owner is the stored range containing Time, nil when Time is free.
	Owner *Range
}

// Stats summarizes a ledger.
type Stats struct {
	Index    rangeset.Stats
	Accepted int
	Rejected int
	Checks   int
}

// Ledger guards one range index with a mutex.
type Ledger struct {
	mu    sync.Mutex
	index *rangeset.Index[Booking]

	rejected int
	checks   int

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.Metrics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger; nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = observability.LoggerOrDefault(logger)
	}
}

// WithTracer sets the tracer used for per-call spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(l *Ledger) {
		if tracer != nil {
			l.tracer = tracer
		}
	}
}

// WithMetrics records every reserve and check decision on metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = metrics
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		index:  rangeset.New[Booking](),
		logger: slog.Default(),
		tracer: nooptrace.NewTracerProvider().Tracer(""),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Reserve stores [start, end) unless it overlaps a stored range. Invalid
// bounds return an error wrapping rangeset.ErrInvalidRange; a conflict is not
// an error and is reported through Outcome.
func (l *Ledger) Reserve(ctx context.Context, start, end float64, booking Booking) (Outcome, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.reserve", trace.WithAttributes(
		attribute.Float64(observability.AttrRangeStart, start),
		attribute.Float64(observability.AttrRangeEnd, end),
		attribute.String(observability.AttrRangeLabel, booking.Label),
	))
	defer span.End()

	r, err := rangeset.NewRange(start, end, booking)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid range")

		return Outcome{}, fmt.Errorf("reserve %q: %w", booking.Label, err)
	}

	began := time.Now()

	l.mu.Lock()

	out := Outcome{Range: r, Accepted: l.index.Insert(r)}
	if !out.Accepted {
		out.BlockedBy, _ = l.index.Conflict(r)
		l.rejected++
	}

	out.Size = l.index.Len()

	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.RecordReservation(ctx, out.Accepted, time.Since(began))
	}

	span.SetAttributes(
		attribute.Bool(observability.AttrRangeAccepted, out.Accepted),
		attribute.Int(observability.AttrIndexSize, out.Size),
	)

	if out.Accepted {
		l.logger.DebugContext(ctx, "range reserved", "range", r.String(), "label", booking.Label, "size", out.Size)
	} else {
		l.logger.InfoContext(ctx, "range rejected",
			"range", r.String(), "label", booking.Label, "blocked_by", out.BlockedBy.String())
	}

	return out, nil
}

// Check reports whether [start, end) could be reserved, without storing it.
func (l *Ledger) Check(ctx context.Context, start, end float64) (Outcome, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.check", trace.WithAttributes(
		attribute.Float64(observability.AttrRangeStart, start),
		attribute.Float64(observability.AttrRangeEnd, end),
	))
	defer span.End()

	r, err := rangeset.NewRange(start, end, Booking{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid range")

		return Outcome{}, fmt.Errorf("check: %w", err)
	}

	began := time.Now()

	l.mu.Lock()
	blocker, conflict := l.index.Conflict(r)
	size := l.index.Len()
	l.checks++
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.RecordCheck(ctx, conflict, time.Since(began))
	}

	span.SetAttributes(attribute.Bool(observability.AttrRangeConflict, conflict))

	return Outcome{Range: r, Accepted: !conflict, BlockedBy: blocker, Size: size}, nil
}

// Neighbors returns the nearest stored starts around t and the range owning t.
func (l *Ledger) Neighbors(ctx context.Context, t float64) Neighborhood {
	_, span := l.tracer.Start(ctx, "ledger.neighbors")
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	hood := Neighborhood{Time: t}
	hood.PrevStart, hood.HasPrev = l.index.PrevStart(t)
	hood.NextStart, hood.HasNext = l.index.NextStart(t)
	hood.Owner, _ = l.index.Owner(t)

	return hood
}

// Gaps returns the free parts of [lo, hi).
func (l *Ledger) Gaps(lo, hi float64) []rangeset.Span {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.index.Gaps(lo, hi)
}

// Snapshot returns the stored ranges sorted by start.
func (l *Ledger) Snapshot() []*Range {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.index.Ranges()
}

// Len returns the number of stored ranges.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.index.Len()
}

// Stats returns counters and tree shape.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Stats{
		Index:    l.index.Stats(),
		Accepted: l.index.Len(),
		Rejected: l.rejected,
		Checks:   l.checks,
	}
}
