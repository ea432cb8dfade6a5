package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
)

// ServiceInfo is attached to every record emitted through a TracingHandler.
type ServiceInfo struct {
	Name string
	Env  string
	Mode AppMode
}

func (si ServiceInfo) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String(attrService, si.Name),
		slog.String(attrMode, string(si.Mode)),
	}

	if si.Env != "" {
		attrs = append(attrs, slog.String(attrEnv, si.Env))
	}

	return attrs
}

// TracingHandler is an [slog.Handler] adding trace_id and span_id from the
// record context. Service attributes are bound to the inner handler up front
// so they stay top-level under WithGroup.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner.
func NewTracingHandler(inner slog.Handler, info ServiceInfo) *TracingHandler {
	return &TracingHandler{inner: inner.WithAttrs(info.attrs())}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds span identifiers when ctx carries a valid span.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}

// LoggerOrDefault returns logger, or slog.Default() when it is nil.
func LoggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}

	return logger
}
