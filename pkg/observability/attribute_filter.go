package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Span attribute keys used across rangekeeper.
const (
	AttrRangeStart    = "range.start"
	AttrRangeEnd      = "range.end"
	AttrRangeAccepted = "range.accepted"
	AttrRangeConflict = "range.conflict"
	AttrIndexSize     = "rangekeeper.index.size"
	AttrMCPTool       = "mcp.tool"

	// AttrRangeLabel carries caller-supplied text and never leaves the process.
	AttrRangeLabel = "range.label"
)

// exportPolicy decides which span attributes reach the exporter. Blocked
// keys win over allowed prefixes; anything matching neither is dropped.
type exportPolicy struct {
	allowed []string
	blocked map[string]bool
}

var defaultPolicy = exportPolicy{
	allowed: []string{"range.", "rangekeeper.", "mcp.", "http.", "error."},
	blocked: map[string]bool{AttrRangeLabel: true},
}

func (p exportPolicy) allows(key string) bool {
	if p.blocked[key] {
		return false
	}

	if key == "error" {
		return true
	}

	for _, prefix := range p.allowed {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}

	return false
}

// attributeFilter is a SpanProcessor that hides disallowed attributes from
// its delegate.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	policy   exportPolicy
	logger   *slog.Logger
}

// NewAttributeFilter wraps delegate. Dropped keys are logged at debug level
// when logger is non-nil.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, policy: defaultPolicy, logger: logger}
}

func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, filter: f})
}

func (f *attributeFilter) Shutdown(ctx context.Context) error {
	if err := f.delegate.Shutdown(ctx); err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	if err := f.delegate.ForceFlush(ctx); err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (f *attributeFilter) keep(key string) bool {
	if f.policy.allows(key) {
		return true
	}

	if f.logger != nil {
		f.logger.Debug("span attribute dropped", "key", key)
	}

	return false
}

// filteredSpan is a read-only view exposing only kept attributes.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	filter *attributeFilter
}

func (s *filteredSpan) Attributes() []attribute.KeyValue {
	orig := s.ReadOnlySpan.Attributes()
	kept := make([]attribute.KeyValue, 0, len(orig))

	for _, kv := range orig {
		if s.filter.keep(string(kv.Key)) {
			kept = append(kept, kv)
		}
	}

	return kept
}
