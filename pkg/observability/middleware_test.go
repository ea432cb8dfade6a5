package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/observability"
)

func newSyncTracer(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	return exporter, tp
}

func TestHTTPMiddleware_NamesSpanAfterRoute(t *testing.T) {
	t.Parallel()

	exporter, tp := newSyncTracer(t)

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	observability.HTTPMiddleware(tp.Tracer("test"), handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /metrics", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestHTTPMiddleware_ExtractsTraceParent(t *testing.T) {
	t.Parallel()

	exporter, tp := newSyncTracer(t)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	const (
		parentTraceID = "0af7651916cd43dd8448eb211c80319c"
		parentSpanID  = "00f067aa0ba902b7"
	)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	req.Header.Set("Traceparent", "00-"+parentTraceID+"-"+parentSpanID+"-01")

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusNoContent)
	})

	observability.HTTPMiddleware(tp.Tracer("test"), handler).ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, parentTraceID, spans[0].SpanContext.TraceID().String())
	assert.Equal(t, parentSpanID, spans[0].Parent.SpanID().String())
}

func TestHTTPMiddleware_MarksServerErrors(t *testing.T) {
	t.Parallel()

	exporter, tp := newSyncTracer(t)

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	observability.HTTPMiddleware(tp.Tracer("test"), handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
