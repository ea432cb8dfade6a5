package observability

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder remembers the first status code written.
type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}

	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(buf []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}

	n, err := sr.ResponseWriter.Write(buf)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// HTTPMiddleware starts a server span named "METHOD /path" per request,
// continuing any W3C trace context found in the headers.
func HTTPMiddleware(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		parent := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

		ctx, span := tracer.Start(parent, req.Method+" "+req.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(req.Method),
				attribute.String("http.target", req.URL.Path),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: rw}
		next.ServeHTTP(rec, req.WithContext(ctx))

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		span.SetAttributes(semconv.HTTPResponseStatusCode(rec.status))

		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}
