package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusProvider is an OTel MeterProvider exported through its own
// Prometheus registry. Each instance is independent, so several can coexist in
// one process.
type PrometheusProvider struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
}

// NewPrometheusProvider creates a registry, an exporter registered on it and
// a MeterProvider reading through that exporter.
func NewPrometheusProvider() (*PrometheusProvider, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &PrometheusProvider{
		registry: registry,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
	}, nil
}

// Meter returns a meter whose instruments show up in this registry.
func (pp *PrometheusProvider) Meter(name string) metric.Meter {
	return pp.provider.Meter(name)
}

// Handler serves the registry in the Prometheus exposition format.
func (pp *PrometheusProvider) Handler() http.Handler {
	return promhttp.HandlerFor(pp.registry, promhttp.HandlerOpts{})
}

// WriteText gathers the registry and writes it in text exposition format.
func (pp *PrometheusProvider) WriteText(w io.Writer) error {
	families, err := pp.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	return writeFamilies(w, families)
}

func writeFamilies(w io.Writer, families []*dto.MetricFamily) error {
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("write metric family %s: %w", family.GetName(), err)
		}
	}

	return nil
}

// Shutdown stops the MeterProvider.
func (pp *PrometheusProvider) Shutdown(ctx context.Context) error {
	if err := pp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown prometheus provider: %w", err)
	}

	return nil
}
