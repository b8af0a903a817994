package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig configures the OpenTelemetry metric provider.
type ProviderConfig struct {
	// ServiceName is the service name reported in telemetry. Default: "hearsim".
	ServiceName string

	// ServiceVersion is the service version reported in telemetry.
	ServiceVersion string
}

// InitProvider installs a global [sdkmetric.MeterProvider] backed by the
// Prometheus exporter, so metrics are scraped from the default Prometheus
// registry (served by promhttp at /metrics). The returned Metrics are bound to
// that provider. Call shutdown in a defer.
func InitProvider(cfg ProviderConfig) (met *Metrics, shutdown func(context.Context) error, err error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "hearsim"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)
	otel.SetMeterProvider(mp)

	met, err = NewMetrics(mp)
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, nil, err
	}
	return met, mp.Shutdown, nil
}
