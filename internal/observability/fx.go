// Package observability wires tracing and metrics into the fx graph.
package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"

	"github.com/caiohomem/assistente-sub001/internal/config"
	"github.com/caiohomem/assistente-sub001/internal/observability/metrics"
	"github.com/caiohomem/assistente-sub001/internal/observability/tracing"
)

func newTracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Tracing.Enabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.ServiceVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.Tracing.ExporterEndpoint,
		ExporterProtocol: cfg.Tracing.ExporterProtocol,
		SamplingRatio:    cfg.Tracing.SamplingRatio,
	}
}

func newMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}
}

func newMeterProvider() metric.MeterProvider {
	return otel.GetMeterProvider()
}

// Module provides the tracer provider and HTTP metrics instruments.
var Module = fx.Module("observability",
	fx.Provide(newTracingConfig),
	fx.Provide(newMetricsConfig),
	fx.Provide(newMeterProvider),
	fx.Provide(tracing.NewProvider),
	fx.Provide(metrics.NewHTTPMetrics),
)
