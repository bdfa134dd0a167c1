package observability

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/gammapace/backend/internal/observability/logger"
	"github.com/gammapace/backend/internal/observability/metrics"
	"github.com/gammapace/backend/internal/observability/tracing"
)

// Module wires logging, tracing and metrics.
var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(provideLoggerConfig),
	fx.Provide(logger.New),
	fx.Provide(provideTracingConfig),
	fx.Provide(tracing.NewProvider),
	fx.Provide(provideMetricsConfig),
	fx.Provide(metrics.NewProvider),
	fx.Provide(metrics.New),
	fx.Invoke(ensureTracingProvider),
)

// ensureTracingProvider forces the tracer provider to initialize even
// though no constructor depends on it directly.
func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		SamplingInitial:     100,
		SamplingThereafter:  100,
		IncludeCaller:       cfg.Debug(),
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}
