package observability

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/config"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/observability/metrics"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/observability/tracing"
)

var version = "dev"

// Module wires tracing and metrics from the service configuration.
var Module = fx.Module("observability",
	fx.Provide(newTracingConfig),
	fx.Provide(tracing.NewProvider),
	fx.Provide(newMetricsConfig),
	fx.Provide(newHTTPMetrics),
	fx.Provide(newLedgerMetrics),
)

func newTracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Tracing.Enabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   version,
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

func newHTTPMetrics(cfg metrics.Config) (*metrics.HTTPMetrics, error) {
	return metrics.NewHTTPMetrics(cfg, otel.GetMeterProvider())
}

func newLedgerMetrics(cfg metrics.Config) *metrics.LedgerMetrics {
	return metrics.LedgerWithConfig(cfg)
}
