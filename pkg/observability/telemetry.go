package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitTelemetry wires OpenTelemetry metrics into a dedicated Prometheus
// registry and returns the scrape handler for it. A private registry keeps
// the endpoint free of whatever other libraries register globally.
func InitTelemetry(serviceName string) (*metric.MeterProvider, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return meterProvider, handler, nil
}

// InitLogger initializes the structured logger for the given environment.
// Production logs JSON with ISO8601 timestamps; everything else gets the
// human-readable development encoder.
func InitLogger(env string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if env == "production" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		logger, err = cfg.Build()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	zap.ReplaceGlobals(logger)

	return logger, nil
}

// Shutdown flushes telemetry and the logger.
func Shutdown(ctx context.Context, meterProvider *metric.MeterProvider, logger *zap.Logger) error {
	if meterProvider != nil {
		if err := meterProvider.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown meter provider", zap.Error(err))
			return err
		}
	}

	if logger != nil {
		// Sync can fail on some stderr targets; nothing actionable.
		_ = logger.Sync()
	}

	return nil
}
