package observability

import (
	"context"
	"os"

	"corpsite/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zapcore"
)

// SetupObservability initializes tracing, metrics, and logging for a service.
// Providers are nil when the corresponding signal is disabled; callers shut down what they get.
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName string, level zapcore.Level) (result0 *sdktrace.TracerProvider, result1 *metric.MeterProvider, result2 *Logger, err error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	var tp *sdktrace.TracerProvider
	var mp *metric.MeterProvider

	if err := os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName); err != nil {
		return nil, nil, nil, err
	}
	if err := os.Setenv("OTEL_SERVICE_VERSION", cfg.ServiceVersion); err != nil {
		return nil, nil, nil, err
	}

	logger := NewLoggerWithLevel(cfg, level)
	InitPropagation()

	if cfg.EnableTracing {
		tp, err = InitStandardTracing(cfg)
		if err != nil {
			return nil, nil, logger, err
		}
		otel.SetTracerProvider(tp)
		logger.Info(context.Background(), "Tracing enabled", map[string]interface{}{"service_name": cfg.ServiceName})
	}
	InitGlobalTracer()

	if cfg.EnableMetrics {
		mp, err = InitMetrics(cfg)
		if err != nil {
			return tp, nil, logger, err
		}
		otel.SetMeterProvider(mp)
		logger.Info(context.Background(), "Metrics enabled", map[string]interface{}{"service_name": cfg.ServiceName})
	}

	return tp, mp, logger, nil
}

// Shutdown flushes and stops whichever providers were started
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider, mp *metric.MeterProvider, logger *Logger) {
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil && logger != nil {
			logger.Error(ctx, "Failed to shut down tracer provider", err)
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil && logger != nil {
			logger.Error(ctx, "Failed to shut down meter provider", err)
		}
	}
	if logger != nil {
		_ = logger.Sync()
	}
}
