// Package observability provides OpenTelemetry tracing, metrics, and structured logging
// with trace correlation for the back-office server, worker and CLI.
package observability

import (
	"context"
	"os"
	"sort"
	"strings"

	"corpsite/internal/config"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// Field names whose values never reach the log output
var sensitiveKeys = map[string]struct{}{
	"password":       {},
	"password_hash":  {},
	"csrf_token":     {},
	"session_secret": {},
	"smtp_password":  {},
	"authorization":  {},
	"cookie":         {},
}

// Logger wraps the zap logger with trace correlation and map-style fields
type Logger struct {
	*zap.Logger
}

// NewLogger creates an info level logger
func NewLogger(cfg *config.OpenTelemetryConfig) *Logger {
	return NewLoggerWithLevel(cfg, zap.InfoLevel)
}

// NewLoggerWithLevel writes to stdout (JSON, or console when ENV=development)
// and, with OTLP logging enabled, tees every entry to the collector.
func NewLoggerWithLevel(cfg *config.OpenTelemetryConfig, level zapcore.Level) *Logger {
	if cfg == nil {
		return &Logger{Logger: zap.NewNop()}
	}

	zapLogger := newStdoutLogger(level)
	if !cfg.EnableLogging || cfg.Endpoint == "" {
		return &Logger{Logger: zapLogger}
	}

	core, err := newOTLPCore(cfg)
	if err != nil {
		zapLogger.Error("OTLP logging disabled", zap.Error(err), zap.String("endpoint", cfg.Endpoint))
		return &Logger{Logger: zapLogger}
	}
	zapLogger = zap.New(zapcore.NewTee(zapLogger.Core(), core))
	zapLogger.Info("OTLP logging configured", zap.String("endpoint", cfg.Endpoint))
	return &Logger{Logger: zapLogger}
}

func newStdoutLogger(level zapcore.Level) *zap.Logger {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.StacktraceKey = "stacktrace"
	if os.Getenv("ENV") == "development" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return zap.NewExample()
	}
	return zapLogger
}

func newOTLPCore(cfg *config.OpenTelemetryConfig) (zapcore.Core, error) {
	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(cfg.Headers))
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	provider := log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exporter)),
		log.WithResource(res),
	)
	return otelzap.NewCore("corpsite", otelzap.WithLoggerProvider(provider)), nil
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields map[string]interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(toZapFields(fields)...)}
}

// Debug logs a debug message with context
func (l *Logger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(ctx, zap.DebugLevel, msg, mergeFields(fields...))
}

// Info logs an info message with context
func (l *Logger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(ctx, zap.InfoLevel, msg, mergeFields(fields...))
}

// Warn logs a warning message with context
func (l *Logger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(ctx, zap.WarnLevel, msg, mergeFields(fields...))
}

// Error logs an error message with context; err may be nil
func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	all := mergeFields(fields...)
	if err != nil {
		all["error"] = err.Error()
	}
	l.log(ctx, zap.ErrorLevel, msg, all)
}

func (l *Logger) log(ctx context.Context, level zapcore.Level, msg string, fields map[string]interface{}) {
	ce := l.Logger.Check(level, msg)
	if ce == nil {
		return
	}
	if spanContext := trace.SpanContextFromContext(ctx); spanContext.IsValid() {
		fields["trace_id"] = spanContext.TraceID().String()
		fields["span_id"] = spanContext.SpanID().String()
	}
	ce.Write(toZapFields(fields)...)
}

// mergeFields always returns a fresh map so callers' maps are never mutated
func mergeFields(fields ...map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})
	for _, fieldMap := range fields {
		for k, v := range fieldMap {
			merged[k] = v
		}
	}
	return merged
}

// toZapFields converts in key order, masking sensitive values
func toZapFields(fields map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if _, secret := sensitiveKeys[strings.ToLower(k)]; secret {
			out = append(out, zap.String(k, redacted))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// ParseLevel maps a config log level to zap, defaulting to info
func ParseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.InfoLevel
	}
	return lvl
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}
