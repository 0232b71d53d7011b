package observability

import (
	"context"

	"corpsite/internal/config"
	contextutils "corpsite/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc", "":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// AppMetrics holds the counters recorded by services and jobs.
// Instruments come from the global meter provider, so they are no-ops until metrics are enabled.
type AppMetrics struct {
	feedbackSubmissions  otelmetric.Int64Counter
	notificationFailures otelmetric.Int64Counter
	reportsGenerated     otelmetric.Int64Counter
	reportEmailsSent     otelmetric.Int64Counter
	reportEmailsFailed   otelmetric.Int64Counter
}

// NewAppMetrics registers the application instruments on the global meter
func NewAppMetrics() *AppMetrics {
	meter := otel.Meter("corpsite")
	m := &AppMetrics{}
	// Instrument creation only fails on invalid names; the returned instrument is still usable
	m.feedbackSubmissions, _ = meter.Int64Counter("feedback.submissions",
		otelmetric.WithDescription("Feedback submissions accepted by the public endpoint"))
	m.notificationFailures, _ = meter.Int64Counter("feedback.notifications.failed",
		otelmetric.WithDescription("New-feedback notification emails that could not be sent"))
	m.reportsGenerated, _ = meter.Int64Counter("reports.generated",
		otelmetric.WithDescription("Reports computed and stored"))
	m.reportEmailsSent, _ = meter.Int64Counter("report_emails.sent",
		otelmetric.WithDescription("Scheduled report emails delivered"))
	m.reportEmailsFailed, _ = meter.Int64Counter("report_emails.failed",
		otelmetric.WithDescription("Scheduled report emails that failed"))
	return m
}

// FeedbackSubmitted counts an accepted submission by feedback type
func (m *AppMetrics) FeedbackSubmitted(ctx context.Context, feedbackType string) {
	if m == nil || m.feedbackSubmissions == nil {
		return
	}
	m.feedbackSubmissions.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("feedback.type", feedbackType)))
}

// NotificationFailed counts a failed new-feedback notification
func (m *AppMetrics) NotificationFailed(ctx context.Context) {
	if m == nil || m.notificationFailures == nil {
		return
	}
	m.notificationFailures.Add(ctx, 1)
}

// ReportGenerated counts a stored report by period type
func (m *AppMetrics) ReportGenerated(ctx context.Context, reportType string) {
	if m == nil || m.reportsGenerated == nil {
		return
	}
	m.reportsGenerated.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("report.type", reportType)))
}

// ReportEmail counts a scheduled send outcome
func (m *AppMetrics) ReportEmail(ctx context.Context, reportType string, ok bool) {
	if m == nil {
		return
	}
	counter := m.reportEmailsSent
	if !ok {
		counter = m.reportEmailsFailed
	}
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("report.type", reportType)))
}
