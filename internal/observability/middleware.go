package observability

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "corpsite/internal/utils"
)

// RequestIDHeader carries the correlation id in both directions
const RequestIDHeader = "X-Request-ID"

// Health checks are polled constantly and would drown the traces
var untracedPaths = map[string]struct{}{
	"/health":    {},
	"/v1/health": {},
}

// GinMiddleware starts a server span per request
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		_, skip := untracedPaths[r.URL.Path]
		return !skip
	}))
}

// TracingMiddleware is GinMiddleware followed by ErrorSpanAttributes, so
// failures are recorded while the request span is still open.
//
//	router.Use(observability.TracingMiddleware("corpsite-server")...)
func TracingMiddleware(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{GinMiddleware(serviceName), ErrorSpanAttributes()}
}

// ErrorSpanAttributes marks the request span as failed for 4xx/5xx responses
// and copies the AppError code, severity and admin id onto it.
func ErrorSpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		appErr := firstAppError(c.Errors)
		message := statusClass(status)
		severity := severityForStatus(status)
		switch {
		case appErr != nil:
			message = appErr.Message
			severity = appErr.Severity
		case len(c.Errors) > 0:
			message = c.Errors.Last().Error()
		}

		span.RecordError(errors.New(message))
		span.SetStatus(codes.Error, message)
		span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.String("error.handler", c.HandlerName()),
			attribute.String("error.severity", string(severity)),
			attribute.Bool("error.server_error", status >= http.StatusInternalServerError),
		)
		if appErr != nil {
			span.SetAttributes(
				attribute.String("error.code", string(appErr.Code)),
				attribute.Bool("error.retryable", contextutils.IsRetryable(appErr)),
			)
		}
		if adminID := contextutils.GetAdminIDFromContext(c.Request.Context()); adminID != 0 {
			span.SetAttributes(attribute.Int("error.admin_id", adminID))
		}
		if c.Request.ContentLength > 0 {
			span.SetAttributes(attribute.Int64("error.request_size", c.Request.ContentLength))
		}
	}
}

func firstAppError(errs []*gin.Error) *contextutils.AppError {
	for _, e := range errs {
		var appErr *contextutils.AppError
		if contextutils.AsError(e.Err, &appErr) {
			return appErr
		}
	}
	return nil
}

func statusClass(status int) string {
	if status >= http.StatusInternalServerError {
		return "server error"
	}
	return "client error"
}

func severityForStatus(status int) contextutils.SeverityLevel {
	if status >= http.StatusInternalServerError {
		return contextutils.SeverityError
	}
	return contextutils.SeverityWarn
}

// RequestID assigns every request a correlation id, reusing a well-formed inbound one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(contextutils.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// RequestLogger logs one line per request after it completes
func RequestLogger(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if _, quiet := untracedPaths[c.Request.URL.Path]; quiet && c.Writer.Status() < http.StatusBadRequest {
			return
		}

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"request_id": contextutils.GetRequestIDFromContext(c.Request.Context()),
		}
		if route := c.FullPath(); route != "" && route != c.Request.URL.Path {
			fields["route"] = route
		}
		if len(c.Errors) > 0 {
			fields["errors"] = strings.Join(c.Errors.Errors(), "; ")
		}

		ctx := c.Request.Context()
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			var lastErr error
			if e := c.Errors.Last(); e != nil {
				lastErr = e.Err
			}
			logger.Error(ctx, "request failed", lastErr, fields)
		case status >= http.StatusBadRequest:
			logger.Warn(ctx, "request rejected", fields)
		default:
			logger.Info(ctx, "request completed", fields)
		}
	}
}
