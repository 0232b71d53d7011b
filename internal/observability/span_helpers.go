package observability

import (
	contextutils "corpsite/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan ends a span and records any error pointed to by errPtr.
// Use with a named error return: `defer observability.FinishSpan(span, &err)`
//
// AppErrors of info or warn severity (bad input, unknown ids, expired
// sessions) are recorded as events but leave the span status unset, so
// error-rate views only count server-side failures.
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	defer span.End()
	if errPtr == nil || *errPtr == nil {
		return
	}

	err := *errPtr
	span.RecordError(err)

	var appErr *contextutils.AppError
	if contextutils.AsError(err, &appErr) {
		span.SetAttributes(
			attribute.String("error.code", string(appErr.Code)),
			attribute.String("error.severity", string(appErr.Severity)),
		)
		if isClientSeverity(appErr.Severity) {
			return
		}
	}
	span.SetStatus(codes.Error, err.Error())
}

func isClientSeverity(s contextutils.SeverityLevel) bool {
	switch s {
	case contextutils.SeverityDebug, contextutils.SeverityInfo, contextutils.SeverityWarn:
		return true
	}
	return false
}
