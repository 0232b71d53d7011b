package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	contextutils "corpsite/internal/utils"
)

// recordSpans installs a recording provider for the duration of the test
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func tracedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TracingMiddleware("corpsite-test")...)
	return router
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracingMiddleware_Success(t *testing.T) {
	recorder := recordSpans(t)
	router := tracedRouter()
	router.GET("/admin/feedback", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := serve(router, http.MethodGet, "/admin/feedback", "")
	assert.Equal(t, http.StatusOK, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
	assert.NotContains(t, attrs(spans[0]), attribute.Key("error.severity"))
}

func TestTracingMiddleware_RecordsAppError(t *testing.T) {
	recorder := recordSpans(t)
	router := tracedRouter()
	router.POST("/admin/api/users", func(c *gin.Context) {
		c.Request = c.Request.WithContext(contextutils.WithAdminID(c.Request.Context(), 5))
		_ = c.Error(contextutils.WrapError(contextutils.ErrForbidden, "cannot toggle own account"))
		c.JSON(http.StatusForbidden, gin.H{"success": false})
	})

	serve(router, http.MethodPost, "/admin/api/users", `{"action":"toggle","id":5}`)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, codes.Error, span.Status().Code)

	a := attrs(span)
	assert.Equal(t, "FORBIDDEN", a["error.code"].AsString())
	assert.Equal(t, "warn", a["error.severity"].AsString())
	assert.Equal(t, int64(5), a["error.admin_id"].AsInt64())
	assert.Equal(t, int64(403), a["http.status_code"].AsInt64())
	assert.False(t, a["error.server_error"].AsBool())
	assert.False(t, a["error.retryable"].AsBool())
	assert.Greater(t, a["error.request_size"].AsInt64(), int64(0))
}

func TestTracingMiddleware_ServerErrorWithoutAppError(t *testing.T) {
	recorder := recordSpans(t)
	router := tracedRouter()
	router.GET("/admin/api/export", func(c *gin.Context) {
		_ = c.Error(errors.New("excelize: write failed"))
		c.String(http.StatusInternalServerError, "エクスポート中にエラーが発生しました。")
	})
	router.GET("/admin/api/reports", func(c *gin.Context) {
		c.Status(http.StatusServiceUnavailable)
	})

	serve(router, http.MethodGet, "/admin/api/export", "")
	serve(router, http.MethodGet, "/admin/api/reports", "")

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	export := attrs(spans[0])
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "error", export["error.severity"].AsString())
	assert.True(t, export["error.server_error"].AsBool())
	assert.NotContains(t, export, attribute.Key("error.code"))

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, int64(503), attrs(spans[1])["http.status_code"].AsInt64())
}

func TestTracingMiddleware_SkipsHealth(t *testing.T) {
	recorder := recordSpans(t)
	router := tracedRouter()
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/health", "")
	assert.Empty(t, recorder.Ended())
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, contextutils.GetRequestIDFromContext(c.Request.Context()))
	})

	w := serve(router, http.MethodGet, "/id", "")
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	inbound := "0b6f5f1e-8f0d-4c47-9d1e-3c9a3f7a2b10"
	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, inbound)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, inbound, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get(RequestIDHeader))
}

func TestRequestLogger_LevelsByStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := &Logger{Logger: zap.New(core)}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/admin/feedback", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/api/feedback", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	router.GET("/admin/api/feedback/:id", func(c *gin.Context) {
		_ = c.Error(contextutils.ErrDatabaseQuery)
		c.Status(http.StatusInternalServerError)
	})

	serve(router, http.MethodGet, "/health", "")
	serve(router, http.MethodGet, "/admin/feedback", "")
	serve(router, http.MethodPost, "/api/feedback", "{}")
	serve(router, http.MethodGet, "/admin/api/feedback/7", "")

	entries := logs.All()
	require.Len(t, entries, 3, "successful health checks are not logged")
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)

	failed := entries[2].ContextMap()
	assert.Equal(t, "/admin/api/feedback/7", failed["path"])
	assert.Equal(t, "/admin/api/feedback/:id", failed["route"])
	assert.Contains(t, failed["error"], "DATABASE_QUERY_ERROR")
}
