package handlers

import (
	"bytes"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"corpsite/internal/export"
	"corpsite/internal/models"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupExportRouter(svc *MockFeedbackService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(withAdmin(signedInAdmin()))
	h := NewExportHandler(svc, testConfig(), testLogger())
	h.now = fixedNow
	router.GET("/admin/api/export", h.ExportFeedback)
	return router
}

func exportRows() []models.Feedback {
	return []models.Feedback{{
		ID:        12,
		Type:      "inquiry",
		Content:   "見積もりをお願いします",
		Name:      sql.NullString{String: "佐藤", Valid: true},
		Status:    models.StatusPending,
		CreatedAt: time.Date(2024, 3, 9, 15, 30, 0, 0, time.UTC),
	}}
}

func TestExportFeedback_CSVWithFilters(t *testing.T) {
	svc := new(MockFeedbackService)
	svc.On("ListAllFeedback", mock.Anything, models.FeedbackFilter{Type: "inquiry", Status: "pending", DateFrom: "2024-03-01"}).
		Return(exportRows(), nil)

	req, _ := http.NewRequest(http.MethodGet, "/admin/api/export?type=inquiry&status=pending&date_from=2024-03-01&format=csv", nil)
	w := httptest.NewRecorder()
	setupExportRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentTypeCSV, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="feedback_20240310_090507.csv"`, w.Header().Get("Content-Disposition"))
	body := w.Body.Bytes()
	assert.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(body), "12,2024-03-10 00:30:00,inquiry,佐藤,,,見積もりをお願いします,pending,,")
	svc.AssertExpectations(t)
}

func TestExportFeedback_DefaultsToCSV(t *testing.T) {
	svc := new(MockFeedbackService)
	svc.On("ListAllFeedback", mock.Anything, models.FeedbackFilter{}).Return([]models.Feedback{}, nil)

	req, _ := http.NewRequest(http.MethodGet, "/admin/api/export", nil)
	w := httptest.NewRecorder()
	setupExportRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentTypeCSV, w.Header().Get("Content-Type"))
}

func TestExportFeedback_Excel(t *testing.T) {
	svc := new(MockFeedbackService)
	svc.On("ListAllFeedback", mock.Anything, models.FeedbackFilter{}).Return(exportRows(), nil)

	req, _ := http.NewRequest(http.MethodGet, "/admin/api/export?format=excel", nil)
	w := httptest.NewRecorder()
	setupExportRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="feedback_20240310_090507.xlsx"`, w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Feedback")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "佐藤", rows[1][3])
}

func TestExportFeedback_Failures(t *testing.T) {
	svc := new(MockFeedbackService)
	svc.On("ListAllFeedback", mock.Anything, mock.Anything).Return(nil, contextutils.ErrDatabaseQuery)
	router := setupExportRouter(svc)

	for _, target := range []string{"/admin/api/export?format=pdf", "/admin/api/export?format=csv"} {
		req, _ := http.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code, target)
		assert.Equal(t, "エクスポート中にエラーが発生しました。", w.Body.String(), target)
	}
}
