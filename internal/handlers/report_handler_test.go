package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"corpsite/internal/export"
	"corpsite/internal/models"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupReportRouter(reports *MockReportService, schedules *MockScheduleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(withAdmin(signedInAdmin()))
	h := NewReportHandler(reports, schedules, testConfig(), testLogger())
	h.now = fixedNow
	router.GET("/admin/api/reports", h.GenerateReport)
	router.GET("/admin/api/reports/export", h.ExportReport)
	router.POST("/admin/api/schedules", h.ManageSchedules)
	return router
}

func sampleReport() *models.Report {
	return &models.Report{
		ID:   1,
		Type: models.ReportDaily,
		Date: "2024-03-10",
		Data: models.ReportData{
			PeriodStart:   "2024-03-10",
			PeriodEnd:     "2024-03-10",
			TotalFeedback: 2,
			ResolvedCount: 1,
			TypeBreakdown: []models.TypeBreakdown{{Type: "bug", Count: 2, ResolvedCount: 1}},
		},
	}
}

func TestGenerateReport_DefaultsToDailyToday(t *testing.T) {
	reports := new(MockReportService)
	reports.On("Generate", mock.Anything, models.ReportDaily, "2024-03-10", 3).Return(sampleReport(), nil)

	code, response := serveJSON(t, setupReportRouter(reports, new(MockScheduleService)), http.MethodGet, "/admin/api/reports", "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, response["success"])
	assert.NotNil(t, response["report"])
	reports.AssertExpectations(t)
}

func TestGenerateReport_ExplicitTypeAndDate(t *testing.T) {
	reports := new(MockReportService)
	reports.On("Generate", mock.Anything, models.ReportMonthly, "2024-02-01", 3).Return(sampleReport(), nil)

	code, _ := serveJSON(t, setupReportRouter(reports, new(MockScheduleService)), http.MethodGet, "/admin/api/reports?type=monthly&date=2024-02-01", "")

	assert.Equal(t, http.StatusOK, code)
	reports.AssertExpectations(t)
}

func TestGenerateReport_BadInput(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/admin/api/reports?type=yearly", MsgInvalidReportType},
		{"/admin/api/reports?type=daily&date=2024-13-40", MsgInvalidReportDate},
		{"/admin/api/reports?date=yesterday", MsgInvalidReportDate},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			reports := new(MockReportService)

			code, response := serveJSON(t, setupReportRouter(reports, new(MockScheduleService)), http.MethodGet, tt.target, "")

			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, false, response["success"])
			assert.Equal(t, tt.want, response["error"])
			reports.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGenerateReport_Failure(t *testing.T) {
	reports := new(MockReportService)
	reports.On("Generate", mock.Anything, models.ReportWeekly, "2024-03-10", 3).
		Return(nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, "aggregate failed"))

	code, response := serveJSON(t, setupReportRouter(reports, new(MockScheduleService)), http.MethodGet, "/admin/api/reports?type=weekly", "")

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, MsgReportFailed, response["error"])
}

func TestExportReport_CSV(t *testing.T) {
	reports := new(MockReportService)
	reports.On("EnsureReport", mock.Anything, models.ReportDaily, "2024-03-10", 3).Return(sampleReport(), false, nil)

	req, _ := http.NewRequest(http.MethodGet, "/admin/api/reports/export?type=daily&date=2024-03-10&format=csv", nil)
	w := httptest.NewRecorder()
	setupReportRouter(reports, new(MockScheduleService)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentTypeCSV, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report_daily_2024-03-10_20240310_090507.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "区分,項目,件数,対応済み")
	assert.Contains(t, w.Body.String(), "タイプ別集計,bug,2,1")
}

func TestExportReport_Excel(t *testing.T) {
	reports := new(MockReportService)
	reports.On("EnsureReport", mock.Anything, models.ReportDaily, "2024-03-10", 3).Return(sampleReport(), true, nil)

	req, _ := http.NewRequest(http.MethodGet, "/admin/api/reports/export?format=excel", nil)
	w := httptest.NewRecorder()
	setupReportRouter(reports, new(MockScheduleService)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentTypeXLSX, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{"日次レポート"}, f.GetSheetList())
}

func TestExportReport_Failures(t *testing.T) {
	reports := new(MockReportService)
	reports.On("EnsureReport", mock.Anything, models.ReportDaily, "2024-03-10", 3).
		Return(nil, false, contextutils.ErrDatabaseQuery)
	router := setupReportRouter(reports, new(MockScheduleService))

	for _, target := range []string{
		"/admin/api/reports/export?format=pdf",
		"/admin/api/reports/export?format=csv",
	} {
		req, _ := http.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code, target)
		assert.Equal(t, "エクスポート中にエラーが発生しました。", w.Body.String(), target)
	}
}

func TestManageSchedules_Create(t *testing.T) {
	schedules := new(MockScheduleService)
	schedules.On("CreateSchedule", mock.Anything, models.ReportWeekly, "boss@example.com", 3).
		Return(&models.ReportSchedule{ID: 4, Type: models.ReportWeekly, Email: "boss@example.com", IsActive: true}, nil)

	code, response := serveJSON(t, setupReportRouter(new(MockReportService), schedules), http.MethodPost, "/admin/api/schedules",
		`{"action":"create","type":"weekly","email":"boss@example.com"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, MsgScheduleCreated, response["message"])
	assert.NotNil(t, response["schedule"])
}

func TestManageSchedules_CreateRejectsBadInput(t *testing.T) {
	schedules := new(MockScheduleService)
	schedules.On("CreateSchedule", mock.Anything, models.ReportDaily, "nope", 3).
		Return(nil, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid schedule email %q", "nope"))
	router := setupReportRouter(new(MockReportService), schedules)

	code, response := serveJSON(t, router, http.MethodPost, "/admin/api/schedules", `{"action":"create","type":"daily","email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, MsgInvalidEmail, response["message"])

	code, response = serveJSON(t, router, http.MethodPost, "/admin/api/schedules", `{"action":"create","type":"hourly","email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, MsgInvalidReportType, response["message"])
}

func TestManageSchedules_ToggleAndDelete(t *testing.T) {
	schedules := new(MockScheduleService)
	schedules.On("ToggleSchedule", mock.Anything, 4).Return(&models.ReportSchedule{ID: 4, IsActive: false}, nil)
	schedules.On("DeleteSchedule", mock.Anything, 4).Return(nil)
	schedules.On("DeleteSchedule", mock.Anything, 9).Return(contextutils.ErrRecordNotFound)
	router := setupReportRouter(new(MockReportService), schedules)

	code, response := serveJSON(t, router, http.MethodPost, "/admin/api/schedules", `{"action":"toggle","id":"4"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, MsgScheduleToggled, response["message"])

	code, response = serveJSON(t, router, http.MethodPost, "/admin/api/schedules", `{"action":"delete","id":4}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, MsgScheduleDeleted, response["message"])

	code, response = serveJSON(t, router, http.MethodPost, "/admin/api/schedules", `{"action":"delete","id":9}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, MsgScheduleNotFound, response["message"])
	schedules.AssertExpectations(t)
}

func TestManageSchedules_InvalidRequests(t *testing.T) {
	for _, body := range []string{`{"action":"pause","id":1}`, `{"action":"toggle"}`, `{"action":"delete"}`, `[`} {
		t.Run(body, func(t *testing.T) {
			code, response := serveJSON(t, setupReportRouter(new(MockReportService), new(MockScheduleService)), http.MethodPost, "/admin/api/schedules", body)

			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, MsgInvalidRequest, response["message"])
		})
	}
}
