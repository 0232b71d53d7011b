package handlers

import (
	"context"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/middleware"
	"corpsite/internal/models"
	"corpsite/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{SiteName: "テスト株式会社", Timezone: "Asia/Tokyo", SessionSecret: "test-secret"},
	}
}

// fixedNow is 2024-03-10 09:05:07 in Asia/Tokyo
func fixedNow() time.Time {
	return time.Date(2024, 3, 10, 0, 5, 7, 0, time.UTC)
}

// withAdmin stands in for the session guard
func withAdmin(admin *models.Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.AdminKey, admin)
		c.Set(middleware.CSRFTokenKey, "token")
		c.Next()
	}
}

func signedInAdmin(perms ...string) *models.Admin {
	return &models.Admin{ID: 3, Name: "管理者", Email: "admin@example.com", Status: models.AdminActive, Permissions: perms}
}

type MockFeedbackService struct {
	mock.Mock
}

func (m *MockFeedbackService) CreateFeedback(ctx context.Context, submission *models.FeedbackSubmission) (*models.Feedback, error) {
	args := m.Called(ctx, submission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Feedback), args.Error(1)
}

func (m *MockFeedbackService) GetFeedbackByID(ctx context.Context, id int) (*models.Feedback, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Feedback), args.Error(1)
}

func (m *MockFeedbackService) GetHistory(ctx context.Context, feedbackID int) ([]models.FeedbackHistory, error) {
	args := m.Called(ctx, feedbackID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedbackHistory), args.Error(1)
}

func (m *MockFeedbackService) ListFeedback(ctx context.Context, filter models.FeedbackFilter, page int) (*models.FeedbackPage, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeedbackPage), args.Error(1)
}

func (m *MockFeedbackService) ListAllFeedback(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Feedback), args.Error(1)
}

func (m *MockFeedbackService) UpdateStatus(ctx context.Context, id int, status models.FeedbackStatus, notes string, adminID int) error {
	return m.Called(ctx, id, status, notes, adminID).Error(0)
}

func (m *MockFeedbackService) ApplyBulkAction(ctx context.Context, action models.BulkAction, ids []int, adminID int) (int, error) {
	args := m.Called(ctx, action, ids, adminID)
	return args.Int(0), args.Error(1)
}

func (m *MockFeedbackService) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

func (m *MockFeedbackService) GetFilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FilterOptions), args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Authenticate(ctx context.Context, email, password, ipAddress, userAgent string) (*models.Admin, error) {
	args := m.Called(ctx, email, password, ipAddress, userAgent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAdminService) GetAdminByID(ctx context.Context, id int) (*models.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAdminService) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Admin), args.Error(1)
}

func (m *MockAdminService) ListRoles(ctx context.Context) ([]models.AdminRole, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AdminRole), args.Error(1)
}

func (m *MockAdminService) CreateAdmin(ctx context.Context, name, email, password, roleName string) (*models.Admin, error) {
	args := m.Called(ctx, name, email, password, roleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAdminService) ToggleStatus(ctx context.Context, id, actingAdminID int) (*models.Admin, error) {
	args := m.Called(ctx, id, actingAdminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAdminService) GetLoginHistory(ctx context.Context, adminID, limit int) ([]models.LoginHistory, error) {
	args := m.Called(ctx, adminID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LoginHistory), args.Error(1)
}

func (m *MockAdminService) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	return m.Called(ctx, email, password).Error(0)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Compute(ctx context.Context, reportType models.ReportType, anchor time.Time) (*models.ReportData, error) {
	args := m.Called(ctx, reportType, anchor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportData), args.Error(1)
}

func (m *MockReportService) Generate(ctx context.Context, reportType models.ReportType, date string, createdBy int) (*models.Report, error) {
	args := m.Called(ctx, reportType, date, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportService) GetLatest(ctx context.Context, reportType models.ReportType, date string) (*models.Report, error) {
	args := m.Called(ctx, reportType, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportService) EnsureReport(ctx context.Context, reportType models.ReportType, date string, createdBy int) (*models.Report, bool, error) {
	args := m.Called(ctx, reportType, date, createdBy)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Report), args.Bool(1), args.Error(2)
}

func (m *MockReportService) ListRecent(ctx context.Context, limit int) ([]models.Report, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

type MockScheduleService struct {
	mock.Mock
}

func (m *MockScheduleService) ListSchedules(ctx context.Context, activeOnly bool) ([]models.ReportSchedule, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReportSchedule), args.Error(1)
}

func (m *MockScheduleService) CreateSchedule(ctx context.Context, reportType models.ReportType, email string, createdBy int) (*models.ReportSchedule, error) {
	args := m.Called(ctx, reportType, email, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportSchedule), args.Error(1)
}

func (m *MockScheduleService) ToggleSchedule(ctx context.Context, id int) (*models.ReportSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportSchedule), args.Error(1)
}

func (m *MockScheduleService) DeleteSchedule(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockScheduleService) DueSchedules(ctx context.Context, today time.Time) ([]models.ReportSchedule, error) {
	args := m.Called(ctx, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReportSchedule), args.Error(1)
}

type stubLimiter struct {
	allow bool
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) bool {
	s.keys = append(s.keys, key)
	return s.allow
}
