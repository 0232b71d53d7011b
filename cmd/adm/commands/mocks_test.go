package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/models"
	"corpsite/internal/observability"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testLogger = observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

// execute runs cmd with args and returns its stdout
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type mockReportService struct{ mock.Mock }

func (m *mockReportService) Compute(ctx context.Context, reportType models.ReportType, anchor time.Time) (*models.ReportData, error) {
	args := m.Called(ctx, reportType, anchor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportData), args.Error(1)
}

func (m *mockReportService) Generate(ctx context.Context, reportType models.ReportType, date string, createdBy int) (*models.Report, error) {
	args := m.Called(ctx, reportType, date, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *mockReportService) GetLatest(ctx context.Context, reportType models.ReportType, date string) (*models.Report, error) {
	args := m.Called(ctx, reportType, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *mockReportService) EnsureReport(ctx context.Context, reportType models.ReportType, date string, createdBy int) (*models.Report, bool, error) {
	args := m.Called(ctx, reportType, date, createdBy)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.Report), args.Bool(1), args.Error(2)
}

func (m *mockReportService) ListRecent(ctx context.Context, limit int) ([]models.Report, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Report), args.Error(1)
}

type mockRunner struct{ mock.Mock }

func (m *mockRunner) RunDue(ctx context.Context, now time.Time) (models.RunResult, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(models.RunResult), args.Error(1)
}

type mockScheduleService struct{ mock.Mock }

func (m *mockScheduleService) ListSchedules(ctx context.Context, activeOnly bool) ([]models.ReportSchedule, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]models.ReportSchedule), args.Error(1)
}

func (m *mockScheduleService) CreateSchedule(ctx context.Context, reportType models.ReportType, email string, createdBy int) (*models.ReportSchedule, error) {
	args := m.Called(ctx, reportType, email, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportSchedule), args.Error(1)
}

func (m *mockScheduleService) ToggleSchedule(ctx context.Context, id int) (*models.ReportSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportSchedule), args.Error(1)
}

func (m *mockScheduleService) DeleteSchedule(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockScheduleService) DueSchedules(ctx context.Context, today time.Time) ([]models.ReportSchedule, error) {
	args := m.Called(ctx, today)
	return args.Get(0).([]models.ReportSchedule), args.Error(1)
}

type mockAdminService struct{ mock.Mock }

func (m *mockAdminService) Authenticate(ctx context.Context, email, password, ipAddress, userAgent string) (*models.Admin, error) {
	args := m.Called(ctx, email, password, ipAddress, userAgent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *mockAdminService) GetAdminByID(ctx context.Context, id int) (*models.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *mockAdminService) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Admin), args.Error(1)
}

func (m *mockAdminService) ListRoles(ctx context.Context) ([]models.AdminRole, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.AdminRole), args.Error(1)
}

func (m *mockAdminService) CreateAdmin(ctx context.Context, name, email, password, roleName string) (*models.Admin, error) {
	args := m.Called(ctx, name, email, password, roleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *mockAdminService) ToggleStatus(ctx context.Context, id, actingAdminID int) (*models.Admin, error) {
	args := m.Called(ctx, id, actingAdminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *mockAdminService) GetLoginHistory(ctx context.Context, adminID, limit int) ([]models.LoginHistory, error) {
	args := m.Called(ctx, adminID, limit)
	return args.Get(0).([]models.LoginHistory), args.Error(1)
}

func (m *mockAdminService) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	return m.Called(ctx, email, password).Error(0)
}

type mockMigrator struct{ mock.Mock }

func (m *mockMigrator) RunMigrations(ctx context.Context, databaseURL string) error {
	return m.Called(ctx, databaseURL).Error(0)
}

func (m *mockMigrator) MigrationStatus(ctx context.Context, databaseURL string) (uint, bool, error) {
	args := m.Called(ctx, databaseURL)
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}
