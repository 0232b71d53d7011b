package serviceinterfaces

import (
	"context"
	"time"

	"corpsite/internal/models"
)

// ReportServiceInterface computes and stores period reports.
type ReportServiceInterface interface {
	Compute(ctx context.Context, reportType models.ReportType, anchor time.Time) (*models.ReportData, error)
	Generate(ctx context.Context, reportType models.ReportType, date string, createdBy int) (*models.Report, error)
	GetLatest(ctx context.Context, reportType models.ReportType, date string) (*models.Report, error)
	EnsureReport(ctx context.Context, reportType models.ReportType, date string, createdBy int) (*models.Report, bool, error)
	ListRecent(ctx context.Context, limit int) ([]models.Report, error)
}

// ScheduleServiceInterface manages report mail schedules.
type ScheduleServiceInterface interface {
	ListSchedules(ctx context.Context, activeOnly bool) ([]models.ReportSchedule, error)
	CreateSchedule(ctx context.Context, reportType models.ReportType, email string, createdBy int) (*models.ReportSchedule, error)
	ToggleSchedule(ctx context.Context, id int) (*models.ReportSchedule, error)
	DeleteSchedule(ctx context.Context, id int) error
	DueSchedules(ctx context.Context, today time.Time) ([]models.ReportSchedule, error)
}

// ScheduleRunnerInterface mails every schedule due on a given day.
type ScheduleRunnerInterface interface {
	RunDue(ctx context.Context, now time.Time) (models.RunResult, error)
}
