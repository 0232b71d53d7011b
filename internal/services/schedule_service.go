package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/lib/pq"
)

const scheduleSelect = `SELECT s.id, s.type, s.email, s.is_active, s.created_by, a.name, s.created_at
          FROM report_schedules s
          LEFT JOIN admins a ON a.id = s.created_by`

// scheduleReturning reloads a written row together with its creator's name
const scheduleReturning = `RETURNING id, type, email, is_active, created_by,
                (SELECT name FROM admins WHERE id = report_schedules.created_by), created_at`

// ScheduleService manages report mail schedules
type ScheduleService struct {
	db     *sql.DB
	logger *observability.Logger
}

var _ serviceinterfaces.ScheduleServiceInterface = (*ScheduleService)(nil)

// NewScheduleService creates a new ScheduleService instance
func NewScheduleService(db *sql.DB, logger *observability.Logger) *ScheduleService {
	if db == nil {
		panic("NewScheduleService: db is nil")
	}
	if logger == nil {
		panic("NewScheduleService: logger is nil")
	}
	return &ScheduleService{db: db, logger: logger}
}

func scanSchedule(row rowScanner) (*models.ReportSchedule, error) {
	var s models.ReportSchedule
	if err := row.Scan(&s.ID, &s.Type, &s.Email, &s.IsActive, &s.CreatedBy, &s.CreatedByName, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *ScheduleService) querySchedules(ctx context.Context, query string, args ...interface{}) ([]models.ReportSchedule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list schedules: %v", err)
	}
	defer func() { _ = rows.Close() }()

	schedules := []models.ReportSchedule{}
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan schedule: %v", err)
		}
		schedules = append(schedules, *sch)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to read schedules: %v", err)
	}
	return schedules, nil
}

// ListSchedules returns schedules ordered by type then id
func (s *ScheduleService) ListSchedules(ctx context.Context, activeOnly bool) (result0 []models.ReportSchedule, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "list_schedules")
	defer observability.FinishSpan(span, &err)

	query := scheduleSelect
	if activeOnly {
		query += " WHERE s.is_active"
	}
	query += " ORDER BY s.type, s.id"
	return s.querySchedules(ctx, query)
}

// CreateSchedule stores a new active schedule
func (s *ScheduleService) CreateSchedule(ctx context.Context, reportType models.ReportType, email string, createdBy int) (result0 *models.ReportSchedule, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "create_schedule",
		observability.AttributeReportType(string(reportType)),
		observability.AttributeAdminID(createdBy),
	)
	defer observability.FinishSpan(span, &err)

	if _, err := models.ParseReportType(string(reportType)); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown report type %q", reportType)
	}
	email = strings.TrimSpace(email)
	if !contextutils.IsValidEmail(email) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid schedule email %q", email)
	}

	query := `INSERT INTO report_schedules (type, email, created_by) VALUES ($1, $2, $3) ` + scheduleReturning
	sch, err := scanSchedule(s.db.QueryRowContext(ctx, query, string(reportType), email, adminRef(createdBy)))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to create schedule: %v", err)
	}

	s.logger.Info(ctx, "Report schedule created", map[string]interface{}{
		"schedule_id": sch.ID,
		"type":        string(reportType),
		"email":       contextutils.MaskEmail(email),
	})
	return sch, nil
}

// ToggleSchedule flips the active flag of a schedule
func (s *ScheduleService) ToggleSchedule(ctx context.Context, id int) (result0 *models.ReportSchedule, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "toggle_schedule", observability.AttributeScheduleID(id))
	defer observability.FinishSpan(span, &err)

	query := `UPDATE report_schedules SET is_active = NOT is_active WHERE id = $1 ` + scheduleReturning
	sch, err := scanSchedule(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "schedule %d not found", id)
	}
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to toggle schedule: %v", err)
	}
	return sch, nil
}

// DeleteSchedule removes a schedule
func (s *ScheduleService) DeleteSchedule(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceReportFunction(ctx, "delete_schedule", observability.AttributeScheduleID(id))
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM report_schedules WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to delete schedule: %v", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "schedule %d not found", id)
	}
	return nil
}

// DueSchedules returns the active schedules that fire on today
func (s *ScheduleService) DueSchedules(ctx context.Context, today time.Time) (result0 []models.ReportSchedule, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "due_schedules",
		observability.AttributeReportDate(today.Format(models.DateLayout)),
	)
	defer observability.FinishSpan(span, &err)

	var due []string
	for _, t := range models.AllReportTypes {
		if IsScheduleDue(t, today) {
			due = append(due, string(t))
		}
	}
	if len(due) == 0 {
		return []models.ReportSchedule{}, nil
	}

	return s.querySchedules(ctx, scheduleSelect+`
         WHERE s.is_active AND s.type = ANY($1)
         ORDER BY s.type, s.id`, pq.Array(due))
}
