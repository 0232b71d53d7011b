package services

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/database"
	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/report_data.json
var reportDataSchemaJSON []byte

var (
	reportSchemaOnce sync.Once
	reportSchema     *gojsonschema.Schema
	reportSchemaErr  error
)

const (
	reportSummaryQuery = `SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'pending'),
               COUNT(*) FILTER (WHERE status = 'in_progress'),
               COUNT(*) FILTER (WHERE status = 'completed'),
               COUNT(DISTINCT type),
               AVG(TRUNC(EXTRACT(EPOCH FROM (updated_at - created_at)) / 3600)) FILTER (WHERE status = 'completed')
          FROM feedback
         WHERE created_at >= $1 AND created_at < $2`

	reportBreakdownQuery = `SELECT type, COUNT(*), COUNT(*) FILTER (WHERE status = 'completed')
          FROM feedback
         WHERE created_at >= $1 AND created_at < $2
         GROUP BY type
         ORDER BY type`

	// %s is a to_char pattern
	reportTrendQuery = `SELECT to_char(created_at AT TIME ZONE $3, '%s') AS bucket,
               COUNT(*), COUNT(*) FILTER (WHERE status = 'completed')
          FROM feedback
         WHERE created_at >= $1 AND created_at < $2
         GROUP BY bucket`

	reportSelect = `SELECT r.id, r.type, to_char(r.date, 'YYYY-MM-DD'), r.data, r.created_by, a.name, r.created_at
          FROM reports r
          LEFT JOIN admins a ON a.id = r.created_by`

	dayBucketFormat  = "YYYY-MM-DD"
	weekBucketFormat = `IYYY-"W"IW`
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ReportService aggregates feedback into period reports and stores them
type ReportService struct {
	db      *sql.DB
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.AppMetrics
}

var _ serviceinterfaces.ReportServiceInterface = (*ReportService)(nil)

// NewReportService creates a new ReportService instance
func NewReportService(db *sql.DB, cfg *config.Config, logger *observability.Logger) *ReportService {
	if db == nil {
		panic("NewReportService: db is nil")
	}
	if logger == nil {
		panic("NewReportService: logger is nil")
	}
	return &ReportService{db: db, cfg: cfg, logger: logger, metrics: observability.NewAppMetrics()}
}

func (s *ReportService) location() *time.Location {
	if s.cfg == nil {
		loc, _ := contextutils.LoadLocationOrUTC(config.DefaultTimezone)
		return loc
	}
	return s.cfg.Location()
}

// Compute aggregates the feedback of the period of reportType around anchor.
// Nothing is stored.
func (s *ReportService) Compute(ctx context.Context, reportType models.ReportType, anchor time.Time) (result0 *models.ReportData, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "compute_report",
		observability.AttributeReportType(string(reportType)),
		observability.AttributeReportDate(anchor.In(s.location()).Format(models.DateLayout)),
	)
	defer observability.FinishSpan(span, &err)

	return s.compute(ctx, s.db, reportType, anchor)
}

func (s *ReportService) compute(ctx context.Context, q queryer, reportType models.ReportType, anchor time.Time) (*models.ReportData, error) {
	loc := s.location()
	period, err := PeriodFor(reportType, anchor.In(loc))
	if err != nil {
		return nil, err
	}
	from, until := period.Bounds()

	data := &models.ReportData{
		PeriodStart:   period.First.Format(models.DateLayout),
		PeriodEnd:     period.Last.Format(models.DateLayout),
		TypeBreakdown: []models.TypeBreakdown{},
	}

	var avg sql.NullFloat64
	err = q.QueryRowContext(ctx, reportSummaryQuery, from, until).Scan(
		&data.TotalFeedback, &data.PendingCount, &data.InProgressCount,
		&data.CompletedCount, &data.TypeCount, &avg,
	)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to compute report summary: %v", err)
	}
	data.ResolvedCount = data.CompletedCount
	if avg.Valid {
		hours := math.Round(avg.Float64*10) / 10
		data.ResponseTime.AvgResponseTime = &hours
	}

	rows, err := q.QueryContext(ctx, reportBreakdownQuery, from, until)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to compute type breakdown: %v", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var b models.TypeBreakdown
		if err := rows.Scan(&b.Type, &b.Count, &b.ResolvedCount); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan type breakdown: %v", err)
		}
		data.TypeBreakdown = append(data.TypeBreakdown, b)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to read type breakdown: %v", err)
	}

	switch reportType {
	case models.ReportWeekly:
		buckets, err := trendBuckets(ctx, q, dayBucketFormat, from, until, loc.String())
		if err != nil {
			return nil, err
		}
		for _, day := range period.Days() {
			label := day.Format(models.DateLayout)
			c := buckets[label]
			data.DailyTrends = append(data.DailyTrends, models.DailyTrend{Date: label, TotalFeedback: c.total, ResolvedCount: c.resolved})
		}
	case models.ReportMonthly:
		buckets, err := trendBuckets(ctx, q, weekBucketFormat, from, until, loc.String())
		if err != nil {
			return nil, err
		}
		for _, week := range period.ISOWeeks() {
			c := buckets[week.Label]
			data.WeeklyTrends = append(data.WeeklyTrends, models.WeeklyTrend{Week: week.Label, TotalFeedback: c.total, ResolvedCount: c.resolved})
		}
	}

	return data, nil
}

type bucketCount struct {
	total    int
	resolved int
}

// trendBuckets counts feedback per local-time bucket label. Missing buckets had no feedback.
func trendBuckets(ctx context.Context, q queryer, pattern string, from, until time.Time, tz string) (map[string]bucketCount, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(reportTrendQuery, pattern), from, until, tz)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to compute trends: %v", err)
	}
	defer func() { _ = rows.Close() }()

	buckets := make(map[string]bucketCount)
	for rows.Next() {
		var label string
		var c bucketCount
		if err := rows.Scan(&label, &c.total, &c.resolved); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan trend: %v", err)
		}
		buckets[label] = c
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to read trends: %v", err)
	}
	return buckets, nil
}

func reportDataSchema() (*gojsonschema.Schema, error) {
	reportSchemaOnce.Do(func() {
		reportSchema, reportSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(reportDataSchemaJSON))
	})
	return reportSchema, reportSchemaErr
}

// ValidateReportData checks a payload against the stored report schema
func ValidateReportData(data *models.ReportData) error {
	schema, err := reportDataSchema()
	if err != nil {
		return contextutils.WrapError(err, "failed to load report schema")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal report data")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return contextutils.WrapError(err, "report schema validation error")
	}
	if !result.Valid() {
		var validationErrors []string
		for _, validationErr := range result.Errors() {
			validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", validationErr.Field(), validationErr.Description()))
		}
		return contextutils.WrapErrorf(contextutils.ErrReportGeneration, "report data failed schema validation: %s", strings.Join(validationErrors, "; "))
	}
	return nil
}

// Generate computes the report of reportType for date and stores it, replacing any
// previous snapshot with the same key.
func (s *ReportService) Generate(ctx context.Context, reportType models.ReportType, date string, createdBy int) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "generate_report",
		observability.AttributeReportType(string(reportType)),
		observability.AttributeReportDate(date),
		observability.AttributeAdminID(createdBy),
	)
	defer observability.FinishSpan(span, &err)

	report, err := s.generate(ctx, s.db, reportType, date, createdBy)
	if err != nil {
		return nil, err
	}

	s.metrics.ReportGenerated(ctx, string(reportType))
	s.logger.Info(ctx, "Report generated", map[string]interface{}{
		"report_id":   report.ID,
		"report_type": string(reportType),
		"date":        report.Date,
	})
	return report, nil
}

func (s *ReportService) generate(ctx context.Context, q queryer, reportType models.ReportType, date string, createdBy int) (*models.Report, error) {
	if _, err := models.ParseReportType(string(reportType)); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown report type %q", reportType)
	}
	anchor, err := contextutils.ParseDateInLocation(date, s.location())
	if err != nil {
		return nil, err
	}

	data, err := s.compute(ctx, q, reportType, anchor)
	if err != nil {
		return nil, err
	}
	if err := ValidateReportData(data); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to marshal report data")
	}

	report := &models.Report{
		Type:      reportType,
		Date:      anchor.Format(models.DateLayout),
		Data:      *data,
		CreatedBy: adminRef(createdBy),
	}
	query := `INSERT INTO reports (type, date, data, created_by)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT (type, date) DO UPDATE
                 SET data = EXCLUDED.data, created_by = EXCLUDED.created_by, created_at = NOW()
              RETURNING id, created_at, (SELECT name FROM admins WHERE id = $4)`
	err = q.QueryRowContext(ctx, query, string(reportType), report.Date, payload, report.CreatedBy).
		Scan(&report.ID, &report.CreatedAt, &report.CreatedByName)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to store report: %v", err)
	}
	return report, nil
}

func scanReport(row rowScanner) (*models.Report, error) {
	var r models.Report
	var payload []byte
	if err := row.Scan(&r.ID, &r.Type, &r.Date, &payload, &r.CreatedBy, &r.CreatedByName, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &r.Data); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrReportGeneration, "failed to decode report %d: %v", r.ID, err)
	}
	return &r, nil
}

// GetLatest returns the stored report for (reportType, date)
func (s *ReportService) GetLatest(ctx context.Context, reportType models.ReportType, date string) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "get_latest_report",
		observability.AttributeReportType(string(reportType)),
		observability.AttributeReportDate(date),
	)
	defer observability.FinishSpan(span, &err)

	return s.latest(ctx, s.db, reportType, date)
}

func (s *ReportService) latest(ctx context.Context, q queryer, reportType models.ReportType, date string) (*models.Report, error) {
	anchor, err := contextutils.ParseDateInLocation(date, s.location())
	if err != nil {
		return nil, err
	}
	query := reportSelect + `
         WHERE r.type = $1 AND r.date = $2
         ORDER BY r.created_at DESC, r.id DESC
         LIMIT 1`
	report, err := scanReport(q.QueryRowContext(ctx, query, string(reportType), anchor.Format(models.DateLayout)))
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "no %s report for %s", reportType, date)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load report")
	}
	return report, nil
}

// EnsureReport returns the stored report for (reportType, date), generating it when absent.
// Lookup and generation share one transaction. generated reports whether a new row was written.
func (s *ReportService) EnsureReport(ctx context.Context, reportType models.ReportType, date string, createdBy int) (result0 *models.Report, generated bool, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "ensure_report",
		observability.AttributeReportType(string(reportType)),
		observability.AttributeReportDate(date),
	)
	defer observability.FinishSpan(span, &err)

	var report *models.Report
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		existing, err := s.latest(ctx, tx, reportType, date)
		if err == nil {
			report = existing
			return nil
		}
		if !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return err
		}
		report, err = s.generate(ctx, tx, reportType, date, createdBy)
		if err != nil {
			return err
		}
		generated = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if generated {
		s.metrics.ReportGenerated(ctx, string(reportType))
	}
	return report, generated, nil
}

// ListRecent returns the most recently written reports
func (s *ReportService) ListRecent(ctx context.Context, limit int) (result0 []models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "list_recent_reports")
	defer observability.FinishSpan(span, &err)

	if limit <= 0 {
		limit = config.RecentReportsLimit
	}
	rows, err := s.db.QueryContext(ctx, reportSelect+`
         ORDER BY r.created_at DESC, r.id DESC
         LIMIT $1`, limit)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list reports: %v", err)
	}
	defer func() { _ = rows.Close() }()

	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan report")
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to read reports: %v", err)
	}
	return reports, nil
}
