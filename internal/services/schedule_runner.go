package services

import (
	"context"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	"corpsite/internal/services/mailer"
	contextutils "corpsite/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// UnattendedGeneratorName signs report mails whose schedule has no known creator
const UnattendedGeneratorName = "システム"

// ScheduleRunner mails the reports of every schedule due on a given day
type ScheduleRunner struct {
	schedules serviceinterfaces.ScheduleServiceInterface
	reports   serviceinterfaces.ReportServiceInterface
	mailer    mailer.Mailer
	locker    Locker
	cfg       *config.Config
	logger    *observability.Logger
	metrics   *observability.AppMetrics
}

var _ serviceinterfaces.ScheduleRunnerInterface = (*ScheduleRunner)(nil)

// NewScheduleRunner creates a runner. locker may be nil when only one runner can exist.
func NewScheduleRunner(
	schedules serviceinterfaces.ScheduleServiceInterface,
	reports serviceinterfaces.ReportServiceInterface,
	m mailer.Mailer,
	locker Locker,
	cfg *config.Config,
	logger *observability.Logger,
) *ScheduleRunner {
	if schedules == nil || reports == nil {
		panic("NewScheduleRunner: schedule and report services are required")
	}
	if logger == nil {
		panic("NewScheduleRunner: logger is nil")
	}
	return &ScheduleRunner{
		schedules: schedules,
		reports:   reports,
		mailer:    m,
		locker:    locker,
		cfg:       cfg,
		logger:    logger,
		metrics:   observability.NewAppMetrics(),
	}
}

// RunDue processes every schedule due on the local day of now. A failing schedule is
// logged and counted and the rest still run. Run-level failures are logged and end
// the run with a nil error and an Aborted result, so callers can retry.
func (r *ScheduleRunner) RunDue(ctx context.Context, now time.Time) (result0 models.RunResult, err error) {
	today := contextutils.StartOfDay(now.In(r.cfg.Location()))
	ctx, span := observability.TraceWorkerFunction(ctx, "run_due_schedules",
		attribute.String("runner.today", today.Format(models.DateLayout)),
	)
	defer observability.FinishSpan(span, &err)

	var result models.RunResult

	if r.locker != nil {
		release, acquired, lockErr := r.locker.Acquire(ctx, config.RunnerLockKey, r.lockTTL())
		if lockErr != nil {
			r.logger.Error(ctx, "Failed to acquire report runner lock", lockErr)
			result.Aborted = true
			return result, nil
		}
		if !acquired {
			r.logger.Info(ctx, "Report runner already active elsewhere, skipping run")
			return result, nil
		}
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				r.logger.Warn(ctx, "Failed to release report runner lock", map[string]interface{}{"error": relErr.Error()})
			}
		}()
	}

	due, listErr := r.schedules.DueSchedules(ctx, today)
	if listErr != nil {
		r.logger.Error(ctx, "Failed to load due report schedules", listErr, map[string]interface{}{
			"today": today.Format(models.DateLayout),
		})
		result.Aborted = true
		return result, nil
	}
	result.Due = len(due)

	for _, sch := range due {
		if sendErr := r.runSchedule(ctx, sch, today); sendErr != nil {
			result.Failed++
			r.metrics.ReportEmail(ctx, string(sch.Type), false)
			r.logger.Error(ctx, "Scheduled report failed", sendErr, map[string]interface{}{
				"schedule_id": sch.ID,
				"type":        string(sch.Type),
				"email":       contextutils.MaskEmail(sch.Email),
			})
			continue
		}
		result.Sent++
		r.metrics.ReportEmail(ctx, string(sch.Type), true)
		r.logger.Info(ctx, "Scheduled report sent", map[string]interface{}{
			"schedule_id": sch.ID,
			"type":        string(sch.Type),
			"email":       contextutils.MaskEmail(sch.Email),
		})
	}

	r.logger.Info(ctx, "Report schedule run finished", map[string]interface{}{
		"today":  today.Format(models.DateLayout),
		"due":    result.Due,
		"sent":   result.Sent,
		"failed": result.Failed,
	})
	return result, nil
}

func (r *ScheduleRunner) runSchedule(ctx context.Context, sch models.ReportSchedule, today time.Time) (err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "run_schedule",
		observability.AttributeScheduleID(sch.ID),
		observability.AttributeReportType(string(sch.Type)),
	)
	defer observability.FinishSpan(span, &err)

	if r.mailer == nil || !r.mailer.IsEnabled() {
		return contextutils.WrapErrorf(contextutils.ErrEmailDelivery, "email delivery is disabled")
	}

	anchor, err := ScheduleAnchor(sch.Type, today)
	if err != nil {
		return err
	}
	period, err := PeriodFor(sch.Type, anchor)
	if err != nil {
		return err
	}
	date := anchor.Format(models.DateLayout)

	report, _, err := r.reports.EnsureReport(ctx, sch.Type, date, int(sch.CreatedBy.Int64))
	if err != nil {
		return contextutils.WrapError(err, "failed to prepare report")
	}

	generatedBy := UnattendedGeneratorName
	switch {
	case sch.CreatedByName.Valid && sch.CreatedByName.String != "":
		generatedBy = sch.CreatedByName.String
	case report.CreatedByName.Valid && report.CreatedByName.String != "":
		generatedBy = report.CreatedByName.String
	}

	// The subject names the first day covered, e.g. the Tuesday a weekly mail starts on
	subject := ReportEmailSubject(r.cfg.Server.SiteName, sch.Type, period.First.Format(models.DateLayout))
	if err := r.mailer.SendEmail(ctx, sch.Email, subject, mailer.TemplateScheduledReport, ReportEmailData(report, generatedBy)); err != nil {
		return contextutils.WrapError(err, "failed to send report email")
	}
	return nil
}

func (r *ScheduleRunner) lockTTL() time.Duration {
	if r.cfg.Reports.LockTTL > 0 {
		return r.cfg.Reports.LockTTL
	}
	return config.ReportRunLockTTL
}
