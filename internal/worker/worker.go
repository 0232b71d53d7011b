// Package worker contains the background loop that mails scheduled reports.
// It wakes on a fixed interval, and once per local calendar day (from the
// configured run hour) asks the schedule runner to process every due schedule.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxHistory      = 30
	maxActivityLogs = 100
)

// Run outcomes recorded in RunRecord.Status
const (
	RunSuccess = "Success"
	RunPartial = "Partial"
	RunFailure = "Failure"
)

var errRunAborted = errors.New("run aborted before any schedule was sent")

// Status represents the current state of the worker
type Status struct {
	IsRunning       bool      `json:"is_running"`
	CurrentActivity string    `json:"current_activity,omitempty"`
	LastRunStart    time.Time `json:"last_run_start"`
	LastRunFinish   time.Time `json:"last_run_finish"`
	LastRunError    string    `json:"last_run_error,omitempty"`
	// LastRunDay is the local date (YYYY-MM-DD) of the last completed run
	LastRunDay string `json:"last_run_day,omitempty"`
}

// RunRecord tracks individual worker runs
type RunRecord struct {
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Duration  time.Duration    `json:"duration"`
	Status    string           `json:"status"`
	Manual    bool             `json:"manual"`
	Result    models.RunResult `json:"result"`
	Details   string           `json:"details,omitempty"`
}

// ActivityLog represents a single activity log entry
type ActivityLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // INFO, WARN, ERROR
	Message   string    `json:"message"`
}

// Worker drives the schedule runner
type Worker struct {
	runner        serviceinterfaces.ScheduleRunnerInterface
	instance      string
	status        Status
	history       []RunRecord
	activityLogs  []ActivityLog
	mu            sync.RWMutex
	manualTrigger chan bool
	cfg           *config.Config
	logger        *observability.Logger

	// Time function for testing - defaults to time.Now
	timeNow func() time.Time
}

// NewWorker creates a new Worker instance
func NewWorker(runner serviceinterfaces.ScheduleRunnerInterface, instance string, cfg *config.Config, logger *observability.Logger) *Worker {
	if instance == "" {
		instance = "default"
	}
	return &Worker{
		runner:        runner,
		instance:      instance,
		status:        Status{CurrentActivity: "Initialized"},
		history:       make([]RunRecord, 0, maxHistory),
		activityLogs:  make([]ActivityLog, 0, maxActivityLogs),
		manualTrigger: make(chan bool, 1),
		cfg:           cfg,
		logger:        logger.With(map[string]interface{}{"worker": instance}),
		timeNow:       time.Now,
	}
}

// Start runs the worker loop until ctx is cancelled. The first check happens
// immediately so a restart later in the day still sends that day's reports.
func (w *Worker) Start(ctx context.Context) {
	interval := w.cfg.Reports.WorkerInterval
	if interval <= 0 {
		interval = config.WorkerCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.mu.Lock()
	w.status.IsRunning = true
	w.mu.Unlock()

	w.logger.Info(ctx, "Worker started", map[string]interface{}{
		"instance": w.instance,
		"interval": interval.String(),
		"run_hour": w.cfg.Reports.RunHour,
	})
	w.logActivity("INFO", fmt.Sprintf("Worker %s started", w.instance))

	w.tick(ctx, false)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Worker shutting down", map[string]interface{}{
				"instance": w.instance,
			})
			w.logActivity("INFO", fmt.Sprintf("Worker %s shutting down", w.instance))
			w.mu.Lock()
			w.status.IsRunning = false
			w.mu.Unlock()
			return

		case <-ticker.C:
			w.tick(ctx, false)

		case <-w.manualTrigger:
			w.logger.Info(ctx, "Worker triggered manually", map[string]interface{}{
				"instance": w.instance,
			})
			w.logActivity("INFO", fmt.Sprintf("Worker %s triggered manually", w.instance))
			w.tick(ctx, true)
		}
	}
}

// tick runs the schedule runner when the day has not been handled yet and the
// run hour has been reached. A manual tick skips both checks.
func (w *Worker) tick(ctx context.Context, manual bool) {
	now := w.timeNow().In(w.cfg.Location())
	day := now.Format(models.DateLayout)

	if !manual {
		w.mu.RLock()
		done := w.status.LastRunDay == day
		w.mu.RUnlock()
		if done {
			w.updateActivity("Waiting for next day")
			return
		}
		if now.Hour() < w.cfg.Reports.RunHour {
			w.updateActivity(fmt.Sprintf("Waiting for %02d:00", w.cfg.Reports.RunHour))
			return
		}
	}

	w.run(ctx, now, manual)
}

// run executes a single runner pass and records it
func (w *Worker) run(ctx context.Context, now time.Time, manual bool) {
	ctx, span := observability.TraceWorkerFunction(ctx, "run",
		attribute.String("worker.instance", w.instance),
		attribute.Bool("worker.manual", manual),
	)
	defer observability.FinishSpan(span, nil)

	start := w.timeNow()
	w.mu.Lock()
	w.status.LastRunStart = start
	w.status.CurrentActivity = "Sending scheduled reports"
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, config.ReportRunTimeout)
	defer cancel()
	result, err := w.runner.RunDue(ctx, now)
	if err == nil && result.Aborted {
		err = errRunAborted
	}

	finish := w.timeNow()
	record := RunRecord{
		StartTime: start,
		EndTime:   finish,
		Duration:  finish.Sub(start),
		Manual:    manual,
		Result:    result,
		Details:   fmt.Sprintf("due=%d sent=%d failed=%d", result.Due, result.Sent, result.Failed),
	}

	w.mu.Lock()
	w.status.LastRunFinish = finish
	switch {
	case err != nil:
		// The day stays open so the next tick retries
		record.Status = RunFailure
		record.Details = err.Error()
		w.status.LastRunError = err.Error()
	case result.Failed > 0:
		record.Status = RunPartial
		w.status.LastRunError = ""
		w.status.LastRunDay = now.Format(models.DateLayout)
	default:
		record.Status = RunSuccess
		w.status.LastRunError = ""
		w.status.LastRunDay = now.Format(models.DateLayout)
	}
	w.status.CurrentActivity = "Idle"
	w.history = append(w.history, record)
	if len(w.history) > maxHistory {
		w.history = w.history[len(w.history)-maxHistory:]
	}
	w.mu.Unlock()

	span.SetAttributes(
		attribute.Int("runner.due", result.Due),
		attribute.Int("runner.sent", result.Sent),
		attribute.Int("runner.failed", result.Failed),
	)
	if err != nil {
		w.logger.Error(ctx, "Worker run failed", err, map[string]interface{}{
			"instance": w.instance,
		})
		w.logActivity("ERROR", "Run failed: "+err.Error())
		return
	}
	w.logActivity("INFO", "Run finished: "+record.Details)
}

func (w *Worker) updateActivity(activity string) {
	w.mu.Lock()
	w.status.CurrentActivity = activity
	w.mu.Unlock()
}

// logActivity appends to the in-memory activity buffer, dropping the oldest entry when full
func (w *Worker) logActivity(level, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.activityLogs) >= maxActivityLogs {
		w.activityLogs = w.activityLogs[1:]
	}
	w.activityLogs = append(w.activityLogs, ActivityLog{
		Timestamp: w.timeNow(),
		Level:     level,
		Message:   message,
	})
}

// GetStatus returns the current worker status
func (w *Worker) GetStatus() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// GetHistory returns the worker's run history
func (w *Worker) GetHistory() []RunRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	history := make([]RunRecord, len(w.history))
	copy(history, w.history)
	return history
}

// GetActivityLogs returns recent activity logs
func (w *Worker) GetActivityLogs() []ActivityLog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	logs := make([]ActivityLog, len(w.activityLogs))
	copy(logs, w.activityLogs)
	return logs
}

// GetInstance returns the worker instance name
func (w *Worker) GetInstance() string {
	return w.instance
}

// TriggerManualRun asks the loop for an immediate run that ignores the day guard
func (w *Worker) TriggerManualRun() {
	ctx := context.Background()
	select {
	case w.manualTrigger <- true:
		w.logger.Info(ctx, "Manual trigger sent to worker", map[string]interface{}{
			"instance": w.instance,
		})
	default:
		w.logger.Info(ctx, "Manual trigger already pending for worker", map[string]interface{}{
			"instance": w.instance,
		})
	}
}

// Shutdown clears in-memory state once the loop has stopped
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.activityLogs = make([]ActivityLog, 0)
	w.logger.Info(ctx, "Worker shutdown completed", map[string]interface{}{
		"instance": w.instance,
	})
	return nil
}
