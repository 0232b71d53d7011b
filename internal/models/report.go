package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType is the aggregation period of a report
type ReportType string

// Report types
const (
	ReportDaily   ReportType = "daily"
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
)

// AllReportTypes lists the report types in display order
var AllReportTypes = []ReportType{ReportDaily, ReportWeekly, ReportMonthly}

// ParseReportType validates a raw report type
func ParseReportType(raw string) (ReportType, error) {
	switch t := ReportType(raw); t {
	case ReportDaily, ReportWeekly, ReportMonthly:
		return t, nil
	}
	return "", fmt.Errorf("unknown report type %q", raw)
}

// Label returns the Japanese period name used in mail subjects
func (t ReportType) Label() string {
	switch t {
	case ReportDaily:
		return "日次"
	case ReportWeekly:
		return "週次"
	case ReportMonthly:
		return "月次"
	}
	return string(t)
}

// TypeBreakdown is the per-feedback-type slice of a report
type TypeBreakdown struct {
	Type          string `json:"type"`
	Count         int    `json:"count"`
	ResolvedCount int    `json:"resolved_count"`
}

// DailyTrend is one day of a weekly report
type DailyTrend struct {
	Date          string `json:"date"`
	TotalFeedback int    `json:"total_feedback"`
	ResolvedCount int    `json:"resolved_count"`
}

// WeeklyTrend is one ISO week of a monthly report, labelled YYYY-Www
type WeeklyTrend struct {
	Week          string `json:"week"`
	TotalFeedback int    `json:"total_feedback"`
	ResolvedCount int    `json:"resolved_count"`
}

// ResponseTime holds the mean whole hours from creation to last update of completed items.
// AvgResponseTime is nil when the period has no completed items.
type ResponseTime struct {
	AvgResponseTime *float64 `json:"avg_response_time"`
}

// ReportData is the persisted JSON payload of a report
type ReportData struct {
	PeriodStart     string          `json:"period_start"`
	PeriodEnd       string          `json:"period_end"`
	TotalFeedback   int             `json:"total_feedback"`
	PendingCount    int             `json:"pending_count"`
	InProgressCount int             `json:"in_progress_count"`
	CompletedCount  int             `json:"completed_count"`
	TypeCount       int             `json:"type_count"`
	ResolvedCount   int             `json:"resolved_count"`
	TypeBreakdown   []TypeBreakdown `json:"type_breakdown"`
	DailyTrends     []DailyTrend    `json:"daily_trends,omitempty"`
	WeeklyTrends    []WeeklyTrend   `json:"weekly_trends,omitempty"`
	ResponseTime    ResponseTime    `json:"response_time"`
}

// Report is a stored aggregation snapshot keyed by (Type, Date)
type Report struct {
	ID            int
	Type          ReportType
	Date          string
	Data          ReportData
	CreatedBy     sql.NullInt64
	CreatedByName sql.NullString
	CreatedAt     time.Time
}

// MarshalJSON renders the creator as JSON null when the report was generated unattended
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID            int        `json:"id"`
		Type          ReportType `json:"type"`
		Date          string     `json:"date"`
		Data          ReportData `json:"data"`
		CreatedBy     *int64     `json:"created_by"`
		CreatedByName *string    `json:"created_by_name"`
		CreatedAt     time.Time  `json:"created_at"`
	}{
		ID:            r.ID,
		Type:          r.Type,
		Date:          r.Date,
		Data:          r.Data,
		CreatedBy:     nullInt64ToPointer(r.CreatedBy),
		CreatedByName: nullStringToPointer(r.CreatedByName),
		CreatedAt:     r.CreatedAt,
	})
}

// ReportSchedule is a standing instruction to mail a report type to an address
type ReportSchedule struct {
	ID            int
	Type          ReportType
	Email         string
	IsActive      bool
	CreatedBy     sql.NullInt64
	CreatedByName sql.NullString
	CreatedAt     time.Time
}

// MarshalJSON renders the creator as JSON null when unknown
func (s ReportSchedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID            int        `json:"id"`
		Type          ReportType `json:"type"`
		Email         string     `json:"email"`
		IsActive      bool       `json:"is_active"`
		CreatedBy     *int64     `json:"created_by"`
		CreatedByName *string    `json:"created_by_name"`
		CreatedAt     time.Time  `json:"created_at"`
	}{
		ID:            s.ID,
		Type:          s.Type,
		Email:         s.Email,
		IsActive:      s.IsActive,
		CreatedBy:     nullInt64ToPointer(s.CreatedBy),
		CreatedByName: nullStringToPointer(s.CreatedByName),
		CreatedAt:     s.CreatedAt,
	})
}

// RunResult summarizes one pass of the schedule runner
type RunResult struct {
	Due    int `json:"due"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	// Aborted is set when the run stopped before any schedule was attempted
	Aborted bool `json:"aborted,omitempty"`
}
