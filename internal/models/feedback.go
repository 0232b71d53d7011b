package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// FeedbackStatus is the lifecycle state of a feedback item
type FeedbackStatus string

// Feedback statuses
const (
	StatusPending    FeedbackStatus = "pending"
	StatusInProgress FeedbackStatus = "in_progress"
	StatusCompleted  FeedbackStatus = "completed"
	StatusRejected   FeedbackStatus = "rejected"
)

// AllFeedbackStatuses lists the statuses in display order
var AllFeedbackStatuses = []FeedbackStatus{StatusPending, StatusInProgress, StatusCompleted, StatusRejected}

// Valid reports whether s is one of the known statuses
func (s FeedbackStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Label returns the Japanese display name used by the admin console and exports
func (s FeedbackStatus) Label() string {
	switch s {
	case StatusPending:
		return "未対応"
	case StatusInProgress:
		return "対応中"
	case StatusCompleted:
		return "対応済み"
	case StatusRejected:
		return "却下"
	}
	return string(s)
}

// ParseFeedbackStatus validates a raw status value
func ParseFeedbackStatus(raw string) (FeedbackStatus, error) {
	s := FeedbackStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown feedback status %q", raw)
	}
	return s, nil
}

// Feedback is a single visitor submission
type Feedback struct {
	ID        int            `json:"id"`
	Type      string         `json:"type"`
	Content   string         `json:"content"`
	Name      sql.NullString `json:"name"`
	Email     sql.NullString `json:"email"`
	Phone     sql.NullString `json:"phone"`
	Status    FeedbackStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// History is populated only by list queries, most recent first
	History []HistorySummary `json:"history,omitempty"`
}

// MarshalJSON renders nullable contact fields as JSON null
func (f Feedback) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID          int              `json:"id"`
		Type        string           `json:"type"`
		Content     string           `json:"content"`
		Name        *string          `json:"name"`
		Email       *string          `json:"email"`
		Phone       *string          `json:"phone"`
		Status      FeedbackStatus   `json:"status"`
		StatusLabel string           `json:"status_label"`
		CreatedAt   time.Time        `json:"created_at"`
		UpdatedAt   time.Time        `json:"updated_at"`
		History     []HistorySummary `json:"history,omitempty"`
	}{
		ID:          f.ID,
		Type:        f.Type,
		Content:     f.Content,
		Name:        nullStringToPointer(f.Name),
		Email:       nullStringToPointer(f.Email),
		Phone:       nullStringToPointer(f.Phone),
		Status:      f.Status,
		StatusLabel: f.Status.Label(),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		History:     f.History,
	})
}

// FeedbackHistory is one audit entry recording a status write
type FeedbackHistory struct {
	ID         int            `json:"id"`
	FeedbackID int            `json:"feedback_id"`
	Status     FeedbackStatus `json:"status"`
	Notes      string         `json:"notes"`
	AdminID    sql.NullInt64  `json:"admin_id"`
	AdminName  sql.NullString `json:"admin_name"`
	CreatedAt  time.Time      `json:"created_at"`
}

// MarshalJSON renders the acting admin as JSON null when unknown
func (h FeedbackHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID          int            `json:"id"`
		FeedbackID  int            `json:"feedback_id"`
		Status      FeedbackStatus `json:"status"`
		StatusLabel string         `json:"status_label"`
		Notes       string         `json:"notes"`
		AdminID     *int64         `json:"admin_id"`
		AdminName   *string        `json:"admin_name"`
		CreatedAt   time.Time      `json:"created_at"`
	}{
		ID:          h.ID,
		FeedbackID:  h.FeedbackID,
		Status:      h.Status,
		StatusLabel: h.Status.Label(),
		Notes:       h.Notes,
		AdminID:     nullInt64ToPointer(h.AdminID),
		AdminName:   nullStringToPointer(h.AdminName),
		CreatedAt:   h.CreatedAt,
	})
}

// HistorySummary is the compact history entry attached to list rows
type HistorySummary struct {
	Status    FeedbackStatus `json:"status"`
	Notes     string         `json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
}

// FeedbackSubmission is the public intake payload
type FeedbackSubmission struct {
	Type    string `json:"feedback-type"`
	Content string `json:"feedback-content"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// FeedbackFilter holds the optional, conjunctive list filters.
// DateFrom and DateTo are YYYY-MM-DD strings in the site timezone.
type FeedbackFilter struct {
	Search   string `form:"search" json:"search"`
	Type     string `form:"type" json:"type"`
	Status   string `form:"status" json:"status"`
	DateFrom string `form:"date_from" json:"date_from"`
	DateTo   string `form:"date_to" json:"date_to"`
}

// FeedbackPage is one page of filtered feedback
type FeedbackPage struct {
	Items      []Feedback `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// FilterOptions lists the values offered by the feedback page filters
type FilterOptions struct {
	Types    []string         `json:"types"`
	Statuses []FeedbackStatus `json:"statuses"`
}

// TypeCount is a count of feedback for one type
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// DashboardStats summarizes the whole feedback table for the dashboard
type DashboardStats struct {
	Total        int         `json:"total"`
	Pending      int         `json:"pending"`
	Completed    int         `json:"completed"`
	ResponseRate float64     `json:"response_rate"`
	ByType       []TypeCount `json:"by_type"`
	Recent       []Feedback  `json:"recent"`
}
