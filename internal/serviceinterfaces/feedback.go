// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"

	"corpsite/internal/models"
)

// FeedbackServiceInterface defines intake and administration of feedback.
type FeedbackServiceInterface interface {
	CreateFeedback(ctx context.Context, submission *models.FeedbackSubmission) (*models.Feedback, error)
	GetFeedbackByID(ctx context.Context, id int) (*models.Feedback, error)
	GetHistory(ctx context.Context, feedbackID int) ([]models.FeedbackHistory, error)
	ListFeedback(ctx context.Context, filter models.FeedbackFilter, page int) (*models.FeedbackPage, error)
	ListAllFeedback(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error)
	UpdateStatus(ctx context.Context, id int, status models.FeedbackStatus, notes string, adminID int) error
	ApplyBulkAction(ctx context.Context, action models.BulkAction, ids []int, adminID int) (int, error)
	GetDashboardStats(ctx context.Context) (*models.DashboardStats, error)
	GetFilterOptions(ctx context.Context) (*models.FilterOptions, error)
}
