package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/database"
	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	"corpsite/internal/services/mailer"
	contextutils "corpsite/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// Intake validation messages shown to site visitors
const (
	MsgTypeRequired    = "フィードバックの種類は必須です"
	MsgContentRequired = "フィードバック内容は必須です"
	MsgContentLength   = "フィードバック内容は10文字以上1000文字以内で入力してください"
	MsgInvalidEmail    = "有効なメールアドレスを入力してください"
	MsgInvalidPhone    = "有効な電話番号を入力してください"

	NotificationSubject = "新しいフィードバックが届きました"
)

const feedbackColumns = "id, type, content, name, email, phone, status, created_at, updated_at"

// FeedbackService implements intake and administration of visitor feedback.
type FeedbackService struct {
	db      *sql.DB
	cfg     *config.Config
	mailer  mailer.Mailer
	logger  *observability.Logger
	metrics *observability.AppMetrics
}

var _ serviceinterfaces.FeedbackServiceInterface = (*FeedbackService)(nil)

// NewFeedbackService creates a new FeedbackService instance. m may be nil, in which case
// no notification is sent.
func NewFeedbackService(db *sql.DB, cfg *config.Config, m mailer.Mailer, logger *observability.Logger) *FeedbackService {
	if db == nil {
		panic("NewFeedbackService: db is nil")
	}
	if logger == nil {
		panic("NewFeedbackService: logger is nil")
	}
	return &FeedbackService{db: db, cfg: cfg, mailer: m, logger: logger, metrics: observability.NewAppMetrics()}
}

// ValidateSubmission returns every rule the submission violates, in display order.
// Required fields are checked after trimming; optional fields only when non-empty.
func ValidateSubmission(sub *models.FeedbackSubmission) []string {
	var errs []string
	if strings.TrimSpace(sub.Type) == "" {
		errs = append(errs, MsgTypeRequired)
	}
	if strings.TrimSpace(sub.Content) == "" {
		errs = append(errs, MsgContentRequired)
	} else if n := contextutils.CharLength(sub.Content); n < config.FeedbackContentMinLen || n > config.FeedbackContentMaxLen {
		errs = append(errs, MsgContentLength)
	}
	if sub.Email != "" && !contextutils.IsValidEmail(sub.Email) {
		errs = append(errs, MsgInvalidEmail)
	}
	if sub.Phone != "" && !contextutils.IsValidPhone(sub.Phone) {
		errs = append(errs, MsgInvalidPhone)
	}
	return errs
}

// CreateFeedback validates and stores a submission, then notifies the site administrator.
// A failed notification is logged and counted but never fails the submission.
func (s *FeedbackService) CreateFeedback(ctx context.Context, sub *models.FeedbackSubmission) (result0 *models.Feedback, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "create_feedback", attribute.String("feedback.type", sub.Type))
	defer observability.FinishSpan(span, &err)

	if errs := ValidateSubmission(sub); len(errs) > 0 {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn, strings.Join(errs, "\n"), "")
	}

	f := &models.Feedback{
		Type:    sub.Type,
		Content: sub.Content,
		Name:    models.NullString(sub.Name),
		Email:   models.NullString(sub.Email),
		Phone:   models.NullString(sub.Phone),
	}
	query := `INSERT INTO feedback (type, content, name, email, phone)
              VALUES ($1, $2, $3, $4, $5) RETURNING id, status, created_at, updated_at`
	err = s.db.QueryRowContext(ctx, query, f.Type, f.Content, f.Name, f.Email, f.Phone).
		Scan(&f.ID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert feedback: %v", err)
	}

	s.metrics.FeedbackSubmitted(ctx, f.Type)
	s.logger.Info(ctx, "Feedback received", map[string]interface{}{
		"feedback_id": f.ID,
		"type":        f.Type,
	})

	s.notifyAdmin(ctx, f)
	return f, nil
}

func (s *FeedbackService) notifyAdmin(ctx context.Context, f *models.Feedback) {
	if s.mailer == nil || !s.mailer.IsEnabled() || s.cfg == nil || s.cfg.Email.AdminAddress == "" {
		return
	}
	if err := s.mailer.SendEmail(ctx, s.cfg.Email.AdminAddress, NotificationSubject,
		mailer.TemplateFeedbackNotification, FeedbackNotificationData(f)); err != nil {
		s.metrics.NotificationFailed(ctx)
		s.logger.Error(ctx, "Failed to send feedback notification", err, map[string]interface{}{
			"feedback_id": f.ID,
		})
	}
}

// GetFeedbackByID fetches a single feedback item.
func (s *FeedbackService) GetFeedbackByID(ctx context.Context, id int) (result0 *models.Feedback, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "get_feedback_by_id", observability.AttributeFeedbackID(id))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM feedback WHERE id = $1", feedbackColumns)
	var f models.Feedback
	err = s.db.QueryRowContext(ctx, query, id).
		Scan(&f.ID, &f.Type, &f.Content, &f.Name, &f.Email, &f.Phone, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "feedback with ID %d not found", id)
		}
		return nil, contextutils.WrapError(err, "failed to scan feedback")
	}
	return &f, nil
}

// GetHistory returns every history entry of a feedback item, newest first.
func (s *FeedbackService) GetHistory(ctx context.Context, feedbackID int) (result0 []models.FeedbackHistory, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "get_history", observability.AttributeFeedbackID(feedbackID))
	defer observability.FinishSpan(span, &err)

	query := `SELECT h.id, h.feedback_id, h.status, h.notes, h.admin_id, a.name, h.created_at
              FROM feedback_history h
              LEFT JOIN admins a ON a.id = h.admin_id
              WHERE h.feedback_id = $1
              ORDER BY h.created_at DESC, h.id DESC`
	rows, err := s.db.QueryContext(ctx, query, feedbackID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query feedback history")
	}
	defer func() {
		_ = rows.Close()
	}()

	history := []models.FeedbackHistory{}
	for rows.Next() {
		var h models.FeedbackHistory
		if err := rows.Scan(&h.ID, &h.FeedbackID, &h.Status, &h.Notes, &h.AdminID, &h.AdminName, &h.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "scan feedback history")
		}
		history = append(history, h)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "iterate feedback history")
	}
	return history, nil
}

// buildFilter translates the list filters into a WHERE clause with positional arguments.
// date_to is inclusive, so the upper bound is the start of the following day.
func (s *FeedbackService) buildFilter(filter models.FeedbackFilter) (where string, args []interface{}, err error) {
	var conditions []string
	idx := 1
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(content ILIKE $%d OR name ILIKE $%d OR email ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+search+"%")
		idx++
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", idx))
		args = append(args, filter.Type)
		idx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", idx))
		args = append(args, filter.Status)
		idx++
	}
	loc := s.location()
	if filter.DateFrom != "" {
		from, err := contextutils.ParseDateInLocation(filter.DateFrom, loc)
		if err != nil {
			return "", nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid date_from %q", filter.DateFrom)
		}
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", idx))
		args = append(args, from)
		idx++
	}
	if filter.DateTo != "" {
		to, err := contextutils.ParseDateInLocation(filter.DateTo, loc)
		if err != nil {
			return "", nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid date_to %q", filter.DateTo)
		}
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", idx))
		args = append(args, to.AddDate(0, 0, 1))
	}
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args, nil
}

func (s *FeedbackService) location() *time.Location {
	if s.cfg == nil {
		loc, _ := contextutils.LoadLocationOrUTC(config.DefaultTimezone)
		return loc
	}
	return s.cfg.Location()
}

// ListFeedback returns one page of filtered feedback, newest first, with a bounded
// history summary attached to every row.
func (s *FeedbackService) ListFeedback(ctx context.Context, filter models.FeedbackFilter, page int) (result0 *models.FeedbackPage, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "list_feedback",
		observability.AttributePage(page),
		observability.AttributeSearch(filter.Search),
		observability.AttributeTypeFilter(filter.Type),
		observability.AttributeStatusFilter(filter.Status),
	)
	defer observability.FinishSpan(span, &err)

	if page < 1 {
		page = 1
	}
	pageSize := config.FeedbackPageSize

	where, args, err := s.buildFilter(filter)
	if err != nil {
		return nil, err
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM feedback %s", where)
	var total int
	if err = s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, contextutils.WrapError(err, "failed to count feedback")
	}

	idx := len(args) + 1
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf("SELECT %s FROM feedback %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		feedbackColumns, where, idx, idx+1)
	items, err := s.queryFeedback(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err = s.attachHistory(ctx, items, config.HistorySummaryLimit); err != nil {
		return nil, err
	}

	return &models.FeedbackPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// ListAllFeedback returns every matching row with its complete history, for export.
func (s *FeedbackService) ListAllFeedback(ctx context.Context, filter models.FeedbackFilter) (result0 []models.Feedback, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "list_all_feedback",
		observability.AttributeSearch(filter.Search),
		observability.AttributeTypeFilter(filter.Type),
		observability.AttributeStatusFilter(filter.Status),
	)
	defer observability.FinishSpan(span, &err)

	where, args, err := s.buildFilter(filter)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM feedback %s ORDER BY created_at DESC, id DESC", feedbackColumns, where)
	items, err := s.queryFeedback(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err = s.attachHistory(ctx, items, 0); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *FeedbackService) queryFeedback(ctx context.Context, query string, args ...interface{}) ([]models.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query feedback list")
	}
	defer func() {
		_ = rows.Close()
	}()

	list := []models.Feedback{}
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.Type, &f.Content, &f.Name, &f.Email, &f.Phone, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, contextutils.WrapError(err, "scan feedback list")
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "iterate feedback list")
	}
	return list, nil
}

// attachHistory loads the history of all items in one query. limit <= 0 keeps every entry.
func (s *FeedbackService) attachHistory(ctx context.Context, items []models.Feedback, limit int) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	byID := make(map[int]int, len(items))
	for i := range items {
		ids[i] = int64(items[i].ID)
		byID[items[i].ID] = i
		items[i].History = []models.HistorySummary{}
	}

	query := `SELECT feedback_id, status, notes, created_at FROM (
                  SELECT feedback_id, status, notes, created_at,
                         ROW_NUMBER() OVER (PARTITION BY feedback_id ORDER BY created_at DESC, id DESC) AS rn
                  FROM feedback_history
                  WHERE feedback_id = ANY($1)
              ) h
              WHERE $2::int <= 0 OR rn <= $2::int
              ORDER BY feedback_id, rn`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids), limit)
	if err != nil {
		return contextutils.WrapError(err, "failed to query history summaries")
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var feedbackID int
		var h models.HistorySummary
		if err := rows.Scan(&feedbackID, &h.Status, &h.Notes, &h.CreatedAt); err != nil {
			return contextutils.WrapError(err, "scan history summary")
		}
		if i, ok := byID[feedbackID]; ok {
			items[i].History = append(items[i].History, h)
		}
	}
	if err := rows.Err(); err != nil {
		return contextutils.WrapError(err, "iterate history summaries")
	}
	return nil
}

// UpdateStatus sets the status of one item and appends the matching history entry atomically.
func (s *FeedbackService) UpdateStatus(ctx context.Context, id int, status models.FeedbackStatus, notes string, adminID int) (err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "update_status",
		observability.AttributeFeedbackID(id),
		observability.AttributeAdminID(adminID),
		attribute.String("feedback.status", string(status)),
	)
	defer observability.FinishSpan(span, &err)

	if !status.Valid() {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown feedback status %q", status)
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE feedback SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
		if err != nil {
			return contextutils.WrapError(err, "failed to update feedback status")
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return contextutils.WrapError(err, "failed to get rows affected")
		}
		if affected == 0 {
			return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "feedback with ID %d not found", id)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feedback_history (feedback_id, status, notes, admin_id) VALUES ($1, $2, $3, $4)`,
			id, status, notes, adminRef(adminID)); err != nil {
			return contextutils.WrapError(err, "failed to insert feedback history")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Feedback status updated", map[string]interface{}{
		"feedback_id": id,
		"status":      string(status),
		"admin_id":    adminID,
	})
	return nil
}

// ApplyBulkAction deletes or re-statuses exactly the listed items in one transaction
// and returns how many rows were affected.
func (s *FeedbackService) ApplyBulkAction(ctx context.Context, action models.BulkAction, ids []int, adminID int) (result0 int, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "apply_bulk_action",
		attribute.String("bulk.action", action.String()),
		attribute.Int("bulk.count", len(ids)),
		observability.AttributeAdminID(adminID),
	)
	defer observability.FinishSpan(span, &err)

	if len(ids) == 0 {
		return 0, contextutils.WrapError(contextutils.ErrInvalidInput, "no feedback selected")
	}
	idArray := make([]int64, len(ids))
	for i, id := range ids {
		idArray[i] = int64(id)
	}

	var affected int64
	switch action.Kind {
	case models.BulkDelete:
		err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `DELETE FROM feedback WHERE id = ANY($1)`, pq.Array(idArray))
			if err != nil {
				return contextutils.WrapError(err, "failed to delete feedback")
			}
			affected, err = res.RowsAffected()
			return err
		})
	case models.BulkSetStatus:
		if !action.Status.Valid() {
			return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown feedback status %q", action.Status)
		}
		err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx,
				`UPDATE feedback SET status = $1, updated_at = NOW() WHERE id = ANY($2)`,
				action.Status, pq.Array(idArray))
			if err != nil {
				return contextutils.WrapError(err, "failed to bulk update feedback")
			}
			if affected, err = res.RowsAffected(); err != nil {
				return contextutils.WrapError(err, "failed to get rows affected")
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO feedback_history (feedback_id, status, notes, admin_id)
                 SELECT id, $1, $2, $3 FROM feedback WHERE id = ANY($4)`,
				action.Status, config.BulkUpdateNote, adminRef(adminID), pq.Array(idArray)); err != nil {
				return contextutils.WrapError(err, "failed to insert bulk history")
			}
			return nil
		})
	default:
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown bulk action %q", action.String())
	}
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "Bulk action applied", map[string]interface{}{
		"action":   action.String(),
		"affected": affected,
		"admin_id": adminID,
	})
	return int(affected), nil
}

// GetDashboardStats summarizes the feedback table for the dashboard.
func (s *FeedbackService) GetDashboardStats(ctx context.Context) (result0 *models.DashboardStats, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "get_dashboard_stats")
	defer observability.FinishSpan(span, &err)

	stats := &models.DashboardStats{ByType: []models.TypeCount{}}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*),
                COUNT(*) FILTER (WHERE status = 'pending'),
                COUNT(*) FILTER (WHERE status = 'completed')
            FROM feedback`).Scan(&stats.Total, &stats.Pending, &stats.Completed)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to count feedback")
	}
	if stats.Total > 0 {
		stats.ResponseRate = math.Round(float64(stats.Completed)/float64(stats.Total)*1000) / 10
	}

	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM feedback GROUP BY type ORDER BY COUNT(*) DESC, type`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to count feedback by type")
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var tc models.TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, contextutils.WrapError(err, "scan type count")
		}
		stats.ByType = append(stats.ByType, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "iterate type counts")
	}

	recentQuery := fmt.Sprintf("SELECT %s FROM feedback ORDER BY created_at DESC, id DESC LIMIT $1", feedbackColumns)
	stats.Recent, err = s.queryFeedback(ctx, recentQuery, config.DashboardRecentLimit)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetFilterOptions returns the distinct feedback types and the known statuses.
func (s *FeedbackService) GetFilterOptions(ctx context.Context) (result0 *models.FilterOptions, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "get_filter_options")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT type FROM feedback ORDER BY type`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query feedback types")
	}
	defer func() {
		_ = rows.Close()
	}()

	opts := &models.FilterOptions{Types: []string{}, Statuses: models.AllFeedbackStatuses}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, contextutils.WrapError(err, "scan feedback type")
		}
		opts.Types = append(opts.Types, t)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "iterate feedback types")
	}
	return opts, nil
}

// adminRef maps a missing acting admin to NULL
func adminRef(adminID int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(adminID), Valid: adminID > 0}
}
