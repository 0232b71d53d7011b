package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"corpsite/internal/config"
	"corpsite/internal/database"
	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

const adminSelect = `SELECT a.id, a.name, a.email, a.password_hash, a.role_id, r.name, r.permissions,
       a.status, a.two_factor_enabled, a.last_login, a.created_at
FROM admins a
LEFT JOIN admin_roles r ON r.id = a.role_id`

// AdminService manages back-office accounts and sign-in.
type AdminService struct {
	db     *sql.DB
	logger *observability.Logger
}

var _ serviceinterfaces.AdminServiceInterface = (*AdminService)(nil)

// NewAdminService creates a new AdminService instance
func NewAdminService(db *sql.DB, logger *observability.Logger) *AdminService {
	if db == nil {
		panic("NewAdminService: db is nil")
	}
	if logger == nil {
		panic("NewAdminService: logger is nil")
	}
	return &AdminService{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAdmin(row rowScanner) (*models.Admin, error) {
	var a models.Admin
	var perms pq.StringArray
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.RoleID, &a.RoleName, &perms,
		&a.Status, &a.TwoFactorEnabled, &a.LastLogin, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Permissions = []string(perms)
	if a.Permissions == nil {
		a.Permissions = []string{}
	}
	return &a, nil
}

// Authenticate verifies credentials and records the sign-in.
// The password is checked before the account status so a disabled account is only
// revealed to someone who knows its password.
func (s *AdminService) Authenticate(ctx context.Context, email, password, ipAddress, userAgent string) (result0 *models.Admin, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "authenticate", attribute.String("admin.email", contextutils.MaskEmail(email)))
	defer observability.FinishSpan(span, &err)

	admin, err := scanAdmin(s.db.QueryRowContext(ctx, adminSelect+" WHERE a.email = $1", strings.TrimSpace(email)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, contextutils.ErrInvalidCredentials
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to look up admin: %v", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		s.logger.Warn(ctx, "Failed admin sign-in", map[string]interface{}{
			"email": contextutils.MaskEmail(email),
			"ip":    ipAddress,
		})
		return nil, contextutils.ErrInvalidCredentials
	}
	if !admin.IsActive() {
		return nil, contextutils.ErrAccountDisabled
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `UPDATE admins SET last_login = NOW() WHERE id = $1 RETURNING last_login`, admin.ID).
			Scan(&admin.LastLogin); err != nil {
			return contextutils.WrapError(err, "failed to stamp last login")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO admin_login_history (admin_id, ip_address, user_agent) VALUES ($1, $2, $3)`,
			admin.ID, models.NullString(ipAddress), models.NullString(userAgent)); err != nil {
			return contextutils.WrapError(err, "failed to record login history")
		}
		return nil
	})
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseTransaction, "failed to record sign-in: %v", err)
	}

	s.logger.Info(ctx, "Admin signed in", map[string]interface{}{
		"admin_id": admin.ID,
		"ip":       ipAddress,
	})
	return admin, nil
}

// GetAdminByID loads an account with its role and permissions
func (s *AdminService) GetAdminByID(ctx context.Context, id int) (result0 *models.Admin, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "get_admin_by_id", observability.AttributeAdminID(id))
	defer observability.FinishSpan(span, &err)

	admin, err := scanAdmin(s.db.QueryRowContext(ctx, adminSelect+" WHERE a.id = $1", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "admin with ID %d not found", id)
		}
		return nil, contextutils.WrapError(err, "failed to load admin")
	}
	return admin, nil
}

// ListAdmins returns every account, newest first
func (s *AdminService) ListAdmins(ctx context.Context) (result0 []models.Admin, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "list_admins")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, adminSelect+" ORDER BY a.created_at DESC, a.id DESC")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list admins")
	}
	defer func() {
		_ = rows.Close()
	}()

	admins := []models.Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "scan admin")
		}
		admins = append(admins, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "iterate admins")
	}
	return admins, nil
}

// ListRoles returns every role ordered by name
func (s *AdminService) ListRoles(ctx context.Context) (result0 []models.AdminRole, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "list_roles")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, permissions FROM admin_roles ORDER BY name`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list roles")
	}
	defer func() {
		_ = rows.Close()
	}()

	roles := []models.AdminRole{}
	for rows.Next() {
		var r models.AdminRole
		var perms pq.StringArray
		if err := rows.Scan(&r.ID, &r.Name, &perms); err != nil {
			return nil, contextutils.WrapError(err, "scan role")
		}
		r.Permissions = []string(perms)
		roles = append(roles, r)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "iterate roles")
	}
	return roles, nil
}

// CreateAdmin adds an active account with a bcrypt-hashed password in the named role
func (s *AdminService) CreateAdmin(ctx context.Context, name, email, password, roleName string) (result0 *models.Admin, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "create_admin",
		attribute.String("admin.email", contextutils.MaskEmail(email)),
		attribute.String("admin.role", roleName),
	)
	defer observability.FinishSpan(span, &err)

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name == "":
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "name is required")
	case !contextutils.IsValidEmail(email):
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid email %q", email)
	case contextutils.CharLength(password) < config.AdminPasswordMinLen:
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "password must be at least %d characters", config.AdminPasswordMinLen)
	}
	if roleName == "" {
		roleName = config.DefaultAdminRole
	}

	var roleID int
	if err = s.db.QueryRowContext(ctx, `SELECT id FROM admin_roles WHERE name = $1`, roleName).Scan(&roleID); err != nil {
		if err == sql.ErrNoRows {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown role %q", roleName)
		}
		return nil, contextutils.WrapError(err, "failed to look up role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	var id int
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO admins (name, email, password_hash, role_id, status) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		name, email, string(hash), roleID, models.AdminActive).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "admin %s already exists", contextutils.MaskEmail(email))
		}
		return nil, contextutils.WrapError(err, "failed to insert admin")
	}

	s.logger.Info(ctx, "Admin created", map[string]interface{}{
		"admin_id": id,
		"role":     roleName,
	})
	return s.GetAdminByID(ctx, id)
}

// ToggleStatus flips an account between active and inactive. Admins cannot disable themselves.
func (s *AdminService) ToggleStatus(ctx context.Context, id, actingAdminID int) (result0 *models.Admin, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "toggle_status",
		observability.AttributeAdminID(actingAdminID),
		attribute.Int("target.admin.id", id),
	)
	defer observability.FinishSpan(span, &err)

	if id == actingAdminID {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "cannot change own account status")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE admins SET status = CASE WHEN status = 'active' THEN 'inactive' ELSE 'active' END WHERE id = $1`, id)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to toggle admin status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get rows affected")
	}
	if affected == 0 {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "admin with ID %d not found", id)
	}

	admin, err := s.GetAdminByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Admin status changed", map[string]interface{}{
		"admin_id":  id,
		"status":    string(admin.Status),
		"acting_id": actingAdminID,
	})
	return admin, nil
}

// GetLoginHistory returns the most recent sign-ins of one admin
func (s *AdminService) GetLoginHistory(ctx context.Context, adminID, limit int) (result0 []models.LoginHistory, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "get_login_history", observability.AttributeAdminID(adminID))
	defer observability.FinishSpan(span, &err)

	if limit <= 0 {
		limit = config.LoginHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, admin_id, ip_address, user_agent, created_at
        FROM admin_login_history
        WHERE admin_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2`, adminID, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query login history")
	}
	defer func() {
		_ = rows.Close()
	}()

	history := []models.LoginHistory{}
	for rows.Next() {
		var h models.LoginHistory
		var ip, ua sql.NullString
		if err := rows.Scan(&h.ID, &h.AdminID, &ip, &ua, &h.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "scan login history")
		}
		h.IPAddress, h.UserAgent = ip.String, ua.String
		history = append(history, h)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "iterate login history")
	}
	return history, nil
}

// EnsureBootstrapAdmin creates the first super admin when the admins table is empty.
// It does nothing once any account exists.
func (s *AdminService) EnsureBootstrapAdmin(ctx context.Context, email, password string) (err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "ensure_bootstrap_admin")
	defer observability.FinishSpan(span, &err)

	if email == "" || password == "" {
		return nil
	}

	var count int
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return contextutils.WrapError(err, "failed to count admins")
	}
	if count > 0 {
		return nil
	}

	if _, err = s.CreateAdmin(ctx, config.BootstrapAdminName, email, password, config.DefaultAdminRole); err != nil {
		return contextutils.WrapError(err, fmt.Sprintf("failed to create bootstrap admin %s", contextutils.MaskEmail(email)))
	}
	s.logger.Info(ctx, "Bootstrap admin created", map[string]interface{}{
		"email": contextutils.MaskEmail(email),
	})
	return nil
}

// isDuplicateKeyError checks if the error is a duplicate key constraint violation
func isDuplicateKeyError(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
