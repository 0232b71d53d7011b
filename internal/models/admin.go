package models

import (
	"database/sql"
	"encoding/json"
	"slices"
	"time"
)

// AdminStatus is the account state of an administrator
type AdminStatus string

// Admin statuses
const (
	AdminActive   AdminStatus = "active"
	AdminInactive AdminStatus = "inactive"
)

// Admin is a back-office account
type Admin struct {
	ID               int
	Name             string
	Email            string
	PasswordHash     string
	RoleID           sql.NullInt64
	RoleName         sql.NullString
	Permissions      []string
	Status           AdminStatus
	TwoFactorEnabled bool
	LastLogin        sql.NullTime
	CreatedAt        time.Time
}

// IsActive reports whether the account may sign in
func (a *Admin) IsActive() bool {
	return a != nil && a.Status == AdminActive
}

// HasPermission reports whether the admin's role grants permission
func (a *Admin) HasPermission(permission string) bool {
	return a != nil && slices.Contains(a.Permissions, permission)
}

// MarshalJSON omits the password hash and renders nullable columns as JSON null
func (a Admin) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID               int         `json:"id"`
		Name             string      `json:"name"`
		Email            string      `json:"email"`
		Role             *string     `json:"role"`
		Permissions      []string    `json:"permissions"`
		Status           AdminStatus `json:"status"`
		TwoFactorEnabled bool        `json:"two_factor_enabled"`
		LastLogin        *time.Time  `json:"last_login"`
		CreatedAt        time.Time   `json:"created_at"`
	}{
		ID:               a.ID,
		Name:             a.Name,
		Email:            a.Email,
		Role:             nullStringToPointer(a.RoleName),
		Permissions:      a.Permissions,
		Status:           a.Status,
		TwoFactorEnabled: a.TwoFactorEnabled,
		LastLogin:        nullTimeToPointer(a.LastLogin),
		CreatedAt:        a.CreatedAt,
	})
}

// AdminRole groups permissions
type AdminRole struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// LoginHistory records one successful sign-in
type LoginHistory struct {
	ID        int       `json:"id"`
	AdminID   int       `json:"admin_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}
