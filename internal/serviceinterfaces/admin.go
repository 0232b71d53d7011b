package serviceinterfaces

import (
	"context"

	"corpsite/internal/models"
)

// AdminServiceInterface covers back-office accounts and sign-in.
type AdminServiceInterface interface {
	Authenticate(ctx context.Context, email, password, ipAddress, userAgent string) (*models.Admin, error)
	GetAdminByID(ctx context.Context, id int) (*models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	ListRoles(ctx context.Context) ([]models.AdminRole, error)
	CreateAdmin(ctx context.Context, name, email, password, roleName string) (*models.Admin, error)
	ToggleStatus(ctx context.Context, id, actingAdminID int) (*models.Admin, error)
	GetLoginHistory(ctx context.Context, adminID, limit int) ([]models.LoginHistory, error)
	EnsureBootstrapAdmin(ctx context.Context, email, password string) error
}
