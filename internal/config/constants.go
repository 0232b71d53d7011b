package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout    = 60 * time.Second
	ServerShutdownTimeout = 30 * time.Second
	WorkerShutdownTimeout = 30 * time.Second
	TestTimeout           = 100 * time.Millisecond

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionIdleTimeout = 7200 * time.Second
	SessionMaxAge      = 24 * time.Hour

	// Worker timeouts
	WorkerCheckInterval = 5 * time.Minute
	ReportRunLockTTL    = 10 * time.Minute
	ReportRunTimeout    = 5 * time.Minute

	// SMTPTimeout bounds dialing and each SMTP command of one delivery
	SMTPTimeout = 30 * time.Second
)

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true

	SessionName = "corpsite-admin"

	// Session keys
	SessionKeyAdminID      = "admin_id"
	SessionKeyLastActivity = "last_activity"
	SessionKeyCSRFToken    = "csrf_token"

	// CSRFTokenBytes is the amount of randomness in a CSRF token (hex doubles it)
	CSRFTokenBytes = 32
	CSRFHeaderName = "X-CSRF-Token"
	CSRFFormField  = "csrf_token"
)

// Security configuration constants
const (
	DefaultCSP  = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self' data:;"
	HSTSSeconds = 31536000
)

// Site defaults
const (
	DefaultTimezone = "Asia/Tokyo"
	DefaultSiteName = "Corporate Site"
)

// Feedback administration constants
const (
	FeedbackPageSize      = 10
	HistorySummaryLimit   = 20
	DashboardRecentLimit  = 5
	FeedbackContentMinLen = 10
	FeedbackContentMaxLen = 1000
	BulkUpdateNote        = "一括更新"
)

// Permission keys stored in admin_roles.permissions
const (
	PermissionManageUsers = "manage_users"
)

// Admin account constants
const (
	AdminPasswordMinLen = 8
	DefaultAdminRole    = "super_admin"
	BootstrapAdminName  = "管理者"
	LoginHistoryLimit   = 10
)

// Report constants
const (
	RecentReportsLimit = 10
	RunnerLockKey      = "reports:runner"
)
