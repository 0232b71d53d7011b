// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"corpsite/internal/config"
	"corpsite/internal/database"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	"corpsite/internal/services"
	"corpsite/internal/services/mailer"
	contextutils "corpsite/internal/utils"

	"github.com/redis/go-redis/v9"
)

// Service names used as container keys
const (
	serviceFeedback = "feedback"
	serviceAdmin    = "admin"
	serviceReport   = "report"
	serviceSchedule = "schedule"
	serviceRunner   = "schedule_runner"
	serviceEmail    = "email"
	serviceLimiter  = "rate_limiter"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetFeedbackService() (serviceinterfaces.FeedbackServiceInterface, error)
	GetAdminService() (serviceinterfaces.AdminServiceInterface, error)
	GetReportService() (serviceinterfaces.ReportServiceInterface, error)
	GetScheduleService() (serviceinterfaces.ScheduleServiceInterface, error)
	GetScheduleRunner() (serviceinterfaces.ScheduleRunnerInterface, error)
	GetEmailService() (mailer.Mailer, error)
	GetRateLimiter() services.RateLimiter
	GetRedis() *redis.Client
	GetDatabase() *sql.DB
	GetDatabaseManager() *database.Manager
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	EnsureAdminUser(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	redis         *redis.Client
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

var _ ServiceContainerInterface = (*ServiceContainer)(nil)

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:       cfg,
		logger:    logger,
		dbManager: database.NewManager(logger),
		services:  make(map[string]interface{}),
	}
}

// Initialize opens the database and, when configured, Redis, then wires every service
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	db, err := sc.dbManager.InitDBWithConfig(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	client, err := database.OpenRedis(ctx, sc.cfg.Redis, sc.logger)
	if err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to connect to redis")
	}
	if client != nil {
		sc.redis = client
		sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
			return client.Close()
		})
	}

	sc.initializeServices(ctx)
	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetFeedbackService returns the feedback service
func (sc *ServiceContainer) GetFeedbackService() (serviceinterfaces.FeedbackServiceInterface, error) {
	return GetServiceAs[serviceinterfaces.FeedbackServiceInterface](sc, serviceFeedback)
}

// GetAdminService returns the admin account service
func (sc *ServiceContainer) GetAdminService() (serviceinterfaces.AdminServiceInterface, error) {
	return GetServiceAs[serviceinterfaces.AdminServiceInterface](sc, serviceAdmin)
}

// GetReportService returns the report service
func (sc *ServiceContainer) GetReportService() (serviceinterfaces.ReportServiceInterface, error) {
	return GetServiceAs[serviceinterfaces.ReportServiceInterface](sc, serviceReport)
}

// GetScheduleService returns the report schedule service
func (sc *ServiceContainer) GetScheduleService() (serviceinterfaces.ScheduleServiceInterface, error) {
	return GetServiceAs[serviceinterfaces.ScheduleServiceInterface](sc, serviceSchedule)
}

// GetScheduleRunner returns the scheduled report runner
func (sc *ServiceContainer) GetScheduleRunner() (serviceinterfaces.ScheduleRunnerInterface, error) {
	return GetServiceAs[serviceinterfaces.ScheduleRunnerInterface](sc, serviceRunner)
}

// GetEmailService returns the mailer
func (sc *ServiceContainer) GetEmailService() (mailer.Mailer, error) {
	return GetServiceAs[mailer.Mailer](sc, serviceEmail)
}

// GetRateLimiter returns the intake limiter, or nil when Redis is not configured
func (sc *ServiceContainer) GetRateLimiter() services.RateLimiter {
	limiter, err := GetServiceAs[services.RateLimiter](sc, serviceLimiter)
	if err != nil {
		return nil
	}
	return limiter
}

// GetRedis returns the Redis client, or nil when Redis is not configured
func (sc *ServiceContainer) GetRedis() *redis.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.redis
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetDatabaseManager returns the manager used for migrations
func (sc *ServiceContainer) GetDatabaseManager() *database.Manager {
	return sc.dbManager
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup runs the shutdown funcs in reverse order of registration
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errors = append(errors, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(_ context.Context) {
	emailService := services.CreateEmailService(sc.cfg, sc.logger)
	sc.services[serviceEmail] = emailService

	feedbackService := services.NewFeedbackService(sc.db, sc.cfg, emailService, sc.logger)
	sc.services[serviceFeedback] = feedbackService

	sc.services[serviceAdmin] = services.NewAdminService(sc.db, sc.logger)

	reportService := services.NewReportService(sc.db, sc.cfg, sc.logger)
	sc.services[serviceReport] = reportService

	scheduleService := services.NewScheduleService(sc.db, sc.logger)
	sc.services[serviceSchedule] = scheduleService

	// Without Redis there is no shared lock; the worker's day guard still applies
	var locker services.Locker
	if sc.redis != nil {
		locker = services.NewRedisLocker(sc.redis, sc.cfg.Redis.KeyPrefix)
		sc.services[serviceLimiter] = services.NewRedisRateLimiter(
			sc.redis,
			sc.cfg.Redis.KeyPrefix,
			sc.cfg.Intake.RateLimit,
			sc.cfg.Intake.RateLimitWindow,
			sc.logger,
		)
	}
	sc.services[serviceRunner] = services.NewScheduleRunner(scheduleService, reportService, emailService, locker, sc.cfg, sc.logger)
}

// EnsureAdminUser creates the bootstrap admin from config when no admin exists yet
func (sc *ServiceContainer) EnsureAdminUser(ctx context.Context) error {
	adminService, err := sc.GetAdminService()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get admin service")
	}

	return adminService.EnsureBootstrapAdmin(ctx, sc.cfg.Server.AdminEmail, sc.cfg.Server.AdminPassword)
}
