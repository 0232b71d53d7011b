// Package config handles application configuration loading from a YAML file,
// an optional .env file and environment variables.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	contextutils "corpsite/internal/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Redis backs sessions, the report runner lock and the intake rate limit.
	// Everything degrades to in-process behaviour when the URL is empty.
	Redis RedisConfig `json:"redis" yaml:"redis"`

	Session SessionConfig `json:"session" yaml:"session"`

	// Email Configuration
	Email EmailConfig `json:"email" yaml:"email"`

	Reports ReportsConfig `json:"reports" yaml:"reports"`

	Intake IntakeConfig `json:"intake" yaml:"intake"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port          string   `json:"port" yaml:"port"`
	WorkerPort    string   `json:"worker_port" yaml:"worker_port"`
	SiteName      string   `json:"site_name" yaml:"site_name"`
	BaseURL       string   `json:"base_url" yaml:"base_url"`
	Timezone      string   `json:"timezone" yaml:"timezone"`
	SessionSecret string   `json:"session_secret" yaml:"session_secret" validate:"required"`
	SecureCookies bool     `json:"secure_cookies" yaml:"secure_cookies"`
	Debug         bool     `json:"debug" yaml:"debug"`
	LogLevel      string   `json:"log_level" yaml:"log_level"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins"`
	// AdminEmail/AdminPassword seed the first console account on an empty admins table
	AdminEmail    string `json:"admin_email" yaml:"admin_email"`
	AdminPassword string `json:"admin_password" yaml:"admin_password"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	// RunMigrations applies the embedded schema on startup
	RunMigrations bool `json:"run_migrations" yaml:"run_migrations"`
}

// RedisConfig represents the optional Redis connection
type RedisConfig struct {
	URL       string `json:"url" yaml:"url"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// Enabled reports whether a Redis URL was configured
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

// SessionConfig controls admin session lifetime
type SessionConfig struct {
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`
	MaxAge      time.Duration `json:"max_age" yaml:"max_age" validate:"min=0"`
}

// EmailConfig represents email/SMTP configuration
type EmailConfig struct {
	SMTP    SMTPConfig `json:"smtp" yaml:"smtp"`
	Enabled bool       `json:"enabled" yaml:"enabled"`
	// AdminAddress receives new-feedback notifications
	AdminAddress string `json:"admin_address" yaml:"admin_address" validate:"omitempty,email"`
}

// SMTPConfig represents SMTP server configuration
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	FromAddress string `json:"from_address" yaml:"from_address"`
	FromName    string `json:"from_name" yaml:"from_name"`
	// Timeout bounds the connection and every command of a delivery
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"min=0"`
}

// ReportsConfig controls the scheduled report runner
type ReportsConfig struct {
	WorkerInterval time.Duration `json:"worker_interval" yaml:"worker_interval"`
	LockTTL        time.Duration `json:"lock_ttl" yaml:"lock_ttl"`
	// RunHour is the local hour from which the worker may run the day's schedules
	RunHour int `json:"run_hour" yaml:"run_hour" validate:"min=0,max=23"`
}

// IntakeConfig controls the public feedback endpoint
type IntakeConfig struct {
	RateLimit       int           `json:"rate_limit" yaml:"rate_limit" validate:"min=0"`
	RateLimitWindow time.Duration `json:"rate_limit_window" yaml:"rate_limit_window"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "http://localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // "corpsite-server" or "corpsite-worker"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
}

// Location returns the configured business timezone, UTC when unset or unknown
func (c *Config) Location() *time.Location {
	loc, _ := contextutils.LoadLocationOrUTC(c.Server.Timezone)
	return loc
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	loadDotEnv()

	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadDotEnv reads .env (or CORPSITE_ENV_FILE) into the process environment.
// Variables already set in the environment win.
func loadDotEnv() {
	path := os.Getenv("CORPSITE_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.WorkerPort == "" {
		c.Server.WorkerPort = "8081"
	}
	if c.Server.Timezone == "" {
		c.Server.Timezone = DefaultTimezone
	}
	if c.Server.SiteName == "" {
		c.Server.SiteName = DefaultSiteName
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "corpsite:"
	}
	if c.Session.IdleTimeout == 0 {
		c.Session.IdleTimeout = SessionIdleTimeout
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = SessionMaxAge
	}
	if c.Email.SMTP.Port == 0 {
		c.Email.SMTP.Port = 587
	}
	if c.Email.SMTP.Timeout == 0 {
		c.Email.SMTP.Timeout = SMTPTimeout
	}
	if c.Reports.WorkerInterval == 0 {
		c.Reports.WorkerInterval = WorkerCheckInterval
	}
	if c.Reports.LockTTL == 0 {
		c.Reports.LockTTL = ReportRunLockTTL
	}
	if c.Intake.RateLimitWindow == 0 {
		c.Intake.RateLimitWindow = time.Hour
	}
}

// Validate checks settings that would otherwise fail late at runtime. Field
// rules live in the validate tags; cross-field rules follow.
func (c *Config) Validate() error {
	if err := contextutils.ValidateStruct(c); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid configuration: %v", err)
	}
	if c.Email.Enabled && c.Email.SMTP.Host == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "email.smtp.host is required when email is enabled")
	}
	if _, name := contextutils.LoadLocationOrUTC(c.Server.Timezone); name != c.Server.Timezone {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown timezone %q", c.Server.Timezone)
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables.
// The variable name is the upper-cased yaml path, e.g. email.smtp.host -> EMAIL_SMTP_HOST.
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		// Durations accept Go syntax ("90s", "2h") as well as plain seconds
		if field.Type() == durationType {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				} else if secs, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(int64(time.Duration(secs) * time.Second))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type().Elem().Kind() == reflect.String {
					parts := strings.Split(envVal, ",")
					for i := range parts {
						parts[i] = strings.TrimSpace(parts[i])
					}
					field.Set(reflect.ValueOf(parts))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file named by CORPSITE_CONFIG_FILE, else config.yaml.
// A missing default file is not an error; env variables alone can configure the service.
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv("CORPSITE_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
