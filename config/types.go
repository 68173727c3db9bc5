package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Server         ServerConfig         `mapstructure:"server"`
	Authentication AuthenticationConfig `mapstructure:"authentication"`
	Authorization  AuthorizationConfig  `mapstructure:"authorization"`
	Email          EmailConfig          `mapstructure:"email"`
	SMS            SMSConfig            `mapstructure:"sms"`
	Observability  ObservabilityConfig  `mapstructure:"observability"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Nats           NatsConfig           `mapstructure:"nats"`
	Scheduling     SchedulingConfig     `mapstructure:"scheduling"`
	Jobs           JobsConfig           `mapstructure:"jobs"`
	Directory      DirectoryConfig      `mapstructure:"directory"`
	Notifications  NotificationsConfig  `mapstructure:"notifications"`
}

type NatsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
}

type DatabaseConfig struct {
	Host       string                  `mapstructure:"host"`
	Port       int                     `mapstructure:"port"`
	User       string                  `mapstructure:"user"`
	Password   string                  `mapstructure:"password"`
	DBName     string                  `mapstructure:"dbname"`
	SSLMode    string                  `mapstructure:"sslmode"`
	Pool       DatabasePoolConfig      `mapstructure:"pool"`
	Migrations DatabaseMigrationConfig `mapstructure:"migrations"`
	Logging    DatabaseLoggingConfig   `mapstructure:"logging"`
}

type DatabasePoolConfig struct {
	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
}

type DatabaseMigrationConfig struct {
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type DatabaseLoggingConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	SlowQueryThresholdMs int  `mapstructure:"slow_query_threshold_ms"`
}

type RedisConfig struct {
	Addr                string `mapstructure:"addr"`
	DB                  int    `mapstructure:"db"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PoolSize            int    `mapstructure:"pool_size"`
	MinIdleConns        int    `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	TimeoutSeconds int             `mapstructure:"timeout_seconds"`
	Environment    string          `mapstructure:"environment"`
	Domain         string          `mapstructure:"domain"`
	Databases      []string        `mapstructure:"databases"`
	CORS           CORSConfig      `mapstructure:"cors"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAgeSeconds    int      `mapstructure:"max_age_seconds"`
}

type AuthenticationConfig struct {
	Paseto PasetoConfig `mapstructure:"paseto"`
	// RequireSession makes the auth middleware reject tokens whose session id
	// is not present in Redis.
	RequireSession bool `mapstructure:"require_session"`
}

type PasetoConfig struct {
	Mode             string `mapstructure:"mode"`
	LocalKeyHex      string `mapstructure:"local_key_hex"`
	SecretKeyHex     string `mapstructure:"secret_key_hex"`
	PublicKeyHex     string `mapstructure:"public_key_hex"`
	Issuer           string `mapstructure:"issuer"`
	Audience         string `mapstructure:"audience"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
}

type AuthorizationConfig struct {
	CasbinModelPath   string `mapstructure:"casbin_model_path"`
	EnableAudit       bool   `mapstructure:"enable_audit"`
	PolicySyncEnabled bool   `mapstructure:"policy_sync_enabled"`
}

type EmailConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	From    string     `mapstructure:"from"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	UseTLS         bool   `mapstructure:"use_tls"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type SMSConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// DefaultRegion is the ISO 3166 region used to read phone numbers
	// stored without a country code.
	DefaultRegion string      `mapstructure:"default_region"`
	SMSIR         SMSIRConfig `mapstructure:"smsir"`
}

type SMSIRConfig struct {
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string       `mapstructure:"level"`  // debug, info, warn, error
	Format string       `mapstructure:"format"` // text, json
	Output OutputConfig `mapstructure:"output"`
}

type OutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
	Loki   LokiConfig    `mapstructure:"loki"`
}

type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`        // e.g. "logs/app.log"
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // rotate after N MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type LokiConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"` // e.g. "http://localhost:3100"
	Username string `mapstructure:"username"` // for Grafana Cloud basic auth
	Password string `mapstructure:"password"`
}

// SchedulingConfig holds the clinic's calendar rules.
type SchedulingConfig struct {
	Timezone                  string `mapstructure:"timezone"`
	BusinessStartHour         int    `mapstructure:"business_start_hour"`
	BusinessEndHour           int    `mapstructure:"business_end_hour"`
	RecurrenceMonths          int    `mapstructure:"recurrence_months"`
	ConfirmationWindowMinutes int    `mapstructure:"confirmation_window_minutes"`
	VisitMaxLeadHours         int    `mapstructure:"visit_max_lead_hours"`
}

// Location loads the configured timezone.
func (s SchedulingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

func (s SchedulingConfig) ConfirmationWindow() time.Duration {
	return time.Duration(s.ConfirmationWindowMinutes) * time.Minute
}

func (s SchedulingConfig) VisitMaxLead() time.Duration {
	return time.Duration(s.VisitMaxLeadHours) * time.Hour
}

type JobsConfig struct {
	OverdueVisits OverdueVisitsJobConfig `mapstructure:"overdue_visits"`
}

type OverdueVisitsJobConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Cron             string   `mapstructure:"cron"`
	LockTTLSeconds   int      `mapstructure:"lock_ttl_seconds"`
	ReportRecipients []string `mapstructure:"report_recipients"`
}

type DirectoryConfig struct {
	CacheEnabled    bool `mapstructure:"cache_enabled"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`
}

// NotificationsConfig names the sms.ir templates sent to patients. An empty
// template id turns that notification off.
type NotificationsConfig struct {
	AppointmentCreatedTemplateID   string `mapstructure:"appointment_created_template_id"`
	AppointmentCancelledTemplateID string `mapstructure:"appointment_cancelled_template_id"`
}

func (c *Config) Validate() error {
	var errs []error

	s := c.Scheduling
	if _, err := s.Location(); err != nil {
		errs = append(errs, fmt.Errorf("scheduling.timezone: %w", err))
	}
	if s.BusinessStartHour < 0 || s.BusinessEndHour > 24 || s.BusinessStartHour >= s.BusinessEndHour {
		errs = append(errs, fmt.Errorf("scheduling: business hours [%d, %d) are invalid", s.BusinessStartHour, s.BusinessEndHour))
	}
	if s.RecurrenceMonths < 1 {
		errs = append(errs, errors.New("scheduling.recurrence_months must be at least 1"))
	}
	if s.ConfirmationWindowMinutes <= 0 {
		errs = append(errs, errors.New("scheduling.confirmation_window_minutes must be positive"))
	}
	if s.VisitMaxLeadHours < 0 {
		errs = append(errs, errors.New("scheduling.visit_max_lead_hours must not be negative"))
	}

	if j := c.Jobs.OverdueVisits; j.Enabled {
		if _, err := cron.ParseStandard(j.Cron); err != nil {
			errs = append(errs, fmt.Errorf("jobs.overdue_visits.cron: %w", err))
		}
	}

	return errors.Join(errs...)
}
