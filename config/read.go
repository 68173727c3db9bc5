package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/clinicadesk/clinica_backend/pkg/constants"
	"github.com/spf13/viper"
)

var GlobalConf *Config

func ReadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)

	// Allow env vars to override config values.
	// e.g. CLINICA_DATABASE_HOST overrides database.host
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read the config file (optional in Docker environments)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if os.Getenv(constants.EnvPrefix+"_DATABASE_HOST") == "" {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func MustReadConfig(path string) *Config {
	config, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}

	GlobalConf = config

	return config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.rate_limit.requests_per_minute", 120)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool.max_open_conns", 20)
	v.SetDefault("database.pool.max_idle_conns", 5)
	v.SetDefault("database.pool.conn_max_lifetime_minutes", 30)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("authentication.paseto.mode", "local")
	v.SetDefault("authentication.paseto.issuer", "clinica")
	v.SetDefault("authentication.paseto.audience", "clinica-api")
	v.SetDefault("authentication.paseto.access_ttl_minutes", 60)

	v.SetDefault("authorization.casbin_model_path", "config/rbac_model.conf")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output.stdout", true)

	v.SetDefault("observability.service_name", "clinica-backend")
	v.SetDefault("observability.metrics.path", "/metrics")

	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("sms.default_region", "BR")

	v.SetDefault("scheduling.timezone", "America/Sao_Paulo")
	v.SetDefault("scheduling.business_start_hour", 8)
	v.SetDefault("scheduling.business_end_hour", 18)
	v.SetDefault("scheduling.recurrence_months", 3)
	v.SetDefault("scheduling.confirmation_window_minutes", 120)
	v.SetDefault("scheduling.visit_max_lead_hours", 24)

	v.SetDefault("jobs.overdue_visits.cron", "*/15 * * * *")
	v.SetDefault("jobs.overdue_visits.lock_ttl_seconds", 300)

	v.SetDefault("directory.cache_ttl_seconds", 300)
}
