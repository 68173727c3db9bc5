package database

import (
	"fmt"
	"time"

	"github.com/clinicadesk/clinica_backend/config"
)

// Config holds database connection and behaviour settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	AutoMigrate bool

	// EnableLogging logs every statement at debug level; statements slower
	// than SlowQueryThreshold are logged at warn level regardless.
	EnableLogging      bool
	SlowQueryThreshold time.Duration
}

// DSN returns a lib/pq key/value connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func DefaultConfig() Config {
	return Config{
		Host:               "localhost",
		Port:               5432,
		SSLMode:            "disable",
		MaxOpenConns:       25,
		MaxIdleConns:       5,
		ConnMaxLifetime:    5 * time.Minute,
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

func FromCentralConfig(c config.DatabaseConfig) Config {
	cfg := Config{
		Host:          c.Host,
		Port:          c.Port,
		User:          c.User,
		Password:      c.Password,
		DBName:        c.DBName,
		SSLMode:       c.SSLMode,
		MaxOpenConns:  c.Pool.MaxOpenConns,
		MaxIdleConns:  c.Pool.MaxIdleConns,
		AutoMigrate:   c.Migrations.AutoMigrate,
		EnableLogging: c.Logging.Enabled,
	}
	if c.Pool.ConnMaxLifetimeMin > 0 {
		cfg.ConnMaxLifetime = time.Duration(c.Pool.ConnMaxLifetimeMin) * time.Minute
	}
	if c.Logging.SlowQueryThresholdMs > 0 {
		cfg.SlowQueryThreshold = time.Duration(c.Logging.SlowQueryThresholdMs) * time.Millisecond
	}
	return cfg
}

// NewDSN builds the DSN straight from config.DatabaseConfig.
func NewDSN(c config.DatabaseConfig) string {
	return FromCentralConfig(c).DSN()
}
