package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the flower-shop bot platform.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Logger  LoggerConfig  `mapstructure:"logger"`
	Server  ServerConfig  `mapstructure:"server"`
	Bot     BotConfig     `mapstructure:"bot"`
	DB      DBConfig      `mapstructure:"db" validate:"required"`
	Redis   RedisConfig   `mapstructure:"redis" validate:"required"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
	Session SessionConfig `mapstructure:"session"`
	Limits  LimitsConfig  `mapstructure:"limits"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	I18n    I18nConfig    `mapstructure:"i18n"`
}

// LoggerConfig controls log level, format, and file rotation.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ServerConfig controls the HTTP server exposing health and metrics.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BotConfig holds the admin bot credentials and update-delivery settings
// shared by every bot instance the platform runs.
type BotConfig struct {
	AdminToken    string        `mapstructure:"admin_token" validate:"required"`
	AdminUsername string        `mapstructure:"admin_username"`
	Mode          string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout"`
	WebhookListen string        `mapstructure:"webhook_listen"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_min"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslmode,
	)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// SentryConfig enables error reporting to Sentry.
type SentryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// SessionConfig controls session persistence and expiry.
type SessionConfig struct {
	// TTL is the hard Redis expiry safety net per session key.
	TTL time.Duration `mapstructure:"ttl"`
	// InactivityWindow is the cutoff the sweep uses to purge idle sessions.
	InactivityWindow time.Duration `mapstructure:"inactivity_window"`
}

// LimitsConfig controls per-user rate limiting.
type LimitsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	PerUser   int           `mapstructure:"per_user"`
	Window    time.Duration `mapstructure:"window"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// JobsConfig controls the asynq background worker and scheduler.
type JobsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SweepCron   string `mapstructure:"sweep_cron"`
	Concurrency int    `mapstructure:"concurrency"`
}

// I18nConfig points at the message catalogs.
type I18nConfig struct {
	Dir             string `mapstructure:"dir"`
	DefaultLanguage string `mapstructure:"default_language"`
}
