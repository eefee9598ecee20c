// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Lookup        LookupConfig       `mapstructure:"lookup"`
	Worker        WorkerConfig       `mapstructure:"worker"`
	Report        ReportConfig       `mapstructure:"report"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Notifications NotificationConfig `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LookupConfig holds settings for the external registry lookup API.
type LookupConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (l LookupConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// WorkerConfig holds the scheduling discipline of the queue worker.
// The defaults (batch of 3, 61s cooldown) keep the call rate under the
// lookup API's published ceiling of 3 calls per minute.
type WorkerConfig struct {
	BatchSize       int `mapstructure:"batch_size"`
	CooldownSeconds int `mapstructure:"cooldown_seconds"`
	IdleSeconds     int `mapstructure:"idle_seconds"`
	BackoffSeconds  int `mapstructure:"backoff_seconds"`
}

func (w WorkerConfig) Cooldown() time.Duration {
	return time.Duration(w.CooldownSeconds) * time.Second
}

func (w WorkerConfig) IdleWait() time.Duration {
	return time.Duration(w.IdleSeconds) * time.Second
}

func (w WorkerConfig) Backoff() time.Duration {
	return time.Duration(w.BackoffSeconds) * time.Second
}

// ReportConfig holds presentation settings for normalized results.
type ReportConfig struct {
	TimeZone        string `mapstructure:"timezone"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

func (r ReportConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NotificationConfig holds settings for the optional queue-drained
// notification.
type NotificationConfig struct {
	SNS SNSConfig `mapstructure:"sns"`
}

type SNSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn"`
}
