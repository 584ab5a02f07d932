// Package config loads application configuration via Viper from environment
// variables and an optional config file.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups all application configuration.
type Config struct {
	App     AppConfig
	DB      DBConfig
	HTTP    HTTPConfig
	Refresh RefreshConfig
	Sweep   SweepConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string

	// BarID is the bar this node serves. Each bar client runs its own
	// instance; all domain routes operate on this bar.
	BarID string
}

// DBConfig holds PostgreSQL settings.
type DBConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// RefreshConfig bounds the polling fallback for the availability sources.
// Pollers refresh on this interval when no push invalidation arrives.
type RefreshConfig struct {
	StockInterval       time.Duration
	ConsignmentInterval time.Duration
	SalesInterval       time.Duration
	QueueInterval       time.Duration
	FetchTimeout        time.Duration
	MaxBackoff          time.Duration
	StaleBound          time.Duration // beyond this, readiness reports degraded
}

// SweepConfig configures the background sweeper.
type SweepConfig struct {
	Interval       time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration from environment (BARSTOCK_ prefix) and an
// optional barstock.yaml in the working directory.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("BARSTOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("barstock")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env-only deployments are fine.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("app.env"),
			Name:     v.GetString("app.name"),
			LogLevel: v.GetString("app.log_level"),
			BarID:    v.GetString("app.bar_id"),
		},
		DB: DBConfig{
			URL:             v.GetString("db.url"),
			MaxConns:        v.GetInt32("db.max_conns"),
			MinConns:        v.GetInt32("db.min_conns"),
			MaxConnLifetime: v.GetDuration("db.max_conn_lifetime"),
			MaxConnIdleTime: v.GetDuration("db.max_conn_idle_time"),
		},
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Refresh: RefreshConfig{
			StockInterval:       v.GetDuration("refresh.stock_interval"),
			ConsignmentInterval: v.GetDuration("refresh.consignment_interval"),
			SalesInterval:       v.GetDuration("refresh.sales_interval"),
			QueueInterval:       v.GetDuration("refresh.queue_interval"),
			FetchTimeout:        v.GetDuration("refresh.fetch_timeout"),
			MaxBackoff:          v.GetDuration("refresh.max_backoff"),
			StaleBound:          v.GetDuration("refresh.stale_bound"),
		},
		Sweep: SweepConfig{
			Interval:       v.GetDuration("sweep.interval"),
			IdempotencyTTL: v.GetDuration("sweep.idempotency_ttl"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.name", "barstock")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("db.max_conns", 25)
	v.SetDefault("db.min_conns", 5)
	v.SetDefault("db.max_conn_lifetime", time.Hour)
	v.SetDefault("db.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("refresh.stock_interval", 30*time.Second)
	v.SetDefault("refresh.consignment_interval", 30*time.Second)
	v.SetDefault("refresh.sales_interval", 30*time.Second)
	v.SetDefault("refresh.queue_interval", 5*time.Second)
	v.SetDefault("refresh.fetch_timeout", 10*time.Second)
	v.SetDefault("refresh.max_backoff", 5*time.Minute)
	v.SetDefault("refresh.stale_bound", 2*time.Minute)

	v.SetDefault("sweep.interval", time.Minute)
	v.SetDefault("sweep.idempotency_ttl", 24*time.Hour)
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
