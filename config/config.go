/*
Package config loads server configuration and builds the logger.

SOURCES (later wins):
  1. Defaults (below)
  2. config.yaml in "." or "./config", or the file passed to Load
  3. Environment, prefixed COVERAGE_ with "." replaced by "_"
     e.g. COVERAGE_MONITOR_INTERVAL=15m, COVERAGE_REDIS_ADDR=localhost:6379
  4. Command-line flags bound by cmd/server

SEE ALSO:
  - logger.go: zap construction
  - cmd/server/main.go: flag binding
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/warp/coverage-engine/calendar"
)

// Config holds all configuration values.
type Config struct {
	Port            int    `mapstructure:"port"`
	DBPath          string `mapstructure:"db_path"`
	Env             string `mapstructure:"env"`
	LogLevel        string `mapstructure:"log_level"`
	FirstWeekday    string `mapstructure:"first_weekday"`
	SentinelProject string `mapstructure:"sentinel_project"`

	Monitor   MonitorConfig   `mapstructure:"monitor"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// MonitorConfig controls the background coverage scanner.
type MonitorConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	Concurrency int           `mapstructure:"concurrency"`
}

// RateLimitConfig is the per-client request budget.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RedisConfig enables the snapshot cache when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

const EnvPrefix = "COVERAGE"

// New returns a viper instance with defaults, env binding and search paths
// set. cmd/server binds its flags on it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "coverage.db")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("first_weekday", "monday")
	v.SetDefault("sentinel_project", "On Call")
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval", time.Hour)
	v.SetDefault("monitor.concurrency", 4)
	v.SetDefault("rate_limit.per_minute", 600)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)
	return v
}

// Load reads the config file (explicit path, or the search paths when empty)
// and decodes v into a validated Config. A missing search-path file is not an
// error; a missing explicit file is.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	if _, err := calendar.ParseWeekday(c.FirstWeekday); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if strings.TrimSpace(c.SentinelProject) == "" {
		return errors.New("config: sentinel_project is required")
	}
	if c.Monitor.Enabled && c.Monitor.Interval <= 0 {
		return fmt.Errorf("config: monitor.interval must be positive, got %s", c.Monitor.Interval)
	}
	if c.Monitor.Concurrency < 1 {
		return fmt.Errorf("config: monitor.concurrency must be at least 1, got %d", c.Monitor.Concurrency)
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("config: rate_limit values must not be negative")
	}
	return nil
}

// Weekday returns the parsed first weekday. Call after Validate.
func (c Config) Weekday() time.Weekday {
	wd, err := calendar.ParseWeekday(c.FirstWeekday)
	if err != nil {
		return calendar.DefaultFirstWeekday
	}
	return wd
}

// IsProduction reports whether env is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
