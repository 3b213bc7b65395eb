package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the jobhive admin API.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	Production      bool          `mapstructure:"production"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver"`
	Path            string            `mapstructure:"path"`
	DSN             string            `mapstructure:"dsn"`
	Postgres        DBAuthConfig      `mapstructure:"postgres"`
	MySQL           DBAuthConfig      `mapstructure:"mysql"`
	Options         map[string]string `mapstructure:"options"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
	LoadTimeout     time.Duration     `mapstructure:"grant_load_timeout"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Address   string        `mapstructure:"address"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TLS       bool          `mapstructure:"tls"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// AuthConfig captures bearer token validation settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access token validation.
type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"access_token_ttl"`
}

// RateLimitConfig controls the request limiter. Backend is memory, redis or database.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Backend  string        `mapstructure:"backend"`
}

// AuditConfig controls audit retention and the grant expiry sweep.
type AuditConfig struct {
	RetentionDays  int    `mapstructure:"retention_days"`
	RetentionSpec  string `mapstructure:"retention_schedule"`
	GrantSweepSpec string `mapstructure:"grant_expiry_schedule"`
}

// MonitoringConfig toggles the metrics endpoint.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("JOBHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "sqlite", "postgres", "postgresql", "mysql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}

	switch strings.ToLower(strings.TrimSpace(c.RateLimit.Backend)) {
	case "", "memory", "database":
	case "redis":
		if !c.Cache.Redis.Enabled {
			return errors.New("config: rate_limit.backend redis requires cache.redis.enabled")
		}
	default:
		return fmt.Errorf("config: unsupported rate limit backend %q", c.RateLimit.Backend)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("config: rate_limit.requests and rate_limit.window must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.production", false)
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/jobhive.sqlite")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.grant_load_timeout", "3s")
	v.SetDefault("database.dsn", "")
	for _, driver := range []string{"postgres", "mysql"} {
		v.SetDefault("database."+driver+".host", "")
		v.SetDefault("database."+driver+".port", 0)
		v.SetDefault("database."+driver+".database", "")
		v.SetDefault("database."+driver+".username", "")
		v.SetDefault("database."+driver+".password", "")
	}

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.key_prefix", "jobhive:")

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "jobhive")
	v.SetDefault("auth.jwt.audience", "")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.backend", "memory")

	v.SetDefault("audit.retention_days", 365)
	v.SetDefault("audit.retention_schedule", "@daily")
	v.SetDefault("audit.grant_expiry_schedule", "@every 1m")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
