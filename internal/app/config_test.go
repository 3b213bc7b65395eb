package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobhive/jobhive/internal/auth"
	"github.com/jobhive/jobhive/internal/database"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.True(t, cfg.Server.Production)
	require.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, 2*time.Second, cfg.Database.LoadTimeout)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, "jh:", cfg.Cache.Redis.KeyPrefix)
	require.Equal(t, 5*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "admin-api", cfg.Auth.JWT.Audience)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)

	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, 20, cfg.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	require.Equal(t, "redis", cfg.RateLimit.Backend)

	require.Equal(t, 90, cfg.Audit.RetentionDays)
	require.Equal(t, "@daily", cfg.Audit.RetentionSpec)
	require.Equal(t, "@every 1m", cfg.Audit.GrantSweepSpec)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("JOBHIVE_SERVER_PORT", "7070")
	t.Setenv("JOBHIVE_AUTH_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "memory", cfg.RateLimit.Backend)
	require.Equal(t, 100, cfg.RateLimit.Requests)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.Equal(t, 365, cfg.Audit.RetentionDays)
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Database:  DatabaseConfig{Driver: "sqlite"},
			RateLimit: RateLimitConfig{Enabled: true, Requests: 10, Window: time.Minute, Backend: "memory"},
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = "oracle"
	require.ErrorContains(t, cfg.Validate(), "unsupported database driver")

	cfg = base()
	cfg.RateLimit.Backend = "redis"
	require.ErrorContains(t, cfg.Validate(), "cache.redis.enabled")

	cfg.Cache.Redis.Enabled = true
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.RateLimit.Backend = "memcached"
	require.ErrorContains(t, cfg.Validate(), "unsupported rate limit backend")

	cfg = base()
	cfg.RateLimit.Requests = 0
	require.ErrorContains(t, cfg.Validate(), "must be positive")

	cfg.RateLimit.Enabled = false
	require.NoError(t, cfg.Validate())
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT: JWTSettings{
			Secret:   "secret",
			Issuer:   " issuer ",
			Audience: "api",
			TTL:      30 * time.Minute,
		},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		Audience:       "api",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())

	var empty AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, empty.JWTServiceConfig().AccessTokenTTL)
}

func TestDatabaseSettings(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "Postgres",
		Postgres: DBAuthConfig{
			Host:     "db",
			Port:     5432,
			Database: "jobhive",
			Username: "user",
			Password: "pass",
		},
		MySQL:        DBAuthConfig{Host: "ignored"},
		MaxOpenConns: 10,
	}

	require.Equal(t, database.Config{
		Driver:       "postgres",
		Host:         "db",
		Port:         5432,
		Name:         "jobhive",
		User:         "user",
		Password:     "pass",
		MaxOpenConns: 10,
	}, cfg.DatabaseSettings())

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/test.sqlite", Postgres: DBAuthConfig{Host: "ignored"}}
	settings := sqlite.DatabaseSettings()
	require.Equal(t, "./data/test.sqlite", settings.Path)
	require.Empty(t, settings.Host)
}

func TestRedisClientConfig(t *testing.T) {
	cfg := CacheConfig{Redis: RedisCacheConfig{
		Address:   " localhost:6379 ",
		Username:  " user ",
		Password:  "pw",
		DB:        2,
		TLS:       true,
		Timeout:   time.Second,
		KeyPrefix: "jh:",
	}}

	redisCfg := cfg.RedisClientConfig()
	require.Equal(t, "localhost:6379", redisCfg.Address)
	require.Equal(t, "user", redisCfg.Username)
	require.Equal(t, 2, redisCfg.DB)
	require.True(t, redisCfg.TLS)
	require.Equal(t, "jh:", redisCfg.KeyPrefix)
}
