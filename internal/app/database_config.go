package app

import (
	"strings"

	"github.com/jobhive/jobhive/internal/database"
)

// DatabaseSettings converts the configured driver section into database.Config.
func (c DatabaseConfig) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            c.Path,
		DSN:             c.DSN,
		Options:         c.Options,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}

	var auth DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		auth = c.Postgres
	case "mysql":
		auth = c.MySQL
	default:
		return cfg
	}

	cfg.Host = auth.Host
	cfg.Port = auth.Port
	cfg.Name = auth.Database
	cfg.User = auth.Username
	cfg.Password = auth.Password
	return cfg
}
