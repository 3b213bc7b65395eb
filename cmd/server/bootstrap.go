package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/api"
	"github.com/jobhive/jobhive/internal/app"
	"github.com/jobhive/jobhive/internal/app/maintenance"
	iauth "github.com/jobhive/jobhive/internal/auth"
	"github.com/jobhive/jobhive/internal/cache"
	"github.com/jobhive/jobhive/internal/database"
	"github.com/jobhive/jobhive/internal/middleware"
	"github.com/jobhive/jobhive/internal/monitoring"
	"github.com/jobhive/jobhive/internal/monitoring/checks"
	"github.com/jobhive/jobhive/internal/permissions"
	"github.com/jobhive/jobhive/internal/security"
	"github.com/jobhive/jobhive/internal/services"
	"github.com/jobhive/jobhive/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisStore
	Cleaner   *maintenance.Cleaner
	Jobs      *monitoring.JobTracker
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime opens storage, starts background jobs and builds the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	auditSvc, err := services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	loader, err := permissions.NewLoader(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise permission loader: %w", err)
	}

	grantSvc, err := services.NewGrantService(stack.DB, auditSvc, loader)
	if err != nil {
		return nil, fmt.Errorf("initialise grant service: %w", err)
	}

	stack.Jobs = monitoring.NewJobTracker()
	stack.Cleaner = maintenance.NewCleaner(grantSvc, auditSvc,
		maintenance.WithTracker(stack.Jobs),
		maintenance.WithAuditRetentionDays(cfg.Audit.RetentionDays),
		maintenance.WithGrantSchedule(cfg.Audit.GrantSweepSpec),
		maintenance.WithAuditSchedule(cfg.Audit.RetentionSpec),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.RateStore, stack.Redis = selectRateStore(ctx, cfg, stack.DB, log)

	var redisPinger checks.RedisPinger
	if stack.Redis != nil {
		redisPinger = stack.Redis
	}
	redisWanted := cfg.RateLimit.Enabled && strings.EqualFold(strings.TrimSpace(cfg.RateLimit.Backend), "redis")
	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.RateStore, api.WithReadinessChecks(
		checks.Redis(redisPinger, redisWanted, cfg.Cache.Redis.Timeout),
		checks.Maintenance(stack.Jobs, 0),
	))
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	logPosture(security.NewPostureService(stack.DB, cfg).Run(ctx), log)

	success = true
	return stack, nil
}

// selectRateStore picks the limiter backend. An unreachable Redis degrades to
// the database store so that limits stay shared across instances.
func selectRateStore(ctx context.Context, cfg *app.Config, db *gorm.DB, log *zap.Logger) (middleware.RateStore, *cache.RedisStore) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	switch strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend)) {
	case "redis":
		redisStore, err := cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig())
		if err != nil {
			log.Warn("redis unavailable; falling back to database-backed rate limiting", zap.Error(err))
			return middleware.NewCacheRateStore(cache.NewDatabaseStore(db)), nil
		}
		log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		return middleware.NewCacheRateStore(redisStore), redisStore
	case "database":
		return middleware.NewCacheRateStore(cache.NewDatabaseStore(db)), nil
	default:
		return middleware.NewMemoryRateStore(), nil
	}
}

func logPosture(result security.Result, log *zap.Logger) {
	for _, check := range result.Checks {
		fields := []zap.Field{zap.String("check", check.ID), zap.String("remediation", check.Remediation)}
		switch check.Status {
		case security.StatusFail:
			log.Error(check.Message, fields...)
		case security.StatusWarn:
			log.Warn(check.Message, fields...)
		}
	}
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
		s.Redis = nil
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
		s.DB = nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		closeDatabase(db, logger.WithModule("database"))
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
